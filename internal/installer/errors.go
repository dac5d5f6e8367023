package installer

import (
	"errors"
	"fmt"
)

var (
	// ErrContentNotFound means the archive had no folder for the package.
	ErrContentNotFound = errors.New("package content not found in archive")
	// ErrArchiveInvalid means the archive could not be read or was unsafe.
	ErrArchiveInvalid = errors.New("invalid archive")
	// ErrNoSource means an item had neither a registry entry nor a gitUrl.
	ErrNoSource = errors.New("no source to install from")
	// ErrSelfUninstall is returned when asked to remove the tool's own package.
	ErrSelfUninstall = errors.New("refusing to uninstall the package manager itself")
)

// Stage names the step of an item that failed.
type Stage string

const (
	StageDownload  Stage = "download"
	StageExtract   Stage = "extract"
	StageLocate    Stage = "locate"
	StageReconcile Stage = "reconcile"
)

// ItemError reports which plan item aborted a run and at which stage.
type ItemError struct {
	Item  string
	Stage Stage
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("installing %s (%s): %v", e.Item, e.Stage, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }
