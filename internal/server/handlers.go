package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/extpm-labs/extpm/internal/catalog"
	"github.com/extpm-labs/extpm/internal/installer"
	"github.com/extpm-labs/extpm/internal/manager"
	"github.com/extpm-labs/extpm/internal/registry"
	"github.com/extpm-labs/extpm/internal/resolver"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type packagesResponse struct {
	Packages  []*catalog.Package `json:"packages"`
	Conflicts []catalog.Conflict `json:"conflicts,omitempty"`
}

type registryResponse struct {
	Branch    string                   `json:"branch"`
	FetchedAt string                   `json:"fetchedAt"`
	Stale     bool                     `json:"stale"`
	Packages  []registry.RemotePackage `json:"packages"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type installResponse struct {
	Plan   *resolver.Plan    `json:"plan"`
	Result *installer.Result `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) listPackages(w http.ResponseWriter, r *http.Request) {
	cat := s.svc.ScanAll()
	pkgs := cat.Packages
	if pkgs == nil {
		pkgs = []*catalog.Package{}
	}
	writeJSON(w, http.StatusOK, packagesResponse{Packages: pkgs, Conflicts: cat.Conflicts})
}

func (s *Server) getRegistry(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("refresh") == "1"
	snap, err := s.svc.Snapshot(r.Context(), force)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	resp := registryResponse{
		Branch:    snap.Branch,
		FetchedAt: snap.FetchedAt.UTC().Format(time.RFC3339),
		Stale:     snap.Stale,
		Packages:  manager.Available(snap, s.svc.ScanAll()),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) plan(w http.ResponseWriter, r *http.Request) {
	name, ok := s.readName(w, r)
	if !ok {
		return
	}
	plan, err := s.svc.Plan(r.Context(), name)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) install(w http.ResponseWriter, r *http.Request) {
	name, ok := s.readName(w, r)
	if !ok {
		return
	}
	plan, res, err := s.svc.Install(r.Context(), name, nil)
	if plan == nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	resp := installResponse{Plan: plan, Result: res}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

func (s *Server) uninstall(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.svc.Uninstall(name); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) readName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return "", false
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("name is required"))
		return "", false
	}
	return req.Name, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, manager.ErrUnknownPackage), errors.Is(err, catalog.ErrNotInstalled):
		return http.StatusNotFound
	case errors.Is(err, installer.ErrSelfUninstall):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
