package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/extpm-labs/extpm/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the package manager API for an editor host",
	Long: `Serve a local JSON API so an editor can list, plan, install and remove
packages:

  GET    /packages           installed packages
  GET    /registry           registry listing (?refresh=1 to bypass the TTL)
  POST   /plan               {"name": "..."} install plan
  POST   /install            {"name": "..."} install a package
  DELETE /packages/{name}    uninstall a package
  GET    /metrics            Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", server.DefaultAddr, "Listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	m, logger, err := newManager()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Warm the catalog and registry so the first request is served from memory.
	m.ScanAll()
	m.FetchRegistry(ctx, false)

	srv := server.New(m, logger.Logger)
	return srv.ListenAndServe(ctx, serveAddr, func(a net.Addr) {
		fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", a)
	})
}
