package cmd

import (
	"fmt"

	"github.com/ftilbury/aibot/api"
	"github.com/ftilbury/aibot/journal"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the SQLite journal over a read-only HTTP API",
	Long: `Serve exposes the journal database:

  GET /healthz
  GET /api/v1/trades?day=YYYY-MM-DD
  GET /api/v1/trades/:id
  GET /api/v1/equity/:symbol?from=&to=

Example:
  aibot serve --addr :8080 --db results/journal.db`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveAddr   string
	serveDBPath string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVarP(&serveDBPath, "db", "d", "", "path to SQLite journal DB (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()

	addr := cfg.API.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	dbPath := cfg.Journal.DBPath
	if serveDBPath != "" {
		dbPath = serveDBPath
	}

	db, err := journal.NewSQLite(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if cfg.Log.Environment != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	return api.NewServer(db, log).Run(ctx, addr)
}
