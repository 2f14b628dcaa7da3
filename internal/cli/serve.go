package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/pairwise/internal/source"
	"github.com/ppiankov/pairwise/internal/store"
	"github.com/ppiankov/pairwise/internal/web"
)

// storeConnectTimeout bounds the initial redis/mongo handshake
const storeConnectTimeout = 10 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a survey variant over HTTP",
	Long: `Serve runs one survey variant:

  hybrid  evaluators enter an access code and their evaluator ID, then walk
          through the sample list assigned in static_evaluation_config.json
  random  evaluators enter an ID and get a random paper with a human
          reference and two other reviews in random A/B order

Configuration and sample files are read from --data, a local directory or a
static HTTP host. Every submission is appended to the configured store and
downloaded by the evaluator's browser.

Example:
  pairwise serve
  pairwise serve --mode random --addr :9000
  pairwise serve --data https://example.org/survey/data --store redis`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("mode", "hybrid", "survey variant (hybrid, random)")
	serveCmd.Flags().String("addr", ":8000", "listen address")
	serveCmd.Flags().String("data", "data", "data directory or http(s) base URL")
	serveCmd.Flags().String("store", "layered", "record store (memory, disk, layered, redis, mongo)")
	serveCmd.Flags().String("store-dir", ".pairwise/records", "record directory for disk and layered stores")
	serveCmd.Flags().Duration("timeout", 30*time.Second, "timeout for fetching remote data files")

	_ = viper.BindPFlag("server.mode", serveCmd.Flags().Lookup("mode"))
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("data.base", serveCmd.Flags().Lookup("data"))
	_ = viper.BindPFlag("store.backend", serveCmd.Flags().Lookup("store"))
	_ = viper.BindPFlag("store.dir", serveCmd.Flags().Lookup("store-dir"))
	_ = viper.BindPFlag("data.timeout", serveCmd.Flags().Lookup("timeout"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Output.Verbose)

	if cfg.Output.Verbose {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, storeConnectTimeout)
	st, err := store.New(connectCtx, cfg.Store)
	cancel()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}()
	if !store.Durable(cfg.Store.Backend) {
		logger.Warn("records are kept in memory only and are lost on exit", "backend", cfg.Store.Backend)
	}

	loader := source.NewLoader(cfg.Data, logger)
	srv, err := web.New(ctx, cfg.Server, loader, st, logger)
	if err != nil {
		return fmt.Errorf("start %s survey: %w", cfg.Server.Mode, err)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Pairwise Survey\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Mode:       %s\n", cfg.Server.Mode)
	fmt.Fprintf(os.Stderr, "  Address:    %s\n", cfg.Server.Addr)
	fmt.Fprintf(os.Stderr, "  Data:       %s\n", cfg.Data.Base)
	fmt.Fprintf(os.Stderr, "  Store:      %s\n", cfg.Store.Backend)
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Press Ctrl+C to stop\n")
	fmt.Fprintf(os.Stderr, "\n")

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
