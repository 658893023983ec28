package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/zippdf/zippdf/internal/api"
	"github.com/zippdf/zippdf/internal/bot"
	"github.com/zippdf/zippdf/internal/config"
	"github.com/zippdf/zippdf/internal/database"
	"github.com/zippdf/zippdf/internal/engine"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bot",
	Long:  `Start the Telegram bot, the housekeeping jobs and, when configured, the status API.`,
	Example: `zippdf serve --config config.yml
zippdf serve -c /path/to/config.yml --log-level debug
`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if rootCmdPersistentFlags.LogLevel == "" {
		setLogLevel(cfg.LogLevel)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	transport, err := bot.NewTelegram(cfg.Telegram)
	if err != nil {
		return fmt.Errorf("failed to connect to telegram: %w", err)
	}

	eng, err := engine.New(ctx, cfg, db, transport)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			log.Error("failed to close engine", "error", err)
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return eng.Run(ctx)
	})

	if cfg.Listen != "" {
		server, err := api.New(cfg, eng, log.GetLevel() == log.DebugLevel)
		if err != nil {
			return fmt.Errorf("failed to create API server: %w", err)
		}
		g.Go(server.Run)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	log.Info("zippdf started successfully", "bot", transport.Username())
	err = g.Wait()
	log.Info("shutting down gracefully...")
	return err
}
