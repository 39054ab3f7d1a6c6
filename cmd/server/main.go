/*
main.go - Application entry point

PURPOSE:

	Command-line entry for the personal ledger. "serve" runs the HTTP API
	and the recurring runner; "run-due" and "recalc" are one-shot
	maintenance commands against the same database.

CONFIGURATION (flag > LEDGER_* env > config file > default):

	--config        YAML/TOML/JSON config file
	--db            db.path (default: ledger.db, ":memory:" for in-memory)
	--port          server.port (default: 8080)
	--log-level     log.level (debug|info|warn|error)
	--interval      scheduler.interval (default: 0s = startup only)

GRACEFUL SHUTDOWN:

	On SIGINT/SIGTERM the server stops accepting connections, waits up to
	30s for active requests, stops the runner and closes the database.

EXAMPLES:

	./server serve --db=./data/ledger.db --interval=1h
	LEDGER_SERVER_PORT=3000 ./server serve
	./server recalc acc-123

SEE ALSO:
  - config/config.go: Config and defaults
  - api/server.go: Router configuration
  - api/runner.go: RecurringRunner
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/warp/pocket-ledger/api"
	"github.com/warp/pocket-ledger/config"
	"github.com/warp/pocket-ledger/ledger"
	"github.com/warp/pocket-ledger/money"
	"github.com/warp/pocket-ledger/store/sqlite"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the state shared by every subcommand once configuration is loaded.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{v: config.New()}

	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "Personal finance ledger",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file path")
	flags.String("db", "", "SQLite database path")
	flags.String("log-level", "", "log level")
	flags.String("log-format", "", "log format (text|json)")
	for key, name := range map[string]string{
		"db.path":    "db",
		"log.level":  "log-level",
		"log.format": "log-format",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(name))
	}

	rootCmd.AddCommand(a.newServeCommand(), a.newRunDueCommand(), a.newRecalcCommand())
	return rootCmd
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) openStore() (*sqlite.Store, error) {
	store, err := sqlite.New(a.cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", a.cfg.DB.Path, err)
	}
	return store, nil
}

// =============================================================================
// SERVE
// =============================================================================

func (a *app) newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the recurring runner",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve()
		},
	}
	cmd.Flags().Int("port", 0, "HTTP server port")
	cmd.Flags().Duration("interval", 0, "recurring check interval (0 = startup only)")
	_ = a.v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = a.v.BindPFlag("scheduler.interval", cmd.Flags().Lookup("interval"))
	return cmd
}

func (a *app) serve() error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	handler := api.NewHandler(store, a.cfg.Ledger.Currency, a.logger)
	handler.Runner.Interval = a.cfg.Scheduler.Interval
	handler.Runner.Start()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", "addr", server.Addr, "db", a.cfg.DB.Path, "currency", a.cfg.Ledger.Currency)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errc:
		handler.Runner.Stop()
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		a.logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		a.logger.Error("forced shutdown", "error", err)
	}
	handler.Runner.Stop()

	a.logger.Info("server stopped")
	return nil
}

// =============================================================================
// MAINTENANCE
// =============================================================================

func (a *app) newRunDueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run-due",
		Short: "Execute every due recurring template once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			handler := api.NewHandler(store, a.cfg.Ledger.Currency, a.logger)
			results, err := handler.Runner.RunNow(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, r := range results {
				if r.Success {
					fmt.Fprintf(out, "ok    %s -> %s\n", r.TemplateID, ledger.Deref(r.TransactionID))
				} else {
					failed++
					fmt.Fprintf(out, "fail  %s: %s\n", r.TemplateID, r.Error)
				}
			}
			fmt.Fprintf(out, "%d executed, %d failed\n", len(results)-failed, failed)
			return nil
		},
	}
}

func (a *app) newRecalcCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recalc [account-id]",
		Short: "Recompute stored balances from transaction history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			txs := ledger.NewTransactionService(store, a.logger)
			accounts, err := ledger.NewCatalogService(store, a.logger).ListAccounts(cmd.Context(), true)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			found := false
			for _, acct := range accounts {
				if len(args) == 1 && acct.ID != args[0] {
					continue
				}
				found = true
				balance, err := txs.RecalculateAccountBalance(cmd.Context(), acct.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s  %-20s %s\n", acct.ID, acct.Name, money.Format(balance, acct.Currency))
			}
			if len(args) == 1 && !found {
				return &ledger.NotFoundError{Kind: "account", ID: args[0]}
			}
			return nil
		},
	}
}
