/*
main.go - Application entry point

PURPOSE:
  Command-line front end for the tip distribution engine. Every command
  reads the same TOML config, opens the same SQLite store and goes through
  the same api.Handler, so a run from the CLI and a run over HTTP are
  indistinguishable once stored.

COMMANDS:
  serve                 HTTP API, /metrics, optional scheduler
  distribute            Run over the stored inputs and print payroll
  runs                  List stored runs
  show <run-id>         Print one stored run
  load <scenario>       Reset the database and load a demo scenario
  import <file.json>    Replace stored inputs with a JSON bundle, keeping runs

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM serve:
  1. Stops the scheduler, waiting for an in-flight run
  2. Stops accepting new connections
  3. Waits for active requests to complete (30s timeout)
  4. Closes the database

EXAMPLES:
  tipengine load messy-feed
  tipengine distribute --dry-run
  tipengine serve --config ./tipengine.toml
  TIPENGINE_DB=":memory:" tipengine serve

SEE ALSO:
  - config/config.go: File format and env overrides
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/tip-engine/api"
	"github.com/warp/tip-engine/config"
	"github.com/warp/tip-engine/generic"
	"github.com/warp/tip-engine/store/sqlite"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "tipengine",
	Short:         "Distribute card tips to the staff who earned them",
	Long:          "tipengine matches each tip to a booking, splits it across the employees who worked it and writes a reconciled payroll summary.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

var distributeCmd = &cobra.Command{
	Use:   "distribute",
	Short: "Run a distribution over the stored inputs",
	RunE:  runDistribute,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored distribution runs",
	RunE:  runRuns,
}

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one stored run",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var loadCmd = &cobra.Command{
	Use:   "load <scenario>",
	Short: "Reset the database and load a demo scenario (no argument lists them)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLoad,
}

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Replace stored inputs with shifts, transactions and bookings from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $HOME/.config/tipengine/config.toml)")

	distributeCmd.Flags().Bool("dry-run", false, "Do not store the run")
	distributeCmd.Flags().Bool("json", false, "Print the run as JSON")
	runsCmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 for all)")
	showCmd.Flags().Bool("allocations", false, "Also print every tip's allocation")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(distributeCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

// =============================================================================
// SETUP
// =============================================================================

// app is everything a command needs. close releases the store.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *sqlite.Store
	handler *api.Handler
}

func setup() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg, os.Stderr)

	engineCfg, err := cfg.Engine()
	if err != nil {
		return nil, err
	}

	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		handler: api.NewHandler(store, engineCfg, logger),
	}, nil
}

func (a *app) close() {
	a.store.Close()
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// =============================================================================
// COMMANDS
// =============================================================================

func runServe(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	var sched *api.DistributionScheduler
	if a.cfg.Scheduler.Enabled {
		interval, err := a.cfg.SchedulerInterval()
		if err != nil {
			return err
		}
		sched = api.NewDistributionScheduler(a.handler)
		sched.CheckInterval = interval
		sched.Start()
	}

	server := &http.Server{
		Addr:         a.cfg.Addr(),
		Handler:      api.NewRouter(a.handler, a.cfg.Server.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", "addr", server.Addr, "db", a.cfg.Database.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serveErr:
		if sched != nil {
			sched.Stop()
		}
		return fmt.Errorf("server failed: %w", err)
	}

	a.logger.Info("shutting down server")
	if sched != nil {
		sched.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	a.logger.Info("server stopped")
	return nil
}

func runDistribute(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dist, err := a.handler.Distribute(ctx, !dryRun)
	if err != nil {
		if errors.Is(err, generic.ErrReconciliation) {
			return fmt.Errorf("%w (nothing was stored)", err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(api.DistributionSummary(dist))
	}
	renderDistribution(out, api.DistributionSummary(dist), dryRun)
	return nil
}

func runRuns(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	runs, err := a.store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	renderRuns(cmd.OutOrStdout(), runs)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	withAllocations, _ := cmd.Flags().GetBool("allocations")
	id := generic.RunID(args[0])

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	run, err := a.store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	payroll, err := a.store.GetPayroll(ctx, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	renderDistribution(out, api.StoredSummary(*run, payroll), false)
	if withAllocations {
		records, err := a.store.GetAllocations(ctx, id)
		if err != nil {
			return err
		}
		renderAllocations(out, api.AllocationSummaries(records))
	}
	return nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		renderScenarios(out, api.Scenarios())
		return nil
	}

	in, ok := api.ScenarioInput(args[0])
	if !ok {
		return fmt.Errorf("%w: unknown scenario %q", generic.ErrInvalidInput, args[0])
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.Reset(cmd.Context()); err != nil {
		return err
	}
	if err := a.handler.LoadInput(cmd.Context(), in); err != nil {
		return err
	}
	fmt.Fprintln(out, successStyle.Render("loaded ")+args[0])
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	var bundle api.InputBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", generic.ErrInvalidInput, args[0], err)
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.handler.LoadInput(cmd.Context(), bundle.Input()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d shifts, %d transactions, %d bookings\n",
		successStyle.Render("imported"), len(bundle.Shifts), len(bundle.Transactions), len(bundle.Bookings))
	return nil
}
