package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arcanalyse/encounter-builder/internal/app"
	"github.com/arcanalyse/encounter-builder/internal/config"
	"github.com/arcanalyse/encounter-builder/internal/domain"
	"github.com/arcanalyse/encounter-builder/internal/logger"
	"github.com/arcanalyse/encounter-builder/internal/mockapi"
	"github.com/arcanalyse/encounter-builder/pkg/query"
	"github.com/spf13/cobra"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "arcanalyse: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "arcanalyse",
		Short:         "Arcanalyse encounter builder client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newStatusCmd(), newLookupsCmd(), newXPCmd(), newMonitorCmd(), newMockCmd())
	return root
}

// bootstrap loads config and initializes the global logger writing to w.
func bootstrap(w io.Writer) (*config.Config, *logger.ZapLogger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.InitWriter(cfg, w)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func newStatusCmd() *cobra.Command {
	var (
		output  string
		apiBase string
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query the API health and version and print the builder header",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Logs go to stderr so stdout stays machine readable.
			cfg, log, err := bootstrap(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer logger.Close()

			if cmd.Flags().Changed("api-base") {
				cfg.APIBase = apiBase
			}

			st, err := app.NewStatus(cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := st.Close(); err != nil {
					logger.ErrorObj("query cache close failed", "error", err)
				}
			}()

			return st.Render(cmd.OutOrStdout(), st.Load(cmd.Context()), output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", app.FormatText, "output format: text, json or yaml")
	cmd.Flags().StringVar(&apiBase, "api-base", "", "override the configured API base address")
	return cmd
}

// withCatalog runs fn against a catalog view built from the loaded config.
func withCatalog(cmd *cobra.Command, apiBase string, fn func(*app.Catalog) error) error {
	cfg, log, err := bootstrap(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logger.Close()

	if cmd.Flags().Changed("api-base") {
		cfg.APIBase = apiBase
	}

	cat, err := app.NewCatalog(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := cat.Close(); err != nil {
			logger.ErrorObj("query cache close failed", "error", err)
		}
	}()
	return fn(cat)
}

func newLookupsCmd() *cobra.Command {
	var (
		output  string
		apiBase string
		page    query.Page
	)
	cmd := &cobra.Command{
		Use:       "lookups <table>",
		Short:     "List a lookup table (sizes, creature-types, alignments, ...)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: domain.LookupTables,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, apiBase, func(cat *app.Catalog) error {
				rows, err := cat.Lookups(cmd.Context(), args[0], page)
				if err != nil {
					return err
				}
				return app.RenderLookups(cmd.OutOrStdout(), rows, output)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", app.FormatText, "output format: text, json or yaml")
	cmd.Flags().StringVar(&apiBase, "api-base", "", "override the configured API base address")
	cmd.Flags().IntVar(&page.Limit, "limit", query.DefaultLimit, "page size (1-500)")
	cmd.Flags().IntVar(&page.Offset, "offset", 0, "rows to skip")
	return cmd
}

func newXPCmd() *cobra.Command {
	var (
		output  string
		apiBase string
	)
	cmd := &cobra.Command{
		Use:   "xp <cr>...",
		Short: "Sum the XP of monsters by challenge rating (e.g. 1/4 1/4 2)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, apiBase, func(cat *app.Catalog) error {
				xp, err := cat.EncounterXP(cmd.Context(), args)
				if err != nil {
					return err
				}
				return app.RenderEncounterXP(cmd.OutOrStdout(), xp, output)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", app.FormatText, "output format: text, json or yaml")
	cmd.Flags().StringVar(&apiBase, "api-base", "", "override the configured API base address")
	return cmd
}

func newMonitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Poll configured targets and publish status transitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap(os.Stdout)
			if err != nil {
				return err
			}
			defer logger.Close()

			logger.InfoObj("monitor starting", "config", cfg)

			mon, err := app.NewMonitor(cmd.Context(), cfg, log)
			if err != nil {
				logger.ErrorObj("failed to initialize monitor", "error", err)
				return err
			}
			if err := mon.Run(cmd.Context()); err != nil {
				return fmt.Errorf("monitor run: %w", err)
			}
			return nil
		},
	}
}

func newMockCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Serve canned health and version responses for local front-end work",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, _, err := bootstrap(os.Stdout); err != nil {
				return err
			}
			defer logger.Close()

			srv := &http.Server{
				Addr:              addr,
				Handler:           mockapi.New(mockapi.Options{Logging: true}),
				ReadHeaderTimeout: 5 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			logger.InfoObj("mock api listening", "addr", addr)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("mock api serve: %w", err)
			case <-cmd.Context().Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("mock api shutdown: %w", err)
			}
			logger.InfoObj("mock api stopped", "addr", addr)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8000", "listen address")
	return cmd
}
