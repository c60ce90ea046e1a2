package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/MrxHuang/alexandriaBackend/internal/app"
	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
	"github.com/MrxHuang/alexandriaBackend/internal/infrastructure/config"
	"github.com/MrxHuang/alexandriaBackend/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "alexandria",
		Short:         "Library lending backend",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newAccountsCmd())
	return root
}

// bootstrap loads configuration, sets up logging and wires the application.
func bootstrap(ctx context.Context) (*app.App, *config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "alexandria",
	})
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, log, err
	}
	return a, cfg, log, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, cfg, log, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("port", cfg.Port).Str("store", cfg.Store.Driver).Str("cache", cfg.Cache.Backend).Msg("server starting")
				if err := a.Echo.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return a.Echo.Shutdown(shutdownCtx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema to the configured store and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Wiring the app applies migrations (SQLite) or indexes (Mongo).
			a, cfg, log, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(context.Background())
			log.Info().Str("store", cfg.Store.Driver).Msg("schema up to date")
			return nil
		},
	}
}

func newAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Administer accounts",
	}

	var search string
	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAccounts(cmd, func(ctx context.Context, accounts ports.AccountService) error {
				page, err := accounts.List(ctx, ports.AccountQuery{Search: search, Limit: ports.MaxPageSize})
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tHANDLE\tEMAIL\tROLE\tSTATUS")
				for _, a := range page.Items {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", a.ID, a.Handle, a.Email, a.Role, a.Status)
				}
				return w.Flush()
			})
		},
	}
	list.Flags().StringVar(&search, "search", "", "filter by name, handle or email")

	setRole := &cobra.Command{
		Use:   "set-role <handle> <role>",
		Short: "Change an account's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, ok := domain.ParseRole(args[1])
			if !ok {
				return fmt.Errorf("unknown role %q", args[1])
			}
			return updateByHandle(cmd, args[0], ports.AccountPatch{Role: &role})
		},
	}

	setStatus := &cobra.Command{
		Use:   "set-status <handle> <status>",
		Short: "Activate or deactivate an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, ok := domain.ParseStatus(args[1])
			if !ok {
				return fmt.Errorf("unknown status %q", args[1])
			}
			return updateByHandle(cmd, args[0], ports.AccountPatch{Status: &status})
		},
	}

	cmd.AddCommand(list, setRole, setStatus)
	return cmd
}

func updateByHandle(cmd *cobra.Command, handle string, patch ports.AccountPatch) error {
	return withAccounts(cmd, func(ctx context.Context, accounts ports.AccountService) error {
		a, err := accounts.FindByHandle(ctx, handle)
		if err != nil {
			return err
		}
		a, err = accounts.Update(ctx, a.ID, patch)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: role=%s status=%s\n", a.Handle, a.Role, a.Status)
		return nil
	})
}

func withAccounts(cmd *cobra.Command, fn func(context.Context, ports.AccountService) error) error {
	ctx := cmd.Context()
	a, _, _, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	return fn(ctx, a.Accounts)
}
