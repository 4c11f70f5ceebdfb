// Package main is the operator CLI for medseq counters.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"medseq/internal/app"
	"medseq/internal/config"
	coreseq "medseq/internal/core/sequence"
	"medseq/internal/domain/auth"
	"medseq/pkg/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "seqctl",
		Short:         "Inspect and repair medseq identifier counters",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.AddCommand(migrateCmd())
	cmd.AddCommand(nextCmd())
	cmd.AddCommand(currentCmd())
	cmd.AddCommand(listCmd())
	cmd.AddCommand(resetCmd())
	cmd.AddCommand(syncCmd())
	cmd.AddCommand(fixAllCmd())
	cmd.AddCommand(tokenCmd())
	return cmd
}

// withApp loads configuration, wires the application and runs fn with a logger-carrying context.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := app.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.WithLogger(cmd.Context(), log.WithComponent("seqctl"))
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the counter table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Migrate(ctx); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Counter table is up to date.")
				return nil
			})
		},
	}
}

func nextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next NAME",
		Short: "Allocate the next value of a counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, _ := cmd.Flags().GetString("format")
			padding, _ := cmd.Flags().GetInt("padding")

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				alloc, err := a.Service.GetNextValue(ctx, args[0], coreseq.Format{Prefix: prefix, Padding: padding})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", alloc.FormattedID, alloc.Value)
				return nil
			})
		},
	}
	cmd.Flags().String("format", "", "Identifier prefix, e.g. PAT")
	cmd.Flags().Int("padding", coreseq.DefaultPadding, "Minimum digit width")
	return cmd
}

func currentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current NAME",
		Short: "Print the current value of a counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				fmt.Fprintln(cmd.OutOrStdout(), a.Service.GetCurrentValue(ctx, args[0]))
				return nil
			})
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				counters, err := a.Service.ListCounters(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tVALUE\tUPDATED AT")
				for _, c := range counters {
					fmt.Fprintf(w, "%s\t%d\t%s\n", c.Name, c.Value, c.UpdatedAt.Format(time.RFC3339))
				}
				return w.Flush()
			})
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset NAME VALUE",
		Short: "Set a counter to an explicit value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[1], err)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				v, err := a.Service.ResetCounter(ctx, args[0], value)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s reset to %d\n", args[0], v)
				return nil
			})
		},
	}
}

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync NAME",
		Short: "Overwrite a counter with the highest identifier in a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, _ := cmd.Flags().GetString("collection")
			field, _ := cmd.Flags().GetString("field")
			prefix, _ := cmd.Flags().GetString("prefix")
			if collection == "" || field == "" {
				return fmt.Errorf("--collection and --field are required")
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				v, err := a.Service.SyncWithCollection(ctx, args[0], collection, field, prefix)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s synced to %d\n", args[0], v)
				return nil
			})
		},
	}
	cmd.Flags().String("collection", "", "Table holding the records")
	cmd.Flags().String("field", "", "Column holding the identifiers")
	cmd.Flags().String("prefix", "", "Identifier prefix; empty for plain numeric columns")
	return cmd
}

func fixAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix-all",
		Short: "Reconcile every registered counter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ratchet, _ := cmd.Flags().GetBool("ratchet")
			mode := coreseq.ModeOverwrite
			if ratchet {
				mode = coreseq.ModeRatchet
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				outcomes := a.Service.FixAllCountersWithMode(ctx, mode)
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(outcomes)
			})
		},
	}
	cmd.Flags().Bool("ratchet", false, "Never move a counter backwards")
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if subject == "" {
				return fmt.Errorf("--subject is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			svc := auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret, cfg.JWTIssuer))
			token, expiresAt, err := svc.GenerateAccessToken(subject, []string{auth.RoleSequenceAdmin}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().String("subject", "", "Operator identity recorded in the token")
	cmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	return cmd
}
