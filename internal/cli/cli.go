package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Additional-Code/servicedesk/internal/app"
	"github.com/Additional-Code/servicedesk/internal/dto"
	"github.com/Additional-Code/servicedesk/internal/migration"
	"github.com/Additional-Code/servicedesk/internal/seeder"
	svc "github.com/Additional-Code/servicedesk/internal/service/serviceorder"
	"github.com/Additional-Code/servicedesk/internal/validation"
)

const shutdownGrace = 10 * time.Second

// NewRootCommand builds the root servicedesk CLI command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "servicedesk",
		Short: "Service order API and tooling",
	}

	root.AddCommand(newStartCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newWorkerCmd())

	return root
}

// Execute runs the servicedesk CLI.
// SIGINT/SIGTERM cancel the command context so long-running commands stop cleanly.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "start",
		Aliases: []string{"run"},
		Short:   "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), app.Module)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, mig *migration.Migrator) error {
				if err := mig.Up(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}

	var (
		steps int
		all   bool
	)
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, mig *migration.Migrator) error {
				if err := mig.Down(ctx, steps, all); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
				return nil
			})
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")
	downCmd.Flags().BoolVar(&all, "all", false, "Roll back every applied migration")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, mig *migration.Migrator) error {
				list, err := mig.Status(ctx)
				if err != nil {
					return err
				}
				for _, s := range list {
					state := "pending"
					if s.Applied {
						state = "applied"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-8s %05d %s\n", state, s.Version, filepath.Base(s.Script))
				}
				return nil
			})
		},
	}

	cmd.AddCommand(upCmd, downCmd, statusCmd)
	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(context.Context, *migration.Migrator) error) error {
	var mig *migration.Migrator
	opts := fx.Options(app.Core, migration.Module, fx.Populate(&mig))
	return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
		return fn(ctx, mig)
	})
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Run database seeders",
		RunE: func(cmd *cobra.Command, args []string) error {
			var seed *seeder.Seeder
			opts := fx.Options(app.Core, seeder.Module, fx.Populate(&seed))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				n, err := seed.ServiceOrders(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seed data applied (%d service orders)\n", n)
				return nil
			})
		},
	}
}

func newReportCmd() *cobra.Command {
	var (
		q      dto.ReportQuery
		output string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the service order report PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Normalize()
			if err := validation.New().Validate(&q); err != nil {
				return err
			}
			return renderDocument(cmd, output, func(ctx context.Context, s *svc.Service) (*svc.Document, error) {
				return s.ReportDocument(ctx, q)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&q.Status, "status", "", "Status filter (todos, aberto, em_andamento, finalizado)")
	flags.StringVar(&q.Search, "search", "", "Search in requester, unit, department, description or number")
	flags.StringVar(&q.Day, "dia", "", "Day of the opening date")
	flags.StringVar(&q.Month, "mes", "", "Month of the opening date")
	flags.StringVar(&q.Year, "ano", "", "Year of the opening date")
	flags.StringVar(&q.StartDate, "data-inicio", "", "Range start (YYYY-MM-DD); overrides dia/mes/ano")
	flags.StringVar(&q.EndDate, "data-fim", "", "Range end (YYYY-MM-DD); overrides dia/mes/ano")
	flags.StringVarP(&output, "output", "o", ".", "Output file or directory")

	orderCmd := &cobra.Command{
		Use:   "order [id]",
		Short: "Render a single service order PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid order id %q", args[0])
			}
			return renderDocument(cmd, output, func(ctx context.Context, s *svc.Service) (*svc.Document, error) {
				return s.OrderDocument(ctx, id)
			})
		},
	}
	cmd.AddCommand(orderCmd)

	return cmd
}

func renderDocument(cmd *cobra.Command, output string, render func(context.Context, *svc.Service) (*svc.Document, error)) error {
	var service *svc.Service
	opts := fx.Options(app.Core, fx.Populate(&service))
	return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
		doc, err := render(ctx, service)
		if err != nil {
			return err
		}
		path, err := writeDocument(output, doc)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	})
}

// writeDocument stores doc under output. A directory target keeps the
// document's own filename.
func writeDocument(output string, doc *svc.Document) (string, error) {
	path := output
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		path = filepath.Join(output, doc.Filename)
	}
	if err := os.WriteFile(path, doc.Content, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage background workers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run worker engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), app.Worker)
		},
	})
	return cmd
}

// serve runs the application until ctx is cancelled, then gives it
// shutdownGrace to stop.
func serve(ctx context.Context, opts fx.Option) error {
	application := fx.New(opts)
	if err := application.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return application.Stop(stopCtx)
}

func runWithApp(ctx context.Context, opts fx.Option, fn func(context.Context) error) error {
	application := fx.New(opts, fx.NopLogger)
	if err := application.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = application.Stop(stopCtx)
	}()
	return fn(ctx)
}
