package migration

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/config"
	"github.com/Additional-Code/servicedesk/internal/database"
)

// Module provides the migrator to Fx.
var Module = fx.Provide(New)

//go:embed sql
var scripts embed.FS

// Migrator applies the embedded schema for the configured driver. Each
// driver has its own directory under sql/ named after the goose dialect.
type Migrator struct {
	provider *goose.Provider
	logger   *zap.Logger
}

// Step is one applied or rolled back script.
type Step struct {
	Version int64
	Script  string
	Applied bool
}

// New binds a goose provider to the writer pool.
func New(cfg config.Config, conns *database.Connections, logger *zap.Logger) (*Migrator, error) {
	dialect, err := dialectFor(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	dir, err := fs.Sub(scripts, "sql/"+string(dialect))
	if err != nil {
		return nil, err
	}

	provider, err := goose.NewProvider(dialect, conns.Writer.DB, dir)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Migrator{provider: provider, logger: logger}, nil
}

// Up applies every pending script.
func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		m.logger.Info("schema up to date")
		return nil
	}
	m.report("migration applied", results)
	return nil
}

// Down rolls back the given number of scripts, or every script when all is set.
// Fewer than one step means one.
func (m *Migrator) Down(ctx context.Context, steps int, all bool) error {
	if all {
		results, err := m.provider.DownTo(ctx, 0)
		if err != nil {
			return err
		}
		m.report("migration rolled back", results)
		return nil
	}

	for i := 0; i < max(steps, 1); i++ {
		result, err := m.provider.Down(ctx)
		if errors.Is(err, goose.ErrNoNextVersion) {
			m.logger.Info("nothing left to roll back")
			return nil
		}
		if err != nil {
			return err
		}
		m.report("migration rolled back", []*goose.MigrationResult{result})
	}
	return nil
}

// Status lists every known script and whether it is applied.
func (m *Migrator) Status(ctx context.Context) ([]Step, error) {
	status, err := m.provider.Status(ctx)
	if err != nil {
		return nil, err
	}
	steps := make([]Step, 0, len(status))
	for _, s := range status {
		steps = append(steps, Step{
			Version: s.Source.Version,
			Script:  s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return steps, nil
}

// Version reports the highest applied script version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	return m.provider.GetDBVersion(ctx)
}

func (m *Migrator) report(msg string, results []*goose.MigrationResult) {
	for _, r := range results {
		m.logger.Info(msg,
			zap.Int64("version", r.Source.Version),
			zap.String("script", r.Source.Path),
			zap.Duration("elapsed", r.Duration),
		)
	}
}

func dialectFor(driver string) (goose.Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return goose.DialectPostgres, nil
	case "mysql":
		return goose.DialectMySQL, nil
	case "sqlite":
		return goose.DialectSQLite3, nil
	default:
		return "", fmt.Errorf("no migrations for database driver %q", driver)
	}
}
