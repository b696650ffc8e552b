package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/config"
)

const pingTimeout = 5 * time.Second

// Module registers the database connections with Fx.
var Module = fx.Provide(New)

// Connections holds the pool used for writes and the one used for reads.
// Reader is the same pool as Writer unless a separate reader DSN is set.
type Connections struct {
	Writer *bun.DB
	Reader *bun.DB
}

// New opens the configured pools. They are pinged on start and closed on stop.
func New(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*Connections, error) {
	db := cfg.Database
	dialect, err := dialectFor(db.Driver)
	if err != nil {
		return nil, err
	}
	hook := queryLogger{logger: logger}

	writer, err := open(db, db.WriterDSN, dialect, hook)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	if db.Driver == "sqlite" {
		// one writer at a time
		writer.SetMaxOpenConns(1)
	}

	conns := &Connections{Writer: writer, Reader: writer}
	if db.ReaderDSN != "" && db.ReaderDSN != db.WriterDSN {
		if conns.Reader, err = open(db, db.ReaderDSN, dialect, hook); err != nil {
			_ = writer.Close()
			return nil, fmt.Errorf("open reader: %w", err)
		}
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := conns.Ping(ctx); err != nil {
				return fmt.Errorf("ping database: %w", err)
			}
			logger.Info("database connected",
				zap.String("driver", db.Driver),
				zap.Bool("split_reader", conns.split()),
			)
			return nil
		},
		OnStop: func(context.Context) error {
			return conns.Close()
		},
	})
	return conns, nil
}

// Ping checks every distinct pool.
func (c *Connections) Ping(ctx context.Context) error {
	if err := ping(ctx, c.Writer); err != nil {
		return fmt.Errorf("writer: %w", err)
	}
	if c.split() {
		if err := ping(ctx, c.Reader); err != nil {
			return fmt.Errorf("reader: %w", err)
		}
	}
	return nil
}

// Close releases every distinct pool.
func (c *Connections) Close() error {
	err := c.Writer.Close()
	if c.split() {
		err = errors.Join(err, c.Reader.Close())
	}
	return err
}

func (c *Connections) split() bool {
	return c.Reader != c.Writer
}

func open(cfg config.Database, dsn string, dialect schema.Dialect, hook bun.QueryHook) (*bun.DB, error) {
	if dsn == "" {
		return nil, errors.New("empty DSN")
	}

	var (
		sqldb *sql.DB
		err   error
	)
	switch cfg.Driver {
	case "postgres":
		sqldb = sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	case "pgx":
		sqldb, err = sql.Open("pgx", dsn)
	case "mysql":
		sqldb, err = sql.Open("mysql", dsn)
	case "sqlite":
		sqldb, err = sql.Open(sqliteshim.ShimName, dsn)
	}
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxConnLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}

	db := bun.NewDB(sqldb, dialect)
	db.AddQueryHook(hook)
	return db, nil
}

func dialectFor(driver string) (schema.Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return pgdialect.New(), nil
	case "mysql":
		return mysqldialect.New(), nil
	case "sqlite":
		return sqlitedialect.New(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func ping(ctx context.Context, db *bun.DB) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return db.PingContext(ctx)
}

// queryLogger reports failed queries at warn and everything else at debug.
type queryLogger struct {
	logger *zap.Logger
}

func (q queryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (q queryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if q.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("operation", event.Operation()),
		zap.String("query", event.Query),
		zap.Duration("elapsed", time.Since(event.StartTime)),
	}
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		q.logger.Warn("query failed", append(fields, zap.Error(event.Err))...)
		return
	}
	q.logger.Debug("query", fields...)
}
