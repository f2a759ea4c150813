// Package sqlite carries database transactions through context so that a
// service can group several repository calls into one unit of work.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opticorai/taskeval/internal/application/port"
)

type txContextKey struct{}

// Executor is the query surface shared by *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DB is the port.TransactionManager over a shared connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a transaction manager for sqlDB
func NewDB(sqlDB *sql.DB, logger *zap.Logger) *DB {
	return &DB{DB: sqlDB, logger: logger}
}

// WithTransaction runs fn with a transaction stored in its context. A call
// made while a transaction is already in ctx joins it instead of nesting, so
// only the outermost call commits.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if extractTx(ctx) != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	started := time.Now()

	defer func() {
		p := recover()
		if p == nil && err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("Transaction rollback failed", zap.Error(rbErr))
		}
		if p != nil {
			db.logger.Error("Transaction rolled back after panic", zap.Any("panic", p))
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txContextKey{}, tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	db.logger.Debug("Transaction committed", zap.Duration("elapsed", time.Since(started)))
	return nil
}

// ExecutorFrom returns the transaction in ctx, falling back to the pool
func ExecutorFrom(ctx context.Context, pool *sql.DB) Executor {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return pool
}

func extractTx(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txContextKey{}).(*sql.Tx)
	return tx
}

var _ port.TransactionManager = (*DB)(nil)
