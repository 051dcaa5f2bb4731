package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

const (
	maxTxRetries = 3

	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
	mysqlErrNoReferenced    = 1452
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS stores (
		id          BIGINT AUTO_INCREMENT PRIMARY KEY,
		name        VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		created_at  DATETIME(6) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id          BIGINT AUTO_INCREMENT PRIMARY KEY,
		store_id    BIGINT NOT NULL,
		name        VARCHAR(255) NOT NULL,
		price       DECIMAL(12,2) NOT NULL,
		description TEXT NOT NULL,
		quantity    INT NOT NULL,
		created_at  DATETIME(6) NOT NULL,
		KEY idx_items_created (created_at, id),
		KEY idx_items_store_created (store_id, created_at, id),
		CONSTRAINT fk_items_store FOREIGN KEY (store_id) REFERENCES stores (id),
		CONSTRAINT chk_items_quantity CHECK (quantity >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT AUTO_INCREMENT PRIMARY KEY,
		username      VARCHAR(64) NOT NULL UNIQUE,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		is_admin      BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    DATETIME(6) NOT NULL
	)`,
}

// MySQLAdapter stores stores, items and users.
type MySQLAdapter struct {
	db *sqlx.DB
}

func NewMySQLAdapter(db *sqlx.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range mysqlSchema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// withTx runs fn in a transaction, retrying the whole unit on deadlock or lock wait timeout.
func (m *MySQLAdapter) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	op := func() error {
		tx, err := m.db.BeginTxx(ctx, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("begin tx: %w", err))
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			if isRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		if err := tx.Commit(); err != nil {
			if isRetryable(err) {
				return err
			}
			return backoff.Permanent(fmt.Errorf("commit: %w", err))
		}
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 10 * time.Millisecond
	eb.MaxInterval = 200 * time.Millisecond

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(eb, maxTxRetries), ctx))
}

func isRetryable(err error) bool {
	return hasMySQLCode(err, mysqlErrDeadlock) || hasMySQLCode(err, mysqlErrLockWaitTimeout)
}

func hasMySQLCode(err error, code uint16) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == code
}
