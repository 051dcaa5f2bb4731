package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/storefront/internal/core/domain"
)

const userColumns = `id, username, email, password_hash, is_admin, created_at`

func (m *MySQLAdapter) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		user.Username, user.Email, user.PasswordHash, user.IsAdmin, user.CreatedAt,
	)
	if err != nil {
		if hasMySQLCode(err, mysqlErrDuplicateEntry) {
			return domain.User{}, domain.ErrUserAlreadyExists
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}

	user.ID, err = result.LastInsertId()
	if err != nil {
		return domain.User{}, fmt.Errorf("user id: %w", err)
	}
	return user, nil
}

func (m *MySQLAdapter) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	return m.getUser(ctx, "id = ?", id)
}

func (m *MySQLAdapter) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return m.getUser(ctx, "username = ?", username)
}

func (m *MySQLAdapter) getUser(ctx context.Context, where string, arg interface{}) (domain.User, error) {
	var user domain.User
	err := m.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}
