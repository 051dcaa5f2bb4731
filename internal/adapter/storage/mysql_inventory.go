package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/rl1809/storefront/internal/core/domain"
)

const itemColumns = `id, store_id, name, price, description, quantity, created_at`

func (m *MySQLAdapter) CreateStore(ctx context.Context, store domain.Store) (domain.Store, error) {
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO stores (name, description, created_at) VALUES (?, ?, ?)`,
		store.Name, store.Description, store.CreatedAt,
	)
	if err != nil {
		return domain.Store{}, fmt.Errorf("insert store: %w", err)
	}

	store.ID, err = result.LastInsertId()
	if err != nil {
		return domain.Store{}, fmt.Errorf("store id: %w", err)
	}
	return store, nil
}

func (m *MySQLAdapter) GetStore(ctx context.Context, id int64) (domain.Store, error) {
	return getStore(ctx, m.db, id, "")
}

func (m *MySQLAdapter) UpdateStore(ctx context.Context, id int64, patch domain.StorePatch) (domain.Store, error) {
	var store domain.Store
	err := m.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := getStore(ctx, tx, id, " FOR UPDATE")
		if err != nil {
			return err
		}

		store = current.Apply(patch)
		if _, err := tx.ExecContext(ctx, `UPDATE stores SET description = ? WHERE id = ?`, store.Description, id); err != nil {
			return fmt.Errorf("update store: %w", err)
		}
		return nil
	})
	return store, err
}

func (m *MySQLAdapter) CreateItem(ctx context.Context, item domain.Item) (domain.Item, error) {
	err := m.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := getStore(ctx, tx, item.StoreID, " LOCK IN SHARE MODE"); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO items (store_id, name, price, description, quantity, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			item.StoreID, item.Name, item.Price, item.Description, item.Quantity, item.CreatedAt,
		)
		if err != nil {
			if hasMySQLCode(err, mysqlErrNoReferenced) {
				return domain.ErrStoreNotFound
			}
			return fmt.Errorf("insert item: %w", err)
		}

		item.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("item id: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

func (m *MySQLAdapter) GetItem(ctx context.Context, id int64) (domain.Item, error) {
	return getItem(ctx, m.db, id, "")
}

func (m *MySQLAdapter) ListItems(ctx context.Context, query domain.ItemQuery) (domain.ItemPage, error) {
	query = query.Normalize()

	var (
		conds []string
		args  []interface{}
	)

	if query.StoreID != 0 {
		if _, err := m.GetStore(ctx, query.StoreID); err != nil {
			return domain.ItemPage{}, err
		}
		conds = append(conds, "store_id = ?")
		args = append(args, query.StoreID)
	}

	cmp, order := ">", "ASC"
	if query.Reverse {
		cmp, order = "<", "DESC"
	}

	if query.Cursor != "" {
		after, err := domain.DecodeCursor(query.Cursor)
		if err != nil {
			return domain.ItemPage{}, err
		}
		conds = append(conds, fmt.Sprintf("(created_at %s ? OR (created_at = ? AND id %s ?))", cmp, cmp))
		args = append(args, after.CreatedAt, after.CreatedAt, after.ID)
	}

	stmt := "SELECT " + itemColumns + " FROM items"
	if len(conds) > 0 {
		stmt += " WHERE " + strings.Join(conds, " AND ")
	}
	stmt += fmt.Sprintf(" ORDER BY created_at %s, id %s LIMIT ?", order, order)
	args = append(args, query.PageSize+1)

	items := []domain.Item{}
	if err := m.db.SelectContext(ctx, &items, stmt, args...); err != nil {
		return domain.ItemPage{}, fmt.Errorf("list items: %w", err)
	}

	page := domain.ItemPage{Items: items}
	if len(items) > query.PageSize {
		page.Items = items[:query.PageSize]
		page.HasMore = true
		page.NextCursor = domain.CursorAfter(page.Items[len(page.Items)-1]).Encode()
	}
	return page, nil
}

func (m *MySQLAdapter) UpdateItem(ctx context.Context, id int64, patch domain.ItemPatch) (domain.Item, error) {
	var item domain.Item
	err := m.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := getItem(ctx, tx, id, " FOR UPDATE")
		if err != nil {
			return err
		}

		item, err = current.Apply(patch)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE items SET price = ?, description = ?, quantity = ? WHERE id = ?`,
			item.Price, item.Description, item.Quantity, id,
		)
		if err != nil {
			return fmt.Errorf("update item: %w", err)
		}
		return nil
	})
	return item, err
}

// ConsumeItem locks the single item row, takes one unit and commits.
// Buyers of other items never wait on this lock.
func (m *MySQLAdapter) ConsumeItem(ctx context.Context, id int64) (domain.Item, error) {
	var item domain.Item
	err := m.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := getItem(ctx, tx, id, " FOR UPDATE")
		if err != nil {
			return err
		}

		if err := current.Consume(); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE items SET quantity = ? WHERE id = ?`,
			current.Quantity, id,
		)
		if err != nil {
			return fmt.Errorf("decrement quantity: %w", err)
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			return domain.ErrItemNotFound
		}

		item = current
		return nil
	})
	return item, err
}

func getStore(ctx context.Context, q sqlx.QueryerContext, id int64, lock string) (domain.Store, error) {
	var store domain.Store
	err := sqlx.GetContext(ctx, q, &store, `
		SELECT id, name, description, created_at FROM stores WHERE id = ?`+lock, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Store{}, domain.ErrStoreNotFound
	}
	if err != nil {
		return domain.Store{}, fmt.Errorf("query store: %w", err)
	}
	return store, nil
}

func getItem(ctx context.Context, q sqlx.QueryerContext, id int64, lock string) (domain.Item, error) {
	var item domain.Item
	err := sqlx.GetContext(ctx, q, &item, `
		SELECT `+itemColumns+` FROM items WHERE id = ?`+lock, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, domain.ErrItemNotFound
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("query item: %w", err)
	}
	return item, nil
}
