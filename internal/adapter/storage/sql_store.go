package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rl1809/stockdesk/internal/core/domain"
	"github.com/rl1809/stockdesk/internal/port"
)

// SQLStore implements the inventory, request and user repositories on any
// database/sql driver that accepts ? placeholders.
type SQLStore struct {
	db     *sql.DB
	schema []string
}

var (
	_ port.InventoryRepository = (*SQLStore)(nil)
	_ port.RequestRepository   = (*SQLStore)(nil)
	_ port.UserRepository      = (*SQLStore)(nil)
)

func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Migrate creates the tables when they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

const itemColumns = `id, name, quantity, COALESCE(description, '')`

func scanItems(rows *sql.Rows) ([]domain.InventoryItem, error) {
	defer rows.Close()
	items := []domain.InventoryItem{}
	for rows.Next() {
		var item domain.InventoryItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Quantity, &item.Description); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLStore) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM inventory WHERE is_deleted = 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return scanItems(rows)
}

func (s *SQLStore) ListAvailableItems(ctx context.Context) ([]domain.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM inventory WHERE is_deleted = 0 AND quantity > 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query available inventory: %w", err)
	}
	return scanItems(rows)
}

func (s *SQLStore) getItem(ctx context.Context, query string, arg any) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&item.ID, &item.Name, &item.Quantity, &item.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return &item, nil
}

// GetItem returns nil when no item has the id. Soft-deleted items are found.
func (s *SQLStore) GetItem(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	return s.getItem(ctx, `SELECT `+itemColumns+` FROM inventory WHERE id = ?`, id)
}

func (s *SQLStore) FindItemByName(ctx context.Context, name string) (*domain.InventoryItem, error) {
	return s.getItem(ctx, `SELECT `+itemColumns+` FROM inventory WHERE name = ?`, name)
}

func (s *SQLStore) CreateItem(ctx context.Context, draft domain.InventoryDraft) (domain.InventoryItem, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory (name, quantity, description, is_deleted)
		VALUES (?, ?, ?, 0)`,
		draft.Name, draft.Quantity, draft.Description,
	)
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("insert item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("insert item: %w", err)
	}
	return domain.InventoryItem{ID: id, Name: draft.Name, Quantity: draft.Quantity, Description: draft.Description}, nil
}

func (s *SQLStore) UpdateItem(ctx context.Context, item domain.InventoryItem) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE inventory
		SET name = ?, quantity = ?, description = ?
		WHERE id = ?`,
		item.Name, item.Quantity, item.Description, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func (s *SQLStore) SoftDeleteItem(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE inventory SET is_deleted = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("soft delete item: %w", err)
	}
	return expectRow(result, id)
}

func (s *SQLStore) DeleteItem(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM inventory WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return expectRow(result, id)
}

// expectRow treats zero affected rows as a missing id.
func expectRow(result sql.Result, id int64) error {
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

const requestSelect = `
	SELECT r.id, r.inventory_id, r.quantity, r.status, r.user_id, COALESCE(i.name, '')
	FROM requests r
	LEFT JOIN inventory i ON i.id = r.inventory_id`

func scanRequest(scan func(dest ...any) error) (domain.RequestRecord, error) {
	var rec domain.RequestRecord
	err := scan(&rec.ID, &rec.InventoryID, &rec.Quantity, &rec.Status, &rec.UserID, &rec.Inventory.Name)
	return rec, err
}

func (s *SQLStore) CreateRequest(ctx context.Context, userID string, draft domain.RequestDraft) (domain.RequestRecord, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO requests (inventory_id, user_id, quantity, status)
		VALUES (?, ?, ?, ?)`,
		draft.InventoryID, userID, draft.Quantity, domain.RequestStatusPending,
	)
	if err != nil {
		return domain.RequestRecord{}, fmt.Errorf("insert request: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return domain.RequestRecord{}, fmt.Errorf("insert request: %w", err)
	}

	rec, err := s.GetRequest(ctx, id)
	if err != nil {
		return domain.RequestRecord{}, err
	}
	if rec == nil {
		return domain.RequestRecord{}, fmt.Errorf("request %d vanished after insert", id)
	}
	return *rec, nil
}

func (s *SQLStore) GetRequest(ctx context.Context, id int64) (*domain.RequestRecord, error) {
	rec, err := scanRequest(s.db.QueryRowContext(ctx, requestSelect+` WHERE r.id = ?`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query request: %w", err)
	}
	return &rec, nil
}

func (s *SQLStore) ListRequests(ctx context.Context, filter port.RequestFilter) ([]domain.RequestRecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		where = append(where, "r.user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "r.status = ?")
		args = append(args, filter.Status)
	}
	if filter.NotPending {
		where = append(where, "r.status <> ?")
		args = append(args, domain.RequestStatusPending)
	}

	query := requestSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	records := []domain.RequestRecord{}
	for rows.Next() {
		rec, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLStore) CountByItem(ctx context.Context, inventoryID int64) (total, pending int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM requests WHERE inventory_id = ?`,
		domain.RequestStatusPending, inventoryID,
	).Scan(&total, &pending)
	if err != nil {
		return 0, 0, fmt.Errorf("count requests: %w", err)
	}
	return total, pending, nil
}

func (s *SQLStore) TransitionPending(ctx context.Context, id int64, target domain.RequestStatus) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE requests SET status = ?
		WHERE id = ? AND status = ?`,
		target, id, domain.RequestStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("update request: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return false, nil
	}

	if target == domain.RequestStatusApproved {
		var inventoryID int64
		var quantity int
		err := tx.QueryRowContext(ctx, `SELECT inventory_id, quantity FROM requests WHERE id = ?`, id).
			Scan(&inventoryID, &quantity)
		if err != nil {
			return false, fmt.Errorf("query request: %w", err)
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE inventory
			SET quantity = quantity - ?
			WHERE id = ? AND quantity >= ?`,
			quantity, inventoryID, quantity,
		)
		if err != nil {
			return false, fmt.Errorf("update inventory: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return false, domain.ErrInsufficientStock
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func (s *SQLStore) DeletePending(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM requests WHERE id = ? AND status = ?`, id, domain.RequestStatusPending)
	if err != nil {
		return false, fmt.Errorf("delete request: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, email, role, password_hash)
		VALUES (?, ?, ?, ?)`,
		user.Username, user.Email, user.Role, user.PasswordHash,
	)
	if err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	if user.ID, err = result.LastInsertId(); err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *SQLStore) FindUser(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, role, password_hash
		FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}
