package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/spec-kit/customer-ledger/internal/domain"
	"github.com/spec-kit/customer-ledger/internal/repository"
)

type customerRow struct {
	ID             string         `db:"id"`
	Name           string         `db:"name"`
	Phone          string         `db:"phone"`
	NameKey        string         `db:"name_key"`
	PhoneKey       string         `db:"phone_key"`
	Address        string         `db:"address"`
	VisitCount     int            `db:"visit_count"`
	OwnerAdminID   string         `db:"owner_admin_id"`
	LastModifiedBy sql.NullString `db:"last_modified_by"`
	FollowUpDate   sql.NullString `db:"follow_up_date"`
	CreatedAt      int64          `db:"created_at"`
	UpdatedAt      int64          `db:"updated_at"`
}

func (r customerRow) toDomain() *domain.Customer {
	c := &domain.Customer{
		ID:           r.ID,
		Name:         r.Name,
		Phone:        r.Phone,
		NameKey:      r.NameKey,
		PhoneKey:     r.PhoneKey,
		Address:      r.Address,
		VisitCount:   r.VisitCount,
		OwnerAdminID: r.OwnerAdminID,
		CreatedAt:    time.Unix(0, r.CreatedAt).UTC(),
		UpdatedAt:    time.Unix(0, r.UpdatedAt).UTC(),
	}
	if r.LastModifiedBy.Valid {
		v := r.LastModifiedBy.String
		c.LastModifiedBy = &v
	}
	if r.FollowUpDate.Valid {
		v := r.FollowUpDate.String
		c.FollowUpDate = &v
	}
	return c
}

const customerColumns = `id, name, phone, name_key, phone_key, address, visit_count,
	owner_admin_id, last_modified_by, follow_up_date, created_at, updated_at`

// CustomerStore is the SQLite customer repository. The UNIQUE (name_key,
// phone_key) constraint backs the at-most-one-record-per-key invariant.
type CustomerStore struct {
	db *sqlx.DB
}

var _ repository.CustomerRepository = (*CustomerStore)(nil)

// NewCustomerStore wraps an opened database.
func NewCustomerStore(db *sqlx.DB) *CustomerStore {
	return &CustomerStore{db: db}
}

func (s *CustomerStore) FindOne(ctx context.Context, filter repository.CustomerFilter) (*domain.Customer, error) {
	where, args := customerWhere(filter)
	return s.getOne(ctx, `SELECT `+customerColumns+` FROM customers`+where+` ORDER BY updated_at DESC LIMIT 1`, args...)
}

func (s *CustomerStore) Find(ctx context.Context, filter repository.CustomerFilter) ([]domain.Customer, error) {
	where, args := customerWhere(filter)
	var rows []customerRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+customerColumns+` FROM customers`+where+` ORDER BY updated_at DESC, created_at DESC`, args...); err != nil {
		return nil, err
	}
	result := make([]domain.Customer, 0, len(rows))
	for _, row := range rows {
		result = append(result, *row.toDomain())
	}
	return result, nil
}

func (s *CustomerStore) Insert(ctx context.Context, c *domain.Customer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, name_key, phone_key, address, visit_count,
			owner_admin_id, last_modified_by, follow_up_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Phone, c.NameKey, c.PhoneKey, c.Address, c.VisitCount,
		c.OwnerAdminID, nullString(c.LastModifiedBy), nullString(c.FollowUpDate),
		c.CreatedAt.UnixNano(), c.UpdatedAt.UnixNano(),
	)
	if uniqueViolation(err, "") {
		return repository.ErrDuplicateKey
	}
	return err
}

func (s *CustomerStore) UpdateOne(ctx context.Context, id string, patch repository.CustomerPatch) (*domain.Customer, error) {
	customer, err := s.getOne(ctx, `
		UPDATE customers SET
			name = COALESCE(?, name),
			phone = COALESCE(?, phone),
			name_key = COALESCE(?, name_key),
			phone_key = COALESCE(?, phone_key),
			address = COALESCE(?, address),
			follow_up_date = COALESCE(?, follow_up_date),
			last_modified_by = COALESCE(?, last_modified_by),
			updated_at = ?
		WHERE id = ?
		RETURNING `+customerColumns,
		nullString(patch.Name), nullString(patch.Phone), nullString(patch.NameKey), nullString(patch.PhoneKey),
		nullString(patch.Address), nullString(patch.FollowUpDate), nullString(patch.LastModifiedBy),
		patch.UpdatedAt.UnixNano(), id,
	)
	if uniqueViolation(err, "") {
		return nil, repository.ErrDuplicateKey
	}
	return customer, err
}

func (s *CustomerStore) MergeVisit(ctx context.Context, nameKey, phoneKey string, merge repository.VisitMerge) (*domain.Customer, error) {
	return s.getOne(ctx, `
		UPDATE customers SET
			visit_count = visit_count + 1,
			address = ?,
			follow_up_date = COALESCE(?, follow_up_date),
			last_modified_by = ?,
			updated_at = ?
		WHERE name_key = ? AND phone_key = ?
		RETURNING `+customerColumns,
		merge.Address, nullString(merge.FollowUpDate), merge.ModifiedBy, merge.At.UnixNano(), nameKey, phoneKey,
	)
}

func (s *CustomerStore) AdjustVisits(ctx context.Context, id string, delta int, at time.Time) (*domain.Customer, error) {
	customer, err := s.getOne(ctx, `
		UPDATE customers SET visit_count = visit_count + ?, updated_at = ?
		WHERE id = ? AND visit_count + ? >= 1
		RETURNING `+customerColumns,
		delta, at.UnixNano(), id, delta,
	)
	if !errors.Is(err, repository.ErrNotFound) {
		return customer, err
	}
	var exists int
	if err := s.db.GetContext(ctx, &exists, `SELECT COUNT(*) FROM customers WHERE id = ?`, id); err != nil {
		return nil, err
	}
	if exists > 0 {
		return nil, repository.ErrVisitFloor
	}
	return nil, repository.ErrNotFound
}

func (s *CustomerStore) DeleteOne(ctx context.Context, id string) (*domain.Customer, error) {
	return s.getOne(ctx, `DELETE FROM customers WHERE id = ? RETURNING `+customerColumns, id)
}

func (s *CustomerStore) Count(ctx context.Context, filter repository.CustomerFilter) (int, error) {
	where, args := customerWhere(filter)
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM customers`+where, args...); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *CustomerStore) CountByOwner(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Owner string `db:"owner_admin_id"`
		Count int    `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT owner_admin_id, COUNT(*) AS n FROM customers GROUP BY owner_admin_id`); err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Owner] = row.Count
	}
	return counts, nil
}

func (s *CustomerStore) getOne(ctx context.Context, query string, args ...any) (*domain.Customer, error) {
	var row customerRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func customerWhere(filter repository.CustomerFilter) (string, []any) {
	args := []any{}
	clauses := []string{}
	if filter.ID != nil {
		clauses = append(clauses, "id = ?")
		args = append(args, *filter.ID)
	}
	if filter.OwnerAdminID != nil {
		clauses = append(clauses, "owner_admin_id = ?")
		args = append(args, *filter.OwnerAdminID)
	}
	if filter.NameKey != nil {
		clauses = append(clauses, "name_key = ?")
		args = append(args, *filter.NameKey)
	}
	if filter.PhoneKey != nil {
		clauses = append(clauses, "phone_key = ?")
		args = append(args, *filter.PhoneKey)
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func formatRowID(id int64) string {
	return strconv.FormatInt(id, 10)
}
