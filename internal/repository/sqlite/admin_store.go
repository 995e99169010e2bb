package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/spec-kit/customer-ledger/internal/domain"
	"github.com/spec-kit/customer-ledger/internal/repository"
)

type adminRow struct {
	ID           int64  `db:"id"`
	AdminID      string `db:"admin_id"`
	Name         string `db:"name"`
	Phone        string `db:"phone"`
	PasswordHash string `db:"password_hash"`
	Role         string `db:"role"`
	CreatedAt    int64  `db:"created_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

func (r adminRow) toDomain() *domain.Admin {
	return &domain.Admin{
		ID:           formatRowID(r.ID),
		AdminID:      r.AdminID,
		Name:         r.Name,
		Phone:        r.Phone,
		PasswordHash: r.PasswordHash,
		Role:         domain.Role(r.Role),
		CreatedAt:    time.Unix(0, r.CreatedAt).UTC(),
		UpdatedAt:    time.Unix(0, r.UpdatedAt).UTC(),
	}
}

const adminColumns = `id, admin_id, name, phone, password_hash, role, created_at, updated_at`

// AdminStore is the SQLite admin repository.
type AdminStore struct {
	db *sqlx.DB
}

var _ repository.AdminRepository = (*AdminStore)(nil)

// NewAdminStore wraps an opened database.
func NewAdminStore(db *sqlx.DB) *AdminStore {
	return &AdminStore{db: db}
}

func (s *AdminStore) Create(ctx context.Context, admin *domain.Admin, promoteFirst bool) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if promoteFirst {
		var count int
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM admins`); err != nil {
			return err
		}
		if count == 0 {
			admin.Role = domain.RoleSuperadmin
		}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO admins (admin_id, name, phone, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		admin.AdminID, admin.Name, admin.Phone, admin.PasswordHash, string(admin.Role),
		admin.CreatedAt.UnixNano(), admin.UpdatedAt.UnixNano(),
	)
	if err != nil {
		switch {
		case uniqueViolation(err, "admins.admin_id"):
			return repository.ErrAdminIDTaken
		case uniqueViolation(err, "admins.phone"):
			return repository.ErrPhoneTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	admin.ID = formatRowID(id)
	return nil
}

func (s *AdminStore) GetByAdminID(ctx context.Context, adminID string) (*domain.Admin, error) {
	return s.getOne(ctx, `SELECT `+adminColumns+` FROM admins WHERE admin_id = ?`, adminID)
}

func (s *AdminStore) GetByPhone(ctx context.Context, phone string) (*domain.Admin, error) {
	return s.getOne(ctx, `SELECT `+adminColumns+` FROM admins WHERE phone = ?`, phone)
}

func (s *AdminStore) UpdatePassword(ctx context.Context, adminID, passwordHash string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE admins SET password_hash = ?, updated_at = ? WHERE admin_id = ?`,
		passwordHash, at.UnixNano(), adminID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *AdminStore) List(ctx context.Context, filter repository.AdminFilter) ([]domain.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins`
	args := []any{}
	if filter.ExcludeRole != nil {
		query += ` WHERE role <> ?`
		args = append(args, string(*filter.ExcludeRole))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var rows []adminRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	result := make([]domain.Admin, 0, len(rows))
	for _, row := range rows {
		result = append(result, *row.toDomain())
	}
	return result, nil
}

func (s *AdminStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM admins`); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *AdminStore) getOne(ctx context.Context, query string, arg any) (*domain.Admin, error) {
	var row adminRow
	if err := s.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}
