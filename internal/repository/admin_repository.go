package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/customer-ledger/internal/domain"
)

type adminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository returns a Postgres-backed implementation.
func NewAdminRepository(pool *pgxpool.Pool) AdminRepository {
	return &adminRepository{pool: pool}
}

func (r *adminRepository) Create(ctx context.Context, admin *domain.Admin, promoteFirst bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if promoteFirst {
		if _, err := tx.Exec(ctx, `LOCK TABLE admins IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return err
		}
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM admins)`).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			admin.Role = domain.RoleSuperadmin
		}
	}

	const query = `
        INSERT INTO admins (admin_id, name, phone, password_hash, role, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id`

	if err := tx.QueryRow(ctx, query,
		admin.AdminID,
		admin.Name,
		admin.Phone,
		admin.PasswordHash,
		admin.Role,
		admin.CreatedAt,
		admin.UpdatedAt,
	).Scan(&admin.ID); err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if constraint == constraintAdminID {
				return ErrAdminIDTaken
			}
			return ErrPhoneTaken
		}
		return err
	}
	return tx.Commit(ctx)
}

func (r *adminRepository) GetByAdminID(ctx context.Context, adminID string) (*domain.Admin, error) {
	const query = `
        SELECT id, admin_id, name, phone, password_hash, role, created_at, updated_at
        FROM admins WHERE admin_id=$1`
	return r.fetchSingle(ctx, query, adminID)
}

func (r *adminRepository) GetByPhone(ctx context.Context, phone string) (*domain.Admin, error) {
	const query = `
        SELECT id, admin_id, name, phone, password_hash, role, created_at, updated_at
        FROM admins WHERE phone=$1`
	return r.fetchSingle(ctx, query, phone)
}

func (r *adminRepository) UpdatePassword(ctx context.Context, adminID, passwordHash string, at time.Time) error {
	const query = `
        UPDATE admins SET password_hash=$1, updated_at=$2
        WHERE admin_id=$3`

	cmd, err := r.pool.Exec(ctx, query, passwordHash, at, adminID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *adminRepository) List(ctx context.Context, filter AdminFilter) ([]domain.Admin, error) {
	query := `
        SELECT id, admin_id, name, phone, password_hash, role, created_at, updated_at
        FROM admins`
	args := []any{}
	if filter.ExcludeRole != nil {
		args = append(args, *filter.ExcludeRole)
		query += " WHERE role <> $1"
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Admin
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *admin)
	}
	return result, rows.Err()
}

func (r *adminRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *adminRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Admin, error) {
	admin, err := scanAdmin(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, notFound(err)
	}
	return admin, nil
}

func scanAdmin(row pgx.Row) (*domain.Admin, error) {
	var admin domain.Admin
	if err := row.Scan(
		&admin.ID,
		&admin.AdminID,
		&admin.Name,
		&admin.Phone,
		&admin.PasswordHash,
		&admin.Role,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &admin, nil
}
