package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/customer-ledger/internal/domain"
)

const customerColumns = `id, name, phone, name_key, phone_key, address, visit_count,
               owner_admin_id, last_modified_by, follow_up_date, created_at, updated_at`

type customerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository instantiates the Postgres customer store.
func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepository{pool: pool}
}

func (r *customerRepository) FindOne(ctx context.Context, filter CustomerFilter) (*domain.Customer, error) {
	where, args := customerWhere(filter)
	query := "SELECT " + customerColumns + " FROM customers" + where + " ORDER BY updated_at DESC LIMIT 1"
	customer, err := scanCustomer(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return customer, nil
}

func (r *customerRepository) Find(ctx context.Context, filter CustomerFilter) ([]domain.Customer, error) {
	where, args := customerWhere(filter)
	query := "SELECT " + customerColumns + " FROM customers" + where + " ORDER BY updated_at DESC, created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Customer{}
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *customer)
	}
	return result, rows.Err()
}

func (r *customerRepository) Insert(ctx context.Context, c *domain.Customer) error {
	const query = `
        INSERT INTO customers (id, name, phone, name_key, phone_key, address, visit_count,
            owner_admin_id, last_modified_by, follow_up_date, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`

	_, err := r.pool.Exec(ctx, query,
		c.ID,
		c.Name,
		c.Phone,
		c.NameKey,
		c.PhoneKey,
		c.Address,
		c.VisitCount,
		c.OwnerAdminID,
		c.LastModifiedBy,
		c.FollowUpDate,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if _, ok := uniqueViolation(err); ok {
		return ErrDuplicateKey
	}
	return err
}

func (r *customerRepository) UpdateOne(ctx context.Context, id string, patch CustomerPatch) (*domain.Customer, error) {
	query := `
        UPDATE customers SET
            name = COALESCE($1, name),
            phone = COALESCE($2, phone),
            name_key = COALESCE($3, name_key),
            phone_key = COALESCE($4, phone_key),
            address = COALESCE($5, address),
            follow_up_date = COALESCE($6, follow_up_date),
            last_modified_by = COALESCE($7, last_modified_by),
            updated_at = $8
        WHERE id = $9
        RETURNING ` + customerColumns

	customer, err := scanCustomer(r.pool.QueryRow(ctx, query,
		patch.Name,
		patch.Phone,
		patch.NameKey,
		patch.PhoneKey,
		patch.Address,
		patch.FollowUpDate,
		patch.LastModifiedBy,
		patch.UpdatedAt,
		id,
	))
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return nil, ErrDuplicateKey
		}
		return nil, notFound(err)
	}
	return customer, nil
}

func (r *customerRepository) MergeVisit(ctx context.Context, nameKey, phoneKey string, merge VisitMerge) (*domain.Customer, error) {
	query := `
        UPDATE customers SET
            visit_count = visit_count + 1,
            address = $1,
            follow_up_date = COALESCE($2, follow_up_date),
            last_modified_by = $3,
            updated_at = $4
        WHERE name_key = $5 AND phone_key = $6
        RETURNING ` + customerColumns

	customer, err := scanCustomer(r.pool.QueryRow(ctx, query,
		merge.Address,
		merge.FollowUpDate,
		merge.ModifiedBy,
		merge.At,
		nameKey,
		phoneKey,
	))
	if err != nil {
		return nil, notFound(err)
	}
	return customer, nil
}

func (r *customerRepository) AdjustVisits(ctx context.Context, id string, delta int, at time.Time) (*domain.Customer, error) {
	query := `
        UPDATE customers SET visit_count = visit_count + $1, updated_at = $2
        WHERE id = $3 AND visit_count + $1 >= 1
        RETURNING ` + customerColumns

	customer, err := scanCustomer(r.pool.QueryRow(ctx, query, delta, at, id))
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrVisitFloor
	}
	return nil, ErrNotFound
}

func (r *customerRepository) DeleteOne(ctx context.Context, id string) (*domain.Customer, error) {
	query := `DELETE FROM customers WHERE id = $1 RETURNING ` + customerColumns
	customer, err := scanCustomer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return customer, nil
}

func (r *customerRepository) Count(ctx context.Context, filter CustomerFilter) (int, error) {
	where, args := customerWhere(filter)
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM customers"+where, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *customerRepository) CountByOwner(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT owner_admin_id, COUNT(*) FROM customers GROUP BY owner_admin_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			owner string
			count int
		)
		if err := rows.Scan(&owner, &count); err != nil {
			return nil, err
		}
		counts[owner] = count
	}
	return counts, rows.Err()
}

func customerWhere(filter CustomerFilter) (string, []any) {
	args := []any{}
	clauses := []string{}

	if filter.ID != nil {
		args = append(args, *filter.ID)
		clauses = append(clauses, fmt.Sprintf("id=$%d", len(args)))
	}
	if filter.OwnerAdminID != nil {
		args = append(args, *filter.OwnerAdminID)
		clauses = append(clauses, fmt.Sprintf("owner_admin_id=$%d", len(args)))
	}
	if filter.NameKey != nil {
		args = append(args, *filter.NameKey)
		clauses = append(clauses, fmt.Sprintf("name_key=$%d", len(args)))
	}
	if filter.PhoneKey != nil {
		args = append(args, *filter.PhoneKey)
		clauses = append(clauses, fmt.Sprintf("phone_key=$%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	if err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Phone,
		&c.NameKey,
		&c.PhoneKey,
		&c.Address,
		&c.VisitCount,
		&c.OwnerAdminID,
		&c.LastModifiedBy,
		&c.FollowUpDate,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
