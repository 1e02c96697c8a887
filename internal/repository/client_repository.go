package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ClientFilter captures client listing parameters.
type ClientFilter struct {
	Search *string
	Limit  int
	Offset int
}

// ClientRepository handles persistence for client profiles.
type ClientRepository interface {
	GetByID(ctx context.Context, id string) (*domain.ClientProfile, error)
	GetByUserID(ctx context.Context, userID string) (*domain.ClientProfile, error)
	List(ctx context.Context, filter ClientFilter) ([]domain.ClientProfile, int, error)
	Update(ctx context.Context, profile *domain.ClientProfile) error
	// Delete removes the client, its calls and their service associations in
	// one transaction.
	Delete(ctx context.Context, id string) error
}

type clientRepository struct {
	pool *pgxpool.Pool
}

// NewClientRepository instantiates the repository.
func NewClientRepository(pool *pgxpool.Pool) ClientRepository {
	return &clientRepository{pool: pool}
}

const clientColumns = `
        p.id, p.user_id, u.name, u.email, u.created_at, u.updated_at`

func (r *clientRepository) GetByID(ctx context.Context, id string) (*domain.ClientProfile, error) {
	query := `
        SELECT` + clientColumns + `
        FROM client_profiles p
        JOIN users u ON u.id = p.user_id
        WHERE p.id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *clientRepository) GetByUserID(ctx context.Context, userID string) (*domain.ClientProfile, error) {
	query := `
        SELECT` + clientColumns + `
        FROM client_profiles p
        JOIN users u ON u.id = p.user_id
        WHERE p.user_id=$1`
	return r.fetchSingle(ctx, query, userID)
}

func (r *clientRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.ClientProfile, error) {
	var profile domain.ClientProfile
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Name,
		&profile.Email,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *clientRepository) List(ctx context.Context, filter ClientFilter) ([]domain.ClientProfile, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(u.name) LIKE %s OR LOWER(u.email) LIKE %s)", placeholder, placeholder))
	}
	where := strings.Join(clauses, " AND ")

	countQuery := `
        SELECT COUNT(*)
        FROM client_profiles p
        JOIN users u ON u.id = p.user_id
        WHERE ` + where
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	listQuery := `
        SELECT` + clientColumns + `
        FROM client_profiles p
        JOIN users u ON u.id = p.user_id
        WHERE ` + where + `
        ORDER BY u.created_at DESC` + fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.ClientProfile
	for rows.Next() {
		var profile domain.ClientProfile
		if err := rows.Scan(
			&profile.ID,
			&profile.UserID,
			&profile.Name,
			&profile.Email,
			&profile.CreatedAt,
			&profile.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		result = append(result, profile)
	}
	return result, total, rows.Err()
}

func (r *clientRepository) Update(ctx context.Context, profile *domain.ClientProfile) error {
	const query = `UPDATE users SET name=$1, email=$2, updated_at=NOW() WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, profile.Name, profile.Email, profile.UserID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *clientRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
        DELETE FROM call_services
        WHERE call_id IN (SELECT id FROM calls WHERE client_id=$1)`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM calls WHERE client_id=$1`, id); err != nil {
		return err
	}

	var userID string
	if err := tx.QueryRow(ctx, `DELETE FROM client_profiles WHERE id=$1 RETURNING user_id`, id).Scan(&userID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id=$1`, userID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
