package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TechnicianFilter captures roster listing parameters.
type TechnicianFilter struct {
	Search *string
	Limit  int
	Offset int
}

// TechnicianListing pairs a profile with its assigned-call count for lists.
type TechnicianListing struct {
	Profile       domain.TechnicianProfile
	AssignedCalls int
}

// TechnicianRepository handles persistence for technician profiles.
type TechnicianRepository interface {
	GetByID(ctx context.Context, id string) (*domain.TechnicianProfile, error)
	GetByUserID(ctx context.Context, userID string) (*domain.TechnicianProfile, error)
	List(ctx context.Context, filter TechnicianFilter) ([]TechnicianListing, int, error)
	// ListWithWorkload returns the full roster with active-call counts and
	// in-progress flags computed in a single query, so the selection snapshot
	// cannot mix reads from different points in time.
	ListWithWorkload(ctx context.Context) ([]domain.TechnicianWorkload, error)
	UpdateProfile(ctx context.Context, profile *domain.TechnicianProfile) error
	ActiveCallCount(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

type technicianRepository struct {
	pool *pgxpool.Pool
}

// NewTechnicianRepository instantiates the repository.
func NewTechnicianRepository(pool *pgxpool.Pool) TechnicianRepository {
	return &technicianRepository{pool: pool}
}

const technicianColumns = `
        t.id, t.user_id, u.name, u.email, t.availability, u.created_at, u.updated_at`

func (r *technicianRepository) GetByID(ctx context.Context, id string) (*domain.TechnicianProfile, error) {
	query := `
        SELECT` + technicianColumns + `
        FROM technician_profiles t
        JOIN users u ON u.id = t.user_id
        WHERE t.id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *technicianRepository) GetByUserID(ctx context.Context, userID string) (*domain.TechnicianProfile, error) {
	query := `
        SELECT` + technicianColumns + `
        FROM technician_profiles t
        JOIN users u ON u.id = t.user_id
        WHERE t.user_id=$1`
	return r.fetchSingle(ctx, query, userID)
}

func (r *technicianRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.TechnicianProfile, error) {
	var profile domain.TechnicianProfile
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Name,
		&profile.Email,
		&profile.Availability,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *technicianRepository) List(ctx context.Context, filter TechnicianFilter) ([]TechnicianListing, int, error) {
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
        FROM technician_profiles t
        JOIN users u ON u.id = t.user_id
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
        SELECT` + technicianColumns + `,
               COUNT(c.id) AS assigned_calls
        FROM technician_profiles t
        JOIN users u ON u.id = t.user_id
        LEFT JOIN calls c ON c.technician_id = t.id
        WHERE ` + where + `
        GROUP BY t.id, t.user_id, u.name, u.email, t.availability, u.created_at, u.updated_at
        ORDER BY u.created_at DESC` + fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []TechnicianListing
	for rows.Next() {
		var item TechnicianListing
		if err := rows.Scan(
			&item.Profile.ID,
			&item.Profile.UserID,
			&item.Profile.Name,
			&item.Profile.Email,
			&item.Profile.Availability,
			&item.Profile.CreatedAt,
			&item.Profile.UpdatedAt,
			&item.AssignedCalls,
		); err != nil {
			return nil, 0, err
		}
		result = append(result, item)
	}
	return result, total, rows.Err()
}

func (r *technicianRepository) ListWithWorkload(ctx context.Context) ([]domain.TechnicianWorkload, error) {
	const query = `
        SELECT t.id, t.user_id, u.name, u.email, t.availability, u.created_at, u.updated_at,
               COUNT(c.id) FILTER (WHERE c.status IN ('open','in_progress')) AS active_calls,
               COUNT(c.id) FILTER (WHERE c.status = 'in_progress') > 0 AS in_progress
        FROM technician_profiles t
        JOIN users u ON u.id = t.user_id
        LEFT JOIN calls c ON c.technician_id = t.id
        GROUP BY t.id, t.user_id, u.name, u.email, t.availability, u.created_at, u.updated_at
        ORDER BY t.id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TechnicianWorkload
	for rows.Next() {
		var entry domain.TechnicianWorkload
		if err := rows.Scan(
			&entry.Technician.ID,
			&entry.Technician.UserID,
			&entry.Technician.Name,
			&entry.Technician.Email,
			&entry.Technician.Availability,
			&entry.Technician.CreatedAt,
			&entry.Technician.UpdatedAt,
			&entry.ActiveCalls,
			&entry.InProgress,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// UpdateProfile writes name/email on the user row and availability on the
// profile row inside one transaction.
func (r *technicianRepository) UpdateProfile(ctx context.Context, profile *domain.TechnicianProfile) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const updateUser = `UPDATE users SET name=$1, email=$2, updated_at=NOW() WHERE id=$3`
	cmd, err := tx.Exec(ctx, updateUser, profile.Name, profile.Email, profile.UserID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	const updateProfile = `UPDATE technician_profiles SET availability=$1 WHERE id=$2`
	if _, err := tx.Exec(ctx, updateProfile, profile.Availability, profile.ID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *technicianRepository) ActiveCallCount(ctx context.Context, id string) (int, error) {
	const query = `
        SELECT COUNT(*) FROM calls
        WHERE technician_id=$1 AND status IN ('open','in_progress')`
	var count int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes the profile and its user account in one transaction. The
// open/in_progress guard belongs to the service layer.
func (r *technicianRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var userID string
	if err := tx.QueryRow(ctx, `DELETE FROM technician_profiles WHERE id=$1 RETURNING user_id`, id).Scan(&userID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id=$1`, userID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
