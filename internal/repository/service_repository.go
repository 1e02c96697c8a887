package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ServiceFilter captures catalog listing parameters.
type ServiceFilter struct {
	Search *string
	Limit  int
	Offset int
}

// ServiceRepository handles persistence for the billable catalog.
type ServiceRepository interface {
	Create(ctx context.Context, service *domain.Service) error
	Update(ctx context.Context, service *domain.Service) error
	SetActive(ctx context.Context, id string, active bool) (*domain.Service, error)
	GetByID(ctx context.Context, id string) (*domain.Service, error)
	GetByName(ctx context.Context, name string) (*domain.Service, error)
	// GetActiveByIDs resolves ids against active catalog entries only.
	GetActiveByIDs(ctx context.Context, ids []string) ([]domain.Service, error)
	List(ctx context.Context, filter ServiceFilter) ([]domain.Service, int, error)
	AssociationCount(ctx context.Context, id string) (int, error)
	ActiveCallAssociationCount(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

type serviceRepository struct {
	pool *pgxpool.Pool
}

// NewServiceRepository instantiates the repository.
func NewServiceRepository(pool *pgxpool.Pool) ServiceRepository {
	return &serviceRepository{pool: pool}
}

func (r *serviceRepository) Create(ctx context.Context, service *domain.Service) error {
	const query = `
        INSERT INTO services (name, value, active)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		service.Name,
		service.Value,
		service.Active,
	).Scan(&service.ID, &service.CreatedAt, &service.UpdatedAt)
}

func (r *serviceRepository) Update(ctx context.Context, service *domain.Service) error {
	const query = `
        UPDATE services SET name=$1, value=$2, active=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query,
		service.Name,
		service.Value,
		service.Active,
		service.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *serviceRepository) SetActive(ctx context.Context, id string, active bool) (*domain.Service, error) {
	const query = `
        UPDATE services SET active=$1, updated_at=NOW()
        WHERE id=$2
        RETURNING id, name, value, active, created_at, updated_at`
	var service domain.Service
	if err := r.pool.QueryRow(ctx, query, active, id).Scan(
		&service.ID,
		&service.Name,
		&service.Value,
		&service.Active,
		&service.CreatedAt,
		&service.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *serviceRepository) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	const query = `
        SELECT id, name, value, active, created_at, updated_at
        FROM services WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *serviceRepository) GetByName(ctx context.Context, name string) (*domain.Service, error) {
	const query = `
        SELECT id, name, value, active, created_at, updated_at
        FROM services WHERE name=$1`
	return r.fetchSingle(ctx, query, name)
}

func (r *serviceRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Service, error) {
	var service domain.Service
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&service.ID,
		&service.Name,
		&service.Value,
		&service.Active,
		&service.CreatedAt,
		&service.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *serviceRepository) GetActiveByIDs(ctx context.Context, ids []string) ([]domain.Service, error) {
	const query = `
        SELECT id, name, value, active, created_at, updated_at
        FROM services WHERE id = ANY($1) AND active = TRUE
        ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanServices(rows)
}

func (r *serviceRepository) List(ctx context.Context, filter ServiceFilter) ([]domain.Service, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		args = append(args, search)
		clauses = append(clauses, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM services WHERE `+where, args...).Scan(&total); err != nil {
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

	query := `
        SELECT id, name, value, active, created_at, updated_at
        FROM services WHERE ` + where + `
        ORDER BY name ASC` + fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result, err := scanServices(rows)
	if err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (r *serviceRepository) AssociationCount(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM call_services WHERE service_id=$1`
	var count int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *serviceRepository) ActiveCallAssociationCount(ctx context.Context, id string) (int, error) {
	const query = `
        SELECT COUNT(*)
        FROM call_services cs
        JOIN calls c ON c.id = cs.call_id
        WHERE cs.service_id=$1 AND c.status IN ('open','in_progress')`
	var count int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *serviceRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM services WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanServices(rows pgx.Rows) ([]domain.Service, error) {
	var result []domain.Service
	for rows.Next() {
		var service domain.Service
		if err := rows.Scan(
			&service.ID,
			&service.Name,
			&service.Value,
			&service.Active,
			&service.CreatedAt,
			&service.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, service)
	}
	return result, rows.Err()
}
