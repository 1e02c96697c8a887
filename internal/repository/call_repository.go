package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// CallFilter captures call listing parameters. Role scoping happens by
// setting ClientID or TechnicianID; admins leave both nil.
type CallFilter struct {
	ClientID     *string
	TechnicianID *string
	Status       *domain.CallStatus
	Limit        int
	Offset       int
}

// CallRepository encapsulates call persistence. Multi-row operations are
// transactional; TransitionStatus owns the single-in-progress invariant
// because the check and the write must share one atomic unit.
type CallRepository interface {
	// CreateWithServices inserts the call and one priced association per
	// service in a single transaction.
	CreateWithServices(ctx context.Context, call *domain.Call, services []domain.Service) error
	GetByID(ctx context.Context, id string) (*domain.Call, error)
	GetDetail(ctx context.Context, id string) (*domain.CallDetail, error)
	ListDetails(ctx context.Context, filter CallFilter) ([]domain.CallDetail, int, error)
	// TransitionStatus validates the lifecycle move and, for moves into
	// in_progress, verifies under a technician row lock that no other call of
	// the same technician is in progress. Two racing starts for one
	// technician serialize on that lock; exactly one wins.
	TransitionStatus(ctx context.Context, id string, to domain.CallStatus) (*domain.Call, error)
	Touch(ctx context.Context, id string) error
	// Delete removes the call and its associations in one transaction.
	Delete(ctx context.Context, id string) error
}

type callRepository struct {
	pool *pgxpool.Pool
}

// NewCallRepository instantiates the repository.
func NewCallRepository(pool *pgxpool.Pool) CallRepository {
	return &callRepository{pool: pool}
}

func (r *callRepository) CreateWithServices(ctx context.Context, call *domain.Call, services []domain.Service) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertCall = `
        INSERT INTO calls (name, description, status, client_id, technician_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	if err := tx.QueryRow(ctx, insertCall,
		call.Name,
		call.Description,
		call.Status,
		call.ClientID,
		call.TechnicianID,
	).Scan(&call.ID, &call.CreatedAt); err != nil {
		return err
	}

	const insertAssociation = `
        INSERT INTO call_services (call_id, service_id, assigned_value)
        VALUES ($1,$2,$3)`
	for _, service := range services {
		if _, err := tx.Exec(ctx, insertAssociation, call.ID, service.ID, service.Value); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *callRepository) GetByID(ctx context.Context, id string) (*domain.Call, error) {
	const query = `
        SELECT id, name, description, status, client_id, technician_id, created_at, updated_at
        FROM calls WHERE id=$1`
	var call domain.Call
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&call.ID,
		&call.Name,
		&call.Description,
		&call.Status,
		&call.ClientID,
		&call.TechnicianID,
		&call.CreatedAt,
		&call.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &call, nil
}

const callDetailColumns = `
        c.id, c.name, c.description, c.status, c.client_id, c.technician_id, c.created_at, c.updated_at,
        cu.name, cu.email, tu.name, tu.email`

const callDetailJoins = `
        FROM calls c
        JOIN client_profiles cp ON cp.id = c.client_id
        JOIN users cu ON cu.id = cp.user_id
        JOIN technician_profiles tp ON tp.id = c.technician_id
        JOIN users tu ON tu.id = tp.user_id`

func (r *callRepository) GetDetail(ctx context.Context, id string) (*domain.CallDetail, error) {
	query := `SELECT` + callDetailColumns + callDetailJoins + ` WHERE c.id=$1`
	var detail domain.CallDetail
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&detail.Call.ID,
		&detail.Call.Name,
		&detail.Call.Description,
		&detail.Call.Status,
		&detail.Call.ClientID,
		&detail.Call.TechnicianID,
		&detail.Call.CreatedAt,
		&detail.Call.UpdatedAt,
		&detail.Client.Name,
		&detail.Client.Email,
		&detail.Technician.Name,
		&detail.Technician.Email,
	); err != nil {
		return nil, err
	}
	detail.Client.ProfileID = detail.Call.ClientID
	detail.Technician.ProfileID = detail.Call.TechnicianID

	services, err := r.fetchServiceItems(ctx, detail.Call.ID)
	if err != nil {
		return nil, err
	}
	detail.Services = services
	for _, item := range services {
		detail.TotalValue += item.AssignedValue
	}
	return &detail, nil
}

func (r *callRepository) ListDetails(ctx context.Context, filter CallFilter) ([]domain.CallDetail, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		clauses = append(clauses, fmt.Sprintf("c.client_id=$%d", len(args)))
	}
	if filter.TechnicianID != nil {
		args = append(args, *filter.TechnicianID)
		clauses = append(clauses, fmt.Sprintf("c.technician_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("c.status=$%d", len(args)))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM calls c WHERE `+where, args...).Scan(&total); err != nil {
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

	query := `SELECT` + callDetailColumns + callDetailJoins + ` WHERE ` + where +
		` ORDER BY c.created_at DESC` + fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.CallDetail
	for rows.Next() {
		var detail domain.CallDetail
		if err := rows.Scan(
			&detail.Call.ID,
			&detail.Call.Name,
			&detail.Call.Description,
			&detail.Call.Status,
			&detail.Call.ClientID,
			&detail.Call.TechnicianID,
			&detail.Call.CreatedAt,
			&detail.Call.UpdatedAt,
			&detail.Client.Name,
			&detail.Client.Email,
			&detail.Technician.Name,
			&detail.Technician.Email,
		); err != nil {
			return nil, 0, err
		}
		detail.Client.ProfileID = detail.Call.ClientID
		detail.Technician.ProfileID = detail.Call.TechnicianID
		result = append(result, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range result {
		services, err := r.fetchServiceItems(ctx, result[i].Call.ID)
		if err != nil {
			return nil, 0, err
		}
		result[i].Services = services
		for _, item := range services {
			result[i].TotalValue += item.AssignedValue
		}
	}
	return result, total, nil
}

func (r *callRepository) fetchServiceItems(ctx context.Context, callID string) ([]domain.CallServiceItem, error) {
	const query = `
        SELECT cs.service_id, s.name, cs.assigned_value
        FROM call_services cs
        JOIN services s ON s.id = cs.service_id
        WHERE cs.call_id=$1
        ORDER BY cs.created_at ASC`
	rows, err := r.pool.Query(ctx, query, callID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CallServiceItem
	for rows.Next() {
		var item domain.CallServiceItem
		if err := rows.Scan(&item.ServiceID, &item.Name, &item.AssignedValue); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *callRepository) TransitionStatus(ctx context.Context, id string, to domain.CallStatus) (*domain.Call, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var call domain.Call
	const lockCall = `
        SELECT id, name, description, status, client_id, technician_id, created_at, updated_at
        FROM calls WHERE id=$1
        FOR UPDATE`
	if err := tx.QueryRow(ctx, lockCall, id).Scan(
		&call.ID,
		&call.Name,
		&call.Description,
		&call.Status,
		&call.ClientID,
		&call.TechnicianID,
		&call.CreatedAt,
		&call.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if !domain.CanTransition(call.Status, to) {
		return nil, apperrors.NewInvalidTransition(string(call.Status), string(to))
	}

	if to == domain.CallStatusInProgress {
		// The technician row lock serializes concurrent starts for the same
		// technician; the busy check below reads under that lock.
		if _, err := tx.Exec(ctx,
			`SELECT 1 FROM technician_profiles WHERE id=$1 FOR UPDATE`, call.TechnicianID); err != nil {
			return nil, err
		}
		var busy bool
		const busyCheck = `
            SELECT EXISTS (
                SELECT 1 FROM calls
                WHERE technician_id=$1 AND status='in_progress' AND id <> $2
            )`
		if err := tx.QueryRow(ctx, busyCheck, call.TechnicianID, call.ID).Scan(&busy); err != nil {
			return nil, err
		}
		if busy {
			return nil, apperrors.NewTechnicianBusy(call.TechnicianID)
		}
	}

	const update = `
        UPDATE calls SET status=$1, updated_at=NOW()
        WHERE id=$2
        RETURNING status, updated_at`
	if err := tx.QueryRow(ctx, update, to, call.ID).Scan(&call.Status, &call.UpdatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &call, nil
}

func (r *callRepository) Touch(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE calls SET updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *callRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM call_services WHERE call_id=$1`, id); err != nil {
		return err
	}
	cmd, err := tx.Exec(ctx, `DELETE FROM calls WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return tx.Commit(ctx)
}
