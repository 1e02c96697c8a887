package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// AdditionalServiceInput is one entry of a bulk replacement of a call's
// additional services. Entries are matched to catalog rows by name.
type AdditionalServiceInput struct {
	Name          string
	AssignedValue float64
}

// CallServiceRepository handles the call/service association ledger.
type CallServiceRepository interface {
	// ListByCall returns the call's associations oldest first, so the first
	// entry is always the base service.
	ListByCall(ctx context.Context, callID string) ([]domain.CallService, error)
	Exists(ctx context.Context, callID, serviceID string) (bool, error)
	// Add appends an association with its price snapshot and touches the call.
	Add(ctx context.Context, assoc *domain.CallService) error
	// Remove deletes an association and touches the call.
	Remove(ctx context.Context, callID, serviceID string) error
	// ReplaceAdditional swaps every association after the base one for the
	// given entries in a single transaction. Entries naming an unknown catalog
	// service create it as an active entry priced at the assigned value.
	ReplaceAdditional(ctx context.Context, callID string, items []AdditionalServiceInput) error
}

type callServiceRepository struct {
	pool *pgxpool.Pool
}

// NewCallServiceRepository instantiates the repository.
func NewCallServiceRepository(pool *pgxpool.Pool) CallServiceRepository {
	return &callServiceRepository{pool: pool}
}

func (r *callServiceRepository) ListByCall(ctx context.Context, callID string) ([]domain.CallService, error) {
	const query = `
        SELECT call_id, service_id, assigned_value, created_at
        FROM call_services
        WHERE call_id=$1
        ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, callID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CallService
	for rows.Next() {
		var assoc domain.CallService
		if err := rows.Scan(&assoc.CallID, &assoc.ServiceID, &assoc.AssignedValue, &assoc.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, assoc)
	}
	return result, rows.Err()
}

func (r *callServiceRepository) Exists(ctx context.Context, callID, serviceID string) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM call_services WHERE call_id=$1 AND service_id=$2
        )`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, callID, serviceID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *callServiceRepository) Add(ctx context.Context, assoc *domain.CallService) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insert = `
        INSERT INTO call_services (call_id, service_id, assigned_value)
        VALUES ($1,$2,$3)
        RETURNING created_at`
	if err := tx.QueryRow(ctx, insert, assoc.CallID, assoc.ServiceID, assoc.AssignedValue).Scan(&assoc.CreatedAt); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE calls SET updated_at=NOW() WHERE id=$1`, assoc.CallID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *callServiceRepository) Remove(ctx context.Context, callID, serviceID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const del = `DELETE FROM call_services WHERE call_id=$1 AND service_id=$2`
	if _, err := tx.Exec(ctx, del, callID, serviceID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE calls SET updated_at=NOW() WHERE id=$1`, callID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *callServiceRepository) ReplaceAdditional(ctx context.Context, callID string, items []AdditionalServiceInput) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// The base association is the oldest one; everything after it is
	// replaceable.
	var baseServiceID *string
	const firstAssoc = `
        SELECT service_id FROM call_services
        WHERE call_id=$1
        ORDER BY created_at ASC
        LIMIT 1`
	rows, err := tx.Query(ctx, firstAssoc, callID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		baseServiceID = &id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if baseServiceID != nil {
		const clear = `DELETE FROM call_services WHERE call_id=$1 AND service_id <> $2`
		if _, err := tx.Exec(ctx, clear, callID, *baseServiceID); err != nil {
			return err
		}
	} else {
		if _, err := tx.Exec(ctx, `DELETE FROM call_services WHERE call_id=$1`, callID); err != nil {
			return err
		}
	}

	for _, item := range items {
		var serviceID string
		err := tx.QueryRow(ctx, `SELECT id FROM services WHERE name=$1`, item.Name).Scan(&serviceID)
		if err != nil {
			if !IsNotFound(err) {
				return err
			}
			const create = `
                INSERT INTO services (name, value, active)
                VALUES ($1,$2,TRUE)
                RETURNING id`
			if err := tx.QueryRow(ctx, create, item.Name, item.AssignedValue).Scan(&serviceID); err != nil {
				return err
			}
		}
		if baseServiceID != nil && serviceID == *baseServiceID {
			continue
		}
		const insert = `
            INSERT INTO call_services (call_id, service_id, assigned_value)
            VALUES ($1,$2,$3)
            ON CONFLICT (call_id, service_id) DO UPDATE SET assigned_value = EXCLUDED.assigned_value`
		if _, err := tx.Exec(ctx, insert, callID, serviceID, item.AssignedValue); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE calls SET updated_at=NOW() WHERE id=$1`, callID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
