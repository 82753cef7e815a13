package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/account-policy/internal/model"
	"github.com/jwalitptl/account-policy/internal/repository"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

type auditRepository struct {
	BaseRepository
}

func NewAuditRepository(base BaseRepository) repository.AuditRepository {
	return &auditRepository{base}
}

func (r *auditRepository) Create(ctx context.Context, log *model.PolicyAuditLog) error {
	query := `
		INSERT INTO policy_audit_logs (
			id, user_id, action, is_allowed, primary_reason, denied_by,
			evaluations, ip_address, user_agent, request_id, evaluated_at, created_at
		) VALUES (
			:id, :user_id, :action, :is_allowed, :primary_reason, :denied_by,
			:evaluations, :ip_address, :user_agent, :request_id, :evaluated_at, :created_at
		)
		ON CONFLICT (id) DO NOTHING
	`

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, query, log)
		return err
	})
}

func (r *auditRepository) List(ctx context.Context, filters *model.AuditFilters) ([]*model.PolicyAuditLog, error) {
	query := `SELECT * FROM policy_audit_logs WHERE 1=1`
	var args []interface{}

	limit := defaultAuditLimit
	if filters != nil {
		if filters.UserID != nil {
			args = append(args, *filters.UserID)
			query += fmt.Sprintf(" AND user_id = $%d", len(args))
		}
		if filters.Action != "" {
			args = append(args, filters.Action)
			query += fmt.Sprintf(" AND action = $%d", len(args))
		}
		if filters.IsAllowed != nil {
			args = append(args, *filters.IsAllowed)
			query += fmt.Sprintf(" AND is_allowed = $%d", len(args))
		}
		if filters.Since != nil {
			args = append(args, *filters.Since)
			query += fmt.Sprintf(" AND evaluated_at >= $%d", len(args))
		}
		if filters.Limit > 0 {
			limit = min(filters.Limit, maxAuditLimit)
		}
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY evaluated_at DESC LIMIT $%d", len(args))

	var logs []*model.PolicyAuditLog
	if err := r.GetDB().SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}

	return logs, nil
}

func (r *auditRepository) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM policy_audit_logs
		WHERE created_at < $1
	`

	result, err := r.GetDB().ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup audit logs: %w", err)
	}

	return result.RowsAffected()
}
