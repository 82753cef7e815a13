package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PolicyAuditLog is the persisted form of one policy decision.
type PolicyAuditLog struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	UserID        uuid.UUID       `json:"user_id" db:"user_id"`
	Action        string          `json:"action" db:"action"`
	IsAllowed     bool            `json:"is_allowed" db:"is_allowed"`
	PrimaryReason string          `json:"primary_reason" db:"primary_reason"`
	DeniedBy      string          `json:"denied_by" db:"denied_by"`
	Evaluations   json.RawMessage `json:"evaluations" db:"evaluations"`
	IPAddress     string          `json:"ip_address" db:"ip_address"`
	UserAgent     string          `json:"user_agent" db:"user_agent"`
	RequestID     string          `json:"request_id" db:"request_id"`
	EvaluatedAt   time.Time       `json:"evaluated_at" db:"evaluated_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

type AuditFilters struct {
	UserID    *uuid.UUID
	Action    string
	IsAllowed *bool
	Since     *time.Time
	Limit     int
}

// NewPolicyAuditLog builds an audit record from an evaluation result.
func NewPolicyAuditLog(req *ActionRequest, result *PolicyEvaluationResult, requestID string) (*PolicyAuditLog, error) {
	evaluations, err := json.Marshal(result.Evaluations)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal evaluations: %w", err)
	}

	log := &PolicyAuditLog{
		ID:            uuid.New(),
		UserID:        result.UserID,
		Action:        result.Action,
		IsAllowed:     result.IsAllowed,
		PrimaryReason: result.PrimaryReason,
		Evaluations:   evaluations,
		RequestID:     requestID,
		EvaluatedAt:   result.EvaluatedAt,
		CreatedAt:     time.Now().UTC(),
	}
	if req != nil {
		log.IPAddress = req.IPAddress
		log.UserAgent = req.UserAgent
	}
	for _, e := range result.Evaluations {
		if !e.IsAllowed {
			log.DeniedBy = e.PolicyType
			break
		}
	}
	return log, nil
}
