package policy

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/account-policy/internal/model"
)

func operation(op model.AdminOperation) *model.AdminOperation {
	return &op
}

func TestAdminPolicy(t *testing.T) {
	tests := []struct {
		name       string
		stub       *stubAccount
		operation  *model.AdminOperation
		wantAllow  bool
		wantReason string
	}{
		{
			name:       "admin flag",
			stub:       &stubAccount{admin: true},
			wantAllow:  true,
			wantReason: ReasonAdmin,
		},
		{
			name:       "admin role",
			stub:       &stubAccount{roles: []string{"superadmin"}},
			wantAllow:  true,
			wantReason: ReasonAdmin,
		},
		{
			name:       "not admin",
			stub:       &stubAccount{roles: []string{"User"}},
			wantReason: ReasonNotAdmin,
		},
		{
			name:       "operation granted",
			stub:       &stubAccount{admin: true, permissions: []string{"manageusers", "ViewAuditLogs"}},
			operation:  operation(model.AdminOperationManageUsers),
			wantAllow:  true,
			wantReason: ReasonAdminOperation,
		},
		{
			name:       "operation not granted",
			stub:       &stubAccount{admin: true, permissions: []string{"ViewAuditLogs"}},
			operation:  operation(model.AdminOperationUnlockAccounts),
			wantReason: ReasonAdminOperationDenied,
		},
		{
			name:       "permission without admin standing",
			stub:       &stubAccount{permissions: []string{"UnlockAccounts"}},
			operation:  operation(model.AdminOperationUnlockAccounts),
			wantReason: ReasonAdminOperationDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewAdminPolicy(DefaultAdminSettings(), tt.stub, tt.stub, tt.stub)

			eval, err := p.Evaluate(context.Background(), uuid.New(), tt.operation)
			require.NoError(t, err)
			assert.Equal(t, PolicyTypeAdmin, eval.PolicyType)
			assert.Equal(t, tt.wantAllow, eval.IsAllowed)
			assert.Equal(t, tt.wantReason, eval.Reason)

			ok, err := p.CanAccess(context.Background(), uuid.New(), tt.operation)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAllow, ok)
		})
	}
}

func TestAdminPolicy_FlagOnlyWithoutAdminRoles(t *testing.T) {
	stub := &stubAccount{roles: []string{"Admin"}}
	p := NewAdminPolicy(model.AdminSettings{}, stub, stub, stub)

	ok, err := p.IsAdmin(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdminPolicy_ProviderError(t *testing.T) {
	stub := &stubAccount{err: errProviderDown}
	p := NewAdminPolicy(DefaultAdminSettings(), stub, stub, stub)

	eval, err := p.Evaluate(context.Background(), uuid.New(), nil)
	assert.Nil(t, eval)
	assert.ErrorIs(t, err, errProviderDown)
}
