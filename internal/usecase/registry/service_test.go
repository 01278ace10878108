package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/disburse-backend/internal/domain"
)

func TestNewRegistryService(t *testing.T) {
	tests := []struct {
		name     string
		contract string
		admin    domain.Address
		wantErr  bool
	}{
		{name: "named with admin", contract: "Disburse", admin: "0xadmin"},
		{name: "no admin", contract: "Disburse", admin: ""},
		{name: "blank name", contract: "  ", admin: "0xadmin", wantErr: true},
		{name: "blank admin", contract: "Disburse", admin: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewRegistryService(tt.contract, tt.admin, nil)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			info := svc.GetInfo(context.Background())
			assert.Equal(t, tt.contract, info.Name)
			assert.Equal(t, tt.admin, info.Admin)
		})
	}
}

func TestSetName(t *testing.T) {
	tests := []struct {
		name        string
		caller      domain.Address
		newName     string
		expectedErr error
		wantErr     bool
		wantName    string
	}{
		{name: "admin renames", caller: "0xadmin", newName: " Payroll ", wantName: "Payroll"},
		{name: "non-admin rejected", caller: "0xother", newName: "Payroll", expectedErr: domain.ErrUnauthorized, wantName: "Disburse"},
		{name: "empty caller rejected", caller: "", newName: "Payroll", expectedErr: domain.ErrUnauthorized, wantName: "Disburse"},
		{name: "blank name rejected", caller: "0xadmin", newName: " ", wantErr: true, wantName: "Disburse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, err := NewRegistryService("Disburse", "0xadmin", nil)
			require.NoError(t, err)

			err = svc.SetName(ctx, tt.caller, tt.newName)

			switch {
			case tt.expectedErr != nil:
				assert.ErrorIs(t, err, tt.expectedErr)
			case tt.wantErr:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantName, svc.GetInfo(ctx).Name)
			assert.Equal(t, domain.Address("0xadmin"), svc.GetInfo(ctx).Admin)
		})
	}
}

func TestSetName_WithoutAdminNobodyMayRename(t *testing.T) {
	ctx := context.Background()
	svc, err := NewRegistryService("Disburse", "", nil)
	require.NoError(t, err)

	err = svc.SetName(ctx, "0xanyone", "Other")

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, "Disburse", svc.GetInfo(ctx).Name)
}
