package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterSuperAdminRequestRejectsOtherRoles(t *testing.T) {
	req := &RegisterSuperAdminRequest{Name: "Root", Email: "root@orbit.test", Password: "secret1", Role: " Owner "}
	req.Normalize()
	assert.Error(t, req.Validate())

	req.Role = "SuperAdmin"
	assert.NoError(t, req.Validate())

	req.Role = ""
	assert.NoError(t, req.Validate())
}

func TestRegisterOwnerRequest(t *testing.T) {
	req := &RegisterOwnerRequest{Name: "Olive", Email: "olive@acme.test", Password: "secret1"}
	require.Error(t, req.Validate(), "organization is required")

	req.TenantID = "5b0e2b39-9f2f-4a4a-8a4f-0d3b7b1d5a10"
	assert.NoError(t, req.Validate())

	req.Password = "short"
	assert.Error(t, req.Validate())
}

func TestLoginRequest(t *testing.T) {
	req := &LoginRequest{Email: "  root@orbit.test ", Password: "secret1"}
	req.Normalize()
	assert.Equal(t, "root@orbit.test", req.Email)
	assert.NoError(t, req.Validate())

	req.TenantID = "not-a-uuid"
	assert.Error(t, req.Validate())
}
