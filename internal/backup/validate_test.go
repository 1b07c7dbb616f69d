package backup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/opsportal/internal/model"
)

func validRequest() model.RestoreRequest {
	return model.RestoreRequest{
		Source:               model.CaptureRef{RepositoryIdentity: ledgerID, BackupID: "2025-01-10-0930"},
		TargetOrganization:   "acme",
		TargetProject:        "Payments",
		TargetRepositoryName: "ledger-svc-restore",
		Visibility:           model.VisibilityPrivate,
	}
}

func TestValidateTarget_Valid(t *testing.T) {
	req := validRequest()
	require.NoError(t, validateTarget(&req))
}

func TestValidateTarget_DefaultsVisibility(t *testing.T) {
	req := validRequest()
	req.Visibility = ""
	require.NoError(t, validateTarget(&req))
	assert.Equal(t, model.VisibilityPrivate, req.Visibility)
}

func TestValidateTarget_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.RestoreRequest)
		field  string
	}{
		{"empty org", func(r *model.RestoreRequest) { r.TargetOrganization = "" }, "TargetOrganization"},
		{"empty project", func(r *model.RestoreRequest) { r.TargetProject = "" }, "TargetProject"},
		{"empty name", func(r *model.RestoreRequest) { r.TargetRepositoryName = "" }, "TargetRepositoryName"},
		{"name with space", func(r *model.RestoreRequest) { r.TargetRepositoryName = "ledger svc" }, "TargetRepositoryName"},
		{"name with slash", func(r *model.RestoreRequest) { r.TargetRepositoryName = "a/b" }, "TargetRepositoryName"},
		{"name leading dot", func(r *model.RestoreRequest) { r.TargetRepositoryName = ".hidden" }, "TargetRepositoryName"},
		{"name trailing dot", func(r *model.RestoreRequest) { r.TargetRepositoryName = "repo." }, "TargetRepositoryName"},
		{"name double dot", func(r *model.RestoreRequest) { r.TargetRepositoryName = "a..b" }, "TargetRepositoryName"},
		{"name too long", func(r *model.RestoreRequest) { r.TargetRepositoryName = strings.Repeat("a", 65) }, "TargetRepositoryName"},
		{"org with underscore", func(r *model.RestoreRequest) { r.TargetOrganization = "ac_me" }, "TargetOrganization"},
		{"project with slash", func(r *model.RestoreRequest) { r.TargetProject = "Pay/ments" }, "TargetProject"},
		{"unknown visibility", func(r *model.RestoreRequest) { r.Visibility = "internal" }, "Visibility"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := validateTarget(&req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTarget)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidateTarget_AcceptsPunctuation(t *testing.T) {
	req := validRequest()
	req.TargetRepositoryName = "ledger_svc.restore-2"
	req.TargetProject = "Core Platform"
	assert.NoError(t, validateTarget(&req))

	req.TargetRepositoryName = strings.Repeat("a", MaxRepositoryNameLength)
	assert.NoError(t, validateTarget(&req))
}
