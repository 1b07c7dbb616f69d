package request

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_ValidRestore(t *testing.T) {
	body := `{"backup_id":"2025-01-10-0930","target_org":"acme","target_project":"Payments","target_repo_name":"ledger-svc-restore","visibility":"private"}`
	r, err := http.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	require.NoError(t, err)

	var payload Restore
	err = Decode(r, &payload)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-10-0930", payload.BackupID)
	assert.Equal(t, "ledger-svc-restore", payload.TargetRepoName)
}

func TestDecode_InvalidJSON(t *testing.T) {
	r, err := http.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{not valid json}`))
	require.NoError(t, err)

	var payload CaptureSelection
	err = Decode(r, &payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestDecode_ValidationFails(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing backup id", `{"target_org":"acme","target_project":"Payments","target_repo_name":"x"}`},
		{"malformed backup id", `{"backup_id":"latest","target_org":"acme","target_project":"Payments","target_repo_name":"x"}`},
		{"missing target", `{"backup_id":"2025-01-10-0930","target_org":"acme","target_project":"Payments"}`},
		{"unknown visibility", `{"backup_id":"2025-01-10-0930","target_org":"acme","target_project":"Payments","target_repo_name":"x","visibility":"internal"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := http.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tt.body))
			require.NoError(t, err)

			var payload Restore
			err = Decode(r, &payload)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validation error")
		})
	}
}

func TestDecode_BodyTooLarge(t *testing.T) {
	body := `{"backup_id":"` + strings.Repeat("9", 70<<10) + `"}`
	r, err := http.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	require.NoError(t, err)

	var payload CaptureSelection
	err = Decode(r, &payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestBackupIDValidation(t *testing.T) {
	for _, id := range []string{"2025-01-10-0930", "1999-12-31-2359"} {
		assert.True(t, backupIDRegex.MatchString(id), id)
	}
	for _, id := range []string{"", "2025-1-10-0930", "2025-01-10", "2025-01-10-0930.zip", "../../x"} {
		assert.False(t, backupIDRegex.MatchString(id), id)
	}
}
