package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahidhasan98/commit-notifier/internal/errors"
	"github.com/nahidhasan98/commit-notifier/internal/models"
)

func TestValidateResendRequest(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantID  string
		wantErr string
	}{
		{name: "numeric", id: "12345", wantID: "12345"},
		{name: "quoted", id: ` "12345" `, wantID: "12345"},
		{name: "obfuscated", id: "a1b2c3", wantID: "a1b2c3"},
		{name: "empty", id: "   ", wantErr: "'id' field is required"},
		{name: "too long", id: strings.Repeat("1", 129), wantErr: "'id' is too long (maximum 128 characters)"},
		{name: "control characters", id: "12\n45", wantErr: "'id' must contain printable ASCII characters only"},
	}

	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &models.ResendRequest{ID: tt.id}
			appErr := v.ValidateResendRequest(req)

			if tt.wantErr != "" {
				require.NotNil(t, appErr)
				assert.Equal(t, errors.ErrCodeValidationFailed, appErr.Code)
				assert.Equal(t, tt.wantErr, appErr.Message)
				return
			}
			require.Nil(t, appErr)
			assert.Equal(t, tt.wantID, req.ID)
		})
	}
}

func TestValidateNilResendRequest(t *testing.T) {
	appErr := New().ValidateResendRequest(nil)

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrCodeInvalidRequest, appErr.Code)
}

func TestIsValidJID(t *testing.T) {
	v := New()

	assert.True(t, v.IsValidJID("8801712345678@s.whatsapp.net"))
	assert.True(t, v.IsValidJID("120363025246125486@g.us"))
	assert.True(t, v.IsValidJID("8801712345678-1609459200@g.us"))
	assert.False(t, v.IsValidJID("8801712345678"))
	assert.False(t, v.IsValidJID("someone@example.com"))
}
