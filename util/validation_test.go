package util

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInstant(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"utc zulu", "2025-03-10T14:00:00Z", time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)},
		{"offset normalized", "2025-03-10T11:00:00-03:00", time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)},
		{"fractional seconds", "2025-03-10T14:00:00.250Z", time.Date(2025, 3, 10, 14, 0, 0, 250_000_000, time.UTC)},
		{"no offset", "2025-03-10T14:00:00", time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)},
		{"minutes only", "2025-03-10T14:00", time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)},
		{"surrounding spaces", "  2025-03-10T14:00:00Z ", time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInstant(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseInstantInvalid(t *testing.T) {
	for _, in := range []string{"", "   ", "tomorrow", "2025-13-01T10:00:00Z", "10/03/2025 14:00"} {
		_, err := ParseInstant(in)
		assert.Error(t, err, in)
	}
}

type bookingProbe struct {
	StartAt string `json:"start_at" binding:"required,iso8601"`
	Role    string `json:"role" binding:"omitempty,role"`
}

func TestRegisterValidators(t *testing.T) {
	gin.SetMode(gin.TestMode)
	RegisterValidators()
	RegisterValidators()

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"start_at":"2025-03-10T14:00:00Z","role":"helper"}`, ""},
		{"bad instant", `{"start_at":"yesterday"}`, "StartAt failed on iso8601"},
		{"bad role", `{"start_at":"2025-03-10T14:00:00Z","role":"root"}`, "Role failed on role"},
		{"missing instant", `{}`, "StartAt failed on required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var probe bookingProbe
			err := c.ShouldBindJSON(&probe)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, ValidationMessage(err))
		})
	}
}
