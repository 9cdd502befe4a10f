package shared

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"SERVICE_PORT", "ENVIRONMENT", "LOG_LEVEL", "MONGO_URI", "JWT_SECRET", "AUTH_DISABLED",
	"GRADE_STORE", "GRADE_REMOTE_URL", "GRADE_REMOTE_TIMEOUT", "GRADE_SLOTS_PER_SEMESTER", "GRADE_VIEW_TTL", "CORS_ALLOWED_ORIGINS",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadServiceConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("GRADE_STORE", "memory")
	t.Setenv("JWT_SECRET", "secret")

	config, err := LoadServiceConfig("gradebook")
	require.NoError(t, err)

	assert.Equal(t, DefaultServicePort, config.ServicePort)
	assert.Equal(t, StoreMemory, config.Gradebook.Store)
	assert.Equal(t, 10, config.Gradebook.SlotsPerSemester)
	assert.Equal(t, 2*time.Hour, config.Gradebook.ViewTTL)
	assert.Zero(t, config.Gradebook.RemoteTimeout)
	assert.Equal(t, []string{"http://localhost:3000"}, config.CORS.AllowedOrigins)
}

func TestLoadServiceConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		ok   bool
	}{
		{"mongo without uri", map[string]string{"GRADE_STORE": "mongo", "JWT_SECRET": "s"}, false},
		{"mongo with uri", map[string]string{"GRADE_STORE": "mongo", "MONGO_URI": "mongodb://localhost", "JWT_SECRET": "s"}, true},
		{"rest without url", map[string]string{"GRADE_STORE": "rest", "JWT_SECRET": "s"}, false},
		{"rest with url", map[string]string{"GRADE_STORE": "REST", "GRADE_REMOTE_URL": "http://api", "JWT_SECRET": "s"}, true},
		{"unknown store", map[string]string{"GRADE_STORE": "redis", "JWT_SECRET": "s"}, false},
		{"missing secret", map[string]string{"GRADE_STORE": "memory"}, false},
		{"auth disabled in development", map[string]string{"GRADE_STORE": "memory", "AUTH_DISABLED": "true"}, true},
		{"auth disabled in production", map[string]string{"GRADE_STORE": "memory", "AUTH_DISABLED": "true", "ENVIRONMENT": "production"}, false},
		{"too many slots", map[string]string{"GRADE_STORE": "memory", "JWT_SECRET": "s", "GRADE_SLOTS_PER_SEMESTER": "12"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadServiceConfig("gradebook")
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "nope")
	t.Setenv("TEST_DURATION", "90s")
	t.Setenv("TEST_LIST", " a, ,b ,")

	assert.Equal(t, 7, GetIntEnv("TEST_INT", 7))
	assert.Equal(t, 90*time.Second, GetDurationEnv("TEST_DURATION", time.Second))
	assert.Equal(t, []string{"a", "b"}, GetStringSliceEnv("TEST_LIST", nil))
	assert.True(t, GetBoolEnv("TEST_MISSING_BOOL", true))
}

func TestActor(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", ActorFrom(ctx))
	assert.Equal(t, "teacher-7", ActorFrom(WithActor(ctx, "teacher-7")))
}

func TestGradebookID(t *testing.T) {
	assert.Equal(t, "s1:mat", GradebookID("s1", "mat"))
}
