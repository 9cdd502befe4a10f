package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"schooldash/backend/internal/gateway"
	"schooldash/backend/internal/grade"
	"schooldash/backend/internal/grade/session"
	"schooldash/backend/internal/grade/store"
	"schooldash/backend/internal/shared"
)

const testSecret = "test-secret"

// TestEnv holds the router and the in-memory store behind it
type TestEnv struct {
	Router http.Handler
	Store  *store.MemoryStore
	Views  *session.Manager
	Token  string
}

// setupGatewayTestEnv wires the gateway to a seeded memory store
func setupGatewayTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	mem := store.NewMemoryStore(
		[]grade.Student{
			{ID: "student-001", Name: "Ana Souza"},
			{ID: "student-002", Name: "Bruno Lima"},
			{ID: "student-003", Name: "Carla Dias"},
		},
		[]grade.Subject{
			{ID: "MAT", Name: "Matemática"},
			{ID: "EDF", Name: "Educação Física", Concept: true},
		},
	)
	mem.Seed(grade.CellKey{StudentID: "student-001", SubjectID: "MAT", Slot: 1}, 50)
	mem.Seed(grade.CellKey{StudentID: "student-001", SubjectID: "MAT", Slot: 2}, 40)
	mem.Seed(grade.CellKey{StudentID: "student-002", SubjectID: "MAT", Slot: 1}, 41)
	mem.Seed(grade.CellKey{StudentID: "student-002", SubjectID: "MAT", Slot: 2}, 40)

	cfg := &shared.ServiceConfig{
		ServiceName: "gradebook",
		ServicePort: shared.DefaultServicePort,
		Environment: "test",
		Security:    shared.SecurityConfig{JWTSecret: testSecret},
		CORS: shared.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		},
	}

	views := session.NewManager(mem, session.Options{})
	router := gateway.SetupRoutes(gateway.Dependencies{Store: mem, Views: views, Config: cfg})

	return &TestEnv{
		Router: router,
		Store:  mem,
		Views:  views,
		Token:  signToken(t, "teacher-001", time.Hour),
	}
}

func signToken(t *testing.T, subject string, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

// do sends a request with the environment's token and returns the recorder
func (env *TestEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+env.Token)

	rr := httptest.NewRecorder()
	env.Router.ServeHTTP(rr, req)
	return rr
}

// decodeData unwraps the {success, data} envelope into dst
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rr.Body.String())
	}
	if !envelope.Success {
		t.Fatalf("expected success, got %s", rr.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, dst); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}
