package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lalith-99/chatrelay/internal/auth"
)

const testSecret = "test-secret"

func newTestRouter(t *testing.T) (*gin.Engine, *uuid.UUID, *string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var gotID uuid.UUID
	var gotName string

	r := gin.New()
	r.GET("/protected", AuthMiddleware(testSecret), func(c *gin.Context) {
		gotID = GetUserID(c)
		gotName = GetUsername(c)
		c.Status(http.StatusOK)
	})

	return r, &gotID, &gotName
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	r, gotID, gotName := newTestRouter(t)

	userID := uuid.New()
	token, err := auth.GenerateToken(userID, "alice", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if *gotID != userID {
		t.Errorf("GetUserID = %s, want %s", *gotID, userID)
	}
	if *gotName != "alice" {
		t.Errorf("GetUsername = %q, want alice", *gotName)
	}
}

func TestAuthMiddlewareRejects(t *testing.T) {
	badToken, err := auth.GenerateToken(uuid.New(), "alice", "wrong-secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	expired, err := auth.GenerateToken(uuid.New(), "alice", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc123"},
		{"no token part", "Bearer"},
		{"wrong secret", "Bearer " + badToken},
		{"expired", "Bearer " + expired},
		{"garbage token", "Bearer not.a.jwt"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, _, _ := newTestRouter(t)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}
