package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ambulance-finance/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims utils.JWTClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return token
}

func TestActorIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	adminID := primitive.NewObjectID()

	valid := signToken(t, utils.JWTClaims{
		UserID: adminID.Hex(),
		Name:   "Dana Ops",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)
	wrongKey := signToken(t, utils.JWTClaims{UserID: adminID.Hex()}, "other")
	expired := signToken(t, utils.JWTClaims{
		UserID: adminID.Hex(),
		Name:   "Dana Ops",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}, testSecret)
	issued, err := utils.GenerateAccessToken(adminID, "admin", "Dana Ops", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	tests := []struct {
		name     string
		header   string
		wantName string
	}{
		{"valid token", "Bearer " + valid, "Dana Ops"},
		{"no header", "", ""},
		{"not bearer", valid, ""},
		{"wrong key", "Bearer " + wrongKey, ""},
		{"expired", "Bearer " + expired, ""},
		{"issued by GenerateAccessToken", "Bearer " + issued, "Dana Ops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(ActorIdentity(testSecret))
			router.GET("/", func(c *gin.Context) {
				actor := GetActor(c)
				if actor == nil {
					c.String(http.StatusOK, "")
					return
				}
				if actor.ID != adminID {
					t.Errorf("actor ID = %s, want %s", actor.ID.Hex(), adminID.Hex())
				}
				c.String(http.StatusOK, actor.Name)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, anonymous requests must pass", rec.Code)
			}
			if rec.Body.String() != tt.wantName {
				t.Errorf("actor name = %q, want %q", rec.Body.String(), tt.wantName)
			}
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, err := uuid.Parse(rec.Body.String()); err != nil {
		t.Errorf("generated request id %q is not a uuid", rec.Body.String())
	}
	if rec.Header().Get(RequestIDHeader) != rec.Body.String() {
		t.Errorf("response header = %q, want %q", rec.Header().Get(RequestIDHeader), rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Body.String() != "abc-123" {
		t.Errorf("propagated request id = %q, want abc-123", rec.Body.String())
	}
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORSMiddleware([]string{"https://admin.example.com"}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://admin.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin for unknown origin = %q, want empty", got)
	}
}
