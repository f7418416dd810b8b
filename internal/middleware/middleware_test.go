package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"clinic-booking-server/internal/apperr"
	"clinic-booking-server/internal/services"
	"clinic-booking-server/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeValidator struct{}

func (fakeValidator) ValidateAccess(token string) (*utils.Claims, error) {
	if token != "good" && token != "revoked" && token != "ghost" {
		return nil, errors.New("bad token")
	}
	return &utils.Claims{
		UserID: "user-" + token,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-" + token,
			ExpiresAt: jwt.NewNumericDate(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)),
		},
	}, nil
}

type fakeResolver struct{}

func (fakeResolver) TokenRevoked(_ context.Context, tokenID string) (bool, error) {
	return tokenID == "jti-revoked", nil
}

func (fakeResolver) Identify(_ context.Context, userID string) (services.Identity, error) {
	if userID == "user-ghost" {
		return services.Identity{}, apperr.New(apperr.KindUnauthenticated, "account no longer exists")
	}
	return services.Identity{UserID: userID, Elevated: true}, nil
}

func TestAuthMiddleware(t *testing.T) {
	router := gin.New()
	router.GET("/me", AuthMiddleware(fakeValidator{}, fakeResolver{}), func(c *gin.Context) {
		ident, ok := MustIdentity(c)
		if !ok {
			return
		}
		jti, exp := AccessTokenFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user": ident.UserID, "elevated": ident.Elevated, "jti": jti, "exp": exp.Year()})
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"revoked token", "Bearer revoked", http.StatusUnauthorized},
		{"deleted account", "Bearer ghost", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
		{"lower-case scheme", "bearer good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.status == http.StatusOK {
				body := rec.Body.String()
				for _, want := range []string{`"user":"user-good"`, `"elevated":true`, `"jti":"jti-good"`, `"exp":2030`} {
					if !strings.Contains(body, want) {
						t.Errorf("expected %s in %s", want, body)
					}
				}
			}
		})
	}
}

func TestMustIdentity_WithoutAuth(t *testing.T) {
	router := gin.New()
	router.GET("/", func(c *gin.Context) {
		if _, ok := MustIdentity(c); ok {
			t.Error("expected no identity")
		}
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRequestID_GeneratesNew(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		if c.GetString(requestIDKey) == "" {
			t.Error("expected request_id to be generated")
		}
		c.String(http.StatusOK, "ok")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "my-custom-id")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "my-custom-id" {
		t.Errorf("expected my-custom-id in response header, got %s", got)
	}
}

func TestLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	router := gin.New()
	router.Use(RequestID(), Logger(zerolog.New(&buf)))
	router.GET("/test", func(c *gin.Context) { c.String(http.StatusTeapot, "tea") })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"path":"/test"`, `"status":418`, `"request_id"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in log line %s", want, out)
		}
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	router := gin.New()
	router.Use(Recovery(zerolog.New(&buf)))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Errorf("expected panic to be logged, got %s", buf.String())
	}
	var body utils.ResponseData
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != http.StatusInternalServerError || body.Error != "internal server error" {
		t.Errorf("unexpected envelope %+v", body)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Errorf("panic value leaked to client: %s", rec.Body.String())
	}
}
