package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return tok
}

// protected wraps a recording handler in the middleware and returns both,
// so tests can assert on status and on the subject the handler saw.
func protected(cfg JWTCfg) (http.Handler, *string) {
	var gotSub string
	h := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = Subject(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return h, &gotSub
}

func TestMiddleware_ValidToken(t *testing.T) {
	h, gotSub := protected(JWTCfg{HS256Secret: testSecret})

	tok := signToken(t, testSecret, jwt.MapClaims{
		"sub": "ops@example.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest("POST", "/v1/sync/manual", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if *gotSub != "ops@example.com" {
		t.Errorf("subject = %q, want ops@example.com", *gotSub)
	}
}

func TestMiddleware_RejectsMissingToken(t *testing.T) {
	h, _ := protected(JWTCfg{HS256Secret: testSecret})

	req := httptest.NewRequest("POST", "/v1/sync/manual", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestMiddleware_RejectsWrongSecret(t *testing.T) {
	h, _ := protected(JWTCfg{HS256Secret: testSecret})

	tok := signToken(t, "some-other-secret", jwt.MapClaims{
		"sub": "ops@example.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest("POST", "/v1/sync/manual", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestMiddleware_RejectsExpiredToken(t *testing.T) {
	h, _ := protected(JWTCfg{HS256Secret: testSecret})

	tok := signToken(t, testSecret, jwt.MapClaims{
		"sub": "ops@example.com",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	req := httptest.NewRequest("POST", "/v1/sync/manual", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestMiddleware_RejectsUnsignedToken(t *testing.T) {
	h, _ := protected(JWTCfg{HS256Secret: testSecret})

	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "ops@example.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("Failed to build unsigned token: %v", err)
	}

	req := httptest.NewRequest("POST", "/v1/sync/manual", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestMiddleware_DisabledWithoutSecret(t *testing.T) {
	h, gotSub := protected(JWTCfg{})

	req := httptest.NewRequest("POST", "/v1/sync/manual", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when auth is disabled", rr.Code)
	}
	if *gotSub != "" {
		t.Errorf("subject = %q, want empty when auth is disabled", *gotSub)
	}
}
