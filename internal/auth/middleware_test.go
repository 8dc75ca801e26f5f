package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/justclothing/pricing-api/internal/auth"
	"github.com/justclothing/pricing-api/internal/common"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, issuer, subject string, roles []string, expiry time.Time) string {
	t.Helper()
	builder := jwt.NewBuilder().
		Issuer(issuer).
		Subject(subject).
		IssuedAt(time.Now().Add(-time.Minute)).
		Expiration(expiry)
	if len(roles) > 0 {
		builder = builder.Claim("roles", roles)
	}
	tok, err := builder.Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(testSecret)))
	require.NoError(t, err)
	return string(signed)
}

func TestRequireAuthAttachesIdentity(t *testing.T) {
	verifier := auth.NewVerifier(testSecret, "pricing-api", time.Minute)
	mw := auth.Middleware{Verifier: verifier}

	var gotUser string
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = common.UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	token := signToken(t, "pricing-api", "user-123", nil, time.Now().Add(time.Hour))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/promotions/redeem", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "user-123", gotUser)
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	mw := auth.Middleware{Verifier: auth.NewVerifier(testSecret, "pricing-api", 0)}
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/promotions/redeem", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireAuthRejectsExpiredToken(t *testing.T) {
	mw := auth.Middleware{Verifier: auth.NewVerifier(testSecret, "pricing-api", 0)}
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	token := signToken(t, "pricing-api", "user-123", nil, time.Now().Add(-time.Hour))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/promotions/redeem", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireRole(t *testing.T) {
	mw := auth.Middleware{Verifier: auth.NewVerifier(testSecret, "pricing-api", 0)}
	handler := mw.RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	adminToken := signToken(t, "pricing-api", "admin-1", []string{"admin"}, time.Now().Add(time.Hour))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/promotions", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	customerToken := signToken(t, "pricing-api", "cust-1", []string{"customer"}, time.Now().Add(time.Hour))
	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/promotions", nil)
	req.Header.Set("Authorization", "Bearer "+customerToken)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)
}
