package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/retainapp/retain-api/internal/api/middleware"
	"github.com/retainapp/retain-api/internal/api/shared"
	"github.com/retainapp/retain-api/internal/config"
	"github.com/retainapp/retain-api/internal/service/auth"
)

const testAPIKey = "test-api-key-value"

func newAuthRouter(t *testing.T) chi.Router {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testAPIKey), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := config.AuthConfig{
		APIKeyHash:                  string(hash),
		JWTSecret:                   "0123456789abcdef0123456789abcdef",
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 10080,
	}

	jwtService, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	verifier, err := auth.NewBcryptAPIKeyVerifier(cfg.APIKeyHash)
	require.NoError(t, err)

	handler := NewAuthHandler(jwtService, verifier, &cfg, testLogger())
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	r := chi.NewRouter()
	r.Post("/auth/token", handler.Token)
	r.Post("/auth/refresh", handler.Refresh)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Get("/protected", func(w http.ResponseWriter, r *http.Request) {
			shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
		})
	})
	return r
}

func TestTokenExchange(t *testing.T) {
	t.Parallel()

	router := newAuthRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/token", TokenRequest{APIKey: testAPIKey})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotEmpty(t, resp.ExpiresAt)
	assert.NotEqual(t, resp.AccessToken, resp.RefreshToken)
}

func TestTokenExchangeWrongKey(t *testing.T) {
	t.Parallel()

	router := newAuthRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/token", TokenRequest{APIKey: "wrong-key"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid API key", resp["error"])
}

func TestTokenExchangeMissingKey(t *testing.T) {
	t.Parallel()

	router := newAuthRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/token", TokenRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshFlow(t *testing.T) {
	t.Parallel()

	router := newAuthRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/token", TokenRequest{APIKey: testAPIKey})
	require.Equal(t, http.StatusOK, rec.Code)

	var issued AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))

	rec = doJSON(t, router, http.MethodPost, "/auth/refresh", RefreshTokenRequest{RefreshToken: issued.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)

	var refreshed AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshed))
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEmpty(t, refreshed.RefreshToken)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	t.Parallel()

	router := newAuthRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/token", TokenRequest{APIKey: testAPIKey})
	require.Equal(t, http.StatusOK, rec.Code)

	var issued AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))

	// Access tokens must not pass as refresh tokens.
	rec = doJSON(t, router, http.MethodPost, "/auth/refresh", RefreshTokenRequest{RefreshToken: issued.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshInvalidToken(t *testing.T) {
	t.Parallel()

	router := newAuthRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/refresh", RefreshTokenRequest{RefreshToken: "not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	t.Parallel()

	router := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRouteWithValidToken(t *testing.T) {
	t.Parallel()

	router := newAuthRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/token", TokenRequest{APIKey: testAPIKey})
	require.Equal(t, http.StatusOK, rec.Code)

	var issued AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issued.AccessToken)
	out := httptest.NewRecorder()
	router.ServeHTTP(out, req)
	assert.Equal(t, http.StatusOK, out.Code)
}

func TestProtectedRouteRejectsRefreshToken(t *testing.T) {
	t.Parallel()

	router := newAuthRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/token", TokenRequest{APIKey: testAPIKey})
	require.Equal(t, http.StatusOK, rec.Code)

	var issued AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issued.RefreshToken)
	out := httptest.NewRecorder()
	router.ServeHTTP(out, req)
	assert.Equal(t, http.StatusUnauthorized, out.Code)
}
