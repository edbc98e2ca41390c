package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wattwise/wattwise/pkg/catalog"
	"github.com/wattwise/wattwise/pkg/catalog/catalogmock"
	"github.com/wattwise/wattwise/pkg/types"
)

func TestAdminRefresh(t *testing.T) {
	tokens := newTestTokens(t)

	src := new(catalogmock.MockSource)
	src.On("Categories", mock.Anything).Return(catalog.Fallback().Categories, nil)
	src.On("LatestTariff", mock.Anything).Return(types.Tariff{Rate: 12, Month: "May", Year: "2025"}, nil)

	srv := &Server{
		catalog:      catalog.NewProvider(src),
		adminEmails:  []string{"admin@example.com"},
		oidcAudience: testAudience,
		oidcVerifier: tokens.verifier(),
	}
	h := srv.setupHandler()

	refresh := func(auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/catalog/refresh", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	t.Run("MissingHeader", func(t *testing.T) {
		rr := refresh("")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "unauthorized", errorMessage(t, rr))
	})

	t.Run("NotBearer", func(t *testing.T) {
		rr := refresh("Basic abc")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("GarbageToken", func(t *testing.T) {
		rr := refresh("Bearer not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "invalid auth token", errorMessage(t, rr))
	})

	t.Run("WrongAudience", func(t *testing.T) {
		token := tokens.token(t, map[string]any{"email": "admin@example.com", "aud": "someone-else"})
		rr := refresh("Bearer " + token)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Expired", func(t *testing.T) {
		token := tokens.token(t, map[string]any{"email": "admin@example.com", "exp": time.Now().Add(-time.Hour).Unix()})
		rr := refresh("Bearer " + token)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("UnverifiedEmail", func(t *testing.T) {
		token := tokens.token(t, map[string]any{"email": "admin@example.com", "email_verified": false})
		rr := refresh("Bearer " + token)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("NotAdmin", func(t *testing.T) {
		token := tokens.token(t, map[string]any{"email": "user@example.com"})
		rr := refresh("Bearer " + token)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, "forbidden", errorMessage(t, rr))
	})

	t.Run("Admin", func(t *testing.T) {
		token := tokens.token(t, map[string]any{"email": "admin@example.com", "email_verified": true})

		// prime the cache, then refresh must go back to the source
		rr := doJSON(t, h, http.MethodGet, "/api/rate", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		src.AssertNumberOfCalls(t, "LatestTariff", 1)

		rr = refresh("Bearer " + token)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		src.AssertNumberOfCalls(t, "LatestTariff", 2)

		res := decodeJSON[struct {
			Source     string  `json:"source"`
			Categories int     `json:"categories"`
			Appliances int     `json:"appliances"`
			Rate       float64 `json:"rate"`
		}](t, rr)
		assert.Equal(t, "mock", res.Source)
		assert.Equal(t, 5, res.Categories)
		assert.Equal(t, 22, res.Appliances)
		assert.Equal(t, 12.0, res.Rate)
	})
}

func TestAdminBypass(t *testing.T) {
	srv := &Server{
		catalog:    catalog.NewProvider(nil),
		bypassAuth: true,
	}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/catalog/refresh", nil)
	rr := httptest.NewRecorder()
	srv.setupHandler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAdminNoVerifier(t *testing.T) {
	srv := &Server{
		catalog:     catalog.NewProvider(nil),
		adminEmails: []string{"admin@example.com"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/catalog/refresh", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rr := httptest.NewRecorder()
	srv.setupHandler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestIsAdmin(t *testing.T) {
	srv := &Server{adminEmails: []string{"a@example.com", "b@example.com"}}
	assert.True(t, srv.isAdmin("b@example.com"))
	assert.False(t, srv.isAdmin("B@example.com"))
	assert.False(t, srv.isAdmin(""))
}
