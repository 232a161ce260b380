package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookrelay/hookrelay/internal/domain"
)

func TestSubscriptionHandler_Create(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		h := newTestHarness(t)

		body := `{"target_url": "https://example.com/hook", "secret_key": "k", "event_types": ["order.created"]}`
		req := httptest.NewRequest(http.MethodPost, "/subscriptions", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)

		var sub domain.Subscription
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
		assert.NotEmpty(t, sub.ID)
		assert.Equal(t, "https://example.com/hook", sub.TargetURL)
		assert.True(t, sub.IsActive)
	})

	t.Run("InvalidURL", func(t *testing.T) {
		h := newTestHarness(t)

		body := `{"target_url": "ftp://example.com"}`
		req := httptest.NewRequest(http.MethodPost, "/subscriptions", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		h := newTestHarness(t)

		req := httptest.NewRequest(http.MethodPost, "/subscriptions", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		h.mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSubscriptionHandler_Get(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		h := newTestHarness(t, &domain.Subscription{
			ID: "sub-1", TargetURL: "https://example.com", IsActive: true,
		})

		req := httptest.NewRequest(http.MethodGet, "/subscriptions/sub-1", nil)
		rec := httptest.NewRecorder()
		h.mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "https://example.com")
	})

	t.Run("NotFound", func(t *testing.T) {
		h := newTestHarness(t)

		req := httptest.NewRequest(http.MethodGet, "/subscriptions/missing", nil)
		rec := httptest.NewRecorder()
		h.mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSubscriptionHandler_List(t *testing.T) {
	h := newTestHarness(t, &domain.Subscription{
		ID: "sub-1", TargetURL: "https://example.com", IsActive: true,
	})

	req := httptest.NewRequest(http.MethodGet, "/subscriptions", nil)
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var subs []*domain.Subscription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &subs))
	assert.Len(t, subs, 1)
}

func TestSubscriptionHandler_Update(t *testing.T) {
	t.Run("Updated", func(t *testing.T) {
		h := newTestHarness(t, &domain.Subscription{
			ID: "sub-1", TargetURL: "https://example.com", IsActive: true,
		})

		body := `{"is_active": false}`
		req := httptest.NewRequest(http.MethodPatch, "/subscriptions/sub-1", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var sub domain.Subscription
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
		assert.False(t, sub.IsActive)
		assert.False(t, h.subs.subs["sub-1"].IsActive)
	})

	t.Run("NotFound", func(t *testing.T) {
		h := newTestHarness(t)

		req := httptest.NewRequest(http.MethodPatch, "/subscriptions/missing", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		h.mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("InvalidURL", func(t *testing.T) {
		h := newTestHarness(t, &domain.Subscription{
			ID: "sub-1", TargetURL: "https://example.com", IsActive: true,
		})

		body := `{"target_url": "not a url"}`
		req := httptest.NewRequest(http.MethodPatch, "/subscriptions/sub-1", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "https://example.com", h.subs.subs["sub-1"].TargetURL)
	})
}

func TestSubscriptionHandler_Delete(t *testing.T) {
	t.Run("Deleted", func(t *testing.T) {
		h := newTestHarness(t, &domain.Subscription{
			ID: "sub-1", TargetURL: "https://example.com", IsActive: true,
		})

		req := httptest.NewRequest(http.MethodDelete, "/subscriptions/sub-1", nil)
		rec := httptest.NewRecorder()
		h.mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, h.subs.subs)
	})

	t.Run("NotFound", func(t *testing.T) {
		h := newTestHarness(t)

		req := httptest.NewRequest(http.MethodDelete, "/subscriptions/missing", nil)
		rec := httptest.NewRecorder()
		h.mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
