package circulation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*chi.Mux, *fixture) {
	t.Helper()

	f := newFixture(t)
	r := chi.NewRouter()
	r.Route("/circulation", NewHandler(f.service).Routes)
	return r, f
}

func postJSON(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlerIssue(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		r, _ := newTestRouter(t)
		rec := postJSON(t, r, "/circulation/issue", map[string]string{"book_id": "B1", "member_id": "M1"})

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp commandResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.OK)
		assert.Equal(t, "Book B1 issued to M1 successfully.", resp.Message)
	})

	t.Run("unknown book maps to 404", func(t *testing.T) {
		r, _ := newTestRouter(t)
		rec := postJSON(t, r, "/circulation/issue", map[string]string{"book_id": "B9", "member_id": "M1"})

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var resp commandResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.OK)
	})

	t.Run("double issue maps to 409", func(t *testing.T) {
		r, _ := newTestRouter(t)
		postJSON(t, r, "/circulation/issue", map[string]string{"book_id": "B1", "member_id": "M1"})
		rec := postJSON(t, r, "/circulation/issue", map[string]string{"book_id": "B1", "member_id": "M2"})

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("empty keys map to 400", func(t *testing.T) {
		r, _ := newTestRouter(t)
		rec := postJSON(t, r, "/circulation/issue", map[string]string{})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandlerReturn(t *testing.T) {
	r, _ := newTestRouter(t)
	postJSON(t, r, "/circulation/issue", map[string]string{"book_id": "B1", "member_id": "M1"})

	rec := postJSON(t, r, "/circulation/return", map[string]string{"book_id": "B1"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, r, "/circulation/return", map[string]string{"book_id": "B1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerLoans(t *testing.T) {
	r, f := newTestRouter(t)
	_, err := f.service.Issue(context.Background(), "B1", "M1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/circulation/loans?member_id=M1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var loans []Loan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loans))
	require.Len(t, loans, 1)
	assert.Equal(t, "B1", loans[0].BookID)
}

func TestHandlerHistory(t *testing.T) {
	r, f := newTestRouter(t)
	_, err := f.service.Issue(context.Background(), "B1", "M1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/circulation/history", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var entries []HistoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Clean Code", entries[0].Title)
}
