package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctrl-shift-projects/b402-facilitator-go/metrics"
)

func newAuthedRouter(t *testing.T, staticKey string, db *sql.DB) *gin.Engine {
	t.Helper()

	cfg := newTestConfig(t)
	cfg.StaticAPIKey = staticKey
	return NewServer(cfg, &mockEthClient{}, nil, metrics.New(), db).Router()
}

func postWithKey(t *testing.T, router *gin.Engine, path, apiKey string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(signedRequest(t)))

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuth_NoneConfigured(t *testing.T) {
	router := newAuthedRouter(t, "", nil)

	w := postWithKey(t, router, "/verify", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_StaticKey(t *testing.T) {
	router := newAuthedRouter(t, "secret-key", nil)

	t.Run("accepted", func(t *testing.T) {
		w := postWithKey(t, router, "/verify", "secret-key")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("wrong key", func(t *testing.T) {
		w := postWithKey(t, router, "/verify", "wrong")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "unauthorized")
	})

	t.Run("missing key", func(t *testing.T) {
		w := postWithKey(t, router, "/settle", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("informational endpoints stay open", func(t *testing.T) {
		w := getJSON(t, router, "/health")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAuth_DatabaseKeys(t *testing.T) {
	const query = "SELECT api_key FROM users WHERE api_key = \\$1"

	t.Run("known key", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(query).
			WithArgs("db-key").
			WillReturnRows(sqlmock.NewRows([]string{"api_key"}).AddRow("db-key"))

		router := newAuthedRouter(t, "", db)
		w := postWithKey(t, router, "/verify", "db-key")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown key", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(query).
			WithArgs("nope").
			WillReturnError(sql.ErrNoRows)

		router := newAuthedRouter(t, "", db)
		w := postWithKey(t, router, "/verify", "nope")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing key short-circuits", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		router := newAuthedRouter(t, "", db)
		w := postWithKey(t, router, "/verify", "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database outage is a 500", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(query).
			WithArgs("db-key").
			WillReturnError(sql.ErrConnDone)

		router := newAuthedRouter(t, "", db)
		w := postWithKey(t, router, "/verify", "db-key")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("static key takes precedence", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		// No query expectations: the database must not be consulted.
		router := newAuthedRouter(t, "static-wins", db)
		w := postWithKey(t, router, "/verify", "static-wins")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRateLimit(t *testing.T) {
	router := newTestRouter(t, &mockEthClient{})

	limited := false
	for i := 0; i < 120; i++ {
		w := getJSON(t, router, "/health")
		if i == 0 {
			require.Equal(t, http.StatusOK, w.Code)
		}
		if w.Code == http.StatusTooManyRequests {
			limited = true
			assert.Contains(t, w.Body.String(), "Too many requests")
			break
		}
	}
	assert.True(t, limited, "burst beyond the per-IP limit should be rejected")
}
