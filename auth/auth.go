package auth

import (
	"crypto/subtle"
	"database/sql"
	"errors"
	"net/http"

	"github.com/ctrl-shift-projects/b402-facilitator-go/utils"
)

// Authenticator checks the X-API-Key header against either a static key or a
// Postgres-backed key table. With neither configured every request is
// accepted.
type Authenticator struct {
	staticKey string
	db        *sql.DB
}

// New creates an authenticator. The static key takes precedence when both a
// key and a database are supplied.
func New(staticKey string, db *sql.DB) *Authenticator {
	return &Authenticator{staticKey: staticKey, db: db}
}

// Authenticate validates the request's API key. Failures carry the HTTP
// status to respond with.
func (a *Authenticator) Authenticate(r *http.Request) error {
	providedKey := r.Header.Get("X-API-Key")

	if a.staticKey != "" {
		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(a.staticKey)) != 1 {
			return utils.NewStatusError(
				errors.New("unauthorized"),
				http.StatusUnauthorized,
			)
		}
		return nil
	}

	if a.db != nil {
		if providedKey == "" {
			return utils.NewStatusError(
				errors.New("unauthorized"),
				http.StatusUnauthorized,
			)
		}

		var apiKey string
		err := a.db.QueryRowContext(r.Context(),
			"SELECT api_key FROM users WHERE api_key = $1",
			providedKey,
		).Scan(&apiKey)
		if err == sql.ErrNoRows {
			return utils.NewStatusError(
				errors.New("unauthorized"),
				http.StatusUnauthorized,
			)
		}
		if err != nil {
			return utils.NewStatusError(
				errors.New("failed to check key against database"),
				http.StatusInternalServerError,
			)
		}
	}

	return nil
}
