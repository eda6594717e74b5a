package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"packliste/internal/model"
)

const maxCodeAttempts = 5

type LoginCodeStore struct {
	db *sql.DB
}

func NewLoginCodeStore(db *sql.DB) *LoginCodeStore {
	return &LoginCodeStore{db: db}
}

func scanLoginCode(scanner interface{ Scan(...any) error }) (*model.LoginCode, error) {
	var lc model.LoginCode
	var usedAt sql.NullTime

	err := scanner.Scan(&lc.ID, &lc.Email, &lc.Code, &lc.ExpiresAt, &usedAt, &lc.Attempts, &lc.CreatedAt)
	if err != nil {
		return nil, err
	}

	if usedAt.Valid {
		lc.UsedAt = &usedAt.Time
	}
	return &lc, nil
}

const loginCodeCols = `id, email, code, expires_at, used_at, attempts, created_at`

// generateCode returns a 6-digit numeric code (100000–999999).
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Create generates a new reset code with 15-minute expiry. Any previous
// pending codes for the same email are invalidated first.
func (s *LoginCodeStore) Create(email string) (*model.LoginCode, error) {
	_, err := s.db.Exec(
		`UPDATE login_codes SET used_at = datetime('now') WHERE email = ? AND used_at IS NULL AND expires_at > datetime('now')`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("invalidate previous codes: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().UTC().Add(15 * time.Minute)

	result, err := s.db.Exec(
		`INSERT INTO login_codes (email, code, expires_at) VALUES (?, ?, ?)`,
		email, code, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert login code: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+loginCodeCols+` FROM login_codes WHERE id = ?`, id)
	return scanLoginCode(row)
}

// Consume validates the code for the email, counting failed attempts.
// Returns the code record on success, nil when no valid match exists.
func (s *LoginCodeStore) Consume(email, code string) (*model.LoginCode, error) {
	row := s.db.QueryRow(
		`SELECT `+loginCodeCols+` FROM login_codes WHERE email = ? AND used_at IS NULL AND expires_at > datetime('now') ORDER BY created_at DESC LIMIT 1`,
		email,
	)
	lc, err := scanLoginCode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get login code: %w", err)
	}

	if lc.Attempts >= maxCodeAttempts {
		return nil, nil
	}

	if lc.Code != code {
		_, err := s.db.Exec(`UPDATE login_codes SET attempts = attempts + 1 WHERE id = ?`, lc.ID)
		if err != nil {
			return nil, fmt.Errorf("count attempt: %w", err)
		}
		return nil, nil
	}

	if _, err := s.db.Exec(`UPDATE login_codes SET used_at = datetime('now') WHERE id = ?`, lc.ID); err != nil {
		return nil, fmt.Errorf("mark code used: %w", err)
	}
	return lc, nil
}

// DeleteExpired removes stale codes; called periodically from main.
func (s *LoginCodeStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM login_codes WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, fmt.Errorf("delete expired codes: %w", err)
	}
	return result.RowsAffected()
}
