package mysql

import (
	"context"
	"database/sql"
	"errors"
)

// Repo is the durable CredentialStore, selected when MYSQL_DSN is set.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Save(ctx context.Context, username, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, upsertUserSQL, username, passwordHash)
	return err
}

func (r *Repo) Get(ctx context.Context, username string) (string, bool, error) {
	var hash string
	err := r.db.QueryRowContext(ctx, getUserSQL, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}
