package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/wordbattle/duel-server-go/internal/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	// BumpStats adds one played game, and one win when won is true.
	BumpStats(ctx context.Context, id string, won bool) error
	TopByWins(ctx context.Context, limit int) ([]model.User, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) UserRepository
}

// userDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type userDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type userRepo struct {
	db userDB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) WithTx(tx *sqlx.Tx) UserRepository {
	return &userRepo{db: tx}
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) BumpStats(ctx context.Context, id string, won bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			total_games = total_games + 1,
			total_wins = total_wins + CASE WHEN $2 THEN 1 ELSE 0 END
		WHERE id = $1
	`, id, won)
	return err
}

func (r *userRepo) TopByWins(ctx context.Context, limit int) ([]model.User, error) {
	users := []model.User{}
	err := r.db.SelectContext(ctx, &users, `
		SELECT * FROM users
		WHERE total_games >= 1
		ORDER BY total_wins DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return users, nil
}
