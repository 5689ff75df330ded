package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/wordbattle/duel-server-go/internal/model"
)

type MatchRepository interface {
	Create(ctx context.Context, params model.CreateMatchParams) (*model.Match, error)
	FindByRoom(ctx context.Context, room string) (*model.Match, error)
	FindByPlayer(ctx context.Context, playerID string, limit int) ([]model.Match, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) MatchRepository
}

// matchDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type matchDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type matchRepo struct {
	db matchDB
}

func NewMatchRepository(db *sqlx.DB) MatchRepository {
	return &matchRepo{db: db}
}

func (r *matchRepo) WithTx(tx *sqlx.Tx) MatchRepository {
	return &matchRepo{db: tx}
}

func (r *matchRepo) Create(ctx context.Context, params model.CreateMatchParams) (*model.Match, error) {
	var match model.Match
	err := r.db.GetContext(ctx, &match, `
		INSERT INTO matches (room, p1_id, p2_id, score_p1, score_p2, winner_id, duration)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, params.Room, params.P1ID, params.P2ID, params.ScoreP1, params.ScoreP2, params.WinnerID, params.Duration)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (r *matchRepo) FindByRoom(ctx context.Context, room string) (*model.Match, error) {
	var match model.Match
	err := r.db.GetContext(ctx, &match, `
		SELECT * FROM matches WHERE room = $1
	`, room)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (r *matchRepo) FindByPlayer(ctx context.Context, playerID string, limit int) ([]model.Match, error) {
	matches := []model.Match{}
	err := r.db.SelectContext(ctx, &matches, `
		SELECT * FROM matches
		WHERE p1_id = $1 OR p2_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, err
	}
	return matches, nil
}
