package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"

	"smarttrip/internal/domain/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS weights_global (
	feature    TEXT PRIMARY KEY,
	weight     DOUBLE PRECISION NOT NULL,
	updated_ts TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS weights_user (
	session_id TEXT NOT NULL,
	feature    TEXT NOT NULL,
	weight     DOUBLE PRECISION NOT NULL,
	updated_ts TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (session_id, feature)
);

CREATE TABLE IF NOT EXISTS recommendations (
	request_id   TEXT PRIMARY KEY,
	created_ts   TIMESTAMPTZ NOT NULL DEFAULT now(),
	session_id   TEXT,
	context_json JSONB NOT NULL,
	search_mode  TEXT,
	city         TEXT
);

CREATE TABLE IF NOT EXISTS recommendation_items (
	request_id TEXT NOT NULL REFERENCES recommendations(request_id) ON DELETE CASCADE,
	place_id   TEXT NOT NULL,
	position   INT NOT NULL,
	place_json JSONB NOT NULL,
	PRIMARY KEY (request_id, place_id)
);

CREATE TABLE IF NOT EXISTS events (
	id          BIGSERIAL PRIMARY KEY,
	created_ts  TIMESTAMPTZ NOT NULL DEFAULT now(),
	session_id  TEXT,
	request_id  TEXT,
	action      TEXT NOT NULL,
	place_id    TEXT,
	payload_json JSONB
);

CREATE INDEX IF NOT EXISTS idx_events_request ON events (request_id);
CREATE INDEX IF NOT EXISTS idx_events_session ON events (session_id);
`

// PostgresStore persists model weights, ranking snapshots and the event
// trail. It backs all three service-side store interfaces.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &PostgresStore{db: db}, nil
}

// Migrate creates the schema. Idempotent, runs at startup.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type weightRow struct {
	Feature string  `db:"feature"`
	Weight  float64 `db:"weight"`
}

func (s *PostgresStore) LoadGlobal(ctx context.Context) (model.WeightVector, error) {
	var rows []weightRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT feature, weight FROM weights_global`); err != nil {
		return nil, fmt.Errorf("failed to load global weights: %w", err)
	}
	weights := make(model.WeightVector, len(rows))
	for _, row := range rows {
		weights[row.Feature] = row.Weight
	}
	return weights, nil
}

func (s *PostgresStore) LoadUser(ctx context.Context, sessionID string) (model.WeightVector, error) {
	var rows []weightRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT feature, weight FROM weights_user WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user weights: %w", err)
	}
	weights := make(model.WeightVector, len(rows))
	for _, row := range rows {
		weights[row.Feature] = row.Weight
	}
	return weights, nil
}

func (s *PostgresStore) SaveGlobal(ctx context.Context, weights model.WeightVector) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin weights transaction: %w", err)
	}
	defer tx.Rollback()

	const upsert = `
		INSERT INTO weights_global (feature, weight, updated_ts)
		VALUES ($1, $2, now())
		ON CONFLICT (feature) DO UPDATE SET weight = EXCLUDED.weight, updated_ts = now()`
	for feature, weight := range weights {
		if _, err := tx.ExecContext(ctx, upsert, feature, weight); err != nil {
			return fmt.Errorf("failed to upsert global weight %s: %w", feature, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit global weights: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveUser(ctx context.Context, sessionID string, weights model.WeightVector) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin weights transaction: %w", err)
	}
	defer tx.Rollback()

	const upsert = `
		INSERT INTO weights_user (session_id, feature, weight, updated_ts)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (session_id, feature) DO UPDATE SET weight = EXCLUDED.weight, updated_ts = now()`
	for feature, weight := range weights {
		if _, err := tx.ExecContext(ctx, upsert, sessionID, feature, weight); err != nil {
			return fmt.Errorf("failed to upsert user weight %s: %w", feature, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user weights: %w", err)
	}
	return nil
}

// SeedIfEmpty inserts any seed features missing from the global table.
// Existing rows are left alone so tuned weights survive restarts.
func (s *PostgresStore) SeedIfEmpty(ctx context.Context, seed model.WeightVector) error {
	const insert = `
		INSERT INTO weights_global (feature, weight, updated_ts)
		VALUES ($1, $2, now())
		ON CONFLICT (feature) DO NOTHING`
	for feature, weight := range seed {
		if _, err := s.db.ExecContext(ctx, insert, feature, weight); err != nil {
			return fmt.Errorf("failed to seed weight %s: %w", feature, err)
		}
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, requestID, sessionID string, reqCtx model.Context, places []model.ScoredPlace) error {
	ctxJSON, err := json.Marshal(reqCtx)
	if err != nil {
		return fmt.Errorf("failed to marshal ranking context: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin ranking transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO recommendations (request_id, session_id, context_json, search_mode, city)
		 VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, ''))`,
		requestID, sessionID, ctxJSON, reqCtx.SearchMode, reqCtx.City)
	if err != nil {
		return fmt.Errorf("failed to insert ranking record: %w", err)
	}

	const insertItem = `
		INSERT INTO recommendation_items (request_id, place_id, position, place_json)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (request_id, place_id) DO NOTHING`
	for i, place := range places {
		placeJSON, err := json.Marshal(place)
		if err != nil {
			return fmt.Errorf("failed to marshal ranked place: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertItem, requestID, place.PlaceID, i, placeJSON); err != nil {
			return fmt.Errorf("failed to insert ranked place: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ranking record: %w", err)
	}
	return nil
}

// Load returns the logged context and ranked places for a request id,
// or (nil, nil, nil) when the id is unknown. Places come back in the
// exact order Save received them; pairwise learning replays them and
// its updates are order-dependent.
func (s *PostgresStore) Load(ctx context.Context, requestID string) (*model.Context, []model.ScoredPlace, error) {
	var ctxJSON []byte
	err := s.db.GetContext(ctx, &ctxJSON,
		`SELECT context_json FROM recommendations WHERE request_id = $1`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load ranking record: %w", err)
	}

	var reqCtx model.Context
	if err := json.Unmarshal(ctxJSON, &reqCtx); err != nil {
		return nil, nil, fmt.Errorf("failed to decode ranking context: %w", err)
	}

	var itemJSONs [][]byte
	err = s.db.SelectContext(ctx, &itemJSONs,
		`SELECT place_json FROM recommendation_items WHERE request_id = $1 ORDER BY position`, requestID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load ranked places: %w", err)
	}

	places := make([]model.ScoredPlace, 0, len(itemJSONs))
	for _, raw := range itemJSONs {
		var place model.ScoredPlace
		if err := json.Unmarshal(raw, &place); err != nil {
			return nil, nil, fmt.Errorf("failed to decode ranked place: %w", err)
		}
		places = append(places, place)
	}
	return &reqCtx, places, nil
}

func (s *PostgresStore) Append(ctx context.Context, event model.Event) error {
	var payloadJSON []byte
	if event.Payload != nil {
		var err error
		payloadJSON, err = json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal event payload: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (session_id, request_id, action, place_id, payload_json)
		 VALUES (NULLIF($1, ''), NULLIF($2, ''), $3, NULLIF($4, ''), $5)`,
		event.SessionID, event.RequestID, event.Action, event.PlaceID, payloadJSON)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}
