package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"symptom-insights/pkg"
)

// ErrNotFound is returned when an insight id does not exist.
var ErrNotFound = errors.New("insight not found")

const (
	// DefaultListLimit is used when a caller asks for a non-positive limit.
	DefaultListLimit = 20
	// MaxListLimit caps a single page of history.
	MaxListLimit = 200
)

// Repository stores insight history in PostgreSQL.
type Repository struct {
	DB       *sql.DB
	Notifier *Notifier
	Log      *logrus.Logger
}

// NewRepository constructs a new Repository from an existing sql.DB.
// The caller is responsible for managing the DB connection lifecycle.
func NewRepository(db *sql.DB, notifier *Notifier, log *logrus.Logger) *Repository {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Repository{DB: db, Notifier: notifier, Log: log}
}

// Ping checks the connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

// SaveInsight inserts rec, assigning its ID and CreatedAt, then announces
// the new id on the notify channel.  A failed notification is logged and
// does not fail the save.
func (r *Repository) SaveInsight(ctx context.Context, rec *pkg.InsightRecord) error {
	structured, err := encodeInsight(rec.Insight)
	if err != nil {
		return err
	}
	id := uuid.New()
	err = r.DB.QueryRowContext(ctx,
		`INSERT INTO insights (id, subject, assistant_id, prompt, reply, structured)
         VALUES ($1, $2, $3, $4, $5, $6)
         RETURNING created_at`,
		id, rec.Subject, rec.AssistantID, rec.Prompt, rec.Reply, structured,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert insight: %w", err)
	}
	rec.ID = id.String()

	if err := r.Notifier.Notify(ctx, rec.ID); err != nil {
		r.Log.WithError(err).WithField("insight_id", rec.ID).Warn("failed to notify insight")
	}
	return nil
}

// ListInsights returns the most recent insights, newest first.
func (r *Repository) ListInsights(ctx context.Context, limit int) ([]pkg.InsightRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, subject, assistant_id, prompt, reply, structured, created_at
         FROM insights
         ORDER BY created_at DESC
         LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []pkg.InsightRecord{}
	for rows.Next() {
		rec, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// GetInsight loads one insight.  Ids that are not UUIDs are reported as
// ErrNotFound.
func (r *Repository) GetInsight(ctx context.Context, id string) (*pkg.InsightRecord, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	row := r.DB.QueryRowContext(ctx,
		`SELECT id, subject, assistant_id, prompt, reply, structured, created_at
         FROM insights
         WHERE id = $1`, parsed)
	rec, err := scanInsight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInsight(s scanner) (*pkg.InsightRecord, error) {
	var (
		rec        pkg.InsightRecord
		structured []byte
	)
	if err := s.Scan(&rec.ID, &rec.Subject, &rec.AssistantID, &rec.Prompt, &rec.Reply, &structured, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if len(structured) > 0 {
		var insight pkg.StructuredInsight
		if err := json.Unmarshal(structured, &insight); err != nil {
			return nil, fmt.Errorf("decode structured insight %s: %w", rec.ID, err)
		}
		if insight.Medications == nil {
			insight.Medications = []string{}
		}
		rec.Insight = &insight
	}
	return &rec, nil
}

// encodeInsight returns the jsonb value for insight, or nil for SQL NULL.
func encodeInsight(insight *pkg.StructuredInsight) (any, error) {
	if insight == nil {
		return nil, nil
	}
	b, err := json.Marshal(insight)
	if err != nil {
		return nil, fmt.Errorf("encode structured insight: %w", err)
	}
	return string(b), nil
}
