package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const journalLogPrefix = "db:journal"

// DefaultRecentLimit caps Recent when the caller passes no limit.
const DefaultRecentLimit = 100

// querier is the subset of pgxpool.Pool the journal uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Journal records subscription changes for audit.
type Journal struct {
	db querier
}

// NewJournal creates a Journal on pool.
func NewJournal(pool *pgxpool.Pool) *Journal {
	return &Journal{db: pool}
}

// Record stores entry. A zero ID is replaced by a new UUID and a zero Created
// by the current time; the stored entry is returned.
func (j *Journal) Record(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Created.IsZero() {
		entry.Created = time.Now().UTC()
	}

	_, err := j.db.Exec(ctx,
		`INSERT INTO subscription_journal (id, callsign, channel_id, event, client, status, accepted, code, created)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID.String(), entry.Callsign, int64(entry.ChannelID), entry.Event, entry.Client,
		entry.Status, entry.Accepted, entry.Code, entry.Created)
	if err != nil {
		return entry, fmt.Errorf("%s - failed to record %s of %s by %s: %w", journalLogPrefix, entry.Status, entry.Event, entry.Client, err)
	}

	slog.Debug(fmt.Sprintf("%s - recorded %s id=%s", journalLogPrefix, entry.Status, entry.ID))
	return entry, nil
}

// Recent returns the latest entries of callsign, newest first.
func (j *Journal) Recent(ctx context.Context, callsign string, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := j.db.Query(ctx,
		`SELECT id::text, callsign, channel_id, event, client, status, accepted, code, created
		 FROM subscription_journal
		 WHERE callsign = $1
		 ORDER BY created DESC
		 LIMIT $2`, callsign, limit)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to query journal: %w", journalLogPrefix, err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var (
			e         JournalEntry
			id        string
			channelID int64
		)
		if err := rows.Scan(&id, &e.Callsign, &channelID, &e.Event, &e.Client, &e.Status, &e.Accepted, &e.Code, &e.Created); err != nil {
			return nil, fmt.Errorf("%s - failed to scan journal row: %w", journalLogPrefix, err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("%s - bad journal id %q: %w", journalLogPrefix, id, err)
		}
		e.ChannelID = uint32(channelID)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s - journal rows: %w", journalLogPrefix, err)
	}
	return out, nil
}

// Prune deletes entries older than before and returns how many were removed.
func (j *Journal) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := j.db.Exec(ctx, `DELETE FROM subscription_journal WHERE created < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("%s - failed to prune journal: %w", journalLogPrefix, err)
	}
	if n := tag.RowsAffected(); n > 0 {
		slog.Info(fmt.Sprintf("%s - pruned %d journal entries older than %s", journalLogPrefix, n, before.Format(time.RFC3339)))
	}
	return tag.RowsAffected(), nil
}
