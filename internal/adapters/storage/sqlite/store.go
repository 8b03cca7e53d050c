package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/PabloGalante/farum-journey/internal/domain"
)

// Store keeps journeys and journal entries in one SQLite file. A journey is
// stored as a JSON document next to the columns used for lookups.
type Store struct {
	db *sql.DB
}

var (
	_ domain.JourneyStore = &Store{}
	_ domain.JournalStore = &Store{}
)

func NewStore(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlite store: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite store: open")
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS journeys (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  created_at_ms INTEGER NOT NULL,
  updated_at_ms INTEGER NOT NULL,
  body TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_journeys_user_created ON journeys(user_id, created_at_ms);

CREATE TABLE IF NOT EXISTS journal_entries (
  id TEXT PRIMARY KEY,
  journey_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  created_at_ms INTEGER NOT NULL,
  body TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_journal_entries_user_created ON journal_entries(user_id, created_at_ms);
`)
	return errors.Wrap(err, "sqlite store: migrate")
}

func (s *Store) CreateJourney(ctx context.Context, j *domain.Journey) error {
	body, err := json.Marshal(j)
	if err != nil {
		return errors.Wrap(err, "sqlite store: encode journey")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO journeys (id, user_id, created_at_ms, updated_at_ms, body) VALUES (?, ?, ?, ?, ?)`,
		string(j.ID), string(j.UserID), j.CreatedAt.UnixMilli(), j.UpdatedAt.UnixMilli(), string(body))
	if err != nil {
		return errors.Wrapf(err, "sqlite store: create journey %s", j.ID)
	}
	return nil
}

func (s *Store) SaveJourney(ctx context.Context, j *domain.Journey) error {
	body, err := json.Marshal(j)
	if err != nil {
		return errors.Wrap(err, "sqlite store: encode journey")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE journeys SET updated_at_ms = ?, body = ? WHERE id = ?`,
		j.UpdatedAt.UnixMilli(), string(body), string(j.ID))
	if err != nil {
		return errors.Wrapf(err, "sqlite store: save journey %s", j.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "sqlite store: rows affected")
	}
	if n == 0 {
		return errors.Wrapf(domain.ErrNotFound, "journey %s", j.ID)
	}
	return nil
}

func (s *Store) GetJourney(ctx context.Context, id domain.JourneyID) (*domain.Journey, error) {
	var body string
	row := s.db.QueryRowContext(ctx, `SELECT body FROM journeys WHERE id = ?`, string(id))
	switch err := row.Scan(&body); err {
	case nil:
	case sql.ErrNoRows:
		return nil, errors.Wrapf(domain.ErrNotFound, "journey %s", id)
	default:
		return nil, errors.Wrapf(err, "sqlite store: get journey %s", id)
	}

	var j domain.Journey
	if err := json.Unmarshal([]byte(body), &j); err != nil {
		return nil, errors.Wrapf(err, "sqlite store: decode journey %s", id)
	}
	return &j, nil
}

func (s *Store) ListJourneysByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Journey, error) {
	q := `SELECT body FROM journeys WHERE user_id = ? ORDER BY created_at_ms DESC`
	args := []any{string(userID)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite store: list journeys")
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Journey
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, errors.Wrap(err, "sqlite store: scan journey")
		}
		var j domain.Journey
		if err := json.Unmarshal([]byte(body), &j); err != nil {
			return nil, errors.Wrap(err, "sqlite store: decode journey")
		}
		out = append(out, &j)
	}
	return out, errors.Wrap(rows.Err(), "sqlite store: list journeys")
}

func (s *Store) AppendJournalEntry(ctx context.Context, entry *domain.JournalEntry) error {
	if entry == nil {
		return nil
	}
	if entry.ID == "" {
		entry.ID = domain.JournalEntryID(uuid.NewString())
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "sqlite store: encode journal entry")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO journal_entries (id, journey_id, user_id, created_at_ms, body) VALUES (?, ?, ?, ?, ?)`,
		string(entry.ID), string(entry.JourneyID), string(entry.UserID), entry.CreatedAt.UnixMilli(), string(body))
	return errors.Wrap(err, "sqlite store: append journal entry")
}

// ListJournalEntriesByUser returns the newest `limit` entries, oldest first.
// limit <= 0 returns all.
func (s *Store) ListJournalEntriesByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.JournalEntry, error) {
	q := `SELECT body FROM journal_entries WHERE user_id = ? ORDER BY created_at_ms DESC, rowid DESC`
	args := []any{string(userID)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite store: list journal entries")
	}
	defer func() { _ = rows.Close() }()

	out := []*domain.JournalEntry{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, errors.Wrap(err, "sqlite store: scan journal entry")
		}
		var e domain.JournalEntry
		if err := json.Unmarshal([]byte(body), &e); err != nil {
			return nil, errors.Wrap(err, "sqlite store: decode journal entry")
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite store: list journal entries")
	}

	for i, k := 0, len(out)-1; i < k; i, k = i+1, k-1 {
		out[i], out[k] = out[k], out[i]
	}
	return out, nil
}
