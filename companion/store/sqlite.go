// Package store persists conversation messages, extracted memories, and grief
// readings in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/theimaginaryfoundation/pet-companion/companion"
)

// SQLiteStore implements companion.Store and companion.GriefLog.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

var (
	_ companion.Store    = (*SQLiteStore)(nil)
	_ companion.GriefLog = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens or creates a SQLite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("open db: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// newID is time-ordered, including within a millisecond.
func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS messages (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		pet_id     TEXT NOT NULL,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		emotion    TEXT,
		score      REAL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_pet ON messages(pet_id, created_at);

	CREATE TABLE IF NOT EXISTS memories (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		pet_id      TEXT NOT NULL,
		memory_type TEXT NOT NULL,
		title       TEXT NOT NULL,
		content     TEXT NOT NULL,
		importance  INTEGER NOT NULL CHECK (importance BETWEEN 1 AND 10),
		time_info   TEXT,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_pet_importance ON memories(pet_id, importance DESC);

	CREATE TABLE IF NOT EXISTS grief_readings (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		pet_id     TEXT NOT NULL,
		stage      TEXT NOT NULL,
		confidence REAL NOT NULL,
		source     TEXT NOT NULL,
		at         TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_grief_user_pet ON grief_readings(user_id, pet_id, at);
	`)
	return err
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, m companion.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	var emotion *string
	if m.Emotion != "" {
		e := string(m.Emotion)
		emotion = &e
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, user_id, pet_id, role, content, emotion, score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.newID(), m.UserID, m.PetID, m.Role, m.Content, emotion, m.Score, formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit messages for a pet, oldest first.
func (s *SQLiteStore) RecentMessages(ctx context.Context, petID string, limit int) ([]companion.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, pet_id, role, content, emotion, score, created_at
		 FROM messages WHERE pet_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`, petID, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []companion.Message
	for rows.Next() {
		var (
			m         companion.Message
			emotion   sql.NullString
			score     sql.NullFloat64
			createdAt string
		)
		if err := rows.Scan(&m.UserID, &m.PetID, &m.Role, &m.Content, &emotion, &score, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Emotion = companion.Emotion(emotion.String)
		if score.Valid {
			v := score.Float64
			m.Score = &v
		}
		m.CreatedAt = parseTime(createdAt)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}

// AppendMemory stores m and returns it with its new ID and owner fields set.
func (s *SQLiteStore) AppendMemory(ctx context.Context, userID, petID string, m companion.PetMemory) (companion.PetMemory, error) {
	if m.Importance < 1 || m.Importance > 10 {
		return companion.PetMemory{}, fmt.Errorf("insert memory: importance %d outside 1..10", m.Importance)
	}
	var timeInfo *string
	if m.TimeInfo != nil {
		b, err := json.Marshal(m.TimeInfo)
		if err != nil {
			return companion.PetMemory{}, fmt.Errorf("encode time info: %w", err)
		}
		v := string(b)
		timeInfo = &v
	}

	m.ID = s.newID()
	m.UserID, m.PetID = userID, petID
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (id, user_id, pet_id, memory_type, title, content, importance, time_info, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, userID, petID, string(m.MemoryType), m.Title, m.Content, m.Importance, timeInfo, formatTime(time.Now().UTC()))
	if err != nil {
		return companion.PetMemory{}, fmt.Errorf("insert memory: %w", err)
	}
	return m, nil
}

// TopMemories returns a pet's memories by importance descending, newest first
// among equals. A non-positive limit returns all of them.
func (s *SQLiteStore) TopMemories(ctx context.Context, petID string, limit int) ([]companion.PetMemory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, pet_id, memory_type, title, content, importance, time_info
		 FROM memories WHERE pet_id = ?
		 ORDER BY importance DESC, created_at DESC, id DESC LIMIT ?`, petID, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	var out []companion.PetMemory
	for rows.Next() {
		var (
			m        companion.PetMemory
			memType  string
			timeInfo sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.PetID, &memType, &m.Title, &m.Content, &m.Importance, &timeInfo); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		m.MemoryType = companion.MemoryType(memType)
		if timeInfo.Valid && timeInfo.String != "" {
			var ti companion.TimeInfo
			if err := json.Unmarshal([]byte(timeInfo.String), &ti); err != nil {
				return nil, fmt.Errorf("decode time info for %s: %w", m.ID, err)
			}
			m.TimeInfo = &ti
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AppendGriefReading(ctx context.Context, userID, petID string, r companion.GriefReading) error {
	if r.At.IsZero() {
		r.At = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO grief_readings (id, user_id, pet_id, stage, confidence, source, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.newID(), userID, petID, string(r.Stage), r.Confidence, r.Source, formatTime(r.At))
	if err != nil {
		return fmt.Errorf("insert grief reading: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GriefTrajectory(ctx context.Context, userID, petID string, limit int) ([]companion.GriefReading, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, confidence, source, at FROM grief_readings
		 WHERE user_id = ? AND pet_id = ?
		 ORDER BY at DESC, id DESC LIMIT ?`, userID, petID, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query grief readings: %w", err)
	}
	defer rows.Close()

	var out []companion.GriefReading
	for rows.Next() {
		var (
			r     companion.GriefReading
			stage string
			at    string
		)
		if err := rows.Scan(&stage, &r.Confidence, &r.Source, &at); err != nil {
			return nil, fmt.Errorf("scan grief reading: %w", err)
		}
		r.Stage = companion.GriefStage(stage)
		r.At = parseTime(at)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}

// Timestamps are fixed-width so lexical order is chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

// sqlLimit maps "no limit" to SQLite's -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
