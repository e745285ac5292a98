package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS profiles (
		uid TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'free',
		settings_json TEXT NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS bets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		sport TEXT NOT NULL,
		type TEXT NOT NULL,
		matchup TEXT NOT NULL,
		pick TEXT NOT NULL,
		player TEXT NOT NULL DEFAULT '',
		stat_type TEXT NOT NULL DEFAULT '',
		line REAL NOT NULL DEFAULT 0,
		confidence REAL NOT NULL DEFAULT 0,
		odds TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		stake REAL NOT NULL DEFAULT 0,
		units REAL NOT NULL DEFAULT 0,
		result TEXT NOT NULL DEFAULT '',
		graded INTEGER NOT NULL DEFAULT 0,
		source TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_bets_user_date ON bets(user_id, date);
	CREATE INDEX IF NOT EXISTS idx_bets_ungraded ON bets(date) WHERE graded = 0;

	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		blocks TEXT NOT NULL DEFAULT '',
		session_date TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_user_date ON chat_messages(user_id, session_date);
	CREATE INDEX IF NOT EXISTS idx_chat_user_ts ON chat_messages(user_id, timestamp);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) GetProfile(ctx context.Context, uid string) (Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT uid, display_name, email, role, settings_json FROM profiles WHERE uid = ?`, uid)
	var p Profile
	var settingsJSON string
	if err := row.Scan(&p.UID, &p.DisplayName, &p.Email, &p.Role, &settingsJSON); err != nil {
		if err == sql.ErrNoRows {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if err := json.Unmarshal([]byte(settingsJSON), &p.Settings); err != nil {
		return Profile{}, fmt.Errorf("decode settings: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) PutProfile(ctx context.Context, p Profile) error {
	settingsJSON, err := json.Marshal(p.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (uid, display_name, email, role, settings_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			display_name = excluded.display_name,
			email = excluded.email,
			role = excluded.role,
			settings_json = excluded.settings_json`,
		p.UID, p.DisplayName, p.Email, p.Role, string(settingsJSON))
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AddBet(ctx context.Context, b TrackedBet) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bets (id, user_id, sport, type, matchup, pick, player, stat_type,
			line, confidence, odds, date, stake, units, result, graded, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.Sport, b.Type, b.Matchup, b.Pick, b.Player, b.StatType,
		b.Line, b.Confidence, b.Odds, b.Date, b.Stake, b.Units, b.Result,
		boolToInt(b.Graded), b.Source, b.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("add bet: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteBet(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) FindBet(ctx context.Context, uid, matchup, pick string) (TrackedBet, error) {
	row := s.db.QueryRowContext(ctx,
		betSelect+` WHERE user_id = ? AND matchup = ? AND pick = ? LIMIT 1`,
		uid, matchup, pick)
	return scanBet(row)
}

func (s *SQLiteStore) ListBetsByDate(ctx context.Context, uid, date string) ([]TrackedBet, error) {
	rows, err := s.db.QueryContext(ctx,
		betSelect+` WHERE user_id = ? AND date = ? ORDER BY created_at`, uid, date)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	defer rows.Close()
	return collectBets(rows)
}

func (s *SQLiteStore) ListUngradedBets(ctx context.Context, before string) ([]TrackedBet, error) {
	rows, err := s.db.QueryContext(ctx,
		betSelect+` WHERE graded = 0 AND date < ? ORDER BY date`, before)
	if err != nil {
		return nil, fmt.Errorf("list ungraded bets: %w", err)
	}
	defer rows.Close()
	return collectBets(rows)
}

func (s *SQLiteStore) GradeBet(ctx context.Context, id, result string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bets SET result = ?, graded = 1 WHERE id = ?`, result, id)
	if err != nil {
		return fmt.Errorf("grade bet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const betSelect = `SELECT id, user_id, sport, type, matchup, pick, player, stat_type,
	line, confidence, odds, date, stake, units, result, graded, source, created_at FROM bets`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBet(row rowScanner) (TrackedBet, error) {
	var b TrackedBet
	var graded int
	var createdAt int64
	err := row.Scan(&b.ID, &b.UserID, &b.Sport, &b.Type, &b.Matchup, &b.Pick,
		&b.Player, &b.StatType, &b.Line, &b.Confidence, &b.Odds, &b.Date,
		&b.Stake, &b.Units, &b.Result, &graded, &b.Source, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return TrackedBet{}, ErrNotFound
		}
		return TrackedBet{}, fmt.Errorf("scan bet: %w", err)
	}
	b.Graded = graded != 0
	b.CreatedAt = time.UnixMilli(createdAt).UTC()
	return b, nil
}

func collectBets(rows *sql.Rows) ([]TrackedBet, error) {
	var out []TrackedBet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, m ChatMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, user_id, role, content, blocks, session_date, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.Role, m.Content, m.Blocks, m.SessionDate, m.Timestamp)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListMessagesByDate(ctx context.Context, uid, date string) ([]ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, role, content, blocks, session_date, timestamp
		FROM chat_messages WHERE user_id = ? AND session_date = ?
		ORDER BY timestamp`, uid, date)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

func (s *SQLiteStore) ListRecentMessages(ctx context.Context, uid string, limit int) ([]ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, role, content, blocks, session_date, timestamp
		FROM chat_messages WHERE user_id = ?
		ORDER BY timestamp DESC LIMIT ?`, uid, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

func (s *SQLiteStore) DeleteMessagesByDate(ctx context.Context, uid, date string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM chat_messages WHERE user_id = ? AND session_date = ?`, uid, date)
	if err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return nil
}

func collectMessages(rows *sql.Rows) ([]ChatMessage, error) {
	var out []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.Blocks,
			&m.SessionDate, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
