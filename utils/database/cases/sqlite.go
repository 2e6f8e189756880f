package cases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"modlog-bot/model"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const casesSchema = `CREATE TABLE IF NOT EXISTS cases (
	guild_id TEXT NOT NULL,
	case_id INTEGER NOT NULL,
	action TEXT NOT NULL,
	moderator_id TEXT NOT NULL,
	subject_id TEXT NOT NULL,
	reason TEXT NOT NULL,
	duration TEXT NOT NULL DEFAULT 'N/A',
	appealable TEXT NOT NULL DEFAULT 'N/A',
	timestamp TEXT NOT NULL,
	end_time DATETIME,
	PRIMARY KEY (guild_id, case_id)
);`

// SQLiteStore keeps cases in a single SQLite table.
type SQLiteStore struct {
	db *sqlx.DB
}

// OpenSQLite connects to the database at dbPath and ensures the table exists.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlx.Connect("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to case database: %w", err)
	}
	// One writer at a time; sweeps and commands share the connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(casesSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cases table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) NextID(ctx context.Context, guildID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM cases WHERE guild_id = ?`, guildID)
	if err != nil {
		return 0, storageErr("count", guildID, 0, err)
	}
	return count + 1, nil
}

func (s *SQLiteStore) Create(ctx context.Context, c model.Case) error {
	query := `INSERT OR REPLACE INTO cases (guild_id, case_id, action, moderator_id, subject_id, reason, duration, appealable, timestamp, end_time)
			  VALUES (:guild_id, :case_id, :action, :moderator_id, :subject_id, :reason, :duration, :appealable, :timestamp, :end_time)`
	if c.EndTime != nil {
		t := c.EndTime.UTC()
		c.EndTime = &t
	}
	if _, err := s.db.NamedExecContext(ctx, query, c); err != nil {
		return storageErr("create", c.GuildID, c.CaseID, err)
	}
	return nil
}

func (s *SQLiteStore) Read(ctx context.Context, guildID string, caseID int) (model.Case, error) {
	var c model.Case
	err := s.db.GetContext(ctx, &c, `SELECT * FROM cases WHERE guild_id = ? AND case_id = ?`, guildID, caseID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Case{}, notFound(guildID, caseID)
	}
	if err != nil {
		return model.Case{}, storageErr("read", guildID, caseID, err)
	}
	normalize(&c, guildID, caseID)
	return c, nil
}

func (s *SQLiteStore) Update(ctx context.Context, guildID string, caseID int, mutate Mutator) (model.Case, error) {
	c, err := s.Read(ctx, guildID, caseID)
	if err != nil {
		return model.Case{}, err
	}
	if err := mutate(&c); err != nil {
		return model.Case{}, err
	}
	normalize(&c, guildID, caseID)

	query := `UPDATE cases SET action = :action, moderator_id = :moderator_id, subject_id = :subject_id,
			  reason = :reason, duration = :duration, appealable = :appealable, timestamp = :timestamp, end_time = :end_time
			  WHERE guild_id = :guild_id AND case_id = :case_id`
	result, err := s.db.NamedExecContext(ctx, query, c)
	if err != nil {
		return model.Case{}, storageErr("update", guildID, caseID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return model.Case{}, storageErr("update", guildID, caseID, err)
	}
	if rowsAffected == 0 {
		return model.Case{}, notFound(guildID, caseID)
	}
	return c, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, guildID string, caseID int) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cases WHERE guild_id = ? AND case_id = ?`, guildID, caseID)
	if err != nil {
		return storageErr("delete", guildID, caseID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return storageErr("delete", guildID, caseID, err)
	}
	if rowsAffected == 0 {
		return notFound(guildID, caseID)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, guildID string) ([]model.Case, error) {
	var records []model.Case
	err := s.db.SelectContext(ctx, &records, `SELECT * FROM cases WHERE guild_id = ? ORDER BY case_id`, guildID)
	if err != nil {
		return nil, storageErr("list", guildID, 0, err)
	}
	for i := range records {
		normalize(&records[i], guildID, records[i].CaseID)
	}
	return records, nil
}

func (s *SQLiteStore) ListGuilds(ctx context.Context) ([]string, error) {
	var guilds []string
	if err := s.db.SelectContext(ctx, &guilds, `SELECT DISTINCT guild_id FROM cases ORDER BY guild_id`); err != nil {
		return nil, storageErr("list guilds", "*", 0, err)
	}
	return guilds, nil
}
