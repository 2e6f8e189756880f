// Package cases persists moderation cases, keyed by guild and case id.
//
// Stores do no locking beyond what a single statement or file write gives:
// concurrent updates of one case are last-writer-wins, and NextID computed
// while another caller creates a case can hand both callers the same id.
// Moderation traffic is low and single-operator, so this is accepted; use
// a SequenceAllocator when ids must never repeat.
package cases

import (
	"context"
	"errors"
	"fmt"

	"modlog-bot/model"
)

// ErrNotFound is returned when a case id has no stored record.
var ErrNotFound = errors.New("case not found")

// StorageError wraps an I/O failure of the underlying store.
type StorageError struct {
	Op      string
	GuildID string
	CaseID  int
	Err     error
}

func (e *StorageError) Error() string {
	if e.CaseID > 0 {
		return fmt.Sprintf("case store %s (guild %s, case #%d): %v", e.Op, e.GuildID, e.CaseID, e.Err)
	}
	return fmt.Sprintf("case store %s (guild %s): %v", e.Op, e.GuildID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Mutator edits a case in place. Returning an error aborts the update.
type Mutator func(c *model.Case) error

// Store is the durable case record storage.
type Store interface {
	// NextID returns the number of stored cases in the guild plus one. It
	// is recomputed on every call, so deleting a case can make it return
	// the id of a case that still exists.
	NextID(ctx context.Context, guildID string) (int, error)
	// Create writes c under (c.GuildID, c.CaseID), replacing any record there.
	Create(ctx context.Context, c model.Case) error
	Read(ctx context.Context, guildID string, caseID int) (model.Case, error)
	// Update reads the case, applies mutate and writes it back.
	Update(ctx context.Context, guildID string, caseID int, mutate Mutator) (model.Case, error)
	Delete(ctx context.Context, guildID string, caseID int) error
	// List returns the guild's cases ordered by id. Records that cannot be
	// read are reported in the error next to the cases that could.
	List(ctx context.Context, guildID string) ([]model.Case, error)
	// ListGuilds returns every guild that has stored cases.
	ListGuilds(ctx context.Context) ([]string, error)
	Close() error
}

func notFound(guildID string, caseID int) error {
	return fmt.Errorf("case #%d in guild %s: %w", caseID, guildID, ErrNotFound)
}

func storageErr(op, guildID string, caseID int, err error) error {
	return &StorageError{Op: op, GuildID: guildID, CaseID: caseID, Err: err}
}

// normalize pins the store-owned fields after a read.
func normalize(c *model.Case, guildID string, caseID int) {
	c.GuildID = guildID
	c.CaseID = caseID
	if c.EndTime != nil {
		t := c.EndTime.UTC()
		c.EndTime = &t
	}
}

// Open opens the store selected by cfg.StoreBackend.
func Open(cfg *model.Config) (Store, error) {
	switch cfg.StoreBackend {
	case model.StoreSQLite:
		return OpenSQLite(cfg.DBPath)
	case model.StoreJSON:
		return OpenFileStore(cfg.ModLogPath)
	}
	return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
}
