package cases

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"modlog-bot/model"
	"modlog-bot/utils"

	"github.com/sirupsen/logrus"
)

// Allocator hands out the id for a guild's next case.
type Allocator interface {
	Allocate(ctx context.Context, guildID string) (int, error)
}

// CountAllocator uses Store.NextID (stored case count plus one). After a
// deletion it can return an id that is still in use, and Create then
// overwrites that case. Kept as the default so existing case numbering
// continues unchanged.
type CountAllocator struct {
	Store Store
}

func (a CountAllocator) Allocate(ctx context.Context, guildID string) (int, error) {
	return a.Store.NextID(ctx, guildID)
}

// SequenceAllocator keeps a per-guild high-water mark, seeded from the
// largest stored id on first use. Ids are never reissued while the process
// runs; across restarts only ids above the largest surviving case can be
// handed out again. It must be the only allocator writing to the store.
type SequenceAllocator struct {
	store Store
	log   logrus.FieldLogger
	mu    sync.Mutex
	last  map[string]int
}

func NewSequenceAllocator(store Store) *SequenceAllocator {
	return &SequenceAllocator{store: store, log: utils.Log, last: make(map[string]int)}
}

// caseIDLister is implemented by stores that can name their case ids
// without decoding the records.
type caseIDLister interface {
	CaseIDs(ctx context.Context, guildID string) ([]int, error)
}

func (a *SequenceAllocator) Allocate(ctx context.Context, guildID string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	last, seeded := a.last[guildID]
	if !seeded {
		var err error
		if last, err = a.seed(ctx, guildID); err != nil {
			return 0, fmt.Errorf("seeding case sequence for guild %s: %w", guildID, err)
		}
	}
	last++
	a.last[guildID] = last
	return last, nil
}

// seed returns the largest id in use. Unreadable records still hold their
// id, so a partial List is topped up from the store's id listing.
func (a *SequenceAllocator) seed(ctx context.Context, guildID string) (int, error) {
	records, err := a.store.List(ctx, guildID)
	last := maxCaseID(records)
	if err == nil {
		return last, nil
	}

	if lister, ok := a.store.(caseIDLister); ok {
		ids, lerr := lister.CaseIDs(ctx, guildID)
		if lerr != nil {
			return 0, errors.Join(err, lerr)
		}
		for _, id := range ids {
			if id > last {
				last = id
			}
		}
	} else if len(records) == 0 {
		return 0, err
	}
	a.log.WithError(err).WithFields(logrus.Fields{
		"guild_id": guildID,
		"last_id":  last,
	}).Warn("Some cases could not be read while seeding the case sequence")
	return last, nil
}

func maxCaseID(records []model.Case) int {
	highest := 0
	for _, c := range records {
		if c.CaseID > highest {
			highest = c.CaseID
		}
	}
	return highest
}

// NewAllocator returns the allocator selected by mode (model.AllocateCount
// or model.AllocateSequence).
func NewAllocator(mode string, store Store) (Allocator, error) {
	switch mode {
	case model.AllocateCount, "":
		return CountAllocator{Store: store}, nil
	case model.AllocateSequence:
		return NewSequenceAllocator(store), nil
	}
	return nil, fmt.Errorf("unsupported case id allocation %q", mode)
}
