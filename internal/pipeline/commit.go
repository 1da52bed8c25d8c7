package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// CommitResult summarises one persistence pass.
type CommitResult struct {
	ListID   string
	Inserted int
	Skipped  int
}

// Committer writes a run's verified leads as a new list. Persistence is best
// effort: failures are logged and reflected only in the counters.
type Committer struct {
	store store.Store
	now   func() time.Time
}

// NewCommitter creates a Committer. st may be nil, in which case Commit is a
// no-op.
func NewCommitter(st store.Store) *Committer {
	return &Committer{store: st, now: time.Now}
}

// Commit creates a list and links every lead to it, inserting leads that are
// not yet stored.
func (c *Committer) Commit(ctx context.Context, leads []model.Lead) CommitResult {
	if c.store == nil {
		zap.L().Warn("pipeline: no datastore configured, skipping persistence", zap.Int("leads", len(leads)))
		return CommitResult{}
	}

	list, err := c.store.CreateList(ctx, model.DefaultListName(c.now()))
	if err != nil {
		zap.L().Error("pipeline: create list failed, leads not persisted", zap.Error(err))
		return CommitResult{}
	}

	res := CommitResult{ListID: list.ID}
	log := zap.L().With(zap.String("list_id", list.ID))

	for _, lead := range leads {
		llog := log.With(zap.String("name", lead.Name), zap.String("company", lead.Company))

		id, found, err := c.store.FindLead(ctx, lead.Name, lead.Company)
		if err != nil {
			llog.Error("pipeline: lookup lead failed", zap.Error(err))
			continue
		}

		inserted := false
		if !found {
			id, err = c.store.InsertLead(ctx, lead)
			switch {
			case errors.Is(err, store.ErrDuplicateLead):
				// Lost a race with another writer; use their row.
				id, found, err = c.store.FindLead(ctx, lead.Name, lead.Company)
				if err != nil || !found {
					llog.Warn("pipeline: duplicate lead could not be re-read", zap.Error(err))
					res.Skipped++
					continue
				}
			case err != nil:
				llog.Error("pipeline: insert lead failed", zap.Error(err))
				continue
			default:
				inserted = true
			}
		}

		if inserted {
			res.Inserted++
		} else {
			res.Skipped++
		}

		if err := c.store.LinkLead(ctx, list.ID, id); err != nil {
			llog.Error("pipeline: link lead failed", zap.String("lead_id", id), zap.Error(err))
		}
	}

	log.Info("pipeline: leads committed",
		zap.Int("inserted", res.Inserted),
		zap.Int("skipped", res.Skipped),
	)
	return res
}
