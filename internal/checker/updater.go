package checker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/apigate/internal/apidb"
)

// Updater records the API of a merged branch as the accepted snapshot of
// its category.
type Updater struct {
	store    SnapshotStore
	branches map[string]string
	logger   *zap.Logger
}

// NewUpdater returns an Updater writing to st.
func NewUpdater(st SnapshotStore, branches map[string]string, logger *zap.Logger) *Updater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Updater{store: st, branches: branches, logger: logger}
}

// Run imports the snapshot at snapshotPath for the category of branch. It
// returns a nil result for an unmanaged branch.
func (u *Updater) Run(ctx context.Context, branch, snapshotPath string) (*apidb.ComparisonResult, error) {
	category, ok := u.branches[branch]
	if !ok || category == "" {
		u.logger.Info("branch is not managed, skipping", zap.String("branch", branch))
		return nil, nil
	}

	next, err := apidb.LoadSnapshotFile(snapshotPath)
	if err != nil {
		return nil, err
	}
	res, err := u.store.Import(ctx, category, next)
	if err != nil {
		return nil, fmt.Errorf("importing %s snapshot: %w", category, err)
	}
	u.logger.Info("snapshot updated",
		zap.String("branch", branch),
		zap.String("category", category),
		zap.Int("entries", next.Len()),
		zap.Int("changed", res.TotalChangedCount))
	return res, nil
}
