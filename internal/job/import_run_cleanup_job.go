package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type importRunPurger interface {
	DeleteBefore(ctx context.Context, cutoff int64) (int64, error)
}

// ImportRunCleanupJob purges import run reports older than maxAge.
type ImportRunCleanupJob struct {
	runs   importRunPurger
	maxAge time.Duration
	now    func() time.Time
}

func NewImportRunCleanupJob(runs importRunPurger, maxAge time.Duration) *ImportRunCleanupJob {
	return &ImportRunCleanupJob{runs: runs, maxAge: maxAge, now: time.Now}
}

func (j *ImportRunCleanupJob) Name() string {
	return "import_run_cleanup"
}

func (j *ImportRunCleanupJob) Run(ctx context.Context) error {
	if j.runs == nil {
		return nil
	}
	maxAge := j.maxAge
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	cutoff := j.now().Add(-maxAge).Unix()
	deleted, err := j.runs.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("import runs purged", zap.Int64("deleted", deleted), zap.Int64("cutoff", cutoff))
	return nil
}
