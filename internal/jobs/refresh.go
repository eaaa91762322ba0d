package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/berfenger/receiptpanel/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const REFRESH_REPORTS_JOB = "refresh_reports"

// RefreshReportsJob asks the panel to re-list the generated reports.
type RefreshReportsJob struct {
	root   *actor.RootContext
	target *actor.PID
	logger *zap.Logger
}

var _ quartz.Job = (*RefreshReportsJob)(nil)

func NewRefreshReportsJob(root *actor.RootContext, target *actor.PID, logger *zap.Logger) *RefreshReportsJob {
	return &RefreshReportsJob{root: root, target: target, logger: logger}
}

func (j *RefreshReportsJob) Execute(_ context.Context) error {
	j.logger.Debug("jobs: refresh reports")
	j.root.Send(j.target, domain.RefreshReportsRequest{})
	return nil
}

func (j *RefreshReportsJob) Description() string {
	return REFRESH_REPORTS_JOB
}

// StartListingRefresh runs the refresh job every interval until ctx is done.
func StartListingRefresh(ctx context.Context, interval time.Duration, root *actor.RootContext, target *actor.PID, logger *zap.Logger) (quartz.Scheduler, error) {
	if interval <= 0 {
		return nil, errors.New("listing refresh interval must be positive")
	}
	sched := quartz.NewStdScheduler()
	sched.Start(ctx)

	detail := quartz.NewJobDetail(NewRefreshReportsJob(root, target, logger), quartz.NewJobKey(REFRESH_REPORTS_JOB))
	if err := sched.ScheduleJob(detail, quartz.NewSimpleTrigger(interval)); err != nil {
		sched.Stop()
		return nil, err
	}
	logger.Info("jobs: listing refresh scheduled", zap.Duration("interval", interval))
	return sched, nil
}
