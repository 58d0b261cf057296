package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/EduCore-2025/exam-engine/internal/events"
	"github.com/EduCore-2025/exam-engine/internal/models"
	"github.com/EduCore-2025/exam-engine/internal/repositories"
	"github.com/EduCore-2025/exam-engine/internal/services"
	"github.com/EduCore-2025/exam-engine/internal/utils"
)

// Lifecycle runs the periodic sweeps that move sessions and contests through
// their states without any user action: session expiry, contest start and end,
// and retention archival. A failure on one entity is logged and never stops
// the rest of the sweep.
type Lifecycle struct {
	repo      repositories.Repository
	finalizer services.FinalizerService
	publisher events.EventPublisher
	clock     utils.Clock
	logger    utils.Logger

	retentionWindow time.Duration

	cron *cron.Cron
}

func NewLifecycle(
	repo repositories.Repository,
	finalizer services.FinalizerService,
	publisher events.EventPublisher,
	clock utils.Clock,
	logger utils.Logger,
	retentionWindow time.Duration,
) *Lifecycle {
	return &Lifecycle{
		repo:            repo,
		finalizer:       finalizer,
		publisher:       publisher,
		clock:           clock,
		logger:          logger,
		retentionWindow: retentionWindow,
	}
}

// Start registers the sweep under the given cron spec and begins ticking.
func (l *Lifecycle) Start(spec string) error {
	l.cron = cron.New()
	if _, err := l.cron.AddFunc(spec, func() {
		l.RunSweeps(context.Background())
	}); err != nil {
		return fmt.Errorf("failed to schedule lifecycle sweep: %w", err)
	}
	l.cron.Start()
	l.logger.Info("lifecycle scheduler started", "spec", spec)
	return nil
}

// Stop halts the ticker and waits for a running sweep to finish.
func (l *Lifecycle) Stop() {
	if l.cron == nil {
		return
	}
	ctx := l.cron.Stop()
	<-ctx.Done()
	l.logger.Info("lifecycle scheduler stopped")
}

// RunSweeps executes one full pass. Exposed so tests and operational tooling
// can trigger a tick directly.
func (l *Lifecycle) RunSweeps(ctx context.Context) {
	l.sweepExpiredSessions(ctx)
	l.sweepContestStarts(ctx)
	l.sweepContestEnds(ctx)
	l.sweepRetention(ctx)
}

// sweepExpiredSessions closes every active session whose deadline passed. The
// claim decides against a concurrent explicit finish; a lost claim is the
// normal outcome of that race and is skipped silently.
func (l *Lifecycle) sweepExpiredSessions(ctx context.Context) {
	now := l.clock.Now()
	sessions, err := l.repo.Session().FindExpiredActive(ctx, now)
	if err != nil {
		l.logger.ErrorContext(ctx, "expiry sweep query failed", "error", err)
		return
	}

	for _, session := range sessions {
		claimed, err := l.repo.Session().ClaimFinalize(ctx, session.ID, session.ExpiresAt)
		if err != nil {
			l.logger.ErrorContext(ctx, "expiry claim failed",
				"session_id", session.ID, "error", err)
			continue
		}
		if !claimed {
			continue
		}

		finishedAt := session.ExpiresAt
		session.FinishedAt = &finishedAt
		if _, err := l.finalizer.FinalizeSession(ctx, session, true); err != nil {
			l.logger.ErrorContext(ctx, "expired session finalize failed",
				"session_id", session.ID, "error", err)
			continue
		}
		l.logger.InfoContext(ctx, "expired session swept", "session_id", session.ID)
	}
}

// sweepContestStarts activates contests whose start time arrived.
func (l *Lifecycle) sweepContestStarts(ctx context.Context) {
	now := l.clock.Now()
	contests, err := l.repo.Contest().FindStartDue(ctx, now)
	if err != nil {
		l.logger.ErrorContext(ctx, "contest start sweep query failed", "error", err)
		return
	}

	for _, contest := range contests {
		ok, err := l.repo.Contest().TransitionStatus(ctx, contest.ID, models.ContestUpcoming, models.ContestActive)
		if err != nil {
			l.logger.ErrorContext(ctx, "contest start transition failed",
				"contest_id", contest.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}

		l.publishStatusChanged(ctx, contest.ID, models.ContestUpcoming, models.ContestActive)
		l.logger.InfoContext(ctx, "contest activated", "contest_id", contest.ID)
	}
}

// sweepContestEnds completes contests past their end time and finalizes each
// one. Losing the transition to an admin End call means the work is already
// done.
func (l *Lifecycle) sweepContestEnds(ctx context.Context) {
	now := l.clock.Now()
	contests, err := l.repo.Contest().FindEndDue(ctx, now)
	if err != nil {
		l.logger.ErrorContext(ctx, "contest end sweep query failed", "error", err)
		return
	}

	for _, contest := range contests {
		ok, err := l.repo.Contest().TransitionStatus(ctx, contest.ID, models.ContestActive, models.ContestCompleted)
		if err != nil {
			l.logger.ErrorContext(ctx, "contest end transition failed",
				"contest_id", contest.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}

		l.publishStatusChanged(ctx, contest.ID, models.ContestActive, models.ContestCompleted)

		contest.Status = models.ContestCompleted
		if err := l.finalizer.FinalizeContest(ctx, contest); err != nil {
			l.logger.ErrorContext(ctx, "contest finalize failed",
				"contest_id", contest.ID, "error", err)
			continue
		}
		l.logger.InfoContext(ctx, "contest completed", "contest_id", contest.ID)
	}
}

// sweepRetention archives completed contests older than the retention window.
// Best effort; an archival failure only affects that contest.
func (l *Lifecycle) sweepRetention(ctx context.Context) {
	cutoff := l.clock.Now().Add(-l.retentionWindow)
	contests, err := l.repo.Contest().FindArchivable(ctx, cutoff)
	if err != nil {
		l.logger.ErrorContext(ctx, "retention sweep query failed", "error", err)
		return
	}

	for _, contest := range contests {
		if err := l.repo.Contest().Archive(ctx, contest.ID, l.clock.Now()); err != nil {
			l.logger.ErrorContext(ctx, "contest archive failed",
				"contest_id", contest.ID, "error", err)
			continue
		}
		l.logger.InfoContext(ctx, "contest archived", "contest_id", contest.ID)
	}
}

func (l *Lifecycle) publishStatusChanged(ctx context.Context, contestID uint, from, to models.ContestStatus) {
	event := events.NewContestStatusChangedEvent(contestID, string(from), string(to), l.clock.Now())
	if err := l.publisher.PublishEngineEvent(ctx, event); err != nil {
		l.logger.WarnContext(ctx, "failed to publish contest status event", "error", err)
	}
}
