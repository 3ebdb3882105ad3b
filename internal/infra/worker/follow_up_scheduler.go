package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/lead-funnel/internal/config"
	"github.com/xavierca1/lead-funnel/internal/infra/metrics"
	"github.com/xavierca1/lead-funnel/internal/logger"
	"github.com/xavierca1/lead-funnel/internal/usecase"
)

const (
	TriggerTimer  = "timer"
	TriggerManual = "manual"
)

// ErrDrainTimeout is returned by Stop when in-flight sends were cut off.
var ErrDrainTimeout = errors.New("scheduler: drain timed out, in-flight sends cancelled")

// FollowUps is satisfied by usecase.FollowUpUseCase.
type FollowUps interface {
	Due(ctx context.Context) ([]usecase.DueFollowUp, error)
	Dispatch(ctx context.Context, email string, action usecase.Action) (usecase.TransitionResult, error)
}

type SweepReport struct {
	Trigger    string        `json:"trigger"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
	Due        int           `json:"due"`
	Sent       int           `json:"sent"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Incomplete bool          `json:"incomplete"`
}

type State struct {
	Running   bool         `json:"running"`
	Sweeping  bool         `json:"sweeping"`
	LastSweep *SweepReport `json:"last_sweep,omitempty"`
}

// FollowUpScheduler runs a sweep every SweepInterval. Sweeps never overlap: a
// tick that finds one running is dropped, a manual trigger waits for it.
type FollowUpScheduler struct {
	followUps FollowUps
	cfg       config.SchedulerConfig
	log       *logger.Logger

	sweepSlot chan struct{}
	sweeping  atomic.Bool
	inflight  sync.WaitGroup

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	loopDone  chan struct{}
	workCtx   context.Context
	cancelAll context.CancelFunc
	last      *SweepReport
}

func NewFollowUpScheduler(followUps FollowUps, cfg config.SchedulerConfig, log *logger.Logger) *FollowUpScheduler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &FollowUpScheduler{
		followUps: followUps,
		cfg:       cfg,
		log:       log.WithComponent("follow_up_scheduler"),
		sweepSlot: make(chan struct{}, 1),
	}
}

// Start installs the timer. A second call while running does nothing. The
// loop also ends when ctx does.
func (s *FollowUpScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	s.running = true
	s.stopCh = make(chan struct{})
	s.loopDone = make(chan struct{})
	s.workCtx, s.cancelAll = context.WithCancel(context.WithoutCancel(ctx))

	go s.loop(ctx, s.stopCh, s.loopDone)

	s.log.Info("scheduler started",
		slog.Duration("interval", s.cfg.SweepInterval),
		slog.Int("concurrency", s.cfg.Concurrency),
	)
}

func (s *FollowUpScheduler) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(stop)
		}
	}
}

// tick hands the sweep to its own goroutine so the timer keeps its cadence.
func (s *FollowUpScheduler) tick(stop <-chan struct{}) {
	select {
	case s.sweepSlot <- struct{}{}:
	default:
		metrics.RecordSweepSkipped()
		s.log.Warn("previous sweep still running, tick skipped")
		return
	}

	s.mu.Lock()
	ctx := s.workCtx
	s.mu.Unlock()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer func() { <-s.sweepSlot }()
		s.sweep(ctx, stop, TriggerTimer)
	}()
}

// TriggerSweepNow runs one sweep on the caller's goroutine, waiting for a
// running sweep to finish first.
func (s *FollowUpScheduler) TriggerSweepNow(ctx context.Context) (SweepReport, error) {
	select {
	case s.sweepSlot <- struct{}{}:
	case <-ctx.Done():
		return SweepReport{}, ctx.Err()
	}
	defer func() { <-s.sweepSlot }()

	// Add under mu so it is ordered before Stop's Wait.
	var stop chan struct{}
	s.mu.Lock()
	if s.running {
		stop = s.stopCh
		s.inflight.Add(1)
		defer s.inflight.Done()
	}
	s.mu.Unlock()

	report := s.sweep(ctx, stop, TriggerManual)
	return report, nil
}

// sweep is the only sweep implementation. Per-lead failures are counted and
// logged; they never end the sweep early. A closed stop channel does.
func (s *FollowUpScheduler) sweep(ctx context.Context, stop <-chan struct{}, trigger string) SweepReport {
	s.sweeping.Store(true)
	defer s.sweeping.Store(false)

	report := SweepReport{Trigger: trigger, StartedAt: time.Now()}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
		metrics.RecordSweep(trigger, report.Duration.Seconds())
		s.mu.Lock()
		r := report
		s.last = &r
		s.mu.Unlock()
	}()

	due, err := s.followUps.Due(ctx)
	if err != nil {
		s.log.Error("sweep fetch failed", slog.String("trigger", trigger), slog.Any("error", err))
		report.Incomplete = true
		return report
	}
	report.Due = len(due)

	var sent, skipped, failed atomic.Int64
	var cut atomic.Bool
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)

	for _, d := range due {
		if stopped(ctx, stop) {
			report.Incomplete = true
			break
		}

		g.Go(func() error {
			if stopped(ctx, stop) {
				cut.Store(true)
				return nil
			}
			res, err := s.followUps.Dispatch(ctx, d.Lead.Email, d.Candidate.Action)
			switch {
			case err != nil:
				failed.Add(1)
				s.log.Error("follow-up failed",
					slog.String("email", d.Lead.Email),
					slog.String("action", string(d.Candidate.Action)),
					slog.String("code", usecase.ErrorCode(err)),
					slog.Any("error", err),
				)
			case res.Applied:
				sent.Add(1)
			default:
				skipped.Add(1)
			}
			s.pause(ctx, stop)
			return nil
		})
	}
	_ = g.Wait()

	if cut.Load() {
		report.Incomplete = true
	}
	report.Sent = int(sent.Load())
	report.Skipped = int(skipped.Load())
	report.Failed = int(failed.Load())

	s.log.Info("sweep finished",
		slog.String("trigger", trigger),
		slog.Int("due", report.Due),
		slog.Int("sent", report.Sent),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
	)
	return report
}

func stopped(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// pause is the per-worker inter-send delay. It ends early on stop.
func (s *FollowUpScheduler) pause(ctx context.Context, stop <-chan struct{}) {
	if s.cfg.InterSendDelay <= 0 {
		return
	}
	t := time.NewTimer(s.cfg.InterSendDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-stop:
	case <-ctx.Done():
	}
}

// Stop stops new work and waits for in-flight sends, up to DrainTimeout or
// ctx, whichever ends first. Past that it cancels them and returns
// ErrDrainTimeout. Stopping a stopped scheduler is a no-op.
func (s *FollowUpScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	loopDone, cancelAll := s.loopDone, s.cancelAll
	s.mu.Unlock()

	<-loopDone

	drained := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(drained)
	}()

	timer := time.NewTimer(s.cfg.DrainTimeout)
	defer timer.Stop()

	var err error
	select {
	case <-drained:
	case <-timer.C:
		err = ErrDrainTimeout
	case <-ctx.Done():
		err = ErrDrainTimeout
	}
	cancelAll()

	if err != nil {
		s.log.Warn("scheduler stop forced", slog.Any("error", err))
	} else {
		s.log.Info("scheduler stopped")
	}
	return err
}

func (s *FollowUpScheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{Running: s.running, Sweeping: s.sweeping.Load()}
	if s.last != nil {
		r := *s.last
		st.LastSweep = &r
	}
	return st
}
