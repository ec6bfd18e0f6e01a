package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ServiceConfig holds the cycle-level settings of a DigestService
type ServiceConfig struct {
	MaxFetch     int
	Heartbeat    bool
	StateTTL     time.Duration
	Retry        RetryPolicy
	PollInterval time.Duration
}

// DigestService runs the fetch, classify, select, render and deliver cycle
type DigestService struct {
	source     MailSource
	sink       DeliverySink
	repo       StateRepository
	normalizer *Normalizer
	classifier *Classifier
	tracker    *Tracker
	scheduler  *Scheduler
	formatter  *Formatter
	metrics    Metrics
	logger     *zap.Logger
	cfg        ServiceConfig
}

// NewDigestService creates a new digest service
func NewDigestService(
	source MailSource,
	sink DeliverySink,
	repo StateRepository,
	normalizer *Normalizer,
	classifier *Classifier,
	tracker *Tracker,
	scheduler *Scheduler,
	formatter *Formatter,
	metrics Metrics,
	logger *zap.Logger,
	cfg ServiceConfig,
) *DigestService {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFetch <= 0 {
		cfg.MaxFetch = 30
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry = DefaultRetryPolicy
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	return &DigestService{
		source:     source,
		sink:       sink,
		repo:       repo,
		normalizer: normalizer,
		classifier: classifier,
		tracker:    tracker,
		scheduler:  scheduler,
		formatter:  formatter,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// Tick checks the schedule and runs a cycle when a slot is due. It returns
// the cycle report (nil when nothing was due) and how long to sleep next.
func (s *DigestService) Tick(ctx context.Context, now time.Time) (*CycleReport, time.Duration, error) {
	state := s.loadState(ctx)

	slot, superseded, due := s.scheduler.Due(state, now)
	if !due {
		return nil, s.scheduler.NextWake(state, now), nil
	}

	for _, missed := range superseded {
		s.logger.Info("Coalescing missed slot", zap.String("slot_id", missed.ID), zap.String("into", slot.ID))
	}

	report, err := s.RunCycle(ctx, state, slot, superseded, now)
	if err != nil {
		if report != nil && report.SendError != nil {
			return report, s.cfg.PollInterval, err
		}
		return report, s.scheduler.NextWake(state, now), err
	}
	return report, s.scheduler.NextWake(state, now), nil
}

// RunCycle processes one due slot against state. The slot and the notified
// items are marked only after a successful send; state is always saved.
func (s *DigestService) RunCycle(ctx context.Context, state *State, slot Slot, superseded []Slot, now time.Time) (*CycleReport, error) {
	started := time.Now()
	report := &CycleReport{SlotID: slot.ID, Buckets: make(map[Bucket]int)}
	defer func() {
		report.Duration = time.Since(started)
		s.metrics.ObserveCycle(*report)
	}()

	logger := s.logger.With(zap.String("slot_id", slot.ID))
	state.ensure()

	s.tracker.Prune(state, now)
	s.scheduler.PruneLedger(state, now, s.cfg.StateTTL)

	records, fetchErr := s.fetch(ctx)
	if fetchErr != nil {
		report.FetchError = fetchErr
		logger.Error("Mail fetch failed, treating cycle as empty", zap.Error(fetchErr))
	}
	report.Fetched = len(records)

	local := now.In(s.scheduler.Location())
	items := s.Process(ctx, records, local)
	report.Groups = len(items)
	for _, item := range items {
		report.Buckets[item.Bucket()]++
	}

	notify := s.tracker.Select(state, items, now)
	report.Notified = len(notify)

	logger.Info("Cycle classified",
		zap.Int("fetched", report.Fetched),
		zap.Int("groups", report.Groups),
		zap.Int("notify", report.Notified))

	if len(notify) == 0 {
		if s.cfg.Heartbeat && fetchErr == nil {
			if err := s.send(ctx, HeartbeatText); err != nil {
				logger.Warn("Heartbeat delivery failed", zap.Error(err))
			} else {
				report.Heartbeat = true
			}
		}
		s.scheduler.MarkSent(state, now, append(superseded, slot)...)
		s.saveState(ctx, state)
		return report, nil
	}

	text, err := s.formatter.Format(notify, slot.ID, now)
	if err != nil {
		logger.Error("Digest rendering failed, nothing sent", zap.Error(err))
		s.scheduler.MarkSent(state, now, append(superseded, slot)...)
		s.saveState(ctx, state)
		return report, fmt.Errorf("render digest: %w", err)
	}

	if err := s.send(ctx, text); err != nil {
		report.SendError = err
		logger.Error("Digest delivery failed, will retry", zap.Error(err))
		s.saveState(ctx, state)
		return report, fmt.Errorf("deliver digest: %w", err)
	}

	report.Sent = true
	s.tracker.MarkAlerted(state, notify, now)
	s.scheduler.MarkSent(state, now, append(superseded, slot)...)
	s.saveState(ctx, state)

	logger.Info("Digest delivered", zap.Int("items", len(notify)))
	return report, nil
}

// Process normalizes, groups and classifies a batch. now should carry the
// schedule's time zone.
func (s *DigestService) Process(ctx context.Context, records []RawRecord, now time.Time) []ClassifiedItem {
	groups := Aggregate(s.normalizer.NormalizeAll(records))
	return s.classifier.ClassifyAll(ctx, groups, now)
}

func (s *DigestService) fetch(ctx context.Context) ([]RawRecord, error) {
	var records []RawRecord
	err := s.cfg.Retry.Do(ctx, func(actx context.Context) error {
		r, err := s.source.FetchRecent(actx, s.cfg.MaxFetch)
		if err != nil {
			s.logger.Warn("Mail fetch attempt failed", zap.Error(err))
			return err
		}
		records = r
		return nil
	})
	return records, err
}

func (s *DigestService) send(ctx context.Context, text string) error {
	return s.cfg.Retry.Do(ctx, func(actx context.Context) error {
		err := s.sink.Send(actx, text)
		if err != nil {
			s.logger.Warn("Delivery attempt failed", zap.Error(err))
		}
		return err
	})
}

func (s *DigestService) loadState(ctx context.Context) *State {
	state, err := s.repo.Load(ctx)
	if err != nil || state == nil {
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("State unreadable, starting from empty state", zap.Error(err))
		}
		return NewState()
	}
	state.ensure()
	return state
}

func (s *DigestService) saveState(ctx context.Context, state *State) {
	if err := s.repo.Save(ctx, state); err != nil {
		s.logger.Error("Failed to save state", zap.Error(err))
	}
}
