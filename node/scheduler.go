package node

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/ipswyworld/ouroboros/anchor"
	"github.com/ipswyworld/ouroboros/db"
	"github.com/ipswyworld/ouroboros/relay"
	"github.com/ipswyworld/ouroboros/shared/params"
)

// Scheduler periodically scans for pending records whose window elapsed and
// drives them to their terminal state. Scans are idempotent: losing a
// transition race or hitting a still-open window is expected and skipped.
// Time comes from an injectable clock so tests and consensus-driven
// deployments can supply block timestamps.
type Scheduler struct {
	ctx      context.Context
	cancel   context.CancelFunc
	database db.Database
	relays   *relay.Service
	anchors  *anchor.Service
	nowFn    func() uint64
	interval time.Duration
}

// NewScheduler builds a scheduler over the two engines. A nil nowFn defaults
// to the local wall clock.
func NewScheduler(ctx context.Context, database db.Database, relays *relay.Service, anchors *anchor.Service, nowFn func() uint64) *Scheduler {
	if nowFn == nil {
		nowFn = func() uint64 { return uint64(time.Now().Unix()) }
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Scheduler{
		ctx:      ctx,
		cancel:   cancel,
		database: database,
		relays:   relays,
		anchors:  anchors,
		nowFn:    nowFn,
		interval: params.GuardianConfig().ScanInterval,
	}
}

// Start runs the scan loop until the scheduler is stopped.
func (s *Scheduler) Start() {
	log.WithField("interval", s.interval).Info("Starting background scheduler")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Tick(s.ctx, s.nowFn())
		case <-s.ctx.Done():
			return
		}
	}
}

// Stop halts the scan loop.
func (s *Scheduler) Stop() error {
	s.cancel()
	return nil
}

// Status of the scheduler.
func (s *Scheduler) Status() error {
	return nil
}

// Tick runs one full scan at the given time. Exported so tests and
// consensus-driven callers can step the scheduler deterministically.
func (s *Scheduler) Tick(ctx context.Context, now uint64) {
	s.scanRelays(ctx, now)
	s.scanAnchors(ctx, now)
	s.scanForceExits(ctx, now)
}

func (s *Scheduler) scanRelays(ctx context.Context, now uint64) {
	pending, err := s.database.PendingRelays(ctx)
	if err != nil {
		log.WithError(err).Error("Could not scan pending relays")
		return
	}
	for _, r := range pending {
		err := s.relays.ConfirmRelay(ctx, r.MessageHash, now)
		switch {
		case err == nil:
		case errors.Is(err, relay.ErrStillInChallengeWindow),
			errors.Is(err, relay.ErrUnresolvedFraudProof),
			errors.Is(err, relay.ErrAlreadyFinalized):
		default:
			log.WithError(err).Error("Could not confirm relay")
		}
	}
}

func (s *Scheduler) scanAnchors(ctx context.Context, now uint64) {
	pending, err := s.database.PendingAnchors(ctx)
	if err != nil {
		log.WithError(err).Error("Could not scan pending anchors")
		return
	}
	for _, a := range pending {
		err := s.anchors.FinalizeAnchor(ctx, a.AnchorHash, now)
		switch {
		case err == nil:
		case errors.Is(err, anchor.ErrStillInChallengeWindow),
			errors.Is(err, anchor.ErrChallengeUnresolved),
			errors.Is(err, anchor.ErrAlreadyFinalized):
		default:
			log.WithError(err).Error("Could not finalize anchor")
		}
	}
}

func (s *Scheduler) scanForceExits(ctx context.Context, now uint64) {
	pending, err := s.database.PendingForceExits(ctx)
	if err != nil {
		log.WithError(err).Error("Could not scan pending force exits")
		return
	}
	for _, e := range pending {
		_, err := s.anchors.ProcessForceExit(ctx, e.ID, now)
		switch {
		case err == nil:
		case errors.Is(err, anchor.ErrExitDelayActive),
			errors.Is(err, anchor.ErrAlreadyFinalized):
		default:
			log.WithError(err).Error("Could not process force exit")
		}
	}
}
