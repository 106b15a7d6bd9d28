// Package monitor implements the fraud monitor: rolling per-entity activity
// statistics, threshold rules producing severity-graded alerts, and the
// blacklist consulted by the relay and anchor engines before accepting work.
package monitor

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	gocache "github.com/patrickmn/go-cache"

	"github.com/ipswyworld/ouroboros/db"
	"github.com/ipswyworld/ouroboros/shared/params"
	"github.com/ipswyworld/ouroboros/types"
)

// ServiceConfig wires the fraud monitor's dependencies.
type ServiceConfig struct {
	Database db.Database
}

// Service implements the fraud monitor. Statistics live in an expiring
// in-memory cache; alerts are kept in memory up to a retention bound; the
// blacklist is durable in the database.
type Service struct {
	cfg    *ServiceConfig
	ctx    context.Context
	cancel context.CancelFunc

	lock   sync.RWMutex
	stats  *gocache.Cache
	alerts []*types.Alert
}

// New instantiates a fraud monitor from configuration values.
func New(ctx context.Context, cfg *ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errors.New("fraud monitor requires a database")
	}
	ttl := params.GuardianConfig().StatsTTL
	ctx, cancel := context.WithCancel(ctx)
	return &Service{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		stats:  gocache.New(ttl, 2*ttl),
	}, nil
}

// Start the fraud monitor.
func (s *Service) Start() {
	log.Info("Starting fraud monitor")
	size, err := s.cfg.Database.BlacklistSize(s.ctx)
	if err != nil {
		log.WithError(err).Error("Could not read blacklist size")
		return
	}
	blacklistedEntities.Set(float64(size))
}

// Stop the fraud monitor.
func (s *Service) Stop() error {
	s.cancel()
	return nil
}

// Status of the fraud monitor.
func (s *Service) Status() error {
	return nil
}

// Context is the monitor's lifetime context, cancelled on Stop.
func (s *Service) Context() context.Context {
	return s.ctx
}

// statsFor returns the live stats record for an entity, creating it when
// absent. Callers must hold the service lock.
func (s *Service) statsFor(entity string) *EntityActivityStats {
	if st, ok := s.stats.Get(entity); ok {
		s.stats.SetDefault(entity, st)
		return st.(*EntityActivityStats)
	}
	st := &EntityActivityStats{Entity: entity}
	s.stats.SetDefault(entity, st)
	trackedEntities.Set(float64(s.stats.ItemCount()))
	return st
}

// ActivityStats returns a snapshot of an entity's rolling statistics, nil
// when the entity is unknown or its stats expired.
func (s *Service) ActivityStats(entity string) *EntityActivityStats {
	s.lock.RLock()
	defer s.lock.RUnlock()
	st, ok := s.stats.Get(entity)
	if !ok {
		return nil
	}
	return copyStats(st.(*EntityActivityStats))
}
