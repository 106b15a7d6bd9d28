package monitor

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ipswyworld/ouroboros/types"
)

// BlacklistEntity bars an entity from submitting relays and anchors. The
// insert is idempotent; a permanent entry can never be cleared.
func (s *Service) BlacklistEntity(ctx context.Context, entity, reason string, permanent bool, now uint64) error {
	entry := &types.BlacklistEntry{
		Entity:    entity,
		Reason:    reason,
		Permanent: permanent,
		CreatedAt: now,
	}
	if err := s.cfg.Database.SaveBlacklistEntry(ctx, entry); err != nil {
		return errors.Wrap(err, "could not save blacklist entry")
	}
	s.refreshBlacklistGauge(ctx)
	log.WithField("entity", entity).WithField(
		"permanent", permanent).WithField("reason", reason).Warn("Entity blacklisted")
	return nil
}

// RemoveBlacklistEntry clears a non-permanent blacklist entry.
func (s *Service) RemoveBlacklistEntry(ctx context.Context, entity string) error {
	if err := s.cfg.Database.DeleteBlacklistEntry(ctx, entity); err != nil {
		return err
	}
	s.refreshBlacklistGauge(ctx)
	log.WithField("entity", entity).Info("Blacklist entry removed")
	return nil
}

// IsBlacklisted reports whether an entity is barred. Lookup failures are
// logged and treated as not blacklisted rather than blocking the engines.
func (s *Service) IsBlacklisted(entity string) bool {
	barred, err := s.cfg.Database.IsBlacklisted(s.ctx, entity)
	if err != nil {
		log.WithError(err).WithField("entity", entity).Error("Could not check blacklist")
		return false
	}
	return barred
}

func (s *Service) refreshBlacklistGauge(ctx context.Context) {
	size, err := s.cfg.Database.BlacklistSize(ctx)
	if err != nil {
		log.WithError(err).Debug("Could not read blacklist size")
		return
	}
	blacklistedEntities.Set(float64(size))
}
