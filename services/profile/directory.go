package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	profileRepo "nahio/database/repository/profile"
	"nahio/models"
	"nahio/utils"

	"go.uber.org/zap"
)

// Directory resolves display names through a read-through cache and lists
// the institutions a scout may book.
type Directory struct {
	Repo   profileRepo.ProfileRepository
	Cache  utils.KV
	TTL    time.Duration
	Logger *zap.Logger
}

func NewDirectory(repo profileRepo.ProfileRepository, cache utils.KV, ttl time.Duration, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{Repo: repo, Cache: cache, TTL: ttl, Logger: logger}
}

func nameKey(t models.UserType, id string) string {
	return fmt.Sprintf("profile:name:%s:%s", t, id)
}

// InstitutionName returns the institution's schoolName.
func (d *Directory) InstitutionName(ctx context.Context, institutionID string) (string, error) {
	return d.name(ctx, models.UserTypeInstitution, institutionID)
}

// ScoutName returns the scout's name.
func (d *Directory) ScoutName(ctx context.Context, scoutID string) (string, error) {
	return d.name(ctx, models.UserTypeScout, scoutID)
}

func (d *Directory) name(ctx context.Context, t models.UserType, id string) (string, error) {
	key := nameKey(t, id)
	if d.Cache != nil {
		name, err := d.Cache.Get(ctx, key)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, utils.ErrCacheMiss) {
			d.Logger.Warn("name cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	p, err := d.Repo.GetProfile(ctx, id, t)
	if err != nil {
		return "", err
	}
	name := p.DisplayName()

	if d.Cache != nil {
		if err := d.Cache.Set(ctx, key, name, d.TTL); err != nil {
			d.Logger.Warn("name cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return name, nil
}

// Forget drops any cached name of the user, after a profile update.
func (d *Directory) Forget(ctx context.Context, t models.UserType, id string) {
	if d.Cache == nil {
		return
	}
	if err := d.Cache.Del(ctx, nameKey(t, id)); err != nil {
		d.Logger.Warn("name cache invalidation failed", zap.String("id", id), zap.Error(err))
	}
}

// ListInstitutions returns active institutions as directory entries.
func (d *Directory) ListInstitutions(ctx context.Context) ([]models.InstitutionSummary, error) {
	insts, err := d.Repo.ListActiveInstitutions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list institutions: %w", err)
	}
	out := make([]models.InstitutionSummary, 0, len(insts))
	for _, i := range insts {
		out = append(out, models.InstitutionSummary{
			ID:         i.ID,
			SchoolName: i.SchoolName,
			City:       i.Address.City,
			State:      i.Address.State,
		})
	}
	return out, nil
}
