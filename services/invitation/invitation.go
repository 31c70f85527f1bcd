package invitation

import (
	"context"
	"errors"

	"nahio/models"
)

// ErrNotScout is returned when a non-scout asks for bookable institutions.
var ErrNotScout = errors.New("only scouts can invite institutions")

// InstitutionLister is satisfied by the profile directory.
type InstitutionLister interface {
	ListInstitutions(ctx context.Context) ([]models.InstitutionSummary, error)
}

// Service supplies the institutions a scout may schedule a visit with.
type Service struct {
	Institutions InstitutionLister
}

// EligibleInstitutions lists active institutions for the calling scout.
func (s *Service) EligibleInstitutions(ctx context.Context, actor models.Actor) ([]models.InstitutionSummary, error) {
	if actor.UserType != models.UserTypeScout {
		return nil, ErrNotScout
	}
	return s.Institutions.ListInstitutions(ctx)
}
