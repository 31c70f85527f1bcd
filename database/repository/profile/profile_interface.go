package profileRepo

import (
	"context"
	"errors"

	"nahio/models"
)

var (
	ErrNotFound = errors.New("profile not found")
	// ErrUnknownUserType reports a base record whose userType selects no collection.
	ErrUnknownUserType = errors.New("unknown user type")
)

// Collection names of the typed profiles.
const (
	UsersCollection        = "users"
	ScoutsCollection       = "olheiros"
	InstitutionsCollection = "instituicoes"
	GuardiansCollection    = "responsaveis"
)

// CollectionFor maps a user type to the collection holding its profile.
func CollectionFor(t models.UserType) (string, error) {
	switch t {
	case models.UserTypeScout:
		return ScoutsCollection, nil
	case models.UserTypeInstitution:
		return InstitutionsCollection, nil
	case models.UserTypeGuardian:
		return GuardiansCollection, nil
	}
	return "", ErrUnknownUserType
}

// ProfileRepository reads and writes base user records and typed profiles.
type ProfileRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	// GetUser fails with ErrNotFound for unknown ids.
	GetUser(ctx context.Context, uid string) (*models.User, error)
	// GetProfile loads the typed profile selected by userType.
	GetProfile(ctx context.Context, uid string, userType models.UserType) (*models.Profile, error)
	SaveScout(ctx context.Context, p *models.ScoutProfile) error
	SaveInstitution(ctx context.Context, p *models.InstitutionProfile) error
	SaveGuardian(ctx context.Context, p *models.GuardianProfile) error
	// UpdateProfile merges the patch into the typed profile and refreshes updatedAt.
	UpdateProfile(ctx context.Context, uid string, userType models.UserType, update models.ProfileUpdate) error
	// ListActiveInstitutions returns institution profiles whose base record is active.
	ListActiveInstitutions(ctx context.Context) ([]models.InstitutionProfile, error)
	SetFCMToken(ctx context.Context, uid, token string) error
	// DeleteUser removes the base record and the typed profile. Missing records are not an error.
	DeleteUser(ctx context.Context, uid string, userType models.UserType) error
}
