package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	profileRepo "nahio/database/repository/profile"
	"nahio/models"
	"nahio/services/identity"
)

// NameCache is told when a display name may have changed.
type NameCache interface {
	Forget(ctx context.Context, t models.UserType, id string)
}

type Service struct {
	Gateway  identity.Gateway
	Profiles profileRepo.ProfileRepository
	Names    NameCache
	Validate *validator.Validate
	Logger   *zap.Logger
}

func NewService(gw identity.Gateway, profiles profileRepo.ProfileRepository, names NameCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Gateway: gw, Profiles: profiles, Names: names, Validate: NewValidator(), Logger: logger}
}

type ScoutRegistration struct {
	Name            string `json:"name" validate:"required,min=2"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Phone           string `json:"phone"`
	Region          string `json:"region"`
}

// InstitutionStep is the first registration step: the school account.
type InstitutionStep struct {
	SchoolName      string `json:"schoolName" validate:"required,min=2"`
	CNPJ            string `json:"cnpj" validate:"required,cnpj"`
	Phone           string `json:"phone" validate:"required,min=8"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// GuardianStep is the last registration step: the guardian managing the school.
type GuardianStep struct {
	Name                string `json:"name" validate:"required,min=2"`
	Email               string `json:"email" validate:"required,email"`
	ProvisionalPassword string `json:"provisionalPassword" validate:"required,min=6"`
}

type InstitutionRegistration struct {
	Institution InstitutionStep `json:"institution"`
	Address     models.Address  `json:"address"`
	Guardian    GuardianStep    `json:"guardian"`
}

type RegistrationResult struct {
	UserID     string `json:"userId"`
	GuardianID string `json:"guardianId,omitempty"`
}

func normalizeAddress(a *models.Address) {
	a.CEP = Digits(a.CEP)
	a.Street = strings.TrimSpace(a.Street)
	a.Number = strings.TrimSpace(a.Number)
	a.Complement = strings.TrimSpace(a.Complement)
	a.District = strings.TrimSpace(a.District)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.ToUpper(strings.TrimSpace(a.State))
}

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (s *Service) RegisterScout(ctx context.Context, in ScoutRegistration) (*RegistrationResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = lowerTrim(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Region = strings.TrimSpace(in.Region)
	if err := s.Validate.Struct(in); err != nil {
		return nil, toValidationError(err)
	}

	uid, err := s.Gateway.CreateUser(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	err = s.Profiles.CreateUser(ctx, &models.User{ID: uid, Email: in.Email, UserType: models.UserTypeScout, IsActive: true})
	if err == nil {
		err = s.Profiles.SaveScout(ctx, &models.ScoutProfile{ID: uid, Name: in.Name, Phone: in.Phone, Region: in.Region})
	}
	if err != nil {
		s.rollback(ctx, created{uid, models.UserTypeScout})
		return nil, fmt.Errorf("account: failed to save scout profile: %w", err)
	}

	s.Logger.Info("Scout registered", zap.String("userId", uid))
	return &RegistrationResult{UserID: uid}, nil
}

// RegisterInstitution creates the institution account and its guardian, then
// asks the identity provider to send the guardian a password reset email so the
// provisional password gets replaced.
func (s *Service) RegisterInstitution(ctx context.Context, in InstitutionRegistration) (*RegistrationResult, error) {
	in.Institution.SchoolName = strings.TrimSpace(in.Institution.SchoolName)
	in.Institution.CNPJ = Digits(in.Institution.CNPJ)
	in.Institution.Phone = strings.TrimSpace(in.Institution.Phone)
	in.Institution.Email = lowerTrim(in.Institution.Email)
	in.Guardian.Name = strings.TrimSpace(in.Guardian.Name)
	in.Guardian.Email = lowerTrim(in.Guardian.Email)
	normalizeAddress(&in.Address)

	if err := s.Validate.Struct(in); err != nil {
		return nil, toValidationError(err)
	}
	if in.Guardian.Email == in.Institution.Email {
		return nil, &ValidationError{Field: "guardian.email", Message: "must differ from the institution email"}
	}

	instID, err := s.Gateway.CreateUser(ctx, in.Institution.Email, in.Institution.Password)
	if err != nil {
		return nil, err
	}
	guardianID, err := s.Gateway.CreateUser(ctx, in.Guardian.Email, in.Guardian.ProvisionalPassword)
	if err != nil {
		s.rollback(ctx, created{instID, models.UserTypeInstitution})
		return nil, err
	}

	if err := s.saveInstitution(ctx, instID, guardianID, in); err != nil {
		s.rollback(ctx, created{instID, models.UserTypeInstitution}, created{guardianID, models.UserTypeGuardian})
		return nil, fmt.Errorf("account: failed to save institution: %w", err)
	}

	if err := s.Gateway.SendPasswordReset(ctx, in.Guardian.Email); err != nil {
		s.Logger.Warn("Failed to send guardian password reset", zap.String("userId", guardianID), zap.Error(err))
	}
	s.Logger.Info("Institution registered", zap.String("userId", instID), zap.String("guardianId", guardianID))
	return &RegistrationResult{UserID: instID, GuardianID: guardianID}, nil
}

func (s *Service) saveInstitution(ctx context.Context, instID, guardianID string, in InstitutionRegistration) error {
	if err := s.Profiles.CreateUser(ctx, &models.User{ID: instID, Email: in.Institution.Email, UserType: models.UserTypeInstitution, IsActive: true}); err != nil {
		return err
	}
	if err := s.Profiles.SaveInstitution(ctx, &models.InstitutionProfile{
		ID:         instID,
		SchoolName: in.Institution.SchoolName,
		CNPJ:       in.Institution.CNPJ,
		Phone:      in.Institution.Phone,
		Address:    in.Address,
	}); err != nil {
		return err
	}
	if err := s.Profiles.CreateUser(ctx, &models.User{ID: guardianID, Email: in.Guardian.Email, UserType: models.UserTypeGuardian, IsActive: true}); err != nil {
		return err
	}
	return s.Profiles.SaveGuardian(ctx, &models.GuardianProfile{ID: guardianID, Name: in.Guardian.Name, InstitutionID: instID})
}

type created struct {
	uid      string
	userType models.UserType
}

// rollback removes the identities and any records written for an account whose
// registration failed, so a half-saved institution never becomes listable.
func (s *Service) rollback(ctx context.Context, accounts ...created) {
	for _, a := range accounts {
		if err := s.Profiles.DeleteUser(ctx, a.uid, a.userType); err != nil {
			s.Logger.Error("Failed to roll back profile", zap.String("userId", a.uid), zap.Error(err))
		}
		if err := s.Gateway.DeleteUser(ctx, a.uid); err != nil {
			s.Logger.Error("Failed to roll back identity", zap.String("userId", a.uid), zap.Error(err))
		}
	}
}

func (s *Service) GetUserData(ctx context.Context, uid string) (*models.UserData, error) {
	user, err := s.Profiles.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	profile, err := s.Profiles.GetProfile(ctx, uid, user.UserType)
	if err != nil {
		return nil, err
	}
	return &models.UserData{User: *user, Profile: profile}, nil
}

// UpdateProfile merges the patch into the caller's own profile.
func (s *Service) UpdateProfile(ctx context.Context, actor models.Actor, update models.ProfileUpdate) (*models.UserData, error) {
	fields := update.Fields()
	if len(fields) == 0 {
		return nil, &ValidationError{Message: "nothing to update"}
	}
	allowed := models.PatchableFields(actor.UserType)
	for name := range fields {
		if !allowed[name] {
			return nil, &ValidationError{Field: name, Message: "cannot be changed for this account type"}
		}
	}
	if err := s.normalizeUpdate(&update); err != nil {
		return nil, err
	}

	if err := s.Profiles.UpdateProfile(ctx, actor.UserID, actor.UserType, update); err != nil {
		return nil, err
	}
	if s.Names != nil && (update.Name != nil || update.SchoolName != nil) {
		s.Names.Forget(ctx, actor.UserType, actor.UserID)
	}
	return s.GetUserData(ctx, actor.UserID)
}

func (s *Service) normalizeUpdate(u *models.ProfileUpdate) error {
	for field, p := range map[string]*string{"name": u.Name, "schoolName": u.SchoolName} {
		if p == nil {
			continue
		}
		*p = strings.TrimSpace(*p)
		if len(*p) < 2 {
			return &ValidationError{Field: field, Message: "must have at least 2 characters"}
		}
	}
	if u.Phone != nil {
		*u.Phone = strings.TrimSpace(*u.Phone)
	}
	if u.Region != nil {
		*u.Region = strings.TrimSpace(*u.Region)
	}
	if u.Address != nil {
		normalizeAddress(u.Address)
		if err := s.Validate.Struct(u.Address); err != nil {
			if ve, ok := toValidationError(err).(*ValidationError); ok {
				ve.Field = "address." + ve.Field
				return ve
			}
			return err
		}
	}
	return nil
}

// RequestPasswordReset sends a reset email. Unknown addresses are not reported.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = lowerTrim(email)
	if err := s.Validate.Var(email, "required,email"); err != nil {
		return &ValidationError{Field: "email", Message: "must be a valid email"}
	}
	err := s.Gateway.SendPasswordReset(ctx, email)
	if errors.Is(err, identity.ErrUserNotFound) {
		s.Logger.Debug("Password reset requested for unknown email")
		return nil
	}
	return err
}

// RegisterDevice stores the FCM token push notifications are sent to.
func (s *Service) RegisterDevice(ctx context.Context, uid, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return &ValidationError{Field: "token", Message: "is required"}
	}
	return s.Profiles.SetFCMToken(ctx, uid, token)
}
