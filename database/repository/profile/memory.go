package profileRepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"nahio/models"
)

// MemoryProfileRepo keeps users and profiles in process memory.
type MemoryProfileRepo struct {
	mu           sync.RWMutex
	users        map[string]models.User
	scouts       map[string]models.ScoutProfile
	institutions map[string]models.InstitutionProfile
	guardians    map[string]models.GuardianProfile
	// FailGets makes every read fail, for exercising fail-closed callers.
	FailGets error
}

func NewMemoryProfileRepo() *MemoryProfileRepo {
	return &MemoryProfileRepo{
		users:        make(map[string]models.User),
		scouts:       make(map[string]models.ScoutProfile),
		institutions: make(map[string]models.InstitutionProfile),
		guardians:    make(map[string]models.GuardianProfile),
	}
}

func (r *MemoryProfileRepo) CreateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryProfileRepo) GetUser(_ context.Context, uid string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FailGets != nil {
		return nil, r.FailGets
	}
	u, ok := r.users[uid]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryProfileRepo) GetProfile(_ context.Context, uid string, userType models.UserType) (*models.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FailGets != nil {
		return nil, r.FailGets
	}
	p := &models.Profile{UserType: userType}
	switch userType {
	case models.UserTypeScout:
		s, ok := r.scouts[uid]
		if !ok {
			return nil, ErrNotFound
		}
		p.Scout = &s
	case models.UserTypeInstitution:
		i, ok := r.institutions[uid]
		if !ok {
			return nil, ErrNotFound
		}
		p.Institution = &i
	case models.UserTypeGuardian:
		g, ok := r.guardians[uid]
		if !ok {
			return nil, ErrNotFound
		}
		p.Guardian = &g
	default:
		return nil, ErrUnknownUserType
	}
	return p, nil
}

func (r *MemoryProfileRepo) SaveScout(_ context.Context, p *models.ScoutProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stamp(&p.CreatedAt, &p.UpdatedAt)
	r.scouts[p.ID] = *p
	return nil
}

func (r *MemoryProfileRepo) SaveInstitution(_ context.Context, p *models.InstitutionProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stamp(&p.CreatedAt, &p.UpdatedAt)
	r.institutions[p.ID] = *p
	return nil
}

func (r *MemoryProfileRepo) SaveGuardian(_ context.Context, p *models.GuardianProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stamp(&p.CreatedAt, &p.UpdatedAt)
	r.guardians[p.ID] = *p
	return nil
}

func (r *MemoryProfileRepo) UpdateProfile(ctx context.Context, uid string, userType models.UserType, update models.ProfileUpdate) error {
	p, err := r.GetProfile(ctx, uid, userType)
	if err != nil {
		return err
	}
	update.ApplyTo(p)

	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	switch {
	case p.Scout != nil:
		p.Scout.UpdatedAt = now
		r.scouts[uid] = *p.Scout
	case p.Institution != nil:
		p.Institution.UpdatedAt = now
		r.institutions[uid] = *p.Institution
	case p.Guardian != nil:
		p.Guardian.UpdatedAt = now
		r.guardians[uid] = *p.Guardian
	}
	return nil
}

func (r *MemoryProfileRepo) ListActiveInstitutions(_ context.Context) ([]models.InstitutionProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FailGets != nil {
		return nil, r.FailGets
	}
	out := []models.InstitutionProfile{}
	for id, inst := range r.institutions {
		if u, ok := r.users[id]; ok && u.IsActive {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SchoolName < out[j].SchoolName })
	return out, nil
}

func (r *MemoryProfileRepo) SetFCMToken(_ context.Context, uid, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[uid]
	if !ok {
		return ErrNotFound
	}
	u.FCMToken = token
	u.UpdatedAt = time.Now().UTC()
	r.users[uid] = u
	return nil
}

func (r *MemoryProfileRepo) DeleteUser(_ context.Context, uid string, userType models.UserType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, uid)
	switch userType {
	case models.UserTypeScout:
		delete(r.scouts, uid)
	case models.UserTypeInstitution:
		delete(r.institutions, uid)
	case models.UserTypeGuardian:
		delete(r.guardians, uid)
	default:
		return ErrUnknownUserType
	}
	return nil
}

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}
