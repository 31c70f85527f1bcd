package profileRepo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"nahio/models"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreProfileRepo implements ProfileRepository on Cloud Firestore: a base
// users/{uid} document plus one typed document per user.
type FirestoreProfileRepo struct {
	client *firestore.Client
}

func NewFirestoreProfileRepo(client *firestore.Client) *FirestoreProfileRepo {
	return &FirestoreProfileRepo{client: client}
}

func (r *FirestoreProfileRepo) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if _, err := r.client.Collection(UsersCollection).Doc(user.ID).Set(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *FirestoreProfileRepo) GetUser(ctx context.Context, uid string) (*models.User, error) {
	snap, err := r.client.Collection(UsersCollection).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch user with id %s: %w", uid, err)
	}
	var user models.User
	if err := snap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", uid, err)
	}
	user.ID = snap.Ref.ID
	return &user, nil
}

func (r *FirestoreProfileRepo) GetProfile(ctx context.Context, uid string, userType models.UserType) (*models.Profile, error) {
	name, err := CollectionFor(userType)
	if err != nil {
		return nil, err
	}
	snap, err := r.client.Collection(name).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch %s profile %s: %w", userType, uid, err)
	}

	p := &models.Profile{UserType: userType}
	switch userType {
	case models.UserTypeScout:
		p.Scout = &models.ScoutProfile{}
		err = snap.DataTo(p.Scout)
		p.Scout.ID = uid
	case models.UserTypeInstitution:
		p.Institution = &models.InstitutionProfile{}
		err = snap.DataTo(p.Institution)
		p.Institution.ID = uid
	case models.UserTypeGuardian:
		p.Guardian = &models.GuardianProfile{}
		err = snap.DataTo(p.Guardian)
		p.Guardian.ID = uid
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s profile %s: %w", userType, uid, err)
	}
	return p, nil
}

func (r *FirestoreProfileRepo) save(ctx context.Context, collection, id string, doc any) error {
	if _, err := r.client.Collection(collection).Doc(id).Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to save %s profile %s: %w", collection, id, err)
	}
	return nil
}

func (r *FirestoreProfileRepo) SaveScout(ctx context.Context, p *models.ScoutProfile) error {
	stamp(&p.CreatedAt, &p.UpdatedAt)
	return r.save(ctx, ScoutsCollection, p.ID, p)
}

func (r *FirestoreProfileRepo) SaveInstitution(ctx context.Context, p *models.InstitutionProfile) error {
	stamp(&p.CreatedAt, &p.UpdatedAt)
	return r.save(ctx, InstitutionsCollection, p.ID, p)
}

func (r *FirestoreProfileRepo) SaveGuardian(ctx context.Context, p *models.GuardianProfile) error {
	stamp(&p.CreatedAt, &p.UpdatedAt)
	return r.save(ctx, GuardiansCollection, p.ID, p)
}

// UpdateProfile applies the patch with Update so missing documents fail
// instead of being created by a merge.
func (r *FirestoreProfileRepo) UpdateProfile(ctx context.Context, uid string, userType models.UserType, update models.ProfileUpdate) error {
	name, err := CollectionFor(userType)
	if err != nil {
		return err
	}
	updates := []firestore.Update{{Path: "updatedAt", Value: time.Now().UTC()}}
	for k, v := range update.Fields() {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	if _, err := r.client.Collection(name).Doc(uid).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update %s profile %s: %w", userType, uid, err)
	}
	return nil
}

func (r *FirestoreProfileRepo) ListActiveInstitutions(ctx context.Context) ([]models.InstitutionProfile, error) {
	iter := r.client.Collection(UsersCollection).
		Where("userType", "==", string(models.UserTypeInstitution)).
		Where("isActive", "==", true).
		Documents(ctx)
	defer iter.Stop()

	var refs []*firestore.DocumentRef
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list institutions: %w", err)
		}
		refs = append(refs, r.client.Collection(InstitutionsCollection).Doc(snap.Ref.ID))
	}

	out := []models.InstitutionProfile{}
	if len(refs) == 0 {
		return out, nil
	}
	snaps, err := r.client.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("failed to load institutions: %w", err)
	}
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		var inst models.InstitutionProfile
		if err := snap.DataTo(&inst); err != nil {
			return nil, fmt.Errorf("failed to decode institution %s: %w", snap.Ref.ID, err)
		}
		inst.ID = snap.Ref.ID
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SchoolName < out[j].SchoolName })
	return out, nil
}

func (r *FirestoreProfileRepo) SetFCMToken(ctx context.Context, uid, token string) error {
	_, err := r.client.Collection(UsersCollection).Doc(uid).Update(ctx, []firestore.Update{
		{Path: "fcmToken", Value: token},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to store fcm token for %s: %w", uid, err)
	}
	return nil
}

// DeleteUser removes both documents in one transaction.
func (r *FirestoreProfileRepo) DeleteUser(ctx context.Context, uid string, userType models.UserType) error {
	name, err := CollectionFor(userType)
	if err != nil {
		return err
	}
	err = r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Delete(r.client.Collection(name).Doc(uid)); err != nil {
			return err
		}
		return tx.Delete(r.client.Collection(UsersCollection).Doc(uid))
	})
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", uid, err)
	}
	return nil
}
