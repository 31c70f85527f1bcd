package profileRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nahio/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoProfileRepo implements ProfileRepository using MongoDB, one collection per profile type.
type MongoProfileRepo struct {
	db    *mongo.Database
	users *mongo.Collection
}

func NewMongoProfileRepo(db *mongo.Database) *MongoProfileRepo {
	return &MongoProfileRepo{db: db, users: db.Collection(UsersCollection)}
}

// newContext creates a context with the given timeout.
func newContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

// EnsureIndexes creates indexes for fields frequently used in queries.
func (r *MongoProfileRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	if _, err := r.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userType", Value: 1}, {Key: "isActive", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	for _, name := range []string{ScoutsCollection, InstitutionsCollection, GuardiansCollection} {
		if _, err := r.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}

// Migrate satisfies the migrate command's schema hook.
func (r *MongoProfileRepo) Migrate(ctx context.Context) error {
	return r.EnsureIndexes(ctx)
}

func (r *MongoProfileRepo) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if _, err := r.users.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *MongoProfileRepo) GetUser(ctx context.Context, uid string) (*models.User, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	var user models.User
	if err := r.users.FindOne(ctx, bson.M{"id": uid}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch user with id %s: %w", uid, err)
	}
	return &user, nil
}

func (r *MongoProfileRepo) GetProfile(ctx context.Context, uid string, userType models.UserType) (*models.Profile, error) {
	name, err := CollectionFor(userType)
	if err != nil {
		return nil, err
	}
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	res := r.db.Collection(name).FindOne(ctx, bson.M{"id": uid})
	p := &models.Profile{UserType: userType}
	switch userType {
	case models.UserTypeScout:
		p.Scout = &models.ScoutProfile{}
		err = res.Decode(p.Scout)
	case models.UserTypeInstitution:
		p.Institution = &models.InstitutionProfile{}
		err = res.Decode(p.Institution)
	case models.UserTypeGuardian:
		p.Guardian = &models.GuardianProfile{}
		err = res.Decode(p.Guardian)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch %s profile %s: %w", userType, uid, err)
	}
	return p, nil
}

func (r *MongoProfileRepo) upsert(ctx context.Context, collection, id string, doc any) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	if _, err := r.db.Collection(collection).ReplaceOne(ctx, bson.M{"id": id}, doc, opts); err != nil {
		return fmt.Errorf("failed to save %s profile %s: %w", collection, id, err)
	}
	return nil
}

func (r *MongoProfileRepo) SaveScout(ctx context.Context, p *models.ScoutProfile) error {
	stamp(&p.CreatedAt, &p.UpdatedAt)
	return r.upsert(ctx, ScoutsCollection, p.ID, p)
}

func (r *MongoProfileRepo) SaveInstitution(ctx context.Context, p *models.InstitutionProfile) error {
	stamp(&p.CreatedAt, &p.UpdatedAt)
	return r.upsert(ctx, InstitutionsCollection, p.ID, p)
}

func (r *MongoProfileRepo) SaveGuardian(ctx context.Context, p *models.GuardianProfile) error {
	stamp(&p.CreatedAt, &p.UpdatedAt)
	return r.upsert(ctx, GuardiansCollection, p.ID, p)
}

func (r *MongoProfileRepo) UpdateProfile(ctx context.Context, uid string, userType models.UserType, update models.ProfileUpdate) error {
	name, err := CollectionFor(userType)
	if err != nil {
		return err
	}
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{"updatedAt": time.Now().UTC()}
	for k, v := range update.Fields() {
		set[k] = v
	}
	result, err := r.db.Collection(name).UpdateOne(ctx, bson.M{"id": uid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update %s profile %s: %w", userType, uid, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActiveInstitutions joins institution profiles with their active base records.
func (r *MongoProfileRepo) ListActiveInstitutions(ctx context.Context) ([]models.InstitutionProfile, error) {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         UsersCollection,
			"localField":   "id",
			"foreignField": "id",
			"as":           "user",
		}}},
		{{Key: "$match", Value: bson.M{"user.isActive": true}}},
		{{Key: "$project", Value: bson.M{"user": 0}}},
		{{Key: "$sort", Value: bson.M{"schoolName": 1}}},
	}
	cursor, err := r.db.Collection(InstitutionsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list institutions: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.InstitutionProfile{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode institutions: %w", err)
	}
	return out, nil
}

func (r *MongoProfileRepo) SetFCMToken(ctx context.Context, uid, token string) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	result, err := r.users.UpdateOne(ctx, bson.M{"id": uid}, bson.M{"$set": bson.M{
		"fcmToken":  token,
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("failed to store fcm token for %s: %w", uid, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoProfileRepo) DeleteUser(ctx context.Context, uid string, userType models.UserType) error {
	name, err := CollectionFor(userType)
	if err != nil {
		return err
	}
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.db.Collection(name).DeleteOne(ctx, bson.M{"id": uid}); err != nil {
		return fmt.Errorf("failed to delete %s profile %s: %w", name, uid, err)
	}
	if _, err := r.users.DeleteOne(ctx, bson.M{"id": uid}); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", uid, err)
	}
	return nil
}
