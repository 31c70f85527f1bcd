package repository

import (
	"context"
	"fmt"

	"nahio/database"
	appointmentRepo "nahio/database/repository/appointment"
	profileRepo "nahio/database/repository/profile"
)

// Re-export the AppointmentRepository interface and constructors.
type AppointmentRepository = appointmentRepo.AppointmentRepository

var (
	NewMemoryAppointmentRepo    = appointmentRepo.NewMemoryAppointmentRepo
	NewMongoAppointmentRepo     = appointmentRepo.NewMongoAppointmentRepo
	NewFirestoreAppointmentRepo = appointmentRepo.NewFirestoreAppointmentRepo
	NewPostgresAppointmentRepo  = appointmentRepo.NewPostgresAppointmentRepo
)

// Re-export the ProfileRepository interface and constructors.
type ProfileRepository = profileRepo.ProfileRepository

var (
	NewMemoryProfileRepo    = profileRepo.NewMemoryProfileRepo
	NewMongoProfileRepo     = profileRepo.NewMongoProfileRepo
	NewFirestoreProfileRepo = profileRepo.NewFirestoreProfileRepo
)

// Store names accepted by APPOINTMENT_STORE and PROFILE_STORE.
const (
	StoreFirestore = "firestore"
	StoreMongo     = "mongo"
	StorePostgres  = "postgres"
	StoreMemory    = "memory"
)

// Migrator is implemented by stores that own indexes or a schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// NewAppointmentRepository selects the appointment store. The matching
// database client must already be initialized.
func NewAppointmentRepository(store string) (AppointmentRepository, error) {
	switch store {
	case StoreFirestore:
		if database.FirestoreClient == nil {
			return nil, fmt.Errorf("appointment store %q: firestore not initialized", store)
		}
		return NewFirestoreAppointmentRepo(database.FirestoreClient), nil
	case StoreMongo:
		if database.MongoClient == nil {
			return nil, fmt.Errorf("appointment store %q: mongo not initialized", store)
		}
		return NewMongoAppointmentRepo(database.MongoDatabase()), nil
	case StorePostgres:
		if database.PostgresPool == nil {
			return nil, fmt.Errorf("appointment store %q: postgres not initialized", store)
		}
		return NewPostgresAppointmentRepo(database.PostgresPool), nil
	case StoreMemory:
		return NewMemoryAppointmentRepo(), nil
	}
	return nil, fmt.Errorf("unknown appointment store %q", store)
}

// NewProfileRepository selects the profile store.
func NewProfileRepository(store string) (ProfileRepository, error) {
	switch store {
	case StoreFirestore:
		if database.FirestoreClient == nil {
			return nil, fmt.Errorf("profile store %q: firestore not initialized", store)
		}
		return NewFirestoreProfileRepo(database.FirestoreClient), nil
	case StoreMongo:
		if database.MongoClient == nil {
			return nil, fmt.Errorf("profile store %q: mongo not initialized", store)
		}
		return NewMongoProfileRepo(database.MongoDatabase()), nil
	case StoreMemory:
		return NewMemoryProfileRepo(), nil
	}
	return nil, fmt.Errorf("unknown profile store %q", store)
}
