package models

import "time"

// UserType selects the role of an account and the collection holding its profile.
type UserType string

const (
	UserTypeScout       UserType = "olheiro"
	UserTypeInstitution UserType = "instituicao"
	UserTypeGuardian    UserType = "responsavel"
)

func (t UserType) IsValid() bool {
	switch t {
	case UserTypeScout, UserTypeInstitution, UserTypeGuardian:
		return true
	}
	return false
}

// User is the base account record kept for every identity.
type User struct {
	ID        string    `bson:"id" json:"id" firestore:"-"`
	Email     string    `bson:"email" json:"email" firestore:"email"`
	UserType  UserType  `bson:"userType" json:"userType" firestore:"userType"`
	IsActive  bool      `bson:"isActive" json:"isActive" firestore:"isActive"`
	FCMToken  string    `bson:"fcmToken,omitempty" json:"-" firestore:"fcmToken,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt" firestore:"updatedAt"`
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID   string
	UserType UserType
	// InstitutionID is set for guardians: the institution they manage.
	InstitutionID string
}

// ActsFor reports whether the actor speaks for the given institution, either
// as the institution account itself or as one of its guardians.
func (a Actor) ActsFor(institutionID string) bool {
	if institutionID == "" {
		return false
	}
	switch a.UserType {
	case UserTypeInstitution:
		return a.UserID == institutionID
	case UserTypeGuardian:
		return a.InstitutionID == institutionID
	}
	return false
}

// UserData is the base account record joined with its typed profile.
type UserData struct {
	User
	Profile *Profile `json:"profile"`
}

// ActorOf derives the service actor from loaded user data.
func ActorOf(data *UserData) Actor {
	actor := Actor{UserID: data.ID, UserType: data.UserType}
	if data.Profile != nil && data.Profile.Guardian != nil {
		actor.InstitutionID = data.Profile.Guardian.InstitutionID
	}
	return actor
}
