package models

import "time"

type ScoutProfile struct {
	ID        string    `bson:"id" json:"id" firestore:"-"`
	Name      string    `bson:"name" json:"name" firestore:"name"`
	Phone     string    `bson:"phone,omitempty" json:"phone,omitempty" firestore:"phone,omitempty"`
	Region    string    `bson:"region,omitempty" json:"region,omitempty" firestore:"region,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt" firestore:"updatedAt"`
}

// Address is a Brazilian postal address; CEP holds digits only.
type Address struct {
	CEP        string `bson:"cep" json:"cep" firestore:"cep" validate:"required,cep"`
	Street     string `bson:"street" json:"street" firestore:"street" validate:"required"`
	Number     string `bson:"number" json:"number" firestore:"number" validate:"required"`
	Complement string `bson:"complement,omitempty" json:"complement,omitempty" firestore:"complement,omitempty"`
	District   string `bson:"district" json:"district" firestore:"district" validate:"required"`
	City       string `bson:"city" json:"city" firestore:"city" validate:"required"`
	State      string `bson:"state" json:"state" firestore:"state" validate:"required,len=2"`
}

type InstitutionProfile struct {
	ID         string    `bson:"id" json:"id" firestore:"-"`
	SchoolName string    `bson:"schoolName" json:"schoolName" firestore:"schoolName"`
	CNPJ       string    `bson:"cnpj" json:"cnpj" firestore:"cnpj"`
	Phone      string    `bson:"phone" json:"phone" firestore:"phone"`
	Address    Address   `bson:"address" json:"address" firestore:"address"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt" firestore:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt" firestore:"updatedAt"`
}

// GuardianProfile belongs to a guardian account managing one institution.
type GuardianProfile struct {
	ID            string    `bson:"id" json:"id" firestore:"-"`
	Name          string    `bson:"name" json:"name" firestore:"name"`
	InstitutionID string    `bson:"institutionId" json:"institutionId" firestore:"institutionId"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt" firestore:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt" firestore:"updatedAt"`
}

// Profile carries exactly one typed profile, selected by UserType.
type Profile struct {
	UserType    UserType            `json:"userType"`
	Scout       *ScoutProfile       `json:"scout,omitempty"`
	Institution *InstitutionProfile `json:"institution,omitempty"`
	Guardian    *GuardianProfile    `json:"guardian,omitempty"`
}

func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	switch {
	case p.Scout != nil:
		return p.Scout.Name
	case p.Institution != nil:
		return p.Institution.SchoolName
	case p.Guardian != nil:
		return p.Guardian.Name
	}
	return ""
}

// InstitutionSummary is the directory entry offered to scouts when booking.
type InstitutionSummary struct {
	ID         string `json:"id"`
	SchoolName string `json:"schoolName"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
}

// ProfileUpdate is a merge patch over a typed profile; nil fields are left untouched.
type ProfileUpdate struct {
	Name       *string  `json:"name,omitempty"`
	Phone      *string  `json:"phone,omitempty"`
	Region     *string  `json:"region,omitempty"`
	SchoolName *string  `json:"schoolName,omitempty"`
	Address    *Address `json:"address,omitempty"`
}

// Fields returns the stored field names set by the patch.
func (u ProfileUpdate) Fields() map[string]any {
	fields := map[string]any{}
	if u.Name != nil {
		fields["name"] = *u.Name
	}
	if u.Phone != nil {
		fields["phone"] = *u.Phone
	}
	if u.Region != nil {
		fields["region"] = *u.Region
	}
	if u.SchoolName != nil {
		fields["schoolName"] = *u.SchoolName
	}
	if u.Address != nil {
		fields["address"] = *u.Address
	}
	return fields
}

// PatchableFields lists the patchable fields of each profile type.
func PatchableFields(t UserType) map[string]bool {
	switch t {
	case UserTypeScout:
		return map[string]bool{"name": true, "phone": true, "region": true}
	case UserTypeInstitution:
		return map[string]bool{"schoolName": true, "phone": true, "address": true}
	case UserTypeGuardian:
		return map[string]bool{"name": true}
	}
	return map[string]bool{}
}

// ApplyTo merges the patch into an in-memory profile.
func (u ProfileUpdate) ApplyTo(p *Profile) {
	switch {
	case p.Scout != nil:
		setString(&p.Scout.Name, u.Name)
		setString(&p.Scout.Phone, u.Phone)
		setString(&p.Scout.Region, u.Region)
	case p.Institution != nil:
		setString(&p.Institution.SchoolName, u.SchoolName)
		setString(&p.Institution.Phone, u.Phone)
		if u.Address != nil {
			p.Institution.Address = *u.Address
		}
	case p.Guardian != nil:
		setString(&p.Guardian.Name, u.Name)
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
