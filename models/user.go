package models

import (
	"time"
)

// Role names are a fixed set; business logic compares against these
// constants instead of re-querying roles by name.
const (
	RoleApplicant        = "applicant"
	RoleUniversityExpert = "university_expert"
	RoleInstitution      = "institution"
	RoleOrgHead          = "org_head"
)

type User struct {
	UserID      int        `gorm:"primaryKey;column:user_id" json:"user_id"`
	Email       string     `gorm:"column:email;unique" json:"email"`
	FullName    string     `gorm:"column:full_name" json:"full_name"`
	PhoneNumber *string    `gorm:"column:phone_number" json:"phone_number,omitempty"`
	Password    string     `gorm:"column:password" json:"-"`
	RoleID      int        `gorm:"column:role_id" json:"role_id"`
	CreatedAt   *time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   *time.Time `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt   *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`

	// Relations
	Role         Role         `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	Universities []University `gorm:"many2many:user_universities;foreignKey:UserID;joinForeignKey:UserID;References:UniversityID;joinReferences:UniversityID" json:"universities,omitempty"`
}

type Role struct {
	RoleID    int        `gorm:"primaryKey;column:role_id" json:"role_id"`
	Role      string     `gorm:"column:role;unique" json:"role"`
	CreatedAt *time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt *time.Time `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

// UserUniversity links a university expert (or institution account) to
// a university. For experts this is the reviewer affiliation that
// grants claim/decide rights on that university's tasks.
type UserUniversity struct {
	UserID       int `gorm:"primaryKey;column:user_id" json:"user_id"`
	UniversityID int `gorm:"primaryKey;column:university_id" json:"university_id"`
}

// HasRole reports whether the user's resolved role matches name.
func (u *User) HasRole(name string) bool {
	return u.Role.Role == name
}

// TableName overrides
func (User) TableName() string {
	return "users"
}

func (Role) TableName() string {
	return "roles"
}

func (UserUniversity) TableName() string {
	return "user_universities"
}
