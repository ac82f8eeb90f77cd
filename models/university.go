package models

import "time"

type University struct {
	UniversityID int        `gorm:"primaryKey;column:university_id" json:"university_id"`
	Name         string     `gorm:"column:name;unique" json:"name"`
	CreatedAt    *time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    *time.Time `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt    *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

type Program struct {
	ProgramID    int        `gorm:"primaryKey;column:program_id" json:"program_id"`
	Name         string     `gorm:"column:name" json:"name"`
	UniversityID int        `gorm:"column:university_id" json:"university_id"`
	CreatedAt    *time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    *time.Time `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt    *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`

	University University `gorm:"foreignKey:UniversityID" json:"university,omitempty"`
}

// TableName overrides
func (University) TableName() string {
	return "universities"
}

func (Program) TableName() string {
	return "programs"
}
