package models

import "time"

// ApplicationLog is the append-only audit trail of an application. A
// nil ActorID marks a system-generated entry. Rows are never updated
// or deleted once written.
type ApplicationLog struct {
	LogID         int       `gorm:"primaryKey;column:log_id" json:"log_id"`
	ApplicationID int       `gorm:"column:application_id" json:"application_id"`
	ActorID       *int      `gorm:"column:actor_id" json:"actor_id,omitempty"`
	Action        string    `gorm:"column:action" json:"action"`
	Comment       *string   `gorm:"column:comment" json:"comment,omitempty"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`

	Actor *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}

// TableName specifies the table name for ApplicationLog.
func (ApplicationLog) TableName() string {
	return "application_logs"
}
