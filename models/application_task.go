package models

import "time"

// Task statuses. A task moves UNCLAIMED -> ASSIGNED -> COMPLETED; a
// resubmission resets a COMPLETED task back to UNCLAIMED.
const (
	TaskStatusUnclaimed = "UNCLAIMED"
	TaskStatusAssigned  = "ASSIGNED"
	TaskStatusCompleted = "COMPLETED"
)

// Task decisions. PENDING until the task is COMPLETED.
const (
	TaskDecisionPending  = "PENDING"
	TaskDecisionApproved = "APPROVED"
	TaskDecisionRejected = "REJECTED"
)

// ApplicationTask is one university's review obligation for one
// application. Exactly one exists per (application, university) pair.
type ApplicationTask struct {
	TaskID           int    `gorm:"primaryKey;column:task_id" json:"task_id"`
	ApplicationID    int    `gorm:"column:application_id;uniqueIndex:uq_application_university" json:"application_id"`
	UniversityID     int    `gorm:"column:university_id;uniqueIndex:uq_application_university" json:"university_id"`
	Status           string `gorm:"column:status" json:"status"`
	Decision         string `gorm:"column:decision" json:"decision"`
	AssignedExpertID *int   `gorm:"column:assigned_expert_id" json:"assigned_expert_id,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`

	// Relations
	Application    *Application `gorm:"foreignKey:ApplicationID" json:"application,omitempty"`
	University     University   `gorm:"foreignKey:UniversityID" json:"university,omitempty"`
	AssignedExpert *User        `gorm:"foreignKey:AssignedExpertID" json:"assigned_expert,omitempty"`
}

// IsCompleted reports whether the university's review is finished.
func (t *ApplicationTask) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// TableName specifies the table name for ApplicationTask.
func (ApplicationTask) TableName() string {
	return "application_tasks"
}
