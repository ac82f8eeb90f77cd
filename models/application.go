package models

import (
	"time"

	"gorm.io/datatypes"
)

// Application statuses. PENDING_REVIEW and PENDING_CORRECTION are the
// in-flight states; APPROVED and REJECTED are terminal.
const (
	AppStatusPendingReview     = "PENDING_REVIEW"
	AppStatusPendingCorrection = "PENDING_CORRECTION"
	AppStatusApproved          = "APPROVED"
	AppStatusRejected          = "REJECTED"
)

// Application types. The required form_data fields depend on the type.
const (
	AppTypeNewAdmission       = "NEW_ADMISSION"
	AppTypeVisaExtension      = "VISA_EXTENSION"
	AppTypeInternalExitPermit = "INTERNAL_EXIT_PERMIT"
)

// Application is one applicant's request scoped to a single university
// choice. A multi-university submission is fanned out into one row per
// choice before it ever reaches review.
type Application struct {
	ApplicationID            int               `gorm:"primaryKey;column:application_id" json:"application_id"`
	TrackingCode             string            `gorm:"column:tracking_code;unique" json:"tracking_code"`
	ApplicationType          string            `gorm:"column:application_type" json:"application_type"`
	Status                   string            `gorm:"column:status" json:"status"`
	FormData                 datatypes.JSONMap `gorm:"column:form_data" json:"form_data"`
	ApplicantID              int               `gorm:"column:applicant_id" json:"applicant_id"`
	SubmittedByInstitutionID *int              `gorm:"column:submitted_by_institution_id" json:"submitted_by_institution_id,omitempty"`

	FullName           string     `gorm:"column:full_name" json:"full_name"`
	DateOfBirth        *time.Time `gorm:"column:date_of_birth" json:"date_of_birth,omitempty"`
	CountryOfResidence string     `gorm:"column:country_of_residence" json:"country_of_residence"`
	FatherName         string     `gorm:"column:father_name" json:"father_name"`
	GrandfatherName    string     `gorm:"column:grandfather_name" json:"grandfather_name"`
	Email              string     `gorm:"column:email" json:"email"`

	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`

	// Relations
	Applicant              *User                 `gorm:"foreignKey:ApplicantID" json:"applicant,omitempty"`
	SubmittedByInstitution *User                 `gorm:"foreignKey:SubmittedByInstitutionID" json:"submitted_by_institution,omitempty"`
	AcademicHistories      []AcademicHistory     `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"academic_histories,omitempty"`
	UniversityChoices      []UniversityChoice    `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"university_choices,omitempty"`
	Documents              []ApplicationDocument `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"documents,omitempty"`
	Tasks                  []ApplicationTask     `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"tasks,omitempty"`
	Logs                   []ApplicationLog      `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"logs,omitempty"`
	InternalNotes          []InternalNote        `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"internal_notes,omitempty"`
}

// IsTerminal reports whether the application has reached a final verdict.
func (a *Application) IsTerminal() bool {
	return a.Status == AppStatusApproved || a.Status == AppStatusRejected
}

type AcademicHistory struct {
	HistoryID       int     `gorm:"primaryKey;column:history_id" json:"history_id"`
	ApplicationID   int     `gorm:"column:application_id" json:"application_id"`
	DegreeLevel     string  `gorm:"column:degree_level" json:"degree_level"`
	Country         string  `gorm:"column:country" json:"country"`
	UniversityName  string  `gorm:"column:university_name" json:"university_name"`
	FieldOfStudy    string  `gorm:"column:field_of_study" json:"field_of_study"`
	GPA             float64 `gorm:"column:gpa" json:"gpa"`
	CertificateFile *string `gorm:"column:certificate_file" json:"certificate_file,omitempty"`
}

type UniversityChoice struct {
	ChoiceID      int `gorm:"primaryKey;column:choice_id" json:"choice_id"`
	ApplicationID int `gorm:"column:application_id" json:"application_id"`
	UniversityID  int `gorm:"column:university_id" json:"university_id"`
	ProgramID     int `gorm:"column:program_id" json:"program_id"`
	Priority      int `gorm:"column:priority" json:"priority"`

	University University `gorm:"foreignKey:UniversityID" json:"university,omitempty"`
	Program    Program    `gorm:"foreignKey:ProgramID" json:"program,omitempty"`
}

// ApplicationDocument records an uploaded file by type. The payload
// itself is opaque to the workflow; only the type and path matter.
type ApplicationDocument struct {
	DocumentID    int       `gorm:"primaryKey;column:document_id" json:"document_id"`
	ApplicationID int       `gorm:"column:application_id" json:"application_id"`
	DocumentType  string    `gorm:"column:document_type" json:"document_type"`
	FilePath      string    `gorm:"column:file_path" json:"file_path"`
	UploadedAt    time.Time `gorm:"column:uploaded_at" json:"uploaded_at"`
}

type InternalNote struct {
	NoteID        int       `gorm:"primaryKey;column:note_id" json:"note_id"`
	ApplicationID int       `gorm:"column:application_id" json:"application_id"`
	AuthorID      int       `gorm:"column:author_id" json:"author_id"`
	Message       string    `gorm:"column:message" json:"message"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`

	Author *User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

// TableName overrides
func (Application) TableName() string {
	return "applications"
}

func (AcademicHistory) TableName() string {
	return "academic_histories"
}

func (UniversityChoice) TableName() string {
	return "university_choices"
}

func (ApplicationDocument) TableName() string {
	return "application_documents"
}

func (InternalNote) TableName() string {
	return "internal_notes"
}
