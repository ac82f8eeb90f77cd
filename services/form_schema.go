package services

import (
	"strings"

	"admissions-api/models"
)

// requiredFormFields lists which form_data keys each application type
// must carry. NEW_ADMISSION has no form_data requirement; its rules
// live in ValidateSubmission instead.
var requiredFormFields = map[string][]string{
	models.AppTypeVisaExtension: {
		"current_visa_number",
		"current_visa_expiry",
		"requested_duration",
	},
	models.AppTypeInternalExitPermit: {
		"destination_university",
		"reason_for_request",
	},
}

var knownApplicationTypes = map[string]bool{
	models.AppTypeNewAdmission:       true,
	models.AppTypeVisaExtension:      true,
	models.AppTypeInternalExitPermit: true,
}

// ValidateFormData checks form_data against the per-type required
// field schema. Required values must be present, non-empty strings.
func ValidateFormData(applicationType string, formData map[string]interface{}) error {
	if !knownApplicationTypes[applicationType] {
		return NewValidationError("unknown application type '%s'", applicationType)
	}

	required := requiredFormFields[applicationType]
	if applicationType != models.AppTypeNewAdmission && len(formData) == 0 {
		return NewValidationError("form_data is required for application type '%s'", applicationType)
	}

	for _, field := range required {
		value, ok := formData[field]
		if !ok {
			return NewValidationError("'%s' is a required field for '%s'", field, applicationType)
		}
		str, isString := value.(string)
		if !isString {
			return NewValidationError("'%s' must be a string", field)
		}
		if strings.TrimSpace(str) == "" {
			return NewValidationError("'%s' must not be empty", field)
		}
	}
	return nil
}

// ValidateSubmission runs the full pre-persistence validation of a
// submission payload: form_data schema plus the NEW_ADMISSION rules
// (at least one academic history, at least one university choice,
// pairwise-unique positive priorities).
func ValidateSubmission(payload *SubmissionPayload) error {
	if err := ValidateFormData(payload.ApplicationType, payload.FormData); err != nil {
		return err
	}

	if payload.ApplicationType != models.AppTypeNewAdmission {
		return nil
	}

	if len(payload.AcademicHistories) == 0 {
		return NewValidationError("at least one academic history is required for New Admission")
	}
	if len(payload.UniversityChoices) == 0 {
		return NewValidationError("at least one university choice is required for New Admission")
	}

	seen := make(map[int]bool, len(payload.UniversityChoices))
	for _, choice := range payload.UniversityChoices {
		if choice.Priority <= 0 {
			return NewValidationError("university choice priority must be a positive integer")
		}
		if seen[choice.Priority] {
			return NewValidationError("university choice priorities must be unique")
		}
		seen[choice.Priority] = true
	}
	return nil
}
