// Package validation checks QoS records before they are written and when
// the integrity service re-reads them from the store.
//
// It uses go-playground/validator for the range and enum constraints carried
// as struct tags on the models, plus struct-level rules for constraints that
// span fields:
//   - a Queue entry has a weight if and only if its algorithm is wrr
//   - profile entries are keyed by queue numbers 0-7, each at most once
//
// # Usage Example
//
//	v := validation.New()
//	result := v.ValidateRecord(&models.QueueEntry{Algorithm: models.AlgorithmWRR})
//	if !result.Valid {
//	    for _, err := range result.Errors {
//	        fmt.Printf("%s: %s\n", err.Field, err.Message)
//	    }
//	}
package validation

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"evalgo.org/qosd/internal/qos/defaults"
	"evalgo.org/qosd/models"
)

// Validator validates QoS records.
type Validator struct {
	// structValidator validates Go struct constraints and tags
	structValidator *validator.Validate
}

// ValidationError represents a single validation error with field-level details.
type ValidationError struct {
	// Field is the JSON name of the field that failed validation
	Field string `json:"field"`

	// Message describes why the validation failed
	Message string `json:"message"`

	// Value is the invalid value that caused the error (optional)
	Value interface{} `json:"value,omitempty"`
}

// ValidationResult represents the complete result of a validation operation.
type ValidationResult struct {
	// Valid is true if validation passed, false otherwise
	Valid bool `json:"valid"`

	// Errors contains all validation errors found (empty if Valid is true)
	Errors []ValidationError `json:"errors,omitempty"`
}

// String joins all errors into one line.
func (r *ValidationResult) String() string {
	if r.Valid {
		return "valid"
	}
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return strings.Join(parts, "; ")
}

// New creates a Validator with the QoS struct-level rules registered.
func New() *Validator {
	sv := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names instead of Go names
	sv.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	sv.RegisterStructValidation(queueEntryRules, models.QueueEntry{})
	sv.RegisterStructValidation(profileRules, models.Profile{})

	return &Validator{structValidator: sv}
}

// ValidateRecord validates a decoded record.
func (v *Validator) ValidateRecord(doc interface{}) *ValidationResult {
	err := v.structValidator.Struct(doc)
	if err == nil {
		return &ValidationResult{Valid: true}
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "document", Message: err.Error()}},
		}
	}

	errors := make([]ValidationError, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		errors = append(errors, ValidationError{
			Field:   fe.Field(),
			Message: message(fe),
			Value:   fe.Value(),
		})
	}
	return &ValidationResult{Valid: false, Errors: errors}
}

// ValidateDocument validates the stored JSON of a record of the given kind.
// Malformed JSON is reported as a validation error, not returned as an error;
// an unknown kind is an error.
func (v *Validator) ValidateDocument(kind models.Kind, data []byte) (*ValidationResult, error) {
	doc, err := newDocument(kind)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, doc); err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{
				{
					Field:   "document",
					Message: fmt.Sprintf("Invalid JSON: %v", err),
				},
			},
		}, nil
	}

	identityErrors := validateIdentity(kind, data)
	result := v.ValidateRecord(doc)

	allErrors := append(identityErrors, result.Errors...)
	return &ValidationResult{
		Valid:  len(allErrors) == 0,
		Errors: allErrors,
	}, nil
}

// validateIdentity checks the @id and @type fields of a stored record.
func validateIdentity(kind models.Kind, data []byte) []ValidationError {
	var header models.Header
	if err := json.Unmarshal(data, &header); err != nil {
		return nil
	}

	var errors []ValidationError
	if header.ID == "" {
		errors = append(errors, ValidationError{
			Field:   "@id",
			Message: "Missing @id field",
		})
	} else if !strings.HasPrefix(string(header.ID), kind.Prefix()+":") {
		errors = append(errors, ValidationError{
			Field:   "@id",
			Message: fmt.Sprintf("ID must start with %q", kind.Prefix()+":"),
			Value:   header.ID,
		})
	}

	if header.Type != kind {
		errors = append(errors, ValidationError{
			Field:   "@type",
			Message: fmt.Sprintf("Type must be '%s'", kind),
			Value:   header.Type,
		})
	}
	return errors
}

func newDocument(kind models.Kind) (interface{}, error) {
	switch kind {
	case models.KindScheduleProfile, models.KindQueueProfile:
		return &models.Profile{}, nil
	case models.KindQueue:
		return &models.QueueEntry{}, nil
	case models.KindQueueProfileEntry:
		return &models.PriorityEntry{}, nil
	case models.KindCosMapEntry:
		return &models.CosMapEntry{}, nil
	case models.KindDscpMapEntry:
		return &models.DscpMapEntry{}, nil
	case models.KindSystem:
		return &models.System{}, nil
	default:
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
}

// queueEntryRules requires a weight for wrr queues and forbids it for strict
// queues.
func queueEntryRules(sl validator.StructLevel) {
	q := sl.Current().Interface().(models.QueueEntry)

	switch q.Algorithm {
	case models.AlgorithmWRR:
		if q.Weight == nil {
			sl.ReportError(q.Weight, "weight", "Weight", "required_if_wrr", "")
		}
	case models.AlgorithmStrict:
		if q.Weight != nil {
			sl.ReportError(q.Weight, "weight", "Weight", "excluded_if_strict", "")
		}
	}
}

// profileRules checks the queue numbers and refs of a profile's entries.
func profileRules(sl validator.StructLevel) {
	p := sl.Current().Interface().(models.Profile)

	seen := make(map[int]bool, p.Entries.Len())
	for _, pair := range p.Entries {
		if pair.Key < 0 || pair.Key > defaults.MaxQueue {
			sl.ReportError(pair.Key, "entries", "Entries", "queue_range", "")
		}
		if seen[pair.Key] {
			sl.ReportError(pair.Key, "entries", "Entries", "unique_queue", "")
		}
		seen[pair.Key] = true
		if pair.Value == "" {
			sl.ReportError(pair.Value, "entries", "Entries", "entry_ref", "")
		}
	}
}

// message renders a field error the way the API and CLI print it.
func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "unique":
		return "must not contain duplicates"
	case "required_if_wrr":
		return "weight is required for wrr queues"
	case "excluded_if_strict":
		return "weight must not be set for strict queues"
	case "queue_range":
		return fmt.Sprintf("queue number must be between 0 and %d", defaults.MaxQueue)
	case "unique_queue":
		return "queue number appears more than once"
	case "entry_ref":
		return "entry reference is empty"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
