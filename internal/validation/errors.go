package validation

import (
	"strings"

	"campus-market/internal/domain"
)

// FieldError is a single failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// Errors is the list of rules a form failed. It matches
// domain.ErrInvalidInput under errors.Is.
type Errors struct {
	Fields []FieldError `json:"errors"`
}

func (e *Errors) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ""
	}
	msgs := make([]string, len(e.Fields))
	for i, fe := range e.Fields {
		msgs[i] = fe.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *Errors) Unwrap() error {
	return domain.ErrInvalidInput
}

// ForField returns the messages recorded against field.
func (e *Errors) ForField(field string) []string {
	if e == nil {
		return nil
	}
	var msgs []string
	for _, fe := range e.Fields {
		if fe.Field == field {
			msgs = append(msgs, fe.Message)
		}
	}
	return msgs
}
