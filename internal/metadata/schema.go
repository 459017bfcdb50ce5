package metadata

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/texsync/internal/errors"
)

// RuleKind distinguishes the two schema rule types.
type RuleKind string

const (
	RuleRequired  RuleKind = "required"
	RuleForbidden RuleKind = "forbidden"
)

// Violation is a single field-level schema failure.
type Violation struct {
	Field string
	Rule  RuleKind
}

func (v Violation) String() string {
	if v.Rule == RuleForbidden {
		return fmt.Sprintf("forbidden field %q present", v.Field)
	}
	return fmt.Sprintf("missing required field %q", v.Field)
}

// Schema declares which header fields must be present and non-empty, and which
// must not appear at all.
type Schema struct {
	Required  []string
	Forbidden []string
}

// DefaultSchema requires the four title fields and rejects personal identifying fields.
func DefaultSchema() Schema {
	return Schema{
		Required:  []string{"client", "titre", "phase_id", "phase_nom"},
		Forbidden: []string{"email", "name"},
	}
}

// NewSchema builds a schema, falling back to the defaults for an empty required list.
func NewSchema(required, forbidden []string) Schema {
	s := DefaultSchema()
	if len(required) > 0 {
		s.Required = append([]string(nil), required...)
	}
	if forbidden != nil {
		s.Forbidden = append([]string(nil), forbidden...)
	}
	return s
}

// Check evaluates every rule and returns all violations, required rules first.
func (s Schema) Check(m Metadata) []Violation {
	var violations []Violation
	for _, field := range s.Required {
		if strings.TrimSpace(m.Get(field)) == "" {
			violations = append(violations, Violation{Field: field, Rule: RuleRequired})
		}
	}
	for _, field := range s.Forbidden {
		if m.Has(field) {
			violations = append(violations, Violation{Field: field, Rule: RuleForbidden})
		}
	}
	return violations
}

// Validate returns the required fields of m when every rule holds.
// Otherwise it returns a validation error carrying the violations.
func (s Schema) Validate(m Metadata) (Metadata, error) {
	violations := s.Check(m)
	if len(violations) > 0 {
		parts := make([]string, len(violations))
		fields := make([]string, len(violations))
		for i, v := range violations {
			parts[i] = v.String()
			fields[i] = v.Field
		}
		return nil, errors.ValidationError(strings.Join(parts, "; ")).
			WithContext(violationsKey, violations).
			WithContext("fields", strings.Join(fields, ",")).
			Build()
	}

	validated := make(Metadata, len(s.Required))
	for _, field := range s.Required {
		validated[field] = m[field]
	}
	return validated, nil
}

const violationsKey = "violations"

// Violations extracts the field-level detail from a validation error.
func Violations(err error) []Violation {
	classified, ok := errors.AsClassified(err)
	if !ok || !classified.IsCategory(errors.CategoryValidation) {
		return nil
	}
	value, _ := classified.Context().Get(violationsKey)
	violations, _ := value.([]Violation)
	return violations
}
