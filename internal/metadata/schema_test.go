package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texsync/internal/errors"
)

func validFields() Metadata {
	return Metadata{"client": "Acme", "titre": "Report", "phase_id": "P1", "phase_nom": "Draft"}
}

func TestValidate_ReturnsExactlyRequiredFields(t *testing.T) {
	fields := validFields()
	fields["auteurs"] = ""
	fields["version"] = "2"

	validated, err := DefaultSchema().Validate(fields)
	require.NoError(t, err)
	assert.Equal(t, validFields(), validated)
}

func TestValidate_MissingEachRequiredField(t *testing.T) {
	for _, field := range DefaultSchema().Required {
		t.Run(field, func(t *testing.T) {
			fields := validFields()
			delete(fields, field)

			_, err := DefaultSchema().Validate(fields)
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
			assert.Contains(t, err.Error(), field)
			assert.Equal(t, []Violation{{Field: field, Rule: RuleRequired}}, Violations(err))
		})
	}
}

func TestValidate_EmptyValueCountsAsMissing(t *testing.T) {
	fields := validFields()
	fields["phase_nom"] = "   "

	_, err := DefaultSchema().Validate(fields)
	require.Error(t, err)
	assert.Equal(t, "phase_nom", errors.ContextString(err, "fields"))
}

func TestValidate_ForbiddenFieldRejectsEvenWhenRequiredSatisfied(t *testing.T) {
	for _, field := range []string{"email", "name"} {
		t.Run(field, func(t *testing.T) {
			fields := validFields()
			fields[field] = ""

			_, err := DefaultSchema().Validate(fields)
			require.Error(t, err)
			assert.Equal(t, []Violation{{Field: field, Rule: RuleForbidden}}, Violations(err))
		})
	}
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	_, err := DefaultSchema().Validate(Metadata{"client": "Acme", "email": "x@y.z"})
	require.Error(t, err)

	violations := Violations(err)
	require.Len(t, violations, 4)
	assert.Equal(t, Violation{Field: "titre", Rule: RuleRequired}, violations[0])
	assert.Equal(t, Violation{Field: "email", Rule: RuleForbidden}, violations[3])
	assert.Equal(t, "titre,phase_id,phase_nom,email", errors.ContextString(err, "fields"))
}

func TestValidate_NilMetadata(t *testing.T) {
	_, err := DefaultSchema().Validate(nil)
	require.Error(t, err)
	assert.Len(t, Violations(err), 4)
}

func TestNewSchema(t *testing.T) {
	s := NewSchema(nil, nil)
	assert.Equal(t, DefaultSchema(), s)

	s = NewSchema([]string{"client"}, []string{})
	_, err := s.Validate(Metadata{"client": "Acme", "email": "x"})
	require.NoError(t, err)
}

func TestViolations_IgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, Violations(errors.ParseError("x").Build()))
	assert.Nil(t, Violations(nil))
}

func TestExtractThenValidate(t *testing.T) {
	fields, _, err := Extract("---\nclient: Acme\ntitre: Report\nphase_id: P1\n---\nBody")
	require.NoError(t, err)

	_, err = DefaultSchema().Validate(fields)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phase_nom")
}
