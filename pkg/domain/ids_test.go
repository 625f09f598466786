package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "sportsfest/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseStudentID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseStudentID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseStudentID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseStudentID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, StudentID(validUUID), id)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	studentID := StudentID(uuid.New())
	categoryID := CategoryID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ StudentID = categoryID   // compile error
	// var _ CategoryID = studentID   // compile error

	// Verify they're distinct at runtime too
	assert.NotEqual(t, uuid.UUID(studentID), uuid.UUID(categoryID))
}

// TestParseID_SecurityInvariants validates security-critical parsing rules.
// Parsing must reject attack vectors at API entry points.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		// Attack vectors
		{"SQL injection attempt", "'; DROP TABLE registrations;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Unicode zero-width space", "550e8400​-e29b-41d4-a716-446655440000", true},

		// Edge cases
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},

		// Valid
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegistrationID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestAllIDTypes_ConsistentBehavior ensures all ID types have identical
// parsing behavior. Inconsistent validation across ID types would let a
// malformed ID through one boundary but not another.
func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()
	invalidInputs := []string{"", "invalid", uuid.Nil.String()}

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errStudent := ParseStudentID(validUUID)
		_, errInstitution := ParseInstitutionID(validUUID)
		_, errSport := ParseSportID(validUUID)
		_, errCategory := ParseCategoryID(validUUID)
		_, errRegistration := ParseRegistrationID(validUUID)
		_, errPayment := ParsePaymentID(validUUID)
		_, errSponsorship := ParseSponsorshipID(validUUID)

		require.NoError(t, errStudent)
		require.NoError(t, errInstitution)
		require.NoError(t, errSport)
		require.NoError(t, errCategory)
		require.NoError(t, errRegistration)
		require.NoError(t, errPayment)
		require.NoError(t, errSponsorship)
	})

	for _, input := range invalidInputs {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errStudent := ParseStudentID(input)
			_, errInstitution := ParseInstitutionID(input)
			_, errSport := ParseSportID(input)
			_, errCategory := ParseCategoryID(input)
			_, errRegistration := ParseRegistrationID(input)
			_, errPayment := ParsePaymentID(input)
			_, errSponsorship := ParseSponsorshipID(input)

			require.Error(t, errStudent)
			require.Error(t, errInstitution)
			require.Error(t, errSport)
			require.Error(t, errCategory)
			require.Error(t, errRegistration)
			require.Error(t, errPayment)
			require.Error(t, errSponsorship)
		})
	}
}

func TestGenderAllowed_Permits(t *testing.T) {
	tests := []struct {
		name       string
		restricted GenderAllowed
		gender     Gender
		want       bool
	}{
		{"any admits male", GenderAllowedAny, GenderMale, true},
		{"any admits female", GenderAllowedAny, GenderFemale, true},
		{"any admits other", GenderAllowedAny, GenderOther, true},
		{"mixed admits male", GenderAllowedMixed, GenderMale, true},
		{"mixed admits female", GenderAllowedMixed, GenderFemale, true},
		{"mixed admits other", GenderAllowedMixed, GenderOther, true},
		{"male admits male", GenderAllowedMale, GenderMale, true},
		{"male rejects female", GenderAllowedMale, GenderFemale, false},
		{"male rejects other", GenderAllowedMale, GenderOther, false},
		{"female admits female", GenderAllowedFemale, GenderFemale, true},
		{"female rejects male", GenderAllowedFemale, GenderMale, false},
		{"any rejects unparsed junk", GenderAllowedAny, Gender("robot"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.restricted.Permits(tt.gender))
		})
	}
}

func TestParseGender(t *testing.T) {
	t.Run("case insensitive", func(t *testing.T) {
		g, err := ParseGender("Female")
		require.NoError(t, err)
		assert.Equal(t, GenderFemale, g)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseGender("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects unknown", func(t *testing.T) {
		_, err := ParseGender("unknown")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"admin", "institute", "student"} {
		r, err := ParseRole(valid)
		require.NoError(t, err)
		assert.Equal(t, Role(valid), r)
	}

	_, err := ParseRole("superuser")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	assert.True(t, RoleAdmin.CanManageFestival())
	assert.False(t, RoleStudent.CanManageFestival())
}
