package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "sportsfest/pkg/domain"
)

func TestStudent_Age(t *testing.T) {
	dob := time.Date(2010, time.June, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"day before birthday", time.Date(2026, time.June, 14, 23, 59, 0, 0, time.UTC), 15},
		{"on birthday", time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC), 16},
		{"day after birthday", time.Date(2026, time.June, 16, 0, 0, 0, 0, time.UTC), 16},
		{"end of year", time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC), 16},
		{"start of year", time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			student := Student{DateOfBirth: dob}
			assert.Equal(t, tt.want, student.Age(tt.now))
		})
	}
}

func TestStudent_Age_LeapDay(t *testing.T) {
	student := Student{DateOfBirth: time.Date(2012, time.February, 29, 0, 0, 0, 0, time.UTC)}

	// In non-leap years the anniversary normalizes to March 1.
	assert.Equal(t, 13, student.Age(time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 14, student.Age(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)))
}

func TestNewStudent(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	dob := time.Date(2011, time.April, 2, 0, 0, 0, 0, time.UTC)

	t.Run("valid", func(t *testing.T) {
		student, err := NewStudent(id.NewStudentID(), id.NewInstitutionID(), "Asha Rao", id.GenderFemale, dob, now)
		require.NoError(t, err)
		assert.True(t, student.IsActive)
		assert.Equal(t, 14, student.Age(now))
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewStudent(id.NewStudentID(), id.NewInstitutionID(), "  ", id.GenderFemale, dob, now)
		require.Error(t, err)
	})

	t.Run("rejects unsupported gender", func(t *testing.T) {
		_, err := NewStudent(id.NewStudentID(), id.NewInstitutionID(), "Asha Rao", id.Gender("unknown"), dob, now)
		require.Error(t, err)
	})

	t.Run("rejects future date of birth", func(t *testing.T) {
		_, err := NewStudent(id.NewStudentID(), id.NewInstitutionID(), "Asha Rao", id.GenderFemale, now.AddDate(1, 0, 0), now)
		require.Error(t, err)
	})
}

func TestStudent_SetEmail(t *testing.T) {
	student := Student{}

	require.NoError(t, student.SetEmail("Asha.Rao@School.EDU"))
	assert.Equal(t, "asha.rao@school.edu", student.Email)

	assert.Error(t, student.SetEmail("not-an-email"))
}
