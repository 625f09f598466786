package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/money"
)

func newTestCategory(t *testing.T) *Category {
	t.Helper()
	category, err := NewCategory(id.NewCategoryID(), id.NewSportID(), "U-17 100m Sprint", money.MustParse("150.00"), time.Now())
	require.NoError(t, err)
	return category
}

func TestNewCategory_Defaults(t *testing.T) {
	category := newTestCategory(t)

	assert.Equal(t, DefaultMaxParticipants, category.MaxParticipants)
	assert.Equal(t, DefaultCurrency, category.Currency)
	assert.Equal(t, id.GenderAllowedAny, category.GenderAllowed)
	assert.True(t, category.IsActive)
	assert.Zero(t, category.AgeFrom)
	assert.Zero(t, category.AgeTo)
}

func TestNewCategory_Rejects(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		make    func() (*Category, error)
		message string
	}{
		{
			name: "empty name",
			make: func() (*Category, error) {
				return NewCategory(id.NewCategoryID(), id.NewSportID(), "   ", money.Zero, now)
			},
			message: "name cannot be empty",
		},
		{
			name: "missing sport",
			make: func() (*Category, error) {
				return NewCategory(id.NewCategoryID(), id.SportID{}, "Sprint", money.Zero, now)
			},
			message: "requires a sport",
		},
		{
			name: "negative fee",
			make: func() (*Category, error) {
				return NewCategory(id.NewCategoryID(), id.NewSportID(), "Sprint", money.FromMinor(-1), now)
			},
			message: "fee cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.make()
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestCategory_Validate(t *testing.T) {
	t.Run("rejects inverted age window", func(t *testing.T) {
		category := newTestCategory(t)
		category.AgeFrom = 18
		category.AgeTo = 12
		require.Error(t, category.Validate())
	})

	t.Run("rejects non-positive ceiling", func(t *testing.T) {
		category := newTestCategory(t)
		category.MaxParticipants = 0
		require.Error(t, category.Validate())
	})

	t.Run("rejects unknown gender policy", func(t *testing.T) {
		category := newTestCategory(t)
		category.GenderAllowed = id.GenderAllowed("everyone")
		require.Error(t, category.Validate())
	})

	t.Run("accepts open-ended age window", func(t *testing.T) {
		category := newTestCategory(t)
		category.AgeFrom = 10
		category.AgeTo = 0
		require.NoError(t, category.Validate())
	})
}

func TestCategory_AgeEligible(t *testing.T) {
	tests := []struct {
		name     string
		ageFrom  int
		ageTo    int
		age      int
		eligible bool
	}{
		{"no bounds admits any age", 0, 0, 42, true},
		{"inside window", 10, 17, 15, true},
		{"at lower bound", 10, 17, 10, true},
		{"at upper bound", 10, 17, 17, true},
		{"below lower bound", 10, 17, 9, false},
		{"above upper bound", 10, 17, 18, false},
		{"only lower bound", 16, 0, 40, true},
		{"only lower bound rejects younger", 16, 0, 15, false},
		{"only upper bound", 0, 12, 11, true},
		{"only upper bound rejects older", 0, 12, 13, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category := newTestCategory(t)
			category.AgeFrom = tt.ageFrom
			category.AgeTo = tt.ageTo
			assert.Equal(t, tt.eligible, category.AgeEligible(tt.age))
		})
	}
}

func TestCategory_CheckEligibility(t *testing.T) {
	t.Run("closed category", func(t *testing.T) {
		category := newTestCategory(t)
		category.Deactivate(time.Now())

		err := category.CheckEligibility(15, id.GenderFemale)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCategoryInactive))
	})

	t.Run("age outside window", func(t *testing.T) {
		category := newTestCategory(t)
		category.AgeFrom = 10
		category.AgeTo = 17

		err := category.CheckEligibility(19, id.GenderFemale)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeIneligible))
	})

	t.Run("gender not permitted", func(t *testing.T) {
		category := newTestCategory(t)
		category.GenderAllowed = id.GenderAllowedFemale

		err := category.CheckEligibility(15, id.GenderMale)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeIneligible))
	})

	t.Run("mixed category admits every gender", func(t *testing.T) {
		category := newTestCategory(t)
		category.GenderAllowed = id.GenderAllowedMixed

		for _, g := range []id.Gender{id.GenderMale, id.GenderFemale, id.GenderOther} {
			assert.NoError(t, category.CheckEligibility(15, g), "gender %s", g)
		}
	})

	t.Run("all gates pass", func(t *testing.T) {
		category := newTestCategory(t)
		category.AgeFrom = 10
		category.AgeTo = 17
		category.GenderAllowed = id.GenderAllowedFemale

		assert.NoError(t, category.CheckEligibility(15, id.GenderFemale))
	})
}

func TestCategory_HasFee(t *testing.T) {
	category := newTestCategory(t)
	assert.True(t, category.HasFee())

	category.Fee = money.Zero
	assert.False(t, category.HasFee())
}
