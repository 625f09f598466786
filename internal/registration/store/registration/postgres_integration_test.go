//go:build integration

package registration_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	capacitymodels "sportsfest/internal/capacity/models"
	"sportsfest/internal/registration/models"
	registrationstore "sportsfest/internal/registration/store/registration"
	sportmodels "sportsfest/internal/sport/models"
	categorystore "sportsfest/internal/sport/store/category"
	sportstore "sportsfest/internal/sport/store/sport"
	studentmodels "sportsfest/internal/student/models"
	studentstore "sportsfest/internal/student/store/student"
	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/money"
	"sportsfest/pkg/platform/sentinel"
	"sportsfest/pkg/testutil/containers"
)

type PostgresRegistrationSuite struct {
	suite.Suite
	postgres   *containers.PostgresContainer
	store      *registrationstore.PostgresStore
	sports     *sportstore.PostgresStore
	categories *categorystore.PostgresStore
	students   *studentstore.PostgresStore

	studentID  id.StudentID
	categoryID id.CategoryID
}

func TestPostgresRegistrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresRegistrationSuite))
}

func (s *PostgresRegistrationSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = registrationstore.NewPostgres(s.postgres.DB)
	s.sports = sportstore.NewPostgres(s.postgres.DB)
	s.categories = categorystore.NewPostgres(s.postgres.DB)
	s.students = studentstore.NewPostgres(s.postgres.DB)
}

func (s *PostgresRegistrationSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "registrations", "students", "sport_categories", "sports")
	s.Require().NoError(err)

	now := time.Now().UTC()

	sport, err := sportmodels.NewSport(id.NewSportID(), "Swimming", "", now)
	s.Require().NoError(err)
	s.Require().NoError(s.sports.CreateIfNameAvailable(ctx, sport))

	category, err := sportmodels.NewCategory(id.NewCategoryID(), sport.ID, "50m freestyle", money.FromMinor(50000), now)
	s.Require().NoError(err)
	s.Require().NoError(s.categories.Create(ctx, category))
	s.categoryID = category.ID

	student, err := studentmodels.NewStudent(id.NewStudentID(), id.NewInstitutionID(), "Asha Rao", id.GenderFemale, now.AddDate(-15, 0, 0), now)
	s.Require().NoError(err)
	s.Require().NoError(s.students.Create(ctx, student))
	s.studentID = student.ID
}

func (s *PostgresRegistrationSuite) newRegistration() *models.Registration {
	registration, err := models.NewRegistration(
		id.NewRegistrationID(),
		s.studentID,
		s.categoryID,
		capacitymodels.NewSeatToken(s.categoryID),
		time.Now().UTC(),
	)
	s.Require().NoError(err)
	return registration
}

// TestLiveRowBlocksSecondRegistration covers the partial unique index: one
// live registration per student and category, history rows do not count.
func (s *PostgresRegistrationSuite) TestLiveRowBlocksSecondRegistration() {
	ctx := context.Background()

	first := s.newRegistration()
	s.Require().NoError(s.store.Create(ctx, first))

	err := s.store.Create(ctx, s.newRegistration())
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	_, err = s.store.Execute(ctx, first.ID,
		func(r *models.Registration) error { return r.CanCancel(false) },
		func(r *models.Registration) { r.ApplyCancel("changed my mind", time.Now().UTC()) },
	)
	s.Require().NoError(err)

	// The cancelled row is history now; the student may register again.
	s.NoError(s.store.Create(ctx, s.newRegistration()))
}

// TestConcurrentCancelOneWins drives Execute from many goroutines; the row
// lock serializes them so exactly one cancel lands and the rest see the
// already-cancelled state.
func (s *PostgresRegistrationSuite) TestConcurrentCancelOneWins() {
	ctx := context.Background()
	const goroutines = 20

	registration := s.newRegistration()
	registration.ApplyConfirm(time.Now().UTC())
	s.Require().NoError(s.store.Create(ctx, registration))

	var wg sync.WaitGroup
	var cancelled atomic.Int32
	var refused atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := s.store.Execute(ctx, registration.ID,
				func(r *models.Registration) error { return r.CanCancel(false) },
				func(r *models.Registration) { r.ApplyCancel("duplicate entry", time.Now().UTC()) },
			)
			switch {
			case err == nil:
				cancelled.Add(1)
			case dErrors.HasCode(err, dErrors.CodeInvalidTransition):
				refused.Add(1)
			default:
				s.Require().NoError(err)
			}
		}()
	}

	wg.Wait()

	s.Equal(int32(1), cancelled.Load(), "exactly one cancel should win")
	s.Equal(int32(goroutines-1), refused.Load(), "losers should see the terminal state")

	stored, err := s.store.FindByID(ctx, registration.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCancelled, stored.Status)
}

func (s *PostgresRegistrationSuite) TestExecutePersistsMutation() {
	ctx := context.Background()

	registration := s.newRegistration()
	registration.Notes = "needs lane 4"
	s.Require().NoError(s.store.Create(ctx, registration))

	cancelledAt := time.Now().UTC().Truncate(time.Millisecond)
	_, err := s.store.Execute(ctx, registration.ID,
		func(r *models.Registration) error { return r.CanCancel(false) },
		func(r *models.Registration) { r.ApplyCancel("injury", cancelledAt) },
	)
	s.Require().NoError(err)

	stored, err := s.store.FindByID(ctx, registration.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCancelled, stored.Status)
	s.Equal("injury", stored.CancelReason)
	s.Equal("needs lane 4", stored.Notes)
	s.WithinDuration(cancelledAt, stored.CancelledAt, time.Millisecond)
	s.True(stored.PaymentID.IsNil())
}

func (s *PostgresRegistrationSuite) TestExecuteUnknownRegistration() {
	ctx := context.Background()
	_, err := s.store.Execute(ctx, id.NewRegistrationID(),
		func(r *models.Registration) error { return nil },
		func(r *models.Registration) {},
	)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestArchivedRowLeavesListings covers the soft delete: archived rows drop
// out of listings and counts but FindByID still returns them.
func (s *PostgresRegistrationSuite) TestArchivedRowLeavesListings() {
	ctx := context.Background()

	registration := s.newRegistration()
	s.Require().NoError(s.store.Create(ctx, registration))

	now := time.Now().UTC()
	_, err := s.store.Execute(ctx, registration.ID,
		func(r *models.Registration) error { return r.CanCancel(false) },
		func(r *models.Registration) { r.ApplyCancel("withdrew", now) },
	)
	s.Require().NoError(err)

	archived, err := s.store.Execute(ctx, registration.ID,
		func(r *models.Registration) error { return r.CanArchive() },
		func(r *models.Registration) { r.ApplyArchive(now) },
	)
	s.Require().NoError(err)
	s.True(archived.Archived)

	listed, err := s.store.ListByStudent(ctx, s.studentID)
	s.Require().NoError(err)
	s.Empty(listed)

	count, err := s.store.CountByStatus(ctx, models.StatusCancelled)
	s.Require().NoError(err)
	s.Zero(count)

	stored, err := s.store.FindByID(ctx, registration.ID)
	s.Require().NoError(err)
	s.True(stored.Archived)
	s.WithinDuration(now, stored.ArchivedAt, time.Millisecond)
}
