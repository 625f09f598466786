package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	studentmetrics "sportsfest/internal/student/metrics"
	"sportsfest/internal/student/models"
	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/email"
	"sportsfest/pkg/platform/sentinel"
	"sportsfest/pkg/requestcontext"
)

// StudentStore persists students.
type StudentStore interface {
	Create(ctx context.Context, student *models.Student) error
	FindByID(ctx context.Context, studentID id.StudentID) (*models.Student, error)
	FindByEmail(ctx context.Context, address string) (*models.Student, error)
	ListByInstitution(ctx context.Context, institutionID id.InstitutionID) ([]*models.Student, error)
	Update(ctx context.Context, student *models.Student) error
	Count(ctx context.Context) (int, error)
}

type serviceConfig struct {
	logger  *slog.Logger
	metrics *studentmetrics.Metrics
}

type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *studentmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

// Service manages the student roster.
type Service struct {
	students StudentStore
	logger   *slog.Logger
	metrics  *studentmetrics.Metrics
}

func New(students StudentStore, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		students: students,
		logger:   cfg.logger,
		metrics:  cfg.metrics,
	}
}

// EnrollParams carries the roster fields for one student.
type EnrollParams struct {
	InstitutionID id.InstitutionID
	FullName      string
	Gender        id.Gender
	DateOfBirth   time.Time
	Email         string
	Phone         string
}

// Enroll adds a student to the roster.
func (s *Service) Enroll(ctx context.Context, params EnrollParams) (*models.Student, error) {
	now := requestcontext.Now(ctx)

	student, err := models.NewStudent(id.NewStudentID(), params.InstitutionID, params.FullName, params.Gender, params.DateOfBirth, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}
	if params.Email != "" {
		if err := student.SetEmail(params.Email); err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
	}
	student.Phone = params.Phone

	if err := s.students.Create(ctx, student); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "a student with this email is already enrolled")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to enroll student")
	}

	s.logger.InfoContext(ctx, "student enrolled",
		"student_id", student.ID.String(),
		"institution_id", student.InstitutionID.String(),
		"email", email.Mask(student.Email),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.metrics.IncrementStudentEnrolled()
	return student, nil
}

func (s *Service) GetStudent(ctx context.Context, studentID id.StudentID) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "student not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load student")
	}
	return student, nil
}

// GetStudentByEmail resolves a roster entry from a login identifier.
func (s *Service) GetStudentByEmail(ctx context.Context, address string) (*models.Student, error) {
	normalized, err := email.Normalize(address)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
	}
	student, err := s.students.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "student not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load student")
	}
	return student, nil
}

func (s *Service) ListByInstitution(ctx context.Context, institutionID id.InstitutionID) ([]*models.Student, error) {
	students, err := s.students.ListByInstitution(ctx, institutionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list students")
	}
	return students, nil
}

// SetPaperwork records which documents the institution has on file for the
// student; nil flags are left unchanged.
func (s *Service) SetPaperwork(ctx context.Context, studentID id.StudentID, medicalCertificate, guardianConsent *bool) (*models.Student, error) {
	student, err := s.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	if medicalCertificate != nil {
		student.HasMedicalCertificate = *medicalCertificate
	}
	if guardianConsent != nil {
		student.GuardianConsent = *guardianConsent
	}
	student.UpdatedAt = requestcontext.Now(ctx)

	if err := s.students.Update(ctx, student); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "student not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update student")
	}
	return student, nil
}
