package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	studentmodels "sportsfest/internal/student/models"
	studentservice "sportsfest/internal/student/service"
	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/platform/httputil"
	"sportsfest/pkg/requestcontext"
)

// StudentService manages the participant roster.
type StudentService interface {
	Enroll(ctx context.Context, params studentservice.EnrollParams) (*studentmodels.Student, error)
	GetStudent(ctx context.Context, studentID id.StudentID) (*studentmodels.Student, error)
	ListByInstitution(ctx context.Context, institutionID id.InstitutionID) ([]*studentmodels.Student, error)
	SetPaperwork(ctx context.Context, studentID id.StudentID, medicalCertificate, guardianConsent *bool) (*studentmodels.Student, error)
}

type studentHandler struct {
	logger   *slog.Logger
	students StudentService
}

func newStudentHandler(students StudentService, logger *slog.Logger) *studentHandler {
	return &studentHandler{logger: logger, students: students}
}

func (h *studentHandler) register(r chi.Router, g Gates) {
	r.With(g.Admin).Post("/students", h.handleEnroll)
	r.With(g.Admin).Get("/students", h.handleListByInstitution)
	r.With(g.Admin).Patch("/students/{studentID}/paperwork", h.handleSetPaperwork)
	r.With(g.Auth).Get("/students/{studentID}", h.handleGet)
}

type enrollStudentBody struct {
	InstitutionID string `json:"institution_id"`
	FullName      string `json:"full_name"`
	Gender        string `json:"gender"`
	DateOfBirth   string `json:"date_of_birth"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`

	institutionID id.InstitutionID
	gender        id.Gender
	dateOfBirth   time.Time
}

func (b *enrollStudentBody) Validate() error {
	var err error
	if b.institutionID, err = id.ParseInstitutionID(b.InstitutionID); err != nil {
		return err
	}
	if b.gender, err = id.ParseGender(b.Gender); err != nil {
		return err
	}
	if strings.TrimSpace(b.FullName) == "" {
		return dErrors.New(dErrors.CodeValidation, "full_name is required")
	}
	if b.dateOfBirth, err = time.Parse("2006-01-02", b.DateOfBirth); err != nil {
		return dErrors.New(dErrors.CodeValidation, "date_of_birth must be YYYY-MM-DD")
	}
	return nil
}

func (h *studentHandler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, ok := httputil.DecodeAndPrepare[enrollStudentBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	student, err := h.students.Enroll(ctx, studentservice.EnrollParams{
		InstitutionID: body.institutionID,
		FullName:      body.FullName,
		Gender:        body.gender,
		DateOfBirth:   body.dateOfBirth,
		Email:         body.Email,
		Phone:         body.Phone,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, student)
}

func (h *studentHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	studentID, err := id.ParseStudentID(chi.URLParam(r, "studentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	student, err := h.students.GetStudent(r.Context(), studentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, student)
}

func (h *studentHandler) handleListByInstitution(w http.ResponseWriter, r *http.Request) {
	institutionID, err := id.ParseInstitutionID(r.URL.Query().Get("institution_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	students, err := h.students.ListByInstitution(r.Context(), institutionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, students)
}

type paperworkBody struct {
	MedicalCertificate *bool `json:"medical_certificate,omitempty"`
	GuardianConsent    *bool `json:"guardian_consent,omitempty"`
}

func (b *paperworkBody) Validate() error {
	if b.MedicalCertificate == nil && b.GuardianConsent == nil {
		return dErrors.New(dErrors.CodeValidation, "nothing to update")
	}
	return nil
}

func (h *studentHandler) handleSetPaperwork(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	studentID, err := id.ParseStudentID(chi.URLParam(r, "studentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	body, ok := httputil.DecodeAndPrepare[paperworkBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	student, err := h.students.SetPaperwork(ctx, studentID, body.MedicalCertificate, body.GuardianConsent)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, student)
}
