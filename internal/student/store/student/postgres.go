package student

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"sportsfest/internal/student/models"
	id "sportsfest/pkg/domain"
	"sportsfest/pkg/platform/sentinel"
	"sportsfest/pkg/platform/tx"
)

// PostgresStore persists students in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const studentColumns = `id, institution_id, full_name, gender, date_of_birth, email, phone,
	has_medical_certificate, guardian_consent, is_active, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, student *models.Student) error {
	query := `
		INSERT INTO students (
			id, institution_id, full_name, gender, date_of_birth, email, phone,
			has_medical_certificate, guardian_consent, is_active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		student.ID.String(),
		student.InstitutionID.String(),
		student.FullName,
		student.Gender.String(),
		student.DateOfBirth,
		nullableString(student.Email),
		nullableString(student.Phone),
		student.HasMedicalCertificate,
		student.GuardianConsent,
		student.IsActive,
		student.CreatedAt,
		student.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, studentID id.StudentID) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	student, err := scanStudent(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, studentID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return student, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, address string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE email = LOWER($1)`
	student, err := scanStudent(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, address))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find student by email: %w", err)
	}
	return student, nil
}

func (s *PostgresStore) ListByInstitution(ctx context.Context, institutionID id.InstitutionID) ([]*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE institution_id = $1 ORDER BY full_name`
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx, query, institutionID.String())
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var out []*models.Student
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, student *models.Student) error {
	query := `
		UPDATE students
		SET institution_id = $2, full_name = $3, gender = $4, date_of_birth = $5,
			email = $6, phone = $7, has_medical_certificate = $8, guardian_consent = $9,
			is_active = $10, updated_at = $11
		WHERE id = $1
	`
	result, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		student.ID.String(),
		student.InstitutionID.String(),
		student.FullName,
		student.Gender.String(),
		student.DateOfBirth,
		nullableString(student.Email),
		nullableString(student.Phone),
		student.HasMedicalCertificate,
		student.GuardianConsent,
		student.IsActive,
		student.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update student: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := tx.Executor(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type studentRow interface {
	Scan(dest ...any) error
}

func scanStudent(row studentRow) (*models.Student, error) {
	var student models.Student
	var rawID, rawInstitutionID, rawGender string
	var studentEmail, phone sql.NullString
	if err := row.Scan(
		&rawID,
		&rawInstitutionID,
		&student.FullName,
		&rawGender,
		&student.DateOfBirth,
		&studentEmail,
		&phone,
		&student.HasMedicalCertificate,
		&student.GuardianConsent,
		&student.IsActive,
		&student.CreatedAt,
		&student.UpdatedAt,
	); err != nil {
		return nil, err
	}

	parsedID, err := id.ParseStudentID(rawID)
	if err != nil {
		return nil, err
	}
	parsedInstitutionID, err := id.ParseInstitutionID(rawInstitutionID)
	if err != nil {
		return nil, err
	}
	gender, err := id.ParseGender(rawGender)
	if err != nil {
		return nil, err
	}
	student.ID = parsedID
	student.InstitutionID = parsedInstitutionID
	student.Gender = gender
	student.Email = studentEmail.String
	student.Phone = phone.String
	return &student, nil
}
