package service

import (
	"context"
	"errors"

	studentmodels "sportsfest/internal/student/models"
	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/platform/sentinel"
)

// StudentRoster is the slice of the student store the directory needs.
type StudentRoster interface {
	FindByEmail(ctx context.Context, address string) (*studentmodels.Student, error)
}

// StudentDirectory resolves login addresses against the student roster.
// Admin callers authenticate with the static admin token instead, so the
// roster is the only directory the OTP flow needs.
type StudentDirectory struct {
	students StudentRoster
}

func NewStudentDirectory(students StudentRoster) *StudentDirectory {
	return &StudentDirectory{students: students}
}

// Resolve returns the actor behind an address.
//
// Errors: CodeNotFound when no student carries the address, CodeForbidden
// when the student is deactivated.
func (d *StudentDirectory) Resolve(ctx context.Context, address string) (id.ActorID, id.Role, error) {
	student, err := d.students.FindByEmail(ctx, address)
	if errors.Is(err, sentinel.ErrNotFound) {
		return id.ActorID{}, "", dErrors.New(dErrors.CodeNotFound, "no account for this email")
	}
	if err != nil {
		return id.ActorID{}, "", err
	}
	if !student.IsActive {
		return id.ActorID{}, "", dErrors.New(dErrors.CodeForbidden, "account is deactivated")
	}
	return id.ActorID(student.ID), id.RoleStudent, nil
}
