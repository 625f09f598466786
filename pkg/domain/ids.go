package domain

import (
	"github.com/google/uuid"

	dErrors "sportsfest/pkg/domain-errors"
)

// Typed identifiers for the core entities. Distinct types keep a student ID
// from ever standing in for a category or registration ID at compile time.
//
// Invariant: IDs must be valid, non-empty, non-nil UUIDs. Construct from
// external input via the Parse* functions; direct casting bypasses validation.
type (
	ActorID        uuid.UUID
	StudentID      uuid.UUID
	InstitutionID  uuid.UUID
	SportID        uuid.UUID
	CategoryID     uuid.UUID
	RegistrationID uuid.UUID
	PaymentID      uuid.UUID
	SponsorshipID  uuid.UUID
)

// NewActorID mints a fresh random actor ID.
func NewActorID() ActorID { return ActorID(uuid.New()) }

// NewStudentID mints a fresh random student ID.
func NewStudentID() StudentID { return StudentID(uuid.New()) }

// NewInstitutionID mints a fresh random institution ID.
func NewInstitutionID() InstitutionID { return InstitutionID(uuid.New()) }

// NewSportID mints a fresh random sport ID.
func NewSportID() SportID { return SportID(uuid.New()) }

// NewCategoryID mints a fresh random category ID.
func NewCategoryID() CategoryID { return CategoryID(uuid.New()) }

// NewRegistrationID mints a fresh random registration ID.
func NewRegistrationID() RegistrationID { return RegistrationID(uuid.New()) }

// NewPaymentID mints a fresh random payment ID.
func NewPaymentID() PaymentID { return PaymentID(uuid.New()) }

// NewSponsorshipID mints a fresh random sponsorship ID.
func NewSponsorshipID() SponsorshipID { return SponsorshipID(uuid.New()) }

func (id ActorID) String() string        { return uuid.UUID(id).String() }
func (id StudentID) String() string      { return uuid.UUID(id).String() }
func (id InstitutionID) String() string  { return uuid.UUID(id).String() }
func (id SportID) String() string        { return uuid.UUID(id).String() }
func (id CategoryID) String() string     { return uuid.UUID(id).String() }
func (id RegistrationID) String() string { return uuid.UUID(id).String() }
func (id PaymentID) String() string      { return uuid.UUID(id).String() }
func (id SponsorshipID) String() string  { return uuid.UUID(id).String() }

func (id ActorID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id StudentID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id InstitutionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id SportID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id CategoryID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id RegistrationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id PaymentID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id SponsorshipID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// ParseActorID validates and converts external input into an ActorID.
func ParseActorID(s string) (ActorID, error) {
	id, err := parseUUID(s, "actor")
	return ActorID(id), err
}

// ParseStudentID validates and converts external input into a StudentID.
func ParseStudentID(s string) (StudentID, error) {
	id, err := parseUUID(s, "student")
	return StudentID(id), err
}

// ParseInstitutionID validates and converts external input into an InstitutionID.
func ParseInstitutionID(s string) (InstitutionID, error) {
	id, err := parseUUID(s, "institution")
	return InstitutionID(id), err
}

// ParseSportID validates and converts external input into a SportID.
func ParseSportID(s string) (SportID, error) {
	id, err := parseUUID(s, "sport")
	return SportID(id), err
}

// ParseCategoryID validates and converts external input into a CategoryID.
func ParseCategoryID(s string) (CategoryID, error) {
	id, err := parseUUID(s, "category")
	return CategoryID(id), err
}

// ParseRegistrationID validates and converts external input into a RegistrationID.
func ParseRegistrationID(s string) (RegistrationID, error) {
	id, err := parseUUID(s, "registration")
	return RegistrationID(id), err
}

// ParsePaymentID validates and converts external input into a PaymentID.
func ParsePaymentID(s string) (PaymentID, error) {
	id, err := parseUUID(s, "payment")
	return PaymentID(id), err
}

// ParseSponsorshipID validates and converts external input into a SponsorshipID.
func ParseSponsorshipID(s string) (SponsorshipID, error) {
	id, err := parseUUID(s, "sponsorship")
	return SponsorshipID(id), err
}

// parseUUID enforces the shared ID invariant for every typed identifier.
func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id cannot be empty", kind)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id is not a valid UUID", kind)
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id cannot be the nil UUID", kind)
	}
	return id, nil
}
