package models

import (
	"github.com/google/uuid"

	id "sportsfest/pkg/domain"
)

// SeatToken represents one held seat in a category. The token is the unit of
// release: releasing the same token twice frees the seat once.
type SeatToken struct {
	ID         uuid.UUID     `json:"id"`
	CategoryID id.CategoryID `json:"category_id"`
}

func NewSeatToken(categoryID id.CategoryID) SeatToken {
	return SeatToken{ID: uuid.New(), CategoryID: categoryID}
}

// IsZero reports whether the token was never issued.
func (t SeatToken) IsZero() bool {
	return t.ID == uuid.Nil
}
