package review

import (
	"time"

	"github.com/google/uuid"
)

// Reviewer is the public slice of the review author exposed in listings
type Reviewer struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

type Review struct {
	ID         uuid.UUID `json:"id"`
	Rating     int       `json:"rating"`
	ReviewText string    `json:"review_text"`
	UserID     uuid.UUID `json:"user_id"`
	BookID     uuid.UUID `json:"book_id"`
	Reviewer   *Reviewer `json:"reviewer,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
