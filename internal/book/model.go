package book

import (
	"time"

	"github.com/google/uuid"
)

// Owner is the public slice of the book's owner exposed in listings
type Owner struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

// Book is a catalogued book. The owner is fixed at creation; updates and
// deletes are reserved to that user.
type Book struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Publisher     string    `json:"publisher"`
	PublishedDate time.Time `json:"published_date"`
	PageCount     int       `json:"page_count"`
	Language      string    `json:"language"`
	UserID        uuid.UUID `json:"user_id"`
	Owner         *Owner    `json:"owner,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
