package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the persistence model for the users table
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	FirstName    string    `bun:"first_name,notnull"`
	LastName     string    `bun:"last_name,notnull"`
	Username     string    `bun:"username,notnull,unique"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Role         string    `bun:"role,notnull,default:'user'"`
	IsVerified   bool      `bun:"is_verified,notnull,default:false"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Book is the persistence model for the books table. The owning user is set
// at creation and never changes.
type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID            uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Title         string    `bun:"title,notnull"`
	Author        string    `bun:"author,notnull"`
	Publisher     string    `bun:"publisher,notnull"`
	PublishedDate time.Time `bun:"published_date,notnull"`
	PageCount     int       `bun:"page_count,notnull"`
	Language      string    `bun:"language,notnull"`
	UserID        uuid.UUID `bun:"user_id,notnull,type:uuid"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,notnull,default:current_timestamp"`

	User *User `bun:"rel:belongs-to,join:user_id=id"`
}

// Review is the persistence model for the reviews table. The composite
// unique index on (user_id, book_id) is the source of truth for the
// one-review-per-user-per-book invariant.
type Review struct {
	bun.BaseModel `bun:"table:reviews,alias:r"`

	ID         uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Rating     int       `bun:"rating,notnull"`
	ReviewText string    `bun:"review_text,notnull"`
	UserID     uuid.UUID `bun:"user_id,notnull,type:uuid"`
	BookID     uuid.UUID `bun:"book_id,notnull,type:uuid"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,notnull,default:current_timestamp"`

	User *User `bun:"rel:belongs-to,join:user_id=id"`
	Book *Book `bun:"rel:belongs-to,join:book_id=id"`
}

// Tag is the persistence model for the tags table
type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:t"`

	ID        uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name      string    `bun:"name,notnull,unique"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// BookTag is the many-to-many join between books and tags
type BookTag struct {
	bun.BaseModel `bun:"table:book_tags,alias:bt"`

	ID        uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	BookID    uuid.UUID `bun:"book_id,notnull,type:uuid"`
	TagID     uuid.UUID `bun:"tag_id,notnull,type:uuid"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`

	Tag *Tag `bun:"rel:belongs-to,join:tag_id=id"`
}
