package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Migrate creates the tables and unique indexes the application relies on.
// The indexes are what actually enforce uniqueness of emails, usernames,
// tag names, and the one-review-per-user-per-book rule; application-level
// existence checks are a fast path on top of them.
func Migrate(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*User)(nil),
		(*Book)(nil),
		(*Review)(nil),
		(*Tag)(nil),
		(*BookTag)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
	}

	indexes := []struct {
		name    string
		model   any
		columns []string
	}{
		{"idx_users_email", (*User)(nil), []string{"email"}},
		{"idx_users_username", (*User)(nil), []string{"username"}},
		{"idx_tags_name", (*Tag)(nil), []string{"name"}},
		{"idx_reviews_user_book", (*Review)(nil), []string{"user_id", "book_id"}},
		{"idx_book_tags_book_tag", (*BookTag)(nil), []string{"book_id", "tag_id"}},
	}

	for _, idx := range indexes {
		q := db.NewCreateIndex().
			Model(idx.model).
			Unique().
			IfNotExists().
			Index(idx.name)
		for _, col := range idx.columns {
			q = q.Column(col)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
