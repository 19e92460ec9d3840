// Package reviewstore persists scraped reviews to sqlite (or a remote
// libsql replica) so downstream analysis never depends on the JSON
// artifacts surviving.
package reviewstore

import (
	"context"
	"database/sql"

	"culturepipe/lib/scrapers/reviewpages"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

func (s Store) Push(ctx context.Context, reviews []reviewpages.Review) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO review
			(company, location, platform, topic, text, rating, url, method, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, review := range reviews {
		rating := sql.NullFloat64{}
		if review.Rating != nil {
			rating = sql.NullFloat64{Float64: *review.Rating, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			review.CompanyName,
			review.Location,
			review.Platform,
			review.Topic,
			review.Text,
			rating,
			review.Url,
			review.Method,
			review.ScrapedAt,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s Store) Pull(ctx context.Context, company string) ([]reviewpages.Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT company, location, platform, topic, text, rating, url, method, scraped_at
		FROM review
		WHERE company = ?
		ORDER BY id
	`, company)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []reviewpages.Review
	for rows.Next() {
		var review reviewpages.Review
		var rating sql.NullFloat64
		err := rows.Scan(
			&review.CompanyName,
			&review.Location,
			&review.Platform,
			&review.Topic,
			&review.Text,
			&rating,
			&review.Url,
			&review.Method,
			&review.ScrapedAt,
		)
		if err != nil {
			return nil, err
		}
		if rating.Valid {
			value := rating.Float64
			review.Rating = &value
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

// HasCompanyPlatform reports whether any reviews were already stored for
// the pair, which is what the resume logic keys on.
func (s Store) HasCompanyPlatform(ctx context.Context, company, platform string) (bool, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM review WHERE company = ? AND platform = ?
	`, company, platform).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM review`).Scan(&count)
	return count, err
}
