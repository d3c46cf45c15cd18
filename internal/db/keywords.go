package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"searchrank/internal/models"
)

// RecordSearch appends the event to the search log and increments the
// keyword's aggregate count in one transaction. last_searched_at only moves
// forward, so events applied out of order keep the latest time.
func (d *DB) RecordSearch(ctx context.Context, event models.SearchEvent) error {
	err := pgx.BeginFunc(ctx, d.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO search_events (keyword, searched_at) VALUES ($1, $2)
		`, string(event.Keyword), event.SearchedAt); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO search_keywords (keyword, search_count, first_searched_at, last_searched_at)
			VALUES ($1, 1, $2, $2)
			ON CONFLICT (keyword) DO UPDATE
			SET search_count = search_keywords.search_count + 1,
			    last_searched_at = GREATEST(search_keywords.last_searched_at, EXCLUDED.last_searched_at)
		`, string(event.Keyword), event.SearchedAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: failed to record search %q: %v", ErrStoreUnavailable, event.Keyword, err)
	}
	return nil
}

// TopKeywordsByCount returns the most searched keywords, ordered the same way
// as the in-memory ranker.
func (d *DB) TopKeywordsByCount(ctx context.Context, limit int) ([]models.PopularityEntry, error) {
	if limit <= 0 {
		return []models.PopularityEntry{}, nil
	}
	rows, err := d.Pool.Query(ctx, `
		SELECT keyword, search_count, last_searched_at
		FROM search_keywords
		WHERE search_count > 0
		ORDER BY search_count DESC, last_searched_at DESC, keyword ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	entries := make([]models.PopularityEntry, 0, limit)
	for rows.Next() {
		var e models.PopularityEntry
		var keyword string
		if err := rows.Scan(&keyword, &e.Score, &e.LastUpdated); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		e.Keyword = models.Keyword(keyword)
		e.LastUpdated = e.LastUpdated.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return entries, nil
}

// RecentKeywords returns the most recently searched keywords, newest first.
func (d *DB) RecentKeywords(ctx context.Context, limit int) ([]models.RecencyEntry, error) {
	if limit <= 0 {
		return []models.RecencyEntry{}, nil
	}
	rows, err := d.Pool.Query(ctx, `
		SELECT keyword, last_searched_at
		FROM search_keywords
		ORDER BY last_searched_at DESC, keyword ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	entries := make([]models.RecencyEntry, 0, limit)
	for rows.Next() {
		var e models.RecencyEntry
		var keyword string
		if err := rows.Scan(&keyword, &e.ObservedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		e.Keyword = models.Keyword(keyword)
		e.ObservedAt = e.ObservedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return entries, nil
}

// KeywordCount returns the stored search count for one keyword.
func (d *DB) KeywordCount(ctx context.Context, keyword models.Keyword) (int64, error) {
	var count int64
	err := d.Pool.QueryRow(ctx, `
		SELECT search_count FROM search_keywords WHERE keyword = $1
	`, string(keyword)).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrKeywordNotFound
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

// PopularKeywords returns the keyword column of TopKeywordsByCount.
func (d *DB) PopularKeywords(ctx context.Context, limit int) ([]models.Keyword, error) {
	entries, err := d.TopKeywordsByCount(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.Keyword, len(entries))
	for i, e := range entries {
		out[i] = e.Keyword
	}
	return out, nil
}

// RecentKeywordList returns the keyword column of RecentKeywords.
func (d *DB) RecentKeywordList(ctx context.Context, limit int) ([]models.Keyword, error) {
	entries, err := d.RecentKeywords(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.Keyword, len(entries))
	for i, e := range entries {
		out[i] = e.Keyword
	}
	return out, nil
}
