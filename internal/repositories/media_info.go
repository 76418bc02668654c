package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/samber/lo"
)

// ErrNotFound is returned by single-row lookups with no match.
var ErrNotFound = errors.New("not found")

// sqliteMaxVars keeps IN (...) lists under the SQLite bound variable limit.
const sqliteMaxVars = 500

// MediaInfoRepository caches [models.MediaInfo] entries. Entries are written whole and never merged.
type MediaInfoRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewMediaInfoRepository(db *sql.DB) *MediaInfoRepository {
	return &MediaInfoRepository{db: db, now: time.Now}
}

// Get returns the cached entry for id or [ErrNotFound].
func (r *MediaInfoRepository) Get(ctx context.Context, id models.MediaID) (models.MediaInfo, error) {
	query := `
		SELECT title, authors, thumbnail, duration_ms
		FROM media_info
		WHERE provider = ? AND id = ?
	`

	var (
		info      models.MediaInfo
		authors   string
		thumbnail string
	)
	err := r.db.QueryRowContext(ctx, query, id.Provider.String(), id.ID).Scan(&info.Title, &authors, &thumbnail, &info.DurationMS)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MediaInfo{}, fmt.Errorf("%w: media info %s", ErrNotFound, id)
	}
	if err != nil {
		return models.MediaInfo{}, fmt.Errorf("failed to get media info: %w", err)
	}

	if err := decodeInfo(&info, authors, thumbnail); err != nil {
		return models.MediaInfo{}, err
	}
	return info, nil
}

// GetMany returns the cached entries among ids. Missing ids are absent from the result.
func (r *MediaInfoRepository) GetMany(ctx context.Context, provider models.Provider, ids []string) (map[string]models.MediaInfo, error) {
	out := make(map[string]models.MediaInfo, len(ids))

	for _, chunk := range lo.Chunk(lo.Uniq(ids), sqliteMaxVars) {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		query := fmt.Sprintf(`
			SELECT id, title, authors, thumbnail, duration_ms
			FROM media_info
			WHERE provider = ? AND id IN (%s)
		`, placeholders)

		args := make([]any, 0, len(chunk)+1)
		args = append(args, provider.String())
		for _, id := range chunk {
			args = append(args, id)
		}

		if err := r.scanMany(ctx, out, query, args...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *MediaInfoRepository) scanMany(ctx context.Context, out map[string]models.MediaInfo, query string, args ...any) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query media info: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id        string
			info      models.MediaInfo
			authors   string
			thumbnail string
		)
		if err := rows.Scan(&id, &info.Title, &authors, &thumbnail, &info.DurationMS); err != nil {
			return fmt.Errorf("failed to scan media info: %w", err)
		}
		if err := decodeInfo(&info, authors, thumbnail); err != nil {
			return err
		}
		out[id] = info
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	return nil
}

// Put upserts the entry for id.
func (r *MediaInfoRepository) Put(ctx context.Context, id models.MediaID, info models.MediaInfo) error {
	return r.PutMany(ctx, id.Provider, map[string]models.MediaInfo{id.ID: info})
}

// PutMany upserts every entry in one transaction.
func (r *MediaInfoRepository) PutMany(ctx context.Context, provider models.Provider, entries map[string]models.MediaInfo) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO media_info (provider, id, title, authors, thumbnail, duration_ms, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, id) DO UPDATE SET
			title = excluded.title,
			authors = excluded.authors,
			thumbnail = excluded.thumbnail,
			duration_ms = excluded.duration_ms,
			fetched_at = excluded.fetched_at
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := r.now()
	for id, info := range entries {
		authors, thumbnail, err := encodeInfo(info)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, provider.String(), id, info.Title, authors, thumbnail, info.DurationMS, now); err != nil {
			return fmt.Errorf("failed to upsert media info %s:%s: %w", provider, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit media info: %w", err)
	}
	return nil
}

// Clear drops every entry and returns how many were removed.
func (r *MediaInfoRepository) Clear(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM media_info")
	if err != nil {
		return 0, fmt.Errorf("failed to clear media info: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}

// Count returns the number of cached entries per provider.
func (r *MediaInfoRepository) Count(ctx context.Context) (map[models.Provider]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT provider, COUNT(*) FROM media_info GROUP BY provider")
	if err != nil {
		return nil, fmt.Errorf("failed to count media info: %w", err)
	}
	defer rows.Close()

	out := map[models.Provider]int{}
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		p, err := models.ParseProvider(name)
		if err != nil {
			continue
		}
		out[p] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func encodeInfo(info models.MediaInfo) (string, string, error) {
	authors := info.Authors
	if authors == nil {
		authors = []string{}
	}
	a, err := json.Marshal(authors)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode authors: %w", err)
	}
	th, err := json.Marshal(info.Thumbnail)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return string(a), string(th), nil
}

func decodeInfo(info *models.MediaInfo, authors, thumbnail string) error {
	if err := json.Unmarshal([]byte(authors), &info.Authors); err != nil {
		return fmt.Errorf("failed to decode authors: %w", err)
	}
	if len(info.Authors) == 0 {
		info.Authors = nil
	}
	if err := json.Unmarshal([]byte(thumbnail), &info.Thumbnail); err != nil {
		return fmt.Errorf("failed to decode thumbnail: %w", err)
	}
	return nil
}
