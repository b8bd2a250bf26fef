package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/kwscout/kw-scout/internal/pkg/errors"
)

// AddSeed registers a seed keyword. Adding an existing (keyword, department)
// pair is a no-op returning the stored record.
func (s *Store) AddSeed(ctx context.Context, keyword, department string) (*SeedKeyword, error) {
	keyword = normalizeKeyword(keyword)
	if keyword == "" {
		return nil, errors.ValidationError("seed keyword must not be empty")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO seed_keywords (keyword, department, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (keyword, department) DO NOTHING`,
		keyword, department, formatTime(time.Now()))
	if err != nil {
		return nil, errors.StorageError("inserting seed", err)
	}

	return s.GetSeed(ctx, keyword, department)
}

// GetSeed looks up one seed.
func (s *Store) GetSeed(ctx context.Context, keyword, department string) (*SeedKeyword, error) {
	keyword = normalizeKeyword(keyword)

	row := s.db.QueryRowContext(ctx,
		`SELECT id, keyword, department, created_at, last_mined_at
		 FROM seed_keywords WHERE keyword = ? AND department = ?`,
		keyword, department)

	var seed SeedKeyword
	var created, mined scanTime
	err := row.Scan(&seed.ID, &seed.Keyword, &seed.Department, &created, &mined)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundError("seed " + keyword)
	}
	if err != nil {
		return nil, errors.StorageError("reading seed", err)
	}
	seed.CreatedAt = created.t
	seed.LastMinedAt = mined.t

	return &seed, nil
}

// MarkSeedMined stamps a seed with the completion time of its latest mining
// run.
func (s *Store) MarkSeedMined(ctx context.Context, keyword, department string, minedAt time.Time) error {
	keyword = normalizeKeyword(keyword)

	res, err := s.db.ExecContext(ctx,
		`UPDATE seed_keywords SET last_mined_at = ?
		 WHERE keyword = ? AND department = ?`,
		formatTime(minedAt), keyword, department)
	if err != nil {
		return errors.StorageError("marking seed mined", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NotFoundError("seed " + keyword)
	}
	return nil
}

// RemoveSeed deletes a seed. Missing seeds return a not-found error.
func (s *Store) RemoveSeed(ctx context.Context, keyword, department string) error {
	keyword = normalizeKeyword(keyword)

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM seed_keywords WHERE keyword = ? AND department = ?`,
		keyword, department)
	if err != nil {
		return errors.StorageError("deleting seed", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NotFoundError("seed " + keyword)
	}
	return nil
}

// ListSeeds returns all seeds for a department, oldest first. An empty
// department lists every seed.
func (s *Store) ListSeeds(ctx context.Context, department string) ([]SeedKeyword, error) {
	query := `SELECT id, keyword, department, created_at, last_mined_at FROM seed_keywords`
	args := []any{}
	if department != "" {
		query += ` WHERE department = ?`
		args = append(args, department)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.StorageError("listing seeds", err)
	}
	defer rows.Close()

	var seeds []SeedKeyword
	for rows.Next() {
		var seed SeedKeyword
		var created, mined scanTime
		if err := rows.Scan(&seed.ID, &seed.Keyword, &seed.Department, &created, &mined); err != nil {
			return nil, errors.StorageError("scanning seed", err)
		}
		seed.CreatedAt = created.t
		seed.LastMinedAt = mined.t
		seeds = append(seeds, seed)
	}
	return seeds, rows.Err()
}
