package store

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/kwscout/kw-scout/internal/pkg/errors"
)

// SaveObservation appends one mining observation.
func (s *Store) SaveObservation(ctx context.Context, obs *KeywordObservation) error {
	if obs.Position < 1 {
		return errors.ValidationError("observation position must be >= 1")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO keyword_observations
		 (keyword, department, source_query, depth, position, observed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		normalizeKeyword(obs.Keyword), obs.Department, obs.SourceQuery,
		obs.Depth, obs.Position, formatTime(obs.ObservedAt))
	if err != nil {
		return errors.StorageError("inserting observation", err)
	}

	obs.ID, _ = res.LastInsertId()
	return nil
}

// KeywordExists reports whether any observation exists for the keyword.
func (s *Store) KeywordExists(ctx context.Context, keyword, department string) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM keyword_observations WHERE keyword = ? AND department = ?
		 )`,
		normalizeKeyword(keyword), department)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, errors.StorageError("checking keyword existence", err)
	}
	return exists, nil
}

const aggregateColumns = `
	keyword,
	department,
	COUNT(*),
	MIN(position),
	(SELECT o2.position FROM keyword_observations o2
	 WHERE o2.keyword = o.keyword AND o2.department = o.department
	 ORDER BY o2.observed_at DESC, o2.id DESC LIMIT 1),
	MIN(observed_at),
	MAX(observed_at)`

// AggregateKeyword rolls up all observations for one keyword. Returns a
// not-found error when the keyword has never been observed.
func (s *Store) AggregateKeyword(ctx context.Context, keyword, department string) (*KeywordAggregate, error) {
	keyword = normalizeKeyword(keyword)

	row := s.db.QueryRowContext(ctx,
		`SELECT `+aggregateColumns+`
		 FROM keyword_observations o
		 WHERE keyword = ? AND department = ?
		 GROUP BY keyword, department`,
		keyword, department)

	agg, err := scanAggregate(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundError("keyword " + keyword)
	}
	if err != nil {
		return nil, errors.StorageError("aggregating keyword", err)
	}
	return agg, nil
}

// ListKeywords rolls up every observed keyword in a department, most
// frequently observed first.
func (s *Store) ListKeywords(ctx context.Context, department string) ([]KeywordAggregate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+aggregateColumns+`
		 FROM keyword_observations o
		 WHERE department = ?
		 GROUP BY keyword, department
		 ORDER BY COUNT(*) DESC, MIN(position), keyword`,
		department)
	if err != nil {
		return nil, errors.StorageError("listing keywords", err)
	}
	defer rows.Close()

	var aggs []KeywordAggregate
	for rows.Next() {
		agg, err := scanAggregate(rows)
		if err != nil {
			return nil, errors.StorageError("scanning keyword aggregate", err)
		}
		aggs = append(aggs, *agg)
	}
	return aggs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAggregate(row rowScanner) (*KeywordAggregate, error) {
	var agg KeywordAggregate
	var first, last scanTime
	err := row.Scan(&agg.Keyword, &agg.Department, &agg.Observations,
		&agg.BestPosition, &agg.LatestPosition, &first, &last)
	if err != nil {
		return nil, err
	}
	agg.FirstSeen = first.t
	agg.LastSeen = last.t
	return &agg, nil
}
