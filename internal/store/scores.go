package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/kwscout/kw-scout/internal/pkg/errors"
)

// SaveScore appends one scoring result. History is never overwritten; the
// newest record per (keyword, department) is the current score.
func (s *Store) SaveScore(ctx context.Context, score *KeywordScore) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO keyword_scores
		 (keyword, department, score, mining_score, competition_score,
		  ads_score, volume_score, used_mining, used_competition, used_ads,
		  used_volume, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		normalizeKeyword(score.Keyword), score.Department, score.Score,
		score.Mining, score.Competition, score.Ads, score.Volume,
		boolToInt(score.UsedMining), boolToInt(score.UsedCompetition),
		boolToInt(score.UsedAds), boolToInt(score.UsedVolume),
		formatTime(score.ComputedAt))
	if err != nil {
		return errors.StorageError("inserting score", err)
	}

	score.ID, _ = res.LastInsertId()
	return nil
}

const scoreColumns = `id, keyword, department, score, mining_score,
	competition_score, ads_score, volume_score, used_mining,
	used_competition, used_ads, used_volume, computed_at`

// LatestScore returns the newest score record for a keyword, or a not-found
// error when the keyword has never been scored.
func (s *Store) LatestScore(ctx context.Context, keyword, department string) (*KeywordScore, error) {
	keyword = normalizeKeyword(keyword)

	row := s.db.QueryRowContext(ctx,
		`SELECT `+scoreColumns+`
		 FROM keyword_scores WHERE keyword = ? AND department = ?
		 ORDER BY computed_at DESC, id DESC LIMIT 1`,
		keyword, department)

	score, err := scanScore(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundError("score for keyword " + keyword)
	}
	if err != nil {
		return nil, errors.StorageError("reading score", err)
	}
	return score, nil
}

// TopScores returns the current score of every keyword in a department,
// highest first, capped at limit when positive.
func (s *Store) TopScores(ctx context.Context, department string, limit int) ([]KeywordScore, error) {
	query := `SELECT ` + scoreColumns + `
		 FROM keyword_scores ks
		 WHERE department = ?
		   AND id = (SELECT k2.id FROM keyword_scores k2
		             WHERE k2.keyword = ks.keyword AND k2.department = ks.department
		             ORDER BY k2.computed_at DESC, k2.id DESC LIMIT 1)
		 ORDER BY score DESC, keyword`
	args := []any{department}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.StorageError("listing top scores", err)
	}
	defer rows.Close()

	return collectScores(rows)
}

// ScoresSince returns every score record in a department computed at or
// after the cutoff, oldest first. Used for trend windows.
func (s *Store) ScoresSince(ctx context.Context, department string, since time.Time) ([]KeywordScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scoreColumns+`
		 FROM keyword_scores
		 WHERE department = ? AND computed_at >= ?
		 ORDER BY computed_at, id`,
		department, formatTime(since))
	if err != nil {
		return nil, errors.StorageError("listing score history", err)
	}
	defer rows.Close()

	return collectScores(rows)
}

func collectScores(rows *sql.Rows) ([]KeywordScore, error) {
	var scores []KeywordScore
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return nil, errors.StorageError("scanning score", err)
		}
		scores = append(scores, *score)
	}
	return scores, rows.Err()
}

func scanScore(row rowScanner) (*KeywordScore, error) {
	var score KeywordScore
	var computed scanTime
	err := row.Scan(&score.ID, &score.Keyword, &score.Department, &score.Score,
		&score.Mining, &score.Competition, &score.Ads, &score.Volume,
		&score.UsedMining, &score.UsedCompetition, &score.UsedAds,
		&score.UsedVolume, &computed)
	if err != nil {
		return nil, err
	}
	score.ComputedAt = computed.t
	return &score, nil
}
