package store

import (
	"context"
	"time"

	"github.com/kwscout/kw-scout/internal/pkg/errors"
)

// SaveAdsRecords appends imported advertising rows in one transaction and
// returns the number inserted.
func (s *Store) SaveAdsRecords(ctx context.Context, records []AdsSearchTermRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.StorageError("starting ads import transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO ads_search_terms
		 (keyword, campaign, impressions, clicks, orders_count, spend, sales,
		  start_date, end_date, imported_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, errors.StorageError("preparing ads insert", err)
	}
	defer stmt.Close()

	imported := formatTime(time.Now())
	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			normalizeKeyword(rec.Keyword), rec.Campaign,
			rec.Impressions, rec.Clicks, rec.Orders, rec.Spend, rec.Sales,
			formatTime(rec.StartDate), formatTime(rec.EndDate), imported)
		if err != nil {
			return 0, errors.StorageError("inserting ads record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.StorageError("committing ads import", err)
	}
	return len(records), nil
}

// AdsAggregate sums all advertising rows for one keyword. Returns nil when
// the keyword has no advertising history, which is not an error.
func (s *Store) AdsAggregate(ctx context.Context, keyword string) (*AdsAggregate, error) {
	keyword = normalizeKeyword(keyword)

	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(impressions), 0), COALESCE(SUM(clicks), 0),
		        COALESCE(SUM(orders_count), 0), COALESCE(SUM(spend), 0),
		        COALESCE(SUM(sales), 0), COUNT(*)
		 FROM ads_search_terms WHERE keyword = ?`, keyword)

	var agg AdsAggregate
	var count int
	err := row.Scan(&agg.Impressions, &agg.Clicks, &agg.Orders, &agg.Spend, &agg.Sales, &count)
	if err != nil {
		return nil, errors.StorageError("aggregating ads records", err)
	}
	if count == 0 {
		return nil, nil
	}
	agg.Keyword = keyword

	return &agg, nil
}

// AdsKeywords returns every keyword with imported advertising history,
// aggregated, ordered by spend descending.
func (s *Store) AdsKeywords(ctx context.Context) ([]AdsAggregate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT keyword, SUM(impressions), SUM(clicks), SUM(orders_count),
		        SUM(spend), SUM(sales)
		 FROM ads_search_terms
		 GROUP BY keyword
		 ORDER BY SUM(spend) DESC, keyword`)
	if err != nil {
		return nil, errors.StorageError("listing ads keywords", err)
	}
	defer rows.Close()

	var aggs []AdsAggregate
	for rows.Next() {
		var agg AdsAggregate
		if err := rows.Scan(&agg.Keyword, &agg.Impressions, &agg.Clicks,
			&agg.Orders, &agg.Spend, &agg.Sales); err != nil {
			return nil, errors.StorageError("scanning ads aggregate", err)
		}
		aggs = append(aggs, agg)
	}
	return aggs, rows.Err()
}
