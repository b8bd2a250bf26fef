// Package adsimport parses advertising search-term reports into storage.
//
// Exported reports vary by console version: column names drift, numbers
// arrive with currency symbols and thousands separators, and the header row
// is not always first. The importer sniffs the header within the first few
// rows and resolves columns through an alias table, so most report vintages
// load without preprocessing.
package adsimport

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kwscout/kw-scout/internal/bus"
	"github.com/kwscout/kw-scout/internal/metrics"
	"github.com/kwscout/kw-scout/internal/pkg/errors"
	"github.com/kwscout/kw-scout/internal/pkg/logger"
	"github.com/kwscout/kw-scout/internal/store"
)

// headerSniffRows bounds how deep the importer looks for the header row.
const headerSniffRows = 10

// Column aliases by canonical field, lowercased. First match wins.
var columnAliases = map[string][]string{
	"keyword":     {"customer search term", "search term", "keyword", "targeting"},
	"campaign":    {"campaign name", "campaign"},
	"impressions": {"impressions"},
	"clicks":      {"clicks"},
	"orders":      {"14 day total orders (#)", "7 day total orders (#)", "orders", "total orders"},
	"spend":       {"spend", "cost", "total spend"},
	"sales":       {"14 day total sales ($)", "7 day total sales ($)", "sales", "total sales"},
	"start_date":  {"start date"},
	"end_date":    {"end date"},
}

// Repository is the slice of storage the importer writes through.
type Repository interface {
	SaveAdsRecords(ctx context.Context, records []store.AdsSearchTermRecord) (int, error)
}

// Options filter and annotate an import.
type Options struct {
	// Campaign keeps only rows whose campaign name contains this substring,
	// case-insensitive. Empty imports everything.
	Campaign string

	// StartDate/EndDate annotate rows when the report carries no date
	// columns of its own.
	StartDate time.Time
	EndDate   time.Time
}

// Report summarizes one import.
type Report struct {
	Rows     int // data rows seen
	Imported int // rows persisted
	Filtered int // rows dropped by the campaign filter
	Skipped  int // rows dropped as unparsable or empty
}

// Importer loads advertising CSV reports.
type Importer struct {
	repo   Repository
	events bus.Bus
	pipe   *metrics.Pipeline
	log    *logger.Logger
}

// New creates an importer. events may be nil.
func New(repo Repository, events bus.Bus, pipe *metrics.Pipeline, log *logger.Logger) *Importer {
	if pipe == nil {
		pipe = metrics.NewPipeline()
	}
	return &Importer{repo: repo, events: events, pipe: pipe, log: log}
}

// ImportFile imports a report from disk.
func (i *Importer) ImportFile(ctx context.Context, path string, opts Options) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.ImportError("opening report file", err)
	}
	defer f.Close()

	return i.Import(ctx, f, opts)
}

// Import parses a report and persists the surviving rows in one batch.
func (i *Importer) Import(ctx context.Context, r io.Reader, opts Options) (*Report, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	columns, err := sniffHeader(reader)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	var records []store.AdsSearchTermRecord
	campaignFilter := strings.ToLower(strings.TrimSpace(opts.Campaign))

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.ImportError("reading report row", err)
		}
		report.Rows++

		rec, ok := parseRow(row, columns, opts)
		if !ok {
			report.Skipped++
			continue
		}
		if campaignFilter != "" && !strings.Contains(strings.ToLower(rec.Campaign), campaignFilter) {
			report.Filtered++
			continue
		}

		records = append(records, rec)
	}

	imported, err := i.repo.SaveAdsRecords(ctx, records)
	if err != nil {
		return nil, err
	}
	report.Imported = imported
	i.pipe.AdsRows.Add(int64(imported))

	i.log.Info("ads report imported",
		"rows", report.Rows,
		"imported", report.Imported,
		"filtered", report.Filtered,
		"skipped", report.Skipped,
	)

	if i.events != nil {
		event := bus.NewEvent(bus.TopicAdsImported, "adsimport", report)
		if err := i.events.Publish(ctx, bus.TopicAdsImported, event); err != nil {
			i.log.Warn("event publish failed", "topic", bus.TopicAdsImported, "error", err)
		}
	}

	return report, nil
}

// sniffHeader scans forward for the row naming a keyword column and maps
// canonical fields to column indexes.
func sniffHeader(reader *csv.Reader) (map[string]int, error) {
	for attempt := 0; attempt < headerSniffRows; attempt++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.ImportError("reading report header", err)
		}

		columns := resolveColumns(row)
		if _, ok := columns["keyword"]; ok {
			return columns, nil
		}
	}
	return nil, errors.ImportError("no recognizable header row found in report", nil)
}

func resolveColumns(row []string) map[string]int {
	columns := make(map[string]int)
	for idx, cell := range row {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(cell, "\uFEFF")))
		for field, aliases := range columnAliases {
			if _, taken := columns[field]; taken {
				continue
			}
			for _, alias := range aliases {
				if name == alias {
					columns[field] = idx
					break
				}
			}
		}
	}
	return columns
}

func parseRow(row []string, columns map[string]int, opts Options) (store.AdsSearchTermRecord, bool) {
	keyword := strings.TrimSpace(cell(row, columns, "keyword"))
	if keyword == "" {
		return store.AdsSearchTermRecord{}, false
	}

	rec := store.AdsSearchTermRecord{
		Keyword:     keyword,
		Campaign:    strings.TrimSpace(cell(row, columns, "campaign")),
		Impressions: parseCount(cell(row, columns, "impressions")),
		Clicks:      parseCount(cell(row, columns, "clicks")),
		Orders:      parseCount(cell(row, columns, "orders")),
		Spend:       parseMoney(cell(row, columns, "spend")),
		Sales:       parseMoney(cell(row, columns, "sales")),
		StartDate:   opts.StartDate,
		EndDate:     opts.EndDate,
	}

	if d, ok := parseDate(cell(row, columns, "start_date")); ok {
		rec.StartDate = d
	}
	if d, ok := parseDate(cell(row, columns, "end_date")); ok {
		rec.EndDate = d
	}

	return rec, true
}

func cell(row []string, columns map[string]int, field string) string {
	idx, ok := columns[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// cleanNumber strips currency symbols, percent signs, thousands separators,
// and whitespace.
func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	for _, junk := range []string{"$", "€", "£", "%", ",", " "} {
		s = strings.ReplaceAll(s, junk, "")
	}
	return s
}

func parseCount(s string) int64 {
	cleaned := cleanNumber(s)
	if cleaned == "" {
		return 0
	}
	// Some exports render counts as "12.0".
	if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return int64(f)
	}
	return 0
}

func parseMoney(s string) float64 {
	cleaned := cleanNumber(s)
	if cleaned == "" {
		return 0
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return f
}

var dateLayouts = []string{"2006-01-02", "Jan 2, 2006", "01/02/2006", "2 Jan 2006"}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
