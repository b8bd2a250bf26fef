// Package seeds manages the stored seed keywords that mining runs start
// from.
package seeds

import (
	"context"
	"strings"
	"time"

	"github.com/kwscout/kw-scout/internal/pkg/errors"
	"github.com/kwscout/kw-scout/internal/pkg/logger"
	"github.com/kwscout/kw-scout/internal/store"
)

// Repository is the slice of storage the manager uses.
type Repository interface {
	AddSeed(ctx context.Context, keyword, department string) (*store.SeedKeyword, error)
	RemoveSeed(ctx context.Context, keyword, department string) error
	ListSeeds(ctx context.Context, department string) ([]store.SeedKeyword, error)
	MarkSeedMined(ctx context.Context, keyword, department string, minedAt time.Time) error
}

// Manager maintains the seed list.
type Manager struct {
	repo Repository
	log  *logger.Logger
}

// New creates a manager.
func New(repo Repository, log *logger.Logger) *Manager {
	return &Manager{repo: repo, log: log}
}

// Add registers seed keywords for a department, skipping blanks. Returns the
// stored records in input order.
func (m *Manager) Add(ctx context.Context, keywords []string, department string) ([]store.SeedKeyword, error) {
	if department == "" {
		return nil, errors.ValidationError("department must not be empty")
	}

	var added []store.SeedKeyword
	for _, keyword := range keywords {
		if strings.TrimSpace(keyword) == "" {
			continue
		}
		seed, err := m.repo.AddSeed(ctx, keyword, department)
		if err != nil {
			return added, err
		}
		added = append(added, *seed)
	}

	m.log.Info("seeds added", "count", len(added), "department", department)
	return added, nil
}

// Remove drops a seed keyword.
func (m *Manager) Remove(ctx context.Context, keyword, department string) error {
	return m.repo.RemoveSeed(ctx, keyword, department)
}

// List returns seeds for a department; empty department lists all.
func (m *Manager) List(ctx context.Context, department string) ([]store.SeedKeyword, error) {
	return m.repo.ListSeeds(ctx, department)
}

// Stale returns seeds not mined since the cutoff, including seeds never
// mined at all.
func (m *Manager) Stale(ctx context.Context, department string, cutoff time.Time) ([]store.SeedKeyword, error) {
	all, err := m.repo.ListSeeds(ctx, department)
	if err != nil {
		return nil, err
	}

	var stale []store.SeedKeyword
	for _, seed := range all {
		if seed.LastMinedAt.Before(cutoff) {
			stale = append(stale, seed)
		}
	}
	return stale, nil
}

// MarkMined records that a mining run finished for a seed.
func (m *Manager) MarkMined(ctx context.Context, keyword, department string, minedAt time.Time) error {
	return m.repo.MarkSeedMined(ctx, keyword, department, minedAt)
}
