package seeds

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kwscout/kw-scout/internal/pkg/errors"
	"github.com/kwscout/kw-scout/internal/pkg/logger"
	"github.com/kwscout/kw-scout/internal/store"
)

type fakeRepo struct {
	seeds map[string]*store.SeedKeyword
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{seeds: map[string]*store.SeedKeyword{}}
}

func key(keyword, department string) string {
	return strings.ToLower(strings.TrimSpace(keyword)) + "\x00" + department
}

func (r *fakeRepo) AddSeed(_ context.Context, keyword, department string) (*store.SeedKeyword, error) {
	k := key(keyword, department)
	if seed, ok := r.seeds[k]; ok {
		return seed, nil
	}
	seed := &store.SeedKeyword{
		ID:         int64(len(r.seeds) + 1),
		Keyword:    strings.ToLower(strings.TrimSpace(keyword)),
		Department: department,
		CreatedAt:  time.Now(),
	}
	r.seeds[k] = seed
	return seed, nil
}

func (r *fakeRepo) RemoveSeed(_ context.Context, keyword, department string) error {
	k := key(keyword, department)
	if _, ok := r.seeds[k]; !ok {
		return errors.NotFoundError("seed")
	}
	delete(r.seeds, k)
	return nil
}

func (r *fakeRepo) ListSeeds(_ context.Context, department string) ([]store.SeedKeyword, error) {
	var out []store.SeedKeyword
	for _, seed := range r.seeds {
		if department == "" || seed.Department == department {
			out = append(out, *seed)
		}
	}
	return out, nil
}

func (r *fakeRepo) MarkSeedMined(_ context.Context, keyword, department string, minedAt time.Time) error {
	seed, ok := r.seeds[key(keyword, department)]
	if !ok {
		return errors.NotFoundError("seed")
	}
	seed.LastMinedAt = minedAt
	return nil
}

func newManager(repo *fakeRepo) *Manager {
	return New(repo, logger.New("error", "text"))
}

func TestAdd_SkipsBlanksAndDedupes(t *testing.T) {
	repo := newFakeRepo()
	m := newManager(repo)

	added, err := m.Add(context.Background(), []string{"cozy mystery", "  ", "cozy mystery", "space opera"}, "ebook")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(added) != 3 {
		t.Fatalf("added = %d, want blank skipped and dupes returned from store", len(added))
	}
	if len(repo.seeds) != 2 {
		t.Errorf("stored = %d, want 2 distinct seeds", len(repo.seeds))
	}
}

func TestAdd_EmptyDepartment(t *testing.T) {
	m := newManager(newFakeRepo())

	_, err := m.Add(context.Background(), []string{"keyword"}, "")
	if !errors.Is(err, errors.CodeValidation) {
		t.Fatalf("err = %v, want VALIDATION_ERROR", err)
	}
}

func TestStale_IncludesNeverMined(t *testing.T) {
	repo := newFakeRepo()
	m := newManager(repo)
	ctx := context.Background()

	if _, err := m.Add(ctx, []string{"fresh", "stale", "never"}, "ebook"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	now := time.Now()
	if err := m.MarkMined(ctx, "fresh", "ebook", now.Add(-time.Hour)); err != nil {
		t.Fatalf("MarkMined: %v", err)
	}
	if err := m.MarkMined(ctx, "stale", "ebook", now.AddDate(0, 0, -3)); err != nil {
		t.Fatalf("MarkMined: %v", err)
	}

	stale, err := m.Stale(ctx, "ebook", now.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("Stale: %v", err)
	}

	got := map[string]bool{}
	for _, seed := range stale {
		got[seed.Keyword] = true
	}
	if len(stale) != 2 || !got["stale"] || !got["never"] {
		t.Errorf("stale = %+v, want the old seed and the never-mined seed", stale)
	}
}

func TestRemove_Missing(t *testing.T) {
	m := newManager(newFakeRepo())
	if err := m.Remove(context.Background(), "ghost", "ebook"); !errors.IsNotFound(err) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}
