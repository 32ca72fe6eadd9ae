// Package category implements the category registry on top of the ledger
// category table.
package category

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/garagebot/internal/ledger"
)

// Registry manages income/expense categories. Deleting a category never
// touches historical ledger rows; they keep the category name as text.
type Registry struct {
	repo ledger.CategoryRepository
	now  func() time.Time
}

// NewRegistry creates a registry over the given repository.
func NewRegistry(repo ledger.CategoryRepository) *Registry {
	return &Registry{repo: repo, now: time.Now}
}

// ListActive returns active categories of one kind, ordered by sort order
// then case-insensitive name.
func (r *Registry) ListActive(ctx context.Context, kind ledger.Kind) ([]ledger.Category, error) {
	all, err := r.list(ctx, kind)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, c := range all {
		if c.Active {
			active = append(active, c)
		}
	}
	return active, nil
}

// ListAll returns every category of one kind, inactive included, in the same
// order as ListActive. Used by the settings/delete views.
func (r *Registry) ListAll(ctx context.Context, kind ledger.Kind) ([]ledger.Category, error) {
	return r.list(ctx, kind)
}

func (r *Registry) list(ctx context.Context, kind ledger.Kind) ([]ledger.Category, error) {
	rows, err := r.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("Registry.list: %w", err)
	}
	var out []ledger.Category
	for _, c := range rows {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// Add creates a new active category and returns its id. Ids are
// timestamp-based, unique within a kind.
func (r *Registry) Add(ctx context.Context, kind ledger.Kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("Registry.Add: empty category name")
	}
	c := ledger.Category{
		ID:     strconv.FormatInt(r.now().UnixMilli(), 10),
		Kind:   kind,
		Name:   name,
		Active: true,
	}
	if err := r.repo.Append(ctx, c); err != nil {
		return "", fmt.Errorf("Registry.Add: %w", err)
	}
	return c.ID, nil
}

// Delete hard-deletes a category by id. Returns false when the id does not
// exist.
func (r *Registry) Delete(ctx context.Context, id string) (bool, error) {
	err := r.repo.Delete(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("Registry.Delete: %w", err)
	}
	return true, nil
}

// EnsureDefault finds or creates the fallback category named "Other" for the
// given kind. Matching is case-insensitive; an existing inactive match is
// reused as-is.
func (r *Registry) EnsureDefault(ctx context.Context, kind ledger.Kind) (id, name string, err error) {
	rows, err := r.repo.List(ctx)
	if err != nil {
		return "", "", fmt.Errorf("Registry.EnsureDefault: %w", err)
	}
	for _, c := range rows {
		if c.Kind == kind && strings.EqualFold(strings.TrimSpace(c.Name), ledger.DefaultCategoryName) {
			return c.ID, c.Name, nil
		}
	}
	id, err = r.Add(ctx, kind, ledger.DefaultCategoryName)
	if err != nil {
		return "", "", err
	}
	return id, ledger.DefaultCategoryName, nil
}
