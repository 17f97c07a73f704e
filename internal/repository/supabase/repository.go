package supabase

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/stockroom/internal/domain/models"
	"github.com/mamadbah2/stockroom/internal/repository/rows"
	client "github.com/mamadbah2/stockroom/pkg/clients/supabase"
)

const seedFunction = "seed_default_categories"

// Repository is the storage and auth collaborator backed by a Supabase project.
type Repository struct {
	client *client.Client
	logger *zap.Logger
	now    func() time.Time

	mu           sync.Mutex
	session      *models.Session
	listeners    map[int]func(*models.Session)
	nextListener int
	refreshTimer *time.Timer
	refreshLead  time.Duration
}

// NewRepository wires a repository on top of a Supabase client.
func NewRepository(c *client.Client, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{
		client:      c,
		logger:      logger,
		now:         time.Now,
		listeners:   make(map[int]func(*models.Session)),
		refreshLead: time.Minute,
	}
}

// ListProducts returns all products, newest first.
func (r *Repository) ListProducts(ctx context.Context) ([]models.Product, error) {
	var out []rows.ProductRow
	query := url.Values{"select": {"*"}, "order": {"created_at.desc"}}
	if err := r.client.Select(ctx, rows.TableProducts, query, &out); err != nil {
		return nil, err
	}

	products := make([]models.Product, 0, len(out))
	for _, row := range out {
		p, err := rows.ToProduct(row)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

// InsertProduct resolves the category label to its id, then inserts the
// product. The id is assigned by the database.
func (r *Repository) InsertProduct(ctx context.Context, ownerID string, p models.Product) (models.Product, error) {
	row := rows.FromProduct(p, ownerID, r.lookupCategoryID(ctx, p.Category))
	row.ID = ""

	var out []rows.ProductRow
	if err := r.client.Insert(ctx, rows.TableProducts, row, &out); err != nil {
		return models.Product{}, err
	}
	return firstProduct(out)
}

// UpdateProduct resolves the category label to its id, then updates the
// product row matching p.ID.
func (r *Repository) UpdateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	row := rows.FromProduct(p, "", r.lookupCategoryID(ctx, p.Category))
	row.ID = ""

	var out []rows.ProductRow
	if err := r.client.Update(ctx, rows.TableProducts, client.Eq("id", p.ID), row, &out); err != nil {
		return models.Product{}, err
	}
	return firstProduct(out)
}

// DeleteProduct removes a product row.
func (r *Repository) DeleteProduct(ctx context.Context, id string) error {
	return r.client.Delete(ctx, rows.TableProducts, client.Eq("id", id))
}

// ListCategories returns all categories, oldest first.
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []rows.CategoryRow
	query := url.Values{"select": {"*"}, "order": {"created_at.asc"}}
	if err := r.client.Select(ctx, rows.TableCategories, query, &out); err != nil {
		return nil, err
	}

	categories := make([]models.Category, 0, len(out))
	for _, row := range out {
		c, err := rows.ToCategory(row)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, nil
}

// InsertCategory inserts a category owned by ownerID.
func (r *Repository) InsertCategory(ctx context.Context, ownerID string, c models.Category) (models.Category, error) {
	row := rows.FromCategory(c, ownerID)
	row.ID = ""

	var out []rows.CategoryRow
	if err := r.client.Insert(ctx, rows.TableCategories, row, &out); err != nil {
		return models.Category{}, err
	}
	if len(out) == 0 {
		return models.Category{}, rows.ErrNoRows
	}
	return rows.ToCategory(out[0])
}

// RenameCategory replaces the name of a category in place. Products keep
// their category label.
func (r *Repository) RenameCategory(ctx context.Context, id, name string) (models.Category, error) {
	var out []rows.CategoryRow
	body := map[string]string{"name": name}
	if err := r.client.Update(ctx, rows.TableCategories, client.Eq("id", id), body, &out); err != nil {
		return models.Category{}, err
	}
	if len(out) == 0 {
		return models.Category{}, rows.ErrNoRows
	}
	return rows.ToCategory(out[0])
}

// DeleteCategory removes a category row.
func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	return r.client.Delete(ctx, rows.TableCategories, client.Eq("id", id))
}

// ListActivities returns the latest limit activities, newest first.
func (r *Repository) ListActivities(ctx context.Context, limit int) ([]models.Activity, error) {
	var out []rows.ActivityRow
	query := url.Values{
		"select": {"*"},
		"order":  {"created_at.desc"},
		"limit":  {strconv.Itoa(limit)},
	}
	if err := r.client.Select(ctx, rows.TableActivities, query, &out); err != nil {
		return nil, err
	}

	now := r.now()
	activities := make([]models.Activity, 0, len(out))
	for _, row := range out {
		a, err := rows.ToActivity(row, now)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, nil
}

// InsertActivity appends an activity owned by ownerID.
func (r *Repository) InsertActivity(ctx context.Context, ownerID string, a models.NewActivity) (models.Activity, error) {
	var out []rows.ActivityRow
	if err := r.client.Insert(ctx, rows.TableActivities, rows.FromNewActivity(a, ownerID), &out); err != nil {
		return models.Activity{}, err
	}
	if len(out) == 0 {
		return models.Activity{}, rows.ErrNoRows
	}
	return rows.ToActivity(out[0], r.now())
}

// lookupCategoryID returns the id of the first category named name. Lookup
// failures are tolerated: the product keeps its label with a null id.
func (r *Repository) lookupCategoryID(ctx context.Context, name string) *string {
	if name == "" {
		return nil
	}

	var out []rows.CategoryRow
	query := client.Eq("name", name)
	query.Set("select", "id")
	query.Set("limit", "1")
	if err := r.client.Select(ctx, rows.TableCategories, query, &out); err != nil {
		r.logger.Debug("category lookup failed", zap.String("category", name), zap.Error(err))
		return nil
	}
	if len(out) == 0 || out[0].ID == "" {
		return nil
	}
	id := out[0].ID
	return &id
}

func firstProduct(out []rows.ProductRow) (models.Product, error) {
	if len(out) == 0 {
		return models.Product{}, rows.ErrNoRows
	}
	p, err := rows.ToProduct(out[0])
	if err != nil {
		return models.Product{}, fmt.Errorf("decode written product: %w", err)
	}
	return p, nil
}
