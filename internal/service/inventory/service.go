// Package inventory owns the signed-in user's products, categories and
// activity history and orchestrates every mutation against the backend.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/stockroom/internal/domain/models"
	"github.com/mamadbah2/stockroom/internal/repository/rows"
	"github.com/mamadbah2/stockroom/internal/service/activity"
	"github.com/mamadbah2/stockroom/internal/service/session"
	"github.com/mamadbah2/stockroom/pkg/metrics"
)

var (
	// ErrUnauthenticated is returned by mutations attempted without a session.
	ErrUnauthenticated = errors.New("not signed in")
	// ErrProductNotFound is returned for product ids unknown to the store.
	ErrProductNotFound = errors.New("product not found")
	// ErrCategoryNotFound is returned for category ids unknown to the store.
	ErrCategoryNotFound = errors.New("category not found")
)

const defaultActivityLimit = 50

// Backend is the storage side of the hosted backend.
type Backend interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	InsertProduct(ctx context.Context, ownerID string, p models.Product) (models.Product, error)
	UpdateProduct(ctx context.Context, p models.Product) (models.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]models.Category, error)
	InsertCategory(ctx context.Context, ownerID string, c models.Category) (models.Category, error)
	RenameCategory(ctx context.Context, id, name string) (models.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	ListActivities(ctx context.Context, limit int) ([]models.Activity, error)
	InsertActivity(ctx context.Context, ownerID string, a models.NewActivity) (models.Activity, error)
}

// Gate reports the signed-in user.
type Gate interface {
	UserID() (string, bool)
}

// Notifier is told about products that dropped into the warning tier.
type Notifier interface {
	LowStock(ctx context.Context, p models.Product) error
}

// Option customises a Service.
type Option func(*Service)

// WithNotifier enables low-stock notifications.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics records activity counters on m.
func WithMetrics(m *metrics.InventoryMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithActivityLimit caps how many activities a load fetches.
func WithActivityLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.activityLimit = limit
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service serializes mutations of the inventory collections.
type Service struct {
	backend  Backend
	gate     Gate
	store    *Store
	notifier Notifier
	metrics  *metrics.InventoryMetrics
	logger   *zap.Logger
	now      func() time.Time

	activityLimit int

	mu sync.Mutex
	// alerts queued by saveLocked, sent once mu is released.
	pendingAlerts []models.Product
}

// NewService wires the inventory orchestration.
func NewService(backend Backend, gate Gate, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		backend:       backend,
		gate:          gate,
		store:         NewStore(),
		logger:        logger,
		now:           time.Now,
		activityLimit: defaultActivityLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnSessionChange follows gate transitions: collections are dropped on every
// change and re-fetched when a user is signed in.
func (s *Service) OnSessionChange(state session.State, _ *models.Session) {
	s.mu.Lock()
	s.store.Reset()
	s.mu.Unlock()

	if state != session.StateAuthenticated {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.LoadAll(ctx); err != nil {
		s.logger.Error("initial inventory load failed", zap.Error(err))
	}
}

// LoadAll refreshes every collection. Failures of one collection do not
// prevent loading the others.
func (s *Service) LoadAll(ctx context.Context) error {
	return errors.Join(
		s.LoadProducts(ctx),
		s.LoadCategories(ctx),
		s.LoadActivities(ctx),
	)
}

// LoadProducts replaces the product collection. It is a no-op without a
// session, and a failed fetch keeps the previous collection.
func (s *Service) LoadProducts(ctx context.Context) error {
	return s.load(ctx, "products", func(ctx context.Context) error {
		products, err := s.backend.ListProducts(ctx)
		if err != nil {
			return err
		}
		s.store.ReplaceProducts(products)
		return nil
	})
}

// LoadCategories replaces the category collection.
func (s *Service) LoadCategories(ctx context.Context) error {
	return s.load(ctx, "categories", func(ctx context.Context) error {
		categories, err := s.backend.ListCategories(ctx)
		if err != nil {
			return err
		}
		s.store.ReplaceCategories(categories)
		return nil
	})
}

// LoadActivities replaces the activity collection with the latest entries.
func (s *Service) LoadActivities(ctx context.Context) error {
	return s.load(ctx, "activities", func(ctx context.Context) error {
		activities, err := s.backend.ListActivities(ctx, s.activityLimit)
		if err != nil {
			return err
		}
		s.store.ReplaceActivities(activities)
		return nil
	})
}

func (s *Service) load(ctx context.Context, what string, fetch func(context.Context) error) error {
	if _, ok := s.gate.UserID(); !ok {
		s.logger.Debug("load skipped without session", zap.String("collection", what))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fetch(ctx); err != nil {
		var mapping *rows.MappingError
		if errors.As(err, &mapping) {
			s.logger.Error("malformed row", zap.String("collection", what), zap.Error(err))
		} else {
			s.logger.Error("load failed", zap.String("collection", what), zap.Error(err))
		}
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}

// Products returns the products matching f.
func (s *Service) Products(f models.ProductFilter) []models.Product {
	return Filter(s.store.Products(), f)
}

// Product returns the product with id.
func (s *Service) Product(id string) (models.Product, error) {
	p, ok := s.store.Product(id)
	if !ok {
		return models.Product{}, ErrProductNotFound
	}
	return p, nil
}

// Categories returns the categories with their product counts.
func (s *Service) Categories() []models.Category {
	return models.CountProducts(s.store.Categories(), s.store.Products())
}

// Activities returns the activity history, newest first, with relative
// times computed now.
func (s *Service) Activities() []models.Activity {
	activities := s.store.Activities()
	now := s.now()
	for i := range activities {
		activities[i].Time = rows.FormatTimeAgo(activities[i].CreatedAt, now)
	}
	return activities
}

// SaveResult is the outcome of a product save.
type SaveResult struct {
	Product  models.Product   `json:"product"`
	Activity *models.Activity `json:"activity,omitempty"`
}

// SaveProduct creates p when its id is unknown and updates it otherwise.
// Stock is clamped and status recomputed before writing. At most one
// activity is recorded.
func (s *Service) SaveProduct(ctx context.Context, p models.Product) (SaveResult, error) {
	s.mu.Lock()
	defer s.unlockAndAlert(ctx)
	return s.saveLocked(ctx, p)
}

func (s *Service) saveLocked(ctx context.Context, p models.Product) (SaveResult, error) {
	owner, ok := s.gate.UserID()
	if !ok {
		return SaveResult{}, ErrUnauthenticated
	}

	var prev *models.Product
	if existing, found := s.store.Product(p.ID); found {
		prev = &existing
	}

	p.AssignDefaults(s.now())
	p = p.Finalize()

	var (
		saved models.Product
		err   error
	)
	if prev == nil {
		saved, err = s.backend.InsertProduct(ctx, owner, p)
	} else {
		saved, err = s.backend.UpdateProduct(ctx, p)
	}
	if err != nil {
		s.logger.Error("save product failed", zap.String("product_id", p.ID), zap.Error(err))
		return SaveResult{}, fmt.Errorf("save product: %w", err)
	}
	saved = s.store.UpsertProduct(saved)

	result := SaveResult{Product: saved}
	if entry := activity.Record(prev, saved); entry != nil {
		recorded, err := s.backend.InsertActivity(ctx, owner, *entry)
		if err != nil {
			s.logger.Error("record activity failed", zap.String("product_id", saved.ID), zap.Error(err))
		} else {
			s.store.PrependActivity(recorded)
			s.metrics.IncActivity(string(recorded.Kind))
			result.Activity = &recorded
		}
	}

	if enteredWarning(prev, saved) {
		s.pendingAlerts = append(s.pendingAlerts, saved)
	}
	return result, nil
}

// Outbound removes qty units of a product, clamped to the available stock.
// A product without stock is returned unchanged.
func (s *Service) Outbound(ctx context.Context, productID string, qty int) (SaveResult, error) {
	s.mu.Lock()
	defer s.unlockAndAlert(ctx)

	if _, ok := s.gate.UserID(); !ok {
		return SaveResult{}, ErrUnauthenticated
	}
	p, ok := s.store.Product(productID)
	if !ok {
		return SaveResult{}, ErrProductNotFound
	}

	qty = models.ClampOutboundQuantity(p.Stock, qty)
	if qty == 0 {
		return SaveResult{Product: p}, nil
	}
	return s.saveLocked(ctx, models.ApplyOutbound(p, qty))
}

// Reconcile compares an observed count with the recorded stock without
// writing anything.
func (s *Service) Reconcile(productID string, observed int) (models.Reconciliation, error) {
	p, ok := s.store.Product(productID)
	if !ok {
		return models.Reconciliation{}, ErrProductNotFound
	}
	return models.Reconcile(p, observed), nil
}

// CommitCount writes an observed count as the product's stock through the
// regular save path.
func (s *Service) CommitCount(ctx context.Context, productID string, observed int) (SaveResult, error) {
	s.mu.Lock()
	defer s.unlockAndAlert(ctx)

	if _, ok := s.gate.UserID(); !ok {
		return SaveResult{}, ErrUnauthenticated
	}
	p, ok := s.store.Product(productID)
	if !ok {
		return SaveResult{}, ErrProductNotFound
	}
	p.Stock = observed
	return s.saveLocked(ctx, p)
}

// DeleteProduct removes a product from the backend and the store.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.gate.UserID(); !ok {
		return ErrUnauthenticated
	}
	if _, ok := s.store.Product(id); !ok {
		return ErrProductNotFound
	}
	if err := s.backend.DeleteProduct(ctx, id); err != nil {
		s.logger.Error("delete product failed", zap.String("product_id", id), zap.Error(err))
		return fmt.Errorf("delete product: %w", err)
	}
	s.store.RemoveProduct(id)
	return nil
}

// AddCategory creates a category with the default presentation.
func (s *Service) AddCategory(ctx context.Context, name string) (models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.gate.UserID()
	if !ok {
		return models.Category{}, ErrUnauthenticated
	}

	created, err := s.backend.InsertCategory(ctx, owner, models.Category{
		Name:         strings.TrimSpace(name),
		Icon:         models.DefaultCategoryIcon,
		ColorClass:   models.DefaultCategoryColor,
		BgColorClass: models.DefaultCategoryBgColor,
	})
	if err != nil {
		s.logger.Error("add category failed", zap.String("category", name), zap.Error(err))
		return models.Category{}, fmt.Errorf("add category: %w", err)
	}
	s.store.UpsertCategory(created)
	return created, nil
}

// RenameCategory changes a category's name in place. Products keep the old
// label.
func (s *Service) RenameCategory(ctx context.Context, id, name string) (models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.gate.UserID(); !ok {
		return models.Category{}, ErrUnauthenticated
	}
	if _, ok := s.store.Category(id); !ok {
		return models.Category{}, ErrCategoryNotFound
	}

	renamed, err := s.backend.RenameCategory(ctx, id, strings.TrimSpace(name))
	if err != nil {
		s.logger.Error("rename category failed", zap.String("category_id", id), zap.Error(err))
		return models.Category{}, fmt.Errorf("rename category: %w", err)
	}
	s.store.UpsertCategory(renamed)
	return renamed, nil
}

// DeleteCategory removes a category. Products keep its name as an orphan
// label.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.gate.UserID(); !ok {
		return ErrUnauthenticated
	}
	if _, ok := s.store.Category(id); !ok {
		return ErrCategoryNotFound
	}
	if err := s.backend.DeleteCategory(ctx, id); err != nil {
		s.logger.Error("delete category failed", zap.String("category_id", id), zap.Error(err))
		return fmt.Errorf("delete category: %w", err)
	}
	s.store.RemoveCategory(id)
	return nil
}

// Snapshot returns copies of the products and activities for reporting.
func (s *Service) Snapshot() ([]models.Product, []models.Activity) {
	return s.store.Products(), s.Activities()
}

// unlockAndAlert releases mu and then sends the alerts queued while it was
// held, so a slow notifier never blocks other mutations.
func (s *Service) unlockAndAlert(ctx context.Context) {
	pending := s.pendingAlerts
	s.pendingAlerts = nil
	s.mu.Unlock()
	for _, p := range pending {
		s.notifyLowStock(ctx, p)
	}
}

func (s *Service) notifyLowStock(ctx context.Context, p models.Product) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.LowStock(ctx, p)
	s.metrics.IncAlert(err == nil)
	if err != nil {
		s.logger.Warn("low stock alert failed", zap.String("product_id", p.ID), zap.Error(err))
	}
}

func enteredWarning(prev *models.Product, next models.Product) bool {
	if next.Status != models.StatusWarning {
		return false
	}
	return prev == nil || prev.Status != models.StatusWarning
}
