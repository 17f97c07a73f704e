// Package memory is an in-process storage and auth collaborator. Rows are
// scoped to the signed-in user, the same way row level security scopes them
// in the hosted backend.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mamadbah2/stockroom/internal/domain/models"
	"github.com/mamadbah2/stockroom/internal/repository/rows"
)

var (
	// ErrInvalidCredentials is returned by SignIn for unknown users or wrong passwords.
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrUserExists is returned by SignUp when the e-mail is taken.
	ErrUserExists = errors.New("user already registered")
	// ErrNoSession is returned by table operations without a signed-in user.
	ErrNoSession = errors.New("no active session")
)

const sessionTTL = time.Hour

type account struct {
	id           string
	email        string
	passwordHash []byte
}

// Repository keeps users, sessions and table rows in memory.
type Repository struct {
	mu         sync.RWMutex
	users      map[string]account
	products   []rows.ProductRow
	categories []rows.CategoryRow
	activities []rows.ActivityRow

	session      *models.Session
	listeners    map[int]func(*models.Session)
	nextListener int

	hashCost int
	now      func() time.Time
	logger   *zap.Logger
}

// Option customises a Repository.
type Option func(*Repository)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithHashCost overrides the bcrypt cost used for passwords.
func WithHashCost(cost int) Option {
	return func(r *Repository) { r.hashCost = cost }
}

// NewRepository creates an empty in-memory repository.
func NewRepository(logger *zap.Logger, opts ...Option) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Repository{
		users:     make(map[string]account),
		listeners: make(map[int]func(*models.Session)),
		hashCost:  bcrypt.DefaultCost,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SignUp registers an account, seeds its default categories and signs it in.
func (r *Repository) SignUp(_ context.Context, email, password string) (*models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.hashCost)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if _, exists := r.users[email]; exists {
		r.mu.Unlock()
		return nil, ErrUserExists
	}
	acc := account{id: uuid.NewString(), email: email, passwordHash: hash}
	r.users[email] = acc
	r.seedDefaultCategoriesLocked(acc.id)
	r.mu.Unlock()

	r.logger.Info("account created", zap.String("user_id", acc.id))
	return r.startSession(acc), nil
}

// SignIn checks the credentials and starts a session.
func (r *Repository) SignIn(_ context.Context, email, password string) (*models.Session, error) {
	r.mu.RLock()
	acc, ok := r.users[strings.ToLower(strings.TrimSpace(email))]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return r.startSession(acc), nil
}

// SignOut ends the current session.
func (r *Repository) SignOut(_ context.Context) error {
	r.push(nil)
	return nil
}

// GetSession returns the current session when it has not expired.
func (r *Repository) GetSession(_ context.Context) (*models.Session, error) {
	r.mu.RLock()
	current := r.session
	r.mu.RUnlock()

	if current != nil && !current.Valid(r.now()) {
		r.push(nil)
		return nil, nil
	}
	return current, nil
}

// OnSessionChange registers fn for session changes.
func (r *Repository) OnSessionChange(fn func(*models.Session)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextListener
	r.nextListener++
	r.listeners[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

// Expire invalidates the current session as the hosted backend would on
// revocation, notifying listeners.
func (r *Repository) Expire() {
	r.push(nil)
}

func (r *Repository) startSession(acc account) *models.Session {
	session := &models.Session{
		User:         models.User{ID: acc.id, Email: acc.email},
		AccessToken:  uuid.NewString(),
		RefreshToken: uuid.NewString(),
		ExpiresAt:    r.now().Add(sessionTTL),
	}
	r.push(session)
	return session
}

func (r *Repository) push(session *models.Session) {
	r.mu.Lock()
	r.session = session
	listeners := make([]func(*models.Session), 0, len(r.listeners))
	for _, fn := range r.listeners {
		listeners = append(listeners, fn)
	}
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(session)
	}
}

// seedDefaultCategoriesLocked mirrors the server-side seed procedure executed
// for new accounts. Callers hold the write lock.
func (r *Repository) seedDefaultCategoriesLocked(userID string) {
	base := r.now()
	for i, c := range models.DefaultCategories() {
		row := rows.FromCategory(c, userID)
		row.ID = uuid.NewString()
		row.CreatedAt = base.Add(time.Duration(i) * time.Microsecond)
		r.categories = append(r.categories, row)
	}
}

func (r *Repository) owner() (string, error) {
	if r.session == nil || !r.session.Valid(r.now()) {
		return "", ErrNoSession
	}
	return r.session.User.ID, nil
}

// ListProducts returns the user's products, newest first.
func (r *Repository) ListProducts(_ context.Context) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, err := r.owner()
	if err != nil {
		return nil, err
	}

	var owned []rows.ProductRow
	for _, row := range r.products {
		if row.UserID == owner {
			owned = append(owned, row)
		}
	}
	sort.SliceStable(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })

	out := make([]models.Product, 0, len(owned))
	for _, row := range owned {
		p, err := rows.ToProduct(row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// InsertProduct stores a new product with a generated id.
func (r *Repository) InsertProduct(_ context.Context, ownerID string, p models.Product) (models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.owner(); err != nil {
		return models.Product{}, err
	}

	row := rows.FromProduct(p, ownerID, r.categoryIDLocked(ownerID, p.Category))
	row.ID = uuid.NewString()
	row.CreatedAt = r.now()
	row.UpdatedAt = row.CreatedAt
	r.products = append(r.products, row)
	return rows.ToProduct(row)
}

// UpdateProduct replaces the product row matching p.ID.
func (r *Repository) UpdateProduct(_ context.Context, p models.Product) (models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, err := r.owner()
	if err != nil {
		return models.Product{}, err
	}

	for i, existing := range r.products {
		if existing.ID != p.ID || existing.UserID != owner {
			continue
		}
		row := rows.FromProduct(p, owner, r.categoryIDLocked(owner, p.Category))
		row.CreatedAt = existing.CreatedAt
		row.UpdatedAt = r.now()
		r.products[i] = row
		return rows.ToProduct(row)
	}
	return models.Product{}, rows.ErrNoRows
}

// DeleteProduct removes the product row matching id.
func (r *Repository) DeleteProduct(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, err := r.owner()
	if err != nil {
		return err
	}

	for i, existing := range r.products {
		if existing.ID == id && existing.UserID == owner {
			r.products = append(r.products[:i], r.products[i+1:]...)
			return nil
		}
	}
	return nil
}

// ListCategories returns the user's categories, oldest first.
func (r *Repository) ListCategories(_ context.Context) ([]models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, err := r.owner()
	if err != nil {
		return nil, err
	}

	var owned []rows.CategoryRow
	for _, row := range r.categories {
		if row.UserID == owner {
			owned = append(owned, row)
		}
	}
	sort.SliceStable(owned, func(i, j int) bool { return owned[i].CreatedAt.Before(owned[j].CreatedAt) })

	out := make([]models.Category, 0, len(owned))
	for _, row := range owned {
		c, err := rows.ToCategory(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// InsertCategory stores a new category with a generated id.
func (r *Repository) InsertCategory(_ context.Context, ownerID string, c models.Category) (models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.owner(); err != nil {
		return models.Category{}, err
	}

	row := rows.FromCategory(c, ownerID)
	row.ID = uuid.NewString()
	row.CreatedAt = r.now()
	r.categories = append(r.categories, row)
	return rows.ToCategory(row)
}

// RenameCategory changes the name of the category matching id.
func (r *Repository) RenameCategory(_ context.Context, id, name string) (models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, err := r.owner()
	if err != nil {
		return models.Category{}, err
	}

	for i, existing := range r.categories {
		if existing.ID == id && existing.UserID == owner {
			r.categories[i].Name = name
			return rows.ToCategory(r.categories[i])
		}
	}
	return models.Category{}, rows.ErrNoRows
}

// DeleteCategory removes the category matching id. Products keep their label.
func (r *Repository) DeleteCategory(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, err := r.owner()
	if err != nil {
		return err
	}

	for i, existing := range r.categories {
		if existing.ID == id && existing.UserID == owner {
			r.categories = append(r.categories[:i], r.categories[i+1:]...)
			return nil
		}
	}
	return nil
}

// ListActivities returns the user's latest limit activities, newest first.
func (r *Repository) ListActivities(_ context.Context, limit int) ([]models.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, err := r.owner()
	if err != nil {
		return nil, err
	}

	var owned []rows.ActivityRow
	for _, row := range r.activities {
		if row.UserID == owner {
			owned = append(owned, row)
		}
	}
	sort.SliceStable(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })
	if limit > 0 && len(owned) > limit {
		owned = owned[:limit]
	}

	now := r.now()
	out := make([]models.Activity, 0, len(owned))
	for _, row := range owned {
		a, err := rows.ToActivity(row, now)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// InsertActivity appends a new activity.
func (r *Repository) InsertActivity(_ context.Context, ownerID string, a models.NewActivity) (models.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.owner(); err != nil {
		return models.Activity{}, err
	}

	row := rows.FromNewActivity(a, ownerID)
	row.ID = uuid.NewString()
	row.CreatedAt = r.now()
	r.activities = append(r.activities, row)
	return rows.ToActivity(row, row.CreatedAt)
}

func (r *Repository) categoryIDLocked(owner, name string) *string {
	if name == "" {
		return nil
	}
	for _, c := range r.categories {
		if c.UserID == owner && c.Name == name {
			id := c.ID
			return &id
		}
	}
	return nil
}
