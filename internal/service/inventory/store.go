package inventory

import (
	"slices"
	"sync"

	"github.com/mamadbah2/stockroom/internal/domain/models"
)

// Store holds the in-process copies of the signed-in user's collections.
// Products and categories keep their order, activities are newest first.
// Every accessor returns copies.
type Store struct {
	mu         sync.RWMutex
	products   []models.Product
	categories []models.Category
	activities []models.Activity
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// ReplaceProducts swaps the whole product collection.
func (s *Store) ReplaceProducts(products []models.Product) {
	next := make([]models.Product, len(products))
	for i, p := range products {
		next[i] = p.Finalize()
	}
	s.mu.Lock()
	s.products = next
	s.mu.Unlock()
}

// ReplaceCategories swaps the whole category collection.
func (s *Store) ReplaceCategories(categories []models.Category) {
	next := slices.Clone(categories)
	s.mu.Lock()
	s.categories = next
	s.mu.Unlock()
}

// ReplaceActivities swaps the whole activity collection.
func (s *Store) ReplaceActivities(activities []models.Activity) {
	next := slices.Clone(activities)
	s.mu.Lock()
	s.activities = next
	s.mu.Unlock()
}

// UpsertProduct updates p in place when its id is known and inserts it at
// the head otherwise. Status is recomputed from stock.
func (s *Store) UpsertProduct(p models.Product) models.Product {
	p = p.Finalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.productIndex(p.ID); i >= 0 {
		s.products[i] = p
		return p
	}
	s.products = slices.Insert(s.products, 0, p)
	return p
}

// UpsertCategory updates c in place when its id is known and appends it
// otherwise.
func (s *Store) UpsertCategory(c models.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.categories {
		if s.categories[i].ID == c.ID {
			s.categories[i] = c
			return
		}
	}
	s.categories = append(s.categories, c)
}

// PrependActivity inserts a at the head.
func (s *Store) PrependActivity(a models.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = slices.Insert(s.activities, 0, a)
}

// RemoveProduct drops the product with id.
func (s *Store) RemoveProduct(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = slices.DeleteFunc(s.products, func(p models.Product) bool { return p.ID == id })
}

// RemoveCategory drops the category with id.
func (s *Store) RemoveCategory(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = slices.DeleteFunc(s.categories, func(c models.Category) bool { return c.ID == id })
}

// Product returns the product with id.
func (s *Store) Product(id string) (models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.productIndex(id); i >= 0 {
		return s.products[i], true
	}
	return models.Product{}, false
}

// Category returns the category with id.
func (s *Store) Category(id string) (models.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.ID == id {
			return c, true
		}
	}
	return models.Category{}, false
}

// Products returns the product collection.
func (s *Store) Products() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.products)
}

// Categories returns the category collection.
func (s *Store) Categories() []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.categories)
}

// Activities returns the activity collection, newest first.
func (s *Store) Activities() []models.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.activities)
}

// Reset discards all collections.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = nil
	s.categories = nil
	s.activities = nil
}

func (s *Store) productIndex(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.products, func(p models.Product) bool { return p.ID == id })
}
