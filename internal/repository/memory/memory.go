// Package memory provides in-memory repository implementations with the same
// atomicity guarantees as the MySQL ones. They back the service tests and the
// no-database development mode.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"agromarket/internal/domain"
	"agromarket/internal/repository"
)

type ListingStore struct {
	mu       sync.Mutex
	listings map[string]*domain.Listing
}

func NewListingStore() *ListingStore {
	return &ListingStore{listings: make(map[string]*domain.Listing)}
}

func (s *ListingStore) Create(ctx context.Context, listing *domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *listing
	s.listings[listing.ID] = &cp
	return nil
}

func (s *ListingStore) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (s *ListingStore) List(ctx context.Context, q repository.ListingQuery) ([]domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Listing
	for _, l := range s.listings {
		if q.CropNameContains != "" &&
			!strings.Contains(strings.ToLower(l.CropName), strings.ToLower(q.CropNameContains)) {
			continue
		}
		if q.MaxPrice != nil && l.Price.GreaterThan(*q.MaxPrice) {
			continue
		}
		if q.OnlyAvailable && (l.Status != domain.ListingAvailable || l.Quantity <= 0) {
			continue
		}
		if q.FarmerID != "" && l.FarmerID != q.FarmerID {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *ListingStore) Update(ctx context.Context, listing *domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.listings[listing.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.Price = listing.Price
	cur.Quantity = listing.Quantity
	cur.Status = listing.Status
	return nil
}

func (s *ListingStore) ReserveQuantity(ctx context.Context, id string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	if l.Status != domain.ListingAvailable || l.Quantity < amount {
		return domain.ErrInsufficientStock
	}
	l.Quantity -= amount
	if l.Quantity == 0 {
		l.Status = domain.ListingSold
	}
	return nil
}

func (s *ListingStore) ReleaseQuantity(ctx context.Context, id string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.Quantity += amount
	if l.Status == domain.ListingSold {
		l.Status = domain.ListingAvailable
	}
	return nil
}

var _ repository.ListingRepository = (*ListingStore)(nil)

type OrderStore struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	seq    []string // insertion order for stable listings
}

func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]*domain.Order)}
}

func (s *OrderStore) Create(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *order
	s.orders[order.ID] = &cp
	s.seq = append(s.seq, order.ID)
	return nil
}

func (s *OrderStore) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (s *OrderStore) FindByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error) {
	return s.filter(func(o *domain.Order) bool { return o.BuyerID == buyerID })
}

func (s *OrderStore) FindByStatus(ctx context.Context, statuses []domain.OrderStatus) ([]domain.Order, error) {
	return s.filter(func(o *domain.Order) bool {
		for _, st := range statuses {
			if o.Status == st {
				return true
			}
		}
		return false
	})
}

func (s *OrderStore) FindAll(ctx context.Context) ([]domain.Order, error) {
	return s.filter(func(*domain.Order) bool { return true })
}

func (s *OrderStore) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, deliveryPartnerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if o.Status != from {
		return false, nil
	}
	o.Status = to
	if deliveryPartnerID != "" {
		o.DeliveryPartnerID = deliveryPartnerID
	}
	return true, nil
}

func (s *OrderStore) filter(keep func(*domain.Order) bool) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Order
	for _, id := range s.seq {
		if o := s.orders[id]; keep(o) {
			out = append(out, *o)
		}
	}
	return out, nil
}

var _ repository.OrderRepository = (*OrderStore)(nil)

type UserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*domain.User)}
}

func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return domain.ErrAlreadyExists
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findOne(func(u *domain.User) bool { return u.ID == id })
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findOne(func(u *domain.User) bool { return u.Email == email })
}

func (s *UserStore) FindByToken(ctx context.Context, token string) (*domain.User, error) {
	return s.findOne(func(u *domain.User) bool { return u.Token == token })
}

func (s *UserStore) findOne(match func(*domain.User) bool) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

var _ repository.UserRepository = (*UserStore)(nil)
