package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"grocery-store/internal/auth"
	"grocery-store/internal/cache"
	"grocery-store/internal/catalog"
	"grocery-store/internal/domain"
	"grocery-store/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserAlreadyExists is returned when registering an email that already has an account.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidInput wraps registration fields that cannot be stored.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSessionNotFound is returned for unknown or ended sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrLoginRequired is returned when a guest session asks for account data.
	ErrLoginRequired = errors.New("login required")
)

// Storefront is the session controller: it owns the catalog, the accounts
// and every open session, and is the only entry point callers use.
type Storefront interface {
	Load(ctx context.Context) error
	Save(ctx context.Context) error
	Products() []domain.Product
	Search(text string) []domain.Product
	Resolve(ref catalog.Reference) (domain.Product, error)

	Register(ctx context.Context, name, email, password string) (Session, error)
	Authenticate(ctx context.Context, email, password string) (Session, error)
	StartGuest() Session
	Session(id string) (Session, error)
	EndSession(id string)

	AddToCart(sessionID string, ref catalog.Reference, quantity int) (domain.Product, error)
	RemoveFromCart(sessionID string, ref catalog.Reference) (domain.Product, error)
	ReduceInCart(sessionID string, ref catalog.Reference, quantity int) (domain.Product, error)
	Cart(sessionID string) (CartView, error)

	Checkout(ctx context.Context, sessionID string) (*domain.Order, error)
	BuyNow(ctx context.Context, sessionID string, ref catalog.Reference, quantity int) (*domain.Order, error)
	Orders(ctx context.Context, sessionID string) ([]domain.Order, error)
}

// Session describes an open session to callers.
type Session struct {
	ID    string
	Name  string
	Email string
	Guest bool
}

// CartView is a copy of a cart at the time it was requested.
type CartView struct {
	Lines []domain.OrderLine
	Total decimal.Decimal
}

// Config wires a Storefront to its stores.
type Config struct {
	Products repository.ProductRepository
	Users    repository.UserRepository
	Orders   repository.OrderRepository
	Hasher   auth.Hasher
	Cache    *cache.Client
	Logger   logrus.FieldLogger
	Now      func() time.Time
}

type storefront struct {
	mu       sync.Mutex
	products repository.ProductRepository
	users    repository.UserRepository
	orders   repository.OrderRepository
	hasher   auth.Hasher
	cache    *cache.Client
	logger   logrus.FieldLogger
	now      func() time.Time

	catalog  *catalog.Catalog
	partial  bool
	accounts []*domain.User
	byEmail  map[string]*domain.User
	sessions map[string]*session
}

func NewStorefront(cfg Config) Storefront {
	if cfg.Hasher == nil {
		cfg.Hasher = auth.BcryptHasher{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &storefront{
		products: cfg.Products,
		users:    cfg.Users,
		orders:   cfg.Orders,
		hasher:   cfg.Hasher,
		cache:    cfg.Cache,
		logger:   cfg.Logger,
		now:      cfg.Now,
		catalog:  catalog.New(nil),
		byEmail:  make(map[string]*domain.User),
		sessions: make(map[string]*session),
	}
}

// Load reads the catalog and then the accounts. State is only replaced when
// both stores load; open sessions are dropped.
func (s *storefront) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.products.Load(ctx)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	cat := catalog.New(products)

	users, err := s.users.Load(ctx, cat)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}

	byEmail := make(map[string]*domain.User, len(users))
	for _, u := range users {
		byEmail[u.Email] = u
	}

	s.catalog = cat
	s.partial = s.products.Skipped() > 0
	s.accounts = users
	s.byEmail = byEmail
	s.sessions = make(map[string]*session)

	s.logger.WithFields(logrus.Fields{
		"products": cat.Len(),
		"skipped":  s.products.Skipped(),
		"users":    len(users),
	}).Info("storefront loaded")
	return nil
}

// Save rewrites the products and users stores. A catalog loaded with
// skipped records is left on disk as is, so the records are not lost.
func (s *storefront) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.partial {
		s.logger.Warn("catalog loaded with skipped records, products store not rewritten")
	} else if err := s.products.Save(ctx, s.catalog.Products()); err != nil {
		return fmt.Errorf("save products: %w", err)
	}
	if err := s.users.Save(ctx, s.accounts); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

func (s *storefront) Products() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Products()
}

func (s *storefront) Search(text string) []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	matches := s.catalog.FilterByNameSubstring(text)
	out := make([]domain.Product, len(matches))
	for i, p := range matches {
		out[i] = *p
	}
	return out
}

func (s *storefront) Resolve(ref catalog.Reference) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.catalog.Resolve(ref)
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}
