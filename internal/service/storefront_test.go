package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"grocery-store/internal/auth"
	"grocery-store/internal/catalog"
	"grocery-store/internal/domain"
	"grocery-store/internal/repository"
	"grocery-store/internal/repository/csvstore"
)

const productsCSV = "1,Milk,2.50,111\n2,Mild Salsa,3.10,222\n3,Bread,1.75,333\n"

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Init(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderRepository) Append(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) ListByEmail(ctx context.Context, email string, products domain.ProductResolver) ([]domain.Order, error) {
	args := m.Called(ctx, email, products)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

type fixture struct {
	store  Storefront
	dir    string
	orders string
}

func (f fixture) path(name string) string {
	return filepath.Join(f.dir, name)
}

func (f fixture) read(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(f.path(name))
	require.NoError(t, err)
	return string(data)
}

// newFixture loads a storefront over temp csv files holding one legacy
// account (ann@example.com / password123) with two Milk in the cart.
func newFixture(t *testing.T, orders repository.OrderRepository) fixture {
	t.Helper()
	dir := t.TempDir()
	legacy, err := auth.RailFence{Rails: 3}.Hash("password123")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "products.csv"), []byte(productsCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.csv"), []byte("Ann,ann@example.com,"+legacy+",111:2\n"), 0o644))

	logger, _ := logtest.NewNullLogger()
	ordersPath := filepath.Join(dir, "orders.csv")
	if orders == nil {
		orders = csvstore.NewOrderStore(ordersPath, logger)
	}

	store := NewStorefront(Config{
		Products: csvstore.NewProductStore(filepath.Join(dir, "products.csv"), logger),
		Users:    csvstore.NewUserStore(filepath.Join(dir, "users.csv"), logger),
		Orders:   orders,
		Hasher:   auth.BcryptHasher{Cost: bcrypt.MinCost},
		Logger:   logger,
		Now:      func() time.Time { return time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC) },
	})
	require.NoError(t, store.Load(context.Background()))
	return fixture{store: store, dir: dir, orders: ordersPath}
}

func byBarcode(code string) catalog.Reference {
	return catalog.Reference{By: catalog.ByBarcode, Value: code}
}

func TestStorefront_Authenticate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "legacy credential", email: "ann@example.com", password: "password123"},
		{name: "wrong password", email: "ann@example.com", password: "password124", wantErr: ErrInvalidCredentials},
		{name: "unknown email", email: "bob@example.com", password: "password123", wantErr: ErrInvalidCredentials},
		{name: "empty password", email: "ann@example.com", password: "", wantErr: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := f.store.Authenticate(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Ann", sess.Name)
			assert.False(t, sess.Guest)

			view, err := f.store.Cart(sess.ID)
			require.NoError(t, err)
			require.Len(t, view.Lines, 1)
			assert.Equal(t, 2, view.Lines[0].Quantity)
			assert.Equal(t, "5.00", view.Total.StringFixed(2))
		})
	}
}

func TestStorefront_Register(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, err := f.store.Register(ctx, " Bob ", "bob@example.com", "longenough")
	require.NoError(t, err)
	assert.Equal(t, "Bob", sess.Name)
	assert.Contains(t, f.read(t, "users.csv"), "\nBob,bob@example.com,$2a$")

	_, err = f.store.Register(ctx, "Bobby", "bob@example.com", "longenough")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	for _, tc := range []struct{ name, email, password string }{
		{"", "c@example.com", "longenough"},
		{"Cid", "", "longenough"},
		{"Cid", "c@example.com", "short"},
		{"Doe, Jane", "c@example.com", "longenough"},
	} {
		_, err := f.store.Register(ctx, tc.name, tc.email, tc.password)
		assert.ErrorIs(t, err, ErrInvalidInput, tc)
	}

	again, err := f.store.Authenticate(ctx, "bob@example.com", "longenough")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", again.Email)
}

func TestStorefront_CartOperationsUseLookupEngine(t *testing.T) {
	f := newFixture(t, nil)
	guest := f.store.StartGuest()
	assert.True(t, guest.Guest)

	p, err := f.store.AddToCart(guest.ID, catalog.Reference{By: catalog.ByName, Value: "milk"}, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(111), p.Barcode)

	_, err = f.store.AddToCart(guest.ID, catalog.Reference{By: catalog.ByFilter, Value: "mil", Choice: 1}, 3)
	require.NoError(t, err)

	_, err = f.store.AddToCart(guest.ID, catalog.Reference{By: catalog.ByFilter, Value: "mil"}, 1)
	var ambiguous *catalog.AmbiguousError
	require.True(t, errors.As(err, &ambiguous))
	assert.Len(t, ambiguous.Matches, 2)

	_, err = f.store.AddToCart(guest.ID, catalog.Reference{By: catalog.ByFilter, Value: "cheese"}, 1)
	assert.ErrorIs(t, err, catalog.ErrNoMatches)

	_, err = f.store.AddToCart(guest.ID, catalog.Reference{By: catalog.ByID, Value: "3"}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.store.AddToCart(guest.ID, catalog.Reference{By: catalog.ByID, Value: "3"}, 4)
	require.NoError(t, err)

	view, err := f.store.Cart(guest.ID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 2)
	assert.Equal(t, 5, view.Lines[0].Quantity)
	assert.Equal(t, "19.50", view.Total.StringFixed(2))

	_, err = f.store.ReduceInCart(guest.ID, byBarcode("111"), 10)
	require.NoError(t, err)
	_, err = f.store.RemoveFromCart(guest.ID, byBarcode("333"))
	require.NoError(t, err)

	view, err = f.store.Cart(guest.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.True(t, view.Total.IsZero())

	f.store.EndSession(guest.ID)
	_, err = f.store.Cart(guest.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStorefront_CheckoutAppendsOneOrderAndClearsCart(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, err := f.store.Authenticate(ctx, "ann@example.com", "password123")
	require.NoError(t, err)
	_, err = f.store.AddToCart(sess.ID, byBarcode("333"), 1)
	require.NoError(t, err)

	order, err := f.store.Checkout(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "6.75", order.Total().StringFixed(2))

	assert.Equal(t, "Ann,ann@example.com,2026-05-06T07:08:09Z,111:2,333:1\n", f.read(t, "orders.csv"))

	view, err := f.store.Cart(sess.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.NotContains(t, f.read(t, "users.csv"), "111:2")

	_, err = f.store.Checkout(ctx, sess.ID)
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
	assert.Equal(t, "Ann,ann@example.com,2026-05-06T07:08:09Z,111:2,333:1\n", f.read(t, "orders.csv"))

	orders, err := f.store.Orders(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.Lines, orders[0].Lines)
}

func TestStorefront_GuestCheckoutRejected(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	guest := f.store.StartGuest()
	_, err := f.store.AddToCart(guest.ID, byBarcode("111"), 1)
	require.NoError(t, err)

	_, err = f.store.Checkout(ctx, guest.ID)
	assert.ErrorIs(t, err, domain.ErrGuestCheckout)

	_, err = f.store.BuyNow(ctx, guest.ID, byBarcode("111"), 1)
	assert.ErrorIs(t, err, domain.ErrGuestCheckout)

	_, err = f.store.Orders(ctx, guest.ID)
	assert.ErrorIs(t, err, ErrLoginRequired)

	view, err := f.store.Cart(guest.ID)
	require.NoError(t, err)
	assert.Len(t, view.Lines, 1)

	_, statErr := os.Stat(f.orders)
	assert.True(t, os.IsNotExist(statErr))
}

func TestStorefront_CheckoutFailureKeepsCart(t *testing.T) {
	orders := new(MockOrderRepository)
	orders.On("Append", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(errors.New("disk full"))

	f := newFixture(t, orders)
	ctx := context.Background()
	usersBefore := f.read(t, "users.csv")

	sess, err := f.store.Authenticate(ctx, "ann@example.com", "password123")
	require.NoError(t, err)

	_, err = f.store.Checkout(ctx, sess.ID)
	assert.EqualError(t, err, "append order: disk full")

	view, err := f.store.Cart(sess.ID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 2, view.Lines[0].Quantity)
	assert.Equal(t, usersBefore, f.read(t, "users.csv"))

	orders.AssertExpectations(t)
}

func TestStorefront_BuyNowLeavesCartAlone(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, err := f.store.Authenticate(ctx, "ann@example.com", "password123")
	require.NoError(t, err)

	order, err := f.store.BuyNow(ctx, sess.ID, catalog.Reference{By: catalog.ByFilter, Value: "salsa"}, 2)
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, "6.20", order.Total().StringFixed(2))

	_, err = f.store.BuyNow(ctx, sess.ID, byBarcode("222"), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	view, err := f.store.Cart(sess.ID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, int64(111), view.Lines[0].Product.Barcode)
	assert.Equal(t, "Ann,ann@example.com,2026-05-06T07:08:09Z,222:2\n", f.read(t, "orders.csv"))
}

func TestStorefront_SaveRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	usersBefore := f.read(t, "users.csv")

	require.NoError(t, f.store.Save(context.Background()))

	assert.Equal(t, productsCSV, f.read(t, "products.csv"))
	assert.Equal(t, usersBefore, f.read(t, "users.csv"))
}

func TestStorefront_FailedLoadKeepsState(t *testing.T) {
	f := newFixture(t, nil)
	require.Len(t, f.store.Products(), 3)

	require.NoError(t, os.Remove(f.path("products.csv")))
	require.NoError(t, os.Mkdir(f.path("products.csv"), 0o755))

	err := f.store.Load(context.Background())
	var storageErr *repository.StorageError
	require.True(t, errors.As(err, &storageErr))

	assert.Len(t, f.store.Products(), 3)
	_, err = f.store.Authenticate(context.Background(), "ann@example.com", "password123")
	assert.NoError(t, err)
}

func TestStorefront_Search(t *testing.T) {
	f := newFixture(t, nil)

	found := f.store.Search("MIL")
	require.Len(t, found, 2)
	assert.Equal(t, "Milk", found[0].Name)
	assert.Equal(t, "Mild Salsa", found[1].Name)
	assert.Empty(t, f.store.Search("cheese"))

	p, err := f.store.Resolve(catalog.Reference{By: catalog.ByID, Value: "2"})
	require.NoError(t, err)
	assert.Equal(t, "Mild Salsa", p.Name)
}

func TestStorefront_SaveKeepsCatalogWithSkippedRecords(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	catalogFile := "1,Milk,2.50,111\n2,Salt, coarse,1.00,222\n3,Bread,1.75,333\n"
	require.NoError(t, os.WriteFile(f.path("products.csv"), []byte(catalogFile), 0o644))
	require.NoError(t, f.store.Load(ctx))
	require.Len(t, f.store.Products(), 2)

	sess, err := f.store.Authenticate(ctx, "ann@example.com", "password123")
	require.NoError(t, err)
	_, err = f.store.AddToCart(sess.ID, byBarcode("333"), 1)
	require.NoError(t, err)

	require.NoError(t, f.store.Save(ctx))

	assert.Equal(t, catalogFile, f.read(t, "products.csv"))
	assert.Contains(t, f.read(t, "users.csv"), ",111:2,333:1\n")
}

func TestStorefront_PasswordWhitespaceIsKept(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.store.Register(ctx, "Cy", "cy@example.com", "  open sesame  ")
	require.NoError(t, err)

	_, err = f.store.Authenticate(ctx, "cy@example.com", "  open sesame  ")
	assert.NoError(t, err)
	_, err = f.store.Authenticate(ctx, "cy@example.com", "open sesame")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	legacy, err := auth.RailFence{Rails: 3}.Hash(" old secret ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.path("users.csv"), []byte("Dee,dee@example.com,"+legacy+"\n"), 0o644))
	require.NoError(t, f.store.Load(ctx))

	_, err = f.store.Authenticate(ctx, " dee@example.com ", " old secret ")
	assert.NoError(t, err)
	_, err = f.store.Authenticate(ctx, "dee@example.com", "old secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestStorefront_RegisterPasswordLengthLimit(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.store.Register(ctx, "Eve", "eve@example.com", strings.Repeat("p", 73))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.store.Register(ctx, "Eve", "eve@example.com", strings.Repeat("p", 72))
	assert.NoError(t, err)
}
