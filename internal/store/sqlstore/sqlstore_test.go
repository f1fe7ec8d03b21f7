package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfront/internal/database"
	"shopfront/internal/models"
	"shopfront/internal/store"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := database.OpenSQL(database.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, users *Users, email string, role models.Role) *models.User {
	u := &models.User{Name: "Test", Email: email, Password: "hash", Role: role}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func createProduct(t *testing.T, products *Products, sellerID uuid.UUID, name, price string) *models.Product {
	p := &models.Product{SellerID: sellerID, Name: name, Price: decimal.RequireFromString(price), Stock: 3}
	require.NoError(t, products.Create(context.Background(), p))
	return p
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, database.Migrate(db, database.DriverSQLite))
}

func TestUsers_CreateAndFind(t *testing.T) {
	db := setupTestDB(t)
	users := NewUsers(db)
	ctx := context.Background()

	u := createUser(t, users, "alice@example.com", models.RoleCustomer)
	assert.NotEqual(t, uuid.Nil, u.ID)

	got, err := users.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, models.RoleCustomer, got.Role)

	got, err = users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	_, err = users.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsers_DuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	users := NewUsers(db)

	createUser(t, users, "dup@example.com", models.RoleCustomer)
	err := users.Create(context.Background(), &models.User{Email: "dup@example.com", Role: models.RoleSeller})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestUsers_ProviderAndRoleListing(t *testing.T) {
	db := setupTestDB(t)
	users := NewUsers(db)
	ctx := context.Background()

	g := &models.User{Email: "g@example.com", Role: models.RoleCustomer, Provider: "google", ProviderID: "123"}
	require.NoError(t, users.Create(ctx, g))
	createUser(t, users, "s1@example.com", models.RoleSeller)
	createUser(t, users, "s2@example.com", models.RoleSeller)

	got, err := users.FindByProvider(ctx, "google", "123")
	require.NoError(t, err)
	assert.Equal(t, g.ID, got.ID)

	sellers, err := users.ListByRole(ctx, models.RoleSeller)
	require.NoError(t, err)
	assert.Len(t, sellers, 2)

	require.NoError(t, users.UpdatePassword(ctx, g.ID, "newhash"))
	got, err = users.FindByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "newhash", got.Password)

	assert.ErrorIs(t, users.UpdatePassword(ctx, uuid.New(), "x"), store.ErrNotFound)
}

func TestProducts_CRUD(t *testing.T) {
	db := setupTestDB(t)
	users := NewUsers(db)
	products := NewProducts(db)
	ctx := context.Background()

	seller := createUser(t, users, "seller@example.com", models.RoleSeller)
	other := createUser(t, users, "other@example.com", models.RoleSeller)

	lamp := createProduct(t, products, seller.ID, "Lampe de bureau", "19.99")
	createProduct(t, products, other.ID, "Chaise", "45.00")

	got, err := products.FindByID(ctx, lamp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lampe de bureau", got.Name)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, seller.ID, got.SellerID)

	all, err := products.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := products.ListBySeller(ctx, seller.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, lamp.ID, mine[0].ID)

	found, err := products.Search(ctx, "LAMPE")
	require.NoError(t, err)
	require.Len(t, found, 1)

	latest, err := products.Latest(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, latest, 1)

	require.NoError(t, products.Delete(ctx, lamp.ID))
	_, err = products.FindByID(ctx, lamp.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, products.Delete(ctx, lamp.ID), store.ErrNotFound)
}

type fixture struct {
	users    *Users
	products *Products
	orders   *Orders
	customer *models.User
	seller   *models.User
	product  *models.Product
}

func setupOrders(t *testing.T) *fixture {
	db := setupTestDB(t)
	f := &fixture{users: NewUsers(db), products: NewProducts(db), orders: NewOrders(db)}
	f.customer = createUser(t, f.users, "buyer@example.com", models.RoleCustomer)
	f.seller = createUser(t, f.users, "shop@example.com", models.RoleSeller)
	f.product = createProduct(t, f.products, f.seller.ID, "Tasse", "10.00")
	return f
}

func (f *fixture) place(ctx context.Context, lines []models.OrderLine) (uuid.UUID, error) {
	var id uuid.UUID
	err := f.orders.WithinTx(ctx, func(tx store.OrderTx) error {
		var err error
		id, err = tx.CreateOrder(ctx, models.OrderHeader{
			OwnerUserID: f.customer.ID,
			Total:       models.LinesTotal(lines),
			Status:      models.OrderStatusPending,
		})
		if err != nil {
			return err
		}
		return tx.CreateOrderLines(ctx, id, lines)
	})
	return id, err
}

func TestOrders_CommitHeaderAndLines(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()

	id, err := f.place(ctx, []models.OrderLine{
		{ProductID: f.product.ID, ProductName: "Tasse", Quantity: 2, UnitPriceAtPurchase: decimal.RequireFromString("10.00")},
		{ProductID: uuid.New(), ProductName: "Sous-verre", Quantity: 1, UnitPriceAtPurchase: decimal.RequireFromString("5.00")},
	})
	require.NoError(t, err)

	o, err := f.orders.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, f.customer.ID, o.OwnerUserID)
	assert.Equal(t, models.OrderStatusPending, o.Status)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("25.00")), "total %s", o.Total)
	require.Len(t, o.Lines, 2)
	assert.Equal(t, f.product.ID, o.Lines[0].ProductID)
	assert.Equal(t, 2, o.Lines[0].Quantity)

	mine, err := f.orders.ListByOwner(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	forSeller, err := f.orders.ListBySeller(ctx, f.seller.ID)
	require.NoError(t, err)
	require.Len(t, forSeller, 1)
	assert.Len(t, forSeller[0].Lines, 2)

	all, err := f.orders.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestOrders_LineFailureRollsBackHeader(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()

	_, err := f.place(ctx, []models.OrderLine{
		{ProductID: f.product.ID, Quantity: 1, UnitPriceAtPurchase: decimal.RequireFromString("10.00")},
		{ProductID: uuid.New(), Quantity: 0, UnitPriceAtPurchase: decimal.RequireFromString("1.00")},
	})
	require.Error(t, err)

	all, err := f.orders.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	var n int
	require.NoError(t, f.orders.db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestOrders_CallbackErrorRollsBack(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := f.orders.WithinTx(ctx, func(tx store.OrderTx) error {
		if _, err := tx.CreateOrder(ctx, models.OrderHeader{OwnerUserID: f.customer.ID, Total: decimal.NewFromInt(1)}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, f.orders.db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestOrders_CancelledContextRollsBack(t *testing.T) {
	f := setupOrders(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := f.orders.WithinTx(ctx, func(tx store.OrderTx) error {
		_, err := tx.CreateOrder(ctx, models.OrderHeader{OwnerUserID: f.customer.ID, Total: decimal.NewFromInt(1)})
		cancel()
		return err
	})
	assert.ErrorIs(t, err, context.Canceled)

	var n int
	require.NoError(t, f.orders.db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestOrders_UpdateStatusCompareAndSet(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()

	id, err := f.place(ctx, []models.OrderLine{
		{ProductID: f.product.ID, Quantity: 1, UnitPriceAtPurchase: decimal.RequireFromString("10.00")},
	})
	require.NoError(t, err)

	before, err := f.orders.FindByID(ctx, id)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, f.orders.UpdateStatus(ctx, id, models.OrderStatusPending, models.OrderStatusPaid))
	assert.ErrorIs(t, f.orders.UpdateStatus(ctx, id, models.OrderStatusPending, models.OrderStatusShipped), store.ErrConflict)
	assert.ErrorIs(t, f.orders.UpdateStatus(ctx, uuid.New(), models.OrderStatusPending, models.OrderStatusPaid), store.ErrNotFound)

	after, err := f.orders.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, after.Status)
	assert.True(t, after.Total.Equal(before.Total))
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
}
