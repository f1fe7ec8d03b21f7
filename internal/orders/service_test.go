package orders

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfront/internal/database"
	"shopfront/internal/models"
	"shopfront/internal/store"
	"shopfront/internal/store/sqlstore"
)

type recorder struct {
	mu     sync.Mutex
	events []models.OrderEvent
	mails  []string
}

func (r *recorder) Publish(_ context.Context, _ string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, payload.(models.OrderEvent))
	return nil
}

func (r *recorder) SendStatusUpdate(_ context.Context, to *models.User, _ *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mails = append(r.mails, to.Email)
	return nil
}

type fixture struct {
	svc      *Service
	rec      *recorder
	orders   *sqlstore.Orders
	admin    *models.Principal
	seller   *models.Principal
	stranger *models.Principal
	customer *models.Principal
	orderID  uuid.UUID
}

func setup(t *testing.T) *fixture {
	db, err := database.OpenSQL(database.DriverSQLite, filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	users := sqlstore.NewUsers(db)
	products := sqlstore.NewProducts(db)
	f := &fixture{rec: &recorder{}, orders: sqlstore.NewOrders(db)}
	f.svc = NewService(f.orders, products, users, f.rec, f.rec)

	mk := func(email string, role models.Role) *models.Principal {
		u := &models.User{Email: email, Role: role}
		require.NoError(t, users.Create(ctx, u))
		return u.Principal()
	}
	f.admin = mk("admin@example.com", models.RoleAdmin)
	f.seller = mk("seller@example.com", models.RoleSeller)
	f.stranger = mk("other-seller@example.com", models.RoleSeller)
	f.customer = mk("buyer@example.com", models.RoleCustomer)

	p := &models.Product{SellerID: f.seller.UserID, Name: "Bol", Price: decimal.RequireFromString("8.00")}
	require.NoError(t, products.Create(ctx, p))

	err = f.orders.WithinTx(ctx, func(tx store.OrderTx) error {
		id, err := tx.CreateOrder(ctx, models.OrderHeader{OwnerUserID: f.customer.UserID, Total: p.Price})
		if err != nil {
			return err
		}
		f.orderID = id
		return tx.CreateOrderLines(ctx, id, []models.OrderLine{{ProductID: p.ID, Quantity: 1, UnitPriceAtPurchase: p.Price}})
	})
	require.NoError(t, err)
	return f
}

func TestUpdateStatus_SellerOfContainedProduct(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	o, err := f.svc.UpdateStatus(ctx, f.seller, f.orderID, models.OrderStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, o.Status)
	f.svc.Wait()

	require.Len(t, f.rec.events, 1)
	assert.Equal(t, models.OrderStatusPending, f.rec.events[0].PreviousStatus)
	assert.Equal(t, models.OrderStatusPaid, f.rec.events[0].Status)
	assert.Equal(t, []string{"buyer@example.com"}, f.rec.mails)

	stored, err := f.orders.FindByID(ctx, f.orderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, stored.Status)
	assert.True(t, stored.Total.Equal(decimal.RequireFromString("8.00")))
}

func TestUpdateStatus_Forbidden(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, f.stranger, f.orderID, models.OrderStatusPaid)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.UpdateStatus(ctx, f.customer, f.orderID, models.OrderStatusPaid)
	assert.ErrorIs(t, err, ErrForbidden)

	stored, err := f.orders.FindByID(ctx, f.orderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
}

func TestUpdateStatus_AdminForwardOnly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, f.admin, f.orderID, models.OrderStatusShipped)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, f.admin, f.orderID, models.OrderStatusPaid)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	o, err := f.svc.UpdateStatus(ctx, f.admin, f.orderID, models.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, o.Status)
	f.svc.Wait()
	assert.Len(t, f.rec.events, 1)

	_, err = f.svc.UpdateStatus(ctx, f.admin, uuid.New(), models.OrderStatusPaid)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGet_OwnerOnly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	o, err := f.svc.Get(ctx, f.customer, f.orderID)
	require.NoError(t, err)
	assert.Equal(t, f.orderID, o.ID)

	_, err = f.svc.Get(ctx, f.stranger, f.orderID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	mine, err := f.svc.ForCustomer(ctx, f.customer)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	sold, err := f.svc.ForSeller(ctx, f.seller)
	require.NoError(t, err)
	assert.Len(t, sold, 1)

	none, err := f.svc.ForSeller(ctx, f.stranger)
	require.NoError(t, err)
	assert.Empty(t, none)
}
