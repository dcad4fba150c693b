package services

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"agromarket/internal/domain"
	"agromarket/internal/mocks"
	"agromarket/internal/repository/memory"
)

type orderFixture struct {
	svc      *OrderService
	listings *memory.ListingStore
	orders   *memory.OrderStore
	users    *memory.UserStore
	pub      *mocks.MockPublisher
}

func newOrderFixture() *orderFixture {
	listings := memory.NewListingStore()
	orders := memory.NewOrderStore()
	users := memory.NewUserStore()
	pub := &mocks.MockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return &orderFixture{
		svc:      NewOrderService(orders, listings, users, pub, testLogger()),
		listings: listings,
		orders:   orders,
		users:    users,
		pub:      pub,
	}
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("success reserves stock and snapshots pickup", func(t *testing.T) {
		f := newOrderFixture()
		farmer := newTestUser(domain.RoleFarmer, "Ramesh")
		buyer := newTestUser(domain.RoleBuyer, "Anita")
		seedUser(t, f.users, farmer)
		listing := newTestListing(farmer, "Tomato", 30, 10)
		seedListing(t, f.listings, listing)

		order, err := f.svc.CreateOrder(ctx, buyer, CreateOrderInput{
			Lines:    []CartLine{{ListingID: listing.ID, Quantity: 4}},
			Delivery: domain.DeliveryInfo{Address: "5 Market Lane", City: "Mumbai"},
		})
		require.NoError(t, err)

		assert.Equal(t, domain.StatusPending, order.Status)
		assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(120)))
		assert.Equal(t, farmer.Name, order.PickupInfo.FarmerName)
		assert.Equal(t, farmer.Phone, order.PickupInfo.Phone)
		assert.Equal(t, buyer.Name, order.DeliveryInfo.BuyerName)
		assert.Empty(t, order.DeliveryPartnerID)
		assert.NotEmpty(t, order.Distance)
		assert.NotEmpty(t, order.EstimatedTime)

		got, err := f.listings.FindByID(ctx, listing.ID)
		require.NoError(t, err)
		assert.Equal(t, 6, got.Quantity)
	})

	t.Run("total amount stays frozen after price edit", func(t *testing.T) {
		f := newOrderFixture()
		farmer := newTestUser(domain.RoleFarmer, "Ramesh")
		buyer := newTestUser(domain.RoleBuyer, "Anita")
		seedUser(t, f.users, farmer)
		listing := newTestListing(farmer, "Tomato", 30, 10)
		seedListing(t, f.listings, listing)

		order, err := f.svc.CreateOrder(ctx, buyer, CreateOrderInput{
			Lines:    []CartLine{{ListingID: listing.ID, Quantity: 2}},
			Delivery: domain.DeliveryInfo{Address: "5 Market Lane", City: "Mumbai"},
		})
		require.NoError(t, err)

		listing.Price = decimal.NewFromInt(90)
		require.NoError(t, f.listings.Update(ctx, listing))

		stored, err := f.orders.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.True(t, stored.TotalAmount.Equal(decimal.NewFromInt(60)))
		assert.True(t, stored.Lines[0].PriceAtPurchase.Equal(decimal.NewFromInt(30)))
	})

	t.Run("non-buyer is rejected", func(t *testing.T) {
		f := newOrderFixture()
		farmer := newTestUser(domain.RoleFarmer, "Ramesh")
		_, err := f.svc.CreateOrder(ctx, farmer, CreateOrderInput{
			Lines:    []CartLine{{ListingID: "x", Quantity: 1}},
			Delivery: domain.DeliveryInfo{Address: "a", City: "b"},
		})
		assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	})

	t.Run("empty cart is rejected", func(t *testing.T) {
		f := newOrderFixture()
		buyer := newTestUser(domain.RoleBuyer, "Anita")
		_, err := f.svc.CreateOrder(ctx, buyer, CreateOrderInput{
			Delivery: domain.DeliveryInfo{Address: "a", City: "b"},
		})
		assert.ErrorIs(t, err, domain.ErrEmptyCart)
	})

	t.Run("unknown listing is rejected", func(t *testing.T) {
		f := newOrderFixture()
		buyer := newTestUser(domain.RoleBuyer, "Anita")
		_, err := f.svc.CreateOrder(ctx, buyer, CreateOrderInput{
			Lines:    []CartLine{{ListingID: "missing", Quantity: 1}},
			Delivery: domain.DeliveryInfo{Address: "a", City: "b"},
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("mixed farmers leave stock untouched", func(t *testing.T) {
		f := newOrderFixture()
		f1 := newTestUser(domain.RoleFarmer, "Ramesh")
		f2 := newTestUser(domain.RoleFarmer, "Suresh")
		buyer := newTestUser(domain.RoleBuyer, "Anita")
		l1 := newTestListing(f1, "Tomato", 30, 10)
		l2 := newTestListing(f2, "Potato", 25, 8)
		seedListing(t, f.listings, l1)
		seedListing(t, f.listings, l2)

		_, err := f.svc.CreateOrder(ctx, buyer, CreateOrderInput{
			Lines: []CartLine{
				{ListingID: l1.ID, Quantity: 2},
				{ListingID: l2.ID, Quantity: 3},
			},
			Delivery: domain.DeliveryInfo{Address: "a", City: "b"},
		})
		assert.ErrorIs(t, err, domain.ErrMixedFarmers)

		got1, _ := f.listings.FindByID(ctx, l1.ID)
		got2, _ := f.listings.FindByID(ctx, l2.ID)
		assert.Equal(t, 10, got1.Quantity)
		assert.Equal(t, 8, got2.Quantity)
	})

	t.Run("failed reservation rolls back earlier lines", func(t *testing.T) {
		f := newOrderFixture()
		farmer := newTestUser(domain.RoleFarmer, "Ramesh")
		buyer := newTestUser(domain.RoleBuyer, "Anita")
		l1 := newTestListing(farmer, "Tomato", 30, 10)
		l2 := newTestListing(farmer, "Potato", 25, 2)
		seedListing(t, f.listings, l1)
		seedListing(t, f.listings, l2)

		_, err := f.svc.CreateOrder(ctx, buyer, CreateOrderInput{
			Lines: []CartLine{
				{ListingID: l1.ID, Quantity: 5},
				{ListingID: l2.ID, Quantity: 3},
			},
			Delivery: domain.DeliveryInfo{Address: "a", City: "b"},
		})
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)

		got1, _ := f.listings.FindByID(ctx, l1.ID)
		got2, _ := f.listings.FindByID(ctx, l2.ID)
		assert.Equal(t, 10, got1.Quantity)
		assert.Equal(t, 2, got2.Quantity)
	})

	t.Run("concurrent checkouts never oversell", func(t *testing.T) {
		f := newOrderFixture()
		farmer := newTestUser(domain.RoleFarmer, "Ramesh")
		seedUser(t, f.users, farmer)
		listing := newTestListing(farmer, "Tomato", 30, 5)
		seedListing(t, f.listings, listing)

		quantities := []int{3, 4}
		results := make([]error, len(quantities))
		var wg sync.WaitGroup
		for i, q := range quantities {
			wg.Add(1)
			go func(i, q int) {
				defer wg.Done()
				buyer := newTestUser(domain.RoleBuyer, "Buyer")
				_, results[i] = f.svc.CreateOrder(ctx, buyer, CreateOrderInput{
					Lines:    []CartLine{{ListingID: listing.ID, Quantity: q}},
					Delivery: domain.DeliveryInfo{Address: "a", City: "b"},
				})
			}(i, q)
		}
		wg.Wait()

		succeeded := 0
		reserved := 0
		for i, err := range results {
			if err == nil {
				succeeded++
				reserved += quantities[i]
			} else {
				assert.ErrorIs(t, err, domain.ErrInsufficientStock)
			}
		}
		assert.Equal(t, 1, succeeded)

		got, _ := f.listings.FindByID(ctx, listing.ID)
		assert.Equal(t, 5-reserved, got.Quantity)
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	place := func(t *testing.T, f *orderFixture, farmer *domain.User) *domain.Order {
		buyer := newTestUser(domain.RoleBuyer, "Anita")
		listing := newTestListing(farmer, "Tomato", 30, 10)
		seedListing(t, f.listings, listing)
		order, err := f.svc.CreateOrder(ctx, buyer, CreateOrderInput{
			Lines:    []CartLine{{ListingID: listing.ID, Quantity: 2}},
			Delivery: domain.DeliveryInfo{Address: "a", City: "b"},
		})
		require.NoError(t, err)
		return order
	}

	t.Run("delivery partner claims a pending order", func(t *testing.T) {
		f := newOrderFixture()
		farmer := newTestUser(domain.RoleFarmer, "Ramesh")
		seedUser(t, f.users, farmer)
		order := place(t, f, farmer)
		partner := newTestUser(domain.RoleDelivery, "Vijay")

		updated, err := f.svc.UpdateStatus(ctx, partner, order.ID, domain.StatusAccepted)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAccepted, updated.Status)
		assert.Equal(t, partner.ID, updated.DeliveryPartnerID)
	})

	t.Run("farmer confirmation leaves delivery partner unset", func(t *testing.T) {
		f := newOrderFixture()
		farmer := newTestUser(domain.RoleFarmer, "Ramesh")
		seedUser(t, f.users, farmer)
		order := place(t, f, farmer)

		updated, err := f.svc.UpdateStatus(ctx, farmer, order.ID, domain.StatusAccepted)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAccepted, updated.Status)
		assert.Empty(t, updated.DeliveryPartnerID)
	})

	t.Run("partner claim is recorded on a farmer-accepted order", func(t *testing.T) {
		f := newOrderFixture()
		farmer := newTestUser(domain.RoleFarmer, "Ramesh")
		seedUser(t, f.users, farmer)
		order := place(t, f, farmer)

		_, err := f.svc.UpdateStatus(ctx, farmer, order.ID, domain.StatusAccepted)
		require.NoError(t, err)

		// The first delivery actor to progress the order claims it.
		partner := newTestUser(domain.RoleDelivery, "Vijay")
		updated, err := f.svc.UpdateStatus(ctx, partner, order.ID, domain.StatusOutForDelivery)
		require.NoError(t, err)
		assert.Equal(t, partner.ID, updated.DeliveryPartnerID)

		// Every other delivery partner is locked out from then on.
		other := newTestUser(domain.RoleDelivery, "Arun")
		_, err = f.svc.UpdateStatus(ctx, other, order.ID, domain.StatusDelivered)
		assert.ErrorIs(t, err, domain.ErrNotAuthorized)

		updated, err = f.svc.UpdateStatus(ctx, partner, order.ID, domain.StatusDelivered)
		require.NoError(t, err)
		assert.Equal(t, partner.ID, updated.DeliveryPartnerID)

		stored, _ := f.orders.FindByID(ctx, order.ID)
		assert.Equal(t, partner.ID, stored.DeliveryPartnerID)
	})

	t.Run("farmer cannot move an accepted order out for delivery", func(t *testing.T) {
		f := newOrderFixture()
		farmer := newTestUser(domain.RoleFarmer, "Ramesh")
		seedUser(t, f.users, farmer)
		order := place(t, f, farmer)

		partner := newTestUser(domain.RoleDelivery, "Vijay")
		_, err := f.svc.UpdateStatus(ctx, partner, order.ID, domain.StatusAccepted)
		require.NoError(t, err)

		_, err = f.svc.UpdateStatus(ctx, farmer, order.ID, domain.StatusOutForDelivery)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		stored, _ := f.orders.FindByID(ctx, order.ID)
		assert.Equal(t, domain.StatusAccepted, stored.Status)
	})

	t.Run("full lifecycle to delivered", func(t *testing.T) {
		f := newOrderFixture()
		farmer := newTestUser(domain.RoleFarmer, "Ramesh")
		seedUser(t, f.users, farmer)
		order := place(t, f, farmer)
		partner := newTestUser(domain.RoleDelivery, "Vijay")

		for _, status := range []domain.OrderStatus{
			domain.StatusAccepted,
			domain.StatusOutForDelivery,
			domain.StatusDelivered,
		} {
			updated, err := f.svc.UpdateStatus(ctx, partner, order.ID, status)
			require.NoError(t, err)
			assert.Equal(t, status, updated.Status)
		}
	})

	t.Run("skipping a state is rejected", func(t *testing.T) {
		f := newOrderFixture()
		farmer := newTestUser(domain.RoleFarmer, "Ramesh")
		seedUser(t, f.users, farmer)
		order := place(t, f, farmer)
		partner := newTestUser(domain.RoleDelivery, "Vijay")

		_, err := f.svc.UpdateStatus(ctx, partner, order.ID, domain.StatusDelivered)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		stored, _ := f.orders.FindByID(ctx, order.ID)
		assert.Equal(t, domain.StatusPending, stored.Status)
	})

	t.Run("second claim loses to the first", func(t *testing.T) {
		f := newOrderFixture()
		farmer := newTestUser(domain.RoleFarmer, "Ramesh")
		seedUser(t, f.users, farmer)
		order := place(t, f, farmer)

		first := newTestUser(domain.RoleDelivery, "Vijay")
		second := newTestUser(domain.RoleDelivery, "Arun")

		_, err := f.svc.UpdateStatus(ctx, first, order.ID, domain.StatusAccepted)
		require.NoError(t, err)

		_, err = f.svc.UpdateStatus(ctx, second, order.ID, domain.StatusAccepted)
		assert.Error(t, err)

		stored, _ := f.orders.FindByID(ctx, order.ID)
		assert.Equal(t, first.ID, stored.DeliveryPartnerID)
	})

	t.Run("buyer can cancel only their own pending order", func(t *testing.T) {
		f := newOrderFixture()
		farmer := newTestUser(domain.RoleFarmer, "Ramesh")
		seedUser(t, f.users, farmer)
		order := place(t, f, farmer)

		stranger := newTestUser(domain.RoleBuyer, "Kiran")
		_, err := f.svc.UpdateStatus(ctx, stranger, order.ID, domain.StatusCancelled)
		assert.ErrorIs(t, err, domain.ErrNotAuthorized)

		owner := &domain.User{ID: order.BuyerID, Role: domain.RoleBuyer}
		updated, err := f.svc.UpdateStatus(ctx, owner, order.ID, domain.StatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, updated.Status)
	})

	t.Run("terminal states accept no further transitions", func(t *testing.T) {
		f := newOrderFixture()
		farmer := newTestUser(domain.RoleFarmer, "Ramesh")
		seedUser(t, f.users, farmer)
		order := place(t, f, farmer)
		partner := newTestUser(domain.RoleDelivery, "Vijay")

		for _, status := range []domain.OrderStatus{
			domain.StatusAccepted, domain.StatusOutForDelivery, domain.StatusDelivered,
		} {
			_, err := f.svc.UpdateStatus(ctx, partner, order.ID, status)
			require.NoError(t, err)
		}

		for _, target := range []domain.OrderStatus{
			domain.StatusPending, domain.StatusAccepted, domain.StatusOutForDelivery,
			domain.StatusDelivered, domain.StatusCancelled,
		} {
			_, err := f.svc.UpdateStatus(ctx, partner, order.ID, target)
			assert.ErrorIs(t, err, domain.ErrInvalidTransition, "delivered -> %s", target)
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newOrderFixture()
		partner := newTestUser(domain.RoleDelivery, "Vijay")
		_, err := f.svc.UpdateStatus(ctx, partner, "missing", domain.StatusAccepted)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		repo := &mocks.MockOrderRepository{}
		repo.On("FindByID", mock.Anything, "o1").Return(nil, errors.New("connection refused"))
		pub := &mocks.MockPublisher{}
		svc := NewOrderService(repo, memory.NewListingStore(), memory.NewUserStore(), pub, testLogger())

		partner := newTestUser(domain.RoleDelivery, "Vijay")
		_, err := svc.UpdateStatus(ctx, partner, "o1", domain.StatusAccepted)
		assert.EqualError(t, err, "connection refused")
	})
}

func TestVisibleOrders(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture()

	farmer1 := newTestUser(domain.RoleFarmer, "Ramesh")
	farmer2 := newTestUser(domain.RoleFarmer, "Suresh")
	buyer1 := newTestUser(domain.RoleBuyer, "Anita")
	buyer2 := newTestUser(domain.RoleBuyer, "Kiran")
	seedUser(t, f.users, farmer1)
	seedUser(t, f.users, farmer2)

	l1 := newTestListing(farmer1, "Tomato", 30, 20)
	l2 := newTestListing(farmer2, "Potato", 25, 20)
	seedListing(t, f.listings, l1)
	seedListing(t, f.listings, l2)

	o1, err := f.svc.CreateOrder(ctx, buyer1, CreateOrderInput{
		Lines:    []CartLine{{ListingID: l1.ID, Quantity: 2}},
		Delivery: domain.DeliveryInfo{Address: "a", City: "b"},
	})
	require.NoError(t, err)
	o2, err := f.svc.CreateOrder(ctx, buyer2, CreateOrderInput{
		Lines:    []CartLine{{ListingID: l2.ID, Quantity: 3}},
		Delivery: domain.DeliveryInfo{Address: "a", City: "b"},
	})
	require.NoError(t, err)

	t.Run("buyers see only their own orders", func(t *testing.T) {
		visible, err := f.svc.VisibleOrders(ctx, buyer1)
		require.NoError(t, err)
		require.Len(t, visible, 1)
		assert.Equal(t, o1.ID, visible[0].ID)

		visible, err = f.svc.VisibleOrders(ctx, buyer2)
		require.NoError(t, err)
		require.Len(t, visible, 1)
		assert.Equal(t, o2.ID, visible[0].ID)
	})

	t.Run("farmers see orders carrying their lines", func(t *testing.T) {
		visible, err := f.svc.VisibleOrders(ctx, farmer1)
		require.NoError(t, err)
		require.Len(t, visible, 1)
		assert.Equal(t, o1.ID, visible[0].ID)
	})

	t.Run("delivery sees only active orders", func(t *testing.T) {
		partner := newTestUser(domain.RoleDelivery, "Vijay")
		visible, err := f.svc.VisibleOrders(ctx, partner)
		require.NoError(t, err)
		assert.Len(t, visible, 2)

		for _, status := range []domain.OrderStatus{
			domain.StatusAccepted, domain.StatusOutForDelivery, domain.StatusDelivered,
		} {
			_, err := f.svc.UpdateStatus(ctx, partner, o1.ID, status)
			require.NoError(t, err)
		}

		visible, err = f.svc.VisibleOrders(ctx, partner)
		require.NoError(t, err)
		require.Len(t, visible, 1)
		assert.Equal(t, o2.ID, visible[0].ID)

		history, err := f.svc.History(ctx, partner)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, o1.ID, history[0].ID)
	})

	t.Run("admin sees everything", func(t *testing.T) {
		admin := newTestUser(domain.RoleAdmin, "Admin")
		visible, err := f.svc.VisibleOrders(ctx, admin)
		require.NoError(t, err)
		assert.Len(t, visible, 2)
	})
}

func TestEarningsFor(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture()

	farmer := newTestUser(domain.RoleFarmer, "Ramesh")
	buyer := newTestUser(domain.RoleBuyer, "Anita")
	seedUser(t, f.users, farmer)
	listing := newTestListing(farmer, "Tomato", 30, 20)
	seedListing(t, f.listings, listing)

	order, err := f.svc.CreateOrder(ctx, buyer, CreateOrderInput{
		Lines:    []CartLine{{ListingID: listing.ID, Quantity: 4}},
		Delivery: domain.DeliveryInfo{Address: "a", City: "b"},
	})
	require.NoError(t, err)

	earnings, err := f.svc.EarningsFor(ctx, farmer.ID)
	require.NoError(t, err)
	assert.True(t, earnings.TotalEarnings.IsZero())
	assert.Equal(t, 0, earnings.DeliveredOrderCount)

	partner := newTestUser(domain.RoleDelivery, "Vijay")
	for _, status := range []domain.OrderStatus{
		domain.StatusAccepted, domain.StatusOutForDelivery, domain.StatusDelivered,
	} {
		_, err := f.svc.UpdateStatus(ctx, partner, order.ID, status)
		require.NoError(t, err)
	}

	earnings, err = f.svc.EarningsFor(ctx, farmer.ID)
	require.NoError(t, err)
	assert.True(t, earnings.TotalEarnings.Equal(order.TotalAmount))
	assert.Equal(t, 1, earnings.DeliveredOrderCount)

	other, err := f.svc.EarningsFor(ctx, "someone-else")
	require.NoError(t, err)
	assert.True(t, other.TotalEarnings.IsZero())
	assert.Equal(t, 0, other.DeliveredOrderCount)
}
