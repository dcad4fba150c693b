package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"agromarket/internal/domain"
	"agromarket/internal/services"
)

const productsCacheTTL = 10 * time.Second

type Handler struct {
	auth    *services.AuthService
	catalog *services.CatalogService
	orders  *services.OrderService
	pricing *services.PricingService
	rdb     *redis.Client
	log     *logrus.Entry
}

func NewHandler(
	auth *services.AuthService,
	catalog *services.CatalogService,
	orders *services.OrderService,
	pricing *services.PricingService,
	rdb *redis.Client,
	log *logrus.Entry,
) *Handler {
	return &Handler{
		auth:    auth,
		catalog: catalog,
		orders:  orders,
		pricing: pricing,
		rdb:     rdb,
		log:     log,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := r.Group("/api")
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.GET("/products", h.ListProducts)
	api.GET("/products/stats", h.PriceStats)

	authed := api.Group("", h.RequireUser())
	authed.POST("/products", h.CreateProduct)
	authed.PUT("/products/:id", h.UpdateProduct)
	authed.POST("/orders", h.CreateOrder)
	authed.GET("/orders", h.ListOrders)
	authed.GET("/orders/history", h.OrderHistory)
	authed.GET("/orders/earnings", h.Earnings)
	authed.PUT("/orders/:id/status", h.UpdateOrderStatus)
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
		Phone:    req.Phone,
		Location: req.Location,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, AuthResponse{Token: user.Token, User: *user})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, AuthResponse{Token: user.Token, User: *user})
}

func (h *Handler) ListProducts(c *gin.Context) {
	crop := c.Query("crop")
	maxPriceStr := c.Query("maxPrice")
	shelfLife := c.Query("shelfLife")

	cacheKey := "products:" + crop + ":" + maxPriceStr + ":" + shelfLife
	ctx := c.Request.Context()
	if h.rdb != nil {
		if b, err := h.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			c.Data(http.StatusOK, "application/json", b)
			return
		}
	}

	filters := services.ListingFilters{
		CropNameContains: crop,
		ShelfLifeClass:   domain.ShelfLifeClass(shelfLife),
	}
	if maxPriceStr != "" {
		maxPrice, err := decimal.NewFromString(maxPriceStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid maxPrice"})
			return
		}
		filters.MaxPrice = &maxPrice
	}

	listings, err := h.catalog.ListAvailable(ctx, filters)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := ListProductsResponse{
		Groups: domain.GroupByFarmer(listings),
		Count:  len(listings),
	}
	if h.rdb != nil {
		if data, err := json.Marshal(resp); err == nil {
			h.rdb.Set(ctx, cacheKey, data, productsCacheTTL)
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) PriceStats(c *gin.Context) {
	stats, err := h.pricing.PriceStats(c.Request.Context(), c.Query("crop"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	if priceStr := c.Query("price"); priceStr != "" {
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
			return
		}
		c.JSON(http.StatusOK, MarketAnnotation{Stats: *stats, Signal: domain.Competitiveness(price, stats)})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	harvestDate, err := parseDate(req.HarvestDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid harvestDate"})
		return
	}

	ctx := c.Request.Context()
	listing, err := h.catalog.CreateListing(ctx, currentUser(c), services.CreateListingInput{
		CropName:      req.CropName,
		Variety:       req.Variety,
		Price:         req.Price,
		Quantity:      req.Quantity,
		Unit:          domain.Unit(req.Unit),
		HarvestDate:   harvestDate,
		ShelfLifeDays: req.ShelfLifeDays,
		Location:      req.Location,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.invalidateProductsCache(ctx)
	c.JSON(http.StatusCreated, ListingResponse{Listing: *listing, Market: h.annotate(ctx, listing)})
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	var req UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	listing, err := h.catalog.UpdateListing(ctx, currentUser(c), c.Param("id"), services.UpdateListingInput{
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.invalidateProductsCache(ctx)
	c.JSON(http.StatusOK, ListingResponse{Listing: *listing, Market: h.annotate(ctx, listing)})
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lines := make([]services.CartLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, services.CartLine{ListingID: l.ListingID, Quantity: l.Quantity})
	}

	ctx := c.Request.Context()
	order, err := h.orders.CreateOrder(ctx, currentUser(c), services.CreateOrderInput{
		Lines: lines,
		Delivery: domain.DeliveryInfo{
			Address: req.DeliveryAddress.Address,
			City:    req.DeliveryAddress.City,
			State:   req.DeliveryAddress.State,
			Phone:   req.DeliveryAddress.Phone,
		},
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.invalidateProductsCache(ctx)
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) ListOrders(c *gin.Context) {
	orders, err := h.orders.VisibleOrders(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) OrderHistory(c *gin.Context) {
	orders, err := h.orders.History(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) Earnings(c *gin.Context) {
	user := currentUser(c)
	if user.Role != domain.RoleFarmer {
		c.JSON(http.StatusForbidden, gin.H{"error": "only farmers have earnings"})
		return
	}

	earnings, err := h.orders.EarningsFor(c.Request.Context(), user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, earnings)
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), currentUser(c), c.Param("id"), domain.OrderStatus(req.Status))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// annotate attaches the market competitiveness signal. Best effort: the
// listing response stands on its own if the oracle lookup fails.
func (h *Handler) annotate(ctx context.Context, listing *domain.Listing) *MarketAnnotation {
	stats, err := h.pricing.PriceStats(ctx, listing.CropName)
	if err != nil {
		return nil
	}
	return &MarketAnnotation{Stats: *stats, Signal: domain.Competitiveness(listing.Price, stats)}
}

// invalidateProductsCache drops the unfiltered products listing. Filtered
// variants are not tracked; they age out within productsCacheTTL, which is
// the accepted staleness bound for catalog reads.
func (h *Handler) invalidateProductsCache(ctx context.Context) {
	if h.rdb != nil {
		h.rdb.Del(ctx, "products:::")
	}
}

// respondError maps domain failures to stable HTTP responses. Anything
// unrecognized is a storage-level failure surfaced generically.
func (h *Handler) respondError(c *gin.Context, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
	case errors.Is(err, domain.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, domain.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	case errors.Is(err, domain.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient stock"})
	case errors.Is(err, domain.ErrMixedFarmers):
		c.JSON(http.StatusConflict, gin.H{"error": "you can only order from one farmer at a time"})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid status transition"})
	default:
		h.log.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
