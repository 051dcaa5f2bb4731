package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/platform/metrics"
)

type InventoryService interface {
	CreateStore(ctx context.Context, name, description string) (domain.Store, error)
	GetStoreDetails(ctx context.Context, id int64) (domain.StoreDetails, error)
	UpdateStore(ctx context.Context, id int64, patch domain.StorePatch) (domain.Store, error)
	CreateItem(ctx context.Context, in service.CreateItemInput) (domain.Item, error)
	GetItem(ctx context.Context, id int64) (domain.Item, error)
	ListItems(ctx context.Context, query domain.ItemQuery) (domain.ItemPage, error)
	UpdateItem(ctx context.Context, id int64, patch domain.ItemPatch) (domain.Item, error)
}

type ConsumptionService interface {
	Consume(ctx context.Context, itemID, userID int64) (domain.Item, domain.ConsumptionReceipt, error)
}

type AnalyticsService interface {
	CachedEvents(ctx context.Context) ([]domain.ConsumptionEvent, error)
	CachedAnalytics(ctx context.Context) (domain.AnalyticsSnapshot, error)
	RefreshCache(ctx context.Context) ([]domain.ConsumptionEvent, error)
	RefreshAnalytics(ctx context.Context) (domain.AnalyticsSnapshot, error)
}

type EventRecorder interface {
	Record(ctx context.Context, event domain.ConsumptionEvent) error
}

type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (domain.User, error)
	Login(ctx context.Context, username, password string) (string, domain.User, error)
	Authenticate(ctx context.Context, token string) (domain.Principal, error)
	Logout(ctx context.Context, principal domain.Principal) error
	CurrentUser(ctx context.Context, principal domain.Principal) (domain.User, error)
}

type Services struct {
	Inventory   InventoryService
	Consumption ConsumptionService
	Analytics   AnalyticsService
	Events      EventRecorder
	Auth        AuthService
}

type HTTPHandler struct {
	svc              Services
	taskToken        string
	adminSignupToken string
	logger           *zap.Logger
}

func NewHTTPHandler(svc Services, taskToken, adminSignupToken string, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:              svc,
		taskToken:        taskToken,
		adminSignupToken: adminSignupToken,
		logger:           logger,
	}
}

// NewRouter builds the gin engine with tracing, metrics and every route.
func NewRouter(h *HTTPHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware(config.ServiceName), metrics.Instrument())
	h.RegisterRoutes(r)
	return r
}

func (h *HTTPHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)

	auth := r.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/logout", h.requireUser, h.Logout)
	auth.GET("/user", h.requireUser, h.CurrentUser)

	r.POST("/stores", h.requireUser, h.requireAdmin, h.CreateStore)
	r.GET("/stores/:id", h.GetStore)
	r.PUT("/stores/:id", h.requireUser, h.UpdateStore)
	r.PATCH("/stores/:id", h.requireUser, h.UpdateStore)

	r.POST("/items", h.requireUser, h.requireAdmin, h.CreateItem)
	r.GET("/items", h.ListItems)
	r.GET("/items/:id", h.GetItem)
	r.POST("/items/:id/buy", h.requireUser, h.BuyItem)
	r.PUT("/items/:id", h.requireUser, h.UpdateItem)
	r.PATCH("/items/:id", h.requireUser, h.UpdateItem)

	r.GET("/events", h.GetEvents)
	r.GET("/analytics", h.GetAnalytics)

	tasks := r.Group("/tasks", h.requireTaskIdentity)
	tasks.POST("/log_item_consumed", h.LogItemConsumed)
	tasks.GET("/update_cache", h.UpdateCache)
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

var errorStatus = []struct {
	err     error
	status  int
	message string
}{
	{domain.ErrStoreNotFound, http.StatusNotFound, "Store not found"},
	{domain.ErrItemNotFound, http.StatusNotFound, "Item not found"},
	{domain.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{domain.ErrItemSoldOut, http.StatusBadRequest, "Item sold out"},
	{domain.ErrInvalidItemPrice, http.StatusBadRequest, "Item price must be greater than zero with at most two decimal places"},
	{domain.ErrInvalidItemQuantity, http.StatusBadRequest, "Item quantity must not be negative"},
	{domain.ErrInvalidCursor, http.StatusBadRequest, "Invalid cursor"},
	{domain.ErrUserAlreadyExists, http.StatusBadRequest, "User already exists"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	{domain.ErrForbidden, http.StatusForbidden, "Forbidden"},
}

// writeError translates domain errors to client responses. Anything unknown is
// logged and reported as a generic failure.
func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeMessage(c, http.StatusBadRequest, verr.Message)
		return
	}

	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			writeMessage(c, e.status, e.message)
			return
		}
	}

	h.logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	writeMessage(c, http.StatusInternalServerError, "internal error")
}

func writeMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
