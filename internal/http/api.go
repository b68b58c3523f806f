package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"grocery-store/internal/auth"
	"grocery-store/internal/backup"
	"grocery-store/internal/catalog"
	"grocery-store/internal/domain"
	"grocery-store/internal/service"
)

// Handler wires HTTP routes to the storefront.
type Handler struct {
	store   service.Storefront
	tokens  *auth.TokenService
	backups backup.Manager
	logger  logrus.FieldLogger
}

func NewHandler(store service.Storefront, tokens *auth.TokenService, backups backup.Manager, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		store:   store,
		tokens:  tokens,
		backups: backups,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.POST("/register", h.register)
		api.POST("/login", h.login)
		api.POST("/guest", h.guest)
		api.GET("/products", h.listProducts)
		api.GET("/products/search", h.searchProducts)
		api.GET("/products/lookup", h.lookupProduct)
		api.GET("/products/export", h.exportProducts)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}

	authed := api.Group("")
	authed.Use(h.authMiddleware())
	{
		authed.POST("/logout", h.logout)
		authed.GET("/cart", h.getCart)
		authed.POST("/cart/items", h.addItem)
		authed.POST("/cart/items/reduce", h.reduceItem)
		authed.DELETE("/cart/items", h.removeItem)
		authed.POST("/checkout", h.checkout)
		authed.POST("/buy", h.buyNow)
		authed.GET("/orders", h.listOrders)
		authed.GET("/backups", h.listBackups)
		authed.POST("/backups", h.runBackup)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// itemRequest names a product the way the lookup engine expects it.
type itemRequest struct {
	By       string `json:"by" binding:"required"`
	Value    string `json:"value" binding:"required"`
	Choice   int    `json:"choice"`
	Quantity int    `json:"quantity"`
}

func (r itemRequest) reference() (catalog.Reference, error) {
	field, err := catalog.ParseField(r.By)
	if err != nil {
		return catalog.Reference{}, err
	}
	return catalog.Reference{By: field, Value: r.Value, Choice: r.Choice}, nil
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.store.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeSession(c, http.StatusCreated, sess)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.store.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeSession(c, http.StatusOK, sess)
}

func (h *Handler) guest(c *gin.Context) {
	h.writeSession(c, http.StatusCreated, h.store.StartGuest())
}

func (h *Handler) logout(c *gin.Context) {
	h.store.EndSession(sessionFrom(c).ID)
	c.Status(http.StatusNoContent)
}

func (h *Handler) writeSession(c *gin.Context, status int, sess service.Session) {
	token, err := h.tokens.Issue(sess.ID, sess.Email, sess.Guest)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(status, SessionResponse{
		Token: token,
		Name:  sess.Name,
		Email: sess.Email,
		Guest: sess.Guest,
	})
}

func (h *Handler) listProducts(c *gin.Context) {
	c.JSON(http.StatusOK, productsToResponse(h.store.Products()))
}

func (h *Handler) searchProducts(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}
	c.JSON(http.StatusOK, productsToResponse(h.store.Search(q)))
}

func (h *Handler) lookupProduct(c *gin.Context) {
	req := itemRequest{By: c.Query("by"), Value: c.Query("value")}
	if raw := c.Query("choice"); raw != "" {
		choice, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid choice"})
			return
		}
		req.Choice = choice
	}

	ref, err := req.reference()
	if err != nil {
		h.writeError(c, err)
		return
	}
	product, err := h.store.Resolve(ref)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, productToResponse(product))
}

func (h *Handler) getCart(c *gin.Context) {
	view, err := h.store.Cart(sessionFrom(c).ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartToResponse(view))
}

func (h *Handler) addItem(c *gin.Context) {
	h.mutateCart(c, func(id string, ref catalog.Reference, qty int) (domain.Product, error) {
		return h.store.AddToCart(id, ref, qty)
	})
}

func (h *Handler) reduceItem(c *gin.Context) {
	h.mutateCart(c, func(id string, ref catalog.Reference, qty int) (domain.Product, error) {
		return h.store.ReduceInCart(id, ref, qty)
	})
}

func (h *Handler) removeItem(c *gin.Context) {
	h.mutateCart(c, func(id string, ref catalog.Reference, _ int) (domain.Product, error) {
		return h.store.RemoveFromCart(id, ref)
	})
}

func (h *Handler) mutateCart(c *gin.Context, fn func(string, catalog.Reference, int) (domain.Product, error)) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ref, err := req.reference()
	if err != nil {
		h.writeError(c, err)
		return
	}

	id := sessionFrom(c).ID
	if _, err := fn(id, ref, req.Quantity); err != nil {
		h.writeError(c, err)
		return
	}
	view, err := h.store.Cart(id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartToResponse(view))
}

func (h *Handler) checkout(c *gin.Context) {
	order, err := h.store.Checkout(c.Request.Context(), sessionFrom(c).ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderToResponse(*order))
}

func (h *Handler) buyNow(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ref, err := req.reference()
	if err != nil {
		h.writeError(c, err)
		return
	}

	order, err := h.store.BuyNow(c.Request.Context(), sessionFrom(c).ID, ref, req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderToResponse(*order))
}

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.store.Orders(c.Request.Context(), sessionFrom(c).ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]OrderResponse, len(orders))
	for i := range orders {
		resp[i] = orderToResponse(orders[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listBackups(c *gin.Context) {
	if h.backups == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backup storage not configured"})
		return
	}
	if sessionFrom(c).Guest {
		h.writeError(c, service.ErrLoginRequired)
		return
	}

	objects, err := h.backups.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]StorageObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) runBackup(c *gin.Context) {
	if h.backups == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backup storage not configured"})
		return
	}
	if sessionFrom(c).Guest {
		h.writeError(c, service.ErrLoginRequired)
		return
	}

	location, err := h.backups.Run(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"location": location})
}

// writeError maps storefront errors onto HTTP statuses.
func (h *Handler) writeError(c *gin.Context, err error) {
	var ambiguous *catalog.AmbiguousError
	switch {
	case errors.As(err, &ambiguous):
		c.JSON(http.StatusConflict, gin.H{
			"error":   err.Error(),
			"matches": productPtrsToResponse(ambiguous.Matches),
		})
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, catalog.ErrNoMatches):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, catalog.ErrInvalidReference),
		errors.Is(err, catalog.ErrInvalidChoice),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrGuestCheckout), errors.Is(err, service.ErrLoginRequired):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
