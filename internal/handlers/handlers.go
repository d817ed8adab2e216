package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"inventaire/internal/imaging"
	"inventaire/internal/models"
	"inventaire/internal/services"
	"inventaire/internal/session"
)

type Handler struct {
	auth     services.AuthService
	orders   services.OrderService
	catalogs services.CatalogService
	sessions *session.Store
	secure   bool
}

// RegisterRoutes mounts the whole HTTP surface: public auth endpoints,
// the student-facing /api/user group and the admin-facing /api/admin
// group.
func RegisterRoutes(
	r *gin.Engine,
	auth services.AuthService,
	orders services.OrderService,
	catalogs services.CatalogService,
	sessions *session.Store,
	webOrigin string,
) {
	h := &Handler{
		auth:     auth,
		orders:   orders,
		catalogs: catalogs,
		sessions: sessions,
		secure:   secureCookie(webOrigin),
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/signup", h.signup)
		authGroup.POST("/login", h.login)
		authGroup.POST("/logout", h.logout)
	}

	authMW := AuthRequired(sessions)

	user := r.Group("/api/user", authMW, RequireRole(string(models.RoleUser)))
	{
		user.GET("/institutions", h.listInstitutions)
		user.GET("/catalogs", h.listUserCatalogs)
		user.GET("/items", h.listUserItems)
		user.GET("/orders", h.listUserOrders)
		user.POST("/orders", h.createOrder)
		user.POST("/orders/:id/finalize", h.finalizeOrder)
		user.PUT("/orders/:id/return-date", h.updateReturnDate)
	}

	admin := r.Group("/api/admin", authMW, RequireRole(string(models.RoleAdmin)))
	{
		admin.GET("/institutions", h.listAdminInstitutions)
		admin.POST("/institutions", h.createInstitution)
		admin.PUT("/institutions/:id", h.updateInstitution)
		admin.DELETE("/institutions/:id", h.deleteInstitution)
		admin.GET("/institutions/:id/students", h.listStudents)
		admin.POST("/institutions/:id/students", h.addStudent)
		admin.DELETE("/institutions/:id/students/:userID", h.removeStudent)

		admin.GET("/catalogs", h.listCatalogs)
		admin.POST("/catalogs", h.createCatalog)
		admin.PUT("/catalogs/:id", h.updateCatalog)
		admin.DELETE("/catalogs/:id", h.deleteCatalog)

		admin.GET("/types", h.listItemTypes)
		admin.POST("/types", h.createItemType)

		admin.GET("/items", h.listItems)
		admin.POST("/items", h.createItem)
		admin.PUT("/items/:id", h.updateItem)
		admin.DELETE("/items/:id", h.deleteItem)
		admin.POST("/items/:id/image", h.uploadItemImage)
		admin.GET("/items/:id/image", h.itemImage)
		admin.GET("/items/stat", h.itemStats)

		admin.GET("/orders", h.listCatalogOrders)
		admin.POST("/orders/validate", h.validateOrders)
		admin.GET("/orders/:id/messages", h.listOrderMessages)
		admin.POST("/orders/:id/messages", h.addOrderMessage)

		admin.GET("/users", h.listUsers)
		admin.GET("/users/stat", h.userStats)
		admin.GET("/overview", h.overview)
	}
}

// statusFor maps service sentinel errors to HTTP status codes. Anything
// unrecognized is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrItemNotFound),
		errors.Is(err, services.ErrCatalogNotFound),
		errors.Is(err, services.ErrInstitutionNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrNoImage):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotOrderOwner),
		errors.Is(err, services.ErrNotInstitutionOwner):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrAlreadyFinalized),
		errors.Is(err, services.ErrOrderNotReturned),
		errors.Is(err, services.ErrAlreadyValidated),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrAlreadyMember):
		return http.StatusConflict
	case errors.Is(err, services.ErrEmptyOrder),
		errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrPastReturnDate),
		errors.Is(err, services.ErrEmptyMessage),
		errors.Is(err, services.ErrMessageTooLong),
		errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrInvalidStock),
		errors.Is(err, imaging.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

// ─── Auth ─────────────────────────────────────────────────────────────────────

type signupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.auth.Signup(req.Email, req.Password, models.RoleName(req.Role))
	if err != nil {
		fail(c, err)
		return
	}
	if !h.startSession(c, user.ID, req.Role) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "user_id": user.ID, "role": req.Role})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, role, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	if !h.startSession(c, user.ID, string(role)) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user_id": user.ID, "role": string(role)})
}

func (h *Handler) logout(c *gin.Context) {
	if ck, err := c.Request.Cookie(SessionCookie); err == nil && ck.Value != "" {
		_ = h.sessions.Delete(c.Request.Context(), ck.Value)
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secure,
	})
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) startSession(c *gin.Context, userID, role string) bool {
	id, err := h.sessions.Create(c.Request.Context(), userID, role)
	if err != nil {
		// The account exists; the caller can still log in again.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return false
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secure,
	})
	return true
}
