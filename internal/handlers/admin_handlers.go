package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inventaire/internal/services"
)

// ─── Institutions ─────────────────────────────────────────────────────────────

type institutionRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Acronym     string `json:"acronym"`
}

func (h *Handler) listAdminInstitutions(c *gin.Context) {
	institutions, err := h.catalogs.ListAdminInstitutions(c.GetString("userID"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, institutions)
}

func (h *Handler) createInstitution(c *gin.Context) {
	var req institutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	institution, err := h.catalogs.CreateInstitution(c.GetString("userID"), req.Name, req.Description, req.Acronym)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, institution)
}

func (h *Handler) updateInstitution(c *gin.Context) {
	var req institutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.catalogs.UpdateInstitution(c.Param("id"), c.GetString("userID"), req.Name, req.Description, req.Acronym); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) deleteInstitution(c *gin.Context) {
	if err := h.catalogs.DeleteInstitution(c.Param("id"), c.GetString("userID")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ─── Rosters ──────────────────────────────────────────────────────────────────

func (h *Handler) listStudents(c *gin.Context) {
	students, err := h.catalogs.ListStudents(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

type addStudentRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h *Handler) addStudent(c *gin.Context) {
	var req addStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	profile, err := h.catalogs.AddStudent(c.Param("id"), c.GetString("userID"), req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

func (h *Handler) removeStudent(c *gin.Context) {
	if err := h.catalogs.RemoveStudent(c.Param("id"), c.GetString("userID"), c.Param("userID")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ─── Catalogs ─────────────────────────────────────────────────────────────────

type catalogRequest struct {
	InstitutionID string `json:"institution_id"`
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	Acronym       string `json:"acronym"`
}

func (h *Handler) listCatalogs(c *gin.Context) {
	institutionID := c.Query("institution")
	if institutionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "institution query parameter is required"})
		return
	}
	catalogs, err := h.catalogs.ListCatalogs(institutionID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, catalogs)
}

func (h *Handler) createCatalog(c *gin.Context) {
	var req catalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.InstitutionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "institution_id is required"})
		return
	}
	catalog, err := h.catalogs.CreateCatalog(c.GetString("userID"), req.InstitutionID, req.Name, req.Description, req.Acronym)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, catalog)
}

func (h *Handler) updateCatalog(c *gin.Context) {
	var req catalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.catalogs.UpdateCatalog(c.Param("id"), c.GetString("userID"), req.Name, req.Description, req.Acronym); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) deleteCatalog(c *gin.Context) {
	if err := h.catalogs.DeleteCatalog(c.Param("id"), c.GetString("userID")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ─── Item Types ───────────────────────────────────────────────────────────────

type itemTypeRequest struct {
	CatalogID string `json:"catalog_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
}

func (h *Handler) listItemTypes(c *gin.Context) {
	catalogID := c.Query("catalog")
	if catalogID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "catalog query parameter is required"})
		return
	}
	types, err := h.catalogs.ListItemTypes(catalogID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, types)
}

func (h *Handler) createItemType(c *gin.Context) {
	var req itemTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	itemType, err := h.catalogs.CreateItemType(req.CatalogID, req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, itemType)
}

// ─── Items ────────────────────────────────────────────────────────────────────

type itemRequest struct {
	CatalogID    string  `json:"catalog_id"`
	Name         string  `json:"name" binding:"required"`
	Description  string  `json:"description"`
	SerialNumber string  `json:"serial_number"`
	ItemTypeID   *string `json:"item_type_id"`
	Quantity     int     `json:"quantity"`
}

func (h *Handler) listItems(c *gin.Context) {
	catalogID := c.Query("catalog")
	if catalogID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "catalog query parameter is required"})
		return
	}
	items, err := h.catalogs.ListItems(catalogID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) createItem(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.CatalogID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "catalog_id is required"})
		return
	}
	item, err := h.catalogs.CreateItem(req.CatalogID, itemParams(req))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) updateItem(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.catalogs.UpdateItem(c.Param("id"), itemParams(req)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) deleteItem(c *gin.Context) {
	if err := h.catalogs.DeleteItem(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// uploadItemImage accepts a multipart "image" file, re-encodes it and
// stores it on the item row.
func (h *Handler) uploadItemImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read image file"})
		return
	}
	defer src.Close()
	if err := h.catalogs.SetItemImage(c.Param("id"), src); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) itemImage(c *gin.Context) {
	data, mime, err := h.catalogs.ItemImage(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, mime, data)
}

func (h *Handler) itemStats(c *gin.Context) {
	itemID := c.Query("item")
	if itemID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item query parameter is required"})
		return
	}
	stats, err := h.orders.ItemStats(itemID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ─── Orders ───────────────────────────────────────────────────────────────────

func (h *Handler) listCatalogOrders(c *gin.Context) {
	catalogID := c.Query("catalog")
	if catalogID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "catalog query parameter is required"})
		return
	}
	orders, err := h.orders.ListCatalogOrders(catalogID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

type validateOrdersRequest struct {
	OrderIDs []string `json:"order_ids" binding:"required"`
}

// validateOrders validates a batch of returned orders. Partial failure
// is reported per order, not as an overall error.
func (h *Handler) validateOrders(c *gin.Context) {
	var req validateOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result := h.orders.ValidateOrders(req.OrderIDs)
	c.JSON(http.StatusOK, result)
}

func (h *Handler) listOrderMessages(c *gin.Context) {
	messages, err := h.orders.ListOrderMessages(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

type orderMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *Handler) addOrderMessage(c *gin.Context) {
	var req orderMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	message, err := h.orders.AddOrderMessage(c.Param("id"), req.Message)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

// ─── Users & Dashboards ───────────────────────────────────────────────────────

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.catalogs.ListUsers()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) userStats(c *gin.Context) {
	userID := c.Query("user")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user query parameter is required"})
		return
	}
	stats, err := h.orders.UserOrderStats(userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) overview(c *gin.Context) {
	institutionID := c.Query("institution")
	catalogID := c.Query("catalog")
	if institutionID == "" || catalogID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "institution and catalog query parameters are required"})
		return
	}
	overview, err := h.catalogs.Overview(institutionID, catalogID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func itemParams(req itemRequest) services.ItemParams {
	return services.ItemParams{
		Name:         req.Name,
		Description:  req.Description,
		SerialNumber: req.SerialNumber,
		ItemTypeID:   req.ItemTypeID,
		Quantity:     req.Quantity,
	}
}
