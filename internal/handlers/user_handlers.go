package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"inventaire/internal/services"
)

// dateLayout is the wire format for return dates.
const dateLayout = "2006-01-02"

// ─── Browsing ─────────────────────────────────────────────────────────────────

func (h *Handler) listInstitutions(c *gin.Context) {
	institutions, err := h.catalogs.ListInstitutions()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, institutions)
}

// listUserCatalogs returns the catalogs of every institution the student
// has been enrolled in.
func (h *Handler) listUserCatalogs(c *gin.Context) {
	catalogs, err := h.catalogs.ListUserCatalogs(c.GetString("userID"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, catalogs)
}

func (h *Handler) listUserItems(c *gin.Context) {
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

// ─── Orders ───────────────────────────────────────────────────────────────────

func (h *Handler) listUserOrders(c *gin.Context) {
	orders, err := h.orders.ListUserOrders(c.GetString("userID"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

type createOrderRequest struct {
	CatalogID  string               `json:"catalog_id" binding:"required"`
	ReturnDate string               `json:"return_date" binding:"required"`
	Items      []services.OrderLine `json:"items"`
}

func (h *Handler) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	returnDate, err := time.Parse(dateLayout, req.ReturnDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "return_date must be YYYY-MM-DD"})
		return
	}
	order, err := h.orders.CreateOrder(req.CatalogID, c.GetString("userID"), req.Items, returnDate)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "order_id": order.ID})
}

// finalizeOrder marks the order as returned by its owner. Stock stays
// reserved until an admin validates the return.
func (h *Handler) finalizeOrder(c *gin.Context) {
	order, err := h.orders.FinalizeOrder(c.Param("id"), c.GetString("userID"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order_id": order.ID, "status": order.Status})
}

type updateReturnDateRequest struct {
	ReturnDate string `json:"return_date" binding:"required"`
}

func (h *Handler) updateReturnDate(c *gin.Context) {
	var req updateReturnDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	returnDate, err := time.Parse(dateLayout, req.ReturnDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "return_date must be YYYY-MM-DD"})
		return
	}
	if err := h.orders.UpdateReturnDate(c.Param("id"), c.GetString("userID"), returnDate); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
