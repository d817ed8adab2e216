package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventaire/internal/models"
)

func TestCreateOrderReservesStock(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(t, db)
	_, _, catalogID := seedCatalog(t, db)
	userID := seedUser(t, db, "student@example.com")
	itemID := seedItem(t, db, catalogID, "Oscilloscope", 5)

	order, err := svc.CreateOrder(catalogID, userID, []OrderLine{{ItemID: itemID, Quantity: 3}}, tomorrow())
	require.NoError(t, err)

	assert.Equal(t, 2, itemStock(t, db, itemID))
	assert.False(t, order.Status)
	assert.Nil(t, order.Validation)
	require.NotNil(t, order.EndDate)

	var lines []models.OrderItem
	require.NoError(t, db.Find(&lines, "order_id = ?", order.ID).Error)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(t, db)
	_, _, catalogID := seedCatalog(t, db)
	userID := seedUser(t, db, "student@example.com")
	itemID := seedItem(t, db, catalogID, "Oscilloscope", 5)

	_, err := svc.CreateOrder(catalogID, userID, []OrderLine{{ItemID: itemID, Quantity: 3}}, tomorrow())
	require.NoError(t, err)

	_, err = svc.CreateOrder(catalogID, userID, []OrderLine{{ItemID: itemID, Quantity: 3}}, tomorrow())
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Oscilloscope")

	// The failed order left nothing behind.
	assert.Equal(t, 2, itemStock(t, db, itemID))
	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateOrderValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(t, db)
	_, _, catalogID := seedCatalog(t, db)
	userID := seedUser(t, db, "student@example.com")
	itemID := seedItem(t, db, catalogID, "Multimeter", 2)

	_, err := svc.CreateOrder(catalogID, userID, nil, tomorrow())
	assert.ErrorIs(t, err, ErrEmptyOrder)

	_, err = svc.CreateOrder(catalogID, userID, []OrderLine{{ItemID: itemID, Quantity: 0}}, tomorrow())
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	yesterday := time.Now().AddDate(0, 0, -1)
	_, err = svc.CreateOrder(catalogID, userID, []OrderLine{{ItemID: itemID, Quantity: 1}}, yesterday)
	assert.ErrorIs(t, err, ErrPastReturnDate)

	// None of the rejected orders touched stock.
	assert.Equal(t, 2, itemStock(t, db, itemID))
}

func TestCreateOrderUnknownItemRollsBack(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(t, db)
	_, _, catalogID := seedCatalog(t, db)
	userID := seedUser(t, db, "student@example.com")
	itemID := seedItem(t, db, catalogID, "Multimeter", 4)

	lines := []OrderLine{
		{ItemID: itemID, Quantity: 2},
		{ItemID: models.NewID(), Quantity: 1},
	}
	_, err := svc.CreateOrder(catalogID, userID, lines, tomorrow())
	require.ErrorIs(t, err, ErrItemNotFound)

	// The first line's decrement was rolled back with the rest.
	assert.Equal(t, 4, itemStock(t, db, itemID))
	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestCreateOrderUnknownCatalog(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(t, db)
	userID := seedUser(t, db, "student@example.com")

	_, err := svc.CreateOrder(models.NewID(), userID, []OrderLine{{ItemID: models.NewID(), Quantity: 1}}, tomorrow())
	assert.ErrorIs(t, err, ErrCatalogNotFound)
}

func TestFinalizeOrderDoesNotRestock(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(t, db)
	_, _, catalogID := seedCatalog(t, db)
	userID := seedUser(t, db, "student@example.com")
	itemID := seedItem(t, db, catalogID, "Oscilloscope", 5)

	order, err := svc.CreateOrder(catalogID, userID, []OrderLine{{ItemID: itemID, Quantity: 3}}, tomorrow())
	require.NoError(t, err)

	finalized, err := svc.FinalizeOrder(order.ID, userID)
	require.NoError(t, err)
	assert.True(t, finalized.Status)

	// Items stay out of the pool until an admin validates.
	assert.Equal(t, 2, itemStock(t, db, itemID))

	var profile models.Profile
	require.NoError(t, db.First(&profile, "id = ?", userID).Error)
	assert.Equal(t, 0, profile.Delays)
}

func TestFinalizeOrderGuards(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(t, db)
	_, _, catalogID := seedCatalog(t, db)
	userID := seedUser(t, db, "student@example.com")
	otherID := seedUser(t, db, "other@example.com")
	itemID := seedItem(t, db, catalogID, "Multimeter", 2)

	order, err := svc.CreateOrder(catalogID, userID, []OrderLine{{ItemID: itemID, Quantity: 1}}, tomorrow())
	require.NoError(t, err)

	_, err = svc.FinalizeOrder(order.ID, otherID)
	assert.ErrorIs(t, err, ErrNotOrderOwner)

	_, err = svc.FinalizeOrder(models.NewID(), userID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = svc.FinalizeOrder(order.ID, userID)
	require.NoError(t, err)
	_, err = svc.FinalizeOrder(order.ID, userID)
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
}

func TestFinalizeLateIncrementsDelays(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(t, db)
	_, _, catalogID := seedCatalog(t, db)
	userID := seedUser(t, db, "student@example.com")
	itemID := seedItem(t, db, catalogID, "Multimeter", 2)

	order, err := svc.CreateOrder(catalogID, userID, []OrderLine{{ItemID: itemID, Quantity: 1}}, tomorrow())
	require.NoError(t, err)

	// Backdate the return date so the finalize happens after it.
	yesterday := time.Now().AddDate(0, 0, -1)
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", order.ID).Update("end_date", yesterday).Error)

	_, err = svc.FinalizeOrder(order.ID, userID)
	require.NoError(t, err)

	var profile models.Profile
	require.NoError(t, db.First(&profile, "id = ?", userID).Error)
	assert.Equal(t, 1, profile.Delays)
}

func TestUpdateReturnDate(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(t, db)
	_, _, catalogID := seedCatalog(t, db)
	userID := seedUser(t, db, "student@example.com")
	otherID := seedUser(t, db, "other@example.com")
	itemID := seedItem(t, db, catalogID, "Multimeter", 2)

	order, err := svc.CreateOrder(catalogID, userID, []OrderLine{{ItemID: itemID, Quantity: 1}}, tomorrow())
	require.NoError(t, err)

	nextWeek := time.Now().AddDate(0, 0, 7)
	require.NoError(t, svc.UpdateReturnDate(order.ID, userID, nextWeek))

	var updated models.Order
	require.NoError(t, db.First(&updated, "id = ?", order.ID).Error)
	require.NotNil(t, updated.EndDate)
	assert.True(t, updated.EndDate.Equal(dayOf(nextWeek)))

	assert.ErrorIs(t, svc.UpdateReturnDate(order.ID, userID, time.Now().AddDate(0, 0, -1)), ErrPastReturnDate)
	assert.ErrorIs(t, svc.UpdateReturnDate(order.ID, otherID, nextWeek), ErrNotOrderOwner)
	assert.ErrorIs(t, svc.UpdateReturnDate(models.NewID(), userID, nextWeek), ErrOrderNotFound)

	_, err = svc.FinalizeOrder(order.ID, userID)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.UpdateReturnDate(order.ID, userID, nextWeek), ErrAlreadyFinalized)
}

func TestValidateOrderReturnRestocks(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(t, db)
	_, _, catalogID := seedCatalog(t, db)
	userID := seedUser(t, db, "student@example.com")
	itemID := seedItem(t, db, catalogID, "Oscilloscope", 5)

	order, err := svc.CreateOrder(catalogID, userID, []OrderLine{{ItemID: itemID, Quantity: 3}}, tomorrow())
	require.NoError(t, err)
	_, err = svc.FinalizeOrder(order.ID, userID)
	require.NoError(t, err)

	require.NoError(t, svc.ValidateOrderReturn(order.ID))
	assert.Equal(t, 5, itemStock(t, db, itemID))

	var validated models.Order
	require.NoError(t, db.First(&validated, "id = ?", order.ID).Error)
	require.NotNil(t, validated.Validation)
	assert.True(t, *validated.Validation)

	// A second validation must not restock again.
	assert.ErrorIs(t, svc.ValidateOrderReturn(order.ID), ErrAlreadyValidated)
	assert.Equal(t, 5, itemStock(t, db, itemID))
}

func TestValidateOrderGuards(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(t, db)
	_, _, catalogID := seedCatalog(t, db)
	userID := seedUser(t, db, "student@example.com")
	itemID := seedItem(t, db, catalogID, "Multimeter", 2)

	order, err := svc.CreateOrder(catalogID, userID, []OrderLine{{ItemID: itemID, Quantity: 1}}, tomorrow())
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ValidateOrderReturn(order.ID), ErrOrderNotReturned)
	assert.ErrorIs(t, svc.ValidateOrderReturn(models.NewID()), ErrOrderNotFound)
	assert.Equal(t, 1, itemStock(t, db, itemID))
}

func TestValidateOrdersBulk(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(t, db)
	_, _, catalogID := seedCatalog(t, db)
	userID := seedUser(t, db, "student@example.com")
	itemID := seedItem(t, db, catalogID, "Oscilloscope", 6)

	returned, err := svc.CreateOrder(catalogID, userID, []OrderLine{{ItemID: itemID, Quantity: 2}}, tomorrow())
	require.NoError(t, err)
	_, err = svc.FinalizeOrder(returned.ID, userID)
	require.NoError(t, err)

	pending, err := svc.CreateOrder(catalogID, userID, []OrderLine{{ItemID: itemID, Quantity: 1}}, tomorrow())
	require.NoError(t, err)

	unknown := models.NewID()
	result := svc.ValidateOrders([]string{returned.ID, pending.ID, unknown})

	assert.Equal(t, 1, result.Validated)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, "ok", result.Results[returned.ID])
	assert.Equal(t, ErrOrderNotReturned.Error(), result.Results[pending.ID])
	assert.Equal(t, ErrOrderNotFound.Error(), result.Results[unknown])

	// Only the returned order's stock came back.
	assert.Equal(t, 5, itemStock(t, db, itemID))
}

func TestOrderMessages(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(t, db)
	_, _, catalogID := seedCatalog(t, db)
	userID := seedUser(t, db, "student@example.com")
	itemID := seedItem(t, db, catalogID, "Multimeter", 2)

	order, err := svc.CreateOrder(catalogID, userID, []OrderLine{{ItemID: itemID, Quantity: 1}}, tomorrow())
	require.NoError(t, err)

	_, err = svc.AddOrderMessage(order.ID, "")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = svc.AddOrderMessage(order.ID, strings.Repeat("x", MaxMessageLength+1))
	assert.ErrorIs(t, err, ErrMessageTooLong)

	_, err = svc.AddOrderMessage(models.NewID(), "hello")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	// Exactly the cap is allowed.
	_, err = svc.AddOrderMessage(order.ID, strings.Repeat("x", MaxMessageLength))
	require.NoError(t, err)

	first, err := svc.AddOrderMessage(order.ID, "please return the probes too")
	require.NoError(t, err)

	messages, err := svc.ListOrderMessages(order.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	// Newest first.
	assert.Equal(t, first.ID, messages[0].ID)
}

func TestListUserOrders(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(t, db)
	_, _, catalogID := seedCatalog(t, db)
	userID := seedUser(t, db, "student@example.com")
	itemID := seedItem(t, db, catalogID, "Oscilloscope", 5)

	_, err := svc.CreateOrder(catalogID, userID, []OrderLine{{ItemID: itemID, Quantity: 2}}, tomorrow())
	require.NoError(t, err)

	orders, err := svc.ListUserOrders(userID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "Physics Lab", orders[0].CatalogName)
	assert.Equal(t, "PHY", orders[0].CatalogAcronym)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, "Oscilloscope", orders[0].Items[0].Name)
	assert.Equal(t, 2, orders[0].Items[0].Quantity)
}

func TestListCatalogOrders(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(t, db)
	_, _, catalogID := seedCatalog(t, db)
	userID := seedUser(t, db, "student@example.com")
	itemA := seedItem(t, db, catalogID, "Oscilloscope", 5)
	itemB := seedItem(t, db, catalogID, "Multimeter", 5)

	lines := []OrderLine{{ItemID: itemA, Quantity: 1}, {ItemID: itemB, Quantity: 2}}
	_, err := svc.CreateOrder(catalogID, userID, lines, tomorrow())
	require.NoError(t, err)

	orders, err := svc.ListCatalogOrders(catalogID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 2, orders[0].NItems)
	assert.Equal(t, "student@example.com", orders[0].UserEmail)

	_, err = svc.ListCatalogOrders(models.NewID())
	assert.ErrorIs(t, err, ErrCatalogNotFound)
}

func TestUserOrderStats(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(t, db)
	_, _, catalogID := seedCatalog(t, db)
	userID := seedUser(t, db, "student@example.com")
	itemID := seedItem(t, db, catalogID, "Oscilloscope", 10)

	first, err := svc.CreateOrder(catalogID, userID, []OrderLine{{ItemID: itemID, Quantity: 1}}, tomorrow())
	require.NoError(t, err)
	_, err = svc.CreateOrder(catalogID, userID, []OrderLine{{ItemID: itemID, Quantity: 1}}, tomorrow())
	require.NoError(t, err)
	_, err = svc.FinalizeOrder(first.ID, userID)
	require.NoError(t, err)

	stats, err := svc.UserOrderStats(userID)
	require.NoError(t, err)
	assert.Equal(t, "student@example.com", stats.Email)
	assert.EqualValues(t, 2, stats.TotalOrders)
	assert.EqualValues(t, 1, stats.OngoingOrders)
	assert.EqualValues(t, 1, stats.ReturnedOrders)

	_, err = svc.UserOrderStats(models.NewID())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestItemStats(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(t, db)
	_, _, catalogID := seedCatalog(t, db)
	userID := seedUser(t, db, "student@example.com")
	itemID := seedItem(t, db, catalogID, "Oscilloscope", 10)

	_, err := svc.CreateOrder(catalogID, userID, []OrderLine{{ItemID: itemID, Quantity: 3}}, tomorrow())
	require.NoError(t, err)

	done, err := svc.CreateOrder(catalogID, userID, []OrderLine{{ItemID: itemID, Quantity: 2}}, tomorrow())
	require.NoError(t, err)
	_, err = svc.FinalizeOrder(done.ID, userID)
	require.NoError(t, err)
	require.NoError(t, svc.ValidateOrderReturn(done.ID))

	stats, err := svc.ItemStats(itemID)
	require.NoError(t, err)
	assert.Equal(t, "Oscilloscope", stats.Name)
	assert.Equal(t, 10, stats.DefaultQuantity)
	assert.Equal(t, 7, stats.ActualQuantity)
	// Only the unvalidated order still holds stock.
	assert.Equal(t, 3, stats.Reserved)

	_, err = svc.ItemStats(models.NewID())
	assert.ErrorIs(t, err, ErrItemNotFound)
}
