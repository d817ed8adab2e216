package services

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"inventaire/internal/models"
	"inventaire/internal/repositories"
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrEmptyOrder is returned when an order is placed with no lines.
	ErrEmptyOrder = errors.New("order has no items")

	// ErrInvalidQuantity is returned when a line requests less than one unit.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrPastReturnDate is returned when the requested return date is before
	// today. Checked before any write.
	ErrPastReturnDate = errors.New("return date cannot be earlier than today")

	// ErrInsufficientStock is returned when an item cannot cover the
	// requested quantity. The whole order is rolled back.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrItemNotFound is returned when a referenced item does not exist in
	// the catalog.
	ErrItemNotFound = errors.New("item not found")

	// ErrCatalogNotFound is returned when the referenced catalog is absent.
	ErrCatalogNotFound = errors.New("catalog not found")

	// ErrOrderNotFound is returned when the referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrNotOrderOwner is returned when a student operates on someone
	// else's order.
	ErrNotOrderOwner = errors.New("order does not belong to user")

	// ErrAlreadyFinalized is returned when a return is attempted on an
	// order the student has already finalized.
	ErrAlreadyFinalized = errors.New("order already finalized")

	// ErrOrderNotReturned is returned when an admin validates an order the
	// student has not finalized yet.
	ErrOrderNotReturned = errors.New("order not returned by student yet")

	// ErrAlreadyValidated is returned when an order return is validated
	// twice. Stock is never double-incremented.
	ErrAlreadyValidated = errors.New("order already validated")

	// ErrEmptyMessage / ErrMessageTooLong guard order messages (1–80 chars).
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message exceeds 80 characters")
)

// MaxMessageLength caps admin order messages.
const MaxMessageLength = 80

// ─── Service Interface ────────────────────────────────────────────────────────

// OrderLine is one requested item of a new order.
type OrderLine struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// UserOrderLine is an order line as shown to its owner.
type UserOrderLine struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
}

// UserOrder is an order enriched with catalog info and lines for the
// owner's listing.
type UserOrder struct {
	ID             string          `json:"id"`
	Status         bool            `json:"status"`
	Validation     *bool           `json:"validation"`
	CreatedAt      time.Time       `json:"created_at"`
	EndDate        *time.Time      `json:"end_date"`
	CatalogName    string          `json:"catalog_name"`
	CatalogAcronym string          `json:"catalog_acronym"`
	Items          []UserOrderLine `json:"order_items"`
}

// CatalogOrder is an order enriched for the admin listing: line detail,
// line count and the ordering user's email.
type CatalogOrder struct {
	ID           string          `json:"id"`
	Status       bool            `json:"status"`
	Validation   *bool           `json:"validation"`
	CreationDate time.Time       `json:"creation_date"`
	EndDate      *time.Time      `json:"end_date"`
	NItems       int             `json:"n_items"`
	UserEmail    string          `json:"user_email"`
	Items        []UserOrderLine `json:"items"`
}

// BulkValidationResult reports the outcome of validating a set of orders.
// Partial failure is expected: some orders end up validated, others not.
type BulkValidationResult struct {
	Validated int               `json:"validated"`
	Failed    int               `json:"failed"`
	Results   map[string]string `json:"results"`
}

// UserOrderStats summarises a user's loan history for the admin view.
type UserOrderStats struct {
	Email          string `json:"email"`
	Delays         int    `json:"delays"`
	TotalOrders    int64  `json:"total_orders"`
	OngoingOrders  int64  `json:"ongoing_orders"`
	ReturnedOrders int64  `json:"returned_orders"`
}

// ItemStats summarises one item's stock situation.
type ItemStats struct {
	Name            string `json:"name"`
	DefaultQuantity int    `json:"default_quantity"`
	ActualQuantity  int    `json:"actual_quantity"`
	Reserved        int    `json:"reserved"`
}

// OrderService owns the order lifecycle: stock reservation at creation,
// student finalization, admin validation (the only path that restocks),
// and the order-message log.
type OrderService interface {
	CreateOrder(catalogID, userID string, lines []OrderLine, returnDate time.Time) (*models.Order, error)
	FinalizeOrder(orderID, userID string) (*models.Order, error)
	UpdateReturnDate(orderID, userID string, returnDate time.Time) error
	ValidateOrderReturn(orderID string) error
	ValidateOrders(orderIDs []string) BulkValidationResult

	AddOrderMessage(orderID, message string) (*models.OrderMessage, error)
	ListOrderMessages(orderID string) ([]models.OrderMessage, error)

	ListUserOrders(userID string) ([]UserOrder, error)
	ListCatalogOrders(catalogID string) ([]CatalogOrder, error)
	UserOrderStats(userID string) (*UserOrderStats, error)
	ItemStats(itemID string) (*ItemStats, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type orderService struct {
	db            *gorm.DB
	catalogRepo   repositories.CatalogRepository
	itemRepo      repositories.ItemRepository
	orderRepo     repositories.OrderRepository
	orderItemRepo repositories.OrderItemRepository
	messageRepo   repositories.OrderMessageRepository
	profileRepo   repositories.ProfileRepository
}

// NewOrderService wires up all dependencies and returns an OrderService.
func NewOrderService(
	db *gorm.DB,
	catalogRepo repositories.CatalogRepository,
	itemRepo repositories.ItemRepository,
	orderRepo repositories.OrderRepository,
	orderItemRepo repositories.OrderItemRepository,
	messageRepo repositories.OrderMessageRepository,
	profileRepo repositories.ProfileRepository,
) OrderService {
	return &orderService{
		db:            db,
		catalogRepo:   catalogRepo,
		itemRepo:      itemRepo,
		orderRepo:     orderRepo,
		orderItemRepo: orderItemRepo,
		messageRepo:   messageRepo,
		profileRepo:   profileRepo,
	}
}

// ─── Create ───────────────────────────────────────────────────────────────────

// CreateOrder reserves stock for every requested line and records the
// order, all within a single transaction.
//
// Stock is reserved with a conditional decrement (UPDATE ... WHERE
// actual_quantity >= requested, affected rows checked), so two concurrent
// orders racing on the same item cannot oversell. Any failure (unknown
// item, insufficient stock, insert error) rolls the whole order back:
// either the order, all its lines and all decrements exist, or none do.
func (s *orderService) CreateOrder(catalogID, userID string, lines []OrderLine, returnDate time.Time) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}
	if dayOf(returnDate).Before(dayOf(time.Now())) {
		return nil, ErrPastReturnDate
	}

	var order *models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.catalogRepo.GetByID(tx, catalogID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCatalogNotFound
			}
			return err
		}

		// Reserve stock line by line. The transaction makes the sequence
		// all-or-nothing even though each decrement is a separate statement.
		for _, line := range lines {
			item, err := s.itemRepo.GetByID(tx, line.ItemID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: %s", ErrItemNotFound, line.ItemID)
				}
				return err
			}
			ok, err := s.itemRepo.ReserveStock(tx, line.ItemID, line.Quantity)
			if err != nil {
				log.Printf("[ERROR] CreateOrder: failed to reserve %d of item %s: %v", line.Quantity, line.ItemID, err)
				return err
			}
			if !ok {
				log.Printf("[INFO] CreateOrder: insufficient stock for item %q (have %d, want %d)", item.Name, item.ActualQuantity, line.Quantity)
				return fmt.Errorf("%w: %s", ErrInsufficientStock, item.Name)
			}
		}

		end := dayOf(returnDate)
		o := &models.Order{
			ID:        models.NewID(),
			CatalogID: catalogID,
			UserID:    userID,
			Status:    false,
			EndDate:   &end,
		}
		if err := s.orderRepo.Create(tx, o); err != nil {
			log.Printf("[ERROR] CreateOrder: failed to create order record: %v", err)
			return err
		}
		for _, line := range lines {
			oi := &models.OrderItem{
				OrderID:  o.ID,
				ItemID:   line.ItemID,
				Quantity: line.Quantity,
			}
			if err := s.orderItemRepo.Create(tx, oi); err != nil {
				log.Printf("[ERROR] CreateOrder: failed to create order line for item %s: %v", line.ItemID, err)
				return err
			}
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] CreateOrder: order %s created for user %s (%d lines, due %s)", order.ID, userID, len(lines), order.EndDate.Format("2006-01-02"))
	return order, nil
}

// ─── Finalize ─────────────────────────────────────────────────────────────────

// FinalizeOrder marks the order as returned by its owner. Stock is NOT
// restocked here: items stay out of the pool until an admin has inspected
// and validated the physical return.
//
// If the order's end date has passed, the owner's delay counter is
// incremented best-effort; a failure there never fails the finalize.
func (s *orderService) FinalizeOrder(orderID, userID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(nil, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrNotOrderOwner
	}
	if order.Status {
		return nil, ErrAlreadyFinalized
	}

	// Guarded flip: a concurrent duplicate finalize sees zero affected rows.
	rows, err := s.orderRepo.MarkFinalized(nil, orderID)
	if err != nil {
		log.Printf("[ERROR] FinalizeOrder: failed to mark order %s finalized: %v", orderID, err)
		return nil, err
	}
	if rows == 0 {
		return nil, ErrAlreadyFinalized
	}
	order.Status = true
	log.Printf("[INFO] FinalizeOrder: order %s returned by user %s", orderID, userID)

	if order.EndDate != nil && dayOf(time.Now()).After(dayOf(*order.EndDate)) {
		if err := s.profileRepo.IncrementDelays(nil, userID); err != nil {
			log.Printf("[WARN] FinalizeOrder: failed to increment delays for user %s: %v", userID, err)
		} else {
			log.Printf("[INFO] FinalizeOrder: late return, delays incremented for user %s", userID)
		}
	}
	return order, nil
}

// UpdateReturnDate changes the expected return date of a pending order.
func (s *orderService) UpdateReturnDate(orderID, userID string, returnDate time.Time) error {
	if dayOf(returnDate).Before(dayOf(time.Now())) {
		return ErrPastReturnDate
	}
	order, err := s.orderRepo.GetByID(nil, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	if order.UserID != userID {
		return ErrNotOrderOwner
	}
	if order.Status {
		return ErrAlreadyFinalized
	}
	return s.orderRepo.UpdateEndDate(nil, orderID, dayOf(returnDate))
}

// ─── Validate ─────────────────────────────────────────────────────────────────

// ValidateOrderReturn confirms a student return and puts the reserved
// quantities back into stock. This is the only path that restocks.
//
// The validation flag is claimed with a guarded update before restocking,
// inside one transaction: a second concurrent call sees zero affected
// rows and gets ErrAlreadyValidated, so stock can never be incremented
// twice for the same order.
func (s *orderService) ValidateOrderReturn(orderID string) error {
	order, err := s.orderRepo.GetByID(nil, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	if !order.Status {
		return ErrOrderNotReturned
	}
	if order.Validation != nil && *order.Validation {
		return ErrAlreadyValidated
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		rows, err := s.orderRepo.MarkValidated(tx, orderID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAlreadyValidated
		}
		lines, err := s.orderItemRepo.ListByOrder(tx, orderID)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if err := s.itemRepo.Restock(tx, line.ItemID, line.Quantity); err != nil {
				log.Printf("[ERROR] ValidateOrderReturn: failed to restock item %s (+%d): %v", line.ItemID, line.Quantity, err)
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] ValidateOrderReturn: order %s validated, stock restored", orderID)
	return nil
}

// ValidateOrders validates a set of orders, one independent goroutine per
// order. There is no ordering guarantee between them and no global
// rollback: the result reports per-order success or failure.
func (s *orderService) ValidateOrders(orderIDs []string) BulkValidationResult {
	errs := make([]error, len(orderIDs))
	var wg sync.WaitGroup
	for i, id := range orderIDs {
		wg.Add(1)
		go func(idx int, orderID string) {
			defer wg.Done()
			errs[idx] = s.ValidateOrderReturn(orderID)
		}(i, id)
	}
	wg.Wait()

	result := BulkValidationResult{Results: make(map[string]string, len(orderIDs))}
	for i, id := range orderIDs {
		if errs[i] != nil {
			result.Failed++
			result.Results[id] = errs[i].Error()
		} else {
			result.Validated++
			result.Results[id] = "ok"
		}
	}
	log.Printf("[INFO] ValidateOrders: %d validated, %d failed out of %d", result.Validated, result.Failed, len(orderIDs))
	return result
}

// ─── Messages ─────────────────────────────────────────────────────────────────

// AddOrderMessage appends an admin note to an order. Messages are capped
// at MaxMessageLength characters and never edited or deleted.
func (s *orderService) AddOrderMessage(orderID, message string) (*models.OrderMessage, error) {
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if len([]rune(message)) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}
	if _, err := s.orderRepo.GetByID(nil, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	msg := &models.OrderMessage{
		ID:      models.NewID(),
		OrderID: orderID,
		Message: message,
	}
	if err := s.messageRepo.Create(nil, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListOrderMessages returns an order's messages, newest first.
func (s *orderService) ListOrderMessages(orderID string) ([]models.OrderMessage, error) {
	if _, err := s.orderRepo.GetByID(nil, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return s.messageRepo.ListByOrder(nil, orderID)
}

// ─── Queries ──────────────────────────────────────────────────────────────────

// ListUserOrders returns the user's orders with catalog info and lines,
// newest first.
func (s *orderService) ListUserOrders(userID string) ([]UserOrder, error) {
	orders, err := s.orderRepo.ListByUser(nil, userID)
	if err != nil {
		return nil, err
	}
	result := make([]UserOrder, 0, len(orders))
	for _, o := range orders {
		uo := UserOrder{
			ID:         o.ID,
			Status:     o.Status,
			Validation: o.Validation,
			CreatedAt:  o.CreatedAt,
			EndDate:    o.EndDate,
		}
		if catalog, err := s.catalogRepo.GetByID(nil, o.CatalogID); err == nil {
			uo.CatalogName = catalog.Name
			uo.CatalogAcronym = catalog.Acronym
		}
		lines, err := s.orderItemRepo.ListByOrder(nil, o.ID)
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			uo.Items = append(uo.Items, UserOrderLine{
				Name:        line.Item.Name,
				Description: line.Item.Description,
				Quantity:    line.Quantity,
			})
		}
		result = append(result, uo)
	}
	return result, nil
}

// ListCatalogOrders returns a catalog's orders enriched with item names
// and the ordering user's email, for the admin table.
func (s *orderService) ListCatalogOrders(catalogID string) ([]CatalogOrder, error) {
	if _, err := s.catalogRepo.GetByID(nil, catalogID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCatalogNotFound
		}
		return nil, err
	}
	orders, err := s.orderRepo.ListByCatalog(nil, catalogID)
	if err != nil {
		return nil, err
	}
	result := make([]CatalogOrder, 0, len(orders))
	for _, o := range orders {
		co := CatalogOrder{
			ID:           o.ID,
			Status:       o.Status,
			Validation:   o.Validation,
			CreationDate: o.CreatedAt,
			EndDate:      o.EndDate,
			UserEmail:    "N/A",
		}
		lines, err := s.orderItemRepo.ListByOrder(nil, o.ID)
		if err != nil {
			return nil, err
		}
		co.NItems = len(lines)
		for _, line := range lines {
			co.Items = append(co.Items, UserOrderLine{
				Name:     line.Item.Name,
				Quantity: line.Quantity,
			})
		}
		if profile, err := s.profileRepo.GetByID(nil, o.UserID); err == nil {
			co.UserEmail = profile.Email
		} else {
			log.Printf("[WARN] ListCatalogOrders: no profile for user %s: %v", o.UserID, err)
		}
		result = append(result, co)
	}
	return result, nil
}

// UserOrderStats returns total/ongoing/returned order counts and the
// delay counter for one user.
func (s *orderService) UserOrderStats(userID string) (*UserOrderStats, error) {
	profile, err := s.profileRepo.GetByID(nil, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	total, err := s.orderRepo.CountByUser(nil, userID, nil)
	if err != nil {
		return nil, err
	}
	ongoing := false
	ongoingCount, err := s.orderRepo.CountByUser(nil, userID, &ongoing)
	if err != nil {
		return nil, err
	}
	returned := true
	returnedCount, err := s.orderRepo.CountByUser(nil, userID, &returned)
	if err != nil {
		return nil, err
	}
	return &UserOrderStats{
		Email:          profile.Email,
		Delays:         profile.Delays,
		TotalOrders:    total,
		OngoingOrders:  ongoingCount,
		ReturnedOrders: returnedCount,
	}, nil
}

// ItemStats returns an item's stock figures including the quantity held
// by orders whose stock has not come back yet.
func (s *orderService) ItemStats(itemID string) (*ItemStats, error) {
	item, err := s.itemRepo.GetByID(nil, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	reserved, err := s.orderItemRepo.SumReservedQuantity(nil, itemID)
	if err != nil {
		return nil, err
	}
	return &ItemStats{
		Name:            item.Name,
		DefaultQuantity: item.DefaultQuantity,
		ActualQuantity:  item.ActualQuantity,
		Reserved:        reserved,
	}, nil
}

// ─── Internal Helpers ─────────────────────────────────────────────────────────

// dayOf truncates a timestamp to midnight UTC so date comparisons are
// calendar-based, not clock-based.
func dayOf(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
