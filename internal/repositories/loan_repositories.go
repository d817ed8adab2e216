package repositories

import (
	"gorm.io/gorm"

	"inventaire/internal/models"
)

type ItemRepository interface {
	Create(db *gorm.DB, item *models.Item) error
	GetByID(db *gorm.DB, id string) (*models.Item, error)
	ListByCatalog(db *gorm.DB, catalogID string) ([]models.Item, error)
	Update(db *gorm.DB, item *models.Item) error
	Delete(db *gorm.DB, id string) error
	CountByCatalog(db *gorm.DB, catalogID string) (int64, error)

	// ReserveStock atomically decrements actual_quantity if enough stock
	// remains, reporting whether the reservation took effect.
	ReserveStock(db *gorm.DB, id string, quantity int) (bool, error)
	// Restock adds a previously reserved quantity back to actual_quantity.
	Restock(db *gorm.DB, id string, quantity int) error

	SetImage(db *gorm.DB, id string, data []byte, mime string) error
}

type OrderRepository interface {
	Create(db *gorm.DB, order *models.Order) error
	GetByID(db *gorm.DB, id string) (*models.Order, error)
	ListByUser(db *gorm.DB, userID string) ([]models.Order, error)
	ListByCatalog(db *gorm.DB, catalogID string) ([]models.Order, error)
	CountByCatalog(db *gorm.DB, catalogID string) (int64, error)
	CountByUser(db *gorm.DB, userID string, status *bool) (int64, error)
	UpdateEndDate(db *gorm.DB, id string, endDate interface{}) error

	// MarkFinalized flips status to true iff the order is still pending,
	// returning the number of affected rows.
	MarkFinalized(db *gorm.DB, id string) (int64, error)
	// MarkValidated flips validation to true iff the order is returned and
	// not yet validated, returning the number of affected rows.
	MarkValidated(db *gorm.DB, id string) (int64, error)
}

type OrderItemRepository interface {
	Create(db *gorm.DB, orderItem *models.OrderItem) error
	ListByOrder(db *gorm.DB, orderID string) ([]models.OrderItem, error)
	// SumReservedQuantity totals the quantity of an item held by orders
	// whose stock has not been returned to the pool yet (validation not
	// true).
	SumReservedQuantity(db *gorm.DB, itemID string) (int, error)
}

type OrderMessageRepository interface {
	Create(db *gorm.DB, msg *models.OrderMessage) error
	ListByOrder(db *gorm.DB, orderID string) ([]models.OrderMessage, error)
}

// concrete implementations

type itemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) Create(db *gorm.DB, item *models.Item) error {
	if db == nil {
		db = r.db
	}
	return db.Create(item).Error
}

func (r *itemRepository) GetByID(db *gorm.DB, id string) (*models.Item, error) {
	if db == nil {
		db = r.db
	}
	var item models.Item
	if err := db.First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) ListByCatalog(db *gorm.DB, catalogID string) ([]models.Item, error) {
	if db == nil {
		db = r.db
	}
	var items []models.Item
	if err := db.Where("catalog_id = ?", catalogID).Order("name").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepository) Update(db *gorm.DB, item *models.Item) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Item{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"name":          item.Name,
			"description":   item.Description,
			"serial_number": item.SerialNumber,
			"item_type_id":  item.ItemTypeID,
		}).Error
}

func (r *itemRepository) Delete(db *gorm.DB, id string) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Item{}, "id = ?", id).Error
}

func (r *itemRepository) CountByCatalog(db *gorm.DB, catalogID string) (int64, error) {
	if db == nil {
		db = r.db
	}
	var n int64
	err := db.Model(&models.Item{}).Where("catalog_id = ?", catalogID).Count(&n).Error
	return n, err
}

func (r *itemRepository) ReserveStock(db *gorm.DB, id string, quantity int) (bool, error) {
	if db == nil {
		db = r.db
	}
	// Conditional decrement: the WHERE guard makes the check and the write
	// a single statement, so concurrent orders cannot oversell.
	res := db.Model(&models.Item{}).
		Where("id = ? AND actual_quantity >= ?", id, quantity).
		UpdateColumn("actual_quantity", gorm.Expr("actual_quantity - ?", quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *itemRepository) Restock(db *gorm.DB, id string, quantity int) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Item{}).
		Where("id = ?", id).
		UpdateColumn("actual_quantity", gorm.Expr("actual_quantity + ?", quantity)).
		Error
}

func (r *itemRepository) SetImage(db *gorm.DB, id string, data []byte, mime string) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Item{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"image":      data,
			"image_mime": mime,
		}).Error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(db *gorm.DB, order *models.Order) error {
	if db == nil {
		db = r.db
	}
	return db.Create(order).Error
}

func (r *orderRepository) GetByID(db *gorm.DB, id string) (*models.Order, error) {
	if db == nil {
		db = r.db
	}
	var order models.Order
	if err := db.First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ListByUser(db *gorm.DB, userID string) ([]models.Order, error) {
	if db == nil {
		db = r.db
	}
	var orders []models.Order
	if err := db.Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) ListByCatalog(db *gorm.DB, catalogID string) ([]models.Order, error) {
	if db == nil {
		db = r.db
	}
	var orders []models.Order
	if err := db.Where("catalog_id = ?", catalogID).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) CountByCatalog(db *gorm.DB, catalogID string) (int64, error) {
	if db == nil {
		db = r.db
	}
	var n int64
	err := db.Model(&models.Order{}).Where("catalog_id = ?", catalogID).Count(&n).Error
	return n, err
}

func (r *orderRepository) CountByUser(db *gorm.DB, userID string, status *bool) (int64, error) {
	if db == nil {
		db = r.db
	}
	q := db.Model(&models.Order{}).Where("user_id = ?", userID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

func (r *orderRepository) UpdateEndDate(db *gorm.DB, id string, endDate interface{}) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Order{}).
		Where("id = ?", id).
		Update("end_date", endDate).Error
}

func (r *orderRepository) MarkFinalized(db *gorm.DB, id string) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, false).
		Update("status", true)
	return res.RowsAffected, res.Error
}

func (r *orderRepository) MarkValidated(db *gorm.DB, id string) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Order{}).
		Where("id = ? AND status = ? AND (validation IS NULL OR validation = ?)", id, true, false).
		Update("validation", true)
	return res.RowsAffected, res.Error
}

type orderItemRepository struct {
	db *gorm.DB
}

func NewOrderItemRepository(db *gorm.DB) OrderItemRepository {
	return &orderItemRepository{db: db}
}

func (r *orderItemRepository) Create(db *gorm.DB, orderItem *models.OrderItem) error {
	if db == nil {
		db = r.db
	}
	return db.Create(orderItem).Error
}

func (r *orderItemRepository) ListByOrder(db *gorm.DB, orderID string) ([]models.OrderItem, error) {
	if db == nil {
		db = r.db
	}
	var lines []models.OrderItem
	if err := db.Preload("Item").Where("order_id = ?", orderID).Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *orderItemRepository) SumReservedQuantity(db *gorm.DB, itemID string) (int, error) {
	if db == nil {
		db = r.db
	}
	var total int
	err := db.Table("order_items").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.item_id = ? AND (orders.validation IS NULL OR orders.validation = ?)", itemID, false).
		Select("COALESCE(SUM(order_items.quantity), 0)").
		Scan(&total).Error
	return total, err
}

type orderMessageRepository struct {
	db *gorm.DB
}

func NewOrderMessageRepository(db *gorm.DB) OrderMessageRepository {
	return &orderMessageRepository{db: db}
}

func (r *orderMessageRepository) Create(db *gorm.DB, msg *models.OrderMessage) error {
	if db == nil {
		db = r.db
	}
	return db.Create(msg).Error
}

func (r *orderMessageRepository) ListByOrder(db *gorm.DB, orderID string) ([]models.OrderMessage, error) {
	if db == nil {
		db = r.db
	}
	var msgs []models.OrderMessage
	if err := db.Where("order_id = ?", orderID).Order("created_at DESC").Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}
