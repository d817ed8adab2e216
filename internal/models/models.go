package models

import (
	"time"

	"github.com/google/uuid"
)

type RoleName string

const (
	RoleAdmin RoleName = "admin"
	RoleUser  RoleName = "user"
)

// NewID returns a fresh UUID string. IDs are assigned application-side so
// the same models work on every supported driver.
func NewID() string { return uuid.NewString() }

// User holds login credentials only; everything user-facing lives in Profile.
type User struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile mirrors the auth user (same ID) with display fields and the
// late-return counter.
type Profile struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	FirstName string    `gorm:"size:80" json:"first_name"`
	LastName  string    `gorm:"size:80" json:"last_name"`
	Delays    int       `gorm:"not null;default:0" json:"delays"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role is assigned once at signup and never changed through the app.
type Role struct {
	ID     uint     `gorm:"primaryKey" json:"-"`
	UserID string   `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Role   RoleName `gorm:"size:10;not null" json:"role"`
}

type Institution struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:30;not null" json:"name"`
	Description string    `gorm:"size:40" json:"description"`
	Acronym     string    `gorm:"size:10" json:"acronym"`
	CreatorID   string    `gorm:"type:uuid;index;not null" json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Catalog struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	InstitutionID string    `gorm:"type:uuid;index;not null" json:"institution_id"`
	Name          string    `gorm:"size:30;not null" json:"name"`
	Description   string    `gorm:"size:40" json:"description"`
	Acronym       string    `gorm:"size:10" json:"acronym"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ItemType struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CatalogID string    `gorm:"type:uuid;index;not null" json:"catalog_id"`
	Name      string    `gorm:"size:30;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Item is a borrowable catalog entry. DefaultQuantity is the original
// stock; ActualQuantity is what is currently available. ActualQuantity is
// mutated exactly twice in an order's life: decremented at order creation
// and incremented back at admin validation.
// Invariant at rest: 0 <= ActualQuantity <= DefaultQuantity.
type Item struct {
	ID              string    `gorm:"type:uuid;primaryKey" json:"id"`
	CatalogID       string    `gorm:"type:uuid;index;not null" json:"catalog_id"`
	ItemTypeID      *string   `gorm:"type:uuid;index" json:"item_type_id"`
	Name            string    `gorm:"size:30;not null" json:"name"`
	Description     string    `gorm:"size:40" json:"description"`
	SerialNumber    string    `gorm:"size:60" json:"serial_number"`
	DefaultQuantity int       `gorm:"not null" json:"default_quantity"`
	ActualQuantity  int       `gorm:"not null" json:"actual_quantity"`
	Image           []byte    `json:"-"`
	ImageMime       string    `gorm:"size:40" json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Order is a loan. Status false = loan in progress, true = returned by
// the student. Validation stays null until an admin confirms the physical
// return and restocks the items; true is the terminal state.
type Order struct {
	ID         string     `gorm:"type:uuid;primaryKey" json:"id"`
	CatalogID  string     `gorm:"type:uuid;index;not null" json:"catalog_id"`
	UserID     string     `gorm:"type:uuid;index;not null" json:"user_id"`
	Status     bool       `gorm:"not null;default:false" json:"status"`
	Validation *bool      `json:"validation"`
	EndDate    *time.Time `json:"end_date"`
	CreatedAt  time.Time  `json:"created_at"`
}

// OrderItem is the quantity of one item reserved by an order. Immutable
// once created.
type OrderItem struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	OrderID  string `gorm:"type:uuid;index;not null" json:"order_id"`
	ItemID   string `gorm:"type:uuid;index;not null" json:"item_id"`
	Item     Item   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	Quantity int    `gorm:"not null" json:"quantity"`
}

// OrderMessage is an admin-authored note on an order. Append-only, no
// edit or delete.
type OrderMessage struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   string    `gorm:"type:uuid;index;not null" json:"order_id"`
	Message   string    `gorm:"size:80;not null" json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// InstitutionMember is a roster row: the student may browse the
// institution's catalogs.
type InstitutionMember struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	InstitutionID string    `gorm:"type:uuid;uniqueIndex:idx_member;not null" json:"institution_id"`
	UserID        string    `gorm:"type:uuid;uniqueIndex:idx_member;not null" json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// All lists every model for migration.
func All() []any {
	return []any{
		&User{}, &Profile{}, &Role{},
		&Institution{}, &Catalog{}, &ItemType{}, &Item{},
		&Order{}, &OrderItem{}, &OrderMessage{},
		&InstitutionMember{},
	}
}
