package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"inventaire/internal/models"
	"inventaire/internal/repositories"
)

// newTestDB opens a fresh in-memory SQLite database. The pool is capped
// at one connection so concurrent transactions serialize instead of
// tripping SQLite's single-writer lock.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newOrderService(t *testing.T, db *gorm.DB) OrderService {
	t.Helper()
	return NewOrderService(
		db,
		repositories.NewCatalogRepository(db),
		repositories.NewItemRepository(db),
		repositories.NewOrderRepository(db),
		repositories.NewOrderItemRepository(db),
		repositories.NewOrderMessageRepository(db),
		repositories.NewProfileRepository(db),
	)
}

func newCatalogService(t *testing.T, db *gorm.DB) CatalogService {
	t.Helper()
	return NewCatalogService(
		db,
		repositories.NewInstitutionRepository(db),
		repositories.NewCatalogRepository(db),
		repositories.NewItemTypeRepository(db),
		repositories.NewItemRepository(db),
		repositories.NewOrderRepository(db),
		repositories.NewProfileRepository(db),
		repositories.NewMembershipRepository(db),
	)
}

func newAuthService(t *testing.T, db *gorm.DB) AuthService {
	t.Helper()
	return NewAuthService(
		db,
		repositories.NewUserRepository(db),
		repositories.NewProfileRepository(db),
		repositories.NewRoleRepository(db),
	)
}

// seedCatalog builds an institution with one catalog owned by a fresh
// admin and returns their ids.
func seedCatalog(t *testing.T, db *gorm.DB) (adminID, institutionID, catalogID string) {
	t.Helper()
	adminID = seedUser(t, db, fmt.Sprintf("admin-%s@example.com", uuid.NewString()[:8]))
	inst := &models.Institution{
		ID:        models.NewID(),
		Name:      "ENS Lyon",
		Acronym:   "ENSL",
		CreatorID: adminID,
	}
	require.NoError(t, db.Create(inst).Error)
	catalog := &models.Catalog{
		ID:            models.NewID(),
		InstitutionID: inst.ID,
		Name:          "Physics Lab",
		Acronym:       "PHY",
	}
	require.NoError(t, db.Create(catalog).Error)
	return adminID, inst.ID, catalog.ID
}

// seedUser creates a credential row plus matching profile.
func seedUser(t *testing.T, db *gorm.DB, email string) string {
	t.Helper()
	user := &models.User{ID: models.NewID(), Email: email, PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&models.Profile{ID: user.ID, Email: email}).Error)
	return user.ID
}

func seedItem(t *testing.T, db *gorm.DB, catalogID, name string, quantity int) string {
	t.Helper()
	item := &models.Item{
		ID:              models.NewID(),
		CatalogID:       catalogID,
		Name:            name,
		DefaultQuantity: quantity,
		ActualQuantity:  quantity,
	}
	require.NoError(t, db.Create(item).Error)
	return item.ID
}

func itemStock(t *testing.T, db *gorm.DB, itemID string) int {
	t.Helper()
	var item models.Item
	require.NoError(t, db.First(&item, "id = ?", itemID).Error)
	return item.ActualQuantity
}

func tomorrow() time.Time { return time.Now().AddDate(0, 0, 1) }
