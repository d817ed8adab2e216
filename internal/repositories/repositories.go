package repositories

import (
	"gorm.io/gorm"

	"inventaire/internal/models"
)

// Every method takes an optional *gorm.DB so services can pass a
// transaction handle; nil falls back to the repository's own connection.

type UserRepository interface {
	Create(db *gorm.DB, user *models.User) error
	GetByID(db *gorm.DB, id string) (*models.User, error)
	GetByEmail(db *gorm.DB, email string) (*models.User, error)
}

type ProfileRepository interface {
	Create(db *gorm.DB, profile *models.Profile) error
	GetByID(db *gorm.DB, id string) (*models.Profile, error)
	GetByEmail(db *gorm.DB, email string) (*models.Profile, error)
	List(db *gorm.DB) ([]models.Profile, error)
	IncrementDelays(db *gorm.DB, userID string) error
}

type RoleRepository interface {
	Create(db *gorm.DB, role *models.Role) error
	GetByUserID(db *gorm.DB, userID string) (*models.Role, error)
}

type InstitutionRepository interface {
	Create(db *gorm.DB, inst *models.Institution) error
	GetByID(db *gorm.DB, id string) (*models.Institution, error)
	List(db *gorm.DB) ([]models.Institution, error)
	ListByCreator(db *gorm.DB, creatorID string) ([]models.Institution, error)
	Update(db *gorm.DB, inst *models.Institution) error
	Delete(db *gorm.DB, id string) error
}

type CatalogRepository interface {
	Create(db *gorm.DB, catalog *models.Catalog) error
	GetByID(db *gorm.DB, id string) (*models.Catalog, error)
	ListByInstitution(db *gorm.DB, institutionID string) ([]models.Catalog, error)
	ListByInstitutions(db *gorm.DB, institutionIDs []string) ([]models.Catalog, error)
	Update(db *gorm.DB, catalog *models.Catalog) error
	Delete(db *gorm.DB, id string) error
}

type ItemTypeRepository interface {
	Create(db *gorm.DB, itemType *models.ItemType) error
	GetByID(db *gorm.DB, id string) (*models.ItemType, error)
	ListByCatalog(db *gorm.DB, catalogID string) ([]models.ItemType, error)
}

type MembershipRepository interface {
	Add(db *gorm.DB, member *models.InstitutionMember) error
	Remove(db *gorm.DB, institutionID, userID string) error
	Exists(db *gorm.DB, institutionID, userID string) (bool, error)
	ListByInstitution(db *gorm.DB, institutionID string) ([]models.InstitutionMember, error)
	ListInstitutionIDsByUser(db *gorm.DB, userID string) ([]string, error)
}

// concrete implementations

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(db *gorm.DB, user *models.User) error {
	if db == nil {
		db = r.db
	}
	return db.Create(user).Error
}

func (r *userRepository) GetByID(db *gorm.DB, id string) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(db *gorm.DB, email string) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(db *gorm.DB, profile *models.Profile) error {
	if db == nil {
		db = r.db
	}
	return db.Create(profile).Error
}

func (r *profileRepository) GetByID(db *gorm.DB, id string) (*models.Profile, error) {
	if db == nil {
		db = r.db
	}
	var profile models.Profile
	if err := db.First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) GetByEmail(db *gorm.DB, email string) (*models.Profile, error) {
	if db == nil {
		db = r.db
	}
	var profile models.Profile
	if err := db.First(&profile, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) List(db *gorm.DB) ([]models.Profile, error) {
	if db == nil {
		db = r.db
	}
	var profiles []models.Profile
	if err := db.Order("email").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *profileRepository) IncrementDelays(db *gorm.DB, userID string) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Profile{}).
		Where("id = ?", userID).
		UpdateColumn("delays", gorm.Expr("delays + 1")).
		Error
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) Create(db *gorm.DB, role *models.Role) error {
	if db == nil {
		db = r.db
	}
	return db.Create(role).Error
}

func (r *roleRepository) GetByUserID(db *gorm.DB, userID string) (*models.Role, error) {
	if db == nil {
		db = r.db
	}
	var role models.Role
	if err := db.First(&role, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

type institutionRepository struct {
	db *gorm.DB
}

func NewInstitutionRepository(db *gorm.DB) InstitutionRepository {
	return &institutionRepository{db: db}
}

func (r *institutionRepository) Create(db *gorm.DB, inst *models.Institution) error {
	if db == nil {
		db = r.db
	}
	return db.Create(inst).Error
}

func (r *institutionRepository) GetByID(db *gorm.DB, id string) (*models.Institution, error) {
	if db == nil {
		db = r.db
	}
	var inst models.Institution
	if err := db.First(&inst, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *institutionRepository) List(db *gorm.DB) ([]models.Institution, error) {
	if db == nil {
		db = r.db
	}
	var insts []models.Institution
	if err := db.Order("name").Find(&insts).Error; err != nil {
		return nil, err
	}
	return insts, nil
}

func (r *institutionRepository) ListByCreator(db *gorm.DB, creatorID string) ([]models.Institution, error) {
	if db == nil {
		db = r.db
	}
	var insts []models.Institution
	if err := db.Where("creator_id = ?", creatorID).Order("name").Find(&insts).Error; err != nil {
		return nil, err
	}
	return insts, nil
}

func (r *institutionRepository) Update(db *gorm.DB, inst *models.Institution) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Institution{}).
		Where("id = ?", inst.ID).
		Updates(map[string]interface{}{
			"name":        inst.Name,
			"description": inst.Description,
			"acronym":     inst.Acronym,
		}).Error
}

func (r *institutionRepository) Delete(db *gorm.DB, id string) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Institution{}, "id = ?", id).Error
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) Create(db *gorm.DB, catalog *models.Catalog) error {
	if db == nil {
		db = r.db
	}
	return db.Create(catalog).Error
}

func (r *catalogRepository) GetByID(db *gorm.DB, id string) (*models.Catalog, error) {
	if db == nil {
		db = r.db
	}
	var catalog models.Catalog
	if err := db.First(&catalog, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &catalog, nil
}

func (r *catalogRepository) ListByInstitution(db *gorm.DB, institutionID string) ([]models.Catalog, error) {
	if db == nil {
		db = r.db
	}
	var catalogs []models.Catalog
	if err := db.Where("institution_id = ?", institutionID).Order("name").Find(&catalogs).Error; err != nil {
		return nil, err
	}
	return catalogs, nil
}

func (r *catalogRepository) ListByInstitutions(db *gorm.DB, institutionIDs []string) ([]models.Catalog, error) {
	if db == nil {
		db = r.db
	}
	if len(institutionIDs) == 0 {
		return nil, nil
	}
	var catalogs []models.Catalog
	if err := db.Where("institution_id IN ?", institutionIDs).Order("name").Find(&catalogs).Error; err != nil {
		return nil, err
	}
	return catalogs, nil
}

func (r *catalogRepository) Update(db *gorm.DB, catalog *models.Catalog) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Catalog{}).
		Where("id = ?", catalog.ID).
		Updates(map[string]interface{}{
			"name":        catalog.Name,
			"description": catalog.Description,
			"acronym":     catalog.Acronym,
		}).Error
}

func (r *catalogRepository) Delete(db *gorm.DB, id string) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Catalog{}, "id = ?", id).Error
}

type itemTypeRepository struct {
	db *gorm.DB
}

func NewItemTypeRepository(db *gorm.DB) ItemTypeRepository {
	return &itemTypeRepository{db: db}
}

func (r *itemTypeRepository) Create(db *gorm.DB, itemType *models.ItemType) error {
	if db == nil {
		db = r.db
	}
	return db.Create(itemType).Error
}

func (r *itemTypeRepository) GetByID(db *gorm.DB, id string) (*models.ItemType, error) {
	if db == nil {
		db = r.db
	}
	var itemType models.ItemType
	if err := db.First(&itemType, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &itemType, nil
}

func (r *itemTypeRepository) ListByCatalog(db *gorm.DB, catalogID string) ([]models.ItemType, error) {
	if db == nil {
		db = r.db
	}
	var types []models.ItemType
	if err := db.Where("catalog_id = ?", catalogID).Order("name").Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

type membershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) Add(db *gorm.DB, member *models.InstitutionMember) error {
	if db == nil {
		db = r.db
	}
	return db.Create(member).Error
}

func (r *membershipRepository) Remove(db *gorm.DB, institutionID, userID string) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.InstitutionMember{}, "institution_id = ? AND user_id = ?", institutionID, userID).Error
}

func (r *membershipRepository) Exists(db *gorm.DB, institutionID, userID string) (bool, error) {
	if db == nil {
		db = r.db
	}
	var n int64
	err := db.Model(&models.InstitutionMember{}).
		Where("institution_id = ? AND user_id = ?", institutionID, userID).
		Count(&n).Error
	return n > 0, err
}

func (r *membershipRepository) ListByInstitution(db *gorm.DB, institutionID string) ([]models.InstitutionMember, error) {
	if db == nil {
		db = r.db
	}
	var members []models.InstitutionMember
	if err := db.Where("institution_id = ?", institutionID).Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *membershipRepository) ListInstitutionIDsByUser(db *gorm.DB, userID string) ([]string, error) {
	if db == nil {
		db = r.db
	}
	var ids []string
	if err := db.Model(&models.InstitutionMember{}).
		Where("user_id = ?", userID).
		Pluck("institution_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
