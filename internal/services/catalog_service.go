package services

import (
	"errors"
	"io"
	"log"

	"gorm.io/gorm"

	"inventaire/internal/imaging"
	"inventaire/internal/models"
	"inventaire/internal/repositories"
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrInstitutionNotFound is returned when the referenced institution
	// does not exist.
	ErrInstitutionNotFound = errors.New("institution not found")

	// ErrNotInstitutionOwner is returned when an admin manages an
	// institution they did not create.
	ErrNotInstitutionOwner = errors.New("institution does not belong to admin")

	// ErrUserNotFound is returned when the referenced user is absent.
	ErrUserNotFound = errors.New("user not found")

	// ErrAlreadyMember is returned when a student is added twice to the
	// same institution roster.
	ErrAlreadyMember = errors.New("user already member of institution")

	// ErrInvalidStock bounds item stock at creation (1–100, per the admin
	// item form).
	ErrInvalidStock = errors.New("quantity must be between 1 and 100")

	// ErrNoImage is returned when an item has no stored photo.
	ErrNoImage = errors.New("item has no image")
)

// ItemParams carries item create/update fields.
type ItemParams struct {
	Name         string
	Description  string
	SerialNumber string
	ItemTypeID   *string
	Quantity     int
}

// CatalogOverview summarises one catalog for the admin dashboard.
type CatalogOverview struct {
	TotalOrders int64 `json:"total_orders"`
	TotalItems  int64 `json:"total_items"`
}

// ─── Service Interface ────────────────────────────────────────────────────────

// CatalogService manages institutions, catalogs, item types and items,
// plus student rosters, item photos and dashboard counts. Institutions
// are managed only by the admin who created them.
type CatalogService interface {
	CreateInstitution(creatorID, name, description, acronym string) (*models.Institution, error)
	UpdateInstitution(id, adminID, name, description, acronym string) error
	DeleteInstitution(id, adminID string) error
	ListInstitutions() ([]models.Institution, error)
	ListAdminInstitutions(adminID string) ([]models.Institution, error)

	CreateCatalog(adminID, institutionID, name, description, acronym string) (*models.Catalog, error)
	UpdateCatalog(id, adminID, name, description, acronym string) error
	DeleteCatalog(id, adminID string) error
	ListCatalogs(institutionID string) ([]models.Catalog, error)
	ListUserCatalogs(userID string) ([]models.Catalog, error)

	CreateItemType(catalogID, name string) (*models.ItemType, error)
	ListItemTypes(catalogID string) ([]models.ItemType, error)

	CreateItem(catalogID string, params ItemParams) (*models.Item, error)
	UpdateItem(id string, params ItemParams) error
	DeleteItem(id string) error
	ListItems(catalogID string) ([]models.Item, error)
	SetItemImage(itemID string, r io.Reader) error
	ItemImage(itemID string) (data []byte, mime string, err error)

	AddStudent(institutionID, adminID, email string) (*models.Profile, error)
	RemoveStudent(institutionID, adminID, userID string) error
	ListStudents(institutionID string) ([]models.Profile, error)

	ListUsers() ([]models.Profile, error)
	Overview(institutionID, catalogID string) (*CatalogOverview, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type catalogService struct {
	db              *gorm.DB
	institutionRepo repositories.InstitutionRepository
	catalogRepo     repositories.CatalogRepository
	itemTypeRepo    repositories.ItemTypeRepository
	itemRepo        repositories.ItemRepository
	orderRepo       repositories.OrderRepository
	profileRepo     repositories.ProfileRepository
	membershipRepo  repositories.MembershipRepository
}

// NewCatalogService wires up all dependencies and returns a CatalogService.
func NewCatalogService(
	db *gorm.DB,
	institutionRepo repositories.InstitutionRepository,
	catalogRepo repositories.CatalogRepository,
	itemTypeRepo repositories.ItemTypeRepository,
	itemRepo repositories.ItemRepository,
	orderRepo repositories.OrderRepository,
	profileRepo repositories.ProfileRepository,
	membershipRepo repositories.MembershipRepository,
) CatalogService {
	return &catalogService{
		db:              db,
		institutionRepo: institutionRepo,
		catalogRepo:     catalogRepo,
		itemTypeRepo:    itemTypeRepo,
		itemRepo:        itemRepo,
		orderRepo:       orderRepo,
		profileRepo:     profileRepo,
		membershipRepo:  membershipRepo,
	}
}

// ─── Institutions ─────────────────────────────────────────────────────────────

func (s *catalogService) CreateInstitution(creatorID, name, description, acronym string) (*models.Institution, error) {
	inst := &models.Institution{
		ID:          models.NewID(),
		Name:        name,
		Description: description,
		Acronym:     acronym,
		CreatorID:   creatorID,
	}
	if err := s.institutionRepo.Create(nil, inst); err != nil {
		return nil, err
	}
	log.Printf("[INFO] CreateInstitution: %q (id=%s) created by %s", name, inst.ID, creatorID)
	return inst, nil
}

// ownedInstitution loads an institution and enforces creator ownership.
func (s *catalogService) ownedInstitution(db *gorm.DB, id, adminID string) (*models.Institution, error) {
	inst, err := s.institutionRepo.GetByID(db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInstitutionNotFound
		}
		return nil, err
	}
	if inst.CreatorID != adminID {
		return nil, ErrNotInstitutionOwner
	}
	return inst, nil
}

func (s *catalogService) UpdateInstitution(id, adminID, name, description, acronym string) error {
	inst, err := s.ownedInstitution(nil, id, adminID)
	if err != nil {
		return err
	}
	inst.Name = name
	inst.Description = description
	inst.Acronym = acronym
	return s.institutionRepo.Update(nil, inst)
}

// DeleteInstitution removes the institution together with its catalogs
// and their contents, in one transaction.
func (s *catalogService) DeleteInstitution(id, adminID string) error {
	if _, err := s.ownedInstitution(nil, id, adminID); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		catalogs, err := s.catalogRepo.ListByInstitution(tx, id)
		if err != nil {
			return err
		}
		for _, catalog := range catalogs {
			if err := s.deleteCatalogContents(tx, catalog.ID); err != nil {
				return err
			}
		}
		if err := tx.Delete(&models.InstitutionMember{}, "institution_id = ?", id).Error; err != nil {
			return err
		}
		return s.institutionRepo.Delete(tx, id)
	})
}

func (s *catalogService) ListInstitutions() ([]models.Institution, error) {
	return s.institutionRepo.List(nil)
}

func (s *catalogService) ListAdminInstitutions(adminID string) ([]models.Institution, error) {
	return s.institutionRepo.ListByCreator(nil, adminID)
}

// ─── Catalogs ─────────────────────────────────────────────────────────────────

func (s *catalogService) CreateCatalog(adminID, institutionID, name, description, acronym string) (*models.Catalog, error) {
	if _, err := s.ownedInstitution(nil, institutionID, adminID); err != nil {
		return nil, err
	}
	catalog := &models.Catalog{
		ID:            models.NewID(),
		InstitutionID: institutionID,
		Name:          name,
		Description:   description,
		Acronym:       acronym,
	}
	if err := s.catalogRepo.Create(nil, catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

// ownedCatalog loads a catalog and checks that adminID created its
// institution.
func (s *catalogService) ownedCatalog(db *gorm.DB, id, adminID string) (*models.Catalog, error) {
	catalog, err := s.catalogRepo.GetByID(db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCatalogNotFound
		}
		return nil, err
	}
	if _, err := s.ownedInstitution(db, catalog.InstitutionID, adminID); err != nil {
		return nil, err
	}
	return catalog, nil
}

func (s *catalogService) UpdateCatalog(id, adminID, name, description, acronym string) error {
	catalog, err := s.ownedCatalog(nil, id, adminID)
	if err != nil {
		return err
	}
	catalog.Name = name
	catalog.Description = description
	catalog.Acronym = acronym
	return s.catalogRepo.Update(nil, catalog)
}

func (s *catalogService) DeleteCatalog(id, adminID string) error {
	if _, err := s.ownedCatalog(nil, id, adminID); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.deleteCatalogContents(tx, id)
	})
}

// deleteCatalogContents removes a catalog and everything under it:
// orders (with lines and messages), items and item types.
func (s *catalogService) deleteCatalogContents(tx *gorm.DB, catalogID string) error {
	orders, err := s.orderRepo.ListByCatalog(tx, catalogID)
	if err != nil {
		return err
	}
	for _, o := range orders {
		if err := tx.Delete(&models.OrderMessage{}, "order_id = ?", o.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.OrderItem{}, "order_id = ?", o.ID).Error; err != nil {
			return err
		}
	}
	if err := tx.Delete(&models.Order{}, "catalog_id = ?", catalogID).Error; err != nil {
		return err
	}
	if err := tx.Delete(&models.Item{}, "catalog_id = ?", catalogID).Error; err != nil {
		return err
	}
	if err := tx.Delete(&models.ItemType{}, "catalog_id = ?", catalogID).Error; err != nil {
		return err
	}
	return s.catalogRepo.Delete(tx, catalogID)
}

func (s *catalogService) ListCatalogs(institutionID string) ([]models.Catalog, error) {
	if _, err := s.institutionRepo.GetByID(nil, institutionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInstitutionNotFound
		}
		return nil, err
	}
	return s.catalogRepo.ListByInstitution(nil, institutionID)
}

// ListUserCatalogs returns the catalogs of every institution the user
// has been added to.
func (s *catalogService) ListUserCatalogs(userID string) ([]models.Catalog, error) {
	ids, err := s.membershipRepo.ListInstitutionIDsByUser(nil, userID)
	if err != nil {
		return nil, err
	}
	return s.catalogRepo.ListByInstitutions(nil, ids)
}

// ─── Item Types ───────────────────────────────────────────────────────────────

func (s *catalogService) CreateItemType(catalogID, name string) (*models.ItemType, error) {
	if _, err := s.catalogRepo.GetByID(nil, catalogID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCatalogNotFound
		}
		return nil, err
	}
	itemType := &models.ItemType{
		ID:        models.NewID(),
		CatalogID: catalogID,
		Name:      name,
	}
	if err := s.itemTypeRepo.Create(nil, itemType); err != nil {
		return nil, err
	}
	return itemType, nil
}

func (s *catalogService) ListItemTypes(catalogID string) ([]models.ItemType, error) {
	if _, err := s.catalogRepo.GetByID(nil, catalogID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCatalogNotFound
		}
		return nil, err
	}
	return s.itemTypeRepo.ListByCatalog(nil, catalogID)
}

// ─── Items ────────────────────────────────────────────────────────────────────

// CreateItem adds a borrowable item to a catalog. Initial stock equals
// the full default quantity.
func (s *catalogService) CreateItem(catalogID string, params ItemParams) (*models.Item, error) {
	if params.Quantity < 1 || params.Quantity > 100 {
		return nil, ErrInvalidStock
	}
	if _, err := s.catalogRepo.GetByID(nil, catalogID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCatalogNotFound
		}
		return nil, err
	}
	item := &models.Item{
		ID:              models.NewID(),
		CatalogID:       catalogID,
		ItemTypeID:      params.ItemTypeID,
		Name:            params.Name,
		Description:     params.Description,
		SerialNumber:    params.SerialNumber,
		DefaultQuantity: params.Quantity,
		ActualQuantity:  params.Quantity,
	}
	if err := s.itemRepo.Create(nil, item); err != nil {
		return nil, err
	}
	log.Printf("[INFO] CreateItem: %q (id=%s) added to catalog %s with stock %d", item.Name, item.ID, catalogID, params.Quantity)
	return item, nil
}

// UpdateItem changes descriptive fields only; stock figures are owned by
// the order lifecycle.
func (s *catalogService) UpdateItem(id string, params ItemParams) error {
	item, err := s.itemRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		return err
	}
	item.Name = params.Name
	item.Description = params.Description
	item.SerialNumber = params.SerialNumber
	item.ItemTypeID = params.ItemTypeID
	return s.itemRepo.Update(nil, item)
}

func (s *catalogService) DeleteItem(id string) error {
	if _, err := s.itemRepo.GetByID(nil, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		return err
	}
	return s.itemRepo.Delete(nil, id)
}

func (s *catalogService) ListItems(catalogID string) ([]models.Item, error) {
	if _, err := s.catalogRepo.GetByID(nil, catalogID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCatalogNotFound
		}
		return nil, err
	}
	return s.itemRepo.ListByCatalog(nil, catalogID)
}

// SetItemImage normalizes the uploaded photo (JPEG/PNG in, bounded JPEG
// out) and stores it on the item row.
func (s *catalogService) SetItemImage(itemID string, r io.Reader) error {
	if _, err := s.itemRepo.GetByID(nil, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		return err
	}
	img, err := imaging.Process(r)
	if err != nil {
		return err
	}
	return s.itemRepo.SetImage(nil, itemID, img.Data, img.MIME)
}

func (s *catalogService) ItemImage(itemID string) ([]byte, string, error) {
	item, err := s.itemRepo.GetByID(nil, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrItemNotFound
		}
		return nil, "", err
	}
	if len(item.Image) == 0 {
		return nil, "", ErrNoImage
	}
	return item.Image, item.ImageMime, nil
}

// ─── Rosters ──────────────────────────────────────────────────────────────────

// AddStudent puts the profile matching the given email on the roster of
// an institution owned by adminID.
func (s *catalogService) AddStudent(institutionID, adminID, email string) (*models.Profile, error) {
	if _, err := s.ownedInstitution(nil, institutionID, adminID); err != nil {
		return nil, err
	}
	profile, err := s.profileRepo.GetByEmail(nil, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	exists, err := s.membershipRepo.Exists(nil, institutionID, profile.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyMember
	}
	member := &models.InstitutionMember{
		InstitutionID: institutionID,
		UserID:        profile.ID,
	}
	if err := s.membershipRepo.Add(nil, member); err != nil {
		return nil, err
	}
	log.Printf("[INFO] AddStudent: %s added to institution %s", email, institutionID)
	return profile, nil
}

func (s *catalogService) RemoveStudent(institutionID, adminID, userID string) error {
	if _, err := s.ownedInstitution(nil, institutionID, adminID); err != nil {
		return err
	}
	return s.membershipRepo.Remove(nil, institutionID, userID)
}

// ListStudents returns the profiles on an institution's roster.
func (s *catalogService) ListStudents(institutionID string) ([]models.Profile, error) {
	if _, err := s.institutionRepo.GetByID(nil, institutionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInstitutionNotFound
		}
		return nil, err
	}
	members, err := s.membershipRepo.ListByInstitution(nil, institutionID)
	if err != nil {
		return nil, err
	}
	profiles := make([]models.Profile, 0, len(members))
	for _, m := range members {
		profile, err := s.profileRepo.GetByID(nil, m.UserID)
		if err != nil {
			log.Printf("[WARN] ListStudents: no profile for member %s: %v", m.UserID, err)
			continue
		}
		profiles = append(profiles, *profile)
	}
	return profiles, nil
}

// ─── Admin Queries ────────────────────────────────────────────────────────────

// ListUsers returns all profiles for the admin user table.
func (s *catalogService) ListUsers() ([]models.Profile, error) {
	return s.profileRepo.List(nil)
}

// Overview counts orders and items for one catalog, checking that the
// catalog actually belongs to the given institution.
func (s *catalogService) Overview(institutionID, catalogID string) (*CatalogOverview, error) {
	catalog, err := s.catalogRepo.GetByID(nil, catalogID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCatalogNotFound
		}
		return nil, err
	}
	if catalog.InstitutionID != institutionID {
		return nil, ErrCatalogNotFound
	}
	orders, err := s.orderRepo.CountByCatalog(nil, catalogID)
	if err != nil {
		return nil, err
	}
	items, err := s.itemRepo.CountByCatalog(nil, catalogID)
	if err != nil {
		return nil, err
	}
	return &CatalogOverview{TotalOrders: orders, TotalItems: items}, nil
}
