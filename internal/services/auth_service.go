package services

import (
	"errors"
	"log"
	"net/mail"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"inventaire/internal/models"
	"inventaire/internal/repositories"
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrInvalidEmail is returned when the email does not parse.
	ErrInvalidEmail = errors.New("invalid email")

	// ErrPasswordTooShort enforces the 6-character minimum.
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")

	// ErrInvalidRole is returned when the role is neither admin nor user.
	ErrInvalidRole = errors.New("role must be either admin or user")

	// ErrEmailTaken is returned when signing up with an existing email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is deliberately generic: it covers both an
	// unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

const minPasswordLength = 6

// ─── Service Interface ────────────────────────────────────────────────────────

// AuthService handles account creation and password login. The role is
// chosen at signup and never changed through the app.
type AuthService interface {
	Signup(email, password string, role models.RoleName) (*models.User, error)
	Login(email, password string) (*models.User, models.RoleName, error)
	RoleFor(userID string) (models.RoleName, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type authService struct {
	db          *gorm.DB
	userRepo    repositories.UserRepository
	profileRepo repositories.ProfileRepository
	roleRepo    repositories.RoleRepository
}

// NewAuthService wires up all dependencies and returns an AuthService.
func NewAuthService(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	profileRepo repositories.ProfileRepository,
	roleRepo repositories.RoleRepository,
) AuthService {
	return &authService{
		db:          db,
		userRepo:    userRepo,
		profileRepo: profileRepo,
		roleRepo:    roleRepo,
	}
}

// Signup creates the credential row, the profile and the role row in one
// transaction: a duplicate email leaves no partial rows behind.
func (s *authService) Signup(email, password string, role models.RoleName) (*models.User, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if role != models.RoleAdmin && role != models.RoleUser {
		return nil, ErrInvalidRole
	}

	if _, err := s.userRepo.GetByEmail(nil, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           models.NewID(),
		Email:        email,
		PasswordHash: string(hash),
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.Create(tx, user); err != nil {
			return err
		}
		profile := &models.Profile{ID: user.ID, Email: email}
		if err := s.profileRepo.Create(tx, profile); err != nil {
			return err
		}
		return s.roleRepo.Create(tx, &models.Role{UserID: user.ID, Role: role})
	})
	if err != nil {
		log.Printf("[ERROR] Signup: failed to create account for %s: %v", email, err)
		return nil, err
	}
	log.Printf("[INFO] Signup: account created for %s (role=%s)", email, role)
	return user, nil
}

// Login verifies the password and returns the user with their role.
func (s *authService) Login(email, password string) (*models.User, models.RoleName, error) {
	user, err := s.userRepo.GetByEmail(nil, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	role, err := s.roleRepo.GetByUserID(nil, user.ID)
	if err != nil {
		log.Printf("[ERROR] Login: no role row for user %s: %v", user.ID, err)
		return nil, "", err
	}
	return user, role.Role, nil
}

// RoleFor returns the role assigned to a user at signup.
func (s *authService) RoleFor(userID string) (models.RoleName, error) {
	role, err := s.roleRepo.GetByUserID(nil, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	return role.Role, nil
}
