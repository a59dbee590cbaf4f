package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/forgo/fete/api/internal/database"
	"github.com/forgo/fete/api/internal/model"
	"github.com/forgo/fete/api/internal/storage"
	"github.com/forgo/fete/api/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

const (
	// bcrypt cost factor (10-14 recommended for production)
	bcryptCost = 12

	// Password constraints
	minPasswordLength = 6
	maxPasswordLength = 128
	maxEmailLength    = 254
)

// UserRepository defines the interface for identity storage
type UserRepository interface {
	Create(ctx context.Context, user *model.Identity) error
	GetByID(ctx context.Context, id string) (*model.Identity, error)
	GetByEmail(ctx context.Context, email string) (*model.Identity, error)
	UpdateProfile(ctx context.Context, user *model.Identity) error
}

// TokenSigner issues and verifies bearer tokens
type TokenSigner interface {
	Sign(userID, role string) (string, error)
	Validate(token string) (*jwt.Claims, error)
}

// AuthService handles registration, login and identity resolution
type AuthService struct {
	users  UserRepository
	tokens TokenSigner
	blobs  BlobStore
}

// AuthServiceConfig holds configuration for the auth service
type AuthServiceConfig struct {
	Users  UserRepository
	Tokens TokenSigner
	Blobs  BlobStore
}

// NewAuthService creates a new auth service
func NewAuthService(cfg AuthServiceConfig) *AuthService {
	return &AuthService{
		users:  cfg.Users,
		tokens: cfg.Tokens,
		blobs:  cfg.Blobs,
	}
}

// RegisterInput represents a registration request. ServiceType and Bio only
// apply to vendors.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Role        string
	Phone       string
	ServiceType string
	Bio         *string
}

// LoginInput represents a login request
type LoginInput struct {
	Email    string
	Password string
}

// UpdateMeInput carries a partial profile update. Nil fields are unchanged.
type UpdateMeInput struct {
	Name   *string
	Email  *string
	Phone  *string
	Avatar *Upload
}

// AuthResult is returned by register and login
type AuthResult struct {
	Token string          `json:"token"`
	User  *model.Identity `json:"user"`
}

// Register creates a new organizer or vendor account
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	phone := strings.TrimSpace(in.Phone)
	role := model.Role(strings.TrimSpace(in.Role))

	if name == "" || email == "" || in.Password == "" || role == "" || phone == "" {
		return nil, ErrMissingFields
	}
	if role != model.RoleOrganizer && role != model.RoleVendor {
		return nil, ErrInvalidRole
	}
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(name) > model.MaxNameLength {
		return nil, ErrNameTooLong
	}
	if utf8.RuneCountInString(phone) > model.MaxPhoneLength {
		return nil, ErrPhoneTooLong
	}

	var profile *model.VendorProfile
	if role == model.RoleVendor {
		p, err := newVendorProfile(in.ServiceType, in.Bio)
		if err != nil {
			return nil, err
		}
		profile = p
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyExists
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.Identity{
		Name:          name,
		Email:         email,
		PasswordHash:  hash,
		Role:          role,
		Phone:         phone,
		VendorProfile: profile,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}

	return s.issue(user)
}

// Login authenticates an identity with email and password
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if !checkPassword(in.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// ResolveIdentity verifies a bearer token and loads the identity it names
func (s *AuthService) ResolveIdentity(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	claims, err := s.tokens.Validate(token)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrTokenExpired
	}
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// Me returns the caller's current account
func (s *AuthService) Me(ctx context.Context, caller *model.Identity) (*model.Identity, error) {
	if caller == nil {
		return nil, ErrNotAuthenticated
	}
	user, err := s.users.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateMe edits the caller's name, email, phone and avatar. The role is fixed
// at registration.
func (s *AuthService) UpdateMe(ctx context.Context, caller *model.Identity, in UpdateMeInput) (*model.Identity, error) {
	user, err := s.Me(ctx, caller)
	if err != nil {
		return nil, err
	}
	if in.Name == nil && in.Email == nil && in.Phone == nil && in.Avatar == nil {
		return nil, ErrEmptyProfileUpdate
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, ErrEmptyRequiredFields
		}
		if utf8.RuneCountInString(name) > model.MaxNameLength {
			return nil, ErrNameTooLong
		}
		user.Name = name
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		if phone == "" {
			return nil, ErrEmptyRequiredFields
		}
		if utf8.RuneCountInString(phone) > model.MaxPhoneLength {
			return nil, ErrPhoneTooLong
		}
		user.Phone = phone
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email == "" {
			return nil, ErrEmptyRequiredFields
		}
		if !isValidEmail(email) {
			return nil, ErrInvalidEmail
		}
		if email != user.Email {
			other, err := s.users.GetByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if other != nil && other.ID != user.ID {
				return nil, ErrEmailAlreadyExists
			}
		}
		user.Email = email
	}

	var previousAvatar *string
	if in.Avatar != nil {
		url, err := storeImage(ctx, s.blobs, storage.ClassAvatar, in.Avatar)
		if err != nil {
			return nil, err
		}
		previousAvatar = user.AvatarURL
		user.AvatarURL = &url
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		if in.Avatar != nil {
			discardImages(ctx, s.blobs, *user.AvatarURL)
		}
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}

	if previousAvatar != nil {
		discardImages(ctx, s.blobs, *previousAvatar)
	}
	return user, nil
}

func (s *AuthService) issue(user *model.Identity) (*AuthResult, error) {
	token, err := s.tokens.Sign(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// newVendorProfile builds the profile a vendor registers with
func newVendorProfile(serviceType string, bio *string) (*model.VendorProfile, error) {
	st := model.ServiceType(strings.TrimSpace(serviceType))
	if st == "" {
		st = model.ServiceUnknown
	}
	if !st.IsValid() {
		return nil, ErrInvalidServiceType
	}

	profile := &model.VendorProfile{ServiceType: st}
	if b := trimmedPtr(bio); b != nil && *b != "" {
		if utf8.RuneCountInString(*b) > model.MaxBioLength {
			return nil, ErrBioTooLong
		}
		profile.Bio = b
	}
	return profile, nil
}

// Helper functions

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > maxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidEmail(email string) bool {
	// Basic email validation
	if email == "" || len(email) > maxEmailLength {
		return false
	}
	atIndex := strings.Index(email, "@")
	if atIndex < 1 || strings.Count(email, "@") != 1 {
		return false
	}
	dotIndex := strings.LastIndex(email, ".")
	if dotIndex < atIndex+2 {
		return false
	}
	if dotIndex >= len(email)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n")
}
