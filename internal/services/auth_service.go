package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"ocha/internal/apperr"
	"ocha/internal/models"
	"ocha/internal/repositories"
	"ocha/internal/validation"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// RegisterInput is the payload of a new account.
type RegisterInput struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,min=8,max=72,password"`
	DisplayName string `json:"display_name" validate:"required,min=3,max=30,displayname"`
	Phone       string `json:"phone" validate:"omitempty,phone"`
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo    repositories.UserRepository
	validate    *validation.Validator
	jwtSecret   []byte
	tokenDurat  time.Duration // Duration for which JWT is valid
	adminEmails map[string]bool
}

// NewAuthService creates a new AuthService. Accounts registered with one of
// adminEmails get the admin role.
func NewAuthService(userRepo repositories.UserRepository, validate *validation.Validator, jwtSecret string, tokenTTL time.Duration, adminEmails []string) *AuthService {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		admins[normalizeEmail(e)] = true
	}
	return &AuthService{
		userRepo:    userRepo,
		validate:    validate,
		jwtSecret:   []byte(jwtSecret),
		tokenDurat:  tokenTTL,
		adminEmails: admins,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterUser validates the input, hashes the password and stores the user.
// It returns the new user and a token for it.
func (s *AuthService) RegisterUser(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	in.Email = normalizeEmail(in.Email)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if err := s.validate.Struct(&in); err != nil {
		return nil, "", err
	}

	// Check if display name or email already exists
	if existing, err := s.userRepo.GetByEmail(ctx, in.Email); err == nil && existing != nil {
		return nil, "", apperr.Conflict(apperr.CodeDuplicate, "email '%s' already registered", in.Email)
	} else if err != nil && !apperr.Is(err, apperr.CodeUserNotFound) {
		return nil, "", err
	}
	if existing, err := s.userRepo.GetByDisplayName(ctx, in.DisplayName); err == nil && existing != nil {
		return nil, "", apperr.Conflict(apperr.CodeDuplicate, "display name '%s' already taken", in.DisplayName)
	} else if err != nil && !apperr.Is(err, apperr.CodeUserNotFound) {
		return nil, "", err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", apperr.Internal(err, "failed to hash password")
	}

	user := &models.User{
		Email:       in.Email,
		DisplayName: in.DisplayName,
		Phone:       in.Phone,
		Role:        models.RoleUser,
		Password:    string(hashedPassword),
	}
	if s.adminEmails[in.Email] {
		user.Role = models.RoleAdmin
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// LoginUser authenticates a user by email and returns a JWT token if successful.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperr.Is(err, apperr.CodeUserNotFound) {
			// Do not reveal whether the email exists.
			return "", nil, apperr.Unauthorized("invalid credentials")
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, apperr.Unauthorized("invalid credentials")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"exp":     now.Add(s.tokenDurat).Unix(),
		"iat":     now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", apperr.Internal(err, "failed to generate token")
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, apperr.Unauthorized("invalid token")
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, apperr.Unauthorized("invalid token")
}

// Authenticate resolves a bearer token to the caller. The user must still
// exist; the role comes from the stored user, not from the token.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, apperr.Unauthorized("invalid token")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.CodeUserNotFound) {
			return nil, apperr.Unauthorized("user no longer exists")
		}
		return nil, err
	}
	return user, nil
}

// GetUser returns the user with the given ID.
func (s *AuthService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}
