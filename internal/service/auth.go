package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/platemint/backend/internal/middleware"
	"github.com/platemint/backend/internal/models"
)

// AuthService handles registration, login, token validation and profile
// updates.
type AuthService struct {
	db        *gorm.DB
	jwtSecret string
}

func NewAuthService(db *gorm.DB, jwtSecret string) *AuthService {
	return &AuthService{
		db:        db,
		jwtSecret: jwtSecret,
	}
}

// Register creates a user and returns a signed token. Emails are unique
// case-insensitively; usernames are unique as written.
func (s *AuthService) Register(ctx context.Context, username, email, password string, dietaryPrefs []string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	var existing models.User
	if err := s.db.WithContext(ctx).Where("LOWER(email) = ?", email).First(&existing).Error; err == nil {
		return "", nil, ErrEmailTaken
	}
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&existing).Error; err == nil {
		return "", nil, ErrUsernameTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}

	user := models.User{
		Username:           username,
		Email:              email,
		PasswordHash:       string(hashedPassword),
		DietaryPreferences: models.JSONBStringArray(dietaryPrefs),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return "", nil, err
	}

	token, err := s.generateToken(user.ID, user.Username)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

// Login verifies credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	if err := s.db.WithContext(ctx).Where("LOWER(email) = ?", email).First(&user).Error; err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(user.ID, user.Username)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

// GetUser loads one user record.
func (s *AuthService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ProfileUpdate is the set of mutable profile fields. Nil pointers leave the
// field untouched.
type ProfileUpdate struct {
	Username           *string
	ProfilePictureURL  *string
	DietaryPreferences *[]string
}

// UpdateProfile applies a profile change. A username change cascades to the
// created_by provenance on the user's recipes, best effort: a failed cascade
// is logged, not surfaced, and catches up on the next change.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	oldUsername := user.Username
	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if username != "" && username != user.Username {
			var existing models.User
			if err := s.db.WithContext(ctx).Where("username = ? AND id <> ?", username, userID).First(&existing).Error; err == nil {
				return nil, ErrUsernameTaken
			}
			user.Username = username
		}
	}
	if update.ProfilePictureURL != nil {
		user.ProfilePictureURL = *update.ProfilePictureURL
	}
	if update.DietaryPreferences != nil {
		user.DietaryPreferences = models.JSONBStringArray(*update.DietaryPreferences)
	}

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, err
	}

	if user.Username != oldUsername {
		err := s.db.WithContext(ctx).Model(&models.Recipe{}).
			Where("created_by = ?", oldUsername).
			Update("created_by", user.Username).Error
		if err != nil {
			log.Warn().Err(err).
				Str("old", oldUsername).
				Str("new", user.Username).
				Msg("username cascade to recipes failed")
		}
	}

	return user, nil
}

func (s *AuthService) generateToken(userID uuid.UUID, username string) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  userID.String(),
		"username": username,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// ValidateToken checks a bearer token and returns its identity claims.
func (s *AuthService) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, err
	}
	username, _ := claims["username"].(string)

	return &middleware.TokenClaims{
		UserID:   userID,
		Username: username,
	}, nil
}
