package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/platemint/backend/internal/middleware"
	"github.com/platemint/backend/internal/service"
	"github.com/platemint/backend/internal/session"
	"github.com/platemint/backend/internal/validation"
)

// AuthHandler serves registration, login and profile management.
type AuthHandler struct {
	authService  *service.AuthService
	imageService ImageUploader
	sessions     *session.Store
}

func NewAuthHandler(authService *service.AuthService, imageService ImageUploader, sessions *session.Store) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		imageService: imageService,
		sessions:     sessions,
	}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", middleware.AuthMiddleware(h.authService), h.Logout)
	}

	profile := router.Group("/profile")
	profile.Use(middleware.AuthMiddleware(h.authService))
	{
		profile.GET("", h.GetProfile)
		profile.PUT("", h.UpdateProfile)
		profile.POST("/picture", h.UploadPicture)
	}
}

type registerRequest struct {
	Username           string   `json:"username"`
	Email              string   `json:"email"`
	Password           string   `json:"password"`
	DietaryPreferences []string `json:"dietary_preferences"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	form := validation.RegisterForm{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}
	if errs := validation.Check(form); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
		return
	}

	token, user, err := h.authService.Register(c.Request.Context(), req.Username, req.Email, req.Password, req.DietaryPreferences)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken), errors.Is(err, service.ErrUsernameTaken):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if h.sessions != nil {
		if err := h.sessions.SaveUserSnapshot(c.Request.Context(), user); err != nil {
			log.Warn().Err(err).Msg("failed to cache user snapshot")
		}
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	userID, _, ok := requireUser(c)
	if !ok {
		return
	}
	if h.sessions != nil {
		if err := h.sessions.ClearUser(c.Request.Context(), userID); err != nil {
			log.Warn().Err(err).Msg("failed to clear session data")
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, _, ok := requireUser(c)
	if !ok {
		return
	}
	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

type profileUpdateRequest struct {
	Username           *string   `json:"username"`
	ProfilePictureURL  *string   `json:"profile_picture_url"`
	DietaryPreferences *[]string `json:"dietary_preferences"`
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, _, ok := requireUser(c)
	if !ok {
		return
	}

	var req profileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), userID, service.ProfileUpdate{
		Username:           req.Username,
		ProfilePictureURL:  req.ProfilePictureURL,
		DietaryPreferences: req.DietaryPreferences,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		}
		return
	}

	if h.sessions != nil {
		if err := h.sessions.SaveUserSnapshot(c.Request.Context(), user); err != nil {
			log.Warn().Err(err).Msg("failed to refresh user snapshot")
		}
	}

	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) UploadPicture(c *gin.Context) {
	userID, _, ok := requireUser(c)
	if !ok {
		return
	}
	if h.imageService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
		return
	}

	file, header, err := c.Request.FormFile("picture")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "picture file is required"})
		return
	}
	defer file.Close()

	url, err := h.imageService.UploadProfilePicture(c.Request.Context(), userID, file, header.Header.Get("Content-Type"))
	if err != nil {
		log.Error().Err(err).Msg("profile picture upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload picture"})
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), userID, service.ProfileUpdate{
		ProfilePictureURL: &url,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile_picture_url": url, "user": user})
}
