package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/platemint/backend/internal/middleware"
	"github.com/platemint/backend/internal/models"
	"github.com/platemint/backend/internal/service"
	"github.com/platemint/backend/internal/session"
	"github.com/platemint/backend/internal/validation"
)

// RecipeHandler serves recipe CRUD plus ratings, comments and favorites.
type RecipeHandler struct {
	recipeService *service.RecipeService
	authService   *service.AuthService
	imageService  ImageUploader
	sessions      *session.Store
	createLimiter *middleware.RateLimiter
}

func NewRecipeHandler(recipeService *service.RecipeService, authService *service.AuthService, imageService ImageUploader, sessions *session.Store, createLimiter *middleware.RateLimiter) *RecipeHandler {
	return &RecipeHandler{
		recipeService: recipeService,
		authService:   authService,
		imageService:  imageService,
		sessions:      sessions,
		createLimiter: createLimiter,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes")
	{
		recipes.GET("", middleware.OptionalAuth(h.authService), h.ListRecipes)
		recipes.GET("/:id", middleware.OptionalAuth(h.authService), h.GetRecipe)

		authed := recipes.Group("", middleware.AuthMiddleware(h.authService))
		{
			create := authed.Group("")
			if h.createLimiter != nil {
				create.Use(h.createLimiter.RateLimitMiddleware())
			}
			create.POST("", h.CreateRecipe)

			authed.PUT("/:id", h.UpdateRecipe)
			authed.DELETE("/:id", h.DeleteRecipe)
			authed.POST("/:id/image", h.UploadImage)
			authed.PUT("/:id/rating", h.RateRecipe)
			authed.POST("/:id/comments", h.AddComment)
			authed.POST("/:id/favorite", h.FavoriteRecipe)
			authed.DELETE("/:id/favorite", h.UnfavoriteRecipe)
			authed.GET("/favorites", h.ListFavorites)
		}
	}
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	opts := service.ListOptions{
		Query:     c.Query("q"),
		Category:  c.Query("category"),
		CreatedBy: c.Query("created_by"),
		Sort:      c.Query("sort"),
	}

	recipes, err := h.recipeService.ListRecipes(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recipes"})
		return
	}

	// Searches by signed-in users feed the suggestion surfaces.
	if userID, _, ok := currentUser(c); ok && opts.Query != "" && h.sessions != nil {
		if err := h.sessions.TrackSearch(c.Request.Context(), userID, opts.Query); err != nil {
			log.Warn().Err(err).Msg("failed to track search")
		}
	}

	c.JSON(http.StatusOK, gin.H{"recipes": toRecipeResponses(recipes)})
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	recipe, err := h.recipeService.GetRecipe(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}

	if userID, _, ok := currentUser(c); ok && h.sessions != nil {
		if err := h.sessions.TrackRecipeView(c.Request.Context(), userID, id); err != nil {
			log.Warn().Err(err).Msg("failed to track recipe view")
		}
	}

	c.JSON(http.StatusOK, toRecipeResponse(*recipe))
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	userID, username, ok := requireUser(c)
	if !ok {
		return
	}

	var form validation.RecipeForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	form.Normalize()
	if errs := validation.Check(form); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
		return
	}

	recipe := recipeFromForm(form)
	recipe.UserID = userID
	recipe.CreatedBy = username

	created, err := h.recipeService.CreateRecipe(c.Request.Context(), recipe)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create recipe"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"recipe": toRecipeResponse(*created)})
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	userID, _, ok := requireUser(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	var form validation.RecipeForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	form.Normalize()
	if errs := validation.Check(form); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
		return
	}

	updated, err := h.recipeService.UpdateRecipe(c.Request.Context(), id, userID, recipeFromForm(form))
	if err != nil {
		respondServiceError(c, err, "Failed to update recipe")
		return
	}

	c.JSON(http.StatusOK, gin.H{"recipe": toRecipeResponse(*updated)})
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	userID, _, ok := requireUser(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	if err := h.recipeService.DeleteRecipe(c.Request.Context(), id, userID); err != nil {
		respondServiceError(c, err, "Failed to delete recipe")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Recipe deleted successfully", "id": id})
}

// UploadImage stores a recipe photo and points the recipe at it. Ownership is
// checked before the upload so strangers cannot push objects into the bucket.
func (h *RecipeHandler) UploadImage(c *gin.Context) {
	userID, _, ok := requireUser(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}
	if h.imageService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
		return
	}

	recipe, err := h.recipeService.GetRecipe(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "Failed to upload image")
		return
	}
	if recipe.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the owner"})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	defer file.Close()

	url, err := h.imageService.UploadRecipeImage(c.Request.Context(), id, file, header.Header.Get("Content-Type"))
	if err != nil {
		log.Error().Err(err).Str("recipe_id", id.String()).Msg("recipe image upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload image"})
		return
	}

	updated, err := h.recipeService.SetImageURL(c.Request.Context(), id, userID, url)
	if err != nil {
		respondServiceError(c, err, "Failed to upload image")
		return
	}

	c.JSON(http.StatusOK, gin.H{"image_url": url, "recipe": toRecipeResponse(*updated)})
}

type rateRequest struct {
	Rating int `json:"rating"`
}

func (h *RecipeHandler) RateRecipe(c *gin.Context) {
	userID, _, ok := requireUser(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipe, err := h.recipeService.Rate(c.Request.Context(), id, userID, req.Rating)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRating) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		respondServiceError(c, err, "Failed to rate recipe")
		return
	}

	c.JSON(http.StatusOK, gin.H{"recipe": toRecipeResponse(*recipe)})
}

func (h *RecipeHandler) AddComment(c *gin.Context) {
	userID, username, ok := requireUser(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	var form validation.CommentForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if errs := validation.Check(form); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
		return
	}

	comment, err := h.recipeService.AddComment(c.Request.Context(), id, userID, username, form.Text)
	if err != nil {
		respondServiceError(c, err, "Failed to add comment")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

func (h *RecipeHandler) FavoriteRecipe(c *gin.Context) {
	userID, _, ok := requireUser(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	if err := h.recipeService.Favorite(c.Request.Context(), id, userID); err != nil {
		respondServiceError(c, err, "Failed to favorite recipe")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Recipe favorited successfully", "id": id})
}

func (h *RecipeHandler) UnfavoriteRecipe(c *gin.Context) {
	userID, _, ok := requireUser(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	if err := h.recipeService.Unfavorite(c.Request.Context(), id, userID); err != nil {
		respondServiceError(c, err, "Failed to unfavorite recipe")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Recipe unfavorited successfully", "id": id})
}

func (h *RecipeHandler) ListFavorites(c *gin.Context) {
	userID, _, ok := requireUser(c)
	if !ok {
		return
	}

	ids, err := h.recipeService.FavoriteIDs(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch favorites"})
		return
	}

	out := make([]uuid.UUID, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	c.JSON(http.StatusOK, gin.H{"favorites": out})
}

func recipeFromForm(form validation.RecipeForm) *models.Recipe {
	return &models.Recipe{
		Title:        form.Title,
		Description:  form.Description,
		Category:     form.Category,
		CookingTime:  form.CookingTime,
		Servings:     form.Servings,
		Ingredients:  models.JSONBStringArray(form.Ingredients),
		Instructions: form.Instructions,
		DietaryTags:  models.JSONBStringArray(form.DietaryTags),
		ImageURL:     form.ImageURL,
		Calories:     form.Calories,
		Protein:      form.Protein,
		Fat:          form.Fat,
		Carbs:        form.Carbs,
	}
}

func respondServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not the owner"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
