package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/platemint/backend/internal/middleware"
	"github.com/platemint/backend/internal/ranking"
	"github.com/platemint/backend/internal/service"
	"github.com/platemint/backend/internal/session"
)

// DiscoverHandler serves the suggested and trending surfaces. Both respond
// with recipes ordered by average rating; the per-recipe scores ride along so
// clients can surface them.
type DiscoverHandler struct {
	recipeService *service.RecipeService
	authService   *service.AuthService
	sessions      *session.Store
}

func NewDiscoverHandler(recipeService *service.RecipeService, authService *service.AuthService, sessions *session.Store) *DiscoverHandler {
	return &DiscoverHandler{
		recipeService: recipeService,
		authService:   authService,
		sessions:      sessions,
	}
}

func (h *DiscoverHandler) RegisterRoutes(router *gin.RouterGroup) {
	discover := router.Group("/discover")
	discover.Use(middleware.OptionalAuth(h.authService))
	{
		discover.GET("/suggested", h.Suggested)
		discover.GET("/trending", h.Trending)
	}
}

type scoredRecipe struct {
	RecipeResponse
	Score float64 `json:"score"`
}

func (h *DiscoverHandler) Suggested(c *gin.Context) {
	recipes, err := h.recipeService.ListRecipes(c.Request.Context(), service.ListOptions{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recipes"})
		return
	}

	category := c.Query("category")
	suggested := ranking.Suggested(recipes, category)

	var prefs ranking.Preferences
	if userID, _, ok := currentUser(c); ok {
		prefs = h.preferencesFor(c, userID)
	}

	out := make([]scoredRecipe, 0, len(suggested))
	for i := range suggested {
		out = append(out, scoredRecipe{
			RecipeResponse: toRecipeResponse(suggested[i]),
			Score:          ranking.PersonalizationScore(&suggested[i], prefs),
		})
	}

	c.JSON(http.StatusOK, gin.H{"recipes": out})
}

func (h *DiscoverHandler) Trending(c *gin.Context) {
	recipes, err := h.recipeService.ListRecipes(c.Request.Context(), service.ListOptions{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recipes"})
		return
	}

	now := time.Now()
	trending := ranking.Trending(recipes)

	out := make([]scoredRecipe, 0, len(trending))
	for i := range trending {
		out = append(out, scoredRecipe{
			RecipeResponse: toRecipeResponse(trending[i]),
			Score:          ranking.TrendingScore(&trending[i], now),
		})
	}

	c.JSON(http.StatusOK, gin.H{"recipes": out})
}

// preferencesFor assembles the personalization context from the activity
// cache and the user's stored dietary preferences. Missing pieces degrade to
// empty signals rather than failing the request.
func (h *DiscoverHandler) preferencesFor(c *gin.Context, userID uuid.UUID) ranking.Preferences {
	var prefs ranking.Preferences
	ctx := c.Request.Context()

	if user, err := h.authService.GetUser(ctx, userID); err == nil {
		prefs.DietaryPreferences = user.DietaryPreferences
	}

	favIDs, err := h.recipeService.FavoriteIDs(ctx, userID)
	if err == nil && len(favIDs) > 0 {
		prefs.FavoriteCategories = h.categoriesFor(ctx, favIDs)
	}

	if h.sessions == nil {
		return prefs
	}

	if searches, err := h.sessions.RecentSearches(ctx, userID, ranking.MaxRecentSearches); err == nil {
		prefs.RecentSearches = searches
	} else {
		log.Warn().Err(err).Msg("recent searches unavailable")
	}

	if viewed, err := h.sessions.RecentlyViewed(ctx, userID, session.MaxRecent); err == nil && len(viewed) > 0 {
		set := make(map[uuid.UUID]bool, len(viewed))
		for _, id := range viewed {
			set[id] = true
		}
		prefs.RecentlyViewedCategories = h.categoriesFor(ctx, set)
	}

	return prefs
}

func (h *DiscoverHandler) categoriesFor(ctx context.Context, ids map[uuid.UUID]bool) []string {
	recipes, err := h.recipeService.ListRecipes(ctx, service.ListOptions{})
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var categories []string
	for i := range recipes {
		r := &recipes[i]
		if ids[r.ID] && r.Category != "" && !seen[r.Category] {
			seen[r.Category] = true
			categories = append(categories, r.Category)
		}
	}
	return categories
}
