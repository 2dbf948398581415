package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platemint/backend/internal/models"
	"github.com/platemint/backend/internal/ranking"
)

// RecipeService handles recipe operations
type RecipeService struct {
	db *gorm.DB
}

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(db *gorm.DB) *RecipeService {
	return &RecipeService{db: db}
}

// ListOptions narrows and orders a recipe listing.
type ListOptions struct {
	// Query substring-matches title, description or any ingredient,
	// case-insensitively.
	Query string
	// Category filters exactly; empty or "All" means no filter.
	Category string
	// CreatedBy filters by owner username.
	CreatedBy string
	// Sort is one of newest, oldest, rating, alphabetical. Empty means
	// newest.
	Sort string
}

// CreateRecipe creates a new recipe
func (s *RecipeService) CreateRecipe(ctx context.Context, recipe *models.Recipe) (*models.Recipe, error) {
	if err := s.db.WithContext(ctx).Create(recipe).Error; err != nil {
		return nil, err
	}
	return recipe, nil
}

// GetRecipe retrieves a recipe by ID with its ratings and comments.
func (s *RecipeService) GetRecipe(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).
		Preload("Ratings").Preload("Comments").
		First(&recipe, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

// UpdateRecipe applies field updates to a recipe owned by userID.
func (s *RecipeService) UpdateRecipe(ctx context.Context, id, userID uuid.UUID, updates *models.Recipe) (*models.Recipe, error) {
	existing, err := s.GetRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID {
		return nil, ErrForbidden
	}

	// Provenance fields never move.
	updates.ID = id
	updates.UserID = existing.UserID
	updates.CreatedBy = existing.CreatedBy
	updates.CreatedAt = existing.CreatedAt

	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetRecipe(ctx, id)
}

// SetImageURL points a recipe owned by userID at a newly uploaded image.
func (s *RecipeService) SetImageURL(ctx context.Context, id, userID uuid.UUID, url string) (*models.Recipe, error) {
	existing, err := s.GetRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID {
		return nil, ErrForbidden
	}
	err = s.db.WithContext(ctx).Model(&models.Recipe{}).
		Where("id = ?", id).
		Update("image_url", url).Error
	if err != nil {
		return nil, err
	}
	return s.GetRecipe(ctx, id)
}

// DeleteRecipe removes a recipe owned by userID. Favorites and plan
// references pointing at it are left alone; plans tolerate stale entries.
func (s *RecipeService) DeleteRecipe(ctx context.Context, id, userID uuid.UUID) error {
	existing, err := s.GetRecipe(ctx, id)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return ErrForbidden
	}
	return s.db.WithContext(ctx).Delete(&models.Recipe{}, "id = ?", id).Error
}

// ListRecipes returns recipes matching opts, ratings and comments preloaded.
func (s *RecipeService) ListRecipes(ctx context.Context, opts ListOptions) ([]models.Recipe, error) {
	query := s.db.WithContext(ctx).Preload("Ratings").Preload("Comments")

	if q := strings.TrimSpace(opts.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where(
			"LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(ingredients::text) LIKE ?",
			like, like, like,
		)
		if s.db.Dialector.Name() != "postgres" {
			query = s.db.WithContext(ctx).Preload("Ratings").Preload("Comments").Where(
				"LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(ingredients) LIKE ?",
				like, like, like,
			)
		}
	}
	if opts.Category != "" && opts.Category != "All" {
		query = query.Where("category = ?", opts.Category)
	}
	if opts.CreatedBy != "" {
		query = query.Where("created_by = ?", opts.CreatedBy)
	}

	switch opts.Sort {
	case "oldest":
		query = query.Order("created_at ASC")
	case "alphabetical":
		query = query.Order("LOWER(title) ASC")
	case "rating", "":
		// rating order is derived from the ratings list, applied below
		query = query.Order("created_at DESC")
	default:
		query = query.Order("created_at DESC")
	}

	var recipes []models.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return nil, err
	}

	if opts.Sort == "rating" {
		recipes = ranking.Suggested(recipes, "")
	}
	return recipes, nil
}

// Rate records one user's 1-5 vote with overwrite semantics: rating twice
// replaces, never appends.
func (s *RecipeService) Rate(ctx context.Context, recipeID, userID uuid.UUID, value int) (*models.Recipe, error) {
	if value < 1 || value > 5 {
		return nil, ErrInvalidRating
	}
	if _, err := s.GetRecipe(ctx, recipeID); err != nil {
		return nil, err
	}

	var rating models.Rating
	err := s.db.WithContext(ctx).
		Where("recipe_id = ? AND user_id = ?", recipeID, userID).
		First(&rating).Error
	switch {
	case err == nil:
		rating.Value = value
		if err := s.db.WithContext(ctx).Save(&rating).Error; err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		rating = models.Rating{RecipeID: recipeID, UserID: userID, Value: value}
		if err := s.db.WithContext(ctx).Create(&rating).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return s.GetRecipe(ctx, recipeID)
}

// AddComment appends a comment to a recipe.
func (s *RecipeService) AddComment(ctx context.Context, recipeID, userID uuid.UUID, username, text string) (*models.Comment, error) {
	if _, err := s.GetRecipe(ctx, recipeID); err != nil {
		return nil, err
	}
	comment := models.Comment{
		RecipeID: recipeID,
		UserID:   userID,
		Username: username,
		Text:     text,
	}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// Favorite marks a recipe as a favorite of userID; idempotent.
func (s *RecipeService) Favorite(ctx context.Context, recipeID, userID uuid.UUID) error {
	if _, err := s.GetRecipe(ctx, recipeID); err != nil {
		return err
	}
	var existing models.RecipeFavorite
	err := s.db.WithContext(ctx).
		Where("recipe_id = ? AND user_id = ?", recipeID, userID).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	fav := models.RecipeFavorite{RecipeID: recipeID, UserID: userID}
	return s.db.WithContext(ctx).Create(&fav).Error
}

// Unfavorite removes a favorite; removing a non-favorite is a no-op.
func (s *RecipeService) Unfavorite(ctx context.Context, recipeID, userID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("recipe_id = ? AND user_id = ?", recipeID, userID).
		Delete(&models.RecipeFavorite{}).Error
}

// FavoriteIDs returns the set of recipe ids userID has favorited.
func (s *RecipeService) FavoriteIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	var favs []models.RecipeFavorite
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&favs).Error; err != nil {
		return nil, err
	}
	ids := make(map[uuid.UUID]bool, len(favs))
	for _, f := range favs {
		ids[f.RecipeID] = true
	}
	return ids, nil
}
