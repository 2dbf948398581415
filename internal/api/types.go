package api

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/platemint/backend/internal/models"
	"github.com/platemint/backend/internal/ranking"
)

// ImageUploader is the slice of the image service the handlers need. A nil
// uploader means image storage is not configured and uploads are refused.
type ImageUploader interface {
	UploadProfilePicture(ctx context.Context, userID uuid.UUID, body io.Reader, contentType string) (string, error)
	UploadRecipeImage(ctx context.Context, recipeID uuid.UUID, body io.Reader, contentType string) (string, error)
}

// RecipeResponse is a recipe with its derived fields attached. The average
// rating is always computed from the ratings list, never stored.
type RecipeResponse struct {
	models.Recipe
	AverageRating float64 `json:"average_rating"`
	CommentCount  int     `json:"comment_count"`
}

func toRecipeResponse(r models.Recipe) RecipeResponse {
	return RecipeResponse{
		Recipe:        r,
		AverageRating: ranking.AverageRating(&r),
		CommentCount:  len(r.Comments),
	}
}

func toRecipeResponses(recipes []models.Recipe) []RecipeResponse {
	out := make([]RecipeResponse, len(recipes))
	for i, r := range recipes {
		out[i] = toRecipeResponse(r)
	}
	return out
}

// currentUser pulls the authenticated identity the auth middleware stored.
func currentUser(c *gin.Context) (uuid.UUID, string, bool) {
	idVal, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, "", false
	}
	id, ok := idVal.(uuid.UUID)
	if !ok {
		return uuid.Nil, "", false
	}
	username, _ := c.Get("username")
	name, _ := username.(string)
	return id, name, true
}

func requireUser(c *gin.Context) (uuid.UUID, string, bool) {
	id, name, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	}
	return id, name, ok
}
