package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/platemint/backend/internal/middleware"
	"github.com/platemint/backend/internal/models"
	"github.com/platemint/backend/internal/service"
)

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	auth   *service.AuthService
}

// newTestEnv wires the full handler stack over a private in-memory database.
// The activity cache and image storage are left unconfigured; handlers
// degrade the same way they do in production without redis or S3.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithImages(t, nil)
}

// newTestEnvWithImages is newTestEnv with image storage backed by the given
// uploader.
func newTestEnvWithImages(t *testing.T, images ImageUploader) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Recipe{},
		&models.Rating{},
		&models.Comment{},
		&models.RecipeFavorite{},
		&models.SavedMealPlan{},
	))

	authService := service.NewAuthService(db, "test-secret")
	recipeService := service.NewRecipeService(db)
	planService := service.NewMealPlanService(db)

	router := gin.New()
	router.Use(middleware.Recovery())
	v1 := router.Group("/api/v1")
	NewAuthHandler(authService, images, nil).RegisterRoutes(v1)
	NewRecipeHandler(recipeService, authService, images, nil, nil).RegisterRoutes(v1)
	NewMealPlanHandler(planService, authService, nil).RegisterRoutes(v1)
	NewDiscoverHandler(recipeService, authService, nil).RegisterRoutes(v1)

	return &testEnv{db: db, router: router, auth: authService}
}

// registerUser creates an account through the service and returns the user
// with a valid bearer token.
func (e *testEnv) registerUser(t *testing.T, username string) (*models.User, string) {
	t.Helper()
	token, user, err := e.auth.Register(context.Background(), username, username+"@example.com", "password123", nil)
	require.NoError(t, err)
	return user, token
}

// request performs one request against the in-process router.
func (e *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func (e *testEnv) createRecipe(t *testing.T, token, title string) RecipeResponse {
	t.Helper()
	w := e.request(t, http.MethodPost, "/api/v1/recipes", token, map[string]any{
		"title":        title,
		"category":     "Dinner",
		"cooking_time": 30,
		"servings":     2,
		"ingredients":  []string{"salt", "water"},
		"instructions": "Cook it.",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Recipe RecipeResponse `json:"recipe"`
	}
	decodeBody(t, w, &resp)
	return resp.Recipe
}
