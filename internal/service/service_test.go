package service

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/platemint/backend/internal/models"
)

// setupDB opens a private in-memory database and migrates the schema. Each
// test gets its own database; the shared-cache DSN keeps every pooled
// connection pointed at the same one.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Recipe{},
		&models.Rating{},
		&models.Comment{},
		&models.RecipeFavorite{},
		&models.SavedMealPlan{},
	)
	require.NoError(t, err)
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createRecipe(t *testing.T, db *gorm.DB, owner *models.User, title string) *models.Recipe {
	t.Helper()
	recipe := &models.Recipe{
		Title:        title,
		Category:     "Dinner",
		CookingTime:  30,
		Servings:     2,
		Ingredients:  models.JSONBStringArray{"salt"},
		Instructions: "Cook.",
		CreatedBy:    owner.Username,
		UserID:       owner.ID,
	}
	require.NoError(t, db.Create(recipe).Error)
	return recipe
}
