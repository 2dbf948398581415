package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platemint/backend/internal/models"
)

func TestCreateAndGetRecipe(t *testing.T) {
	db := setupDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()
	owner := createUser(t, db, "alice")

	created, err := svc.CreateRecipe(ctx, &models.Recipe{
		Title:        "Ramen",
		Category:     "Dinner",
		CookingTime:  45,
		Servings:     2,
		Ingredients:  models.JSONBStringArray{"noodles", "broth"},
		Instructions: "Boil.",
		CreatedBy:    owner.Username,
		UserID:       owner.ID,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	got, err := svc.GetRecipe(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ramen", got.Title)
	assert.Equal(t, models.JSONBStringArray{"noodles", "broth"}, got.Ingredients)
}

func TestGetRecipeNotFound(t *testing.T) {
	db := setupDB(t)
	svc := NewRecipeService(db)

	_, err := svc.GetRecipe(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRecipeOwnerOnly(t *testing.T) {
	db := setupDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	recipe := createRecipe(t, db, alice, "Stew")

	_, err := svc.UpdateRecipe(ctx, recipe.ID, bob.ID, &models.Recipe{Title: "Stolen"})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.UpdateRecipe(ctx, recipe.ID, alice.ID, &models.Recipe{
		Title:        "Beef Stew",
		Category:     "Dinner",
		CookingTime:  90,
		Servings:     4,
		Ingredients:  models.JSONBStringArray{"beef"},
		Instructions: "Simmer.",
	})
	require.NoError(t, err)
	assert.Equal(t, "Beef Stew", updated.Title)
	// Provenance never moves.
	assert.Equal(t, alice.ID, updated.UserID)
	assert.Equal(t, "alice", updated.CreatedBy)
}

func TestSetImageURLOwnerOnly(t *testing.T) {
	db := setupDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	recipe := createRecipe(t, db, alice, "Pretty Pie")

	_, err := svc.SetImageURL(ctx, recipe.ID, bob.ID, "https://cdn.example/theirs.jpg")
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.SetImageURL(ctx, recipe.ID, alice.ID, "https://cdn.example/pie.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/pie.jpg", updated.ImageURL)
	// Only the image moved.
	assert.Equal(t, "Pretty Pie", updated.Title)

	_, err = svc.SetImageURL(ctx, uuid.New(), alice.ID, "https://cdn.example/ghost.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRecipeOwnerOnly(t *testing.T) {
	db := setupDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	recipe := createRecipe(t, db, alice, "Stew")

	assert.ErrorIs(t, svc.DeleteRecipe(ctx, recipe.ID, bob.ID), ErrForbidden)

	require.NoError(t, svc.DeleteRecipe(ctx, recipe.ID, alice.ID))
	_, err := svc.GetRecipe(ctx, recipe.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRecipesSearch(t *testing.T) {
	db := setupDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")

	garlic := createRecipe(t, db, alice, "Garlic Bread")
	createRecipe(t, db, alice, "Pancakes")

	got, err := svc.ListRecipes(ctx, ListOptions{Query: "garlic"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, garlic.ID, got[0].ID)
}

func TestListRecipesSearchIngredients(t *testing.T) {
	db := setupDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")

	r := &models.Recipe{
		Title:        "Mystery Dish",
		CookingTime:  10,
		Servings:     1,
		Ingredients:  models.JSONBStringArray{"saffron", "rice"},
		Instructions: "Mix.",
		CreatedBy:    alice.Username,
		UserID:       alice.ID,
	}
	require.NoError(t, db.Create(r).Error)

	got, err := svc.ListRecipes(ctx, ListOptions{Query: "saffron"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, r.ID, got[0].ID)
}

func TestListRecipesCategoryFilter(t *testing.T) {
	db := setupDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")

	dinner := createRecipe(t, db, alice, "Stew")
	breakfast := &models.Recipe{
		Title:        "Omelette",
		Category:     "Breakfast",
		CookingTime:  10,
		Servings:     1,
		Ingredients:  models.JSONBStringArray{"eggs"},
		Instructions: "Whisk.",
		CreatedBy:    alice.Username,
		UserID:       alice.ID,
	}
	require.NoError(t, db.Create(breakfast).Error)

	got, err := svc.ListRecipes(ctx, ListOptions{Category: "Dinner"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, dinner.ID, got[0].ID)

	all, err := svc.ListRecipes(ctx, ListOptions{Category: "All"})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListRecipesSortModes(t *testing.T) {
	db := setupDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	zebra := createRecipe(t, db, alice, "Zebra Cake")
	apple := createRecipe(t, db, alice, "Apple Pie")

	// bob rates apple higher than zebra
	_, err := svc.Rate(ctx, apple.ID, bob.ID, 5)
	require.NoError(t, err)
	_, err = svc.Rate(ctx, zebra.ID, bob.ID, 2)
	require.NoError(t, err)

	alpha, err := svc.ListRecipes(ctx, ListOptions{Sort: "alphabetical"})
	require.NoError(t, err)
	assert.Equal(t, "Apple Pie", alpha[0].Title)

	oldest, err := svc.ListRecipes(ctx, ListOptions{Sort: "oldest"})
	require.NoError(t, err)
	assert.Equal(t, zebra.ID, oldest[0].ID)

	byRating, err := svc.ListRecipes(ctx, ListOptions{Sort: "rating"})
	require.NoError(t, err)
	assert.Equal(t, apple.ID, byRating[0].ID)
}

func TestRateOverwrites(t *testing.T) {
	db := setupDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	recipe := createRecipe(t, db, alice, "Stew")

	rated, err := svc.Rate(ctx, recipe.ID, bob.ID, 2)
	require.NoError(t, err)
	require.Len(t, rated.Ratings, 1)
	assert.Equal(t, 2, rated.Ratings[0].Value)

	// Rating again replaces, never appends.
	rated, err = svc.Rate(ctx, recipe.ID, bob.ID, 5)
	require.NoError(t, err)
	require.Len(t, rated.Ratings, 1)
	assert.Equal(t, 5, rated.Ratings[0].Value)
}

func TestRateTwoUsersAccumulate(t *testing.T) {
	db := setupDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")
	recipe := createRecipe(t, db, alice, "Stew")

	_, err := svc.Rate(ctx, recipe.ID, bob.ID, 3)
	require.NoError(t, err)
	rated, err := svc.Rate(ctx, recipe.ID, carol.ID, 5)
	require.NoError(t, err)
	assert.Len(t, rated.Ratings, 2)
}

func TestRateValidation(t *testing.T) {
	db := setupDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	recipe := createRecipe(t, db, alice, "Stew")

	_, err := svc.Rate(ctx, recipe.ID, alice.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = svc.Rate(ctx, recipe.ID, alice.ID, 6)
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = svc.Rate(ctx, uuid.New(), alice.ID, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddComment(t *testing.T) {
	db := setupDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	recipe := createRecipe(t, db, alice, "Stew")

	comment, err := svc.AddComment(ctx, recipe.ID, bob.ID, bob.Username, "Delicious")
	require.NoError(t, err)
	assert.Equal(t, "bob", comment.Username)

	got, err := svc.GetRecipe(ctx, recipe.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "Delicious", got.Comments[0].Text)

	_, err = svc.AddComment(ctx, uuid.New(), bob.ID, bob.Username, "lost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFavoriteIdempotent(t *testing.T) {
	db := setupDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	recipe := createRecipe(t, db, alice, "Stew")

	require.NoError(t, svc.Favorite(ctx, recipe.ID, bob.ID))
	require.NoError(t, svc.Favorite(ctx, recipe.ID, bob.ID))

	ids, err := svc.FavoriteIDs(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
	assert.True(t, ids[recipe.ID])
}

func TestUnfavorite(t *testing.T) {
	db := setupDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	recipe := createRecipe(t, db, alice, "Stew")

	require.NoError(t, svc.Favorite(ctx, recipe.ID, bob.ID))
	require.NoError(t, svc.Unfavorite(ctx, recipe.ID, bob.ID))

	ids, err := svc.FavoriteIDs(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Unfavoriting something never favorited is a no-op.
	require.NoError(t, svc.Unfavorite(ctx, recipe.ID, bob.ID))
}

func TestDeleteRecipeLeavesFavorites(t *testing.T) {
	db := setupDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	recipe := createRecipe(t, db, alice, "Stew")

	require.NoError(t, svc.Favorite(ctx, recipe.ID, bob.ID))
	require.NoError(t, svc.DeleteRecipe(ctx, recipe.ID, alice.ID))

	// The stale favorite row survives; clients drop it on resync.
	ids, err := svc.FavoriteIDs(ctx, bob.ID)
	require.NoError(t, err)
	assert.True(t, ids[recipe.ID])
}
