package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platemint/backend/internal/mealplan"
)

func samplePlan() mealplan.Plan {
	g := mealplan.NewGrid()
	_ = g.InsertFromPool(mealplan.Monday, mealplan.Morning, mealplan.RecipeRef{
		RecipeID: uuid.New(),
		Title:    "Porridge",
	})
	_ = g.InsertFromPool(mealplan.Friday, mealplan.Evening, mealplan.RecipeRef{
		RecipeID: uuid.New(),
		Title:    "Pizza",
	})
	return g.Snapshot()
}

func TestSaveAndGetMealPlan(t *testing.T) {
	db := setupDB(t)
	svc := NewMealPlanService(db)
	ctx := context.Background()
	owner := createUser(t, db, "alice")

	saved, err := svc.Save(ctx, owner.ID, "  Week One  ", samplePlan())
	require.NoError(t, err)
	assert.Equal(t, "Week One", saved.Name)
	assert.NotEqual(t, uuid.Nil, saved.ID)

	got, err := svc.Get(ctx, saved.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, mealplan.Plan(got.Plan).Count())

	refs := got.Plan[mealplan.Monday][mealplan.Morning]
	require.Len(t, refs, 1)
	assert.Equal(t, "Porridge", refs[0].Title)
}

func TestSaveRejectsUnknownCells(t *testing.T) {
	db := setupDB(t)
	svc := NewMealPlanService(db)
	ctx := context.Background()
	owner := createUser(t, db, "alice")

	bad := mealplan.Plan{"Someday": {mealplan.Morning: nil}}
	_, err := svc.Save(ctx, owner.ID, "Bad", bad)
	assert.ErrorIs(t, err, mealplan.ErrUnknownCell)
}

func TestSavedPlanIsImmutableSnapshot(t *testing.T) {
	db := setupDB(t)
	svc := NewMealPlanService(db)
	ctx := context.Background()
	owner := createUser(t, db, "alice")

	g := mealplan.NewGrid()
	require.NoError(t, g.InsertFromPool(mealplan.Monday, mealplan.Morning, mealplan.RecipeRef{Title: "Toast"}))
	saved, err := svc.Save(ctx, owner.ID, "Before", g.Snapshot())
	require.NoError(t, err)

	// Keep editing the working grid after saving.
	require.NoError(t, g.InsertFromPool(mealplan.Tuesday, mealplan.Night, mealplan.RecipeRef{Title: "Cake"}))

	got, err := svc.Get(ctx, saved.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, mealplan.Plan(got.Plan).Count())
}

func TestListMealPlansNewestFirst(t *testing.T) {
	db := setupDB(t)
	svc := NewMealPlanService(db)
	ctx := context.Background()
	owner := createUser(t, db, "alice")

	first, err := svc.Save(ctx, owner.ID, "First", samplePlan())
	require.NoError(t, err)
	second, err := svc.Save(ctx, owner.ID, "Second", samplePlan())
	require.NoError(t, err)

	plans, err := svc.List(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, second.ID, plans[0].ID)
	assert.Equal(t, first.ID, plans[1].ID)
}

func TestListMealPlansScopedToOwner(t *testing.T) {
	db := setupDB(t)
	svc := NewMealPlanService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	_, err := svc.Save(ctx, alice.ID, "Mine", samplePlan())
	require.NoError(t, err)

	plans, err := svc.List(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestGetMealPlanOwnership(t *testing.T) {
	db := setupDB(t)
	svc := NewMealPlanService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	saved, err := svc.Save(ctx, alice.ID, "Mine", samplePlan())
	require.NoError(t, err)

	_, err = svc.Get(ctx, saved.ID, bob.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(ctx, uuid.New(), alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteMealPlan(t *testing.T) {
	db := setupDB(t)
	svc := NewMealPlanService(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	saved, err := svc.Save(ctx, alice.ID, "Mine", samplePlan())
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, saved.ID, bob.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, saved.ID, alice.ID))

	// Deleting again reports not found; another session beat us to it.
	assert.ErrorIs(t, svc.Delete(ctx, saved.ID, alice.ID), ErrNotFound)
}
