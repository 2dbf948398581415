package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platemint/backend/internal/mealplan"
	"github.com/platemint/backend/internal/models"
)

// MealPlanService persists named snapshots of working meal plan grids.
type MealPlanService struct {
	db *gorm.DB
}

func NewMealPlanService(db *gorm.DB) *MealPlanService {
	return &MealPlanService{db: db}
}

// Save stores an immutable named snapshot for ownerID.
func (s *MealPlanService) Save(ctx context.Context, ownerID uuid.UUID, name string, plan mealplan.Plan) (*models.SavedMealPlan, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	saved := models.SavedMealPlan{
		Name:    strings.TrimSpace(name),
		Plan:    models.PlanDocument(plan),
		OwnerID: ownerID,
	}
	if err := s.db.WithContext(ctx).Create(&saved).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}

// List returns ownerID's saved plans, newest first.
func (s *MealPlanService) List(ctx context.Context, ownerID uuid.UUID) ([]models.SavedMealPlan, error) {
	var plans []models.SavedMealPlan
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

// Get loads one saved plan belonging to ownerID.
func (s *MealPlanService) Get(ctx context.Context, id, ownerID uuid.UUID) (*models.SavedMealPlan, error) {
	var plan models.SavedMealPlan
	err := s.db.WithContext(ctx).First(&plan, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if plan.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return &plan, nil
}

// Delete removes a saved plan. Deleting a plan another session already
// removed reports ErrNotFound; callers surface it and move on.
func (s *MealPlanService) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	if _, err := s.Get(ctx, id, ownerID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(&models.SavedMealPlan{}, "id = ?", id).Error
}
