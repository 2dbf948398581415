package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/platemint/backend/internal/mealplan"
	"github.com/platemint/backend/internal/middleware"
	"github.com/platemint/backend/internal/service"
	"github.com/platemint/backend/internal/session"
	"github.com/platemint/backend/internal/validation"
)

// MealPlanHandler serves saved meal plan snapshots and the working plan
// mirror.
type MealPlanHandler struct {
	planService *service.MealPlanService
	authService *service.AuthService
	sessions    *session.Store
}

func NewMealPlanHandler(planService *service.MealPlanService, authService *service.AuthService, sessions *session.Store) *MealPlanHandler {
	return &MealPlanHandler{
		planService: planService,
		authService: authService,
		sessions:    sessions,
	}
}

func (h *MealPlanHandler) RegisterRoutes(router *gin.RouterGroup) {
	plans := router.Group("/mealplans")
	plans.Use(middleware.AuthMiddleware(h.authService))
	{
		plans.GET("", h.ListPlans)
		plans.POST("", h.SavePlan)
		plans.GET("/working", h.GetWorkingPlan)
		plans.PUT("/working", h.SetWorkingPlan)
		plans.GET("/:id", h.GetPlan)
		plans.DELETE("/:id", h.DeletePlan)
	}
}

type savePlanRequest struct {
	Name string        `json:"name"`
	Plan mealplan.Plan `json:"plan"`
}

func (h *MealPlanHandler) SavePlan(c *gin.Context) {
	userID, _, ok := requireUser(c)
	if !ok {
		return
	}

	var req savePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if errs := validation.Check(validation.PlanForm{Name: req.Name}); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
		return
	}

	saved, err := h.planService.Save(c.Request.Context(), userID, req.Name, req.Plan)
	if err != nil {
		if errors.Is(err, mealplan.ErrUnknownCell) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "plan contains an unknown day or slot"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save meal plan"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"meal_plan": saved})
}

func (h *MealPlanHandler) ListPlans(c *gin.Context) {
	userID, _, ok := requireUser(c)
	if !ok {
		return
	}

	plans, err := h.planService.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch meal plans"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"meal_plans": plans})
}

func (h *MealPlanHandler) GetPlan(c *gin.Context) {
	userID, _, ok := requireUser(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meal plan id"})
		return
	}

	plan, err := h.planService.Get(c.Request.Context(), id, userID)
	if err != nil {
		h.respondPlanError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"meal_plan": plan})
}

func (h *MealPlanHandler) DeletePlan(c *gin.Context) {
	userID, _, ok := requireUser(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meal plan id"})
		return
	}

	if err := h.planService.Delete(c.Request.Context(), id, userID); err != nil {
		h.respondPlanError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Meal plan deleted successfully", "id": id})
}

// GetWorkingPlan returns the mirrored live grid, empty when none is stored.
func (h *MealPlanHandler) GetWorkingPlan(c *gin.Context) {
	userID, _, ok := requireUser(c)
	if !ok {
		return
	}
	if h.sessions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "activity cache not configured"})
		return
	}

	plan, found, err := h.sessions.WorkingPlan(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch working plan"})
		return
	}
	if !found {
		plan = mealplan.NewGrid().Snapshot()
	}

	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

func (h *MealPlanHandler) SetWorkingPlan(c *gin.Context) {
	userID, _, ok := requireUser(c)
	if !ok {
		return
	}
	if h.sessions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "activity cache not configured"})
		return
	}

	var req struct {
		Plan mealplan.Plan `json:"plan"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Plan.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan contains an unknown day or slot"})
		return
	}

	if err := h.sessions.SetWorkingPlan(c.Request.Context(), userID, req.Plan); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store working plan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "working plan saved"})
}

func (h *MealPlanHandler) respondPlanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Meal plan not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not the owner"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Meal plan request failed"})
	}
}
