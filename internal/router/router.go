package router

import (
	"github.com/gin-gonic/gin"

	"github.com/platemint/backend/internal/api"
	"github.com/platemint/backend/internal/middleware"
)

// Handlers bundles the route registrars the router mounts under /api/v1.
type Handlers struct {
	Auth     *api.AuthHandler
	Recipe   *api.RecipeHandler
	MealPlan *api.MealPlanHandler
	Discover *api.DiscoverHandler
}

// SetupRouter configures the application routes.
func SetupRouter(h Handlers, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(allowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	h.Auth.RegisterRoutes(v1)
	h.Recipe.RegisterRoutes(v1)
	h.MealPlan.RegisterRoutes(v1)
	h.Discover.RegisterRoutes(v1)

	return router
}
