package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/platemint/backend/internal/mealplan"
	"github.com/platemint/backend/internal/models"
)

// Recipe is a recipe as the API serves it, with the derived fields attached.
type Recipe struct {
	models.Recipe
	AverageRating float64 `json:"average_rating"`
	CommentCount  int     `json:"comment_count"`
}

// ScoredRecipe carries the ranking score alongside a discover result.
type ScoredRecipe struct {
	Recipe
	Score float64 `json:"score"`
}

// APIError is a non-2xx response decoded into its error payload. Fields is
// populated for validation failures, keyed by form field.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d %s", e.Status, e.Message)
	}
	if len(e.Fields) > 0 {
		return fmt.Sprintf("api: %d validation failed", e.Status)
	}
	return fmt.Sprintf("api: %d", e.Status)
}

// Client is a thin typed wrapper over the REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken installs the bearer token sent on subsequent requests. An empty
// token reverts the client to anonymous.
func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error  string            `json:"error"`
			Errors map[string]string `json:"errors"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Error
			apiErr.Fields = payload.Errors
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Session carries the token and user returned by register and login.
type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (c *Client) Register(ctx context.Context, username, email, password string, dietaryPrefs []string) (*Session, error) {
	body := map[string]any{
		"username":            username,
		"email":               email,
		"password":            password,
		"dietary_preferences": dietaryPrefs,
	}
	var out Session
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", body, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	var out Session
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil)
	c.token = ""
	return err
}

func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/api/v1/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, update map[string]any) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodPut, "/api/v1/profile", update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListRecipes(ctx context.Context, query, category, sort string) ([]Recipe, error) {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	if category != "" {
		q.Set("category", category)
	}
	if sort != "" {
		q.Set("sort", sort)
	}
	path := "/api/v1/recipes"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Recipes []Recipe `json:"recipes"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Recipes, nil
}

func (c *Client) GetRecipe(ctx context.Context, id uuid.UUID) (*Recipe, error) {
	var out Recipe
	if err := c.do(ctx, http.MethodGet, "/api/v1/recipes/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateRecipe(ctx context.Context, form any) (*Recipe, error) {
	var out struct {
		Recipe Recipe `json:"recipe"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/recipes", form, &out); err != nil {
		return nil, err
	}
	return &out.Recipe, nil
}

func (c *Client) UpdateRecipe(ctx context.Context, id uuid.UUID, form any) (*Recipe, error) {
	var out struct {
		Recipe Recipe `json:"recipe"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/v1/recipes/"+id.String(), form, &out); err != nil {
		return nil, err
	}
	return &out.Recipe, nil
}

func (c *Client) DeleteRecipe(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/recipes/"+id.String(), nil, nil)
}

func (c *Client) Rate(ctx context.Context, id uuid.UUID, value int) (*Recipe, error) {
	body := map[string]int{"rating": value}
	var out struct {
		Recipe Recipe `json:"recipe"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/v1/recipes/"+id.String()+"/rating", body, &out); err != nil {
		return nil, err
	}
	return &out.Recipe, nil
}

func (c *Client) AddComment(ctx context.Context, id uuid.UUID, text string) (*models.Comment, error) {
	body := map[string]string{"text": text}
	var out struct {
		Comment models.Comment `json:"comment"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/recipes/"+id.String()+"/comments", body, &out); err != nil {
		return nil, err
	}
	return &out.Comment, nil
}

func (c *Client) Favorite(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/api/v1/recipes/"+id.String()+"/favorite", nil, nil)
}

func (c *Client) Unfavorite(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/recipes/"+id.String()+"/favorite", nil, nil)
}

func (c *Client) Favorites(ctx context.Context) ([]uuid.UUID, error) {
	var out struct {
		Favorites []uuid.UUID `json:"favorites"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/recipes/favorites", nil, &out); err != nil {
		return nil, err
	}
	return out.Favorites, nil
}

func (c *Client) SaveMealPlan(ctx context.Context, name string, plan mealplan.Plan) (*models.SavedMealPlan, error) {
	body := map[string]any{"name": name, "plan": plan}
	var out struct {
		MealPlan models.SavedMealPlan `json:"meal_plan"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/mealplans", body, &out); err != nil {
		return nil, err
	}
	return &out.MealPlan, nil
}

func (c *Client) ListMealPlans(ctx context.Context) ([]models.SavedMealPlan, error) {
	var out struct {
		MealPlans []models.SavedMealPlan `json:"meal_plans"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/mealplans", nil, &out); err != nil {
		return nil, err
	}
	return out.MealPlans, nil
}

func (c *Client) GetMealPlan(ctx context.Context, id uuid.UUID) (*models.SavedMealPlan, error) {
	var out struct {
		MealPlan models.SavedMealPlan `json:"meal_plan"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/mealplans/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out.MealPlan, nil
}

func (c *Client) DeleteMealPlan(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/mealplans/"+id.String(), nil, nil)
}

func (c *Client) WorkingPlan(ctx context.Context) (mealplan.Plan, error) {
	var out struct {
		Plan mealplan.Plan `json:"plan"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/mealplans/working", nil, &out); err != nil {
		return nil, err
	}
	return out.Plan, nil
}

func (c *Client) SaveWorkingPlan(ctx context.Context, plan mealplan.Plan) error {
	body := map[string]any{"plan": plan}
	return c.do(ctx, http.MethodPut, "/api/v1/mealplans/working", body, nil)
}

func (c *Client) Suggested(ctx context.Context, category string) ([]ScoredRecipe, error) {
	path := "/api/v1/discover/suggested"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	var out struct {
		Recipes []ScoredRecipe `json:"recipes"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Recipes, nil
}

func (c *Client) Trending(ctx context.Context) ([]ScoredRecipe, error) {
	var out struct {
		Recipes []ScoredRecipe `json:"recipes"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/discover/trending", nil, &out); err != nil {
		return nil, err
	}
	return out.Recipes, nil
}
