package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platemint/backend/internal/mealplan"
	"github.com/platemint/backend/internal/models"
)

// fakeAPI is a minimal in-memory stand-in for the real service.
type fakeAPI struct {
	mu        sync.Mutex
	recipes   []Recipe
	favorites map[uuid.UUID]bool
	user      models.User

	failRate     bool
	failFavorite bool
	listCalls    int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		favorites: make(map[uuid.UUID]bool),
		user: models.User{
			ID:       uuid.New(),
			Username: "alice",
			Email:    "alice@example.com",
		},
	}
}

func (f *fakeAPI) addRecipe(title string, avg float64) Recipe {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := Recipe{AverageRating: avg}
	r.ID = uuid.New()
	r.Title = title
	r.CreatedBy = "alice"
	f.recipes = append(f.recipes, r)
	return r
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/recipes", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.listCalls++
		json.NewEncoder(w).Encode(map[string]any{"recipes": f.recipes})
	})
	mux.HandleFunc("GET /api/v1/recipes/favorites", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		ids := make([]uuid.UUID, 0, len(f.favorites))
		for id := range f.favorites {
			ids = append(ids, id)
		}
		json.NewEncoder(w).Encode(map[string]any{"favorites": ids})
	})
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"token": "test-token", "user": f.user})
	})
	mux.HandleFunc("POST /api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"message": "logged out"})
	})
	mux.HandleFunc("PUT /api/v1/recipes/{id}/rating", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failRate {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "boom"})
			return
		}
		id, _ := uuid.Parse(r.PathValue("id"))
		var body struct {
			Rating int `json:"rating"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for i := range f.recipes {
			if f.recipes[i].ID != id {
				continue
			}
			applied := false
			for j := range f.recipes[i].Ratings {
				if f.recipes[i].Ratings[j].UserID == f.user.ID {
					f.recipes[i].Ratings[j].Value = body.Rating
					applied = true
					break
				}
			}
			if !applied {
				f.recipes[i].Ratings = append(f.recipes[i].Ratings, models.Rating{
					RecipeID: id,
					UserID:   f.user.ID,
					Value:    body.Rating,
				})
			}
			json.NewEncoder(w).Encode(map[string]any{"recipe": f.recipes[i]})
			return
		}
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Recipe not found"})
	})
	mux.HandleFunc("POST /api/v1/recipes/{id}/favorite", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failFavorite {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "boom"})
			return
		}
		id, _ := uuid.Parse(r.PathValue("id"))
		f.favorites[id] = true
		json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	})
	mux.HandleFunc("DELETE /api/v1/recipes/{id}/favorite", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id, _ := uuid.Parse(r.PathValue("id"))
		delete(f.favorites, id)
		json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	})
	mux.HandleFunc("DELETE /api/v1/recipes/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id, _ := uuid.Parse(r.PathValue("id"))
		for i := range f.recipes {
			if f.recipes[i].ID == id {
				f.recipes = append(f.recipes[:i], f.recipes[i+1:]...)
				break
			}
		}
		json.NewEncoder(w).Encode(map[string]string{"message": "deleted"})
	})
	mux.HandleFunc("PUT /api/v1/mealplans/working", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"message": "working plan saved"})
	})
	mux.HandleFunc("GET /api/v1/mealplans/working", func(w http.ResponseWriter, r *http.Request) {
		g := mealplan.NewGrid()
		_ = g.InsertFromPool(mealplan.Monday, mealplan.Morning, mealplan.RecipeRef{Title: "Mirrored"})
		json.NewEncoder(w).Encode(map[string]any{"plan": g.Snapshot()})
	})

	return mux
}

func newTestStore(t *testing.T) (*Store, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	return New(NewClient(srv.URL)), api
}

func TestRefreshPopulatesCache(t *testing.T) {
	s, api := newTestStore(t)
	api.addRecipe("Ramen", 4)
	api.addRecipe("Tacos", 3)

	require.NoError(t, s.Refresh(context.Background()))
	assert.Len(t, s.Recipes(), 2)
}

func TestRefreshFetchesFavoritesWhenSignedIn(t *testing.T) {
	s, api := newTestStore(t)
	r := api.addRecipe("Ramen", 4)
	api.favorites[r.ID] = true

	_, err := s.SignIn(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)
	assert.True(t, s.IsFavorite(r.ID))
}

func TestSignOutClearsUserState(t *testing.T) {
	s, api := newTestStore(t)
	r := api.addRecipe("Ramen", 4)
	api.favorites[r.ID] = true

	_, err := s.SignIn(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, s.Grid().InsertFromPool(mealplan.Monday, mealplan.Morning, mealplan.RecipeRef{RecipeID: r.ID}))

	require.NoError(t, s.SignOut(context.Background()))
	assert.Nil(t, s.User())
	assert.False(t, s.IsFavorite(r.ID))
	assert.Equal(t, 0, s.Grid().Count())
	// Public recipe cache survives sign-out.
	assert.NotEmpty(t, s.Recipes())
}

func TestRateOptimisticApply(t *testing.T) {
	s, api := newTestStore(t)
	r := api.addRecipe("Ramen", 0)

	_, err := s.SignIn(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)

	require.NoError(t, s.Rate(context.Background(), r.ID, 5))

	cached, ok := s.Recipe(r.ID)
	require.True(t, ok)
	assert.Equal(t, 5.0, cached.AverageRating)
	require.Len(t, cached.Ratings, 1)
	assert.Equal(t, 5, cached.Ratings[0].Value)
}

func TestRateOverwritesOwnVote(t *testing.T) {
	s, api := newTestStore(t)
	r := api.addRecipe("Ramen", 0)

	_, err := s.SignIn(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)

	require.NoError(t, s.Rate(context.Background(), r.ID, 2))
	require.NoError(t, s.Rate(context.Background(), r.ID, 5))

	cached, _ := s.Recipe(r.ID)
	require.Len(t, cached.Ratings, 1)
	assert.Equal(t, 5.0, cached.AverageRating)
}

func TestRateRollsBackOnFailure(t *testing.T) {
	s, api := newTestStore(t)
	r := api.addRecipe("Ramen", 0)

	_, err := s.SignIn(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)

	api.mu.Lock()
	api.failRate = true
	api.mu.Unlock()

	err = s.Rate(context.Background(), r.ID, 5)
	require.Error(t, err)

	// The optimistic vote is gone again.
	cached, _ := s.Recipe(r.ID)
	assert.Empty(t, cached.Ratings)
	assert.Equal(t, 0.0, cached.AverageRating)
}

func TestRateRequiresSignIn(t *testing.T) {
	s, api := newTestStore(t)
	r := api.addRecipe("Ramen", 0)
	require.NoError(t, s.Refresh(context.Background()))

	err := s.Rate(context.Background(), r.ID, 5)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Status)
}

func TestToggleFavoriteOptimistic(t *testing.T) {
	s, api := newTestStore(t)
	r := api.addRecipe("Ramen", 0)

	_, err := s.SignIn(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)

	require.NoError(t, s.ToggleFavorite(context.Background(), r.ID))
	assert.True(t, s.IsFavorite(r.ID))

	require.NoError(t, s.ToggleFavorite(context.Background(), r.ID))
	assert.False(t, s.IsFavorite(r.ID))
}

func TestToggleFavoriteRollsBack(t *testing.T) {
	s, api := newTestStore(t)
	r := api.addRecipe("Ramen", 0)

	_, err := s.SignIn(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)

	api.mu.Lock()
	api.failFavorite = true
	api.mu.Unlock()

	require.Error(t, s.ToggleFavorite(context.Background(), r.ID))
	assert.False(t, s.IsFavorite(r.ID))
}

func TestDeleteRecipePrunesGrid(t *testing.T) {
	s, api := newTestStore(t)
	r := api.addRecipe("Ramen", 0)

	_, err := s.SignIn(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, s.Grid().InsertFromPool(mealplan.Friday, mealplan.Evening, mealplan.RecipeRef{RecipeID: r.ID, Title: "Ramen"}))

	require.NoError(t, s.DeleteRecipe(context.Background(), r.ID))

	_, ok := s.Recipe(r.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Grid().Count())
}

func TestFilteredQueryAndSort(t *testing.T) {
	s, api := newTestStore(t)
	low := api.addRecipe("Garlic Soup", 2)
	high := api.addRecipe("Garlic Bread", 5)
	api.addRecipe("Pancakes", 4)

	require.NoError(t, s.Refresh(context.Background()))

	got := s.Filtered("garlic", "", "")
	require.Len(t, got, 2)
	assert.Equal(t, high.ID, got[0].ID)
	assert.Equal(t, low.ID, got[1].ID)

	alpha := s.Filtered("", "", "alphabetical")
	require.Len(t, alpha, 3)
	assert.Equal(t, "Garlic Bread", alpha[0].Title)
}

func TestFilteredDietaryProse(t *testing.T) {
	s, api := newTestStore(t)
	r := api.addRecipe("Loaf", 0)
	api.mu.Lock()
	api.recipes[0].DietaryTags = models.JSONBStringArray{"gluten-free"}
	api.mu.Unlock()

	require.NoError(t, s.Refresh(context.Background()))

	// The spaced form of a hyphenated tag matches too.
	got := s.Filtered("gluten free", "", "")
	require.Len(t, got, 1)
	assert.Equal(t, r.ID, got[0].ID)
}

func TestPruneGridKeepsOwnAndFavorites(t *testing.T) {
	s, api := newTestStore(t)
	mine := api.addRecipe("Mine", 0)
	favored := api.addRecipe("Favored", 0)
	api.mu.Lock()
	api.recipes[1].CreatedBy = "bob"
	favored.CreatedBy = "bob"
	api.favorites[favored.ID] = true
	stray := Recipe{}
	stray.ID = uuid.New()
	stray.Title = "Stray"
	stray.CreatedBy = "carol"
	api.recipes = append(api.recipes, stray)
	api.mu.Unlock()

	_, err := s.SignIn(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)

	g := s.Grid()
	require.NoError(t, g.InsertFromPool(mealplan.Monday, mealplan.Morning, mealplan.RecipeRef{RecipeID: mine.ID, CreatedBy: "alice"}))
	require.NoError(t, g.InsertFromPool(mealplan.Monday, mealplan.Morning, mealplan.RecipeRef{RecipeID: favored.ID, CreatedBy: "bob"}))
	require.NoError(t, g.InsertFromPool(mealplan.Monday, mealplan.Morning, mealplan.RecipeRef{RecipeID: stray.ID, CreatedBy: "carol"}))

	removed := s.PruneGrid()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, s.Grid().Count())
}

func TestRefreshDiscardedAfterLocalMutation(t *testing.T) {
	s, api := newTestStore(t)
	r := api.addRecipe("Ramen", 0)

	_, err := s.SignIn(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)

	// Simulate a poll that started before the mutation: capture the server
	// state now, mutate locally, then let the slow response land.
	done := make(chan error, 1)
	blocker := make(chan struct{})
	go func() {
		<-blocker
		done <- s.Refresh(context.Background())
	}()

	require.NoError(t, s.Rate(context.Background(), r.ID, 5))
	close(blocker)
	require.NoError(t, <-done)

	// Whatever the race, the local vote must still be visible, either kept
	// by the guard or re-fetched from the server.
	cached, ok := s.Recipe(r.ID)
	require.True(t, ok)
	if assert.NotEmpty(t, cached.Ratings) {
		assert.Equal(t, 5, cached.Ratings[0].Value)
	}
}

func TestLoadGridFromMirror(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.LoadGrid(context.Background()))
	refs, err := s.Grid().Cell(mealplan.Monday, mealplan.Morning)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "Mirrored", refs[0].Title)
}

func TestSyncGridPushesSnapshot(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Grid().InsertFromPool(mealplan.Tuesday, mealplan.Night, mealplan.RecipeRef{Title: "Late Snack"}))
	assert.NoError(t, s.SyncGrid(context.Background()))
}

func TestPollIntervalIsFiveSeconds(t *testing.T) {
	assert.Equal(t, 5*time.Second, PollInterval)
}

func TestRunPollsUntilCancelled(t *testing.T) {
	s, api := newTestStore(t)
	api.addRecipe("Ramen", 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Run(ctx)

	// The initial refresh happens immediately, before the first tick.
	require.Eventually(t, func() bool {
		return len(s.Recipes()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
}
