package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/platemint/backend/internal/mealplan"
	"github.com/platemint/backend/internal/models"
	"github.com/platemint/backend/internal/ranking"
)

// PollInterval is how often the store resyncs its cache with the API.
const PollInterval = 5 * time.Second

// Store is a polling cache over the API. Reads are served from the local
// snapshot; mutations go through the API and either update the snapshot
// optimistically (rate, favorite) or trigger a resync.
//
// Each local mutation bumps a counter. A poll that started before the
// mutation discards its result when it lands, so a stale fetch never
// clobbers newer local state; the next poll picks up the server's view.
type Store struct {
	client *Client

	mu        sync.RWMutex
	user      *models.User
	recipes   []Recipe
	favorites map[uuid.UUID]bool
	grid      *mealplan.Grid
	mutations uint64
	lastErr   error
}

func New(client *Client) *Store {
	return &Store{
		client:    client,
		favorites: make(map[uuid.UUID]bool),
		grid:      mealplan.NewGrid(),
	}
}

// Run polls until the context is cancelled.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	if err := s.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("initial refresh failed")
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				log.Warn().Err(err).Msg("refresh failed")
			}
		}
	}
}

// Refresh fetches the recipe list and favorites. The result is dropped if a
// local mutation happened while the fetch was in flight.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.RLock()
	before := s.mutations
	signedIn := s.user != nil
	s.mu.RUnlock()

	recipes, err := s.client.ListRecipes(ctx, "", "", "")
	if err != nil {
		s.setErr(err)
		return err
	}

	var favorites map[uuid.UUID]bool
	if signedIn {
		ids, err := s.client.Favorites(ctx)
		if err != nil {
			s.setErr(err)
			return err
		}
		favorites = make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			favorites[id] = true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mutations != before {
		return nil
	}
	s.recipes = recipes
	if favorites != nil {
		s.favorites = favorites
	}
	s.lastErr = nil
	return nil
}

func (s *Store) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// LastError reports the most recent failed refresh, nil after a clean one.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Store) bump() {
	s.mutations++
}

// SignIn authenticates and seeds the cache with the session user.
func (s *Store) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	sess, err := s.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.user = &sess.User
	s.bump()
	s.mu.Unlock()
	return &sess.User, s.Refresh(ctx)
}

// SignOut clears the session and all per-user state. The recipe cache
// survives; it is public data.
func (s *Store) SignOut(ctx context.Context) error {
	err := s.client.Logout(ctx)
	s.mu.Lock()
	s.user = nil
	s.favorites = make(map[uuid.UUID]bool)
	s.grid.ClearAll()
	s.bump()
	s.mu.Unlock()
	return err
}

func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Recipes returns a copy of the cached recipe list.
func (s *Store) Recipes() []Recipe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Recipe, len(s.recipes))
	copy(out, s.recipes)
	return out
}

func (s *Store) Recipe(id uuid.UUID) (Recipe, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.recipes {
		if s.recipes[i].ID == id {
			return s.recipes[i], true
		}
	}
	return Recipe{}, false
}

func (s *Store) IsFavorite(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.favorites[id]
}

// Rate applies the rating locally first, then confirms it with the API. On
// failure the previous ratings are restored. A repeat rating by the same
// user overwrites their earlier value.
func (s *Store) Rate(ctx context.Context, id uuid.UUID, value int) error {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return &APIError{Status: 401, Message: "not signed in"}
	}
	userID := s.user.ID
	idx := -1
	for i := range s.recipes {
		if s.recipes[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return &APIError{Status: 404, Message: "recipe not in cache"}
	}

	prev := make([]models.Rating, len(s.recipes[idx].Ratings))
	copy(prev, s.recipes[idx].Ratings)

	applied := false
	for i := range s.recipes[idx].Ratings {
		if s.recipes[idx].Ratings[i].UserID == userID {
			s.recipes[idx].Ratings[i].Value = value
			applied = true
			break
		}
	}
	if !applied {
		s.recipes[idx].Ratings = append(s.recipes[idx].Ratings, models.Rating{
			RecipeID: id,
			UserID:   userID,
			Value:    value,
		})
	}
	s.recipes[idx].AverageRating = ranking.AverageRating(&s.recipes[idx].Recipe)
	s.bump()
	s.mu.Unlock()

	if _, err := s.client.Rate(ctx, id, value); err != nil {
		s.mu.Lock()
		for i := range s.recipes {
			if s.recipes[i].ID == id {
				s.recipes[i].Ratings = prev
				s.recipes[i].AverageRating = ranking.AverageRating(&s.recipes[i].Recipe)
				break
			}
		}
		s.bump()
		s.mu.Unlock()
		return err
	}
	return nil
}

// ToggleFavorite flips the flag locally, then confirms with the API,
// restoring the previous state on failure.
func (s *Store) ToggleFavorite(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return &APIError{Status: 401, Message: "not signed in"}
	}
	was := s.favorites[id]
	if was {
		delete(s.favorites, id)
	} else {
		s.favorites[id] = true
	}
	s.bump()
	s.mu.Unlock()

	var err error
	if was {
		err = s.client.Unfavorite(ctx, id)
	} else {
		err = s.client.Favorite(ctx, id)
	}
	if err != nil {
		s.mu.Lock()
		if was {
			s.favorites[id] = true
		} else {
			delete(s.favorites, id)
		}
		s.bump()
		s.mu.Unlock()
		return err
	}
	return nil
}

// CreateRecipe submits the recipe and resyncs. Creation is not optimistic;
// the server owns the id and provenance fields.
func (s *Store) CreateRecipe(ctx context.Context, form any) (*Recipe, error) {
	created, err := s.client.CreateRecipe(ctx, form)
	if err != nil {
		return nil, err
	}
	if err := s.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("refresh after create failed")
	}
	return created, nil
}

func (s *Store) UpdateRecipe(ctx context.Context, id uuid.UUID, form any) (*Recipe, error) {
	updated, err := s.client.UpdateRecipe(ctx, id, form)
	if err != nil {
		return nil, err
	}
	if err := s.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("refresh after update failed")
	}
	return updated, nil
}

// DeleteRecipe removes the recipe and drops its grid references.
func (s *Store) DeleteRecipe(ctx context.Context, id uuid.UUID) error {
	if err := s.client.DeleteRecipe(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	for i := range s.recipes {
		if s.recipes[i].ID == id {
			s.recipes = append(s.recipes[:i], s.recipes[i+1:]...)
			break
		}
	}
	delete(s.favorites, id)
	s.grid.Prune(func(ref mealplan.RecipeRef) bool { return ref.RecipeID != id })
	s.bump()
	s.mu.Unlock()
	return nil
}

func (s *Store) AddComment(ctx context.Context, id uuid.UUID, text string) (*models.Comment, error) {
	comment, err := s.client.AddComment(ctx, id, text)
	if err != nil {
		return nil, err
	}
	if err := s.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("refresh after comment failed")
	}
	return comment, nil
}

// Filtered narrows the cached list by free-text query and category, then
// orders it. Sort modes are newest, oldest, alphabetical and rating; rating
// is the default.
func (s *Store) Filtered(query, category, sortMode string) []Recipe {
	s.mu.RLock()
	recipes := make([]Recipe, len(s.recipes))
	copy(recipes, s.recipes)
	s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	out := recipes[:0]
	for _, r := range recipes {
		if category != "" && r.Category != category {
			continue
		}
		if q != "" && !matchesQuery(&r, q) {
			continue
		}
		out = append(out, r)
	}

	switch sortMode {
	case "newest":
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	case "oldest":
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	case "alphabetical":
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].AverageRating > out[j].AverageRating })
	}
	return out
}

func matchesQuery(r *Recipe, q string) bool {
	if strings.Contains(strings.ToLower(r.Title), q) ||
		strings.Contains(strings.ToLower(r.Description), q) ||
		strings.Contains(strings.ToLower(r.Category), q) {
		return true
	}
	for _, ing := range r.Ingredients {
		if strings.Contains(strings.ToLower(ing), q) {
			return true
		}
	}
	// Hyphenated dietary tags match their spaced prose form too.
	for _, tag := range r.DietaryTags {
		spaced := strings.ReplaceAll(strings.ToLower(tag), "-", " ")
		if strings.Contains(strings.ToLower(tag), q) || strings.Contains(spaced, q) {
			return true
		}
	}
	return false
}

// Grid exposes the live meal plan grid. Callers mutate it directly and then
// call SyncGrid to mirror it.
func (s *Store) Grid() *mealplan.Grid {
	return s.grid
}

// SyncGrid pushes the current grid to the server-side mirror.
func (s *Store) SyncGrid(ctx context.Context) error {
	s.mu.RLock()
	plan := s.grid.Snapshot()
	s.mu.RUnlock()
	return s.client.SaveWorkingPlan(ctx, plan)
}

// LoadGrid restores the grid from the server-side mirror.
func (s *Store) LoadGrid(ctx context.Context) error {
	plan, err := s.client.WorkingPlan(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.grid.Restore(plan); err != nil {
		return err
	}
	s.bump()
	return nil
}

// PruneGrid drops grid references to recipes the user can no longer plan
// with: anything that is neither their own recipe nor a favorite. Returns
// how many references were removed.
func (s *Store) PruneGrid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	username := ""
	if s.user != nil {
		username = s.user.Username
	}
	removed := s.grid.Prune(func(ref mealplan.RecipeRef) bool {
		return ref.CreatedBy == username || s.favorites[ref.RecipeID]
	})
	if removed > 0 {
		s.bump()
	}
	return removed
}
