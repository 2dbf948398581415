// Package session is the durable per-user activity cache: recent search
// terms, recently viewed recipes, the working meal plan mirror and the
// signed-in user snapshot. It is the server-side counterpart of the browser
// localStorage contract.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/platemint/backend/internal/mealplan"
	"github.com/platemint/backend/internal/models"
)

// MaxRecent bounds the MRU lists: most recent first, deduplicated.
const MaxRecent = 10

// TTL is how long idle activity data survives.
const TTL = 30 * 24 * time.Hour

// Store tracks per-user activity in Redis.
type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func searchKey(userID uuid.UUID) string { return fmt.Sprintf("activity:searches:%s", userID) }
func viewedKey(userID uuid.UUID) string { return fmt.Sprintf("activity:viewed:%s", userID) }
func planKey(userID uuid.UUID) string   { return fmt.Sprintf("activity:workingplan:%s", userID) }
func userKey(userID uuid.UUID) string   { return fmt.Sprintf("activity:user:%s", userID) }

// TrackSearch records a search term at the head of the user's MRU list.
// Blank terms are ignored; repeats move to the front instead of duplicating.
func (s *Store) TrackSearch(ctx context.Context, userID uuid.UUID, term string) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	return s.push(ctx, searchKey(userID), term)
}

// RecentSearches returns up to n recent search terms, most recent first.
func (s *Store) RecentSearches(ctx context.Context, userID uuid.UUID, n int) ([]string, error) {
	if n <= 0 || n > MaxRecent {
		n = MaxRecent
	}
	return s.rdb.LRange(ctx, searchKey(userID), 0, int64(n-1)).Result()
}

// TrackRecipeView records a recipe at the head of the recently-viewed list.
func (s *Store) TrackRecipeView(ctx context.Context, userID, recipeID uuid.UUID) error {
	return s.push(ctx, viewedKey(userID), recipeID.String())
}

// RecentlyViewed returns up to n recently viewed recipe ids, most recent
// first. Unparseable entries are skipped.
func (s *Store) RecentlyViewed(ctx context.Context, userID uuid.UUID, n int) ([]uuid.UUID, error) {
	if n <= 0 || n > MaxRecent {
		n = MaxRecent
	}
	raw, err := s.rdb.LRange(ctx, viewedKey(userID), 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, v := range raw {
		if id, err := uuid.Parse(v); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Store) push(ctx context.Context, key, value string) error {
	pipe := s.rdb.Pipeline()
	pipe.LRem(ctx, key, 0, value)
	pipe.LPush(ctx, key, value)
	pipe.LTrim(ctx, key, 0, MaxRecent-1)
	pipe.Expire(ctx, key, TTL)
	_, err := pipe.Exec(ctx)
	return err
}

// SetWorkingPlan mirrors the live grid. The caller writes on every change so
// a reload restores the plan without an external round trip.
func (s *Store) SetWorkingPlan(ctx context.Context, userID uuid.UUID, plan mealplan.Plan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, planKey(userID), data, TTL).Err()
}

// WorkingPlan returns the mirrored plan; ok is false when none is stored.
func (s *Store) WorkingPlan(ctx context.Context, userID uuid.UUID) (mealplan.Plan, bool, error) {
	data, err := s.rdb.Get(ctx, planKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var plan mealplan.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, false, err
	}
	return plan, true, nil
}

// SaveUserSnapshot caches the signed-in user record.
func (s *Store) SaveUserSnapshot(ctx context.Context, u *models.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, userKey(u.ID), data, TTL).Err()
}

// UserSnapshot returns the cached user record; ok is false on a miss.
func (s *Store) UserSnapshot(ctx context.Context, userID uuid.UUID) (*models.User, bool, error) {
	data, err := s.rdb.Get(ctx, userKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var u models.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, false, err
	}
	return &u, true, nil
}

// ClearUser drops everything cached for a user, as logout does.
func (s *Store) ClearUser(ctx context.Context, userID uuid.UUID) error {
	return s.rdb.Del(ctx,
		searchKey(userID), viewedKey(userID), planKey(userID), userKey(userID),
	).Err()
}
