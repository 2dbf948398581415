// Package ranking computes the sortable scores behind the suggested and
// trending recipe surfaces. Every function is stateless and deterministic
// given its inputs; user context is passed in explicitly, never looked up.
package ranking

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/platemint/backend/internal/models"
)

// MaxRecentSearches bounds how many recent search terms contribute to the
// personalization score, most recent first.
const MaxRecentSearches = 5

// TrendingLimit is how many recipes the trending surface shows.
const TrendingLimit = 5

// Preferences is the user context personalization scoring draws from.
type Preferences struct {
	FavoriteCategories       []string
	RecentlyViewedCategories []string
	// RecentSearches is most-recent-first; only the first MaxRecentSearches
	// entries are considered.
	RecentSearches     []string
	DietaryPreferences []string
}

// AverageRating is the arithmetic mean of all per-user ratings, 0 when the
// recipe has none. It is always derived from the ratings list, never stored.
func AverageRating(r *models.Recipe) float64 {
	if len(r.Ratings) == 0 {
		return 0
	}
	sum := 0.0
	for _, rating := range r.Ratings {
		sum += nonneg(float64(rating.Value))
	}
	return sum / float64(len(r.Ratings))
}

// PersonalizationScore scores a recipe against one user's context. The rule
// is additive; each signal contributes independently and nothing is
// normalized.
func PersonalizationScore(r *models.Recipe, p Preferences) float64 {
	score := AverageRating(r) * 10

	if containsFold(p.FavoriteCategories, r.Category) {
		score += 30
	}
	if containsFold(p.RecentlyViewedCategories, r.Category) {
		score += 20
	}

	searches := p.RecentSearches
	if len(searches) > MaxRecentSearches {
		searches = searches[:MaxRecentSearches]
	}
	for _, term := range searches {
		if matchesSearch(r, term) {
			score += 25
		}
	}

	for _, tag := range r.DietaryTags {
		if containsFold(p.DietaryPreferences, tag) {
			score += 40
		}
	}

	// Legacy fallback for recipes tagged only in prose: "gluten-free"
	// matches a title or description mentioning "gluten free".
	for _, pref := range p.DietaryPreferences {
		name := strings.ToLower(strings.ReplaceAll(pref, "-", " "))
		if name == "" {
			continue
		}
		if strings.Contains(strings.ToLower(r.Title), name) ||
			strings.Contains(strings.ToLower(r.Description), name) {
			score += 15
		}
	}

	// Quick meals get a flat bonus. An unset cooking time reads as 0 and
	// still qualifies; validation rejects it upstream anyway.
	if r.CookingTime <= 30 {
		score += 10
	}

	score += float64(len(r.Comments)) * 5

	return score
}

// TrendingScore weighs rating, engagement and recency. Newer recipes earn up
// to 30 extra points that decay away over their first month.
func TrendingScore(r *models.Recipe, now time.Time) float64 {
	avg := AverageRating(r)
	score := avg * 20
	score += float64(len(r.Comments)) * 10

	days := now.Sub(r.CreatedAt).Hours() / 24
	score += math.Max(0, 30-nonneg(days))

	if avg > 4 && len(r.Comments) > 2 {
		score += 15
	}

	return score
}

// Suggested filters by category (empty or "All" means no filter) and orders
// by average rating, high to low. The sort is stable, so equally rated
// recipes keep their original relative order. Despite the personalization
// primitives above, the visible list ranks by rating only; that is the
// shipped behavior and callers rely on it.
func Suggested(recipes []models.Recipe, category string) []models.Recipe {
	filtered := make([]models.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if category != "" && category != "All" && r.Category != category {
			continue
		}
		filtered = append(filtered, r)
	}
	sortByRating(filtered)
	return filtered
}

// Trending orders all recipes by average rating and keeps the top
// TrendingLimit.
func Trending(recipes []models.Recipe) []models.Recipe {
	out := make([]models.Recipe, len(recipes))
	copy(out, recipes)
	sortByRating(out)
	if len(out) > TrendingLimit {
		out = out[:TrendingLimit]
	}
	return out
}

func sortByRating(recipes []models.Recipe) {
	sort.SliceStable(recipes, func(i, j int) bool {
		return AverageRating(&recipes[i]) > AverageRating(&recipes[j])
	})
}

func matchesSearch(r *models.Recipe, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	if strings.Contains(strings.ToLower(r.Title), term) ||
		strings.Contains(strings.ToLower(r.Description), term) {
		return true
	}
	for _, ing := range r.Ingredients {
		if strings.Contains(strings.ToLower(ing), term) {
			return true
		}
	}
	return false
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// nonneg maps NaN, infinities and negative values to 0 so malformed numeric
// fields degrade instead of poisoning a score.
func nonneg(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
