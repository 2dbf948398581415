// Package validation turns form submissions into field→message maps. A nil
// map means the form is acceptable; anything else blocks submission.
package validation

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RecipeForm is the payload a recipe create/update must satisfy.
type RecipeForm struct {
	Title        string   `json:"title" validate:"required"`
	Description  string   `json:"description"`
	Category     string   `json:"category" validate:"omitempty,oneof=Breakfast Lunch Dinner Dessert Snack"`
	CookingTime  int      `json:"cooking_time" validate:"gt=0"`
	Servings     int      `json:"servings" validate:"gt=0"`
	Ingredients  []string `json:"ingredients" validate:"min=1,dive,required"`
	Instructions string   `json:"instructions" validate:"required"`
	DietaryTags  []string `json:"dietary_tags" validate:"dive,oneof=vegetarian vegan gluten-free dairy-free keto low-carb high-protein low-sodium"`
	ImageURL     string   `json:"image_url" validate:"omitempty,url"`
	Calories     float64  `json:"calories" validate:"gte=0"`
	Protein      float64  `json:"protein" validate:"gte=0"`
	Fat          float64  `json:"fat" validate:"gte=0"`
	Carbs        float64  `json:"carbs" validate:"gte=0"`
}

// Normalize trims text fields and drops blank ingredient rows before
// validation, the way the entry form does.
func (f *RecipeForm) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Instructions = strings.TrimSpace(f.Instructions)
	kept := f.Ingredients[:0]
	for _, ing := range f.Ingredients {
		if s := strings.TrimSpace(ing); s != "" {
			kept = append(kept, s)
		}
	}
	f.Ingredients = kept
}

// RegisterForm is the payload account registration must satisfy.
type RegisterForm struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// CommentForm is the payload for posting a comment.
type CommentForm struct {
	Text string `json:"text" validate:"required,max=500"`
}

// PlanForm is the payload for saving a named meal plan.
type PlanForm struct {
	Name string `json:"name" validate:"required,max=50"`
}

// messages maps "field.tag" to the message surfaced next to the field.
var messages = map[string]string{
	"title.required":        "Title is required",
	"cookingTime.gt":        "Cooking time must be greater than 0",
	"servings.gt":           "Servings must be greater than 0",
	"ingredients.min":       "At least one ingredient is required",
	"instructions.required": "Instructions are required",
	"category.oneof":        "Unknown category",
	"dietaryTags.oneof":     "Unknown dietary tag",
	"username.required":     "Username is required",
	"username.min":          "Username must be at least 3 characters",
	"email.required":        "Email is required",
	"email.email":           "Email is not valid",
	"password.required":     "Password is required",
	"password.min":          "Password must be at least 8 characters",
	"text.required":         "Comment text is required",
	"text.max":              "Comments are limited to 500 characters",
	"name.required":         "Plan name is required",
	"name.max":              "Plan names are limited to 50 characters",
}

// Check validates a form and returns a field→message map, nil when valid.
func Check(form any) map[string]string {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"form": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fieldKey(fe.Field())
		if _, seen := out[field]; seen {
			continue
		}
		if msg, ok := messages[field+"."+fe.Tag()]; ok {
			out[field] = msg
		} else {
			out[field] = field + " is invalid"
		}
	}
	return out
}

// fieldKey lowers the first rune and strips slice indexes so map keys match
// the JSON field names ("DietaryTags[2]" -> "dietaryTags").
func fieldKey(name string) string {
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}
