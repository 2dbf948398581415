package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platemint/backend/internal/mealplan"
)

// PlanDocument stores a mealplan.Plan snapshot as JSONB.
type PlanDocument mealplan.Plan

// Value implements the driver.Valuer interface
func (p PlanDocument) Value() (driver.Value, error) {
	if len(p) == 0 {
		return "{}", nil
	}
	return json.Marshal(p)
}

// Scan implements the sql.Scanner interface
func (p *PlanDocument) Scan(value interface{}) error {
	if value == nil {
		*p = PlanDocument{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported plan column type %T", value)
	}

	return json.Unmarshal(bytes, p)
}

// SavedMealPlan is an immutable named snapshot of a working grid. Deleting a
// recipe does not reach into saved plans; readers tolerate stale references.
type SavedMealPlan struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"size:50;not null" json:"name"`
	Plan      PlanDocument   `gorm:"type:jsonb;not null;default:'{}'" json:"plan"`
	OwnerID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
}

func (p *SavedMealPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
