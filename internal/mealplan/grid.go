// Package mealplan maintains the weekly day/slot planning grid: an ordered
// list of recipe references per (day, slot) cell, drag-and-drop style
// mutations, and nutrition rollups.
package mealplan

import (
	"errors"

	"github.com/google/uuid"
)

// Day is one of the seven calendar weekdays.
type Day string

const (
	Monday    Day = "Monday"
	Tuesday   Day = "Tuesday"
	Wednesday Day = "Wednesday"
	Thursday  Day = "Thursday"
	Friday    Day = "Friday"
	Saturday  Day = "Saturday"
	Sunday    Day = "Sunday"
)

// Slot is one of the four meal slots within a day.
type Slot string

const (
	Morning   Slot = "morning"
	Afternoon Slot = "afternoon"
	Evening   Slot = "evening"
	Night     Slot = "night"
)

var (
	ErrUnknownCell     = errors.New("mealplan: unknown day or slot")
	ErrIndexOutOfRange = errors.New("mealplan: index out of range")
)

// Days returns the weekdays in calendar order.
func Days() []Day {
	return []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// Slots returns the meal slots in day order.
func Slots() []Slot {
	return []Slot{Morning, Afternoon, Evening, Night}
}

// Nutrition holds per-serving macro totals. Each field is summed
// independently when rolling cells up to days and weeks.
type Nutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

func (n *Nutrition) add(o Nutrition) {
	n.Calories += o.Calories
	n.Protein += o.Protein
	n.Fat += o.Fat
	n.Carbs += o.Carbs
}

// RecipeRef is a copy of the recipe fields the planner needs. Dragging a
// recipe into the grid copies these fields; later edits or deletion of the
// recipe do not reach back into existing plans.
type RecipeRef struct {
	RecipeID    uuid.UUID `json:"recipe_id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	CookingTime int       `json:"cooking_time"`
	CreatedBy   string    `json:"created_by"`
	Nutrition   Nutrition `json:"nutrition"`
}

// Plan is the serializable snapshot form of a grid.
type Plan map[Day]map[Slot][]RecipeRef

// Grid is the live working state of a weekly meal plan. It is not safe for
// concurrent use; callers serialize mutations the way a UI event loop does.
type Grid struct {
	cells map[Day]map[Slot][]RecipeRef
}

// NewGrid returns a grid with all 28 cells empty.
func NewGrid() *Grid {
	g := &Grid{cells: make(map[Day]map[Slot][]RecipeRef, len(Days()))}
	for _, d := range Days() {
		g.cells[d] = make(map[Slot][]RecipeRef, len(Slots()))
		for _, s := range Slots() {
			g.cells[d][s] = nil
		}
	}
	return g
}

func (g *Grid) cell(day Day, slot Slot) ([]RecipeRef, bool) {
	slots, ok := g.cells[day]
	if !ok {
		return nil, false
	}
	refs, ok := slots[slot]
	return refs, ok
}

// Cell returns a copy of the ordered references in one cell.
func (g *Grid) Cell(day Day, slot Slot) ([]RecipeRef, error) {
	refs, ok := g.cell(day, slot)
	if !ok {
		return nil, ErrUnknownCell
	}
	out := make([]RecipeRef, len(refs))
	copy(out, refs)
	return out, nil
}

// InsertFromPool appends a recipe dragged from the available pool. The pool
// is never mutated; this is a copy, not a move.
func (g *Grid) InsertFromPool(day Day, slot Slot, ref RecipeRef) error {
	if _, ok := g.cell(day, slot); !ok {
		return ErrUnknownCell
	}
	g.cells[day][slot] = append(g.cells[day][slot], ref)
	return nil
}

// RemoveAt deletes the reference at index i. Out-of-range indexes are
// rejected rather than silently ignored.
func (g *Grid) RemoveAt(day Day, slot Slot, i int) error {
	refs, ok := g.cell(day, slot)
	if !ok {
		return ErrUnknownCell
	}
	if i < 0 || i >= len(refs) {
		return ErrIndexOutOfRange
	}
	g.cells[day][slot] = append(refs[:i], refs[i+1:]...)
	return nil
}

// MoveWithinCell reorders one cell: the reference at from is removed and
// reinserted at to, preserving the relative order of everything else.
func (g *Grid) MoveWithinCell(day Day, slot Slot, from, to int) error {
	refs, ok := g.cell(day, slot)
	if !ok {
		return ErrUnknownCell
	}
	if from < 0 || from >= len(refs) || to < 0 || to >= len(refs) {
		return ErrIndexOutOfRange
	}
	if from == to {
		return nil
	}
	moved := refs[from]
	refs = append(refs[:from], refs[from+1:]...)
	refs = append(refs, RecipeRef{})
	copy(refs[to+1:], refs[to:])
	refs[to] = moved
	g.cells[day][slot] = refs
	return nil
}

// MoveAcrossCells copies the reference at srcIndex onto the end of the
// destination cell. The source cell is left untouched: cross-cell drags are
// copies, not moves, matching the shipped drag-and-drop behavior. Same-cell
// drags must go through MoveWithinCell, which is the only true reorder.
func (g *Grid) MoveAcrossCells(srcDay Day, srcSlot Slot, srcIndex int, dstDay Day, dstSlot Slot) error {
	refs, ok := g.cell(srcDay, srcSlot)
	if !ok {
		return ErrUnknownCell
	}
	if _, ok := g.cell(dstDay, dstSlot); !ok {
		return ErrUnknownCell
	}
	if srcIndex < 0 || srcIndex >= len(refs) {
		return ErrIndexOutOfRange
	}
	if srcDay == dstDay && srcSlot == dstSlot {
		return nil
	}
	g.cells[dstDay][dstSlot] = append(g.cells[dstDay][dstSlot], refs[srcIndex])
	return nil
}

// ClearCell empties one cell.
func (g *Grid) ClearCell(day Day, slot Slot) error {
	if _, ok := g.cell(day, slot); !ok {
		return ErrUnknownCell
	}
	g.cells[day][slot] = nil
	return nil
}

// ClearDay empties all four slots of a day.
func (g *Grid) ClearDay(day Day) error {
	if _, ok := g.cells[day]; !ok {
		return ErrUnknownCell
	}
	for _, s := range Slots() {
		g.cells[day][s] = nil
	}
	return nil
}

// ClearAll empties the whole grid.
func (g *Grid) ClearAll() {
	for _, d := range Days() {
		for _, s := range Slots() {
			g.cells[d][s] = nil
		}
	}
}

// Count returns the total number of placed references.
func (g *Grid) Count() int {
	n := 0
	for _, d := range Days() {
		for _, s := range Slots() {
			n += len(g.cells[d][s])
		}
	}
	return n
}

// CellNutrition sums the nutrition of one cell.
func (g *Grid) CellNutrition(day Day, slot Slot) (Nutrition, error) {
	refs, ok := g.cell(day, slot)
	if !ok {
		return Nutrition{}, ErrUnknownCell
	}
	var total Nutrition
	for _, r := range refs {
		total.add(r.Nutrition)
	}
	return total, nil
}

// DayNutrition sums the four slot totals of a day.
func (g *Grid) DayNutrition(day Day) (Nutrition, error) {
	if _, ok := g.cells[day]; !ok {
		return Nutrition{}, ErrUnknownCell
	}
	var total Nutrition
	for _, s := range Slots() {
		slotTotal, err := g.CellNutrition(day, s)
		if err != nil {
			return Nutrition{}, err
		}
		total.add(slotTotal)
	}
	return total, nil
}

// WeekNutrition sums all seven day totals.
func (g *Grid) WeekNutrition() Nutrition {
	var total Nutrition
	for _, d := range Days() {
		dayTotal, _ := g.DayNutrition(d)
		total.add(dayTotal)
	}
	return total
}

// Prune removes every placed reference for which keep returns false and
// reports how many were removed. The planner runs this whenever the
// ownership/favorites set changes so the grid never holds recipes the user
// can no longer pick from the pool.
func (g *Grid) Prune(keep func(RecipeRef) bool) int {
	removed := 0
	for _, d := range Days() {
		for _, s := range Slots() {
			refs := g.cells[d][s]
			kept := refs[:0]
			for _, r := range refs {
				if keep(r) {
					kept = append(kept, r)
				} else {
					removed++
				}
			}
			g.cells[d][s] = kept
		}
	}
	return removed
}

// Snapshot deep-copies the grid into its serializable form.
func (g *Grid) Snapshot() Plan {
	plan := make(Plan, len(Days()))
	for _, d := range Days() {
		plan[d] = make(map[Slot][]RecipeRef, len(Slots()))
		for _, s := range Slots() {
			refs := make([]RecipeRef, len(g.cells[d][s]))
			copy(refs, g.cells[d][s])
			plan[d][s] = refs
		}
	}
	return plan
}

// Restore replaces the entire grid with a snapshot. Days or slots outside
// the fixed vocabulary are rejected; missing ones load as empty cells.
func (g *Grid) Restore(plan Plan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	g.ClearAll()
	for d, slots := range plan {
		for s, refs := range slots {
			cp := make([]RecipeRef, len(refs))
			copy(cp, refs)
			g.cells[d][s] = cp
		}
	}
	return nil
}

// Validate checks that a plan only uses known days and slots.
func (p Plan) Validate() error {
	for d, slots := range p {
		if !knownDay(d) {
			return ErrUnknownCell
		}
		for s := range slots {
			if !knownSlot(s) {
				return ErrUnknownCell
			}
		}
	}
	return nil
}

// Count returns the total number of references in a snapshot.
func (p Plan) Count() int {
	n := 0
	for _, slots := range p {
		for _, refs := range slots {
			n += len(refs)
		}
	}
	return n
}

func knownDay(d Day) bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

func knownSlot(s Slot) bool {
	switch s {
	case Morning, Afternoon, Evening, Night:
		return true
	}
	return false
}
