package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/diewo77/care-meals/internal/models"
	"gorm.io/datatypes"
)

// Detail is a present-or-absent value for a meal detail group.
// A non-nil *Detail with a nil Value clears the group.
type Detail[T any] struct {
	Value *T
}

// OrderPatch is a partial order update. Nil fields are left untouched.
type OrderPatch struct {
	Date        *time.Time
	MealType    *models.MealType
	ResidentID  *uint
	Status      *models.OrderStatus
	HighCalorie *bool
	Aversions   *string
	Notes       *string
	Breakfast   *Detail[models.BreakfastDetails]
	Lunch       *Detail[models.LunchDetails]
	Dinner      *Detail[models.DinnerDetails]
}

// UnmarshalJSON decodes a PATCH body, accepting the same field names the order documents use.
func (p *OrderPatch) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for key, val := range raw {
		var err error
		switch key {
		case "date":
			var s string
			if err = json.Unmarshal(val, &s); err == nil {
				var t time.Time
				if t, err = models.ParseDate(s); err == nil {
					p.Date = &t
				}
			}
		case "mealType":
			err = json.Unmarshal(val, &p.MealType)
		case "resident":
			err = json.Unmarshal(val, &p.ResidentID)
		case "status":
			err = json.Unmarshal(val, &p.Status)
		case "highCalorie":
			err = json.Unmarshal(val, &p.HighCalorie)
		case "aversions":
			err = json.Unmarshal(val, &p.Aversions)
		case "notes":
			err = json.Unmarshal(val, &p.Notes)
		case "breakfast":
			p.Breakfast, err = decodeDetail[models.BreakfastDetails](val)
		case "lunch":
			p.Lunch, err = decodeDetail[models.LunchDetails](val)
		case "dinner":
			p.Dinner, err = decodeDetail[models.DinnerDetails](val)
		case "id", "createdAt", "updatedAt", "residentDoc":
			// read-only document fields echoed back by clients
		default:
			err = fmt.Errorf("unknown field")
		}
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}
	return nil
}

func decodeDetail[T any](val json.RawMessage) (*Detail[T], error) {
	if bytes.Equal(bytes.TrimSpace(val), []byte("null")) {
		return &Detail[T]{}, nil
	}
	var v T
	if err := json.Unmarshal(val, &v); err != nil {
		return nil, err
	}
	return &Detail[T]{Value: &v}, nil
}

// changes compares the patch against o and returns the column updates and the
// field names whose values actually differ.
func (p *OrderPatch) changes(o *models.Order) (map[string]any, []string) {
	cols := map[string]any{}
	var fields []string
	set := func(field, column string, value any) {
		cols[column] = value
		fields = append(fields, field)
	}

	if p.Date != nil && !models.Midnight(*p.Date).Equal(o.Date) {
		set("date", "date", models.Midnight(*p.Date))
	}
	if p.MealType != nil && *p.MealType != o.MealType {
		set("mealType", "meal_type", *p.MealType)
	}
	if p.ResidentID != nil && *p.ResidentID != o.ResidentID {
		set("resident", "resident_id", *p.ResidentID)
	}
	if p.Status != nil && *p.Status != o.Status {
		set("status", "status", *p.Status)
	}
	if p.HighCalorie != nil && *p.HighCalorie != o.HighCalorie {
		set("highCalorie", "high_calorie", *p.HighCalorie)
	}
	if p.Aversions != nil && *p.Aversions != o.Aversions {
		set("aversions", "aversions", *p.Aversions)
	}
	if p.Notes != nil && *p.Notes != o.Notes {
		set("notes", "notes", *p.Notes)
	}
	if p.Breakfast != nil && !sameJSON(p.Breakfast.Value, o.BreakfastData()) {
		set("breakfast", "breakfast", datatypes.NewJSONType(p.Breakfast.Value))
	}
	if p.Lunch != nil && !sameJSON(p.Lunch.Value, o.LunchData()) {
		set("lunch", "lunch", datatypes.NewJSONType(p.Lunch.Value))
	}
	if p.Dinner != nil && !sameJSON(p.Dinner.Value, o.DinnerData()) {
		set("dinner", "dinner", datatypes.NewJSONType(p.Dinner.Value))
	}
	sort.Strings(fields)
	return cols, fields
}

// Apply copies the patched values onto o, e.g. to validate or redisplay the result before writing.
func (p *OrderPatch) Apply(o *models.Order) {
	if p.Date != nil {
		o.Date = models.Midnight(*p.Date)
	}
	if p.MealType != nil {
		o.MealType = *p.MealType
	}
	if p.ResidentID != nil {
		o.ResidentID = *p.ResidentID
	}
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.HighCalorie != nil {
		o.HighCalorie = *p.HighCalorie
	}
	if p.Aversions != nil {
		o.Aversions = *p.Aversions
	}
	if p.Notes != nil {
		o.Notes = *p.Notes
	}
	if p.Breakfast != nil {
		o.SetBreakfast(p.Breakfast.Value)
	}
	if p.Lunch != nil {
		o.SetLunch(p.Lunch.Value)
	}
	if p.Dinner != nil {
		o.SetDinner(p.Dinner.Value)
	}
}

func sameJSON(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}
