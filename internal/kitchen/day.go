package kitchen

import (
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/care-meals/internal/models"
	"github.com/diewo77/care-meals/internal/services"
)

// DayRange returns the first and last millisecond of the UTC calendar day of day.
func DayRange(day time.Time) (from, to time.Time) {
	from = models.Midnight(day)
	to = from.Add(24*time.Hour - time.Millisecond)
	return from, to
}

// FormatBound renders a range bound as YYYY-MM-DDTHH:MM:SS.mmmZ.
func FormatBound(t time.Time) string {
	return t.UTC().Format(services.TimestampLayout)
}

// ParseDay parses a YYYY-MM-DD day. An empty string means today.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.Today(), nil
	}
	t, err := time.Parse(models.DayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseMeal parses a meal type. An empty string means breakfast.
func ParseMeal(s string) (models.MealType, error) {
	if s == "" {
		return models.MealBreakfast, nil
	}
	m := models.MealType(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("invalid meal type %q", s)
	}
	return m, nil
}

// Query builds the order filter for one day and meal, asking for the largest page.
func Query(day time.Time, meal models.MealType) services.OrderQuery {
	from, to := DayRange(day)
	return services.OrderQuery{
		DateFrom: from,
		DateTo:   to,
		MealType: meal,
		Page:     services.Page{Limit: services.MaxLimit, Page: 1},
	}
}
