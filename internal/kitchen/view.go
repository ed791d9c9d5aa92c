package kitchen

import (
	"time"

	"github.com/diewo77/care-meals/internal/models"
)

// View is everything the dashboard shows for one day and meal.
type View struct {
	Date       string          `json:"date"`
	MealType   models.MealType `json:"mealType"`
	Summary    Summary         `json:"summary"`
	Categories []Card          `json:"categories"`
	Notes      []Note          `json:"notes"`
}

// Build computes the view from the fetched orders.
func Build(day time.Time, meal models.MealType, orders []models.Order) View {
	return View{
		Date:       day.UTC().Format(models.DayLayout),
		MealType:   meal,
		Summary:    Summarize(orders),
		Categories: Aggregate(orders).Cards(),
		Notes:      Notes(orders),
	}
}
