package handlers

import (
	"net/http"

	"github.com/diewo77/care-meals/httpx"
	"github.com/diewo77/care-meals/internal/kitchen"
	"github.com/diewo77/care-meals/internal/logging"
	"github.com/diewo77/care-meals/internal/models"
	"github.com/diewo77/care-meals/internal/policy"
	"github.com/diewo77/care-meals/internal/services"
	"github.com/diewo77/care-meals/validation"
	"go.uber.org/zap"
)

// KitchenHandler serves the kitchen dashboard: per-category counts of the
// orders of one day and meal, plus the orders carrying notes or aversions.
type KitchenHandler struct {
	orders *services.OrderService
	gate   *policy.AuthGate
	log    *zap.Logger
}

func NewKitchenHandler(orders *services.OrderService, ag *policy.AuthGate, log *zap.Logger) *KitchenHandler {
	return &KitchenHandler{orders: orders, gate: ag, log: log}
}

// Summary answers GET /api/kitchen/summary?date=YYYY-MM-DD&mealType=lunch.
func (h *KitchenHandler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	day, err := kitchen.ParseDay(q.Get("date"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_query", validation.Violations{"date": "invalid_date"})
		return
	}
	meal, err := kitchen.ParseMeal(q.Get("mealType"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_query", validation.Violations{"mealType": "invalid_option"})
		return
	}
	who, err := requester(h.gate, r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	orders, err := kitchen.ServiceSource{Service: h.orders, Who: who}.Orders(r.Context(), day, meal)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, kitchen.Build(day, meal, orders))
}

// Dashboard renders the dashboard page. Bad filter values fall back to today and breakfast.
func (h *KitchenHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	who, err := requester(h.gate, r)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	q := r.URL.Query()
	day, err := kitchen.ParseDay(q.Get("date"))
	if err != nil {
		day = models.Today()
	}
	meal, err := kitchen.ParseMeal(q.Get("mealType"))
	if err != nil {
		meal = models.MealBreakfast
	}

	data := map[string]any{
		"Title":     "Kitchen Dashboard",
		"Date":      day.Format(models.DayLayout),
		"MealType":  string(meal),
		"MealTypes": models.MealTypes,
	}
	orders, err := kitchen.ServiceSource{Service: h.orders, Who: who}.Orders(r.Context(), day, meal)
	if err != nil {
		if status, _ := StatusOf(r, err); status != http.StatusInternalServerError {
			renderError(w, r, h.log, err)
			return
		}
		logging.FromContext(r.Context(), h.log).Error("load kitchen orders", zap.Error(err))
		data["LoadError"] = true
	} else {
		data["View"] = kitchen.Build(day, meal, orders)
	}
	render(w, r, h.log, "kitchen/dashboard.html", data)
}
