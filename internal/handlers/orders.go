package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/diewo77/care-meals/httpx"
	"github.com/diewo77/care-meals/internal/models"
	"github.com/diewo77/care-meals/internal/policy"
	"github.com/diewo77/care-meals/internal/services"
	"github.com/diewo77/care-meals/validation"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orders    *services.OrderService
	residents *services.ResidentService
	gate      *policy.AuthGate
	log       *zap.Logger
}

func NewOrderHandler(orders *services.OrderService, residents *services.ResidentService, ag *policy.AuthGate, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, residents: residents, gate: ag, log: log}
}

// ─── JSON API ───────────────────────────────────────────────────────────────

func (h *OrderHandler) APIList(w http.ResponseWriter, r *http.Request) {
	q, v := services.ParseOrderQuery(r.URL.Query())
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_query", v)
		return
	}
	who, err := requester(h.gate, r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	q.Page = q.Page.Normalize()
	orders, total, err := h.orders.List(r.Context(), who, q)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewList(orders, total, q.Limit, q.Page.Page))
}

func (h *OrderHandler) APIGet(w http.ResponseWriter, r *http.Request) {
	id, who, err := h.target(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	o, err := h.orders.Get(r.Context(), who, id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *OrderHandler) APICreate(w http.ResponseWriter, r *http.Request) {
	var in services.OrderPatch
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	who, err := requester(h.gate, r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	o, err := h.orders.Create(r.Context(), who, in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}

// APIUpdate applies a partial update. Kitchen staff may only send status changes.
func (h *OrderHandler) APIUpdate(w http.ResponseWriter, r *http.Request) {
	id, who, err := h.target(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var in services.OrderPatch
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	o, err := h.orders.Update(r.Context(), who, id, in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

type toggleRequest struct {
	Status models.OrderStatus `json:"status"`
}

// APIToggle flips the status; the body carries the status the client currently shows.
func (h *OrderHandler) APIToggle(w http.ResponseWriter, r *http.Request) {
	id, who, err := h.target(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var in toggleRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	o, err := h.orders.ToggleStatus(r.Context(), who, id, in.Status)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *OrderHandler) APIDelete(w http.ResponseWriter, r *http.Request) {
	id, who, err := h.target(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.orders.Delete(r.Context(), who, id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]uint{"id": id})
}

// ─── HTML ───────────────────────────────────────────────────────────────────

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	who, err := requester(h.gate, r)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	form := r.URL.Query()
	q := services.OrderQuery{
		MealType: models.MealType(form.Get("mealType")),
		Status:   models.OrderStatus(form.Get("status")),
	}
	if !q.MealType.Valid() {
		q.MealType = ""
	}
	if !q.Status.Valid() {
		q.Status = ""
	}
	if d, err := models.ParseDate(form.Get("date")); err == nil {
		q.Date = d
	}
	page, _ := strconv.Atoi(form.Get("page"))
	q.Page = services.Page{Limit: 50, Page: page}.Normalize()

	orders, total, err := h.orders.List(r.Context(), who, q)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	data := map[string]any{
		"Title":     "Orders",
		"Orders":    orders,
		"List":      httpx.NewList(orders, total, q.Limit, q.Page.Page),
		"Date":      form.Get("date"),
		"MealType":  string(q.MealType),
		"Status":    string(q.Status),
		"MealTypes": models.MealTypes,
		"Statuses":  models.OrderStatuses,
		"Back":      r.URL.RequestURI(),
	}
	popFlash(w, r, data)
	render(w, r, h.log, "orders/index.html", data)
}

func (h *OrderHandler) New(w http.ResponseWriter, r *http.Request) {
	order := &models.Order{Date: models.Today(), MealType: models.MealBreakfast, Status: models.StatusPending}
	h.renderForm(w, r, order, "/orders", validation.Violations{})
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	who, err := requester(h.gate, r)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	patch, v := orderPatchFromForm(r)
	if !v.Empty() {
		h.redisplay(w, r, patch, nil, "/orders", v)
		return
	}
	if _, err := h.orders.Create(r.Context(), who, patch); err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			h.redisplay(w, r, patch, nil, "/orders", verr.Violations)
			return
		}
		renderError(w, r, h.log, err)
		return
	}
	http.Redirect(w, r, "/orders", http.StatusSeeOther)
}

func (h *OrderHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, who, err := h.target(r)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	o, err := h.orders.Get(r.Context(), who, id)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	h.renderForm(w, r, o, "/orders/"+strconv.FormatUint(uint64(id), 10), validation.Violations{})
}

func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, who, err := h.target(r)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	action := "/orders/" + strconv.FormatUint(uint64(id), 10)
	patch, v := orderPatchFromForm(r)
	current, err := h.orders.Get(r.Context(), who, id)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	if !v.Empty() {
		h.redisplay(w, r, patch, current, action, v)
		return
	}
	if _, err := h.orders.Update(r.Context(), who, id, patch); err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			h.redisplay(w, r, patch, current, action, verr.Violations)
			return
		}
		renderError(w, r, h.log, err)
		return
	}
	http.Redirect(w, r, "/orders", http.StatusSeeOther)
}

// ToggleStatus serves the status cell of the orders table and redirects back with a flash message.
func (h *OrderHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	back := safeBack(r.FormValue("back"))
	id, who, err := h.target(r)
	if err == nil {
		_, err = h.orders.ToggleStatus(r.Context(), who, id, models.OrderStatus(r.FormValue("displayed")))
	}
	switch {
	case err == nil:
		setFlash(w, "status.updated", false)
	case errors.Is(err, services.ErrStatusConflict):
		setFlash(w, "status.conflict", true)
	default:
		if status, _ := StatusOf(r, err); status == http.StatusInternalServerError {
			h.log.Error("toggle status failed", zap.Uint("order_id", id), zap.Error(err))
		}
		setFlash(w, "status.failed", true)
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, who, err := h.target(r)
	if err == nil {
		err = h.orders.Delete(r.Context(), who, id)
	}
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	http.Redirect(w, r, "/orders", http.StatusSeeOther)
}

func (h *OrderHandler) target(r *http.Request) (uint, *policy.Identity, error) {
	id, err := pathID(r)
	if err != nil {
		return 0, nil, err
	}
	who, err := requester(h.gate, r)
	return id, who, err
}

func (h *OrderHandler) redisplay(w http.ResponseWriter, r *http.Request, patch services.OrderPatch, current *models.Order, action string, v validation.Violations) {
	o := &models.Order{Status: models.StatusPending}
	if current != nil {
		cp := *current
		o = &cp
	}
	patch.Apply(o)
	h.renderForm(w, r, o, action, v, http.StatusBadRequest)
}

type orderOptions struct {
	Preparations, BreakfastBread, BreakfastSpreads, BreakfastBeverages, BreakfastAdditions []string
	PortionSizes, SpecialPreparations, LunchRestrictions                                   []string
	DinnerBread, DinnerSpreads, DinnerBeverages, DinnerAdditions                           []string
}

var formOptions = orderOptions{
	Preparations:        models.Preparations,
	BreakfastBread:      models.BreakfastBread,
	BreakfastSpreads:    models.BreakfastSpreads,
	BreakfastBeverages:  models.BreakfastBeverages,
	BreakfastAdditions:  models.BreakfastAdditions,
	PortionSizes:        models.PortionSizes,
	SpecialPreparations: models.SpecialPreparations,
	LunchRestrictions:   models.LunchRestrictions,
	DinnerBread:         models.DinnerBread,
	DinnerSpreads:       models.DinnerSpreads,
	DinnerBeverages:     models.DinnerBeverages,
	DinnerAdditions:     models.DinnerAdditions,
}

func (h *OrderHandler) renderForm(w http.ResponseWriter, r *http.Request, o *models.Order, action string, v validation.Violations, status ...int) {
	who, err := requester(h.gate, r)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	residents, _, err := h.residents.List(r.Context(), who, services.ResidentQuery{Page: services.Page{Limit: services.MaxLimit}})
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	data := map[string]any{
		"Title":     "Order",
		"Order":     o,
		"Residents": residents,
		"Action":    action,
		"Errors":    v,
		"MealTypes": models.MealTypes,
		"Statuses":  models.OrderStatuses,
		"Options":   formOptions,
		"Breakfast": orEmpty(o.BreakfastData()),
		"Lunch":     orEmpty(o.LunchData()),
		"Dinner":    orEmpty(o.DinnerData()),
	}
	if len(status) > 0 {
		data["Status"] = status[0]
	}
	render(w, r, h.log, "orders/form.html", data)
}

func orEmpty[T any](p *T) *T {
	if p == nil {
		return new(T)
	}
	return p
}

// orderPatchFromForm reads the order form. Only the status is read unless the
// form carries the full field set, since kitchen staff get a status-only form.
func orderPatchFromForm(r *http.Request) (services.OrderPatch, validation.Violations) {
	var p services.OrderPatch
	v := make(validation.Violations)
	_ = r.ParseForm()
	f := r.PostForm

	if s := f.Get("status"); s != "" {
		st := models.OrderStatus(s)
		p.Status = &st
	}
	if f.Get("full") == "" {
		return p, v
	}

	if s := f.Get("date"); s != "" {
		d, err := models.ParseDate(s)
		if err != nil {
			v["date"] = "invalid_date"
		} else {
			p.Date = &d
		}
	}
	meal := models.MealType(f.Get("mealType"))
	p.MealType = &meal
	if s := f.Get("resident"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			v["resident"] = "invalid_id"
		} else {
			rid := uint(id)
			p.ResidentID = &rid
		}
	}
	high := f.Get("highCalorie") != ""
	p.HighCalorie = &high
	aversions := strings.TrimSpace(f.Get("aversions"))
	p.Aversions = &aversions
	notes := strings.TrimSpace(f.Get("notes"))
	p.Notes = &notes

	switch meal {
	case models.MealBreakfast:
		p.Breakfast = &services.Detail[models.BreakfastDetails]{Value: &models.BreakfastDetails{
			StandardBreakfast: checked(f, "breakfast.standardBreakfast"),
			Puree:             checked(f, "breakfast.puree"),
			Preparation:       f.Get("breakfast.preparation"),
			Bread:             f["breakfast.bread"],
			Spreads:           f["breakfast.spreads"],
			Beverages:         f["breakfast.beverages"],
			Additions:         f["breakfast.additions"],
		}}
	case models.MealLunch:
		p.Lunch = &services.Detail[models.LunchDetails]{Value: &models.LunchDetails{
			PortionSize:        f.Get("lunch.portionSize"),
			Soup:               checked(f, "lunch.soup"),
			Dessert:            checked(f, "lunch.dessert"),
			SpecialPreparation: f["lunch.specialPreparation"],
			Restrictions:       f["lunch.restrictions"],
		}}
	case models.MealDinner:
		p.Dinner = &services.Detail[models.DinnerDetails]{Value: &models.DinnerDetails{
			StandardDinner: checked(f, "dinner.standardDinner"),
			Soup:           checked(f, "dinner.soup"),
			Puree:          checked(f, "dinner.puree"),
			NoFish:         checked(f, "dinner.noFish"),
			Preparation:    f.Get("dinner.preparation"),
			Bread:          f["dinner.bread"],
			Spreads:        f["dinner.spreads"],
			Beverages:      f["dinner.beverages"],
			Additions:      f["dinner.additions"],
		}}
	}
	return p, v
}

func checked(f url.Values, name string) bool { return f.Get(name) != "" }

// safeBack only allows redirects back into the orders list.
func safeBack(back string) string {
	if strings.HasPrefix(back, "/orders") && !strings.HasPrefix(back, "//") {
		return back
	}
	return "/orders"
}
