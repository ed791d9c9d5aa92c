package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/diewo77/care-meals/httpx"
	"github.com/diewo77/care-meals/internal/models"
	"github.com/diewo77/care-meals/internal/policy"
	"github.com/diewo77/care-meals/internal/services"
	"github.com/diewo77/care-meals/validation"
	"go.uber.org/zap"
)

type ResidentHandler struct {
	residents *services.ResidentService
	gate      *policy.AuthGate
	log       *zap.Logger
}

func NewResidentHandler(residents *services.ResidentService, ag *policy.AuthGate, log *zap.Logger) *ResidentHandler {
	return &ResidentHandler{residents: residents, gate: ag, log: log}
}

func (h *ResidentHandler) APIList(w http.ResponseWriter, r *http.Request) {
	q, v := services.ParseResidentQuery(r.URL.Query())
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
	residents, total, err := h.residents.List(r.Context(), who, q)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewList(residents, total, q.Limit, q.Page.Page))
}

func (h *ResidentHandler) APIGet(w http.ResponseWriter, r *http.Request) {
	id, who, err := h.target(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	res, err := h.residents.Get(r.Context(), who, id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *ResidentHandler) APICreate(w http.ResponseWriter, r *http.Request) {
	var in services.ResidentPatch
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	who, err := requester(h.gate, r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	res, err := h.residents.Create(r.Context(), who, in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *ResidentHandler) APIUpdate(w http.ResponseWriter, r *http.Request) {
	id, who, err := h.target(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var in services.ResidentPatch
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	res, err := h.residents.Update(r.Context(), who, id, in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *ResidentHandler) APIDelete(w http.ResponseWriter, r *http.Request) {
	id, who, err := h.target(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.residents.Delete(r.Context(), who, id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]uint{"id": id})
}

func (h *ResidentHandler) List(w http.ResponseWriter, r *http.Request) {
	who, err := requester(h.gate, r)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	q := services.ResidentQuery{
		NameLike: strings.TrimSpace(r.URL.Query().Get("q")),
		Page:     services.Page{Limit: 50, Page: page}.Normalize(),
	}
	residents, total, err := h.residents.List(r.Context(), who, q)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	data := map[string]any{
		"Title":     "Residents",
		"Q":         q.NameLike,
		"Residents": residents,
		"List":      httpx.NewList(residents, total, q.Limit, q.Page.Page),
	}
	popFlash(w, r, data)
	render(w, r, h.log, "residents/index.html", data)
}

func (h *ResidentHandler) New(w http.ResponseWriter, r *http.Request) {
	if _, err := requester(h.gate, r); err != nil {
		renderError(w, r, h.log, err)
		return
	}
	h.renderForm(w, r, &models.Resident{}, "/residents", validation.Violations{})
}

func (h *ResidentHandler) Create(w http.ResponseWriter, r *http.Request) {
	who, err := requester(h.gate, r)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	in := residentPatchFromForm(r)
	if _, err := h.residents.Create(r.Context(), who, in); err != nil {
		h.formError(w, r, err, in, &models.Resident{}, "/residents")
		return
	}
	http.Redirect(w, r, "/residents", http.StatusSeeOther)
}

func (h *ResidentHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, who, err := h.target(r)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	res, err := h.residents.Get(r.Context(), who, id)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	h.renderForm(w, r, res, "/residents/"+strconv.FormatUint(uint64(id), 10), validation.Violations{})
}

func (h *ResidentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, who, err := h.target(r)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	in := residentPatchFromForm(r)
	if _, err := h.residents.Update(r.Context(), who, id, in); err != nil {
		h.formError(w, r, err, in, &models.Resident{ID: id}, "/residents/"+strconv.FormatUint(uint64(id), 10))
		return
	}
	http.Redirect(w, r, "/residents", http.StatusSeeOther)
}

// Delete removes a resident. A resident with orders stays and the list shows why.
func (h *ResidentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, who, err := h.target(r)
	if err == nil {
		err = h.residents.Delete(r.Context(), who, id)
	}
	if errors.Is(err, services.ErrInUse) {
		setFlash(w, "resident.in_use", true)
		http.Redirect(w, r, "/residents", http.StatusSeeOther)
		return
	}
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}
	http.Redirect(w, r, "/residents", http.StatusSeeOther)
}

func (h *ResidentHandler) target(r *http.Request) (uint, *policy.Identity, error) {
	id, err := pathID(r)
	if err != nil {
		return 0, nil, err
	}
	who, err := requester(h.gate, r)
	return id, who, err
}

func (h *ResidentHandler) formError(w http.ResponseWriter, r *http.Request, err error, in services.ResidentPatch, res *models.Resident, action string) {
	var verr *services.ValidationError
	if !errors.As(err, &verr) {
		renderError(w, r, h.log, err)
		return
	}
	in.Apply(res)
	h.renderForm(w, r, res, action, verr.Violations, http.StatusBadRequest)
}

func (h *ResidentHandler) renderForm(w http.ResponseWriter, r *http.Request, res *models.Resident, action string, v validation.Violations, status ...int) {
	data := map[string]any{
		"Title":          "Resident",
		"Resident":       res,
		"Action":         action,
		"Errors":         v,
		"DietaryOptions": models.DietaryRestrictions,
		"Selected":       []string(res.DietaryRestrictions),
	}
	if len(status) > 0 {
		data["Status"] = status[0]
	}
	render(w, r, h.log, "residents/form.html", data)
}

func residentPatchFromForm(r *http.Request) services.ResidentPatch {
	_ = r.ParseForm()
	f := r.PostForm
	field := func(name string) *string {
		s := strings.TrimSpace(f.Get(name))
		return &s
	}
	diet := f["dietaryRestrictions"]
	if diet == nil {
		diet = []string{}
	}
	return services.ResidentPatch{
		Name:                field("name"),
		Room:                field("room"),
		Table:               field("table"),
		Station:             field("station"),
		DietaryRestrictions: &diet,
		Aversions:           field("aversions"),
		Notes:               field("notes"),
	}
}
