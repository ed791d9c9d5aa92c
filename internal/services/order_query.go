package services

import (
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/diewo77/care-meals/internal/models"
	"github.com/diewo77/care-meals/validation"
	"gorm.io/gorm"
)

// TimestampLayout renders filter bounds with millisecond precision in UTC, e.g. 2024-01-01T23:59:59.999Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

const (
	OpEquals           = "equals"
	OpGreaterThanEqual = "greater_than_equal"
	OpLessThanEqual    = "less_than_equal"
	OpLike             = "like"
)

var whereParam = regexp.MustCompile(`^where\[(\w+)\]\[(\w+)\]$`)

// OrderQuery is the fixed filter contract of the order listing.
// Zero values mean "no filter".
type OrderQuery struct {
	DateFrom   time.Time
	DateTo     time.Time
	Date       time.Time
	MealType   models.MealType
	Status     models.OrderStatus
	ResidentID uint
	Page
}

var orderOps = map[string][]string{
	"date":     {OpEquals, OpGreaterThanEqual, OpLessThanEqual},
	"mealType": {OpEquals},
	"status":   {OpEquals},
	"resident": {OpEquals},
}

// ParseOrderQuery reads where[field][op], limit and page from a query string.
// Unknown fields, operators or malformed values are reported as violations.
func ParseOrderQuery(values url.Values) (OrderQuery, validation.Violations) {
	var q OrderQuery
	v := make(validation.Violations)
	parsePage(values, &q.Page, v)

	for key, vals := range values {
		m := whereParam.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		field, op, raw := m[1], m[2], vals[0]
		ops, ok := orderOps[field]
		if !ok {
			v[key] = "unknown_field"
			continue
		}
		if !slices.Contains(ops, op) {
			v[key] = "unknown_operator"
			continue
		}
		switch field {
		case "date":
			t, err := parseTimestamp(raw)
			if err != nil {
				v[key] = "invalid_date"
				continue
			}
			switch op {
			case OpEquals:
				q.Date = models.Midnight(t)
			case OpGreaterThanEqual:
				q.DateFrom = t
			case OpLessThanEqual:
				q.DateTo = t
			}
		case "mealType":
			q.MealType = models.MealType(raw)
			validation.OneOf(key, q.MealType, models.MealTypes, v)
		case "status":
			q.Status = models.OrderStatus(raw)
			validation.OneOf(key, q.Status, models.OrderStatuses, v)
		case "resident":
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || id == 0 {
				v[key] = "invalid_id"
				continue
			}
			q.ResidentID = uint(id)
		}
	}
	return q, v
}

// Values encodes q back into the query string form ParseOrderQuery reads.
func (q OrderQuery) Values() url.Values {
	vals := url.Values{}
	if !q.DateFrom.IsZero() {
		vals.Set("where[date][greater_than_equal]", q.DateFrom.UTC().Format(TimestampLayout))
	}
	if !q.DateTo.IsZero() {
		vals.Set("where[date][less_than_equal]", q.DateTo.UTC().Format(TimestampLayout))
	}
	if !q.Date.IsZero() {
		vals.Set("where[date][equals]", q.Date.UTC().Format(TimestampLayout))
	}
	if q.MealType != "" {
		vals.Set("where[mealType][equals]", string(q.MealType))
	}
	if q.Status != "" {
		vals.Set("where[status][equals]", string(q.Status))
	}
	if q.ResidentID != 0 {
		vals.Set("where[resident][equals]", strconv.FormatUint(uint64(q.ResidentID), 10))
	}
	if q.Limit > 0 {
		vals.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Page.Page > 0 {
		vals.Set("page", strconv.Itoa(q.Page.Page))
	}
	return vals
}

func (q OrderQuery) apply(db *gorm.DB) *gorm.DB {
	if !q.DateFrom.IsZero() {
		db = db.Where("date >= ?", q.DateFrom.UTC())
	}
	if !q.DateTo.IsZero() {
		db = db.Where("date <= ?", q.DateTo.UTC())
	}
	if !q.Date.IsZero() {
		db = db.Where("date = ?", q.Date.UTC())
	}
	if q.MealType != "" {
		db = db.Where("meal_type = ?", q.MealType)
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.ResidentID != 0 {
		db = db.Where("resident_id = ?", q.ResidentID)
	}
	return db
}

func parsePage(values url.Values, p *Page, v validation.Violations) {
	if s := values.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			v["limit"] = "invalid_number"
		} else {
			validation.RangeInt("limit", n, 1, MaxLimit, v)
			p.Limit = n
		}
	}
	if s := values.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			v["page"] = "invalid_number"
		} else {
			p.Page = n
		}
	}
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(models.DayLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
