package services

import (
	"net/url"

	"github.com/diewo77/care-meals/validation"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 10
	MaxLimit     = 1000
)

// Page selects one page of a collection listing.
type Page struct {
	Limit int
	Page  int
}

// Normalize applies the default limit, caps it at MaxLimit and makes pages 1-based.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Page < 1 {
		p.Page = 1
	}
	return p
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	return db.Limit(p.Limit).Offset((p.Page - 1) * p.Limit)
}

// ParsePage reads the limit and page query parameters.
func ParsePage(values url.Values) (Page, validation.Violations) {
	var p Page
	v := make(validation.Violations)
	parsePage(values, &p, v)
	return p, v
}
