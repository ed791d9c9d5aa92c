package validation

import (
	"net/mail"
	"slices"
	"strings"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Merge copies every violation of other into v, prefixing keys when prefix is set.
func (v Violations) Merge(prefix string, other Violations) {
	for k, code := range other {
		if prefix != "" {
			k = prefix + "." + k
		}
		v[k] = code
	}
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func Email(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		v[field] = "invalid_email"
	}
}

// OneOf records invalid_option when value is not among allowed.
// Empty values are accepted; combine with Required when the field is mandatory.
func OneOf[T ~string](field string, value T, allowed []T, v Violations) {
	if value == "" {
		return
	}
	if !slices.Contains(allowed, value) {
		v[field] = "invalid_option"
	}
}

// SubsetOf records invalid_option when any of values is not among allowed.
func SubsetOf[T ~string](field string, values []T, allowed []T, v Violations) {
	for _, val := range values {
		if !slices.Contains(allowed, val) {
			v[field] = "invalid_option"
			return
		}
	}
}

func RangeInt(field string, val, minVal, maxVal int, v Violations) {
	if val < minVal || val > maxVal {
		v[field] = "out_of_range"
	}
}
