package gate

import (
	"fmt"
	"strings"
)

// WildcardField is the field component of a collection-level rule.
const WildcardField = "*"

// Key identifies one entry of the policy table.
// Format: "collection.field:action" (e.g. "orders.date:update"), with field "*"
// for the collection-level rule ("orders.*:delete").
type Key struct {
	Collection string
	Field      string
	Action     Action
}

// NewKey creates a collection-level key.
func NewKey(collection string, action Action) Key {
	return Key{Collection: collection, Field: WildcardField, Action: action}
}

// FieldKey creates a key restricting a single field.
func FieldKey(collection, field string, action Action) Key {
	return Key{Collection: collection, Field: field, Action: action}
}

// IsCollection reports whether the key is the collection-level (wildcard field) rule.
func (k Key) IsCollection() bool { return k.Field == WildcardField }

func (k Key) String() string {
	return k.Collection + "." + k.Field + ":" + string(k.Action)
}

// ParseKey parses the String form back into a Key.
func ParseKey(s string) (Key, error) {
	path, action, ok := strings.Cut(s, ":")
	if !ok {
		return Key{}, fmt.Errorf("gate: malformed key %q", s)
	}
	collection, field, ok := strings.Cut(path, ".")
	if !ok || collection == "" || field == "" {
		return Key{}, fmt.Errorf("gate: malformed key %q", s)
	}
	a := Action(action)
	if !a.Valid() {
		return Key{}, fmt.Errorf("gate: unknown action %q", action)
	}
	return Key{Collection: collection, Field: field, Action: a}, nil
}
