// Package kitchen turns a day's orders for one meal into the counts the kitchen prepares from.
package kitchen

import (
	"sort"

	"github.com/diewo77/care-meals/internal/models"
)

// Category names of the tally.
const (
	CategoryGeneral      = "General"
	CategoryPreparation  = "Preparation"
	CategoryBread        = "Bread"
	CategorySpreads      = "Spreads"
	CategoryBeverages    = "Beverages"
	CategoryAdditions    = "Additions"
	CategoryPortion      = "Portion"
	CategorySpecialPrep  = "Special Prep"
	CategoryRestrictions = "Restrictions"
)

// Labels counted under CategoryGeneral.
const (
	LabelHighCalorie       = "High Calorie"
	LabelStandardBreakfast = "Standard Breakfast"
	LabelStandardDinner    = "Standard Dinner"
	LabelPuree             = "Puree"
	LabelSoup              = "Soup"
	LabelDessert           = "Dessert"
	LabelNoFish            = "No Fish"
)

// Tally maps category -> item -> count.
type Tally map[string]map[string]int

func (t Tally) add(category, item string) {
	items, ok := t[category]
	if !ok {
		items = make(map[string]int)
		t[category] = items
	}
	items[item]++
}

func (t Tally) flag(on bool, label string) {
	if on {
		t.add(CategoryGeneral, label)
	}
}

func (t Tally) one(category, value string) {
	if value != "" {
		t.add(category, value)
	}
}

func (t Tally) each(category string, values []string) {
	for _, v := range values {
		t.add(category, v)
	}
}

// Aggregate counts the orders in a single pass. The caller filters the input
// to one date and one meal type; each order contributes only the detail group
// of its own meal type plus the high calorie flag.
func Aggregate(orders []models.Order) Tally {
	t := make(Tally)
	for i := range orders {
		o := &orders[i]
		t.flag(o.HighCalorie, LabelHighCalorie)

		switch o.MealType {
		case models.MealBreakfast:
			b := o.BreakfastData()
			if b == nil {
				continue
			}
			t.flag(b.StandardBreakfast, LabelStandardBreakfast)
			t.flag(b.Puree, LabelPuree)
			t.one(CategoryPreparation, b.Preparation)
			t.each(CategoryBread, b.Bread)
			t.each(CategorySpreads, b.Spreads)
			t.each(CategoryBeverages, b.Beverages)
			t.each(CategoryAdditions, b.Additions)
		case models.MealLunch:
			l := o.LunchData()
			if l == nil {
				continue
			}
			t.one(CategoryPortion, l.PortionSize)
			t.flag(l.Soup, LabelSoup)
			t.flag(l.Dessert, LabelDessert)
			t.each(CategorySpecialPrep, l.SpecialPreparation)
			t.each(CategoryRestrictions, l.Restrictions)
		case models.MealDinner:
			d := o.DinnerData()
			if d == nil {
				continue
			}
			t.flag(d.StandardDinner, LabelStandardDinner)
			t.flag(d.Soup, LabelSoup)
			t.flag(d.Puree, LabelPuree)
			t.flag(d.NoFish, LabelNoFish)
			t.one(CategoryPreparation, d.Preparation)
			t.each(CategoryBread, d.Bread)
			t.each(CategorySpreads, d.Spreads)
			t.each(CategoryBeverages, d.Beverages)
			t.each(CategoryAdditions, d.Additions)
		}
	}
	return t
}

// Item is one counted label of a card.
type Item struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Card is one category of the tally, ready for rendering.
type Card struct {
	Category string `json:"category"`
	Items    []Item `json:"items"`
}

// Cards returns the categories sorted by name, each with its items sorted by label.
func (t Tally) Cards() []Card {
	cards := make([]Card, 0, len(t))
	for category, items := range t {
		c := Card{Category: category, Items: make([]Item, 0, len(items))}
		for label, n := range items {
			c.Items = append(c.Items, Item{Label: label, Count: n})
		}
		sort.Slice(c.Items, func(i, j int) bool { return c.Items[i].Label < c.Items[j].Label })
		cards = append(cards, c)
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].Category < cards[j].Category })
	return cards
}

// Summary counts orders by status.
type Summary struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Prepared int `json:"prepared"`
}

func Summarize(orders []models.Order) Summary {
	s := Summary{Total: len(orders)}
	for _, o := range orders {
		switch o.Status {
		case models.StatusPending:
			s.Pending++
		case models.StatusPrepared:
			s.Prepared++
		}
	}
	return s
}

// Note is an order that carries aversions or free-text notes.
type Note struct {
	OrderID   uint               `json:"orderId"`
	ShortID   string             `json:"shortId"`
	Status    models.OrderStatus `json:"status"`
	Resident  string             `json:"resident,omitempty"`
	Aversions string             `json:"aversions,omitempty"`
	Notes     string             `json:"notes,omitempty"`
}

// Notes returns the orders with aversions or notes, in input order.
func Notes(orders []models.Order) []Note {
	notes := []Note{}
	for i := range orders {
		o := &orders[i]
		if o.Aversions == "" && o.Notes == "" {
			continue
		}
		n := Note{
			OrderID:   o.ID,
			ShortID:   o.ShortID(),
			Status:    o.Status,
			Aversions: o.Aversions,
			Notes:     o.Notes,
		}
		if o.Resident != nil {
			n.Resident = o.Resident.Name
		}
		notes = append(notes, n)
	}
	return notes
}
