// Package i18n holds the UI label catalogs (English and German).
package i18n

import (
	"context"
	"strings"
)

const DefaultLang = "en"

type langKey struct{}

var catalogs = map[string]map[string]string{
	"en": {
		"required":       "Required",
		"invalid_option": "Not an allowed option",
		"invalid_email":  "Invalid email address",
		"out_of_range":   "Out of range",
		"invalid_date":   "Invalid date",
		"invalid_id":     "Invalid id",
		"not_found":      "Not found",
		"duplicate":      "Already in use",

		"breakfast": "Breakfast",
		"lunch":     "Lunch",
		"dinner":    "Dinner",
		"pending":   "Pending",
		"prepared":  "Prepared",
		"admin":     "Admin",
		"caregiver": "Caregiver",
		"kitchen":   "Kitchen",

		"nav.orders":          "Orders",
		"nav.residents":       "Residents",
		"nav.users":           "Users",
		"nav.kitchen":         "Kitchen Dashboard",
		"nav.logout":          "Log out",
		"orders.to_dashboard": "Go to Kitchen Dashboard",
		"kitchen.total":       "Total Orders",
		"kitchen.notes":       "Special Notes & Aversions",
		"kitchen.empty":       "No orders for this selection.",
		"kitchen.load_error":  "Error loading orders",
		"status.updated":      "Status updated",
		"status.failed":       "Failed to update status",
		"status.conflict":     "The order was changed by someone else; reload and try again",
		"resident.in_use":     "The resident still has orders and cannot be deleted",
		"user.self_delete":    "You cannot delete your own account",

		"General":      "General",
		"Preparation":  "Preparation",
		"Bread":        "Bread",
		"Spreads":      "Spreads",
		"Beverages":    "Beverages",
		"Additions":    "Additions",
		"Portion":      "Portion",
		"Special Prep": "Special Prep",
		"Restrictions": "Restrictions",

		"roll":              "Roll",
		"whole-grain-roll":  "Whole grain roll",
		"grey-bread":        "Grey bread",
		"whole-grain-bread": "Whole grain bread",
		"white-bread":       "White bread",
		"crispbread":        "Crispbread",
		"porridge":          "Porridge",
		"sliced":            "Sliced",
		"spread":            "Spread",
		"butter":            "Butter",
		"margarine":         "Margarine",
		"jam":               "Jam",
		"diabetic-jam":      "Diabetic jam",
		"honey":             "Honey",
		"cheese":            "Cheese",
		"quark":             "Quark",
		"sausage":           "Sausage",
		"coffee":            "Coffee",
		"tea":               "Tea",
		"cocoa":             "Cocoa",
		"hot-milk":          "Hot milk",
		"cold-milk":         "Cold milk",
		"sugar":             "Sugar",
		"sweetener":         "Sweetener",
		"creamer":           "Creamer",
		"small":             "Small",
		"large":             "Large",
		"vegetarian":        "Vegetarian",
		"pureed-food":       "Pureed food",
		"pureed-meat":       "Pureed meat",
		"sliced-meat":       "Sliced meat",
		"mashed-potatoes":   "Mashed potatoes",
		"no-fish":           "No fish",
		"fingerfood":        "Finger food",
		"only-sweet":        "Only sweet",
		"diabetes":          "Diabetes",
		"lactose-free":      "Lactose-free",
		"gluten-free":       "Gluten-free",
		"vegan":             "Vegan",
		"no-pork":           "No pork",
	},
	"de": {
		"required":       "Pflichtfeld",
		"invalid_option": "Keine zulässige Auswahl",
		"invalid_email":  "Ungültige E-Mail-Adresse",
		"out_of_range":   "Außerhalb des Bereichs",
		"invalid_date":   "Ungültiges Datum",
		"invalid_id":     "Ungültige ID",
		"not_found":      "Nicht gefunden",
		"duplicate":      "Bereits vergeben",

		"breakfast": "Frühstück",
		"lunch":     "Mittagessen",
		"dinner":    "Abendessen",
		"pending":   "Offen",
		"prepared":  "Zubereitet",
		"admin":     "Administration",
		"caregiver": "Pflege",
		"kitchen":   "Küche",

		"nav.orders":          "Bestellungen",
		"nav.residents":       "Bewohner",
		"nav.users":           "Benutzer",
		"nav.kitchen":         "Küchenübersicht",
		"nav.logout":          "Abmelden",
		"orders.to_dashboard": "Zur Küchenübersicht",
		"kitchen.total":       "Bestellungen gesamt",
		"kitchen.notes":       "Besondere Hinweise & Abneigungen",
		"kitchen.empty":       "Keine Bestellungen für diese Auswahl.",
		"kitchen.load_error":  "Fehler beim Laden der Bestellungen",
		"status.updated":      "Status aktualisiert",
		"status.failed":       "Status konnte nicht geändert werden",
		"status.conflict":     "Die Bestellung wurde inzwischen geändert; bitte neu laden",
		"resident.in_use":     "Der Bewohner hat noch Bestellungen und kann nicht gelöscht werden",
		"user.self_delete":    "Das eigene Konto kann nicht gelöscht werden",

		"General":            "Allgemein",
		"High Calorie":       "Hochkalorisch",
		"Standard Breakfast": "Standardfrühstück",
		"Standard Dinner":    "Standardabendessen",
		"Puree":              "Püriert",
		"Soup":               "Suppe",
		"Dessert":            "Dessert",
		"No Fish":            "Kein Fisch",
		"Preparation":        "Zubereitung",
		"Bread":              "Brot",
		"Spreads":            "Aufstriche",
		"Beverages":          "Getränke",
		"Additions":          "Zusätze",
		"Portion":            "Portion",
		"Special Prep":       "Sonderzubereitung",
		"Restrictions":       "Einschränkungen",

		"roll":              "Brötchen",
		"whole-grain-roll":  "Vollkornbrötchen",
		"grey-bread":        "Graubrot",
		"whole-grain-bread": "Vollkornbrot",
		"white-bread":       "Weißbrot",
		"crispbread":        "Knäckebrot",
		"porridge":          "Brei",
		"sliced":            "Geschnitten",
		"spread":            "Geschmiert",
		"butter":            "Butter",
		"margarine":         "Margarine",
		"jam":               "Marmelade",
		"diabetic-jam":      "Diabetikermarmelade",
		"honey":             "Honig",
		"cheese":            "Käse",
		"quark":             "Quark",
		"sausage":           "Wurst",
		"coffee":            "Kaffee",
		"tea":               "Tee",
		"cocoa":             "Kakao",
		"hot-milk":          "Warme Milch",
		"cold-milk":         "Kalte Milch",
		"sugar":             "Zucker",
		"sweetener":         "Süßstoff",
		"creamer":           "Kaffeesahne",
		"small":             "Klein",
		"large":             "Groß",
		"vegetarian":        "Vegetarisch",
		"pureed-food":       "Passierte Kost",
		"pureed-meat":       "Passiertes Fleisch",
		"sliced-meat":       "Geschnittenes Fleisch",
		"mashed-potatoes":   "Kartoffelbrei",
		"no-fish":           "Kein Fisch",
		"fingerfood":        "Fingerfood",
		"only-sweet":        "Nur süß",
		"diabetes":          "Diabetes",
		"lactose-free":      "Laktosefrei",
		"gluten-free":       "Glutenfrei",
		"vegan":             "Vegan",
		"no-pork":           "Kein Schweinefleisch",
	},
}

// T translates code into lang, falling back to the default language and then to the code itself.
func T(lang, code string) string {
	if m, ok := catalogs[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := catalogs[DefaultLang][code]; ok {
		return s
	}
	return code
}

// DetectLanguage picks a supported language from an Accept-Language header.
func DetectLanguage(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		primary := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if _, ok := catalogs[primary]; ok {
			return primary
		}
	}
	return DefaultLang
}

// Supported reports whether lang has a catalog.
func Supported(lang string) bool {
	_, ok := catalogs[lang]
	return ok
}

func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

func LangFromContext(ctx context.Context) string {
	if l, ok := ctx.Value(langKey{}).(string); ok && l != "" {
		return l
	}
	return DefaultLang
}
