package view

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/diewo77/care-meals/auth"
	"github.com/diewo77/care-meals/i18n"
)

//go:embed templates
var embedded embed.FS

var (
	fsMu  sync.RWMutex
	files fs.FS = mustSub(embedded, "templates")

	tplCache = struct {
		sync.RWMutex
		m map[string]*template.Template
	}{m: map[string]*template.Template{}}

	langResolver = func(r *http.Request) string { return i18n.LangFromContext(r.Context()) }
	// permission resolvers can be set by the host app to allow templates to check auth
	canResolver      func(r *http.Request, collection, action string) bool
	canFieldResolver func(r *http.Request, collection, field, action string) bool
	roleResolver     func(r *http.Request) string
)

func mustSub(f fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(f, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// SetFS replaces the template tree, e.g. with os.DirFS("view/templates") while editing templates.
func SetFS(f fs.FS) {
	if f == nil {
		return
	}
	fsMu.Lock()
	files = f
	fsMu.Unlock()
	ResetForTests()
}

// SetLangResolver allows the host app to provide a custom language resolver.
func SetLangResolver(f func(*http.Request) string) {
	if f != nil {
		langResolver = f
	}
}

// SetCanResolver sets the callback behind the "can" template func.
func SetCanResolver(f func(*http.Request, string, string) bool) {
	if f != nil {
		canResolver = f
	}
}

// SetCanFieldResolver sets the callback behind the "canField" template func.
func SetCanFieldResolver(f func(*http.Request, string, string, string) bool) {
	if f != nil {
		canFieldResolver = f
	}
}

// SetRoleResolver sets the callback behind the "role" template func.
func SetRoleResolver(f func(*http.Request) string) {
	if f != nil {
		roleResolver = f
	}
}

// Funcs returns the standard func map including i18n and permission helpers.
func Funcs(r *http.Request) template.FuncMap {
	lang := langResolver(r)
	return template.FuncMap{
		"t":    func(code string) string { return i18n.T(lang, code) },
		"lang": func() string { return lang },
		// can checks a collection-level rule, e.g. {{ if can "orders" "delete" }}
		"can": func(collection, action string) bool {
			if canResolver == nil {
				return false
			}
			return canResolver(r, collection, action)
		},
		"canField": func(collection, field, action string) bool {
			if canFieldResolver == nil {
				return false
			}
			return canFieldResolver(r, collection, field, action)
		},
		"role": func() string {
			if roleResolver == nil {
				return ""
			}
			return roleResolver(r)
		},
		"year": func() int { return time.Now().Year() },
		"day":  func(t time.Time) string { return t.UTC().Format("2006-01-02") },
		"join": strings.Join,
		"has": func(list []string, v string) bool {
			for _, s := range list {
				if s == v {
					return true
				}
			}
			return false
		},
		// dict creates a map from key-value pairs for passing to sub-templates.
		// Usage: {{ template "partial" (dict "Key1" val1 "Key2" val2) }}
		"dict": func(values ...any) map[string]any {
			if len(values)%2 != 0 {
				return nil
			}
			m := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					continue
				}
				m[key] = values[i+1]
			}
			return m
		},
	}
}

// ResetForTests clears the template cache.
func ResetForTests() {
	tplCache.Lock()
	tplCache.m = map[string]*template.Template{}
	tplCache.Unlock()
}

// Render parses and executes a page template wrapped in layout.html, with all partials available.
// name is the path below the template root (e.g. "orders/index.html").
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	// Ensure data map exists and inject common defaults to avoid template errors.
	if data == nil {
		data = map[string]any{}
	}
	if _, exists := data["Year"]; !exists {
		data["Year"] = time.Now().Year()
	}
	if _, exists := data["IsLoggedIn"]; !exists {
		_, loggedIn := auth.UserIDFromContext(r.Context())
		data["IsLoggedIn"] = loggedIn
	}

	// funcs close over the request, so a cached template is re-bound per call
	t, err := parse(name)
	if err != nil {
		return err
	}
	t, err = t.Clone()
	if err != nil {
		return err
	}
	t.Funcs(Funcs(r))

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status, ok := data["Status"].(int); ok && status != 0 {
		w.WriteHeader(status)
	}
	_, err = buf.WriteTo(w)
	return err
}

func parse(name string) (*template.Template, error) {
	devMode := os.Getenv("DEV") == "1"
	if !devMode {
		tplCache.RLock()
		t, ok := tplCache.m[name]
		tplCache.RUnlock()
		if ok {
			return t, nil
		}
	}

	fsMu.RLock()
	root := files
	fsMu.RUnlock()

	patterns := []string{"layout.html", name}
	if partials, _ := fs.Glob(root, path.Join("partials", "*.html")); len(partials) > 0 {
		patterns = append(patterns, partials...)
	}
	// placeholder funcs so parsing succeeds; Render binds the request-scoped ones
	t, err := template.New("layout.html").Funcs(Funcs(&http.Request{})).ParseFS(root, patterns...)
	if err != nil {
		return nil, err
	}
	if !devMode {
		tplCache.Lock()
		tplCache.m[name] = t
		tplCache.Unlock()
	}
	return t, nil
}
