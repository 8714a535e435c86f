package api

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"shopify-customer-sync/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageDashboard = "dashboard"
	pageLogin     = "login"
	pageCustomers = "customers"
	pageProducts  = "products"
)

// pageData is the view model shared by all pages
type pageData struct {
	Title     string
	APIKey    string
	Shop      string
	Error     string
	Query     string
	UniqueID  string
	Connected string
	Customers []domain.Customer
	Products  []domain.Product
}

type views struct {
	pages map[string]*template.Template
}

func newViews() (*views, error) {
	funcs := template.FuncMap{
		"json": func(v any) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
		"index0": func(addresses []domain.Address) *domain.Address {
			if len(addresses) == 0 {
				return nil
			}
			return &addresses[0]
		},
	}

	pages := make(map[string]*template.Template)
	for _, page := range []string{pageDashboard, pageLogin, pageCustomers, pageProducts} {
		t, err := template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", page, err)
		}
		pages[page] = t
	}
	return &views{pages: pages}, nil
}

// render executes a page into a buffer first so a template error never leaves a half-written response
func (v *views) render(w http.ResponseWriter, status int, page string, data pageData) error {
	t, ok := v.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}
