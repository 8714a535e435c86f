package api

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"shopify-customer-sync/internal/application"
	"shopify-customer-sync/internal/domain"
	"shopify-customer-sync/internal/infrastructure/session"
	shopifyinfra "shopify-customer-sync/internal/infrastructure/shopify"

	"github.com/rs/zerolog"
)

const maxImportBody = 1 << 20

// Handler serves the embedded app pages and their actions
type Handler struct {
	credentials *application.CredentialsService
	customers   *application.CustomerSyncService
	stores      *application.StoreService
	sessions    *session.Store
	tokens      *shopifyinfra.TokenManager
	views       *views
	apiKey      string
	logger      zerolog.Logger
}

// NewHandler creates the HTTP handlers
func NewHandler(
	credentials *application.CredentialsService,
	customers *application.CustomerSyncService,
	stores *application.StoreService,
	sessions *session.Store,
	tokens *shopifyinfra.TokenManager,
	apiKey string,
	logger zerolog.Logger,
) (*Handler, error) {
	v, err := newViews()
	if err != nil {
		return nil, err
	}
	return &Handler{
		credentials: credentials,
		customers:   customers,
		stores:      stores,
		sessions:    sessions,
		tokens:      tokens,
		views:       v,
		apiKey:      apiKey,
		logger:      logger,
	}, nil
}

// Health godoc
// @Summary Liveness check
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AuthStart redirects the merchant to the Shopify OAuth consent screen
func (h *Handler) AuthStart(w http.ResponseWriter, r *http.Request) {
	shop := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("shop")))
	if !shopifyinfra.ValidShopDomain(shop) {
		writeError(w, http.StatusBadRequest, "Invalid shop domain.")
		return
	}

	state, err := h.sessions.NewState(w, shop)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create OAuth state")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	authURL, err := h.tokens.AuthCodeURL(shop, state)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shop domain.")
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// AuthCallback completes the OAuth install and stores the home store credentials
func (h *Handler) AuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	shop, code, state := q.Get("shop"), q.Get("code"), q.Get("state")

	if shop == "" || code == "" || state == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameters")
		return
	}

	if err := h.tokens.VerifyCallback(r.URL); err != nil {
		h.logger.Warn().Err(err).Str("shop", shop).Msg("OAuth callback verification failed")
		writeError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	if err := h.sessions.ConsumeState(w, r, state, shop); err != nil {
		h.logger.Warn().Err(err).Str("shop", shop).Msg("OAuth state check failed")
		writeError(w, http.StatusUnauthorized, "Invalid session")
		return
	}

	accessToken, err := h.tokens.ExchangeToken(ctx, shop, code)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to complete installation")
		return
	}

	if _, err := h.credentials.SaveShopCredentials(ctx, shop, accessToken); err != nil {
		h.logger.Error().Err(err).Str("shop", shop).Msg("Failed to save credentials after OAuth")
		writeError(w, http.StatusInternalServerError, "Failed to complete installation")
		return
	}

	if err := h.sessions.CommitHome(w, shop); err != nil {
		h.logger.Error().Err(err).Msg("Failed to write home session")
		writeError(w, http.StatusInternalServerError, "Failed to complete installation")
		return
	}

	h.logger.Info().Str("shop", shop).Msg("App installed")
	http.Redirect(w, r, "/app?shop="+url.QueryEscape(shop), http.StatusFound)
}

// Dashboard godoc
// @Summary Dashboard with the store's unique ID
// @Produce html,json
// @Success 200 {object} map[string]string
// @Failure 401 {object} errorResponse
// @Router /app [get]
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	admin := domain.GetAdminSessionFromContext(ctx)

	id, err := h.credentials.EnsureShopID(ctx, admin.Shop, admin.AccessToken)
	if err != nil {
		// the page still renders; the ID shows as not available
		h.logger.Error().Err(err).Str("shop", admin.Shop).Msg("Failed to ensure shop ID")
		id = ""
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]string{"id": id})
		return
	}
	h.render(w, http.StatusOK, pageDashboard, pageData{
		Title:    "Customer Sync Tool",
		Shop:     admin.Shop,
		UniqueID: id,
	})
}

// DashboardAction godoc
// @Summary Import customers from the store behind a unique ID
// @Accept x-www-form-urlencoded
// @Produce json
// @Param actionType formData string true "must be import"
// @Param targetShopId formData string true "unique ID of the source store"
// @Success 200 {object} domain.SyncSummary
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /app [post]
func (h *Handler) DashboardAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	admin := domain.GetAdminSessionFromContext(ctx)

	actionType := r.FormValue("actionType")
	targetShopID := strings.TrimSpace(r.FormValue("targetShopId"))
	if actionType != "import" || targetShopID == "" {
		writeError(w, http.StatusBadRequest, "No action taken")
		return
	}

	target, err := h.credentials.GetShopCredentialsByID(ctx, targetShopID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to resolve shop ID")
		writeError(w, http.StatusInternalServerError, "Failed to resolve shop ID")
		return
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "Invalid shop ID")
		return
	}

	source := domain.AdminSession{Shop: target.Shop, AccessToken: target.AccessToken}
	summary, err := h.customers.SyncBetweenShops(ctx, source, *admin)
	if err != nil {
		if errors.Is(err, application.ErrDestinationFailed) {
			writeError(w, http.StatusInternalServerError, "Error connecting to the destination store.")
			return
		}
		if messages, ok := remoteValidation(err); ok {
			writeError(w, http.StatusBadRequest, "Failed to read customers from the source store.", messages...)
			return
		}
		writeError(w, http.StatusInternalServerError, "Error connecting to the source store.")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// LoginPage renders the external store login form
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, pageLogin, pageData{
		Title:     "Connect store",
		Connected: h.sessions.GetExternal(r).Shop,
	})
}

// Login godoc
// @Summary Connect an external store with a shop domain and access token
// @Accept x-www-form-urlencoded
// @Param shop formData string true "shop domain"
// @Param token formData string true "Admin API access token"
// @Success 302
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /app/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rawShop := r.FormValue("shop")
	token := strings.TrimSpace(r.FormValue("token"))

	if strings.TrimSpace(rawShop) == "" || token == "" {
		h.loginFailed(w, r, http.StatusBadRequest, rawShop, "Shop and token are required.")
		return
	}

	shop, err := application.NormalizeShopDomain(rawShop)
	if err != nil {
		h.loginFailed(w, r, http.StatusBadRequest, rawShop, err.Error())
		return
	}

	if err := h.stores.ValidateStore(ctx, shop, token); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			h.loginFailed(w, r, http.StatusUnauthorized, shop, "Invalid shop or token.")
			return
		}
		h.loginFailed(w, r, http.StatusInternalServerError, shop, "Error connecting to external store.")
		return
	}

	if err := h.sessions.CommitExternal(w, domain.ExternalSession{Shop: shop, Token: token}); err != nil {
		h.logger.Error().Err(err).Msg("Failed to write external session")
		h.loginFailed(w, r, http.StatusInternalServerError, shop, "Failed to save session.")
		return
	}

	h.logger.Info().Str("shop", shop).Msg("External store connected")
	http.Redirect(w, r, "/app/customers", http.StatusFound)
}

func (h *Handler) loginFailed(w http.ResponseWriter, r *http.Request, status int, shop string, message string) {
	if wantsJSON(r) {
		writeError(w, status, message)
		return
	}
	h.render(w, status, pageLogin, pageData{
		Title: "Connect store",
		Shop:  shop,
		Error: message,
	})
}

// Logout clears the external store session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.DestroyExternal(w)
	http.Redirect(w, r, "/app/login", http.StatusSeeOther)
}

// Customers godoc
// @Summary List customers of the connected external store
// @Produce html,json
// @Param query query string false "case-insensitive filter on name and email"
// @Success 200 {object} map[string][]domain.Customer
// @Failure 302
// @Failure 500 {object} errorResponse
// @Router /app/customers [get]
func (h *Handler) Customers(w http.ResponseWriter, r *http.Request) {
	external := h.sessions.GetExternal(r)
	if external.IsZero() {
		http.Redirect(w, r, "/app/login", http.StatusFound)
		return
	}

	query := r.URL.Query().Get("query")
	data := pageData{Title: "Customers", Shop: external.Shop, Query: query}

	store := domain.AdminSession{Shop: external.Shop, AccessToken: external.Token}
	customers, err := h.customers.ListCustomers(r.Context(), store)
	if err != nil {
		message := "Error connecting to external store."
		var remote *domain.RemoteError
		if errors.As(err, &remote) {
			message = "Failed to fetch customers."
		}
		if wantsJSON(r) {
			writeError(w, http.StatusInternalServerError, message)
			return
		}
		data.Error = message
		h.render(w, http.StatusInternalServerError, pageCustomers, data)
		return
	}

	data.Customers = application.FilterCustomers(customers, query)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string][]domain.Customer{"customers": data.Customers})
		return
	}
	h.render(w, http.StatusOK, pageCustomers, data)
}

// ImportCustomers godoc
// @Summary Create the selected customers in the home store
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param customers formData string true "JSON array of customers"
// @Success 200 {object} map[string][]domain.SyncResult
// @Failure 400 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /app/customers [post]
func (h *Handler) ImportCustomers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	admin := domain.GetAdminSessionFromContext(ctx)

	payload, err := readCustomersPayload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid customer data.")
		return
	}

	customers, err := application.DecodeCustomers(payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.customers.ImportCustomers(ctx, *admin, customers)
	if err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) && errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusBadRequest, appErr.Message)
			return
		}
		if messages, ok := remoteValidation(err); ok {
			writeError(w, http.StatusBadRequest, "GraphQL validation failed.", messages...)
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error while importing customers.")
		return
	}

	writeJSON(w, http.StatusOK, map[string][]domain.SyncResult{"results": results})
}

// Products godoc
// @Summary List products of the connected external store
// @Produce html,json
// @Success 200 {object} map[string][]domain.Product
// @Failure 302
// @Failure 500 {object} errorResponse
// @Router /app/products [get]
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	external := h.sessions.GetExternal(r)
	if external.IsZero() {
		http.Redirect(w, r, "/app/login", http.StatusFound)
		return
	}

	data := pageData{Title: "Products", Shop: external.Shop}

	products, err := h.stores.ListProducts(r.Context(), external)
	if err != nil {
		message := "Error connecting to external store."
		var remote *domain.RemoteError
		if errors.As(err, &remote) {
			message = "Failed to fetch products."
		}
		if wantsJSON(r) {
			writeError(w, http.StatusInternalServerError, message)
			return
		}
		data.Error = message
		h.render(w, http.StatusInternalServerError, pageProducts, data)
		return
	}

	data.Products = products
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string][]domain.Product{"products": products})
		return
	}
	h.render(w, http.StatusOK, pageProducts, data)
}

func (h *Handler) render(w http.ResponseWriter, status int, page string, data pageData) {
	data.APIKey = h.apiKey
	if err := h.views.render(w, status, page, data); err != nil {
		h.logger.Error().Err(err).Str("page", page).Msg("Failed to render page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// readCustomersPayload accepts the customers form field or a raw JSON body
func readCustomersPayload(r *http.Request) (string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
		if err != nil {
			return "", err
		}
		return string(body), nil
	}
	r.Body = http.MaxBytesReader(nil, r.Body, maxImportBody)
	if err := r.ParseForm(); err != nil {
		return "", err
	}
	return r.PostForm.Get("customers"), nil
}

// remoteValidation extracts the messages of a GraphQL-level rejection
func remoteValidation(err error) ([]string, bool) {
	var remote *domain.RemoteError
	if errors.As(err, &remote) && remote.IsGraphQL() {
		return remote.Messages, true
	}
	return nil, false
}
