// Package httpapi exposes the application services over REST.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	app "github.com/secretlease/marketplace/internal/app"
	"github.com/secretlease/marketplace/internal/app/domain/account"
	"github.com/secretlease/marketplace/internal/app/domain/adminconfig"
	"github.com/secretlease/marketplace/internal/app/domain/listing"
	"github.com/secretlease/marketplace/internal/app/domain/payment"
	"github.com/secretlease/marketplace/internal/app/metrics"
	accountssvc "github.com/secretlease/marketplace/internal/app/services/accounts"
	listingssvc "github.com/secretlease/marketplace/internal/app/services/listings"
	"github.com/secretlease/marketplace/internal/errors"
	"github.com/secretlease/marketplace/internal/httputil"
	"github.com/secretlease/marketplace/internal/middleware"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app   *app.Application
	audit *auditLog
}

// NewHandler returns a mux exposing the core REST API. Admin actions are
// recorded in a bounded audit trail; AUDIT_LOG_PATH selects an optional JSONL
// file sink.
func NewHandler(application *app.Application) http.Handler {
	var sink auditSink
	if fs, err := newFileAuditSink(os.Getenv("AUDIT_LOG_PATH")); err == nil && fs != nil {
		sink = fs
	}
	h := &handler{app: application, audit: newAuditLog(200, sink)}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.health)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/auth/", h.auth)
	mux.HandleFunc("/users/", h.users)
	mux.HandleFunc("/listings", h.listings)
	mux.HandleFunc("/listings/", h.listingResources)
	mux.HandleFunc("/transactions", h.transactions)
	mux.HandleFunc("/transactions/", h.transactionResources)
	mux.HandleFunc("/admin/", h.admin)
	return mux
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- auth -------------------------------------------------------------------

func (h *handler) auth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	switch strings.TrimPrefix(r.URL.Path, "/auth/") {
	case "register":
		h.register(w, r)
	case "login":
		h.login(w, r)
	case "logout":
		h.logout(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email          string `json:"email"`
		Password       string `json:"password"`
		PaymentMethod  string `json:"paymentMethod"`
		PaymentEmail   string `json:"paymentEmail"`
		WalletAddress  string `json:"walletAddress"`
		TransactionRef string `json:"transactionRef"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, r, errors.Validation("invalid request payload"))
		return
	}

	acct, token, err := h.app.Accounts.Register(r.Context(), accountssvc.RegisterInput{
		Email:          payload.Email,
		Password:       payload.Password,
		PaymentMethod:  account.PaymentMethod(payload.PaymentMethod),
		PaymentEmail:   payload.PaymentEmail,
		WalletAddress:  payload.WalletAddress,
		TransactionRef: payload.TransactionRef,
	})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	metrics.RecordRegistration()
	httputil.WriteSuccess(w, http.StatusCreated, "registration submitted for review", map[string]interface{}{
		"user":  acct,
		"token": token,
	})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, r, errors.Validation("invalid request payload"))
		return
	}

	acct, token, err := h.app.Accounts.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "", map[string]interface{}{
		"user":  acct,
		"token": token,
	})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.GetToken(r.Context())
	if token == "" {
		httputil.Unauthorized(w, "")
		return
	}
	if err := h.app.Accounts.Logout(r.Context(), token); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "logged out", nil)
}

// --- users ------------------------------------------------------------------

func (h *handler) users(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.Unauthorized(w, "")
		return
	}

	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/users"), "/")
	parts := strings.Split(trimmed, "/")

	switch parts[0] {
	case "me":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		acct, err := h.app.Accounts.Get(r.Context(), userID)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteSuccess(w, http.StatusOK, "", acct)

	case "favorites":
		h.favorites(w, r, userID, parts[1:])

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) favorites(w http.ResponseWriter, r *http.Request, userID string, rest []string) {
	if len(rest) == 0 || rest[0] == "" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		favs, err := h.app.Accounts.ListFavorites(r.Context(), userID)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteListing(w, http.StatusOK, len(favs), favs)
		return
	}

	listingID := rest[0]
	switch r.Method {
	case http.MethodPost:
		acct, err := h.app.Accounts.AddFavorite(r.Context(), userID, listingID)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteSuccess(w, http.StatusOK, "added to favorites", acct.Favorites)
	case http.MethodDelete:
		acct, err := h.app.Accounts.RemoveFavorite(r.Context(), userID, listingID)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteSuccess(w, http.StatusOK, "removed from favorites", acct.Favorites)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// --- listings ---------------------------------------------------------------

func (h *handler) listings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}

	payload, err := decodeListing(r.Body)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	created, err := h.app.Listings.Create(r.Context(), payload)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	h.recordAudit(r, "listing.create", created.ID)
	httputil.WriteSuccess(w, http.StatusCreated, "listing created", created)
}

func (h *handler) listingResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/listings"), "/")
	if trimmed == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if trimmed == "search" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.searchListings(w, r)
		return
	}

	listingID := trimmed
	switch r.Method {
	case http.MethodGet:
		l, err := h.app.Listings.Get(r.Context(), listingID, h.viewer(r))
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteSuccess(w, http.StatusOK, "", l)

	case http.MethodPut:
		if !h.requireAdmin(w, r) {
			return
		}
		payload, err := decodeListing(r.Body)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		payload.ID = listingID
		updated, err := h.app.Listings.Update(r.Context(), payload)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		h.recordAudit(r, "listing.update", listingID)
		httputil.WriteSuccess(w, http.StatusOK, "listing updated", updated)

	case http.MethodDelete:
		if !h.requireAdmin(w, r) {
			return
		}
		if err := h.app.Listings.Delete(r.Context(), listingID); err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		h.recordAudit(r, "listing.delete", listingID)
		httputil.WriteSuccess(w, http.StatusOK, "listing deleted", nil)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) searchListings(w http.ResponseWriter, r *http.Request) {
	query := listingssvc.SearchQuery{
		City:   r.URL.Query().Get("city"),
		SortBy: r.URL.Query().Get("sortBy"),
	}
	if raw := r.URL.Query().Get("maxBudget"); raw != "" {
		budget, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, r, errors.Validation("maxBudget must be a number"))
			return
		}
		query.MaxBudget = budget
	}

	results, err := h.app.Listings.Search(r.Context(), query, h.viewer(r))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteListing(w, http.StatusOK, len(results), results)
}

// viewer resolves the authenticated account, if any, for redaction decisions.
func (h *handler) viewer(r *http.Request) *account.Account {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		return nil
	}
	acct, err := h.app.Accounts.Get(r.Context(), userID)
	if err != nil {
		return nil
	}
	return &acct
}

// --- transactions -----------------------------------------------------------

func (h *handler) transactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.Unauthorized(w, "")
		return
	}

	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Amount float64 `json:"amount"`
			Method string  `json:"method"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			httputil.WriteError(w, r, errors.Validation("invalid request payload"))
			return
		}
		tx, err := h.app.Workflow.SubmitPayment(r.Context(), userID, payload.Amount, account.PaymentMethod(payload.Method))
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteSuccess(w, http.StatusCreated, "payment submitted for review", tx)

	case http.MethodGet:
		scope := userID
		if middleware.GetUserRole(r.Context()) == string(account.RoleAdmin) {
			scope = ""
		}
		var txs []payment.Transaction
		var err error
		switch r.URL.Query().Get("status") {
		case "":
			txs, err = h.app.Workflow.ListTransactions(r.Context(), scope)
		case "pending":
			txs, err = h.app.Workflow.PendingTransactions(r.Context(), scope)
		default:
			httputil.WriteError(w, r, errors.Validation("status filter must be pending"))
			return
		}
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteListing(w, http.StatusOK, len(txs), txs)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) transactionResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/transactions"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}

	txID := parts[0]
	switch parts[1] {
	case "approve":
		tx, err := h.app.Workflow.ApproveTransaction(r.Context(), txID)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		metrics.RecordTransactionDecision(true, tx.Amount)
		h.recordAudit(r, "transaction.approve", txID)
		httputil.WriteSuccess(w, http.StatusOK, "transaction approved", tx)
	case "reject":
		tx, err := h.app.Workflow.RejectTransaction(r.Context(), txID)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		metrics.RecordTransactionDecision(false, 0)
		h.recordAudit(r, "transaction.reject", txID)
		httputil.WriteSuccess(w, http.StatusOK, "transaction rejected", tx)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// --- admin ------------------------------------------------------------------

func (h *handler) admin(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/admin"), "/")
	parts := strings.Split(trimmed, "/")

	// The payment screen reads the destination config before the member has
	// full access, so the read stays open to any authenticated caller.
	if parts[0] == "config" && r.Method == http.MethodGet {
		cfg, err := h.app.AdminOps.GetConfig(r.Context())
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteSuccess(w, http.StatusOK, "", cfg)
		return
	}

	if !h.requireAdmin(w, r) {
		return
	}

	switch parts[0] {
	case "stats":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		stats, err := h.app.AdminOps.Stats(r.Context())
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteSuccess(w, http.StatusOK, "", stats)

	case "config":
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			PayPalEmail string  `json:"paypalEmail"`
			BTCAddress  string  `json:"btcAddress"`
			USDTAddress string  `json:"usdtAddress"`
			PriceUSD    float64 `json:"priceUsd"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			httputil.WriteError(w, r, errors.Validation("invalid request payload"))
			return
		}
		cfg, err := h.app.AdminOps.UpdateConfig(r.Context(), adminconfig.Config{
			PayPalEmail: payload.PayPalEmail,
			BTCAddress:  payload.BTCAddress,
			USDTAddress: payload.USDTAddress,
			PriceUSD:    payload.PriceUSD,
		})
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		h.recordAudit(r, "config.update", "")
		httputil.WriteSuccess(w, http.StatusOK, "configuration updated", cfg)

	case "users":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		accts, err := h.app.Workflow.ListAccounts(r.Context())
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteListing(w, http.StatusOK, len(accts), accts)

	case "audit":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, _ = strconv.Atoi(raw)
		}
		entries := h.audit.recent(limit)
		httputil.WriteListing(w, http.StatusOK, len(entries), entries)

	case "pending-signups":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		pending, err := h.app.Workflow.PendingSignups(r.Context())
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteListing(w, http.StatusOK, len(pending), pending)

	case "approve-user":
		if r.Method != http.MethodPost || len(parts) != 2 {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		acct, err := h.app.Workflow.ApproveSignup(r.Context(), parts[1])
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		metrics.RecordSignupDecision(true)
		h.recordAudit(r, "signup.approve", parts[1])
		httputil.WriteSuccess(w, http.StatusOK, "user approved", acct)

	case "reject-user":
		if r.Method != http.MethodPost || len(parts) != 2 {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := h.app.Workflow.RejectSignup(r.Context(), parts[1]); err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		metrics.RecordSignupDecision(false)
		h.recordAudit(r, "signup.reject", parts[1])
		httputil.WriteSuccess(w, http.StatusOK, "user rejected", nil)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// recordAudit appends an entry to the admin action trail.
func (h *handler) recordAudit(r *http.Request, action, target string) {
	h.audit.record(auditEntry{
		Time:       time.Now().UTC(),
		User:       middleware.GetUserID(r.Context()),
		Role:       middleware.GetUserRole(r.Context()),
		Action:     action,
		Target:     target,
		Path:       r.URL.Path,
		Method:     r.Method,
		RemoteAddr: r.RemoteAddr,
	})
}

func (h *handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if middleware.GetUserID(r.Context()) == "" {
		httputil.Unauthorized(w, "")
		return false
	}
	if middleware.GetUserRole(r.Context()) != string(account.RoleAdmin) {
		httputil.WriteError(w, r, errors.Forbidden("admin access required"))
		return false
	}
	return true
}

func decodeListing(body io.ReadCloser) (listing.Listing, error) {
	var payload struct {
		City        string   `json:"city"`
		Title       string   `json:"title"`
		Area        string   `json:"area"`
		Price       int      `json:"price"`
		Beds        int      `json:"beds"`
		Baths       int      `json:"baths"`
		Sqft        int      `json:"sqft"`
		Type        string   `json:"type"`
		Address     string   `json:"address"`
		ImageURL    string   `json:"imageUrl"`
		Description string   `json:"description"`
		Amenities   []string `json:"amenities"`
		Contact     string   `json:"contact"`
		Active      *bool    `json:"isActive"`
	}
	if err := decodeJSON(body, &payload); err != nil {
		return listing.Listing{}, errors.Validation("invalid request payload")
	}

	active := true
	if payload.Active != nil {
		active = *payload.Active
	}
	return listing.Listing{
		City:        listing.City(strings.ToUpper(strings.TrimSpace(payload.City))),
		Title:       payload.Title,
		Area:        payload.Area,
		Price:       payload.Price,
		Beds:        payload.Beds,
		Baths:       payload.Baths,
		Sqft:        payload.Sqft,
		Type:        payload.Type,
		Address:     payload.Address,
		ImageURL:    payload.ImageURL,
		Description: payload.Description,
		Amenities:   payload.Amenities,
		Contact:     payload.Contact,
		Active:      active,
	}, nil
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
