package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"capypay/internal/model"
	"capypay/internal/service"
)

// Handler wires the REST surface to the engines. Transports depend on
// the service interfaces only.
type Handler struct {
	users         service.UserService
	wallet        service.WalletService
	history       service.HistoryService
	orders        service.OrderService
	ranking       service.RankingService
	notifications service.NotificationService
	contacts      service.ContactService
}

func NewHandler(users service.UserService, wallet service.WalletService, history service.HistoryService,
	orders service.OrderService, ranking service.RankingService,
	notifications service.NotificationService, contacts service.ContactService) *Handler {
	return &Handler{
		users:         users,
		wallet:        wallet,
		history:       history,
		orders:        orders,
		ranking:       ranking,
		notifications: notifications,
		contacts:      contacts,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("POST /api/users/register", h.RegisterUser)
	mux.HandleFunc("POST /api/users/login", h.Login)
	mux.HandleFunc("GET /api/users/search", h.SearchUsers)
	mux.HandleFunc("GET /api/users/{id}", h.GetProfile)
	mux.HandleFunc("PUT /api/users/{id}/pin", h.UpdatePin)

	mux.HandleFunc("GET /api/contacts", h.ListContacts)
	mux.HandleFunc("POST /api/contacts", h.AddContact)
	mux.HandleFunc("PUT /api/contacts/{id}", h.UpdateContact)
	mux.HandleFunc("PUT /api/contacts/{id}/favorite", h.FavoriteContact)
	mux.HandleFunc("DELETE /api/contacts/{id}", h.DeleteContact)

	mux.HandleFunc("POST /api/wallet/recharge", h.Recharge)
	mux.HandleFunc("POST /api/wallet/transfer", h.Transfer)
	mux.HandleFunc("GET /api/wallet/history", h.History)
	mux.HandleFunc("GET /api/wallet/rate", h.GetRate)
	mux.HandleFunc("PUT /api/wallet/rate", h.SetRate)

	mux.HandleFunc("GET /api/cafeteria/menu", h.GetMenu)
	mux.HandleFunc("GET /api/cafeteria/stats", h.CafeteriaStats)
	mux.HandleFunc("POST /api/cafeteria/orders", h.PlaceOrder)
	mux.HandleFunc("GET /api/cafeteria/orders/{id}", h.GetOrder)
	mux.HandleFunc("POST /api/cafeteria/orders/{id}/complete", h.CompleteOrder)
	mux.HandleFunc("GET /api/cafeteria/my-orders/{userId}", h.GetUserOrders)

	mux.HandleFunc("GET /api/ranking", h.GetRanking)

	mux.HandleFunc("GET /api/notifications/{userId}", h.ListNotifications)
	mux.HandleFunc("PATCH /api/notifications/{id}/read", h.MarkNotificationRead)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// ── users ──────────────────────────────────────────────────────────────────

func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	account, err := h.users.Register(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, account)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	res, err := h.users.Login(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	account, err := h.users.GetProfile(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, account)
}

func (h *Handler) UpdatePin(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	var req struct {
		Pin string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := h.users.UpdatePin(r.Context(), id, req.Pin); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "pin_updated"})
}

func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	results, err := h.users.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

// ── contacts ───────────────────────────────────────────────────────────────

func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	ownerID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_user_id")
		return
	}
	contacts, err := h.contacts.List(r.Context(), ownerID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"contacts": contacts})
}

func (h *Handler) AddContact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID uuid.UUID `json:"user_id"`
		Cedula string    `json:"cedula"`
		Alias  string    `json:"alias"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	contact, err := h.contacts.Add(r.Context(), req.UserID, req.Cedula, req.Alias)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, contact)
}

func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	var req struct {
		Alias string `json:"alias"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := h.contacts.UpdateAlias(r.Context(), id, req.Alias); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) FavoriteContact(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	var req struct {
		IsFavorite bool `json:"is_favorite"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := h.contacts.SetFavorite(r.Context(), id, req.IsFavorite); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	if err := h.contacts.Remove(r.Context(), id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil)
}

// ── wallet ─────────────────────────────────────────────────────────────────

func (h *Handler) Recharge(w http.ResponseWriter, r *http.Request) {
	var req model.RechargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Cedula == "" || req.Method == "" {
		h.respondError(w, http.StatusBadRequest, "missing cedula, amount_bs or method")
		return
	}
	res, err := h.wallet.Recharge(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req model.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	res, err := h.wallet.Transfer(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	cedula := r.URL.Query().Get("cedula")
	if cedula == "" {
		h.respondError(w, http.StatusBadRequest, "missing cedula")
		return
	}
	history, err := h.history.GetHistory(r.Context(), cedula)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, history)
}

func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.wallet.GetRate(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"rate": rate})
}

func (h *Handler) SetRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rate decimal.Decimal `json:"rate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := h.wallet.SetRate(r.Context(), req.Rate); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"status": "rate_updated", "rate": req.Rate})
}

// ── cafeteria ──────────────────────────────────────────────────────────────

func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	menu, err := h.orders.GetMenu(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, menu)
}

func (h *Handler) CafeteriaStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orders.Stats(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req model.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	res, err := h.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, res)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	if err := h.orders.CompleteOrder(r.Context(), id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

func (h *Handler) GetUserOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("userId"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_user_id")
		return
	}
	orders, err := h.orders.GetUserOrders(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// ── ranking & notifications ────────────────────────────────────────────────

func (h *Handler) GetRanking(w http.ResponseWriter, r *http.Request) {
	userID := uuid.Nil
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid_user_id")
			return
		}
		userID = parsed
	}
	ranking, err := h.ranking.GetRanking(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, ranking)
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("userId"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_user_id")
		return
	}
	notifications, err := h.notifications.List(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	if err := h.notifications.MarkRead(r.Context(), id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

// ── helpers ────────────────────────────────────────────────────────────────

// respondServiceError maps the engines' error taxonomy to HTTP status
// codes: validation/business rule 400, PIN 403, not found 404,
// everything else 500.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var insufficient *model.InsufficientFundsError
	if errors.As(err, &insufficient) {
		h.respondJSON(w, http.StatusBadRequest, map[string]any{
			"error":     "Saldo insuficiente",
			"detalle":   insufficient.Error(),
			"faltante":  insufficient.Shortfall(),
			"requerido": insufficient.Required,
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrAccountNotFound),
		errors.Is(err, model.ErrSenderNotFound),
		errors.Is(err, model.ErrReceiverNotFound),
		errors.Is(err, model.ErrOrderNotFound),
		errors.Is(err, model.ErrContactNotFound),
		errors.Is(err, model.ErrNotificationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrBadPin):
		status = http.StatusForbidden
	case errors.Is(err, model.ErrBadCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, model.ErrEmailTaken), errors.Is(err, model.ErrCedulaTaken):
		status = http.StatusConflict
	case errors.Is(err, model.ErrInvalidAmount),
		errors.Is(err, model.ErrSelfTransfer),
		errors.Is(err, model.ErrEmptyOrder),
		isTypedBusinessError(err):
		status = http.StatusBadRequest
	}
	h.respondError(w, status, err.Error())
}

func isTypedBusinessError(err error) bool {
	var stock *model.StockError
	var notFound *model.ItemNotFoundError
	return errors.As(err, &stock) || errors.As(err, &notFound)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
