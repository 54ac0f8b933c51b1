package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mogumap/coupon-engine/internal/domain"
	"github.com/mogumap/coupon-engine/internal/usecase"
)

type CreateDefinitionRequest struct {
	StoreID        string     `json:"store_id"`
	Kind           string     `json:"kind"`
	DiscountType   string     `json:"discount_type,omitempty"`
	DiscountAmount int        `json:"discount_amount,omitempty"`
	GiftMenuName   string     `json:"gift_menu_name,omitempty"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
}

type IssueRequest struct {
	UserID string `json:"user_id"`
}

type RedeemRequest struct {
	Code string `json:"code"`
}

type DefinitionResponse struct {
	UUID           string     `json:"uuid"`
	StoreID        string     `json:"store_id"`
	Kind           string     `json:"kind"`
	DiscountType   string     `json:"discount_type,omitempty"`
	DiscountAmount int        `json:"discount_amount,omitempty"`
	GiftMenuName   string     `json:"gift_menu_name,omitempty"`
	Status         string     `json:"status"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
}

type GrantResponse struct {
	ID       int64      `json:"id"`
	UserID   string     `json:"user_id"`
	Code     string     `json:"code"`
	Used     bool       `json:"used"`
	Expired  bool       `json:"expired"`
	ImageRef string     `json:"image_ref,omitempty"`
	UsedAt   *time.Time `json:"used_at,omitempty"`
}

type StatsResponse struct {
	Total   int64 `json:"total"`
	Used    int64 `json:"used"`
	Expired int64 `json:"expired"`
	Open    int64 `json:"open"`
}

type Handler struct {
	engine usecase.CouponEngine
}

func NewHandler(engine usecase.CouponEngine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/coupons", h.CreateDefinition)
		r.Get("/coupons/{uuid}", h.GetDefinition)
		r.Get("/coupons/{uuid}/stats", h.DefinitionStats)
		r.Post("/coupons/{uuid}/grants", h.IssueGrant)
		r.Post("/grants/redeem", h.RedeemGrant)
		r.Get("/users/{userID}/grants", h.ListGrants)
	})
}

func (h *Handler) CreateDefinition(w http.ResponseWriter, r *http.Request) {
	var req CreateDefinitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	def, err := h.engine.CreateDefinition(r.Context(), usecase.CreateDefinitionInput{
		StoreID:        req.StoreID,
		Kind:           domain.CouponKind(req.Kind),
		DiscountType:   req.DiscountType,
		DiscountAmount: req.DiscountAmount,
		GiftMenuName:   req.GiftMenuName,
		ExpiryDate:     req.ExpiryDate,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidDefinition) {
			http.Error(w, "invalid coupon definition", http.StatusBadRequest)
			return
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, definitionResponse(def))
}

func (h *Handler) GetDefinition(w http.ResponseWriter, r *http.Request) {
	def, err := h.engine.GetDefinition(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, definitionResponse(def))
}

func (h *Handler) DefinitionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.DefinitionStats(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Total:   stats.Total,
		Used:    stats.Used,
		Expired: stats.Expired,
		Open:    stats.Open,
	})
}

func (h *Handler) IssueGrant(w http.ResponseWriter, r *http.Request) {
	var req IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	grant, err := h.engine.Issue(r.Context(), req.UserID, chi.URLParam(r, "uuid"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, grantResponse(*grant))
}

func (h *Handler) RedeemGrant(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	grant, err := h.engine.Redeem(r.Context(), req.Code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grantResponse(*grant))
}

func (h *Handler) ListGrants(w http.ResponseWriter, r *http.Request) {
	grants, err := h.engine.ListGrants(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := make([]GrantResponse, 0, len(grants))
	for _, g := range grants {
		resp = append(resp, grantResponse(g))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrCouponNotFound), errors.Is(err, domain.ErrGrantNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrDuplicateIssuance), errors.Is(err, domain.ErrAlreadyRedeemed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrCouponExpired), errors.Is(err, domain.ErrGrantExpired):
		http.Error(w, err.Error(), http.StatusGone)
	case errors.Is(err, domain.ErrCodeSpaceExhausted):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func definitionResponse(def *domain.CouponDefinition) DefinitionResponse {
	return DefinitionResponse{
		UUID:           def.UUID,
		StoreID:        def.StoreID,
		Kind:           string(def.Kind),
		DiscountType:   def.DiscountType,
		DiscountAmount: def.DiscountAmount,
		GiftMenuName:   def.GiftMenuName,
		Status:         string(def.Status),
		ExpiryDate:     def.ExpiryDate,
	}
}

func grantResponse(g domain.CouponGrant) GrantResponse {
	return GrantResponse{
		ID:       g.ID,
		UserID:   g.UserID,
		Code:     g.Code,
		Used:     g.Used,
		Expired:  g.Expired,
		ImageRef: g.ImageRef,
		UsedAt:   g.UsedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
