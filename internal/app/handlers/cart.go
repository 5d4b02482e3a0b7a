package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/melihmerall/ilisan-commerce/internal/domain/models"
	"github.com/melihmerall/ilisan-commerce/internal/jwtauth/jwtmiddleware"
	"github.com/melihmerall/ilisan-commerce/internal/service"
	"github.com/melihmerall/ilisan-commerce/internal/storage"
)

// CartLineResponse is one cart line in the API shape.
type CartLineResponse struct {
	ProductID int64  `json:"productId"`
	VariantID *int64 `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	LineTotal string `json:"lineTotal"`
}

// CartResponse is the resolved cart with its subtotal.
type CartResponse struct {
	Lines    []CartLineResponse `json:"lines"`
	SubTotal string             `json:"subTotal"`
}

// AddCartItemRequest adds a product (or variant) to the cart.
type AddCartItemRequest struct {
	ProductID int64  `json:"productId" validate:"required,gt=0"`
	VariantID *int64 `json:"variantId"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// resolveOwner picks the cart owner for a request: the authenticated user
// when a valid token was presented, otherwise the anonymous session token.
// A missing session token is generated and echoed back in the response
// header so the client can keep it.
func resolveOwner(w http.ResponseWriter, r *http.Request) models.CartOwner {
	if userID, ok := jwtmiddleware.FromContext(r.Context()); ok {
		return models.UserOwner(userID)
	}
	token := r.Header.Get(SessionTokenHeader)
	if token == "" {
		token = uuid.NewString()
	}
	w.Header().Set(SessionTokenHeader, token)
	return models.SessionOwner(token)
}

// GetCartHandler handles GET /api/cart.
func GetCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetCartHandler"
		logger := log.With(slog.String("op", op))

		owner := resolveOwner(w, r)
		lines, err := cartService.ResolveCart(r.Context(), owner)
		if err != nil {
			logger.Error("failed to resolve cart", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, toCartResponse(lines))
	}
}

// AddCartItemHandler handles POST /api/cart/items.
func AddCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddCartItemHandler"
		logger := log.With(slog.String("op", op))

		var req AddCartItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		owner := resolveOwner(w, r)
		err := cartService.AddItem(r.Context(), owner, req.ProductID, req.VariantID, req.Quantity)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrValidation):
				http.Error(w, "invalid cart item", http.StatusBadRequest)
			case errors.Is(err, storage.ErrProductNotFound), errors.Is(err, storage.ErrVariantNotFound):
				http.Error(w, "product not found", http.StatusNotFound)
			default:
				logger.Error("failed to add cart item", slog.Any("error", err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		lines, err := cartService.ResolveCart(r.Context(), owner)
		if err != nil {
			logger.Error("failed to resolve cart", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, toCartResponse(lines))
	}
}

// RemoveCartItemHandler handles DELETE /api/cart/items/{productID}. An
// optional "variantId" query parameter narrows the line.
func RemoveCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveCartItemHandler"
		logger := log.With(slog.String("op", op))

		productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}
		var variantID *int64
		if raw := r.URL.Query().Get("variantId"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				http.Error(w, "invalid variant id", http.StatusBadRequest)
				return
			}
			variantID = &id
		}

		owner := resolveOwner(w, r)
		if err := cartService.RemoveItem(r.Context(), owner, productID, variantID); err != nil {
			if errors.Is(err, storage.ErrCartLineNotFound) {
				http.Error(w, "cart line not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to remove cart item", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func toCartResponse(lines []*models.CartLine) CartResponse {
	resp := CartResponse{
		Lines:    make([]CartLineResponse, 0, len(lines)),
		SubTotal: models.CartSubtotal(lines).StringFixed(2),
	}
	for _, line := range lines {
		resp.Lines = append(resp.Lines, CartLineResponse{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
			LineTotal: line.LineTotal().StringFixed(2),
		})
	}
	return resp
}
