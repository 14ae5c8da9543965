package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/DanMeraDev/ElMayoristaProject/api/middleware"
	"github.com/DanMeraDev/ElMayoristaProject/api/responses"
	"github.com/DanMeraDev/ElMayoristaProject/api/validators"
	"github.com/DanMeraDev/ElMayoristaProject/internal/sales"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/db/models"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/enums"
	pkgerrors "github.com/DanMeraDev/ElMayoristaProject/pkg/errors"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/logger"
)

type createSaleRequest struct {
	SellerID         *string         `json:"seller_id,omitempty" validate:"omitempty,uuid4"`
	OrderNumber      *string         `json:"order_number,omitempty"`
	CustomerName     string          `json:"customer_name" validate:"required"`
	CustomerIDNumber *string         `json:"customer_id_number,omitempty"`
	CustomerAddress  *string         `json:"customer_address,omitempty"`
	CustomerCity     *string         `json:"customer_city,omitempty"`
	CustomerPhone    *string         `json:"customer_phone,omitempty"`
	CustomerEmail    *string         `json:"customer_email,omitempty" validate:"omitempty,email"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Shipping         decimal.Decimal `json:"shipping"`
	Total            decimal.Decimal `json:"total"`
	OrderDate        *time.Time      `json:"order_date,omitempty"`
}

type reviewSaleRequest struct {
	Approved        bool   `json:"approved"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

type saleListResponse struct {
	Items      []models.Sale `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// CreateSale registers a sale for the acting seller. Admins may register a
// sale on behalf of another seller by passing seller_id.
func CreateSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var req createSaleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sellerID := actor.ID
		if req.SellerID != nil {
			parsed, err := uuid.Parse(*req.SellerID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid seller id"))
				return
			}
			if parsed != actor.ID && !actor.IsAdmin() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "cannot create sales for another seller"))
				return
			}
			sellerID = parsed
		}

		sale, err := svc.Create(r.Context(), sales.CreateInput{
			SellerID:         sellerID,
			OrderNumber:      req.OrderNumber,
			CustomerName:     req.CustomerName,
			CustomerIDNumber: req.CustomerIDNumber,
			CustomerAddress:  req.CustomerAddress,
			CustomerCity:     req.CustomerCity,
			CustomerPhone:    req.CustomerPhone,
			CustomerEmail:    req.CustomerEmail,
			Subtotal:         req.Subtotal,
			Shipping:         req.Shipping,
			Total:            req.Total,
			OrderDate:        req.OrderDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sale)
	}
}

// GetSale returns one sale with its payments.
func GetSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		saleID, err := validators.ParsePathID(chi.URLParam(r, "saleID"), "saleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.GetByID(r.Context(), saleID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sale)
	}
}

// GetSaleByOrderNumber resolves a sale by its human-facing order number.
func GetSaleByOrderNumber(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		if orderNumber == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order number is required"))
			return
		}

		sale, err := svc.GetByOrderNumber(r.Context(), orderNumber, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sale)
	}
}

// ListSales returns a cursor-paginated sale listing. Sellers only ever see
// their own sales; admins may filter by seller.
func ListSales(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		input := sales.ListInput{Actor: actor, Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Limit = limit

		if raw := strings.TrimSpace(r.URL.Query().Get("seller_id")); raw != "" {
			sellerID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid seller id"))
				return
			}
			input.SellerID = &sellerID
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseSaleStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			input.Status = &status
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
			status, err := enums.ParsePaymentStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status filter"))
				return
			}
			input.PaymentStatus = &status
		}

		items, nextCursor, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, saleListResponse{Items: items, NextCursor: nextCursor})
	}
}

// ReviewSale records an administrative approve or reject decision.
func ReviewSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		saleID, err := validators.ParsePathID(chi.URLParam(r, "saleID"), "saleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req reviewSaleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.Review(r.Context(), sales.ReviewInput{
			SaleID:          saleID,
			Actor:           actor,
			Approved:        req.Approved,
			RejectionReason: req.RejectionReason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sale)
	}
}

// DeleteSale removes a modifiable sale together with its payments.
func DeleteSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		saleID, err := validators.ParsePathID(chi.URLParam(r, "saleID"), "saleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), saleID, actor.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}

// CommissionSummary returns settled and unsettled commission totals. Sellers
// get their own totals; admins may ask for any seller.
func CommissionSummary(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		sellerID := actor.ID
		if raw := strings.TrimSpace(r.URL.Query().Get("seller_id")); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid seller id"))
				return
			}
			if parsed != actor.ID && !actor.IsAdmin() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "cannot read another seller's commissions"))
				return
			}
			sellerID = parsed
		}

		totals, err := svc.CommissionSummary(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, totals)
	}
}
