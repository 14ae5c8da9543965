package controllers

import (
	"encoding/base64"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/DanMeraDev/ElMayoristaProject/api/middleware"
	"github.com/DanMeraDev/ElMayoristaProject/api/responses"
	"github.com/DanMeraDev/ElMayoristaProject/api/validators"
	"github.com/DanMeraDev/ElMayoristaProject/internal/payments"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/enums"
	pkgerrors "github.com/DanMeraDev/ElMayoristaProject/pkg/errors"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/logger"
)

type addPaymentRequest struct {
	Amount             decimal.Decimal `json:"amount"`
	Method             string          `json:"method" validate:"required"`
	Notes              *string         `json:"notes,omitempty"`
	ReceiptBase64      string          `json:"receipt_base64,omitempty"`
	ReceiptContentType string          `json:"receipt_content_type,omitempty"`
}

// AddPayment records a payment against a sale. An optional receipt image is
// accepted inline as base64 and stored as an artifact.
func AddPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req addPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(req.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		var receipt []byte
		if req.ReceiptBase64 != "" {
			receipt, err = base64.StdEncoding.DecodeString(req.ReceiptBase64)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid receipt encoding"))
				return
			}
		}

		payment, err := svc.Add(r.Context(), payments.AddInput{
			SaleID:             saleID,
			Actor:              actor,
			Amount:             req.Amount,
			Method:             method,
			Notes:              req.Notes,
			ReceiptData:        receipt,
			ReceiptContentType: req.ReceiptContentType,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

// ListPayments returns the payments recorded against a sale.
func ListPayments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
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

		items, err := svc.ListBySale(r.Context(), saleID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// DeletePayment removes a payment while the sale is still modifiable.
func DeletePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
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
		paymentID, err := validators.ParsePathID(chi.URLParam(r, "paymentID"), "paymentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), payments.DeleteInput{
			PaymentID: paymentID,
			SaleID:    saleID,
			SellerID:  actor.ID,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}
