package http

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/application"
)

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}

func (h *Handler) listBundles(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{"bundles": h.service.ListBundles()})
}

func (h *Handler) listFiles(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListFiles(r.Context(), chi.URLParam(r, "bundle_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "list_files", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	var req application.QuoteRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "quote", err)
		return
	}
	res, err := h.service.QuotePrice(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "quote", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req application.CreateOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_order", err)
		return
	}
	res, err := h.service.CreateOrder(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_order", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req application.ConfirmPaymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "verify_payment", err)
		return
	}
	res, err := h.service.ConfirmPayment(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "verify_payment", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) redeemCoupon(w http.ResponseWriter, r *http.Request) {
	var req application.RedeemFreeRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "redeem_coupon", err)
		return
	}
	res, err := h.service.RedeemFree(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "redeem_coupon", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) checkAccess(w http.ResponseWriter, r *http.Request) {
	var req application.CheckAccessRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "check_access", err)
		return
	}
	res, err := h.service.CheckAccess(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "check_access", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) grantLoyalty(w http.ResponseWriter, r *http.Request) {
	var req application.GrantLoyaltyRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "grant_loyalty", err)
		return
	}
	if err := h.service.GrantLoyalty(r.Context(), req); err != nil {
		writeMappedError(r.Context(), w, "grant_loyalty", err)
		return
	}
	writeMessage(w, http.StatusOK, "Loyalty membership granted")
}

// downloadFile streams bundle content. The capability token travels as a
// query parameter so download links work without custom headers.
func (h *Handler) downloadFile(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	bundleID := chi.URLParam(r, "bundle_id")
	fileID := chi.URLParam(r, "file_id")

	handle, err := h.service.RetrieveFile(r.Context(), token, bundleID, fileID)
	if err != nil {
		writeMappedError(r.Context(), w, "download_file", err)
		return
	}
	defer func() { _ = handle.Content.Close() }()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", handle.Name))
	if handle.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(handle.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, handle.Content); err != nil {
		httpLogger().WarnContext(r.Context(), "download stream interrupted",
			"operation", "download_file",
			"outcome", "failure",
			"request_id", requestIDFromContext(r.Context()),
			"error", err.Error(),
		)
	}
}
