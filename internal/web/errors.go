package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"

	"themed-storefront/internal/catalog"
	"themed-storefront/internal/theme"
)

// FriendlyError carries a stable code and a message safe to show clients.
type FriendlyError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *FriendlyError) Error() string {
	return e.Message
}

func (e *FriendlyError) Unwrap() error { return e.Cause }

func mapError(err error) *FriendlyError {
	var friendly *FriendlyError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &friendly):
		return friendly
	case errors.Is(err, theme.ErrInvalidThemeSelection), errors.Is(err, theme.ErrUnknownTheme):
		return &FriendlyError{Code: "INVALID_THEME", Message: "theme must be one of theme1, theme2, theme3", Status: http.StatusBadRequest, Cause: err}
	case errors.Is(err, catalog.ErrProductsUnavailable):
		return &FriendlyError{Code: "PRODUCTS_UNAVAILABLE", Message: "product catalog is unavailable", Status: http.StatusBadGateway, Cause: err}
	default:
		return &FriendlyError{Code: "INTERNAL_ERROR", Message: "storefront internal error", Status: http.StatusInternalServerError, Cause: err}
	}
}

func writeMappedErr(w http.ResponseWriter, err error) {
	friendly := mapError(err)
	writeErr(w, friendly.Status, friendly.Code, friendly.Message)
}

func writeErr(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message, "status": strconv.Itoa(status)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
