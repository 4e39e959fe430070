package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-faster/errors"

	"themed-storefront/internal/theme"
)

type themeResponse struct {
	Current theme.ID       `json:"current"`
	Config  theme.Config   `json:"config"`
	Themes  []theme.Config `json:"themes"`
}

func (h *Handler) themeState() themeResponse {
	id, cfg := h.store.Current()
	return themeResponse{Current: id, Config: cfg, Themes: h.store.Themes()}
}

func (h *Handler) getTheme(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.themeState())
}

func (h *Handler) putTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme string `json:"theme"`
	}
	if err := decodeJSONBody(w, r, maxThemeBodyBytes, &req); err != nil {
		logRejection(h.log, r, "put_theme", "bad_json", err.Error())
		return
	}
	if err := h.store.SetCurrent(theme.ID(req.Theme)); err != nil {
		logRejection(h.log, r, "put_theme", "invalid_theme", req.Theme)
		writeMappedErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.themeState())
}

func (h *Handler) getProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.cache.GetOrCreate().Wait(r.Context())
	if r.Context().Err() != nil {
		return
	}
	if err != nil {
		writeMappedErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// getProductsStatus reports the fetch state without blocking and without
// starting the fetch.
func (h *Handler) getProductsStatus(w http.ResponseWriter, _ *http.Request) {
	state := "idle"
	if h.cache.Started() {
		state = h.cache.GetOrCreate().State().String()
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": state})
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, maxBytes int64, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(target); err != nil {
		var syntaxErr *json.SyntaxError
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &syntaxErr):
			writeErr(w, http.StatusBadRequest, "BAD_JSON", "request body must be valid JSON")
		case errors.As(err, &maxBytesErr):
			writeErr(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body exceeds max size")
		case strings.Contains(err.Error(), "unknown field"):
			writeErr(w, http.StatusBadRequest, "BAD_JSON", "request contains unknown fields")
		default:
			writeErr(w, http.StatusBadRequest, "BAD_JSON", "request body must be valid JSON")
		}
		return err
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeErr(w, http.StatusBadRequest, "BAD_JSON", "request body must contain exactly one JSON object")
		if err == nil {
			err = errors.New("trailing data after JSON object")
		}
		return err
	}
	return nil
}
