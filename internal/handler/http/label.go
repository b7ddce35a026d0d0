package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/aleber123/nytt-sub001/internal/label"
	"github.com/aleber123/nytt-sub001/pkg/httputil"
)

const maxOrderNumberLen = 64

// ShippingLabel handles GET /api/v1/shipping-label?order=...
// Without an order number the label carries a blank line to write on.
func ShippingLabel(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order := strings.TrimSpace(r.URL.Query().Get("order"))
		if len(order) > maxOrderNumberLen {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "order number is too long"},
			})
			return
		}

		page, err := label.Render(order)
		if err != nil {
			httputil.WriteError(w, r, err, logger)
			return
		}
		httputil.WriteHTML(w, http.StatusOK, page)
	}
}
