package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Astrolithia/qvtu-shopping/internal/domain"
	apperrors "github.com/Astrolithia/qvtu-shopping/pkg/errors"
	"github.com/Astrolithia/qvtu-shopping/pkg/httputil"
	pkgvalidator "github.com/Astrolithia/qvtu-shopping/pkg/validator"
)

// maxBodyBytes caps request bodies at 1MB.
const maxBodyBytes = 1 << 20

func init() {
	if err := pkgvalidator.Register("orderstatus", func(fl validator.FieldLevel) bool {
		return domain.OrderStatus(fl.Field().String()).Valid()
	}); err != nil {
		panic(err)
	}
}

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Message: "Content-Type must be application/json",
					Error: &httputil.ErrorResponse{
						Code:    "UNSUPPORTED_MEDIA_TYPE",
						Message: "Content-Type must be application/json",
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// decodeRequest reads and validates a JSON body into dst. On failure it
// writes a 400 and returns false.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		msg := "invalid request body: " + err.Error()
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Message: msg,
			Error:   &httputil.ErrorResponse{Code: apperrors.CodeInvalidInput, Message: msg},
		})
		return false
	}

	if err := pkgvalidator.Validate(dst); err != nil {
		httputil.WriteValidationError(w, err)
		return false
	}
	return true
}
