package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel"

	"github.com/sanLimbu/esindex/internal"
)

const otelName = "github.com/sanLimbu/esindex/internal/rest"

//ErrorResponse represents a response containing an error message.
type ErrorResponse struct {
	Error       string            `json:"error"`
	Validations map[string]string `json:"validations,omitempty"`
}

func renderErrorResponse(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	status := http.StatusInternalServerError

	var ierr *internal.Error
	if !errors.As(err, &ierr) {
		resp.Error = "internal error"
	} else {
		switch ierr.Code() {
		case internal.ErrorCodeNotFound:
			status = http.StatusNotFound
		case internal.ErrorCodeInvalidArgument:
			status = http.StatusBadRequest

			var verrs validationErrors
			if errors.As(ierr, &verrs) {
				resp.Validations = verrs.fields()
			}
		}
	}

	if err != nil {
		_, span := otel.Tracer(otelName).Start(ctx, "rest.renderErrorResponse")
		defer span.End()

		span.RecordError(err)
	}

	renderResponse(w, resp, status)
}

func renderResponse(w http.ResponseWriter, res interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")

	content, err := json.Marshal(res)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)

	_, _ = w.Write(content)
}

//renderRawResponse writes an Elasticsearch response body untouched.
func renderRawResponse(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	_, _ = w.Write(body)
}
