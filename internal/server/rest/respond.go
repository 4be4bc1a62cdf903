package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/coursecloud/internal/common"
	"github.com/dmitrijs2005/coursecloud/internal/logging"
)

// envelope is the body of every JSON response.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, status int, message string, fields envelope) {
	body := envelope{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{"success": false, "message": message})
}

// statusFor maps an error to its HTTP status by category.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusForbidden
	case errors.Is(err, common.ErrNotVerified):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict
	case errors.Is(err, common.ErrorState):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as a failed envelope. Errors outside the known
// categories are logged and reported as a generic internal error.
func writeError(ctx context.Context, w http.ResponseWriter, logger logging.Logger, err error) {
	status := statusFor(err)

	if status == http.StatusInternalServerError {
		logger.Error(ctx, "request failed", "error", err)
		fail(w, status, common.ErrorInternal.Error())
		return
	}

	var ve *common.ValidationError
	if errors.As(err, &ve) && len(ve.Fields) > 0 {
		writeJSON(w, status, envelope{"success": false, "message": ve.Error(), "errors": ve.Fields})
		return
	}

	if status == http.StatusBadGateway {
		logger.Warn(ctx, "upstream failure", "error", err)
		fail(w, status, upstreamMessage(err))
		return
	}

	msg := err.Error()
	if errors.Is(err, common.ErrTokenExpired) {
		msg = "access token expired, use refresh token to generate again"
	}
	fail(w, status, msg)
}

// upstreamMessage hides collaborator details behind the category message.
func upstreamMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrMailDelivery):
		return common.ErrMailDelivery.Error()
	case errors.Is(err, common.ErrStorageUpload):
		return common.ErrStorageUpload.Error()
	default:
		return common.ErrorUpstream.Error()
	}
}

var errBadJSON = common.NewValidationError(map[string]string{"body": "must be valid JSON"})

// decodeJSON reads a JSON request body into dst. An empty body leaves dst
// untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errBadJSON
	}
	return nil
}
