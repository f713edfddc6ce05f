package api

import (
	"net/http"

	"github.com/phrazzld/scry-drill/internal/api/shared"
	"github.com/phrazzld/scry-drill/internal/platform/logger"
)

// requireUserID returns the authenticated learner id or writes a 401.
func requireUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := shared.UserID(r.Context())
	if !ok {
		logger.FromContext(r.Context()).Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return 0, false
	}
	return userID, true
}

// decodeAndValidate reads a JSON body into req and validates it, writing a
// 400 on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := shared.DecodeJSON(w, r, req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, shared.ValidationMessage(err), err)
		return false
	}
	return true
}

// handleServiceError writes the status and safe message for err. A 204 gets
// no body.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := MapErrorToStatusCode(err)
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err)
}
