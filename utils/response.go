package utils

import (
	"encoding/json"
	"net/http"

	"freshcart-api/models"
)

func SendErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.APIResponse{
		Status:  "error",
		Message: message,
	})
}

func SendSuccessResponse(w http.ResponseWriter, response models.APIResponse) {
	SendResponse(w, http.StatusOK, response)
}

func SendResponse(w http.ResponseWriter, status int, response models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// SendAppError writes err using its customer-facing message. Errors that are not
// *models.AppError are treated as external failures so raw causes never leak.
func SendAppError(w http.ResponseWriter, err error) {
	appErr, ok := models.AsAppError(err)
	if !ok {
		appErr = models.NewExternalError(err)
	}
	SendErrorResponse(w, StatusForKind(appErr.Kind), appErr.Message)
}

func StatusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.KindValidation:
		return http.StatusUnprocessableEntity
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}
