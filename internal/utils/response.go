package utils

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/convo-chat/convo/internal/apperr"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func JSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// Error answers with the status of err's kind. Errors of unknown kind are
// logged and reported to the client without detail.
func Error(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
	}
	JSON(w, status, APIResponse{Success: false, Message: apperr.PublicMessage(err)})
}
