package room

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/convo-chat/convo/internal/middleware"
	"github.com/convo-chat/convo/internal/service"
	"github.com/convo-chat/convo/internal/utils"
)

type SendMessageRequest struct {
	Message string `json:"message"`
}

// SendMessageHandler stores a message posted over REST and then pushes it
// to everyone connected to the room.
type SendMessageHandler struct {
	Messages  MessageCreator
	Publisher Publisher
	Log       logrus.FieldLogger
}

func (h *SendMessageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.Identity(r.Context())
	if !ok {
		utils.JSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	roomID, err := roomIDParam(r)
	if err != nil {
		utils.Error(w, h.Log, err)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "invalid request"})
		return
	}

	msg, err := h.Messages.Create(r.Context(), service.CreateMessage{
		RoomID:   roomID,
		UserID:   identity.UserID,
		Username: identity.Username,
		Text:     req.Message,
	})
	if err != nil {
		utils.Error(w, h.Log, err)
		return
	}
	delivered := h.Publisher.Publish(roomID, identity, msg.Text)
	h.Log.WithFields(logrus.Fields{"room_id": roomID, "user_id": identity.UserID, "delivered": delivered}).Debug("message sent")

	utils.JSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Message sent", Data: msg})
}
