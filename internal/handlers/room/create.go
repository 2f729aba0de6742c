package room

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/convo-chat/convo/internal/middleware"
	"github.com/convo-chat/convo/internal/utils"
)

// CreateRoomHandler opens the caller's personal room. The owner comes from
// the verified token, never from the body.
type CreateRoomHandler struct {
	Rooms RoomCreator
	Log   logrus.FieldLogger
}

func (h *CreateRoomHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.Identity(r.Context())
	if !ok {
		utils.JSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	room, err := h.Rooms.Create(r.Context(), identity.UserID, identity.Username)
	if err != nil {
		utils.Error(w, h.Log, err)
		return
	}
	h.Log.WithFields(logrus.Fields{"room_id": room.ID, "user_id": room.UserID}).Info("room created")
	utils.JSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Room created", Data: room})
}
