package room

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/convo-chat/convo/internal/utils"
)

type GetRoomHandler struct {
	Rooms RoomFinder
	Log   logrus.FieldLogger
}

// ServeHTTP handles GET /rooms/{id}
func (h *GetRoomHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := roomIDParam(r)
	if err != nil {
		utils.Error(w, h.Log, err)
		return
	}
	room, err := h.Rooms.FindByID(r.Context(), id)
	if err != nil {
		utils.Error(w, h.Log, err)
		return
	}
	utils.JSON(w, http.StatusOK, utils.APIResponse{Success: true, Data: room})
}
