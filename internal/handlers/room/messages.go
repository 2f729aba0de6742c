package room

import (
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/convo-chat/convo/internal/apperr"
	"github.com/convo-chat/convo/internal/service"
	"github.com/convo-chat/convo/internal/utils"
)

type RoomMessagesHandler struct {
	Messages MessageLister
	Log      logrus.FieldLogger
}

// ServeHTTP handles GET /rooms/{id}/messages?page=&itemsPerPage=
func (h *RoomMessagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomIDParam(r)
	if err != nil {
		utils.Error(w, h.Log, err)
		return
	}
	page, err := intQuery(r, "page", 1)
	if err != nil {
		utils.Error(w, h.Log, err)
		return
	}
	perPage, err := intQuery(r, "itemsPerPage", service.DefaultItemsPerPage)
	if err != nil {
		utils.Error(w, h.Log, err)
		return
	}

	messages, err := h.Messages.GetMessagesByRoomID(r.Context(), roomID, service.Pagination{Page: page, ItemsPerPage: perPage})
	if err != nil {
		utils.Error(w, h.Log, err)
		return
	}
	if len(messages) == 0 {
		utils.JSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "no history", Data: messages})
		return
	}
	utils.JSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "messages fetched", Data: messages})
}

func intQuery(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperr.Invalid(key + " must be an integer")
	}
	return n, nil
}
