package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/convo-chat/convo/internal/utils"
)

type HealthHandler struct {
	DB  *sql.DB
	Log logrus.FieldLogger
}

// ServeHTTP reports ok while the database answers a ping. The ping error is
// logged, not returned to the caller.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		h.Log.WithError(err).Warn("database ping failed")
		utils.JSON(w, http.StatusServiceUnavailable, utils.APIResponse{Success: false, Message: "degraded"})
		return
	}
	utils.JSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "ok"})
}
