package handlers

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Sessions  int    `json:"sessions"`
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().Unix(),
		Sessions:  a.Sessions.Len(),
	})
}
