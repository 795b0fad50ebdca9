package handler

import (
	"encoding/json"
	"net/http"
)

// DataHandler serves the role-gated and public data routes.
type DataHandler struct{}

func NewDataHandler() *DataHandler {
	return &DataHandler{}
}

// AdminData is reachable only through the admin role gate
func (h *DataHandler) AdminData(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"message": "welcome, admin, here is the protected data",
		"data":    map[string]string{"sensitiveInfo": "this is admin-level sensitive data"},
	})
}

// PublicData is accessible without a session
func (h *DataHandler) PublicData(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"message": "this is a public route accessible to anyone",
		"data":    map[string]string{"info": "here is some public information"},
	})
}
