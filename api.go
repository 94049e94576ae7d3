package main

import (
	"encoding/json"
	"net/http"
)

// PublicConfig is the subset of configuration the browser client may see.
type PublicConfig struct {
	MUDHost string `json:"mudHost"`
	MUDPort int    `json:"mudPort"`
}

// Handler to get public configuration
func handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	config := PublicConfig{}
	if AppConfig != nil {
		config.MUDHost = AppConfig.MUD.Host
		config.MUDPort = AppConfig.MUD.Port
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(config)
}

// Liveness endpoint for deployment health checks
func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
