package main

import (
	"fmt"
	"log"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Restrict to exact host match for Origin
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := neturl.Parse(origin)
		if err != nil {
			return false
		}
		// Allow if origin host (host[:port]) matches request host
		if u.Host == r.Host {
			return true
		}
		// Additionally allow configured ExternalBaseURL host, if provided
		if AppConfig != nil && AppConfig.Server.ExternalBaseURL != "" {
			if eu, err2 := neturl.Parse(AppConfig.Server.ExternalBaseURL); err2 == nil && eu.Host == u.Host {
				return true
			}
		}
		return false
	},
	ReadBufferSize:   4096,
	WriteBufferSize:  4096,
	HandshakeTimeout: 10 * time.Second,
}

func main() {
	config, err := LoadConfig("config.json")
	if err != nil {
		log.Printf("Warning: could not load config.json: %v", err)
		log.Println("Using default configuration")
		config = DefaultConfig()
		AppConfig = config
	}

	setupRoutes()

	addr := config.BindAddr()
	fmt.Printf("Proxy listening on %s\n", addr)
	fmt.Printf("Upstream MUD: %s\n", config.UpstreamAddr())
	if config.Proxy.Enabled {
		if config.Proxy.Type == "tor" {
			fmt.Printf("Tor proxy: %s:%d (anonymized connections)\n", config.Proxy.Host, config.Proxy.Port)
		} else {
			fmt.Printf("SOCKS5 proxy: %s:%d\n", config.Proxy.Host, config.Proxy.Port)
		}
	} else {
		fmt.Println("Proxy: disabled (direct connections)")
	}

	log.Fatal(http.ListenAndServe(addr, nil))
}

func setupRoutes() {
	// WebSocket endpoint
	http.HandleFunc("/ws", handleWebSocket)

	// Public API
	http.HandleFunc("/api/config", handleGetConfig)
	http.HandleFunc("/api/health", handleHealth)

	// 404 for any other /api/* paths
	http.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"success":false,"error":"not_found","path":"%s"}`, r.URL.Path)
	})

	// Static files (browser client)
	http.Handle("/", http.FileServer(http.Dir("./static")))
}

// handleWebSocket upgrades the connection and runs one session for its
// lifetime. Each client gets an isolated session; nothing is shared between
// them.
func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("PROXY: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	s := newSession()
	defer s.cancel()
	log.Printf("SESSION %s: client attached from %s", s.id, r.RemoteAddr)

	go s.readPump(conn)
	go s.writePump(conn)

	s.run()
	log.Printf("SESSION %s: client detached", s.id)
}
