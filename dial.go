package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// CreateProxyDialer constructs a net.Dialer or SOCKS5 proxy dialer depending
// on configuration. When type is "tor", timeouts are extended to accommodate
// typical Tor circuit setup delays.
func CreateProxyDialer() (proxy.Dialer, error) {
	timeout := 10 * time.Second
	if AppConfig != nil {
		timeout = AppConfig.ConnectTimeout()
	}

	if AppConfig == nil || !AppConfig.Proxy.Enabled {
		// No proxy, use direct connection
		return &net.Dialer{
			Timeout: timeout,
		}, nil
	}

	proxyAddr := fmt.Sprintf("%s:%d", AppConfig.Proxy.Host, AppConfig.Proxy.Port)

	var auth *proxy.Auth
	if AppConfig.Proxy.Username != "" {
		auth = &proxy.Auth{
			User:     AppConfig.Proxy.Username,
			Password: AppConfig.Proxy.Password,
		}
	}

	// Tor circuits are slow to establish
	if AppConfig.Proxy.Type == "tor" {
		timeout = 3 * timeout
		log.Printf("PROXY: using Tor SOCKS5 proxy at %s (extended timeout)", proxyAddr)
	}

	dialer, err := proxy.SOCKS5("tcp", proxyAddr, auth, &net.Dialer{
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %v", err)
	}

	if AppConfig.Proxy.Type != "tor" {
		log.Printf("PROXY: using SOCKS5 proxy at %s", proxyAddr)
	}
	return dialer, nil
}

// connectUpstream dials the configured MUD, narrating progress on report.
// The hostname is resolved once; the full address list is then tried in
// order, up to MaxAttempts rounds with a fixed delay between rounds. The
// first connection to come up wins. Returns nil once every attempt has
// failed (or ctx ended); the caller stays idle rather than retrying further.
func connectUpstream(ctx context.Context, report chan<- ServerMessage) net.Conn {
	addr := AppConfig.UpstreamAddr()
	sendStatus(ctx, report, false, fmt.Sprintf("Connecting to %s...", addr))

	ips, err := net.DefaultResolver.LookupHost(ctx, AppConfig.MUD.Host)
	if err != nil {
		log.Printf("PROXY: DNS resolution failed for %s: %v", AppConfig.MUD.Host, err)
		sendStatus(ctx, report, false, "DNS resolution failed")
		return nil
	}

	dialer, err := CreateProxyDialer()
	if err != nil {
		log.Printf("PROXY: %v", err)
		sendStatus(ctx, report, false, "Proxy setup failed")
		return nil
	}

	port := strconv.Itoa(AppConfig.MUD.Port)
	maxAttempts := AppConfig.MUD.MaxAttempts

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		for _, ip := range ips {
			target := net.JoinHostPort(ip, port)
			log.Printf("PROXY: connection attempt %d/%d to %s", attempt, maxAttempts, target)

			conn, err := dialer.Dial("tcp", target)
			if err != nil {
				log.Printf("PROXY: failed to connect to %s: %v", target, err)
				continue
			}

			if tcpConn, ok := conn.(*net.TCPConn); ok {
				tcpConn.SetKeepAlive(true)
				tcpConn.SetKeepAlivePeriod(30 * time.Second)
			}

			log.Printf("PROXY: connected to %s (%s)", addr, target)
			sendStatus(ctx, report, true, fmt.Sprintf("Connected to %s", addr))
			return conn
		}

		if attempt < maxAttempts {
			sendStatus(ctx, report, false,
				fmt.Sprintf("Connection failed, retrying (%d/%d)...", attempt, maxAttempts))
			select {
			case <-time.After(AppConfig.RetryDelay()):
			case <-ctx.Done():
				return nil
			}
		}
	}

	sendStatus(ctx, report, false, fmt.Sprintf("Failed to connect after %d attempts", maxAttempts))
	return nil
}
