// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/relabs-tech/attitude_link/internal/link"
	"github.com/relabs-tech/attitude_link/internal/metrics"
)

// NewWebHandler exposes the consumer-facing operations over HTTP:
//
//	GET  /api/orientation         latest output of every body
//	GET  /api/orientation?body=B  poll one body; "fresh" tells if it is new
//	GET  /api/weight?body=B       configured blend weight
//	POST /api/weight?body=B&value=W
//	POST /api/command?cmd=calibrate_gyro|calibrate_accel
//	GET  /ws                      live stream and control (see Hub)
//	GET  /metrics                 Prometheus
func NewWebHandler(t *Tracker, hub *Hub) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/orientation", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("body")
		if name == "" {
			outs := t.Snapshot()
			if len(outs) == 0 {
				http.Error(w, "no data yet", http.StatusServiceUnavailable)
				return
			}
			writeJSON(w, outs)
			return
		}
		out, fresh, err := t.Latest(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, struct {
			BodyOutput
			Fresh bool `json:"fresh"`
		}{out, fresh})
	})

	mux.HandleFunc("/api/weight", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("body")
		switch r.Method {
		case http.MethodGet:
			weight, err := t.BlendWeight(name)
			if err != nil {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			writeJSON(w, map[string]any{"body": name, "blend_weight": weight})
		case http.MethodPost:
			value, err := strconv.ParseFloat(r.FormValue("value"), 64)
			if err != nil {
				http.Error(w, fmt.Sprintf("invalid value: %v", err), http.StatusBadRequest)
				return
			}
			if err := t.SetBlendWeight(name, value); err != nil {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			weight, _ := t.BlendWeight(name)
			writeJSON(w, map[string]any{"body": name, "blend_weight": weight})
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/command", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		cmd, err := link.ParseCommand(r.FormValue("cmd"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		t.Enqueue(cmd)
		writeJSON(w, map[string]string{"queued": cmd.String()})
	})

	mux.HandleFunc("/ws", hub.ServeWS)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// serveWeb runs the HTTP server until ctx ends.
func serveWeb(ctx context.Context, port int, h http.Handler) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	})
	defer stop()

	log.Printf("web: listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
