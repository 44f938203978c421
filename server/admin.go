package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// StatusSource 提供引擎状态快照（由 Loop 实现）
type StatusSource interface {
	Status(ctx context.Context) (Status, error)
}

const banner = "duelhub matchmaking server is running\n"

// NewRouter 组装 HTTP 接口：
// GET /status 返回与 GET_STATUS 相同结构的 JSON；/ws 升级为 WebSocket；
// 其他路径返回纯文本存活提示；所有响应带宽松的 CORS 头，OPTIONS 直接 200
func NewRouter(src StatusSource, ws http.Handler, log *zap.SugaredLogger) http.Handler {
	r := mux.NewRouter()
	if ws != nil {
		r.Handle("/ws", ws)
	}
	r.HandleFunc("/status", handleStatus(src, log)).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(handleBanner)
	r.MethodNotAllowedHandler = http.HandlerFunc(handleBanner)
	return withCORS(r)
}

func handleStatus(src StatusSource, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		st, err := src.Status(ctx)
		if err != nil {
			log.Warnw("status snapshot failed", "err", err)
			http.Error(w, "status unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st)
	}
}

func handleBanner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(banner))
}

// withCORS 为所有响应加上 CORS 头；预检请求直接返回 200
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
