package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/6529-Collections/whale-monitor/internal/rpc/handlers"
	"go.uber.org/zap"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func NewStatusMux(stats handlers.StatsSource) http.Handler {
	mux := http.NewServeMux()
	status := handlers.StatusGetHandler(stats)
	handlers.SetupHandlers(mux, handlers.MethodHandlers{
		handlers.CreateApiPath(handlers.ApiV1, "status"): {
			handlers.HTTP_GET: status,
		},
	})
	return loggingMiddleware(mux)
}

// StartRPCServer serves the status endpoint on port and returns a func that
// shuts the server down.
func StartRPCServer(ctx context.Context, port int, stats handlers.StatsSource) func() {
	zap.L().Info("Starting RPC server on port", zap.Int("port", port))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           NewStatusMux(stats),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				zap.L().Info("RPC server closed")
			} else {
				zap.L().Fatal("starting RPC server failed", zap.Error(err))
			}
		}
	}()
	return func() {
		zap.L().Info("Closing RPC server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("server shutdown failed", zap.Error(err))
		}
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{w, http.StatusOK}
		next.ServeHTTP(rw, r)

		zap.L().Info("Request",
			zap.String("ip", r.RemoteAddr),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.statusCode),
			zap.Duration("took", time.Since(start)),
		)
	})
}
