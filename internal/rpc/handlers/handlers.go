package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"
)

type Method string
type Path string
type ApiVersion string

const ApiV1 ApiVersion = "v1"

var (
	HTTP_GET  Method = http.MethodGet
	HTTP_HEAD Method = http.MethodHead
)

func CreateApiPath(version ApiVersion, path string) Path {
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	return Path("/api/" + string(version) + "/" + path)
}

type HandlerFunc func(r *http.Request) (any, error)

type MethodHandlers map[Path]map[Method]HandlerFunc

type errorResponse struct {
	Error string `json:"error"`
}

func SetupHandlers(mux *http.ServeMux, handlers MethodHandlers) {
	for path, methodHandlers := range handlers {
		allow := allowedMethods(methodHandlers)
		mux.HandleFunc(string(path), func(w http.ResponseWriter, r *http.Request) {
			handler, ok := methodHandlers[Method(r.Method)]
			if !ok {
				w.Header().Set("Allow", allow)
				writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
				return
			}
			resp, err := handler(r)
			if err != nil {
				zap.L().Error("failed to handle request", zap.String("path", r.URL.Path), zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
				return
			}
			if resp == nil {
				w.Header().Set("Content-Type", "application/json")
				return
			}
			body, err := json.Marshal(resp)
			if err != nil {
				zap.L().Error("failed to encode response", zap.Error(err))
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(append(body, '\n'))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func allowedMethods(m map[Method]HandlerFunc) string {
	methods := make([]string, 0, len(m))
	for method := range m {
		methods = append(methods, string(method))
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
