package handlers

import (
	"net/http"

	"github.com/6529-Collections/whale-monitor/internal/feed"
)

// StatsSource is satisfied by *feed.Subscriber.
type StatsSource interface {
	Stats() feed.Stats
}

type StatusResponse struct {
	Status string `json:"status"`
	feed.Stats
}

func StatusGetHandler(src StatsSource) HandlerFunc {
	return func(r *http.Request) (any, error) {
		resp := StatusResponse{Status: "OK"}
		if src != nil {
			resp.Stats = src.Stats()
		}
		return resp, nil
	}
}
