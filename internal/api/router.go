package api

import "net/http"

func Register(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /v1/health", h.Health)

	mux.HandleFunc("GET /v1/dispatcher/status", h.DispatcherStatus)
	mux.HandleFunc("POST /v1/dispatcher/start", h.DispatcherStart)
	mux.HandleFunc("POST /v1/dispatcher/stop", h.DispatcherStop)

	mux.HandleFunc("GET /v1/messages/archived", h.ListArchivedMessages)

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Voice Exchange is online"))
	})
}
