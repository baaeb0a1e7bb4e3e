package ivr

import "net/http"

// Register mounts the webhook endpoints. The gateway is configured with and
// without trailing slashes in the wild, so both forms are accepted.
func Register(mux *http.ServeMux, h *Handler) {
	handle := func(path string, fn http.HandlerFunc) {
		mux.HandleFunc("POST "+path, fn)
		mux.HandleFunc("POST "+path+"/{$}", fn)
	}

	handle("/voice", h.Voice)
	handle("/menu", h.Menu)
	handle("/archive-choice", h.ArchiveChoice)
	handle("/select-recipient", h.SelectRecipient)
	handle("/handle-recording", h.HandleRecording)
}
