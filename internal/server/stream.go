package server

import (
	"fmt"
	"net/http"
	"time"
)

const streamPeriod = 66 * time.Millisecond // ~15 FPS

// JPEGSource renders the current preview image as JPEG.
type JPEGSource interface {
	JPEG() ([]byte, error)
}

// StreamHandler serves the preview as an MJPEG stream.
type StreamHandler struct {
	source JPEGSource
}

// NewStreamHandler creates a new StreamHandler with the given source.
func NewStreamHandler(source JPEGSource) *StreamHandler {
	return &StreamHandler{source: source}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamPeriod)
	defer ticker.Stop()

	for {
		buf, err := h.source.JPEG()
		if err == nil {
			fmt.Fprintf(w, "--frame\r\n")
			fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
			fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(buf))
			if _, err := w.Write(buf); err != nil {
				return
			}
			fmt.Fprintf(w, "\r\n")

			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
