package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/ConfabulousDev/chat-insights/internal/logger"
)

// decompressMiddleware handles decompression of request bodies based on Content-Encoding header
// Supports: zstd
// Falls back to uncompressed if no Content-Encoding header
func decompressMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoding := r.Header.Get("Content-Encoding")

			if encoding == "" {
				next.ServeHTTP(w, r)
				return
			}

			if strings.EqualFold(encoding, "zstd") {
				decoder, err := zstd.NewReader(r.Body)
				if err != nil {
					respondError(w, http.StatusBadRequest, "Failed to create zstd decoder")
					return
				}
				defer decoder.Close()

				r.Body = io.NopCloser(decoder)

				// Downstream handlers see the uncompressed body
				r.Header.Del("Content-Encoding")
				r.Header.Del("Content-Length")
				r.ContentLength = -1

				next.ServeHTTP(w, r)
				return
			}

			respondError(w, http.StatusUnsupportedMediaType,
				"Unsupported Content-Encoding: "+encoding)
		})
	}
}

// validateContentType ensures POST requests carry a JSON body
func validateContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			log := logger.Ctx(r.Context())
			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				log.Info("Request missing Content-Type header", "method", r.Method, "path", r.URL.Path)
				http.Error(w, "Content-Type header required", http.StatusUnsupportedMediaType)
				return
			}

			mediaType := contentType
			if idx := strings.Index(contentType, ";"); idx != -1 {
				mediaType = strings.TrimSpace(contentType[:idx])
			}
			if mediaType != "application/json" {
				log.Info("Request with invalid Content-Type", "method", r.Method, "path", r.URL.Path, "content_type", mediaType)
				http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
