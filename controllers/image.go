package controllers

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/dcode-github/property_rentals/backend/images"
	"github.com/dcode-github/property_rentals/backend/middleware"
)

type ImageResponse struct {
	URL string `json:"imageUrl"`
}

// UploadImage accepts a multipart "image" field and returns the public URL
// to store in a listing's imageUrl.
func UploadImage(uploader images.Uploader, maxBytes int64, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "User ID missing in context")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid or oversized upload")
			return
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			writeError(w, http.StatusBadRequest, "image file is required")
			return
		}
		defer file.Close()

		body, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Failed to read upload")
			return
		}
		contentType := http.DetectContentType(body)
		if !strings.HasPrefix(contentType, "image/") {
			writeError(w, http.StatusBadRequest, "Only image uploads are accepted")
			return
		}

		key := "properties/" + identity.UID + "/" + uuid.NewString() + imageExt(header.Filename, contentType)
		url, err := uploader.Upload(r.Context(), key, contentType, body)
		if err != nil {
			logger.Error("Image upload failed", slog.String("key", key), slog.String("error", err.Error()))
			writeError(w, http.StatusBadGateway, "Failed to upload image")
			return
		}
		writeJSON(w, http.StatusCreated, ImageResponse{URL: url})
	}
}

func imageExt(filename, contentType string) string {
	if ext := strings.ToLower(path.Ext(filename)); ext != "" {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
