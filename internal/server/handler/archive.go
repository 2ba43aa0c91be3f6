package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/ladderplan/ladderd/internal/domain"
)

// ArchiveHandler exposes the cold-storage trade archive for browsing and
// download. Routes return 404 when archival is disabled.
type ArchiveHandler struct {
	blobs  domain.BlobReader
	logger *slog.Logger
}

func NewArchiveHandler(blobs domain.BlobReader, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{blobs: blobs, logger: logHandler(logger, "archive")}
}

// ListArchives returns metadata for archived objects, optionally filtered by
// a key prefix.
// GET /api/archives?prefix=
func (h *ArchiveHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusNotFound, "archival is not enabled")
		return
	}

	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = "archive/trades/"
	}

	infos, err := h.blobs.List(r.Context(), prefix)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list archives", slog.Any("error", err))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// DownloadArchive streams one archived object.
// GET /api/archives/{key...}
func (h *ArchiveHandler) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusNotFound, "archival is not enabled")
		return
	}

	key := pathParam(r, "key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing archive key")
		return
	}

	// Check existence first so a missing key is a clean 404, not a broken
	// stream.
	ok, err := h.blobs.Exists(r.Context(), key)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "archive object not found")
		return
	}

	body, err := h.blobs.Get(r.Context(), key)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	if _, err := io.Copy(w, body); err != nil {
		// Headers are gone; nothing left to do but log.
		h.logger.WarnContext(r.Context(), "stream archive",
			slog.String("key", key),
			slog.Any("error", err),
		)
	}
}

// DeleteArchive removes one archived object, for retention cleanup after the
// data has been consumed downstream.
// DELETE /api/archives/{key...}
func (h *ArchiveHandler) DeleteArchive(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusNotFound, "archival is not enabled")
		return
	}

	key := pathParam(r, "key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing archive key")
		return
	}

	if err := h.blobs.Delete(r.Context(), key); err != nil {
		writeDomainError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "archive object deleted", slog.String("key", key))
	w.WriteHeader(http.StatusNoContent)
}
