package rest

import "net/http"

func (h *Handler) uploadVideo(w http.ResponseWriter, r *http.Request) {
	file, closer, err := h.parseUpload(w, r)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	defer closeQuietly(closer)

	if file == nil {
		writeError(r.Context(), w, h.logger, errNoFile)
		return
	}

	m, err := h.uploader.Upload(r.Context(), file)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	ok(w, http.StatusOK, "Video uploaded successfully", envelope{"data": m})
}
