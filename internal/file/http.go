package file

import (
	"errors"
	"mime"
	"net/http"

	"github.com/abduss/filedrop/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// formField is the multipart field carrying the upload.
const formField = "file"

// multipartOverhead leaves room for boundaries and part headers on top of the file limit.
const multipartOverhead = 1 << 20

// RegisterRoutes mounts file operations under the provided router group.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.POST("/files/upload", handler.uploadFile)
	group.GET("/files", handler.listFiles)
	group.GET("/files/download/:id", handler.downloadFile)
	group.GET("/files/view/:id", handler.viewFile)
}

type httpHandler struct {
	service *Service
}

func (h *httpHandler) uploadFile(c *gin.Context) {
	if limit := h.service.MaxUploadBytes(); limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)
	}

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, ErrFileTooLarge)
			return
		}
		writeError(c, ErrNoFile)
		return
	}

	parts := form.File[formField]
	switch len(parts) {
	case 0:
		writeError(c, ErrNoFile)
		return
	case 1:
	default:
		writeError(c, ErrMultipleFiles)
		return
	}

	rec, err := h.service.Ingest(c.Request.Context(), parts[0])
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rec)
}

func (h *httpHandler) listFiles(c *gin.Context) {
	records, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "files": records})
}

func (h *httpHandler) downloadFile(c *gin.Context) {
	h.serveFile(c, ModeDownload)
}

func (h *httpHandler) viewFile(c *gin.Context) {
	h.serveFile(c, ModeView)
}

func (h *httpHandler) serveFile(c *gin.Context, mode Mode) {
	rec, body, err := h.service.Resolve(c.Request.Context(), c.Param("id"), mode)
	if err != nil {
		writeError(c, err)
		return
	}
	defer body.Close()

	headers := map[string]string{}
	if mode == ModeView {
		headers["Content-Disposition"] = contentDisposition("inline", rec.OriginalName)
		headers["X-Content-Type-Options"] = "nosniff"
	} else {
		headers["Content-Disposition"] = contentDisposition("attachment", rec.OriginalName)
	}

	c.DataFromReader(http.StatusOK, rec.SizeBytes, rec.ContentType, body, headers)
	if len(c.Errors) > 0 {
		logger.FromContext(c).Warn("stream aborted",
			zap.String("id", rec.ID), zap.String("mode", mode.String()), zap.Error(c.Errors.Last().Err))
	}
}

func contentDisposition(disposition, filename string) string {
	if v := mime.FormatMediaType(disposition, map[string]string{"filename": filename}); v != "" {
		return v
	}
	return disposition
}

func writeError(c *gin.Context, err error) {
	status, code, message := classifyError(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c).Error("file request failed", zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": message, "code": code})
}

func classifyError(err error) (int, string, string) {
	switch {
	case errors.Is(err, ErrNoFile):
		return http.StatusBadRequest, "NO_FILE", ErrNoFile.Error()
	case errors.Is(err, ErrMultipleFiles):
		return http.StatusBadRequest, "MULTIPLE_FILES", ErrMultipleFiles.Error()
	case errors.Is(err, ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED_TYPE", ErrUnsupportedType.Error()
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", ErrFileTooLarge.Error()
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", ErrNotFound.Error()
	case errors.Is(err, ErrUnsupportedForView):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED_FOR_VIEW", ErrUnsupportedForView.Error()
	default:
		return http.StatusInternalServerError, "STORAGE_UNAVAILABLE", ErrStorageUnavailable.Error()
	}
}
