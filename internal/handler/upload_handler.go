package handler

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docchat/internal/pkg/errcode"
	"github.com/xxxsen/docchat/internal/pkg/response"
	"github.com/xxxsen/docchat/internal/service"
)

type UploadHandler struct {
	ingest  *service.IngestService
	maxSize int64
}

func NewUploadHandler(ingest *service.IngestService, maxSize int64) *UploadHandler {
	return &UploadHandler{ingest: ingest, maxSize: maxSize}
}

func (h *UploadHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file required")
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		response.Error(c, errcode.ErrInvalidFile, "only PDF files are supported")
		return
	}
	if h.maxSize > 0 && file.Size > h.maxSize {
		response.Error(c, errcode.ErrFileTooLarge, fmt.Sprintf("file exceeds %d bytes", h.maxSize))
		return
	}

	src, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrUploadFailed, "failed to read upload")
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		response.Error(c, errcode.ErrUploadFailed, "failed to read upload")
		return
	}

	info, err := h.ingest.IngestPDF(c.Request.Context(), filepath.Base(file.Filename), data)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"success":  true,
		"filename": info.Filename,
		"title":    info.Title,
		"author":   info.Author,
		"pages":    info.Pages,
		"chunks":   info.Chunks,
		"message":  fmt.Sprintf("Successfully processed %s into %d chunks", info.Filename, info.Chunks),
	})
}
