package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"ecodesk/internal/domain"
	"ecodesk/internal/middleware"
	"ecodesk/pkg/cloudinary"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Uploader validates and stores one attachment, returning its metadata.
type Uploader interface {
	UploadAttachment(ctx context.Context, fh *multipart.FileHeader, userID uint) (*domain.Attachment, error)
}

// AttachmentUploader checks size and sniffed MIME type against the configured
// limits before handing the bytes to blob storage.
type AttachmentUploader struct {
	cloud    cloudinary.Client
	folder   string
	maxBytes int64
}

func NewAttachmentUploader(cloud cloudinary.Client, folder string, maxBytes int64) *AttachmentUploader {
	return &AttachmentUploader{cloud: cloud, folder: folder, maxBytes: maxBytes}
}

func (u *AttachmentUploader) UploadAttachment(ctx context.Context, fh *multipart.FileHeader, userID uint) (*domain.Attachment, error) {
	if u.maxBytes > 0 && fh.Size > u.maxBytes {
		return nil, domain.Validation("attachment exceeds %d bytes", u.maxBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, domain.Validation("could not read file")
	}
	defer f.Close()

	// Sniff the real content type rather than trusting the declared header.
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, domain.Validation("could not detect file type")
	}
	detected := mt.String()
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = detected[:i]
	}
	category, ok := domain.AllowedAttachmentMIME[detected]
	if !ok {
		return nil, domain.Validation("attachment type %q is not allowed", detected)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, domain.Validation("could not read file")
	}

	folder := u.folder + "/" + strconv.FormatUint(uint64(userID), 10)
	publicID := "att_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	url, err := u.cloud.UploadFile(ctx, f, folder, publicID)
	if err != nil {
		return nil, domain.Storage("upload attachment", err)
	}
	return &domain.Attachment{
		URL:      url,
		Name:     fh.Filename,
		Mime:     detected,
		Category: category,
		Size:     fh.Size,
	}, nil
}

// UploadHandler exposes standalone attachment upload for socket clients: they
// upload here first, then reference the returned metadata in a message frame.
type UploadHandler struct {
	uploads Uploader
}

func NewUploadHandler(uploads Uploader) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

func (h *UploadHandler) UploadChatAttachment(c *gin.Context) {
	userID := middleware.GetUserID(c)
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	att, err := h.uploads.UploadAttachment(c.Request.Context(), fh, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, att)
}
