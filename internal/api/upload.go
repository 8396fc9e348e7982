package api

import (
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"college/internal/apperr"
	"college/internal/cloudinary"
)

const maxProofBytes = 10 << 20

var (
	errStorageUnavailable = &apperr.Error{Code: apperr.CodeUnavailable, Message: "proof storage not configured"}
	errUploadFailed       = &apperr.Error{Code: apperr.CodeUnavailable, Message: "proof upload failed"}
)

// uploadProof stores a multipart file or a {"data": "<base64 data URL>"} body and returns its URL.
func (h *handler) uploadProof(c *gin.Context) {
	if h.Proofs == nil {
		h.fail(c, errStorageUnavailable)
		return
	}

	var (
		result *cloudinary.UploadResult
		err    error
	)
	switch {
	case strings.Contains(c.ContentType(), "multipart/form-data"):
		file, header, ferr := c.Request.FormFile("file")
		if ferr != nil {
			h.fail(c, apperr.Invalid("file field required", apperr.FieldError{Field: "file", Error: "this field is required"}))
			return
		}
		defer file.Close()
		data, ferr := io.ReadAll(io.LimitReader(file, maxProofBytes+1))
		if ferr != nil {
			h.fail(c, ferr)
			return
		}
		if len(data) > maxProofBytes {
			h.fail(c, apperr.Invalid("file too large", apperr.FieldError{Field: "file", Error: "must be at most 10MB"}))
			return
		}
		result, err = h.Proofs.UploadBytes(c.Request.Context(), data, header.Filename)

	default:
		var body struct {
			Data string `json:"data" binding:"required"`
		}
		if berr := c.ShouldBindJSON(&body); berr != nil {
			h.badRequest(c, berr)
			return
		}
		result, err = h.Proofs.UploadBase64(c.Request.Context(), body.Data)
	}

	if err != nil {
		log.Printf("api: proof upload failed: %v", err)
		h.fail(c, errUploadFailed)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": result.SecureURL, "publicId": result.PublicID})
}
