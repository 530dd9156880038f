package endpoint

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/fernanda-avila/MIndCare2025/util"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// sniffLen is how much of an upload is read to detect its content type.
const sniffLen = 3072

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// UploadResponse locates a stored file.
type UploadResponse struct {
	URL         string `json:"url" example:"/uploads/4f1c2a8e-9d1b-4c55-8a4e-2f0c7b1d9e10.png"`
	ContentType string `json:"content_type" example:"image/png"`
	Size        int64  `json:"size" example:"52311"`
}

// UploadFile godoc
// @Summary      Upload an image
// @Description  Store an image sent as multipart field "file". The type is detected from the content, not the file name.
// @Tags         Uploads
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        file formData file true "Image"
// @Success      201 {object} util.APIResponse{data=UploadResponse} "Stored"
// @Failure      400 {object} util.APIResponse "Missing, oversized or non-image file"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /uploads [post]
func UploadFile(uploadDir string, maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Leave room for the multipart envelope around the file itself.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+64*1024)

		fh, err := c.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				util.CallUserError(c, util.APIErrorParams{Msg: fmt.Sprintf("File exceeds %d bytes", maxBytes), Err: err})
				return
			}
			util.CallUserError(c, util.APIErrorParams{Msg: "A file field is required", Err: err})
			return
		}
		if fh.Size > maxBytes {
			util.CallUserError(c, util.APIErrorParams{Msg: fmt.Sprintf("File exceeds %d bytes", maxBytes), Err: fmt.Errorf("file size %d", fh.Size)})
			return
		}

		src, err := fh.Open()
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to read upload", Err: err})
			return
		}
		defer src.Close()

		head := make([]byte, sniffLen)
		n, err := io.ReadFull(src, head)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to read upload", Err: err})
			return
		}
		head = head[:n]
		mtype := mimetype.Detect(head)
		if !mimetype.EqualsAny(mtype.String(), allowedImageTypes...) {
			util.CallUserError(c, util.APIErrorParams{Msg: "Only JPEG, PNG, GIF or WebP images are accepted", Err: fmt.Errorf("content type %s", mtype.String())})
			return
		}

		if err := os.MkdirAll(uploadDir, 0o755); err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to prepare upload directory", Err: err})
			return
		}
		name := uuid.NewString() + mtype.Extension()
		dst, err := os.Create(filepath.Join(uploadDir, name))
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to store upload", Err: err})
			return
		}
		written, err := io.Copy(dst, io.MultiReader(bytes.NewReader(head), src))
		if cerr := dst.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dst.Name())
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to store upload", Err: err})
			return
		}

		util.CallCreated(c, util.APISuccessParams{
			Msg: "File uploaded",
			Data: UploadResponse{
				URL:         "/uploads/" + name,
				ContentType: mtype.String(),
				Size:        written,
			},
		})
	}
}
