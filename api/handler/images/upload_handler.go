package images

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/anoixa/image-gallery/api/common"
	"github.com/anoixa/image-gallery/internal/image"
	"github.com/gin-gonic/gin"
)

// UploadFormField 上传文件字段名
const UploadFormField = "image"

// UploadImage 上传单张图片
// @Summary      Upload image
// @Description  Upload one image with optional description and comma separated tags
// @Tags         images
// @Accept       multipart/form-data
// @Produce      json
// @Param        image        formData  file    true   "Image file"
// @Param        description  formData  string  false  "Description"
// @Param        tags         formData  string  false  "Comma separated tags"
// @Success      201  {object}  UploadResponse
// @Failure      400  {object}  common.ErrorResponse  "Validation failed"
// @Failure      413  {object}  common.ErrorResponse  "Request body too large"
// @Failure      500  {object}  common.ErrorResponse  "Storage or database failure"
// @Router       /images/upload [post]
func (h *Handler) UploadImage(c *gin.Context) {
	form, err := c.MultipartForm()
	if form != nil {
		defer func() { _ = form.RemoveAll() }()
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			common.RespondError(c, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		common.RespondError(c, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	files := form.File[UploadFormField]
	if len(files) == 0 {
		common.RespondError(c, http.StatusBadRequest, "No image file provided")
		return
	}
	fileHeader := files[0]

	view, err := h.ingest.Upload(c.Request.Context(), image.UploadInput{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Description: formValue(form, "description"),
		Tags:        formValue(form, "tags"),
		Open: func() (io.ReadSeekCloser, error) {
			return fileHeader.Open()
		},
	})
	if err != nil {
		h.respondServiceError(c, err, "Failed to upload image")
		return
	}

	c.JSON(http.StatusCreated, UploadResponse{Success: true, Image: view})
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}
