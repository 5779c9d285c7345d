package images

import (
	"net/http"

	"github.com/anoixa/image-gallery/api/common"
	"github.com/gin-gonic/gin"
)

// GetImage 查询单张图片
// @Summary      Get image
// @Tags         images
// @Produce      json
// @Param        id   path      string  true  "Image ID"
// @Success      200  {object}  ImageResponse
// @Failure      404  {object}  common.ErrorResponse  "Image not found"
// @Failure      500  {object}  common.ErrorResponse  "Database failure"
// @Router       /images/{id} [get]
func (h *Handler) GetImage(c *gin.Context) {
	view, err := h.query.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err, "Failed to fetch image")
		return
	}

	c.JSON(http.StatusOK, ImageResponse{Success: true, Image: view})
}

// RedirectImageFile 跳转到图片当前可用的链接
// @Summary      Redirect to image file
// @Tags         images
// @Param        id   path  string  true  "Image ID"
// @Success      302
// @Failure      404  {object}  common.ErrorResponse  "Image not found"
// @Failure      500  {object}  common.ErrorResponse  "No URL available"
// @Router       /images/{id}/file [get]
func (h *Handler) RedirectImageFile(c *gin.Context) {
	view, err := h.query.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err, "Failed to fetch image")
		return
	}
	if view.URL == nil {
		common.RespondError(c, http.StatusInternalServerError, "Image URL is currently unavailable")
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, *view.URL)
}

// GetSignedURL 生成分享链接
// @Summary      Get share link
// @Description  Returns a time-limited link for the image, or its permanent link when the backend serves one
// @Tags         images
// @Produce      json
// @Param        id   path      string  true  "Image ID"
// @Success      200  {object}  SignedURLResponse
// @Failure      404  {object}  common.ErrorResponse  "Image not found"
// @Failure      500  {object}  common.ErrorResponse  "Signing failure"
// @Router       /images/{id}/signed-url [get]
func (h *Handler) GetSignedURL(c *gin.Context) {
	link, err := h.query.Share(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err, "Failed to generate signed URL")
		return
	}

	c.JSON(http.StatusOK, SignedURLResponse{Success: true, ShareLink: link})
}
