package images

import (
	"net/http"

	"github.com/anoixa/image-gallery/api/common"
	"github.com/gin-gonic/gin"
)

// DeleteImage 删除图片及其对象
// @Summary      Delete image
// @Tags         images
// @Produce      json
// @Param        id   path      string  true  "Image ID"
// @Success      200  {object}  common.MessageResponse
// @Failure      404  {object}  common.ErrorResponse  "Image not found"
// @Failure      500  {object}  common.ErrorResponse  "Storage or database failure"
// @Router       /images/{id} [delete]
func (h *Handler) DeleteImage(c *gin.Context) {
	if _, err := h.delete.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondServiceError(c, err, "Failed to delete image")
		return
	}

	common.RespondMessage(c, http.StatusOK, "Image deleted successfully")
}
