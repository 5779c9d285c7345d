package images

import (
	"net/http"

	"github.com/anoixa/image-gallery/api/common"
	"github.com/gin-gonic/gin"
)

// ListQuery 列表查询参数
type ListQuery struct {
	Search string `form:"search"`
	Page   int    `form:"page" binding:"omitempty,min=0"`
	Limit  int    `form:"limit" binding:"omitempty,min=0"`
}

// ListImages 搜索并分页列出图片
// @Summary      List images
// @Description  Case-insensitive search over filename, description and tags. limit=0 returns all matches
// @Tags         images
// @Produce      json
// @Param        search  query     string  false  "Search term"
// @Param        page    query     int     false  "Page number, starting at 1"
// @Param        limit   query     int     false  "Page size, at most 100"
// @Success      200  {object}  ListResponse
// @Failure      400  {object}  common.ErrorResponse  "Invalid query parameters"
// @Failure      500  {object}  common.ErrorResponse  "Database failure"
// @Router       /images [get]
func (h *Handler) ListImages(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	views, total, err := h.query.List(c.Request.Context(), query.Search, query.Page, query.Limit)
	if err != nil {
		h.respondServiceError(c, err, "Failed to fetch images")
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Success: true,
		Count:   len(views),
		Total:   total,
		Images:  views,
	})
}
