package images

import (
	"errors"
	"net/http"

	"github.com/anoixa/image-gallery/api/common"
	"github.com/anoixa/image-gallery/api/middleware"
	"github.com/anoixa/image-gallery/database"
	"github.com/anoixa/image-gallery/internal/image"
	"github.com/anoixa/image-gallery/storage"
	"github.com/anoixa/image-gallery/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondServiceError 将服务层错误映射为 HTTP 响应，只输出可读信息
func (h *Handler) respondServiceError(c *gin.Context, err error, fallback string) {
	var (
		validationErr *image.ValidationError
		maxBytesErr   *http.MaxBytesError
		storageErr    *storage.Error
		dbErr         *database.Error
	)

	fields := []zap.Field{
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	}

	switch {
	case errors.As(err, &validationErr):
		common.RespondError(c, http.StatusBadRequest, validationErr.Message)

	case errors.As(err, &maxBytesErr):
		common.RespondError(c, http.StatusRequestEntityTooLarge, "Request body too large")

	case errors.Is(err, database.ErrNotFound):
		common.RespondError(c, http.StatusNotFound, "Image not found")

	case errors.Is(err, image.ErrNotInStorage):
		common.RespondError(c, http.StatusNotFound, "Image not stored in cloud storage")

	case utils.IsClientDisconnect(err):
		h.log.Info("client disconnected", fields...)
		common.RespondError(c, http.StatusInternalServerError, fallback)

	case errors.As(err, &storageErr):
		h.log.Error("storage error", append(fields, zap.String("kind", storageErr.Kind.String()))...)
		common.RespondError(c, http.StatusInternalServerError, fallback)

	case errors.As(err, &dbErr):
		h.log.Error("database error", append(fields, zap.String("kind", dbErr.Kind.String()))...)
		common.RespondError(c, http.StatusInternalServerError, fallback)

	default:
		h.log.Error("unexpected error", fields...)
		common.RespondError(c, http.StatusInternalServerError, fallback)
	}
}
