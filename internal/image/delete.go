package image

import (
	"context"

	"github.com/anoixa/image-gallery/database"
	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/storage"
	"go.uber.org/zap"
)

// DeleteService 先删对象再删记录
type DeleteService struct {
	blobs storage.Provider
	db    database.Provider
	log   *zap.Logger
}

// NewDeleteService 创建删除服务
func NewDeleteService(blobs storage.Provider, db database.Provider, log *zap.Logger) *DeleteService {
	return &DeleteService{blobs: blobs, db: db, log: log.Named("delete")}
}

// Delete 删除记录及其对象，对象删除失败时保留记录以便重试
func (s *DeleteService) Delete(ctx context.Context, id string) (*models.Image, error) {
	record, err := s.db.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if record.StorageKey != "" {
		if err := s.blobs.DeleteWithContext(ctx, record.StorageKey); err != nil {
			s.log.Error("failed to delete blob",
				zap.String("id", record.ID),
				zap.String("key", record.StorageKey),
				zap.Error(err))
			return nil, err
		}
	}

	if err := s.db.DeleteByID(ctx, record.ID); err != nil {
		return nil, err
	}

	s.log.Info("image deleted", zap.String("id", record.ID), zap.String("key", record.StorageKey))
	return record, nil
}
