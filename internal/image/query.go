package image

import (
	"context"
	"errors"
	"time"

	"github.com/anoixa/image-gallery/database"
	"github.com/anoixa/image-gallery/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// signConcurrency 列表签名的最大并发
const signConcurrency = 8

// QueryService 查询记录并附加访问链接
type QueryService struct {
	blobs    storage.Provider
	db       database.Provider
	listTTL  time.Duration
	shareTTL time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// NewQueryService 创建查询服务
func NewQueryService(blobs storage.Provider, db database.Provider, opts Options, log *zap.Logger) *QueryService {
	return &QueryService{
		blobs:    blobs,
		db:       db,
		listTTL:  opts.ListTTL,
		shareTTL: opts.ShareTTL,
		log:      log.Named("query"),
		now:      time.Now,
	}
}

// List 搜索并分页，单条签名失败时该条链接为空，不影响整体结果
func (s *QueryService) List(ctx context.Context, search string, page, limit int) ([]*ImageView, int64, error) {
	records, total, err := s.db.FindMany(ctx, database.Filter{Search: search, Page: page, Limit: limit})
	if err != nil {
		return nil, 0, err
	}

	issued := s.now()
	views := make([]*ImageView, len(records))

	var g errgroup.Group
	g.SetLimit(signConcurrency)
	for i, record := range records {
		g.Go(func() error {
			view, err := buildView(ctx, s.blobs, record, s.listTTL, issued)
			if err != nil {
				s.log.Warn("failed to sign url",
					zap.String("id", record.ID),
					zap.String("key", record.StorageKey),
					zap.Error(err))
			}
			views[i] = view
			return nil
		})
	}
	_ = g.Wait()

	return views, total, nil
}

// Get 查询单条记录
func (s *QueryService) Get(ctx context.Context, id string) (*ImageView, error) {
	record, err := s.db.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	view, err := buildView(ctx, s.blobs, record, s.listTTL, s.now())
	if err != nil {
		s.log.Warn("failed to sign url",
			zap.String("id", record.ID),
			zap.String("key", record.StorageKey),
			zap.Error(err))
	}
	return view, nil
}

// Share 生成分享链接，有效期为 shareTTL
func (s *QueryService) Share(ctx context.Context, id string) (*ShareLink, error) {
	record, err := s.db.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.StorageKey == "" {
		return nil, ErrNotInStorage
	}

	view, err := buildView(ctx, s.blobs, record, s.shareTTL, s.now())
	if err != nil {
		return nil, err
	}
	if view.URL == nil {
		return nil, errors.New("no url available for image")
	}

	return &ShareLink{
		URL:       *view.URL,
		ExpiresAt: view.ExpiresAt,
		Filename:  record.Filename,
	}, nil
}
