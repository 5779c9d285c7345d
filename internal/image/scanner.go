package image

import (
	"context"
	"sync"
	"time"

	"github.com/anoixa/image-gallery/database"
	"github.com/anoixa/image-gallery/storage"
	"github.com/anoixa/image-gallery/utils"
	"github.com/anoixa/image-gallery/utils/generator"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ScanOptions 孤儿对象扫描参数
type ScanOptions struct {
	// MinAge 小于该年龄的对象跳过，避免误删进行中的上传
	MinAge time.Duration
	DryRun bool
}

// ScanReport 扫描结果
type ScanReport struct {
	Scanned int
	Skipped int
	Orphans []string
	Deleted int
}

// OrphanScanner 清理没有记录引用的对象
type OrphanScanner struct {
	blobs       storage.Provider
	db          database.Provider
	concurrency int
	log         *zap.Logger
	now         func() time.Time

	// ctx 在 Stop 时取消，进行中的扫描随之中断
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrphanScanner 创建孤儿对象扫描器
func NewOrphanScanner(blobs storage.Provider, db database.Provider, log *zap.Logger) *OrphanScanner {
	ctx, cancel := context.WithCancel(context.Background())
	return &OrphanScanner{
		blobs:       blobs,
		db:          db,
		concurrency: signConcurrency,
		log:         log.Named("scanner"),
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Scan 列出 images/ 下的对象并检查记录引用
func (s *OrphanScanner) Scan(ctx context.Context, opts ScanOptions) (*ScanReport, error) {
	objects, err := s.blobs.List(ctx, generator.KeyPrefix)
	if err != nil {
		return nil, err
	}

	report := &ScanReport{Scanned: len(objects)}
	var mu sync.Mutex
	now := s.now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, obj := range objects {
		created, ok := generator.TimestampFromKey(obj.Key)
		if !ok {
			created = obj.LastModified
		}
		if now.Sub(created) < opts.MinAge {
			report.Skipped++
			continue
		}

		g.Go(func() error {
			referenced, err := s.db.ExistsByStorageKey(ctx, obj.Key)
			if err != nil {
				return err
			}
			if referenced {
				return nil
			}

			mu.Lock()
			report.Orphans = append(report.Orphans, obj.Key)
			mu.Unlock()

			if opts.DryRun {
				return nil
			}
			if err := s.blobs.DeleteWithContext(ctx, obj.Key); err != nil {
				s.log.Warn("failed to delete orphan", zap.String("key", obj.Key), zap.Error(err))
				return nil
			}

			mu.Lock()
			report.Deleted++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	s.log.Info("orphan scan finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("skipped", report.Skipped),
		zap.Int("orphans", len(report.Orphans)),
		zap.Int("deleted", report.Deleted),
		zap.Bool("dry_run", opts.DryRun))
	return report, nil
}

// Start 按间隔周期扫描
func (s *OrphanScanner) Start(interval time.Duration, opts ScanOptions) {
	ticker := time.NewTicker(interval)
	s.wg.Add(1)
	utils.SafeGo(s.log, "orphan-scanner", func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(s.ctx, interval)
				if _, err := s.Scan(ctx, opts); err != nil && s.ctx.Err() == nil {
					s.log.Warn("orphan scan failed", zap.Error(err))
				}
				cancel()
			case <-s.ctx.Done():
				return
			}
		}
	})
	s.log.Info("orphan scanner started", zap.Duration("interval", interval), zap.Duration("min_age", opts.MinAge))
}

// Stop 停止周期扫描并等待进行中的扫描返回，之后可以安全关闭存储
func (s *OrphanScanner) Stop() {
	s.cancel()
	s.wg.Wait()
}
