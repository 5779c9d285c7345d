package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	stdimage "image"
	"image/color"
	"image/png"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anoixa/image-gallery/database"
	"github.com/anoixa/image-gallery/database/dbtest"
	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testListTTL  = 7 * 24 * time.Hour
	testShareTTL = time.Hour
)

var testOptions = Options{
	MaxUploadBytes: 5 << 20,
	ListTTL:        testListTTL,
	ShareTTL:       testShareTTL,
}

// pngBytes 生成指定尺寸的 PNG
func pngBytes(t testing.TB, w, h int) []byte {
	t.Helper()
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// memFile 可 Seek 的内存文件，记录是否被关闭
type memFile struct {
	*bytes.Reader
	closed *atomic.Bool
}

func (f memFile) Close() error {
	f.closed.Store(true)
	return nil
}

func uploadInput(name, contentType string, data []byte, closed *atomic.Bool) UploadInput {
	if closed == nil {
		closed = &atomic.Bool{}
	}
	return UploadInput{
		Filename:    name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadSeekCloser, error) {
			return memFile{Reader: bytes.NewReader(data), closed: closed}, nil
		},
	}
}

func newTestLocal(t *testing.T) *storage.LocalStorage {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir(), "http://localhost:3001/files")
	require.NoError(t, err)
	return s
}

func listBlobs(t *testing.T, s storage.Provider) []storage.ObjectInfo {
	t.Helper()
	objects, err := s.List(context.Background(), "images/")
	require.NoError(t, err)
	return objects
}

// signingStorage 模拟只能签名访问的对象存储
type signingStorage struct {
	*storage.LocalStorage
	failSign atomic.Bool
}

func (s *signingStorage) PublicURL(string) string { return "" }

func (s *signingStorage) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if s.failSign.Load() {
		return "", &storage.Error{Kind: storage.KindUnreachable, Op: "sign", Key: key, Err: errors.New("dial tcp: connection refused")}
	}
	return fmt.Sprintf("https://signed.test/%s?expires=%d", key, int(ttl.Seconds())), nil
}

// failingPutStorage 写对象总是失败
type failingPutStorage struct {
	*storage.LocalStorage
}

func (s failingPutStorage) PutWithContext(_ context.Context, key string, _ io.Reader, _ int64, _ string) error {
	return &storage.Error{Kind: storage.KindQuotaExceeded, Op: "put", Key: key, Err: errors.New("bucket quota exceeded")}
}

// failingDeleteStorage 删除对象总是失败
type failingDeleteStorage struct {
	*storage.LocalStorage
}

func (s failingDeleteStorage) DeleteWithContext(_ context.Context, key string) error {
	return &storage.Error{Kind: storage.KindAuthFailed, Op: "delete", Key: key, Err: errors.New("access denied")}
}

// cancelAfterPut 写对象成功后取消请求上下文
type cancelAfterPut struct {
	*storage.LocalStorage
	cancel context.CancelFunc
}

func (s cancelAfterPut) PutWithContext(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	err := s.LocalStorage.PutWithContext(ctx, key, r, size, contentType)
	s.cancel()
	return err
}

// failingInsertDB 写记录总是失败
type failingInsertDB struct {
	database.Provider
}

func (failingInsertDB) Insert(context.Context, *models.Image) error {
	return &database.Error{Kind: database.KindUnavailable, Op: "insert", Err: errors.New("connection refused")}
}

type fixture struct {
	blobs  storage.Provider
	db     *database.GormProvider
	ingest *IngestService
	query  *QueryService
	delete *DeleteService
}

func newFixture(t *testing.T, blobs storage.Provider) *fixture {
	t.Helper()
	db := dbtest.NewSQLite(t)
	log := zap.NewNop()
	return &fixture{
		blobs:  blobs,
		db:     db,
		ingest: NewIngestService(blobs, db, testOptions, log),
		query:  NewQueryService(blobs, db, testOptions, log),
		delete: NewDeleteService(blobs, db, log),
	}
}

func (f *fixture) upload(t *testing.T, name, description, tags string) *ImageView {
	t.Helper()
	in := uploadInput(name, "image/png", pngBytes(t, 4, 3), nil)
	in.Description = description
	in.Tags = tags
	view, err := f.ingest.Upload(context.Background(), in)
	require.NoError(t, err)
	return view
}
