package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/anoixa/image-gallery/database/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"
)

const imagesCollection = "images"

// imageDocument images 集合中的文档
type imageDocument struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	Filename     string        `bson:"filename"`
	OriginalName string        `bson:"originalName"`
	Description  string        `bson:"description"`
	Tags         []string      `bson:"tags"`
	FileSize     int64         `bson:"fileSize"`
	FileType     string        `bson:"fileType"`
	Width        int           `bson:"width,omitempty"`
	Height       int           `bson:"height,omitempty"`
	StorageKey   string        `bson:"storageKey"`
	StorageURL   string        `bson:"storageUrl,omitempty"`
	UploadDate   time.Time     `bson:"uploadDate"`
}

// MongoProvider 基于 MongoDB 的元数据存储
type MongoProvider struct {
	client *mongo.Client
	coll   *mongo.Collection
	log    *zap.Logger
}

// NewMongoProvider 连接 MongoDB 并校验连通性
func NewMongoProvider(ctx context.Context, uri, dbName string, log *zap.Logger) (*MongoProvider, error) {
	client, err := mongo.Connect(options.Client().
		ApplyURI(uri).
		SetAppName("image-gallery").
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second))
	if err != nil {
		return nil, newError("connect", KindUnavailable, fmt.Errorf("failed to create mongo client: %w", err))
	}

	p := &MongoProvider{
		client: client,
		coll:   client.Database(dbName).Collection(imagesCollection),
		log:    log,
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := p.Ping(pingCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Info("connected to mongodb", zap.String("database", dbName))
	return p, nil
}

// Insert 写入文档，ID 为 ObjectID 的十六进制形式
func (p *MongoProvider) Insert(ctx context.Context, image *models.Image) error {
	if image.UploadDate.IsZero() {
		image.UploadDate = time.Now().UTC()
	}

	doc := toImageDocument(image)
	doc.ID = bson.NewObjectID()
	if _, err := p.coll.InsertOne(ctx, doc); err != nil {
		return classifyMongo("insert", err)
	}

	image.ID = doc.ID.Hex()
	return nil
}

// FindMany 搜索并分页
func (p *MongoProvider) FindMany(ctx context.Context, filter Filter) ([]*models.Image, int64, error) {
	filter = filter.Normalize()
	query := buildSearchFilter(filter.Search)

	total, err := p.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, classifyMongo("count", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "uploadDate", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Limit > 0 {
		opts.SetSkip(int64(filter.Offset())).SetLimit(int64(filter.Limit))
	}

	cursor, err := p.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, classifyMongo("find", err)
	}

	var docs []imageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, classifyMongo("find", err)
	}

	images := make([]*models.Image, 0, len(docs))
	for i := range docs {
		images = append(images, docs[i].toModel())
	}
	return images, total, nil
}

// buildSearchFilter 文件名、描述或任一标签包含关键字，不区分大小写
func buildSearchFilter(term string) bson.D {
	term = strings.TrimSpace(term)
	if term == "" {
		return bson.D{}
	}

	pattern := bson.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "filename", Value: pattern}},
		bson.D{{Key: "description", Value: pattern}},
		bson.D{{Key: "tags", Value: pattern}},
	}}}
}

// FindByID 按 ID 查询
func (p *MongoProvider) FindByID(ctx context.Context, id string) (*models.Image, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var doc imageDocument
	if err := p.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		return nil, classifyMongo("find", err)
	}
	return doc.toModel(), nil
}

// DeleteByID 按 ID 删除
func (p *MongoProvider) DeleteByID(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := p.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return classifyMongo("delete", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistsByStorageKey 是否有文档引用该 key
func (p *MongoProvider) ExistsByStorageKey(ctx context.Context, key string) (bool, error) {
	n, err := p.coll.CountDocuments(ctx, bson.D{{Key: "storageKey", Value: key}}, options.Count().SetLimit(1))
	if err != nil {
		return false, classifyMongo("count", err)
	}
	return n > 0, nil
}

// Migrate 创建索引
func (p *MongoProvider) Migrate(ctx context.Context) error {
	_, err := p.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "storageKey", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_storage_key"),
		},
		{
			Keys:    bson.D{{Key: "uploadDate", Value: -1}},
			Options: options.Index().SetName("idx_upload_date"),
		},
	})
	if err != nil {
		return classifyMongo("migrate", err)
	}
	p.log.Debug("mongodb indexes ensured", zap.String("collection", imagesCollection))
	return nil
}

// Ping 检查主节点连通性
func (p *MongoProvider) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx, readpref.Primary()); err != nil {
		return newError("ping", KindUnavailable, err)
	}
	return nil
}

// Close 断开连接
func (p *MongoProvider) Close(ctx context.Context) error {
	return p.client.Disconnect(ctx)
}

// Name 返回数据库名称
func (p *MongoProvider) Name() string {
	return "mongo"
}

// classifyMongo 将驱动错误映射为 ErrNotFound 或 *Error
func classifyMongo(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return newError(op, KindConstraint, err)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err),
		errors.Is(err, mongo.ErrClientDisconnected), errors.Is(err, context.DeadlineExceeded):
		return newError(op, KindUnavailable, err)
	}
	return newError(op, KindUnknown, err)
}

func toImageDocument(image *models.Image) *imageDocument {
	tags := image.Tags
	if tags == nil {
		tags = []string{}
	}
	return &imageDocument{
		Filename:     image.Filename,
		OriginalName: image.OriginalName,
		Description:  image.Description,
		Tags:         tags,
		FileSize:     image.FileSize,
		FileType:     image.FileType,
		Width:        image.Width,
		Height:       image.Height,
		StorageKey:   image.StorageKey,
		StorageURL:   image.StorageURL,
		UploadDate:   image.UploadDate,
	}
}

func (d *imageDocument) toModel() *models.Image {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return &models.Image{
		ID:           d.ID.Hex(),
		Filename:     d.Filename,
		OriginalName: d.OriginalName,
		Description:  d.Description,
		Tags:         tags,
		FileSize:     d.FileSize,
		FileType:     d.FileType,
		Width:        d.Width,
		Height:       d.Height,
		StorageKey:   d.StorageKey,
		StorageURL:   d.StorageURL,
		// BSON 日期精度为毫秒
		UploadDate: d.UploadDate.UTC(),
	}
}
