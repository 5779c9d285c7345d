package database_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/anoixa/image-gallery/database"
	"github.com/anoixa/image-gallery/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImage(key, filename, description string, tags []string, uploaded time.Time) *models.Image {
	return &models.Image{
		Filename:     filename,
		OriginalName: filename,
		Description:  description,
		Tags:         tags,
		FileSize:     1024,
		FileType:     "image/png",
		Width:        10,
		Height:       20,
		StorageKey:   key,
		UploadDate:   uploaded,
	}
}

// runProviderSuite 对任一元数据存储执行相同的行为测试，open 每次返回已迁移的空库
func runProviderSuite(t *testing.T, open func(t *testing.T) database.Provider) {
	t.Run("InsertAndFind", func(t *testing.T) { testInsertAndFind(t, open(t)) })
	t.Run("FindByIDNotFound", func(t *testing.T) { testFindByIDNotFound(t, open(t)) })
	t.Run("DuplicateStorageKey", func(t *testing.T) { testDuplicateStorageKey(t, open(t)) })
	t.Run("OrderingAndPaging", func(t *testing.T) { testOrderingAndPaging(t, open(t)) })
	t.Run("Search", func(t *testing.T) { testSearch(t, open(t)) })
	t.Run("DeleteByID", func(t *testing.T) { testDeleteByID(t, open(t)) })
	t.Run("MigrateTwice", func(t *testing.T) {
		p := open(t)
		require.NoError(t, p.Migrate(context.Background()))
		require.NoError(t, p.Ping(context.Background()))
	})
}

func testInsertAndFind(t *testing.T, p database.Provider) {
	ctx := context.Background()

	img := newImage("images/1_a.png", "a.png", "sunset", []string{"beach", "Sky", "beach2"}, time.Time{})
	require.NoError(t, p.Insert(ctx, img))
	assert.NotEmpty(t, img.ID)
	assert.False(t, img.UploadDate.IsZero())

	got, err := p.FindByID(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, img.ID, got.ID)
	assert.Equal(t, "a.png", got.Filename)
	assert.Equal(t, "sunset", got.Description)
	assert.Equal(t, []string{"beach", "Sky", "beach2"}, got.Tags)
	assert.Equal(t, int64(1024), got.FileSize)
	assert.Equal(t, 10, got.Width)
	assert.Equal(t, 20, got.Height)
	assert.Equal(t, "images/1_a.png", got.StorageKey)
	assert.WithinDuration(t, img.UploadDate, got.UploadDate, time.Second)

	untagged := newImage("images/2_b.png", "b.png", "", nil, time.Now())
	require.NoError(t, p.Insert(ctx, untagged))
	got, err = p.FindByID(ctx, untagged.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}

func testFindByIDNotFound(t *testing.T, p database.Provider) {
	ctx := context.Background()

	for _, id := range []string{"999", "abc", "", "0", "65a1b2c3d4e5f60718293a4b"} {
		_, err := p.FindByID(ctx, id)
		assert.ErrorIs(t, err, database.ErrNotFound, "find %q", id)
		assert.ErrorIs(t, p.DeleteByID(ctx, id), database.ErrNotFound, "delete %q", id)
	}
}

func testDuplicateStorageKey(t *testing.T, p database.Provider) {
	ctx := context.Background()

	require.NoError(t, p.Insert(ctx, newImage("images/dup.png", "a.png", "", nil, time.Now())))
	err := p.Insert(ctx, newImage("images/dup.png", "b.png", "", nil, time.Now()))
	require.Error(t, err)
	assert.True(t, database.IsKind(err, database.KindConstraint), "got %v", err)

	_, total, err := p.FindMany(ctx, database.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func testOrderingAndPaging(t *testing.T, p database.Provider) {
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		img := newImage(fmt.Sprintf("images/%d.png", i), fmt.Sprintf("img%d.png", i), "", nil, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, p.Insert(ctx, img))
	}

	all, total, err := p.FindMany(ctx, database.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, all, 5)
	assert.Equal(t, "img4.png", all[0].Filename)
	assert.Equal(t, "img0.png", all[4].Filename)

	page2, total, err := p.FindMany(ctx, database.Filter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page2, 2)
	assert.Equal(t, "img2.png", page2[0].Filename)
	assert.Equal(t, "img1.png", page2[1].Filename)

	beyond, total, err := p.FindMany(ctx, database.Filter{Page: 10, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Empty(t, beyond)
}

func testSearch(t *testing.T, p database.Provider) {
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, p.Insert(ctx, newImage("images/1.png", "Cat.png", "a sleepy animal", []string{"pets"}, now)))
	require.NoError(t, p.Insert(ctx, newImage("images/2.png", "dog.png", "good boy", []string{"Pets", "outdoor"}, now.Add(time.Second))))
	require.NoError(t, p.Insert(ctx, newImage("images/3.png", "car.png", "100% fast_car", nil, now.Add(2*time.Second))))
	require.NoError(t, p.Insert(ctx, newImage("images/4.png", "ÉTÉ.png", "Ёлка", []string{"Ärger"}, now.Add(3*time.Second))))

	tests := []struct {
		search string
		want   []string
	}{
		{"cat", []string{"Cat.png"}},
		{"SLEEPY", []string{"Cat.png"}},
		{"pets", []string{"dog.png", "Cat.png"}},
		{"door", []string{"dog.png"}},
		{"%", []string{"car.png"}},
		{"_car", []string{"car.png"}},
		{"a.png", []string{"Cat.png"}},
		{"été", []string{"ÉTÉ.png"}},
		{"ёлка", []string{"ÉTÉ.png"}},
		{"ärger", []string{"ÉTÉ.png"}},
		{"ÄRGER", []string{"ÉTÉ.png"}},
		{"zebra", nil},
		{"  ", []string{"ÉTÉ.png", "car.png", "dog.png", "Cat.png"}},
	}

	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			images, total, err := p.FindMany(ctx, database.Filter{Search: tt.search})
			require.NoError(t, err)
			var names []string
			for _, img := range images {
				names = append(names, img.Filename)
			}
			assert.Equal(t, tt.want, names)
			assert.Equal(t, int64(len(tt.want)), total)
		})
	}

	page, total, err := p.FindMany(ctx, database.Filter{Search: "pets", Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, page, 1)
	assert.Equal(t, "Cat.png", page[0].Filename)
}

func testDeleteByID(t *testing.T, p database.Provider) {
	ctx := context.Background()

	img := newImage("images/del.png", "del.png", "", []string{"x"}, time.Now())
	require.NoError(t, p.Insert(ctx, img))
	keep := newImage("images/keep.png", "keep.png", "", nil, time.Now())
	require.NoError(t, p.Insert(ctx, keep))

	exists, err := p.ExistsByStorageKey(ctx, "images/del.png")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, p.DeleteByID(ctx, img.ID))
	assert.ErrorIs(t, p.DeleteByID(ctx, img.ID), database.ErrNotFound)

	_, err = p.FindByID(ctx, img.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	exists, err = p.ExistsByStorageKey(ctx, "images/del.png")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = p.ExistsByStorageKey(ctx, "images/keep.png")
	require.NoError(t, err)
	assert.True(t, exists)

	// 标签的搜索不再命中已删除记录
	images, _, err := p.FindMany(ctx, database.Filter{Search: "x"})
	require.NoError(t, err)
	assert.Empty(t, images)
}
