package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/turtlealbum/internal/blob"
	"github.com/erazemk/turtlealbum/internal/model"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 200))
	for x := 0; x < 400; x++ {
		for y := 0; y < 200; y++ {
			img.Set(x, y, color.RGBA{0, uint8(x), uint8(y), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSaveAndRemove(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()

	st, err := Save(ctx, blobs, "F-1", "shell photo.png", bytes.NewReader(testPNG(t)))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(st.URL, "/images/F-1/shell photo_"), st.URL)
	assert.True(t, strings.HasSuffix(st.URL, ".jpg"))
	require.Len(t, st.Variants, 4)
	assert.True(t, strings.HasPrefix(st.Variants["thumbnail"], "/images/F-1/thumbnail/"))
	assert.Len(t, st.Keys, 5)

	for _, k := range st.Keys {
		info, err := blobs.Head(ctx, k)
		require.NoError(t, err, k)
		assert.Equal(t, "image/jpeg", info.ContentType)
	}

	require.NoError(t, Remove(ctx, blobs, model.Image{URL: st.URL, Variants: st.Variants}))
	left, err := blobs.List(ctx, "images/")
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestSaveRejectsNonImage(t *testing.T) {
	blobs := blob.NewMemory()
	_, err := Save(context.Background(), blobs, "F-1", "notes.txt", strings.NewReader("hello"))
	assert.Error(t, err)
	left, _ := blobs.List(context.Background(), "")
	assert.Empty(t, left)
}

func TestRemoveAll(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	_, err := Save(ctx, blobs, "F-1", "a.png", bytes.NewReader(testPNG(t)))
	require.NoError(t, err)
	_, err = Save(ctx, blobs, "F-10", "b.png", bytes.NewReader(testPNG(t)))
	require.NoError(t, err)

	require.NoError(t, RemoveAll(ctx, blobs, "F-1"))
	left, _ := blobs.List(ctx, "images/")
	require.Len(t, left, 5)
	for _, i := range left {
		assert.True(t, strings.HasPrefix(i.Key, "images/F-10/"), i.Key)
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "images/F-1/a.jpg", KeyForURL("/images/F-1/a.jpg"))
	assert.Equal(t, "", KeyForURL("https://cdn.example.com/a.jpg"))
	assert.Equal(t, "A_B", segment("A/B"))
	assert.Equal(t, "__x", segment("../x"))
}
