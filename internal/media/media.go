// Package media turns an uploaded picture into the blobs of a breeder image:
// the optimised original plus its size variants.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/erazemk/turtlealbum/internal/blob"
	"github.com/erazemk/turtlealbum/internal/imaging"
	"github.com/erazemk/turtlealbum/internal/model"
)

// URLPrefix is where images are served from.
const URLPrefix = "/images/"

// Stored is the result of Save.
type Stored struct {
	URL      string
	Variants map[string]string
	Keys     []string
}

// Save processes r and writes the original to images/{code}/{stem}.jpg and
// each variant to images/{code}/{size}/{stem}.jpg. The stem gets a random
// suffix so re-uploading a file never overwrites an earlier one. On error,
// blobs already written are removed.
func Save(ctx context.Context, blobs blob.Store, code, filename string, r io.Reader) (*Stored, error) {
	set, err := imaging.Render(ctx, r)
	if err != nil {
		return nil, err
	}

	dir := "images/" + segment(code)
	stem := segment(strings.TrimSuffix(path.Base(filename), path.Ext(filename)))
	if stem == "" {
		stem = "image"
	}
	stem += "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	out := &Stored{Variants: make(map[string]string, len(set.Variants))}
	put := func(key string, data []byte) error {
		if _, err := blobs.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{ContentType: imaging.OutputMIME}); err != nil {
			Discard(ctx, blobs, out.Keys)
			return fmt.Errorf("storing %s: %w", key, err)
		}
		out.Keys = append(out.Keys, key)
		return nil
	}

	mainKey := dir + "/" + stem + ".jpg"
	if err := put(mainKey, set.Original.Data); err != nil {
		return nil, err
	}
	out.URL = URLForKey(mainKey)

	for _, v := range set.Variants {
		key := dir + "/" + v.Name + "/" + stem + ".jpg"
		if err := put(key, v.Data); err != nil {
			return nil, err
		}
		out.Variants[v.Name] = URLForKey(key)
	}
	return out, nil
}

// Remove deletes the blobs of img. Missing blobs are ignored.
func Remove(ctx context.Context, blobs blob.Store, img model.Image) error {
	keys := []string{KeyForURL(img.URL)}
	for _, u := range img.Variants {
		keys = append(keys, KeyForURL(u))
	}
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, err := blobs.Delete(ctx, k); err != nil {
			return fmt.Errorf("deleting %s: %w", k, err)
		}
	}
	return nil
}

// RemoveAll deletes every blob stored for a breeder code.
func RemoveAll(ctx context.Context, blobs blob.Store, code string) error {
	_, err := blob.DeletePrefix(ctx, blobs, "images/"+segment(code)+"/")
	return err
}

// Discard deletes keys, ignoring errors. It undoes a partial Save.
func Discard(ctx context.Context, blobs blob.Store, keys []string) {
	for _, k := range keys {
		_, _ = blobs.Delete(ctx, k)
	}
}

// URLForKey returns the public URL of a blob key.
func URLForKey(key string) string {
	return "/" + key
}

// KeyForURL is the inverse of URLForKey. URLs outside URLPrefix, such as
// external links, have no key.
func KeyForURL(url string) string {
	if !strings.HasPrefix(url, URLPrefix) {
		return ""
	}
	return strings.TrimPrefix(url, "/")
}

// segment makes s safe as a single key segment.
func segment(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(s)
	return strings.TrimLeft(s, ".")
}
