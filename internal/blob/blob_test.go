package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	info, err := s.Put(ctx, "images/F-1/a.jpg", strings.NewReader("jpeg-bytes"), PutOptions{ContentType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, "images/F-1/a.jpg", info.Key)
	assert.EqualValues(t, len("jpeg-bytes"), info.Size)

	_, err = s.Put(ctx, "images/F-1/a_thumbnail.jpg", strings.NewReader("thumb"), PutOptions{})
	require.NoError(t, err)
	_, err = s.Put(ctx, "images/F-2/b.jpg", strings.NewReader("other"), PutOptions{})
	require.NoError(t, err)

	got, rc, err := s.Get(ctx, "images/F-1/a.jpg")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(body))
	assert.Equal(t, "image/jpeg", got.ContentType)

	// Put overwrites.
	_, err = s.Put(ctx, "images/F-1/a.jpg", strings.NewReader("v2"), PutOptions{ContentType: "image/jpeg"})
	require.NoError(t, err)
	head, err := s.Head(ctx, "images/F-1/a.jpg")
	require.NoError(t, err)
	assert.EqualValues(t, 2, head.Size)

	list, err := s.List(ctx, "images/F-1/")
	require.NoError(t, err)
	var keys []string
	for _, i := range list {
		keys = append(keys, i.Key)
	}
	assert.Equal(t, []string{"images/F-1/a.jpg", "images/F-1/a_thumbnail.jpg"}, keys)

	n, err := DeletePrefix(ctx, s, "images/F-1/")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.Head(ctx, "images/F-1/a.jpg")
	assert.True(t, errors.Is(err, ErrNotFound), "head after delete: %v", err)
	_, _, err = s.Get(ctx, "images/F-1/a.jpg")
	assert.True(t, errors.Is(err, ErrNotFound), "get after delete: %v", err)

	ok, err := s.Delete(ctx, "images/F-1/a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Put(ctx, "../escape.jpg", strings.NewReader("x"), PutOptions{})
	assert.Error(t, err)
}

func TestFilesystemStore(t *testing.T) {
	s, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, s.Driver())
	exerciseStore(t, s)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		key string
		ok  bool
	}{
		{"images/a.jpg", true},
		{"a..b.jpg", true},
		{"", false},
		{"/etc/passwd", false},
		{"images/../../x", false},
		{`images\..\x`, false},
	}
	for _, tt := range tests {
		_, err := sanitizeKey(tt.key)
		if (err == nil) != tt.ok {
			t.Errorf("sanitizeKey(%q) error = %v, want ok=%v", tt.key, err, tt.ok)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "ftp"})
	assert.Error(t, err)

	s, err := Open(context.Background(), Options{Driver: DriverMemory})
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, s.Driver())
}

// fakeS3 serves the handful of path-style S3 calls the driver makes.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

type fakeObject struct {
	body        []byte
	contentType string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	modified := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat)

	switch {
	case r.Method == http.MethodGet && r.URL.Query().Get("list-type") == "2":
		prefix := r.URL.Query().Get("prefix")
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		fmt.Fprintf(&b, "<KeyCount>%d</KeyCount>", len(keys))
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2025-01-01T00:00:00.000Z</LastModified></Contents>",
				k, len(f.objects[k].body))
		}
		b.WriteString("</ListBucketResult>")
		w.Header().Set("Content-Type", "application/xml")
		io.WriteString(w, b.String())
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = fakeObject{body: body, contentType: r.Header.Get("Content-Type")}
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodHead || r.Method == http.MethodGet:
		obj, ok := f.objects[key]
		if !ok {
			if r.Method == http.MethodGet {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusNotFound)
				io.WriteString(w, `<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
				return
			}
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", obj.contentType)
		w.Header().Set("Content-Length", fmt.Sprint(len(obj.body)))
		w.Header().Set("Last-Modified", modified)
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			w.Write(obj.body)
		}
	case r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func TestS3Store(t *testing.T) {
	srv := httptest.NewServer(&fakeS3{objects: map[string]fakeObject{}})
	defer srv.Close()

	s, err := NewS3(context.Background(), S3Config{
		Bucket:          "album",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "secret",
		PathStyle:       true,
		HTTPClient:      srv.Client(),
	})
	require.NoError(t, err)
	assert.Equal(t, DriverS3, s.Driver())
	exerciseStore(t, s)
}

func TestS3RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), S3Config{})
	assert.Error(t, err)
}
