package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/curato/internal/filestore"
	appErr "github.com/xxxsen/curato/internal/pkg/errors"
)

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *memoryStore) Type() string { return "memory" }

func (s *memoryStore) Save(ctx context.Context, key string, r io.ReadSeeker, size int64, opts filestore.PutOptions) error {
	if s.failErr != nil {
		return s.failErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.types[key] = opts.ContentType
	return nil
}

func (s *memoryStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryStore) URL(key string) string {
	return "https://cdn.example.com/" + key
}

func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("png-bytes"))
		case "/b.webp":
			w.Header().Set("Content-Type", "image/webp; charset=binary")
			_, _ = w.Write([]byte("webp-bytes"))
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		case "/big.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write(bytes.Repeat([]byte("x"), 64))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRelocator(store filestore.Store) *Relocator {
	r := NewRelocator(store, Config{UserAgent: "curato-test", FetchTimeout: 5 * time.Second, MaxBytes: 32})
	r.now = func() time.Time { return time.UnixMilli(1700000000000) }
	r.token = func() string { return "abc1234" }
	return r
}

func TestRelocateOneStoresImage(t *testing.T) {
	srv := newImageServer(t)
	store := newMemoryStore()
	r := newTestRelocator(store)

	got, err := r.RelocateOne(context.Background(), srv.URL+"/a.png", Options{PathPrefix: "xiaohongshu"})
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/xiaohongshu/1700000000000_abc1234.png", got)
	require.Equal(t, []byte("png-bytes"), store.objects["xiaohongshu/1700000000000_abc1234.png"])
	require.Equal(t, "image/png", store.types["xiaohongshu/1700000000000_abc1234.png"])
}

func TestRelocateOneKeyFormat(t *testing.T) {
	srv := newImageServer(t)
	store := newMemoryStore()
	r := NewRelocator(store, Config{})

	got, err := r.RelocateOne(context.Background(), srv.URL+"/b.webp", Options{})
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^https://cdn\.example\.com/imported/\d+_[0-9a-z]{7}\.webp$`), got)
}

func TestRelocateOneFailures(t *testing.T) {
	srv := newImageServer(t)
	tests := []struct {
		name string
		url  string
		want error
	}{
		{name: "non image", url: srv.URL + "/page.html", want: appErr.ErrUnsupportedMediaType},
		{name: "not found", url: srv.URL + "/missing.png", want: appErr.ErrUpstreamFetch},
		{name: "too large", url: srv.URL + "/big.jpg", want: appErr.ErrUpstreamFetch},
		{name: "relative", url: "/local/a.png", want: appErr.ErrInvalidURL},
		{name: "empty", url: "", want: appErr.ErrInvalidURL},
		{name: "bad scheme", url: "ftp://example.com/a.png", want: appErr.ErrInvalidURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			r := newTestRelocator(store)
			_, err := r.RelocateOne(context.Background(), tt.url, Options{})
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.want), "got %v", err)
			require.Empty(t, store.objects)
		})
	}
}

func TestRelocateOneSendsUserAgent(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "default", cfg: Config{}, want: DefaultUserAgent},
		{name: "blank", cfg: Config{UserAgent: "  "}, want: DefaultUserAgent},
		{name: "configured", cfg: Config{UserAgent: "curato-test"}, want: "curato-test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("User-Agent")
				w.Header().Set("Content-Type", "image/png")
				_, _ = w.Write([]byte("png"))
			}))
			defer srv.Close()

			r := NewRelocator(newMemoryStore(), tt.cfg)
			_, err := r.RelocateOne(context.Background(), srv.URL+"/a.png", Options{})
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRelocateOneToleratesFailure(t *testing.T) {
	srv := newImageServer(t)
	r := newTestRelocator(newMemoryStore())

	src := srv.URL + "/missing.png"
	got, err := r.RelocateOne(context.Background(), src, Options{ToleratesFailure: true})
	require.NoError(t, err)
	require.Equal(t, src, got)
}

func TestRelocateOneUploadFailure(t *testing.T) {
	srv := newImageServer(t)
	store := newMemoryStore()
	store.failErr = errors.New("bucket unavailable")
	r := newTestRelocator(store)

	_, err := r.RelocateOne(context.Background(), srv.URL+"/a.png", Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "bucket unavailable")
}

func TestRelocateManyKeepsOrderAndLength(t *testing.T) {
	srv := newImageServer(t)
	store := newMemoryStore()
	r := newTestRelocator(store)
	var counter int
	r.token = func() string {
		counter++
		return []string{"aaaaaaa", "bbbbbbb", "ccccccc"}[counter-1]
	}

	var progress [][2]int
	urls := []string{srv.URL + "/a.png", srv.URL + "/missing.png", srv.URL + "/b.webp"}
	got, err := r.RelocateMany(context.Background(), urls, Options{
		PathPrefix:       "xiaohongshu",
		ToleratesFailure: true,
		OnProgress: func(current, total int) {
			progress = append(progress, [2]int{current, total})
		},
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "https://cdn.example.com/xiaohongshu/1700000000000_aaaaaaa.png", got[0])
	require.Equal(t, urls[1], got[1])
	require.Equal(t, "https://cdn.example.com/xiaohongshu/1700000000000_bbbbbbb.webp", got[2])
	require.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)
}

func TestRelocateManyAbortsWithoutTolerance(t *testing.T) {
	srv := newImageServer(t)
	store := newMemoryStore()
	r := newTestRelocator(store)

	var progress []int
	urls := []string{srv.URL + "/a.png", srv.URL + "/page.html", srv.URL + "/b.webp"}
	got, err := r.RelocateMany(context.Background(), urls, Options{
		OnProgress: func(current, total int) { progress = append(progress, current) },
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, appErr.ErrUnsupportedMediaType))
	require.Nil(t, got)
	require.Equal(t, []int{1, 2}, progress)
	require.Len(t, store.objects, 1)
}

func TestRelocateManyEmpty(t *testing.T) {
	r := newTestRelocator(newMemoryStore())
	got, err := r.RelocateMany(context.Background(), nil, Options{})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRelocateRetriesServerErrors(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "image/gif")
		_, _ = w.Write([]byte("gif"))
	}))
	defer srv.Close()

	r := newTestRelocator(newMemoryStore())
	r.maxRetries = 2
	got, err := r.RelocateOne(context.Background(), srv.URL+"/x.gif", Options{PathPrefix: "p"})
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/p/1700000000000_abc1234.gif", got)
	require.Equal(t, 2, attempts)
}

func TestNormalizeContentType(t *testing.T) {
	require.Equal(t, "image/jpeg", normalizeContentType(""))
	require.Equal(t, "image/png", normalizeContentType("IMAGE/PNG; q=1"))
	require.True(t, IsSupportedImageType("image/webp"))
	require.False(t, IsSupportedImageType("text/html"))
	require.Equal(t, "jpg", ExtensionFor("image/jpg"))
}
