package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type localConfig struct {
	Dir       string `json:"dir"`
	PublicURL string `json:"public_url"`
}

type localStore struct {
	dir       string
	publicURL string
}

func init() {
	Register("local", createLocalStore)
}

func createLocalStore(args interface{}) (Store, error) {
	config := &localConfig{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("local store dir is required")
	}
	publicURL := config.PublicURL
	if publicURL == "" {
		publicURL = "/api/v1/files"
	}
	return &localStore{dir: config.Dir, publicURL: strings.TrimSuffix(publicURL, "/")}, nil
}

func (s *localStore) Type() string {
	return "local"
}

func (s *localStore) URL(key string) string {
	return s.publicURL + "/" + strings.TrimPrefix(key, "/")
}

func (s *localStore) Save(ctx context.Context, key string, r io.ReadSeeker, size int64, opts PutOptions) error {
	_ = ctx
	_ = size
	_ = opts
	cleaned, err := CleanKey(key)
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err = io.Copy(out, r)
	return err
}

func (s *localStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	_ = ctx
	cleaned, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(s.dir, filepath.FromSlash(cleaned)))
}
