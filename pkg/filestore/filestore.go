package filestore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/igolaizola/songseed/pkg/filestore/local"
	"github.com/igolaizola/songseed/pkg/filestore/s3"
)

type fs interface {
	Upload(ctx context.Context, path, name string) error
	Download(ctx context.Context, path, name string) error
	URL(ctx context.Context, name string) (string, error)
}

// Store keeps exported archives.
type Store struct {
	fs fs
}

// SetZIP uploads the archive at path and returns its location.
func (s *Store) SetZIP(ctx context.Context, path, id string) (string, error) {
	if err := s.fs.Upload(ctx, path, ZIP(id)); err != nil {
		return "", err
	}
	return s.fs.URL(ctx, ZIP(id))
}

func (s *Store) GetZIP(ctx context.Context, path, id string) error {
	return s.fs.Download(ctx, path, ZIP(id))
}

// New creates a file store. Connection strings are a directory for local
// and key:secret@bucket.region for s3, optionally followed by
// ?endpoint=<url> for S3 compatible servers.
func New(ctx context.Context, typ, conn string, debug bool) (*Store, error) {
	var fs fs
	switch typ {
	case "s3":
		cfg, err := parseS3(conn)
		if err != nil {
			return nil, err
		}
		cfg.Debug = debug
		candidate, err := s3.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
		fs = candidate
	case "local":
		if conn == "" {
			return nil, fmt.Errorf("filestore: empty local directory")
		}
		fs = local.New(conn, debug)
	default:
		return nil, fmt.Errorf("filestore: unknown file storage type %q", typ)
	}
	return &Store{fs: fs}, nil
}

func parseS3(conn string) (*s3.Config, error) {
	conn, rawQuery, _ := strings.Cut(conn, "?")
	auth, loc, ok := strings.Cut(conn, "@")
	if !ok {
		return nil, fmt.Errorf("filestore: invalid s3 connection string %q", conn)
	}
	key, secret, ok := strings.Cut(auth, ":")
	if !ok {
		return nil, fmt.Errorf("filestore: invalid s3 auth string %q", conn)
	}
	bucket, region, ok := strings.Cut(loc, ".")
	if !ok || bucket == "" || region == "" {
		return nil, fmt.Errorf("filestore: invalid s3 location string %q", conn)
	}
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("filestore: invalid s3 options %q: %w", rawQuery, err)
	}
	return &s3.Config{
		Key:      key,
		Secret:   secret,
		Region:   region,
		Bucket:   bucket,
		Endpoint: q.Get("endpoint"),
	}, nil
}

func ZIP(id string) string {
	return "exports/" + id + ".zip"
}
