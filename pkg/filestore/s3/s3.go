package s3

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/ec2rolecreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config describes where exported archives are stored.
type Config struct {
	Key    string
	Secret string
	Region string
	Bucket string
	// Endpoint points the client at an S3 compatible server using path
	// style addressing. Empty means AWS, or tebi.io when Region is "tebi".
	Endpoint string
	Debug    bool
}

const tebiEndpoint = "https://s3.tebi.io"

// Store uploads archives to a bucket and hands out presigned links to them.
type Store struct {
	cfg     Config
	client  *s3.Client
	presign *s3.PresignClient
	httpc   *http.Client
	backoff []time.Duration
}

// New connects to the bucket and checks that it exists.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: empty bucket")
	}
	c := *cfg
	region := c.Region
	if region == "tebi" {
		c.Endpoint = tebiEndpoint
		region = "de"
	}
	if region == "" {
		region = "us-east-1"
	}

	var provider aws.CredentialsProvider
	if c.Key == "" && c.Secret == "" {
		provider = ec2rolecreds.New()
	} else {
		provider = credentials.NewStaticCredentialsProvider(c.Key, c.Secret, "")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(provider),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("s3: couldn't load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.Endpoint == "" {
			return
		}
		o.BaseEndpoint = aws.String(c.Endpoint)
		o.UsePathStyle = true
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.Bucket),
	}); err != nil {
		return nil, fmt.Errorf("s3: couldn't head bucket %s: %w", c.Bucket, err)
	}
	return &Store{
		cfg:     c,
		client:  client,
		presign: s3.NewPresignClient(client),
		httpc:   &http.Client{Timeout: 60 * time.Second},
		backoff: []time.Duration{15 * time.Second, 30 * time.Second, time.Minute},
	}, nil
}

// URL returns a link to the object valid for a day.
func (s *Store) URL(ctx context.Context, name string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(name),
	}, s3.WithPresignExpires(24*time.Hour))
	if err != nil {
		return "", fmt.Errorf("s3: couldn't presign %s: %w", name, err)
	}
	return req.URL, nil
}

var contentTypes = map[string]string{
	".zip":  "application/zip",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
}

// Upload puts the local file at path under the object key name.
func (s *Store) Upload(ctx context.Context, path, name string) error {
	ext := strings.ToLower(filepath.Ext(path))
	contentType, ok := contentTypes[ext]
	if !ok {
		return fmt.Errorf("s3: unknown content type for extension %q", ext)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("s3: couldn't open %s: %w", path, err)
	}
	defer f.Close()

	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(name),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3: couldn't put %s: %w", name, err)
	}
	if s.cfg.Debug {
		js, _ := json.Marshal(out)
		log.Println("s3: put", name, string(js))
	}
	return nil
}

// Download fetches the object through its presigned link and writes it to
// path, retrying failed attempts with backoff.
func (s *Store) Download(ctx context.Context, path, name string) error {
	u, err := s.URL(ctx, name)
	if err != nil {
		return err
	}
	var b []byte
	for attempt := 0; ; attempt++ {
		b, err = s.fetch(ctx, u)
		if err == nil {
			break
		}
		if attempt >= len(s.backoff) {
			return fmt.Errorf("s3: couldn't download %s: %w", name, err)
		}
		wait := s.backoff[attempt]
		if s.cfg.Debug {
			log.Printf("s3: %s: %v (retrying in %s)\n", name, err, wait)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("s3: couldn't write %s: %w", path, err)
	}
	return nil
}

func (s *Store) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
