package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jobtracker/internal/logger"

	"go.uber.org/zap"
)

// Supabase talks to the Supabase Storage REST API.
type Supabase struct {
	baseURL string
	key     string
	bucket  string
	client  *http.Client
	logger  *zap.Logger
}

func NewSupabase(baseURL, serviceKey, bucket string, log *zap.Logger) *Supabase {
	return &Supabase{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		key:     serviceKey,
		bucket:  bucket,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger.OrNop(log).Named("storage"),
	}
}

func (s *Supabase) Upload(ctx context.Context, path string, body io.Reader, size int64, contentType string) error {
	if s == nil || s.client == nil {
		return errors.New("nil storage client")
	}
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	endpoint := s.baseURL + "/storage/v1/object/" + s.bucket + "/" + p

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	if size >= 0 {
		req.ContentLength = size
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("apikey", s.key)
	req.Header.Set("x-upsert", "false")
	req.Header.Set("Cache-Control", "max-age=3600")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		bodyStr := strings.TrimSpace(string(rb))
		s.logger.Error("upload failed",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("body", bodyStr),
		)
		return fmt.Errorf("storage upload failed: status=%d body=%s", resp.StatusCode, bodyStr)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (s *Supabase) PublicURL(path string) string {
	return s.baseURL + "/storage/v1/object/public/" + s.bucket + "/" + strings.TrimLeft(path, "/")
}
