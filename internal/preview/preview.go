// Package preview reads a job posting page and extracts the bits that
// prefill an application: title, company and the description text.
package preview

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"jobtracker/internal/config"
	"jobtracker/internal/domain/application"
	"jobtracker/internal/logger"

	"go.uber.org/zap"
)

var (
	ErrInvalidURL = errors.New("job link must be an absolute http(s) URL")
	ErrNoContent  = errors.New("no readable content at job link")
)

const (
	userAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	maxBodyBytes = 4 << 20
	maxTextRunes = 20000
)

type Result struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Company     string `json:"company,omitempty"`
	Description string `json:"description,omitempty"`
	Text        string `json:"jd_text,omitempty"`
}

func (r Result) Empty() bool {
	return r.Title == "" && r.Description == "" && r.Text == ""
}

// Fill copies the preview into f without overwriting anything already set.
func (r Result) Fill(f *application.Fields) {
	if strings.TrimSpace(f.JobTitle) == "" {
		f.JobTitle = r.Title
	}
	if application.Text(f.Company) == nil {
		f.Company = application.TextOf(r.Company)
	}
	if application.Text(f.JobLink) == nil {
		f.JobLink = application.TextOf(r.URL)
	}
	if application.Text(f.JDText) == nil {
		f.JDText = application.TextOf(pickNonEmpty(r.Text, r.Description))
	}
}

type fetchFunc func(ctx context.Context, pageURL string) (Result, error)

type Service struct {
	timeout  time.Duration
	static   fetchFunc
	headless fetchFunc
	logger   *zap.Logger
}

// New builds a previewer. The headless browser fallback is only used when
// cfg.Headless is set.
func New(cfg config.PreviewConfig, log *zap.Logger) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	s := &Service{
		timeout: timeout,
		logger:  logger.OrNop(log).Named("preview"),
	}
	s.static = s.fetchStatic
	if cfg.Headless {
		s.headless = s.fetchHeadless
	}
	return s
}

// Fetch previews pageURL. A static fetch runs first; when it fails or
// finds nothing and headless mode is on, the page is rendered in Chrome.
func (s *Service) Fetch(ctx context.Context, pageURL string) (Result, error) {
	u, err := validateURL(pageURL)
	if err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.static(ctx, u)
	if err == nil {
		if res = finish(res, u); !res.Empty() {
			return res, nil
		}
	}
	if err != nil {
		s.logger.Warn("static preview failed", zap.String("url", u), zap.Error(err))
	}
	if s.headless == nil {
		if err != nil {
			return Result{}, err
		}
		return Result{}, ErrNoContent
	}

	res, err = s.headless(ctx, u)
	if err != nil {
		s.logger.Warn("headless preview failed", zap.String("url", u), zap.Error(err))
		return Result{}, err
	}
	if res = finish(res, u); res.Empty() {
		return Result{}, ErrNoContent
	}
	return res, nil
}

func finish(r Result, u string) Result {
	r.URL = u
	r.Title = collapse(r.Title)
	r.Company = collapse(r.Company)
	r.Description = collapse(r.Description)
	r.Text = truncate(collapse(r.Text), maxTextRunes)
	return r
}

func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidURL
	}
	return u.String(), nil
}

func hostFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(u.Host); err == nil {
		return h
	}
	return u.Host
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func pickNonEmpty(a, b string) string {
	a = strings.TrimSpace(a)
	if a != "" {
		return a
	}
	return strings.TrimSpace(b)
}
