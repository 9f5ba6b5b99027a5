package render

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/profile-image-resolver/internal/avatar"
)

// StaticConfig controls the plain-HTTP renderer.
type StaticConfig struct {
	UserAgent      string
	AcceptLanguage string
	ProfileURL     string
	Timeout        time.Duration
}

// Static fetches the profile page over HTTP without executing scripts.
// It cannot observe network traffic, so its pages carry avatar.UnsupportedLog.
type Static struct {
	cfg  StaticConfig
	base *colly.Collector
}

// NewStatic builds a Static renderer.
func NewStatic(cfg StaticConfig) *Static {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.WithTransport(newHTTPTransport())
	return &Static{cfg: cfg, base: c}
}

// Render performs a single GET of the account's profile page.
func (s *Static) Render(ctx context.Context, account string) (*avatar.Page, error) {
	target := ProfileURL(s.cfg.ProfileURL, account)

	var (
		markup   []byte
		finalURL string
		fetchErr error
	)
	collector := s.base.Clone()
	if s.cfg.UserAgent != "" {
		collector.UserAgent = s.cfg.UserAgent
	}
	collector.SetRequestTimeout(s.cfg.Timeout)
	collector.OnRequest(func(r *colly.Request) {
		if s.cfg.AcceptLanguage != "" {
			r.Headers.Set("Accept-Language", s.cfg.AcceptLanguage)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		markup = append([]byte(nil), r.Body...)
		finalURL = r.Request.URL.String()
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", ErrRenderFailed, account, ctx.Err())
	case err := <-done:
		if err == nil {
			err = fetchErr
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRenderFailed, account, err)
		}
	}

	if finalURL == "" {
		finalURL = target
	}
	return &avatar.Page{
		Account: account,
		URL:     finalURL,
		Markup:  string(markup),
		Log:     avatar.UnsupportedLog{},
	}, nil
}

// Close is a no-op; it lets Static satisfy the same lifecycle as Chromedp.
func (s *Static) Close() error {
	return nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
