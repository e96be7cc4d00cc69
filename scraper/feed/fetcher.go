// Package feed retrieves provider documents and decodes them into raw
// listings. Transport and format are independent: any provider may be
// fetched over plain HTTP or through a headless browser.
package feed

import (
	"context"
	"encoding/base64"
	"errors"
	"net"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"property-feeds/config"
	"property-feeds/models"
	"property-feeds/utils"
)

// Fetcher retrieves and decodes one provider's feed.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) (*Document, error)
}

// Options are fetcher settings shared by every provider.
type Options struct {
	UserAgent      string
	MaxAttempts    int
	RetryBaseDelay time.Duration
	ChromeBin      string

	// InsecureSkipVerify disables TLS certificate checks. Only the feedprobe command
	// sets it.
	InsecureSkipVerify bool
}

// New builds the fetcher matching the provider's transport.
func New(p config.Provider, opts Options, logger *utils.Logger) (Fetcher, error) {
	switch p.Transport {
	case "", config.TransportHTTP:
		return NewHTTPFetcher(p, opts, logger), nil
	case config.TransportBrowser:
		return NewBrowserFetcher(p, opts, logger), nil
	}
	return nil, eris.Errorf("feed: provider %q has unknown transport %q", p.Name, p.Transport)
}

func newRetry(p config.Provider, opts Options, logger *utils.Logger) *utils.RetryConfig {
	rc := &utils.RetryConfig{
		MaxAttempts: opts.MaxAttempts,
		BaseDelay:   opts.RetryBaseDelay,
		Logger:      logger,
		Retryable:   retryable,
	}
	if p.RateLimitMs > 0 {
		rc.Limiter = rate.NewLimiter(rate.Every(time.Duration(p.RateLimitMs)*time.Millisecond), 1)
	}
	return rc
}

// retryable limits retries to network failures, timeouts, 429 and 5xx.
func retryable(err error) bool {
	var fe *models.FetchError
	return errors.As(err, &fe) && fe.Retryable()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// credentialHeaders renders provider credentials as request headers.
func credentialHeaders(c config.Credentials) map[string]string {
	switch c.Type {
	case "basic":
		token := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
		return map[string]string{"Authorization": "Basic " + token}
	case "bearer":
		return map[string]string{"Authorization": "Bearer " + c.Token}
	case "header":
		if c.Header != "" {
			return map[string]string{c.Header: c.Value}
		}
	}
	return nil
}

func logDocument(logger *utils.Logger, name string, doc *Document, elapsed time.Duration) {
	for _, d := range doc.Dropped {
		logger.Warn("[feed] %v", d)
	}
	logger.Info("[feed] %s: %d records decoded, %d dropped in %v",
		name, len(doc.Listings), len(doc.Dropped), elapsed.Round(time.Millisecond))
}
