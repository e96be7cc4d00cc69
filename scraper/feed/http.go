package feed

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"property-feeds/config"
	"property-feeds/models"
	"property-feeds/utils"
)

const maxBodyBytes = 64 << 20

// HTTPFetcher downloads a provider document with a plain GET request.
type HTTPFetcher struct {
	provider  config.Provider
	client    *http.Client
	userAgent string
	retry     *utils.RetryConfig
	logger    *utils.Logger
}

// NewHTTPFetcher creates a fetcher whose per-attempt timeout is the
// provider's configured timeout.
func NewHTTPFetcher(p config.Provider, opts Options, logger *utils.Logger) *HTTPFetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		logger.Warn("[feed] %s: TLS certificate verification is disabled", p.Name)
	}

	return &HTTPFetcher{
		provider:  p,
		client:    &http.Client{Timeout: p.Timeout, Transport: transport},
		userAgent: opts.UserAgent,
		retry:     newRetry(p, opts, logger),
		logger:    logger,
	}
}

func (f *HTTPFetcher) Name() string { return f.provider.Name }

// Fetch downloads and decodes the provider document.
func (f *HTTPFetcher) Fetch(ctx context.Context) (*Document, error) {
	start := time.Now()
	f.logger.Debug("[feed] %s: GET %s", f.provider.Name, f.provider.Endpoint)

	var body []byte
	err := f.retry.Do(ctx, "fetch "+f.provider.Name, func(ctx context.Context) error {
		b, err := f.get(ctx)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	doc, err := Decode(f.provider, body, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	logDocument(f.logger, f.provider.Name, doc, time.Since(start))
	return doc, nil
}

func (f *HTTPFetcher) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.provider.Endpoint, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "build request for %s", f.provider.Name)
	}
	req.Header.Set("Accept", acceptHeader(f.provider.Format))
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	for k, v := range credentialHeaders(f.provider.Credentials) {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &models.FetchError{
			Provider: f.provider.Name,
			URL:      f.provider.Endpoint,
			Timeout:  isTimeout(err),
			Err:      err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &models.FetchError{
			Provider:   f.provider.Name,
			URL:        f.provider.Endpoint,
			StatusCode: resp.StatusCode,
			Err:        eris.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, &models.FetchError{
			Provider: f.provider.Name,
			URL:      f.provider.Endpoint,
			Timeout:  isTimeout(err),
			Err:      eris.Wrap(err, "read body"),
		}
	}
	if len(body) > maxBodyBytes {
		return nil, &models.ParseError{
			Provider: f.provider.Name,
			Format:   f.provider.Format,
			Err:      eris.Errorf("document larger than %d bytes", maxBodyBytes),
		}
	}
	return body, nil
}

func acceptHeader(format string) string {
	if format == config.FormatKyero {
		return "application/xml, text/xml;q=0.9, */*;q=0.1"
	}
	return "application/json, */*;q=0.1"
}
