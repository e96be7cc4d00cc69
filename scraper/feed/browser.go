package feed

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"property-feeds/config"
	"property-feeds/models"
	"property-feeds/utils"
)

// documentText returns the raw document the browser loaded. XML is
// re-serialised; JSON is read from the <pre> Chrome wraps it in.
const documentText = `
(function() {
	var d = document;
	if (d.contentType && d.contentType.indexOf('xml') >= 0) {
		return new XMLSerializer().serializeToString(d);
	}
	var pre = d.querySelector('body > pre');
	if (pre) {
		return pre.textContent;
	}
	return d.body ? d.body.innerText : '';
})()
`

// BrowserFetcher loads a provider endpoint in headless Chrome. It serves
// providers that sit behind a JavaScript challenge page.
type BrowserFetcher struct {
	provider  config.Provider
	chromeBin string
	userAgent string
	retry     *utils.RetryConfig
	logger    *utils.Logger
}

func NewBrowserFetcher(p config.Provider, opts Options, logger *utils.Logger) *BrowserFetcher {
	return &BrowserFetcher{
		provider:  p,
		chromeBin: findChromeBinary(opts.ChromeBin),
		userAgent: opts.UserAgent,
		retry:     newRetry(p, opts, logger),
		logger:    logger,
	}
}

func (b *BrowserFetcher) Name() string { return b.provider.Name }

// Fetch renders the endpoint and decodes the resulting document.
func (b *BrowserFetcher) Fetch(ctx context.Context) (*Document, error) {
	start := time.Now()
	b.logger.Debug("[feed] %s: rendering %s with %s", b.provider.Name, b.provider.Endpoint, b.chromeBin)

	var body string
	err := b.retry.Do(ctx, "render "+b.provider.Name, func(ctx context.Context) error {
		s, err := b.render(ctx)
		if err != nil {
			return err
		}
		body = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	doc, err := Decode(b.provider, []byte(body), time.Now().UTC())
	if err != nil {
		return nil, err
	}
	logDocument(b.logger, b.provider.Name, doc, time.Since(start))
	return doc, nil
}

func (b *BrowserFetcher) render(ctx context.Context) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if b.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.userAgent))
	}
	if b.chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(b.chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, b.provider.Timeout)
	defer cancelTimeout()

	actions := []chromedp.Action{network.Enable()}
	if creds := credentialHeaders(b.provider.Credentials); len(creds) > 0 {
		headers := make(network.Headers, len(creds))
		for k, v := range creds {
			headers[k] = v
		}
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}

	var text string
	actions = append(actions,
		chromedp.Navigate(b.provider.Endpoint),
		chromedp.Evaluate(documentText, &text),
	)

	if err := chromedp.Run(browserCtx, actions...); err != nil {
		return "", &models.FetchError{
			Provider: b.provider.Name,
			URL:      b.provider.Endpoint,
			Timeout:  isTimeout(err) || browserCtx.Err() == context.DeadlineExceeded,
			Err:      err,
		}
	}
	return text, nil
}

// findChromeBinary locates a Chrome/Chromium binary, preferring the
// configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
