// Package browser owns the Chromium lifecycle: launch, page creation with
// session hardening, and teardown.
package browser

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config controls how the browser is launched.
type Config struct {
	ProxyURL string
	Headless bool
}

// Browser wraps a rod.Browser with its launcher so both are torn down
// together.
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// New launches a Chromium instance and connects to it.
func New(cfg Config) (*Browser, error) {
	l := launcher.New().Headless(cfg.Headless)
	if cfg.ProxyURL != "" {
		l = l.Proxy(cfg.ProxyURL)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	b := rod.New().ControlURL(url)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	return &Browser{browser: b, launcher: l}, nil
}

// NewPage creates a hardened page: a desktop user agent and the webdriver
// flag hidden, since enterprise UIs occasionally degrade for automation.
func (b *Browser) NewPage() (*rod.Page, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	_ = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent})
	_, _ = page.EvalOnNewDocument(`Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`)
	return page, nil
}

// Open navigates a new page to url and waits for the initial load.
func (b *Browser) Open(url string, timeout time.Duration) (*rod.Page, error) {
	page, err := b.NewPage()
	if err != nil {
		return nil, err
	}
	if err := page.Timeout(timeout).Navigate(url); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}
	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("failed to wait for page load: %w", err)
	}
	return page, nil
}

// Close shuts down the browser and kills the launched process.
func (b *Browser) Close() error {
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			return err
		}
	}
	if b.launcher != nil {
		b.launcher.Kill()
	}
	return nil
}
