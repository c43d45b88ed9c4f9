package roddoc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Options controls Open.
type Options struct {
	URL     string
	Remote  string        // DevTools websocket URL; empty launches a local headless Chrome
	Stealth bool          // open the page with go-rod/stealth evasions
	Timeout time.Duration // navigation + load; default 30s
	Logger  *slog.Logger
}

// Session is an opened page and the browser behind it.
type Session struct {
	*Document
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// Open connects to (or launches) Chrome, opens opts.URL and returns a
// Document over it.
func Open(ctx context.Context, opts Options) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	s := &Session{}
	wsURL := opts.Remote
	if wsURL == "" {
		l := launcher.New().Headless(true).Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("roddoc: launch: %w", err)
		}
		wsURL = u
		s.lnch = l
		log.Info("roddoc: launched local chrome", "url", wsURL)
	} else {
		log.Info("roddoc: connecting to remote", "url", wsURL)
	}

	b := rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("roddoc: connect: %w", err)
	}
	s.browser = b

	var page *rod.Page
	var err error
	if opts.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("roddoc: create page: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := page.Context(navCtx).Navigate(opts.URL); err != nil {
		s.Close()
		return nil, fmt.Errorf("roddoc: navigate %s: %w", opts.URL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		log.Warn("roddoc: wait load timeout", "url", opts.URL, "error", err)
	}

	s.Document = New(page, WithLogger(log))
	return s, nil
}

// Close stops event delivery. A locally launched Chrome is shut down; on a
// remote browser only the page is closed.
func (s *Session) Close() error {
	var err error
	if s.Document != nil {
		s.Document.Close()
		if s.lnch == nil {
			err = s.Document.page.Close()
		}
	}
	if s.browser != nil && s.lnch != nil {
		err = s.browser.Close()
	}
	s.cleanup()
	return err
}

func (s *Session) cleanup() {
	if s.lnch != nil {
		s.lnch.Kill()
		s.lnch = nil
	}
}
