package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domstate/archive"
	"github.com/hazyhaar/domstate/bind"
	"github.com/hazyhaar/domstate/broker"
	"github.com/hazyhaar/domstate/dom"
	"github.com/hazyhaar/domstate/dom/htmldoc"
	"github.com/hazyhaar/domstate/dom/roddoc"
	"github.com/hazyhaar/domstate/revive"
	"github.com/hazyhaar/domstate/state"
)

// document is what serve and mcp need from a DOM source.
type document interface {
	dom.Document
	dom.Querier
}

// runtime is a configured controller plus everything that must be released
// with it.
type runtime struct {
	cfg     *revive.Config
	logger  *slog.Logger
	ctrl    *revive.Controller
	archive *archive.Archive
	binds   *bind.Report
	closers []func() error
}

func setup(ctx context.Context, configPath string) (*runtime, error) {
	cfg, err := revive.LoadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.LogLevel)
	rt := &runtime{cfg: cfg, logger: logger}

	doc, closeDoc, err := openDocument(ctx, cfg.Document, logger)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, closeDoc)

	policy, err := state.ParsePolicy(cfg.Codec.Presence)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.ctrl = revive.New(doc,
		revive.WithLogger(logger),
		revive.WithBroker(buildBroker(cfg.Brokers, logger)),
		revive.WithCodec(state.New(state.WithPolicy(policy), state.WithLogger(logger))))

	if cfg.Archive.Path != "" {
		a, err := archive.Open(cfg.Archive.Path, archive.WithLogger(logger))
		if err != nil {
			rt.close()
			return nil, err
		}
		rt.archive = a
		n, err := a.Import(ctx, rt.ctrl)
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("import archive: %w", err)
		}
		logger.Info("revive: archive loaded", "path", cfg.Archive.Path, "labels", n)
	}

	rep, err := bind.AutoBind(ctx, rt.ctrl, doc, builtinHandlers(rt.ctrl, logger), bind.WithLogger(logger))
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.binds = rep
	return rt, nil
}

// close persists the labels and releases the document. It uses its own
// context so a cancelled run still gets its export.
func (rt *runtime) close() {
	if rt.binds != nil {
		rt.binds.Cancel()
	}
	if rt.archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if n, err := rt.archive.Export(ctx, rt.ctrl); err != nil {
			rt.logger.Error("revive: export archive", "error", err)
		} else {
			rt.logger.Info("revive: archive saved", "labels", n)
		}
		cancel()
		rt.archive.Close()
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.logger.Warn("revive: close", "error", err)
		}
	}
}

func openDocument(ctx context.Context, cfg revive.DocumentConfig, logger *slog.Logger) (document, func() error, error) {
	switch cfg.Source {
	case "browser":
		s, err := roddoc.Open(ctx, roddoc.Options{
			URL:     cfg.URL,
			Remote:  cfg.Remote,
			Stealth: cfg.Stealth,
			Timeout: cfg.Timeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return s.Document, s.Close, nil
	default:
		f, err := os.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		opts := []htmldoc.Option{htmldoc.WithLogger(logger)}
		if p := sanitizer(cfg.Sanitize); p != nil {
			opts = append(opts, htmldoc.WithSanitizer(p))
		}
		doc, err := htmldoc.Parse(f, opts...)
		if err != nil {
			return nil, nil, err
		}
		return doc, func() error { return nil }, nil
	}
}

// sanitizer maps a config name to a bluemonday policy. "none" gives nil.
func sanitizer(name string) *bluemonday.Policy {
	switch name {
	case "ugc":
		return bluemonday.UGCPolicy()
	case "strict":
		return bluemonday.StrictPolicy()
	default:
		return nil
	}
}

func buildBroker(cfgs []revive.BrokerConfig, logger *slog.Logger) broker.Broker {
	if logger == nil {
		logger = slog.Default()
	}
	var brokers []broker.Broker
	for _, bc := range cfgs {
		switch bc.Type {
		case "webhook":
			brokers = append(brokers, broker.NewWebhook(bc.URL,
				broker.WithWebhookRetries(bc.Retries),
				broker.WithWebhookLogger(logger)))
		case "stdout":
			brokers = append(brokers, broker.NewStdout(os.Stdout))
		default:
			brokers = append(brokers, broker.NewBus(broker.WithBusLogger(logger)))
		}
	}
	if len(brokers) == 1 {
		return brokers[0]
	}
	return broker.NewFanout(logger, brokers...)
}

// builtinHandlers exposes the controller to revive-fn bindings. The
// binding's revive-data is the label.
func builtinHandlers(c *revive.Controller, logger *slog.Logger) *bind.Registry {
	return bind.NewRegistry().
		Register("restore", func(ctx context.Context, ev *dom.Event, label string) {
			if o := c.Restore(ctx, label); o.Err != nil {
				logger.Warn("revive: bound restore", "target", ev.TargetID, "label", label, "error", o.Err)
			}
		}).
		Register("restoreAll", func(ctx context.Context, ev *dom.Event, label string) {
			if res := c.RestoreAll(ctx, label); res.Err != nil || !res.OK() {
				logger.Warn("revive: bound restore all", "target", ev.TargetID, "label", label,
					"skipped", res.SkippedIDs(), "error", res.Err)
			}
		})
}

func cmdServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "revive.yaml", "path to config file")
	fs.Parse(args)

	rt, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer rt.close()

	srv := &http.Server{
		Addr:              rt.cfg.HTTP.Addr,
		Handler:           revive.Handler(rt.ctrl, rt.cfg.HTTP.MaxBody),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("revive: listening", "addr", srv.Addr, "source", rt.cfg.Document.Source)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	rt.logger.Info("revive: shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func cmdMCP(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", "revive.yaml", "path to config file")
	fs.Parse(args)

	rt, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer rt.close()

	srv := mcp.NewServer(&mcp.Implementation{Name: "revive", Version: "0.1.0"}, nil)
	rt.ctrl.RegisterMCP(srv)
	rt.logger.Info("revive: mcp over stdio", "source", rt.cfg.Document.Source)
	return srv.Run(ctx, &mcp.StdioTransport{})
}
