package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/fatih/color"

	"github.com/hazyhaar/domstate/archive"
	"github.com/hazyhaar/domstate/dom/htmldoc"
	"github.com/hazyhaar/domstate/revive"
	"github.com/hazyhaar/domstate/state"
)

type fileFlags struct {
	html     string
	label    string
	archive  string
	policy   string
	logLevel string
}

func (f *fileFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.html, "html", "", "HTML file")
	fs.StringVar(&f.label, "label", "", "snapshot label")
	fs.StringVar(&f.archive, "archive", "revive.db", "SQLite label archive")
	fs.StringVar(&f.policy, "policy", "strict", "field presence policy: strict, truthy")
	fs.StringVar(&f.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
}

func (f *fileFlags) check() error {
	if f.html == "" || f.label == "" {
		return fmt.Errorf("-html and -label are required")
	}
	return nil
}

// open parses the HTML file and builds a controller over it.
func (f *fileFlags) open() (*htmldoc.Document, *revive.Controller, error) {
	logger := newLogger(f.logLevel)
	policy, err := state.ParsePolicy(f.policy)
	if err != nil {
		return nil, nil, err
	}
	file, err := os.Open(f.html)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	doc, err := htmldoc.Parse(file, htmldoc.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	c := revive.New(doc,
		revive.WithLogger(logger),
		revive.WithCodec(state.New(state.WithPolicy(policy), state.WithLogger(logger))))
	return doc, c, nil
}

// load opens the archive and stores the label into c.
func (f *fileFlags) load(ctx context.Context, c *revive.Controller) error {
	a, err := archive.Open(f.archive)
	if err != nil {
		return err
	}
	defer a.Close()
	e, err := a.Load(ctx, f.label)
	if err != nil {
		return err
	}
	c.Store(f.label, e)
	return nil
}

func cmdCapture(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("capture", flag.ExitOnError)
	var ff fileFlags
	ff.register(fs)
	ids := fs.String("ids", "", "comma-separated element ids")
	batch := fs.Bool("batch", false, "store as a batch even for a single id")
	markdown := fs.Bool("markdown", false, "print captured content as Markdown instead of JSON")
	fs.Parse(args)

	if err := ff.check(); err != nil {
		return err
	}
	idList := splitIDs(*ids)
	if len(idList) == 0 {
		return fmt.Errorf("-ids is required")
	}

	_, c, err := ff.open()
	if err != nil {
		return err
	}
	e, err := c.Record(ctx, ff.label, *batch || len(idList) > 1, idList...)
	if err != nil {
		return err
	}

	if ff.archive != "" {
		a, err := archive.Open(ff.archive)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Save(ctx, ff.label, e); err != nil {
			return err
		}
	}

	if *markdown {
		return writeMarkdown(os.Stdout, e)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// writeMarkdown renders each snapshot's inner HTML as a Markdown section.
func writeMarkdown(w io.Writer, e revive.Entry) error {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
	for _, s := range e.Snapshots() {
		fmt.Fprintf(w, "## #%s\n\n", s.ID)
		html, ok := s.HTML.Get()
		if !ok {
			fmt.Fprintln(w, "_no content_")
			fmt.Fprintln(w)
			continue
		}
		md, err := conv.ConvertString(html)
		if err != nil {
			return fmt.Errorf("markdown #%s: %w", s.ID, err)
		}
		fmt.Fprintf(w, "%s\n\n", strings.TrimSpace(md))
	}
	return nil
}

func cmdRestore(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	var ff fileFlags
	ff.register(fs)
	all := fs.Bool("all", false, "restore a batch label")
	out := fs.String("out", "", "output file (default: stdout)")
	fs.Parse(args)

	if err := ff.check(); err != nil {
		return err
	}
	doc, c, err := ff.open()
	if err != nil {
		return err
	}
	if err := ff.load(ctx, c); err != nil {
		return err
	}

	var result any
	if *all {
		res := c.RestoreAll(ctx, ff.label)
		if res.Err != nil {
			return res.Err
		}
		result = res
	} else {
		o := c.Restore(ctx, ff.label)
		if o.Err != nil {
			return o.Err
		}
		result = o
	}
	report, _ := json.Marshal(result)
	fmt.Fprintln(os.Stderr, string(report))

	w := io.Writer(os.Stdout)
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return doc.Render(w)
}

func cmdDiff(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	var ff fileFlags
	ff.register(fs)
	fs.Parse(args)

	if err := ff.check(); err != nil {
		return err
	}
	_, c, err := ff.open()
	if err != nil {
		return err
	}
	if err := ff.load(ctx, c); err != nil {
		return err
	}
	reports, err := c.Drift(ctx, ff.label)
	if err != nil {
		return err
	}
	printDrift(os.Stdout, reports)
	return nil
}

// printDrift writes a coloured report: deletions (live only) in red,
// insertions (stored only) in green.
func printDrift(w io.Writer, reports []revive.DriftReport) {
	if len(reports) == 0 {
		fmt.Fprintln(w, "no drift")
		return
	}
	head := color.New(color.Bold).SprintFunc()
	del := color.New(color.FgRed).SprintFunc()
	ins := color.New(color.FgGreen).SprintFunc()
	for _, r := range reports {
		fmt.Fprintln(w, head("#"+r.ID))
		for _, ch := range r.Changes {
			if len(ch.Ops) == 0 {
				fmt.Fprintf(w, "  %s: %s -> %s\n", ch.Field, del(fieldText(ch.Live)), ins(fieldText(ch.Stored)))
				continue
			}
			var b strings.Builder
			for _, op := range ch.Ops {
				switch op.Op {
				case "delete":
					b.WriteString(del(op.Text))
				case "insert":
					b.WriteString(ins(op.Text))
				default:
					b.WriteString(op.Text)
				}
			}
			fmt.Fprintf(w, "  %s: %s\n", ch.Field, b.String())
		}
	}
}

// fieldText prints a value as is; absent values get a marker.
func fieldText(f state.Field) string {
	switch f.Kind() {
	case state.KindValue:
		v, _ := f.Get()
		return v
	case state.KindRemove:
		return "(absent)"
	default:
		return "(unset)"
	}
}
