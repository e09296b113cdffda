package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/wudi/pdfmarkup/annot"
	"github.com/wudi/pdfmarkup/config"
	"github.com/wudi/pdfmarkup/decode"
	"github.com/wudi/pdfmarkup/editor"
	"github.com/wudi/pdfmarkup/encode"
	"github.com/wudi/pdfmarkup/export"
	"github.com/wudi/pdfmarkup/extractor"
	"github.com/wudi/pdfmarkup/ir/raw"
	"github.com/wudi/pdfmarkup/observability"
	"github.com/wudi/pdfmarkup/store"
	"github.com/wudi/pdfmarkup/writer"
)

type options struct {
	dumpPath   string
	configPath string
	records    bool
	rewrite    string
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "annotdump: %v\n", err)
		os.Exit(2)
	}
	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "annotdump: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: go run ./cmd/annotdump [flags] <dump.json>\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flag.BoolVar(&opts.records, "records", false, "Print decoded records as JSON instead of rows")
	flag.StringVar(&opts.rewrite, "rewrite", "", "Re-export the decoded annotations to this JSON dump")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return options{}, fmt.Errorf("missing dump path")
	}
	opts.dumpPath = flag.Arg(0)
	return opts, nil
}

func run(ctx context.Context, opts options, out io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	log := observability.NewZerolog(os.Stderr).Level(observability.ParseLevel(cfg.LogLevel))

	file, err := os.Open(opts.dumpPath)
	if err != nil {
		return fmt.Errorf("open dump: %w", err)
	}
	defer file.Close()
	doc, err := raw.DecodeJSON(file)
	if err != nil {
		return fmt.Errorf("parse dump: %w", err)
	}

	st, err := load(ctx, doc, cfg, log)
	if err != nil {
		return err
	}
	records := st.All()

	if opts.rewrite != "" {
		if err := rewrite(ctx, opts.rewrite, doc, records, cfg, log); err != nil {
			return err
		}
	}
	if opts.records {
		return emitRecords(out, records)
	}
	return emitRows(out, export.Rows(records))
}

// load decodes every annotation of doc into a fresh store.
func load(ctx context.Context, doc *raw.Document, cfg *config.Config, log observability.Logger) (*store.Store, error) {
	ex, err := extractor.New(doc, extractor.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("new extractor: %w", err)
	}
	annots, err := ex.ExtractAnnotations(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract annotations: %w", err)
	}
	height := func(page int) float64 {
		if _, h, ok := ex.PageSize(page - 1); ok {
			return h
		}
		return 792
	}
	enc := encode.New(cfg.Encoder)
	dec := decode.New(enc, decode.WithLogger(log))
	reg := editor.NewRegistry(cfg.Editor, enc, dec)
	res, err := dec.DecodeAllWith(ctx, annots, height, reg.Decode)
	if err != nil {
		return nil, fmt.Errorf("decode annotations: %w", err)
	}
	st := store.New(store.WithLogger(log))
	for _, d := range res.Decoded {
		st.Save(d.Record, true)
	}
	return st, nil
}

func rewrite(ctx context.Context, path string, src *raw.Document, records []*annot.Record, cfg *config.Config, log observability.Logger) error {
	sizes := make(map[int][2]float64, len(src.Pages))
	for _, p := range src.Pages {
		sizes[p.Index+1] = [2]float64{p.Width, p.Height}
	}
	ex := export.New(writer.Config{
		Compression: cfg.Export.Compression,
		Appearances: cfg.Export.Appearances,
	},
		export.WithLogger(log),
		export.WithPageSize(func(page int) (float64, float64, bool) {
			s, ok := sizes[page]
			return s[0], s[1], ok && s[0] > 0 && s[1] > 0
		}))
	doc, err := ex.Document(ctx, records)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := raw.EncodeJSON(f, doc); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func emitRows(out io.Writer, rows []export.Row) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tPAGE\tTYPE\tAUTHOR\tCONTENT\tDATE\tSTATUS")
	for _, r := range rows {
		date := ""
		if !r.Date.IsZero() {
			date = r.Date.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			r.Index, r.ID, r.Page, r.Type, r.Author, oneLine(r.Content), date, r.Status)
	}
	return tw.Flush()
}

func emitRecords(out io.Writer, records []*annot.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}
	_, err = fmt.Fprintf(out, "%s\n", data)
	return err
}

func oneLine(s string) string {
	const limit = 60
	b := []rune(s)
	for i, r := range b {
		if r == '\n' || r == '\t' {
			b[i] = ' '
		}
	}
	if len(b) > limit {
		return string(b[:limit-1]) + "…"
	}
	return string(b)
}
