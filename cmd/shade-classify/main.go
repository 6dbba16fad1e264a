// shade-classify: ask the vision model which tone matches a face photo.
//
//	shade-classify -provider gemini face.jpg
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-shade/internal/config"
	"github.com/teslashibe/go-shade/internal/log"
	"github.com/teslashibe/go-shade/pkg/classifier"
	"github.com/teslashibe/go-shade/pkg/tone"
	"github.com/teslashibe/go-shade/pkg/video"
)

func main() {
	var o config.Overrides
	provider := flag.String("provider", "", "Vision provider: auto, openai, anthropic, gemini, relay")
	model := flag.String("model", "", "Vision model override")
	swatch := flag.String("swatch", "", "Swatch image (rendered from the tones when missing)")
	mirror := flag.Bool("mirror", false, "Mirror the photo before sending")
	asJSON := flag.Bool("json", false, "Print the result as JSON")
	verbose := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: shade-classify [flags] <photo>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *provider != "" {
		o.Provider = provider
	}
	if *model != "" {
		o.Model = model
	}
	cfg := config.LoadWithOverrides(o)
	if *swatch != "" {
		cfg.Swatch = *swatch
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}
	log.Init(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res, err := classify(ctx, cfg, flag.Arg(0), *mirror)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		out := struct {
			classifier.Result
			Tone string `json:"tone,omitempty"`
			Hex  string `json:"hex,omitempty"`
		}{Result: res}
		if res.Found() {
			out.Tone, out.Hex = res.Tone.Name, res.Tone.Hex()
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(out)
		return
	}

	if !res.Found() {
		fmt.Printf("🤷 No tone named (%s): %q\n", res.Provider, res.Text)
		os.Exit(3)
	}
	fmt.Printf("🎨 %s %s (index %d, %s, %v)\n", res.Tone.Name, res.Tone.Hex(), res.Index, res.Provider, res.Latency)
}

func classify(ctx context.Context, cfg config.Config, path string, mirror bool) (classifier.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return classifier.Result{Index: -1}, err
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return classifier.Result{Index: -1}, fmt.Errorf("decode %s: %w", path, err)
	}
	photo := video.Compose(img, nil, mirror, video.SnapshotSize)

	if cfg.Provider == config.ProviderNone {
		cfg.Provider = config.ProviderAuto
	}
	p, err := config.NewProvider(cfg)
	if err != nil {
		return classifier.Result{Index: -1}, err
	}
	if p == nil {
		return classifier.Result{Index: -1}, fmt.Errorf("no vision provider: set OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY or SHADE_RELAY_URL")
	}
	defer p.Close()

	ccfg := classifier.DefaultConfig()
	ccfg.SwatchPath = cfg.Swatch
	ccfg.Model = cfg.Model
	cls, err := classifier.New(ccfg, p, tone.Default())
	if err != nil {
		return classifier.Result{Index: -1}, err
	}
	return cls.Suggest(ctx, photo)
}
