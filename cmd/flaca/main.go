// Command flaca losslessly recompresses PNG and JPEG files in place.
//
// Usage:
//
//	flaca [options] <path(s)>
//
// Paths may be files or directories; directories are crawled
// recursively. Files are only ever replaced when the recompressed
// version is strictly smaller, via an atomic same-directory rename.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"github.com/deepteams/flaca/internal/crawl"
	"github.com/deepteams/flaca/internal/progress"
	"github.com/deepteams/flaca/internal/worker"
	"github.com/deepteams/flaca/recompress"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "flaca: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("flaca", flag.ContinueOnError)
	iterations := fs.Int("z", 0, "zopfli iterations per block (0=auto: 20 large, 60 small)")
	threads := fs.Int("j", 0, "worker threads (0=logical cores)")
	dryRun := fs.Bool("d", false, "dry run: report savings without touching any file")
	level := fs.Int("v", 3, "verbosity 0-4")
	noPNG := fs.Bool("no-png", false, "skip PNG files")
	noJPEG := fs.Bool("no-jpeg", false, "skip JPEG files")
	noSymlinks := fs.Bool("no-symlinks", false, "do not follow symlinks while crawling")
	preserveTimes := fs.Bool("preserve-times", false, "keep original file times on replacement")
	maxPixels := fs.Int64("max-pixels", 0, "skip images with more pixels than this (0=no limit)")
	listFile := fs.String("l", "", "file with one path or **-glob per line")
	cacheFile := fs.String("skip-cache", "", "sidecar cache of already-crunched file hashes")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *noPNG && *noJPEG {
		return errors.New("nothing to do with both -no-png and -no-jpeg")
	}
	if fs.NArg() == 0 && *listFile == "" {
		fs.Usage()
		return errors.New("no paths given")
	}

	cfg := recompress.DefaultConfig()
	cfg.Iterations = *iterations
	if *threads > 0 {
		cfg.Workers = *threads
	}
	cfg.DryRun = *dryRun
	cfg.PNG = !*noPNG
	cfg.JPEG = !*noJPEG
	cfg.MaxPixels = *maxPixels
	cfg.PreserveTimes = *preserveTimes

	crawler := crawl.New()
	if *noSymlinks {
		crawler.NoSymlinks()
	}
	if *listFile != "" {
		crawler.PushList(*listFile)
	}
	for _, p := range fs.Args() {
		crawler.PushPath(p)
	}
	files, err := crawler.Crawl()
	if err != nil {
		return err
	}

	var cache *crawl.SkipCache
	if *cacheFile != "" {
		cache = crawl.LoadSkipCache(*cacheFile)
	}

	// First interrupt stops pulling new files and lets in-flight work
	// finish; a second one exits immediately (tempfiles may be left
	// behind).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		hard := make(chan os.Signal, 1)
		signal.Notify(hard, os.Interrupt)
		<-hard
		os.Exit(1)
	}()

	reporter := progress.New(256)
	reporter.SetLevel(*level)
	reporter.SetDryRun(*dryRun)

	var render sync.WaitGroup
	render.Add(1)
	go func() {
		defer render.Done()
		for e := range reporter.Entries() {
			if e.Path != "" {
				fmt.Fprintf(os.Stderr, "%s: %s (%s)\n", e.Kind.Prefix(), e.Path, e.Message)
			} else {
				fmt.Fprintf(os.Stderr, "%s: %s\n", e.Kind.Prefix(), e.Message)
			}
		}
	}()

	pool := &worker.Pool{
		Workers:  cfg.Workers,
		Reporter: reporter,
		Fn: func(ctx context.Context, path string) (uint64, uint64, error) {
			return crunch(ctx, path, cfg, cache, reporter)
		},
	}
	totals, runErr := pool.Run(ctx, files)

	reporter.Close()
	render.Wait()

	if cache != nil {
		if err := cache.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save skip cache: %v\n", err)
		}
	}

	summarize(totals, len(files), *dryRun)

	if runErr != nil {
		return errors.New("interrupted")
	}
	return nil
}

// crunch handles one file: skip-cache check, recompression, cache
// update, success log.
func crunch(ctx context.Context, path string, cfg recompress.Config, cache *crawl.SkipCache, reporter *progress.Reporter) (uint64, uint64, error) {
	if cache != nil {
		if data, err := os.ReadFile(path); err == nil && cache.Contains(data) {
			reporter.Log(progress.KindDebug, path, "already crunched, skipping")
			return 0, 0, nil
		}
	}

	before, after, err := recompress.File(ctx, path, cfg)
	noSavings := errors.Is(err, recompress.ErrNoSavings)
	if err != nil && !noSavings {
		return 0, 0, err
	}

	// A no-savings file is at its floor too, so it earns a cache entry
	// just like a freshly shrunk one.
	if cache != nil && !cfg.DryRun && before > 0 {
		if final, err := os.ReadFile(path); err == nil {
			cache.Add(final)
		}
	}
	if noSavings {
		reporter.Log(progress.KindNotice, path, "no savings")
	} else if after < before {
		reporter.Log(progress.KindSuccess, path, fmt.Sprintf("saved %d bytes", before-after))
	}
	return before, after, nil
}

func summarize(t worker.Totals, total int, dryRun bool) {
	verb := "Crunched"
	if dryRun {
		verb = "Would crunch"
	}
	fmt.Fprintf(os.Stderr, "%s %d of %d images, %d bytes saved (%d skipped).\n",
		verb, uint64(total)-t.Skipped, total, t.Saved(), t.Skipped)
}
