package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/ccollins476ad/albumgrab/album"
	"github.com/ccollins476ad/albumgrab/download"
	"github.com/ccollins476ad/albumgrab/ledger"
	"github.com/ccollins476ad/albumgrab/progress"
	"github.com/ccollins476ad/albumgrab/resolve"
	"github.com/ccollins476ad/albumgrab/resolve/imgur"
	"github.com/ccollins476ad/albumgrab/resolve/pixiv"
)

func printFatalError(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}

func main() {
	cfg, err := parseArgs()
	if err != nil {
		printFatalError(err)
		flag.Usage()
		os.Exit(1)
	}

	if cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	// SIGINT stops dispatching new downloads; in-flight transfers finish
	// or time out on their own.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ldg, err := ledger.Load(cfg.LedgerFile)
	if err != nil {
		printFatalError(err)
		os.Exit(2)
	}

	hc := &http.Client{}
	fetcher := download.NewFetcher(hc, nil, download.DefaultRetryPolicy, cfg.Timeout)
	pool := download.NewPool(fetcher, cfg.Jobs)
	planner := download.NewPlanner(cfg.OutDir)
	registry := resolve.NewRegistry(
		pixiv.NewResolver(hc),
		imgur.NewResolver(hc),
	)
	o := album.NewOrchestrator(ldg, registry, planner, pool, progress.LogSink{})

	if cfg.URL != "" {
		// Single-album mode.
		res, err := o.Process(ctx, cfg.URL)
		if err != nil && !errors.Is(err, album.ErrAlreadyDone) {
			printFatalError(err)
			os.Exit(3)
		}
		if !res.Complete() {
			printFatalError(fmt.Errorf("%d of %d assets failed", len(res.Failed), res.Total))
			os.Exit(3)
		}
		return
	}

	urls, err := readURLFile(cfg.ListFile)
	if err != nil {
		printFatalError(err)
		os.Exit(2)
	}

	err = processURLs(ctx, o, urls)
	if err != nil {
		printFatalError(err)
		os.Exit(3)
	}
}
