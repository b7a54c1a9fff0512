package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	URL        string        // Album URL for single-album mode; empty for batch mode.
	ListFile   string        // Path of file containing album URLs, one per line.
	LedgerFile string        // Path of the already-downloaded ledger.
	OutDir     string        // Root directory to save albums to.
	Verbose    bool          // True for verbose output.
	Jobs       int           // Number of downloads to run in parallel per album.
	Timeout    time.Duration // Per-attempt timeout for asset retrieval.
}

func parseArgs() (*Config, error) {
	verbose := flag.Bool("v", false, "verbose output")
	jobs := flag.Int("j", 4, "parallel downloads per album")
	timeout := flag.Duration("t", 20*time.Second, "per-request timeout")
	outDir := flag.String("o", "Downloads", "output directory")
	listFile := flag.String("f", "URLs.txt", "album url list file (batch mode)")
	ledgerFile := flag.String("l", "already_downloaded.txt", "dedup ledger file")

	flag.Usage = usage
	flag.Parse()

	if len(flag.Args()) > 1 {
		return nil, fmt.Errorf("too many arguments")
	}

	cfg := &Config{
		ListFile:   *listFile,
		LedgerFile: *ledgerFile,
		OutDir:     *outDir,
		Verbose:    *verbose,
		Jobs:       *jobs,
		Timeout:    *timeout,
	}

	if len(flag.Args()) == 1 {
		cfg.URL = flag.Args()[0]
	}

	return cfg, nil
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [option]... [album_url]\n", filepath.Base(os.Args[0]))
	fmt.Fprintf(flag.CommandLine.Output(), "Downloads remote albums to disk. With no album_url, processes every url\n")
	fmt.Fprintf(flag.CommandLine.Output(), "in the list file, skipping albums recorded in the ledger.\n")
	flag.PrintDefaults()
}
