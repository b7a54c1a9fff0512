package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"mvdan.cc/xurls/v2"

	"github.com/ccollins476ad/albumgrab/album"
)

// readURLFile reads album urls from the given list file, one per line. Blank
// lines are ignored; other lines are scanned for a url so surrounding
// whitespace or prose does not break the batch.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rx := xurls.Strict()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		u := rx.FindString(line)
		if u == "" {
			log.Warnf("skipping list line with no url: %q", line)
			continue
		}
		urls = append(urls, u)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return urls, nil
}

// processURLs calls o.Process() for each url in the given slice. Per-album
// failures are logged and the batch continues with the next album. It
// returns an error only if every album failed.
func processURLs(ctx context.Context, o *album.Orchestrator, urls []string) error {
	var failed int

	for _, u := range urls {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		res, err := o.Process(ctx, u)
		switch {
		case errors.Is(err, album.ErrAlreadyDone):
			// Nothing to do; Process already logged the skip.

		case err != nil:
			log.WithError(err).Errorf("failed to process album: url=%s", u)
			failed++

		case !res.Complete():
			log.Warnf("album finished with failures: id=%s succeeded=%d failed=%d",
				res.AlbumID, res.Succeeded, len(res.Failed))

		default:
			log.Infof("album complete: id=%s assets=%d skipped=%d",
				res.AlbumID, res.Total, res.Skipped)
		}
	}

	if len(urls) > 0 && failed == len(urls) {
		return fmt.Errorf("all %d albums failed", failed)
	}
	return nil
}
