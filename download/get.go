package download

import (
	"context"
	"fmt"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// StatusError is returned when the server responds with a non-2xx status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("error status: %s", e.Status)
}

// Temporary returns true if the status indicates a server-side condition
// worth retrying (5xx). 4xx-class responses are permanent.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500
}

// GetBody performs an http GET with url=u using the supplied client and
// header. The caller owns the returned body.
func GetBody(ctx context.Context, hc *http.Client, u string, header http.Header) (io.ReadCloser, error) {
	log.Debugf("get: %s", u)

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	rsp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if rsp.StatusCode < 200 || rsp.StatusCode >= 300 {
		rsp.Body.Close()
		return nil, &StatusError{Code: rsp.StatusCode, Status: rsp.Status}
	}

	return rsp.Body, nil
}

// Get calls GetBody(), then reads the full response and returns the result.
func Get(ctx context.Context, hc *http.Client, u string, header http.Header) ([]byte, error) {
	body, err := GetBody(ctx, hc, u, header)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return io.ReadAll(NewContextReader(ctx, body))
}
