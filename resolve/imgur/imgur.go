package imgur

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/koffeinsource/go-imgur"
	log "github.com/sirupsen/logrus"

	"github.com/ccollins476ad/albumgrab/download"
	"github.com/ccollins476ad/albumgrab/resolve"
)

const (
	clientID  = "ab1802d70cb1deb"
	albumBase = "https://api.imgur.com/3/album/"
)

var getHeader = http.Header{
	"Authorization": []string{"Client-ID " + clientID},
	"referer":       []string{"https://imgur.com/"},
	"origin":        []string{"https://imgur.com"},
	"content-type":  []string{"application/json"},
	"user-agent":    []string{"curl/7.84.0"},
}

type albumInfoDataWrapper struct {
	AI      *imgur.AlbumInfo `json:"data"`
	Success bool             `json:"success"`
	Status  int              `json:"status"`
}

// Resolver reads imgur albums via the imgur API. It implements the
// resolve.Resolver interface.
type Resolver struct {
	hc *http.Client

	// apiBase overrides the album API endpoint in tests.
	apiBase string
}

func NewResolver(hc *http.Client) *Resolver {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Resolver{
		hc:      hc,
		apiBase: albumBase,
	}
}

// Resolve returns the image list of the imgur album at the given url. See
// resolve.Resolver#Resolve for API details.
func (r *Resolver) Resolve(ctx context.Context, u string) ([]resolve.AssetRef, error) {
	if !strings.HasPrefix(u, "https://imgur.com/a/") {
		return nil, nil
	}

	log.Debugf("scanning imgur album: %s", u)

	hash := strings.TrimPrefix(u, "https://imgur.com/a/")
	if len(hash) < 7 {
		return nil, fmt.Errorf("imgur album hash length too short: have=%d want=7 hash=%s", len(hash), hash)
	}
	if len(hash) > 7 {
		// Albums shared with a title carry a slug prefix; the hash is
		// the last 7 characters.
		trimmed := hash[len(hash)-7:]
		log.Debugf("removing imgur album prefix: %s --> %s", hash, trimmed)
		hash = trimmed
	}

	b, err := download.Get(ctx, r.hc, r.apiBase+hash, getHeader)
	if err != nil {
		return nil, err
	}

	aidw := &albumInfoDataWrapper{}
	err = json.Unmarshal(b, aidw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode album info: %w", err)
	}

	if !aidw.Success {
		return nil, fmt.Errorf("album info response has success=false")
	}

	var refs []resolve.AssetRef
	for _, img := range aidw.AI.Images {
		log.Debugf("detected imgur album image link: %s", img.Link)
		refs = append(refs, resolve.AssetRef{
			URL:      img.Link,
			Filename: path.Base(img.Link),
		})
	}

	return refs, nil
}
