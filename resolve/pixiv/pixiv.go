package pixiv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/ccollins476ad/albumgrab/download"
	"github.com/ccollins476ad/albumgrab/resolve"
	"github.com/ccollins476ad/albumgrab/web"
)

const hostPage = "http://www.pixiv.net/"

var getHeader = http.Header{
	"Referer": []string{hostPage},
}

var (
	artworkIDRegexp = regexp.MustCompile(`artworks/(\d+)`)
	pageNumRegexp   = regexp.MustCompile(`p\d+`)
)

// The artwork page embeds its metadata as JSON in a meta tag. These structs
// cover the parts we read; everything else is ignored.
type preloadData struct {
	Illust map[string]illustEntry `json:"illust"`
}

type illustEntry struct {
	UserIllusts map[string]*artwork `json:"userIllusts"`
}

type artwork struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	PageCount  int    `json:"pageCount"`
	IllustType int    `json:"illustType"`
}

const (
	illustTypeIllustration = 0
	illustTypeManga        = 1
	illustTypeUgoira       = 2
)

// Resolver reads pixiv artwork pages. It implements the resolve.Resolver
// interface.
type Resolver struct {
	hc   *http.Client
	host string
}

func NewResolver(hc *http.Client) *Resolver {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Resolver{
		hc:   hc,
		host: "pixiv.net",
	}
}

// Resolve reads the artwork page at the given url and returns the asset list
// of the album it describes. See resolve.Resolver#Resolve for API details.
func (r *Resolver) Resolve(ctx context.Context, u string) ([]resolve.AssetRef, error) {
	pu, err := url.Parse(u)
	if err != nil {
		return nil, nil
	}

	host := pu.Hostname()
	if host != r.host && !strings.HasSuffix(host, "."+r.host) {
		return nil, nil
	}

	match := artworkIDRegexp.FindStringSubmatch(pu.Path)
	if match == nil {
		return nil, nil
	}
	artworkID := match[1]

	log.Debugf("resolving pixiv artwork: id=%s", artworkID)

	aw, err := fetchArtwork(ctx, r.hc, u, artworkID)
	if err != nil {
		return nil, err
	}

	switch aw.IllustType {
	case illustTypeIllustration, illustTypeManga:
		return imageRefs(aw), nil

	case illustTypeUgoira:
		// Animations ship as a zip of frames; it is downloaded as a
		// single asset.
		return []resolve.AssetRef{{
			URL:      animationURL(aw.URL),
			Filename: aw.ID + ".zip",
		}}, nil

	default:
		return nil, fmt.Errorf("unknown pixiv illust type: id=%s type=%d", aw.ID, aw.IllustType)
	}
}

// fetchArtwork retrieves the artwork page and extracts the metadata of the
// artwork with the given id from the embedded preload JSON.
func fetchArtwork(ctx context.Context, hc *http.Client, u string, artworkID string) (*artwork, error) {
	body, err := download.GetBody(ctx, hc, u, getHeader)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := html.Parse(download.NewContextReader(ctx, body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse artwork page: %v", err)
	}

	meta := web.NodeWithID(doc, "meta", "meta-preload-data")
	if meta == nil {
		return nil, fmt.Errorf("artwork page has no preload metadata")
	}

	pd := &preloadData{}
	err = json.Unmarshal([]byte(web.Attr(meta, "content")), pd)
	if err != nil {
		return nil, fmt.Errorf("failed to decode preload metadata: %w", err)
	}

	for _, entry := range pd.Illust {
		aw := entry.UserIllusts[artworkID]
		if aw != nil {
			return aw, nil
		}
	}

	return nil, fmt.Errorf("artwork not found in preload metadata: id=%s", artworkID)
}

// imageRefs returns one asset per page of a multi-page artwork. Page urls
// are derived from the thumbnail url embedded in the metadata.
func imageRefs(aw *artwork) []resolve.AssetRef {
	count := aw.PageCount
	if count < 1 {
		count = 1
	}

	refs := make([]resolve.AssetRef, 0, count)
	for i := 0; i < count; i++ {
		u := imageURL(aw.URL, i)
		refs = append(refs, resolve.AssetRef{
			URL:      u,
			Filename: fmt.Sprintf("%s_p%d_master1200%s", aw.ID, i, path.Ext(u)),
		})
	}

	return refs
}

// imageURL rewrites the thumbnail url from the artwork metadata into the
// full-size master image url for the given page number.
func imageURL(thumbURL string, page int) string {
	u := strings.Replace(thumbURL, "/c/250x250_80_a2/custom-thumb", "/img-master", 1)
	u = strings.Replace(u, "/c/250x250_80_a2/img-master", "/img-master", 1)
	u = replaceThumbSuffix(u, "_master1200.jpg")
	return pageNumRegexp.ReplaceAllString(u, fmt.Sprintf("p%d", page))
}

// animationURL rewrites the thumbnail url into the url of the animation
// frame archive.
func animationURL(thumbURL string) string {
	u := strings.Replace(thumbURL, "/c/250x250_80_a2/custom-thumb", "/img-zip-ugoira", 1)
	u = strings.Replace(u, "/c/250x250_80_a2/img-master", "/img-zip-ugoira", 1)
	return replaceThumbSuffix(u, "_ugoira600x600.zip")
}

func replaceThumbSuffix(u string, repl string) string {
	for _, suffix := range []string{"_square1200.jpg", "_custom1200.jpg"} {
		if strings.HasSuffix(u, suffix) {
			return strings.TrimSuffix(u, suffix) + repl
		}
	}
	return u
}
