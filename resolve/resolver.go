// Package resolve turns an album URL into the list of assets to download.
// Each resolver implementation only knows how to read a particular site;
// the registry tries them in order.
package resolve

import "context"

// AssetRef is one downloadable asset of an album, in album order.
type AssetRef struct {
	URL      string // Source URL of the asset.
	Filename string // Suggested local filename; may be empty.
}

// Resolver reads a remote album page and returns the ordered list of its
// assets. A resolver returns (nil, nil) if it does not recognize the given
// URL, leaving it for the next resolver to try.
type Resolver interface {
	Resolve(ctx context.Context, u string) ([]AssetRef, error)
}

// Registry is a Resolver that consults a fixed list of site resolvers in
// order. The first one that recognizes the URL wins.
type Registry struct {
	resolvers []Resolver
}

func NewRegistry(resolvers ...Resolver) *Registry {
	return &Registry{resolvers: resolvers}
}

// Resolve implements Resolver. It returns (nil, nil) if no registered
// resolver recognizes the URL.
func (r *Registry) Resolve(ctx context.Context, u string) ([]AssetRef, error) {
	for _, res := range r.resolvers {
		refs, err := res.Resolve(ctx, u)
		if refs != nil || err != nil {
			return refs, err
		}
	}
	return nil, nil
}
