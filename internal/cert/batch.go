package cert

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// IssueAll issues independent requests in parallel. Results are
// index-aligned with reqs. The first failure cancels the remaining
// issuances and is returned. Each request is issued as by IssueCertificate,
// so a parent must already exist.
func (e *Engine) IssueAll(ctx context.Context, reqs []Request) ([]*IssuedCertificate, error) {
	out := make([]*IssuedCertificate, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			ic, err := e.IssueCertificate(ctx, req)
			if err != nil {
				return err
			}
			out[i] = ic
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
