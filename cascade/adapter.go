package cascade

import "context"

// RequesterFunc adapts a plain function into an ErasureRequester, letting
// the composition root close over the concrete erasure.Service and
// convert ErasureRequestInput into an erasure.Request without this
// package importing erasure directly.
type RequesterFunc func(ctx context.Context, req ErasureRequestInput) error

func (f RequesterFunc) RequestErasure(ctx context.Context, req ErasureRequestInput) error {
	return f(ctx, req)
}
