package syncer

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// maxRateBurst caps a single limiter reservation so large reads do not
// exceed the limiter's burst size.
const maxRateBurst = 256 * 1024

// newLimiter builds a shared byte-rate limiter. Zero or negative means
// unlimited.
func newLimiter(bytesPerSec int64) *rate.Limiter {
	if bytesPerSec <= 0 {
		return nil
	}
	burst := maxRateBurst
	if bytesPerSec < int64(burst) {
		burst = int(bytesPerSec)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// rateReader throttles reads against a limiter shared by all transfer
// workers, keeping aggregate download bandwidth under the budget.
type rateReader struct {
	ctx context.Context
	r   io.Reader
	lim *rate.Limiter
}

func (r *rateReader) Read(p []byte) (int, error) {
	if burst := r.lim.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := r.r.Read(p)
	if n > 0 {
		if werr := r.lim.WaitN(r.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
