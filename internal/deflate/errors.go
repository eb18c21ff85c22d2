package deflate

import "errors"

// ErrInternal marks an internal invariant violation inside the core: an
// out-of-range index, an infeasible Katajainen call, or an inconsistent
// LZ77 store entry. The core never retries or recovers from this class of
// error; the caller is expected to abort the current image and fall back
// to the original bytes.
var ErrInternal = errors.New("deflate: internal invariant violation")
