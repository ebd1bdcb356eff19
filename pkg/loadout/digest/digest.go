// Package digest computes streaming SHA-256 content digests for mod files.
// Files are hashed in fixed-size chunks so arbitrarily large archives never
// load fully into memory, and cancellation is checked between chunks.
package digest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

// DefaultBufferSize is the chunk size for streaming reads.
const DefaultBufferSize = 256 * 1024

// Hasher computes content digests. The zero value is not usable; construct
// with New.
type Hasher struct {
	bufSize int
}

// New returns a hasher with the given read buffer size. Sizes below 4 KiB
// are raised to the default.
func New(bufSize int) *Hasher {
	if bufSize < 4*1024 {
		bufSize = DefaultBufferSize
	}
	return &Hasher{bufSize: bufSize}
}

// Sum streams r through SHA-256 and returns the hex digest. It returns
// ctx.Err() if cancelled mid-stream.
func (h *Hasher) Sum(ctx context.Context, r io.Reader) (types.Digest, error) {
	sum := sha256.New()
	buf := make([]byte, h.bufSize)

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := sum.Write(buf[:n]); werr != nil {
				return "", fmt.Errorf("hash write: %w", werr)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}

	return types.Digest(hex.EncodeToString(sum.Sum(nil))), nil
}

// SumFile hashes the file at path. An unreadable file surfaces as an
// IoError naming the path; it is never silently skipped.
func (h *Hasher) SumFile(ctx context.Context, path string) (types.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", types.NewIoError(path, err)
	}
	defer f.Close()

	d, err := h.Sum(ctx, f)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", types.NewIoError(path, err)
	}
	return d, nil
}
