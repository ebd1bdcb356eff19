package digest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

func TestSumMatchesReference(t *testing.T) {
	data := []byte("hello modpack")
	want := hex.EncodeToString(func() []byte {
		s := sha256.Sum256(data)
		return s[:]
	}())

	h := New(0)
	got, err := h.Sum(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Sum failed: %v", err)
	}
	if string(got) != want {
		t.Errorf("Sum = %s, want %s", got, want)
	}
}

func TestSumDeterministicAcrossChunkSizes(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB, 0xCD}, 100*1024)

	small := New(4 * 1024)
	large := New(1024 * 1024)

	d1, err := small.Sum(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	d2, err := large.Sum(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Error("digest must not depend on buffer size")
	}
}

func TestSumCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := New(0)
	_, err := h.Sum(ctx, bytes.NewReader(make([]byte, 1024)))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSumFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pbo")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := New(0)
	d, err := h.SumFile(context.Background(), path)
	if err != nil {
		t.Fatalf("SumFile failed: %v", err)
	}
	if _, err := types.ParseDigest(string(d)); err != nil {
		t.Errorf("SumFile produced invalid digest: %v", err)
	}
}

func TestSumFileMissingIsIoError(t *testing.T) {
	h := New(0)
	_, err := h.SumFile(context.Background(), filepath.Join(t.TempDir(), "gone.pbo"))

	var ioErr *types.IoError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IoError, got %T: %v", err, err)
	}
	if ioErr.Path == "" {
		t.Error("IoError should identify the path")
	}
}
