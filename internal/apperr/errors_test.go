package apperr

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestWrap_NilCause(t *testing.T) {
	if err := Wrap("save", "a.md", ErrIO, nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestWrap_KindAndCause(t *testing.T) {
	err := Wrap("open", "notes.md", ErrIO, fs.ErrNotExist)
	if !errors.Is(err, ErrIO) {
		t.Error("expected ErrIO kind")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("expected cause to be reachable")
	}
	if errors.Is(err, ErrAlreadyExists) {
		t.Error("unexpected kind match")
	}
	if !strings.Contains(err.Error(), "open notes.md") {
		t.Errorf("message = %q", err.Error())
	}

	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Op != "open" {
		t.Errorf("errors.As failed: %#v", opErr)
	}
}
