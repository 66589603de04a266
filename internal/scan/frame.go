// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package scan

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// Frame is one camera frame (or one scanner read) offered for recognition.
// Data must not be modified after the frame is offered.
type Frame struct {
	Seq        uint64
	Data       []byte
	ReceivedAt time.Time
}

// Recognizer decodes a frame. An empty string means nothing was found.
type Recognizer interface {
	Recognize(ctx context.Context, f Frame) (string, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, f Frame) (string, error)

func (fn RecognizerFunc) Recognize(ctx context.Context, f Frame) (string, error) {
	return fn(ctx, f)
}

// ErrUndecodable is returned by TextRecognizer for non UTF-8 payloads.
var ErrUndecodable = errors.New("scan: payload is not valid UTF-8 text")

// TextRecognizer treats the frame payload as already-decoded text, which is
// what hardware barcode scanners in keyboard or serial mode deliver.
type TextRecognizer struct{}

func (TextRecognizer) Recognize(ctx context.Context, f Frame) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !utf8.Valid(f.Data) {
		return "", ErrUndecodable
	}
	return strings.TrimSpace(string(f.Data)), nil
}
