// Package sse reads server-sent event streams as produced by chat
// completion endpoints.
//
// The byte stream is decoded as UTF-8 with a stateful decoder, so a
// multi-byte character split across network reads is reassembled and
// invalid bytes become U+FFFD. Lines are split on '\n' with a trailing '\r'
// trimmed; a partial line is kept until the rest arrives or the stream
// ends.
package sse

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Sentinel is the payload that terminates a completion stream.
const Sentinel = "[DONE]"

// Kind classifies a line of the stream.
type Kind int

const (
	// Ignored lines carry no payload: blanks, comments, event names, ids.
	Ignored Kind = iota
	// Data lines carry a payload after the "data:" field name.
	Data
	// Done is the sentinel data line.
	Done
)

// Frame is one classified line.
type Frame struct {
	Kind Kind
	Data string
}

// Classify inspects a single line with its line terminator removed.
func Classify(line string) Frame {
	rest, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return Frame{Kind: Ignored}
	}

	rest = strings.TrimPrefix(rest, " ")
	if rest == Sentinel {
		return Frame{Kind: Done}
	}
	if strings.TrimSpace(rest) == "" {
		return Frame{Kind: Ignored}
	}

	return Frame{Kind: Data, Data: rest}
}

// Reader yields lines from an event stream.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps r with a UTF-8 decoder and a line buffer.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		br: bufio.NewReader(transform.NewReader(r, unicode.UTF8.NewDecoder())),
	}
}

// ReadLine returns the next line without its terminator. At the end of the
// stream a final unterminated line is returned first; after that ReadLine
// returns io.EOF.
func (r *Reader) ReadLine() (string, error) {
	line, err := r.br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSuffix(line, "\r"), nil
		}
		return "", err
	}

	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

// Next returns the next non-ignored frame. It returns io.EOF when the stream
// ends without a sentinel.
func (r *Reader) Next() (Frame, error) {
	for {
		line, err := r.ReadLine()
		if err != nil {
			return Frame{}, err
		}

		if f := Classify(line); f.Kind != Ignored {
			return f, nil
		}
	}
}
