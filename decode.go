package main

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder turns the package manager's raw output bytes into text.
// Undecodable sequences become U+FFFD; decoding never aborts a read.
// The zero value decodes UTF-8.
type Decoder struct {
	name string
	enc  encoding.Encoding
}

// NewDecoder looks up an IANA charset name such as "utf-8", "IBM437"
// or "windows-1252". An empty name selects UTF-8.
func NewDecoder(name string) (Decoder, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return Decoder{name: "utf-8", enc: unicode.UTF8}, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return Decoder{}, fmt.Errorf("unknown output encoding %q: %w", name, err)
	}
	if enc == nil {
		return Decoder{}, fmt.Errorf("output encoding %q is not supported", name)
	}
	return Decoder{name: name, enc: enc}, nil
}

// Name returns the charset the decoder was built for.
func (d Decoder) Name() string {
	if d.name == "" {
		return "utf-8"
	}
	return d.name
}

func (d Decoder) encoding() encoding.Encoding {
	if d.enc == nil {
		return unicode.UTF8
	}
	return d.enc
}

// Reader wraps r so that reads yield decoded UTF-8.
func (d Decoder) Reader(r io.Reader) io.Reader {
	return transform.NewReader(r, d.encoding().NewDecoder())
}

// DecodeString decodes a fully captured output.
func (d Decoder) DecodeString(s string) (string, error) {
	return d.encoding().NewDecoder().String(s)
}
