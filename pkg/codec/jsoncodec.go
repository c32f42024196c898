// Package codec encodes handler documents and admin listings as JSON.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// Codec turns values into response bodies and back.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	ContentType() string
}

// ErrTrailingData is returned when a document is followed by more input.
var ErrTrailingData = errors.New("codec: trailing data after json document")

// JSONStrict writes compact JSON with object keys sorted and without HTML
// escaping. Decoding rejects unknown fields and trailing content.
var JSONStrict Codec = jsonStrict{}

type jsonStrict struct{}

func (jsonStrict) ContentType() string { return "application/json" }

func (jsonStrict) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	// Encode terminates every document with a newline.
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (jsonStrict) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		return ErrTrailingData
	}
	return nil
}
