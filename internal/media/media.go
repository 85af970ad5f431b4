// Package media classifies panel attachments and validates them against a
// model's declared capabilities. Everything here is pure: no I/O, no state.
package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Kind is the coarse media category of an attachment.
type Kind int

const (
	KindText Kind = iota
	KindImage
	KindVideo
	KindAudio
)

var kindNames = map[Kind]string{
	KindText:  "text",
	KindImage: "image",
	KindVideo: "video",
	KindAudio: "audio",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a kind name ("image") to its Kind.
func ParseKind(name string) (Kind, error) {
	for kind, n := range kindNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown media kind %q", name)
}

// KindFromMIME classifies a MIME type such as "image/png" by its major type.
// Anything unrecognized is treated as text.
func KindFromMIME(mimeType string) Kind {
	major, _, _ := strings.Cut(mimeType, "/")
	switch strings.ToLower(strings.TrimSpace(major)) {
	case "image":
		return KindImage
	case "video":
		return KindVideo
	case "audio":
		return KindAudio
	default:
		return KindText
	}
}

// KindSet is a bitmask of supported kinds.
type KindSet uint8

func NewKindSet(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s |= 1 << uint(k)
	}
	return s
}

func (s KindSet) Has(k Kind) bool { return s&(1<<uint(k)) != 0 }

// Names returns the sorted kind names in the set, for display.
func (s KindSet) Names() []string {
	var names []string
	for _, k := range []Kind{KindText, KindImage, KindVideo, KindAudio} {
		if s.Has(k) {
			names = append(names, k.String())
		}
	}
	return names
}

// Attachment is a single piece of media attached to a chat request, kept in
// the data-URL form the panel submitted it in.
type Attachment struct {
	// DataURL is the payload as received, "data:<mime>;base64,<payload>".
	DataURL string
	// MIMEType is the type the panel declared alongside the payload. Used
	// for kind classification; the adapter trusts the data URL's own MIME
	// type when sending.
	MIMEType string
	Kind     Kind
}

// DecodedSize returns the byte length of the decoded payload, or 0 when the
// data URL cannot be parsed (the adapter reports that failure itself).
func (a Attachment) DecodedSize() int64 {
	_, payload, err := ParseDataURL(a.DataURL)
	if err != nil {
		return 0
	}
	trimmed := strings.TrimRight(payload, "=")
	padding := len(payload) - len(trimmed)
	return int64(base64.StdEncoding.DecodedLen(len(payload))) - int64(padding)
}

var ErrMalformedEncoding = errors.New("malformed media encoding")

// ParseDataURL splits a "data:<mime>;base64,<payload>" string into its MIME
// type and base64 payload. Anything that does not carry an extractable MIME
// type fails with ErrMalformedEncoding.
func ParseDataURL(s string) (mimeType, payload string, err error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", "", fmt.Errorf("%w: missing data: prefix", ErrMalformedEncoding)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", fmt.Errorf("%w: missing payload separator", ErrMalformedEncoding)
	}
	mimeType, _, _ = strings.Cut(meta, ";")
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		return "", "", fmt.Errorf("%w: missing mime type", ErrMalformedEncoding)
	}
	return mimeType, payload, nil
}
