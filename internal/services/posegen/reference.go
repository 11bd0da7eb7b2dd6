// Package posegen builds references to generated signed-language pose
// artifacts. Building a reference performs no network call; the renderer
// that consumes it does the fetching.
package posegen

import (
	"strings"
)

// Builder constructs pose references against one endpoint.
type Builder struct {
	endpoint string
}

// New returns a builder for endpoint.
func New(endpoint string) *Builder {
	return &Builder{endpoint: strings.TrimSpace(endpoint)}
}

// Reference returns the URL of the pose for text translated from spoken into signed.
func (b *Builder) Reference(text, spoken, signed string) string {
	return b.endpoint + "?text=" + EscapeComponent(text) + "&spoken=" + spoken + "&signed=" + signed
}

// EscapeComponent percent-encodes s the way browsers encode a URI component:
// everything except ASCII letters, digits and -_.!~*'() is escaped as UTF-8.
func EscapeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
