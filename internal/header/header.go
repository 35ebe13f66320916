// Package header parses and serializes the flat metadata header embedded at
// the top of a document. The header is delimited by "---" marker lines and
// contains ordered "key: value" fields. It is deliberately not YAML: fields
// are kept as opaque strings and re-emitted verbatim in their original order,
// so unrecognized fields survive a rewrite untouched.
package header

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Marker delimits the header block.
const Marker = "---"

// Recognized field keys. Any other key is preserved but not interpreted.
const (
	KeySerial    = "serial"
	KeyRootURL   = "root-url"
	KeyAssetsURL = "assets-url"
)

// Fields is an order-preserving key/value map of header fields.
type Fields = orderedmap.OrderedMap[string, string]

// NewFields returns an empty ordered field map.
func NewFields() *Fields {
	return orderedmap.New[string, string]()
}

// Has reports whether content starts with the header marker.
func Has(content string) bool {
	return strings.HasPrefix(content, Marker)
}

// Split separates the header block (including both marker lines) from the
// document body. The body is returned with leading newlines stripped.
// ok is false when the content has no header or the header is unterminated;
// an unterminated header is treated the same as no header at all.
func Split(content string) (hdr, body string, ok bool) {
	if !Has(content) {
		return "", content, false
	}
	// Look for the closing marker on its own line after the opening one.
	rest := content[len(Marker):]
	end := strings.Index(rest, "\n"+Marker)
	if end < 0 {
		return "", content, false
	}
	hdrEnd := len(Marker) + end + 1 + len(Marker)
	hdr = content[:hdrEnd]
	body = strings.TrimLeft(content[hdrEnd:], "\n")
	return hdr, body, true
}

// ParseFields extracts the ordered fields from a header block. Lines without
// a colon are silently dropped; whitespace around key and value is trimmed.
func ParseFields(hdr string) *Fields {
	fields := NewFields()
	lines := strings.Split(hdr, "\n")
	if len(lines) < 2 {
		return fields
	}
	for _, line := range lines[1 : len(lines)-1] {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, ":") {
			continue
		}
		key, value, _ := strings.Cut(line, ":")
		fields.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return fields
}

// Build serializes fields back into a header block in iteration order,
// with no trailing blank line.
func Build(fields *Fields) string {
	var b strings.Builder
	b.WriteString(Marker)
	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		b.WriteString("\n")
		b.WriteString(pair.Key)
		b.WriteString(": ")
		b.WriteString(pair.Value)
	}
	b.WriteString("\n")
	b.WriteString(Marker)
	return b.String()
}

// Serial returns the serial field, or empty string when absent or blank.
func Serial(fields *Fields) string {
	s, _ := fields.Get(KeySerial)
	return strings.TrimSpace(s)
}

// AssetsURL derives the asset directory path for a document: the root-url
// climb string followed by ".assets/", a shard prefix taken from the serial,
// and the serial itself.
func AssetsURL(rootURL, serial string, shardLen int) string {
	if shardLen < 1 {
		shardLen = 1
	}
	if shardLen > len(serial) {
		shardLen = len(serial)
	}
	return rootURL + ".assets/" + serial[:shardLen] + "/" + serial
}
