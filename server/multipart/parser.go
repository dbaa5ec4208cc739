// Package multipart decodes multipart/form-data request bodies without
// relying on mime/multipart, so that framing policy (closing delimiters,
// malformed parts, duplicate file parts) stays explicit and testable.
package multipart

import (
	"bytes"
	"errors"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrNoBoundary = errors.New("no multipart boundary in content type")
	ErrNoFilePart = errors.New("no file part in request body")
)

var crlf = []byte("\r\n")

// Part is one decoded section of a multipart body. A file part has both
// Name and Filename set; a field part has only Name.
type Part struct {
	Name     string
	Filename string
	Content  []byte
}

// IsFile reports whether the part carried a filename attribute.
func (p Part) IsFile() bool {
	return p.Filename != ""
}

// ExtractBoundary recovers the boundary token from a multipart/form-data
// content type header value.
func ExtractBoundary(contentType string) (string, error) {
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		return "", ErrNoBoundary
	}
	for _, param := range strings.Split(contentType, ";") {
		param = strings.TrimSpace(param)
		if value, ok := strings.CutPrefix(param, "boundary="); ok {
			value = strings.Trim(value, `"`)
			if value == "" {
				return "", ErrNoBoundary
			}
			return value, nil
		}
	}
	return "", ErrNoBoundary
}

// Parser decodes raw multipart bodies into parts.
type Parser struct {
	logger *zap.Logger
}

func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse splits body on the boundary delimiter and decodes each segment.
// The closing "--" segment is discarded silently. A segment without a
// parseable Content-Disposition header is skipped and logged; it never
// aborts the parse.
func (p *Parser) Parse(body []byte, boundary string) ([]Part, error) {
	if boundary == "" {
		return nil, ErrNoBoundary
	}

	delimiter := append([]byte("--"), boundary...)
	segments := bytes.Split(body, delimiter)

	var parts []Part
	for _, segment := range segments {
		trimmed := bytes.TrimSpace(segment)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("--")) {
			continue
		}

		part, ok := p.decodeSegment(segment)
		if !ok {
			p.logger.Warn("Skipping malformed multipart segment",
				zap.Int("segment_bytes", len(segment)),
			)
			continue
		}
		parts = append(parts, part)
	}

	return parts, nil
}

// decodeSegment walks one segment through the expect-headers and
// expect-content states.
func (p *Parser) decodeSegment(segment []byte) (Part, bool) {
	segment = bytes.TrimPrefix(segment, crlf)

	headerBlock, content, found := bytes.Cut(segment, []byte("\r\n\r\n"))
	if !found {
		return Part{}, false
	}

	name, filename, ok := parseDisposition(headerBlock)
	if !ok {
		return Part{}, false
	}

	// The framing always appends one CRLF before the next delimiter;
	// it is not part of the content.
	content = bytes.TrimSuffix(content, crlf)

	return Part{Name: name, Filename: filename, Content: content}, true
}

func parseDisposition(headerBlock []byte) (name, filename string, ok bool) {
	for _, line := range bytes.Split(headerBlock, crlf) {
		key, value, found := bytes.Cut(line, []byte(":"))
		if !found {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(string(key)), "Content-Disposition") {
			continue
		}

		for _, item := range strings.Split(string(value), ";") {
			item = strings.TrimSpace(item)
			k, v, found := strings.Cut(item, "=")
			if !found {
				continue
			}
			v = strings.Trim(v, `"`)
			switch k {
			case "name":
				name = v
			case "filename":
				filename = v
			}
		}

		if name != "" {
			return name, filename, true
		}
	}
	return "", "", false
}

// Form is the extraction view over parsed parts used by the upload path.
type Form struct {
	parts []Part
}

func NewForm(parts []Part) *Form {
	return &Form{parts: parts}
}

// File returns the first part carrying a filename. Later file parts are
// ignored deliberately: duplicate uploads resolve first-wins.
func (f *Form) File() (Part, error) {
	for _, part := range f.parts {
		if part.IsFile() {
			return part, nil
		}
	}
	return Part{}, ErrNoFilePart
}

// Value returns the content of the first field part with the given name,
// or fallback when absent.
func (f *Form) Value(name, fallback string) string {
	for _, part := range f.parts {
		if !part.IsFile() && part.Name == name {
			return strings.TrimSpace(string(part.Content))
		}
	}
	return fallback
}
