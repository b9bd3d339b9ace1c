package ai

import (
	"regexp"
	"strings"

	"github.com/mrz1836/inkwell/internal/domain"
)

// blankRunPattern matches three or more consecutive newlines.
var blankRunPattern = regexp.MustCompile(`\n{3,}`) //nolint:gochecknoglobals // compiled once

// NormalizeText collapses runs of blank lines into a single blank line and
// trims surrounding whitespace.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(blankRunPattern.ReplaceAllString(s, "\n\n"))
}

// textFrom concatenates the text parts of a response in order.
func textFrom(resp *Response) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Parts {
		b.WriteString(p.Text)
	}
	return NormalizeText(b.String())
}

// imagesFrom collects inline and file-referenced image parts, in order.
func imagesFrom(resp *Response) []domain.ImagePayload {
	if resp == nil {
		return nil
	}
	var out []domain.ImagePayload
	for _, p := range resp.Parts {
		switch {
		case len(p.Data) > 0:
			out = append(out, domain.ImagePayload{MimeType: p.MimeType, Data: p.Data})
		case p.FileURI != "":
			out = append(out, domain.ImagePayload{MimeType: p.MimeType, URI: p.FileURI})
		}
	}
	return out
}
