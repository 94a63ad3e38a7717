package github

import (
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// DecodeContent decodes a base64 payload into UTF-8 text. The payload is
// decoded to raw bytes first and only then interpreted as UTF-8, so
// multi-byte sequences survive intact. A leading BOM is dropped and invalid
// sequences become U+FFFD.
func DecodeContent(b64 string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, b64)

	raw, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 content: %w", err)
	}

	text, err := unicode.UTF8BOM.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode utf-8 content: %w", err)
	}
	return string(text), nil
}
