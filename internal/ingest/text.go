package ingest

import (
	"context"
	"strings"
	"unicode/utf8"
)

// Text is what a back-end pulls out of a file.
type Text struct {
	Pages     []string
	PageCount int
	Method    string
}

// TextExtractor turns file bytes into per-page text.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (Text, error)
}

// PlainText handles .txt uploads. Form feeds split pages.
type PlainText struct{}

func (PlainText) ExtractText(_ context.Context, data []byte) (Text, error) {
	s := string(data)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	pages := strings.Split(s, "\f")
	return Text{Pages: pages, PageCount: len(pages), Method: "plain-text"}, nil
}
