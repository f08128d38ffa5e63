package app

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// documentInfo extracts a display title and page count from the uploaded
// payload. The pdf reader panics on some malformed files, so extraction is
// fenced off; anything unreadable falls back to the filename and zero pages.
func documentInfo(payload []byte, filename string) (title string, pageCount int) {
	title = titleFromName(filename)
	defer func() {
		if r := recover(); r != nil {
			pageCount = 0
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return title, 0
	}
	pageCount = reader.NumPage()
	if embedded := embeddedTitle(reader); embedded != "" {
		title = embedded
	}
	return title, pageCount
}

func embeddedTitle(reader *pdf.Reader) string {
	defer func() { recover() }()
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return ""
	}
	return strings.TrimSpace(info.Key("Title").Text())
}

func titleFromName(name string) string {
	base := filepath.Base(name)
	title := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if title == "" || title == "." {
		return "Untitled"
	}
	return title
}
