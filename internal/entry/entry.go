// Package entry defines the clipboard data model shared by the store, the
// Wayland observer, and the IPC wire protocol.
package entry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// ContentType is the closed variant of clipboard payload kinds wayclip
// understands. Anything else is rejected before it reaches the store.
type ContentType string

const (
	Text  ContentType = "Text"
	Image ContentType = "Image"
)

var imageMimeTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/bmp":  true,
	"image/tiff": true,
	"image/webp": true,
}

// ClassifyMIME determines the ContentType for a MIME string as offered by
// the compositor. The bool return is false when the MIME type is neither a
// text/* type nor one of the supported image types, meaning the offer must
// be discarded rather than stored.
func ClassifyMIME(mime string) (ContentType, bool) {
	base := mime
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSpace(base)

	if strings.HasPrefix(base, "text/") {
		return Text, true
	}
	if imageMimeTypes[base] {
		return Image, true
	}
	return "", false
}

// HistoryEntry is the stored unit: a deduplicated clipboard snapshot with
// identity and access timestamps.
type HistoryEntry struct {
	ID             int64
	ContentType    ContentType
	MimeType       string
	Data           []byte
	Preview        string
	Hash           string
	CreatedAt      int64 // unix seconds
	LastAccessedAt int64 // unix seconds
}

// ClipboardSnapshot is the observer's transient output, handed to the store
// and then discarded.
type ClipboardSnapshot struct {
	MimeType    string
	ContentType ContentType
	Data        []byte
}

// HashHex returns the lowercase hex SHA-256 of data, the store's dedup key.
func HashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

const textPreviewMaxRunes = 200

// Preview derives the short human-readable preview string stored alongside
// an entry: for Text, the first textPreviewMaxRunes printable characters
// with newlines collapsed to spaces; for Image, a synthetic label.
func Preview(contentType ContentType, mimeType string, data []byte) string {
	switch contentType {
	case Image:
		return fmt.Sprintf("[Image: %s, %d B]", mimeType, len(data))
	default:
		return textPreview(data)
	}
}

func textPreview(data []byte) string {
	var b strings.Builder
	count := 0
	lastWasSpace := false
	for _, r := range string(data) {
		if count >= textPreviewMaxRunes {
			break
		}
		if r == '\n' || r == '\r' || r == '\t' {
			r = ' '
		}
		if !unicode.IsPrint(r) && r != ' ' {
			continue
		}
		if r == ' ' {
			if lastWasSpace {
				continue
			}
			lastWasSpace = true
		} else {
			lastWasSpace = false
		}
		b.WriteRune(r)
		count++
	}
	return strings.TrimSpace(b.String())
}
