package wayland

import (
	"errors"
	"io"

	"github.com/google/uuid"
)

// offerState is the per-offer state machine of an in-flight selection,
// named and sequenced exactly as the protocol state machine: a new offer
// accumulates advertised MIME types, negotiates one, drains it, and either
// produces a ready snapshot or is discarded.
type offerState int

const (
	AwaitingOffer offerState = iota
	Selecting
	Receiving
	Ready
	Discarded
)

// errOversize is returned by drainLimited when the source exceeds the
// configured cap before EOF.
var errOversize = errors.New("wayland: offer payload exceeds max_entry_size")

// mimePreference lists accepted MIME types in descending preference order:
// an exact utf-8 text match first, then plain text, then any other text
// family member, then the accepted image formats.
var mimePreference = []string{
	"text/plain;charset=utf-8",
	"text/plain",
}

var imagePreference = []string{
	"image/png",
	"image/jpeg",
	"image/webp",
	"image/bmp",
	"image/tiff",
}

// selectMIME applies the MIME preference policy to a set of offered types
// and returns the first acceptable one, or false if none qualify.
func selectMIME(offered []string) (string, bool) {
	have := make(map[string]bool, len(offered))
	for _, m := range offered {
		have[m] = true
	}

	for _, want := range mimePreference {
		if have[want] {
			return want, true
		}
	}
	for _, m := range offered {
		if isTextMime(m) {
			return m, true
		}
	}
	for _, want := range imagePreference {
		if have[want] {
			return want, true
		}
	}
	return "", false
}

func isTextMime(mime string) bool {
	return len(mime) >= 5 && mime[:5] == "text/"
}

// pendingOffer tracks one wlr-data-control offer from introduction to
// disposal. corrID is a correlation ID for debug logs only — the wire
// protocol identifies offers solely by their wayland object id, but that id
// gets reused once an offer is destroyed, which makes it a poor key for
// tracing one offer's lifecycle across a handful of log lines.
type pendingOffer struct {
	id         uint32
	corrID     uuid.UUID
	mimeTypes  []string
	state      offerState
	chosenMIME string
}

func newPendingOffer(id uint32) *pendingOffer {
	return &pendingOffer{id: id, corrID: uuid.New(), state: AwaitingOffer}
}

func (o *pendingOffer) addMIME(mime string) {
	o.mimeTypes = append(o.mimeTypes, mime)
}

// selectionReady transitions an accumulating offer to Receiving or
// Discarded once the compositor reports it as the current selection.
func (o *pendingOffer) selectionReady() {
	o.state = Selecting
	mime, ok := selectMIME(o.mimeTypes)
	if !ok {
		o.state = Discarded
		return
	}
	o.chosenMIME = mime
	o.state = Receiving
}

// drainLimited reads r to EOF, aborting with errOversize if more than max
// bytes arrive before the source is exhausted.
func drainLimited(r io.Reader, max uint64) ([]byte, error) {
	limited := io.LimitReader(r, int64(max)+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > max {
		return nil, errOversize
	}
	return data, nil
}
