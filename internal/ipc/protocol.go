package ipc

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"go.wayclip.dev/wayclip/internal/entry"
)

// ErrorKind is the closed set of Error.Kind values spec.md §4.3 defines.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "NotFound"
	KindBadRequest   ErrorKind = "BadRequest"
	KindInternal     ErrorKind = "Internal"
	KindReplayFailed ErrorKind = "ReplayFailed"
)

// ListParams is the payload of a List request: an optional result cap and
// an optional case-insensitive substring query.
type ListParams struct {
	Limit int    `json:"limit,omitempty"`
	Query string `json:"query,omitempty"`
}

// IDParams is the payload shared by Get, Copy, and Delete requests.
type IDParams struct {
	ID int64 `json:"id"`
}

// ErrorPayload is the payload of an Error response.
type ErrorPayload struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// HistoryPayload is the payload of a History response.
type HistoryPayload struct {
	Entries []EntryView `json:"entries"`
}

// EntryPayload is the payload of an Entry response.
type EntryPayload struct {
	Entry EntryView `json:"entry"`
}

// EntryView is the on-wire projection of entry.HistoryEntry: Data is
// base64-encoded and timestamps are seconds since the Unix epoch, both
// already true of HistoryEntry's Go representation except for Data.
type EntryView struct {
	ID             int64             `json:"id"`
	ContentType    entry.ContentType `json:"content_type"`
	MimeType       string            `json:"mime_type"`
	Data           string            `json:"data"`
	Preview        string            `json:"preview"`
	Hash           string            `json:"hash"`
	CreatedAt      int64             `json:"created_at"`
	LastAccessedAt int64             `json:"last_accessed_at"`
}

// NewEntryView projects a stored entry onto its wire form.
func NewEntryView(e entry.HistoryEntry) EntryView {
	return EntryView{
		ID:             e.ID,
		ContentType:    e.ContentType,
		MimeType:       e.MimeType,
		Data:           base64.StdEncoding.EncodeToString(e.Data),
		Preview:        e.Preview,
		Hash:           e.Hash,
		CreatedAt:      e.CreatedAt,
		LastAccessedAt: e.LastAccessedAt,
	}
}

// Request is the tagged union of the six requests spec.md §4.3 defines.
// Exactly one of the typed fields is meaningful, selected by Kind; the
// custom (Un)MarshalJSON methods below produce and consume the
// single-key-object wire shape shown in spec.md §6
// (e.g. {"List":{"limit":50}}, {"Ping":null}) rather than a flat
// discriminated struct.
type Request struct {
	Kind string
	List ListParams
	ID   IDParams
}

func (r Request) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case "List":
		return json.Marshal(map[string]ListParams{"List": r.List})
	case "Get":
		return json.Marshal(map[string]IDParams{"Get": r.ID})
	case "Copy":
		return json.Marshal(map[string]IDParams{"Copy": r.ID})
	case "Delete":
		return json.Marshal(map[string]IDParams{"Delete": r.ID})
	case "Clear":
		return json.Marshal(map[string]any{"Clear": nil})
	case "Ping":
		return json.Marshal(map[string]any{"Ping": nil})
	default:
		return nil, fmt.Errorf("ipc: unknown request kind %q", r.Kind)
	}
}

func (r *Request) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("ipc: malformed request: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("ipc: request must have exactly one variant key, got %d", len(raw))
	}

	for kind, payload := range raw {
		switch kind {
		case "List":
			var p ListParams
			if !isNull(payload) {
				if err := json.Unmarshal(payload, &p); err != nil {
					return fmt.Errorf("ipc: malformed List payload: %w", err)
				}
			}
			r.Kind, r.List = kind, p
		case "Get", "Copy", "Delete":
			var p IDParams
			if err := json.Unmarshal(payload, &p); err != nil {
				return fmt.Errorf("ipc: malformed %s payload: %w", kind, err)
			}
			r.Kind, r.ID = kind, p
		case "Clear", "Ping":
			r.Kind = kind
		default:
			return fmt.Errorf("ipc: unknown request variant %q", kind)
		}
	}
	return nil
}

// Response is the tagged union of the five responses spec.md §4.3 defines,
// marshaled the same single-key-object way as Request.
type Response struct {
	Kind    string
	History HistoryPayload
	Entry   EntryPayload
	Error   ErrorPayload
}

func (r Response) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case "History":
		return json.Marshal(map[string]HistoryPayload{"History": r.History})
	case "Entry":
		return json.Marshal(map[string]EntryPayload{"Entry": r.Entry})
	case "Ok":
		return json.Marshal(map[string]any{"Ok": nil})
	case "Pong":
		return json.Marshal(map[string]any{"Pong": nil})
	case "Error":
		return json.Marshal(map[string]ErrorPayload{"Error": r.Error})
	default:
		return nil, fmt.Errorf("ipc: unknown response kind %q", r.Kind)
	}
}

func (r *Response) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("ipc: malformed response: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("ipc: response must have exactly one variant key, got %d", len(raw))
	}

	for kind, payload := range raw {
		switch kind {
		case "History":
			var p HistoryPayload
			if err := json.Unmarshal(payload, &p); err != nil {
				return fmt.Errorf("ipc: malformed History payload: %w", err)
			}
			r.Kind, r.History = kind, p
		case "Entry":
			var p EntryPayload
			if err := json.Unmarshal(payload, &p); err != nil {
				return fmt.Errorf("ipc: malformed Entry payload: %w", err)
			}
			r.Kind, r.Entry = kind, p
		case "Ok", "Pong":
			r.Kind = kind
		case "Error":
			var p ErrorPayload
			if err := json.Unmarshal(payload, &p); err != nil {
				return fmt.Errorf("ipc: malformed Error payload: %w", err)
			}
			r.Kind, r.Error = kind, p
		default:
			return fmt.Errorf("ipc: unknown response variant %q", kind)
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// Constructors for the common responses, used by both the server and tests.
func okResponse() Response    { return Response{Kind: "Ok"} }
func pongResponse() Response  { return Response{Kind: "Pong"} }
func errResponse(kind ErrorKind, format string, a ...any) Response {
	return Response{Kind: "Error", Error: ErrorPayload{Kind: kind, Message: fmt.Sprintf(format, a...)}}
}
