package ipc

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.wayclip.dev/wayclip/internal/entry"
	"go.wayclip.dev/wayclip/internal/store"
)

type fakeStore struct {
	entries    map[int64]entry.HistoryEntry
	listErr    error
	touched    []int64
	touchErr   error
	deleteErr  error
	clearErr   error
	clearCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[int64]entry.HistoryEntry)}
}

func (f *fakeStore) List(ctx context.Context, limit int, query string) ([]entry.HistoryEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []entry.HistoryEntry
	for _, e := range f.entries {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) Get(ctx context.Context, id int64) (entry.HistoryEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return entry.HistoryEntry{}, store.ErrNotFound
	}
	return e, nil
}

func (f *fakeStore) Touch(ctx context.Context, id int64) error {
	if f.touchErr != nil {
		return f.touchErr
	}
	f.touched = append(f.touched, id)
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.entries[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.entries, id)
	return nil
}

func (f *fakeStore) Clear(ctx context.Context) error {
	f.clearCalls++
	if f.clearErr != nil {
		return f.clearErr
	}
	f.entries = make(map[int64]entry.HistoryEntry)
	return nil
}

type fakeReplayer struct {
	err      error
	gotMime  string
	gotBytes []byte
}

func (f *fakeReplayer) Copy(ctx context.Context, mimeType string, data []byte) error {
	f.gotMime, f.gotBytes = mimeType, data
	return f.err
}

// exchange sends req over an in-process pipe to a freshly constructed
// Server and returns the decoded response.
func exchange(t *testing.T, s *Server, req Request) Response {
	t.Helper()
	client, server := net.Pipe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.handleConn(server)
	}()

	clientConn := NewConn(client, 10*1024*1024)
	require.NoError(t, clientConn.WriteRequest(req))

	resp, err := clientConn.ReadResponse()
	require.NoError(t, err)
	client.Close()
	<-done
	return resp
}

func TestPingReturnsPong(t *testing.T) {
	s := NewServer(newFakeStore(), &fakeReplayer{}, 10*1024*1024, nil)
	resp := exchange(t, s, Request{Kind: "Ping"})
	assert.Equal(t, "Pong", resp.Kind)
}

func TestListReturnsHistory(t *testing.T) {
	fs := newFakeStore()
	fs.entries[1] = entry.HistoryEntry{ID: 1, ContentType: entry.Text, MimeType: "text/plain", Data: []byte("hi"), Hash: "h"}
	s := NewServer(fs, &fakeReplayer{}, 10*1024*1024, nil)

	resp := exchange(t, s, Request{Kind: "List"})
	require.Equal(t, "History", resp.Kind)
	require.Len(t, resp.History.Entries, 1)
	assert.Equal(t, int64(1), resp.History.Entries[0].ID)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := NewServer(newFakeStore(), &fakeReplayer{}, 10*1024*1024, nil)
	resp := exchange(t, s, Request{Kind: "Get", ID: IDParams{ID: 99}})
	require.Equal(t, "Error", resp.Kind)
	assert.Equal(t, KindNotFound, resp.Error.Kind)
}

func TestCopySuccessTouchesEntry(t *testing.T) {
	fs := newFakeStore()
	fs.entries[1] = entry.HistoryEntry{ID: 1, MimeType: "text/plain", Data: []byte("hi")}
	rep := &fakeReplayer{}
	s := NewServer(fs, rep, 10*1024*1024, nil)

	resp := exchange(t, s, Request{Kind: "Copy", ID: IDParams{ID: 1}})
	require.Equal(t, "Ok", resp.Kind)
	assert.Equal(t, "text/plain", rep.gotMime)
	assert.Equal(t, []byte("hi"), rep.gotBytes)
	assert.Equal(t, []int64{1}, fs.touched)
}

func TestCopyFailureDoesNotTouch(t *testing.T) {
	fs := newFakeStore()
	fs.entries[1] = entry.HistoryEntry{ID: 1, MimeType: "text/plain", Data: []byte("hi")}
	rep := &fakeReplayer{err: errors.New("wl-copy exited 1")}
	s := NewServer(fs, rep, 10*1024*1024, nil)

	resp := exchange(t, s, Request{Kind: "Copy", ID: IDParams{ID: 1}})
	require.Equal(t, "Error", resp.Kind)
	assert.Equal(t, KindReplayFailed, resp.Error.Kind)
	assert.Empty(t, fs.touched)
}

func TestDeleteOk(t *testing.T) {
	fs := newFakeStore()
	fs.entries[1] = entry.HistoryEntry{ID: 1}
	s := NewServer(fs, &fakeReplayer{}, 10*1024*1024, nil)

	resp := exchange(t, s, Request{Kind: "Delete", ID: IDParams{ID: 1}})
	require.Equal(t, "Ok", resp.Kind)
	_, stillThere := fs.entries[1]
	assert.False(t, stillThere)
}

func TestMalformedJSONReturnsBadRequest(t *testing.T) {
	s := NewServer(newFakeStore(), &fakeReplayer{}, 10*1024*1024, nil)
	client, server := net.Pipe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.handleConn(server)
	}()

	_, err := client.Write([]byte("{not json\n"))
	require.NoError(t, err)

	resp, err := NewConn(client, 10*1024*1024).ReadResponse()
	require.NoError(t, err)
	assert.Equal(t, "Error", resp.Kind)
	assert.Equal(t, KindBadRequest, resp.Error.Kind)

	client.Close()
	<-done
}

func TestOversizeLineReturnsBadRequest(t *testing.T) {
	s := NewServer(newFakeStore(), &fakeReplayer{}, 0, nil) // maxLine = extraHeadroom only
	client, server := net.Pipe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.handleConn(server)
	}()

	oversize := make([]byte, 2*1024*1024)
	for i := range oversize {
		oversize[i] = 'x'
	}

	go func() {
		_, _ = client.Write(oversize)
		_, _ = client.Write([]byte("\n"))
	}()

	resp, err := NewConn(client, 0).ReadResponse()
	require.NoError(t, err)
	assert.Equal(t, "Error", resp.Kind)
	assert.Equal(t, KindBadRequest, resp.Error.Kind)

	client.Close()
	<-done
}

func TestClearOk(t *testing.T) {
	fs := newFakeStore()
	fs.entries[1] = entry.HistoryEntry{ID: 1}
	s := NewServer(fs, &fakeReplayer{}, 10*1024*1024, nil)

	resp := exchange(t, s, Request{Kind: "Clear"})
	require.Equal(t, "Ok", resp.Kind)
	assert.Equal(t, 1, fs.clearCalls)
	assert.Empty(t, fs.entries)
}
