package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cozy/cozy-cloudfiles/errshttp"
	"github.com/cozy/cozy-cloudfiles/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Client = (*storage.Client)(nil)

var lastModified = time.Date(2024, time.March, 5, 10, 30, 0, 0, time.UTC)

type fakeClient struct {
	container string
	blobs     map[string][]byte
	// maxReturn limits the number of bytes returned by a fetch, when > 0
	maxReturn int
	// zeroAfter makes the fetches return no bytes after this number of calls
	zeroAfter int
	failAfter int
	onFetch   func(call int)
	ranges    [][2]int64
}

func newFakeClient(container string) *fakeClient {
	return &fakeClient{container: container, blobs: make(map[string][]byte), zeroAfter: -1, failAfter: -1}
}

func (f *fakeClient) ResolveContainer(ctx context.Context, container string) error {
	if container != f.container {
		return errshttp.NewError(http.StatusNotFound, "Container Not Found")
	}
	return nil
}

func (f *fakeClient) ResolveBlob(ctx context.Context, container, name string) (*storage.BlobHandle, error) {
	data, ok := f.blobs[name]
	if !ok {
		return nil, errshttp.NewError(http.StatusNotFound, "Object Not Found")
	}
	return &storage.BlobHandle{
		Container:     container,
		Name:          name,
		ContentType:   "application/pdf",
		ContentLength: int64(len(data)),
		LastModified:  lastModified,
	}, nil
}

func (f *fakeClient) RangedFetch(ctx context.Context, blob *storage.BlobHandle, start, end int64) ([]byte, error) {
	call := len(f.ranges)
	f.ranges = append(f.ranges, [2]int64{start, end})
	if f.onFetch != nil {
		f.onFetch(call)
	}
	if f.failAfter >= 0 && call >= f.failAfter {
		return nil, errors.New("connection reset by peer")
	}
	if f.zeroAfter >= 0 && call >= f.zeroAfter {
		return nil, nil
	}
	data := f.blobs[blob.Name]
	if start >= int64(len(data)) {
		return nil, nil
	}
	if end >= int64(len(data)) {
		end = int64(len(data)) - 1
	}
	chunk := data[start : end+1]
	if f.maxReturn > 0 && len(chunk) > f.maxReturn {
		chunk = chunk[:f.maxReturn]
	}
	return chunk, nil
}

type recordingSink struct {
	events  []string
	headers [][2]string
	status  int
	body    bytes.Buffer
	pending bytes.Buffer
}

func (s *recordingSink) SetHeader(name, value string) {
	s.events = append(s.events, "header "+name)
	s.headers = append(s.headers, [2]string{name, value})
}

func (s *recordingSink) SetStatus(code int) {
	s.events = append(s.events, fmt.Sprintf("status %d", code))
	s.status = code
}

func (s *recordingSink) Discard() {
	s.events = append(s.events, "discard")
	s.pending.Reset()
}

func (s *recordingSink) Write(p []byte) (int, error) {
	s.events = append(s.events, fmt.Sprintf("write %d", len(p)))
	return s.pending.Write(p)
}

func (s *recordingSink) Flush() error {
	s.events = append(s.events, "flush")
	_, err := s.pending.WriteTo(&s.body)
	return err
}

func (s *recordingSink) header(name string) (string, bool) {
	for _, h := range s.headers {
		if h[0] == name {
			return h[1], true
		}
	}
	return "", false
}

func makeBlob(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func TestStreamReport(t *testing.T) {
	client := newFakeClient("c1")
	client.blobs["report.pdf"] = makeBlob(5000)
	sink := &recordingSink{}
	s, err := New(2048)
	require.NoError(t, err)

	err = s.Stream(context.Background(), client, sink, Request{Container: "c1", Blob: "report.pdf"})
	require.NoError(t, err)

	assert.Equal(t, [][2]int64{{0, 2047}, {2048, 4095}, {4096, 4999}}, client.ranges)
	assert.Equal(t, client.blobs["report.pdf"], sink.body.Bytes())

	assert.Equal(t, [][2]string{
		{"Last-Modified", "Tue, 05 Mar 2024 10:30:00 GMT"},
		{"Content-Type", "application/pdf"},
		{"Content-Length", "5000"},
		{"Content-Disposition", `inline; filename="report.pdf";`},
	}, sink.headers)

	assert.Equal(t, []string{
		"header Last-Modified",
		"header Content-Type",
		"header Content-Length",
		"header Content-Disposition",
		"discard",
		"write 2048", "flush",
		"write 2048", "flush",
		"write 904", "flush",
	}, sink.events)
}

func TestStreamAttachment(t *testing.T) {
	client := newFakeClient("c1")
	client.blobs["report.pdf"] = makeBlob(5000)
	sink := &recordingSink{}
	s := &Streamer{ChunkSize: 2048}

	err := s.Stream(context.Background(), client, sink, Request{
		Container:   "c1",
		Blob:        "report.pdf",
		Disposition: "attachment",
	})
	require.NoError(t, err)
	disposition, ok := sink.header("Content-Disposition")
	assert.True(t, ok)
	assert.Equal(t, `attachment; filename="report.pdf";`, disposition)
}

func TestStreamEmptyBlob(t *testing.T) {
	client := newFakeClient("c1")
	client.blobs["empty.txt"] = []byte{}
	sink := &recordingSink{}
	s := &Streamer{ChunkSize: 1024}

	err := s.Stream(context.Background(), client, sink, Request{Container: "c1", Blob: "empty.txt"})
	require.NoError(t, err)
	assert.Empty(t, client.ranges)
	length, ok := sink.header("Content-Length")
	assert.True(t, ok)
	assert.Equal(t, "0", length)
	assert.Equal(t, 0, sink.body.Len())
}

func TestStreamNumberOfFetches(t *testing.T) {
	for _, size := range []int{1, 7, 1023, 1024, 1025, 4096, 10000} {
		for _, chunk := range []int64{1, 3, 512, 1024, 5000} {
			t.Run(fmt.Sprintf("%d-%d", size, chunk), func(t *testing.T) {
				client := newFakeClient("c1")
				client.blobs["blob"] = makeBlob(size)
				sink := &recordingSink{}
				s := &Streamer{ChunkSize: chunk}

				err := s.Stream(context.Background(), client, sink, Request{Container: "c1", Blob: "blob"})
				require.NoError(t, err)
				expected := (int64(size) + chunk - 1) / chunk
				assert.EqualValues(t, expected, len(client.ranges))
				assert.Equal(t, size, sink.body.Len())
			})
		}
	}
}

func TestStreamIsIdempotent(t *testing.T) {
	client := newFakeClient("c1")
	client.blobs["report.pdf"] = makeBlob(3000)
	s := &Streamer{ChunkSize: 1000}

	first := &recordingSink{}
	require.NoError(t, s.Stream(context.Background(), client, first, Request{Container: "c1", Blob: "report.pdf"}))
	second := &recordingSink{}
	require.NoError(t, s.Stream(context.Background(), client, second, Request{Container: "c1", Blob: "report.pdf"}))

	assert.Equal(t, first.headers, second.headers)
	assert.Equal(t, first.body.Bytes(), second.body.Bytes())
}

func TestStreamShortReads(t *testing.T) {
	client := newFakeClient("c1")
	client.blobs["blob"] = makeBlob(5000)
	client.maxReturn = 1500
	sink := &recordingSink{}
	s := &Streamer{ChunkSize: 2048}

	require.NoError(t, s.Stream(context.Background(), client, sink, Request{Container: "c1", Blob: "blob"}))
	assert.Equal(t, [][2]int64{{0, 2047}, {1500, 3547}, {3000, 4999}, {4500, 4999}}, client.ranges)
	assert.Equal(t, client.blobs["blob"], sink.body.Bytes())
}

func TestStreamZeroProgress(t *testing.T) {
	client := newFakeClient("c1")
	client.blobs["blob"] = makeBlob(5000)
	client.zeroAfter = 1
	sink := &recordingSink{}
	s := &Streamer{ChunkSize: 2048}

	err := s.Stream(context.Background(), client, sink, Request{Container: "c1", Blob: "blob"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.False(t, IsNotFound(err))
	assert.True(t, strings.HasPrefix(err.Error(), "Failed to stream blob: "))
	assert.Len(t, client.ranges, 2)
	assert.Equal(t, 2048, sink.body.Len())
}

func TestStreamNotFound(t *testing.T) {
	client := newFakeClient("c1")
	sink := &recordingSink{}
	s := &Streamer{ChunkSize: 2048}

	err := s.Stream(context.Background(), client, sink, Request{Container: "c1", Blob: "missing.pdf"})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, http.StatusNotFound, errshttp.StatusCode(err))

	assert.Equal(t, http.StatusNotFound, sink.status)
	contentType, _ := sink.header("Content-Type")
	assert.Equal(t, "text/html", contentType)
	_, ok := sink.header("Content-Length")
	assert.False(t, ok)
	_, ok = sink.header("Last-Modified")
	assert.False(t, ok)
	assert.Equal(t,
		"Failed to stream/download file. File missing.pdf was not found. Object Not Found",
		sink.body.String())
	assert.Empty(t, client.ranges)
}

func TestStreamContainerNotResolved(t *testing.T) {
	client := newFakeClient("c1")
	client.blobs["report.pdf"] = makeBlob(10)
	sink := &recordingSink{}
	s := &Streamer{ChunkSize: 2048}

	err := s.Stream(context.Background(), client, sink, Request{Container: "other", Blob: "report.pdf"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, http.StatusInternalServerError, errshttp.StatusCode(err))
	assert.Equal(t, "Failed to stream blob: Container Not Found", err.Error())
	assert.Empty(t, sink.events)
}

func TestStreamFetchError(t *testing.T) {
	client := newFakeClient("c1")
	client.blobs["report.pdf"] = makeBlob(5000)
	client.failAfter = 0
	sink := &recordingSink{}
	s := &Streamer{ChunkSize: 2048}

	err := s.Stream(context.Background(), client, sink, Request{Container: "c1", Blob: "report.pdf"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.Equal(t, "Failed to stream blob: connection reset by peer", err.Error())
	assert.Equal(t, 0, sink.body.Len())
}

func TestStreamCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := newFakeClient("c1")
	client.blobs["big"] = makeBlob(10000)
	client.onFetch = func(call int) {
		if call == 0 {
			cancel()
		}
	}
	sink := &recordingSink{}
	s := &Streamer{ChunkSize: 1000}

	err := s.Stream(ctx, client, sink, Request{Container: "c1", Blob: "big"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, client.ranges, 1)
	assert.Equal(t, 1000, sink.body.Len())
}

func TestNewRejectsInvalidChunkSize(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)
	_, err = New(-1)
	assert.Error(t, err)

	s := &Streamer{}
	err = s.Stream(context.Background(), newFakeClient("c1"), &recordingSink{}, Request{Container: "c1", Blob: "x"})
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestResponseSink(t *testing.T) {
	client := newFakeClient("c1")
	client.blobs["report.pdf"] = makeBlob(5000)
	rec := httptest.NewRecorder()
	sink := NewResponseSink(rec)
	_, _ = sink.Write([]byte("garbage from an upper layer"))
	s := &Streamer{ChunkSize: 2048}

	require.NoError(t, s.Stream(context.Background(), client, sink, Request{Container: "c1", Blob: "report.pdf"}))
	assert.True(t, sink.Committed())
	assert.True(t, rec.Flushed)
	res := rec.Result()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "5000", res.Header.Get("Content-Length"))
	assert.Equal(t, "application/pdf", res.Header.Get("Content-Type"))
	assert.Equal(t, "Tue, 05 Mar 2024 10:30:00 GMT", res.Header.Get("Last-Modified"))
	assert.Equal(t, client.blobs["report.pdf"], rec.Body.Bytes())
}

func TestResponseSinkNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	sink := NewResponseSink(rec)
	s := &Streamer{ChunkSize: 2048}

	err := s.Stream(context.Background(), newFakeClient("c1"), sink, Request{Container: "c1", Blob: "nope.txt"})
	assert.True(t, IsNotFound(err))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "File nope.txt was not found.")
}

func TestWriterSink(t *testing.T) {
	client := newFakeClient("c1")
	client.blobs["notes.txt"] = []byte("some notes")
	var out bytes.Buffer
	sink := NewWriterSink(&out)
	s := &Streamer{ChunkSize: 4}

	require.NoError(t, s.Stream(context.Background(), client, sink, Request{Container: "c1", Blob: "notes.txt"}))
	assert.Equal(t, "some notes", out.String())
	assert.Equal(t, "10", sink.Header.Get("Content-Length"))
	assert.Equal(t, http.StatusOK, sink.Status)
}

func TestWriterSinkNotFound(t *testing.T) {
	var out, errOut bytes.Buffer
	sink := NewWriterSink(&out)
	s := &Streamer{ChunkSize: 4}

	err := s.Stream(context.Background(), newFakeClient("c1"), sink, Request{Container: "c1", Blob: "nope.txt"})
	assert.True(t, IsNotFound(err))
	assert.Equal(t, http.StatusNotFound, sink.Status)
	assert.Equal(t, 0, out.Len())

	sink = NewWriterSink(&out)
	sink.ErrorOutput = &errOut
	_ = s.Stream(context.Background(), newFakeClient("c1"), sink, Request{Container: "c1", Blob: "nope.txt"})
	assert.Equal(t, 0, out.Len())
	assert.Contains(t, errOut.String(), "File nope.txt was not found.")
}
