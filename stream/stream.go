// Package stream sends a blob of the object store to a client, chunk by
// chunk, with ranged requests. Each chunk is flushed to the client as soon as
// it has been fetched, so a client can render a progressive download. Only one
// chunk is in memory at a time, whatever the size of the blob.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cozy/cozy-cloudfiles/errshttp"
	"github.com/cozy/cozy-cloudfiles/storage"
	"github.com/sirupsen/logrus"
)

// DefaultDisposition is used when the request does not ask for another one.
const DefaultDisposition = "inline"

// Kinds of failures of a stream.
var (
	// ErrNotFound is for a blob that does not exist.
	ErrNotFound = errors.New("blob not found")
	// ErrConfiguration is for a container that can't be resolved: the
	// service is bound to a container that should always exist.
	ErrConfiguration = errors.New("container cannot be resolved")
	// ErrTransport is for the failures while fetching the chunks.
	ErrTransport = errors.New("transport failure")
)

var errZeroProgress = errors.New("the object store returned no bytes")

// Client is the part of the object storage client used to stream a blob.
// storage.Client implements it.
type Client interface {
	ResolveContainer(ctx context.Context, container string) error
	ResolveBlob(ctx context.Context, container, name string) (*storage.BlobHandle, error)
	RangedFetch(ctx context.Context, blob *storage.BlobHandle, start, end int64) ([]byte, error)
}

// Sink is where the response is sent.
type Sink interface {
	SetHeader(name, value string)
	SetStatus(code int)
	// Discard drops the bytes written since the last flush.
	Discard()
	Write(p []byte) (int, error)
	Flush() error
}

// Request is a request to stream a blob.
type Request struct {
	Container string
	Blob      string
	// Disposition is the first part of the Content-Disposition header, like
	// "inline" or "attachment". It defaults to "inline".
	Disposition string
}

// Error is returned when a stream fails. Its kind can be checked with
// errors.Is(err, ErrNotFound), etc.
type Error struct {
	Kind error
	Blob string
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == ErrNotFound {
		return notFoundMessage(e.Blob, e.Err)
	}
	return "Failed to stream blob: " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind }

// StatusCode returns the HTTP status code for this error.
func (e *Error) StatusCode() int {
	if e.Kind == ErrNotFound {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// IsNotFound returns true if the stream failed because the blob does not
// exist. In that case, the not found response has already been sent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Streamer streams blobs with ranged requests of ChunkSize bytes.
type Streamer struct {
	ChunkSize int64
}

// New returns a streamer. The chunk size must be positive.
func New(chunkSize int64) (*Streamer, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("invalid chunk size: %d", chunkSize)
	}
	return &Streamer{ChunkSize: chunkSize}, nil
}

// Stream sends the blob to the sink. The headers are set once, before the
// first chunk. If the blob does not exist, a 404 response is sent instead,
// and an error for which IsNotFound is true is returned.
//
// The context is checked between two chunks: canceling it aborts the
// transfer, and the response is left truncated.
func (s *Streamer) Stream(ctx context.Context, client Client, sink Sink, req Request) error {
	if s.ChunkSize <= 0 {
		return &Error{Kind: ErrConfiguration, Blob: req.Blob,
			Err: fmt.Errorf("invalid chunk size: %d", s.ChunkSize)}
	}
	log := logrus.WithFields(logrus.Fields{
		"container": req.Container,
		"blob":      req.Blob,
	})

	if err := client.ResolveContainer(ctx, req.Container); err != nil {
		return &Error{Kind: ErrConfiguration, Blob: req.Blob, Err: err}
	}
	blob, err := client.ResolveBlob(ctx, req.Container, req.Blob)
	if err != nil {
		if errshttp.IsNotFound(err) {
			log.Infof("Blob not found: %s", err)
			return sendNotFound(sink, req.Blob, err)
		}
		return &Error{Kind: ErrTransport, Blob: req.Blob, Err: err}
	}

	size := blob.ContentLength
	sink.SetHeader("Last-Modified", blob.LastModified.UTC().Format(http.TimeFormat))
	sink.SetHeader("Content-Type", blob.ContentType)
	sink.SetHeader("Content-Length", strconv.FormatInt(size, 10))

	disposition := req.Disposition
	if disposition == "" {
		disposition = DefaultDisposition
	}
	sink.SetHeader("Content-Disposition", disposition+`; filename="`+req.Blob+`";`)
	sink.Discard()

	var delivered int64
	for delivered < size {
		if err := ctx.Err(); err != nil {
			log.Infof("Stream canceled after %d/%d bytes", delivered, size)
			return &Error{Kind: ErrTransport, Blob: req.Blob, Err: err}
		}

		start := delivered
		end := delivered + s.ChunkSize - 1
		if end > size-1 {
			end = size - 1
		}
		data, err := client.RangedFetch(ctx, blob, start, end)
		if err != nil {
			return &Error{Kind: ErrTransport, Blob: req.Blob, Err: err}
		}
		length := int64(len(data))
		if length == 0 {
			return &Error{Kind: ErrTransport, Blob: req.Blob, Err: errZeroProgress}
		}
		if length > end-start+1 {
			return &Error{Kind: ErrTransport, Blob: req.Blob,
				Err: fmt.Errorf("the object store returned %d bytes for the range %d-%d", length, start, end)}
		}
		delivered += length

		if _, err := sink.Write(data); err != nil {
			return &Error{Kind: ErrTransport, Blob: req.Blob, Err: err}
		}
		if err := sink.Flush(); err != nil {
			return &Error{Kind: ErrTransport, Blob: req.Blob, Err: err}
		}
	}

	log.Debugf("Streamed %d bytes", delivered)
	return nil
}

func sendNotFound(sink Sink, name string, cause error) error {
	sink.Discard()
	sink.SetStatus(http.StatusNotFound)
	sink.SetHeader("Content-Type", "text/html")
	if _, err := sink.Write([]byte(notFoundMessage(name, cause))); err != nil {
		return &Error{Kind: ErrTransport, Blob: name, Err: err}
	}
	if err := sink.Flush(); err != nil {
		return &Error{Kind: ErrTransport, Blob: name, Err: err}
	}
	return &Error{Kind: ErrNotFound, Blob: name, Err: cause}
}

func notFoundMessage(name string, cause error) string {
	return "Failed to stream/download file. File " + name + " was not found. " + cause.Error()
}
