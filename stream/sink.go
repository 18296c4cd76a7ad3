package stream

import (
	"bytes"
	"io"
	"net/http"
)

// ResponseSink is a Sink for an http.ResponseWriter. The status code and the
// headers are sent on the first flush, and the bytes written are kept in a
// buffer until a flush.
type ResponseSink struct {
	w         http.ResponseWriter
	buf       bytes.Buffer
	status    int
	committed bool
}

// NewResponseSink returns a sink for w.
func NewResponseSink(w http.ResponseWriter) *ResponseSink {
	return &ResponseSink{w: w, status: http.StatusOK}
}

func (s *ResponseSink) SetHeader(name, value string) {
	s.w.Header().Set(name, value)
}

func (s *ResponseSink) SetStatus(code int) {
	s.status = code
}

func (s *ResponseSink) Discard() {
	s.buf.Reset()
}

func (s *ResponseSink) Write(p []byte) (int, error) {
	return s.buf.Write(p)
}

func (s *ResponseSink) Flush() error {
	if !s.committed {
		s.w.WriteHeader(s.status)
		s.committed = true
	}
	if s.buf.Len() > 0 {
		_, err := s.w.Write(s.buf.Bytes())
		s.buf.Reset()
		if err != nil {
			return err
		}
	}
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// Committed returns true if the status code and headers have been sent.
func (s *ResponseSink) Committed() bool {
	return s.committed
}

// WriterSink is a Sink for an io.Writer, like a file or the standard output.
// The headers are kept but not written. The body of an error response goes to
// ErrorOutput, or is dropped if ErrorOutput is nil.
type WriterSink struct {
	Header      http.Header
	Status      int
	ErrorOutput io.Writer
	w           io.Writer
	buf         bytes.Buffer
}

// NewWriterSink returns a sink for w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{Header: make(http.Header), Status: http.StatusOK, w: w}
}

func (s *WriterSink) SetHeader(name, value string) {
	s.Header.Set(name, value)
}

func (s *WriterSink) SetStatus(code int) {
	s.Status = code
}

func (s *WriterSink) Discard() {
	s.buf.Reset()
}

func (s *WriterSink) Write(p []byte) (int, error) {
	return s.buf.Write(p)
}

func (s *WriterSink) Flush() error {
	w := s.w
	if s.Status >= http.StatusBadRequest {
		w = s.ErrorOutput
	}
	if w == nil {
		s.buf.Reset()
		return nil
	}
	_, err := s.buf.WriteTo(w)
	return err
}
