package idempotency

import (
	"bytes"
	"net/http"
)

// Response is a captured HTTP response: everything needed to replay it
// byte-for-byte on a retried request.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// WriteTo replays r onto w.
func (r *Response) WriteTo(w http.ResponseWriter) error {
	dst := w.Header()
	for k, vs := range r.Header {
		dst[k] = append([]string(nil), vs...)
	}
	w.WriteHeader(r.StatusCode)
	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}

// Recorder is an http.ResponseWriter that buffers what a handler writes so
// it can be persisted before being sent to the client.
type Recorder struct {
	header      http.Header
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{header: make(http.Header)}
}

func (r *Recorder) Header() http.Header { return r.header }

func (r *Recorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
}

func (r *Recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.body.Write(b)
}

// Response snapshots everything written so far.
func (r *Recorder) Response() *Response {
	status := r.status
	if !r.wroteHeader {
		status = http.StatusOK
	}
	return &Response{
		StatusCode: status,
		Header:     r.header.Clone(),
		Body:       bytes.Clone(r.body.Bytes()),
	}
}
