// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stream

import (
	"net/http"

	"github.com/openai/openai-go/packages/ssestream"
)

// sseSource adapts a server-sent-events response body to a frame Source.
type sseSource struct {
	dec ssestream.Decoder
	cur Frame
	err error
}

// NewSSESource reads frames from an event-stream HTTP response. The caller
// closes the response body.
func NewSSESource(resp *http.Response) Source {
	return &sseSource{dec: ssestream.NewDecoder(resp)}
}

func (s *sseSource) Next() bool {
	if s.err != nil || s.dec == nil {
		return false
	}
	for s.dec.Next() {
		ev := s.dec.Event()
		if len(ev.Data) == 0 {
			continue
		}
		f, err := ParseFrame(ev.Type, ev.Data)
		if err != nil {
			s.err = err
			return false
		}
		if f == nil {
			continue
		}
		s.cur = f
		return true
	}
	s.err = s.dec.Err()
	return false
}

func (s *sseSource) Frame() Frame { return s.cur }

func (s *sseSource) Err() error { return s.err }
