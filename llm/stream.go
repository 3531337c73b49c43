package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/smarttavern/tavern-host-sdk/abi"
)

// ErrUnknownStream is returned by NextChunk for a handle that was never
// opened or has already been fully drained and closed.
var ErrUnknownStream = fmt.Errorf("unknown stream")

type stream struct {
	chunks chan abi.StreamChunk
	cancel chan struct{}
	once   sync.Once
}

func (s *stream) close() {
	s.once.Do(func() { close(s.cancel) })
}

// streamTable tracks in-flight streaming completions by handle.
type streamTable struct {
	mu      sync.Mutex
	streams map[string]*stream
}

func newStreamTable() *streamTable {
	return &streamTable{streams: make(map[string]*stream)}
}

func (t *streamTable) open() string {
	id := uuid.NewString()
	t.mu.Lock()
	t.streams[id] = &stream{
		chunks: make(chan abi.StreamChunk, 16),
		cancel: make(chan struct{}),
	}
	t.mu.Unlock()
	return id
}

func (t *streamTable) get(id string) (*stream, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.streams[id]
	return s, ok
}

func (t *streamTable) remove(id string) {
	t.mu.Lock()
	s, ok := t.streams[id]
	delete(t.streams, id)
	t.mu.Unlock()
	if ok {
		s.close()
	}
}

// NextChunk returns the next increment of the streaming completion id.
// The chunk with Done set is the last one; the handle is released when it is
// delivered. Callers should stop reading after Done or a non-empty Error.
func (c *Client) NextChunk(ctx context.Context, id string) (abi.StreamChunk, error) {
	s, ok := c.streams.get(id)
	if !ok {
		return abi.StreamChunk{}, fmt.Errorf("%w: %s", ErrUnknownStream, id)
	}
	select {
	case chunk, open := <-s.chunks:
		if !open {
			c.streams.remove(id)
			return abi.StreamChunk{StreamID: id, Done: true}, nil
		}
		if chunk.Done || chunk.Error != "" {
			c.streams.remove(id)
		}
		return chunk, nil
	case <-ctx.Done():
		return abi.StreamChunk{}, ctx.Err()
	}
}

// CancelStream abandons an in-flight stream. Reading goroutines observe the
// cancellation and release the upstream connection.
func (c *Client) CancelStream(id string) {
	c.streams.remove(id)
}

// consumeStream reads server-sent events from body and forwards deltas to
// the stream's channel until [DONE] or an error.
func (c *Client) consumeStream(id string, body io.ReadCloser) {
	defer func() { _ = body.Close() }()

	s, ok := c.streams.get(id)
	if !ok {
		return
	}
	defer close(s.chunks)

	send := func(chunk abi.StreamChunk) bool {
		select {
		case s.chunks <- chunk:
			return true
		case <-s.cancel:
			return false
		}
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			send(abi.StreamChunk{StreamID: id, Done: true})
			return
		}

		var decoded completionResponse
		if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
			c.logger.Debug("skipping malformed stream event", "stream_id", id, "error", err)
			continue
		}
		if decoded.Error != nil {
			send(abi.StreamChunk{StreamID: id, Error: decoded.Error.Message, Done: true})
			return
		}
		for _, choice := range decoded.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if !send(abi.StreamChunk{StreamID: id, Delta: choice.Delta.Content}) {
				return
			}
		}
	}
	if err := scanner.Err(); err != nil {
		send(abi.StreamChunk{StreamID: id, Error: err.Error(), Done: true})
		return
	}
	send(abi.StreamChunk{StreamID: id, Done: true})
}
