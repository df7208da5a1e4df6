package session

import "context"

// Stream event types. A stream carries zero or more chunks and terminates in
// exactly one complete or error event.
const (
	EventChunk    = "narrative_chunk"
	EventComplete = "complete"
	EventError    = "error"
)

// StreamEvent is one element of a turn's progress stream.
type StreamEvent struct {
	Type   string      `json:"type"`
	Chunk  string      `json:"chunk,omitempty"`
	Result *TurnResult `json:"result,omitempty"`
	Err    error       `json:"-"`
}

// ProcessActionStream resolves one turn while streaming narration chunks as
// they arrive. The channel is single-pass and closes after the terminal
// event. State mutation semantics are identical to ProcessAction: the AI
// delta lands only after the full response, regardless of how much prose was
// streamed. Every send honors ctx so an abandoned consumer cannot wedge the
// session; the turn itself still resolves.
func (r *Runtime) ProcessActionStream(ctx context.Context, action Action) <-chan StreamEvent {
	out := make(chan StreamEvent)
	go func() {
		defer close(out)
		r.mu.Lock()
		defer r.mu.Unlock()

		send := func(ev StreamEvent) {
			select {
			case out <- ev:
			case <-ctx.Done():
			}
		}

		result, err := r.processTurn(ctx, action, func(chunk string) {
			send(StreamEvent{Type: EventChunk, Chunk: chunk})
		})
		if err != nil {
			send(StreamEvent{Type: EventError, Err: err})
			return
		}
		send(StreamEvent{Type: EventComplete, Result: result})
	}()
	return out
}
