// ABOUTME: Realtime event names, the wire envelope, and payload decoding helpers.
// ABOUTME: Inbound comment events under either legacy name are unified into one discriminated event.
package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/2389-research/circle/internal/models"
)

// Event names used on the channel.
const (
	EventNewPost            = "newPost"
	EventNewLike            = "new-like"
	EventNewComment         = "new-comment"
	EventReceiveComment     = "receive-comment"
	EventJoin               = "join"
	EventFollowNotification = "followNotification"
	EventFollow             = "follow"
	EventUnfollow           = "unfollow"

	// EventComment is the single internal name for comment traffic.
	// Subscribers never see new-comment or receive-comment.
	EventComment = "comment"
)

// CommentKindCreated marks a newly created comment.
const CommentKindCreated = "created"

// Event is a named message with a raw JSON payload.
type Event struct {
	Name    string
	Payload json.RawMessage
}

// CommentEvent is the discriminated payload of EventComment.
type CommentEvent struct {
	Kind    string         `json:"kind"`
	Comment models.Comment `json:"comment"`
}

// envelope is what actually crosses the wire.
type envelope struct {
	ID      string          `json:"id"`
	Origin  string          `json:"origin,omitempty"`
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"data"`
}

// NewEvent marshals payload into an Event.
func NewEvent(name string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", name, err)
	}
	return Event{Name: name, Payload: data}, nil
}

func encodeEnvelope(origin string, ev Event) ([]byte, error) {
	payload := ev.Payload
	if payload == nil {
		payload = json.RawMessage("null")
	}
	return json.Marshal(envelope{
		ID:      ulid.Make().String(),
		Origin:  origin,
		Name:    ev.Name,
		Payload: payload,
	})
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("malformed envelope: %w", err)
	}
	if env.Name == "" {
		return envelope{}, fmt.Errorf("malformed envelope: missing event name")
	}
	return env, nil
}

// normalize folds the two legacy comment event names into EventComment and
// fills in a missing comment author.
func normalize(ev Event) (Event, error) {
	switch ev.Name {
	case EventNewComment, EventReceiveComment:
		var c models.Comment
		if err := json.Unmarshal(ev.Payload, &c); err != nil {
			return Event{}, fmt.Errorf("malformed %s payload: %w", ev.Name, err)
		}
		return NewEvent(EventComment, CommentEvent{Kind: CommentKindCreated, Comment: c.WithAuthor()})
	default:
		return ev, nil
	}
}

// Decode unmarshals an event payload into T.
func Decode[T any](ev Event) (T, error) {
	var v T
	if err := json.Unmarshal(ev.Payload, &v); err != nil {
		return v, fmt.Errorf("malformed %s payload: %w", ev.Name, err)
	}
	return v, nil
}
