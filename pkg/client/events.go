package client

import (
	"errors"
	"io"

	"github.com/chatwire/chatwire/pkg/protocol"
)

// Event is anything the relay pushes to the session. The concrete
// types are *Message, *DestinationUnknown, *Roster, and *Disconnected.
type Event interface {
	event()
}

// MessageKind distinguishes how a Message was routed.
type MessageKind uint8

const (
	KindBroadcast MessageKind = iota
	KindUnicast
	KindMulticast
)

// String returns the kind name used in logs.
func (k MessageKind) String() string {
	switch k {
	case KindBroadcast:
		return "broadcast"
	case KindUnicast:
		return "unicast"
	case KindMulticast:
		return "multicast"
	default:
		return "unknown"
	}
}

// Message is a chat message delivered to this session.
type Message struct {
	Kind   MessageKind
	Sender string
	// Dests is the full destination list of a multicast, including
	// handles other than our own. Nil for broadcast and unicast.
	Dests []string
	Text  string
}

// DestinationUnknown reports that a unicast or multicast destination
// named a handle the relay does not know.
type DestinationUnknown struct {
	Handle string
}

// Roster is the assembled reply to a list request.
type Roster struct {
	// Announced is the count the relay claimed. It normally equals
	// len(Handles); a mismatch means the relay misbehaved and is
	// surfaced rather than hidden.
	Announced uint32
	Handles   []string
}

// Disconnected is the final event of a session. Err is nil when the
// relay closed the connection cleanly and non-nil for framing or
// transport failures. Close never produces a Disconnected event.
type Disconnected struct {
	Err error
}

func (*Message) event()            {}
func (*DestinationUnknown) event() {}
func (*Roster) event()             {}
func (*Disconnected) event()       {}

// Events returns the stream of relay events. The channel is closed
// after the final Disconnected event, or without one when the consumer
// called Close first.
func (c *Client) Events() <-chan Event {
	return c.events
}

// emit delivers ev unless the session is shutting down. It reports
// whether the event was accepted.
func (c *Client) emit(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// readLoop turns incoming frames into events until the connection
// ends. List replies span several frames; the loop carries the partial
// roster across iterations and emits it whole on ListEnd.
func (c *Client) readLoop() {
	defer close(c.events)

	var roster *Roster
	for {
		payload, err := protocol.ReadFrame(c.conn, c.config.MaxPayload)
		if err != nil {
			c.finishRead(err)
			return
		}
		c.framesIn.Add(1)
		pkt, err := protocol.Decode(payload)
		if err != nil {
			c.logger.Debug().Err(err).Msg("dropping malformed packet")
			continue
		}

		switch p := pkt.(type) {
		case *protocol.Broadcast:
			if !c.emit(&Message{Kind: KindBroadcast, Sender: p.Sender, Text: p.Text}) {
				return
			}
		case *protocol.Unicast:
			if !c.emit(&Message{Kind: KindUnicast, Sender: p.Sender, Text: p.Text}) {
				return
			}
		case *protocol.Multicast:
			if !c.emit(&Message{Kind: KindMulticast, Sender: p.Sender, Dests: p.Dests, Text: p.Text}) {
				return
			}
		case *protocol.DestUnknown:
			if !c.emit(&DestinationUnknown{Handle: p.Handle}) {
				return
			}
		case *protocol.ListCount:
			if roster != nil {
				c.logger.Warn().Msg("list reply restarted before completion")
			}
			roster = &Roster{Announced: p.Count, Handles: []string{}}
		case *protocol.ListEntry:
			if roster == nil {
				c.logger.Debug().Str("handle", p.Handle).Msg("dropping list entry outside a list reply")
				continue
			}
			roster.Handles = append(roster.Handles, p.Handle)
		case *protocol.ListEnd:
			if roster == nil {
				c.logger.Debug().Msg("dropping list end outside a list reply")
				continue
			}
			if int(roster.Announced) != len(roster.Handles) {
				c.logger.Warn().
					Uint32("announced", roster.Announced).
					Int("received", len(roster.Handles)).
					Msg("list reply count mismatch")
			}
			done := !c.emit(roster)
			roster = nil
			if done {
				return
			}
		default:
			c.logger.Debug().Str("type", pkt.Type().String()).Msg("ignoring unexpected packet")
		}
	}
}

// finishRead classifies the read failure, emits the Disconnected
// event, and tears the session down.
func (c *Client) finishRead(err error) {
	if c.closed.Load() {
		// Close already ran; the consumer does not get an event for a
		// teardown it asked for.
		return
	}
	var ev Disconnected
	switch {
	case errors.Is(err, io.EOF):
		c.logger.Debug().Msg("relay closed the connection")
	default:
		ev.Err = err
		c.logger.Warn().Err(err).Msg("connection lost")
	}
	c.emit(&ev)
	c.close()
}
