package muxwire

import (
	"errors"
)

// EncodeFragments serializes msg and slices the body into frames whose
// payloads are at most limit bytes. limit <= 0 means no limit: the whole
// body goes out as a single frame with the continuation flag clear.
func EncodeFragments(msg *Message, limit int) []*Frame {
	body := msg.MarshalBody()

	if limit <= 0 || len(body) <= limit {
		return []*Frame{NewFrame(msg.Tag, false, body)}
	}

	count := (len(body) + limit - 1) / limit
	frames := make([]*Frame, 0, count)
	for offset := 0; offset < len(body); offset += limit {
		end := offset + limit
		if end > len(body) {
			end = len(body)
		}
		frames = append(frames, NewFrame(msg.Tag, end < len(body), body[offset:end]))
	}
	return frames
}

// Defragmenter reassembles frames into messages, one accumulator per tag.
// It is owned by a single connection receive loop and is not safe for
// concurrent use; the serial execution model makes locking unnecessary.
type Defragmenter struct {
	buffers map[uint32][]byte

	maxMessageSize int
	maxTags        int
}

const (
	DefaultMaxMessageSize = 16 * 1024 * 1024
	DefaultMaxTags        = 1024
)

func NewDefragmenter(maxMessageSize int, maxTags int) *Defragmenter {
	var c Defragmenter
	c.buffers = make(map[uint32][]byte)
	c.maxMessageSize = maxMessageSize
	c.maxTags = maxTags
	if c.maxMessageSize < 1 {
		c.maxMessageSize = DefaultMaxMessageSize
	}
	if c.maxTags < 1 {
		c.maxTags = DefaultMaxTags
	}
	return &c
}

// Feed accepts the next frame for the defragmenter's connection.
// A continuation frame returns (nil, nil): the message is incomplete.
// A terminal frame returns the reassembled message. A failure is scoped
// to the frame's tag; accumulators of other tags are untouched.
func (c *Defragmenter) Feed(frame *Frame) (msg *Message, err error) {
	buffer, buffering := c.buffers[frame.Tag]

	if len(buffer)+len(frame.Payload) > c.maxMessageSize {
		delete(c.buffers, frame.Tag)
		err = errors.New(ERR_MUXWIRE_FRAGMENT_TOO_LARGE)
		return
	}

	if frame.More() {
		// the tag cap bounds accumulators; a terminal frame for a new tag
		// needs none and always decodes
		if !buffering && len(c.buffers) >= c.maxTags {
			err = errors.New(ERR_MUXWIRE_FRAGMENT_TOO_MANY_TAGS)
			return
		}
		c.buffers[frame.Tag] = append(buffer, frame.Payload...)
		return nil, nil
	}

	body := frame.Payload
	if buffering {
		body = append(buffer, frame.Payload...)
		delete(c.buffers, frame.Tag)
	}

	msg, err = ParseMessage(frame.Tag, body)
	return
}

// PendingTags returns the number of tags with partially received messages.
func (c *Defragmenter) PendingTags() int {
	return len(c.buffers)
}
