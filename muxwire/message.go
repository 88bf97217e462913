package muxwire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Message is one protocol message. Type selects the variant; the other
// fields are meaningful per variant:
//
//	Tinit    - Version, Headers
//	Rinit    - Version, Headers
//	Rerr     - Text
//	Dispatch - Contexts, Destination, Payload
//
// Tag is carried by the frames a message travels in, not by the body.
type Message struct {
	Type byte
	Tag  uint32

	Version uint16
	Headers Headers

	Text string

	Contexts    Headers
	Destination string
	Payload     []byte
}

func NewTinit(tag uint32, version uint16, headers Headers) *Message {
	var c Message
	c.Type = MessageTinit
	c.Tag = tag
	c.Version = version
	c.Headers = headers
	return &c
}

func NewRinit(tag uint32, version uint16, headers Headers) *Message {
	var c Message
	c.Type = MessageRinit
	c.Tag = tag
	c.Version = version
	c.Headers = headers
	return &c
}

func NewRerr(tag uint32, text string) *Message {
	var c Message
	c.Type = MessageRerr
	c.Tag = tag
	c.Text = text
	return &c
}

func NewDispatch(tag uint32, contexts Headers, destination string, payload []byte) *Message {
	var c Message
	c.Type = MessageDispatch
	c.Tag = tag
	c.Contexts = contexts
	c.Destination = destination
	c.Payload = payload
	return &c
}

func (c *Message) TypeName() string {
	switch c.Type {
	case MessageTinit:
		return "Tinit"
	case MessageRinit:
		return "Rinit"
	case MessageRerr:
		return "Rerr"
	case MessageDispatch:
		return "Dispatch"
	}
	return fmt.Sprintf("Unknown(0x%02X)", c.Type)
}

// MarshalBody serializes the message without the frame header. The frames
// carrying the body add the tag and continuation flag.
func (c *Message) MarshalBody() []byte {
	switch c.Type {
	case MessageTinit, MessageRinit:
		headersBS := c.Headers.marshal()
		result := make([]byte, 3+len(headersBS))
		result[0] = c.Type
		binary.LittleEndian.PutUint16(result[1:], c.Version)
		copy(result[3:], headersBS)
		return result
	case MessageRerr:
		result := make([]byte, 1+len(c.Text))
		result[0] = c.Type
		copy(result[1:], c.Text)
		return result
	case MessageDispatch:
		contextsBS := c.Contexts.marshal()
		destBS := []byte(c.Destination)
		result := make([]byte, 1+len(contextsBS)+2+len(destBS)+len(c.Payload))
		result[0] = c.Type
		offset := 1
		copy(result[offset:], contextsBS)
		offset += len(contextsBS)
		binary.LittleEndian.PutUint16(result[offset:], uint16(len(destBS)))
		offset += 2
		copy(result[offset:], destBS)
		offset += len(destBS)
		copy(result[offset:], c.Payload)
		return result
	}
	return []byte{c.Type}
}

// ParseMessage deserializes a complete message body reassembled for tag.
func ParseMessage(tag uint32, body []byte) (msg *Message, err error) {
	if len(body) < 1 {
		err = errors.New(ERR_MUXWIRE_WRONG_MESSAGE)
		return
	}

	msg = &Message{}
	msg.Type = body[0]
	msg.Tag = tag

	switch msg.Type {
	case MessageTinit, MessageRinit:
		if len(body) < 3 {
			msg = nil
			err = errors.New(ERR_MUXWIRE_WRONG_MESSAGE)
			return
		}
		msg.Version = binary.LittleEndian.Uint16(body[1:])
		msg.Headers, _, err = parseHeaders(body[3:])
		if err != nil {
			msg = nil
			return
		}
	case MessageRerr:
		msg.Text = string(body[1:])
	case MessageDispatch:
		var consumed int
		msg.Contexts, consumed, err = parseHeaders(body[1:])
		if err != nil {
			msg = nil
			return
		}
		offset := 1 + consumed
		if len(body) < offset+2 {
			msg = nil
			err = errors.New(ERR_MUXWIRE_WRONG_MESSAGE)
			return
		}
		destLen := int(binary.LittleEndian.Uint16(body[offset:]))
		offset += 2
		if len(body) < offset+destLen {
			msg = nil
			err = errors.New(ERR_MUXWIRE_WRONG_MESSAGE)
			return
		}
		msg.Destination = string(body[offset : offset+destLen])
		offset += destLen
		msg.Payload = make([]byte, len(body)-offset)
		copy(msg.Payload, body[offset:])
	default:
		msg = nil
		err = errors.New(ERR_MUXWIRE_WRONG_MESSAGE)
		return
	}
	return
}
