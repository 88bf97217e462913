package muxwire

import (
	"encoding/binary"
	"errors"
)

// Frame is the wire unit. A message travels in one or more frames sharing
// its tag; More is set on every frame except the last.
type Frame struct {
	// Transport header - 16 bytes
	Signature byte
	Flags     byte
	Version   byte
	Reserved3 byte
	Length    uint32
	Tag       uint32
	Reserved  uint32

	// Fragment bytes
	Payload []byte
}

const (
	FrameHeaderSize = 16
	FrameSignature  = byte(0xAA)

	frameFlagMore = byte(0x01)
)

func NewFrame(tag uint32, more bool, payload []byte) *Frame {
	var c Frame
	c.Signature = FrameSignature
	c.Version = byte(ProtocolVersion)
	c.Length = uint32(FrameHeaderSize + len(payload))
	c.Tag = tag
	c.Payload = payload
	if more {
		c.Flags |= frameFlagMore
	}
	return &c
}

func (c *Frame) More() bool {
	return c.Flags&frameFlagMore != 0
}

func (c *Frame) Marshal() (result []byte) {
	result = make([]byte, FrameHeaderSize+len(c.Payload))
	result[0] = c.Signature
	result[1] = c.Flags
	result[2] = c.Version
	result[3] = c.Reserved3
	binary.LittleEndian.PutUint32(result[4:], uint32(FrameHeaderSize+len(c.Payload)))
	binary.LittleEndian.PutUint32(result[8:], c.Tag)
	binary.LittleEndian.PutUint32(result[12:], c.Reserved)
	copy(result[FrameHeaderSize:], c.Payload)
	return
}

func ParseFrame(data []byte) (frame *Frame, err error) {
	if len(data) < FrameHeaderSize || data[0] != FrameSignature {
		err = errors.New(ERR_MUXWIRE_WRONG_FRAME)
		return
	}

	frame = &Frame{}
	frame.Signature = data[0]
	frame.Flags = data[1]
	frame.Version = data[2]
	frame.Reserved3 = data[3]
	frame.Length = binary.LittleEndian.Uint32(data[4:])
	frame.Tag = binary.LittleEndian.Uint32(data[8:])
	frame.Reserved = binary.LittleEndian.Uint32(data[12:])

	if int(frame.Length) != len(data) {
		frame = nil
		err = errors.New(ERR_MUXWIRE_WRONG_FRAME_SIZE)
		return
	}

	frame.Payload = make([]byte, len(data)-FrameHeaderSize)
	copy(frame.Payload, data[FrameHeaderSize:])
	return
}
