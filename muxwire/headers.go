package muxwire

import (
	"encoding/binary"
	"errors"
)

// HeaderEntry is one (key, value) pair exchanged during handshake.
type HeaderEntry struct {
	Key   []byte
	Value []byte
}

// Headers is an ordered key/value list. Keys may repeat; lookups take the
// first match. Built once per handshake and never modified afterwards.
type Headers []HeaderEntry

func (c Headers) Add(key string, value []byte) Headers {
	return append(c, HeaderEntry{Key: []byte(key), Value: value})
}

func (c Headers) AddUint32(key string, value uint32) Headers {
	bs := make([]byte, 4)
	binary.LittleEndian.PutUint32(bs, value)
	return c.Add(key, bs)
}

func (c Headers) AddString(key string, value string) Headers {
	return c.Add(key, []byte(value))
}

// First returns the value of the first entry with the given key.
func (c Headers) First(key string) (value []byte, ok bool) {
	for _, entry := range c {
		if string(entry.Key) == key {
			return entry.Value, true
		}
	}
	return nil, false
}

func (c Headers) FirstUint32(key string) (value uint32, ok bool) {
	bs, found := c.First(key)
	if !found || len(bs) != 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(bs), true
}

func (c Headers) FirstString(key string) (value string, ok bool) {
	bs, found := c.First(key)
	if !found {
		return "", false
	}
	return string(bs), true
}

func (c Headers) marshal() []byte {
	size := 2
	for _, entry := range c {
		size += 2 + len(entry.Key) + 4 + len(entry.Value)
	}
	result := make([]byte, size)
	binary.LittleEndian.PutUint16(result, uint16(len(c)))
	offset := 2
	for _, entry := range c {
		binary.LittleEndian.PutUint16(result[offset:], uint16(len(entry.Key)))
		offset += 2
		copy(result[offset:], entry.Key)
		offset += len(entry.Key)
		binary.LittleEndian.PutUint32(result[offset:], uint32(len(entry.Value)))
		offset += 4
		copy(result[offset:], entry.Value)
		offset += len(entry.Value)
	}
	return result
}

// parseHeaders reads a headers block from the beginning of data and returns
// the number of bytes consumed. The result is never nil on success, so an
// empty block still reads as "peer sent headers".
func parseHeaders(data []byte) (headers Headers, consumed int, err error) {
	if len(data) < 2 {
		err = errors.New(ERR_MUXWIRE_WRONG_MESSAGE)
		return
	}
	count := int(binary.LittleEndian.Uint16(data))
	headers = make(Headers, 0, count)
	consumed = 2
	for i := 0; i < count; i++ {
		if len(data) < consumed+2 {
			err = errors.New(ERR_MUXWIRE_WRONG_MESSAGE)
			return
		}
		keyLen := int(binary.LittleEndian.Uint16(data[consumed:]))
		consumed += 2
		if len(data) < consumed+keyLen+4 {
			err = errors.New(ERR_MUXWIRE_WRONG_MESSAGE)
			return
		}
		key := make([]byte, keyLen)
		copy(key, data[consumed:])
		consumed += keyLen
		valueLen := int(binary.LittleEndian.Uint32(data[consumed:]))
		consumed += 4
		if len(data) < consumed+valueLen {
			err = errors.New(ERR_MUXWIRE_WRONG_MESSAGE)
			return
		}
		value := make([]byte, valueLen)
		copy(value, data[consumed:])
		consumed += valueLen
		headers = append(headers, HeaderEntry{Key: key, Value: value})
	}
	return
}
