package muxwire

import (
	"bytes"
	"testing"
)

func TestFragmentSingleFrame(t *testing.T) {
	msg := NewRerr(TagHandshake, ProbeText)
	frames := EncodeFragments(msg, 0)
	if len(frames) != 1 {
		t.Fatal("expected one frame, got", len(frames))
	}
	if frames[0].More() {
		t.Fatal("single frame must not carry the continuation flag")
	}

	defrag := NewDefragmenter(0, 0)
	parsed, err := defrag.Feed(frames[0])
	if err != nil {
		t.Fatal(err)
	}
	if parsed == nil || parsed.Text != ProbeText {
		t.Fatal("wrong reassembled message")
	}
}

func TestFragmentRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0xC7}, 10000)
	msg := NewDispatch(9, nil, "echo", payload)
	bodyLen := len(msg.MarshalBody())

	for _, limit := range []int{1, 7, 100, 1024, bodyLen - 1, bodyLen, bodyLen + 1} {
		frames := EncodeFragments(msg, limit)

		expected := 1
		if limit < bodyLen {
			expected = (bodyLen + limit - 1) / limit
		}
		if len(frames) != expected {
			t.Fatal("limit", limit, ": expected", expected, "frames, got", len(frames))
		}

		defrag := NewDefragmenter(0, 0)
		var parsed *Message
		var err error
		for i, frame := range frames {
			if frame.Tag != 9 {
				t.Fatal("wrong frame tag")
			}
			if frame.More() != (i < len(frames)-1) {
				t.Fatal("wrong continuation flag on frame", i)
			}
			parsed, err = defrag.Feed(frame)
			if err != nil {
				t.Fatal(err)
			}
			if i < len(frames)-1 && parsed != nil {
				t.Fatal("incomplete message reported complete at frame", i)
			}
		}
		if parsed == nil {
			t.Fatal("limit", limit, ": message never completed")
		}
		if !bytes.Equal(parsed.Payload, payload) {
			t.Fatal("limit", limit, ": payload mismatch")
		}
		if defrag.PendingTags() != 0 {
			t.Fatal("buffer left behind for completed tag")
		}
	}
}

// A 150-byte payload against a 100-byte peer receive limit goes out as
// exactly two frames; the first decodes as incomplete.
func TestFragmentTwoFrameScenario(t *testing.T) {
	payload := bytes.Repeat([]byte{0x01}, 150)
	msg := NewDispatch(2, nil, "", payload)

	frames := EncodeFragments(msg, 100)
	if len(frames) != 2 {
		t.Fatal("expected exactly two frames, got", len(frames))
	}
	if !frames[0].More() || frames[1].More() {
		t.Fatal("wrong continuation flags")
	}

	defrag := NewDefragmenter(0, 0)
	parsed, err := defrag.Feed(frames[0])
	if err != nil || parsed != nil {
		t.Fatal("first frame must decode as incomplete")
	}
	parsed, err = defrag.Feed(frames[1])
	if err != nil {
		t.Fatal(err)
	}
	if parsed == nil || !bytes.Equal(parsed.Payload, payload) {
		t.Fatal("wrong reassembled payload")
	}
}

func TestFragmentInterleavedTags(t *testing.T) {
	msgA := NewDispatch(10, nil, "a", bytes.Repeat([]byte{0xAA}, 300))
	msgB := NewDispatch(11, nil, "b", bytes.Repeat([]byte{0xBB}, 300))
	framesA := EncodeFragments(msgA, 64)
	framesB := EncodeFragments(msgB, 64)

	defrag := NewDefragmenter(0, 0)
	var gotA, gotB *Message
	for i := 0; i < len(framesA) || i < len(framesB); i++ {
		if i < len(framesA) {
			msg, err := defrag.Feed(framesA[i])
			if err != nil {
				t.Fatal(err)
			}
			if msg != nil {
				gotA = msg
			}
		}
		if i < len(framesB) {
			msg, err := defrag.Feed(framesB[i])
			if err != nil {
				t.Fatal(err)
			}
			if msg != nil {
				gotB = msg
			}
		}
	}

	if gotA == nil || gotA.Destination != "a" {
		t.Fatal("tag 10 message lost")
	}
	if gotB == nil || gotB.Destination != "b" {
		t.Fatal("tag 11 message lost")
	}
}

func TestFragmentMalformedTerminalFrame(t *testing.T) {
	defrag := NewDefragmenter(0, 0)

	// keep an unrelated tag buffering
	pendingFrames := EncodeFragments(NewDispatch(20, nil, "pending", bytes.Repeat([]byte{0x01}, 200)), 64)
	_, err := defrag.Feed(pendingFrames[0])
	if err != nil {
		t.Fatal(err)
	}

	// garbage terminal frame on another tag
	_, err = defrag.Feed(NewFrame(21, false, []byte{0x77, 0x78}))
	if err == nil {
		t.Fatal("expected codec error")
	}

	// tag 20 continues unaffected
	var parsed *Message
	for _, frame := range pendingFrames[1:] {
		parsed, err = defrag.Feed(frame)
		if err != nil {
			t.Fatal(err)
		}
	}
	if parsed == nil || parsed.Destination != "pending" {
		t.Fatal("unrelated tag corrupted by codec failure")
	}
}

func TestFragmentMessageSizeCap(t *testing.T) {
	defrag := NewDefragmenter(100, 0)
	frames := EncodeFragments(NewDispatch(5, nil, "", bytes.Repeat([]byte{0x02}, 500)), 64)

	var err error
	for _, frame := range frames {
		_, err = defrag.Feed(frame)
		if err != nil {
			break
		}
	}
	if err == nil {
		t.Fatal("expected size cap error")
	}
	if err.Error() != ERR_MUXWIRE_FRAGMENT_TOO_LARGE {
		t.Fatal("wrong error:", err)
	}
	if defrag.PendingTags() != 0 {
		t.Fatal("offending tag buffer must be dropped")
	}
}

func TestFragmentTagCountCap(t *testing.T) {
	defrag := NewDefragmenter(0, 2)

	for tag := uint32(30); tag < 32; tag++ {
		frames := EncodeFragments(NewDispatch(tag, nil, "", bytes.Repeat([]byte{0x03}, 100)), 32)
		if _, err := defrag.Feed(frames[0]); err != nil {
			t.Fatal(err)
		}
	}

	frames := EncodeFragments(NewDispatch(40, nil, "", bytes.Repeat([]byte{0x04}, 100)), 32)
	_, err := defrag.Feed(frames[0])
	if err == nil || err.Error() != ERR_MUXWIRE_FRAGMENT_TOO_MANY_TAGS {
		t.Fatal("expected tag cap error, got", err)
	}

	// a complete single-frame message needs no accumulator and still decodes
	single := EncodeFragments(NewDispatch(41, nil, "ok", nil), 0)
	msg, err := defrag.Feed(single[0])
	if err != nil {
		t.Fatal(err)
	}
	if msg == nil || msg.Destination != "ok" {
		t.Fatal("terminal frame must decode while the tag cap is reached")
	}
}

func TestFrameRoundTrip(t *testing.T) {
	frame := NewFrame(77, true, []byte("abc"))
	parsed, err := ParseFrame(frame.Marshal())
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Tag != 77 || !parsed.More() || string(parsed.Payload) != "abc" {
		t.Fatal("frame fields lost in round trip")
	}

	if _, err = ParseFrame([]byte{0x00, 0x01, 0x02}); err == nil {
		t.Fatal("expected error for short frame")
	}
	bs := frame.Marshal()
	bs[0] = 0x00
	if _, err = ParseFrame(bs); err == nil {
		t.Fatal("expected error for wrong signature")
	}
}
