package muxwire

import (
	"testing"
)

func TestLocalHeaders(t *testing.T) {
	var conf PolicyConfig
	conf.Init()
	conf.MaxRecvFrameSize = 4096

	headers := LocalHeaders(conf)
	limit, ok := headers.FirstUint32(HeaderKeyFrameSize)
	if !ok || limit != 4096 {
		t.Fatal("wrong advertised frame size:", limit)
	}
	level, ok := headers.FirstString(HeaderKeyEncryptLevel)
	if !ok || level != EncryptLevelOff {
		t.Fatal("wrong advertised encrypt level:", level)
	}
}

// The limit applied to writes is the one the receiving peer advertised,
// not the local receive limit.
func TestApplyPeerHeadersSendLimit(t *testing.T) {
	var conf PolicyConfig
	conf.Init()
	conf.MaxRecvFrameSize = 2 * 1024 * 1024

	peerHeaders := make(Headers, 0).AddUint32(HeaderKeyFrameSize, 100)
	negotiated, err := ApplyPeerHeaders(conf, peerHeaders)
	if err != nil {
		t.Fatal(err)
	}
	if negotiated.SendFrameLimit != 100 {
		t.Fatal("send limit must be the peer's receive limit, got", negotiated.SendFrameLimit)
	}
}

func TestApplyPeerHeadersDefaults(t *testing.T) {
	var conf PolicyConfig
	conf.Init()

	// negotiated peer without a recognized frame-size key
	negotiated, err := ApplyPeerHeaders(conf, make(Headers, 0).Add("something", nil))
	if err != nil {
		t.Fatal(err)
	}
	if negotiated.SendFrameLimit != 0 {
		t.Fatal("missing header must mean unlimited")
	}
	if negotiated.EncryptLevel != EncryptLevelOff {
		t.Fatal("missing level must mean off")
	}

	// legacy peer
	negotiated, err = ApplyPeerHeaders(conf, nil)
	if err != nil {
		t.Fatal(err)
	}
	if negotiated.SendFrameLimit != 0 || negotiated.EncryptLevel != EncryptLevelOff {
		t.Fatal("legacy peer must fall back to defaults")
	}
	if negotiated.PeerHeaders != nil {
		t.Fatal("legacy peer headers must stay nil")
	}
}

func TestApplyPeerHeadersEncryptLevels(t *testing.T) {
	cases := []struct {
		local    string
		peer     string
		expected string
		fails    bool
	}{
		{EncryptLevelOff, EncryptLevelOff, EncryptLevelOff, false},
		{EncryptLevelOff, EncryptLevelDesired, EncryptLevelOff, false},
		{EncryptLevelDesired, EncryptLevelOff, EncryptLevelOff, false},
		{EncryptLevelDesired, EncryptLevelDesired, EncryptLevelDesired, false},
		{EncryptLevelDesired, EncryptLevelRequired, EncryptLevelRequired, false},
		{EncryptLevelRequired, EncryptLevelRequired, EncryptLevelRequired, false},
		{EncryptLevelRequired, EncryptLevelOff, "", true},
		{EncryptLevelOff, EncryptLevelRequired, "", true},
	}

	for _, tc := range cases {
		conf := PolicyConfig{EncryptLevel: tc.local}
		peerHeaders := make(Headers, 0).AddString(HeaderKeyEncryptLevel, tc.peer)
		negotiated, err := ApplyPeerHeaders(conf, peerHeaders)
		if tc.fails {
			if err == nil {
				t.Fatal(tc.local, "x", tc.peer, ": expected conflict")
			}
			continue
		}
		if err != nil {
			t.Fatal(tc.local, "x", tc.peer, ":", err)
		}
		if negotiated.EncryptLevel != tc.expected {
			t.Fatal(tc.local, "x", tc.peer, ": got", negotiated.EncryptLevel)
		}
	}
}

func TestApplyPeerHeadersRequiredVsLegacy(t *testing.T) {
	conf := PolicyConfig{EncryptLevel: EncryptLevelRequired}
	_, err := ApplyPeerHeaders(conf, nil)
	if err == nil {
		t.Fatal("required encryption cannot negotiate with a legacy peer")
	}
}
