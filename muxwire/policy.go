package muxwire

import (
	"errors"
)

// PolicyConfig is the local side of negotiation: what this peer is willing
// to receive per frame and how strongly it wants opportunistic encryption.
type PolicyConfig struct {
	// MaxRecvFrameSize is the largest fragment payload this side accepts,
	// advertised to the peer. 0 means unlimited.
	MaxRecvFrameSize uint32

	// EncryptLevel is one of EncryptLevelOff/Desired/Required.
	EncryptLevel string

	// HandshakeCancel lets context cancellation abort a pending handshake.
	HandshakeCancel bool
}

func (c *PolicyConfig) Init() {
	c.MaxRecvFrameSize = 2 * 1024 * 1024
	c.EncryptLevel = EncryptLevelOff
	c.HandshakeCancel = true
}

// Negotiated is the immutable result of interpreting the peer's headers.
type Negotiated struct {
	// SendFrameLimit bounds fragment payloads written to the peer. It is
	// the limit the peer advertised for its own receives; each side
	// governs what is sent to it, not what it sends. 0 means unlimited.
	SendFrameLimit int

	// EncryptLevel is the effective level both sides agreed on.
	EncryptLevel string

	// PeerHeaders are the headers received from the peer, nil for a
	// legacy peer.
	PeerHeaders Headers
}

// LocalHeaders builds the headers this side advertises in Tinit/Rinit.
func LocalHeaders(conf PolicyConfig) Headers {
	headers := make(Headers, 0, 2)
	headers = headers.AddUint32(HeaderKeyFrameSize, conf.MaxRecvFrameSize)
	level := conf.EncryptLevel
	if len(level) == 0 {
		level = EncryptLevelOff
	}
	headers = headers.AddString(HeaderKeyEncryptLevel, level)
	return headers
}

func encryptLevelRank(level string) int {
	switch level {
	case EncryptLevelDesired:
		return 1
	case EncryptLevelRequired:
		return 2
	}
	return 0
}

// ApplyPeerHeaders interprets the headers received from the peer.
// peerHeaders == nil means the peer is legacy and everything falls back to
// defaults: unlimited frames, no encryption.
func ApplyPeerHeaders(conf PolicyConfig, peerHeaders Headers) (result Negotiated, err error) {
	result.PeerHeaders = peerHeaders
	result.EncryptLevel = EncryptLevelOff

	peerLevel := EncryptLevelOff
	if peerHeaders != nil {
		if limit, ok := peerHeaders.FirstUint32(HeaderKeyFrameSize); ok {
			result.SendFrameLimit = int(limit)
		}
		if level, ok := peerHeaders.FirstString(HeaderKeyEncryptLevel); ok {
			peerLevel = level
		}
	}

	localLevel := conf.EncryptLevel
	if len(localLevel) == 0 {
		localLevel = EncryptLevelOff
	}

	// required on one side and off on the other cannot be satisfied
	if (localLevel == EncryptLevelRequired && peerLevel == EncryptLevelOff) ||
		(peerLevel == EncryptLevelRequired && localLevel == EncryptLevelOff) {
		err = errors.New(ERR_MUXWIRE_ENCRYPT_LEVEL_CONFLICT)
		return
	}

	// one side declining means no encryption; otherwise the stronger
	// preference wins
	if encryptLevelRank(localLevel) == 0 || encryptLevelRank(peerLevel) == 0 {
		result.EncryptLevel = EncryptLevelOff
	} else if encryptLevelRank(peerLevel) > encryptLevelRank(localLevel) {
		result.EncryptLevel = peerLevel
	} else {
		result.EncryptLevel = localLevel
	}
	return
}
