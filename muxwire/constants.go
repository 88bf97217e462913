package muxwire

const (
	ProtocolVersion = uint16(0x01)

	// TagHandshake is reserved for Tinit/Rinit/Rerr handshake exchange.
	// Application dispatch tags start at TagMinDispatch.
	TagHandshake   = uint32(1)
	TagMinDispatch = uint32(2)
)

const (
	MessageTinit    = byte(0x10)
	MessageRinit    = byte(0x11)
	MessageRerr     = byte(0x1F)
	MessageDispatch = byte(0x20)
)

const (
	// ProbeText is what a client writes to ask whether the peer speaks
	// the negotiation protocol. Its content is not checked by peers.
	ProbeText = "can tinit?"

	// SentinelText is the fixed Rerr body a capable server answers with.
	// Anything else on the handshake tag marks the peer as legacy.
	SentinelText = "tinit check"
)

const (
	HeaderKeyFrameSize    = "frame-size"
	HeaderKeyEncryptLevel = "encrypt-level"
)

const (
	EncryptLevelOff      = "off"
	EncryptLevelDesired  = "desired"
	EncryptLevelRequired = "required"
)

const (
	ERR_MUXWIRE_WRONG_FRAME               = "{ERR_MUXWIRE_WRONG_FRAME}"
	ERR_MUXWIRE_WRONG_FRAME_SIZE          = "{ERR_MUXWIRE_WRONG_FRAME_SIZE}"
	ERR_MUXWIRE_WRONG_MESSAGE             = "{ERR_MUXWIRE_WRONG_MESSAGE}"
	ERR_MUXWIRE_FRAGMENT_TOO_LARGE        = "{ERR_MUXWIRE_FRAGMENT_TOO_LARGE}"
	ERR_MUXWIRE_FRAGMENT_TOO_MANY_TAGS    = "{ERR_MUXWIRE_FRAGMENT_TOO_MANY_TAGS}"
	ERR_MUXWIRE_CHANNEL_CLOSED            = "{ERR_MUXWIRE_CHANNEL_CLOSED}"
	ERR_MUXWIRE_HANDSHAKE_CANCELLED       = "{ERR_MUXWIRE_HANDSHAKE_CANCELLED}"
	ERR_MUXWIRE_UNEXPECTED_MESSAGE        = "{ERR_MUXWIRE_UNEXPECTED_MESSAGE}"
	ERR_MUXWIRE_ENCRYPT_LEVEL_CONFLICT    = "{ERR_MUXWIRE_ENCRYPT_LEVEL_CONFLICT}"
	ERR_MUXWIRE_CONN_NO_CONNECTION        = "{ERR_MUXWIRE_CONN_NO_CONNECTION}"
	ERR_MUXWIRE_CONN_SENDING_ERROR        = "{ERR_MUXWIRE_CONN_SENDING_ERROR}"
	ERR_MUXWIRE_CONN_ALREADY_STARTED      = "{ERR_MUXWIRE_CONN_ALREADY_STARTED}"
	ERR_MUXWIRE_LISTENER_ALREADY_STARTED  = "{ERR_MUXWIRE_LISTENER_ALREADY_STARTED}"
	ERR_MUXWIRE_LISTENER_IS_NOT_STARTED   = "{ERR_MUXWIRE_LISTENER_IS_NOT_STARTED}"
	ERR_MUXWIRE_CALL_TIMEOUT              = "{ERR_MUXWIRE_CALL_TIMEOUT}"
	ERR_MUXWIRE_NEGOTIATION_NOT_SETTLED   = "{ERR_MUXWIRE_NEGOTIATION_NOT_SETTLED}"
	ERR_MUXWIRE_NEGOTIATION_ALREADY_DONE  = "{ERR_MUXWIRE_NEGOTIATION_ALREADY_DONE}"
)
