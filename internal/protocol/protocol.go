package protocol

// Act tags an Envelope with its message type. The set of acts is closed;
// anything else is treated as unknown and ignored by both sides.
type Act string

// Client to server.
const (
	ActLogin     Act = "#login"
	ActLogout    Act = "#logout"
	ActPost      Act = "#post"
	ActBroadcast Act = "#broadcast"
)

// Server to client.
const (
	// ActNotice is a generic server notice addressed to one client.
	ActNotice Act = "SR_String"
	// ActRoster delivers the full online roster, paired with a status
	// message distinguishing registration from a returning login.
	ActRoster Act = "SR_UserList"
	// ActForward delivers a private message; the payload is ciphertext.
	ActForward Act = "SP_forward"
	// ActBroadcastMsg delivers a broadcast; the payload is plaintext.
	ActBroadcastMsg Act = "SP_broadcast"
	// ActLoginNotice and ActLogoutNotice are roster deltas carrying a
	// single identity record.
	ActLoginNotice  Act = "SP_loginMsg"
	ActLogoutNotice Act = "SP_logoutMsg"
)

// Reserved identities.
const (
	// ServerID is the sender of all server-originated envelopes.
	ServerID int64 = 0

	// EveryoneID addresses the broadcast group. It never appears in
	// roster snapshots and is the client's default receiver.
	EveryoneID int64 = 1597534
)

// UserRecord describes one identity as carried inside envelopes: the full
// record on #login (including the credential digest), and the public part
// on roster deliveries and login/logout notices.
type UserRecord struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	PublicKey []byte `json:"public_key"`

	// CredentialDigest is only set on #login and never echoed back.
	CredentialDigest string `json:"credential_digest,omitempty"`
}

// Envelope is the single unit of exchange between client and server.
// Envelopes are immutable once constructed.
type Envelope struct {
	Act      Act          `json:"act"`
	Sender   int64        `json:"sender"`
	Receiver int64        `json:"receiver"`
	Payload  []byte       `json:"payload,omitempty"`
	Users    []UserRecord `json:"users,omitempty"`
}

// Notice builds a generic server notice for one receiver.
func Notice(receiver int64, message string) *Envelope {
	return &Envelope{
		Act:      ActNotice,
		Sender:   ServerID,
		Receiver: receiver,
		Payload:  []byte(message),
	}
}
