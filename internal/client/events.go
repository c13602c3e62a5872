package client

import "fmt"

// EventKind classifies a user-visible event.
type EventKind int

const (
	// EventMessage is a decrypted private message.
	EventMessage EventKind = iota
	// EventBroadcast is a plaintext broadcast delivery.
	EventBroadcast
	// EventNotice is a generic server notice.
	EventNotice
	// EventJoined and EventLeft are roster deltas.
	EventJoined
	EventLeft
	// EventUnknown is an unrecognized act, displayed and ignored.
	EventUnknown
)

// Event is one user-visible occurrence on the session.
type Event struct {
	Kind       EventKind
	SenderID   int64
	SenderName string
	Text       string
}

// printEvent is the default Notify: the interactive display format.
func printEvent(ev Event) {
	switch ev.Kind {
	case EventMessage:
		fmt.Printf("\r - Receive Message: [%s]\n - From [%s]\n", ev.Text, ev.SenderName)
	case EventBroadcast:
		fmt.Printf("\r - Receive Broadcast: [%s]\n - From [%s]\n", ev.Text, ev.SenderName)
	case EventNotice:
		fmt.Printf("\rNotice: [%s]\n", ev.Text)
	case EventJoined:
		fmt.Printf("\rNotice: [%s (id=%d) is online]\n", ev.SenderName, ev.SenderID)
	case EventLeft:
		fmt.Printf("\rNotice: [%s (id=%d) went offline]\n", ev.SenderName, ev.SenderID)
	default:
		fmt.Printf("\rUnknown message: [%s]\n", ev.Text)
	}
}
