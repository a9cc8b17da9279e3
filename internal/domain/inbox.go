package domain

// InboxEntry is one row of a user's inbox: the conversation annotated with
// display data for the other participant and the vehicle under discussion.
type InboxEntry struct {
	Conversation *Conversation
	PeerID       string
	PeerName     string
	VehicleTitle string
	LastMessage  *Message
	UnreadCount  int64
}
