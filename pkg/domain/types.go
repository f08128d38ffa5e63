package domain

import "time"

// Membership is the local participant's role in a room, recomputed from the
// latest room snapshot rather than tracked incrementally.
type Membership string

const (
	// MembershipWaiting: the local user hosts the room and no partner has joined yet.
	MembershipWaiting Membership = "waiting"
	// MembershipHost: the local user hosts the room and a partner is present.
	MembershipHost Membership = "host"
	// MembershipPartner: the local user joined someone else's room.
	MembershipPartner Membership = "partner"
)

// Room binds one host, at most one partner, and one chunked document.
type Room struct {
	ID          string    `json:"id"`
	HostID      string    `json:"hostId"`
	HostName    string    `json:"hostName"`
	PartnerID   string    `json:"partnerId,omitempty"`
	PartnerName string    `json:"partnerName,omitempty"`
	Title       string    `json:"title"`
	PageCount   int       `json:"pageCount"`
	ChunkCount  int       `json:"chunkCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasPartner reports whether a partner has joined.
func (r Room) HasPartner() bool {
	return r.PartnerID != ""
}

// Other returns the participant opposite to userID, if one is known.
func (r Room) Other(userID string) (Counterparty, bool) {
	switch userID {
	case r.HostID:
		if r.PartnerID == "" {
			return Counterparty{}, false
		}
		return Counterparty{ID: r.PartnerID, Name: r.PartnerName}, true
	case r.PartnerID:
		return Counterparty{ID: r.HostID, Name: r.HostName}, true
	default:
		return Counterparty{}, false
	}
}

// Counterparty identifies the other participant relative to the viewer.
type Counterparty struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Progress is one user's reading position inside one room.
type Progress struct {
	RoomID      string    `json:"roomId"`
	UserID      string    `json:"userId"`
	CurrentPage int       `json:"currentPage"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Message is one chat entry. Ordering is by SentAt ascending; SentAt is
// assigned by the store, not the sender.
type Message struct {
	ID     string    `json:"id"`
	RoomID string    `json:"roomId"`
	UserID string    `json:"userId"`
	Name   string    `json:"name"`
	Color  string    `json:"color"`
	Text   string    `json:"text"`
	Page   int       `json:"page"`
	SentAt time.Time `json:"sentAt"`
}

// User is a reader profile. Profiles are created on first contact and only
// ever mutated by their owner.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
}
