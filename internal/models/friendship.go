package models

// FriendshipStatus is the state of a friendship row. Pending transitions to
// accepted or rejected; blocked is a separate terminal state.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipRejected FriendshipStatus = "rejected"
	FriendshipBlocked  FriendshipStatus = "blocked"
)

// Friendship is a directed relationship record as seen by the current
// identity: the counterpart profile plus whether we initiated the request.
type Friendship struct {
	ID          int64            `json:"id"`
	Friend      Profile          `json:"friend"`
	Status      FriendshipStatus `json:"status"`
	IsRequester bool             `json:"is_requester"`
}
