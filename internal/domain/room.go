package domain

const MaxRoomNameLen = 36

type RoomName string

// Room holds room meta only. Membership and the message log are
// connection-lifetime state owned by the coordinator.
type Room struct {
	Name    RoomName `json:"name"`
	Creator UserID   `json:"-"`
}
