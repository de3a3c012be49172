// Package protocol defines the JSON event surface shared by the
// websocket adapter and the coordinator. Every frame carries a "type"
// discriminator.
package protocol

import "freechat/internal/domain"

// Inbound event types.
const (
	TypeSetUsername      = "set_username"
	TypeChatMessage      = "chat_message"
	TypePrivateMessage   = "private_message"
	TypeRequestDMHistory = "request_dm_history"
	TypeDMTyping         = "dm_typing"
	TypeJoinRoom         = "join_room"
	TypeRoomMessage      = "room_message"
	TypeKickUser         = "kick_user"
)

// Outbound event types.
const (
	TypeChatHistory = "chat_history"
	TypeUserList    = "user_list"
	TypeDMHistory   = "dm_history"
	TypeRoomHistory = "room_history"
	TypeRoomMembers = "room_members"
	TypeKicked      = "kicked"
	TypeError       = "error"
)

// Envelope is the minimal frame used to pick a handler.
type Envelope struct {
	Type string `json:"type"`
}

type SetUsername struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type ChatMessageIn struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type PrivateMessageIn struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Text string `json:"text"`
}

type DMHistoryRequest struct {
	Type   string `json:"type"`
	Target string `json:"target"`
}

type DMTypingIn struct {
	Type string `json:"type"`
	To   string `json:"to"`
}

type JoinRoom struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

type RoomMessageIn struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Text string `json:"text"`
}

type KickUser struct {
	Type   string `json:"type"`
	Room   string `json:"room"`
	Target string `json:"target"`
}

// ChatHistory is sent once per connection, before any live message.
type ChatHistory struct {
	Type     string           `json:"type"`
	Messages []domain.Message `json:"messages"`
}

type UserList struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// ChatMessageOut delivers one public message; the Message fields are
// flattened into the frame.
type ChatMessageOut struct {
	Type string `json:"type"`
	domain.Message
}

type PrivateMessageOut struct {
	Type string `json:"type"`
	domain.DirectMessage
}

type DMHistory struct {
	Type     string                 `json:"type"`
	Target   string                 `json:"target"`
	Messages []domain.DirectMessage `json:"messages"`
}

type DMTypingOut struct {
	Type string `json:"type"`
	From string `json:"from"`
}

type RoomHistory struct {
	Type     string           `json:"type"`
	Room     string           `json:"room"`
	Messages []domain.Message `json:"messages"`
}

type RoomMembers struct {
	Type    string   `json:"type"`
	Room    string   `json:"room"`
	Members []string `json:"members"`
}

type RoomMessageOut struct {
	Type string `json:"type"`
	Room string `json:"room"`
	domain.Message
}

type Kicked struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

type Error struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
