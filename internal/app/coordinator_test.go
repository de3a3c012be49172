package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"freechat/internal/core"
	"freechat/internal/protocol"
	"freechat/internal/storage"
)

type fakeConn struct {
	frames []core.Frame
	fail   bool
	closed bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	if f.fail {
		return errors.New("send buffer full")
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() { f.closed = true }

// framesOf decodes every frame of one event type, in delivery order.
func framesOf[T any](t *testing.T, conn *fakeConn, eventType string) []T {
	t.Helper()
	var out []T
	for _, raw := range conn.frames {
		var env protocol.Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		if env.Type != eventType {
			continue
		}
		var frame T
		require.NoError(t, json.Unmarshal(raw, &frame))
		out = append(out, frame)
	}
	return out
}

func lastFrame[T any](t *testing.T, conn *fakeConn, eventType string) T {
	t.Helper()
	frames := framesOf[T](t, conn, eventType)
	require.NotEmpty(t, frames, "no %s frame delivered", eventType)
	return frames[len(frames)-1]
}

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	store := storage.NewSnapshotStore(afero.NewMemMapFs(), "data/chat.json")
	c, err := NewCoordinator(store, 100)
	require.NoError(t, err)
	return c
}

func connect(c *Coordinator, sid string, name string) *fakeConn {
	conn := &fakeConn{}
	c.Connect(core.SessionID(sid), conn)
	if name != "" {
		c.SetName(core.SessionID(sid), name)
	}
	return conn
}

func TestConnect_DeliversHistoryFirst(t *testing.T) {
	c := newTestCoordinator(t)

	ann := connect(c, "s1", "Ann")
	c.PostPublic("s1", "hello")

	bob := connect(c, "s2", "")

	var env protocol.Envelope
	require.NoError(t, json.Unmarshal(bob.frames[0], &env))
	require.Equal(t, protocol.TypeChatHistory, env.Type)

	history := lastFrame[protocol.ChatHistory](t, bob, protocol.TypeChatHistory)
	require.Len(t, history.Messages, 1)
	require.Equal(t, "Ann", history.Messages[0].Sender)

	// sender received its own broadcast
	live := framesOf[protocol.ChatMessageOut](t, ann, protocol.TypeChatMessage)
	require.Len(t, live, 1)
	require.Equal(t, "hello", live[0].Text)
}

func TestPublicLog_EvictsOldestBeyondCapacity(t *testing.T) {
	c := newTestCoordinator(t)
	connect(c, "s1", "Ann")

	for i := 1; i <= 101; i++ {
		c.PostPublic("s1", fmt.Sprintf("msg-%d", i))
	}

	late := connect(c, "s2", "Bob")
	history := lastFrame[protocol.ChatHistory](t, late, protocol.TypeChatHistory)
	require.Len(t, history.Messages, 100)
	require.Equal(t, "msg-2", history.Messages[0].Text)
	require.Equal(t, "msg-101", history.Messages[99].Text)
}

func TestSetName_BroadcastsUserListInConnectOrder(t *testing.T) {
	c := newTestCoordinator(t)
	ann := connect(c, "s1", "Ann")
	connect(c, "s2", "")
	connect(c, "s3", "Bob")

	list := lastFrame[protocol.UserList](t, ann, protocol.TypeUserList)
	require.Equal(t, []string{"Ann", "Bob"}, list.Users)

	// duplicate names coexist; a late registration appends
	c.SetName("s2", "Ann")
	list = lastFrame[protocol.UserList](t, ann, protocol.TypeUserList)
	require.Equal(t, []string{"Ann", "Bob", "Ann"}, list.Users)

	// a rename keeps the original position
	c.SetName("s1", "Anna")
	list = lastFrame[protocol.UserList](t, ann, protocol.TypeUserList)
	require.Equal(t, []string{"Anna", "Bob", "Ann"}, list.Users)
}

func TestPostPublic_AnonymousFallback(t *testing.T) {
	c := newTestCoordinator(t)
	conn := connect(c, "s1", "")

	c.PostPublic("s1", "who am I")

	msg := lastFrame[protocol.ChatMessageOut](t, conn, protocol.TypeChatMessage)
	require.Equal(t, "Anonymous", msg.Sender)
}

func TestSendDirect_DeliversToBothAndSharesHistory(t *testing.T) {
	c := newTestCoordinator(t)
	ann := connect(c, "s1", "Ann")
	bob := connect(c, "s2", "Bob")

	require.NoError(t, c.SendDirect("s1", "Bob", "hi"))

	for _, conn := range []*fakeConn{ann, bob} {
		dm := lastFrame[protocol.PrivateMessageOut](t, conn, protocol.TypePrivateMessage)
		require.Equal(t, "Ann", dm.From)
		require.Equal(t, "Bob", dm.To)
		require.Equal(t, "hi", dm.Text)
	}

	// the reply lands in the same pair log, requested from either side
	require.NoError(t, c.SendDirect("s2", "Ann", "hey"))

	c.DirectHistory("s1", "Bob")
	annHist := lastFrame[protocol.DMHistory](t, ann, protocol.TypeDMHistory)
	require.Len(t, annHist.Messages, 2)

	c.DirectHistory("s2", "Ann")
	bobHist := lastFrame[protocol.DMHistory](t, bob, protocol.TypeDMHistory)
	require.Len(t, bobHist.Messages, 2)
	require.Equal(t, annHist.Messages, bobHist.Messages)
}

func TestSendDirect_OfflineTargetLogsNothing(t *testing.T) {
	c := newTestCoordinator(t)
	carl := connect(c, "s1", "Carl")

	err := c.SendDirect("s1", "Dave", "you there?")
	require.ErrorIs(t, err, ErrRecipientOffline)

	require.Empty(t, framesOf[protocol.PrivateMessageOut](t, carl, protocol.TypePrivateMessage))

	c.DirectHistory("s1", "Dave")
	hist := lastFrame[protocol.DMHistory](t, carl, protocol.TypeDMHistory)
	require.Empty(t, hist.Messages)
}

func TestTyping_RelayedNotPersisted(t *testing.T) {
	c := newTestCoordinator(t)
	ann := connect(c, "s1", "Ann")
	bob := connect(c, "s2", "Bob")

	c.Typing("s1", "Bob")

	typing := lastFrame[protocol.DMTypingOut](t, bob, protocol.TypeDMTyping)
	require.Equal(t, "Ann", typing.From)
	require.Empty(t, framesOf[protocol.DMTypingOut](t, ann, protocol.TypeDMTyping))

	// no pair log was created by the signal
	c.DirectHistory("s1", "Bob")
	hist := lastFrame[protocol.DMHistory](t, ann, protocol.TypeDMHistory)
	require.Empty(t, hist.Messages)

	// offline target is a silent no-op
	c.Typing("s1", "Ghost")
}

func TestJoinRoom_HistoryToJoinerMembersToAll(t *testing.T) {
	c := newTestCoordinator(t)
	ann := connect(c, "s1", "Ann")
	bob := connect(c, "s2", "Bob")

	c.JoinRoom("s1", "lobby")
	hist := lastFrame[protocol.RoomHistory](t, ann, protocol.TypeRoomHistory)
	require.Equal(t, "lobby", hist.Room)
	require.Empty(t, hist.Messages)

	require.NoError(t, c.PostRoom("s1", "lobby", "first"))

	c.JoinRoom("s2", "lobby")
	bobHist := lastFrame[protocol.RoomHistory](t, bob, protocol.TypeRoomHistory)
	require.Len(t, bobHist.Messages, 1)
	require.Equal(t, "first", bobHist.Messages[0].Text)

	members := lastFrame[protocol.RoomMembers](t, ann, protocol.TypeRoomMembers)
	require.Equal(t, []string{"Ann", "Bob"}, members.Members)
}

func TestPostRoom_RequiresMembership(t *testing.T) {
	c := newTestCoordinator(t)
	connect(c, "s1", "Ann")
	outsider := connect(c, "s2", "Bob")

	c.JoinRoom("s1", "lobby")

	require.ErrorIs(t, c.PostRoom("s2", "lobby", "let me in"), ErrNotMember)
	require.ErrorIs(t, c.PostRoom("s2", "nowhere", "hello?"), ErrRoomNotFound)
	require.Empty(t, framesOf[protocol.RoomMessageOut](t, outsider, protocol.TypeRoomMessage))
}

func TestKick_CreatorRemovesTarget(t *testing.T) {
	c := newTestCoordinator(t)
	ann := connect(c, "s1", "Ann")
	bob := connect(c, "s2", "Bob")

	c.JoinRoom("s1", "lobby")
	c.JoinRoom("s2", "lobby")

	require.NoError(t, c.Kick("s1", "lobby", "Bob"))

	kicked := framesOf[protocol.Kicked](t, bob, protocol.TypeKicked)
	require.Len(t, kicked, 1)
	require.Equal(t, "lobby", kicked[0].Room)

	members := lastFrame[protocol.RoomMembers](t, ann, protocol.TypeRoomMembers)
	require.Equal(t, []string{"Ann"}, members.Members)

	// the kicked member no longer receives room traffic
	require.NoError(t, c.PostRoom("s1", "lobby", "alone now"))
	require.Empty(t, framesOf[protocol.RoomMessageOut](t, bob, protocol.TypeRoomMessage))
}

func TestKick_OnlyCreatorMay(t *testing.T) {
	c := newTestCoordinator(t)
	connect(c, "s1", "Ann")
	connect(c, "s2", "Bob")

	c.JoinRoom("s1", "lobby")
	c.JoinRoom("s2", "lobby")

	require.ErrorIs(t, c.Kick("s2", "lobby", "Ann"), ErrNotRoomCreator)
	require.ErrorIs(t, c.Kick("s1", "lobby", "Ghost"), ErrTargetNotMember)
	require.ErrorIs(t, c.Kick("s1", "nowhere", "Bob"), ErrRoomNotFound)
}

func TestDisconnect_CleansPresenceAndRooms(t *testing.T) {
	c := newTestCoordinator(t)
	ann := connect(c, "s1", "Ann")
	connect(c, "s2", "Bob")

	c.JoinRoom("s1", "lobby")
	c.JoinRoom("s2", "lobby")
	c.JoinRoom("s2", "random")

	c.Disconnect("s2")

	list := lastFrame[protocol.UserList](t, ann, protocol.TypeUserList)
	require.Equal(t, []string{"Ann"}, list.Users)

	members := lastFrame[protocol.RoomMembers](t, ann, protocol.TypeRoomMembers)
	require.Equal(t, []string{"Ann"}, members.Members)

	// duplicate disconnect is a no-op
	c.Disconnect("s2")
}

func TestRestart_RestoresDurableLogsOnly(t *testing.T) {
	req := require.New(t)
	fs := afero.NewMemMapFs()
	store := storage.NewSnapshotStore(fs, "data/chat.json")

	c, err := NewCoordinator(store, 100)
	req.NoError(err)
	connect(c, "s1", "Ann")
	connect(c, "s2", "Bob")
	c.PostPublic("s1", "public one")
	req.NoError(c.SendDirect("s1", "Bob", "private one"))
	c.JoinRoom("s1", "lobby")
	req.NoError(c.PostRoom("s1", "lobby", "room one"))

	restarted, err := NewCoordinator(store, 100)
	req.NoError(err)

	// presence and membership reset, logs survive
	req.Empty(restarted.Names())

	conn := connect(restarted, "s9", "Zoe")
	history := lastFrame[protocol.ChatHistory](t, conn, protocol.TypeChatHistory)
	req.Len(history.Messages, 1)
	req.Equal("public one", history.Messages[0].Text)

	restarted.JoinRoom("s9", "lobby")
	roomHist := lastFrame[protocol.RoomHistory](t, conn, protocol.TypeRoomHistory)
	req.Len(roomHist.Messages, 1)
	req.Equal("room one", roomHist.Messages[0].Text)
	members := lastFrame[protocol.RoomMembers](t, conn, protocol.TypeRoomMembers)
	req.Equal([]string{"Zoe"}, members.Members)

	ann := connect(restarted, "s10", "Ann")
	restarted.DirectHistory("s10", "Bob")
	dmHist := lastFrame[protocol.DMHistory](t, ann, protocol.TypeDMHistory)
	req.Len(dmHist.Messages, 1)
	req.Equal("private one", dmHist.Messages[0].Text)
}

func TestBroadcast_SkipsFailedConnections(t *testing.T) {
	c := newTestCoordinator(t)
	connect(c, "s1", "Ann")
	stuck := connect(c, "s2", "Bob")
	stuck.fail = true
	carl := connect(c, "s3", "Carl")

	c.PostPublic("s1", "still flowing")

	got := framesOf[protocol.ChatMessageOut](t, carl, protocol.TypeChatMessage)
	require.Len(t, got, 1)
	require.Equal(t, "still flowing", got[0].Text)
}
