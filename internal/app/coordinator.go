// Package app owns the in-memory chat state: presence, the public
// channel, the direct-message store and the room registry. Every
// mutating handler runs under one lock, so events are applied one at a
// time no matter how many connections feed them in.
package app

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"freechat/internal/core"
	"freechat/internal/domain"
	"freechat/internal/protocol"
	"freechat/internal/storage"
)

var (
	ErrRecipientOffline = errors.New("recipient not connected")
	ErrRoomNotFound     = errors.New("room not found")
	ErrNotMember        = errors.New("not a room member")
	ErrNotRoomCreator   = errors.New("only the room creator can kick")
	ErrTargetNotMember  = errors.New("target is not a room member")
)

// session binds a connection's transport endpoint to its volatile
// identity. named flips once the connection issues set_username, even
// with an empty name; only named sessions appear in the user list.
type session struct {
	user  *domain.User
	conn  core.SignalConnection
	named bool
}

// Coordinator is the single-writer owner of all chat state. Handlers
// mutate state, persist the durable logs, then fan out notifications,
// all under c.mu.
type Coordinator struct {
	mu       sync.Mutex
	capacity int
	now      func() time.Time

	sessions map[core.SessionID]*session
	order    []core.SessionID
	// namedOrder keeps name-registration order for the user list; a
	// rename keeps the original position, like map insertion order in
	// the reference behavior.
	namedOrder []core.SessionID

	public *core.BoundedLog[domain.Message]
	direct map[string]*core.BoundedLog[domain.DirectMessage]
	rooms  map[domain.RoomName]*roomState

	store *storage.SnapshotStore
}

// NewCoordinator restores the durable logs from the store and starts
// with empty presence and memberships.
func NewCoordinator(store *storage.SnapshotStore, capacity int) (*Coordinator, error) {
	snap, err := store.Load()
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		capacity: capacity,
		now:      time.Now,
		sessions: make(map[core.SessionID]*session),
		public:   core.NewBoundedLog[domain.Message](capacity),
		direct:   make(map[string]*core.BoundedLog[domain.DirectMessage]),
		rooms:    make(map[domain.RoomName]*roomState),
		store:    store,
	}
	c.public.Replace(snap.Public)
	for key, entries := range snap.Direct {
		l := core.NewBoundedLog[domain.DirectMessage](capacity)
		l.Replace(entries)
		c.direct[key] = l
	}
	for name, entries := range snap.Rooms {
		l := core.NewBoundedLog[domain.Message](capacity)
		l.Replace(entries)
		c.rooms[domain.RoomName(name)] = &roomState{
			meta:    domain.Room{Name: domain.RoomName(name)},
			members: make(map[core.SessionID]struct{}),
			log:     l,
		}
	}
	return c, nil
}

// Connect registers a new session and delivers the public history
// before any live message can interleave.
func (c *Coordinator) Connect(sid core.SessionID, conn core.SignalConnection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessions[sid] = &session{
		user: &domain.User{ID: domain.UserID(sid)},
		conn: conn,
	}
	c.order = append(c.order, sid)

	c.send(conn, protocol.ChatHistory{
		Type:     protocol.TypeChatHistory,
		Messages: c.public.Snapshot(),
	})
	log.Info().Str("module", "app").Str("sid", string(sid)).Int("online", len(c.sessions)).Msg("session connected")
}

// Disconnect drops the session from presence and from every room it
// had joined, broadcasting the updated lists.
func (c *Coordinator) Disconnect(sid core.SessionID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[sid]
	if !ok {
		return
	}
	delete(c.sessions, sid)
	c.order = dropID(c.order, sid)
	c.namedOrder = dropID(c.namedOrder, sid)

	for _, r := range c.rooms {
		if _, member := r.members[sid]; member {
			delete(r.members, sid)
			c.broadcastRoomMembers(r)
		}
	}
	c.broadcastUserList()
	log.Info().Str("module", "app").Str("sid", string(sid)).Str("username", s.user.Username).Msg("session disconnected")
}

// SetName registers the connection's display name and broadcasts the
// updated user list. Duplicates are allowed; the list simply carries
// the name twice.
func (c *Coordinator) SetName(sid core.SessionID, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[sid]
	if !ok {
		return
	}
	s.user.SetUsername(name)
	if !s.named {
		s.named = true
		c.namedOrder = append(c.namedOrder, sid)
	}
	log.Info().Str("module", "app").Str("sid", string(sid)).Str("username", s.user.Username).Msg("username set")
	c.broadcastUserList()
}

// Names returns the registered names in registration order.
func (c *Coordinator) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.names()
}

// PostPublic appends one broadcast message, persists and fans it out
// to every live connection.
func (c *Coordinator) PostPublic(sid core.SessionID, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[sid]
	if !ok {
		return
	}
	msg := domain.Message{
		Sender:    s.user.DisplayName(),
		Text:      text,
		Timestamp: c.now(),
	}
	c.public.Append(msg)
	c.persist()

	frame := protocol.ChatMessageOut{Type: protocol.TypeChatMessage, Message: msg}
	for _, id := range c.order {
		c.send(c.sessions[id].conn, frame)
	}
}

func (c *Coordinator) names() []string {
	out := make([]string, 0, len(c.namedOrder))
	for _, id := range c.namedOrder {
		out = append(out, c.sessions[id].user.Username)
	}
	return out
}

func dropID(ids []core.SessionID, sid core.SessionID) []core.SessionID {
	for i, id := range ids {
		if id == sid {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func (c *Coordinator) broadcastUserList() {
	frame := protocol.UserList{Type: protocol.TypeUserList, Users: c.names()}
	for _, id := range c.order {
		c.send(c.sessions[id].conn, frame)
	}
}

// persist writes the full durable state synchronously. A failed write
// loses durability for this event only; in-memory state stays correct
// and serving continues.
func (c *Coordinator) persist() {
	snap := storage.EmptySnapshot()
	snap.Public = c.public.Snapshot()
	for key, l := range c.direct {
		snap.Direct[key] = l.Snapshot()
	}
	for name, r := range c.rooms {
		snap.Rooms[string(name)] = r.log.Snapshot()
	}
	if err := c.store.Save(snap); err != nil {
		log.Error().Err(err).Str("module", "app").Msg("snapshot write failed, durability lost for this event")
	}
}

// send encodes and delivers one frame. A full or closed connection is
// skipped so a slow receiver never stalls the fan-out.
func (c *Coordinator) send(conn core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app").Msg("encode frame")
		return
	}
	if err := conn.TrySend(core.Frame(b)); err != nil {
		log.Warn().Err(err).Str("module", "app").Msg("frame dropped")
	}
}
