/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Khawawish development peer
//
// An in-memory stand-in for the game server, speaking the same socket
// protocol as the real one.
//
// Features:
// - One socket per account at /ws/game?token=...; a second one is refused
//   with connected_error
// - Nothing but sign is accepted until the socket has signed
// - Two-seat lobbies, optionally private and/or password protected
// - Owner starts, kicks and rematches; the second seat must be ready first
// - Both players pick a character, then take turns guessing
// - Correct guesses end the round and update account stats
// - Leaving or disconnecting closes or frees the seat
// - Idle lobbies auto-reaped after the configured session timeout
// - Public lobby changes are pushed to every signed socket as new_lobby

package main

import (
	"cmp"
	"crypto/rand"
	"encoding/json"
	mathrand "math/rand/v2"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/Seednode/khawawish/protocol"
	"github.com/Seednode/khawawish/session"
)

const (
	maxMessageSize = 64 << 10
	sendBuffer     = 32
	writeWait      = 10 * time.Second
)

const (
	msgAlreadyConnected = "This account is already connected from another session."
	msgBadPassword      = "Incorrect password."
	msgGameRunning      = "The game has already started."
	msgLobbyFull        = "Lobby is full."
	msgLobbyNotFound    = "Lobby not found."
	msgNeedTwoPlayers   = "At least 2 players are required to start the game."
	msgNotInLobby       = "You are not in a lobby."
	msgNotReady         = "The other player is not ready."
	msgOnlyOwnerStarts  = "Only the lobby owner can start the game."
	msgRoundNotOver     = "The current round is not over yet."
	msgKickedFromLobby  = "You have been kicked from the lobby."
	msgLobbyClosed      = "The lobby owner has closed the lobby."
	msgLobbyIdle        = "The lobby was closed for inactivity."
)

// Client is one game socket.
type Client struct {
	conn    *websocket.Conn
	send    chan any
	userID  string
	signed  bool
	lobbyID string
	closed  bool
}

type room struct {
	info       protocol.Lobby
	password   string
	images     []string
	picks      map[string]string
	phase      session.Phase
	lastActive time.Time
}

func (r *room) snapshot() *protocol.Lobby {
	return r.info.Clone()
}

func (r *room) opponent(userID string) string {
	switch {
	case r.info.Owner != nil && r.info.Owner.UserID == userID:
		if r.info.SecondPlayer != nil {
			return r.info.SecondPlayer.UserID
		}
	case r.info.SecondPlayer != nil && r.info.SecondPlayer.UserID == userID:
		if r.info.Owner != nil {
			return r.info.Owner.UserID
		}
	}

	return ""
}

func (r *room) resetRound() {
	r.info.GameStarted = false
	r.info.UserTurn = ""
	r.images = nil
	r.picks = make(map[string]string)
	r.phase = ""
}

// Hub owns every lobby and socket of the peer.
type Hub struct {
	cfg      *Config
	log      *zap.SugaredLogger
	accounts *Accounts
	catalog  *Catalog
	now      func() time.Time

	mu      sync.Mutex
	conns   map[*Client]bool
	users   map[string]*Client
	lobbies map[string]*room
}

func newHub(cfg *Config, log *zap.Logger, accounts *Accounts, catalog *Catalog) *Hub {
	return &Hub{
		cfg:      cfg,
		log:      log.Sugar(),
		accounts: accounts,
		catalog:  catalog,
		now:      time.Now,
		conns:    make(map[*Client]bool),
		users:    make(map[string]*Client),
		lobbies:  make(map[string]*room),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[c] = true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.lobbyID != "" {
		h.leaveLocked(c, false)
	}
	if !c.closed {
		h.dropLocked(c)
	}
	if c.signed {
		h.log.Infof("GAMES: %s disconnected", h.nameOf(c.userID))
	}
}

func (h *Hub) dropLocked(c *Client) {
	c.closed = true
	close(c.send)
	delete(h.conns, c)
	if h.users[c.userID] == c {
		delete(h.users, c.userID)
	}
}

func (h *Hub) sendLocked(c *Client, msg any) {
	if c == nil || c.closed {
		return
	}

	select {
	case c.send <- msg:
	default:
		h.log.Warnf("GAMES: Dropping slow socket for %s", h.nameOf(c.userID))
		h.dropLocked(c)
	}
}

func (h *Hub) sendUserLocked(userID string, msg any) {
	if userID == "" {
		return
	}

	h.sendLocked(h.users[userID], msg)
}

// sendRoomLocked sends msg to both seats of r.
func (h *Hub) sendRoomLocked(r *room, msg any) {
	if r.info.Owner != nil {
		h.sendUserLocked(r.info.Owner.UserID, msg)
	}
	if r.info.SecondPlayer != nil {
		h.sendUserLocked(r.info.SecondPlayer.UserID, msg)
	}
}

func (h *Hub) lobbyChangedLocked(r *room, kind string) {
	h.sendRoomLocked(r, protocol.LobbyChanged{Type: kind, Lobby: r.snapshot()})
}

func (h *Hub) nameOf(userID string) string {
	if u, ok := h.accounts.Get(userID); ok {
		return strconv.Quote(u.Username)
	}

	return userID
}

func (h *Hub) seatFor(userID string) *protocol.LobbyPlayer {
	u, _ := h.accounts.Get(userID)

	return &protocol.LobbyPlayer{
		UserID:      userID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
	}
}

func (h *Hub) roomOfLocked(c *Client) *room {
	if c.lobbyID == "" {
		return nil
	}

	return h.lobbies[c.lobbyID]
}

// newLobbyIDLocked generates a crypto-random lobby ID that doesn't
// collide with an open lobby.
func (h *Hub) newLobbyIDLocked() string {
	const letters = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	for {
		buf := make([]byte, 6)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 6)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		if _, exists := h.lobbies[id]; !exists {
			return id
		}
	}
}

func newSeed() string {
	return strconv.FormatInt(mathrand.Int64N(1<<31), 10)
}

func (h *Hub) publicLobbiesLocked() []protocol.Lobby {
	out := []protocol.Lobby{}
	for _, r := range h.lobbies {
		if r.info.IsPrivate || r.info.GameStarted || r.info.PlayerCount >= 2 {
			continue
		}
		out = append(out, *r.snapshot())
	}

	slices.SortFunc(out, func(a, b protocol.Lobby) int {
		return cmp.Or(cmp.Compare(a.CreatedAt, b.CreatedAt), cmp.Compare(a.LobbyID, b.LobbyID))
	})

	return out
}

func (h *Hub) PublicLobbies() []protocol.Lobby {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.publicLobbiesLocked()
}

func (h *Hub) Lobby(id string) (*protocol.Lobby, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.lobbies[id]
	if !ok {
		return nil, false
	}

	return r.snapshot(), true
}

func (h *Hub) broadcastLobbiesLocked() {
	msg := protocol.NewLobby{Type: protocol.EvtNewLobby, PublicLobbies: h.publicLobbiesLocked()}

	for _, c := range h.users {
		h.sendLocked(c, msg)
	}
}

// handle runs one command from c.
func (h *Hub) handle(c *Client, msg protocol.ClientMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch msg.Type {
	case protocol.CmdPong:
		return
	case protocol.CmdSign:
		h.signLocked(c)
		return
	}

	if !c.signed {
		h.log.Debugf("GAMES: Ignoring %s before sign", msg.Type)
		return
	}

	if r := h.roomOfLocked(c); r != nil {
		r.lastActive = h.now()
	}

	switch msg.Type {
	case protocol.CmdCreateLobby:
		h.createLocked(c, msg)
	case protocol.CmdJoinLobby:
		h.joinLocked(c, msg)
	case protocol.CmdReady:
		h.readyLocked(c, msg.Ready)
	case protocol.CmdStartGame:
		h.startLocked(c, msg.IsRematch)
	case protocol.CmdSelectOwnCharacter:
		h.selectLocked(c, msg.Character)
	case protocol.CmdDiscardCharacter:
		h.log.Debugf("GAMES: %s discarded %q", h.nameOf(c.userID), msg.Character)
	case protocol.CmdGuess:
		h.guessLocked(c, msg.Character)
	case protocol.CmdEndTurn:
		h.endTurnLocked(c)
	case protocol.CmdKickPlayer:
		h.kickLocked(c, msg.UserID)
	case protocol.CmdLeaveLobby:
		h.leaveLocked(c, msg.InResult)
	default:
		h.log.Debugf("GAMES: Ignoring unknown command %q", msg.Type)
	}
}

func (h *Hub) signLocked(c *Client) {
	if c.signed {
		return
	}

	if other, ok := h.users[c.userID]; ok && other != c {
		h.log.Infof("GAMES: Refusing second socket for %s", h.nameOf(c.userID))
		h.sendLocked(c, protocol.ConnectedError{Type: protocol.EvtConnectedError, Message: msgAlreadyConnected})
		return
	}

	c.signed = true
	h.users[c.userID] = c

	h.log.Infof("GAMES: %s signed in", h.nameOf(c.userID))
}

func (h *Hub) createLocked(c *Client, msg protocol.ClientMessage) {
	if c.lobbyID != "" {
		h.leaveLocked(c, false)
	}

	owner := h.seatFor(c.userID)

	name := strings.TrimSpace(msg.LobbyName)
	if name == "" {
		name = owner.DisplayName + "'s lobby"
	}

	var password string
	if msg.Password != nil {
		password = *msg.Password
	}

	now := h.now()
	r := &room{
		info: protocol.Lobby{
			LobbyID:     h.newLobbyIDLocked(),
			LobbyName:   name,
			MaxImages:   h.catalog.clampImages(msg.MaxImages),
			Seed:        newSeed(),
			Owner:       owner,
			HasPassword: password != "",
			IsPrivate:   msg.IsPrivate,
			PlayerCount: 1,
			CreatedAt:   now.UTC().Format(time.RFC3339Nano),
		},
		password:   password,
		picks:      make(map[string]string),
		lastActive: now,
	}

	h.lobbies[r.info.LobbyID] = r
	c.lobbyID = r.info.LobbyID

	h.log.Infof("GAMES: %s created lobby %s", h.nameOf(c.userID), r.info.LobbyID)

	h.sendLocked(c, protocol.LobbyEntered{Type: protocol.EvtLobbyCreated, Lobby: r.snapshot()})

	if !r.info.IsPrivate {
		h.broadcastLobbiesLocked()
	}
}

func (h *Hub) joinLocked(c *Client, msg protocol.ClientMessage) {
	fail := func(reason string) {
		h.sendLocked(c, protocol.CommandFailed{Type: protocol.EvtJoinFailed, Reason: reason})
	}

	r, ok := h.lobbies[strings.ToUpper(strings.TrimSpace(msg.LobbyID))]
	switch {
	case !ok:
		fail(msgLobbyNotFound)
		return
	case r.info.Seat(c.userID) != nil:
		h.sendLocked(c, protocol.LobbyEntered{Type: protocol.EvtLobbyJoined, Lobby: r.snapshot()})
		return
	case r.info.SecondPlayer != nil:
		fail(msgLobbyFull)
		return
	case r.info.GameStarted:
		fail(msgGameRunning)
		return
	case r.password != "" && (msg.Password == nil || *msg.Password != r.password):
		fail(msgBadPassword)
		return
	}

	if c.lobbyID != "" {
		h.leaveLocked(c, false)
	}

	r.info.SecondPlayer = h.seatFor(c.userID)
	r.info.PlayerCount = 2
	r.lastActive = h.now()
	c.lobbyID = r.info.LobbyID

	h.log.Infof("GAMES: %s joined lobby %s", h.nameOf(c.userID), r.info.LobbyID)

	h.sendLocked(c, protocol.LobbyEntered{Type: protocol.EvtLobbyJoined, Lobby: r.snapshot()})
	h.sendUserLocked(r.info.Owner.UserID, protocol.LobbyChanged{Type: protocol.EvtPlayerJoined, Lobby: r.snapshot()})

	if !r.info.IsPrivate {
		h.broadcastLobbiesLocked()
	}
}

// readyLocked sets the sender's ready flag. Repeating a press is a no-op
// apart from the broadcast.
func (h *Hub) readyLocked(c *Client, ready bool) {
	r := h.roomOfLocked(c)
	if r == nil {
		return
	}

	// The socket can still point at a lobby it was removed from.
	seat := r.info.Seat(c.userID)
	if seat == nil {
		c.lobbyID = ""
		return
	}
	seat.IsReady = ready

	h.lobbyChangedLocked(r, protocol.EvtPlayerReadyChanged)
}

func (h *Hub) startLocked(c *Client, rematch bool) {
	fail := func(reason string) {
		h.sendLocked(c, protocol.CommandFailed{Type: protocol.EvtStartFailed, Reason: reason})
	}

	r := h.roomOfLocked(c)
	switch {
	case r == nil:
		fail(msgNotInLobby)
		return
	case !r.info.IsOwner(c.userID):
		fail(msgOnlyOwnerStarts)
		return
	case r.info.PlayerCount < 2 || r.info.SecondPlayer == nil:
		fail(msgNeedTwoPlayers)
		return
	case rematch && r.phase != session.PhaseResults:
		fail(msgRoundNotOver)
		return
	case !rematch && r.info.GameStarted:
		fail(msgGameRunning)
		return
	case !rematch && !r.info.SecondPlayer.IsReady:
		fail(msgNotReady)
		return
	}

	r.info.Seed = newSeed()
	seed, _ := strconv.ParseInt(r.info.Seed, 10, 64)
	r.images = h.catalog.Sample(seed, r.info.MaxImages)
	r.picks = make(map[string]string)
	r.phase = session.PhaseSelection
	r.info.GameStarted = true
	r.info.UserTurn = r.info.Owner.UserID

	if rematch {
		h.log.Infof("GAMES: Rematch in lobby %s", r.info.LobbyID)
		h.sendRoomLocked(r, protocol.RematchStarted{Type: protocol.EvtRematchStarted, Images: slices.Clone(r.images)})
	} else {
		h.log.Infof("GAMES: Game started in lobby %s with %d images", r.info.LobbyID, len(r.images))
		h.sendRoomLocked(r, protocol.GameStarted{Type: protocol.EvtGameStarted, Images: slices.Clone(r.images)})
	}
	h.lobbyChangedLocked(r, protocol.EvtUpdateLobby)

	h.accounts.SetInGame(true, r.info.Owner.UserID, r.info.SecondPlayer.UserID)

	if !r.info.IsPrivate && !rematch {
		h.broadcastLobbiesLocked()
	}
}

func (h *Hub) selectLocked(c *Client, character string) {
	r := h.roomOfLocked(c)
	if r == nil || r.phase != session.PhaseSelection || !slices.Contains(r.images, character) {
		return
	}

	r.picks[c.userID] = character
	if len(r.picks) < 2 {
		return
	}

	r.phase = session.PhaseGuessing
	r.info.UserTurn = r.info.Owner.UserID

	h.log.Debugf("GAMES: Selection complete in lobby %s", r.info.LobbyID)

	h.sendRoomLocked(r, protocol.SelectionComplete{Type: protocol.EvtSelectionComplete})
	h.lobbyChangedLocked(r, protocol.EvtUpdateLobby)
}

func (h *Hub) guessLocked(c *Client, character string) {
	r := h.roomOfLocked(c)
	if r == nil || r.phase != session.PhaseGuessing || r.info.UserTurn != c.userID {
		return
	}

	opponent := r.opponent(c.userID)
	if character != r.picks[opponent] {
		h.log.Debugf("GAMES: %s guessed %q wrong in lobby %s", h.nameOf(c.userID), character, r.info.LobbyID)
		h.sendLocked(c, protocol.IncorrectGuess{Type: protocol.EvtIncorrectGuess})
		return
	}

	r.info.Seat(c.userID).Score++
	r.phase = session.PhaseResults
	r.info.GameStarted = false
	r.info.UserTurn = ""

	h.accounts.RecordResult(c.userID, opponent, 1)
	h.accounts.SetInGame(false, c.userID, opponent)

	h.log.Infof("GAMES: %s won in lobby %s", h.nameOf(c.userID), r.info.LobbyID)

	h.sendLocked(c, protocol.CorrectGuess{Type: protocol.EvtCorrectGuess})
	h.sendUserLocked(opponent, protocol.PlayerScored{Type: protocol.EvtPlayerScored})
	h.lobbyChangedLocked(r, protocol.EvtUpdateLobby)
}

func (h *Hub) endTurnLocked(c *Client) {
	r := h.roomOfLocked(c)
	if r == nil || r.phase != session.PhaseGuessing || r.info.UserTurn != c.userID {
		return
	}

	r.info.UserTurn = r.opponent(c.userID)

	h.lobbyChangedLocked(r, protocol.EvtEndTurn)
}

func (h *Hub) kickLocked(c *Client, target string) {
	r := h.roomOfLocked(c)
	if r == nil || !r.info.IsOwner(c.userID) || r.info.SecondPlayer == nil || r.info.SecondPlayer.UserID != target {
		return
	}

	if tc := h.users[target]; tc != nil {
		tc.lobbyID = ""
		h.sendLocked(tc, protocol.LobbyExited{Type: protocol.EvtKicked, Message: msgKickedFromLobby})
	}

	h.accounts.SetInGame(false, c.userID, target)

	r.info.SecondPlayer = nil
	r.info.PlayerCount = 1
	r.resetRound()

	h.log.Infof("GAMES: %s kicked %s from lobby %s", h.nameOf(c.userID), h.nameOf(target), r.info.LobbyID)

	h.lobbyChangedLocked(r, protocol.EvtPlayerKicked)

	if !r.info.IsPrivate {
		h.broadcastLobbiesLocked()
	}
}

func (h *Hub) closeRoomLocked(r *room, exclude string, msg any) {
	for _, seat := range []*protocol.LobbyPlayer{r.info.Owner, r.info.SecondPlayer} {
		if seat == nil || seat.UserID == exclude {
			continue
		}
		if sc := h.users[seat.UserID]; sc != nil && sc.lobbyID == r.info.LobbyID {
			sc.lobbyID = ""
			h.sendLocked(sc, msg)
		}
	}

	delete(h.lobbies, r.info.LobbyID)
}

func (h *Hub) leaveLocked(c *Client, inResult bool) {
	r := h.roomOfLocked(c)
	c.lobbyID = ""
	if r == nil {
		return
	}

	opponent := r.opponent(c.userID)
	public := !r.info.IsPrivate

	switch {
	case opponent != "" && (inResult || r.phase == session.PhaseResults):
		h.closeRoomLocked(r, c.userID, protocol.PlayerLeftInResults{Type: protocol.EvtPlayerLeftInResults})
	case r.info.IsOwner(c.userID):
		h.closeRoomLocked(r, c.userID, protocol.LobbyExited{Type: protocol.EvtLobbyClosed, Message: msgLobbyClosed})
	default:
		r.info.SecondPlayer = nil
		r.info.PlayerCount = 1
		r.resetRound()
		h.lobbyChangedLocked(r, protocol.EvtPlayerLeft)
	}

	h.accounts.SetInGame(false, c.userID, opponent)

	h.log.Infof("GAMES: %s left lobby %s", h.nameOf(c.userID), r.info.LobbyID)

	if public {
		h.broadcastLobbiesLocked()
	}
}

// reap closes lobbies idle since before cutoff and reports how many.
func (h *Hub) reap(cutoff time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	reaped := 0
	for id, r := range h.lobbies {
		if !r.lastActive.Before(cutoff) {
			continue
		}

		h.closeRoomLocked(r, "", protocol.LobbyExited{Type: protocol.EvtLobbyClosed, Message: msgLobbyIdle})
		if r.info.Owner != nil {
			h.accounts.SetInGame(false, r.info.Owner.UserID, r.opponent(r.info.Owner.UserID))
		}
		h.log.Infof("GAMES: Reaped idle lobby %s", id)
		reaped++
	}

	if reaped > 0 {
		h.broadcastLobbiesLocked()
	}

	return reaped
}

// reaperLoop periodically closes lobbies idle longer than the session timeout.
func (h *Hub) reaperLoop(done <-chan struct{}) {
	timeout := h.cfg.sessionTimeout
	if timeout <= 0 {
		return
	}

	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			h.reap(h.now().Add(-timeout))
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func serveGameSocket(h *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		userID, err := h.accounts.Verify(r.URL.Query().Get("token"))
		if err != nil {
			writeError(h.cfg, w, http.StatusUnauthorized, errInvalidToken.Error())
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Debugf("SERVE: Upgrade failed for %s: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn:   conn,
			send:   make(chan any, sendBuffer),
			userID: userID,
		}

		h.register(client)

		go client.writePump(h.cfg.heartbeat)
		client.readPump(h)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg protocol.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			h.log.Debugf("GAMES: Ignoring malformed message from %s", h.nameOf(c.userID))
			continue
		}

		h.handle(c, msg)
	}
}

func (c *Client) writePump(heartbeat time.Duration) {
	ticker := time.NewTicker(heartbeat)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(protocol.Ping{Type: protocol.EvtPing}); err != nil {
				return
			}
		}
	}
}

// qrHandler serves a PNG QR code pointing at the lobby's url.
func qrHandler(h *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		lobbyID := ps.ByName("id")
		if _, ok := h.Lobby(lobbyID); !ok {
			writeError(h.cfg, w, http.StatusNotFound, msgLobbyNotFound)
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		// We are at /.../lobbies/:id/qr; strip trailing "/qr" to get the lobby URL.
		path := strings.TrimSuffix(r.URL.Path, "/qr")

		const qrSize = 320
		png, err := qrcode.Encode(scheme+"://"+r.Host+path, qrcode.Medium, qrSize)
		if err != nil {
			writeError(h.cfg, w, http.StatusInternalServerError, "qr generation failed")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(h.cfg, w)
		_, _ = w.Write(png)
	}
}
