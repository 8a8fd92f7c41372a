/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"fmt"
	"slices"

	"github.com/Seednode/khawawish/protocol"
)

type ConnState string

const (
	Disconnected ConnState = "disconnected"
	Connecting   ConnState = "connecting"
	Signed       ConnState = "signed"
	Closed       ConnState = "closed"
)

type Phase string

const (
	PhaseSelection Phase = "selection"
	PhaseGuessing  Phase = "guessing"
	PhaseResults   Phase = "results"
)

// Status is the round outcome as reported by the server. Empty means no
// outcome yet.
type Status string

const (
	StatusNone Status = ""
	StatusWin  Status = "Win"
	StatusLose Status = "Lose"
)

// View is where a front-end should be showing the user.
type View string

const (
	ViewRooms View = "rooms"
	ViewLobby View = "lobby"
	ViewGame  View = "game"
)

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is transient user feedback (a toast).
type Notice struct {
	Level   NoticeLevel
	Message string
}

const (
	msgNotEnoughPlayers = "At least 2 players are required to start the game."
	msgNotYourTurn      = "It's not your turn!"
	msgTurnPassed       = "It's now the other player's turn."
	msgWrongGuess       = "Wrong guess! Try again."
	msgCorrectGuess     = "Correct guess!"
	msgKicked           = "You have been kicked from the lobby."
	msgStartFailed      = "Failed to start the game."
	msgOpponentLeft     = "The other player has left the game."
	msgConnectionError  = "Connection error."
	msgDegraded         = "Connection error. Reload to play again."
	msgNoLobby          = "You are not in a lobby."
	msgNotOwner         = "Only the lobby owner can do that."
)

// State is the local view of one session.
type State struct {
	Conn      ConnState
	Lobby     *protocol.Lobby
	Lobbies   []protocol.Lobby
	Phase     Phase
	Status    Status
	Images    []string
	Discarded []string
	OwnImage  string
	View      View
	Degraded  bool
}

// NewState returns the state of a fresh session.
func NewState() State {
	return State{
		Conn:  Disconnected,
		Phase: PhaseSelection,
		View:  ViewRooms,
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	out.Lobby = s.Lobby.Clone()
	out.Lobbies = slices.Clone(s.Lobbies)
	for i := range out.Lobbies {
		if l := out.Lobbies[i].Clone(); l != nil {
			out.Lobbies[i] = *l
		}
	}
	out.Images = slices.Clone(s.Images)
	out.Discarded = slices.Clone(s.Discarded)

	return out
}

// IsDiscarded reports whether character is in the local discard set.
func (s State) IsDiscarded(character string) bool {
	return slices.Contains(s.Discarded, character)
}

// Effects is what handling one event or command asks the client to do
// besides mutating state.
type Effects struct {
	Send     protocol.Command
	Notices  []Notice
	Navigate View
	Err      error
}

func (e *Effects) notify(level NoticeLevel, msg string) {
	e.Notices = append(e.Notices, Notice{Level: level, Message: msg})
}

func refuse(err error, msg string) Effects {
	return Effects{Err: err, Notices: []Notice{{Level: NoticeError, Message: msg}}}
}

func validTransition(from, to Phase) bool {
	switch {
	case from == to:
		return true
	case to == PhaseSelection:
		return true
	case from == PhaseSelection && to == PhaseGuessing:
		return true
	case from == PhaseGuessing && to == PhaseResults:
		return true
	}

	return false
}

func (s *State) advance(to Phase, cause string) error {
	if !validTransition(s.Phase, to) {
		return fmt.Errorf("%w: %s → %s on %s", ErrInvalidTransition, s.Phase, to, cause)
	}
	s.Phase = to

	return nil
}

func (s *State) resetSelection() {
	s.Discarded = nil
	s.OwnImage = ""
}

func (s *State) leaveLobby(eff *Effects) {
	s.Lobby = nil
	s.Status = StatusNone
	s.View = ViewRooms
	eff.Navigate = ViewRooms
}

// Apply reconciles one inbound event.
func (s *State) Apply(ev protocol.Event) Effects {
	var eff Effects

	switch e := ev.(type) {
	case protocol.Ping:
		eff.Send = protocol.Pong()

	case protocol.LobbyEntered:
		s.Lobby = e.Lobby.Clone()
		s.View = ViewLobby
		eff.Navigate = ViewLobby
		eff.Err = s.advance(PhaseSelection, e.Type)

	case protocol.RematchStarted:
		if err := s.advance(PhaseSelection, e.Type); err != nil {
			eff.Err = err
			break
		}
		s.resetSelection()
		s.Images = slices.Clone(e.Images)
		s.Status = StatusNone

	case protocol.GameStarted:
		s.Images = slices.Clone(e.Images)
		s.View = ViewGame
		eff.Navigate = ViewGame

	case protocol.LobbyChanged:
		s.Lobby = e.Lobby.Clone()

	case protocol.NewLobby:
		s.Lobbies = slices.Clone(e.PublicLobbies)

	case protocol.SelectionComplete:
		eff.Err = s.advance(PhaseGuessing, e.Type)

	case protocol.IncorrectGuess:
		eff.notify(NoticeError, msgWrongGuess)

	case protocol.CorrectGuess:
		if err := s.advance(PhaseResults, e.Type); err != nil {
			eff.Err = err
			break
		}
		s.Status = StatusWin
		eff.notify(NoticeSuccess, msgCorrectGuess)

	case protocol.PlayerScored:
		if err := s.advance(PhaseResults, e.Type); err != nil {
			eff.Err = err
			break
		}
		s.Status = StatusLose

	case protocol.LobbyExited:
		if e.Type == protocol.EvtKicked {
			eff.notify(NoticeError, msgKicked)
		}
		s.leaveLobby(&eff)

	case protocol.CommandFailed:
		msg := e.Reason
		if msg == "" {
			msg = msgStartFailed
		}
		eff.notify(NoticeError, msg)

	case protocol.PlayerLeftInResults:
		eff.notify(NoticeError, msgOpponentLeft)
		s.leaveLobby(&eff)

	case protocol.ConnectedError:
		msg := e.Message
		if msg == "" {
			msg = msgConnectionError
		}
		eff.notify(NoticeError, msg)
		s.Degraded = true

	case protocol.Unknown:
	}

	return eff
}

// Prepare checks an outbound command against the local view on behalf of
// userID. A refused command comes back with Err set and Send nil.
func (s *State) Prepare(userID string, cmd protocol.Command) Effects {
	switch cmd.CommandType() {
	case protocol.CmdCreateLobby, protocol.CmdJoinLobby:
		if s.Degraded {
			return refuse(ErrDegraded, msgDegraded)
		}

	case protocol.CmdStartGame:
		if s.Lobby == nil {
			return refuse(ErrNoLobby, msgNoLobby)
		}
		if s.Lobby.PlayerCount < 2 {
			return refuse(ErrNotEnoughPlayers, msgNotEnoughPlayers)
		}

	case protocol.CmdSelectOwnCharacter:
		if s.Phase != PhaseSelection {
			return refuse(ErrWrongPhase, fmt.Sprintf("You can only pick your character during %s.", PhaseSelection))
		}

	case protocol.CmdDiscardCharacter:
		if s.Phase != PhaseGuessing {
			return refuse(ErrWrongPhase, fmt.Sprintf("You can only discard during %s.", PhaseGuessing))
		}

	case protocol.CmdGuess, protocol.CmdEndTurn:
		if eff, ok := s.checkTurn(userID); !ok {
			return eff
		}
		if cmd.CommandType() == protocol.CmdEndTurn {
			eff := Effects{Send: cmd}
			eff.notify(NoticeSuccess, msgTurnPassed)
			return eff
		}

	case protocol.CmdKickPlayer:
		if s.Lobby == nil {
			return refuse(ErrNoLobby, msgNoLobby)
		}
		if !s.Lobby.IsOwner(userID) {
			return refuse(ErrNotOwner, msgNotOwner)
		}

	case protocol.CmdLeaveLobby:
		eff := Effects{Send: cmd}
		s.leaveLobby(&eff)
		return eff
	}

	return Effects{Send: cmd}
}

// Sent records the local selection cache for a command Prepare let through
// once it has actually been written.
func (s *State) Sent(cmd protocol.Command) {
	c, ok := cmd.(protocol.Character)
	if !ok {
		return
	}

	switch c.Type {
	case protocol.CmdSelectOwnCharacter:
		s.OwnImage = c.Character
	case protocol.CmdDiscardCharacter:
		if !s.IsDiscarded(c.Character) {
			s.Discarded = append(s.Discarded, c.Character)
		}
	}
}

func (s *State) checkTurn(userID string) (Effects, bool) {
	if s.Lobby == nil {
		return refuse(ErrNoLobby, msgNoLobby), false
	}
	if s.Phase != PhaseGuessing {
		return refuse(ErrWrongPhase, fmt.Sprintf("You can only do that during %s.", PhaseGuessing)), false
	}
	if userID == "" || userID != s.Lobby.UserTurn {
		return refuse(ErrNotYourTurn, msgNotYourTurn), false
	}

	return Effects{}, true
}
