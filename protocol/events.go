/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package protocol

import (
	"encoding/json"
	"fmt"
)

// Event type tags, server → client.
const (
	EvtPing                = "ping"
	EvtLobbyCreated        = "lobby_created"
	EvtLobbyJoined         = "lobby_joined"
	EvtRematchStarted      = "rematch_started"
	EvtGameStarted         = "game_started"
	EvtPlayerJoined        = "player_joined"
	EvtPlayerLeft          = "player_left"
	EvtPlayerReadyChanged  = "player_ready_changed"
	EvtEndTurn             = "end_turn"
	EvtUpdateLobby         = "update_lobby"
	EvtPlayerKicked        = "player_kicked"
	EvtNewLobby            = "new_lobby"
	EvtSelectionComplete   = "selection_complete"
	EvtIncorrectGuess      = "incorrect_guess"
	EvtCorrectGuess        = "correct_guess"
	EvtPlayerScored        = "player_scored"
	EvtKicked              = "kicked"
	EvtLobbyClosed         = "lobby_closed"
	EvtStartFailed         = "start_failed"
	EvtJoinFailed          = "join_failed"
	EvtPlayerLeftInResults = "player_left_in_results"
	EvtConnectedError      = "connected_error"
)

// Event is the closed set of inbound messages. Anything the decoder does
// not recognise comes back as Unknown.
type Event interface {
	EventType() string
	isEvent()
}

type Ping struct {
	Type string `json:"type"`
}

// LobbyEntered is lobby_created or lobby_joined.
type LobbyEntered struct {
	Type  string `json:"type"`
	Lobby *Lobby `json:"lobby"`
}

type RematchStarted struct {
	Type   string   `json:"type"`
	Images []string `json:"images"`
}

type GameStarted struct {
	Type   string   `json:"type"`
	Images []string `json:"images"`
}

// LobbyChanged is any event whose only effect is a fresh lobby snapshot:
// player_joined, player_left, player_ready_changed, end_turn,
// update_lobby and player_kicked.
type LobbyChanged struct {
	Type  string `json:"type"`
	Lobby *Lobby `json:"lobby"`
}

type NewLobby struct {
	Type          string  `json:"type"`
	PublicLobbies []Lobby `json:"public_lobbies"`
}

type SelectionComplete struct {
	Type string `json:"type"`
}

type IncorrectGuess struct {
	Type string `json:"type"`
}

type CorrectGuess struct {
	Type string `json:"type"`
}

type PlayerScored struct {
	Type string `json:"type"`
}

// LobbyExited is kicked or lobby_closed.
type LobbyExited struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// CommandFailed is start_failed or join_failed.
type CommandFailed struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

type PlayerLeftInResults struct {
	Type string `json:"type"`
}

type ConnectedError struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// Unknown keeps the raw frame of an unrecognised event type.
type Unknown struct {
	Type string
	Raw  json.RawMessage
}

func (e Ping) EventType() string                { return e.Type }
func (e LobbyEntered) EventType() string        { return e.Type }
func (e RematchStarted) EventType() string      { return e.Type }
func (e GameStarted) EventType() string         { return e.Type }
func (e LobbyChanged) EventType() string        { return e.Type }
func (e NewLobby) EventType() string            { return e.Type }
func (e SelectionComplete) EventType() string   { return e.Type }
func (e IncorrectGuess) EventType() string      { return e.Type }
func (e CorrectGuess) EventType() string        { return e.Type }
func (e PlayerScored) EventType() string        { return e.Type }
func (e LobbyExited) EventType() string         { return e.Type }
func (e CommandFailed) EventType() string       { return e.Type }
func (e PlayerLeftInResults) EventType() string { return e.Type }
func (e ConnectedError) EventType() string      { return e.Type }
func (e Unknown) EventType() string             { return e.Type }

func (Ping) isEvent()                {}
func (LobbyEntered) isEvent()        {}
func (RematchStarted) isEvent()      {}
func (GameStarted) isEvent()         {}
func (LobbyChanged) isEvent()        {}
func (NewLobby) isEvent()            {}
func (SelectionComplete) isEvent()   {}
func (IncorrectGuess) isEvent()      {}
func (CorrectGuess) isEvent()        {}
func (PlayerScored) isEvent()        {}
func (LobbyExited) isEvent()         {}
func (CommandFailed) isEvent()       {}
func (PlayerLeftInResults) isEvent() {}
func (ConnectedError) isEvent()      {}
func (Unknown) isEvent()             {}

type envelope struct {
	Type string `json:"type"`
}

// Decode parses one inbound frame.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("protocol: decode envelope: %w", err)
	}
	if env.Type == "" {
		return nil, ErrMissingType
	}

	var ev Event
	var err error

	switch env.Type {
	case EvtPing:
		ev = Ping{Type: env.Type}
	case EvtLobbyCreated, EvtLobbyJoined:
		ev, err = decodeAs[LobbyEntered](data)
	case EvtRematchStarted:
		ev, err = decodeAs[RematchStarted](data)
	case EvtGameStarted:
		ev, err = decodeAs[GameStarted](data)
	case EvtPlayerJoined, EvtPlayerLeft, EvtPlayerReadyChanged, EvtEndTurn, EvtUpdateLobby, EvtPlayerKicked:
		ev, err = decodeAs[LobbyChanged](data)
	case EvtNewLobby:
		ev, err = decodeAs[NewLobby](data)
	case EvtSelectionComplete:
		ev = SelectionComplete{Type: env.Type}
	case EvtIncorrectGuess:
		ev = IncorrectGuess{Type: env.Type}
	case EvtCorrectGuess:
		ev = CorrectGuess{Type: env.Type}
	case EvtPlayerScored:
		ev = PlayerScored{Type: env.Type}
	case EvtKicked, EvtLobbyClosed:
		ev, err = decodeAs[LobbyExited](data)
	case EvtStartFailed, EvtJoinFailed:
		ev, err = decodeAs[CommandFailed](data)
	case EvtPlayerLeftInResults:
		ev = PlayerLeftInResults{Type: env.Type}
	case EvtConnectedError:
		ev, err = decodeAs[ConnectedError](data)
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		ev = Unknown{Type: env.Type, Raw: raw}
	}
	if err != nil {
		return nil, fmt.Errorf("protocol: decode %s: %w", env.Type, err)
	}

	return ev, nil
}

func decodeAs[T Event](data []byte) (Event, error) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	return out, nil
}
