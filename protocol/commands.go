/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package protocol

import (
	"encoding/json"
	"errors"
)

// Command type tags, client → server.
const (
	CmdSign               = "sign"
	CmdPong               = "pong"
	CmdCreateLobby        = "create_lobby"
	CmdJoinLobby          = "join_lobby"
	CmdReady              = "ready"
	CmdStartGame          = "start_game"
	CmdSelectOwnCharacter = "select_own_character"
	CmdDiscardCharacter   = "discard_character"
	CmdGuess              = "guess"
	CmdEndTurn            = "end_turn"
	CmdKickPlayer         = "kick_player"
	CmdLeaveLobby         = "leave_lobby"
)

var ErrMissingType = errors.New("protocol: message has no type")

// Command is any outbound message.
type Command interface {
	CommandType() string
}

// Bare covers commands with no payload (sign, pong, end_turn).
type Bare struct {
	Type string `json:"type"`
}

func (c Bare) CommandType() string { return c.Type }

type CreateLobby struct {
	Type      string  `json:"type"`
	MaxImages int     `json:"maxImages"`
	LobbyName string  `json:"lobbyName"`
	Password  *string `json:"password"`
	IsPrivate bool    `json:"isPrivate"`
}

func (c CreateLobby) CommandType() string { return c.Type }

type JoinLobby struct {
	Type     string  `json:"type"`
	LobbyID  string  `json:"lobby_id"`
	Password *string `json:"password"`
}

func (c JoinLobby) CommandType() string { return c.Type }

type Ready struct {
	Type  string `json:"type"`
	Ready bool   `json:"ready"`
}

func (c Ready) CommandType() string { return c.Type }

type StartGame struct {
	Type      string `json:"type"`
	IsRematch bool   `json:"isRematch,omitempty"`
}

func (c StartGame) CommandType() string { return c.Type }

// Character carries select_own_character, discard_character and guess.
type Character struct {
	Type      string `json:"type"`
	Character string `json:"character"`
}

func (c Character) CommandType() string { return c.Type }

type KickPlayer struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

func (c KickPlayer) CommandType() string { return c.Type }

type LeaveLobby struct {
	Type     string `json:"type"`
	InResult bool   `json:"in_result,omitempty"`
}

func (c LeaveLobby) CommandType() string { return c.Type }

func Sign() Command    { return Bare{Type: CmdSign} }
func Pong() Command    { return Bare{Type: CmdPong} }
func EndTurn() Command { return Bare{Type: CmdEndTurn} }

func NewCreateLobby(maxImages int, name string, password *string, private bool) Command {
	return CreateLobby{Type: CmdCreateLobby, MaxImages: maxImages, LobbyName: name, Password: password, IsPrivate: private}
}

func NewJoinLobby(lobbyID string, password *string) Command {
	return JoinLobby{Type: CmdJoinLobby, LobbyID: lobbyID, Password: password}
}

func NewReady() Command { return Ready{Type: CmdReady, Ready: true} }

func NewStartGame(rematch bool) Command {
	return StartGame{Type: CmdStartGame, IsRematch: rematch}
}

func NewSelectOwnCharacter(character string) Command {
	return Character{Type: CmdSelectOwnCharacter, Character: character}
}

func NewDiscardCharacter(character string) Command {
	return Character{Type: CmdDiscardCharacter, Character: character}
}

func NewGuess(character string) Command {
	return Character{Type: CmdGuess, Character: character}
}

func NewKickPlayer(userID string) Command {
	return KickPlayer{Type: CmdKickPlayer, UserID: userID}
}

func NewLeaveLobby(inResult bool) Command {
	return LeaveLobby{Type: CmdLeaveLobby, InResult: inResult}
}

// EncodeCommand marshals c, refusing commands without a type tag.
func EncodeCommand(c Command) ([]byte, error) {
	if c == nil || c.CommandType() == "" {
		return nil, ErrMissingType
	}

	return json.Marshal(c)
}

// ClientMessage is the union of every command field, used by servers
// reading commands off the wire.
type ClientMessage struct {
	Type      string  `json:"type"`
	MaxImages int     `json:"maxImages,omitempty"` // create_lobby
	LobbyName string  `json:"lobbyName,omitempty"` // create_lobby
	Password  *string `json:"password,omitempty"`  // create_lobby / join_lobby
	IsPrivate bool    `json:"isPrivate,omitempty"` // create_lobby
	LobbyID   string  `json:"lobby_id,omitempty"`  // join_lobby
	Ready     bool    `json:"ready,omitempty"`     // ready
	IsRematch bool    `json:"isRematch,omitempty"` // start_game
	Character string  `json:"character,omitempty"` // select / discard / guess
	UserID    string  `json:"user_id,omitempty"`   // kick_player
	InResult  bool    `json:"in_result,omitempty"` // leave_lobby
}
