/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeKnownEvents(t *testing.T) {
	cases := []struct {
		name  string
		frame string
		check func(t *testing.T, ev Event)
	}{
		{
			name:  "ping",
			frame: `{"type":"ping"}`,
			check: func(t *testing.T, ev Event) {
				assert.IsType(t, Ping{}, ev)
			},
		},
		{
			name:  "lobby joined carries lobby",
			frame: `{"type":"lobby_joined","lobby":{"lobby_id":"L1","lobby_name":"Test","player_count":2,"owner":{"user_id":"u1","username":"ann"},"second_player":null}}`,
			check: func(t *testing.T, ev Event) {
				entered, ok := ev.(LobbyEntered)
				require.True(t, ok)
				assert.Equal(t, EvtLobbyJoined, entered.Type)
				require.NotNil(t, entered.Lobby)
				assert.Equal(t, "L1", entered.Lobby.LobbyID)
				assert.Equal(t, "u1", entered.Lobby.Owner.UserID)
				assert.Nil(t, entered.Lobby.SecondPlayer)
			},
		},
		{
			name:  "end_turn is a lobby snapshot",
			frame: `{"type":"end_turn","lobby":{"lobby_id":"L1","user_turn":"u2"}}`,
			check: func(t *testing.T, ev Event) {
				changed, ok := ev.(LobbyChanged)
				require.True(t, ok)
				assert.Equal(t, "u2", changed.Lobby.UserTurn)
			},
		},
		{
			name:  "rematch images",
			frame: `{"type":"rematch_started","images":["a.webp","b.webp"]}`,
			check: func(t *testing.T, ev Event) {
				assert.Equal(t, RematchStarted{Type: EvtRematchStarted, Images: []string{"a.webp", "b.webp"}}, ev)
			},
		},
		{
			name:  "listing",
			frame: `{"type":"new_lobby","public_lobbies":[{"lobby_id":"A"},{"lobby_id":"B"}]}`,
			check: func(t *testing.T, ev Event) {
				listing, ok := ev.(NewLobby)
				require.True(t, ok)
				assert.Len(t, listing.PublicLobbies, 2)
			},
		},
		{
			name:  "join failed reason",
			frame: `{"type":"join_failed","reason":"Lobby is full"}`,
			check: func(t *testing.T, ev Event) {
				assert.Equal(t, CommandFailed{Type: EvtJoinFailed, Reason: "Lobby is full"}, ev)
			},
		},
		{
			name:  "connected error message",
			frame: `{"type":"connected_error","message":"already connected"}`,
			check: func(t *testing.T, ev Event) {
				assert.Equal(t, ConnectedError{Type: EvtConnectedError, Message: "already connected"}, ev)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := Decode([]byte(tc.frame))
			require.NoError(t, err)
			tc.check(t, ev)
		})
	}
}

func TestDecodeUnknownTypeIsKept(t *testing.T) {
	frame := []byte(`{"type":"emote","emoji":"wave"}`)

	ev, err := Decode(frame)
	require.NoError(t, err)

	unknown, ok := ev.(Unknown)
	require.True(t, ok)
	assert.Equal(t, "emote", unknown.EventType())
	assert.JSONEq(t, string(frame), string(unknown.Raw))
}

func TestDecodeRejectsMalformedFrames(t *testing.T) {
	_, err := Decode([]byte(`{"lobby":{}}`))
	assert.ErrorIs(t, err, ErrMissingType)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"type":"game_started","images":"nope"}`))
	assert.Error(t, err)
}

func TestEncodeCommandShapes(t *testing.T) {
	cases := []struct {
		name string
		cmd  Command
		want string
	}{
		{"sign", Sign(), `{"type":"sign"}`},
		{"pong", Pong(), `{"type":"pong"}`},
		{"create without password", NewCreateLobby(25, "Test", nil, false), `{"type":"create_lobby","maxImages":25,"lobbyName":"Test","password":null,"isPrivate":false}`},
		{"join with password", NewJoinLobby("L1", ptr("hunter2")), `{"type":"join_lobby","lobby_id":"L1","password":"hunter2"}`},
		{"ready", NewReady(), `{"type":"ready","ready":true}`},
		{"start", NewStartGame(false), `{"type":"start_game"}`},
		{"rematch", NewStartGame(true), `{"type":"start_game","isRematch":true}`},
		{"guess", NewGuess("x.webp"), `{"type":"guess","character":"x.webp"}`},
		{"kick", NewKickPlayer("u2"), `{"type":"kick_player","user_id":"u2"}`},
		{"leave in results", NewLeaveLobby(true), `{"type":"leave_lobby","in_result":true}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := EncodeCommand(tc.cmd)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(data))
		})
	}

	_, err := EncodeCommand(Bare{})
	assert.ErrorIs(t, err, ErrMissingType)
}

func TestClientMessageReadsEveryCommand(t *testing.T) {
	data, err := EncodeCommand(NewCreateLobby(16, "Room", ptr("pw"), true))
	require.NoError(t, err)

	var msg ClientMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, CmdCreateLobby, msg.Type)
	assert.Equal(t, 16, msg.MaxImages)
	assert.Equal(t, "Room", msg.LobbyName)
	require.NotNil(t, msg.Password)
	assert.Equal(t, "pw", *msg.Password)
	assert.True(t, msg.IsPrivate)
}

func TestLobbyCloneIsDeep(t *testing.T) {
	l := &Lobby{LobbyID: "L1", Owner: &LobbyPlayer{UserID: "u1"}, SecondPlayer: &LobbyPlayer{UserID: "u2"}}

	c := l.Clone()
	c.Owner.IsReady = true
	c.SecondPlayer.Score = 3

	assert.False(t, l.Owner.IsReady)
	assert.Zero(t, l.SecondPlayer.Score)
	assert.True(t, l.IsOwner("u1"))
	assert.False(t, l.IsOwner("u2"))
	assert.Equal(t, "u2", l.Seat("u2").UserID)
	assert.Nil(t, l.Seat("u3"))

	var nilLobby *Lobby
	assert.Nil(t, nilLobby.Clone())
}

func ptr(s string) *string { return &s }
