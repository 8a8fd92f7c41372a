/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/khawawish/protocol"
)

func lobbyFixture(id string, count int, turn string) *protocol.Lobby {
	l := &protocol.Lobby{
		LobbyID:     id,
		LobbyName:   "Test",
		MaxImages:   25,
		Owner:       &protocol.LobbyPlayer{UserID: "u1", Username: "ann", DisplayName: "Ann"},
		PlayerCount: count,
		UserTurn:    turn,
	}
	if count > 1 {
		l.SecondPlayer = &protocol.LobbyPlayer{UserID: "u2", Username: "bob", DisplayName: "Bob"}
	}

	return l
}

func guessingState(turn string) State {
	s := NewState()
	s.Apply(protocol.LobbyEntered{Type: protocol.EvtLobbyCreated, Lobby: lobbyFixture("L1", 2, turn)})
	s.Apply(protocol.GameStarted{Type: protocol.EvtGameStarted, Images: []string{"a", "b", "c"}})
	s.Apply(protocol.SelectionComplete{Type: protocol.EvtSelectionComplete})

	return s
}

func TestLobbyEventsReplaceVerbatim(t *testing.T) {
	s := NewState()
	s.Apply(protocol.LobbyEntered{Type: protocol.EvtLobbyCreated, Lobby: lobbyFixture("L1", 1, "")})

	withReady := lobbyFixture("L1", 2, "u1")
	withReady.SecondPlayer.IsReady = true

	sequence := []protocol.LobbyChanged{
		{Type: protocol.EvtPlayerJoined, Lobby: lobbyFixture("L1", 2, "")},
		{Type: protocol.EvtPlayerReadyChanged, Lobby: withReady},
		{Type: protocol.EvtEndTurn, Lobby: lobbyFixture("L1", 2, "u2")},
		{Type: protocol.EvtPlayerLeft, Lobby: lobbyFixture("L1", 1, "")},
		{Type: protocol.EvtUpdateLobby, Lobby: &protocol.Lobby{LobbyID: "L1", LobbyName: "renamed"}},
		{Type: protocol.EvtPlayerKicked, Lobby: lobbyFixture("L1", 1, "u1")},
	}

	for _, ev := range sequence {
		t.Run(ev.Type, func(t *testing.T) {
			eff := s.Apply(ev)
			require.NoError(t, eff.Err)
			assert.Equal(t, ev.Lobby, s.Lobby)
			assert.NotSame(t, ev.Lobby, s.Lobby)
		})
	}
}

func TestDuplicateUpdateLobbyIsIdempotent(t *testing.T) {
	ev := protocol.LobbyChanged{Type: protocol.EvtUpdateLobby, Lobby: lobbyFixture("L1", 2, "u2")}

	once := NewState()
	once.Apply(ev)

	twice := NewState()
	twice.Apply(ev)
	twice.Apply(ev)

	assert.Equal(t, once, twice)
}

func TestPhaseTransitions(t *testing.T) {
	cases := []struct {
		name  string
		from  Phase
		event protocol.Event
		want  Phase
		err   bool
	}{
		{"selection to guessing", PhaseSelection, protocol.SelectionComplete{Type: protocol.EvtSelectionComplete}, PhaseGuessing, false},
		{"guessing to results on win", PhaseGuessing, protocol.CorrectGuess{Type: protocol.EvtCorrectGuess}, PhaseResults, false},
		{"guessing to results on loss", PhaseGuessing, protocol.PlayerScored{Type: protocol.EvtPlayerScored}, PhaseResults, false},
		{"results to selection on rematch", PhaseResults, protocol.RematchStarted{Type: protocol.EvtRematchStarted}, PhaseSelection, false},
		{"guessing to selection on rematch", PhaseGuessing, protocol.RematchStarted{Type: protocol.EvtRematchStarted}, PhaseSelection, false},
		{"results to selection on lobby entry", PhaseResults, protocol.LobbyEntered{Type: protocol.EvtLobbyJoined, Lobby: lobbyFixture("L2", 2, "")}, PhaseSelection, false},
		{"selection cannot jump to results", PhaseSelection, protocol.CorrectGuess{Type: protocol.EvtCorrectGuess}, PhaseSelection, true},
		{"selection cannot lose", PhaseSelection, protocol.PlayerScored{Type: protocol.EvtPlayerScored}, PhaseSelection, true},
		{"results cannot go back to guessing", PhaseResults, protocol.SelectionComplete{Type: protocol.EvtSelectionComplete}, PhaseResults, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewState()
			s.Phase = tc.from

			eff := s.Apply(tc.event)

			assert.Equal(t, tc.want, s.Phase)
			if tc.err {
				assert.ErrorIs(t, eff.Err, ErrInvalidTransition)
				assert.Equal(t, StatusNone, s.Status)
			} else {
				assert.NoError(t, eff.Err)
			}
		})
	}
}

func TestLoseThenRematch(t *testing.T) {
	s := guessingState("u1")
	s.OwnImage = "a"
	s.Discarded = []string{"b"}

	s.Apply(protocol.PlayerScored{Type: protocol.EvtPlayerScored})
	assert.Equal(t, StatusLose, s.Status)
	assert.Equal(t, PhaseResults, s.Phase)

	images := []string{"x", "y", "z", "w"}
	s.Apply(protocol.RematchStarted{Type: protocol.EvtRematchStarted, Images: images})

	assert.Equal(t, StatusNone, s.Status)
	assert.Equal(t, PhaseSelection, s.Phase)
	assert.Equal(t, images, s.Images)
	assert.Empty(t, s.OwnImage)
	assert.Empty(t, s.Discarded)
}

func TestPingOnlyRepliesPong(t *testing.T) {
	s := guessingState("u1")
	before := s.Clone()

	eff := s.Apply(protocol.Ping{Type: protocol.EvtPing})

	assert.Equal(t, protocol.Pong(), eff.Send)
	assert.Empty(t, eff.Notices)
	assert.Empty(t, eff.Navigate)
	assert.Equal(t, before, s)
}

func TestExitEventsClearLobby(t *testing.T) {
	for _, ev := range []protocol.Event{
		protocol.LobbyExited{Type: protocol.EvtKicked},
		protocol.LobbyExited{Type: protocol.EvtLobbyClosed},
		protocol.PlayerLeftInResults{Type: protocol.EvtPlayerLeftInResults},
	} {
		t.Run(ev.EventType(), func(t *testing.T) {
			s := guessingState("u1")
			s.Status = StatusWin

			eff := s.Apply(ev)

			assert.Nil(t, s.Lobby)
			assert.Equal(t, StatusNone, s.Status)
			assert.Equal(t, ViewRooms, s.View)
			assert.Equal(t, ViewRooms, eff.Navigate)
		})
	}
}

func TestNoticeOnlyEventsLeaveStateAlone(t *testing.T) {
	for _, ev := range []protocol.Event{
		protocol.IncorrectGuess{Type: protocol.EvtIncorrectGuess},
		protocol.CommandFailed{Type: protocol.EvtStartFailed},
		protocol.CommandFailed{Type: protocol.EvtJoinFailed, Reason: "Lobby is full"},
	} {
		t.Run(ev.EventType(), func(t *testing.T) {
			s := guessingState("u1")
			before := s.Clone()

			eff := s.Apply(ev)

			assert.Equal(t, before, s)
			require.Len(t, eff.Notices, 1)
			assert.Equal(t, NoticeError, eff.Notices[0].Level)
		})
	}

	s := NewState()
	eff := s.Apply(protocol.CommandFailed{Type: protocol.EvtJoinFailed, Reason: "Lobby is full"})
	assert.Equal(t, "Lobby is full", eff.Notices[0].Message)
}

func TestConnectedErrorIsSticky(t *testing.T) {
	s := NewState()
	s.Apply(protocol.ConnectedError{Type: protocol.EvtConnectedError})
	require.True(t, s.Degraded)

	s.Apply(protocol.LobbyEntered{Type: protocol.EvtLobbyJoined, Lobby: lobbyFixture("L1", 2, "")})
	s.Apply(protocol.LobbyExited{Type: protocol.EvtLobbyClosed})
	assert.True(t, s.Degraded)

	for _, cmd := range []protocol.Command{
		protocol.NewCreateLobby(25, "Test", nil, false),
		protocol.NewJoinLobby("L1", nil),
	} {
		eff := s.Prepare("u1", cmd)
		assert.ErrorIs(t, eff.Err, ErrDegraded)
		assert.Nil(t, eff.Send)
	}
}

func TestTurnCommandsSuppressedOffTurn(t *testing.T) {
	for _, cmd := range []protocol.Command{protocol.NewGuess("a"), protocol.EndTurn()} {
		t.Run(cmd.CommandType(), func(t *testing.T) {
			s := guessingState("u2")
			before := s.Clone()

			eff := s.Prepare("u1", cmd)

			assert.ErrorIs(t, eff.Err, ErrNotYourTurn)
			assert.Nil(t, eff.Send)
			assert.Equal(t, before, s)

			eff = s.Prepare("u2", cmd)
			assert.NoError(t, eff.Err)
			assert.Equal(t, cmd, eff.Send)
		})
	}
}

func TestGuessOutsideGuessingIsRefused(t *testing.T) {
	s := NewState()
	s.Apply(protocol.LobbyEntered{Type: protocol.EvtLobbyCreated, Lobby: lobbyFixture("L1", 2, "u1")})

	eff := s.Prepare("u1", protocol.NewGuess("a"))
	assert.ErrorIs(t, eff.Err, ErrWrongPhase)
}

func TestStartNeedsTwoPlayers(t *testing.T) {
	s := NewState()
	eff := s.Prepare("u1", protocol.NewStartGame(false))
	assert.ErrorIs(t, eff.Err, ErrNoLobby)

	s.Apply(protocol.LobbyEntered{Type: protocol.EvtLobbyCreated, Lobby: lobbyFixture("L1", 1, "")})
	for _, rematch := range []bool{false, true} {
		eff = s.Prepare("u1", protocol.NewStartGame(rematch))
		assert.ErrorIs(t, eff.Err, ErrNotEnoughPlayers)
		assert.Nil(t, eff.Send)
		require.Len(t, eff.Notices, 1)
		assert.Equal(t, msgNotEnoughPlayers, eff.Notices[0].Message)
	}

	s.Apply(protocol.LobbyChanged{Type: protocol.EvtPlayerJoined, Lobby: lobbyFixture("L1", 2, "")})
	eff = s.Prepare("u1", protocol.NewStartGame(false))
	assert.NoError(t, eff.Err)
	assert.NotNil(t, eff.Send)
}

func TestSelectionCacheIsLocal(t *testing.T) {
	s := NewState()
	s.Apply(protocol.LobbyEntered{Type: protocol.EvtLobbyCreated, Lobby: lobbyFixture("L1", 2, "u1")})

	eff := s.Prepare("u1", protocol.NewDiscardCharacter("b"))
	assert.ErrorIs(t, eff.Err, ErrWrongPhase)

	eff = s.Prepare("u1", protocol.NewSelectOwnCharacter("a"))
	require.NoError(t, eff.Err)
	assert.Empty(t, s.OwnImage, "nothing is cached until the command is written")
	s.Sent(eff.Send)
	assert.Equal(t, "a", s.OwnImage)

	s.Apply(protocol.SelectionComplete{Type: protocol.EvtSelectionComplete})

	eff = s.Prepare("u1", protocol.NewSelectOwnCharacter("c"))
	assert.ErrorIs(t, eff.Err, ErrWrongPhase)
	assert.Equal(t, "a", s.OwnImage)

	for range 2 {
		eff = s.Prepare("u1", protocol.NewDiscardCharacter("b"))
		require.NoError(t, eff.Err)
		s.Sent(eff.Send)
	}
	assert.Equal(t, []string{"b"}, s.Discarded)
	assert.True(t, s.IsDiscarded("b"))
}

func TestKickRequiresOwnership(t *testing.T) {
	s := NewState()
	s.Apply(protocol.LobbyEntered{Type: protocol.EvtLobbyJoined, Lobby: lobbyFixture("L1", 2, "")})

	eff := s.Prepare("u2", protocol.NewKickPlayer("u1"))
	assert.ErrorIs(t, eff.Err, ErrNotOwner)

	eff = s.Prepare("u1", protocol.NewKickPlayer("u2"))
	assert.NoError(t, eff.Err)
}

func TestLeaveClearsLobbyLocally(t *testing.T) {
	s := guessingState("u1")

	eff := s.Prepare("u1", protocol.NewLeaveLobby(true))

	assert.Equal(t, protocol.NewLeaveLobby(true), eff.Send)
	assert.Nil(t, s.Lobby)
	assert.Equal(t, ViewRooms, eff.Navigate)
}
