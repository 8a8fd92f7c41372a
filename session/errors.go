/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import "errors"

var (
	ErrNoToken           = errors.New("session: auth token required")
	ErrNoBaseURL         = errors.New("session: base url required")
	ErrNotSigned         = errors.New("session: connection not signed")
	ErrClosed            = errors.New("session: closed")
	ErrDegraded          = errors.New("session: connection degraded")
	ErrNoLobby           = errors.New("session: not in a lobby")
	ErrNotEnoughPlayers  = errors.New("session: at least 2 players required")
	ErrNotYourTurn       = errors.New("session: not your turn")
	ErrWrongPhase        = errors.New("session: wrong phase for command")
	ErrNotOwner          = errors.New("session: only the lobby owner may do that")
	ErrInvalidTransition = errors.New("session: invalid phase transition")
)
