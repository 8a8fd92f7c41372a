/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"context"

	"github.com/Seednode/khawawish/protocol"
)

// CreateLobbyRequest is the payload of create_lobby. A nil Password
// creates an open lobby.
type CreateLobbyRequest struct {
	MaxImages int
	LobbyName string
	Password  *string
	IsPrivate bool
}

func (c *Client) CreateLobby(ctx context.Context, req CreateLobbyRequest) error {
	return c.issue(ctx, protocol.NewCreateLobby(req.MaxImages, req.LobbyName, req.Password, req.IsPrivate))
}

func (c *Client) JoinLobby(ctx context.Context, lobbyID string, password *string) error {
	return c.issue(ctx, protocol.NewJoinLobby(lobbyID, password))
}

func (c *Client) Ready(ctx context.Context) error {
	return c.issue(ctx, protocol.NewReady())
}

// StartGame asks the server to start; suppressed with fewer than two
// players in the lobby.
func (c *Client) StartGame(ctx context.Context) error {
	return c.issue(ctx, protocol.NewStartGame(false))
}

// Rematch is start_game with isRematch set. Local state is left alone
// until rematch_started arrives.
func (c *Client) Rematch(ctx context.Context) error {
	return c.issue(ctx, protocol.NewStartGame(true))
}

func (c *Client) SelectOwnCharacter(ctx context.Context, character string) error {
	return c.issue(ctx, protocol.NewSelectOwnCharacter(character))
}

func (c *Client) DiscardCharacter(ctx context.Context, character string) error {
	return c.issue(ctx, protocol.NewDiscardCharacter(character))
}

// Guess is only sent while it is the local user's turn.
func (c *Client) Guess(ctx context.Context, character string) error {
	return c.issue(ctx, protocol.NewGuess(character))
}

func (c *Client) EndTurn(ctx context.Context) error {
	return c.issue(ctx, protocol.EndTurn())
}

func (c *Client) KickPlayer(ctx context.Context, userID string) error {
	return c.issue(ctx, protocol.NewKickPlayer(userID))
}

func (c *Client) LeaveLobby(ctx context.Context) error {
	return c.issue(ctx, protocol.NewLeaveLobby(false))
}

// LeaveResults leaves from the results screen so the opponent is told
// with player_left_in_results.
func (c *Client) LeaveResults(ctx context.Context) error {
	return c.issue(ctx, protocol.NewLeaveLobby(true))
}

func (c *Client) issue(ctx context.Context, cmd protocol.Command) error {
	return c.do(ctx, func(s *State) Effects {
		return s.Prepare(c.opts.UserID, cmd)
	})
}
