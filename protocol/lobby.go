/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package protocol

// LobbyPlayer is one seat in a lobby.
type LobbyPlayer struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	IsReady     bool   `json:"is_ready"`
	Score       int    `json:"score"`
}

// Lobby is the server-owned snapshot of a matchmaking room. Clients
// replace their copy wholesale whenever a lobby-scoped event arrives.
type Lobby struct {
	LobbyID      string       `json:"lobby_id"`
	LobbyName    string       `json:"lobby_name"`
	MaxImages    int          `json:"max_images"`
	Seed         string       `json:"seed,omitempty"`
	Owner        *LobbyPlayer `json:"owner"`
	SecondPlayer *LobbyPlayer `json:"second_player"`
	HasPassword  bool         `json:"has_password"`
	IsPrivate    bool         `json:"is_private"`
	PlayerCount  int          `json:"player_count"`
	UserTurn     string       `json:"user_turn,omitempty"`
	GameStarted  bool         `json:"game_started"`
	CreatedAt    string       `json:"created_at,omitempty"`
}

// Clone returns a deep copy so callers can hold a snapshot safely.
func (l *Lobby) Clone() *Lobby {
	if l == nil {
		return nil
	}

	out := *l
	if l.Owner != nil {
		owner := *l.Owner
		out.Owner = &owner
	}
	if l.SecondPlayer != nil {
		second := *l.SecondPlayer
		out.SecondPlayer = &second
	}

	return &out
}

// IsOwner reports whether userID owns the lobby.
func (l *Lobby) IsOwner(userID string) bool {
	return l != nil && l.Owner != nil && userID != "" && l.Owner.UserID == userID
}

// Seat returns the seat held by userID, if any.
func (l *Lobby) Seat(userID string) *LobbyPlayer {
	if l == nil || userID == "" {
		return nil
	}
	if l.Owner != nil && l.Owner.UserID == userID {
		return l.Owner
	}
	if l.SecondPlayer != nil && l.SecondPlayer.UserID == userID {
		return l.SecondPlayer
	}

	return nil
}

// User is the account profile returned by the REST collaborator.
type User struct {
	UserID        string  `json:"user_id"`
	Username      string  `json:"username"`
	DisplayName   string  `json:"display_name"`
	Email         string  `json:"email,omitempty"`
	AvatarURL     string  `json:"avatar_url,omitempty"`
	BannerURL     string  `json:"banner_url,omitempty"`
	Bio           string  `json:"bio,omitempty"`
	GamesPlayed   int     `json:"games_played"`
	GamesWon      int     `json:"games_won"`
	TotalScore    int     `json:"total_score"`
	BestStreak    int     `json:"best_streak"`
	CurrentStreak int     `json:"current_streak"`
	WinRate       float64 `json:"win_rate"`
	AverageScore  float64 `json:"average_score"`
	IsVerified    bool    `json:"is_verified"`
	InGame        bool    `json:"in_game"`
	CreatedAt     string  `json:"created_at,omitempty"`
}
