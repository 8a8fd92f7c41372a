/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"cmp"
	"crypto/rand"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Seednode/khawawish/api"
	"github.com/Seednode/khawawish/protocol"
)

const (
	defaultPageSize    = 20
	maxPageSize        = 100
	defaultSearchLimit = 20
	maxSearchLimit     = 50
)

type account struct {
	user protocol.User
	hash []byte
}

// Accounts is the peer's in-memory user registry and token issuer.
type Accounts struct {
	mu     sync.RWMutex
	byID   map[string]*account
	byName map[string]string

	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

func newAccounts(secret []byte, ttl time.Duration) (*Accounts, error) {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
	}

	return &Accounts{
		byID:   make(map[string]*account),
		byName: make(map[string]string),
		secret: secret,
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}, nil
}

func nameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func (a *Accounts) Register(req api.RegisterRequest) (protocol.User, string, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return protocol.User{}, "", errMissingFields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), a.cost)
	if err != nil {
		return protocol.User{}, "", err
	}

	a.mu.Lock()

	if _, ok := a.byName[nameKey(username)]; ok {
		a.mu.Unlock()
		return protocol.User{}, "", errUsernameTaken
	}
	if req.Email != "" && a.emailTakenLocked(req.Email, "") {
		a.mu.Unlock()
		return protocol.User{}, "", errEmailTaken
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = username
	}

	acct := &account{
		user: protocol.User{
			UserID:      uuid.NewString(),
			Username:    username,
			DisplayName: displayName,
			Email:       req.Email,
			CreatedAt:   a.now().UTC().Format(time.RFC3339),
		},
		hash: hash,
	}
	a.byID[acct.user.UserID] = acct
	a.byName[nameKey(username)] = acct.user.UserID
	user := acct.user

	a.mu.Unlock()

	token, err := a.issue(user.UserID)
	if err != nil {
		return protocol.User{}, "", err
	}

	return user, token, nil
}

func (a *Accounts) Login(username, password string) (protocol.User, string, error) {
	a.mu.RLock()
	id, ok := a.byName[nameKey(username)]
	var acct account
	if ok {
		acct = *a.byID[id]
	}
	a.mu.RUnlock()

	if !ok {
		return protocol.User{}, "", errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return protocol.User{}, "", errBadCredentials
	}

	token, err := a.issue(id)
	if err != nil {
		return protocol.User{}, "", err
	}

	return acct.user, token, nil
}

func (a *Accounts) issue(userID string) (string, error) {
	now := a.now()

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify returns the user id a token was issued to.
func (a *Accounts) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims

	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", errors.Join(errInvalidToken, err)
	}

	a.mu.RLock()
	_, ok := a.byID[claims.Subject]
	a.mu.RUnlock()

	if !ok {
		return "", errInvalidToken
	}

	return claims.Subject, nil
}

func (a *Accounts) Get(userID string) (protocol.User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	acct, ok := a.byID[userID]
	if !ok {
		return protocol.User{}, false
	}

	return acct.user, true
}

func (a *Accounts) ByUsername(username string) (protocol.User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	id, ok := a.byName[nameKey(username)]
	if !ok {
		return protocol.User{}, false
	}

	return a.byID[id].user, true
}

func (a *Accounts) emailTakenLocked(email, except string) bool {
	for id, acct := range a.byID {
		if id != except && strings.EqualFold(acct.user.Email, email) {
			return true
		}
	}

	return false
}

func (a *Accounts) Edit(userID string, edit api.ProfileEdit) (protocol.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	acct, ok := a.byID[userID]
	if !ok {
		return protocol.User{}, errUserNotFound
	}

	if username := strings.TrimSpace(edit.Username); username != "" && nameKey(username) != nameKey(acct.user.Username) {
		if _, taken := a.byName[nameKey(username)]; taken {
			return protocol.User{}, errUsernameTaken
		}
		delete(a.byName, nameKey(acct.user.Username))
		a.byName[nameKey(username)] = userID
		acct.user.Username = username
	}

	if edit.Email != "" && !strings.EqualFold(edit.Email, acct.user.Email) {
		if a.emailTakenLocked(edit.Email, userID) {
			return protocol.User{}, errEmailTaken
		}
		acct.user.Email = edit.Email
	}

	if edit.DisplayName != "" {
		acct.user.DisplayName = edit.DisplayName
	}
	acct.user.AvatarURL = edit.AvatarURL
	acct.user.BannerURL = edit.BannerURL
	acct.user.Bio = edit.Bio

	return acct.user, nil
}

func (a *Accounts) SetInGame(inGame bool, userIDs ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, id := range userIDs {
		if acct, ok := a.byID[id]; ok {
			acct.user.InGame = inGame
		}
	}
}

// RecordResult updates both players' stats after a round.
func (a *Accounts) RecordResult(winnerID, loserID string, score int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if w, ok := a.byID[winnerID]; ok {
		u := &w.user
		u.GamesPlayed++
		u.GamesWon++
		u.TotalScore += score
		u.CurrentStreak++
		u.BestStreak = max(u.BestStreak, u.CurrentStreak)
		refreshRates(u)
	}

	if l, ok := a.byID[loserID]; ok {
		u := &l.user
		u.GamesPlayed++
		u.CurrentStreak = 0
		refreshRates(u)
	}
}

func refreshRates(u *protocol.User) {
	if u.GamesPlayed == 0 {
		u.WinRate, u.AverageScore = 0, 0
		return
	}

	u.WinRate = float64(u.GamesWon) / float64(u.GamesPlayed)
	u.AverageScore = float64(u.TotalScore) / float64(u.GamesPlayed)
}

func (a *Accounts) Search(q string, limit int) []api.SearchResult {
	q = strings.ToLower(strings.TrimSpace(q))
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)

	a.mu.RLock()
	var hits []protocol.User
	for _, acct := range a.byID {
		if strings.Contains(strings.ToLower(acct.user.Username), q) ||
			strings.Contains(strings.ToLower(acct.user.DisplayName), q) {
			hits = append(hits, acct.user)
		}
	}
	a.mu.RUnlock()

	slices.SortFunc(hits, func(x, y protocol.User) int {
		return cmp.Compare(strings.ToLower(x.Username), strings.ToLower(y.Username))
	})

	out := make([]api.SearchResult, 0, min(limit, len(hits)))
	for _, u := range hits[:min(limit, len(hits))] {
		out = append(out, api.SearchResult{
			UserID:      u.UserID,
			Username:    u.Username,
			DisplayName: u.DisplayName,
			AvatarURL:   u.AvatarURL,
			BannerURL:   u.BannerURL,
			GamesWon:    u.GamesWon,
			TotalScore:  u.TotalScore,
			InGame:      u.InGame,
			IsVerified:  u.IsVerified,
		})
	}

	return out
}

func rankValue(u protocol.User, sortBy string) float64 {
	switch sortBy {
	case api.SortTotalScore:
		return float64(u.TotalScore)
	case api.SortBestStreak:
		return float64(u.BestStreak)
	case api.SortAverageScore:
		return u.AverageScore
	case api.SortGamesPlayed:
		return float64(u.GamesPlayed)
	default:
		return float64(u.GamesWon)
	}
}

func (a *Accounts) Leaderboard(q api.RankQuery) api.RankResponse {
	page := max(q.Page, 1)
	size := q.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	size = min(size, maxPageSize)

	a.mu.RLock()
	var users []protocol.User
	for _, acct := range a.byID {
		if acct.user.GamesPlayed >= q.MinGames {
			users = append(users, acct.user)
		}
	}
	a.mu.RUnlock()

	slices.SortFunc(users, func(x, y protocol.User) int {
		c := cmp.Compare(rankValue(x, q.SortBy), rankValue(y, q.SortBy))
		if q.Order != "asc" {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(strings.ToLower(x.Username), strings.ToLower(y.Username))
	})

	resp := api.RankResponse{
		Entries:    []api.RankEntry{},
		TotalCount: len(users),
		Page:       page,
		PageSize:   size,
		TotalPages: (len(users) + size - 1) / size,
	}

	start := (page - 1) * size
	for i := start; i < len(users) && i < start+size; i++ {
		u := users[i]
		resp.Entries = append(resp.Entries, api.RankEntry{
			Rank:         i + 1,
			UserID:       u.UserID,
			Username:     u.Username,
			DisplayName:  u.DisplayName,
			AvatarURL:    u.AvatarURL,
			GamesWon:     u.GamesWon,
			TotalScore:   u.TotalScore,
			BestStreak:   u.BestStreak,
			GamesPlayed:  u.GamesPlayed,
			WinRate:      u.WinRate,
			AverageScore: u.AverageScore,
		})
	}

	return resp
}
