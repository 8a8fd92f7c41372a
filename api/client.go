/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package api is a client for the Khawawish REST endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Seednode/khawawish/protocol"
)

const defaultTimeout = 15 * time.Second

var (
	ErrUnauthorized = errors.New("api: unauthorized")
	ErrNoBaseURL    = errors.New("api: base url is required")
)

// Error is a non-2xx response. Detail carries the server's "detail" field
// when it sent one.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Status, http.StatusText(e.Status), e.Detail)
	}

	return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
}

func (e *Error) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	return nil
}

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger

	// OnUnauthorized runs after any 401, typically to drop cached
	// credentials.
	OnUnauthorized func()
}

type Client struct {
	base   *url.URL
	http   *http.Client
	log    *zap.Logger
	onAuth func()

	mu    sync.RWMutex
	token string
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, ErrNoBaseURL
	}

	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Client{
		base:   base,
		http:   opts.HTTPClient,
		log:    opts.Logger.Named("api"),
		onAuth: opts.OnUnauthorized,
	}, nil
}

// SetToken sets the bearer token sent with every request. An empty token
// sends none.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.token
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) endpoint(p string, query url.Values) string {
	u := *c.base
	u.Path = path.Join(c.base.Path, p)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	return u.String()
}

func (c *Client) do(ctx context.Context, method, p string, query url.Values, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(p, query), body)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, p, err)
	}
	defer resp.Body.Close()

	c.log.Debug("request",
		zap.String("method", method),
		zap.String("path", p),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}

		var detail struct {
			Detail string `json:"detail"`
		}
		if data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil {
			if json.Unmarshal(data, &detail) == nil {
				apiErr.Detail = detail.Detail
			}
		}

		if resp.StatusCode == http.StatusUnauthorized && c.onAuth != nil {
			c.onAuth()
		}

		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s: %w", p, err)
	}

	return nil
}

func (c *Client) get(ctx context.Context, p string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, p, query, nil, "", out)
}

func (c *Client) post(ctx context.Context, p string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("api: encode %s: %w", p, err)
	}

	return c.do(ctx, http.MethodPost, p, nil, bytes.NewReader(data), "application/json", out)
}

// LobbyListing is the body of GET /lobbies.
type LobbyListing struct {
	PublicLobbies []protocol.Lobby `json:"public_lobbies"`
}

// PublicLobbies lists joinable lobbies.
func (c *Client) PublicLobbies(ctx context.Context) ([]protocol.Lobby, error) {
	var out LobbyListing
	if err := c.get(ctx, "/lobbies", nil, &out); err != nil {
		return nil, err
	}

	return out.PublicLobbies, nil
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	User        protocol.User `json:"user"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// Login authenticates and, on success, starts sending the new token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.post(ctx, "/auth/login", req, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.AccessToken)

	return &out, nil
}

// Register creates an account. DisplayName defaults to Username.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	var out AuthResponse
	if err := c.post(ctx, "/auth/register", req, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.AccessToken)

	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*protocol.User, error) {
	var out protocol.User
	if err := c.get(ctx, "/auth/me", nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// ProfileEdit is the body of /auth/edit. Every field is sent.
type ProfileEdit struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	BannerURL   string `json:"banner_url"`
	Bio         string `json:"bio"`
}

// ProfileEditFrom seeds an edit with the user's current values.
func ProfileEditFrom(u protocol.User) ProfileEdit {
	return ProfileEdit{
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		BannerURL:   u.BannerURL,
		Bio:         u.Bio,
	}
}

func (c *Client) EditProfile(ctx context.Context, edit ProfileEdit) (*protocol.User, error) {
	var out protocol.User
	if err := c.post(ctx, "/auth/edit", edit, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Upload sends one file as multipart field "file" and returns its URL.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer

	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", path.Base(filename))
	if err != nil {
		return "", fmt.Errorf("api: upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("api: upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("api: upload: %w", err)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/upload", nil, &buf, w.FormDataContentType(), &out); err != nil {
		return "", err
	}

	return out.URL, nil
}

func (c *Client) User(ctx context.Context, username string) (*protocol.User, error) {
	var out protocol.User
	if err := c.get(ctx, "/user/"+username, nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// SearchResult is one hit from /search/users.
type SearchResult struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	BannerURL   string `json:"banner_url,omitempty"`
	GamesWon    int    `json:"games_won"`
	TotalScore  int    `json:"total_score"`
	InGame      bool   `json:"in_game"`
	IsVerified  bool   `json:"is_verified"`
}

func (c *Client) SearchUsers(ctx context.Context, q string, limit int) ([]SearchResult, error) {
	query := url.Values{"q": {q}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var out []SearchResult
	if err := c.get(ctx, "/search/users", query, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// Leaderboard sort keys.
const (
	SortGamesWon     = "games_won"
	SortTotalScore   = "total_score"
	SortBestStreak   = "best_streak"
	SortAverageScore = "average_score"
	SortGamesPlayed  = "games_played"
)

type RankQuery struct {
	SortBy   string
	Order    string
	Page     int
	PageSize int
	MinGames int
}

func (q RankQuery) values() url.Values {
	v := url.Values{}
	if q.SortBy != "" {
		v.Set("sort_by", q.SortBy)
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if q.MinGames > 0 {
		v.Set("min_games", strconv.Itoa(q.MinGames))
	}

	return v
}

type RankEntry struct {
	Rank         int     `json:"rank"`
	UserID       string  `json:"user_id"`
	Username     string  `json:"username"`
	DisplayName  string  `json:"display_name"`
	AvatarURL    string  `json:"avatar_url,omitempty"`
	GamesWon     int     `json:"games_won"`
	TotalScore   int     `json:"total_score"`
	BestStreak   int     `json:"best_streak"`
	GamesPlayed  int     `json:"games_played"`
	WinRate      float64 `json:"win_rate"`
	AverageScore float64 `json:"average_score"`
}

type RankResponse struct {
	Entries    []RankEntry `json:"entries"`
	TotalCount int         `json:"total_count"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

func (c *Client) Leaderboard(ctx context.Context, q RankQuery) (*RankResponse, error) {
	var out RankResponse
	if err := c.get(ctx, "/leaderboard", q.values(), &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Images returns the seeded character sample for a game.
func (c *Client) Images(ctx context.Context, seed int64, maxImages int) ([]string, error) {
	query := url.Values{
		"seed":       {strconv.FormatInt(seed, 10)},
		"max_images": {strconv.Itoa(maxImages)},
	}

	var out struct {
		Files []string `json:"files"`
	}

	if err := c.get(ctx, "/images", query, &out); err != nil {
		return nil, err
	}

	return out.Files, nil
}

// ImageURL is where the static image for id is served from.
func (c *Client) ImageURL(id string) string {
	return c.endpoint("/static/images/"+id, nil)
}
