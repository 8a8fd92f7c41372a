/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/khawawish/protocol"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts Options) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	opts.BaseURL = srv.URL + "/api"

	c, err := New(opts)
	require.NoError(t, err)

	return c, srv
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, ErrNoBaseURL)
}

func TestBearerHeader(t *testing.T) {
	var got atomic.Value

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[]`)
	}, Options{})

	_, err := c.PublicLobbies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", got.Load())

	c.SetToken("abc")
	_, err = c.PublicLobbies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", got.Load())
}

func TestUnauthorizedFiresHook(t *testing.T) {
	var fired atomic.Int32

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Could not validate credentials"}`)
	}, Options{OnUnauthorized: func() { fired.Add(1) }})

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Could not validate credentials", apiErr.Detail)
	assert.Equal(t, int32(1), fired.Load())
}

func TestOtherErrorsKeepDetail(t *testing.T) {
	var fired atomic.Int32

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail":"Username already registered"}`)
	}, Options{OnUnauthorized: func() { fired.Add(1) }})

	_, err := c.Register(context.Background(), RegisterRequest{Username: "a", Password: "b"})

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Username already registered", apiErr.Detail)
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, fired.Load())
}

func TestLoginStoresToken(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var req LoginRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, LoginRequest{Username: "ana", Password: "pw"}, req)
			_, _ = io.WriteString(w, `{"access_token":"tok","token_type":"bearer","user":{"user_id":"u1","username":"ana"}}`)
		case "/api/auth/me":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			_, _ = io.WriteString(w, `{"user_id":"u1","username":"ana","games_won":3}`)
		default:
			http.NotFound(w, r)
		}
	}, Options{})

	resp, err := c.Login(context.Background(), LoginRequest{Username: "ana", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.User.UserID)
	assert.Equal(t, "tok", c.Token())

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, me.GamesWon)
}

func TestRegisterDefaultsDisplayName(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ana", req.DisplayName)
		_, _ = io.WriteString(w, `{"access_token":"tok","token_type":"bearer","user":{"user_id":"u1"}}`)
	}, Options{})

	_, err := c.Register(context.Background(), RegisterRequest{Username: "ana", Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)
}

func TestQueryParameters(t *testing.T) {
	cases := []struct {
		name string
		call func(c *Client) error
		path string
		want map[string]string
	}{
		{
			name: "leaderboard",
			call: func(c *Client) error {
				_, err := c.Leaderboard(context.Background(), RankQuery{SortBy: SortBestStreak, Order: "desc", Page: 2, PageSize: 20, MinGames: 5})
				return err
			},
			path: "/api/leaderboard",
			want: map[string]string{"sort_by": "best_streak", "order": "desc", "page": "2", "page_size": "20", "min_games": "5"},
		},
		{
			name: "search",
			call: func(c *Client) error {
				_, err := c.SearchUsers(context.Background(), "an a", 30)
				return err
			},
			path: "/api/search/users",
			want: map[string]string{"q": "an a", "limit": "30"},
		},
		{
			name: "images",
			call: func(c *Client) error {
				_, err := c.Images(context.Background(), 42, 24)
				return err
			},
			path: "/api/images",
			want: map[string]string{"seed": "42", "max_images": "24"},
		},
		{
			name: "user",
			call: func(c *Client) error {
				_, err := c.User(context.Background(), "ana")
				return err
			},
			path: "/api/user/ana",
			want: map[string]string{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tc.path, r.URL.Path)
				for k, v := range tc.want {
					assert.Equal(t, v, r.URL.Query().Get(k), k)
				}
				switch tc.name {
				case "search":
					_, _ = io.WriteString(w, `[]`)
				default:
					_, _ = io.WriteString(w, `{}`)
				}
			}, Options{})

			require.NoError(t, tc.call(c))
		})
	}
}

func TestLeaderboardDecodes(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"entries":[{"rank":1,"user_id":"u1","username":"ana","games_won":7,"win_rate":0.7}],"total_count":1,"page":1,"page_size":20,"total_pages":1}`)
	}, Options{})

	resp, err := c.Leaderboard(context.Background(), RankQuery{})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, 7, resp.Entries[0].GamesWon)
	assert.InDelta(t, 0.7, resp.Entries[0].WinRate, 1e-9)
	assert.Equal(t, 1, resp.TotalPages)
}

func TestUploadSendsMultipartFile(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/upload", r.URL.Path)

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()

		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "avatar.png", hdr.Filename)
		assert.Equal(t, "png-bytes", string(data))

		_, _ = io.WriteString(w, `{"url":"/static/uploads/avatar.png"}`)
	}, Options{})

	got, err := c.Upload(context.Background(), "/tmp/avatar.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/static/uploads/avatar.png", got)
}

func TestPublicLobbies(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/lobbies", r.URL.Path)
		_, _ = io.WriteString(w, `{"public_lobbies":[{"lobby_id":"L1","lobby_name":"Test","player_count":1,"owner":{"user_id":"u1"},"second_player":null}]}`)
	}, Options{})

	lobbies, err := c.PublicLobbies(context.Background())
	require.NoError(t, err)
	require.Len(t, lobbies, 1)
	assert.Equal(t, "L1", lobbies[0].LobbyID)
	assert.Nil(t, lobbies[0].SecondPlayer)
}

func TestPublicLobbiesRejectsBareArray(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"lobby_id":"L1"}]`)
	}, Options{})

	_, err := c.PublicLobbies(context.Background())
	assert.Error(t, err)
}

func TestEditProfileSendsEveryField(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body, 6)
		assert.Equal(t, "new bio", body["bio"])
		_, _ = io.WriteString(w, `{"user_id":"u1","bio":"new bio"}`)
	}, Options{})

	edit := ProfileEditFrom(protocol.User{Username: "ana", Email: "a@example.com"})
	edit.Bio = "new bio"

	u, err := c.EditProfile(context.Background(), edit)
	require.NoError(t, err)
	assert.Equal(t, "new bio", u.Bio)
}

func TestImageURL(t *testing.T) {
	c, err := New(Options{BaseURL: "http://localhost:8153/api/"})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8153/api/static/images/cat.png", c.ImageURL("cat.png"))
}
