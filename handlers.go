/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/khawawish/api"
)

const minSearchLength = 2

type authedHandle func(w http.ResponseWriter, r *http.Request, p httprouter.Params, userID string)

// authed resolves the bearer token before calling next.
func authed(hub *Hub, next authedHandle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(hub.cfg, w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		userID, err := hub.accounts.Verify(token)
		if err != nil {
			writeError(hub.cfg, w, http.StatusUnauthorized, errInvalidToken.Error())
			return
		}

		next(w, r, p, userID)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		return false
	}

	return true
}

// replyError maps registry errors onto status codes.
func replyError(hub *Hub, w http.ResponseWriter, err error) {
	var detail detailError

	switch {
	case errors.Is(err, errBadCredentials), errors.Is(err, errInvalidToken):
		writeError(hub.cfg, w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, errUserNotFound):
		writeError(hub.cfg, w, http.StatusNotFound, err.Error())
	case errors.As(err, &detail):
		writeError(hub.cfg, w, http.StatusBadRequest, detail.Error())
	default:
		hub.log.Errorf("SERVE: %v", err)
		writeError(hub.cfg, w, http.StatusInternalServerError, "An error has occurred. Please try again.")
	}
}

func serveRegister(hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req api.RegisterRequest
		if !decodeBody(w, r, &req) {
			writeError(hub.cfg, w, http.StatusUnprocessableEntity, "Invalid request body")
			return
		}

		user, token, err := hub.accounts.Register(req)
		if err != nil {
			replyError(hub, w, err)
			return
		}

		hub.log.Infof("SERVE: Registered %q from %s", user.Username, realIP(r))

		_ = writeJSON(hub.cfg, w, api.AuthResponse{AccessToken: token, TokenType: "bearer", User: user})
	}
}

func serveLogin(hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req api.LoginRequest
		if !decodeBody(w, r, &req) {
			writeError(hub.cfg, w, http.StatusUnprocessableEntity, "Invalid request body")
			return
		}

		user, token, err := hub.accounts.Login(req.Username, req.Password)
		if err != nil {
			hub.log.Infof("SERVE: Failed login for %q from %s", req.Username, realIP(r))
			replyError(hub, w, err)
			return
		}

		_ = writeJSON(hub.cfg, w, api.AuthResponse{AccessToken: token, TokenType: "bearer", User: user})
	}
}

func serveMe(hub *Hub) authedHandle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params, userID string) {
		user, ok := hub.accounts.Get(userID)
		if !ok {
			replyError(hub, w, errUserNotFound)
			return
		}

		_ = writeJSON(hub.cfg, w, user)
	}
}

func serveEdit(hub *Hub) authedHandle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params, userID string) {
		var edit api.ProfileEdit
		if !decodeBody(w, r, &edit) {
			writeError(hub.cfg, w, http.StatusUnprocessableEntity, "Invalid request body")
			return
		}

		user, err := hub.accounts.Edit(userID, edit)
		if err != nil {
			replyError(hub, w, err)
			return
		}

		_ = writeJSON(hub.cfg, w, user)
	}
}

func serveUser(hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		user, ok := hub.accounts.ByUsername(p.ByName("username"))
		if !ok {
			replyError(hub, w, errUserNotFound)
			return
		}

		user.Email = ""

		_ = writeJSON(hub.cfg, w, user)
	}
}

func intParam(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))

	return n
}

func serveSearch(hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		if len(q) < minSearchLength {
			writeError(hub.cfg, w, http.StatusBadRequest, "Search query must be at least 2 characters")
			return
		}

		_ = writeJSON(hub.cfg, w, hub.accounts.Search(q, intParam(r, "limit")))
	}
}

func serveLeaderboard(hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		q := r.URL.Query()

		_ = writeJSON(hub.cfg, w, hub.accounts.Leaderboard(api.RankQuery{
			SortBy:   q.Get("sort_by"),
			Order:    q.Get("order"),
			Page:     intParam(r, "page"),
			PageSize: intParam(r, "page_size"),
			MinGames: intParam(r, "min_games"),
		}))
	}
}

func serveUpload(hub *Hub, dir string) authedHandle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params, userID string) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1<<20)

		f, hdr, err := r.FormFile("file")
		if err != nil {
			writeError(hub.cfg, w, http.StatusBadRequest, "Missing file")
			return
		}
		defer f.Close()

		name, written, err := saveUpload(dir, hdr.Filename, f)
		if errors.Is(err, errBadUpload) {
			writeError(hub.cfg, w, http.StatusBadRequest, "Only image uploads are allowed")
			return
		}
		if err != nil {
			replyError(hub, w, err)
			return
		}

		hub.log.Infof("SERVE: Stored upload %s (%s) for %s", name, humanReadableSize(written), hub.nameOf(userID))

		_ = writeJSON(hub.cfg, w, map[string]string{"url": hub.cfg.prefix + "/static/uploads/" + name})
	}
}

func serveImageSample(hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		seed, err := strconv.ParseInt(r.URL.Query().Get("seed"), 10, 64)
		if err != nil {
			writeError(hub.cfg, w, http.StatusUnprocessableEntity, "seed must be an integer")
			return
		}

		_ = writeJSON(hub.cfg, w, map[string][]string{"files": hub.catalog.Sample(seed, intParam(r, "max_images"))})
	}
}

func serveLobbies(hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		_ = writeJSON(hub.cfg, w, api.LobbyListing{PublicLobbies: hub.PublicLobbies()})
	}
}

func serveLobby(hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		lobby, ok := hub.Lobby(p.ByName("id"))
		if !ok {
			writeError(hub.cfg, w, http.StatusNotFound, msgLobbyNotFound)
			return
		}

		_ = writeJSON(hub.cfg, w, lobby)
	}
}
