/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Seednode/khawawish/api"
	"github.com/Seednode/khawawish/credentials"
	"github.com/Seednode/khawawish/protocol"
	"github.com/Seednode/khawawish/session"
)

var errNotLoggedIn = errors.New("not logged in, run `khawawish login` first")

const playHelp = `commands:
  lobbies                              list public lobbies
  create <name> [max] [password] [--private]
  join <lobby id> [password]
  ready                                toggle ready
  start | rematch                      owner only
  images                               list this round's characters
  pick <n|name>                        choose your own character
  discard <n|name>                     mark a character as ruled out
  guess <n|name>                       guess the opponent's character
  end                                  pass the turn
  kick <user id>                       owner only
  leave
  state
  quit`

// console serialises output from the session loop and the prompt.
type console struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *console) printf(format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _ = fmt.Fprintf(c.w, format, a...)
}

func (c *console) println(a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _ = fmt.Fprintln(c.w, a...)
}

// loadSession returns saved credentials, mapping a missing or expired
// token onto errNotLoggedIn.
func loadSession(store *credentials.Store) (credentials.Credentials, error) {
	creds, err := store.Load()
	switch {
	case errors.Is(err, credentials.ErrNotFound), errors.Is(err, credentials.ErrExpired):
		return creds, errNotLoggedIn
	case err != nil:
		return creds, err
	}

	return creds, nil
}

func play(cmd *cobra.Command, cfg *Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := cfg.credentialStore()
	if err != nil {
		return err
	}

	creds, err := loadSession(store)
	if err != nil {
		return err
	}

	client, err := newAPI(cfg, store, logger)
	if err != nil {
		return err
	}
	client.SetToken(creds.Token)

	out := &console{w: cmd.OutOrStdout()}

	var reconnect session.ReconnectPolicy
	if cfg.reconnect {
		reconnect = session.DefaultReconnect()
	}

	sess, err := session.New(session.Options{
		BaseURL:   cfg.apiURL,
		UserID:    creds.User.UserID,
		Logger:    logger,
		Reconnect: reconnect,
		Lobbies:   client,
		OnNotice: func(n session.Notice) {
			out.printf("[%s] %s\n", n.Level, n.Message)
		},
		OnNavigate: func(v session.View) {
			out.printf("-> %s\n", v)
		},
		OnEvent: func(ev protocol.Event, s session.State) {
			describeEvent(out, ev, s, creds.User.UserID)
		},
	})
	if err != nil {
		return err
	}

	out.printf("Signed in as %s. Type \"help\" for commands.\n", creds.User.Username)

	g, ctx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		err := sess.Run(ctx, creds.Token)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	lines := make(chan string)
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-sess.Done():
				return
			}
		}
	}()

	g.Go(func() error {
		defer func() { _ = sess.Close() }()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-sess.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}

				quit, err := runLine(ctx, sess, out, line)
				if err != nil {
					out.println("error:", err)
				}
				if quit {
					return nil
				}
			}
		}
	})

	return g.Wait()
}

// runLine executes one prompt line against the session.
func runLine(ctx context.Context, sess *session.Client, out *console, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	verb, args := strings.ToLower(fields[0]), fields[1:]

	switch verb {
	case "help", "?":
		out.println(playHelp)
	case "quit", "exit":
		return true, nil
	case "state":
		describeState(out, sess.Snapshot())
	case "lobbies":
		describeLobbies(out, sess.Snapshot().Lobbies)
	case "images":
		for i, name := range sess.Snapshot().Images {
			out.printf("%3d  %s\n", i+1, name)
		}
	case "create":
		req, err := parseCreate(args)
		if err != nil {
			return false, err
		}
		return false, sess.CreateLobby(ctx, req)
	case "join":
		if len(args) < 1 {
			return false, errors.New("usage: join <lobby id> [password]")
		}
		var password *string
		if len(args) > 1 {
			password = &args[1]
		}
		return false, sess.JoinLobby(ctx, strings.ToUpper(args[0]), password)
	case "ready":
		return false, sess.Ready(ctx)
	case "start":
		return false, sess.StartGame(ctx)
	case "rematch":
		return false, sess.Rematch(ctx)
	case "pick", "discard", "guess":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: %s <n|name>", verb)
		}
		character, err := resolveCharacter(sess.Snapshot().Images, args[0])
		if err != nil {
			return false, err
		}
		switch verb {
		case "pick":
			return false, sess.SelectOwnCharacter(ctx, character)
		case "discard":
			return false, sess.DiscardCharacter(ctx, character)
		default:
			return false, sess.Guess(ctx, character)
		}
	case "end":
		return false, sess.EndTurn(ctx)
	case "kick":
		if len(args) != 1 {
			return false, errors.New("usage: kick <user id>")
		}
		return false, sess.KickPlayer(ctx, args[0])
	case "leave":
		if sess.Snapshot().Phase == session.PhaseResults {
			return false, sess.LeaveResults(ctx)
		}
		return false, sess.LeaveLobby(ctx)
	default:
		return false, fmt.Errorf("unknown command %q", verb)
	}

	return false, nil
}

// parseCreate reads "<name> [max] [password] [--private]".
func parseCreate(args []string) (session.CreateLobbyRequest, error) {
	var req session.CreateLobbyRequest

	var rest []string
	for _, a := range args {
		if a == "--private" {
			req.IsPrivate = true
			continue
		}
		rest = append(rest, a)
	}

	if len(rest) < 1 || len(rest) > 3 {
		return req, errors.New("usage: create <name> [max] [password] [--private]")
	}

	req.LobbyName = rest[0]
	req.MaxImages = defaultMaxImages

	if len(rest) > 1 {
		n, err := strconv.Atoi(rest[1])
		if err != nil || n < 1 {
			return req, fmt.Errorf("invalid image count %q", rest[1])
		}
		req.MaxImages = n
	}

	if len(rest) > 2 {
		req.Password = &rest[2]
	}

	return req, nil
}

// resolveCharacter accepts a 1-based index into images or an image name.
func resolveCharacter(images []string, arg string) (string, error) {
	if len(images) == 0 {
		return "", errors.New("no characters dealt yet")
	}

	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(images) {
			return "", fmt.Errorf("pick a number between 1 and %d", len(images))
		}
		return images[n-1], nil
	}

	for _, name := range images {
		if name == arg {
			return name, nil
		}
	}

	return "", fmt.Errorf("unknown character %q", arg)
}

func seatName(p *protocol.LobbyPlayer) string {
	if p == nil {
		return "(open)"
	}

	ready := ""
	if p.IsReady {
		ready = ", ready"
	}

	return fmt.Sprintf("%s [%s] score %d%s", p.DisplayName, p.UserID, p.Score, ready)
}

func describeLobby(out *console, l *protocol.Lobby, self string) {
	if l == nil {
		out.println("not in a lobby")
		return
	}

	out.printf("lobby %s %q (%d/2, %d images)\n", l.LobbyID, l.LobbyName, l.PlayerCount, l.MaxImages)
	out.printf("  owner:  %s\n", seatName(l.Owner))
	out.printf("  second: %s\n", seatName(l.SecondPlayer))

	if l.GameStarted {
		turn := "opponent"
		if l.UserTurn == self {
			turn = "you"
		}
		out.printf("  turn:   %s\n", turn)
	}
}

func describeLobbies(out *console, lobbies []protocol.Lobby) {
	if len(lobbies) == 0 {
		out.println("no public lobbies")
		return
	}

	for _, l := range lobbies {
		lock := ""
		if l.HasPassword {
			lock = " (password)"
		}
		owner := ""
		if l.Owner != nil {
			owner = l.Owner.DisplayName
		}
		out.printf("%-8s %-24q %d/2 %s%s\n", l.LobbyID, l.LobbyName, l.PlayerCount, owner, lock)
	}
}

func describeState(out *console, s session.State) {
	out.printf("connection %s, view %s, phase %s", s.Conn, s.View, s.Phase)
	if s.Status != session.StatusNone {
		out.printf(", result %s", s.Status)
	}
	if s.Degraded {
		out.printf(", degraded")
	}
	out.println()

	if s.OwnImage != "" {
		out.printf("your character: %s\n", s.OwnImage)
	}
	if len(s.Images) > 0 {
		out.printf("%d characters, %d discarded\n", len(s.Images), len(s.Discarded))
	}
}

func describeEvent(out *console, ev protocol.Event, s session.State, self string) {
	switch e := ev.(type) {
	case protocol.Ping:
	case protocol.LobbyEntered:
		describeLobby(out, s.Lobby, self)
	case protocol.LobbyChanged:
		if e.Type == protocol.EvtEndTurn && s.Lobby != nil && s.Lobby.UserTurn == self {
			out.println("your turn")
		}
	case protocol.GameStarted, protocol.RematchStarted:
		out.printf("game on with %d characters; pick yours with \"pick <n>\"\n", len(s.Images))
	case protocol.SelectionComplete:
		out.println("both characters chosen, guessing starts")
	case protocol.NewLobby:
		out.printf("%d public lobbies\n", len(e.PublicLobbies))
	case protocol.Unknown:
		out.printf("(ignored %s)\n", e.Type)
	}
}

// newAPI builds a REST client that forgets saved credentials on any 401.
func newAPI(cfg *Config, store *credentials.Store, logger *zap.Logger) (*api.Client, error) {
	return api.New(api.Options{
		BaseURL: cfg.apiURL,
		Logger:  logger,
		OnUnauthorized: func() {
			if store != nil {
				_ = store.Clear()
			}
		},
	})
}
