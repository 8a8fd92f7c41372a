/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Seednode/khawawish/protocol"
)

var ErrRunning = errors.New("session: already running")

const defaultWriteTimeout = 10 * time.Second

// LobbyLister fetches the public lobby listing over REST.
type LobbyLister interface {
	PublicLobbies(ctx context.Context) ([]protocol.Lobby, error)
}

// Options configures a Client. Callbacks run on the loop goroutine, in
// event order, after state has been updated; they may call Snapshot but
// must not block on commands.
type Options struct {
	BaseURL   string
	UserID    string
	Dialer    Dialer
	Logger    *zap.Logger
	Reconnect ReconnectPolicy
	Lobbies   LobbyLister

	OnNotice   func(Notice)
	OnNavigate func(View)
	OnEvent    func(protocol.Event, State)
}

type request struct {
	fn    func(s *State) Effects
	reply chan error
}

// Client is one user's game session.
type Client struct {
	opts Options
	log  *zap.Logger

	mu    sync.RWMutex
	state State
	live  chan struct{}

	requests chan request

	running   atomic.Bool
	closing   atomic.Bool
	closeCh   chan struct{}
	closeOnce sync.Once
	done      chan struct{}
	doneOnce  sync.Once

	connMu sync.Mutex
	conn   Conn
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, ErrNoBaseURL
	}
	if opts.Dialer == nil {
		opts.Dialer = WebsocketDialer{WriteTimeout: defaultWriteTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Client{
		opts:     opts,
		log:      opts.Logger.Named("session"),
		state:    NewState(),
		requests: make(chan request),
		closeCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Snapshot returns a copy of the current local view.
func (c *Client) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state.Clone()
}

func (c *Client) ConnState() ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state.Conn
}

// Done is closed once a started Run has returned, or by Close when Run
// never started. A Run refused for a missing token or a bad base URL leaves
// the Client unstarted.
func (c *Client) Done() <-chan struct{} { return c.done }

// Run connects with token and serves the socket until it closes, ctx is
// cancelled or Close is called. With a reconnect policy it redials after
// unexpected drops.
func (c *Client) Run(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrNoToken
	}

	addr, err := GameURL(c.opts.BaseURL, token)
	if err != nil {
		return err
	}

	if c.closing.Load() {
		return ErrClosed
	}
	if !c.running.CompareAndSwap(false, true) {
		if c.closing.Load() {
			return ErrClosed
		}
		return ErrRunning
	}
	defer c.finish()

	if c.opts.Lobbies != nil {
		go c.fetchLobbies(ctx)
	}

	attempt := 0
	for {
		c.setConn(Connecting)
		c.log.Debug("connecting", zap.String("base", c.opts.BaseURL))

		conn, err := c.opts.Dialer.Dial(ctx, addr)
		if err == nil {
			attempt = 0
			err = c.serve(ctx, conn)
		}

		if c.closing.Load() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			c.log.Warn("socket error", zap.Error(err))
		} else {
			c.log.Info("socket closed")
		}

		attempt++
		if !c.opts.Reconnect.allows(attempt) {
			return err
		}

		delay := c.opts.Reconnect.Delay(attempt)
		c.log.Info("reconnecting",
			zap.Duration("delay", delay),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.opts.Reconnect.MaxAttempts),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closeCh:
			return nil
		case <-time.After(delay):
		}
	}
}

// Close ends the session. No reconnect is attempted afterwards.
func (c *Client) Close() error {
	c.closing.Store(true)
	c.closeOnce.Do(func() { close(c.closeCh) })

	// Claim the run slot so a Client that never ran still reports Done.
	if c.running.CompareAndSwap(false, true) {
		c.finish()
		return nil
	}

	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()

	if conn != nil {
		return conn.Close()
	}

	c.setConn(Closed)

	return nil
}

func (c *Client) finish() {
	c.setConn(Closed)
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *Client) setConn(s ConnState) {
	c.mu.Lock()
	c.state.Conn = s
	c.mu.Unlock()
}

func (c *Client) serve(ctx context.Context, conn Conn) error {
	c.connMu.Lock()
	if c.closing.Load() {
		c.connMu.Unlock()
		return conn.Close()
	}
	c.conn = conn
	c.connMu.Unlock()

	defer func() {
		c.connMu.Lock()
		c.conn = nil
		c.connMu.Unlock()
	}()

	// Nothing may precede the handshake.
	if err := c.write(conn, protocol.Sign()); err != nil {
		_ = conn.Close()
		return err
	}

	live := make(chan struct{})
	c.mu.Lock()
	c.state.Conn = Signed
	c.live = live
	c.mu.Unlock()
	c.log.Info("signed")

	defer func() {
		c.mu.Lock()
		c.live = nil
		c.state.Conn = Closed
		c.mu.Unlock()
		close(live)
	}()

	g, gctx := errgroup.WithContext(ctx)
	frames := make(chan []byte)

	g.Go(func() error {
		for {
			data, err := conn.ReadMessage()
			if err != nil {
				return err
			}
			select {
			case frames <- data:
			case <-gctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		_ = conn.Close()
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case data := <-frames:
				if err := c.handleFrame(conn, data); err != nil {
					return err
				}
			case req := <-c.requests:
				req.reply <- c.handleRequest(conn, req.fn)
			}
		}
	})

	err := g.Wait()
	if c.closing.Load() || isNormalClose(err) {
		return nil
	}

	return err
}

func (c *Client) handleFrame(conn Conn, data []byte) error {
	ev, err := protocol.Decode(data)
	if err != nil {
		c.log.Warn("dropping malformed frame", zap.Error(err))
		return nil
	}

	if u, ok := ev.(protocol.Unknown); ok {
		c.log.Warn("unknown message type", zap.String("type", u.Type))
	} else {
		c.log.Debug("received", zap.String("type", ev.EventType()))
	}

	eff, snap := c.mutate(func(s *State) Effects { return s.Apply(ev) })
	if eff.Err != nil {
		c.log.Warn("ignored event", zap.String("type", ev.EventType()), zap.Error(eff.Err))
	}

	err = c.perform(conn, eff)

	if c.opts.OnEvent != nil {
		c.opts.OnEvent(ev, snap)
	}

	return err
}

func (c *Client) handleRequest(conn Conn, fn func(s *State) Effects) error {
	eff, _ := c.mutate(fn)
	if eff.Err != nil {
		c.dispatch(eff)
		return eff.Err
	}

	if err := c.perform(conn, eff); err != nil {
		return err
	}

	if eff.Send != nil {
		c.mutate(func(s *State) Effects {
			s.Sent(eff.Send)
			return Effects{}
		})
	}

	return nil
}

func (c *Client) mutate(fn func(s *State) Effects) (Effects, State) {
	c.mu.Lock()
	eff := fn(&c.state)
	snap := c.state.Clone()
	c.mu.Unlock()

	return eff, snap
}

func (c *Client) perform(conn Conn, eff Effects) error {
	var err error
	if eff.Send != nil {
		err = c.write(conn, eff.Send)
	}

	c.dispatch(eff)

	return err
}

func (c *Client) dispatch(eff Effects) {
	for _, n := range eff.Notices {
		c.log.Debug("notice", zap.String("level", string(n.Level)), zap.String("message", n.Message))
		if c.opts.OnNotice != nil {
			c.opts.OnNotice(n)
		}
	}

	if eff.Navigate != "" && c.opts.OnNavigate != nil {
		c.opts.OnNavigate(eff.Navigate)
	}
}

func (c *Client) write(conn Conn, cmd protocol.Command) error {
	data, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return err
	}

	c.log.Debug("sending", zap.String("type", cmd.CommandType()))

	return conn.WriteMessage(data)
}

// do runs fn on the loop goroutine and waits for its result.
func (c *Client) do(ctx context.Context, fn func(s *State) Effects) error {
	c.mu.RLock()
	live := c.live
	state := c.state.Conn
	c.mu.RUnlock()

	if state != Signed || live == nil {
		return ErrNotSigned
	}

	req := request{fn: fn, reply: make(chan error, 1)}

	select {
	case c.requests <- req:
	case <-live:
		return ErrNotSigned
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.reply:
		return err
	case <-live:
		select {
		case err := <-req.reply:
			return err
		default:
			return ErrNotSigned
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) fetchLobbies(ctx context.Context) {
	lobbies, err := c.opts.Lobbies.PublicLobbies(ctx)
	if err != nil {
		c.log.Warn("failed to fetch lobbies", zap.Error(err))
		return
	}

	req := request{
		fn: func(s *State) Effects {
			s.Lobbies = lobbies
			return Effects{}
		},
		reply: make(chan error, 1),
	}

	select {
	case c.requests <- req:
	case <-ctx.Done():
	case <-c.done:
	}
}
