// Package collab keeps multiple clients of the same workspace loosely in
// sync: a periodic presence heartbeat with staleness eviction, and
// whole-collection session replication through the shared store.
//
// Replication policy is last full write wins. There is no field-level merge
// and no reconciliation; two clients racing on the sessions blob can clobber
// each other. GuardRevisions makes such overrides visible in the log without
// changing the outcome.
package collab

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medleyhq/medley/pkg/shared"
	"github.com/medleyhq/medley/pkg/studio"
)

// Defaults for the heartbeat cadence and the staleness window (roughly three
// missed heartbeats).
const (
	DefaultHeartbeatInterval = 3 * time.Second
	DefaultStaleAfter        = 10 * time.Second
)

// Options tunes a Client.
type Options struct {
	// ClientID identifies this client instance in the presence map. A random
	// id is generated when empty.
	ClientID string

	// HeartbeatInterval is the presence publish cadence. Defaults to 3s.
	HeartbeatInterval time.Duration

	// StaleAfter is the presence staleness window. Defaults to 10s.
	StaleAfter time.Duration

	// GuardRevisions logs a warning when an inbound remote write overrides
	// local changes made since this client's last publish. Detection only:
	// the remote write still wins.
	GuardRevisions bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client links a local session store to the shared store. While enabled it
// heartbeats presence, mirrors local session changes out, and replaces the
// local collection with inbound remote writes.
type Client struct {
	id         string
	store      shared.Store
	sessions   *studio.Store
	hbInterval time.Duration
	staleAfter time.Duration
	guard      bool
	log        *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastPub []byte // last sessions blob this client wrote or adopted
	pubVer  uint64 // local store version captured at that point
}

// NewClient creates a Client over the given stores. Sync starts disabled;
// call Enable.
func NewClient(store shared.Store, sessions *studio.Store, opts Options) *Client {
	if opts.ClientID == "" {
		opts.ClientID = uuid.New().String()
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		id:         opts.ClientID,
		store:      store,
		sessions:   sessions,
		hbInterval: opts.HeartbeatInterval,
		staleAfter: opts.StaleAfter,
		guard:      opts.GuardRevisions,
		log:        opts.Logger,
	}
}

// ID returns this client's presence id.
func (c *Client) ID() string { return c.id }

// Enable starts sync: adopts the shared session collection if one exists,
// then runs the heartbeat, publish, and watch loops until Disable or ctx
// cancellation. Enabling an enabled client is a no-op.
func (c *Client) Enable(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	// Join: adopt whatever collection is already shared.
	blob, err := c.store.Get(ctx, shared.KeySessions)
	switch {
	case err == nil:
		if err := c.adopt(blob); err != nil {
			c.log.Warn("discarding unreadable shared sessions blob", "err", err)
		}
	case errors.Is(err, shared.ErrNotFound):
	default:
		cancel()
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
		return err
	}

	watch, err := c.store.Watch(ctx, shared.KeySessions)
	if err != nil {
		cancel()
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
		return err
	}
	changes, unsubscribe := c.sessions.Subscribe()

	c.wg.Add(3)
	go c.heartbeatLoop(ctx)
	go c.publishLoop(ctx, changes, unsubscribe)
	go c.watchLoop(watch)
	return nil
}

// Disable stops sync and removes this client's entry from the shared presence
// map. The local session store keeps its current state and becomes purely
// local until re-enabled.
func (c *Client) Disable(ctx context.Context) error {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	c.wg.Wait()
	// Flush anything changed since the last publish so a clean shutdown does
	// not drop the final local state.
	if err := c.publish(ctx); err != nil {
		c.log.Warn("final replication publish failed", "err", err)
	}
	return c.withdrawPresence(ctx)
}

// Peers returns the live presence map, pruned against the staleness window.
// This client's own entry is included while enabled.
func (c *Client) Peers(ctx context.Context) (Presence, error) {
	blob, err := c.store.Get(ctx, shared.KeyPresence)
	if errors.Is(err, shared.ErrNotFound) {
		return Presence{}, nil
	}
	if err != nil {
		return nil, err
	}
	p, err := DecodePresence(blob)
	if err != nil {
		return nil, err
	}
	return p.Prune(time.Now(), c.staleAfter), nil
}

// SetTheme publishes the shared theme preference flag.
func (c *Client) SetTheme(ctx context.Context, theme string) error {
	return c.store.Set(ctx, shared.KeyTheme, []byte(theme))
}

// Theme reads the shared theme preference flag. Empty when unset.
func (c *Client) Theme(ctx context.Context) (string, error) {
	blob, err := c.store.Get(ctx, shared.KeyTheme)
	if errors.Is(err, shared.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(blob), nil
}

// heartbeatLoop publishes presence immediately and then on every tick.
func (c *Client) heartbeatLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.hbInterval)
	defer ticker.Stop()
	for {
		if err := c.beat(ctx); err != nil && ctx.Err() == nil {
			c.log.Warn("presence heartbeat failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// beat refreshes this client's presence entry, prunes stale peers, and
// republishes the pruned map.
func (c *Client) beat(ctx context.Context) error {
	blob, err := c.store.Get(ctx, shared.KeyPresence)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	p, err := DecodePresence(blob)
	if err != nil {
		c.log.Warn("resetting unreadable presence map", "err", err)
		p = Presence{}
	}
	now := time.Now()
	p[c.id] = now
	p = p.Prune(now, c.staleAfter)
	out, err := EncodePresence(p)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, shared.KeyPresence, out)
}

// withdrawPresence removes this client's own entry on graceful shutdown.
func (c *Client) withdrawPresence(ctx context.Context) error {
	blob, err := c.store.Get(ctx, shared.KeyPresence)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	p, err := DecodePresence(blob)
	if err != nil {
		return err
	}
	if _, ok := p[c.id]; !ok {
		return nil
	}
	delete(p, c.id)
	out, err := EncodePresence(p)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, shared.KeyPresence, out)
}

// publishLoop mirrors local session-store changes into the shared store.
func (c *Client) publishLoop(ctx context.Context, changes <-chan struct{}, unsubscribe func()) {
	defer c.wg.Done()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
		}
		if err := c.publish(ctx); err != nil && ctx.Err() == nil {
			c.log.Warn("session replication publish failed", "err", err)
		}
	}
}

// publish serializes the whole collection and overwrites the shared blob
// unconditionally: last full write wins.
func (c *Client) publish(ctx context.Context) error {
	ver := c.sessions.Version()
	blob, err := studio.EncodeSessions(c.sessions.Sessions())
	if err != nil {
		return err
	}

	c.mu.Lock()
	if bytes.Equal(blob, c.lastPub) {
		c.pubVer = ver
		c.mu.Unlock()
		return nil
	}
	c.lastPub = blob
	c.pubVer = ver
	c.mu.Unlock()

	return c.store.Set(ctx, shared.KeySessions, blob)
}

// watchLoop applies inbound remote writes by whole-state replacement.
func (c *Client) watchLoop(watch <-chan shared.Event) {
	defer c.wg.Done()
	for ev := range watch {
		c.mu.Lock()
		echo := bytes.Equal(ev.Value, c.lastPub)
		c.mu.Unlock()
		if echo {
			continue
		}
		if err := c.adopt(ev.Value); err != nil {
			c.log.Warn("discarding undecodable remote sessions blob", "err", err)
		}
	}
}

// adopt replaces the local collection with a replicated blob. No diffing.
func (c *Client) adopt(blob []byte) error {
	sessions, err := studio.DecodeSessions(blob)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.guard && c.sessions.Version() != c.pubVer {
		c.log.Warn("remote write overrides unpublished local changes",
			"client", c.id,
			"local_version", c.sessions.Version(),
			"published_version", c.pubVer)
	}
	c.lastPub = blob
	c.mu.Unlock()

	c.sessions.ReplaceAll(sessions)

	c.mu.Lock()
	c.pubVer = c.sessions.Version()
	c.mu.Unlock()
	return nil
}
