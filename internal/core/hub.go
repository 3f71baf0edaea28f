package core

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nkoval/dmrelay-server/internal/store"
)

type inboundSend struct {
	client *Client
	cmd    *Command
}

// Hub owns the registry of live connections and routes send commands:
// persist first, then fan the stored message out to every handle bound
// to the sender's and the recipient's usernames.
//
// All registry mutation and send processing happens on the Run goroutine,
// so readers always see a consistent registry and a single connection's
// sends are handled in arrival order.
type Hub struct {
	store store.Store
	log   *zerolog.Logger

	register   chan *Client
	unregister chan *Client
	sends      chan inboundSend

	// username -> live handles bound to it; owned by the Run goroutine.
	conns map[string]map[*Client]struct{}
}

// NewHub creates a hub over the given store.
func NewHub(st store.Store, logger *zerolog.Logger) *Hub {
	return &Hub{
		store:      st,
		log:        logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		sends:      make(chan inboundSend, 64),
		conns:      make(map[string]map[*Client]struct{}),
	}
}

// RegisterClient adds a verified connection to the registry and starts
// forwarding its commands.
func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

// UnregisterClient removes a connection handle from the registry.
// Idempotent: unregistering an unknown or already removed handle is a
// no-op.
func (h *Hub) UnregisterClient(c *Client) {
	h.unregister <- c
}

// Run processes registry and send traffic until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			h.addClient(ctx, c)

		case c := <-h.unregister:
			h.removeClient(c)

		case in := <-h.sends:
			h.handleSend(ctx, in.client, in.cmd)

		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) addClient(ctx context.Context, c *Client) {
	handles, ok := h.conns[c.Username]
	if !ok {
		handles = make(map[*Client]struct{})
		h.conns[c.Username] = handles
	}
	handles[c] = struct{}{}

	h.log.Debug().Str("client_id", c.ID).Str("username", c.Username).Msg("client registered")

	// Pump the client's commands into the serialized hub loop. The
	// transport closes c.Commands on disconnect, which ends the pump.
	go func() {
		for cmd := range c.Commands {
			select {
			case h.sends <- inboundSend{client: c, cmd: cmd}:
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (h *Hub) removeClient(c *Client) {
	handles, ok := h.conns[c.Username]
	if !ok {
		return
	}
	if _, ok := handles[c]; !ok {
		return
	}

	delete(handles, c)
	if len(handles) == 0 {
		delete(h.conns, c.Username)
	}
	close(c.Events)

	h.log.Debug().Str("client_id", c.ID).Str("username", c.Username).Msg("client unregistered")
}

func (h *Hub) handleSend(ctx context.Context, c *Client, cmd *Command) {
	// A send can race its own disconnect through the buffered channel;
	// once the handle is gone its Events channel is closed, so drop.
	if !h.isRegistered(c) {
		return
	}

	if cmd.Kind != CommandSendDirect {
		h.reply(c, &Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "unknown command")})
		return
	}

	to := strings.TrimSpace(cmd.To)
	if to == "" || cmd.Content == "" {
		h.reply(c, &Event{Kind: EventError, Error: coreError(ErrCodeValidation, "to and content are required")})
		return
	}

	// The recipient must exist; the store itself stays lenient about
	// referential integrity, so the check lives at this boundary.
	if _, err := h.store.GetUserByUsername(ctx, to); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.reply(c, &Event{Kind: EventError, Error: coreError(ErrCodeNotFound, "recipient does not exist")})
			return
		}
		h.log.Error().Err(err).Str("to", to).Msg("recipient lookup failed")
		h.reply(c, &Event{Kind: EventError, Error: coreError(ErrCodeStorage, "storage failure")})
		return
	}

	msg, err := h.store.AppendMessage(ctx, c.Username, to, cmd.Content)
	if err != nil {
		if errors.Is(err, store.ErrValidation) {
			h.reply(c, &Event{Kind: EventError, Error: coreError(ErrCodeValidation, err.Error())})
			return
		}
		h.log.Error().Err(err).Str("from", c.Username).Str("to", to).Msg("append message failed")
		h.reply(c, &Event{Kind: EventError, Error: coreError(ErrCodeStorage, "storage failure")})
		return
	}

	event := &Event{
		Kind: EventDelivered,
		Message: Message{
			Seq:       msg.Seq,
			From:      msg.From,
			To:        msg.To,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		},
	}

	// Both sides observe the same persisted message, including the
	// sender's own other handles.
	h.fanOut(msg.From, event)
	if msg.To != msg.From {
		h.fanOut(msg.To, event)
	}
}

func (h *Hub) isRegistered(c *Client) bool {
	handles, ok := h.conns[c.Username]
	if !ok {
		return false
	}
	_, ok = handles[c]
	return ok
}

// fanOut delivers an event to every handle bound to the username. A full
// event buffer drops the delivery for that handle rather than blocking
// the hub.
func (h *Hub) fanOut(username string, event *Event) {
	for client := range h.conns[username] {
		select {
		case client.Events <- event:
		default:
			h.log.Warn().Str("client_id", client.ID).Str("username", username).Msg("dropping event for slow consumer")
		}
	}
}

// reply sends an event to the originating handle only.
func (h *Hub) reply(c *Client, event *Event) {
	select {
	case c.Events <- event:
	default:
		h.log.Warn().Str("client_id", c.ID).Msg("dropping reply for slow consumer")
	}
}
