package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marketlane/chatlink/internal/chatlog"
	"github.com/marketlane/chatlink/internal/metrics"
	"github.com/marketlane/chatlink/internal/model"
	"github.com/marketlane/chatlink/internal/signal"
	"github.com/marketlane/chatlink/internal/transport"
)

// HistoryFetcher loads recent message history for a room before the live
// subscription attaches. *api.Client satisfies this.
type HistoryFetcher interface {
	GetMessages(ctx context.Context, roomID int64, size int) ([]model.Message, error)
}

// Session owns exactly one channel to the messaging endpoint and at most one
// live room subscription on it.
//
// A Session has a single-owner lifecycle: the owning view creates it, calls
// Connect once, and calls Disconnect on teardown. Consumers read Connected,
// Messages and PeerLastRead; only the owner mutates transport state.
type Session struct {
	cfg     Config
	history HistoryFetcher
	logger  *slog.Logger

	readSignal  *signal.Signal      // Notified when this session marks messages read
	onConfirmed func(model.Message) // Optional sink for confirmed messages

	log *chatlog.Log

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	state      State
	identity   model.Identity
	client     transport.Client
	activeRoom int64
	subToken   string
	peerRead   int64 // Highest message id the other participant reported seen

	// Command/response correlation
	cmdID     atomic.Int64
	pendingMu sync.Mutex
	pending   map[int64]chan Response
}

// Option configures a Session.
type Option func(*Session)

// WithHistory sets the history fetcher used to pre-populate a room.
func WithHistory(h HistoryFetcher) Option {
	return func(s *Session) { s.history = h }
}

// WithReadSignal sets the broadcast signal notified when messages are read,
// so other open contexts refresh their badge promptly.
func WithReadSignal(sig *signal.Signal) Option {
	return func(s *Session) { s.readSignal = sig }
}

// WithConfirmedSink registers a callback invoked for every confirmed message
// accepted into the log. Used by the transcript archiver.
func WithConfirmedSink(fn func(model.Message)) Option {
	return func(s *Session) { s.onConfirmed = fn }
}

// New creates a Session. The session is created Disconnected; nothing touches
// the network until Connect.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		cfg:     cfg,
		logger:  logger,
		log:     chatlog.New(logger),
		pending: make(map[int64]chan Response),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect establishes the channel. Idempotent: if a channel already exists
// for this session, the call is a no-op. This guards against duplicate
// parallel channels, which would double-deliver every message.
func (s *Session) Connect(ctx context.Context, identity model.Identity) error {
	s.mu.Lock()
	if s.client != nil || s.state == Connecting {
		s.mu.Unlock()
		s.logger.Debug("connect ignored, channel already exists")
		return nil
	}
	s.state = Connecting
	s.identity = identity
	s.mu.Unlock()

	client := transport.NewClient(s.clientConfig(identity), s.logger)
	if err := client.Connect(ctx); err != nil {
		s.mu.Lock()
		s.state = Disconnected
		s.mu.Unlock()
		return fmt.Errorf("connect channel: %w", err)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.mu.Lock()
	s.client = client
	s.state = Connected
	s.mu.Unlock()

	s.wg.Add(2)
	go s.dispatchLoop(client)
	go s.sweepLoop()

	// A room selected before the channel came up attaches now
	s.attachActiveRoom(ctx, client)

	s.logger.Info("session connected", "user_id", identity.UserID)
	return nil
}

// attachActiveRoom subscribes the current room, if any, on the given client.
func (s *Session) attachActiveRoom(ctx context.Context, client transport.Client) {
	s.mu.Lock()
	roomID := s.activeRoom
	s.mu.Unlock()
	if roomID == 0 {
		return
	}

	token := uuid.NewString()
	if err := s.subscribe(ctx, client, roomTopic(roomID), token); err != nil {
		s.logger.Warn("subscribe active room failed", "room", roomID, "error", err)
		return
	}

	s.mu.Lock()
	// Commit only if the room is unchanged and no concurrent SetActiveRoom
	// installed its own token while the ack was in flight; otherwise this
	// token must be released or the old room stays subscribed
	if s.activeRoom == roomID && s.subToken == "" {
		s.subToken = token
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.unsubscribe(ctx, client, token); err != nil {
		s.logger.Warn("unsubscribe superseded token failed", "token", token, "error", err)
	}
}

// Disconnect tears down the channel and any live subscription. Idempotent;
// always safe to call during unmount.
func (s *Session) Disconnect() {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.subToken = ""
	s.activeRoom = 0
	s.peerRead = 0
	s.state = Disconnected
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if client != nil {
		client.Close()
	}
	s.log.Clear()
	s.wg.Wait()

	if client != nil {
		s.logger.Info("session disconnected")
	}
}

// Connected reports whether the channel is currently up. This is the single
// source-of-truth flag consumed by the UI layer.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil && s.client.IsConnected()
}

// State returns the connection lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveRoom returns the current room id, 0 when none.
func (s *Session) ActiveRoom() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeRoom
}

// Messages returns the ordered message view for the active room.
func (s *Session) Messages() []model.Message {
	return s.log.Snapshot()
}

// PeerLastRead returns the highest message id the other participant has
// reported seen in the active room.
func (s *Session) PeerLastRead() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerRead
}

// SetActiveRoom switches the live subscription to the given room. A zero id
// clears the room. The previous subscription is always dropped first and the
// local message buffer is cleared, so no history leaks between rooms.
func (s *Session) SetActiveRoom(ctx context.Context, roomID int64) error {
	s.mu.Lock()
	prevToken := s.subToken
	s.subToken = ""
	s.activeRoom = roomID
	s.peerRead = 0
	client := s.client
	s.mu.Unlock()

	if prevToken != "" && client != nil {
		if err := s.unsubscribe(ctx, client, prevToken); err != nil {
			s.logger.Warn("unsubscribe failed", "token", prevToken, "error", err)
		}
	}

	s.log.Clear()
	metrics.RoomSwitches.Inc()

	if roomID == 0 || client == nil || !client.IsConnected() {
		return nil
	}

	// Pre-populate from history before the live attach
	if s.history != nil && s.cfg.HistorySize > 0 {
		history, err := s.history.GetMessages(ctx, roomID, s.cfg.HistorySize)
		if err != nil {
			s.logger.Warn("history fetch failed", "room", roomID, "error", err)
		} else {
			s.log.Seed(history)
		}
	}

	token := uuid.NewString()
	if err := s.subscribe(ctx, client, roomTopic(roomID), token); err != nil {
		return fmt.Errorf("subscribe room %d: %w", roomID, err)
	}

	s.mu.Lock()
	if s.activeRoom != roomID || s.subToken != "" {
		// Room changed again, or a reconnect reattached the room, while the
		// subscribe was in flight; this token must not stay live
		s.mu.Unlock()
		if err := s.unsubscribe(ctx, client, token); err != nil {
			s.logger.Warn("unsubscribe superseded token failed", "token", token, "error", err)
		}
		return nil
	}
	s.subToken = token
	s.mu.Unlock()

	s.logger.Debug("subscribed", "room", roomID, "token", token)
	return nil
}

// Send publishes a text message to the active room and records an optimistic
// Pending entry keyed by tempID. The entry is reconciled to the server id
// when the confirmed event arrives, or marked Failed after ConfirmTimeout.
func (s *Session) Send(text, tempID string) error {
	return s.send(text, "", tempID)
}

// SendImage publishes a message carrying an image URL.
func (s *Session) SendImage(text, imageURL, tempID string) error {
	return s.send(text, imageURL, tempID)
}

func (s *Session) send(text, imageURL, tempID string) error {
	if strings.TrimSpace(text) == "" && imageURL == "" {
		return ErrEmptyText
	}
	if tempID == "" {
		return ErrEmptyTempID
	}

	s.mu.Lock()
	client := s.client
	roomID := s.activeRoom
	senderID := s.identity.UserID
	s.mu.Unlock()

	if client == nil || !client.IsConnected() {
		return ErrNotConnected
	}
	if roomID == 0 {
		return ErrNoActiveRoom
	}

	payload, err := json.Marshal(OutboundMessage{
		RoomID:   roomID,
		SenderID: senderID,
		Text:     text,
		ImageURL: imageURL,
		TempID:   tempID,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	cmd := Command{
		ID:  s.cmdID.Add(1),
		Cmd: "publish",
		Params: PublishParams{
			Topic:   roomTopic(roomID) + "/send",
			Payload: payload,
		},
	}
	data, _ := json.Marshal(cmd)
	if err := client.Send(data); err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	s.log.AppendPending(model.Message{
		TempID:    tempID,
		RoomID:    roomID,
		SenderID:  senderID,
		Text:      text,
		ImageURL:  imageURL,
		Timestamp: time.Now().UnixMicro(),
	})
	metrics.MessagesSent.Inc()
	return nil
}

// MarkRead publishes the last seen message id for the active room. Advisory
// telemetry: no acknowledgement is awaited and nothing is retried.
func (s *Session) MarkRead(lastSeenMessageID int64) error {
	s.mu.Lock()
	client := s.client
	roomID := s.activeRoom
	readerID := s.identity.UserID
	s.mu.Unlock()

	if client == nil || !client.IsConnected() {
		return ErrNotConnected
	}
	if roomID == 0 {
		return ErrNoActiveRoom
	}

	payload, err := json.Marshal(model.ReadReceipt{
		RoomID:            roomID,
		ReaderID:          readerID,
		LastSeenMessageID: lastSeenMessageID,
	})
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	cmd := Command{
		ID:  s.cmdID.Add(1),
		Cmd: "publish",
		Params: PublishParams{
			Topic:   roomTopic(roomID) + "/read",
			Payload: payload,
		},
	}
	data, _ := json.Marshal(cmd)
	if err := client.Send(data); err != nil {
		return fmt.Errorf("publish receipt: %w", err)
	}

	metrics.ReadReceiptsSent.Inc()
	if s.readSignal != nil {
		s.readSignal.Notify()
	}
	return nil
}

// clientConfig builds the transport config for a dial.
func (s *Session) clientConfig(identity model.Identity) transport.ClientConfig {
	return transport.ClientConfig{
		URL:          s.cfg.WSURL,
		Identity:     identity,
		PingTimeout:  s.cfg.PingTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BufferSize:   s.cfg.BufferSize,
	}
}

// roomTopic returns the inbound topic for a room.
func roomTopic(roomID int64) string {
	return fmt.Sprintf("chats/%d", roomID)
}

// subscribe sends a subscribe command and waits for the response.
func (s *Session) subscribe(ctx context.Context, client transport.Client, topic, token string) error {
	return s.command(ctx, client, Command{
		ID:     s.cmdID.Add(1),
		Cmd:    "subscribe",
		Params: SubscribeParams{Topic: topic, Token: token},
	})
}

// unsubscribe sends an unsubscribe command and waits for the response.
func (s *Session) unsubscribe(ctx context.Context, client transport.Client, token string) error {
	return s.command(ctx, client, Command{
		ID:     s.cmdID.Add(1),
		Cmd:    "unsubscribe",
		Params: UnsubscribeParams{Token: token},
	})
}

// command sends a command and waits for its correlated response.
func (s *Session) command(ctx context.Context, client transport.Client, cmd Command) error {
	respCh := make(chan Response, 1)

	s.pendingMu.Lock()
	s.pending[cmd.ID] = respCh
	s.pendingMu.Unlock()

	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, cmd.ID)
		s.pendingMu.Unlock()
	}()

	data, _ := json.Marshal(cmd)
	if err := client.Send(data); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.SubscribeTimeout):
		return ErrTimeout
	case resp := <-respCh:
		if resp.Type == "error" {
			var errMsg ErrorMsg
			json.Unmarshal(resp.Msg, &errMsg)
			return fmt.Errorf("%s: %s", errMsg.Code, errMsg.Message)
		}
		return nil
	}
}

// dispatchLoop reads messages from one transport client and dispatches them.
// It exits when the session context is canceled or a transport error triggers
// reconnection.
func (s *Session) dispatchLoop(client transport.Client) {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case err := <-client.Errors():
			s.logger.Warn("channel error", "error", err)
			s.wg.Add(1)
			go s.reconnect(client)
			return

		case msg, ok := <-client.Messages():
			if !ok {
				return
			}
			s.handleRaw(msg.Data)
		}
	}
}

// handleRaw parses one inbound frame and routes it.
func (s *Session) handleRaw(data []byte) {
	// Command responses first
	if resp, ok := tryParseResponse(data); ok {
		s.routeResponse(resp)
		return
	}

	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		s.logger.Warn("failed to parse event", "error", err)
		metrics.EventsDropped.WithLabelValues("parse_error").Inc()
		return
	}

	switch ev.Type {
	case "message":
		s.handleMessageEvent(ev)

	case "read":
		s.handleReadEvent(ev)

	case "error":
		// Transport error events with no payload carry no information;
		// filter them so the UI layer never sees a no-op failure.
		if isEmptyPayload(ev.Msg) {
			s.logger.Debug("ignoring empty error event")
			return
		}
		var errMsg ErrorMsg
		json.Unmarshal(ev.Msg, &errMsg)
		s.logger.Warn("channel error event", "code", errMsg.Code, "message", errMsg.Message)

	default:
		s.logger.Debug("skipping event type", "type", ev.Type)
		metrics.EventsDropped.WithLabelValues("unknown_type").Inc()
	}
}

// handleMessageEvent appends a confirmed message for the active room.
func (s *Session) handleMessageEvent(ev Event) {
	var me MessageEvent
	if err := json.Unmarshal(ev.Msg, &me); err != nil {
		s.logger.Warn("failed to parse message event", "error", err)
		metrics.EventsDropped.WithLabelValues("parse_error").Inc()
		return
	}

	s.mu.Lock()
	active := s.activeRoom
	s.mu.Unlock()

	// Late event for a just-abandoned room: drop, never append
	if me.RoomID != active {
		s.logger.Debug("dropping event for inactive room", "room", me.RoomID, "active", active)
		metrics.EventsDropped.WithLabelValues("room_mismatch").Inc()
		return
	}

	msg := model.Message{
		ID:        me.ID,
		TempID:    me.TempID,
		RoomID:    me.RoomID,
		SenderID:  me.SenderID,
		Text:      me.Text,
		ImageURL:  me.ImageURL,
		Timestamp: me.Ts,
		State:     model.Confirmed,
	}
	s.log.Confirm(msg)
	metrics.MessagesConfirmed.Inc()

	if s.onConfirmed != nil {
		s.onConfirmed(msg)
	}
}

// handleReadEvent updates the peer read position for the active room.
func (s *Session) handleReadEvent(ev Event) {
	var re ReadEvent
	if err := json.Unmarshal(ev.Msg, &re); err != nil {
		s.logger.Warn("failed to parse read event", "error", err)
		metrics.EventsDropped.WithLabelValues("parse_error").Inc()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if re.RoomID != s.activeRoom {
		metrics.EventsDropped.WithLabelValues("room_mismatch").Inc()
		return
	}
	if re.ReaderID != s.identity.UserID && re.LastSeenMessageID > s.peerRead {
		s.peerRead = re.LastSeenMessageID
	}
}

// routeResponse delivers a response to the waiting command.
func (s *Session) routeResponse(resp Response) {
	s.pendingMu.Lock()
	ch, ok := s.pending[resp.ID]
	if ok {
		delete(s.pending, resp.ID)
	}
	s.pendingMu.Unlock()

	if ok {
		select {
		case ch <- resp:
		default:
		}
	}
}

// tryParseResponse attempts to parse a frame as a command response.
func tryParseResponse(data []byte) (Response, bool) {
	// Quick check for response markers
	if !bytes.Contains(data, []byte(`"id":`)) {
		return Response{}, false
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, false
	}

	// Events can carry an "id" inside their payload; only a nonzero
	// top-level id marks a command response
	if resp.ID == 0 {
		return Response{}, false
	}

	switch resp.Type {
	case "subscribed", "unsubscribed", "error", "ok":
		return resp, true
	}

	return Response{}, false
}

// isEmptyPayload reports whether an event payload carries no information.
func isEmptyPayload(msg json.RawMessage) bool {
	trimmed := bytes.TrimSpace(msg)
	return len(trimmed) == 0 ||
		bytes.Equal(trimmed, []byte("{}")) ||
		bytes.Equal(trimmed, []byte("null"))
}

// reconnect retries the channel with exponential backoff, then resubscribes
// the active room and restarts dispatch.
func (s *Session) reconnect(old transport.Client) {
	defer s.wg.Done()

	s.mu.Lock()
	if s.client != old {
		// Disconnected (or already replaced) while the error was in flight
		s.mu.Unlock()
		return
	}
	s.state = Reconnecting
	s.subToken = ""
	identity := s.identity
	s.mu.Unlock()

	old.Close()

	wait := s.cfg.ReconnectBaseDelay

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(wait):
		}

		s.logger.Info("attempting reconnection", "wait", wait)

		client := transport.NewClient(s.clientConfig(identity), s.logger)
		if err := client.Connect(s.ctx); err != nil {
			s.logger.Warn("reconnection failed", "error", err)

			// Exponential backoff
			wait *= 2
			if wait > s.cfg.ReconnectMaxDelay {
				wait = s.cfg.ReconnectMaxDelay
			}
			continue
		}

		s.mu.Lock()
		if s.state == Disconnected {
			// Logged out while retrying
			s.mu.Unlock()
			client.Close()
			return
		}
		s.client = client
		s.state = Connected
		s.mu.Unlock()

		// Drop stale command correlation state
		s.pendingMu.Lock()
		s.pending = make(map[int64]chan Response)
		s.pendingMu.Unlock()

		s.logger.Info("reconnected")
		metrics.Reconnects.Inc()

		s.wg.Add(1)
		go s.dispatchLoop(client)

		// Reattach the active room with a fresh token; dispatch must already
		// be running to route the subscribe response
		s.attachActiveRoom(s.ctx, client)
		return
	}
}

// sweepLoop periodically transitions overdue pending entries to Failed.
func (s *Session) sweepLoop() {
	defer s.wg.Done()

	if s.cfg.ConfirmTimeout <= 0 {
		return
	}

	interval := s.cfg.ConfirmTimeout / 3
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if failed := s.log.MarkFailed(time.Now().Add(-s.cfg.ConfirmTimeout)); failed > 0 {
				s.logger.Warn("messages failed to confirm", "count", failed)
			}
		}
	}
}
