package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glizzus/voicelink/internal/config"
	"github.com/glizzus/voicelink/internal/generator"
	"github.com/glizzus/voicelink/internal/schedule"
	"github.com/gorilla/websocket"
)

// Client owns one voice session on top of a primary gateway.
type Client struct {
	gateway  Gateway
	cfg      *config.VoiceConfig
	attempts generator.Generator[string]

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	state atomic.Pointer[ConnectionState]

	connecting  atomic.Bool
	connected   atomic.Bool
	initialized atomic.Bool

	// connecting and connected only change under mu. attempt numbers
	// dials; a dial whose number is no longer current was abandoned.
	mu              sync.Mutex
	attempt         uint64
	cancelDial      context.CancelFunc
	conn            *controlConn
	udp             *net.UDPConn
	streamer        *Streamer
	cancelReconnect context.CancelFunc

	heartbeat  heartbeater
	correlator *correlator
	workers    *workers

	voiceModes *Registry[VoiceMode]
	videoModes *Registry[VideoMode]

	unsubscribe []func()

	heartbeatsSent atomic.Uint64
	lastAck        atomic.Int64
	reconnects     atomic.Uint64
}

// NewClient subscribes to the gateway's voice events. A nil cfg uses the
// default timings. Close releases the client.
func NewClient(gateway Gateway, cfg *config.VoiceConfig) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		gateway:    gateway,
		cfg:        cfg.WithDefaults(),
		attempts:   generator.NewPrefixedGenerator("attempt", &generator.UUIDV4Generator{}),
		ctx:        ctx,
		cancel:     cancel,
		workers:    newWorkers(),
		voiceModes: NewRegistry[VoiceMode]("voice"),
		videoModes: NewRegistry[VideoMode]("video"),
	}
	c.state.Store(&ConnectionState{})
	c.correlator = newCorrelator(c.cfg.SettleDelay, c.handleReady)
	c.unsubscribe = []func(){
		gateway.OnServerAssignment(c.onServerAssignment),
		gateway.OnStateAssignment(c.onStateAssignment),
	}
	return c
}

// Close disconnects and stops every background task. Operations on a
// closed client return ErrClientClosed.
func (c *Client) Close() {
	if c.closed.Swap(true) {
		return
	}
	for _, unsubscribe := range c.unsubscribe {
		unsubscribe()
	}
	c.Disconnect()
	c.cancel()
	c.correlator.Close()
	c.workers.Close()
	slog.Info("voice client closed")
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	return *c.state.Load()
}

func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

func (c *Client) setState(s ConnectionState) {
	c.state.Store(&s)
}

// updateState applies fn until it wins against concurrent writers. fn
// returning false leaves the state unchanged.
func (c *Client) updateState(fn func(ConnectionState) (ConnectionState, bool)) (ConnectionState, bool) {
	for {
		current := c.state.Load()
		next, ok := fn(*current)
		if !ok {
			return *current, false
		}
		if c.state.CompareAndSwap(current, &next) {
			return next, true
		}
	}
}

// targets reports whether events for guildID concern this client.
func targets(s ConnectionState, guildID string) bool {
	return s.GuildID == "" || s.GuildID == guildID
}

func (c *Client) onServerAssignment(ev ServerAssignment) {
	if c.closed.Load() {
		return
	}
	next, ok := c.updateState(func(s ConnectionState) (ConnectionState, bool) {
		if !targets(s, ev.GuildID) {
			return s, false
		}
		return s.WithServerUpdate(ev.GuildID, ev.Token, ev.Endpoint), true
	})
	if !ok {
		slog.Debug("ignoring voice server update for another guild", "guildID", ev.GuildID)
		return
	}
	c.post(next)
}

func (c *Client) onStateAssignment(ev StateAssignment) {
	if c.closed.Load() || ev.UserID != c.gateway.SelfID() {
		return
	}
	next, ok := c.updateState(func(s ConnectionState) (ConnectionState, bool) {
		if !targets(s, ev.GuildID) {
			return s, false
		}
		return s.WithStateUpdate(ev.GuildID, ev.ChannelID, ev.SessionID), true
	})
	if !ok {
		slog.Debug("ignoring voice state update for another guild", "guildID", ev.GuildID)
		return
	}

	if ev.ChannelID == "" {
		slog.Info("left voice channel, disconnecting", "guildID", ev.GuildID)
		c.workers.Go("disconnect", c.Disconnect)
		return
	}
	c.post(next)
}

func (c *Client) post(s ConnectionState) {
	if err := c.correlator.Post(c.ctx, s); err != nil && !errors.Is(err, ErrClientClosed) {
		slog.Warn("failed to post connection state", "error", err)
	}
}

// handleReady runs once the correlator decides the state has settled.
func (c *Client) handleReady(s ConnectionState) {
	if !s.Equal(c.State()) {
		slog.Debug("settled state is stale, ignoring", "state", s)
		return
	}
	if c.connecting.Load() || c.connected.Load() {
		slog.Info("voice connection already in progress, ignoring ready state", "state", s)
		return
	}
	c.workers.Go("connect", func() {
		if err := c.connect(s); err != nil && !errors.Is(err, ErrConnectInProgress) && !errors.Is(err, ErrConnectAbandoned) {
			slog.Error("failed to connect to voice gateway", "state", s, "error", err)
		}
	})
}

// JoinAndConnect asks the gateway to join channelID and connects once both
// voice events for it have arrived. ctx bounds the wait for the events.
func (c *Client) JoinAndConnect(ctx context.Context, guildID, channelID string) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	slog.Info("joining voice channel", "guildID", guildID, "channelID", channelID)

	base := ConnectionState{}.WithTargetChannel(guildID, channelID)
	c.setState(base)

	stateCh := make(chan StateAssignment, 1)
	serverCh := make(chan ServerAssignment, 1)
	selfID := c.gateway.SelfID()

	stopState := c.gateway.OnStateAssignment(func(ev StateAssignment) {
		if ev.UserID != selfID || ev.GuildID != guildID || ev.ChannelID != channelID {
			return
		}
		select {
		case stateCh <- ev:
		default:
		}
	})
	defer stopState()
	stopServer := c.gateway.OnServerAssignment(func(ev ServerAssignment) {
		if ev.GuildID != guildID {
			return
		}
		select {
		case serverCh <- ev:
		default:
		}
	})
	defer stopServer()

	if err := c.gateway.UpdateVoiceState(guildID, channelID, false, false); err != nil {
		return fmt.Errorf("failed to send voice state update: %w", err)
	}

	var (
		stateEv  StateAssignment
		serverEv ServerAssignment
	)
	for got := 0; got < 2; got++ {
		select {
		case stateEv = <-stateCh:
			stateCh = nil
		case serverEv = <-serverCh:
			serverCh = nil
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for voice assignments: %w", ctx.Err())
		case <-c.ctx.Done():
			return ErrClientClosed
		}
	}

	full := base.
		WithStateUpdate(guildID, channelID, stateEv.SessionID).
		WithServerUpdate(guildID, serverEv.Token, serverEv.Endpoint)
	c.setState(full)

	if err := c.connect(full); err != nil {
		if errors.Is(err, ErrConnectInProgress) {
			slog.Debug("voice connection already started by ready state", "guildID", guildID)
			return nil
		}
		return err
	}

	c.notifyChannelJoin(guildID, channelID)
	return nil
}

func (c *Client) notifyChannelJoin(guildID, channelID string) {
	if !c.connected.Load() {
		return
	}
	if _, err := c.voiceModes.WithActive(func(id string, m VoiceMode) error {
		return c.attachVoiceMode(m, guildID, channelID)
	}); err != nil {
		slog.Error("failed to notify voice mode of channel join", "error", err)
	}
	if _, err := c.videoModes.WithActive(func(id string, m VideoMode) error {
		return m.JoinChannel(guildID, channelID)
	}); err != nil {
		slog.Error("failed to notify video mode of channel join", "error", err)
	}
}

func (c *Client) attachVoiceMode(m VoiceMode, guildID, channelID string) error {
	if err := m.JoinChannel(guildID, channelID); err != nil {
		return err
	}
	if streamer := c.currentStreamer(); streamer != nil {
		m.SetStreamer(streamer)
	}
	return nil
}

// LeaveVoice disconnects and tells the gateway to leave the guild's voice
// channel.
func (c *Client) LeaveVoice(guildID string) error {
	c.Disconnect()
	if err := c.gateway.UpdateVoiceState(guildID, "", false, false); err != nil {
		return fmt.Errorf("failed to send voice state update: %w", err)
	}
	return nil
}

// Disconnect tears the session down and abandons any dial in flight.
// Modes are shut down only if the session had been initialized, and both
// active mode ids are cleared.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.cancelReconnect != nil {
		c.cancelReconnect()
		c.cancelReconnect = nil
	}
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	c.attempt++
	c.connecting.Store(false)
	c.connected.Store(false)
	c.mu.Unlock()

	c.cleanup()

	c.voiceModes.ClearActive()
	c.videoModes.ClearActive()
	c.setState(ConnectionState{})
	if err := c.correlator.Reset(c.ctx); err != nil && !errors.Is(err, ErrClientClosed) {
		slog.Warn("failed to reset readiness", "error", err)
	}
	slog.Info("voice disconnected")
}

// cleanup releases the session's sockets and media. It is safe to call
// repeatedly.
func (c *Client) cleanup() {
	c.heartbeat.Stop()

	c.mu.Lock()
	conn, udp, streamer := c.conn, c.udp, c.streamer
	c.conn, c.udp, c.streamer = nil, nil, nil
	c.mu.Unlock()

	if streamer != nil {
		streamer.Stop()
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			slog.Debug("failed to close voice websocket", "error", err)
		}
	}
	if udp != nil {
		if err := udp.Close(); err != nil {
			slog.Debug("failed to close voice udp socket", "error", err)
		}
	}

	if c.initialized.Swap(false) {
		if _, err := c.voiceModes.WithActive(func(id string, m VoiceMode) error { return m.Shutdown() }); err != nil {
			slog.Error("failed to shut down voice mode", "error", err)
		}
		if _, err := c.videoModes.WithActive(func(id string, m VideoMode) error { return m.Shutdown() }); err != nil {
			slog.Error("failed to shut down video mode", "error", err)
		}
	}
}

// connect opens the voice websocket for s and sends IDENTIFY. At most one
// dial runs at a time; a Disconnect during the dial abandons it.
func (c *Client) connect(s ConnectionState) error {
	attemptID, err := c.attempts.Next()
	if err != nil {
		return fmt.Errorf("failed to generate attempt id: %w", err)
	}

	c.mu.Lock()
	if c.connecting.Load() {
		c.mu.Unlock()
		return ErrConnectInProgress
	}
	if c.closed.Load() {
		c.mu.Unlock()
		return ErrClientClosed
	}
	c.connecting.Store(true)
	c.attempt++
	attempt := c.attempt
	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.HandshakeTimeout)
	c.cancelDial = cancel
	c.mu.Unlock()
	defer cancel()

	logger := slog.With("attempt", attemptID, "guildID", s.GuildID)

	c.cleanup()

	url := c.gatewayURL(s.Endpoint)
	logger.Info("connecting to voice gateway", "url", url)

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}
	ws, _, dialErr := dialer.DialContext(ctx, url, nil)

	c.mu.Lock()
	if c.attempt != attempt {
		c.mu.Unlock()
		if ws != nil {
			ws.Close()
		}
		logger.Info("voice connection attempt abandoned")
		return ErrConnectAbandoned
	}
	c.cancelDial = nil
	c.connecting.Store(false)
	if dialErr != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to dial voice gateway: %w", dialErr)
	}
	conn := newControlConn(ws)
	previousConn, previousUDP := c.conn, c.udp
	c.conn, c.udp = conn, nil
	c.connected.Store(true)
	c.mu.Unlock()

	if previousConn != nil {
		previousConn.Close()
	}
	if previousUDP != nil {
		previousUDP.Close()
	}

	identify := IdentifyPayload{
		ServerID:  s.GuildID,
		UserID:    c.gateway.SelfID(),
		SessionID: s.SessionID,
		Token:     s.Token,
	}
	if err := conn.Send(OpIdentify, identify); err != nil {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
			c.connected.Store(false)
		}
		c.mu.Unlock()
		conn.Close()
		return err
	}

	logger.Info("voice websocket open, identified")
	go c.readLoop(conn, logger)
	return nil
}

// gatewayURL is <scheme>://<endpoint>/?v=<version>.
func (c *Client) gatewayURL(endpoint string) string {
	host := endpoint
	if c.cfg.GatewayPort > 0 {
		host = net.JoinHostPort(endpoint, strconv.Itoa(c.cfg.GatewayPort))
	}
	return fmt.Sprintf("%s://%s/?v=%d", c.cfg.GatewayScheme, host, c.cfg.GatewayVersion)
}

func (c *Client) isCurrent(conn *controlConn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn == conn
}

func (c *Client) currentStreamer() *Streamer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamer
}

func (c *Client) readLoop(conn *controlConn, logger *slog.Logger) {
	for {
		data, err := conn.Receive()
		if err != nil {
			c.handleClose(conn, err, logger)
			return
		}
		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			logger.Warn("skipping malformed voice event", "error", err)
			continue
		}
		c.handleEvent(conn, event, logger)
	}
}

func (c *Client) handleEvent(conn *controlConn, event Event, logger *slog.Logger) {
	if !c.isCurrent(conn) {
		logger.Debug("ignoring event from stale voice websocket", "op", event.Op)
		return
	}
	switch event.Op {
	case OpHello:
		var hello HelloPayload
		if err := json.Unmarshal(event.D, &hello); err != nil {
			logger.Warn("skipping malformed HELLO", "error", err)
			return
		}
		interval := time.Duration(hello.HeartbeatInterval * float64(time.Millisecond))
		if interval <= 0 {
			logger.Warn("HELLO carried no heartbeat interval", "interval", hello.HeartbeatInterval)
			return
		}
		logger.Info("starting heartbeat", "interval", interval)
		c.heartbeat.Start(interval, func() bool { return c.sendHeartbeat(conn, logger) })

	case OpReady:
		var ready ReadyPayload
		if err := json.Unmarshal(event.D, &ready); err != nil {
			logger.Warn("skipping malformed READY", "error", err)
			return
		}
		c.updateState(func(s ConnectionState) (ConnectionState, bool) {
			return s.WithVoiceReady(ready.SSRC, ready.IP, ready.Port), true
		})
		logger.Info("voice ready", "ssrc", ready.SSRC, "ip", ready.IP, "port", ready.Port)
		c.workers.Go("discovery", func() { c.selectProtocol(conn, ready, logger) })

	case OpSessionDescription:
		var desc SessionDescriptionPayload
		if err := json.Unmarshal(event.D, &desc); err != nil {
			logger.Warn("skipping malformed SESSION_DESCRIPTION", "error", err)
			return
		}
		c.bindMedia(conn, desc, logger)

	case OpHeartbeatAck:
		c.lastAck.Store(time.Now().UnixNano())
		logger.Debug("heartbeat acknowledged")

	default:
		logger.Debug("ignoring voice opcode", "op", event.Op)
	}
}

// sendHeartbeat reports false once conn is no longer the session's
// websocket, which ends its heartbeat loop.
func (c *Client) sendHeartbeat(conn *controlConn, logger *slog.Logger) bool {
	if !c.isCurrent(conn) {
		logger.Debug("stopping heartbeat for stale voice websocket")
		return false
	}
	if !conn.Open() || !c.connected.Load() {
		return true
	}
	nonce := time.Now().UnixMilli()
	if err := conn.Send(OpHeartbeat, nonce); err != nil {
		logger.Warn("dropping heartbeat", "error", err)
		return true
	}
	n := c.heartbeatsSent.Add(1)
	logger.Debug("sent heartbeat", "count", n)
	return true
}

// selectProtocol binds a fresh UDP socket, discovers our external address
// and sends SELECT_PROTOCOL. Discovery failures fall back to the address
// from READY.
func (c *Client) selectProtocol(conn *controlConn, ready ReadyPayload, logger *slog.Logger) {
	udp, err := net.ListenUDP("udp", nil)
	if err != nil {
		logger.Error("failed to open voice udp socket", "error", err)
		return
	}

	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		udp.Close()
		return
	}
	previous := c.udp
	c.udp = udp
	c.mu.Unlock()
	if previous != nil {
		previous.Close()
	}

	address, port := ready.IP, ready.Port
	server, err := net.ResolveUDPAddr("udp", net.JoinHostPort(ready.IP, strconv.Itoa(ready.Port)))
	if err != nil {
		logger.Warn("failed to resolve voice server, using READY address", "error", err)
	} else if ip, p, err := Discover(udp, server, ready.SSRC, c.cfg.DiscoveryTimeout); err != nil {
		logger.Warn("ip discovery failed, using READY address", "error", err)
	} else {
		address, port = ip, p
		logger.Info("discovered external address", "ip", ip, "port", p)
	}

	payload := SelectProtocolPayload{
		Protocol: "udp",
		Data: SelectProtocolData{
			Address: address,
			Port:    port,
			Mode:    EncryptionMode,
		},
	}
	if err := conn.Send(OpSelectProtocol, payload); err != nil {
		logger.Error("failed to select protocol", "error", err)
	}
}

// bindMedia builds the media path from the session key and hands it to
// the active modes.
func (c *Client) bindMedia(conn *controlConn, desc SessionDescriptionPayload, logger *slog.Logger) {
	key, err := desc.Key()
	if err != nil {
		logger.Error("invalid session description", "error", err)
		return
	}
	if desc.Mode != "" && desc.Mode != EncryptionMode {
		logger.Warn("voice server chose an unexpected encryption mode", "mode", desc.Mode)
	}

	s := c.State()
	c.mu.Lock()
	udp := c.udp
	current := c.conn == conn
	c.mu.Unlock()
	if !current || udp == nil {
		logger.Warn("session description arrived without a media socket")
		return
	}

	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(s.MediaIP, strconv.Itoa(s.MediaPort)))
	if err != nil {
		logger.Error("failed to resolve media address", "error", err)
		return
	}
	packetizer, err := NewPacketizer(s.SSRC, key, 0, uint32(time.Now().UnixMilli()))
	if err != nil {
		logger.Error("failed to create packetizer", "error", err)
		return
	}
	interval := c.cfg.FrameInterval
	if c.cfg.DisablePacing {
		interval = 0
	}
	streamer := NewStreamer(udp, addr, packetizer, c.connected.Load, interval)

	c.mu.Lock()
	previous := c.streamer
	c.streamer = streamer
	c.mu.Unlock()
	if previous != nil {
		previous.Stop()
	}

	if _, err := c.voiceModes.WithActive(func(id string, m VoiceMode) error {
		m.SetStreamer(streamer)
		return m.Initialize()
	}); err != nil {
		logger.Error("failed to initialize voice mode", "error", err)
	}
	if _, err := c.videoModes.WithActive(func(id string, m VideoMode) error {
		return m.Initialize()
	}); err != nil {
		logger.Error("failed to initialize video mode", "error", err)
	}

	c.initialized.Store(true)
	logger.Info("voice session established", "state", s)
}

func (c *Client) handleClose(conn *controlConn, err error, logger *slog.Logger) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		logger.Debug("stale voice websocket closed", "error", err)
		return
	}
	c.connected.Store(false)
	c.mu.Unlock()

	code, reason := CloseCodeFromError(err)
	action := ClassifyClose(code)
	logger.Info("voice websocket closed", "code", code, "reason", reason, "action", action)

	c.cleanup()

	switch action {
	case CloseActionRejoin:
		s := c.State()
		c.scheduleReconnect(c.cfg.AbnormalCloseDelay, func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, c.cfg.JoinTimeout)
			defer cancel()
			if err := c.JoinAndConnect(ctx, s.GuildID, s.ChannelID); err != nil {
				slog.Error("failed to rejoin voice channel", "guildID", s.GuildID, "error", err)
			}
		})
	case CloseActionReconnect:
		c.scheduleReconnect(c.cfg.ServerCrashDelay, func(ctx context.Context) {
			if err := c.connect(c.State()); err != nil && !errors.Is(err, ErrConnectAbandoned) {
				slog.Error("failed to reconnect to voice gateway", "error", err)
			}
		})
	}
}

func (c *Client) scheduleReconnect(delay time.Duration, reconnect func(ctx context.Context)) {
	if c.closed.Load() {
		return
	}
	c.reconnects.Add(1)
	slog.Info("scheduling voice reconnect", "delay", delay)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelReconnect != nil {
		c.cancelReconnect()
	}
	c.cancelReconnect = schedule.RunAfter(c.ctx, delay, func(ctx context.Context) {
		c.workers.Go("reconnect", func() { reconnect(ctx) })
	})
}

func (c *Client) RegisterVoiceMode(id string, mode VoiceMode) {
	c.voiceModes.Register(id, mode)
}

func (c *Client) RegisterVideoMode(id string, mode VideoMode) {
	c.videoModes.Register(id, mode)
}

func (c *Client) UnregisterVoiceMode(id string) bool {
	return c.voiceModes.Unregister(id)
}

func (c *Client) UnregisterVideoMode(id string) bool {
	return c.videoModes.Unregister(id)
}

// SwitchToVoiceMode activates id. If a channel is joined the mode is told
// about it and handed the media path.
func (c *Client) SwitchToVoiceMode(id string) error {
	return c.voiceModes.SwitchTo(id, func(m VoiceMode) error {
		s := c.State()
		if !c.connected.Load() || s.ChannelID == "" {
			return nil
		}
		return c.attachVoiceMode(m, s.GuildID, s.ChannelID)
	})
}

func (c *Client) SwitchToVideoMode(id string) error {
	return c.videoModes.SwitchTo(id, func(m VideoMode) error {
		s := c.State()
		if !c.connected.Load() || s.ChannelID == "" {
			return nil
		}
		return m.JoinChannel(s.GuildID, s.ChannelID)
	})
}

func (c *Client) ActiveVoiceModeID() string      { return c.voiceModes.ActiveID() }
func (c *Client) ActiveVideoModeID() string      { return c.videoModes.ActiveID() }
func (c *Client) RegisteredVoiceModes() []string { return c.voiceModes.IDs() }
func (c *Client) RegisteredVideoModes() []string { return c.videoModes.IDs() }

// Play starts source on the active voice mode.
func (c *Client) Play(source string) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if !c.connected.Load() {
		return ErrNotConnected
	}
	id, mode, ok := c.voiceModes.Active()
	if !ok {
		return &ModeNotFoundError{Kind: "voice"}
	}
	if err := Guard(func() error { return mode.Start(source) }); err != nil {
		return fmt.Errorf("failed to start %s: %w", id, err)
	}
	return nil
}

// Stop stops whatever the active modes are playing.
func (c *Client) Stop() {
	if id, mode, ok := c.voiceModes.Active(); ok {
		if err := Guard(mode.Stop); err != nil {
			slog.Error("failed to stop voice mode", "mode", id, "error", err)
		}
	}
	if id, mode, ok := c.videoModes.Active(); ok {
		if err := Guard(mode.Stop); err != nil {
			slog.Error("failed to stop video mode", "mode", id, "error", err)
		}
	}
}

// SetSpeaking sends the SPEAKING opcode with the combined flags.
// No flags clears speaking.
func (c *Client) SetSpeaking(flags ...SpeakingFlag) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || !c.connected.Load() {
		return ErrNotConnected
	}
	ssrc := c.State().SSRC
	if ssrc == 0 {
		return ErrNoSSRC
	}
	return conn.Send(OpSpeaking, SpeakingPayload{
		Speaking: CombineSpeaking(flags...),
		Delay:    0,
		SSRC:     ssrc,
	})
}

// DebugStatus snapshots the client.
func (c *Client) DebugStatus() Status {
	c.mu.Lock()
	wsOpen := c.conn != nil && c.conn.Open()
	udpClosed := c.udp == nil
	streamerReady := c.streamer != nil
	c.mu.Unlock()

	status := Status{
		Connected:           c.connected.Load(),
		Connecting:          c.connecting.Load(),
		Initialized:         c.initialized.Load(),
		State:               c.State().String(),
		WebsocketOpen:       wsOpen,
		UDPClosed:           udpClosed,
		StreamerReady:       streamerReady,
		ActiveVoiceMode:     c.voiceModes.ActiveID(),
		ActiveVideoMode:     c.videoModes.ActiveID(),
		VoiceModes:          c.voiceModes.IDs(),
		VideoModes:          c.videoModes.IDs(),
		HeartbeatsSent:      c.heartbeatsSent.Load(),
		ReconnectsScheduled: c.reconnects.Load(),
	}
	if ack := c.lastAck.Load(); ack != 0 {
		status.LastHeartbeatAck = time.Unix(0, ack)
	}
	return status
}
