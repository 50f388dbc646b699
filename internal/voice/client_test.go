package voice_test

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glizzus/voicelink/internal/config"
	"github.com/glizzus/voicelink/internal/voice"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	testGuild   = "guild-1"
	testChannel = "channel-1"
	testSelf    = "bot-user"
	testSSRC    = 4321
	// discoveredPort is what the fake media server reports back, so a
	// SELECT_PROTOCOL carrying it proves discovery ran.
	discoveredPort = 50505
)

// fakeGateway answers every join with both voice events pointing at
// endpoint, like the primary gateway would.
type fakeGateway struct {
	endpoint string

	mu       sync.Mutex
	next     int
	servers  map[int]func(voice.ServerAssignment)
	states   map[int]func(voice.StateAssignment)
	updates  []string
	joins    int
	autoJoin bool
}

func newFakeGateway(endpoint string) *fakeGateway {
	return &fakeGateway{
		endpoint: endpoint,
		servers:  make(map[int]func(voice.ServerAssignment)),
		states:   make(map[int]func(voice.StateAssignment)),
		autoJoin: true,
	}
}

func (g *fakeGateway) SelfID() string { return testSelf }

func (g *fakeGateway) UpdateVoiceState(guildID, channelID string, mute, deaf bool) error {
	g.mu.Lock()
	g.updates = append(g.updates, guildID+"/"+channelID)
	if channelID != "" {
		g.joins++
	}
	token := "token-" + strconv.Itoa(g.joins)
	auto := g.autoJoin
	g.mu.Unlock()

	if !auto {
		return nil
	}
	go func() {
		g.emitState(voice.StateAssignment{GuildID: guildID, ChannelID: channelID, SessionID: "session-1", UserID: testSelf})
		if channelID != "" {
			g.emitServer(voice.ServerAssignment{GuildID: guildID, Token: token, Endpoint: g.endpoint})
		}
	}()
	return nil
}

func (g *fakeGateway) OnServerAssignment(handler func(voice.ServerAssignment)) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next
	g.next++
	g.servers[id] = handler
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.servers, id)
	}
}

func (g *fakeGateway) OnStateAssignment(handler func(voice.StateAssignment)) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next
	g.next++
	g.states[id] = handler
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.states, id)
	}
}

func (g *fakeGateway) emitServer(ev voice.ServerAssignment) {
	g.mu.Lock()
	handlers := make([]func(voice.ServerAssignment), 0, len(g.servers))
	for _, h := range g.servers {
		handlers = append(handlers, h)
	}
	g.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (g *fakeGateway) emitState(ev voice.StateAssignment) {
	g.mu.Lock()
	handlers := make([]func(voice.StateAssignment), 0, len(g.states))
	for _, h := range g.states {
		handlers = append(handlers, h)
	}
	g.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (g *fakeGateway) joinCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.joins
}

func (g *fakeGateway) voiceStateUpdates() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.updates...)
}

// received is one message the fake voice server got from the client.
type received struct {
	conn  int
	event voice.Event
}

// voiceServer plays the voice websocket: HELLO on connect, READY after
// IDENTIFY, SESSION_DESCRIPTION after SELECT_PROTOCOL, ACK per heartbeat.
type voiceServer struct {
	t        *testing.T
	server   *httptest.Server
	upgrader websocket.Upgrader
	key      [32]byte
	media    *mediaServer

	events chan received

	// upgradeDelay holds each handshake open before upgrading.
	upgradeDelay time.Duration

	mu    sync.Mutex
	conns []*websocket.Conn
	open  int
}

func newVoiceServer(t *testing.T, media *mediaServer, upgradeDelay time.Duration) *voiceServer {
	t.Helper()
	vs := &voiceServer{
		t:            t,
		key:          *testKey(),
		media:        media,
		events:       make(chan received, 256),
		upgradeDelay: upgradeDelay,
	}
	vs.server = httptest.NewServer(http.HandlerFunc(vs.handle))
	t.Cleanup(vs.server.Close)
	return vs
}

func (vs *voiceServer) host() string {
	u := strings.TrimPrefix(vs.server.URL, "http://")
	host, _, _ := net.SplitHostPort(u)
	return host
}

func (vs *voiceServer) port() int {
	u := strings.TrimPrefix(vs.server.URL, "http://")
	_, port, _ := net.SplitHostPort(u)
	p, _ := strconv.Atoi(port)
	return p
}

func (vs *voiceServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("v") != "4" {
		http.Error(w, "bad version", http.StatusBadRequest)
		return
	}
	if vs.upgradeDelay > 0 {
		time.Sleep(vs.upgradeDelay)
	}
	ws, err := vs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	vs.mu.Lock()
	index := len(vs.conns)
	vs.conns = append(vs.conns, ws)
	vs.open++
	vs.mu.Unlock()
	defer func() {
		vs.mu.Lock()
		vs.open--
		vs.mu.Unlock()
	}()

	send := func(op voice.Opcode, d any) {
		ws.WriteJSON(map[string]any{"op": op, "d": d})
	}
	send(voice.OpHello, map[string]any{"heartbeat_interval": 25.0})

	for {
		var event voice.Event
		if err := ws.ReadJSON(&event); err != nil {
			return
		}
		vs.events <- received{conn: index, event: event}

		switch event.Op {
		case voice.OpIdentify:
			send(voice.OpReady, map[string]any{
				"ssrc":  testSSRC,
				"ip":    "127.0.0.1",
				"port":  vs.media.port(),
				"modes": []string{voice.EncryptionMode},
			})
		case voice.OpSelectProtocol:
			key := make([]int, len(vs.key))
			for i, b := range vs.key {
				key[i] = int(b)
			}
			send(voice.OpSessionDescription, map[string]any{
				"mode":       voice.EncryptionMode,
				"secret_key": key,
			})
		case voice.OpHeartbeat:
			send(voice.OpHeartbeatAck, event.D)
		}
	}
}

func (vs *voiceServer) conn(t *testing.T, index int) *websocket.Conn {
	t.Helper()
	var ws *websocket.Conn
	eventually(t, "voice connection "+strconv.Itoa(index), func() bool {
		vs.mu.Lock()
		defer vs.mu.Unlock()
		if len(vs.conns) > index {
			ws = vs.conns[index]
			return true
		}
		return false
	})
	return ws
}

func (vs *voiceServer) connCount() int {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return len(vs.conns)
}

// openCount is how many voice websockets the server still holds open.
func (vs *voiceServer) openCount() int {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.open
}

// closeWith sends a close frame carrying code on connection index.
func (vs *voiceServer) closeWith(t *testing.T, index, code int) {
	t.Helper()
	ws := vs.conn(t, index)
	msg := websocket.FormatCloseMessage(code, "")
	if err := ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		t.Fatalf("failed to send close frame: %v", err)
	}
}

// drop kills connection index without a close frame.
func (vs *voiceServer) drop(t *testing.T, index int) {
	t.Helper()
	vs.conn(t, index).UnderlyingConn().Close()
}

// waitFor returns the next message with op, skipping others.
func (vs *voiceServer) waitFor(t *testing.T, op voice.Opcode) received {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case r := <-vs.events:
			if r.event.Op == op {
				return r
			}
		case <-deadline:
			t.Fatalf("voice server never received %s", op)
		}
	}
}

// mediaServer answers discovery requests and collects media packets.
type mediaServer struct {
	conn    *net.UDPConn
	packets chan []byte
}

func newMediaServer(t *testing.T) *mediaServer {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	m := &mediaServer{conn: conn, packets: make(chan []byte, 64)}
	go func() {
		buf := make([]byte, 1500)
		for {
			n, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			if n == voice.DiscoveryPacketSize && buf[0] != 0x80 {
				reply := discoveryReply("127.0.0.1", discoveredPort)
				copy(reply[:4], buf[:4])
				conn.WriteToUDP(reply, from)
				continue
			}
			packet := append([]byte(nil), buf[:n]...)
			select {
			case m.packets <- packet:
			default:
			}
		}
	}()
	return m
}

func (m *mediaServer) port() int {
	return m.conn.LocalAddr().(*net.UDPAddr).Port
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type clientHarness struct {
	client  *voice.Client
	gateway *fakeGateway
	server  *voiceServer
	media   *mediaServer
	mode    *recordingMode
	calls   *callLog
}

func testVoiceConfig(server *voiceServer) *config.VoiceConfig {
	return &config.VoiceConfig{
		SettleDelay:        20 * time.Millisecond,
		DiscoveryTimeout:   time.Second,
		AbnormalCloseDelay: 150 * time.Millisecond,
		ServerCrashDelay:   150 * time.Millisecond,
		HandshakeTimeout:   time.Second,
		FrameInterval:      time.Millisecond,
		JoinTimeout:        2 * time.Second,
		GatewayScheme:      "ws",
		GatewayPort:        server.port(),
	}
}

func newClientHarness(t *testing.T) *clientHarness {
	t.Helper()
	return newClientHarnessWithDelay(t, 0)
}

// newClientHarnessWithDelay stalls every voice handshake by upgradeDelay.
func newClientHarnessWithDelay(t *testing.T, upgradeDelay time.Duration) *clientHarness {
	t.Helper()
	media := newMediaServer(t)
	server := newVoiceServer(t, media, upgradeDelay)
	gateway := newFakeGateway(server.host() + ":443")

	client := voice.NewClient(gateway, testVoiceConfig(server))
	t.Cleanup(client.Close)

	calls := &callLog{}
	mode := &recordingMode{name: "file", log: calls}
	client.RegisterVoiceMode("file", mode)
	if err := client.SwitchToVoiceMode("file"); err != nil {
		t.Fatalf("SwitchToVoiceMode() returned error: %v", err)
	}

	return &clientHarness{client: client, gateway: gateway, server: server, media: media, mode: mode, calls: calls}
}

func (h *clientHarness) join(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := h.client.JoinAndConnect(ctx, testGuild, testChannel); err != nil {
		t.Fatalf("JoinAndConnect() returned error: %v", err)
	}
	eventually(t, "initialized session", func() bool {
		return h.client.DebugStatus().Initialized
	})
}

func TestClientHandshake(t *testing.T) {
	h := newClientHarness(t)
	h.join(t)

	identify := h.server.waitFor(t, voice.OpIdentify)
	var gotIdentify voice.IdentifyPayload
	if err := json.Unmarshal(identify.event.D, &gotIdentify); err != nil {
		t.Fatalf("failed to decode IDENTIFY: %v", err)
	}
	wantIdentify := voice.IdentifyPayload{
		ServerID:  testGuild,
		UserID:    testSelf,
		SessionID: "session-1",
		Token:     "token-1",
	}
	if diff := cmp.Diff(wantIdentify, gotIdentify); diff != "" {
		t.Errorf("IDENTIFY mismatch (-want +got):\n%s", diff)
	}

	sel := h.server.waitFor(t, voice.OpSelectProtocol)
	var gotSelect voice.SelectProtocolPayload
	if err := json.Unmarshal(sel.event.D, &gotSelect); err != nil {
		t.Fatalf("failed to decode SELECT_PROTOCOL: %v", err)
	}
	wantSelect := voice.SelectProtocolPayload{
		Protocol: "udp",
		Data: voice.SelectProtocolData{
			Address: "127.0.0.1",
			Port:    discoveredPort,
			Mode:    voice.EncryptionMode,
		},
	}
	if diff := cmp.Diff(wantSelect, gotSelect); diff != "" {
		t.Errorf("SELECT_PROTOCOL mismatch (-want +got):\n%s", diff)
	}

	status := h.client.DebugStatus()
	if !status.Connected || status.Connecting {
		t.Errorf("status connected=%t connecting=%t; want true/false", status.Connected, status.Connecting)
	}
	if !status.WebsocketOpen || status.UDPClosed || !status.StreamerReady {
		t.Errorf("status ws=%t udpClosed=%t streamer=%t", status.WebsocketOpen, status.UDPClosed, status.StreamerReady)
	}
	if got := h.client.State().SSRC; got != testSSRC {
		t.Errorf("State().SSRC = %d; want %d", got, testSSRC)
	}

	eventually(t, "mode initialized", func() bool {
		for _, call := range h.calls.all() {
			if call == "file.Initialize" {
				return true
			}
		}
		return false
	})
	if h.mode.boundStreamer() == nil {
		t.Errorf("active voice mode was never handed the streamer")
	}
}

func TestClientStreamsToVoiceServer(t *testing.T) {
	h := newClientHarness(t)
	h.join(t)

	streamer := h.mode.boundStreamer()
	if streamer == nil {
		t.Fatalf("active voice mode was never handed the streamer")
	}
	frames := [][]byte{{0xF8, 0xFF, 0xFE}, {0x01, 0x02}}
	waitDone(t, streamer.Start(&sliceSource{frames: frames}))

	for i, want := range frames {
		select {
		case packet := <-h.media.packets:
			if ssrc := binary.BigEndian.Uint32(packet[8:12]); ssrc != testSSRC {
				t.Errorf("packet %d ssrc = %d; want %d", i, ssrc, testSSRC)
			}
			nonce := voice.Nonce(packet[:12])
			opened, ok := secretbox.Open(nil, packet[12:], &nonce, &h.server.key)
			if !ok {
				t.Fatalf("packet %d failed to decrypt with the session key", i)
			}
			if diff := cmp.Diff(want, opened); diff != "" {
				t.Errorf("packet %d payload mismatch (-want +got):\n%s", i, diff)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("media server never received packet %d", i)
		}
	}
}

func TestClientHeartbeats(t *testing.T) {
	h := newClientHarness(t)
	h.join(t)

	h.server.waitFor(t, voice.OpHeartbeat)
	eventually(t, "heartbeat ack", func() bool {
		status := h.client.DebugStatus()
		return status.HeartbeatsSent > 0 && !status.LastHeartbeatAck.IsZero()
	})
}

func TestClientSetSpeaking(t *testing.T) {
	h := newClientHarness(t)

	if err := h.client.SetSpeaking(voice.SpeakingMicrophone); !errors.Is(err, voice.ErrNotConnected) {
		t.Errorf("SetSpeaking() before join error = %v; want %v", err, voice.ErrNotConnected)
	}

	h.join(t)
	if err := h.client.SetSpeaking(voice.SpeakingMicrophone, voice.SpeakingSoundshare); err != nil {
		t.Fatalf("SetSpeaking() returned error: %v", err)
	}

	r := h.server.waitFor(t, voice.OpSpeaking)
	var got voice.SpeakingPayload
	if err := json.Unmarshal(r.event.D, &got); err != nil {
		t.Fatalf("failed to decode SPEAKING: %v", err)
	}
	want := voice.SpeakingPayload{Speaking: 3, Delay: 0, SSRC: testSSRC}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SPEAKING mismatch (-want +got):\n%s", diff)
	}
}

func TestClientCloseCodes(t *testing.T) {
	tests := []struct {
		name          string
		close         func(t *testing.T, h *clientHarness)
		wantJoins     int
		wantConns     int
		wantScheduled uint64
	}{
		{
			name:          "4014 stays down",
			close:         func(t *testing.T, h *clientHarness) { h.server.closeWith(t, 0, voice.CloseDisconnected) },
			wantJoins:     1,
			wantConns:     1,
			wantScheduled: 0,
		},
		{
			name:          "4015 reconnects the websocket",
			close:         func(t *testing.T, h *clientHarness) { h.server.closeWith(t, 0, voice.CloseVoiceServerCrashed) },
			wantJoins:     1,
			wantConns:     2,
			wantScheduled: 1,
		},
		{
			name:          "1006 rejoins",
			close:         func(t *testing.T, h *clientHarness) { h.server.drop(t, 0) },
			wantJoins:     2,
			wantConns:     2,
			wantScheduled: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newClientHarness(t)
			h.join(t)

			closedAt := time.Now()
			tt.close(t, h)

			if tt.wantConns > 1 {
				h.server.waitFor(t, voice.OpIdentify)
				second := h.server.waitFor(t, voice.OpIdentify)
				if second.conn != 1 {
					t.Errorf("second IDENTIFY arrived on connection %d; want 1", second.conn)
				}
				if elapsed := time.Since(closedAt); elapsed < 150*time.Millisecond {
					t.Errorf("reconnected after %v; want at least the configured delay", elapsed)
				}
			} else {
				eventually(t, "disconnect", func() bool { return !h.client.IsConnected() })
			}

			// Give a wrongly scheduled second attempt time to show up.
			time.Sleep(400 * time.Millisecond)

			if got := h.gateway.joinCount(); got != tt.wantJoins {
				t.Errorf("joins = %d; want %d", got, tt.wantJoins)
			}
			if got := h.server.connCount(); got != tt.wantConns {
				t.Errorf("voice connections = %d; want %d", got, tt.wantConns)
			}
			if got := h.client.DebugStatus().ReconnectsScheduled; got != tt.wantScheduled {
				t.Errorf("ReconnectsScheduled = %d; want %d", got, tt.wantScheduled)
			}
		})
	}
}

func TestClientCloseShutsDownInitializedMode(t *testing.T) {
	h := newClientHarness(t)
	h.join(t)

	h.server.closeWith(t, 0, voice.CloseDisconnected)
	eventually(t, "mode shutdown", func() bool {
		for _, call := range h.calls.all() {
			if call == "file.Shutdown" {
				return true
			}
		}
		return false
	})
}

func TestClientDisconnect(t *testing.T) {
	h := newClientHarness(t)
	h.join(t)

	h.client.Disconnect()

	status := h.client.DebugStatus()
	want := voice.Status{
		State:      voice.ConnectionState{}.String(),
		UDPClosed:  true,
		VoiceModes: []string{"file"},
		VideoModes: []string{},
	}
	opts := cmp.FilterPath(func(p cmp.Path) bool {
		switch p.Last().String() {
		case ".HeartbeatsSent", ".LastHeartbeatAck":
			return true
		}
		return false
	}, cmp.Ignore())
	if diff := cmp.Diff(want, status, opts); diff != "" {
		t.Errorf("DebugStatus() after Disconnect mismatch (-want +got):\n%s", diff)
	}

	calls := h.calls.all()
	if calls[len(calls)-1] != "file.Shutdown" {
		t.Errorf("last mode call = %q; want file.Shutdown", calls[len(calls)-1])
	}

	if err := h.client.Play("anything"); !errors.Is(err, voice.ErrNotConnected) {
		t.Errorf("Play() after Disconnect error = %v; want %v", err, voice.ErrNotConnected)
	}
}

func TestClientLeaveVoice(t *testing.T) {
	h := newClientHarness(t)
	h.join(t)

	if err := h.client.LeaveVoice(testGuild); err != nil {
		t.Fatalf("LeaveVoice() returned error: %v", err)
	}

	want := []string{testGuild + "/" + testChannel, testGuild + "/"}
	if diff := cmp.Diff(want, h.gateway.voiceStateUpdates()); diff != "" {
		t.Errorf("voice state updates mismatch (-want +got):\n%s", diff)
	}
	if h.client.IsConnected() {
		t.Errorf("client still connected after LeaveVoice")
	}
}

func TestClientDisconnectsWhenRemovedFromChannel(t *testing.T) {
	h := newClientHarness(t)
	h.join(t)

	h.gateway.emitState(voice.StateAssignment{GuildID: testGuild, ChannelID: "", SessionID: "session-1", UserID: testSelf})

	eventually(t, "disconnect", func() bool { return !h.client.IsConnected() })
	eventually(t, "state reset", func() bool { return h.client.State().Equal(voice.ConnectionState{}) })
	if id := h.client.ActiveVoiceModeID(); id != "" {
		t.Errorf("ActiveVoiceModeID() after removal = %q; want none", id)
	}
}

func TestClientConcurrentJoinsKeepOneSocket(t *testing.T) {
	h := newClientHarnessWithDelay(t, 400*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	errs := make(chan error, 2)
	for range 2 {
		go func() { errs <- h.client.JoinAndConnect(ctx, testGuild, testChannel) }()
	}
	for range 2 {
		if err := <-errs; err != nil {
			t.Fatalf("JoinAndConnect() returned error: %v", err)
		}
	}

	eventually(t, "initialized session", func() bool {
		return h.client.DebugStatus().Initialized
	})
	eventually(t, "one open voice websocket", func() bool {
		return h.server.openCount() == 1
	})
	time.Sleep(200 * time.Millisecond)
	if got := h.server.openCount(); got != 1 {
		t.Errorf("open voice websockets = %d; want 1", got)
	}
	if !h.client.IsConnected() {
		t.Errorf("client not connected after concurrent joins")
	}
}

func TestClientDisconnectDuringDial(t *testing.T) {
	const upgradeDelay = 400 * time.Millisecond
	h := newClientHarnessWithDelay(t, upgradeDelay)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	joined := make(chan error, 1)
	go func() { joined <- h.client.JoinAndConnect(ctx, testGuild, testChannel) }()

	eventually(t, "dial in flight", func() bool {
		return h.client.DebugStatus().Connecting
	})
	h.client.Disconnect()

	select {
	case err := <-joined:
		// nil when the settled gateway events started the dial instead.
		if err != nil && !errors.Is(err, voice.ErrConnectAbandoned) {
			t.Errorf("JoinAndConnect() error = %v; want nil or %v", err, voice.ErrConnectAbandoned)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("JoinAndConnect() did not return after Disconnect")
	}

	time.Sleep(upgradeDelay + 100*time.Millisecond)
	if h.client.IsConnected() {
		t.Errorf("IsConnected() = true after Disconnect during dial")
	}
	if status := h.client.DebugStatus(); status.Connecting || status.WebsocketOpen {
		t.Errorf("DebugStatus() after Disconnect = connecting %v, websocket open %v; want neither", status.Connecting, status.WebsocketOpen)
	}
	if !h.client.State().Equal(voice.ConnectionState{}) {
		t.Errorf("State() after Disconnect = %v; want empty", h.client.State())
	}
	eventually(t, "no open voice websockets", func() bool {
		return h.server.openCount() == 0
	})
}

func TestClientConnectsFromGatewayEvents(t *testing.T) {
	h := newClientHarness(t)

	// Events that arrive without JoinAndConnect, e.g. after being moved.
	h.gateway.emitState(voice.StateAssignment{GuildID: testGuild, ChannelID: testChannel, SessionID: "session-1", UserID: testSelf})
	h.gateway.emitServer(voice.ServerAssignment{GuildID: testGuild, Token: "token-x", Endpoint: h.server.host() + ":443"})

	h.server.waitFor(t, voice.OpIdentify)
	eventually(t, "connection", h.client.IsConnected)
}

func TestClientIgnoresOtherGuilds(t *testing.T) {
	h := newClientHarness(t)
	h.gateway.autoJoin = false

	h.gateway.emitState(voice.StateAssignment{GuildID: testGuild, ChannelID: testChannel, SessionID: "session-1", UserID: testSelf})
	before := h.client.State()

	h.gateway.emitServer(voice.ServerAssignment{GuildID: "other-guild", Token: "t", Endpoint: "e"})
	h.gateway.emitState(voice.StateAssignment{GuildID: "other-guild", ChannelID: "c", SessionID: "s", UserID: testSelf})
	h.gateway.emitState(voice.StateAssignment{GuildID: testGuild, ChannelID: "elsewhere", SessionID: "s", UserID: "someone-else"})

	if diff := cmp.Diff(before, h.client.State()); diff != "" {
		t.Errorf("state changed by unrelated events (-want +got):\n%s", diff)
	}
}

func TestClientJoinTimesOut(t *testing.T) {
	h := newClientHarness(t)
	h.gateway.autoJoin = false

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := h.client.JoinAndConnect(ctx, testGuild, testChannel); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("JoinAndConnect() error = %v; want %v", err, context.DeadlineExceeded)
	}
}

func TestClientSwitchModeWhileConnected(t *testing.T) {
	h := newClientHarness(t)
	h.join(t)

	other := &recordingMode{name: "silence", log: h.calls}
	h.client.RegisterVoiceMode("silence", other)
	if err := h.client.SwitchToVoiceMode("silence"); err != nil {
		t.Fatalf("SwitchToVoiceMode() returned error: %v", err)
	}

	if other.boundStreamer() == nil {
		t.Errorf("mode switched in while connected was not handed the streamer")
	}
	if got := h.client.ActiveVoiceModeID(); got != "silence" {
		t.Errorf("ActiveVoiceModeID() = %q; want silence", got)
	}
	if diff := cmp.Diff([]string{"file", "silence"}, h.client.RegisteredVoiceModes()); diff != "" {
		t.Errorf("RegisteredVoiceModes() mismatch (-want +got):\n%s", diff)
	}
}

func TestClientPlayWithoutMode(t *testing.T) {
	h := newClientHarness(t)
	h.join(t)
	h.client.UnregisterVoiceMode("file")

	var notFound *voice.ModeNotFoundError
	if err := h.client.Play("x"); !errors.As(err, &notFound) {
		t.Errorf("Play() error = %v; want ModeNotFoundError", err)
	}
}

func TestClientClosed(t *testing.T) {
	h := newClientHarness(t)
	h.client.Close()

	if err := h.client.JoinAndConnect(context.Background(), testGuild, testChannel); !errors.Is(err, voice.ErrClientClosed) {
		t.Errorf("JoinAndConnect() error = %v; want %v", err, voice.ErrClientClosed)
	}
	if err := h.client.Play("x"); !errors.Is(err, voice.ErrClientClosed) {
		t.Errorf("Play() error = %v; want %v", err, voice.ErrClientClosed)
	}
}
