package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/error-99/videocall/internal/auth"
	"github.com/error-99/videocall/internal/config"
	"github.com/error-99/videocall/internal/domain"
	"github.com/error-99/videocall/internal/repository"
	"github.com/error-99/videocall/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	userRepo := repository.NewInMemoryUserRepository()

	presence := service.NewPresenceRegistry(log)
	relay := service.NewSignalingRelay(log)
	coordinator := service.NewCallSessionCoordinator(presence, relay, log)
	connections := service.NewConnectionManager(coordinator, log)
	userService := service.NewUserService(userRepo, tokens, log)

	userController := NewUserController(userService, presence)
	signalController := NewSignalController(connections, tokens, config.WebRTCConfig{
		STUNServers: []string{"stun:stun.example.com:3478"},
	}, log)

	router := SetupRouter(userController, signalController, tokens, []string{"http://localhost:3000"})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func registerUser(t *testing.T, srv *httptest.Server, name, email string) (userID, token string) {
	t.Helper()
	resp, body := postJSON(t, srv.URL+"/api/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": "password-123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	token, _ = body["token"].(string)
	require.NotEmpty(t, token)
	user, _ := body["user"].(map[string]any)
	userID, _ = user["id"].(string)
	require.NotEmpty(t, userID)
	return userID, token
}

func TestAuthFlow(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)

	_, _ = registerUser(t, srv, "Alice", "alice@example.com")

	// duplicate email
	resp, _ := postJSON(t, srv.URL+"/api/auth/register", map[string]string{
		"name": "Imposter", "email": "alice@example.com", "password": "password-123",
	})
	req.Equal(http.StatusConflict, resp.StatusCode)

	resp, body := postJSON(t, srv.URL+"/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "password-123",
	})
	req.Equal(http.StatusOK, resp.StatusCode)
	req.NotEmpty(body["token"])

	resp, _ = postJSON(t, srv.URL+"/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestOnlineUsersRequiresAuth(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/online-users")
	req.NoError(err)
	resp.Body.Close()
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestOnlineUsersExcludesRequester(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)

	_, aliceToken := registerUser(t, srv, "Alice", "alice@example.com")
	bobID, bobToken := registerUser(t, srv, "Bob", "bob@example.com")

	aliceConn := dialSignal(t, srv, aliceToken)
	defer aliceConn.Close()
	bobConn := dialSignal(t, srv, bobToken)
	defer bobConn.Close()
	readEvent(t, aliceConn) // roster with alice
	readEvent(t, aliceConn) // roster with both
	readEvent(t, bobConn)

	request, err := http.NewRequest(http.MethodGet, srv.URL+"/api/online-users", nil)
	req.NoError(err)
	request.Header.Set("Authorization", "Bearer "+aliceToken)

	resp, err := http.DefaultClient.Do(request)
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var body struct {
		Users []domain.Identity `json:"users"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&body))
	req.Len(body.Users, 1)
	req.Equal(bobID, body.Users[0].ID)
}

func TestICEConfig(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)

	_, token := registerUser(t, srv, "Alice", "alice@example.com")

	request, err := http.NewRequest(http.MethodGet, srv.URL+"/api/webrtc/config", nil)
	req.NoError(err)
	request.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(request)
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var body struct {
		ICEServers []webrtc.ICEServer `json:"ice_servers"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&body))
	req.Len(body.ICEServers, 1)
}

func dialSignal(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/signal/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.SignalMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	var event domain.SignalMessage
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestSignalChannelRejectsBadToken(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/signal/ws?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	req.Error(err)
	req.NotNil(resp)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestSignalingEndToEnd(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)

	aliceID, aliceToken := registerUser(t, srv, "Alice", "alice@example.com")
	bobID, bobToken := registerUser(t, srv, "Bob", "bob@example.com")

	aliceConn := dialSignal(t, srv, aliceToken)
	defer aliceConn.Close()

	roster := readEvent(t, aliceConn)
	req.Equal(domain.EventUsersUpdated, roster.Event)
	req.Len(roster.Users, 1)

	bobConn := dialSignal(t, srv, bobToken)
	defer bobConn.Close()

	roster = readEvent(t, aliceConn)
	req.Len(roster.Users, 2)
	roster = readEvent(t, bobConn)
	req.Len(roster.Users, 2)

	// alice calls bob
	req.NoError(aliceConn.WriteJSON(domain.SignalMessage{
		Event: domain.EventCallUser,
		To:    bobID,
		SDP:   &webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "O1"},
	}))

	incoming := readEvent(t, bobConn)
	req.Equal(domain.EventIncomingCall, incoming.Event)
	req.Equal(aliceID, incoming.From)
	req.Equal("O1", incoming.SDP.SDP)

	// bob answers
	req.NoError(bobConn.WriteJSON(domain.SignalMessage{
		Event: domain.EventCallAccepted,
		SDP:   &webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "A1"},
	}))

	accepted := readEvent(t, aliceConn)
	req.Equal(domain.EventCallAccepted, accepted.Event)
	req.Equal("A1", accepted.SDP.SDP)

	// candidates flow both ways
	req.NoError(aliceConn.WriteJSON(domain.SignalMessage{
		Event:     domain.EventICECandidate,
		Candidate: &webrtc.ICECandidateInit{Candidate: "cand1"},
	}))
	candidate := readEvent(t, bobConn)
	req.Equal(domain.EventICECandidate, candidate.Event)
	req.Equal("cand1", candidate.Candidate.Candidate)

	// bob hangs up
	req.NoError(bobConn.WriteJSON(domain.SignalMessage{Event: domain.EventEndCall}))
	ended := readEvent(t, aliceConn)
	req.Equal(domain.EventEndCall, ended.Event)
	req.Equal(bobID, ended.From)
}

func TestCalleeNotifiedWhenCallerChannelCloses(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)

	aliceID, aliceToken := registerUser(t, srv, "Alice", "alice@example.com")
	bobID, bobToken := registerUser(t, srv, "Bob", "bob@example.com")

	aliceConn := dialSignal(t, srv, aliceToken)
	bobConn := dialSignal(t, srv, bobToken)
	defer bobConn.Close()

	readEvent(t, aliceConn)
	readEvent(t, aliceConn)
	readEvent(t, bobConn)

	req.NoError(aliceConn.WriteJSON(domain.SignalMessage{
		Event: domain.EventCallUser,
		To:    bobID,
		SDP:   &webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "O1"},
	}))
	incoming := readEvent(t, bobConn)
	req.Equal(domain.EventIncomingCall, incoming.Event)

	// the caller vanishes before bob answers
	req.NoError(aliceConn.Close())

	ended := readEvent(t, bobConn)
	req.Equal(domain.EventEndCall, ended.Event)
	req.Equal(aliceID, ended.From)

	roster := readEvent(t, bobConn)
	req.Equal(domain.EventUsersUpdated, roster.Event)
	req.Len(roster.Users, 1)
}
