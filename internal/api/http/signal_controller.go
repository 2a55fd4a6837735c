package http

import (
	"log/slog"
	"net/http"

	"github.com/error-99/videocall/internal/auth"
	"github.com/error-99/videocall/internal/config"
	"github.com/error-99/videocall/internal/service"
	"github.com/error-99/videocall/lib/logger/sl"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"
)

// SignalController upgrades authenticated clients to their signaling
// channel and hands the socket to the connection manager.
type SignalController struct {
	manager  *service.ConnectionManager
	tokens   *auth.TokenManager
	webrtc   config.WebRTCConfig
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewSignalController(manager *service.ConnectionManager, tokens *auth.TokenManager, webrtcCfg config.WebRTCConfig, log *slog.Logger) *SignalController {
	if log == nil {
		log = slog.Default()
	}
	return &SignalController{
		manager: manager,
		tokens:  tokens,
		webrtc:  webrtcCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: log,
	}
}

// Connect authenticates the ?token= query parameter (browsers cannot set
// headers on websocket requests), upgrades, and serves the channel until
// it closes.
func (c *SignalController) Connect(ctx *gin.Context) {
	token := ctx.Query("token")
	if token == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
		return
	}

	claims, err := c.tokens.Validate(token)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.log.Error("failed to upgrade connection", sl.Err(err))
		return
	}

	c.manager.Serve(claims.Identity(), conn)
}

// ICEConfig hands clients the STUN/TURN servers to use for the media leg.
func (c *SignalController) ICEConfig(ctx *gin.Context) {
	servers := make([]webrtc.ICEServer, 0, len(c.webrtc.STUNServers)+len(c.webrtc.TURNServers))

	if len(c.webrtc.STUNServers) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: c.webrtc.STUNServers})
	}
	for _, turn := range c.webrtc.TURNServers {
		servers = append(servers, webrtc.ICEServer{
			URLs:           []string{turn.URL},
			Username:       turn.Username,
			Credential:     turn.Credential,
			CredentialType: webrtc.ICECredentialTypePassword,
		})
	}

	ctx.JSON(http.StatusOK, gin.H{"ice_servers": servers})
}
