package ws

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"audio-notify-server-go/internal/domain/eventbus"
	"audio-notify-server-go/internal/platform/logging"
)

// Service upgrades /ws requests and relays notification events from
// the bus to every connected client.
type Service struct {
	hub      *Hub
	bus      *eventbus.Bus
	logger   *logging.Logger
	upgrader websocket.Upgrader
}

// NewService builds the event stream service. Subscribe must be called
// once before serving to attach the bus handler.
func NewService(bus *eventbus.Bus, logger *logging.Logger) *Service {
	return &Service{
		hub:    NewHub(logger),
		bus:    bus,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The daemon is a local trusted endpoint; origin checks
			// would only break browser dashboards on other ports.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Subscribe attaches the bus handler that broadcasts each notification
// event to the connected sessions.
func (s *Service) Subscribe() error {
	return s.bus.Subscribe(eventbus.TopicNotificationDispatched, s.onEvent)
}

// Register attaches the upgrade route to the engine.
func (s *Service) Register(engine *gin.Engine) {
	engine.GET("/ws", s.handleUpgrade)
}

// Shutdown closes all active sessions.
func (s *Service) Shutdown() {
	s.hub.CloseAll()
}

// Count reports the number of connected clients.
func (s *Service) Count() int {
	return s.hub.Count()
}

func (s *Service) onEvent(event eventbus.NotificationEvent) {
	frame, err := sonic.Marshal(event)
	if err != nil {
		s.logger.WarnTag("WS", "event marshal failed: %v", err)
		return
	}
	s.hub.Broadcast(frame)
}

func (s *Service) handleUpgrade(c *gin.Context) {
	socket, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WarnTag("WS", "upgrade failed for %s: %v", c.ClientIP(), err)
		return
	}

	session := NewSession(uuid.NewString(), socket)
	s.hub.Register(session)
	s.logger.InfoTag("WS", "client %s connected as %s (%d active)", c.ClientIP(), session.ID(), s.hub.Count())

	go func() {
		session.ReadUntilClosed()
		s.hub.Unregister(session.ID())
		session.Close()
		s.logger.InfoTag("WS", "client %s disconnected (%d active)", session.ID(), s.hub.Count())
	}()
}
