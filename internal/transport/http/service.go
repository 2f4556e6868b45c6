package httptransport

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"audio-notify-server-go/internal/domain/notify"
	"audio-notify-server-go/internal/platform/logging"
)

// Dispatcher executes a notification request.
type Dispatcher interface {
	Dispatch(ctx context.Context, req notify.Request, client string) (notify.Response, error)
}

// Service exposes the notification endpoints over HTTP.
type Service struct {
	dispatcher Dispatcher
	logger     *logging.Logger
	baseCtx    context.Context
	started    time.Time
}

// NewService wires the notification HTTP handlers. baseCtx bounds the
// lifetime of dispatched actions; it should be the server context, not
// a per-request one, so a client disconnect cannot cut playback short.
func NewService(baseCtx context.Context, dispatcher Dispatcher, logger *logging.Logger) *Service {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Service{
		dispatcher: dispatcher,
		logger:     logger,
		baseCtx:    baseCtx,
		started:    time.Now(),
	}
}

// Register attaches the routes to the engine and API group.
func (s *Service) Register(router *Router) {
	router.Engine.GET("/health", s.handleHealth)
	router.Engine.POST("/notify", s.handleNotifyPost)
	router.Engine.GET("/notify", s.handleNotifyGet)
	router.API.GET("/system", s.handleSystemGet)
}

func (s *Service) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// notifyBody is the POST wire shape. Pointer fields distinguish
// "absent" from "false" so the defaults of sound=true, speak=false
// apply only when the client omits the field.
type notifyBody struct {
	Message string `json:"message"`
	Sound   *bool  `json:"sound"`
	Speak   *bool  `json:"speak"`
}

func (s *Service) handleNotifyPost(c *gin.Context) {
	var body notifyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid JSON body"})
		return
	}

	req := notify.Request{Message: body.Message, Sound: true, Speak: false}
	if body.Sound != nil {
		req.Sound = *body.Sound
	}
	if body.Speak != nil {
		req.Speak = *body.Speak
	}

	s.dispatch(c, req)
}

func (s *Service) handleNotifyGet(c *gin.Context) {
	req := notify.Request{
		Message: c.Query("message"),
		Sound:   parseBoolParam(c.DefaultQuery("sound", "true"), true),
		Speak:   parseBoolParam(c.DefaultQuery("speak", "false"), false),
	}

	s.dispatch(c, req)
}

func (s *Service) dispatch(c *gin.Context, req notify.Request) {
	resp, err := s.dispatcher.Dispatch(s.baseCtx, req, c.ClientIP())
	if err != nil {
		var tooLong *notify.MessageTooLongError
		if errors.As(err, &tooLong) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": tooLong.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func parseBoolParam(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	case "0", "f", "false", "n", "no", "off":
		return false
	default:
		return fallback
	}
}

func (s *Service) handleSystemGet(c *gin.Context) {
	info := gin.H{
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
	}

	if hostInfo, err := host.Info(); err == nil {
		info["hostname"] = hostInfo.Hostname
		info["os"] = hostInfo.OS
		info["platform"] = hostInfo.Platform
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info["memory"] = gin.H{
			"total":        vm.Total,
			"used":         vm.Used,
			"used_percent": vm.UsedPercent,
		}
	}
	if avg, err := load.Avg(); err == nil {
		info["load"] = gin.H{
			"load1":  avg.Load1,
			"load5":  avg.Load5,
			"load15": avg.Load15,
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": info})
}
