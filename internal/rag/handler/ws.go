package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-rag/internal/pkg/pubsub"
	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	"github.com/kart-io/sentinel-rag/pkg/utils/json"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// LogMessage 推送给日志流客户端的消息。
type LogMessage struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// LogStream 将流水线事件通过 WebSocket 转发给浏览器。
// 每个连接独立订阅 Broker，慢客户端的事件由 Broker 丢弃。
type LogStream struct {
	broker   *pubsub.Broker[biz.Event]
	upgrader websocket.Upgrader
}

// NewLogStream 创建日志流处理器。
func NewLogStream(broker *pubsub.Broker[biz.Event]) *LogStream {
	return &LogStream{
		broker: broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 与 CORS 策略一致，允许任意来源
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func newLogMessage(e biz.Event) LogMessage {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return LogMessage{
		Type:      "log",
		Message:   e.Message,
		Timestamp: ts.UTC().Format(biz.TimeLayout),
	}
}

// Serve godoc
//
//	@Summary		日志流
//	@Description	WebSocket 连接，推送 {type: "log", message, timestamp}；客户端消息被忽略
//	@Tags			system
//	@Router			/ws/logs [get]
func (s *LogStream) Serve(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已写入错误响应
		logger.Warnw("websocket upgrade failed", "remote_addr", c.ClientIP(), "error", err.Error())
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	events := s.broker.Subscribe(ctx)
	logger.Infow("log stream connected", "remote_addr", c.ClientIP(), "subscribers", s.broker.SubscriberCount())

	go s.readLoop(conn, cancel)
	s.writeLoop(conn, events)

	cancel()
	_ = conn.Close()
	logger.Infow("log stream disconnected", "remote_addr", c.ClientIP())
}

// readLoop 丢弃客户端消息，连接出错时取消订阅。
func (s *LogStream) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *LogStream) writeLoop(conn *websocket.Conn, events <-chan pubsub.Event[biz.Event]) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream closed"))
				return
			}
			data, err := json.Marshal(newLogMessage(e.Payload))
			if err != nil {
				logger.Warnw("failed to encode log message", "type", string(e.Type), "error", err.Error())
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
