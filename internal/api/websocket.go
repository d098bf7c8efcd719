// internal/api/websocket.go
package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 在生产环境中应该进行更严格的检查
		return true
	},
}

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// ProjectProgressWebSocket 向客户端流式推送项目的管线阶段事件。
// 纯观察性通道：断开或丢失事件不影响任何生成阶段。
func (h *Handler) ProjectProgressWebSocket(c *gin.Context) {
	projectID := c.Param("id")
	userID := h.mustUser(c)

	// 升级前先校验归属
	if _, err := h.ProjectService.GetProject(userID, projectID); err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ WebSocket升级失败: %v", err)
		return
	}

	events := h.ProgressService.Subscribe(projectID)
	defer h.ProgressService.Unsubscribe(projectID, events)
	defer conn.Close()

	log.Printf("✅ WebSocket 客户端已连接到项目 %s (用户: %s)", projectID, userID)

	// 读循环只用于探测客户端断开
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				log.Printf("🔌 WebSocket 客户端已断开连接 (项目: %s, 用户: %s)", projectID, userID)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return

		case <-c.Request.Context().Done():
			return
		}
	}
}
