// internal/api/websocket.go
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
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
	wsPingInterval = 30 * time.Second
)

// wsConnTracker 统计活跃的WebSocket连接，按任务分组
type wsConnTracker struct {
	mutex sync.Mutex
	conns map[string]int // taskID -> 连接数
}

var wsTracker = &wsConnTracker{conns: make(map[string]int)}

func (t *wsConnTracker) add(taskID string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.conns[taskID]++
}

func (t *wsConnTracker) remove(taskID string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.conns[taskID]--
	if t.conns[taskID] <= 0 {
		delete(t.conns, taskID)
	}
}

func (t *wsConnTracker) snapshot() (int, map[string]int) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	total := 0
	byTask := make(map[string]int, len(t.conns))
	for taskID, count := range t.conns {
		total += count
		byTask[taskID] = count
	}

	return total, byTask
}

// TaskProgressWebSocket 通过WebSocket推送任务进度。
// 连接建立后立刻收到当前状态，任务进入终态时服务端主动关闭。
func (h *Handler) TaskProgressWebSocket(c *gin.Context) {
	taskID := c.Param("taskID")

	tracker, exists := h.ProgressService.GetTracker(taskID)
	if !exists {
		h.Response.NotFound(c, "任务")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket升级失败")
		return
	}
	defer conn.Close()

	wsTracker.add(taskID)
	defer wsTracker.remove(taskID)

	updateChan := tracker.Subscribe()
	defer tracker.Unsubscribe(updateChan)

	// 读协程只负责发现客户端断开
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(wsPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-clientGone:
			return
		case update, ok := <-updateChan:
			if !ok {
				return
			}

			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(update); err != nil {
				return
			}

			// 终态推送完即关闭
			if update.Status != "running" {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "任务结束"),
					time.Now().Add(wsWriteTimeout))
				return
			}
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// GetWebSocketStatus 查看当前WebSocket连接状况
func (h *Handler) GetWebSocketStatus(c *gin.Context) {
	total, byTask := wsTracker.snapshot()

	h.Response.Success(c, gin.H{
		"total_connections": total,
		"by_task":           byTask,
	})
}
