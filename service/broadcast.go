package service

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/olahol/melody"
)

const paletteKey = "palette_id"

// ChangeMessage 推送给在线成员的变更通知
type ChangeMessage struct {
	Type      string `json:"type"`
	PaletteID string `json:"palette_id"`
	UserID    uint   `json:"user_id"`
}

// Broadcaster 按账本分组的 WebSocket 推送
type Broadcaster struct {
	m *melody.Melody
}

// NewBroadcaster 创建推送服务
func NewBroadcaster() *Broadcaster {
	m := melody.New()
	m.Config.MaxMessageSize = 4096
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleConnect(func(s *melody.Session) {
		id, _ := s.Get(paletteKey)
		log.Printf("[broadcast] 客户端连接账本 %v", id)
	})
	m.HandleDisconnect(func(s *melody.Session) {
		id, _ := s.Get(paletteKey)
		log.Printf("[broadcast] 客户端断开账本 %v", id)
	})
	m.HandleError(func(s *melody.Session, err error) {
		log.Printf("[broadcast] WebSocket 错误: %v", err)
	})
	return &Broadcaster{m: m}
}

// Serve 升级为 WebSocket 连接并订阅 paletteID 的变更
func (b *Broadcaster) Serve(w http.ResponseWriter, r *http.Request, paletteID string, userID uint) error {
	return b.m.HandleRequestWithKeys(w, r, map[string]interface{}{
		paletteKey: paletteID,
		"user_id":  userID,
	})
}

// PaletteChanged 通知订阅该账本的全部连接
func (b *Broadcaster) PaletteChanged(paletteID, event string, userID uint) {
	msg, err := json.Marshal(ChangeMessage{Type: event, PaletteID: paletteID, UserID: userID})
	if err != nil {
		return
	}
	err = b.m.BroadcastFilter(msg, func(s *melody.Session) bool {
		id, ok := s.Get(paletteKey)
		return ok && id == paletteID
	})
	if err != nil {
		log.Printf("[broadcast] 推送账本 %s 失败: %v", paletteID, err)
	}
}

// Sessions 当前连接数
func (b *Broadcaster) Sessions() int {
	return b.m.Len()
}

// Close 关闭全部连接
func (b *Broadcaster) Close() error {
	return b.m.Close()
}
