// Package push 实现推送事件客户端：
// 长连接接收服务端变更通知，断线按有界指数退避重连
package push

import (
	"encoding/json"

	"github.com/KOMKZ/go-dashsync/errcode"
)

// 保活与连接握手事件类型（no-op）
const (
	EventTypeConnected = "connected"
	EventTypePing      = "ping"
)

// 会议处理流水线事件类型
const (
	EventTypeMeetingComplete = "meeting_processing_complete"
	EventTypeMeetingError    = "meeting_processing_error"
)

// Event 推送事件
// 线格式：{"type": "...", "data": {"entity_type": ..., "entity_id": ..., "action": ...}}
type Event struct {
	Type       string
	EntityType string
	EntityID   string
	Action     string
	Data       map[string]any
}

// wireFrame 线上帧结构
type wireFrame struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// 推送模块错误码（模块码 23）
var (
	// ErrMalformedFrame 帧解析失败（丢弃并记录，不影响连接）
	ErrMalformedFrame = errcode.Register(errcode.New(23, 1, "push", "推送帧格式非法"))

	// ErrMaxAttemptsReached 重连次数耗尽（需手动 Reconnect 恢复）
	ErrMaxAttemptsReached = errcode.Register(errcode.New(23, 2, "push", "重连次数耗尽，推送已暂停"))

	// ErrAlreadyActive 客户端已激活
	ErrAlreadyActive = errcode.Register(errcode.New(23, 3, "push", "推送客户端已激活"))
)

// ParseEvent 解析一帧推送事件
func ParseEvent(raw []byte) (Event, error) {
	var frame wireFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Event{}, ErrMalformedFrame.Wrap(err)
	}
	if frame.Type == "" {
		return Event{}, ErrMalformedFrame.WithMsg("推送帧缺少 type 字段")
	}

	e := Event{Type: frame.Type, Data: frame.Data}

	if frame.Data != nil {
		if v, ok := frame.Data["entity_type"].(string); ok {
			e.EntityType = v
		}
		if v, ok := frame.Data["entity_id"].(string); ok {
			e.EntityID = v
		}
		if v, ok := frame.Data["action"].(string); ok {
			e.Action = v
		}
		// 会议流水线事件用 meeting_id 标识
		if e.EntityID == "" {
			if v, ok := frame.Data["meeting_id"].(string); ok {
				e.EntityID = v
			}
		}
	}

	return e, nil
}

// KeepAlive 判断是否为保活/握手事件（不转发给路由器）
func (e Event) KeepAlive() bool {
	return e.Type == EventTypeConnected || e.Type == EventTypePing
}
