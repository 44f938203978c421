package server

import (
	"encoding/json"
	"strconv"
)

// send 向单个玩家投递消息；通道未打开时直接丢弃，不重试
func (e *Engine) send(p *Player, typ string, payload any) {
	if p == nil || p.Conn == nil || !p.Conn.Open() {
		e.metrics.IncDroppedClosed()
		return
	}
	b, err := json.Marshal(outbound{Type: typ, Payload: payload})
	if err != nil {
		e.log.Errorw("encode outbound", "type", typ, "err", err)
		return
	}
	p.Conn.Enqueue(b)
	e.metrics.IncSent()
}

// sendPeer 向尚未注册为玩家的连接回复（PONG / STATUS）
func (e *Engine) sendPeer(conn Peer, typ string, payload any) {
	e.send(&Player{Conn: conn}, typ, payload)
}

// broadcast 向 players 中除 except 外的每个人投递同一条消息
func (e *Engine) broadcast(players []*Player, except *Player, typ string, payload any) {
	for _, p := range players {
		if p == nil || p == except {
			continue
		}
		e.send(p, typ, payload)
	}
}

// withSeat 在不透明载荷上标注发送方座位号
// 载荷是 JSON 对象时直接加字段，否则包在 data 里
// 其余字段保留发送方的原始字节
func withSeat(raw json.RawMessage, seat int) map[string]json.RawMessage {
	out := map[string]json.RawMessage{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil || out == nil {
			out = map[string]json.RawMessage{"data": raw}
		}
	}
	out["playerIndex"] = json.RawMessage(strconv.Itoa(seat))
	return out
}
