package server

import (
	"encoding/json"
)

// Room 合作房间：两个座位，共享状态只转发、不解释
type Room struct {
	ID int64

	// Seats[0] 为 1 号座位，Seats[1] 为 2 号座位；离开后置空
	Seats [2]*Player

	Started bool
	Wave    int
	Ready   [2]bool
}

// Occupants 当前仍在房间内的玩家
func (r *Room) Occupants() []*Player {
	out := make([]*Player, 0, 2)
	for _, p := range r.Seats {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Empty 两个座位都已空出
func (r *Room) Empty() bool { return r.Seats[0] == nil && r.Seats[1] == nil }

// partner 另一个座位上的玩家（可能为 nil）
func (r *Room) partner(p *Player) *Player {
	switch p {
	case r.Seats[0]:
		return r.Seats[1]
	case r.Seats[1]:
		return r.Seats[0]
	}
	return nil
}

func (r *Room) seated(p *Player) bool {
	return p != nil && (r.Seats[0] == p || r.Seats[1] == p)
}

// createRoom 两名玩家出队后建房并分配座位 1、2
func (e *Engine) createRoom(a, b *Player) {
	e.nextRoomID++
	r := &Room{ID: e.nextRoomID, Seats: [2]*Player{a, b}}
	e.rooms[r.ID] = r
	for i, p := range r.Seats {
		p.RoomID = r.ID
		p.SeatIndex = i + 1
		p.Mode = ModeCoop
	}
	e.metrics.IncRoomsCreated()

	e.log.Infow("room created", "room", r.ID, "seat1", a.ID, "seat2", b.ID)
	e.send(a, OutMatchFound, roomFoundPayload{Mode: ModeCoop.String(), RoomID: r.ID, PlayerIndex: 1, Partner: b.Profile()})
	e.send(b, OutMatchFound, roomFoundPayload{Mode: ModeCoop.String(), RoomID: r.ID, PlayerIndex: 2, Partner: a.Profile()})
}

// roomOf 解析玩家当前所在的房间；房间已删除或玩家不在座位上时返回 false
func (e *Engine) roomOf(p *Player) (*Room, bool) {
	r, ok := e.rooms[p.RoomID]
	if !ok || !r.seated(p) {
		return nil, false
	}
	return r, true
}

// ready 通知另一方“队友已就绪”，不作为开局的前置条件
func (e *Engine) ready(p *Player) {
	r, ok := e.roomOf(p)
	if !ok {
		return
	}
	r.Ready[p.SeatIndex-1] = true
	e.send(r.partner(p), OutPartnerReady, partnerPayload{PlayerIndex: p.SeatIndex})
}

// startRoom 标记开局并向两个座位广播；重复调用会重复广播
func (e *Engine) startRoom(p *Player, payload json.RawMessage) {
	r, ok := e.roomOf(p)
	if !ok {
		return
	}
	var body struct {
		Wave int `json:"wave"`
	}
	if len(payload) > 0 {
		_ = json.Unmarshal(payload, &body)
	}
	if body.Wave > 0 {
		r.Wave = body.Wave
	} else if r.Wave == 0 {
		r.Wave = 1
	}
	r.Started = true
	e.log.Infow("room started", "room", r.ID, "by", p.ID, "wave", r.Wave)
	e.broadcast(r.Seats[:], nil, OutGameStart, gameStartPayload{RoomID: r.ID, Wave: r.Wave})
}

// relayCoop 只转发给另一个座位，从不回显给发送方
// tagSeat 为 true 时在载荷上标注发送方座位号
func (e *Engine) relayCoop(p *Player, typ string, payload json.RawMessage, tagSeat bool) {
	r, ok := e.roomOf(p)
	if !ok {
		return
	}
	var body any = payload
	if tagSeat {
		body = withSeat(payload, p.SeatIndex)
	}
	e.broadcast(r.Seats[:], p, typ, body)
}

// gameOver 会话结束，广播给包括发送方在内的两个座位
func (e *Engine) gameOver(p *Player, payload json.RawMessage) {
	r, ok := e.roomOf(p)
	if !ok {
		return
	}
	r.Started = false
	e.log.Infow("room game over", "room", r.ID, "by", p.ID)
	e.broadcast(r.Seats[:], nil, OutGameOverSync, payload)
}

// leaveRoom 主动放弃房间
func (e *Engine) leaveRoom(p *Player) {
	if !p.InRoom() {
		return
	}
	e.vacateSeat(p)
	p.Mode = ModeNone
}

// vacateSeat 空出座位并通知剩余一方；两个座位都空时删除房间
// 只剩一人时房间保留，直到该玩家也离开
func (e *Engine) vacateSeat(p *Player) {
	r, ok := e.rooms[p.RoomID]
	seat := p.SeatIndex
	p.RoomID, p.SeatIndex = 0, 0
	if !ok {
		return
	}
	for i, s := range r.Seats {
		if s == p {
			r.Seats[i] = nil
			r.Ready[i] = false
		}
	}
	e.broadcast(r.Seats[:], nil, OutPartnerDisconnected, roomLeftPayload{RoomID: r.ID, PlayerIndex: seat})
	if r.Empty() {
		delete(e.rooms, r.ID)
		e.log.Infow("room closed", "room", r.ID)
	}
}
