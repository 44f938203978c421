package server

import (
	"encoding/json"
	"time"
)

// Mode 玩家当前所处的玩法
type Mode int

const (
	ModeNone Mode = iota
	ModeDuel
	ModeCoop
)

func (m Mode) String() string {
	switch m {
	case ModeDuel:
		return "duel"
	case ModeCoop:
		return "coop"
	default:
		return "none"
	}
}

// Peer 抽象的双向消息通道（网络连接的发送端）
// 引擎只引用、不拥有连接：发送前检查 Open，关闭的通道直接丢弃消息
type Peer interface {
	Enqueue(b []byte)
	Open() bool
}

// Player 每个已连接身份一条记录；只在连接关闭时从注册表删除
type Player struct {
	Conn Peer

	ID     string
	Name   string
	Rating int
	Mode   Mode

	JoinTime time.Time

	// MatchID 与 RoomID 最多只有一个非零
	MatchID   int64
	RoomID    int64
	SeatIndex int // 1 或 2，仅合作模式

	LastStats json.RawMessage
}

// InMatch 是否属于某场对战
func (p *Player) InMatch() bool { return p.MatchID != 0 }

// InRoom 是否占据某个合作房间的座位
func (p *Player) InRoom() bool { return p.RoomID != 0 }

// Busy 已配对（对战或房间）的玩家不能再次排队
func (p *Player) Busy() bool { return p.InMatch() || p.InRoom() }

// PublicProfile 发给对手的公开信息
type PublicProfile struct {
	ID     string `json:"playerId"`
	Name   string `json:"name"`
	Rating int    `json:"rating,omitempty"`
}

func (p *Player) Profile() PublicProfile {
	return PublicProfile{ID: p.ID, Name: p.Name, Rating: p.Rating}
}
