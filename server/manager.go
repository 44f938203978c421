package server

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JoinInfo 首次入队时携带的玩家资料
type JoinInfo struct {
	PlayerID string
	Name     string
	Rating   int
}

// Registry 会话注册表：连接 -> 玩家记录
// 唯一的可变映射，只由引擎线程访问
type Registry struct {
	players       map[Peer]*Player
	defaultRating int
	now           func() time.Time
}

func NewRegistry(defaultRating int, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		players:       make(map[Peer]*Player),
		defaultRating: defaultRating,
		now:           now,
	}
}

// Register 创建或返回连接对应的玩家，并用 info 中给出的字段刷新资料
func (r *Registry) Register(conn Peer, info JoinInfo) *Player {
	p, ok := r.players[conn]
	if !ok {
		p = &Player{
			Conn:     conn,
			ID:       info.PlayerID,
			Rating:   r.defaultRating,
			JoinTime: r.now(),
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		r.players[conn] = p
	} else if info.PlayerID != "" {
		p.ID = info.PlayerID
	}
	if info.Name != "" {
		p.Name = info.Name
	}
	if p.Name == "" {
		p.Name = defaultName(p.ID)
	}
	if info.Rating > 0 {
		p.Rating = info.Rating
	}
	return p
}

// Lookup 查找连接对应的玩家
func (r *Registry) Lookup(conn Peer) (*Player, bool) {
	p, ok := r.players[conn]
	return p, ok
}

// Forget 删除连接对应的记录
func (r *Registry) Forget(conn Peer) {
	delete(r.players, conn)
}

// Len 已注册玩家数
func (r *Registry) Len() int { return len(r.players) }

func defaultName(id string) string {
	if len(id) > 4 {
		id = id[:4]
	}
	return fmt.Sprintf("Player-%s", id)
}
