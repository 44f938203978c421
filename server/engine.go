package server

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Engine 匹配与转发引擎：拥有注册表、两条配对队列、对战表和房间表
// 所有方法都假定在同一个线程中被依次调用（见 Loop）
type Engine struct {
	cfg   Config
	log   *zap.SugaredLogger
	sched Scheduler
	now   func() time.Time

	registry *Registry
	duelQ    *Queue
	coopQ    *Queue

	matches     map[int64]*Match
	rooms       map[int64]*Room
	nextMatchID int64
	nextRoomID  int64

	metrics *EngineMetrics
}

// EngineOption 引擎可选项
type EngineOption func(*Engine)

func WithLogger(l *zap.SugaredLogger) EngineOption {
	return func(e *Engine) { e.log = l }
}

func WithScheduler(s Scheduler) EngineOption {
	return func(e *Engine) { e.sched = s }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(cfg Config, opts ...EngineOption) *Engine {
	e := &Engine{
		cfg:     cfg,
		log:     zap.NewNop().Sugar(),
		now:     time.Now,
		duelQ:   NewQueue(ModeDuel),
		coopQ:   NewQueue(ModeCoop),
		matches: make(map[int64]*Match),
		rooms:   make(map[int64]*Room),
		metrics: &EngineMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sched == nil {
		e.sched = realScheduler{}
	}
	if e.cfg.KFactor <= 0 {
		e.cfg.KFactor = DefaultKFactor
	}
	e.registry = NewRegistry(cfg.DefaultRating, e.now)
	return e
}

// Metrics 引擎计数器
func (e *Engine) Metrics() *EngineMetrics { return e.metrics }

// HandleRaw 解析一条文本消息并分发；解析失败只记录日志，连接保持
func (e *Engine) HandleRaw(conn Peer, raw []byte) {
	e.metrics.IncMessagesIn()
	msg, err := DecodeMessage(raw)
	if err != nil {
		e.metrics.IncMalformed()
		e.log.Warnw("malformed message", "player", e.playerTag(conn), "err", err)
		return
	}
	e.Dispatch(conn, msg)
}

// Dispatch 按 type 把消息路由到唯一的引擎操作
func (e *Engine) Dispatch(conn Peer, msg Message) {
	switch msg.Type {
	case TagJoinQueue:
		e.joinDuel(conn, msg.Payload)
	case TagLeaveQueue:
		if p, ok := e.registry.Lookup(conn); ok && e.duelQ.Remove(p) {
			p.Mode = ModeNone
		}
	case TagFindPartner, TagCoopFindPartner:
		e.findPartner(conn, msg.Payload)
	case TagCancelSearch:
		e.cancelSearch(conn)
	case TagSpawnEnemies:
		e.withPlayer(conn, func(p *Player) { e.relayDuel(p, OutSpawnEnemies, msg.Payload) })
	case TagStatsUpdate:
		e.withPlayer(conn, func(p *Player) {
			p.LastStats = msg.Payload
			switch {
			case p.InMatch():
				e.relayDuel(p, OutOpponentStats, msg.Payload)
			case p.InRoom():
				e.relayCoop(p, OutPartnerStats, msg.Payload, true)
			}
		})
	case TagPlayerDeath:
		e.withPlayer(conn, func(p *Player) {
			switch {
			case p.InMatch():
				e.resolveDeath(p)
			case p.InRoom():
				e.relayCoop(p, OutPartnerDied, msg.Payload, true)
			}
		})
	case TagReady:
		e.withPlayer(conn, e.ready)
	case TagStartGame:
		e.withPlayer(conn, func(p *Player) { e.startRoom(p, msg.Payload) })
	case TagPlayerPosition:
		e.withPlayer(conn, func(p *Player) { e.relayCoop(p, OutPartnerPosition, msg.Payload, true) })
	case TagPlayerShoot:
		e.withPlayer(conn, func(p *Player) { e.relayCoop(p, OutPartnerShoot, msg.Payload, true) })
	case TagEnemyKilled:
		e.withPlayer(conn, func(p *Player) { e.relayCoop(p, OutEnemyKilledSync, msg.Payload, false) })
	case TagGameOver:
		e.withPlayer(conn, func(p *Player) { e.gameOver(p, msg.Payload) })
	case TagLeaveRoom, TagCoopLeave:
		e.withPlayer(conn, e.leaveRoom)
	case TagPing:
		e.sendPeer(conn, OutPong, nil)
	case TagGetStatus:
		e.sendPeer(conn, OutStatus, e.Status())
	default:
		e.metrics.IncUnknownTags()
		e.log.Debugw("unknown message type", "type", msg.Type, "player", e.playerTag(conn))
	}
}

// withPlayer 先解析玩家；连接已拆除（无记录）时为空操作
func (e *Engine) withPlayer(conn Peer, fn func(p *Player)) {
	if p, ok := e.registry.Lookup(conn); ok {
		fn(p)
	}
}

func (e *Engine) joinDuel(conn Peer, payload json.RawMessage) {
	var jp joinPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &jp); err != nil {
			e.metrics.IncMalformed()
			e.log.Warnw("bad JOIN_QUEUE payload", "err", err)
			return
		}
	}
	if e.paired(conn) {
		return
	}
	p := e.registry.Register(conn, jp.info())
	e.coopQ.Remove(p)
	e.log.Infow("joined duel queue", "player", p.ID, "rating", p.Rating)
	e.duelQ.Enqueue(p, e.createMatch)
}

func (e *Engine) findPartner(conn Peer, payload json.RawMessage) {
	var jp joinPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &jp); err != nil {
			// 合作模式允许空或非对象载荷
			jp = joinPayload{}
		}
	}
	if e.paired(conn) {
		return
	}
	p := e.registry.Register(conn, jp.info())
	e.duelQ.Remove(p)
	e.send(p, OutSearching, nil)
	e.log.Infow("joined coop queue", "player", p.ID)
	e.coopQ.Enqueue(p, e.createRoom)
}

// paired 已在对战或房间中的连接不能排队，也不能借入队消息改写资料
func (e *Engine) paired(conn Peer) bool {
	p, ok := e.registry.Lookup(conn)
	if !ok || !p.Busy() {
		return false
	}
	e.metrics.IncRejected()
	e.log.Infow("queue join rejected, already paired", "player", p.ID, "match", p.MatchID, "room", p.RoomID)
	return true
}

func (e *Engine) cancelSearch(conn Peer) {
	p, ok := e.registry.Lookup(conn)
	if !ok {
		e.sendPeer(conn, OutSearchCancelled, nil)
		return
	}
	d := e.duelQ.Remove(p)
	c := e.coopQ.Remove(p)
	if d || c {
		p.Mode = ModeNone
	}
	e.send(p, OutSearchCancelled, nil)
}

// HandleClose 连接断开：从所在结构中移除玩家并驱动相应的终止流程，最后删除记录
func (e *Engine) HandleClose(conn Peer) {
	p, ok := e.registry.Lookup(conn)
	if !ok {
		return
	}
	e.duelQ.Remove(p)
	e.coopQ.Remove(p)
	switch {
	case p.InMatch():
		e.matchDisconnect(p)
	case p.InRoom():
		e.vacateSeat(p)
	}
	e.registry.Forget(conn)
	e.log.Infow("player disconnected", "player", p.ID)
}

// Status 引擎计数快照（GET_STATUS 与 /status 共用）
type Status struct {
	DuelQueue        int              `json:"duelQueue"`
	CoopQueue        int              `json:"coopQueue"`
	ActiveMatches    int              `json:"activeMatches"`
	Matches          int              `json:"matches"`
	ActiveRooms      int              `json:"activeRooms"`
	ConnectedPlayers int              `json:"connectedPlayers"`
	Metrics          map[string]int64 `json:"metrics"`
}

func (e *Engine) Status() Status {
	active := 0
	for _, m := range e.matches {
		if m.State != MatchFinished {
			active++
		}
	}
	return Status{
		DuelQueue:        e.duelQ.Len(),
		CoopQueue:        e.coopQ.Len(),
		ActiveMatches:    active,
		Matches:          len(e.matches),
		ActiveRooms:      len(e.rooms),
		ConnectedPlayers: e.registry.Len(),
		Metrics:          e.metrics.Snapshot(),
	}
}

func (e *Engine) playerTag(conn Peer) string {
	if p, ok := e.registry.Lookup(conn); ok {
		return p.ID
	}
	return "-"
}

// realScheduler 直接使用 time.AfterFunc；仅适用于调用方自行串行化的场景
type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
