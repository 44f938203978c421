package server

import (
	"encoding/json"
	"time"
)

// MatchState 对战状态机：STARTING -> PLAYING -> FINISHED
type MatchState int

const (
	MatchStarting MatchState = iota
	MatchPlaying
	MatchFinished
)

func (s MatchState) String() string {
	switch s {
	case MatchStarting:
		return "STARTING"
	case MatchPlaying:
		return "PLAYING"
	default:
		return "FINISHED"
	}
}

// Match 一场 1v1 对战；对局是从 id 找到两名玩家的唯一途径
type Match struct {
	ID        int64
	Player1   *Player
	Player2   *Player
	State     MatchState
	Countdown int
	StartTime time.Time

	timer Timer

	// 结算后保留，供宽限期内的状态查询
	Result *MatchResult
}

// MatchResult 结算时的快照
type MatchResult struct {
	WinnerName   string
	LoserName    string
	WinnerRating int
	LoserRating  int
	WinnerDelta  int
	LoserDelta   int
	Reason       string
	EndTime      time.Time
}

// Opponent 返回 p 在本局中的对手；p 不属于本局时返回 nil
func (m *Match) Opponent(p *Player) *Player {
	switch p {
	case m.Player1:
		return m.Player2
	case m.Player2:
		return m.Player1
	}
	return nil
}

func (m *Match) players() []*Player { return []*Player{m.Player1, m.Player2} }

func (m *Match) side(p *Player) int {
	if p == m.Player2 {
		return 2
	}
	return 1
}

// createMatch 两名玩家出队后建立对局并开始倒计时
func (e *Engine) createMatch(a, b *Player) {
	e.nextMatchID++
	m := &Match{
		ID:        e.nextMatchID,
		Player1:   a,
		Player2:   b,
		State:     MatchStarting,
		Countdown: e.cfg.CountdownFrom,
	}
	e.matches[m.ID] = m
	a.MatchID, b.MatchID = m.ID, m.ID
	a.Mode, b.Mode = ModeDuel, ModeDuel
	e.metrics.IncMatchesCreated()

	e.log.Infow("match created", "match", m.ID, "p1", a.ID, "p2", b.ID)
	e.send(a, OutMatchFound, matchFoundPayload{Mode: ModeDuel.String(), MatchID: m.ID, Opponent: b.Profile(), You: a.Profile()})
	e.send(b, OutMatchFound, matchFoundPayload{Mode: ModeDuel.String(), MatchID: m.ID, Opponent: a.Profile(), You: b.Profile()})

	if m.Countdown <= 0 {
		e.beginPlay(m)
		return
	}
	e.broadcast(m.players(), nil, OutCountdown, countdownPayload{MatchID: m.ID, Count: m.Countdown})
	e.scheduleTick(m.ID)
}

func (e *Engine) scheduleTick(id int64) {
	m := e.matches[id]
	m.timer = e.sched.AfterFunc(e.cfg.CountdownInterval, func() { e.countdownTick(id) })
}

// countdownTick 每秒递减一次并广播当前值；到 0 时进入 PLAYING
func (e *Engine) countdownTick(id int64) {
	m, ok := e.matches[id]
	if !ok || m.State != MatchStarting {
		return
	}
	m.Countdown--
	e.broadcast(m.players(), nil, OutCountdown, countdownPayload{MatchID: m.ID, Count: m.Countdown})
	if m.Countdown > 0 {
		e.scheduleTick(id)
		return
	}
	m.timer = nil
	e.beginPlay(m)
}

func (e *Engine) beginPlay(m *Match) {
	m.State = MatchPlaying
	m.StartTime = e.now()
	e.log.Infow("match started", "match", m.ID)
	e.broadcast(m.players(), nil, OutMatchStart, matchStartPayload{MatchID: m.ID})
}

// activeMatch 解析玩家当前所在且处于 PLAYING 的对局
func (e *Engine) activeMatch(p *Player) (*Match, bool) {
	m, ok := e.matches[p.MatchID]
	if !ok || m.State != MatchPlaying || m.Opponent(p) == nil {
		return nil, false
	}
	return m, true
}

// relayDuel 原样转发给对手；对局未开始或发送者不属于该局时忽略
func (e *Engine) relayDuel(p *Player, typ string, payload json.RawMessage) {
	m, ok := e.activeMatch(p)
	if !ok {
		return
	}
	e.send(m.Opponent(p), typ, payload)
}

// resolveDeath 发送方阵亡，对手获胜
func (e *Engine) resolveDeath(loser *Player) {
	m, ok := e.activeMatch(loser)
	if !ok {
		return
	}
	e.settle(m, m.Opponent(loser), loser, reasonDeath)
}

// matchDisconnect 对局中的一方断线
// STARTING：停止倒计时并解散，不结算；PLAYING：通知剩余一方并判断线方负
func (e *Engine) matchDisconnect(p *Player) {
	m, ok := e.matches[p.MatchID]
	p.MatchID = 0
	if !ok {
		return
	}
	other := m.Opponent(p)
	if other == nil {
		return
	}

	switch m.State {
	case MatchStarting:
		if m.timer != nil {
			m.timer.Stop()
			m.timer = nil
		}
		if other.MatchID == m.ID {
			other.MatchID = 0
			other.Mode = ModeNone
		}
		delete(e.matches, m.ID)
		e.log.Infow("match cancelled during countdown", "match", m.ID, "left", p.ID)
	case MatchPlaying:
		side := m.side(p)
		if e.cfg.ForfeitDelay > 0 {
			id := m.ID
			e.log.Infow("forfeit scheduled", "match", id, "left", p.ID, "delay", e.cfg.ForfeitDelay)
			m.timer = e.sched.AfterFunc(e.cfg.ForfeitDelay, func() { e.forfeit(id, side) })
			return
		}
		e.forfeit(m.ID, side)
	}
}

// forfeit 断线判负；定时触发时重新按 id 解析对局，已结束则忽略
// side 为断线方的位置（1 或 2）
func (e *Engine) forfeit(id int64, side int) {
	m, ok := e.matches[id]
	if !ok || m.State != MatchPlaying {
		return
	}
	m.timer = nil
	leaver, winner := m.Player1, m.Player2
	if side == 2 {
		leaver, winner = m.Player2, m.Player1
	}
	e.send(winner, OutOpponentDisconnected, opponentDisconnectedPayload{
		MatchID: m.ID,
		Message: "Opponent left the match. You win by default!",
	})
	e.settle(m, winner, leaver, reasonDisconnect)
}

// settle 结算：计算分数变化、通知双方、清除对局归属，并在宽限期后删除记录
func (e *Engine) settle(m *Match, winner, loser *Player, reason string) {
	m.State = MatchFinished

	wd := RatingDelta(winner.Rating, loser.Rating, true, e.cfg.KFactor)
	ld := RatingDelta(loser.Rating, winner.Rating, false, e.cfg.KFactor)
	winner.Rating = applyDelta(winner.Rating, wd)
	loser.Rating = applyDelta(loser.Rating, ld)

	m.Result = &MatchResult{
		WinnerName:   winner.Name,
		LoserName:    loser.Name,
		WinnerRating: winner.Rating,
		LoserRating:  loser.Rating,
		WinnerDelta:  wd,
		LoserDelta:   ld,
		Reason:       reason,
		EndTime:      e.now(),
	}
	e.metrics.IncSettlements()
	e.log.Infow("match settled", "match", m.ID, "winner", winner.ID, "loser", loser.ID,
		"winnerDelta", wd, "loserDelta", ld, "reason", reason)

	e.send(winner, OutMatchEnd, matchEndPayload{
		MatchID: m.ID, Won: true, RatingChange: wd, NewRating: winner.Rating,
		OpponentName: loser.Name, Reason: reason,
	})
	e.send(loser, OutMatchEnd, matchEndPayload{
		MatchID: m.ID, Won: false, RatingChange: ld, NewRating: loser.Rating,
		OpponentName: winner.Name, Reason: reason,
	})

	for _, p := range m.players() {
		if p.MatchID == m.ID {
			p.MatchID = 0
		}
		if !p.Busy() {
			p.Mode = ModeNone
		}
	}

	id := m.ID
	m.timer = e.sched.AfterFunc(e.cfg.MatchRetention, func() { e.purgeMatch(id) })
}

func (e *Engine) purgeMatch(id int64) {
	m, ok := e.matches[id]
	if !ok || m.State != MatchFinished {
		return
	}
	delete(e.matches, id)
	e.log.Debugw("match purged", "match", id)
}
