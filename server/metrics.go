package server

import (
	"sync/atomic"
)

// EngineMetrics 记录引擎运行期的关键指标（用于监控与调试）
type EngineMetrics struct {
	MessagesIn     int64 // 收到的入站消息数
	Malformed      int64 // 无法解析的消息数
	UnknownTags    int64 // 未知类型的消息数
	Rejected       int64 // 违反策略被拒绝的操作数（如已配对仍排队）
	Sent           int64 // 成功投递到发送队列的消息数
	DroppedClosed  int64 // 因通道已关闭而丢弃的消息数
	MatchesCreated int64
	RoomsCreated   int64
	Settlements    int64 // 完成结算的对局数
}

func (m *EngineMetrics) IncMessagesIn()     { atomic.AddInt64(&m.MessagesIn, 1) }
func (m *EngineMetrics) IncMalformed()      { atomic.AddInt64(&m.Malformed, 1) }
func (m *EngineMetrics) IncUnknownTags()    { atomic.AddInt64(&m.UnknownTags, 1) }
func (m *EngineMetrics) IncRejected()       { atomic.AddInt64(&m.Rejected, 1) }
func (m *EngineMetrics) IncSent()           { atomic.AddInt64(&m.Sent, 1) }
func (m *EngineMetrics) IncDroppedClosed()  { atomic.AddInt64(&m.DroppedClosed, 1) }
func (m *EngineMetrics) IncMatchesCreated() { atomic.AddInt64(&m.MatchesCreated, 1) }
func (m *EngineMetrics) IncRoomsCreated()   { atomic.AddInt64(&m.RoomsCreated, 1) }
func (m *EngineMetrics) IncSettlements()    { atomic.AddInt64(&m.Settlements, 1) }

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *EngineMetrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"messages_in":     atomic.LoadInt64(&m.MessagesIn),
		"malformed":       atomic.LoadInt64(&m.Malformed),
		"unknown_tags":    atomic.LoadInt64(&m.UnknownTags),
		"rejected":        atomic.LoadInt64(&m.Rejected),
		"sent":            atomic.LoadInt64(&m.Sent),
		"dropped_closed":  atomic.LoadInt64(&m.DroppedClosed),
		"matches_created": atomic.LoadInt64(&m.MatchesCreated),
		"rooms_created":   atomic.LoadInt64(&m.RoomsCreated),
		"settlements":     atomic.LoadInt64(&m.Settlements),
	}
}
