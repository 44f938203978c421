package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakePeer 记录收到的出站消息，可切换为关闭状态
type fakePeer struct {
	name   string
	closed bool
	out    []Message
}

func newPeer(name string) *fakePeer { return &fakePeer{name: name} }

func (f *fakePeer) Enqueue(b []byte) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	f.out = append(f.out, m)
}

func (f *fakePeer) Open() bool { return !f.closed }

func (f *fakePeer) types() []string {
	out := make([]string, 0, len(f.out))
	for _, m := range f.out {
		out = append(out, m.Type)
	}
	return out
}

func (f *fakePeer) count(typ string) int {
	n := 0
	for _, m := range f.out {
		if m.Type == typ {
			n++
		}
	}
	return n
}

func (f *fakePeer) last(t *testing.T, typ string) Message {
	t.Helper()
	for i := len(f.out) - 1; i >= 0; i-- {
		if f.out[i].Type == typ {
			return f.out[i]
		}
	}
	require.Failf(t, "message not received", "%s never got %s (got %v)", f.name, typ, f.types())
	return Message{}
}

func (f *fakePeer) reset() { f.out = nil }

// manualScheduler 手动触发的定时器，测试中完全确定
type manualScheduler struct {
	timers []*manualTimer
}

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &manualTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fire 触发所有时长为 d 的待定定时器（按调度顺序），返回触发个数
// 触发过程中新调度的定时器留到下一次
func (s *manualScheduler) fire(d time.Duration) int {
	pending := make([]*manualTimer, 0)
	for _, t := range s.timers {
		if !t.stopped && !t.fired && t.d == d {
			pending = append(pending, t)
		}
	}
	for _, t := range pending {
		t.fired = true
		t.f()
	}
	return len(pending)
}

// fireStale 无视 Stop，强制执行已停止的定时器，模拟“停止前已经触发”的竞态
func (s *manualScheduler) fireStale() int {
	n := 0
	for _, t := range s.timers {
		if t.stopped && !t.fired {
			t.fired = true
			t.f()
			n++
		}
	}
	return n
}

func (s *manualScheduler) pending() int {
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

var testEpoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, mutate ...func(*Config)) (*Engine, *manualScheduler) {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	s := &manualScheduler{}
	e := NewEngine(cfg,
		WithScheduler(s),
		WithLogger(zaptest.NewLogger(t).Sugar()),
		WithClock(func() time.Time { return testEpoch }),
	)
	return e, s
}

func msg(t *testing.T, typ string, payload any) Message {
	t.Helper()
	m := Message{Type: typ}
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		m.Payload = b
	}
	return m
}

func decode[T any](t *testing.T, m Message) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(m.Payload, &v))
	return v
}

func joinDuel(t *testing.T, e *Engine, p *fakePeer, rating int) {
	t.Helper()
	e.Dispatch(p, msg(t, TagJoinQueue, map[string]any{"playerId": p.name, "playerName": p.name, "rating": rating}))
}

func findPartner(t *testing.T, e *Engine, p *fakePeer) {
	t.Helper()
	e.Dispatch(p, msg(t, TagFindPartner, map[string]any{"playerId": p.name, "playerName": p.name}))
}

// startDuel 两人入队并跑完倒计时
func startDuel(t *testing.T, e *Engine, s *manualScheduler, a, b *fakePeer, ra, rb int) *Match {
	t.Helper()
	joinDuel(t, e, a, ra)
	joinDuel(t, e, b, rb)
	for i := 0; i < e.cfg.CountdownFrom; i++ {
		require.Equal(t, 1, s.fire(e.cfg.CountdownInterval))
	}
	pa, ok := e.registry.Lookup(a)
	require.True(t, ok)
	m := e.matches[pa.MatchID]
	require.NotNil(t, m)
	require.Equal(t, MatchPlaying, m.State)
	return m
}
