package server

import (
	"context"
	"errors"
	"time"
)

// ErrLoopStopped 事件循环已经停止
var ErrLoopStopped = errors.New("engine loop stopped")

// Timer 已调度的未来任务
type Timer interface {
	Stop() bool
}

// Scheduler 调度未来任务；回调必须在引擎线程内执行
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Loop 单线程事件循环：消息到达、连接关闭、定时器触发都在同一个协程中依次处理
// 任意两个引擎操作都不会交错读写共享状态，因此注册表、队列、对局表无需加锁
type Loop struct {
	engine *Engine
	events chan func()
	done   chan struct{}
}

// NewLoop 创建事件循环并把基于它的调度器交给引擎
func NewLoop(cfg Config, opts ...EngineOption) *Loop {
	l := &Loop{
		events: make(chan func(), 1024),
		done:   make(chan struct{}),
	}
	opts = append([]EngineOption{WithScheduler(loopScheduler{l})}, opts...)
	l.engine = NewEngine(cfg, opts...)
	return l
}

// Run 处理事件直到 ctx 结束
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.events:
			fn()
		}
	}
}

// post 把任务排入事件循环；循环已停止时丢弃
func (l *Loop) post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.events <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Deliver 投递一条原始入站消息
func (l *Loop) Deliver(conn Peer, raw []byte) {
	l.post(func() { l.engine.HandleRaw(conn, raw) })
}

// Disconnect 通知连接关闭
func (l *Loop) Disconnect(conn Peer) {
	l.post(func() { l.engine.HandleClose(conn) })
}

// Status 在引擎线程中取一份状态快照
func (l *Loop) Status(ctx context.Context) (Status, error) {
	ch := make(chan Status, 1)
	if !l.post(func() { ch <- l.engine.Status() }) {
		return Status{}, ErrLoopStopped
	}
	select {
	case s := <-ch:
		return s, nil
	case <-l.done:
		return Status{}, ErrLoopStopped
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// loopScheduler 用真实定时器调度，触发时把回调排回事件循环
type loopScheduler struct{ l *Loop }

func (s loopScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, func() { s.l.post(f) })
}
