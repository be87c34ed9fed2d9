package workflow

import (
	"sync"
	"time"
)

// SendGate 确认与广播之间可选的延迟 / 审批关卡。
// 关卡决定何时 (或是否) 调用 fn；取消时 fn 直接丢弃。
type SendGate interface {
	RegisterResumeCallback(fn func())
}

// Canceler 可取消的关卡
type Canceler interface {
	Cancel() bool
}

// Releaser 可提前放行的关卡
type Releaser interface {
	Release() bool
}

// ProtectGate 发送保护: 延迟 delay 后放行，期间可以取消或提前放行
type ProtectGate struct {
	delay time.Duration

	mu    sync.Mutex
	fn    func()
	timer *time.Timer
	seq   uint64
}

func NewProtectGate(delay time.Duration) *ProtectGate {
	return &ProtectGate{delay: delay}
}

// RegisterResumeCallback 登记恢复回调，新回调替换尚未触发的旧回调
func (g *ProtectGate) RegisterResumeCallback(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.timer != nil {
		g.timer.Stop()
	}
	g.seq++
	seq := g.seq
	g.fn = fn
	g.timer = time.AfterFunc(g.delay, func() { g.fire(seq) })
}

// Release 立即放行
func (g *ProtectGate) Release() bool {
	g.mu.Lock()
	seq := g.seq
	g.mu.Unlock()
	return g.fire(seq)
}

func (g *ProtectGate) fire(seq uint64) bool {
	g.mu.Lock()
	if g.fn == nil || seq != g.seq {
		g.mu.Unlock()
		return false
	}
	fn := g.fn
	g.fn = nil
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.mu.Unlock()

	fn()
	return true
}

// Cancel 丢弃挂起的回调，它永远不会被调用
func (g *ProtectGate) Cancel() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.fn == nil {
		return false
	}
	g.fn = nil
	g.seq++
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	return true
}

// Pending 是否有等待放行的回调
func (g *ProtectGate) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fn != nil
}

// ManualGate 不会自动放行，由外部调用 Release (审批类关卡、测试)
type ManualGate struct {
	mu sync.Mutex
	fn func()
}

func (g *ManualGate) RegisterResumeCallback(fn func()) {
	g.mu.Lock()
	g.fn = fn
	g.mu.Unlock()
}

func (g *ManualGate) Release() bool {
	g.mu.Lock()
	fn := g.fn
	g.fn = nil
	g.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

func (g *ManualGate) Cancel() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	ok := g.fn != nil
	g.fn = nil
	return ok
}

func (g *ManualGate) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fn != nil
}
