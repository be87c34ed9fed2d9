package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"wallet-send/internal/registry"
	"wallet-send/pkg/errno"
	"wallet-send/pkg/logger"
	"wallet-send/pkg/monitor"
)

// BroadcastDispatcher 提交已签名交易。传输失败返回 ErrBroadcast，内部不重试。
type BroadcastDispatcher interface {
	Send(ctx context.Context, network *registry.Network, artifact SignedArtifact) (TxReceipt, error)
}

// HistoryRecorder 账户交易历史
type HistoryRecorder interface {
	AddTransaction(ctx context.Context, account *registry.Account, receipt TxReceipt) error
}

// Signer 对冻结的草稿签名，返回 SignSuccess 或 Web3SignSuccess
type Signer interface {
	Sign(ctx context.Context, draft TxConfigDraft) (Event, error)
}

type Options struct {
	Registry   registry.Source
	Dispatcher BroadcastDispatcher
	History    HistoryRecorder
	Gate       SendGate // nil 表示直接发送
	Flags      Flags
	Stepper    StepperConfig

	// BroadcastTimeout 关卡放行后在后台发送时使用
	BroadcastTimeout time.Duration
	// HistoryRetryDelay 历史写入失败后的首次退避，之后指数增长
	HistoryRetryDelay time.Duration
	Logger            *zap.Logger
	Now               func() time.Time
}

// Session 一个发送工作流实例。事件按调度顺序逐个处理，同一时刻只有一个状态转换。
type Session struct {
	ID   string
	opts Options
	log  *zap.Logger

	mu          sync.Mutex
	state       State
	confirmed   bool // 已通过 CONFIRM_BEFORE_SIGN
	editing     bool // 从确认页回到 FORM
	gatePending bool
	gateGen     uint64
	sending     bool
	historyDone bool
	lastActive  time.Time
}

// NewSession 创建会话。预填充参数解析失败时记录日志并按普通发送继续。
func NewSession(ctx context.Context, id string, params map[string]string, opts Options) (*Session, error) {
	if opts.Registry == nil {
		return nil, errors.New("workflow: registry source is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BroadcastTimeout <= 0 {
		opts.BroadcastTimeout = 30 * time.Second
	}
	if opts.HistoryRetryDelay <= 0 {
		opts.HistoryRetryDelay = 200 * time.Millisecond
	}
	log := opts.Logger
	if log == nil {
		log = logger.Log
	}

	s := &Session{
		ID:         id,
		opts:       opts,
		log:        log.With(zap.String("session_id", id)),
		state:      NewState(),
		lastActive: opts.Now(),
	}

	if len(params) == 0 {
		return s, nil
	}
	snap, err := opts.Registry.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	prefill, err := ParsePrefill(params, snap)
	if err != nil {
		s.log.Warn("prefill params rejected, continue as a fresh send", zap.Error(err))
		return s, nil
	}
	if prefill != nil {
		if _, err := s.Dispatch(ctx, SetTxConfig{Draft: prefill.Draft, Intent: prefill.Intent}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// State 当前状态的副本
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Dispatch 处理一个事件并执行它引出的副作用 (发送、历史记录)
func (s *Session) Dispatch(ctx context.Context, ev Event) (State, error) {
	if _, ok := ev.(RequestSend); ok && s.opts.Gate != nil {
		return s.requestThroughGate()
	}

	s.mu.Lock()
	prev := s.state
	next, err := s.apply(ev)
	s.mu.Unlock()
	if err != nil {
		return next, err
	}
	return s.react(ctx, prev, next)
}

// apply 调用方持有 s.mu
func (s *Session) apply(ev Event) (State, error) {
	kind := "<nil>"
	if ev != nil {
		kind = ev.Kind()
	}
	next, err := Reduce(s.state, ev, s.opts.Flags)
	monitor.Workflow.Event(kind, err)
	s.lastActive = s.opts.Now()

	if err != nil {
		switch {
		case errors.Is(err, errno.ErrUnknownAction):
			s.log.DPanic("unknown workflow event", zap.String("event", kind), zap.Error(err))
		case errors.Is(err, errno.ErrStateMismatch):
			s.log.Debug("event ignored", zap.String("event", kind), zap.String("phase", string(s.state.Phase)))
		default:
			s.log.Info("event rejected", zap.String("event", kind), zap.Error(err))
		}
		return s.state.clone(), err
	}

	if _, ok := ev.(FormSubmit); ok {
		s.editing = false
		s.confirmed = false
	}
	s.log.Debug("event applied",
		zap.String("event", kind),
		zap.String("from", string(s.state.Phase)),
		zap.String("to", string(next.Phase)))
	s.state = next
	return next.clone(), nil
}

// react 根据前后状态触发副作用
func (s *Session) react(ctx context.Context, prev, next State) (State, error) {
	if prev.Phase == PhaseSigned && next.Phase == PhaseSendRequested {
		return s.broadcast(ctx)
	}
	if prev.Receipt == nil && next.Receipt != nil {
		s.recordHistory(ctx, next)
		return next, nil
	}
	// 签名即广播的签名器只给了 hash，由 hash 推导回执
	if next.Phase == PhaseAwaitingReceipt && next.Signed != nil && next.Signed.Sent && next.Receipt == nil {
		return s.Dispatch(ctx, SendSuccess{Receipt: ReceiptFromArtifact(*next.Signed, s.opts.Now())})
	}
	return next, nil
}

func (s *Session) broadcast(ctx context.Context) (State, error) {
	s.mu.Lock()
	cur, err := s.apply(BroadcastStarted{})
	if err != nil {
		s.sending = false
		s.mu.Unlock()
		return cur, err
	}
	s.sending = true
	s.mu.Unlock()

	var receipt TxReceipt
	if s.opts.Dispatcher == nil {
		err = errno.ErrBroadcast.WithMessage("no broadcast dispatcher configured")
	} else {
		receipt, err = s.opts.Dispatcher.Send(ctx, cur.Draft.Network, *cur.Signed)
	}

	s.mu.Lock()
	s.sending = false
	if err != nil {
		if !errors.Is(err, errno.ErrBroadcast) {
			err = errno.ErrBroadcast.Wrap(err)
		}
		st, _ := s.apply(SendFailure{Err: err})
		s.mu.Unlock()
		s.log.Warn("broadcast failed, signed transaction kept for retry", zap.Error(err))
		return st, err
	}
	if receipt.Timestamp.IsZero() {
		receipt.Timestamp = s.opts.Now()
	}
	prev := s.state
	next, err := s.apply(SendSuccess{Receipt: receipt})
	s.mu.Unlock()
	if err != nil {
		return next, err
	}
	return s.react(ctx, prev, next)
}

const historyAttempts = 3

// recordHistory 回执第一次出现时写入账户历史，每个会话只触发一次。
// 写入失败时有限次退避重试，历史服务按 hash 去重。
func (s *Session) recordHistory(ctx context.Context, st State) {
	s.mu.Lock()
	if s.historyDone {
		s.mu.Unlock()
		return
	}
	s.historyDone = true
	s.mu.Unlock()

	if s.opts.History == nil {
		return
	}
	account := st.Draft.SenderAccount
	if account == nil {
		account = &registry.Account{Address: st.Draft.From}
		if st.Draft.Network != nil {
			account.NetworkID = st.Draft.Network.ID
		}
	}
	err := retry.Do(
		func() error {
			err := s.opts.History.AddTransaction(ctx, account, *st.Receipt)
			monitor.Workflow.HistoryWrite(err)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(historyAttempts),
		retry.Delay(s.opts.HistoryRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.log.Warn("add transaction to history failed, retrying", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		s.log.Error("add transaction to history failed",
			zap.String("hash", st.Receipt.Hash.Hex()), zap.Error(err))
		return
	}
	s.log.Info("transaction recorded",
		zap.String("account", account.Address.Hex()),
		zap.String("hash", st.Receipt.Hash.Hex()))
}

// requestThroughGate 把发送交给关卡，放行时才真正发出 REQUEST_SEND
func (s *Session) requestThroughGate() (State, error) {
	s.mu.Lock()
	if s.state.Phase != PhaseSigned || s.gatePending {
		st := s.state.clone()
		s.mu.Unlock()
		monitor.Workflow.Event(RequestSend{}.Kind(), errno.ErrStateMismatch)
		return st, mismatch(RequestSend{}, st)
	}
	s.gateGen++
	gen := s.gateGen
	s.gatePending = true
	s.lastActive = s.opts.Now()
	st := s.state.clone()
	s.mu.Unlock()

	s.opts.Gate.RegisterResumeCallback(func() { s.resume(gen) })
	monitor.Workflow.Gate("deferred")
	s.log.Info("send deferred by gate")
	return st, nil
}

func (s *Session) resume(gen uint64) {
	s.mu.Lock()
	if !s.gatePending || gen != s.gateGen {
		s.mu.Unlock()
		return
	}
	s.gatePending = false
	prev := s.state
	next, err := s.apply(RequestSend{})
	if err == nil {
		// 与 gatePending 在同一临界区交接，Busy 不会出现空窗
		s.sending = true
	}
	s.mu.Unlock()

	monitor.Workflow.Gate("released")
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.BroadcastTimeout)
	defer cancel()
	if _, err := s.react(ctx, prev, next); err != nil {
		s.log.Warn("gated send failed", zap.Error(err))
	}
}

// CancelSend 放弃关卡中等待的发送，状态停留在已签名未发送
func (s *Session) CancelSend() bool {
	s.mu.Lock()
	if !s.gatePending {
		s.mu.Unlock()
		return false
	}
	s.gatePending = false
	s.gateGen++
	s.mu.Unlock()

	if c, ok := s.opts.Gate.(Canceler); ok {
		c.Cancel()
	}
	monitor.Workflow.Gate("cancelled")
	s.log.Info("gated send cancelled")
	return true
}

// ReleaseGate 提前放行关卡中等待的发送，关卡不支持提前放行时返回 false
func (s *Session) ReleaseGate() bool {
	if !s.GatePending() {
		return false
	}
	r, ok := s.opts.Gate.(Releaser)
	if !ok {
		return false
	}
	return r.Release()
}

// Sign 用服务端签名器签名。草稿在签名期间不会变化。
func (s *Session) Sign(ctx context.Context, signer Signer) (State, error) {
	st := s.State()
	if !canSign(st) {
		return st, mismatch(SignSuccess{}, st)
	}
	ev, err := signer.Sign(ctx, st.Draft)
	if err != nil {
		s.log.Warn("sign failed", zap.Error(err))
		failed, _ := s.Dispatch(ctx, SignFailure{Err: err})
		return failed, err
	}
	if ss, ok := ev.(SignSuccess); ok && ss.Registry == nil {
		if ss.Registry, err = s.opts.Registry.Snapshot(ctx); err != nil {
			return st, err
		}
		ev = ss
	}
	return s.Dispatch(ctx, ev)
}

// Busy 关卡等待或广播进行中，不能回收
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gatePending || s.sending
}

// GatePending 发送是否在关卡中等待
func (s *Session) GatePending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gatePending
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// ReceiptFromArtifact 签名即广播的签名器只返回 hash 时，由签名产物生成待确认回执
func ReceiptFromArtifact(a SignedArtifact, now time.Time) TxReceipt {
	if a.Receipt != nil {
		return *a.Receipt
	}
	return TxReceipt{
		Hash:      a.Hash,
		Timestamp: now,
		Status:    TxStatusPending,
		From:      a.From,
	}
}
