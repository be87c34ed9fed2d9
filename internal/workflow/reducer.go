package workflow

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"wallet-send/pkg/errno"
)

// Phase 工作流所处阶段
type Phase string

const (
	PhaseEmpty           Phase = "EMPTY"
	PhaseSeeded          Phase = "SEEDED"
	PhaseDraftComplete   Phase = "DRAFT_COMPLETE"
	PhaseSigned          Phase = "SIGNED"         // 已签名未发送
	PhaseSendRequested   Phase = "SEND_REQUESTED" // 用户已确认，等待交给 BroadcastDispatcher
	PhaseAwaitingReceipt Phase = "AWAITING_RECEIPT"
	PhaseComplete        Phase = "COMPLETE"
)

// State reducer 状态。转换函数总是返回新的值，不修改入参。
type State struct {
	Phase     Phase
	Intent    Intent
	Draft     TxConfigDraft
	Signed    *SignedArtifact
	Receipt   *TxReceipt
	LastError string
}

// NewState 初始状态
func NewState() State {
	return State{Phase: PhaseEmpty, Intent: IntentNormal}
}

// frozen 签名开始后草稿只读
func (s State) frozen() bool {
	switch s.Phase {
	case PhaseEmpty, PhaseSeeded, PhaseDraftComplete:
		return s.Signed != nil
	}
	return true
}

func (s State) clone() State {
	c := s
	c.Draft = s.Draft.clone()
	c.Signed = s.Signed.clone()
	if s.Receipt != nil {
		r := *s.Receipt
		c.Receipt = &r
	}
	return c
}

func mismatch(ev Event, s State) error {
	return errno.ErrStateMismatch.WithMessage(fmt.Sprintf("%s not allowed in phase %s", ev.Kind(), s.Phase))
}

// Reduce 处理一个事件，返回新状态。出错时返回原状态。
func Reduce(s State, ev Event, flags Flags) (State, error) {
	switch e := ev.(type) {
	case SetTxConfig:
		return reduceSetTxConfig(s, e), nil
	case FormSubmit:
		return reduceFormSubmit(s, e, flags)
	case Web3SignSuccess:
		return reduceWeb3SignSuccess(s, e)
	case SignSuccess:
		return reduceSignSuccess(s, e)
	case RequestSend:
		if s.Phase != PhaseSigned {
			return s, mismatch(e, s)
		}
		next := s.clone()
		next.Phase = PhaseSendRequested
		next.LastError = ""
		return next, nil
	case BroadcastStarted:
		if s.Phase != PhaseSendRequested {
			return s, mismatch(e, s)
		}
		next := s.clone()
		next.Phase = PhaseAwaitingReceipt
		return next, nil
	case SendSuccess:
		return reduceSendSuccess(s, e)
	case SendFailure:
		if s.Phase != PhaseAwaitingReceipt || s.Signed == nil || s.Signed.Sent {
			return s, mismatch(e, s)
		}
		next := s.clone()
		next.Phase = PhaseSigned
		next.LastError = errString(e.Err)
		return next, nil
	case SignFailure:
		return reduceSignFailure(s, e)
	default:
		kind := fmt.Sprintf("%T", ev)
		if ev != nil {
			kind = ev.Kind()
		}
		return s, errno.ErrUnknownAction.WithMessage("unknown action: " + kind)
	}
}

func reduceSetTxConfig(s State, e SetTxConfig) State {
	// 草稿已有内容时忽略，防止旧的查询参数覆盖用户的修改
	if s.Phase != PhaseEmpty || !s.Draft.IsEmpty() {
		return s
	}
	next := s.clone()
	if e.Intent != "" {
		next.Intent = e.Intent
	}
	if !e.Draft.IsEmpty() {
		next.Draft = e.Draft.clone()
		next.Phase = PhaseSeeded
	}
	return next
}

func reduceFormSubmit(s State, e FormSubmit, flags Flags) (State, error) {
	if s.frozen() {
		return s, errno.ErrDraftFrozen
	}
	draft, err := buildDraft(s.Draft, e.Form, e.Registry, flags)
	if err != nil {
		return s, err
	}
	next := s.clone()
	next.Draft = draft
	next.Phase = PhaseDraftComplete
	next.LastError = ""
	return next, nil
}

func canSign(s State) bool {
	return (s.Phase == PhaseSeeded || s.Phase == PhaseDraftComplete) && s.Signed == nil && s.Draft.ReadyToSign()
}

func reduceWeb3SignSuccess(s State, e Web3SignSuccess) (State, error) {
	if !canSign(s) {
		return s, mismatch(e, s)
	}
	if c, known := s.Draft.Capability(); !known || c != SignAndSend {
		return s, mismatch(e, s)
	}

	hash := e.Hash
	if e.Receipt != nil {
		hash = e.Receipt.Hash
	}
	if hash == (common.Hash{}) {
		return s, errno.ErrValidation.WithMessage("signer returned neither a receipt nor a transaction hash")
	}

	next := s.clone()
	next.Signed = &SignedArtifact{
		Raw:  append([]byte(nil), e.Raw...),
		Hash: hash,
		From: s.Draft.From,
		Sent: true,
	}
	next.LastError = ""
	if e.Receipt != nil {
		r := fillReceipt(next, *e.Receipt)
		next.Signed.Receipt = &r
		next.Receipt = &r
		next.Phase = PhaseComplete
		return next, nil
	}
	next.Phase = PhaseAwaitingReceipt
	return next, nil
}

func reduceSignSuccess(s State, e SignSuccess) (State, error) {
	if !canSign(s) {
		return s, mismatch(e, s)
	}
	if c, known := s.Draft.Capability(); known && c == SignAndSend {
		return s, mismatch(e, s)
	}

	tx := new(ethtypes.Transaction)
	if err := tx.UnmarshalBinary(e.Raw); err != nil {
		return s, errno.ErrValidation.WithMessage("invalid signed transaction: " + err.Error())
	}
	d := s.Draft
	from, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(big.NewInt(d.ChainID)), tx)
	if err != nil {
		return s, errno.ErrValidation.WithMessage("cannot recover signer: " + err.Error())
	}

	// 已签名交易必须与冻结的草稿一致
	switch {
	case tx.Nonce() != d.Nonce:
		return s, errno.ErrValidation.WithMessage(fmt.Sprintf("signed nonce %d differs from draft nonce %d", tx.Nonce(), d.Nonce))
	case tx.To() == nil || *tx.To() != d.To:
		return s, errno.ErrValidation.WithMessage("signed recipient differs from draft")
	case tx.ChainId().Sign() != 0 && tx.ChainId().Int64() != d.ChainID:
		return s, errno.ErrValidation.WithMessage("signed chain id differs from draft")
	}
	if d.SenderAccount != nil && d.SenderAccount.Address != from {
		return s, errno.ErrSenderImmutable
	}
	if d.From != (common.Address{}) && d.From != from {
		return s, errno.ErrSenderImmutable
	}

	next := s.clone()
	next.Draft.From = from
	if next.Draft.SenderAccount == nil && e.Registry != nil {
		// 签名结果补上发送账户；签名即广播类型的账户不可能产出离线签名，不挂载
		if acc, err := e.Registry.Account(d.Network.ID, from); err == nil && CapabilityOf(acc.WalletType) == SelfContained {
			next.Draft.SenderAccount = acc
		}
	}
	next.Signed = &SignedArtifact{
		Raw:  append([]byte(nil), e.Raw...),
		Hash: tx.Hash(),
		From: from,
	}
	next.Phase = PhaseSigned
	next.LastError = ""
	return next, nil
}

func reduceSendSuccess(s State, e SendSuccess) (State, error) {
	if s.Phase != PhaseAwaitingReceipt || s.Receipt != nil {
		return s, mismatch(e, s)
	}
	if s.Signed != nil && e.Receipt.Hash != (common.Hash{}) && e.Receipt.Hash != s.Signed.Hash {
		return s, errno.ErrValidation.WithMessage("receipt hash does not match signed transaction")
	}
	next := s.clone()
	r := fillReceipt(next, e.Receipt)
	next.Receipt = &r
	if next.Signed != nil {
		next.Signed.Sent = true
		next.Signed.Receipt = &r
	}
	next.Phase = PhaseComplete
	next.LastError = ""
	return next, nil
}

func reduceSignFailure(s State, e SignFailure) (State, error) {
	switch {
	case canSign(s):
	case s.Phase == PhaseAwaitingReceipt && s.Signed != nil && s.Signed.Sent:
		// 签名即广播的签名器事后报告失败
	default:
		return s, mismatch(e, s)
	}
	next := s.clone()
	next.Signed = nil
	next.Phase = PhaseDraftComplete
	next.LastError = errString(e.Err)
	return next, nil
}

// fillReceipt 用草稿补齐回执里签名器 / 节点没有给出的字段
func fillReceipt(s State, r TxReceipt) TxReceipt {
	d := s.Draft
	if r.Hash == (common.Hash{}) && s.Signed != nil {
		r.Hash = s.Signed.Hash
	}
	if r.Status == "" {
		r.Status = TxStatusPending
	}
	if r.TxType == "" {
		r.TxType = s.Intent
	}
	if r.From == (common.Address{}) {
		r.From = d.From
	}
	if r.To == (common.Address{}) {
		r.To = d.To
	}
	if r.Recipient == (common.Address{}) {
		r.Recipient = d.RecipientAddress
	}
	if r.Nonce == 0 {
		r.Nonce = d.Nonce
	}
	if r.ChainID == 0 {
		r.ChainID = d.ChainID
	}
	if r.AssetID == "" && d.Asset != nil {
		r.AssetID = d.Asset.ID
	}
	if r.Amount.IsZero() {
		r.Amount = d.Amount
	}
	if r.GasPrice == nil && d.GasPrice != nil {
		r.GasPrice = new(big.Int).Set(d.GasPrice)
	}
	if r.GasLimit == 0 {
		r.GasLimit = d.GasLimit
	}
	return r
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
