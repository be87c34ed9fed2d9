package workflow

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// Intent 进入发送流程的原因
type Intent string

const (
	IntentNormal  Intent = "NORMAL"
	IntentSpeedUp Intent = "SPEEDUP"
	IntentCancel  Intent = "CANCEL"
)

// IsResubmission 加速 / 取消都是对一笔已发出交易的重发
func (i Intent) IsResubmission() bool {
	return i == IntentSpeedUp || i == IntentCancel
}

// SignerCapability 签名器能力
type SignerCapability string

const (
	// SelfContained 独立产出签名，广播是单独的一步
	SelfContained SignerCapability = "SELF_CONTAINED"
	// SignAndSend 签名与广播不可分割 (web3 钱包、托管节点)
	SignAndSend SignerCapability = "SIGN_AND_SEND"
)

type StepID string

const (
	StepForm              StepID = "FORM"
	StepConfirmBeforeSign StepID = "CONFIRM_BEFORE_SIGN"
	StepSign              StepID = "SIGN"
	StepConfirmAfterSign  StepID = "CONFIRM_AFTER_SIGN"
	StepReceipt           StepID = "RECEIPT"
)

type TxStatus string

const (
	TxStatusPending TxStatus = "pending"
	TxStatusSuccess TxStatus = "success"
	TxStatusFailed  TxStatus = "failed"
)

// TxReceipt 广播后的回执
type TxReceipt struct {
	Hash        common.Hash     `json:"hash"`
	Timestamp   time.Time       `json:"timestamp"`
	Status      TxStatus        `json:"status"`
	TxType      Intent          `json:"txType"`
	From        common.Address  `json:"from"`
	To          common.Address  `json:"to"`
	Recipient   common.Address  `json:"recipient"`
	Nonce       uint64          `json:"nonce"`
	ChainID     int64           `json:"chainId"`
	AssetID     string          `json:"asset"`
	Amount      decimal.Decimal `json:"amount"`
	GasPrice    *big.Int        `json:"gasPrice,omitempty"`
	GasLimit    uint64          `json:"gasLimit"`
	BlockNumber uint64          `json:"blockNumber,omitempty"`
}

// SignedArtifact 签名产物。
// SelfContained: Raw 是可直接广播的已签名交易，Sent=false。
// SignAndSend: 签名器已经广播，Sent=true，可能直接带回执。
type SignedArtifact struct {
	Raw     hexutil.Bytes  `json:"raw,omitempty"`
	Hash    common.Hash    `json:"hash"`
	From    common.Address `json:"from"`
	Sent    bool           `json:"sent"`
	Receipt *TxReceipt     `json:"receipt,omitempty"`
}

func (a *SignedArtifact) clone() *SignedArtifact {
	if a == nil {
		return nil
	}
	c := *a
	c.Raw = append(hexutil.Bytes(nil), a.Raw...)
	if a.Receipt != nil {
		r := *a.Receipt
		c.Receipt = &r
	}
	return &c
}

// Flags FORM_SUBMIT 的外部输入，保持 reducer 是 (state, event, flags) 的纯函数
type Flags struct {
	// ProtectActive 发送前保护 (SendGate) 已启用
	ProtectActive bool
	// ProtectExempt 免除 nonce 补偿
	ProtectExempt bool
}

func (f Flags) bumpNonce() bool {
	return f.ProtectActive && !f.ProtectExempt
}

// StepperConfig 交给渲染器的导航参数，不进入工作流状态
type StepperConfig struct {
	DefaultBackPath string `json:"defaultBackPath"`
	CompleteLabel   string `json:"completeBtnText"`
}
