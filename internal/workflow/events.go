package workflow

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"wallet-send/internal/registry"
)

// Event 工作流事件
type Event interface {
	Kind() string
}

// SetTxConfig 用预填充的草稿初始化 (只在草稿为空时生效)
type SetTxConfig struct {
	Draft  TxConfigDraft
	Intent Intent
}

// FormSubmit 表单提交
type FormSubmit struct {
	Form     FormValues
	Registry *registry.Snapshot
}

// Web3SignSuccess 签名即广播的签名器返回: 回执，或已发出交易的 hash
type Web3SignSuccess struct {
	Receipt *TxReceipt
	Hash    common.Hash
	Raw     hexutil.Bytes
}

// SignSuccess 独立签名器返回的已签名交易
type SignSuccess struct {
	Raw      hexutil.Bytes
	Registry *registry.Snapshot
}

// RequestSend 用户确认发送
type RequestSend struct{}

// SendSuccess 广播成功，携带回执
type SendSuccess struct {
	Receipt TxReceipt
}

// BroadcastStarted 广播请求已交给 BroadcastDispatcher
type BroadcastStarted struct{}

// SendFailure 广播失败，已签名交易保留，可以不重新签名直接重试
type SendFailure struct {
	Err error
}

// SignFailure 签名失败 (签名即广播的签名器需要从签名步骤重来)
type SignFailure struct {
	Err error
}

func (SetTxConfig) Kind() string      { return "SET_TXCONFIG" }
func (FormSubmit) Kind() string       { return "FORM_SUBMIT" }
func (Web3SignSuccess) Kind() string  { return "WEB3_SIGN_SUCCESS" }
func (SignSuccess) Kind() string      { return "SIGN_SUCCESS" }
func (RequestSend) Kind() string      { return "REQUEST_SEND" }
func (SendSuccess) Kind() string      { return "SEND_SUCCESS" }
func (BroadcastStarted) Kind() string { return "BROADCAST_STARTED" }
func (SendFailure) Kind() string      { return "SEND_FAILURE" }
func (SignFailure) Kind() string      { return "SIGN_FAILURE" }
