package request

import "wallet-send/internal/workflow"

// SubmitFormRequest 发送表单，value 为资产单位，gas_price 为 gwei
type SubmitFormRequest struct {
	From     string `json:"from" binding:"omitempty,eth_addr"`
	Network  string `json:"network"`
	Asset    string `json:"asset"`
	To       string `json:"to" binding:"required,eth_addr"`
	Value    string `json:"value" binding:"required,decimal"`
	GasPrice string `json:"gas_price" binding:"required,decimal"`
	GasLimit string `json:"gas_limit" binding:"required,numeric"`
	Nonce    string `json:"nonce" binding:"required,numeric"`
	Data     string `json:"data" binding:"omitempty,hexadecimal"`
}

func (r SubmitFormRequest) Values() workflow.FormValues {
	return workflow.FormValues{
		From:     r.From,
		Network:  r.Network,
		Asset:    r.Asset,
		To:       r.To,
		Value:    r.Value,
		GasPrice: r.GasPrice,
		GasLimit: r.GasLimit,
		Nonce:    r.Nonce,
		Data:     r.Data,
	}
}

// SignRequest 三选一: 客户端签好的交易、web3 钱包返回的 hash、或使用服务端签名器
type SignRequest struct {
	Raw          string `json:"raw" binding:"omitempty,hexadecimal"`
	Hash         string `json:"hash" binding:"omitempty,hexadecimal,len=66"`
	ServerSigner bool   `json:"server_signer"`
}

type ListHistoryRequest struct {
	Network string `form:"network" binding:"required"`
	Account string `form:"account" binding:"required,eth_addr"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=100"`
}
