package signer

import (
	"wallet-send/internal/workflow"
	"wallet-send/pkg/errno"
)

// Router 按草稿的签名能力选择服务端签名器
type Router struct {
	Local  workflow.Signer
	Remote workflow.Signer
}

// For 发送账户未知时按独立签名处理
func (r Router) For(d workflow.TxConfigDraft) (workflow.Signer, error) {
	capability, _ := d.Capability()
	if capability == workflow.SignAndSend {
		if r.Remote == nil {
			return nil, errno.ErrSignerUnavailable.WithMessage("no sign-and-send signer configured")
		}
		return r.Remote, nil
	}
	if r.Local == nil {
		return nil, errno.ErrSignerUnavailable.WithMessage("no local signer configured")
	}
	return r.Local, nil
}
