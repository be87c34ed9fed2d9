package workflow

import "wallet-send/internal/registry"

// CapabilityOf 钱包类型到签名能力的唯一映射点
func CapabilityOf(wt registry.WalletType) SignerCapability {
	switch wt {
	case registry.WalletWeb3, registry.WalletCustodial:
		return SignAndSend
	default:
		return SelfContained
	}
}

// Compose 根据签名能力与意图给出步骤顺序，纯函数。
// SignAndSend 签名即广播，所以确认放在签名之前；SelfContained 先签名，用户审阅签名后再显式发送。
// 重发 (加速 / 取消) 的草稿已经完整，跳过 FORM。
func Compose(capability SignerCapability, intent Intent) []StepID {
	var steps []StepID
	if capability == SignAndSend {
		steps = []StepID{StepForm, StepConfirmBeforeSign, StepSign, StepReceipt}
	} else {
		steps = []StepID{StepForm, StepSign, StepConfirmAfterSign, StepReceipt}
	}
	if intent.IsResubmission() {
		return steps[1:]
	}
	return steps
}

// resolveCapability 发送账户未知时走默认 (SelfContained) 路径
func resolveCapability(d TxConfigDraft) SignerCapability {
	if c, ok := d.Capability(); ok {
		return c
	}
	return SelfContained
}

func indexOf(path []StepID, id StepID) int {
	for i, s := range path {
		if s == id {
			return i
		}
	}
	return -1
}
