package workflow

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"wallet-send/internal/registry"
)

// TxConfigDraft 正在构建中的交易。
// 签名开始后冻结，之后任何步骤都不会再从表单重新推导它。
type TxConfigDraft struct {
	Network          *registry.Network
	SenderAccount    *registry.Account // 一旦设置，整个工作流内不可变
	From             common.Address
	RecipientAddress common.Address
	Amount           decimal.Decimal // Asset 的展示单位
	Asset            *registry.Asset
	BaseAsset        *registry.Asset
	Nonce            uint64
	GasPrice         *big.Int // wei
	GasLimit         uint64
	Data             hexutil.Bytes
	Value            *big.Int // wei
	ChainID          int64
	To               common.Address // 原始交易的 to: 原生币是收款人，ERC-20 是合约
}

// IsEmpty 没有任何字段被填充
func (d TxConfigDraft) IsEmpty() bool {
	return d.Network == nil &&
		d.SenderAccount == nil &&
		d.From == (common.Address{}) &&
		d.RecipientAddress == (common.Address{}) &&
		d.To == (common.Address{}) &&
		d.Amount.IsZero() &&
		d.Asset == nil &&
		d.Nonce == 0 &&
		d.GasPrice == nil &&
		d.GasLimit == 0 &&
		len(d.Data) == 0 &&
		d.Value == nil &&
		d.ChainID == 0
}

// ReadyToSign 签名所需字段齐全
func (d TxConfigDraft) ReadyToSign() bool {
	return d.Network != nil &&
		d.GasPrice != nil &&
		d.GasLimit > 0 &&
		d.ChainID != 0 &&
		d.To != (common.Address{})
}

// Capability 发送账户未知时 known=false
func (d TxConfigDraft) Capability() (SignerCapability, bool) {
	if d.SenderAccount == nil {
		return "", false
	}
	return CapabilityOf(d.SenderAccount.WalletType), true
}

// Fee gasPrice * gasLimit (wei)
func (d TxConfigDraft) Fee() *big.Int {
	if d.GasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(d.GasPrice, new(big.Int).SetUint64(d.GasLimit))
}

// UnsignedTx 转换为待签名的 legacy 交易
func (d TxConfigDraft) UnsignedTx() *ethtypes.Transaction {
	to := d.To
	value := d.Value
	if value == nil {
		value = new(big.Int)
	}
	gasPrice := d.GasPrice
	if gasPrice == nil {
		gasPrice = new(big.Int)
	}
	return ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    d.Nonce,
		GasPrice: new(big.Int).Set(gasPrice),
		Gas:      d.GasLimit,
		To:       &to,
		Value:    new(big.Int).Set(value),
		Data:     append([]byte(nil), d.Data...),
	})
}

// clone 深拷贝可变字段。注册表对象只读，共享指针。
func (d TxConfigDraft) clone() TxConfigDraft {
	c := d
	if d.GasPrice != nil {
		c.GasPrice = new(big.Int).Set(d.GasPrice)
	}
	if d.Value != nil {
		c.Value = new(big.Int).Set(d.Value)
	}
	if d.Data != nil {
		c.Data = append(hexutil.Bytes{}, d.Data...)
	}
	return c
}

type draftJSON struct {
	Network          string            `json:"network,omitempty"`
	ChainID          int64             `json:"chainId,omitempty"`
	SenderAccount    *registry.Account `json:"senderAccount,omitempty"`
	From             *common.Address   `json:"from,omitempty"`
	RecipientAddress *common.Address   `json:"receiverAddress,omitempty"`
	Amount           string            `json:"amount"`
	Asset            string            `json:"asset,omitempty"`
	BaseAsset        string            `json:"baseAsset,omitempty"`
	Nonce            uint64            `json:"nonce"`
	GasPrice         string            `json:"gasPrice,omitempty"`
	GasLimit         uint64            `json:"gasLimit,omitempty"`
	Data             hexutil.Bytes     `json:"data,omitempty"`
	Value            string            `json:"value,omitempty"`
	To               *common.Address   `json:"to,omitempty"`
}

// MarshalJSON 渲染器看到的草稿，数值统一用十进制字符串
func (d TxConfigDraft) MarshalJSON() ([]byte, error) {
	out := draftJSON{
		ChainID:       d.ChainID,
		SenderAccount: d.SenderAccount,
		Amount:        d.Amount.String(),
		Nonce:         d.Nonce,
		GasLimit:      d.GasLimit,
		Data:          d.Data,
		From:          addrPtr(d.From),
		To:            addrPtr(d.To),

		RecipientAddress: addrPtr(d.RecipientAddress),
	}
	if d.Network != nil {
		out.Network = d.Network.ID
	}
	if d.Asset != nil {
		out.Asset = d.Asset.ID
	}
	if d.BaseAsset != nil {
		out.BaseAsset = d.BaseAsset.ID
	}
	if d.GasPrice != nil {
		out.GasPrice = d.GasPrice.String()
	}
	if d.Value != nil {
		out.Value = d.Value.String()
	}
	return json.Marshal(out)
}

func addrPtr(a common.Address) *common.Address {
	if a == (common.Address{}) {
		return nil
	}
	return &a
}
