package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// UnsignedTransaction represents a transaction waiting to be signed.
// 离线签名文件格式: send-cli 生成草稿，冷端签名后得到 SignedTransaction。
type UnsignedTransaction struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Value    string `json:"value"`     // Wei, 十进制
	Nonce    uint64 `json:"nonce"`     // Account Nonce
	GasLimit uint64 `json:"gas_limit"` // Gas Limit
	GasPrice string `json:"gas_price"` // Wei, 十进制
	Data     string `json:"data,omitempty"`

	// DerivationPath 告诉签名端用哪把钥匙，例如 "m/44'/60'/0'/0/0"
	DerivationPath string `json:"derivation_path"`

	// ChainID for EIP-155 replay protection
	ChainID int64 `json:"chain_id"`
}

// ToTransaction 转换为 go-ethereum 的 legacy 交易
func (u UnsignedTransaction) ToTransaction() (*ethtypes.Transaction, error) {
	if !common.IsHexAddress(u.To) {
		return nil, fmt.Errorf("invalid to address %q", u.To)
	}
	value, ok := new(big.Int).SetString(defaultZero(u.Value), 10)
	if !ok {
		return nil, fmt.Errorf("invalid value %q", u.Value)
	}
	gasPrice, ok := new(big.Int).SetString(defaultZero(u.GasPrice), 10)
	if !ok {
		return nil, fmt.Errorf("invalid gas price %q", u.GasPrice)
	}
	var data []byte
	if u.Data != "" {
		b, err := hexutil.Decode(u.Data)
		if err != nil {
			return nil, fmt.Errorf("invalid data: %w", err)
		}
		data = b
	}

	to := common.HexToAddress(u.To)
	return ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    u.Nonce,
		GasPrice: gasPrice,
		Gas:      u.GasLimit,
		To:       &to,
		Value:    value,
		Data:     data,
	}), nil
}

// SignedTransaction represents the result of the signing process.
type SignedTransaction struct {
	TxHash string `json:"tx_hash"`
	RawTx  string `json:"raw_tx"` // 0x 开头的 RLP / typed envelope
}

// NewSignedTransaction 序列化已签名交易
func NewSignedTransaction(tx *ethtypes.Transaction) (*SignedTransaction, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return &SignedTransaction{TxHash: tx.Hash().Hex(), RawTx: hexutil.Encode(raw)}, nil
}

// Bytes 返回原始字节
func (s SignedTransaction) Bytes() ([]byte, error) {
	raw, err := hexutil.Decode(s.RawTx)
	if err != nil {
		return nil, fmt.Errorf("invalid raw tx: %w", err)
	}
	return raw, nil
}

func defaultZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
