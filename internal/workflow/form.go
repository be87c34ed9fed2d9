package workflow

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"wallet-send/internal/registry"
	"wallet-send/pkg/errno"
	"wallet-send/pkg/validator"
)

// FormValues 发送表单。Value 为资产展示单位，GasPrice 为 gwei。
type FormValues struct {
	From     string `json:"from" validate:"omitempty,eth_addr"`
	Network  string `json:"network"`
	Asset    string `json:"asset"`
	To       string `json:"to" validate:"required,eth_addr"`
	Value    string `json:"value" validate:"required,decimal"`
	GasPrice string `json:"gasPrice" validate:"required,decimal"`
	GasLimit string `json:"gasLimit" validate:"required,numeric"`
	Nonce    string `json:"nonce" validate:"required,numeric"`
	Data     string `json:"data" validate:"omitempty,hexadecimal"`
}

func invalid(format string, args ...interface{}) error {
	return errno.ErrValidation.WithMessage(fmt.Sprintf(format, args...))
}

// buildDraft 校验表单并生成完整草稿
func buildDraft(cur TxConfigDraft, form FormValues, snap *registry.Snapshot, flags Flags) (TxConfigDraft, error) {
	if err := validator.Struct(form); err != nil {
		return cur, errno.ErrValidation.WithMessage(err.Error())
	}
	if snap == nil {
		return cur, invalid("registry snapshot is required")
	}

	network := cur.Network
	if form.Network != "" {
		n, err := snap.Network(form.Network)
		if err != nil {
			return cur, invalid("unknown network %q", form.Network)
		}
		if cur.Network != nil && cur.Network.ID != n.ID {
			return cur, invalid("network cannot change from %s to %s", cur.Network.ID, n.ID)
		}
		network = n
	}
	if network == nil {
		return cur, invalid("network 不能为空")
	}
	baseAsset, err := snap.BaseAsset(network)
	if err != nil {
		return cur, invalid("network %s has no base asset", network.ID)
	}

	sender, err := resolveSender(cur, form, snap, network)
	if err != nil {
		return cur, err
	}

	asset := baseAsset
	switch {
	case form.Asset != "":
		a, err := snap.Asset(form.Asset)
		if err != nil || !strings.EqualFold(a.NetworkID, network.ID) {
			return cur, invalid("unknown asset %q on %s", form.Asset, network.ID)
		}
		asset = a
	case cur.Asset != nil:
		asset = cur.Asset
	}

	amount, err := decimal.NewFromString(form.Value)
	if err != nil || amount.IsNegative() {
		return cur, invalid("invalid amount %q", form.Value)
	}
	if !amount.Equal(amount.Truncate(asset.Decimals)) {
		return cur, invalid("amount %s exceeds %d decimals of %s", form.Value, asset.Decimals, asset.Symbol)
	}

	gwei, err := decimal.NewFromString(form.GasPrice)
	if err != nil || !gwei.IsPositive() {
		return cur, invalid("invalid gas price %q", form.GasPrice)
	}
	weiPrice := gwei.Shift(9)
	if !weiPrice.Equal(weiPrice.Truncate(0)) {
		return cur, invalid("gas price %s gwei is below 1 wei precision", form.GasPrice)
	}
	gasLimit, err := strconv.ParseUint(form.GasLimit, 10, 64)
	if err != nil || gasLimit == 0 {
		return cur, invalid("invalid gas limit %q", form.GasLimit)
	}
	nonce, err := strconv.ParseUint(form.Nonce, 10, 64)
	if err != nil {
		return cur, invalid("invalid nonce %q", form.Nonce)
	}
	if flags.bumpNonce() {
		nonce++
	}

	var data []byte
	if form.Data != "" {
		data, err = hexutil.Decode(ensure0x(form.Data))
		if err != nil {
			return cur, invalid("invalid data: %v", err)
		}
	}

	recipient := common.HexToAddress(form.To)
	baseUnits := amount.Shift(asset.Decimals).BigInt()

	next := cur.clone()
	next.Network = network
	next.SenderAccount = sender
	next.From = sender.Address
	next.RecipientAddress = recipient
	next.Amount = amount
	next.Asset = asset
	next.BaseAsset = baseAsset
	next.Nonce = nonce
	next.GasPrice = weiPrice.BigInt()
	next.GasLimit = gasLimit
	next.ChainID = network.ChainID

	if asset.IsToken() {
		calldata, err := encodeTransfer(recipient, baseUnits)
		if err != nil {
			return cur, invalid("encode transfer: %v", err)
		}
		next.To = asset.Contract
		next.Value = new(big.Int)
		next.Data = calldata
	} else {
		next.To = recipient
		next.Value = baseUnits
		next.Data = data
	}

	if err := checkBalance(next); err != nil {
		return cur, err
	}
	return next, nil
}

// resolveSender 发送账户一旦确定就不能再换
func resolveSender(cur TxConfigDraft, form FormValues, snap *registry.Snapshot, network *registry.Network) (*registry.Account, error) {
	if form.From == "" {
		if cur.SenderAccount != nil {
			return cur.SenderAccount, nil
		}
		return nil, invalid("from 不能为空")
	}

	addr := common.HexToAddress(form.From)
	if cur.SenderAccount != nil {
		if cur.SenderAccount.Address != addr {
			return nil, errno.ErrSenderImmutable
		}
		return cur.SenderAccount, nil
	}
	if cur.From != (common.Address{}) && cur.From != addr {
		return nil, errno.ErrSenderImmutable
	}

	acc, err := snap.Account(network.ID, addr)
	if err != nil {
		return nil, invalid("account %s is not available on %s", addr.Hex(), network.ID)
	}
	return acc, nil
}

// checkBalance 账户带余额数据时才校验；原生币需要覆盖 金额 + 手续费
func checkBalance(d TxConfigDraft) error {
	acc := d.SenderAccount
	fee := decimal.NewFromBigInt(d.Fee(), -d.BaseAsset.Decimals)

	if d.Asset.IsToken() {
		if bal, ok := acc.Balance(d.Asset.ID); ok && d.Amount.GreaterThan(bal) {
			return invalid("insufficient %s balance: have %s, need %s", d.Asset.Symbol, bal, d.Amount)
		}
		if bal, ok := acc.Balance(d.BaseAsset.ID); ok && fee.GreaterThan(bal) {
			return invalid("insufficient %s for fee: have %s, need %s", d.BaseAsset.Symbol, bal, fee)
		}
		return nil
	}

	if bal, ok := acc.Balance(d.BaseAsset.ID); ok {
		if need := d.Amount.Add(fee); need.GreaterThan(bal) {
			return invalid("insufficient %s balance: have %s, need %s", d.BaseAsset.Symbol, bal, need)
		}
	}
	return nil
}
