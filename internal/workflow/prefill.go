package workflow

import (
	"fmt"
	"math"
	"math/big"
	"net/url"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"wallet-send/internal/registry"
	"wallet-send/pkg/errno"
)

// 重发链接携带的查询参数
const (
	ParamType     = "type"
	ParamFrom     = "from"
	ParamTo       = "to"
	ParamGasPrice = "gasPrice"
	ParamGasLimit = "gasLimit"
	ParamValue    = "value"
	ParamData     = "data"
	ParamNonce    = "nonce"
	ParamChainID  = "chainId"
)

var requiredParams = []string{ParamGasPrice, ParamGasLimit, ParamTo, ParamData, ParamNonce, ParamFrom, ParamValue, ParamChainID}

// Prefill 从链接还原出的草稿
type Prefill struct {
	Intent Intent
	Draft  TxConfigDraft
}

// QueryParams url.Values -> map，每个 key 只取第一个值
func QueryParams(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func intentFromParam(v string) (Intent, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "speedup":
		return IntentSpeedUp, true
	case "cancel":
		return IntentCancel, true
	}
	return "", false
}

// ParsePrefill 把加速 / 取消链接还原成草稿。
// 没有可识别的 type 参数时返回 (nil, nil)，表示全新发送；
// 参数缺失、格式错误、网络或资产无法解析时返回 ErrParseFailure，调用方应当回退为全新发送。
// 发送地址不在本地账户里不算失败，只是 SenderAccount 为空。
func ParsePrefill(params map[string]string, snap *registry.Snapshot) (*Prefill, error) {
	intent, ok := intentFromParam(params[ParamType])
	if !ok {
		return nil, nil
	}

	var missing []string
	for _, k := range requiredParams {
		if strings.TrimSpace(params[k]) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, errno.ErrParseFailure.Wrap(fmt.Errorf("missing %s", strings.Join(missing, ", ")))
	}

	from, err := parseAddress(params[ParamFrom])
	if err != nil {
		return nil, errno.ErrParseFailure.Wrap(err)
	}
	to, err := parseAddress(params[ParamTo])
	if err != nil {
		return nil, errno.ErrParseFailure.Wrap(err)
	}
	chainID, err := parseUint(params[ParamChainID])
	if err != nil || chainID == 0 || chainID > math.MaxInt64 {
		return nil, errno.ErrParseFailure.Wrap(fmt.Errorf("invalid chainId %q", params[ParamChainID]))
	}
	nonce, err := parseUint(params[ParamNonce])
	if err != nil {
		return nil, errno.ErrParseFailure.Wrap(fmt.Errorf("invalid nonce: %w", err))
	}
	gasLimit, err := parseUint(params[ParamGasLimit])
	if err != nil || gasLimit == 0 {
		return nil, errno.ErrParseFailure.Wrap(fmt.Errorf("invalid gasLimit %q", params[ParamGasLimit]))
	}
	gasPrice, err := parseBig(params[ParamGasPrice])
	if err != nil {
		return nil, errno.ErrParseFailure.Wrap(fmt.Errorf("invalid gasPrice: %w", err))
	}
	value, err := parseBig(params[ParamValue])
	if err != nil {
		return nil, errno.ErrParseFailure.Wrap(fmt.Errorf("invalid value: %w", err))
	}
	data, err := hexutil.Decode(ensure0x(params[ParamData]))
	if err != nil {
		return nil, errno.ErrParseFailure.Wrap(fmt.Errorf("invalid data: %w", err))
	}

	network, err := snap.NetworkByChainID(int64(chainID))
	if err != nil {
		return nil, errno.ErrParseFailure.Wrap(err)
	}
	baseAsset, err := snap.BaseAsset(network)
	if err != nil {
		return nil, errno.ErrParseFailure.Wrap(err)
	}

	draft := TxConfigDraft{
		Network:   network,
		From:      from,
		BaseAsset: baseAsset,
		Nonce:     nonce,
		GasPrice:  gasPrice,
		GasLimit:  gasLimit,
		Data:      data,
		Value:     value,
		ChainID:   int64(chainID),
		To:        to,
	}
	if acc, err := snap.Account(network.ID, from); err == nil {
		draft.SenderAccount = acc
	}

	if recipient, amount, isTransfer := decodeTransfer(data); isTransfer {
		token, err := snap.AssetByContract(network.ID, to)
		if err != nil {
			return nil, errno.ErrParseFailure.Wrap(fmt.Errorf("unknown token contract %s", to.Hex()))
		}
		draft.Asset = token
		draft.RecipientAddress = recipient
		draft.Amount = decimal.NewFromBigInt(amount, -token.Decimals)
	} else {
		draft.Asset = baseAsset
		draft.RecipientAddress = to
		draft.Amount = decimal.NewFromBigInt(value, -baseAsset.Decimals)
	}

	if intent == IntentCancel {
		// 取消 = 同 nonce、更高手续费、0 金额发给自己
		draft.Asset = baseAsset
		draft.Amount = decimal.Zero
		draft.Value = new(big.Int)
		draft.RecipientAddress = from
		draft.To = from
		draft.Data = nil
	}

	if draft.IsEmpty() {
		return nil, errno.ErrParseFailure.WithMessage("prefill resolved to an empty draft")
	}
	return &Prefill{Intent: intent, Draft: draft}, nil
}

func parseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// splitBase 0x 开头按十六进制，否则按十进制 (不接受八进制写法)
func splitBase(s string) (string, int) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:], 16
	}
	return s, 10
}

func parseUint(s string) (uint64, error) {
	digits, base := splitBase(s)
	return strconv.ParseUint(digits, base, 64)
}

func parseBig(s string) (*big.Int, error) {
	digits, base := splitBase(s)
	n, ok := new(big.Int).SetString(digits, base)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("not an unsigned integer: %q", s)
	}
	return n, nil
}

func ensure0x(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return "0x" + s[2:]
	}
	return "0x" + s
}
