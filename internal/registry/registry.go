package registry

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"wallet-send/pkg/errno"
)

// WalletType 账户背后的签名方式
type WalletType string

const (
	WalletLocal     WalletType = "LOCAL"     // 本地 keystore / HD
	WalletHardware  WalletType = "HARDWARE"  // 硬件钱包，返回离线签名
	WalletWeb3      WalletType = "WEB3"      // 浏览器注入钱包，签名即广播
	WalletCustodial WalletType = "CUSTODIAL" // 托管节点 eth_sendTransaction
)

type Network struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ChainID     int64  `json:"chain_id"`
	RpcURL      string `json:"rpc_url"`
	BaseAssetID string `json:"base_asset"`
}

type Asset struct {
	ID        string         `json:"id"`
	Symbol    string         `json:"symbol"`
	NetworkID string         `json:"network"`
	Decimals  int32          `json:"decimals"`
	Contract  common.Address `json:"contract"` // 原生币为零地址
}

// IsToken ERC-20 资产
func (a *Asset) IsToken() bool {
	return a.Contract != (common.Address{})
}

type Account struct {
	Address        common.Address             `json:"address"`
	NetworkID      string                     `json:"network"`
	Label          string                     `json:"label"`
	WalletType     WalletType                 `json:"wallet_type"`
	DerivationPath string                     `json:"derivation_path,omitempty"`
	Balances       map[string]decimal.Decimal `json:"balances,omitempty"` // assetID -> 余额 (展示单位)
}

// Balance 返回余额，known=false 表示没有这份资产的余额数据
func (a *Account) Balance(assetID string) (decimal.Decimal, bool) {
	if a.Balances == nil {
		return decimal.Zero, false
	}
	b, ok := a.Balances[assetID]
	return b, ok
}

// Snapshot 某一时刻的网络/资产/账户清单，工作流只读
type Snapshot struct {
	Networks []Network `json:"networks"`
	Assets   []Asset   `json:"assets"`
	Accounts []Account `json:"accounts"`
}

func (s *Snapshot) Network(id string) (*Network, error) {
	for i := range s.Networks {
		if strings.EqualFold(s.Networks[i].ID, id) {
			return &s.Networks[i], nil
		}
	}
	return nil, errno.ErrNetworkNotFound.WithMessage("network not found: " + id)
}

func (s *Snapshot) NetworkByChainID(chainID int64) (*Network, error) {
	for i := range s.Networks {
		if s.Networks[i].ChainID == chainID {
			return &s.Networks[i], nil
		}
	}
	return nil, errno.ErrNetworkNotFound
}

func (s *Snapshot) Asset(id string) (*Asset, error) {
	for i := range s.Assets {
		if strings.EqualFold(s.Assets[i].ID, id) {
			return &s.Assets[i], nil
		}
	}
	return nil, errno.ErrAssetNotFound.WithMessage("asset not found: " + id)
}

func (s *Snapshot) BaseAsset(n *Network) (*Asset, error) {
	return s.Asset(n.BaseAssetID)
}

func (s *Snapshot) AssetByContract(networkID string, contract common.Address) (*Asset, error) {
	for i := range s.Assets {
		a := &s.Assets[i]
		if a.IsToken() && a.Contract == contract && strings.EqualFold(a.NetworkID, networkID) {
			return a, nil
		}
	}
	return nil, errno.ErrAssetNotFound
}

func (s *Snapshot) Account(networkID string, addr common.Address) (*Account, error) {
	for i := range s.Accounts {
		a := &s.Accounts[i]
		if a.Address == addr && strings.EqualFold(a.NetworkID, networkID) {
			return a, nil
		}
	}
	return nil, errno.ErrAccountNotFound
}

// Source 提供当前清单，Store 是默认实现
type Source interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

type staticSource struct{ snap *Snapshot }

func (s staticSource) Snapshot(context.Context) (*Snapshot, error) { return s.snap, nil }

// Static 固定清单 (CLI、测试)
func Static(snap *Snapshot) Source {
	return staticSource{snap: snap}
}
