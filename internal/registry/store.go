package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"wallet-send/internal/model"
	"wallet-send/pkg/cache"
	"wallet-send/pkg/config"
	"wallet-send/pkg/errno"
	"wallet-send/pkg/logger"
)

const snapshotKey = "registry:snapshot"

// Store 组装 Snapshot: 网络与资产来自配置，账户来自配置 + 数据库，结果放在多级缓存里
type Store struct {
	db       *gorm.DB
	cache    cache.Cache
	ttl      time.Duration
	networks []Network
	assets   []Asset
	static   []Account
}

// NewStore db 与 cache 都可以为 nil (CLI 单机模式)
func NewStore(db *gorm.DB, c cache.Cache, networks []Network, assets []Asset, static []Account) *Store {
	return &Store{
		db:       db,
		cache:    c,
		ttl:      30 * time.Second,
		networks: networks,
		assets:   assets,
		static:   static,
	}
}

// Snapshot 返回当前清单
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	if s.cache == nil {
		return s.load(ctx)
	}

	var snap Snapshot
	err := cache.Remember(ctx, s.cache, snapshotKey, s.ttl, &snap, func(ctx context.Context) (interface{}, error) {
		return s.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Invalidate 账户或余额变化后调用
func (s *Store) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, snapshotKey); err != nil {
		logger.Warn("registry cache invalidate failed", zap.Error(err))
	}
}

func (s *Store) load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Networks: s.networks,
		Assets:   s.assets,
		Accounts: append([]Account(nil), s.static...),
	}
	if s.db == nil {
		return snap, nil
	}

	var rows []model.Account
	if err := s.db.WithContext(ctx).Preload("Balances").Find(&rows).Error; err != nil {
		return nil, errno.ErrDatabase.Wrap(err)
	}
	for _, row := range rows {
		acc, err := accountFromModel(row)
		if err != nil {
			logger.Warn("skip malformed account row", zap.Uint64("id", row.ID), zap.Error(err))
			continue
		}
		snap.Accounts = append(snap.Accounts, acc)
	}
	return snap, nil
}

func accountFromModel(row model.Account) (Account, error) {
	if !common.IsHexAddress(row.Address) {
		return Account{}, fmt.Errorf("invalid address %q", row.Address)
	}
	acc := Account{
		Address:        common.HexToAddress(row.Address),
		NetworkID:      row.Network,
		Label:          row.Label,
		WalletType:     WalletType(strings.ToUpper(row.WalletType)),
		DerivationPath: row.DerivationPath,
	}
	if len(row.Balances) > 0 {
		acc.Balances = make(map[string]decimal.Decimal, len(row.Balances))
		for _, b := range row.Balances {
			acc.Balances[b.AssetID] = b.Balance
		}
	}
	return acc, nil
}

// FromConfig 把配置里的清单转换为注册表对象
func FromConfig(cfg config.Config) ([]Network, []Asset, []Account, error) {
	networks := make([]Network, 0, len(cfg.Networks))
	for _, n := range cfg.Networks {
		if n.ID == "" || n.ChainID == 0 {
			return nil, nil, nil, fmt.Errorf("network %q: id and chain_id are required", n.Name)
		}
		networks = append(networks, Network{
			ID:          n.ID,
			Name:        n.Name,
			ChainID:     n.ChainID,
			RpcURL:      n.RpcUrl,
			BaseAssetID: n.BaseAsset,
		})
	}

	assets := make([]Asset, 0, len(cfg.Assets))
	for _, a := range cfg.Assets {
		asset := Asset{ID: a.ID, Symbol: a.Symbol, NetworkID: a.Network, Decimals: a.Decimals}
		if a.Contract != "" {
			if !common.IsHexAddress(a.Contract) {
				return nil, nil, nil, fmt.Errorf("asset %s: invalid contract %q", a.ID, a.Contract)
			}
			asset.Contract = common.HexToAddress(a.Contract)
		}
		assets = append(assets, asset)
	}

	accounts := make([]Account, 0, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		if !common.IsHexAddress(a.Address) {
			return nil, nil, nil, fmt.Errorf("account %q: invalid address", a.Address)
		}
		wt := WalletType(strings.ToUpper(a.WalletType))
		if wt == "" {
			wt = WalletLocal
		}
		accounts = append(accounts, Account{
			Address:    common.HexToAddress(a.Address),
			NetworkID:  a.Network,
			Label:      a.Label,
			WalletType: wt,
		})
	}
	return networks, assets, accounts, nil
}
