package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-send/pkg/cache"
	"wallet-send/pkg/config"
	"wallet-send/pkg/errno"
)

var usdcContract = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

func testConfig() config.Config {
	return config.Config{
		Networks: []config.NetworkConfig{{ID: "ethereum", Name: "Ethereum", ChainID: 1, BaseAsset: "eth"}},
		Assets: []config.AssetConfig{
			{ID: "eth", Symbol: "ETH", Network: "ethereum", Decimals: 18},
			{ID: "usdc", Symbol: "USDC", Network: "ethereum", Decimals: 6, Contract: usdcContract.Hex()},
		},
		Accounts: []config.AccountConfig{
			{Address: "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", Network: "ethereum", Label: "hot", WalletType: "local"},
			{Address: "0x52908400098527886E0F7030069857D2E4169EE7", Network: "ethereum", Label: "web3", WalletType: "WEB3"},
		},
	}
}

func TestFromConfigAndLookups(t *testing.T) {
	networks, assets, accounts, err := FromConfig(testConfig())
	require.NoError(t, err)
	snap := &Snapshot{Networks: networks, Assets: assets, Accounts: accounts}

	n, err := snap.NetworkByChainID(1)
	require.NoError(t, err)
	assert.Equal(t, "ethereum", n.ID)

	base, err := snap.BaseAsset(n)
	require.NoError(t, err)
	assert.False(t, base.IsToken())

	usdc, err := snap.AssetByContract("ethereum", usdcContract)
	require.NoError(t, err)
	assert.Equal(t, int32(6), usdc.Decimals)

	acc, err := snap.Account("Ethereum", common.HexToAddress("0x9858effd232b4033e47d90003d41ec34ecaeda94"))
	require.NoError(t, err)
	assert.Equal(t, WalletLocal, acc.WalletType)

	_, err = snap.NetworkByChainID(5)
	assert.True(t, errors.Is(err, errno.ErrNetworkNotFound))
	_, err = snap.Account("ethereum", common.Address{})
	assert.True(t, errors.Is(err, errno.ErrAccountNotFound))
}

func TestFromConfigRejectsBadAddress(t *testing.T) {
	cfg := testConfig()
	cfg.Accounts = append(cfg.Accounts, config.AccountConfig{Address: "0xnope", Network: "ethereum"})
	_, _, _, err := FromConfig(cfg)
	assert.Error(t, err)
}

func TestAccountBalance(t *testing.T) {
	acc := Account{}
	_, known := acc.Balance("eth")
	assert.False(t, known)

	acc.Balances = map[string]decimal.Decimal{"eth": decimal.RequireFromString("1.5")}
	b, known := acc.Balance("eth")
	assert.True(t, known)
	assert.True(t, b.Equal(decimal.RequireFromString("1.5")))
}

func TestStoreSnapshotCached(t *testing.T) {
	networks, assets, accounts, err := FromConfig(testConfig())
	require.NoError(t, err)

	ctx := context.Background()
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	store := NewStore(nil, c, networks, assets, accounts)

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Accounts, 2)

	// 缓存里的副本能完整还原合约地址与钱包类型
	again, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, again)

	store.Invalidate(ctx)
	var miss Snapshot
	assert.ErrorIs(t, c.Get(ctx, snapshotKey, &miss), cache.ErrMiss)
}
