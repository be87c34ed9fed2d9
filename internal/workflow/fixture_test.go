package workflow

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"wallet-send/internal/registry"
)

var (
	usdcContract = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	recipient    = common.HexToAddress("0x00000000000000000000000000000000000000aB")
)

type fixture struct {
	key    *ecdsa.PrivateKey
	sender common.Address
	web3   common.Address
	snap   *registry.Snapshot
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	web3Key, err := crypto.GenerateKey()
	require.NoError(t, err)

	f := &fixture{
		key:    key,
		sender: crypto.PubkeyToAddress(key.PublicKey),
		web3:   crypto.PubkeyToAddress(web3Key.PublicKey),
	}
	f.snap = &registry.Snapshot{
		Networks: []registry.Network{{ID: "ethereum", Name: "Ethereum", ChainID: 1, BaseAssetID: "eth"}},
		Assets: []registry.Asset{
			{ID: "eth", Symbol: "ETH", NetworkID: "ethereum", Decimals: 18},
			{ID: "usdc", Symbol: "USDC", NetworkID: "ethereum", Decimals: 6, Contract: usdcContract},
		},
		Accounts: []registry.Account{
			{
				Address:    f.sender,
				NetworkID:  "ethereum",
				Label:      "main",
				WalletType: registry.WalletLocal,
				Balances: map[string]decimal.Decimal{
					"eth":  decimal.RequireFromString("10"),
					"usdc": decimal.RequireFromString("100"),
				},
			},
			{Address: f.web3, NetworkID: "ethereum", Label: "browser", WalletType: registry.WalletWeb3},
		},
	}
	return f
}

func (f *fixture) form(from common.Address) FormValues {
	return FormValues{
		From:     from.Hex(),
		Network:  "ethereum",
		To:       recipient.Hex(),
		Value:    "1",
		GasPrice: "10",
		GasLimit: "21000",
		Nonce:    "5",
	}
}

// sign 用 fixture 的私钥对草稿签名，返回可广播的原始交易
func (f *fixture) sign(t *testing.T, d TxConfigDraft) []byte {
	return signWith(t, f.key, d)
}

func signWith(t *testing.T, key *ecdsa.PrivateKey, d TxConfigDraft) []byte {
	t.Helper()
	tx, err := ethtypes.SignTx(d.UnsignedTx(), ethtypes.LatestSignerForChainID(big.NewInt(d.ChainID)), key)
	require.NoError(t, err)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return raw
}

type fakeDispatcher struct {
	mu      sync.Mutex
	calls   int
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (d *fakeDispatcher) Send(_ context.Context, _ *registry.Network, a SignedArtifact) (TxReceipt, error) {
	d.mu.Lock()
	d.calls++
	err := d.err
	d.mu.Unlock()

	if d.entered != nil {
		d.entered <- struct{}{}
	}
	if d.block != nil {
		<-d.block
	}
	if err != nil {
		return TxReceipt{}, err
	}
	return TxReceipt{Hash: a.Hash, Status: TxStatusPending}, nil
}

func (d *fakeDispatcher) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *fakeDispatcher) SetErr(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
}

type historyCall struct {
	account *registry.Account
	receipt TxReceipt
}

type fakeHistory struct {
	mu    sync.Mutex
	calls []historyCall
	// failures 前 n 次写入返回错误
	failures int
}

func (h *fakeHistory) AddTransaction(_ context.Context, account *registry.Account, receipt TxReceipt) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, historyCall{account: account, receipt: receipt})
	if h.failures > 0 {
		h.failures--
		return errors.New("database unavailable")
	}
	return nil
}

func (h *fakeHistory) Calls() []historyCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]historyCall(nil), h.calls...)
}

type signerFunc func(ctx context.Context, d TxConfigDraft) (Event, error)

func (f signerFunc) Sign(ctx context.Context, d TxConfigDraft) (Event, error) { return f(ctx, d) }

type bogusEvent struct{}

func (bogusEvent) Kind() string { return "BOGUS" }
