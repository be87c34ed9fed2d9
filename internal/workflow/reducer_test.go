package workflow

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-send/pkg/errno"
)

func completeDraft(t *testing.T, f *fixture, from common.Address) State {
	t.Helper()
	s, err := Reduce(NewState(), FormSubmit{Form: f.form(from), Registry: f.snap}, Flags{})
	require.NoError(t, err)
	require.Equal(t, PhaseDraftComplete, s.Phase)
	return s
}

func signedState(t *testing.T, f *fixture) State {
	t.Helper()
	s := completeDraft(t, f, f.sender)
	s, err := Reduce(s, SignSuccess{Raw: f.sign(t, s.Draft), Registry: f.snap}, Flags{})
	require.NoError(t, err)
	return s
}

func TestReduce_SetTxConfig(t *testing.T) {
	f := newFixture(t)
	p, err := ParsePrefill(map[string]string{
		"type": "speedup", "from": f.sender.Hex(), "to": recipient.Hex(), "gasPrice": "20000000000",
		"gasLimit": "21000", "nonce": "5", "value": "1", "data": "0x", "chainId": "1",
	}, f.snap)
	require.NoError(t, err)

	s, err := Reduce(NewState(), SetTxConfig{Draft: p.Draft, Intent: p.Intent}, Flags{})
	require.NoError(t, err)
	assert.Equal(t, PhaseSeeded, s.Phase)
	assert.Equal(t, IntentSpeedUp, s.Intent)

	again, err := Reduce(s, SetTxConfig{Draft: TxConfigDraft{Nonce: 99}, Intent: IntentCancel}, Flags{})
	require.NoError(t, err)
	assert.Equal(t, s, again, "seeding twice must not overwrite the draft")
}

func TestReduce_SetTxConfigAfterFormSubmitIsNoop(t *testing.T) {
	f := newFixture(t)
	s := completeDraft(t, f, f.sender)
	seed := SetTxConfig{Draft: TxConfigDraft{Nonce: 1, ChainID: 1}, Intent: IntentSpeedUp}

	once, err := Reduce(s, seed, Flags{})
	require.NoError(t, err)
	twice, err := Reduce(once, seed, Flags{})
	require.NoError(t, err)

	assert.Equal(t, s, once)
	assert.Equal(t, s, twice)
}

func TestReduce_FormSubmit(t *testing.T) {
	f := newFixture(t)
	s := completeDraft(t, f, f.sender)

	d := s.Draft
	assert.Equal(t, f.sender, d.From)
	assert.Equal(t, recipient, d.To)
	assert.Equal(t, recipient, d.RecipientAddress)
	assert.Equal(t, uint64(5), d.Nonce)
	assert.Equal(t, uint64(21000), d.GasLimit)
	assert.Equal(t, int64(1), d.ChainID)
	assert.Equal(t, "10000000000", d.GasPrice.String())
	assert.Equal(t, "1000000000000000000", d.Value.String())
	assert.Equal(t, "eth", d.Asset.ID)
	require.NotNil(t, d.SenderAccount)
	assert.True(t, d.ReadyToSign())
}

func TestReduce_FormSubmitToken(t *testing.T) {
	f := newFixture(t)
	form := f.form(f.sender)
	form.Asset = "usdc"
	form.Value = "12.5"

	s, err := Reduce(NewState(), FormSubmit{Form: form, Registry: f.snap}, Flags{})
	require.NoError(t, err)

	assert.Equal(t, usdcContract, s.Draft.To)
	assert.Equal(t, recipient, s.Draft.RecipientAddress)
	assert.Equal(t, int64(0), s.Draft.Value.Int64())
	to, amount, ok := decodeTransfer(s.Draft.Data)
	require.True(t, ok)
	assert.Equal(t, recipient, to)
	assert.Equal(t, big.NewInt(12_500_000), amount)
}

func TestReduce_FormSubmitValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		modify func(*FormValues)
	}{
		{"too many decimals", func(v *FormValues) { v.Asset = "usdc"; v.Value = "1.0000001" }},
		{"insufficient balance", func(v *FormValues) { v.Value = "10" }},
		{"insufficient token balance", func(v *FormValues) { v.Asset = "usdc"; v.Value = "101" }},
		{"bad recipient", func(v *FormValues) { v.To = "0xabc" }},
		{"missing gas limit", func(v *FormValues) { v.GasLimit = "" }},
		{"sub wei gas price", func(v *FormValues) { v.GasPrice = "0.0000000001" }},
		{"unknown sender", func(v *FormValues) { v.From = common.HexToAddress("0x1234").Hex() }},
		{"unknown asset", func(v *FormValues) { v.Asset = "doge" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := f.form(f.sender)
			tt.modify(&form)
			s, err := Reduce(NewState(), FormSubmit{Form: form, Registry: f.snap}, Flags{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, errno.ErrValidation), "got %v", err)
			assert.Equal(t, PhaseEmpty, s.Phase, "workflow stays put on validation failure")
		})
	}
}

func TestReduce_FormSubmitNonceCompensation(t *testing.T) {
	f := newFixture(t)
	form := FormSubmit{Form: f.form(f.sender), Registry: f.snap}

	s, err := Reduce(NewState(), form, Flags{ProtectActive: true})
	require.NoError(t, err)
	assert.Equal(t, uint64(6), s.Draft.Nonce)

	s, err = Reduce(NewState(), form, Flags{ProtectActive: true, ProtectExempt: true})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), s.Draft.Nonce)
}

func TestReduce_SenderImmutable(t *testing.T) {
	f := newFixture(t)
	s := completeDraft(t, f, f.sender)

	_, err := Reduce(s, FormSubmit{Form: f.form(f.web3), Registry: f.snap}, Flags{})
	assert.ErrorIs(t, err, errno.ErrSenderImmutable)

	other, err := crypto.GenerateKey()
	require.NoError(t, err)
	_, err = Reduce(s, SignSuccess{Raw: signWith(t, other, s.Draft), Registry: f.snap}, Flags{})
	assert.ErrorIs(t, err, errno.ErrSenderImmutable)
}

func TestReduce_SignSuccess(t *testing.T) {
	f := newFixture(t)
	s := signedState(t, f)

	assert.Equal(t, PhaseSigned, s.Phase)
	require.NotNil(t, s.Signed)
	assert.False(t, s.Signed.Sent)
	assert.Equal(t, f.sender, s.Signed.From)
	assert.Nil(t, s.Receipt)

	_, err := Reduce(s, FormSubmit{Form: f.form(f.sender), Registry: f.snap}, Flags{})
	assert.ErrorIs(t, err, errno.ErrDraftFrozen)
}

func TestReduce_SignSuccessMustMatchDraft(t *testing.T) {
	f := newFixture(t)
	s := completeDraft(t, f, f.sender)

	d := s.Draft.clone()
	d.Nonce = 9
	_, err := Reduce(s, SignSuccess{Raw: f.sign(t, d), Registry: f.snap}, Flags{})
	assert.ErrorIs(t, err, errno.ErrValidation)

	_, err = Reduce(s, SignSuccess{Raw: []byte{0x01, 0x02}, Registry: f.snap}, Flags{})
	assert.ErrorIs(t, err, errno.ErrValidation)
}

func TestReduce_SignSuccessResolvesUnknownSender(t *testing.T) {
	f := newFixture(t)
	s := completeDraft(t, f, f.sender)
	// 模拟预填充时发送地址未知
	s.Draft.SenderAccount = nil
	s.Draft.From = common.Address{}

	next, err := Reduce(s, SignSuccess{Raw: f.sign(t, s.Draft), Registry: f.snap}, Flags{})
	require.NoError(t, err)
	require.NotNil(t, next.Draft.SenderAccount)
	assert.Equal(t, f.sender, next.Draft.SenderAccount.Address)
	assert.Equal(t, f.sender, next.Draft.From)
}

func TestReduce_SendLifecycle(t *testing.T) {
	f := newFixture(t)
	s := signedState(t, f)

	_, err := Reduce(s, SendSuccess{Receipt: TxReceipt{Hash: s.Signed.Hash}}, Flags{})
	assert.ErrorIs(t, err, errno.ErrStateMismatch, "receipt before send is rejected")

	s, err = Reduce(s, RequestSend{}, Flags{})
	require.NoError(t, err)
	assert.Equal(t, PhaseSendRequested, s.Phase)

	_, err = Reduce(s, RequestSend{}, Flags{})
	assert.ErrorIs(t, err, errno.ErrStateMismatch, "duplicate request send")

	s, err = Reduce(s, BroadcastStarted{}, Flags{})
	require.NoError(t, err)
	assert.Equal(t, PhaseAwaitingReceipt, s.Phase)

	_, err = Reduce(s, RequestSend{}, Flags{})
	assert.ErrorIs(t, err, errno.ErrStateMismatch)

	s, err = Reduce(s, SendSuccess{Receipt: TxReceipt{Hash: s.Signed.Hash}}, Flags{})
	require.NoError(t, err)
	assert.Equal(t, PhaseComplete, s.Phase)
	require.NotNil(t, s.Receipt)
	assert.Equal(t, f.sender, s.Receipt.From)
	assert.Equal(t, recipient, s.Receipt.To)
	assert.Equal(t, uint64(5), s.Receipt.Nonce)
	assert.True(t, decimal.RequireFromString("1").Equal(s.Receipt.Amount))
	assert.Equal(t, TxStatusPending, s.Receipt.Status)
	assert.True(t, s.Signed.Sent)
}

func TestReduce_SendFailureKeepsArtifact(t *testing.T) {
	f := newFixture(t)
	s := signedState(t, f)
	hash := s.Signed.Hash

	s, _ = Reduce(s, RequestSend{}, Flags{})
	s, _ = Reduce(s, BroadcastStarted{}, Flags{})
	s, err := Reduce(s, SendFailure{Err: errno.ErrBroadcast}, Flags{})
	require.NoError(t, err)

	assert.Equal(t, PhaseSigned, s.Phase)
	require.NotNil(t, s.Signed)
	assert.Equal(t, hash, s.Signed.Hash)
	assert.NotEmpty(t, s.LastError)

	_, err = Reduce(s, RequestSend{}, Flags{})
	assert.NoError(t, err, "retry without re-signing")
}

func TestReduce_Web3SignSuccess(t *testing.T) {
	f := newFixture(t)
	hash := common.HexToHash("0xdeadbeef")

	t.Run("hash only", func(t *testing.T) {
		s := completeDraft(t, f, f.web3)
		s, err := Reduce(s, Web3SignSuccess{Hash: hash}, Flags{})
		require.NoError(t, err)
		assert.Equal(t, PhaseAwaitingReceipt, s.Phase)
		assert.True(t, s.Signed.Sent)
		assert.Nil(t, s.Receipt)
	})

	t.Run("receipt", func(t *testing.T) {
		s := completeDraft(t, f, f.web3)
		s, err := Reduce(s, Web3SignSuccess{Receipt: &TxReceipt{Hash: hash, Status: TxStatusSuccess}}, Flags{})
		require.NoError(t, err)
		assert.Equal(t, PhaseComplete, s.Phase)
		require.NotNil(t, s.Receipt)
		assert.Equal(t, hash, s.Receipt.Hash)
		assert.Equal(t, f.web3, s.Receipt.From)
	})

	t.Run("nothing", func(t *testing.T) {
		s := completeDraft(t, f, f.web3)
		_, err := Reduce(s, Web3SignSuccess{}, Flags{})
		assert.ErrorIs(t, err, errno.ErrValidation)
	})

	t.Run("self contained account", func(t *testing.T) {
		s := completeDraft(t, f, f.sender)
		_, err := Reduce(s, Web3SignSuccess{Hash: hash}, Flags{})
		assert.ErrorIs(t, err, errno.ErrStateMismatch)
	})
}

func TestReduce_SignFailure(t *testing.T) {
	f := newFixture(t)
	s := completeDraft(t, f, f.web3)

	next, err := Reduce(s, SignFailure{Err: errors.New("user rejected")}, Flags{})
	require.NoError(t, err)
	assert.Equal(t, PhaseDraftComplete, next.Phase)
	assert.Nil(t, next.Signed)
	assert.Equal(t, "user rejected", next.LastError)
}

func TestReduce_UnknownAction(t *testing.T) {
	s := NewState()
	next, err := Reduce(s, bogusEvent{}, Flags{})
	assert.ErrorIs(t, err, errno.ErrUnknownAction)
	assert.Equal(t, s, next)

	_, err = Reduce(s, nil, Flags{})
	assert.ErrorIs(t, err, errno.ErrUnknownAction)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	f := newFixture(t)
	s := completeDraft(t, f, f.sender)
	price := new(big.Int).Set(s.Draft.GasPrice)

	next, err := Reduce(s, SignSuccess{Raw: f.sign(t, s.Draft), Registry: f.snap}, Flags{})
	require.NoError(t, err)
	next.Draft.GasPrice.SetInt64(1)

	assert.Equal(t, PhaseDraftComplete, s.Phase)
	assert.Nil(t, s.Signed)
	assert.Equal(t, price, s.Draft.GasPrice)
}
