package workflow

import (
	"math/big"
	"net/url"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-send/pkg/errno"
)

func resubmitParams(f *fixture, kind string) map[string]string {
	return map[string]string{
		"type":     kind,
		"from":     f.sender.Hex(),
		"to":       recipient.Hex(),
		"gasPrice": "20000000000",
		"gasLimit": "21000",
		"nonce":    "5",
		"value":    "1000000000000000000",
		"data":     "0xcafe",
		"chainId":  "1",
	}
}

func TestParsePrefill_FreshSend(t *testing.T) {
	f := newFixture(t)
	for _, params := range []map[string]string{
		nil,
		{},
		{"to": recipient.Hex(), "value": "1"},
		{"type": "transfer", "to": recipient.Hex()},
	} {
		p, err := ParsePrefill(params, f.snap)
		assert.NoError(t, err)
		assert.Nil(t, p)
	}
}

func TestParsePrefill_SpeedUp(t *testing.T) {
	f := newFixture(t)
	p, err := ParsePrefill(resubmitParams(f, "speedup"), f.snap)
	require.NoError(t, err)
	require.NotNil(t, p)

	d := p.Draft
	assert.Equal(t, IntentSpeedUp, p.Intent)
	assert.Equal(t, recipient, d.To)
	assert.Equal(t, hexutil.Bytes{0xca, 0xfe}, d.Data)
	assert.Equal(t, int64(1), d.ChainID)
	assert.Equal(t, f.sender, d.From)
	require.NotNil(t, d.SenderAccount)
	assert.Equal(t, f.sender, d.SenderAccount.Address)
	assert.Equal(t, "20000000000", d.GasPrice.String())
	assert.Equal(t, uint64(21000), d.GasLimit)
	assert.Equal(t, uint64(5), d.Nonce)
	assert.Equal(t, "1", d.Amount.String())
	assert.Equal(t, "eth", d.Asset.ID)
	assert.True(t, d.ReadyToSign())
}

func TestParsePrefill_Cancel(t *testing.T) {
	f := newFixture(t)
	p, err := ParsePrefill(resubmitParams(f, "cancel"), f.snap)
	require.NoError(t, err)

	d := p.Draft
	assert.Equal(t, IntentCancel, p.Intent)
	assert.True(t, d.Amount.IsZero())
	assert.Equal(t, int64(0), d.Value.Int64())
	assert.Equal(t, f.sender, d.To)
	assert.Equal(t, f.sender, d.RecipientAddress)
	assert.Empty(t, d.Data)
	assert.Equal(t, uint64(5), d.Nonce, "cancel reuses the nonce")
}

func TestParsePrefill_HexNumbers(t *testing.T) {
	f := newFixture(t)
	params := resubmitParams(f, "speedup")
	params["gasPrice"] = "0x4a817c800"
	params["nonce"] = "0x5"
	params["chainId"] = "0x1"
	params["value"] = "010"

	p, err := ParsePrefill(params, f.snap)
	require.NoError(t, err)
	assert.Equal(t, "20000000000", p.Draft.GasPrice.String())
	assert.Equal(t, uint64(5), p.Draft.Nonce)
	assert.Equal(t, "10", p.Draft.Value.String(), "leading zeros are decimal, not octal")
}

func TestParsePrefill_Failures(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name   string
		modify func(map[string]string)
	}{
		{"missing gasPrice", func(p map[string]string) { delete(p, "gasPrice") }},
		{"missing data", func(p map[string]string) { p["data"] = "" }},
		{"bad address", func(p map[string]string) { p["to"] = "0xabc" }},
		{"bad nonce", func(p map[string]string) { p["nonce"] = "five" }},
		{"zero gas limit", func(p map[string]string) { p["gasLimit"] = "0" }},
		{"unknown chain", func(p map[string]string) { p["chainId"] = "56" }},
		{"bad data", func(p map[string]string) { p["data"] = "0xzz" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := resubmitParams(f, "speedup")
			tt.modify(params)
			p, err := ParsePrefill(params, f.snap)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, errno.ErrParseFailure)
		})
	}
}

func TestParsePrefill_UnknownSender(t *testing.T) {
	f := newFixture(t)
	params := resubmitParams(f, "speedup")
	params["from"] = common.HexToAddress("0x1234").Hex()

	p, err := ParsePrefill(params, f.snap)
	require.NoError(t, err)
	assert.Nil(t, p.Draft.SenderAccount)
	_, known := p.Draft.Capability()
	assert.False(t, known)
}

func TestParsePrefill_TokenTransfer(t *testing.T) {
	f := newFixture(t)
	data, err := encodeTransfer(recipient, big.NewInt(2_500_000))
	require.NoError(t, err)

	params := resubmitParams(f, "speedup")
	params["to"] = usdcContract.Hex()
	params["value"] = "0"
	params["data"] = hexutil.Encode(data)

	p, err := ParsePrefill(params, f.snap)
	require.NoError(t, err)
	assert.Equal(t, "usdc", p.Draft.Asset.ID)
	assert.Equal(t, recipient, p.Draft.RecipientAddress)
	assert.Equal(t, "2.5", p.Draft.Amount.String())
	assert.Equal(t, usdcContract, p.Draft.To)

	params["to"] = common.HexToAddress("0x9999").Hex()
	_, err = ParsePrefill(params, f.snap)
	assert.ErrorIs(t, err, errno.ErrParseFailure, "transfer calldata to an unknown contract")
}

func TestQueryParams(t *testing.T) {
	q, err := url.ParseQuery("type=speedup&nonce=5&nonce=6&to=")
	require.NoError(t, err)
	params := QueryParams(q)
	assert.Equal(t, "speedup", params["type"])
	assert.Equal(t, "5", params["nonce"])
	assert.Equal(t, "", params["to"])
}
