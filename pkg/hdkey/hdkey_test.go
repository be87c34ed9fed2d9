package hdkey

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip39"
)

func TestDeriveKnownAddress(t *testing.T) {
	w, err := FromMnemonic("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", "")
	require.NoError(t, err)

	addr, err := w.DeriveAddress(DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", addr.Hex())
}

func TestFromMnemonicRejectsGarbage(t *testing.T) {
	_, err := FromMnemonic("not a real mnemonic", "")
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
}

func TestNewMnemonic(t *testing.T) {
	m, err := NewMnemonic(128)
	require.NoError(t, err)
	assert.True(t, bip39.IsMnemonicValid(m))
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		path    string
		want    []uint32
		wantErr bool
	}{
		{"m/44'/60'/0'/0/0", []uint32{44 + hdkeychain.HardenedKeyStart, 60 + hdkeychain.HardenedKeyStart, hdkeychain.HardenedKeyStart, 0, 0}, false},
		{"m/0h/1", []uint32{hdkeychain.HardenedKeyStart, 1}, false},
		{"44'/60'", nil, true},
		{"m/x", nil, true},
		{"m", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := ParsePath(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
