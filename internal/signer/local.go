package signer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"wallet-send/internal/workflow"
	"wallet-send/pkg/errno"
	"wallet-send/pkg/hdkey"
	"wallet-send/pkg/keystore"
	"wallet-send/pkg/logger"
	"wallet-send/pkg/wallet/types"
)

// LocalSigner 独立签名器: 私钥在本进程内，签名结果交给工作流单独广播
type LocalSigner struct {
	wallet      *hdkey.Wallet
	key         *ecdsa.PrivateKey // 单私钥模式，忽略派生路径
	defaultPath string
}

// NewHDSigner 从 HD 钱包按账户的派生路径取私钥
func NewHDSigner(w *hdkey.Wallet, defaultPath string) *LocalSigner {
	if defaultPath == "" {
		defaultPath = hdkey.DefaultPath
	}
	return &LocalSigner{wallet: w, defaultPath: defaultPath}
}

// NewKeySigner 单私钥签名器
func NewKeySigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{key: key}
}

// Options 本地签名器的秘密来源
type Options struct {
	KeystorePath   string
	Password       string
	Mnemonic       string // 仅开发环境
	DerivationPath string
}

// Load 优先从 Keystore 加载，找不到文件时退回配置里的明文助记词
func Load(opts Options) (*LocalSigner, error) {
	if _, err := os.Stat(opts.KeystorePath); opts.KeystorePath != "" && err == nil {
		logger.Info("发现本地 Keystore 文件，尝试加载...", zap.String("path", opts.KeystorePath))
		if opts.Password == "" {
			return nil, errors.New("keystore password is required")
		}
		encrypted, err := keystore.LoadFromFile(opts.KeystorePath)
		if err != nil {
			return nil, err
		}
		secret, err := keystore.Decrypt(encrypted, opts.Password)
		if err != nil {
			return nil, fmt.Errorf("解密 Keystore 失败: %w", err)
		}
		return FromSecret(encrypted.Kind, secret, opts.DerivationPath)
	}

	if opts.Mnemonic != "" {
		logger.Warn("未找到 Keystore 文件，使用配置中的明文助记词 (仅限开发环境)")
		return FromSecret(keystore.KindMnemonic, opts.Mnemonic, opts.DerivationPath)
	}
	return nil, errno.ErrSignerUnavailable.WithMessage("未找到可用的私钥源 (Keystore 或 Mnemonic)")
}

// FromSecret 由解密后的秘密构造签名器
func FromSecret(kind, secret, defaultPath string) (*LocalSigner, error) {
	switch kind {
	case keystore.KindPrivateKey:
		key, err := crypto.HexToECDSA(trim0x(secret))
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		return NewKeySigner(key), nil
	case keystore.KindMnemonic:
		w, err := hdkey.FromMnemonic(secret, "")
		if err != nil {
			return nil, err
		}
		return NewHDSigner(w, defaultPath), nil
	}
	return nil, fmt.Errorf("unsupported secret kind %q", kind)
}

// PrivateKey 按路径取私钥，空路径使用默认路径
func (s *LocalSigner) PrivateKey(path string) (*ecdsa.PrivateKey, error) {
	if s.key != nil {
		return s.key, nil
	}
	if path == "" {
		path = s.defaultPath
	}
	return s.wallet.Derive(path)
}

// Address 路径对应的地址
func (s *LocalSigner) Address(path string) (common.Address, error) {
	key, err := s.PrivateKey(path)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

// SignTx EIP-155 签名
func (s *LocalSigner) SignTx(tx *ethtypes.Transaction, chainID int64, path string) (*ethtypes.Transaction, error) {
	key, err := s.PrivateKey(path)
	if err != nil {
		return nil, err
	}
	return ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(big.NewInt(chainID)), key)
}

// Sign 实现 workflow.Signer
func (s *LocalSigner) Sign(_ context.Context, d workflow.TxConfigDraft) (workflow.Event, error) {
	path := ""
	if d.SenderAccount != nil {
		path = d.SenderAccount.DerivationPath
	}
	addr, err := s.Address(path)
	if err != nil {
		return nil, errno.ErrSignerUnavailable.Wrap(err)
	}
	if d.From != (common.Address{}) && d.From != addr {
		return nil, errno.ErrSignerUnavailable.WithMessage(fmt.Sprintf("no local key for %s", d.From.Hex()))
	}

	signed, err := s.SignTx(d.UnsignedTx(), d.ChainID, path)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, err
	}
	logger.Info("transaction signed",
		zap.String("from", addr.Hex()),
		zap.Uint64("nonce", d.Nonce),
		zap.String("hash", signed.Hash().Hex()))
	return workflow.SignSuccess{Raw: raw}, nil
}

// SignUnsigned 离线签名文件
func (s *LocalSigner) SignUnsigned(u types.UnsignedTransaction) (*types.SignedTransaction, error) {
	tx, err := u.ToTransaction()
	if err != nil {
		return nil, err
	}
	if u.From != "" {
		addr, err := s.Address(u.DerivationPath)
		if err != nil {
			return nil, err
		}
		if !common.IsHexAddress(u.From) || common.HexToAddress(u.From) != addr {
			return nil, fmt.Errorf("key at %q is %s, not %s", u.DerivationPath, addr.Hex(), u.From)
		}
	}
	signed, err := s.SignTx(tx, u.ChainID, u.DerivationPath)
	if err != nil {
		return nil, err
	}
	return types.NewSignedTransaction(signed)
}

func trim0x(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
