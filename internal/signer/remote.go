package signer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"wallet-send/internal/workflow"
	"wallet-send/pkg/errno"
	"wallet-send/pkg/logger"
)

// SendTxArgs eth_sendTransaction 参数
type SendTxArgs struct {
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to"`
	Gas      hexutil.Uint64  `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Value    *hexutil.Big    `json:"value"`
	Nonce    hexutil.Uint64  `json:"nonce"`
	Data     hexutil.Bytes   `json:"data"`
	ChainID  *hexutil.Big    `json:"chainId,omitempty"`
}

// RemoteSigner 签名即广播: 节点 / 托管钱包持有私钥，eth_sendTransaction 一步完成签名与发送
type RemoteSigner struct {
	client *rpc.Client
}

func NewRemoteSigner(client *rpc.Client) *RemoteSigner {
	return &RemoteSigner{client: client}
}

// DialRemote 连接签名节点
func DialRemote(ctx context.Context, url string) (*RemoteSigner, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errno.ErrSignerUnavailable.Wrap(err)
	}
	return NewRemoteSigner(c), nil
}

func (s *RemoteSigner) Close() {
	s.client.Close()
}

func argsFromDraft(d workflow.TxConfigDraft) SendTxArgs {
	to := d.To
	value := d.Value
	if value == nil {
		value = new(big.Int)
	}
	args := SendTxArgs{
		From:    d.From,
		To:      &to,
		Gas:     hexutil.Uint64(d.GasLimit),
		Value:   (*hexutil.Big)(new(big.Int).Set(value)),
		Nonce:   hexutil.Uint64(d.Nonce),
		Data:    d.Data,
		ChainID: (*hexutil.Big)(big.NewInt(d.ChainID)),
	}
	if d.GasPrice != nil {
		args.GasPrice = (*hexutil.Big)(new(big.Int).Set(d.GasPrice))
	}
	return args
}

// Sign 实现 workflow.Signer，返回的事件只带交易 hash
func (s *RemoteSigner) Sign(ctx context.Context, d workflow.TxConfigDraft) (workflow.Event, error) {
	var hash common.Hash
	if err := s.client.CallContext(ctx, &hash, "eth_sendTransaction", argsFromDraft(d)); err != nil {
		logger.Warn("eth_sendTransaction failed", zap.String("from", d.From.Hex()), zap.Error(err))
		return nil, errno.ErrSignerUnavailable.Wrap(err)
	}
	logger.Info("transaction signed and sent by remote signer",
		zap.String("from", d.From.Hex()),
		zap.String("hash", hash.Hex()))
	return workflow.Web3SignSuccess{Hash: hash}, nil
}
