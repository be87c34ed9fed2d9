package event

// TopicTxBroadcast 交易广播成功后由 outbox 发出
const TopicTxBroadcast = "wallet_events_tx_broadcast"

// TxBroadcastEvent 交易已提交到网络
// Topic: wallet_events_tx_broadcast, Key: account address
type TxBroadcastEvent struct {
	HistoryID uint64 `json:"history_id"`
	Network   string `json:"network"`
	ChainID   int64  `json:"chain_id"`
	Account   string `json:"account"`
	TxHash    string `json:"tx_hash"`
	Intent    string `json:"intent"`
	SentAt    int64  `json:"sent_at"` // unix seconds
}
