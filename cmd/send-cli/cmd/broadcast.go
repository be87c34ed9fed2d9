package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wallet-send/internal/service/broadcaster"
	"wallet-send/internal/workflow"
	"wallet-send/pkg/wallet/types"
)

var broadcastCmd = &cobra.Command{
	Use:   "broadcast",
	Short: "广播已签名的交易 (Online)",
	Long:  `读取已签名的交易文件 (Signed Tx)，并广播到配置里的网络。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inputFile, _ := cmd.Flags().GetString("input")
		networkID, _ := cmd.Flags().GetString("network")
		rpcURL, _ := cmd.Flags().GetString("rpc")

		var signed types.SignedTransaction
		if err := readJSON(inputFile, &signed); err != nil {
			return err
		}
		raw, err := signed.Bytes()
		if err != nil {
			return err
		}

		snap, err := loadSnapshot()
		if err != nil {
			return err
		}
		network, err := snap.Network(networkID)
		if err != nil {
			return err
		}
		if rpcURL != "" {
			n := *network
			n.RpcURL = rpcURL
			network = &n
		}

		d := broadcaster.NewDispatcher()
		defer d.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		fmt.Printf("正在广播交易到 %s ...\n", network.ID)
		receipt, err := d.Send(ctx, network, workflow.SignedArtifact{Raw: raw})
		if err != nil {
			return fmt.Errorf("❌ 广播失败: %w", err)
		}

		fmt.Printf("✅ 广播成功!\n")
		fmt.Printf("TxHash: %s\n", receipt.Hash.Hex())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(broadcastCmd)
	broadcastCmd.Flags().StringP("input", "i", "signed.json", "已签名的交易文件")
	broadcastCmd.Flags().String("network", "ethereum", "网络 id")
	broadcastCmd.Flags().String("rpc", "", "覆盖配置里的 RPC 节点地址")
}
