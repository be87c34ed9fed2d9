package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"wallet-send/internal/registry"
	"wallet-send/internal/workflow"
)

var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "按钱包类型与意图列出步骤",
	RunE: func(cmd *cobra.Command, args []string) error {
		walletType, _ := cmd.Flags().GetString("wallet-type")
		intent, _ := cmd.Flags().GetString("intent")

		capability := workflow.CapabilityOf(registry.WalletType(strings.ToUpper(walletType)))
		steps := workflow.Compose(capability, workflow.Intent(strings.ToUpper(intent)))
		fmt.Printf("%s / %s:\n", capability, strings.ToUpper(intent))
		for i, s := range steps {
			fmt.Printf("  %d. %s\n", i+1, s)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pathCmd)
	pathCmd.Flags().String("wallet-type", "LOCAL", "LOCAL / HARDWARE / WEB3 / CUSTODIAL")
	pathCmd.Flags().String("intent", "NORMAL", "NORMAL / SPEEDUP / CANCEL")
}
