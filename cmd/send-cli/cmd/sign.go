package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"wallet-send/pkg/wallet/types"
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "离线签名交易 (Offline Signing)",
	Long:  `读取未签名的交易 JSON 文件，使用 Keystore 进行签名，并输出已签名的交易 (Raw Tx)。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inputFile, _ := cmd.Flags().GetString("input")
		outputFile, _ := cmd.Flags().GetString("output")
		keystoreFile, _ := cmd.Flags().GetString("keystore")

		var unsigned types.UnsignedTransaction
		if err := readJSON(inputFile, &unsigned); err != nil {
			return err
		}

		// 显示交易详情供用户确认
		fmt.Println("\n================ 待签名交易 ================")
		fmt.Printf("Chain ID:   %d\n", unsigned.ChainID)
		fmt.Printf("From:       %s\n", unsigned.From)
		fmt.Printf("To:         %s\n", unsigned.To)
		fmt.Printf("Value:      %s wei\n", unsigned.Value)
		fmt.Printf("Nonce:      %d\n", unsigned.Nonce)
		fmt.Printf("GasPrice:   %s wei\n", unsigned.GasPrice)
		fmt.Printf("GasLimit:   %d\n", unsigned.GasLimit)
		fmt.Printf("Path:       %s\n", unsigned.DerivationPath)
		fmt.Println("============================================")

		local, err := loadLocalSigner(keystoreFile)
		if err != nil {
			return err
		}
		signed, err := local.SignUnsigned(unsigned)
		if err != nil {
			return fmt.Errorf("签名失败: %w", err)
		}
		if err := writeJSON(outputFile, signed); err != nil {
			return err
		}

		fmt.Printf("\n✅ 签名成功!\n")
		fmt.Printf("TxHash: %s\n", signed.TxHash)
		fmt.Printf("已保存到: %s\n", outputFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(signCmd)
	signCmd.Flags().StringP("input", "i", "unsigned.json", "未签名的交易文件路径")
	signCmd.Flags().StringP("output", "o", "signed.json", "签名后的输出文件路径")
	signCmd.Flags().StringP("keystore", "k", "wallet.json", "Keystore 文件路径")
}
