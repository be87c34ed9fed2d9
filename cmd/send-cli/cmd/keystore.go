package cmd

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"wallet-send/internal/signer"
	"wallet-send/pkg/config"
	"wallet-send/pkg/hdkey"
	"wallet-send/pkg/keystore"
)

var keystoreCmd = &cobra.Command{
	Use:   "keystore",
	Short: "管理本地签名器的 Keystore",
}

var keystoreInitCmd = &cobra.Command{
	Use:   "init",
	Short: "生成助记词并加密保存",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		show, _ := cmd.Flags().GetBool("show")

		mnemonic, err := hdkey.NewMnemonic(128)
		if err != nil {
			return fmt.Errorf("生成助记词失败: %w", err)
		}
		if err := saveSecret(output, keystore.KindMnemonic, mnemonic); err != nil {
			return err
		}
		if show {
			fmt.Println("\n---------------------------------------------------")
			fmt.Println("助记词 (请抄写在纸上并安全保管):")
			fmt.Println(mnemonic)
			fmt.Println("---------------------------------------------------")
		}
		return nil
	},
}

var keystoreImportCmd = &cobra.Command{
	Use:   "import",
	Short: "导入单个十六进制私钥",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		secret, err := readPassword("输入私钥 (hex): ")
		if err != nil {
			return err
		}
		if _, err := crypto.HexToECDSA(trimHexPrefix(secret)); err != nil {
			return fmt.Errorf("私钥格式错误: %w", err)
		}
		return saveSecret(output, keystore.KindPrivateKey, secret)
	},
}

func saveSecret(output, kind, secret string) error {
	if _, err := os.Stat(output); err == nil {
		return fmt.Errorf("文件 %s 已存在，请先删除或指定其他文件名", output)
	}

	password, err := readPassword("输入密码: ")
	if err != nil {
		return err
	}
	confirmPassword, err := readPassword("确认密码: ")
	if err != nil {
		return err
	}
	if password != confirmPassword {
		return fmt.Errorf("两次输入的密码不一致")
	}
	if len(password) < 6 {
		return fmt.Errorf("密码长度至少需要 6 位")
	}

	local, err := signer.FromSecret(kind, secret, config.Global.Signer.DerivationPath)
	if err != nil {
		return err
	}
	addr, err := local.Address("")
	if err != nil {
		return err
	}

	encrypted, err := keystore.Encrypt(kind, secret, password, keystore.StandardParams)
	if err != nil {
		return fmt.Errorf("加密失败: %w", err)
	}
	encrypted.Address = addr.Hex()
	if err := encrypted.SaveToFile(output); err != nil {
		return fmt.Errorf("保存文件失败: %w", err)
	}

	fmt.Printf("\n✅ Keystore 已保存: %s\n", output)
	fmt.Printf("地址: %s\n", addr.Hex())
	fmt.Println("⚠️  请务必记住您的密码！如果丢失密码，您将无法恢复钱包。")
	return nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}

func init() {
	rootCmd.AddCommand(keystoreCmd)
	keystoreCmd.AddCommand(keystoreInitCmd, keystoreImportCmd)
	keystoreInitCmd.Flags().StringP("output", "o", "wallet.json", "输出的 Keystore 文件名")
	keystoreInitCmd.Flags().Bool("show", false, "保存后显示助记词以便备份")
	keystoreImportCmd.Flags().StringP("output", "o", "wallet.json", "输出的 Keystore 文件名")
}
