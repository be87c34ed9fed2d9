package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"wallet-send/internal/workflow"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "生成待签名交易文件 (Online)",
	Long:  `校验表单或重发链接，生成未签名交易 JSON，交给离线端用 sign 签名。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		s, err := draftSession(context.Background(), cmd, workflow.Options{})
		if err != nil {
			return err
		}
		st := s.State()
		if !st.Draft.ReadyToSign() {
			return fmt.Errorf("草稿不完整，当前步骤 %s", s.ActiveStep())
		}
		if c, _ := st.Draft.Capability(); c == workflow.SignAndSend {
			return fmt.Errorf("账户 %s 签名即广播，不能离线签名", st.Draft.From.Hex())
		}

		unsigned := unsignedFromDraft(st.Draft)
		if err := writeJSON(output, unsigned); err != nil {
			return err
		}
		fmt.Printf("意图: %s\n", st.Intent)
		fmt.Printf("手续费上限: %s wei\n", st.Draft.Fee())
		fmt.Printf("✅ 已保存到: %s\n", output)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
	addFormFlags(buildCmd)
	buildCmd.Flags().StringP("output", "o", "unsigned.json", "输出文件")
}
