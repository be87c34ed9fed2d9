package cmd

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"wallet-send/internal/workflow"
)

var prefillCmd = &cobra.Command{
	Use:   "prefill [query]",
	Short: "解析加速 / 取消链接的查询参数",
	Long: `例如:
  send-cli prefill "type=SPEEDUP&from=0x..&to=0x..&value=0x0&gasPrice=0x3b9aca00&gasLimit=21000&nonce=3&data=0x&chainId=1"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot()
		if err != nil {
			return err
		}
		values, err := url.ParseQuery(strings.TrimPrefix(args[0], "?"))
		if err != nil {
			return fmt.Errorf("invalid query: %w", err)
		}

		prefill, err := workflow.ParsePrefill(workflow.QueryParams(values), snap)
		if err != nil {
			return err
		}
		if prefill == nil {
			fmt.Println("没有 type 参数，按普通发送处理")
			return nil
		}
		capability, _ := prefill.Draft.Capability()
		return printJSON(map[string]interface{}{
			"intent": prefill.Intent,
			"draft":  prefill.Draft,
			"path":   workflow.Compose(capability, prefill.Intent),
		})
	},
}

func init() {
	rootCmd.AddCommand(prefillCmd)
}
