package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"wallet-send/internal/service/broadcaster"
	"wallet-send/internal/signer"
	"wallet-send/internal/workflow"
	"wallet-send/pkg/config"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "完整发送: 表单 -> 签名 -> 确认 -> 广播",
	RunE: func(cmd *cobra.Command, args []string) error {
		keystoreFile, _ := cmd.Flags().GetString("keystore")
		yes, _ := cmd.Flags().GetBool("yes")
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		d := broadcaster.NewDispatcher()
		defer d.Close()

		opts := workflow.Options{
			Dispatcher:       d,
			BroadcastTimeout: config.Global.Session.BroadcastTimeout,
		}
		if config.Global.Protect.Enabled {
			opts.Gate = workflow.NewProtectGate(config.Global.Protect.Delay)
		}
		s, err := draftSession(ctx, cmd, opts)
		if err != nil {
			return err
		}

		st := s.State()
		router := signer.Router{}
		if c, _ := st.Draft.Capability(); c == workflow.SignAndSend {
			if config.Global.Signer.RemoteRpcUrl == "" {
				return fmt.Errorf("signer.remote_rpc_url is required for %s", st.Draft.From.Hex())
			}
			remote, err := signer.DialRemote(ctx, config.Global.Signer.RemoteRpcUrl)
			if err != nil {
				return err
			}
			defer remote.Close()
			router.Remote = remote
		} else {
			local, err := loadLocalSigner(keystoreFile)
			if err != nil {
				return err
			}
			router.Local = local
		}
		sgn, err := router.For(st.Draft)
		if err != nil {
			return err
		}

		receipt, err := runSend(ctx, s, sgn, func() bool {
			return yes || confirm("确认发送? (y/N): ")
		}, 200*time.Millisecond)
		if errors.Is(err, errCancelled) {
			fmt.Println("已取消")
			return nil
		}
		if err != nil {
			return err
		}
		return printJSON(receipt)
	},
}

var errCancelled = errors.New("cancelled by user")

// runSend 按当前步骤推进会话直到出现回执。
// 发送保护等待或广播进行中时轮询 Busy，ctx 取消时放弃关卡中的发送。
func runSend(ctx context.Context, s *workflow.Session, sgn workflow.Signer, approve func() bool, poll time.Duration) (*workflow.TxReceipt, error) {
	for {
		step := s.ActiveStep()
		var err error
		switch step {
		case workflow.StepConfirmBeforeSign, workflow.StepConfirmAfterSign:
			printDraft(s)
			if !approve() {
				return nil, errCancelled
			}
			err = s.Act(ctx, step, nil)
		case workflow.StepSign:
			err = s.Act(ctx, step, sgn)
		case workflow.StepReceipt:
			return s.State().Receipt, nil
		default:
			return nil, fmt.Errorf("unexpected step %s", step)
		}
		if err != nil {
			return nil, err
		}
		if step != workflow.StepConfirmAfterSign {
			continue
		}

		if s.GatePending() {
			fmt.Printf("发送保护: %s 后发出，Ctrl+C 放弃\n", config.Global.Protect.Delay)
		}
		if err := waitIdle(ctx, s, poll); err != nil {
			return nil, err
		}
		if st := s.State(); st.Phase == workflow.PhaseSigned && st.LastError != "" {
			return nil, fmt.Errorf("广播失败: %s", st.LastError)
		}
	}
}

func waitIdle(ctx context.Context, s *workflow.Session, poll time.Duration) error {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for s.Busy() {
		select {
		case <-ctx.Done():
			if s.CancelSend() {
				fmt.Println("已放弃发送，交易已签名但未广播")
				return errCancelled
			}
			// 广播已经发出，等它结束
			ctx = context.Background()
		case <-ticker.C:
		}
	}
	return nil
}

func printDraft(s *workflow.Session) {
	d := s.State().Draft
	fmt.Println("\n================ 交易确认 ================")
	fmt.Printf("Intent:     %s\n", s.State().Intent)
	fmt.Printf("From:       %s\n", d.From.Hex())
	fmt.Printf("To:         %s\n", d.RecipientAddress.Hex())
	if d.Asset != nil {
		fmt.Printf("Amount:     %s %s\n", d.Amount, d.Asset.Symbol)
	}
	fmt.Printf("Nonce:      %d\n", d.Nonce)
	fmt.Printf("Max Fee:    %s wei\n", d.Fee())
	fmt.Println("==========================================")
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	input, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

func init() {
	rootCmd.AddCommand(sendCmd)
	addFormFlags(sendCmd)
	sendCmd.Flags().StringP("keystore", "k", "wallet.json", "Keystore 文件路径")
	sendCmd.Flags().BoolP("yes", "y", false, "跳过确认")
}
