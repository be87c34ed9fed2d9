package cmd

import (
	"context"
	"net/url"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"wallet-send/internal/registry"
	"wallet-send/internal/signer"
	"wallet-send/internal/workflow"
	"wallet-send/pkg/config"
	"wallet-send/pkg/wallet/types"
)

func addFormFlags(cmd *cobra.Command) {
	cmd.Flags().String("prefill", "", "加速 / 取消链接的查询参数")
	cmd.Flags().String("from", "", "发送账户")
	cmd.Flags().String("network", "", "网络 id")
	cmd.Flags().String("asset", "", "资产 id，默认网络原生币")
	cmd.Flags().String("to", "", "收款地址")
	cmd.Flags().String("value", "", "金额 (资产单位)")
	cmd.Flags().String("gas-price", "", "gas price (gwei)")
	cmd.Flags().String("gas-limit", "21000", "gas limit")
	cmd.Flags().String("nonce", "", "nonce")
	cmd.Flags().String("data", "", "calldata (仅原生币)")
}

func formFromFlags(cmd *cobra.Command) workflow.FormValues {
	get := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return workflow.FormValues{
		From:     get("from"),
		Network:  get("network"),
		Asset:    get("asset"),
		To:       get("to"),
		Value:    get("value"),
		GasPrice: get("gas-price"),
		GasLimit: get("gas-limit"),
		Nonce:    get("nonce"),
		Data:     get("data"),
	}
}

// draftSession 建立会话，有 FORM 步骤时用命令行参数提交表单
func draftSession(ctx context.Context, cmd *cobra.Command, opts workflow.Options) (*workflow.Session, error) {
	snap, err := loadSnapshot()
	if err != nil {
		return nil, err
	}
	opts.Registry = registry.Static(snap)
	opts.Flags = workflow.Flags{
		ProtectActive: config.Global.Protect.Enabled,
		ProtectExempt: config.Global.Protect.Exempt,
	}
	opts.Stepper = workflow.StepperConfig{
		DefaultBackPath: config.Global.Stepper.DefaultBackPath,
		CompleteLabel:   config.Global.Stepper.CompleteLabel,
	}

	var params map[string]string
	if q, _ := cmd.Flags().GetString("prefill"); q != "" {
		values, err := url.ParseQuery(strings.TrimPrefix(q, "?"))
		if err != nil {
			return nil, err
		}
		params = workflow.QueryParams(values)
	}

	s, err := workflow.NewSession(ctx, uuid.NewString(), params, opts)
	if err != nil {
		return nil, err
	}
	if s.ActiveStep() == workflow.StepForm {
		if err := s.Act(ctx, workflow.StepForm, formFromFlags(cmd)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func unsignedFromDraft(d workflow.TxConfigDraft) types.UnsignedTransaction {
	u := types.UnsignedTransaction{
		From:     d.From.Hex(),
		To:       d.To.Hex(),
		Value:    "0",
		Nonce:    d.Nonce,
		GasLimit: d.GasLimit,
		GasPrice: "0",
		ChainID:  d.ChainID,
	}
	if d.Value != nil {
		u.Value = d.Value.String()
	}
	if d.GasPrice != nil {
		u.GasPrice = d.GasPrice.String()
	}
	if len(d.Data) > 0 {
		u.Data = hexutil.Encode(d.Data)
	}
	if d.SenderAccount != nil {
		u.DerivationPath = d.SenderAccount.DerivationPath
	}
	return u
}

// loadLocalSigner keystore 存在时提示输入密码 (环境变量 SIGNER_PASSWORD 优先)
func loadLocalSigner(keystorePath string) (*signer.LocalSigner, error) {
	opts := signer.Options{
		KeystorePath:   keystorePath,
		Password:       config.Global.Signer.Password,
		Mnemonic:       config.Global.Signer.Mnemonic,
		DerivationPath: config.Global.Signer.DerivationPath,
	}
	if _, err := os.Stat(keystorePath); err == nil && opts.Password == "" {
		password, err := readPassword("请输入 Keystore 密码: ")
		if err != nil {
			return nil, err
		}
		opts.Password = password
	}
	return signer.Load(opts)
}
