package workflow

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"wallet-send/pkg/errno"
)

// Step 交给渲染器的步骤描述。渲染器只负责展示，完成时调用 Action。
type Step struct {
	ID        StepID                 `json:"id"`
	Label     string                 `json:"label"`
	Component string                 `json:"component"`
	Props     map[string]interface{} `json:"props"`

	Action func(ctx context.Context, payload interface{}) error `json:"-"`
}

// View 会话的只读投影
type View struct {
	ID          string          `json:"id"`
	Phase       Phase           `json:"phase"`
	Intent      Intent          `json:"intent"`
	Capability  string          `json:"capability"`
	Path        []StepID        `json:"path"`
	Active      StepID          `json:"activeStep"`
	Steps       []Step          `json:"steps"`
	Draft       TxConfigDraft   `json:"draft"`
	Signed      *SignedArtifact `json:"signed,omitempty"`
	Receipt     *TxReceipt      `json:"receipt,omitempty"`
	LastError   string          `json:"lastError,omitempty"`
	GatePending bool            `json:"gatePending"`
	Stepper     StepperConfig   `json:"stepper"`
}

var stepComponents = map[StepID]string{
	StepForm:              "SendAssetsForm",
	StepConfirmBeforeSign: "ConfirmTransaction",
	StepSign:              "SignTransaction",
	StepConfirmAfterSign:  "ConfirmTransaction",
	StepReceipt:           "TxReceipt",
}

func stepLabel(id StepID, capability SignerCapability) string {
	switch id {
	case StepForm:
		return "SEND_ASSETS"
	case StepConfirmBeforeSign, StepConfirmAfterSign:
		return "CONFIRM_TX_MODAL_TITLE"
	case StepReceipt:
		if capability == SignAndSend {
			return "TRANSACTION_BROADCASTED"
		}
		return " "
	}
	return ""
}

// Path 当前签名能力与意图下的步骤顺序
func (s *Session) Path() []StepID {
	st := s.State()
	return Compose(resolveCapability(st.Draft), st.Intent)
}

// ActiveStep 渲染器当前应展示的步骤，由状态推导
func (s *Session) ActiveStep() StepID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeStepLocked()
}

func (s *Session) activeStepLocked() StepID {
	st := s.state
	path := Compose(resolveCapability(st.Draft), st.Intent)
	has := func(id StepID) bool { return indexOf(path, id) >= 0 }

	switch st.Phase {
	case PhaseComplete:
		return StepReceipt
	case PhaseSigned, PhaseSendRequested, PhaseAwaitingReceipt:
		if st.Signed != nil && st.Signed.Sent {
			return StepReceipt
		}
		return StepConfirmAfterSign
	case PhaseSeeded, PhaseDraftComplete:
		if has(StepForm) && (s.editing || st.Phase == PhaseSeeded) {
			return StepForm
		}
		// 签名失败后停在 SIGN，不回到确认页
		if has(StepConfirmBeforeSign) && !s.confirmed {
			return StepConfirmBeforeSign
		}
		return StepSign
	}
	return path[0]
}

// Confirm 通过签名前确认
func (s *Session) Confirm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeStepLocked() != StepConfirmBeforeSign {
		return errno.ErrStateMismatch.WithMessage("not at " + string(StepConfirmBeforeSign))
	}
	s.confirmed = true
	s.lastActive = s.opts.Now()
	return nil
}

// Back 签名前返回上一步；签名之后草稿已冻结，不能返回
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := Compose(resolveCapability(s.state.Draft), s.state.Intent)
	has := func(id StepID) bool { return indexOf(path, id) >= 0 }
	switch s.activeStepLocked() {
	case StepConfirmBeforeSign:
		if has(StepForm) {
			s.editing = true
			return nil
		}
	case StepSign:
		if has(StepConfirmBeforeSign) {
			s.confirmed = false
			return nil
		}
		if has(StepForm) {
			s.editing = true
			return nil
		}
	}
	return errno.ErrStateMismatch.WithMessage("no previous step, use " + s.opts.Stepper.DefaultBackPath)
}

// Act 渲染器完成 id 步骤时调用，id 必须是当前步骤
func (s *Session) Act(ctx context.Context, id StepID, payload interface{}) error {
	if active := s.ActiveStep(); active != id {
		return errno.ErrStateMismatch.WithMessage(fmt.Sprintf("active step is %s, not %s", active, id))
	}
	for _, step := range s.Steps() {
		if step.ID == id {
			if step.Action == nil {
				return errno.ErrStateMismatch.WithMessage(string(id) + " has no action")
			}
			return step.Action(ctx, payload)
		}
	}
	return errno.ErrStateMismatch.WithMessage(string(id) + " is not on the current path")
}

// Steps 当前路径上每一步的渲染描述
func (s *Session) Steps() []Step {
	s.mu.Lock()
	st := s.state.clone()
	gatePending := s.gatePending
	s.mu.Unlock()
	return s.buildSteps(st, gatePending)
}

func (s *Session) buildSteps(st State, gatePending bool) []Step {
	capability := resolveCapability(st.Draft)
	path := Compose(capability, st.Intent)

	steps := make([]Step, 0, len(path))
	for _, id := range path {
		step := Step{
			ID:        id,
			Label:     stepLabel(id, capability),
			Component: stepComponents[id],
			Props:     map[string]interface{}{"draft": st.Draft, "intent": st.Intent},
		}
		switch id {
		case StepForm:
			step.Props["error"] = st.LastError
			step.Action = s.submitForm
		case StepConfirmBeforeSign:
			step.Props["fee"] = st.Draft.Fee().String()
			step.Action = func(context.Context, interface{}) error { return s.Confirm() }
		case StepSign:
			step.Props["error"] = st.LastError
			step.Action = s.signStep
		case StepConfirmAfterSign:
			step.Props["fee"] = st.Draft.Fee().String()
			step.Props["signed"] = st.Signed
			step.Props["gatePending"] = gatePending
			step.Props["error"] = st.LastError
			step.Action = func(ctx context.Context, _ interface{}) error {
				_, err := s.Dispatch(ctx, RequestSend{})
				return err
			}
		case StepReceipt:
			step.Props["receipt"] = st.Receipt
			step.Props["completeLabel"] = s.opts.Stepper.CompleteLabel
		}
		steps = append(steps, step)
	}
	return steps
}

func (s *Session) submitForm(ctx context.Context, payload interface{}) error {
	var form FormValues
	switch v := payload.(type) {
	case FormValues:
		form = v
	case *FormValues:
		form = *v
	default:
		return errno.ErrValidation.WithMessage(fmt.Sprintf("unexpected form payload %T", payload))
	}
	snap, err := s.opts.Registry.Snapshot(ctx)
	if err != nil {
		return err
	}
	_, err = s.Dispatch(ctx, FormSubmit{Form: form, Registry: snap})
	return err
}

// signStep 接受渲染器带回的已签名交易、签名即广播的结果，或服务端签名器
func (s *Session) signStep(ctx context.Context, payload interface{}) error {
	var err error
	switch v := payload.(type) {
	case Signer:
		_, err = s.Sign(ctx, v)
	case Web3SignSuccess:
		_, err = s.Dispatch(ctx, v)
	case hexutil.Bytes:
		err = s.signedRaw(ctx, v)
	case []byte:
		err = s.signedRaw(ctx, v)
	default:
		err = errno.ErrValidation.WithMessage(fmt.Sprintf("unexpected sign payload %T", payload))
	}
	return err
}

func (s *Session) signedRaw(ctx context.Context, raw []byte) error {
	snap, err := s.opts.Registry.Snapshot(ctx)
	if err != nil {
		return err
	}
	_, err = s.Dispatch(ctx, SignSuccess{Raw: raw, Registry: snap})
	return err
}

// View 当前会话快照，所有字段取自同一时刻的状态
func (s *Session) View() View {
	s.mu.Lock()
	st := s.state.clone()
	active := s.activeStepLocked()
	gatePending := s.gatePending
	s.mu.Unlock()

	capability := "UNKNOWN"
	if c, ok := st.Draft.Capability(); ok {
		capability = string(c)
	}
	return View{
		ID:          s.ID,
		Phase:       st.Phase,
		Intent:      st.Intent,
		Capability:  capability,
		Path:        Compose(resolveCapability(st.Draft), st.Intent),
		Active:      active,
		Steps:       s.buildSteps(st, gatePending),
		Draft:       st.Draft,
		Signed:      st.Signed,
		Receipt:     st.Receipt,
		LastError:   st.LastError,
		GatePending: gatePending,
		Stepper:     s.opts.Stepper,
	}
}
