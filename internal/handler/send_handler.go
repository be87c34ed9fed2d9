package handler

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"wallet-send/internal/handler/request"
	"wallet-send/internal/handler/response"
	"wallet-send/internal/model"
	"wallet-send/internal/workflow"
	"wallet-send/pkg/errno"
	"wallet-send/pkg/validator"
)

// SignerRouter 按草稿选择服务端签名器，signer.Router 满足
type SignerRouter interface {
	For(d workflow.TxConfigDraft) (workflow.Signer, error)
}

// HistoryLister 账户历史查询，history.Service 满足
type HistoryLister interface {
	List(ctx context.Context, network, account string, limit int) ([]model.TxHistory, error)
}

// SendHandler 渲染器面向的发送流程接口。每个写操作都只作用在会话的当前步骤上。
type SendHandler struct {
	sessions *workflow.Manager
	signers  SignerRouter  // 可以为 nil
	history  HistoryLister // 可以为 nil
}

func NewSendHandler(sessions *workflow.Manager, signers SignerRouter, history HistoryLister) *SendHandler {
	return &SendHandler{sessions: sessions, signers: signers, history: history}
}

// Create 创建发送会话
// @Summary 创建发送会话
// @Description 查询参数为预填充参数 (加速 / 取消时携带原交易)，解析失败按普通发送处理
// @Tags Send
// @Produce json
// @Param type query string false "SPEEDUP / CANCEL"
// @Param from query string false "原交易 from"
// @Param to query string false "原交易 to"
// @Param value query string false "wei, 十进制或 0x"
// @Param gasPrice query string false "wei"
// @Param gasLimit query string false "gas limit"
// @Param nonce query string false "nonce"
// @Param data query string false "calldata"
// @Param chainId query string false "chain id"
// @Success 200 {object} response.Response
// @Router /api/v1/send [post]
func (h *SendHandler) Create(c *gin.Context) {
	s, err := h.sessions.Create(c.Request.Context(), workflow.QueryParams(c.Request.URL.Query()))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, s.View())
}

// Get 会话视图
// @Summary 查询发送会话
// @Tags Send
// @Produce json
// @Param id path string true "session id"
// @Success 200 {object} response.Response
// @Router /api/v1/send/{id} [get]
func (h *SendHandler) Get(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	response.Success(c, s.View())
}

// SubmitForm 提交表单
// @Summary 提交发送表单
// @Tags Send
// @Accept json
// @Produce json
// @Param id path string true "session id"
// @Param request body request.SubmitFormRequest true "Form"
// @Success 200 {object} response.Response
// @Router /api/v1/send/{id}/form [post]
func (h *SendHandler) SubmitForm(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req request.SubmitFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}
	h.reply(c, s, s.Act(c.Request.Context(), workflow.StepForm, req.Values()))
}

// Confirm 签名前确认
// @Summary 确认交易 (签名前)
// @Tags Send
// @Produce json
// @Param id path string true "session id"
// @Success 200 {object} response.Response
// @Router /api/v1/send/{id}/confirm [post]
func (h *SendHandler) Confirm(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.reply(c, s, s.Act(c.Request.Context(), workflow.StepConfirmBeforeSign, nil))
}

// Back 返回上一步
// @Summary 返回上一步 (签名前)
// @Tags Send
// @Produce json
// @Param id path string true "session id"
// @Success 200 {object} response.Response
// @Router /api/v1/send/{id}/back [post]
func (h *SendHandler) Back(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.reply(c, s, s.Back())
}

// Sign 提交签名结果，或使用服务端签名器
// @Summary 签名
// @Tags Send
// @Accept json
// @Produce json
// @Param id path string true "session id"
// @Param request body request.SignRequest true "Sign"
// @Success 200 {object} response.Response
// @Router /api/v1/send/{id}/sign [post]
func (h *SendHandler) Sign(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req request.SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	var payload interface{}
	switch {
	case req.ServerSigner:
		if h.signers == nil {
			response.Error(c, errno.ErrSignerUnavailable)
			return
		}
		signer, err := h.signers.For(s.State().Draft)
		if err != nil {
			response.Error(c, err)
			return
		}
		payload = signer
	case req.Raw != "":
		raw, err := hexutil.Decode(req.Raw)
		if err != nil {
			response.Error(c, errno.ErrBind.WithMessage("raw: "+err.Error()))
			return
		}
		payload = hexutil.Bytes(raw)
	case req.Hash != "":
		payload = workflow.Web3SignSuccess{Hash: common.HexToHash(req.Hash)}
	default:
		response.Error(c, errno.ErrBind.WithMessage("raw, hash or server_signer is required"))
		return
	}
	h.reply(c, s, s.Act(c.Request.Context(), workflow.StepSign, payload))
}

// Send 确认发送，启用发送保护时进入关卡等待
// @Summary 发送
// @Tags Send
// @Produce json
// @Param id path string true "session id"
// @Success 200 {object} response.Response
// @Router /api/v1/send/{id}/send [post]
func (h *SendHandler) Send(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.reply(c, s, s.Act(c.Request.Context(), workflow.StepConfirmAfterSign, nil))
}

// CancelGate 取消关卡中等待的发送
// @Summary 取消等待中的发送
// @Tags Send
// @Produce json
// @Param id path string true "session id"
// @Success 200 {object} response.Response
// @Router /api/v1/send/{id}/gate/cancel [post]
func (h *SendHandler) CancelGate(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var err error
	if !s.CancelSend() {
		err = errno.ErrStateMismatch.WithMessage("no send is waiting at the gate")
	}
	h.reply(c, s, err)
}

// ReleaseGate 跳过剩余的保护延迟
// @Summary 立即发送
// @Tags Send
// @Produce json
// @Param id path string true "session id"
// @Success 200 {object} response.Response
// @Router /api/v1/send/{id}/gate/release [post]
func (h *SendHandler) ReleaseGate(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var err error
	if !s.ReleaseGate() {
		err = errno.ErrStateMismatch.WithMessage("no send is waiting at the gate")
	} else if st := s.State(); st.LastError != "" && st.Phase == workflow.PhaseSigned {
		err = errno.ErrBroadcast.WithMessage(st.LastError)
	}
	h.reply(c, s, err)
}

// ListHistory 账户交易历史
// @Summary 账户交易历史
// @Tags History
// @Produce json
// @Param network query string true "network id"
// @Param account query string true "account address"
// @Param limit query int false "默认 20"
// @Success 200 {object} response.Response
// @Router /api/v1/history [get]
func (h *SendHandler) ListHistory(c *gin.Context) {
	if h.history == nil {
		response.Error(c, errno.InternalServerError.WithMessage("history is not configured"))
		return
	}
	var req request.ListHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}
	records, err := h.history.List(c.Request.Context(), req.Network, common.HexToAddress(req.Account).Hex(), req.Limit)
	if err != nil {
		response.Error(c, errno.ErrDatabase.Wrap(err))
		return
	}
	response.Success(c, records)
}

func (h *SendHandler) session(c *gin.Context) (*workflow.Session, bool) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return s, true
}

// reply 成功和失败都带上最新视图，渲染器据此决定停留在哪一步
func (h *SendHandler) reply(c *gin.Context, s *workflow.Session, err error) {
	if err != nil {
		var typed errno.Errno
		if !errors.As(err, &typed) {
			err = errno.InternalServerError.Wrap(err)
		}
		response.Error(c, err, s.View())
		return
	}
	response.Success(c, s.View())
}
