package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-send/internal/handler"
	"wallet-send/internal/model"
	"wallet-send/internal/registry"
	"wallet-send/internal/server"
	"wallet-send/internal/signer"
	"wallet-send/internal/workflow"
	"wallet-send/pkg/errno"
	"wallet-send/pkg/validator"
)

type echoDispatcher struct{ calls int }

func (d *echoDispatcher) Send(_ context.Context, _ *registry.Network, a workflow.SignedArtifact) (workflow.TxReceipt, error) {
	d.calls++
	return workflow.TxReceipt{Hash: a.Hash, Status: workflow.TxStatusPending}, nil
}

type stubHistory struct{ network, account string }

func (h *stubHistory) List(_ context.Context, network, account string, limit int) ([]model.TxHistory, error) {
	h.network, h.account = network, account
	return []model.TxHistory{{ID: 1, Account: account, Network: network}}, nil
}

type apiResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		ID        string `json:"id"`
		Phase     string `json:"phase"`
		Active    string `json:"activeStep"`
		LastError string `json:"lastError"`
		Steps     []struct {
			ID        string `json:"id"`
			Component string `json:"component"`
		} `json:"steps"`
	} `json:"data"`
}

type testAPI struct {
	router     *gin.Engine
	dispatcher *echoDispatcher
	history    *stubHistory
	from       string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validator.Init()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)
	snap := &registry.Snapshot{
		Networks: []registry.Network{{ID: "ethereum", ChainID: 1, BaseAssetID: "eth"}},
		Assets:   []registry.Asset{{ID: "eth", Symbol: "ETH", NetworkID: "ethereum", Decimals: 18}},
		Accounts: []registry.Account{{Address: from, NetworkID: "ethereum", WalletType: registry.WalletLocal}},
	}

	api := &testAPI{dispatcher: &echoDispatcher{}, history: &stubHistory{}, from: from.Hex()}
	manager := workflow.NewManager(workflow.Options{
		Registry:   registry.Static(snap),
		Dispatcher: api.dispatcher,
	}, nil)
	h := handler.NewSendHandler(manager, signer.Router{Local: signer.NewKeySigner(key)}, api.history)
	api.router = server.NewHTTPRouter(h)
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) apiResponse {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (a *testAPI) form() gin.H {
	return gin.H{
		"from":      a.from,
		"network":   "ethereum",
		"to":        "0x00000000000000000000000000000000000000aB",
		"value":     "0.5",
		"gas_price": "10",
		"gas_limit": "21000",
		"nonce":     "0",
	}
}

func TestSendFlow(t *testing.T) {
	api := newTestAPI(t)

	created := api.do(t, http.MethodPost, "/api/v1/send", nil)
	require.Equal(t, 0, created.Code, created.Msg)
	id := created.Data.ID
	assert.Equal(t, "EMPTY", created.Data.Phase)
	assert.Equal(t, "FORM", created.Data.Active)
	require.Len(t, created.Data.Steps, 4)
	assert.Equal(t, "SendAssetsForm", created.Data.Steps[0].Component)

	resp := api.do(t, http.MethodPost, "/api/v1/send/"+id+"/form", api.form())
	require.Equal(t, 0, resp.Code, resp.Msg)
	assert.Equal(t, "SIGN", resp.Data.Active)

	resp = api.do(t, http.MethodPost, "/api/v1/send/"+id+"/sign", gin.H{"server_signer": true})
	require.Equal(t, 0, resp.Code, resp.Msg)
	assert.Equal(t, "SIGNED", resp.Data.Phase)
	assert.Equal(t, "CONFIRM_AFTER_SIGN", resp.Data.Active)

	resp = api.do(t, http.MethodPost, "/api/v1/send/"+id+"/send", nil)
	require.Equal(t, 0, resp.Code, resp.Msg)
	assert.Equal(t, "COMPLETE", resp.Data.Phase)
	assert.Equal(t, "RECEIPT", resp.Data.Active)
	assert.Equal(t, 1, api.dispatcher.calls)

	// 重复发送只返回错误，不会再广播
	resp = api.do(t, http.MethodPost, "/api/v1/send/"+id+"/send", nil)
	assert.Equal(t, errno.ErrStateMismatch.Code, resp.Code)
	assert.Equal(t, "COMPLETE", resp.Data.Phase)
	assert.Equal(t, 1, api.dispatcher.calls)
}

func TestSendErrors(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodGet, "/api/v1/send/missing", nil)
	assert.Equal(t, errno.ErrSessionNotFound.Code, resp.Code)

	id := api.do(t, http.MethodPost, "/api/v1/send", nil).Data.ID

	form := api.form()
	form["to"] = "not-an-address"
	resp = api.do(t, http.MethodPost, "/api/v1/send/"+id+"/form", form)
	assert.Equal(t, errno.ErrBind.Code, resp.Code)

	resp = api.do(t, http.MethodPost, "/api/v1/send/"+id+"/sign", gin.H{"server_signer": true})
	assert.Equal(t, errno.ErrStateMismatch.Code, resp.Code, "SIGN is not the active step yet")
	assert.Equal(t, "FORM", resp.Data.Active)

	resp = api.do(t, http.MethodPost, "/api/v1/send/"+id+"/gate/cancel", nil)
	assert.Equal(t, errno.ErrStateMismatch.Code, resp.Code)

	api.do(t, http.MethodPost, "/api/v1/send/"+id+"/form", api.form())
	resp = api.do(t, http.MethodPost, "/api/v1/send/"+id+"/sign", gin.H{})
	assert.Equal(t, errno.ErrBind.Code, resp.Code)
}

func TestSpeedUpPrefill(t *testing.T) {
	api := newTestAPI(t)

	path := "/api/v1/send?type=SPEEDUP&from=" + api.from +
		"&to=0x00000000000000000000000000000000000000aB&value=0x1&gasPrice=0x3b9aca00" +
		"&gasLimit=21000&nonce=3&data=0x&chainId=1"
	resp := api.do(t, http.MethodPost, path, nil)
	require.Equal(t, 0, resp.Code, resp.Msg)
	assert.Equal(t, "SEEDED", resp.Data.Phase)
}

func TestListHistory(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?network=ethereum&account="+api.from, nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `"code":0`)
	assert.Equal(t, api.from, api.history.account)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/history?network=ethereum", nil)
	w = httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `"code":10002`)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "UP")
}
