package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type transferForm struct {
	Address string `validate:"required,eth_addr"`
	Amount  string `validate:"required,decimal"`
	Speed   string `validate:"omitempty,oneof=slow fast"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		form    transferForm
		wantErr string
	}{
		{"valid", transferForm{Address: "0x52908400098527886E0F7030069857D2E4169EE7", Amount: "1.5"}, ""},
		{"missing address", transferForm{Amount: "1"}, "Address 不能为空"},
		{"bad address", transferForm{Address: "0xabc", Amount: "1"}, "Address 不是合法的地址"},
		{"bad amount", transferForm{Address: "0x52908400098527886E0F7030069857D2E4169EE7", Amount: "1,5"}, "Amount 必须是数字"},
		{"bad speed", transferForm{Address: "0x52908400098527886E0F7030069857D2E4169EE7", Amount: "1", Speed: "warp"}, "Speed 必须是 [slow fast] 之一"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.form)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
