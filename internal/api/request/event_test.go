package request

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rservers/RightClaw-Build/internal/model"
)

func TestFlexInt(t *testing.T) {
	tests := []struct {
		in      string
		want    FlexInt
		wantErr bool
	}{
		{`42`, 42, false},
		{`"42"`, 42, false},
		{`" 156 "`, 156, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{`"abc"`, 0, true},
		{`4.5`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var f FlexInt
			err := json.Unmarshal([]byte(tt.in), &f)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, f)
		})
	}
}

func TestLifecycleEvent_DecodeWHMCSParams(t *testing.T) {
	body := `{
		"serviceid": "42",
		"pid": 156,
		"domain": "",
		"dedicatedip": " 10.0.0.5 ",
		"password": "x",
		"configoptions": {"name": "Rightclaw Pro"},
		"product": {"name": "Rightclaw VPS", "groupname": "Rightclaw"},
		"server": {"ipaddress": "192.0.2.1"}
	}`
	r, err := http.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	require.NoError(t, err)

	var req LifecycleEvent
	raw, err := DecodeRaw(r, &req)
	require.NoError(t, err)

	ev := req.ToModel(model.EventCreated, nil)
	assert.Equal(t, model.LifecycleEvent{
		Kind:        model.EventCreated,
		ServiceID:   42,
		ProductID:   156,
		OptionName:  "Rightclaw Pro",
		ProductName: "Rightclaw VPS",
		GroupName:   "Rightclaw",
		DedicatedIP: "10.0.0.5",
		Password:    "x",
	}, ev)
	assert.NotEmpty(t, raw)
}

func TestLifecycleEvent_EmptyPHPArrays(t *testing.T) {
	body := `{"serviceid": 7, "packageid": "155", "configoptions": [], "product": []}`
	r, err := http.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	require.NoError(t, err)

	var req LifecycleEvent
	_, err = DecodeRaw(r, &req)
	require.NoError(t, err)

	ev := req.ToModel(model.EventSuspended, []byte(body))
	assert.Equal(t, 7, ev.ServiceID)
	assert.Equal(t, 155, ev.ProductID)
	assert.Empty(t, ev.OptionName)
	assert.Empty(t, ev.ProductName)
	assert.Equal(t, []byte(body), ev.Raw)
}

func TestLifecycleEvent_ServiceIDRequired(t *testing.T) {
	for _, body := range []string{`{}`, `{"serviceid": 0}`, `{"serviceid": ""}`} {
		r, err := http.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
		require.NoError(t, err)

		var req LifecycleEvent
		_, err = DecodeRaw(r, &req)
		require.Error(t, err, body)
		assert.Contains(t, err.Error(), "validation error")
	}
}
