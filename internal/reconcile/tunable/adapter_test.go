package tunable

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/truenasctl/internal/reconcile"
	"github.com/dokzlo13/truenasctl/internal/truenas"
)

func strPtr(s string) *string {
	return &s
}

func TestAdapter_ToPayload(t *testing.T) {
	d := Desired{
		Name:    "wireguard_interfaces",
		Type:    TypeSysctl,
		Value:   strPtr("wg0"),
		Comment: "The primary wireguard interface",
	}

	data, err := json.Marshal(NewAdapter().ToPayload(d))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"comment": "The primary wireguard interface",
		"enabled": true,
		"type": "SYSCTL",
		"value": "wg0",
		"var": "wireguard_interfaces"
	}`, string(data))
}

func TestAdapter_Keys(t *testing.T) {
	a := NewAdapter()
	key := a.MatchKey(Desired{Name: "wg", Type: TypeRC})
	assert.Equal(t, reconcile.MatchKey{"RC", "wg"}, key)

	tests := []struct {
		name   string
		remote truenas.Remote
		equal  bool
	}{
		{name: "same", remote: truenas.Remote{"var": "wg", "type": "RC"}, equal: true},
		{name: "other_type", remote: truenas.Remote{"var": "wg", "type": "SYSCTL"}},
		{name: "other_var", remote: truenas.Remote{"var": "wg1", "type": "RC"}},
		{name: "case_differs", remote: truenas.Remote{"var": "WG", "type": "RC"}},
		{name: "type_case_differs", remote: truenas.Remote{"var": "wg", "type": "rc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, a.KeysEqual(key, a.ExtractKey(tt.remote)))
		})
	}
}

func TestAdapter_Validate(t *testing.T) {
	tests := []struct {
		name    string
		desired Desired
		missing []string
		invalid int
	}{
		{name: "present/complete", desired: Desired{Name: "wg", Type: TypeLoader, Value: strPtr("1")}},
		{name: "present/empty_value_allowed", desired: Desired{Name: "wg", Type: TypeLoader, Value: strPtr("")}},
		{name: "present/no_value", desired: Desired{Name: "wg", Type: TypeRC}, missing: []string{"value"}},
		{name: "absent/no_value", desired: Desired{State: "absent", Name: "wg", Type: TypeRC}},
		{name: "no_type", desired: Desired{State: "absent", Name: "wg"}, missing: []string{"type"}},
		{name: "bad_type", desired: Desired{Name: "wg", Type: "enabled", Value: strPtr("1")}, invalid: 1},
		{name: "lowercase_type", desired: Desired{Name: "wg", Type: "sysctl", Value: strPtr("1")}, invalid: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAdapter().Validate(tt.desired)
			if tt.missing == nil && tt.invalid == 0 {
				assert.NoError(t, err)
				return
			}
			var verr *reconcile.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.missing, verr.Missing)
			assert.Len(t, verr.Invalid, tt.invalid)
		})
	}
}

func TestAdapter_FromRemote(t *testing.T) {
	got, err := NewAdapter().FromRemote(truenas.Remote{
		"id":      json.Number("7"),
		"var":     "wg",
		"type":    "SYSCTL",
		"value":   "wg0",
		"comment": "c",
		"enabled": false,
	})
	require.NoError(t, err)
	assert.Equal(t, "wg", got.Name)
	assert.Equal(t, "SYSCTL", got.Type)
	assert.Equal(t, "wg0", *got.Value)
	assert.False(t, got.IsEnabled())
	assert.Equal(t, reconcile.Present, got.Intent())
}
