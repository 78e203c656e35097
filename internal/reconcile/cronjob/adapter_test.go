package cronjob

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/truenasctl/internal/reconcile"
	"github.com/dokzlo13/truenasctl/internal/truenas"
)

func boolPtr(b bool) *bool {
	return &b
}

func TestAdapter_ToPayload(t *testing.T) {
	d := Desired{
		Description: "run a script",
		Command:     "/root/some-script",
		HideStderr:  boolPtr(true),
		Schedule:    Schedule{Minute: "0", Hour: "0", Dom: "*", Month: "*", Dow: "*"},
	}

	data, err := json.Marshal(NewAdapter().ToPayload(d))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"description": "run a script",
		"enabled": true,
		"stdout": true,
		"stderr": true,
		"command": "/root/some-script",
		"user": "root",
		"schedule": {"minute": "0", "hour": "0", "dom": "*", "month": "*", "dow": "*"}
	}`, string(data))
}

func TestAdapter_Paths(t *testing.T) {
	a := NewAdapter()
	assert.Equal(t, reconcile.KindCronJob, a.Kind())
	assert.Equal(t, "cronjob", a.CollectionPath())
	assert.Equal(t, "cronjob/id/9", a.ItemPath("9"))
}

func TestAdapter_Keys(t *testing.T) {
	a := NewAdapter()
	key := a.MatchKey(Desired{Description: "backup"})

	assert.True(t, a.KeysEqual(key, a.ExtractKey(truenas.Remote{"id": 1, "description": "backup"})))
	assert.False(t, a.KeysEqual(key, a.ExtractKey(truenas.Remote{"id": 1, "description": "Backup"})))
	assert.False(t, a.KeysEqual(key, a.ExtractKey(truenas.Remote{"id": 1})))
}

func TestAdapter_Validate(t *testing.T) {
	full := Desired{
		Description: "d",
		Command:     "c",
		Schedule:    Schedule{Minute: "*", Hour: "*", Dom: "*", Month: "*", Dow: "*"},
	}

	tests := []struct {
		name    string
		desired Desired
		missing []string
	}{
		{name: "present/complete", desired: full},
		{
			name:    "present/missing_command",
			desired: Desired{Description: "d", Schedule: full.Schedule},
			missing: []string{"command"},
		},
		{
			name: "present/partial_schedule",
			desired: Desired{
				Description: "d",
				Command:     "c",
				Schedule:    Schedule{Minute: "0", Hour: "0"},
			},
			missing: []string{"schedule.dom", "schedule.month", "schedule.dow"},
		},
		{name: "absent/description_only", desired: Desired{State: "absent", Description: "d"}},
		{
			name:    "absent/no_description",
			desired: Desired{State: "absent"},
			missing: []string{"description"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAdapter().Validate(tt.desired)
			if tt.missing == nil {
				assert.NoError(t, err)
				return
			}
			var verr *reconcile.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.missing, verr.Missing)
		})
	}
}

func TestDesired_Intent(t *testing.T) {
	assert.Equal(t, reconcile.Present, Desired{}.Intent())
	assert.Equal(t, reconcile.Absent, Desired{State: "absent"}.Intent())
	assert.Equal(t, reconcile.Intent("later"), Desired{State: "later"}.Intent())
}
