package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/model"
)

func TestRootHasCommands(t *testing.T) {
	root := NewRoot()
	for _, path := range [][]string{
		{"serve"}, {"worker"}, {"consume"}, {"migrate"},
		{"tenant", "create"}, {"table", "add"}, {"staff", "create"},
		{"book"}, {"version"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestVersionCommand(t *testing.T) {
	root := NewRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--env-file", "does-not-exist.env"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "tablebook dev")
}

func TestTenantOptionsBuild(t *testing.T) {
	o := tenantOptions{
		slug:         " Bistro ",
		name:         "Bistro",
		timezone:     "Europe/Paris",
		currency:     "EUR",
		hours:        `{"tuesday":{"open":"17:00","close":"22:00"}}`,
		approval:     model.ApprovalManual,
		deposit:      "25.00",
		slotInterval: 30,
		duration:     90,
	}
	tn, err := o.build()
	require.NoError(t, err)
	assert.Equal(t, "bistro", tn.Slug)
	assert.Equal(t, "eur", tn.Currency)
	assert.Len(t, tn.ID, 36)
	assert.True(t, tn.Deposit.Required)
	assert.Equal(t, int64(2500), tn.Deposit.AmountCents())
	assert.Equal(t, model.StatusPending, tn.InitialStatus())
	assert.Contains(t, tn.Hours, "tuesday")
}

func TestTenantOptionsRejects(t *testing.T) {
	base := tenantOptions{slug: "b", name: "B", timezone: "UTC", hours: `{}`, approval: model.ApprovalAuto}

	o := base
	o.timezone = "Mars/Olympus"
	_, err := o.build()
	assert.Error(t, err)

	o = base
	o.hours = `{"funday":{"open":"10:00","close":"11:00"}}`
	_, err = o.build()
	assert.Error(t, err)

	o = base
	o.approval = "sometimes"
	_, err = o.build()
	assert.Error(t, err)

	o = base
	o.deposit = "-5"
	_, err = o.build()
	assert.Error(t, err)
}

func TestBookSlotTime(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	o := bookOptions{date: "2025-06-03", at: "19:30"}
	ts, err := o.slotTime(paris)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 3, 17, 30, 0, 0, time.UTC), ts.UTC())

	o.at = ""
	ts, err = o.slotTime(paris)
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	o.at = "7pm"
	_, err = o.slotTime(paris)
	assert.Error(t, err)
}
