package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartwatch/ingestor/internal/models"
)

func TestParseAction(t *testing.T) {
	for _, valid := range []string{"skip", "update", "replace", "show-warning"} {
		action, err := ParseAction(valid)
		require.NoError(t, err)
		assert.Equal(t, Action(valid), action)
	}

	for _, invalid := range []string{"", "Skip", "overwrite", "show_warning"} {
		_, err := ParseAction(invalid)
		assert.Error(t, err, "action %q must be rejected", invalid)
	}
}

func TestResolveFreshSnapshotAlwaysProceeds(t *testing.T) {
	fresh := ExistingSnapshot{}
	for _, action := range []Action{ActionSkip, ActionUpdate, ActionReplace, ActionShowWarning} {
		decision := Resolve(action, fresh)
		assert.True(t, decision.Proceed, "action %s on a fresh key", action)
		assert.False(t, decision.Skipped)
		assert.Nil(t, decision.Warning)
	}
}

func TestResolveDuplicateSnapshot(t *testing.T) {
	existing := ExistingSnapshot{Exists: true, Count: 50}

	skip := Resolve(ActionSkip, existing)
	assert.False(t, skip.Proceed)
	assert.True(t, skip.Skipped)

	update := Resolve(ActionUpdate, existing)
	assert.True(t, update.Proceed)

	replace := Resolve(ActionReplace, existing)
	assert.True(t, replace.Proceed)

	warn := Resolve(ActionShowWarning, existing)
	assert.False(t, warn.Proceed)
	assert.False(t, warn.Skipped)
	require.NotNil(t, warn.Warning)
	assert.Equal(t, 50, warn.Warning.Count)
}

func TestSnapshotKeyValidate(t *testing.T) {
	region := "us"
	key := SnapshotKey{
		Date:        "2025-06-01",
		ChartType:   models.ChartRegional,
		ChartPeriod: models.PeriodDaily,
		Region:      &region,
		Platform:    models.PlatformSpotify,
	}
	require.NoError(t, key.Validate())
	assert.Equal(t, "regional-us-daily-2025-06-01", key.String())

	global := key
	global.Region = nil
	assert.Equal(t, "regional-global-daily-2025-06-01", global.String())

	bad := key
	bad.Date = "06/01/2025"
	assert.Error(t, bad.Validate())

	empty := ""
	blank := key
	blank.Region = &empty
	assert.Error(t, blank.Validate(), "empty region string must be rejected, global is nil")
}
