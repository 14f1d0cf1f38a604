package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Insert.BatchSize = 0
	assert.ErrorIs(t, cfg.Validate(), ErrConfiguration)

	cfg = DefaultConfig()
	cfg.MaxParallelism = -1
	assert.ErrorIs(t, cfg.Validate(), ErrConfiguration)

	cfg = DefaultConfig()
	cfg.Delete.SelectWindow = 0
	assert.ErrorContains(t, cfg.Validate(), "delete.select_window")

	cfg = DefaultConfig()
	cfg.UpdateCompareMethod = "checksum"
	assert.ErrorIs(t, cfg.Validate(), ErrConfiguration)

	cfg.UpdateCompareMethod = "Timestamp"
	assert.NoError(t, cfg.Validate())
}
