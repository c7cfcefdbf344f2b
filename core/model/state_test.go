package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezoic/gbdtcore/core/model"
)

func TestStateManagerLifecycle(t *testing.T) {
	sm := model.NewStateManager()
	assert.False(t, sm.IsReady())

	sm.SetReady()
	assert.True(t, sm.IsReady())

	sm.Reset()
	assert.False(t, sm.IsReady())
}
