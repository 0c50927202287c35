package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsProductionLike(t *testing.T) {
	assert.True(t, IsProductionLike("production"))
	assert.True(t, IsProductionLike("Staging"))
	assert.False(t, IsProductionLike("development"))
	assert.False(t, IsProductionLike(EnvTest))
	assert.False(t, IsProductionLike(""))
}
