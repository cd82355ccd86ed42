package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetReadOnly(t *testing.T) {
	defer SetReadOnly(false)

	assert.False(t, IsReadOnly())

	SetReadOnly(true)
	assert.True(t, IsReadOnly())

	SetReadOnly(false)
	assert.False(t, IsReadOnly())
}
