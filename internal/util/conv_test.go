package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBool(t *testing.T) {
	assert.True(t, ParseBool("true"))
	assert.True(t, ParseBool("1"))
	assert.True(t, ParseBool(" TRUE "))
	assert.False(t, ParseBool("yes"))
	assert.False(t, ParseBool(""))
}
