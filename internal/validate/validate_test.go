package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsername(t *testing.T) {
	assert.NoError(t, Username("budi01"))
	assert.NoError(t, Username("ABCdef123"))
	assert.Error(t, Username("ab"), "too short")
	assert.Error(t, Username("thisusernameiswaytoolong1"), "too long")
	assert.Error(t, Username("with space"))
	assert.Error(t, Username("semi;colon"))
	assert.Error(t, Username(""))
}

func TestPassword(t *testing.T) {
	assert.NoError(t, Password("rahasia1"))
	assert.Error(t, Password("short"))
	assert.Error(t, Password("has symbol!"))
}

func TestDurationDays(t *testing.T) {
	assert.NoError(t, DurationDays(1))
	assert.NoError(t, DurationDays(365))
	assert.Error(t, DurationDays(0))
	assert.Error(t, DurationDays(-3))
	assert.Error(t, DurationDays(366))
}
