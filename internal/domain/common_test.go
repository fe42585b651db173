package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionSide(t *testing.T) {
	assert.Equal(t, SideShort, SideLong.Opposite())
	assert.Equal(t, SideLong, SideShort.Opposite())
	assert.Equal(t, 1.0, SideLong.Direction())
	assert.Equal(t, -1.0, SideShort.Opposite().Opposite().Direction())
}
