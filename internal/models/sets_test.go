package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddKey(t *testing.T) {
	set := []string{"a", "b"}

	set = AddKey(set, "c")
	assert.Equal(t, []string{"a", "b", "c"}, set)

	// adding an existing key is a no-op
	set = AddKey(set, "b")
	assert.Equal(t, []string{"a", "b", "c"}, set)
}

func TestAddKey_Nil(t *testing.T) {
	set := AddKey(nil, "a")
	assert.Equal(t, []string{"a"}, set)
}

func TestRemoveKey(t *testing.T) {
	set := []string{"a", "b", "c"}

	set = RemoveKey(set, "b")
	assert.Equal(t, []string{"a", "c"}, set)

	// removing a missing key is a no-op
	set = RemoveKey(set, "zzz")
	assert.Equal(t, []string{"a", "c"}, set)
}

func TestContainsKey(t *testing.T) {
	set := []string{"a", "b"}

	assert.True(t, ContainsKey(set, "a"))
	assert.False(t, ContainsKey(set, "c"))
	assert.False(t, ContainsKey(nil, "a"))
}
