package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUserType(t *testing.T) {
	got, err := ParseUserType("SYS_USER")
	require.NoError(t, err)
	assert.Equal(t, UserTypeSystem, got)

	got, err = ParseUserType("customer")
	require.NoError(t, err)
	assert.Equal(t, UserTypeCustomer, got)

	_, err = ParseUserType("robot")
	assert.Error(t, err)
}
