package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsEmptyStorePath(t *testing.T) {
	c := Default()
	c.StorePath = ""
	require.Error(t, c.Validate())
}

func TestValidateRejectsNonPositiveWindow(t *testing.T) {
	c := Default()
	c.HandshakeWindow = 0
	require.Error(t, c.Validate())

	c.HandshakeWindow = -time.Second
	require.Error(t, c.Validate())
}

func TestValidateAllowsEmptyListenAddr(t *testing.T) {
	c := Default()
	c.ListenAddr = ""
	require.NoError(t, c.Validate())
}
