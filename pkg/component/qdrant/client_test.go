//go:build !qdrantgrpc

package qdrant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qdrantopts "github.com/kart-io/sentinel-rag/pkg/options/qdrant"
)

func TestNewSelectsProtocol(t *testing.T) {
	opts := qdrantopts.NewOptions()

	c, err := New(opts)
	require.NoError(t, err)
	assert.IsType(t, &RESTClient{}, c)

	opts.Protocol = qdrantopts.ProtocolGRPC
	c, err = New(opts)
	assert.ErrorIs(t, err, ErrGRPCDisabled)
	assert.Nil(t, c)

	opts.Protocol = "soap"
	_, err = New(opts)
	assert.Error(t, err)

	_, err = New(nil)
	assert.Error(t, err)
}
