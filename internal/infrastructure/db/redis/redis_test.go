package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Options(t *testing.T) {
	opts := Config{Addr: "cache:6379", Password: "s3cret", DB: 2}.options()
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, "s3cret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, clientName, opts.ClientName)
	assert.Equal(t, defaultTimeout, opts.ReadTimeout)

	opts = Config{Addr: "cache:6379", Timeout: 200 * time.Millisecond}.options()
	assert.Equal(t, 200*time.Millisecond, opts.DialTimeout)
	assert.Equal(t, 200*time.Millisecond, opts.WriteTimeout)
}

func TestConnect_UnreachableFails(t *testing.T) {
	client, err := Connect(context.Background(), Config{Addr: "127.0.0.1:1", Timeout: 100 * time.Millisecond})
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
