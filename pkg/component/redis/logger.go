package redis

import (
	"context"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"
)

// redisLogger routes go-redis internal messages to the global logger.
type redisLogger struct{}

func (redisLogger) Printf(ctx context.Context, format string, v ...interface{}) {
	logger.Global().WithCtx(ctx).Warnf("redis: "+format, v...)
}

func init() {
	goredis.SetLogger(redisLogger{})
}
