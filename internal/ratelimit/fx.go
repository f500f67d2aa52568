package ratelimit

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallgrid/aquabill/internal/config"
	identitydomain "github.com/smallgrid/aquabill/internal/identity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Login throttle: 10 attempts, refilling one every 6 seconds.
const (
	loginRate  = 1.0 / 6.0
	loginBurst = 10
)

var Module = fx.Module("ratelimit",
	fx.Provide(NewLoginThrottle),
)

// NewLoginThrottle builds the redis-backed login throttle. Without a
// configured Redis address logins are not throttled.
func NewLoginThrottle(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) identitydomain.LoginThrottle {
	if cfg.RedisAddr == "" {
		log.Info("login throttle disabled, redis not configured")
		return noopThrottle{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	return NewTokenBucket(client, loginRate, loginBurst)
}

type noopThrottle struct{}

func (noopThrottle) Allow(context.Context, string) (bool, error) {
	return true, nil
}
