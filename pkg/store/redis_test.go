package store

import (
	"testing"

	"codeberg.org/boneclub/gammon/testing/suite"
)

func TestRedisSessions(t *testing.T) {
	ctx, s := suite.New(t)
	testSessions(t, ctx, NewRedisClient(s.Redis(ctx)))
}
