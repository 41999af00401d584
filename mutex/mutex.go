package mutex

import (
	"fmt"
	"github.com/go-redis/redis"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis"
	"time"
)

const (
	passLockExpiration = time.Minute * 30
	passKeyPattern     = "stream-watcher:pass:%v"
)

// Locker is satisfied by *redsync.Mutex.
type Locker interface {
	Lock() error
	Unlock() (bool, error)
}

type Builder struct {
	client *redis.Client
	rs     *redsync.Redsync
}

func NewBuilder(address string) *Builder {
	client := redis.NewClient(&redis.Options{Addr: address})
	pool := goredis.NewPool(client)
	rs := redsync.New(pool)
	return &Builder{client: client, rs: rs}
}

// Pass guards reconciliation passes against one store. Passes against the
// same store must never overlap, across processes included. Lock makes a
// single attempt and fails at once with redsync.ErrFailed when another
// holder exists.
func (c *Builder) Pass(store string) Locker {
	key := fmt.Sprintf(passKeyPattern, store)
	return c.rs.NewMutex(key, redsync.WithExpiry(passLockExpiration), redsync.WithTries(1))
}

func (c *Builder) Close() error {
	return c.client.Close()
}
