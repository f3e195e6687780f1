package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// UserLocker сериализует запись игрового состояния одного пользователя
type UserLocker interface {
	Lock(ctx context.Context, userID uint) (unlock func(), err error)
}

// LocalUserLocker блокировки в памяти процесса (один инстанс)
type LocalUserLocker struct {
	mu    sync.Mutex
	locks map[uint]*userMutex
}

type userMutex struct {
	ch   chan struct{}
	refs int
}

// NewLocalUserLocker создает локальный блокировщик
func NewLocalUserLocker() *LocalUserLocker {
	return &LocalUserLocker{locks: make(map[uint]*userMutex)}
}

// Lock ждет освобождения блокировки пользователя или отмены ctx
func (l *LocalUserLocker) Lock(ctx context.Context, userID uint) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &userMutex{ch: make(chan struct{}, 1)}
		l.locks[userID] = m
	}
	m.refs++
	l.mu.Unlock()

	select {
	case m.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(userID, m)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-m.ch
			l.release(userID, m)
		})
	}, nil
}

func (l *LocalUserLocker) release(userID uint, m *userMutex) {
	l.mu.Lock()
	m.refs--
	if m.refs == 0 {
		delete(l.locks, userID)
	}
	l.mu.Unlock()
}

// ErrLockNotAcquired блокировку не удалось получить до отмены контекста
var ErrLockNotAcquired = errors.New("user lock not acquired")

// удаляем ключ только если он все еще принадлежит нам
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisUserLocker распределенная блокировка для нескольких инстансов API
type RedisUserLocker struct {
	rdb        *goredis.Client
	ttl        time.Duration
	retryDelay time.Duration
	prefix     string
}

// NewRedisUserLocker создает блокировщик поверх Redis
func NewRedisUserLocker(rdb *goredis.Client, ttl time.Duration) *RedisUserLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisUserLocker{
		rdb:        rdb,
		ttl:        ttl,
		retryDelay: 25 * time.Millisecond,
		prefix:     "goalquest:unlock-lock:",
	}
}

// Lock берет SET NX PX с повтором до получения или отмены ctx.
// Если ctx не ограничен по времени, ожидание ограничено ttl.
func (l *RedisUserLocker) Lock(ctx context.Context, userID uint) (func(), error) {
	key := fmt.Sprintf("%s%d", l.prefix, userID)
	token := uuid.NewString()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.ttl)
		defer cancel()
	}

	delay := l.retryDelay
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("redis lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: user %d", ErrLockNotAcquired, userID)
		case <-time.After(delay):
		}
		if delay < 200*time.Millisecond {
			delay *= 2
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.rdb, []string{key}, token).Err()
		})
	}, nil
}
