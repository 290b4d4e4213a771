package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redsync/redsync/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/distributed-ledger/internal/domain"
)

type LockTestSuite struct {
	suite.Suite
	mr     *miniredis.Miniredis
	client *redis.Client
	locker *Locker
}

func TestLockSuite(t *testing.T) {
	suite.Run(t, new(LockTestSuite))
}

func (s *LockTestSuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	s.client = redis.NewClient(&redis.Options{Addr: s.mr.Addr()})
	s.locker = New(s.client, 10*time.Second, logrus.New())
}

func (s *LockTestSuite) TearDownTest() {
	_ = s.client.Close()
}

func (s *LockTestSuite) TestExecuteInLock_RunsActionAndReleases() {
	executed := false
	err := s.locker.ExecuteInLock(s.T().Context(), "txn_lock:REF-1", func(ctx context.Context) error {
		executed = true
		s.True(s.mr.Exists("txn_lock:REF-1"))
		return nil
	})
	s.Require().NoError(err)
	s.True(executed)
	s.False(s.mr.Exists("txn_lock:REF-1"))
}

func (s *LockTestSuite) TestExecuteInLock_ActionErrorReleasesLock() {
	actionErr := errors.New("boom")
	err := s.locker.ExecuteInLock(s.T().Context(), "txn_lock:REF-2", func(ctx context.Context) error {
		return actionErr
	})
	s.Require().ErrorIs(err, actionErr)
	s.False(s.mr.Exists("txn_lock:REF-2"))
}

func (s *LockTestSuite) TestExecuteInLock_Contention() {
	ctx := s.T().Context()
	err := s.locker.ExecuteInLock(ctx, "txn_lock:REF-3", func(ctx context.Context) error {
		innerCalled := false
		innerErr := s.locker.ExecuteInLock(ctx, "txn_lock:REF-3", func(context.Context) error {
			innerCalled = true
			return nil
		})
		s.Require().ErrorIs(innerErr, domain.ErrLockNotAcquired)
		s.Equal(domain.KindConcurrencyConflict, domain.KindOf(innerErr))
		s.False(innerCalled)
		return nil
	})
	s.Require().NoError(err)
}

func (s *LockTestSuite) TestExecuteInLock_ExpiredLeaseDoesNotReleaseNewOwner() {
	ctx := s.T().Context()
	other := New(s.client, 10*time.Second, logrus.New())

	err := s.locker.ExecuteInLock(ctx, "txn_lock:REF-4", func(ctx context.Context) error {
		s.mr.FastForward(11 * time.Second)
		s.False(s.mr.Exists("txn_lock:REF-4"))

		// ключ с истекшей арендой захватывает другой процесс и удерживает его.
		mutex := other.rs.NewMutex("txn_lock:REF-4", redsync.WithExpiry(10*time.Second), redsync.WithTries(1))
		s.Require().NoError(mutex.LockContext(ctx))
		return nil
	})
	s.Require().NoError(err)

	s.True(s.mr.Exists("txn_lock:REF-4"), "release must not remove a lock owned by another process")
}

func (s *LockTestSuite) TestExecuteInLock_SingleWinnerUnderConcurrency() {
	const workers = 5
	var (
		wg       sync.WaitGroup
		executed atomic.Int32
		rejected atomic.Int32
		start    = make(chan struct{})
		release  = make(chan struct{})
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := s.locker.ExecuteInLock(context.Background(), "txn_lock:CONCURRENT", func(context.Context) error {
				executed.Add(1)
				<-release
				return nil
			})
			if errors.Is(err, domain.ErrLockNotAcquired) {
				rejected.Add(1)
			}
		}()
	}

	close(start)
	s.Eventually(func() bool {
		return executed.Load() == 1 && rejected.Load() == workers-1
	}, time.Second, 10*time.Millisecond)
	close(release)
	wg.Wait()

	s.Equal(int32(1), executed.Load())
	s.Equal(int32(workers-1), rejected.Load())
}

func TestIsContention(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "failed", err: redsync.ErrFailed, want: true},
		{name: "wrapped failed", err: fmt.Errorf("lock: %w", redsync.ErrFailed), want: true},
		{name: "taken", err: &redsync.ErrTaken{Nodes: []int{0}}, want: true},
		{name: "node taken", err: errors.Join(&redsync.ErrNodeTaken{Node: 0}, errors.New("other")), want: true},
		{name: "network error", err: errors.New("dial tcp: connection refused"), want: false},
		// совпадение текста без типа ошибки не считается конкуренцией.
		{name: "message only", err: errors.New("lock already taken"), want: false},
		{name: "context canceled", err: context.Canceled, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isContention(tc.err))
		})
	}
}
