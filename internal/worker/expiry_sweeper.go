package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-booker/internal/pkg/logger"
)

// SweeperLockKey は複数インスタンスでスイープを1つに絞るためのロックキー
const SweeperLockKey = "sweeper:expired-bookings"

// BookingSweeper は期限切れの pending 予約を回収するインターフェース
type BookingSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Locker はスイープ1回分の排他を取るインターフェース
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}

// ExpirySweeper は一定間隔で期限切れ予約を回収するワーカー
type ExpirySweeper struct {
	sweeper  BookingSweeper
	clock    clockwork.Clock
	interval time.Duration
	locker   Locker
	lockTTL  time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

// Option は ExpirySweeper の任意設定
type Option func(*ExpirySweeper)

// WithLocker は各サイクルで分散ロックを取るようにする
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(s *ExpirySweeper) {
		s.locker = l
		s.lockTTL = ttl
	}
}

// NewExpirySweeper は新しいスイーパーを作成
func NewExpirySweeper(bs BookingSweeper, clk clockwork.Clock, interval time.Duration, opts ...Option) *ExpirySweeper {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	s := &ExpirySweeper{
		sweeper:  bs,
		clock:    clk,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start はスイーパーを開始。Stop かコンテキストのキャンセルまで戻らない
// 2回目以降の呼び出しと Stop 後の呼び出しは何もしない
func (s *ExpirySweeper) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		logger.Warn("期限切れ予約スイーパーは既に開始されています")
		return
	}
	defer close(s.doneCh)
	select {
	case <-s.stopCh:
		return
	default:
	}

	logger.Info("期限切れ予約スイーパー開始",
		zap.Duration("interval", s.interval),
		zap.Bool("distributed_lock", s.locker != nil),
	)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("期限切れ予約スイーパー停止（コンテキストキャンセル）")
			return
		case <-s.stopCh:
			logger.Info("期限切れ予約スイーパー停止（シグナル受信）")
			return
		case <-ticker.Chan():
			s.sweep(ctx)
		}
	}
}

// Stop はスイーパーを停止し、実行中のサイクルの完了を待つ
// 複数回呼んでもよく、Start 前に呼んだ場合は待たずに戻る
func (s *ExpirySweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	if s.started.Load() {
		<-s.doneCh
	}
}

// sweep は1サイクル分の回収を行う
func (s *ExpirySweeper) sweep(ctx context.Context) {
	log := logger.Get()

	if s.locker != nil {
		release, acquired, err := s.locker.TryLock(ctx, SweeperLockKey, s.lockTTL)
		if err != nil {
			log.Warn("スイーパーのロック取得に失敗", zap.Error(err))
			return
		}
		if !acquired {
			log.Debug("他のインスタンスがスイープ中のためスキップ")
			return
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("スイーパーのロック解放に失敗", zap.Error(err))
			}
		}()
	}

	log.Debug("期限切れ予約の回収開始")
	count, err := s.sweeper.SweepExpired(ctx)
	if err != nil {
		// 一部が失敗しても回収できた分はそのまま残る。次のサイクルで再試行される
		log.Error("期限切れ予約の回収に失敗", zap.Int("count", count), zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("期限切れ予約を回収", zap.Int("count", count))
	} else {
		log.Debug("期限切れ予約なし")
	}
}
