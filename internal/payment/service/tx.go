package service

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	id "alumnireg/pkg/domain"
	dErrors "alumnireg/pkg/domain-errors"
)

// Stores are the stores one payment unit of work writes through.
type Stores struct {
	Transactions  TransactionStore
	Registrations RegistrationStore
}

// StoreTx runs fn as one unit of work. Postgres wraps a database transaction
// and hands fn a ctx carrying it; in memory it is a per-registration lock.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

const (
	numPaymentShards        = 64
	defaultPaymentTxTimeout = 5 * time.Second
)

type txRegistrationKey struct{}

// withRegistration tells the in-memory runner which shard to lock.
func withRegistration(ctx context.Context, regID id.RegistrationID) context.Context {
	return context.WithValue(ctx, txRegistrationKey{}, regID)
}

// ShardedTx serializes payment units of work per registration. Steps already
// written stay written when fn fails; fn compensates where a leftover would be
// wrong, and otherwise an unapplied transaction is left for ReconcilePending.
type ShardedTx struct {
	shards  [numPaymentShards]sync.Mutex
	stores  Stores
	timeout time.Duration
}

func NewShardedTx(stores Stores, timeout time.Duration) *ShardedTx {
	return &ShardedTx{stores: stores, timeout: timeout}
}

func (t *ShardedTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultPaymentTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := t.selectShard(ctx)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx, t.stores)
}

func (t *ShardedTx) selectShard(ctx context.Context) int {
	regID, ok := ctx.Value(txRegistrationKey{}).(id.RegistrationID)
	if !ok {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(regID.String()))
	return int(h.Sum32() % numPaymentShards)
}
