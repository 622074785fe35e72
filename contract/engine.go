package contract

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ganjes_dao/contract/dao"
	"ganjes_dao/sdk"
)

// Engine is the single writer over the proposal store. Every state changing
// call holds the write lock from validation to commit; views take the read lock.
type Engine struct {
	mu       sync.RWMutex
	state    sdk.State
	ledger   sdk.Ledger
	self     common.Address
	clock    sdk.Clock
	log      *zap.Logger
	sink     dao.Sink
	metrics  *Metrics
	settings Settings
	queue    *dueQueue
}

// Option tweaks an Engine at construction.
type Option func(*Engine)

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.log = l } }
func WithClock(c sdk.Clock) Option    { return func(e *Engine) { e.clock = c } }
func WithSink(s dao.Sink) Option      { return func(e *Engine) { e.sink = s } }
func WithMetrics(m *Metrics) Option   { return func(e *Engine) { e.metrics = m } }

// New opens the engine over state. An empty store is seeded from genesis; a
// store that already holds genesis ignores the argument and keeps its settings.
func New(state sdk.State, ledger sdk.Ledger, self common.Address, genesis *Genesis, opts ...Option) (*Engine, error) {
	if self == sdk.ZeroAddress {
		return nil, fmt.Errorf("engine address must be set")
	}
	e := &Engine{
		state:  state,
		ledger: ledger,
		self:   self,
		clock:  sdk.SystemClock{},
		log:    zap.NewNop(),
		sink:   dao.NopSink{},
		queue:  newDueQueue(),
	}
	for _, opt := range opts {
		opt(e)
	}

	d := newDiff(state)
	ok, err := isInitialized(d)
	if err != nil {
		return nil, err
	}
	if !ok {
		if genesis == nil {
			return nil, fmt.Errorf("store is empty and no genesis was given")
		}
		if err := e.writeGenesis(d, genesis); err != nil {
			return nil, err
		}
		if err := state.Apply(d.batch()); err != nil {
			return nil, fmt.Errorf("write genesis: %w", err)
		}
		e.log.Info("genesis written",
			zap.Int("admins", len(genesis.Admins)),
			zap.Uint64("requiredApprovals", genesis.Settings.RequiredApprovals),
			zap.Stringer("quorumRule", genesis.Settings.QuorumRule),
		)
	}
	settings, err := loadSettings(newDiff(state))
	if err != nil {
		return nil, err
	}
	e.settings = *settings
	if err := e.rebuildQueue(); err != nil {
		return nil, err
	}
	e.log.Info("engine ready",
		zap.String("address", self.Hex()),
		zap.Int("openProposals", e.queue.len()),
	)
	return e, nil
}

func (e *Engine) writeGenesis(d *diff, g *Genesis) error {
	if err := g.validate(); err != nil {
		return err
	}
	saveSettings(d, &g.Settings)
	params := g.Params
	saveParams(d, &params)
	for _, a := range g.Admins {
		if a == sdk.ZeroAddress {
			return fail(ErrInvalidInput, "zero admin address")
		}
		if err := addAdmin(d, a); err != nil {
			return err
		}
	}
	saveStatus(d, &Status{FeeRefundable: g.FeeRefundable})
	saveAccounting(d, &Accounting{})
	return nil
}

// rebuildQueue loads every unexecuted proposal into the due queue.
func (e *Engine) rebuildQueue() error {
	d := newDiff(e.state)
	count, err := proposalCount(d)
	if err != nil {
		return err
	}
	for id := uint64(1); id <= count; id++ {
		p, err := loadProposal(d, id)
		if err != nil {
			return err
		}
		if !p.Executed {
			e.queue.add(p.EndTime, p.ID)
		}
	}
	return nil
}

// Address is the engine's custody account on the ledger.
func (e *Engine) Address() common.Address { return e.self }

// Settings returns the immutable deployment bounds.
func (e *Engine) Settings() Settings { return e.settings }

// Now is the engine clock, exposed for views and the cli.
func (e *Engine) Now() int64 { return e.clock.Now() }

// -----------------------------------------------------------------------------
// Transactions
// -----------------------------------------------------------------------------

// txn is one state changing call: staged writes, pending events and queue moves.
type txn struct {
	e      *Engine
	d      *diff
	now    int64
	tx     string
	events []dao.Event
	queue  []queueOp
	after  []func()
}

func (e *Engine) begin() *txn {
	return &txn{e: e, d: newDiff(e.state), now: e.clock.Now(), tx: uuid.NewString()}
}

// child stages into a fork so a failing sub step can be dropped.
func (t *txn) child() *txn {
	return &txn{e: t.e, d: t.d.fork(), now: t.now, tx: t.tx}
}

func (t *txn) absorb(c *txn) {
	t.d.merge(c.d)
	t.events = append(t.events, c.events...)
	t.queue = append(t.queue, c.queue...)
	t.after = append(t.after, c.after...)
}

func (t *txn) emit(ev dao.Event) { t.events = append(t.events, ev) }

func (t *txn) enqueue(end int64, id uint64) {
	t.queue = append(t.queue, queueOp{add: true, end: end, id: id})
}

func (t *txn) dequeue(end int64, id uint64) {
	t.queue = append(t.queue, queueOp{end: end, id: id})
}

func (t *txn) onCommit(fn func()) { t.after = append(t.after, fn) }

// commit writes the staged diff in one batch, then replays queue moves,
// publishes events and runs metric hooks.
func (t *txn) commit(ctx context.Context) error {
	e := t.e
	seq, err := getCount(t.d, EventsCount)
	if err != nil {
		return err
	}
	if len(t.events) > 0 {
		setCount(t.d, EventsCount, seq+uint64(len(t.events)))
	}
	if !t.d.empty() {
		if err := e.state.Apply(t.d.batch()); err != nil {
			e.log.Error("commit failed", zap.String("tx", t.tx), zap.Error(err))
			return fmt.Errorf("commit %s: %w", t.tx, err)
		}
	}
	for _, op := range t.queue {
		if op.add {
			e.queue.add(op.end, op.id)
		} else {
			e.queue.remove(op.end, op.id)
		}
	}
	for i, ev := range t.events {
		rec := dao.Record{Seq: seq + uint64(i) + 1, Tx: t.tx, At: t.now, Event: ev}
		if err := e.sink.Publish(ctx, rec); err != nil {
			e.log.Warn("event publish failed", zap.String("kind", ev.Kind()), zap.Uint64("seq", rec.Seq), zap.Error(err))
		}
	}
	for _, fn := range t.after {
		fn()
	}
	if e.metrics != nil {
		if acc, err := loadAccounting(newDiff(e.state)); err == nil {
			e.metrics.observe(acc, e.queue.len())
		}
	}
	e.log.Debug("committed", zap.String("tx", t.tx), zap.Int("events", len(t.events)))
	return nil
}

// reject records a refused call and hands the error back.
func (e *Engine) reject(op string, err error) error {
	e.metrics.rejected(err)
	if KindOf(err) == KindLedger {
		e.log.Warn("ledger refused transfer", zap.String("op", op), zap.Error(err))
	} else {
		e.log.Debug("call rejected", zap.String("op", op), zap.Error(err))
	}
	return err
}

// -----------------------------------------------------------------------------
// Ledger access
// -----------------------------------------------------------------------------

func (e *Engine) balanceOf(ctx context.Context, who common.Address) (Amount, error) {
	bal, err := e.ledger.BalanceOf(ctx, who)
	if err != nil {
		return 0, ledgerFail("balanceOf", err)
	}
	return bal, nil
}

func (e *Engine) allowanceOf(ctx context.Context, owner common.Address) (Amount, error) {
	alw, err := e.ledger.Allowance(ctx, owner, e.self)
	if err != nil {
		return 0, ledgerFail("allowance", err)
	}
	return alw, nil
}

// pull moves tokens from owner into custody. It is the commit point of the
// calling operation: nothing is staged for the store unless it succeeds.
func (e *Engine) pull(ctx context.Context, owner common.Address, amount Amount) error {
	if amount <= 0 {
		return nil
	}
	if err := e.ledger.TransferFrom(ctx, e.self, owner, e.self, amount); err != nil {
		return ledgerFail("transferFrom", err)
	}
	return nil
}

// pay moves tokens out of custody.
func (e *Engine) pay(ctx context.Context, to common.Address, amount Amount) error {
	if amount <= 0 {
		return nil
	}
	if err := e.ledger.Transfer(ctx, e.self, to, amount); err != nil {
		return ledgerFail("transfer", err)
	}
	return nil
}

// DAOBalance is the engine's custody balance as the ledger sees it.
func (e *Engine) DAOBalance(ctx context.Context) (Amount, error) {
	return e.balanceOf(ctx, e.self)
}
