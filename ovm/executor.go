package ovm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"xdao.co/ovm/commitment"
	"xdao.co/ovm/messages"
	"xdao.co/ovm/storage"
)

// Executor evaluates properties against a key-value store.
//
// The store is the only shared state. Evaluation itself is synchronous and
// allocates no goroutines; an Executor is safe for concurrent use when its
// store is.
type Executor struct {
	db          storage.KeyValueStore
	log         *zap.Logger
	metrics     *Metrics
	messages    *messages.Store
	commitments *commitment.Store
	maxItems    uint64

	// replay is non-nil while re-deriving a proof: leaves take their witness
	// from it and the decision cache is neither read nor written.
	replay map[string]Witness
}

// DefaultMaxQuantifiedItems bounds the items one quantifier may enumerate.
const DefaultMaxQuantifiedItems = 1 << 16

type Option func(*Executor)

// WithMaxQuantifiedItems overrides DefaultMaxQuantifiedItems. Quantifiers
// yielding more items fail with KindInvalidInput (OVM-INPUT-009).
func WithMaxQuantifiedItems(n uint64) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxItems = n
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(e *Executor) {
		if log != nil {
			e.log = log
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithMessages overrides the message store SignedByRange enumerates.
func WithMessages(s *messages.Store) Option {
	return func(e *Executor) { e.messages = s }
}

// WithCommitments overrides the store interval tree roots are read from.
func WithCommitments(s *commitment.Store) Option {
	return func(e *Executor) { e.commitments = s }
}

// NewExecutor returns an executor persisting decisions in db. Unless
// overridden, messages and commitments live in their own buckets of db.
func NewExecutor(db storage.KeyValueStore, opts ...Option) *Executor {
	e := &Executor{db: db, log: zap.NewNop(), maxItems: DefaultMaxQuantifiedItems}
	for _, opt := range opts {
		opt(e)
	}
	if e.messages == nil {
		e.messages = messages.NewStore(db)
	}
	if e.commitments == nil {
		e.commitments = commitment.NewStore(db)
	}
	return e
}

// Decide evaluates p with witness w. An error of KindUndecided means p can
// not be decided yet; any other error means the input or the store is bad.
func (e *Executor) Decide(ctx context.Context, p Property, w Witness) (Decision, error) {
	return e.decide(ctx, p, w)
}

// CheckDecision evaluates p from cached leaf decisions only.
func (e *Executor) CheckDecision(ctx context.Context, p Property) (Decision, error) {
	return e.check(ctx, p)
}

// GetAllQuantified enumerates q.
func (e *Executor) GetAllQuantified(ctx context.Context, q Quantifier) (QuantifierResult, error) {
	if err := ctx.Err(); err != nil {
		return QuantifierResult{}, err
	}
	if q == nil {
		return QuantifierResult{}, newError(KindInvalidInput, "OVM-INPUT-001", "nil quantifier")
	}
	return q.quantify(ctx, e)
}

func (e *Executor) decide(ctx context.Context, p Property, w Witness) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	if p == nil {
		return Decision{}, newError(KindInvalidInput, "OVM-INPUT-001", "nil property")
	}
	d, err := p.decide(ctx, e, w)
	e.observe("decide", p, d, err)
	return d, err
}

func (e *Executor) check(ctx context.Context, p Property) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	if p == nil {
		return Decision{}, newError(KindInvalidInput, "OVM-INPUT-001", "nil property")
	}
	d, err := p.checkDecision(ctx, e)
	e.observe("check", p, d, err)
	return d, err
}

func (e *Executor) observe(op string, p Property, d Decision, err error) {
	e.metrics.observeDecision(p.Type(), d, err)
	if ce := e.log.Check(zap.DebugLevel, op); ce != nil {
		fields := []zap.Field{
			zap.Stringer("type", p.Type()),
			zap.String("outcome", resultLabel(d, err)),
			zap.Bool("replay", e.replay != nil),
		}
		// Invalid input may hold nil children, which have no encoding.
		if !IsKind(err, KindInvalidInput) {
			fields = append(fields, zap.Stringer("property", PropertyID(p)))
		}
		ce.Write(fields...)
	}
}

func (e *Executor) tooManyItems(n uint64) error {
	return newError(KindInvalidInput, "OVM-INPUT-009",
		fmt.Sprintf("quantifier yields %d items, limit is %d", n, e.maxItems))
}

// bucket is the prefix-isolated keyspace of one decider kind.
func (e *Executor) bucket(t PropertyType) *storage.Bucket {
	return storage.NewBucket(e.db, []byte("decisions/"+t.String()+"/"))
}

// leafProperty is implemented by every variant whose truth is established by
// checking evidence rather than by combining sub-decisions.
type leafProperty interface {
	Property
	needsWitness() bool
	verify(ctx context.Context, e *Executor, w Witness) (bool, error)
}

func (e *Executor) decideLeaf(ctx context.Context, p leafProperty, w Witness) (Decision, error) {
	if w == nil && p.needsWitness() {
		if e.replay == nil {
			return e.checkLeaf(ctx, p)
		}
		rw, ok := e.replay[PropertyID(p).KeyString()]
		if !ok {
			return Decision{}, newError(KindUndecided, "OVM-UNDECIDED-005", "proof carries no witness for leaf")
		}
		w = rw
	}
	ok, err := p.verify(ctx, e, w)
	if err != nil {
		return Decision{}, err
	}
	// A witness-free leaf is a pure function of its parameters, so its false
	// outcome is as final as a true one. Other leaves may still be proven
	// later with a better witness.
	if (ok || !p.needsWitness()) && e.replay == nil {
		if err := e.persist(p, DecisionValue{Decision: ok, Witness: w}); err != nil {
			return Decision{}, err
		}
	}
	return leafDecision(p, ok, w), nil
}

func (e *Executor) checkLeaf(_ context.Context, p Property) (Decision, error) {
	if e.replay != nil {
		return Decision{}, newError(KindUndecided, "OVM-UNDECIDED-005", "proof carries no witness for leaf")
	}
	b, err := e.bucket(p.Type()).Get(PropertyID(p).Bytes())
	if storage.IsNotFound(err) {
		e.metrics.observeLookup("miss")
		return Decision{}, newError(KindUndecided, "OVM-UNDECIDED-001", "no decision recorded")
	}
	if err != nil {
		e.metrics.observeLookup("error")
		return Decision{}, wrapError(KindStore, "OVM-STORE-001", "read decision", err)
	}
	v, err := DecodeDecisionValue(b)
	if err != nil {
		e.metrics.observeLookup("error")
		return Decision{}, err
	}
	e.metrics.observeLookup("hit")
	return leafDecision(p, v.Decision, v.Witness), nil
}

func (e *Executor) persist(p Property, v DecisionValue) error {
	if err := e.bucket(p.Type()).Put(PropertyID(p).Bytes(), EncodeDecisionValue(v)); err != nil {
		return wrapError(KindStore, "OVM-STORE-002", "write decision", err)
	}
	return nil
}
