package ovm

import (
	"context"

	"xdao.co/ovm/storage"
)

// QuantifierType tags a Quantifier variant in its canonical encoding.
type QuantifierType uint8

const (
	QuantIntegerRange QuantifierType = iota + 1
	QuantSignedByRange
)

// Quantifier defines the set a ForAllSuchThat ranges over. Quantifiers are
// pure functions of their parameters and the executor's stores; results are
// never cached.
type Quantifier interface {
	Type() QuantifierType

	appendTo(b []byte) []byte
	quantify(ctx context.Context, e *Executor) (QuantifierResult, error)
	contains(ctx context.Context, e *Executor, item Item) (bool, error)
}

// QuantifierResult is the enumerated set. AllItemsCovered is false when Items
// may be a partial view; a universal claim must not be concluded from it.
type QuantifierResult struct {
	Items           []Item
	AllItemsCovered bool
}

// IntegerRange is the half-open range [Start, End). It is always complete.
type IntegerRange struct {
	Start uint64
	End   uint64
}

// SignedByRange is every stored message from Signer with Start <= nonce < End.
// End == 0 means unbounded. The set is complete only when End != 0 and the
// message store attests coverage of Signer up to at least End.
type SignedByRange struct {
	Signer string
	Start  uint64
	End    uint64
}

func (IntegerRange) Type() QuantifierType  { return QuantIntegerRange }
func (SignedByRange) Type() QuantifierType { return QuantSignedByRange }

func (r IntegerRange) quantify(ctx context.Context, e *Executor) (QuantifierResult, error) {
	if r.End < r.Start {
		return QuantifierResult{}, newError(KindInvalidInput, "OVM-INPUT-007", "integer range ends before it starts")
	}
	if n := r.End - r.Start; n > e.maxItems {
		return QuantifierResult{}, e.tooManyItems(n)
	}
	items := make([]Item, 0, r.End-r.Start)
	for i := r.Start; i < r.End; i++ {
		if (i-r.Start)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return QuantifierResult{}, err
			}
		}
		items = append(items, IntegerItem(i))
	}
	return QuantifierResult{Items: items, AllItemsCovered: true}, nil
}

func (r IntegerRange) contains(_ context.Context, _ *Executor, item Item) (bool, error) {
	n, ok := item.(IntegerItem)
	return ok && uint64(n) >= r.Start && uint64(n) < r.End, nil
}

func (r SignedByRange) quantify(ctx context.Context, e *Executor) (QuantifierResult, error) {
	msgs, err := e.messages.SignedBy(r.Signer, r.Start, r.End)
	if err != nil {
		return QuantifierResult{}, wrapError(KindStore, "OVM-STORE-003", "list signed messages", err)
	}
	if n := uint64(len(msgs)); n > e.maxItems {
		return QuantifierResult{}, e.tooManyItems(n)
	}
	items := make([]Item, len(msgs))
	for i, m := range msgs {
		items[i] = MessageItem{Signed: m}
	}
	covered := false
	if r.End != 0 {
		c, err := e.messages.Coverage(r.Signer)
		if err != nil {
			return QuantifierResult{}, wrapError(KindStore, "OVM-STORE-004", "read message coverage", err)
		}
		covered = c >= r.End
	}
	return QuantifierResult{Items: items, AllItemsCovered: covered}, nil
}

// contains requires the exact stored message, so a counter-example cannot be
// forged from an unsigned or altered message.
func (r SignedByRange) contains(_ context.Context, e *Executor, item Item) (bool, error) {
	m, ok := item.(MessageItem)
	if !ok {
		return false, nil
	}
	msg := m.Signed.Message
	if msg.Sender != r.Signer || msg.Nonce < r.Start || (r.End != 0 && msg.Nonce >= r.End) {
		return false, nil
	}
	stored, err := e.messages.Get(msg.Sender, msg.Nonce)
	if storage.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, wrapError(KindStore, "OVM-STORE-005", "read signed message", err)
	}
	return itemsEqual(MessageItem{Signed: stored}, m), nil
}
