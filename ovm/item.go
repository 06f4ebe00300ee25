package ovm

import (
	"bytes"

	"xdao.co/ovm/messages"
)

// Item is one element of a quantified set.
type Item interface {
	// Bytes is what a placeholder in a predicate template is replaced with.
	Bytes() []byte
	itemKind() uint8
}

// IntegerItem binds as its 8 byte big-endian encoding.
type IntegerItem uint64

// MessageItem binds as the encoded channel message (without signature).
type MessageItem struct {
	Signed messages.SignedMessage
}

const (
	itemInteger uint8 = iota + 1
	itemMessage
)

func (i IntegerItem) Bytes() []byte { return Uint64Bytes(uint64(i)) }
func (IntegerItem) itemKind() uint8 { return itemInteger }

func (m MessageItem) Bytes() []byte { return m.Signed.Message.Encode() }
func (MessageItem) itemKind() uint8 { return itemMessage }

func itemsEqual(a, b Item) bool {
	if a == nil || b == nil || a.itemKind() != b.itemKind() {
		return false
	}
	if ai, ok := a.(IntegerItem); ok {
		return ai == b.(IntegerItem)
	}
	return bytes.Equal(a.(MessageItem).Signed.Encode(), b.(MessageItem).Signed.Encode())
}
