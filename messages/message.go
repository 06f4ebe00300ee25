// Package messages models the signed channel messages exchanged between
// participants and keeps them in a sender/nonce indexed store.
package messages

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"xdao.co/ovm/internal/wire"
	"xdao.co/ovm/keys"
)

var ErrMalformed = errors.New("messages: malformed message")

// Message is one state message on a channel. Sender is a keys address.
type Message struct {
	Channel string
	Sender  string
	Nonce   uint64
	Body    []byte
}

const (
	fieldChannel = 1
	fieldSender  = 2
	fieldNonce   = 3
	fieldBody    = 4

	fieldMessage   = 1
	fieldSignature = 2
)

// Encode returns the canonical bytes of m. These are the bytes that get signed.
func (m Message) Encode() []byte {
	b := wire.AppendString(nil, fieldChannel, m.Channel)
	b = wire.AppendString(b, fieldSender, m.Sender)
	b = wire.AppendUint(b, fieldNonce, m.Nonce)
	return wire.AppendBytes(b, fieldBody, m.Body)
}

func Decode(b []byte) (Message, error) {
	fs, err := wire.Parse(b)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !fs.Has(fieldSender) || !fs.Has(fieldNonce) {
		return Message{}, fmt.Errorf("%w: missing sender or nonce", ErrMalformed)
	}
	m := Message{
		Channel: fs.String(fieldChannel),
		Sender:  fs.String(fieldSender),
	}
	m.Nonce, _ = fs.Uint(fieldNonce)
	m.Body, _ = fs.Bytes(fieldBody)
	return m, nil
}

// SignedMessage is a Message with its sender's signature over Message.Encode().
type SignedMessage struct {
	Message   Message
	Signature []byte
}

// Sign signs m with an ed25519 key. m.Sender must be the key's address.
func Sign(m Message, priv ed25519.PrivateKey) SignedMessage {
	return SignedMessage{Message: m, Signature: keys.SignEd25519(m.Encode(), priv)}
}

// Verify checks the signature against Message.Sender.
func (s SignedMessage) Verify() error {
	return keys.Verify(s.Message.Sender, s.Message.Encode(), s.Signature)
}

func (s SignedMessage) Encode() []byte {
	b := wire.AppendBytes(nil, fieldMessage, s.Message.Encode())
	return wire.AppendBytes(b, fieldSignature, s.Signature)
}

func DecodeSigned(b []byte) (SignedMessage, error) {
	fs, err := wire.Parse(b)
	if err != nil {
		return SignedMessage{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	raw, ok := fs.Bytes(fieldMessage)
	if !ok {
		return SignedMessage{}, fmt.Errorf("%w: missing message", ErrMalformed)
	}
	m, err := Decode(raw)
	if err != nil {
		return SignedMessage{}, err
	}
	sig, _ := fs.Bytes(fieldSignature)
	return SignedMessage{Message: m, Signature: sig}, nil
}
