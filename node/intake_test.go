package node

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"xdao.co/ovm/keys"
	"xdao.co/ovm/messages"
	"xdao.co/ovm/model"
	"xdao.co/ovm/ovm"
	"xdao.co/ovm/pubsub"
	"xdao.co/ovm/storage/badgerkv"
)

type fixture struct {
	msgs   *messages.Store
	client *pubsub.Client
	priv   ed25519.PrivateKey
	addr   string
}

func setup(t *testing.T) fixture {
	t.Helper()
	db, err := badgerkv.OpenInMemory()
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	in := &Intake{
		Messages: messages.NewStore(db),
		Executor: ovm.NewExecutor(db, ovm.WithLogger(log)),
		Log:      log,
	}
	srv := pubsub.NewServer(in, log)
	in.Relay = srv.Broadcast
	hs := httptest.NewServer(srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := pubsub.Dial(ctx, "ws"+strings.TrimPrefix(hs.URL, "http"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = c.Close()
		_ = srv.Close()
		hs.Close()
		_ = db.Close()
	})

	seed := make([]byte, ed25519.SeedSize)
	seed[0] = 7
	return fixture{msgs: in.Messages, client: c, priv: ed25519.NewKeyFromSeed(seed), addr: keys.AddressFromSeed(seed)}
}

func TestIntakeStoresAndRelaysMessages(t *testing.T) {
	f := setup(t)
	sm := messages.Sign(messages.Message{Channel: "c", Sender: f.addr, Nonce: 3, Body: []byte("b")}, f.priv)

	require.NoError(t, f.client.Publish(pubsub.Message{Topic: TopicMessage, Payload: sm.Encode()}))

	// The relay reaches the publisher too; it precedes the ack.
	relayed, err := f.client.Next()
	require.NoError(t, err)
	require.Equal(t, TopicMessage, relayed.Topic)
	ack, err := f.client.Next()
	require.NoError(t, err)
	require.Equal(t, TopicAck, ack.Topic)

	got, err := f.msgs.Get(f.addr, 3)
	require.NoError(t, err)
	require.Equal(t, sm.Encode(), got.Encode())
}

func TestIntakeRejectsForgedMessages(t *testing.T) {
	f := setup(t)
	sm := messages.Sign(messages.Message{Sender: f.addr, Nonce: 1}, f.priv)
	sm.Message.Nonce = 2

	reply, err := f.client.Request(pubsub.Message{Topic: TopicMessage, Payload: sm.Encode()})
	require.NoError(t, err)
	require.Equal(t, TopicError, reply.Topic)

	reply, err = f.client.Request(pubsub.Message{Topic: "gossip"})
	require.NoError(t, err)
	require.Equal(t, TopicError, reply.Topic)
}

func TestIntakeDecides(t *testing.T) {
	f := setup(t)
	msg := []byte("close channel at state 9")
	req := model.DecideRequest{
		Property: model.Property{Type: "signed_by", Message: msg, PublicKey: f.addr},
		Witness:  &model.Witness{Type: model.WitnessSignature, Bytes: keys.SignEd25519(msg, f.priv)},
	}
	payload, err := json.Marshal(req)
	require.NoError(t, err)

	reply, err := f.client.Request(pubsub.Message{Topic: TopicDecide, Payload: payload})
	require.NoError(t, err)
	require.Equal(t, TopicDecision, reply.Topic)

	var resp model.DecideResponse
	require.NoError(t, json.Unmarshal(reply.Payload, &resp))
	require.Equal(t, model.StateTrue, resp.State)

	req.Witness.Bytes = []byte("forged")
	payload, _ = json.Marshal(req)
	reply, err = f.client.Request(pubsub.Message{Topic: TopicDecide, Payload: payload})
	require.NoError(t, err)
	require.Equal(t, TopicError, reply.Topic)
	var ce model.CodedError
	require.NoError(t, json.Unmarshal(reply.Payload, &ce))
	require.Equal(t, model.ErrInvalidPreimage, ce.Code)
}

func TestIntakeRejectsOversizedQuantifier(t *testing.T) {
	f := setup(t)
	ph := []byte("$n")
	req := model.DecideRequest{Property: model.Property{
		Type:        "for_all_such_that",
		Quantifier:  &model.Quantifier{Type: model.QuantifierIntegerRange, End: 1 << 62},
		Placeholder: ph,
		Predicate:   &model.Property{Type: "preimage_exists", Hash: ph},
	}}
	payload, err := json.Marshal(req)
	require.NoError(t, err)

	reply, err := f.client.Request(pubsub.Message{Topic: TopicDecide, Payload: payload})
	require.NoError(t, err)
	require.Equal(t, TopicError, reply.Topic)
	var ce model.CodedError
	require.NoError(t, json.Unmarshal(reply.Payload, &ce))
	require.Equal(t, model.ErrInvalidRequest, ce.Code)
	require.Equal(t, "OVM-INPUT-009", ce.RuleID)
}
