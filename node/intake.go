// Package node connects the pubsub transport to the message store and the
// decision engine.
package node

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"xdao.co/ovm/messages"
	"xdao.co/ovm/model"
	"xdao.co/ovm/ovm"
	"xdao.co/ovm/pubsub"
)

// Topics understood by Intake.
const (
	// TopicMessage carries an encoded messages.SignedMessage. Accepted
	// messages are acknowledged and relayed to every peer.
	TopicMessage = "message"
	// TopicDecide carries a JSON model.DecideRequest; the reply is a
	// TopicDecision frame with a JSON model.DecideResponse.
	TopicDecide   = "decide"
	TopicDecision = "decision"
	TopicAck      = "ack"
	// TopicError frames carry a JSON model.CodedError.
	TopicError = "error"
)

// Intake is the pubsub.Handler of a node.
type Intake struct {
	Messages *messages.Store
	Executor *ovm.Executor
	Log      *zap.Logger
	// Relay, when set, forwards accepted messages to peers.
	Relay func(pubsub.Message) error
}

var _ pubsub.Handler = (*Intake)(nil)

func (in *Intake) logger() *zap.Logger {
	if in.Log == nil {
		return zap.NewNop()
	}
	return in.Log
}

func (in *Intake) HandleOpen(from pubsub.Sender) {
	in.logger().Info("peer connected", zap.String("conn", from.ID()))
}

func (in *Intake) HandleClose(from pubsub.Sender) {
	in.logger().Info("peer disconnected", zap.String("conn", from.ID()))
}

func (in *Intake) HandleMessage(ctx context.Context, msg pubsub.Message, from pubsub.Sender) {
	log := in.logger().With(zap.String("conn", from.ID()), zap.String("topic", msg.Topic))
	var reply pubsub.Message
	switch msg.Topic {
	case TopicMessage:
		reply = in.storeMessage(log, msg)
	case TopicDecide:
		reply = in.decide(ctx, msg)
	default:
		reply = errorFrame(model.NewError(model.ErrInvalidRequest, "unknown topic "+msg.Topic))
	}
	if err := from.Send(reply); err != nil {
		log.Warn("reply failed", zap.Error(err))
	}
}

func (in *Intake) storeMessage(log *zap.Logger, msg pubsub.Message) pubsub.Message {
	sm, err := messages.DecodeSigned(msg.Payload)
	if err != nil {
		return errorFrame(model.NewError(model.ErrInvalidRequest, err.Error()))
	}
	if err := in.Messages.Put(sm); err != nil {
		log.Warn("message rejected", zap.String("sender", sm.Message.Sender), zap.Error(err))
		return errorFrame(model.NewError(model.ErrInvalidRequest, err.Error()))
	}
	log.Debug("message stored", zap.String("sender", sm.Message.Sender), zap.Uint64("nonce", sm.Message.Nonce))
	if in.Relay != nil {
		if err := in.Relay(msg); err != nil {
			log.Warn("relay failed", zap.Error(err))
		}
	}
	return pubsub.Message{Topic: TopicAck, Payload: msg.Payload}
}

func (in *Intake) decide(ctx context.Context, msg pubsub.Message) pubsub.Message {
	var req model.DecideRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return errorFrame(model.NewError(model.ErrInvalidRequest, err.Error()))
	}
	resp, err := model.Decide(ctx, in.Executor, req)
	if err != nil {
		return errorFrame(err)
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return errorFrame(model.NewError(model.ErrInternal, err.Error()))
	}
	return pubsub.Message{Topic: TopicDecision, Payload: b}
}

func errorFrame(err error) pubsub.Message {
	ce, ok := err.(*model.CodedError)
	if !ok {
		ce = model.NewError(model.ErrInternal, err.Error())
	}
	b, _ := json.Marshal(ce)
	return pubsub.Message{Topic: TopicError, Payload: b}
}
