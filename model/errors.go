package model

import (
	"context"
	"errors"
	"fmt"

	"xdao.co/ovm/ovm"
)

type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrInvalidWitness  ErrorCode = "INVALID_WITNESS"
	ErrInvalidPreimage ErrorCode = "INVALID_PREIMAGE"
	ErrCodec           ErrorCode = "CODEC"
	ErrStore           ErrorCode = "STORE"
	ErrNotImplemented  ErrorCode = "NOT_IMPLEMENTED"
	ErrCanceled        ErrorCode = "CANCELED"
	ErrInternal        ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human message.
// RuleID carries the engine rule when the error came from the engine.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	RuleID  string    `json:"ruleID,omitempty"`
	Message string    `json:"message"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	if e.RuleID != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.RuleID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

var kindCodes = map[ovm.Kind]ErrorCode{
	ovm.KindInvalidInput:    ErrInvalidRequest,
	ovm.KindInvalidWitness:  ErrInvalidWitness,
	ovm.KindInvalidPreimage: ErrInvalidPreimage,
	ovm.KindCodec:           ErrCodec,
	ovm.KindStore:           ErrStore,
	ovm.KindNotImplemented:  ErrNotImplemented,
}

// mapErr converts engine errors to coded errors. Undecided is not an error at
// this boundary and must be handled before calling mapErr.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrCanceled, err.Error())
	}
	if code, ok := kindCodes[ovm.KindOf(err)]; ok {
		return &CodedError{Code: code, RuleID: ovm.RuleID(err), Message: err.Error()}
	}
	return NewError(ErrInternal, err.Error())
}
