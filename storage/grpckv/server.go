package grpckv

import (
	"bytes"
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/ovm/storage"
)

// DefaultPageSize bounds the entries returned by one Iterate RPC.
const DefaultPageSize = 256

// Server exposes a storage.KeyValueStore over the KV gRPC service.
type Server struct {
	UnimplementedKVServer
	Store storage.KeyValueStore
	Log   *zap.Logger

	// PageSize caps Iterate pages; DefaultPageSize when zero.
	PageSize int
}

func (s *Server) store() (storage.KeyValueStore, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	return s.Store, nil
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	v, err := st.Get(in.GetValue())
	if err != nil {
		return nil, s.mapErr("Get", err)
	}
	return wrapperspb.Bytes(v), nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	ok, err := st.Has(in.GetValue())
	if err != nil {
		return nil, s.mapErr("Has", err)
	}
	return wrapperspb.Bool(ok), nil
}

func (s *Server) Put(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	k, v, err := decodeKV(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := st.Put(k, v); err != nil {
		return nil, s.mapErr("Put", err)
	}
	return wrapperspb.Bool(true), nil
}

func (s *Server) Delete(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	if err := st.Delete(in.GetValue()); err != nil {
		return nil, s.mapErr("Delete", err)
	}
	return wrapperspb.Bool(true), nil
}

func (s *Server) Batch(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	ops, err := decodeOps(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := st.Batch(ops); err != nil {
		return nil, s.mapErr("Batch", err)
	}
	return wrapperspb.Bool(true), nil
}

// Iterate returns one page of entries under the prefix, strictly after
// StartAfter. The client drives paging and applies its visit callback locally.
func (s *Server) Iterate(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	req, err := decodePageRequest(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	limit := s.PageSize
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if req.Limit > 0 && int(req.Limit) < limit {
		limit = int(req.Limit)
	}

	var out page
	_, err = st.Iterate(req.Prefix, func(k, v []byte) bool {
		if req.StartAfter != nil && bytes.Compare(k, req.StartAfter) <= 0 {
			return true
		}
		if len(out.Entries) == limit {
			out.More = true
			return false
		}
		out.Entries = append(out.Entries, storage.KeyValue{Key: k, Value: v})
		return true
	})
	if err != nil {
		return nil, s.mapErr("Iterate", err)
	}
	return wrapperspb.Bytes(out.encode()), nil
}

func (s *Server) mapErr(method string, err error) error {
	switch {
	case err == nil:
		return nil
	case storage.IsNotFound(err):
		return status.Error(codes.NotFound, storage.ErrNotFound.Error())
	case err == storage.ErrEmptyKey:
		return status.Error(codes.InvalidArgument, err.Error())
	case err == storage.ErrClosed:
		return status.Error(codes.Unavailable, err.Error())
	default:
		if s.Log != nil {
			s.Log.Warn("store error", zap.String("method", method), zap.Error(err))
		}
		return status.Error(codes.Internal, err.Error())
	}
}
