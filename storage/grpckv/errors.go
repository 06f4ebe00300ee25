package grpckv

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/ovm/storage"
)

func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return storage.ErrNotFound
	case codes.InvalidArgument:
		if st.Message() == storage.ErrEmptyKey.Error() {
			return storage.ErrEmptyKey
		}
		return err
	case codes.Unavailable:
		if st.Message() == storage.ErrClosed.Error() {
			return storage.ErrClosed
		}
		return err
	default:
		return err
	}
}
