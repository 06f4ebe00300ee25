package grpckv

import (
	"fmt"

	"xdao.co/ovm/internal/wire"
	"xdao.co/ovm/storage"
)

// Field numbers of the wire payloads carried inside BytesValue.
const (
	fieldKey   = 1
	fieldValue = 2

	fieldOp     = 1
	fieldOpKind = 3

	fieldPrefix     = 1
	fieldStartAfter = 2
	fieldLimit      = 3

	fieldEntry = 1
	fieldMore  = 2
)

func encodeKV(key, value []byte) []byte {
	b := wire.AppendBytes(nil, fieldKey, key)
	return wire.AppendBytes(b, fieldValue, value)
}

func decodeKV(b []byte) (key, value []byte, err error) {
	fs, err := wire.Parse(b)
	if err != nil {
		return nil, nil, err
	}
	key, _ = fs.Bytes(fieldKey)
	value, _ = fs.Bytes(fieldValue)
	return key, value, nil
}

func encodeOps(ops []storage.Op) []byte {
	var b []byte
	for _, op := range ops {
		var ob []byte
		ob = wire.AppendBytes(ob, fieldKey, op.Key)
		ob = wire.AppendBytes(ob, fieldValue, op.Value)
		ob = wire.AppendUint(ob, fieldOpKind, uint64(op.Kind))
		b = wire.AppendBytes(b, fieldOp, ob)
	}
	return b
}

func decodeOps(b []byte) ([]storage.Op, error) {
	fs, err := wire.Parse(b)
	if err != nil {
		return nil, err
	}
	raw := fs.All(fieldOp)
	ops := make([]storage.Op, 0, len(raw))
	for _, r := range raw {
		ofs, err := wire.Parse(r)
		if err != nil {
			return nil, err
		}
		kind, _ := ofs.Uint(fieldOpKind)
		if kind != uint64(storage.OpPut) && kind != uint64(storage.OpDelete) {
			return nil, fmt.Errorf("%w: op kind %d", wire.ErrMalformed, kind)
		}
		key, _ := ofs.Bytes(fieldKey)
		value, _ := ofs.Bytes(fieldValue)
		ops = append(ops, storage.Op{Kind: storage.OpKind(kind), Key: key, Value: value})
	}
	return ops, nil
}

type pageRequest struct {
	Prefix     []byte
	StartAfter []byte
	Limit      uint64
}

func (r pageRequest) encode() []byte {
	b := wire.AppendBytes(nil, fieldPrefix, r.Prefix)
	if r.StartAfter != nil {
		b = wire.AppendBytes(b, fieldStartAfter, r.StartAfter)
	}
	return wire.AppendUint(b, fieldLimit, r.Limit)
}

func decodePageRequest(b []byte) (pageRequest, error) {
	fs, err := wire.Parse(b)
	if err != nil {
		return pageRequest{}, err
	}
	var r pageRequest
	r.Prefix, _ = fs.Bytes(fieldPrefix)
	r.StartAfter, _ = fs.Bytes(fieldStartAfter)
	r.Limit, _ = fs.Uint(fieldLimit)
	return r, nil
}

type page struct {
	Entries []storage.KeyValue
	More    bool
}

func (p page) encode() []byte {
	var b []byte
	for _, e := range p.Entries {
		b = wire.AppendBytes(b, fieldEntry, encodeKV(e.Key, e.Value))
	}
	return wire.AppendBool(b, fieldMore, p.More)
}

func decodePage(b []byte) (page, error) {
	fs, err := wire.Parse(b)
	if err != nil {
		return page{}, err
	}
	var p page
	for _, raw := range fs.All(fieldEntry) {
		k, v, err := decodeKV(raw)
		if err != nil {
			return page{}, err
		}
		p.Entries = append(p.Entries, storage.KeyValue{Key: k, Value: v})
	}
	p.More = fs.Bool(fieldMore)
	return p, nil
}
