package types

import (
	"fmt"

	"github.com/umbracle/fastrlp"
)

type RLPMarshaler interface {
	MarshalRLPTo(dst []byte) []byte
}

type RLPUnmarshaler interface {
	UnmarshalRLP(input []byte) error
}

type marshalRLPFunc func(ar *fastrlp.Arena) *fastrlp.Value

type unmarshalRLPFunc func(p *fastrlp.Parser, v *fastrlp.Value) error

func MarshalRLPTo(obj marshalRLPFunc, dst []byte) []byte {
	ar := fastrlp.DefaultArenaPool.Get()
	dst = obj(ar).MarshalTo(dst)
	fastrlp.DefaultArenaPool.Put(ar)

	return dst
}

func UnmarshalRlp(obj unmarshalRLPFunc, input []byte) error {
	pr := fastrlp.DefaultParserPool.Get()
	defer fastrlp.DefaultParserPool.Put(pr)

	v, err := pr.Parse(input)
	if err != nil {
		return err
	}

	return obj(pr, v)
}

func marshalHashes(ar *fastrlp.Arena, hashes []Hash) *fastrlp.Value {
	if len(hashes) == 0 {
		return ar.NewNullArray()
	}

	vv := ar.NewArray()
	for _, h := range hashes {
		vv.Set(ar.NewCopyBytes(h.Bytes()))
	}

	return vv
}

func unmarshalHashes(v *fastrlp.Value) ([]Hash, error) {
	elems, err := v.GetElems()
	if err != nil {
		return nil, err
	}

	if len(elems) == 0 {
		return nil, nil
	}

	hashes := make([]Hash, len(elems))
	for i, elem := range elems {
		if err := elem.GetHash(hashes[i][:]); err != nil {
			return nil, err
		}
	}

	return hashes, nil
}

func expectElems(v *fastrlp.Value, expected int, name string) ([]*fastrlp.Value, error) {
	elems, err := v.GetElems()
	if err != nil {
		return nil, err
	}

	if len(elems) < expected {
		return nil, fmt.Errorf("incorrect number of elements to decode %s, expected %d but found %d",
			name, expected, len(elems))
	}

	return elems, nil
}
