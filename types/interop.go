package types

import (
	"fmt"

	"github.com/umbracle/fastrlp"
)

// InteropRootKey identifies an interop root: the network root anchoring the chain root
// of SourceChainID at batch height BatchNumber
type InteropRootKey struct {
	SourceChainID uint64 `json:"sourceChainId"`
	BatchNumber   uint64 `json:"batchNumber"`
}

func (k InteropRootKey) String() string {
	return fmt.Sprintf("(%d,%d)", k.SourceChainID, k.BatchNumber)
}

// InteropRootEvent is an entry of the append-only interop root log kept by the settlement layer
type InteropRootEvent struct {
	Seq             uint64         `json:"seq"`
	Key             InteropRootKey `json:"key"`
	Root            Hash           `json:"root"`
	SettlementBlock uint64         `json:"settlementBlock"`
}

func (e *InteropRootEvent) MarshalRLPTo(dst []byte) []byte {
	return MarshalRLPTo(e.MarshalRLPWith, dst)
}

func (e *InteropRootEvent) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewUint(e.Seq))
	vv.Set(ar.NewUint(e.Key.SourceChainID))
	vv.Set(ar.NewUint(e.Key.BatchNumber))
	vv.Set(ar.NewCopyBytes(e.Root.Bytes()))
	vv.Set(ar.NewUint(e.SettlementBlock))

	return vv
}

func (e *InteropRootEvent) UnmarshalRLP(input []byte) error {
	return UnmarshalRlp(e.UnmarshalRLPFrom, input)
}

func (e *InteropRootEvent) UnmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := expectElems(v, 5, "interop root event")
	if err != nil {
		return err
	}

	if e.Seq, err = elems[0].GetUint64(); err != nil {
		return err
	}

	if e.Key.SourceChainID, err = elems[1].GetUint64(); err != nil {
		return err
	}

	if e.Key.BatchNumber, err = elems[2].GetUint64(); err != nil {
		return err
	}

	if err = elems[3].GetHash(e.Root[:]); err != nil {
		return err
	}

	e.SettlementBlock, err = elems[4].GetUint64()

	return err
}

// Publication is a chain root published by a chain to the settlement layer
type Publication struct {
	ChainID     uint64 `json:"chainId"`
	BatchNumber uint64 `json:"batchNumber"`
	ChainRoot   Hash   `json:"chainRoot"`
}

func (p *Publication) MarshalRLPTo(dst []byte) []byte {
	return MarshalRLPTo(p.MarshalRLPWith, dst)
}

func (p *Publication) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewUint(p.ChainID))
	vv.Set(ar.NewUint(p.BatchNumber))
	vv.Set(ar.NewCopyBytes(p.ChainRoot.Bytes()))

	return vv
}

func (p *Publication) UnmarshalRLP(input []byte) error {
	return UnmarshalRlp(p.UnmarshalRLPFrom, input)
}

func (p *Publication) UnmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := expectElems(v, 3, "publication")
	if err != nil {
		return err
	}

	if p.ChainID, err = elems[0].GetUint64(); err != nil {
		return err
	}

	if p.BatchNumber, err = elems[1].GetUint64(); err != nil {
		return err
	}

	return elems[2].GetHash(p.ChainRoot[:])
}

// Publications is a list of publications, used for the pending set of the aggregator
type Publications []*Publication

func (ps *Publications) MarshalRLPTo(dst []byte) []byte {
	return MarshalRLPTo(ps.MarshalRLPWith, dst)
}

func (ps *Publications) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	if len(*ps) == 0 {
		return ar.NewNullArray()
	}

	vv := ar.NewArray()
	for _, p := range *ps {
		vv.Set(p.MarshalRLPWith(ar))
	}

	return vv
}

func (ps *Publications) UnmarshalRLP(input []byte) error {
	return UnmarshalRlp(ps.UnmarshalRLPFrom, input)
}

func (ps *Publications) UnmarshalRLPFrom(p *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := v.GetElems()
	if err != nil {
		return err
	}

	result := make(Publications, 0, len(elems))

	for _, elem := range elems {
		pub := &Publication{}
		if err := pub.UnmarshalRLPFrom(p, elem); err != nil {
			return err
		}

		result = append(result, pub)
	}

	*ps = result

	return nil
}

// SettlementBlock is a block of the settlement layer aggregating chain roots into a network root
type SettlementBlock struct {
	Number      uint64       `json:"number"`
	Leaves      Publications `json:"leaves"`
	NetworkRoot Hash         `json:"networkRoot"`
	Finalized   bool         `json:"finalized"`
}

func (s *SettlementBlock) MarshalRLPTo(dst []byte) []byte {
	return MarshalRLPTo(s.MarshalRLPWith, dst)
}

func (s *SettlementBlock) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewUint(s.Number))
	vv.Set(s.Leaves.MarshalRLPWith(ar))
	vv.Set(ar.NewCopyBytes(s.NetworkRoot.Bytes()))
	vv.Set(ar.NewBool(s.Finalized))

	return vv
}

func (s *SettlementBlock) UnmarshalRLP(input []byte) error {
	return UnmarshalRlp(s.UnmarshalRLPFrom, input)
}

func (s *SettlementBlock) UnmarshalRLPFrom(p *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := expectElems(v, 4, "settlement block")
	if err != nil {
		return err
	}

	if s.Number, err = elems[0].GetUint64(); err != nil {
		return err
	}

	if err = s.Leaves.UnmarshalRLPFrom(p, elems[1]); err != nil {
		return err
	}

	if err = elems[2].GetHash(s.NetworkRoot[:]); err != nil {
		return err
	}

	s.Finalized, err = elems[3].GetBool()

	return err
}

// Frontier is the persisted state of an incremental merkle accumulator
type Frontier struct {
	Size   uint64 `json:"size"`
	Branch []Hash `json:"branch"`
}

func (f *Frontier) MarshalRLPTo(dst []byte) []byte {
	return MarshalRLPTo(f.MarshalRLPWith, dst)
}

func (f *Frontier) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewUint(f.Size))
	vv.Set(marshalHashes(ar, f.Branch))

	return vv
}

func (f *Frontier) UnmarshalRLP(input []byte) error {
	return UnmarshalRlp(f.UnmarshalRLPFrom, input)
}

func (f *Frontier) UnmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := expectElems(v, 2, "frontier")
	if err != nil {
		return err
	}

	if f.Size, err = elems[0].GetUint64(); err != nil {
		return err
	}

	f.Branch, err = unmarshalHashes(elems[1])

	return err
}
