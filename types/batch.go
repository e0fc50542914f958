package types

import (
	"github.com/umbracle/fastrlp"
)

// InteropRootRef is an interop root a block consumed from the local interop root store
type InteropRootRef struct {
	Key  InteropRootKey `json:"key"`
	Root Hash           `json:"root"`
}

// Block is a sealed L2 block inside a batch
type Block struct {
	Number   uint64     `json:"number"`
	Messages []*Message `json:"messages"`
	// InteropRoots are the interop roots assigned to (consumed by) this block
	InteropRoots []*InteropRootRef `json:"interopRoots"`
}

// Batch is a sealed, ordered unit of L2 execution with a fixed message log
type Batch struct {
	ChainID uint64   `json:"chainId"`
	Number  uint64   `json:"number"`
	Blocks  []*Block `json:"blocks"`
	// Root is the batch commitment root over messages and block markers
	Root Hash `json:"root"`

	// LocalMerklePath anchors Root into the chain root at height Number.
	// Nil until the batch has been appended to the chain root accumulator.
	LocalMerklePath []Hash `json:"localMerklePath,omitempty"`
	// GlobalMerklePath anchors the chain root into the network root.
	// Nil until the settlement block including the chain root is final.
	GlobalMerklePath *GlobalPath `json:"globalMerklePath,omitempty"`
}

// Messages returns every message of the batch in emission order.
// The position in the returned slice is the message index.
func (b *Batch) Messages() []*Message {
	var messages []*Message

	for _, block := range b.Blocks {
		messages = append(messages, block.Messages...)
	}

	return messages
}

// GlobalPath anchors a chain root (at a batch height) into the network root of a settlement block
type GlobalPath struct {
	SettlementBlock uint64 `json:"settlementBlock"`
	LeafIndex       uint64 `json:"leafIndex"`
	Siblings        []Hash `json:"siblings"`
	NetworkRoot     Hash   `json:"networkRoot"`
}

// Equal reports whether both paths are identical
func (g *GlobalPath) Equal(other *GlobalPath) bool {
	if g == nil || other == nil {
		return g == other
	}

	return g.SettlementBlock == other.SettlementBlock &&
		g.LeafIndex == other.LeafIndex &&
		g.NetworkRoot == other.NetworkRoot &&
		HashesEqual(g.Siblings, other.Siblings)
}

// HashesEqual compares two hash slices element by element
func HashesEqual(a, b []Hash) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func (b *Block) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewUint(b.Number))

	if len(b.Messages) == 0 {
		vv.Set(ar.NewNullArray())
	} else {
		v0 := ar.NewArray()
		for _, msg := range b.Messages {
			v0.Set(msg.MarshalRLPWith(ar))
		}
		vv.Set(v0)
	}

	if len(b.InteropRoots) == 0 {
		vv.Set(ar.NewNullArray())
	} else {
		v1 := ar.NewArray()
		for _, ref := range b.InteropRoots {
			v1.Set(ref.MarshalRLPWith(ar))
		}
		vv.Set(v1)
	}

	return vv
}

func (b *Block) UnmarshalRLPFrom(p *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := expectElems(v, 3, "block")
	if err != nil {
		return err
	}

	if b.Number, err = elems[0].GetUint64(); err != nil {
		return err
	}

	msgElems, err := elems[1].GetElems()
	if err != nil {
		return err
	}

	for _, elem := range msgElems {
		msg := &Message{}
		if err := msg.UnmarshalRLPFrom(p, elem); err != nil {
			return err
		}

		b.Messages = append(b.Messages, msg)
	}

	refElems, err := elems[2].GetElems()
	if err != nil {
		return err
	}

	for _, elem := range refElems {
		ref := &InteropRootRef{}
		if err := ref.UnmarshalRLPFrom(p, elem); err != nil {
			return err
		}

		b.InteropRoots = append(b.InteropRoots, ref)
	}

	return nil
}

func (r *InteropRootRef) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewUint(r.Key.SourceChainID))
	vv.Set(ar.NewUint(r.Key.BatchNumber))
	vv.Set(ar.NewCopyBytes(r.Root.Bytes()))

	return vv
}

func (r *InteropRootRef) UnmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := expectElems(v, 3, "interop root reference")
	if err != nil {
		return err
	}

	if r.Key.SourceChainID, err = elems[0].GetUint64(); err != nil {
		return err
	}

	if r.Key.BatchNumber, err = elems[1].GetUint64(); err != nil {
		return err
	}

	return elems[2].GetHash(r.Root[:])
}

// MarshalRLPTo encodes the sealed batch. Merkle paths are stored in their own columns
// and are not part of the encoding.
func (b *Batch) MarshalRLPTo(dst []byte) []byte {
	return MarshalRLPTo(b.MarshalRLPWith, dst)
}

func (b *Batch) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewUint(b.ChainID))
	vv.Set(ar.NewUint(b.Number))

	if len(b.Blocks) == 0 {
		vv.Set(ar.NewNullArray())
	} else {
		v0 := ar.NewArray()
		for _, block := range b.Blocks {
			v0.Set(block.MarshalRLPWith(ar))
		}
		vv.Set(v0)
	}

	vv.Set(ar.NewCopyBytes(b.Root.Bytes()))

	return vv
}

func (b *Batch) UnmarshalRLP(input []byte) error {
	return UnmarshalRlp(b.UnmarshalRLPFrom, input)
}

func (b *Batch) UnmarshalRLPFrom(p *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := expectElems(v, 4, "batch")
	if err != nil {
		return err
	}

	if b.ChainID, err = elems[0].GetUint64(); err != nil {
		return err
	}

	if b.Number, err = elems[1].GetUint64(); err != nil {
		return err
	}

	blockElems, err := elems[2].GetElems()
	if err != nil {
		return err
	}

	for _, elem := range blockElems {
		block := &Block{}
		if err := block.UnmarshalRLPFrom(p, elem); err != nil {
			return err
		}

		b.Blocks = append(b.Blocks, block)
	}

	return elems[3].GetHash(b.Root[:])
}

func (g *GlobalPath) MarshalRLPTo(dst []byte) []byte {
	return MarshalRLPTo(g.MarshalRLPWith, dst)
}

func (g *GlobalPath) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewUint(g.SettlementBlock))
	vv.Set(ar.NewUint(g.LeafIndex))
	vv.Set(marshalHashes(ar, g.Siblings))
	vv.Set(ar.NewCopyBytes(g.NetworkRoot.Bytes()))

	return vv
}

func (g *GlobalPath) UnmarshalRLP(input []byte) error {
	return UnmarshalRlp(g.UnmarshalRLPFrom, input)
}

func (g *GlobalPath) UnmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := expectElems(v, 4, "global path")
	if err != nil {
		return err
	}

	if g.SettlementBlock, err = elems[0].GetUint64(); err != nil {
		return err
	}

	if g.LeafIndex, err = elems[1].GetUint64(); err != nil {
		return err
	}

	if g.Siblings, err = unmarshalHashes(elems[2]); err != nil {
		return err
	}

	return elems[3].GetHash(g.NetworkRoot[:])
}

// MerklePath is a plain list of sibling hashes
type MerklePath []Hash

func (m *MerklePath) MarshalRLPTo(dst []byte) []byte {
	return MarshalRLPTo(func(ar *fastrlp.Arena) *fastrlp.Value {
		return marshalHashes(ar, *m)
	}, dst)
}

func (m *MerklePath) UnmarshalRLP(input []byte) error {
	return UnmarshalRlp(func(_ *fastrlp.Parser, v *fastrlp.Value) error {
		hashes, err := unmarshalHashes(v)
		if err != nil {
			return err
		}

		*m = hashes

		return nil
	}, input)
}
