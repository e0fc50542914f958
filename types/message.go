package types

import (
	"github.com/umbracle/fastrlp"
)

// Message is an L2 -> L1 message emitted by a transaction. It is immutable once emitted and
// identified by (chainID, batch number, message index).
type Message struct {
	Sender          Address  `json:"sender"`
	Data            HexBytes `json:"data"`
	TxNumberInBatch uint16   `json:"txNumberInBatch"`
	// TxHash is the hash of the transaction that emitted the message
	TxHash Hash `json:"txHash"`
}

// Copy returns a deep copy of the message
func (m *Message) Copy() *Message {
	mm := *m
	mm.Data = append([]byte(nil), m.Data...)

	return &mm
}

func (m *Message) MarshalRLPTo(dst []byte) []byte {
	return MarshalRLPTo(m.MarshalRLPWith, dst)
}

func (m *Message) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewCopyBytes(m.Sender.Bytes()))
	vv.Set(ar.NewCopyBytes(m.Data))
	vv.Set(ar.NewUint(uint64(m.TxNumberInBatch)))
	vv.Set(ar.NewCopyBytes(m.TxHash.Bytes()))

	return vv
}

func (m *Message) UnmarshalRLP(input []byte) error {
	return UnmarshalRlp(m.UnmarshalRLPFrom, input)
}

func (m *Message) UnmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := expectElems(v, 4, "message")
	if err != nil {
		return err
	}

	if err = elems[0].GetAddr(m.Sender[:]); err != nil {
		return err
	}

	if m.Data, err = elems[1].GetBytes(nil); err != nil {
		return err
	}

	txNumber, err := elems[2].GetUint64()
	if err != nil {
		return err
	}

	m.TxNumberInBatch = uint16(txNumber)

	return elems[3].GetHash(m.TxHash[:])
}

// MessageRef locates a message inside the batch commitment of a chain
type MessageRef struct {
	ChainID      uint64 `json:"chainId"`
	BatchNumber  uint64 `json:"batchNumber"`
	MessageIndex uint64 `json:"messageIndex"`
}

func (r *MessageRef) MarshalRLPTo(dst []byte) []byte {
	return MarshalRLPTo(r.MarshalRLPWith, dst)
}

func (r *MessageRef) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewUint(r.ChainID))
	vv.Set(ar.NewUint(r.BatchNumber))
	vv.Set(ar.NewUint(r.MessageIndex))

	return vv
}

func (r *MessageRef) UnmarshalRLP(input []byte) error {
	return UnmarshalRlp(r.UnmarshalRLPFrom, input)
}

func (r *MessageRef) UnmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := expectElems(v, 3, "message reference")
	if err != nil {
		return err
	}

	if r.ChainID, err = elems[0].GetUint64(); err != nil {
		return err
	}

	if r.BatchNumber, err = elems[1].GetUint64(); err != nil {
		return err
	}

	r.MessageIndex, err = elems[2].GetUint64()

	return err
}
