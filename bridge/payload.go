package bridge

import (
	"fmt"
	"math/big"

	"github.com/umbracle/ethgo"
	"github.com/umbracle/ethgo/abi"

	"github.com/0xPolygon/interop-edge/types"
)

var (
	// BootloaderAddress sends the status message of every priority transaction
	BootloaderAddress = types.StringToAddress("0x8001")
	// L2BridgeAddress sends the messages of withdrawals
	L2BridgeAddress = types.StringToAddress("0x10003")
	// InteropCenterAddress sends the messages of L2 to L2 transfers
	InteropCenterAddress = types.StringToAddress("0x10010")

	withdrawalABIType = abi.MustNewType("tuple(address receiver, address token, uint256 amount)")
	transferABIType   = abi.MustNewType(
		"tuple(uint256 destinationChainId, address receiver, address token, uint256 amount)")
	depositStatusABIType = abi.MustNewType("tuple(bytes32 l1TxHash, bool success)")
)

// WithdrawalPayload is the message data of a withdrawal
type WithdrawalPayload struct {
	Receiver types.Address
	Token    types.Address
	Amount   *big.Int
}

// EncodeAbi returns the ABI encoding of the payload
func (w *WithdrawalPayload) EncodeAbi() ([]byte, error) {
	return withdrawalABIType.Encode(map[string]interface{}{
		"receiver": ethgo.Address(w.Receiver),
		"token":    ethgo.Address(w.Token),
		"amount":   w.Amount,
	})
}

// DecodeAbi decodes the payload from its ABI encoding
func (w *WithdrawalPayload) DecodeAbi(data []byte) error {
	result, err := decodeTuple(withdrawalABIType, data)
	if err != nil {
		return err
	}

	receiver, ok := result["receiver"].(ethgo.Address)
	if !ok {
		return fmt.Errorf("invalid withdrawal receiver")
	}

	token, ok := result["token"].(ethgo.Address)
	if !ok {
		return fmt.Errorf("invalid withdrawal token")
	}

	amount, ok := result["amount"].(*big.Int)
	if !ok {
		return fmt.Errorf("invalid withdrawal amount")
	}

	w.Receiver = types.Address(receiver)
	w.Token = types.Address(token)
	w.Amount = amount

	return nil
}

// TransferPayload is the message data of an L2 to L2 transfer
type TransferPayload struct {
	DestinationChainID uint64
	Receiver           types.Address
	Token              types.Address
	Amount             *big.Int
}

// EncodeAbi returns the ABI encoding of the payload
func (t *TransferPayload) EncodeAbi() ([]byte, error) {
	return transferABIType.Encode(map[string]interface{}{
		"destinationChainId": new(big.Int).SetUint64(t.DestinationChainID),
		"receiver":           ethgo.Address(t.Receiver),
		"token":              ethgo.Address(t.Token),
		"amount":             t.Amount,
	})
}

// DecodeAbi decodes the payload from its ABI encoding
func (t *TransferPayload) DecodeAbi(data []byte) error {
	result, err := decodeTuple(transferABIType, data)
	if err != nil {
		return err
	}

	destination, ok := result["destinationChainId"].(*big.Int)
	if !ok || !destination.IsUint64() {
		return fmt.Errorf("invalid transfer destination")
	}

	receiver, ok := result["receiver"].(ethgo.Address)
	if !ok {
		return fmt.Errorf("invalid transfer receiver")
	}

	token, ok := result["token"].(ethgo.Address)
	if !ok {
		return fmt.Errorf("invalid transfer token")
	}

	amount, ok := result["amount"].(*big.Int)
	if !ok {
		return fmt.Errorf("invalid transfer amount")
	}

	t.DestinationChainID = destination.Uint64()
	t.Receiver = types.Address(receiver)
	t.Token = types.Address(token)
	t.Amount = amount

	return nil
}

// DepositStatusPayload is the message data the bootloader emits for every priority transaction
type DepositStatusPayload struct {
	L1TxHash types.Hash
	Success  bool
}

// EncodeAbi returns the ABI encoding of the payload
func (d *DepositStatusPayload) EncodeAbi() ([]byte, error) {
	return depositStatusABIType.Encode(map[string]interface{}{
		"l1TxHash": ethgo.Hash(d.L1TxHash),
		"success":  d.Success,
	})
}

// DecodeAbi decodes the payload from its ABI encoding
func (d *DepositStatusPayload) DecodeAbi(data []byte) error {
	result, err := decodeTuple(depositStatusABIType, data)
	if err != nil {
		return err
	}

	hash, ok := result["l1TxHash"].([32]byte)
	if !ok {
		return fmt.Errorf("invalid deposit status hash")
	}

	success, ok := result["success"].(bool)
	if !ok {
		return fmt.Errorf("invalid deposit status flag")
	}

	d.L1TxHash = types.Hash(hash)
	d.Success = success

	return nil
}

func decodeTuple(typ *abi.Type, data []byte) (map[string]interface{}, error) {
	raw, err := typ.Decode(data)
	if err != nil {
		return nil, err
	}

	result, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("could not convert decoded %s to map", typ)
	}

	return result, nil
}
