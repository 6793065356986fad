package scanner

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Address returns the address argument name, or the zero address.
func (e Event) Address(name string) common.Address {
	v, _ := e.Args[name].(common.Address)
	return v
}

// BigInt returns the integer argument name, or zero.
func (e Event) BigInt(name string) *big.Int {
	if v, ok := e.Args[name].(*big.Int); ok && v != nil {
		return v
	}
	return new(big.Int)
}

// String returns the string argument name, or "".
func (e Event) String(name string) string {
	v, _ := e.Args[name].(string)
	return v
}

// Bool returns the bool argument name, or false.
func (e Event) Bool(name string) bool {
	v, _ := e.Args[name].(bool)
	return v
}

// TxHash returns the hash of the transaction that emitted the event.
func (e Event) TxHash() common.Hash {
	return e.Log.TxHash
}
