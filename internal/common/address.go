package common

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroAddress is the "no exchange / no value" sentinel used across the
// watch-set, cursor keys and transfer-approval rows.
var ZeroAddress = common.Address{}

// IsZeroAddress reports whether addr equals the sentinel.
func IsZeroAddress(addr common.Address) bool {
	return addr == ZeroAddress
}

// ParseAddress accepts a hex address with or without the 0x prefix.
// It returns false for malformed input.
func ParseAddress(s string) (common.Address, bool) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return ZeroAddress, false
	}
	return common.HexToAddress(s), true
}
