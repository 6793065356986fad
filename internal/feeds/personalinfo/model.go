package personalinfo

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/TokenIndexor/internal/feeds"
)

const (
	table        = "personal_info"
	historyTable = "personal_info_history"

	// DataSourceOnChain marks records read from the PersonalInfo contract.
	DataSourceOnChain = "on-chain"
)

// History event types.
const (
	EventTypeRegister = "register"
	EventTypeModify   = "modify"
)

// Fields are the keys of a personal info mapping.
var Fields = []string{
	"key_manager",
	"name",
	"postal_code",
	"address",
	"email",
	"birth",
	"is_corporate",
	"tax_category",
}

// PersonalInfo is the current personal info of an account as seen by an issuer.
type PersonalInfo struct {
	ID             int64          `meddler:"id,pk"`
	AccountAddress common.Address `meddler:"account_address,address"`
	IssuerAddress  common.Address `meddler:"issuer_address,address"`
	PersonalInfo   string         `meddler:"personal_info"`
	DataSource     string         `meddler:"data_source"`
	Created        time.Time      `meddler:"created,utctime"`
	Modified       time.Time      `meddler:"modified,utctime"`
}

// History is one register or modify event with the mapping read for it.
type History struct {
	ID             int64          `meddler:"id,pk"`
	AccountAddress common.Address `meddler:"account_address,address"`
	IssuerAddress  common.Address `meddler:"issuer_address,address"`
	EventType      string         `meddler:"event_type"`
	PersonalInfo   string         `meddler:"personal_info"`
	BlockTimestamp time.Time      `meddler:"block_timestamp,utctime"`
}

// DefaultInfo returns the mapping with every field set to null.
func DefaultInfo() map[string]any {
	info := make(map[string]any, len(Fields))
	for _, f := range Fields {
		info[f] = nil
	}
	return info
}

// ParseInfo picks the known fields out of a decrypted JSON object.
// Absent fields are null. Anything that is not a JSON object yields DefaultInfo.
func ParseInfo(plain []byte) (map[string]any, bool) {
	obj, ok := feeds.ParseObject(string(plain))
	info := DefaultInfo()
	if !ok {
		return info, false
	}
	for _, f := range Fields {
		if v, present := obj[f]; present {
			info[f] = v
		}
	}
	return info, true
}
