package delivery

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Delivery statuses.
const (
	StatusCreated   = 0
	StatusCanceled  = 1
	StatusConfirmed = 2
	StatusFinished  = 3
	StatusAborted   = 4
)

const table = "delivery"

// Delivery is one DVP delivery keyed by (exchange, delivery id).
type Delivery struct {
	ID                     int64          `meddler:"id,pk"`
	ExchangeAddress        common.Address `meddler:"exchange_address,address"`
	DeliveryID             int64          `meddler:"delivery_id"`
	TokenAddress           common.Address `meddler:"token_address,address"`
	BuyerAddress           common.Address `meddler:"buyer_address,address"`
	SellerAddress          common.Address `meddler:"seller_address,address"`
	Amount                 int64          `meddler:"amount"`
	AgentAddress           common.Address `meddler:"agent_address,address"`
	Data                   string         `meddler:"data"`
	CreateBlockTimestamp   time.Time      `meddler:"create_blocktimestamp,utctime"`
	CreateTransactionHash  common.Hash    `meddler:"create_transaction_hash,hash"`
	CancelBlockTimestamp   time.Time      `meddler:"cancel_blocktimestamp,utctimez"`
	CancelTransactionHash  *common.Hash   `meddler:"cancel_transaction_hash,hash"`
	ConfirmBlockTimestamp  time.Time      `meddler:"confirm_blocktimestamp,utctimez"`
	ConfirmTransactionHash *common.Hash   `meddler:"confirm_transaction_hash,hash"`
	FinishBlockTimestamp   time.Time      `meddler:"finish_blocktimestamp,utctimez"`
	FinishTransactionHash  *common.Hash   `meddler:"finish_transaction_hash,hash"`
	AbortBlockTimestamp    time.Time      `meddler:"abort_blocktimestamp,utctimez"`
	AbortTransactionHash   *common.Hash   `meddler:"abort_transaction_hash,hash"`
	Confirmed              bool           `meddler:"confirmed"`
	Valid                  bool           `meddler:"valid"`
	Status                 int            `meddler:"status"`
}

// Terminal reports whether the delivery was canceled, finished or aborted.
func (d *Delivery) Terminal() bool {
	return d.Status == StatusCanceled || d.Status == StatusFinished || d.Status == StatusAborted
}
