package transferapproval

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	table             = "transfer_approval"
	notificationTable = "notification"

	// NotificationType is the type of every notification this feed emits.
	NotificationType = "TransferApprovalInfo"
)

// Notification codes, one per approval phase.
const (
	CodeApply        = 0
	CodeCancel       = 1
	CodeEscrowFinish = 2
	CodeApprove      = 3
)

const notificationPriority = 0

// TransferApproval is one transfer application keyed by
// (token, exchange, application id). Exchange is the zero address for
// applications made on the token itself.
type TransferApproval struct {
	ID                           int64          `meddler:"id,pk"`
	TokenAddress                 common.Address `meddler:"token_address,address"`
	ExchangeAddress              common.Address `meddler:"exchange_address,address"`
	ApplicationID                int64          `meddler:"application_id"`
	FromAddress                  common.Address `meddler:"from_address,address"`
	ToAddress                    common.Address `meddler:"to_address,address"`
	Amount                       *big.Int       `meddler:"amount,bigint"`
	ApplicationData              string         `meddler:"application_data"`
	ApplicationBlockTimestamp    time.Time      `meddler:"application_blocktimestamp,utctime"`
	CancellationBlockTimestamp   time.Time      `meddler:"cancellation_blocktimestamp,utctimez"`
	EscrowFinishedBlockTimestamp time.Time      `meddler:"escrow_finished_blocktimestamp,utctimez"`
	ApprovalData                 *string        `meddler:"approval_data"`
	ApprovalBlockTimestamp       time.Time      `meddler:"approval_blocktimestamp,utctimez"`
	Cancelled                    bool           `meddler:"cancelled"`
	EscrowFinished               bool           `meddler:"escrow_finished"`
	TransferApproved             bool           `meddler:"transfer_approved"`
}

// Notification tells an issuer that an approval phase needs attention.
type Notification struct {
	ID            int64          `meddler:"id,pk"`
	NoticeID      string         `meddler:"notice_id"`
	IssuerAddress common.Address `meddler:"issuer_address,address"`
	Priority      int            `meddler:"priority"`
	Type          string         `meddler:"type"`
	Code          int            `meddler:"code"`
	ApprovalID    int64          `meddler:"approval_id"`
	Metainfo      string         `meddler:"metainfo"`
	Created       time.Time      `meddler:"created,utctime"`
}
