package transferapproval

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/TokenIndexor/internal/db"
	"github.com/goran-ethernal/TokenIndexor/internal/feeds"
	"github.com/goran-ethernal/TokenIndexor/internal/logger"
	"github.com/goran-ethernal/TokenIndexor/internal/scanner"
	"github.com/goran-ethernal/TokenIndexor/internal/watchset"
	"github.com/google/uuid"
)

// Approval events. The token path and the escrow path share names.
const (
	EventApply        = "ApplyForTransfer"
	EventCancel       = "CancelTransfer"
	EventEscrowFinish = "EscrowFinished"
	EventApprove      = "ApproveTransfer"
)

const (
	tokenIDArg  = "index"
	escrowIDArg = "escrowId"

	maxApplicationID = math.MaxInt64
)

var maxID = big.NewInt(maxApplicationID)

// Input is one approval event with the context needed to apply it.
type Input struct {
	Exchange common.Address
	Token    watchset.WatchedContract
	Event    scanner.Event
	Sender   common.Address
}

func (in Input) applicationID() *big.Int {
	if _, ok := in.Event.Args[escrowIDArg]; ok {
		return in.Event.BigInt(escrowIDArg)
	}
	return in.Event.BigInt(tokenIDArg)
}

// phaseCode returns the notification code of the event and whether it fires
// when sent by the issuer rather than by anyone else.
func phaseCode(event string) (code int, byIssuer bool) {
	switch event {
	case EventApply:
		return CodeApply, false
	case EventCancel:
		return CodeCancel, false
	case EventEscrowFinish:
		return CodeEscrowFinish, false
	default:
		return CodeApprove, true
	}
}

// Notifies reports whether in produces a notification for the issuer.
func Notifies(in Input) bool {
	_, byIssuer := phaseCode(in.Event.Name)
	fromIssuer := in.Sender == in.Token.Issuer
	return fromIssuer == byIssuer
}

// Apply folds one approval event into its row and emits the matching
// notification. Later phases without an application row are skipped.
func Apply(ctx context.Context, s *db.Session, in Input, log *logger.Logger) error {
	ev := in.Event

	if ev.Name == EventEscrowFinish && !ev.Bool("transferApprovalRequired") {
		return nil
	}

	id := in.applicationID()
	if id.Cmp(maxID) > 0 {
		log.Debugw("skipping application above the integer ceiling", "token", in.Token.Address.Hex(), "id", id.String())
		feeds.RecordSkipped(table, "overflow")
		return nil
	}

	row := &TransferApproval{}
	found, err := s.GetForUpdate(row,
		`SELECT * FROM transfer_approval WHERE token_address = ? AND exchange_address = ? AND application_id = ?`,
		in.Token.Address.Hex(), in.Exchange.Hex(), id.Int64())
	if err != nil {
		return err
	}

	switch {
	case ev.Name == EventApply:
		if !found {
			row = &TransferApproval{
				TokenAddress:    in.Token.Address,
				ExchangeAddress: in.Exchange,
				ApplicationID:   id.Int64(),
			}
		}
		row.FromAddress = ev.Address("from")
		row.ToAddress = ev.Address("to")
		row.Amount = ev.BigInt("value")
		row.ApplicationData = ev.String("data")
		row.ApplicationBlockTimestamp = ev.Timestamp
	case !found:
		log.Debugw("no application for event", "event", ev.Name, "token", in.Token.Address.Hex(),
			"exchange", in.Exchange.Hex(), "id", id.Int64())
		feeds.RecordSkipped(table, "missing")
		return nil
	case ev.Name == EventCancel:
		row.CancellationBlockTimestamp = ev.Timestamp
		row.Cancelled = true
	case ev.Name == EventEscrowFinish:
		row.EscrowFinishedBlockTimestamp = ev.Timestamp
		row.EscrowFinished = true
	case ev.Name == EventApprove:
		data := ev.String("data")
		row.ApprovalData = &data
		row.ApprovalBlockTimestamp = ev.Timestamp
		row.TransferApproved = true
	}

	if err := s.Save(table, row); err != nil {
		return err
	}
	feeds.RecordWritten(table)

	if !Notifies(in) {
		return nil
	}
	return notify(ctx, s, in, row.ID)
}

func notify(ctx context.Context, s *db.Session, in Input, approvalID int64) error {
	code, _ := phaseCode(in.Event.Name)

	metainfo := feeds.EncodeObject(map[string]any{
		"token_address": in.Token.Address.Hex(),
		"token_type":    in.Token.TokenType,
		"id":            approvalID,
	})

	res, err := s.Exec(ctx, "insert "+notificationTable, fmt.Sprintf(`
		INSERT INTO %s (notice_id, issuer_address, priority, type, code, approval_id, metainfo, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (type, code, approval_id) DO NOTHING`, notificationTable),
		uuid.NewString(), in.Token.Issuer.Hex(), notificationPriority, NotificationType, code, approvalID,
		metainfo, in.Event.Timestamp.UTC())
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		feeds.NotificationEmitted(strconv.Itoa(code))
	}
	return nil
}
