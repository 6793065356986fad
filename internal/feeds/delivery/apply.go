package delivery

import (
	"context"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/TokenIndexor/internal/db"
	"github.com/goran-ethernal/TokenIndexor/internal/feeds"
	"github.com/goran-ethernal/TokenIndexor/internal/logger"
	"github.com/goran-ethernal/TokenIndexor/internal/scanner"
)

// DVP events handled by the feed.
const (
	EventCreate  = "CreateDelivery"
	EventCancel  = "CancelDelivery"
	EventConfirm = "ConfirmDelivery"
	EventFinish  = "FinishDelivery"
	EventAbort   = "AbortDelivery"
)

// Events lists the handled events in lifecycle order.
var Events = []string{EventCreate, EventCancel, EventConfirm, EventFinish, EventAbort}

// maxDeliveryAmount is the largest amount or delivery id stored. Events
// above it are not representable in the delivery table and are skipped.
const maxDeliveryAmount = math.MaxInt64

var maxDelivery = big.NewInt(maxDeliveryAmount)

// Apply folds one DVP event of exchange into its delivery row.
func Apply(ctx context.Context, s *db.Session, exchange common.Address, ev scanner.Event, log *logger.Logger) error {
	id, amount := ev.BigInt("deliveryId"), ev.BigInt("amount")
	if id.Cmp(maxDelivery) > 0 || amount.Cmp(maxDelivery) > 0 {
		log.Debugw("skipping delivery above the integer ceiling",
			"exchange", exchange.Hex(), "delivery_id", id.String(), "amount", amount.String())
		feeds.RecordSkipped(table, "overflow")
		return nil
	}

	row := &Delivery{}
	found, err := s.GetForUpdate(row,
		`SELECT * FROM delivery WHERE exchange_address = ? AND delivery_id = ?`, exchange.Hex(), id.Int64())
	if err != nil {
		return err
	}

	if ev.Name == EventCreate {
		if !found {
			row = &Delivery{
				ExchangeAddress: exchange,
				DeliveryID:      id.Int64(),
				Valid:           true,
				Status:          StatusCreated,
			}
		}
		applyCreate(row, ev, amount.Int64())
		return save(s, row)
	}

	if !found {
		log.Debugw("no delivery for event", "event", ev.Name, "exchange", exchange.Hex(), "delivery_id", id.Int64())
		feeds.RecordSkipped(table, "missing")
		return nil
	}

	transition(row, ev)
	return save(s, row)
}

// applyCreate refreshes the creation fields only, so a replayed create never
// revives a delivery that has progressed.
func applyCreate(row *Delivery, ev scanner.Event, amount int64) {
	data, _ := feeds.ParseObject(ev.String("data"))

	row.TokenAddress = ev.Address("token")
	row.SellerAddress = ev.Address("seller")
	row.BuyerAddress = ev.Address("buyer")
	row.AgentAddress = ev.Address("agent")
	row.Amount = amount
	row.Data = feeds.EncodeObject(data)
	row.CreateBlockTimestamp = ev.Timestamp
	row.CreateTransactionHash = ev.TxHash()
}

func transition(row *Delivery, ev scanner.Event) {
	hash := ev.TxHash()

	switch ev.Name {
	case EventConfirm:
		row.ConfirmBlockTimestamp = ev.Timestamp
		row.ConfirmTransactionHash = &hash
		row.Confirmed = true
		if row.Status == StatusCreated {
			row.Status = StatusConfirmed
		}
	case EventCancel:
		row.CancelBlockTimestamp = ev.Timestamp
		row.CancelTransactionHash = &hash
		terminate(row, StatusCanceled)
	case EventFinish:
		row.FinishBlockTimestamp = ev.Timestamp
		row.FinishTransactionHash = &hash
		terminate(row, StatusFinished)
	case EventAbort:
		row.AbortBlockTimestamp = ev.Timestamp
		row.AbortTransactionHash = &hash
		terminate(row, StatusAborted)
	}
}

func terminate(row *Delivery, status int) {
	row.Valid = false
	if !row.Terminal() {
		row.Status = status
	}
}

func save(s *db.Session, row *Delivery) error {
	if err := s.Save(table, row); err != nil {
		return err
	}
	feeds.RecordWritten(table)
	return nil
}
