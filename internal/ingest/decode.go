package ingest

import (
	"encoding/json"
	"errors"
	"fmt"

	"tradewatch/internal/model"
)

// DecodeEvent parses an inbound payload into a trade event and backfills
// the derived total value.
func DecodeEvent(data []byte) (model.Event, error) {
	var ev model.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return model.Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.TransactionID == "" {
		return model.Event{}, errors.New("decode event: missing transactionId")
	}
	if ev.AccountID == "" {
		return model.Event{}, errors.New("decode event: missing accountId")
	}
	ev.Normalize()
	return ev, nil
}
