package ingest

import (
	"testing"
	"time"

	"tradewatch/internal/model"
)

func TestDecodeEvent(t *testing.T) {
	payload := []byte(`{
		"transactionId": "TXN-12345678",
		"accountId": "ACC003",
		"symbol": "MSFT",
		"side": "SELL",
		"quantity": 25,
		"price": 410.50,
		"timestamp": "2026-03-02 11:15:30",
		"orderType": "LIMIT",
		"status": "FILLED"
	}`)

	ev, err := DecodeEvent(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.TransactionID != "TXN-12345678" || ev.AccountID != "ACC003" {
		t.Fatalf("identifiers = %s/%s", ev.TransactionID, ev.AccountID)
	}
	if ev.Side != model.SideSell || ev.OrderType != model.OrderLimit {
		t.Fatalf("side/orderType = %s/%s", ev.Side, ev.OrderType)
	}
	want := time.Date(2026, 3, 2, 11, 15, 30, 0, time.UTC)
	if !ev.Timestamp.Equal(want) {
		t.Fatalf("timestamp = %s, want %s", ev.Timestamp, want)
	}
	// totalValue absent on the wire gets derived from quantity and price.
	if ev.TotalValue != 25*410.50 {
		t.Fatalf("totalValue = %v, want %v", ev.TotalValue, 25*410.50)
	}
}

func TestDecodeEventKeepsWireTotalValue(t *testing.T) {
	payload := []byte(`{"transactionId":"TXN-1","accountId":"ACC001","symbol":"AAPL","side":"BUY","quantity":10,"price":175,"totalValue":1750,"timestamp":"2026-03-02 11:00:00"}`)
	ev, err := DecodeEvent(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.TotalValue != 1750 {
		t.Fatalf("totalValue = %v, want the wire value", ev.TotalValue)
	}
}

func TestDecodeEventRejectsMalformed(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"truncated json", `{"transactionId": "TXN-1"`},
		{"not json", `plain text`},
		{"missing transaction id", `{"accountId":"ACC001","symbol":"AAPL","side":"BUY","quantity":1,"price":1,"timestamp":"2026-03-02 11:00:00"}`},
		{"missing account id", `{"transactionId":"TXN-1","symbol":"AAPL","side":"BUY","quantity":1,"price":1,"timestamp":"2026-03-02 11:00:00"}`},
		{"bad timestamp", `{"transactionId":"TXN-1","accountId":"ACC001","timestamp":"03/02/2026 11:00"}`},
	}
	for _, tc := range cases {
		if _, err := DecodeEvent([]byte(tc.payload)); err == nil {
			t.Errorf("%s: expected decode error", tc.name)
		}
	}
}
