// Package simulator manufactures synthetic trade traffic for the inbound
// topic: steady normal trades, occasional suspicious ones, and per-account
// same-symbol bursts. It only ever produces; it never reads core channels.
package simulator

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"tradewatch/internal/config"
	"tradewatch/internal/model"
)

type Simulator struct {
	writer *kafka.Writer
	cfg    config.SimulatorConfig
	logger *slog.Logger
	rng    *rand.Rand
	mu     sync.Mutex // guards rng; tickers fire from separate goroutines
}

func New(kafkaCfg config.KafkaConfig, cfg config.SimulatorConfig, logger *slog.Logger) *Simulator {
	return &Simulator{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(kafkaCfg.Brokers...),
			Topic:    kafkaCfg.TransactionsTopic,
			Balancer: &kafka.Hash{},
		},
		cfg:    cfg,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run drives the three generation schedules until ctx is done, then closes
// the producer.
func (s *Simulator) Run(ctx context.Context) error {
	defer s.writer.Close()

	var wg sync.WaitGroup
	schedules := []struct {
		name     string
		interval time.Duration
		fn       func(context.Context)
	}{
		{"normal", s.cfg.NormalInterval, s.produceNormal},
		{"suspicious", s.cfg.SuspiciousInterval, s.produceSuspicious},
		{"burst", s.cfg.BurstInterval, s.produceBurst},
	}
	for _, sched := range schedules {
		if sched.interval <= 0 {
			continue
		}
		wg.Add(1)
		go func(name string, interval time.Duration, fn func(context.Context)) {
			defer wg.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			if s.logger != nil {
				s.logger.Info("simulation schedule started", "schedule", name, "interval", interval)
			}
			for {
				select {
				case <-ticker.C:
					fn(ctx)
				case <-ctx.Done():
					return
				}
			}
		}(sched.name, sched.interval, sched.fn)
	}
	wg.Wait()
	return nil
}

func (s *Simulator) produceNormal(ctx context.Context) {
	s.send(ctx, s.randomTrade(false))
}

func (s *Simulator) produceSuspicious(ctx context.Context) {
	ev := s.randomTrade(true)
	s.send(ctx, ev)
	if s.logger != nil {
		s.logger.Warn("generated suspicious trade", "transaction_id", ev.TransactionID, "total_value", ev.TotalValue)
	}
}

// produceBurst emits a rapid same-symbol run for one account, the traffic
// shape the rapid-trading and account-pattern rules look for.
func (s *Simulator) produceBurst(ctx context.Context) {
	s.mu.Lock()
	count := s.rng.Intn(5) + 3
	account := s.cfg.Accounts[s.rng.Intn(len(s.cfg.Accounts))]
	symbol := s.cfg.Symbols[s.rng.Intn(len(s.cfg.Symbols))]
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("generating trade burst", "count", count, "account_id", account, "symbol", symbol)
	}
	for i := 0; i < count; i++ {
		s.mu.Lock()
		side := model.SideBuy
		if s.rng.Intn(2) == 0 {
			side = model.SideSell
		}
		quantity := float64(s.rng.Intn(500) + 1)
		price := s.basePrice(symbol) + s.rng.NormFloat64()*5
		pause := time.Duration(100+s.rng.Intn(200)) * time.Millisecond
		s.mu.Unlock()

		ev := model.NewEvent(tradeID(), account, symbol, side, quantity, round2(price), time.Now())
		s.send(ctx, ev)
		if !sleep(ctx, pause) {
			return
		}
	}
}

func (s *Simulator) randomTrade(suspicious bool) model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	account := s.cfg.Accounts[s.rng.Intn(len(s.cfg.Accounts))]
	symbol := s.cfg.Symbols[s.rng.Intn(len(s.cfg.Symbols))]
	side := model.SideBuy
	if s.rng.Intn(2) == 0 {
		side = model.SideSell
	}
	price := s.basePrice(symbol) + s.rng.NormFloat64()*5

	var quantity float64
	if suspicious {
		if s.rng.Intn(2) == 0 {
			quantity = float64(s.rng.Intn(10000) + 5000)
		} else {
			quantity = float64(s.rng.Intn(100) + 1)
			price = float64(s.rng.Intn(5000) + 1000)
		}
	} else {
		quantity = float64(s.rng.Intn(1000) + 1)
	}

	ts := time.Now()
	if suspicious && s.rng.Intn(2) == 0 {
		// Push the trade outside market hours.
		hour := s.rng.Intn(9) + 1
		if s.rng.Intn(2) == 0 {
			hour = s.rng.Intn(7) + 17
		}
		ts = time.Date(ts.Year(), ts.Month(), ts.Day(), hour, s.rng.Intn(60), ts.Second(), 0, time.UTC)
	}

	return model.NewEvent(tradeID(), account, symbol, side, quantity, round2(price), ts)
}

func (s *Simulator) basePrice(symbol string) float64 {
	switch symbol {
	case "GOOGL", "AMZN":
		return 2800
	case "TSLA", "NVDA":
		return 700
	case "AAPL", "MSFT", "META", "NFLX":
		return 300
	default:
		return 120
	}
}

func (s *Simulator) send(ctx context.Context, ev model.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("encode trade", "err", err)
		}
		return
	}
	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.AccountID),
		Value: data,
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if s.logger != nil {
			s.logger.Warn("produce trade failed", "transaction_id", ev.TransactionID, "err", err)
		}
		return
	}
	if s.logger != nil {
		s.logger.Debug("trade produced", "transaction_id", ev.TransactionID, "account_id", ev.AccountID)
	}
}

func tradeID() string {
	return "TXN-" + uuid.NewString()[:8]
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
