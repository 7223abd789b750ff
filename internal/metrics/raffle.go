package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type RaffleMetrics struct {
	instructions  *prometheus.CounterVec
	ticketsSold   *prometheus.CounterVec
	settlements   *prometheus.CounterVec
	paidOut       *prometheus.CounterVec
	participants  *prometheus.GaugeVec
	currentRound  *prometheus.GaugeVec
	entropyHeight prometheus.Gauge
}

var (
	raffleOnce     sync.Once
	raffleRegistry *RaffleMetrics
)

func Raffle() *RaffleMetrics {
	raffleOnce.Do(func() {
		raffleRegistry = &RaffleMetrics{
			instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "raffle_instructions_total",
				Help: "Count of raffle instructions by kind and outcome.",
			}, []string{"instruction", "outcome"}),
			ticketsSold: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "raffle_tickets_sold_total",
				Help: "Tickets sold per tier.",
			}, []string{"tier"}),
			settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "raffle_settlements_total",
				Help: "Settled rounds per tier.",
			}, []string{"tier"}),
			paidOut: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "raffle_paid_out_total",
				Help: "Token units moved out of tier vaults by destination.",
			}, []string{"tier", "destination"}),
			participants: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "raffle_participants",
				Help: "Filled slots in the current round per tier.",
			}, []string{"tier"}),
			currentRound: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "raffle_round",
				Help: "Current round per tier.",
			}, []string{"tier"}),
			entropyHeight: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "raffle_entropy_slot",
				Help: "Slot of the most recent recorded entropy sample.",
			}),
		}
		prometheus.MustRegister(
			raffleRegistry.instructions,
			raffleRegistry.ticketsSold,
			raffleRegistry.settlements,
			raffleRegistry.paidOut,
			raffleRegistry.participants,
			raffleRegistry.currentRound,
			raffleRegistry.entropyHeight,
		)
	})
	return raffleRegistry
}

func (m *RaffleMetrics) ObserveInstruction(instruction string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.instructions.WithLabelValues(instruction, outcome).Inc()
}

func (m *RaffleMetrics) ObserveTicket(tier string, participants uint8) {
	if m == nil {
		return
	}
	m.ticketsSold.WithLabelValues(tier).Inc()
	m.participants.WithLabelValues(tier).Set(float64(participants))
}

func (m *RaffleMetrics) ObserveSettlement(tier string, nextRound uint64, prize, burn, ops uint64) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(tier).Inc()
	m.paidOut.WithLabelValues(tier, "prize").Add(float64(prize))
	m.paidOut.WithLabelValues(tier, "burn").Add(float64(burn))
	m.paidOut.WithLabelValues(tier, "ops").Add(float64(ops))
	m.participants.WithLabelValues(tier).Set(0)
	m.currentRound.WithLabelValues(tier).Set(float64(nextRound))
}

func (m *RaffleMetrics) ObserveRound(tier string, round uint64, participants uint8) {
	if m == nil {
		return
	}
	m.currentRound.WithLabelValues(tier).Set(float64(round))
	m.participants.WithLabelValues(tier).Set(float64(participants))
}

func (m *RaffleMetrics) ObserveEntropy(slot uint64) {
	if m == nil {
		return
	}
	m.entropyHeight.Set(float64(slot))
}
