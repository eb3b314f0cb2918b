package metrics

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Market turns relayed marketplace events into counters. Amounts are in wei
// and exported as float64, so very large totals lose low-order precision.
type Market struct {
	events      *prometheus.CounterVec
	sales       prometheus.Counter
	volume      prometheus.Counter
	fees        prometheus.Counter
	withdrawals prometheus.Counter
}

func NewMarket(registerer prometheus.Registerer) *Market {
	factory := promauto.With(registerer)
	return &Market{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketplace",
			Name:      "events_total",
			Help:      "Relayed marketplace events by type",
		}, []string{"event_type"}),
		sales: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketplace",
			Name:      "sales_total",
			Help:      "Settled sales",
		}),
		volume: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketplace",
			Name:      "sale_volume_wei_total",
			Help:      "Sum of settled sale prices in wei",
		}),
		fees: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketplace",
			Name:      "fees_accrued_wei_total",
			Help:      "Platform fees credited to the ledger in wei",
		}),
		withdrawals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketplace",
			Name:      "fees_withdrawn_wei_total",
			Help:      "Platform fees paid out to the owner in wei",
		}),
	}
}

func (m *Market) ObserveEvent(eventType string) {
	m.events.WithLabelValues(eventType).Inc()
}

func (m *Market) ObserveSettlement(price *uint256.Int, fee *uint256.Int) {
	m.sales.Inc()
	m.volume.Add(weiToFloat(price))
	m.fees.Add(weiToFloat(fee))
}

func (m *Market) ObserveWithdrawal(amount *uint256.Int) {
	m.withdrawals.Add(weiToFloat(amount))
}

func weiToFloat(value *uint256.Int) float64 {
	if value == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(value.ToBig()).Float64()
	return f
}
