package contract

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

// Metrics are optional; a nil *Metrics turns every hook into a no-op.
type Metrics struct {
	proposalsCreated prometheus.Counter
	votes            prometheus.Counter
	invested         prometheus.Counter
	executions       *prometheus.CounterVec
	refunds          prometheus.Counter
	refunded         prometheus.Counter
	multiSigActions  *prometheus.CounterVec
	paramChanges     *prometheus.CounterVec
	rejections       *prometheus.CounterVec
	locked           prometheus.Gauge
	treasury         prometheus.Gauge
	openProposals    prometheus.Gauge
}

// NewMetrics registers every collector under namespace.
func NewMetrics(namespace string, registerer prometheus.Registerer) (*Metrics, error) {
	var errs error
	m := &Metrics{
		proposalsCreated: newCounter(namespace, "proposals_created", "Number of proposals created", registerer, &errs),
		votes:            newCounter(namespace, "votes", "Number of votes cast", registerer, &errs),
		invested:         newCounter(namespace, "invested_total", "Tokens locked by votes", registerer, &errs),
		refunds:          newCounter(namespace, "refunds", "Number of investment refunds paid", registerer, &errs),
		refunded:         newCounter(namespace, "refunded_total", "Tokens refunded to investors", registerer, &errs),
		executions: newCounterVec(namespace, "proposals_executed", "Resolved proposals by result",
			[]string{"result"}, registerer, &errs),
		multiSigActions: newCounterVec(namespace, "multisig_actions", "Executed multisig actions",
			[]string{"action"}, registerer, &errs),
		paramChanges: newCounterVec(namespace, "parameter_changes", "Applied governance parameter changes",
			[]string{"name"}, registerer, &errs),
		rejections: newCounterVec(namespace, "rejected_calls", "Calls rejected by kind",
			[]string{"kind"}, registerer, &errs),
		locked:        newGauge(namespace, "locked_investment", "Investment currently held in custody", registerer, &errs),
		treasury:      newGauge(namespace, "treasury", "Treasury balance", registerer, &errs),
		openProposals: newGauge(namespace, "open_proposals", "Proposals not yet executed", registerer, &errs),
	}
	return m, errs
}

func newCounter(namespace, name, help string, registerer prometheus.Registerer, errs *error) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	*errs = multierr.Append(*errs, registerer.Register(c))
	return c
}

func newCounterVec(namespace, name, help string, labels []string, registerer prometheus.Registerer, errs *error) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	*errs = multierr.Append(*errs, registerer.Register(c))
	return c
}

func newGauge(namespace, name, help string, registerer prometheus.Registerer, errs *error) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	*errs = multierr.Append(*errs, registerer.Register(g))
	return g
}

func (m *Metrics) proposalCreated() {
	if m == nil {
		return
	}
	m.proposalsCreated.Inc()
}

func (m *Metrics) voteCast(investment Amount) {
	if m == nil {
		return
	}
	m.votes.Inc()
	m.invested.Add(float64(investment))
}

func (m *Metrics) executed(passed bool) {
	if m == nil {
		return
	}
	result := "failed"
	if passed {
		result = "passed"
	}
	m.executions.WithLabelValues(result).Inc()
}

func (m *Metrics) refundPaid(amount Amount) {
	if m == nil {
		return
	}
	m.refunds.Inc()
	m.refunded.Add(float64(amount))
}

func (m *Metrics) multiSigExecuted(action MultiSigAction) {
	if m == nil {
		return
	}
	m.multiSigActions.WithLabelValues(action.String()).Inc()
}

func (m *Metrics) parameterChanged(name string) {
	if m == nil {
		return
	}
	m.paramChanges.WithLabelValues(name).Inc()
}

func (m *Metrics) rejected(err error) {
	if m == nil || err == nil {
		return
	}
	m.rejections.WithLabelValues(KindOf(err).String()).Inc()
}

func (m *Metrics) observe(a *Accounting, open int) {
	if m == nil {
		return
	}
	m.locked.Set(float64(a.Locked))
	m.treasury.Set(float64(a.Treasury))
	m.openProposals.Set(float64(open))
}
