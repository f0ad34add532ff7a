package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	OpportunitiesFound    Counter
	OpportunitiesRejected Counter
	OrdersPlaced          Counter
	OrdersFailed          Counter
	TradesCompleted       Counter
	TradesFailed          Counter
	SinkErrors            Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		OpportunitiesFound:    n,
		OpportunitiesRejected: n,
		OrdersPlaced:          n,
		OrdersFailed:          n,
		TradesCompleted:       n,
		TradesFailed:          n,
		SinkErrors:            n,
	}
}
