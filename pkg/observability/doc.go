/*
Package observability turns relay and Host activity into Prometheus metrics.

A Metrics value owns its own registry. Wire it in through hooks:

	m := observability.NewMetrics()
	rel := relay.NewServer(relay.WithHooks(m.RelayHooks()))
	h := host.New(host.WithHooks(m.HostHooks()))
	http.Handle("/metrics", m.Handler())
*/
package observability
