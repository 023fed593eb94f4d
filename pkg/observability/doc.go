/*
Package observability turns driver lifecycle hooks into Prometheus metrics and
structured log lines.

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	mgr := session.NewManager(source,
		session.WithHooks(metrics.Hooks()),
		session.WithHooks(observability.LogHooks(logger)),
	)
*/
package observability
