/*
Package resilience provides a circuit breaker for host transports.

# Overview

A remote host that stops answering must not turn every flush into a long
timeout. The breaker fails fast while the host is down and tries it again
after a cool-down.

# Usage

	breaker := resilience.New("host-ws", resilience.Settings{
		MaxRequests: 3,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !host.IsTransport(err)
		},
	})

	env, err := resilience.Do(breaker, func() (wire.Envelope, error) {
		return transport.RoundTrip(ctx, req)
	})

# States

- Closed: Normal operation, requests pass through
- Open: Host unavailable, requests fail immediately
- Half-Open: Testing if the host recovered, limited requests allowed

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
