// Package broker fans turn events out to subscribed hooks. The local broker
// serves the single-process case; the NATS broker carries the same events
// across process boundaries using their JSON wire form. Slow subscribers are
// dropped rather than allowed to stall publishers.
package broker
