// Package crawler drives the prefix expansion of one autocomplete target.
//
// # Architecture
//
// A Crawler pairs a paced autocomplete client with a frontier. Workers pull
// prefixes from the frontier, query them, and feed the returned terms back
// so the frontier can schedule deeper prefixes. The crawl ends when the
// frontier is empty and no prefix is in flight.
//
// With the default single worker the crawl is strictly sequential and FIFO.
// Extra workers share the client's pacer, so they never exceed the pacing
// rate of one worker; they only overlap response latency.
//
// # Failures
//
// A prefix whose query gives up is logged and recorded, and the crawl moves
// on. Only the probe is fatal: if the service cannot answer "a", nothing
// else will work either.
//
// # Budgets
//
// A crawl stops early when its context is cancelled, when the request
// budget is spent, or when its duration limit passes. The result is then
// marked truncated and still carries every term found so far.
//
// # Usage
//
//	c := crawler.New(client, crawler.WithWorkers(2))
//	if _, err := c.Probe(ctx); err != nil {
//		return err
//	}
//	f := frontier.New()
//	f.Seed(frontier.Alphabet...)
//	result, err := c.Crawl(ctx, f)
package crawler
