// Package pipeline runs the stages of one crawl in sequence.
//
// A run passes through probing, crawling, artifact writing and history
// persistence. Each stage is a Step that receives the run and fills in its
// part. Steps that only save what earlier steps produced are final steps:
// they still run after cancellation, with a context that is no longer
// cancelled, so an interrupted crawl keeps its partial vocabulary.
//
// BatchProcessor runs one pipeline per target concurrently with errgroup.
// Each target brings its own pacer, so targets do not slow each other down.
package pipeline
