// Package stage provides the generic pipeline stage: a bounded input queue, a
// Processor hook, and the completion signal that lets a stage drain its queue
// and then tell the next stage that no more input will arrive.
//
// Stages are chained with WithNext. Every record a stage takes is forwarded to
// the next stage once processed, whatever the outcome, so the final stage sees
// the whole stream. A full downstream queue blocks the sender; this is the only
// flow control in the pipeline.
package stage
