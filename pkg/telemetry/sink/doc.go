// Package sink defines the structured record that every Sentinel component
// produces and the Sink interface that receives it.
//
// The default LoggerSink writes one structured line per record through the
// process logger. MemorySink captures records for tests and the debug
// endpoints, MultiSink fans out to several sinks, and Func adapts a plain
// function.
package sink
