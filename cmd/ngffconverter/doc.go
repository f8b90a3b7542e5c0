// Package main hosts the ngffconverter CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into conversion batches:
// convert builds one workflow per input file, runs the preflight checks,
// takes the working directory lock and hands the batch to the runner on a
// background goroutine while progress snapshots are rendered here. The other
// commands inspect configuration, job history, converter availability and
// leftover intermediates.
//
// Keep this package lean: add new behavior to the internal packages first,
// then surface it through dedicated commands or flags here.
package main
