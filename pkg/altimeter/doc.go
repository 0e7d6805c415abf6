// Package altimeter ingests the line-oriented telemetry stream of a serial
// altimeter and turns it into validated integer altitude readings.
package altimeter

// The sensor emits ASCII lines terminated by '\n'. Each line is either
// a bare non-negative decimal integer, or "digits*HH" where HH is the
// sum of the bytes before '*' modulo 256, as two hex digits.
//
// Bytes are absorbed by a fixed ring buffer, complete lines are framed
// out of it, parsed and pushed into a fixed reading queue. Nothing is
// allocated after construction and nothing blocks except ReadAltitude,
// which busy-polls for at most the configured read timeout.
//
// Producer: altimeter firmware
// Consumer: host control loop
