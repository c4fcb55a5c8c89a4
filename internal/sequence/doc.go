// Package sequence provides the single logical execution sequence every
// broker component runs on. Tasks posted to a Runner execute one at a time
// in FIFO order; components never lock their own state because only their
// Runner touches it.
package sequence
