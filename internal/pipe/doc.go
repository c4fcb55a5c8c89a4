// Package pipe implements the ordered, reliable message pipe the broker and
// its services talk over. Both ends live in one process; a message is any Go
// value, and endpoints may themselves be sent to transfer one end of another
// pipe.
//
// A pipe has no wire encoding. Delivery is a task posted on the receiving
// end's sequence.Runner, which keeps handler code on a single sequence.
package pipe
