// Package signaling relays WebRTC session negotiation between camera
// producers and viewer consumers.
//
// Each camera id owns one session with at most one producer bound to
// it. Consumers attach by sending an offer. The router forwards
// offer, answer and ICE frames to the opposite party byte-for-byte
// and never reads SDP content, so media negotiation details stay out
// of the transport layer. Frames with no reachable counterpart are
// logged and dropped; the sender is expected to retry at the
// application level.
package signaling
