// Package hub manages live WebSocket connections for FORMS Core.
//
// Every connection carries an identity and a role. Identities are
// unique across the hub: reconnecting with the same id evicts the
// previous connection. The hub fans typed event envelopes out to
// clients by role and relays raw frames untouched for WebRTC
// signaling, where byte fidelity of SDP and ICE payloads matters.
//
// Delivery is best effort. A client whose outbound queue is full
// misses the frame; nothing is retried or stored.
package hub
