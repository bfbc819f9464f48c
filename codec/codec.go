// Package codec converts wire messages to and from their transmitted textual
// form. The connection engine is bound to exactly one codec; both peers must
// agree on it out of band.
package codec

import "cross-rpc/message"

// Codec serializes one message per payload. Implementations must be safe for
// concurrent use, since outbound calls and inbound replies are serialized from
// different goroutines.
type Codec interface {
	Serialize(msg message.Message) ([]byte, error)
	Deserialize(data []byte) (message.Message, error)
}
