package engine

import (
	"github.com/named-data/ndnrpc/std/engine/face"
)

// NewFace creates a self-reconnecting face for the given URI.
// An empty URI resolves through GetClientConfig.
func NewFace(uri string) (*face.Face, error) {
	if uri == "" {
		uri = GetClientConfig().TransportUri
	}
	transport, err := face.ParseTransport(uri)
	if err != nil {
		return nil, err
	}
	return face.NewFace(transport), nil
}
