package rpc

import (
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
)

// Frame is an opaque message body. The bridge never decodes RPC payloads.
type Frame struct {
	Payload []byte
}

// Codec passes Frame bodies through untouched and falls back to protobuf
// for regular messages. It registers under the "proto" content subtype
// so peers see an ordinary protobuf call.
var Codec encoding.Codec = rawCodec{}

type rawCodec struct{}

func (rawCodec) Name() string {
	return "proto"
}

func (rawCodec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case *Frame:
		return m.Payload, nil
	case proto.Message:
		return proto.Marshal(m)
	}
	return nil, fmt.Errorf("rpc codec: cannot marshal %T", v)
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case *Frame:
		m.Payload = append([]byte(nil), data...)
		return nil
	case proto.Message:
		return proto.Unmarshal(data, m)
	}
	return fmt.Errorf("rpc codec: cannot unmarshal into %T", v)
}
