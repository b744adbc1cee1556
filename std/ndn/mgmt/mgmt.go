// Package mgmt builds forwarder management commands (NFD management
// protocol) and decodes their responses.
package mgmt

import (
	"fmt"
	"time"

	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/ndn"
)

const (
	TypeControlParameters enc.TLNum = 0x68
	TypeFaceId            enc.TLNum = 0x69
	TypeCost              enc.TLNum = 0x6a
	TypeFlags             enc.TLNum = 0x6c
	TypeExpirationPeriod  enc.TLNum = 0x6d
	TypeOrigin            enc.TLNum = 0x6f

	TypeControlResponse enc.TLNum = 0x65
	TypeStatusCode      enc.TLNum = 0x66
	TypeStatusText      enc.TLNum = 0x67
)

// RouteOrigin identifies who installed a route in the RIB.
type RouteOrigin uint64

const (
	RouteOriginApp    RouteOrigin = 0
	RouteOriginClient RouteOrigin = 65
)

// Route flags
const (
	RouteFlagChildInherit uint64 = 1
	RouteFlagCapture      uint64 = 2
)

// ControlArgs are the command arguments encoded as ControlParameters.
type ControlArgs struct {
	Name             enc.Name
	FaceId           *uint64
	Origin           *RouteOrigin
	Cost             *uint64
	Flags            *uint64
	ExpirationPeriod *time.Duration
}

func (a *ControlArgs) Bytes() []byte {
	var inner []byte
	if a.Name != nil {
		inner = append(inner, a.Name.Bytes()...)
	}
	if a.FaceId != nil {
		inner = enc.AppendNat(inner, TypeFaceId, *a.FaceId)
	}
	if a.Origin != nil {
		inner = enc.AppendNat(inner, TypeOrigin, uint64(*a.Origin))
	}
	if a.Cost != nil {
		inner = enc.AppendNat(inner, TypeCost, *a.Cost)
	}
	if a.Flags != nil {
		inner = enc.AppendNat(inner, TypeFlags, *a.Flags)
	}
	if a.ExpirationPeriod != nil {
		inner = enc.AppendNat(inner, TypeExpirationPeriod, uint64(a.ExpirationPeriod.Milliseconds()))
	}
	return enc.AppendTLV(nil, TypeControlParameters, inner)
}

// MakeCmd makes a signed command Interest /localhost/nfd/<module>/<cmd>/<params>.
func MakeCmd(module string, cmd string, args *ControlArgs, signer ndn.Signer, nonce uint32) (*ndn.Interest, []byte, error) {
	name := enc.Name{
		enc.NewGenericComponent("localhost"),
		enc.NewGenericComponent("nfd"),
		enc.NewGenericComponent(module),
		enc.NewGenericComponent(cmd),
		enc.NewBytesComponent(enc.TypeGenericNameComponent, args.Bytes()),
	}
	interest := &ndn.Interest{
		Name:        name,
		MustBeFresh: true,
		Nonce:       nonce,
		Lifetime:    time.Second,
	}
	wire, err := interest.Encode(signer)
	if err != nil {
		return nil, nil, err
	}
	return interest, wire, nil
}

// ControlResponse is the forwarder's answer to a command.
type ControlResponse struct {
	StatusCode uint64
	StatusText string
}

func (r *ControlResponse) Ok() bool {
	return r.StatusCode == 200
}

func (r *ControlResponse) Error() error {
	if r.Ok() {
		return nil
	}
	return fmt.Errorf("command failed with %d: %s", r.StatusCode, r.StatusText)
}

// ParseControlResponse decodes the content of a command response Data.
func ParseControlResponse(content []byte) (*ControlResponse, error) {
	r := enc.NewReader(content)
	val, err := r.ReadExpect(TypeControlResponse)
	if err != nil {
		return nil, fmt.Errorf("%w: control response: %v", ndn.ErrMalformedPacket, err)
	}
	ret := &ControlResponse{}
	vr := enc.NewReader(val)
	for !vr.Done() {
		typ, v, err := vr.ReadTLV()
		if err != nil {
			return nil, fmt.Errorf("%w: control response: %v", ndn.ErrMalformedPacket, err)
		}
		switch typ {
		case TypeStatusCode:
			n, err := enc.ParseNat(v)
			if err != nil {
				return nil, fmt.Errorf("%w: status code: %v", ndn.ErrMalformedPacket, err)
			}
			ret.StatusCode = uint64(n)
		case TypeStatusText:
			ret.StatusText = string(v)
		}
	}
	return ret, nil
}

// EncodeControlResponse is used by tests emulating a forwarder.
func EncodeControlResponse(code uint64, text string) []byte {
	inner := enc.AppendNat(nil, TypeStatusCode, code)
	inner = enc.AppendTLV(inner, TypeStatusText, []byte(text))
	return enc.AppendTLV(nil, TypeControlResponse, inner)
}
