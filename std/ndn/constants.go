package ndn

import (
	"strconv"
	"time"

	enc "github.com/named-data/ndnrpc/std/encoding"
)

// MaxNDNPacketSize is the maximum allowed NDN packet size
const MaxNDNPacketSize = 8800

// DefaultInterestLife is the lifetime used when an Interest omits InterestLifetime.
const DefaultInterestLife = 4 * time.Second

// Packet TLV types (NDN packet format 0.3).
const (
	TypeInterest               enc.TLNum = 0x05
	TypeData                   enc.TLNum = 0x06
	TypeCanBePrefix            enc.TLNum = 0x21
	TypeMustBeFresh            enc.TLNum = 0x12
	TypeForwardingHint         enc.TLNum = 0x1e
	TypeNonce                  enc.TLNum = 0x0a
	TypeInterestLifetime       enc.TLNum = 0x0c
	TypeHopLimit               enc.TLNum = 0x22
	TypeApplicationParameters  enc.TLNum = 0x24
	TypeInterestSignatureInfo  enc.TLNum = 0x2c
	TypeInterestSignatureValue enc.TLNum = 0x2e
	TypeMetaInfo               enc.TLNum = 0x14
	TypeContentType            enc.TLNum = 0x18
	TypeFreshnessPeriod        enc.TLNum = 0x19
	TypeFinalBlockId           enc.TLNum = 0x1a
	TypeContent                enc.TLNum = 0x15
	TypeSignatureInfo          enc.TLNum = 0x16
	TypeSignatureValue         enc.TLNum = 0x17
	TypeSignatureType          enc.TLNum = 0x1b
	TypeKeyLocator             enc.TLNum = 0x1c
	TypeKeyDigest              enc.TLNum = 0x1d
	TypeSignatureNonce         enc.TLNum = 0x26
	TypeSignatureTime          enc.TLNum = 0x28
	TypeSignatureSeqNum        enc.TLNum = 0x2a
)

// Link protocol TLV types (NDNLPv2).
const (
	TypeLpPacket   enc.TLNum = 0x64
	TypeFragment   enc.TLNum = 0x50
	TypePitToken   enc.TLNum = 0x62
	TypeNack       enc.TLNum = 0x0320
	TypeNackReason enc.TLNum = 0x0321
)

// ContentType represents the type of Data content in MetaInfo.
type ContentType uint64

const (
	ContentTypeBlob ContentType = 0
	ContentTypeLink ContentType = 1
	ContentTypeKey  ContentType = 2
	// ContentTypeNack marks an application-level negative answer. The bridge
	// uses it for Data carrying an ApplicationError.
	ContentTypeNack ContentType = 3
)

// SigType represents the type of signature.
type SigType int

const (
	SignatureNone         SigType = -1
	SignatureDigestSha256 SigType = 0
	SignatureEd25519      SigType = 5
)

func (t SigType) String() string {
	switch t {
	case SignatureNone:
		return "None"
	case SignatureDigestSha256:
		return "DigestSha256"
	case SignatureEd25519:
		return "Ed25519"
	default:
		return "Unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// NackReason is the reason carried by a network Nack.
type NackReason uint64

const (
	NackReasonNone       NackReason = 0
	NackReasonCongestion NackReason = 100
	NackReasonNoRoute    NackReason = 150
	// NackReasonNoRouteHint is NoRoute caused by an invalid forwarding hint.
	NackReasonNoRouteHint NackReason = 151
	// NackReasonNoStrategy is NoRoute caused by no usable strategy.
	NackReasonNoStrategy NackReason = 160
	// NackReasonDuplicate uses a code outside the ranges above.
	NackReasonDuplicate NackReason = 200
)

// IsNoRoute reports whether the reason belongs to the NoRoute family.
func (r NackReason) IsNoRoute() bool {
	return r >= 150 && r < 200
}

func (r NackReason) String() string {
	switch r {
	case NackReasonNone:
		return "None"
	case NackReasonCongestion:
		return "Congestion"
	case NackReasonNoRoute:
		return "NoRoute"
	case NackReasonNoRouteHint:
		return "NoRoute(InvalidForwardingHint)"
	case NackReasonNoStrategy:
		return "NoRoute(NoUsableStrategy)"
	case NackReasonDuplicate:
		return "Duplicate"
	default:
		return "Unknown(" + strconv.FormatUint(uint64(r), 10) + ")"
	}
}
