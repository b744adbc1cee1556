package ndn_test

import (
	"testing"
	"time"

	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/ndn"
	"github.com/named-data/ndnrpc/std/ndn/mgmt"
	sig "github.com/named-data/ndnrpc/std/security/signer"
	tu "github.com/named-data/ndnrpc/std/utils/testutils"
	"github.com/stretchr/testify/require"
)

func TestInterestCodec(t *testing.T) {
	tu.SetT(t)

	interest := &ndn.Interest{
		Name:        enc.MustNameFromStr("/svc/echo/1"),
		CanBePrefix: true,
		MustBeFresh: true,
		Nonce:       0x01020304,
		Lifetime:    2500 * time.Millisecond,
		HopLimit:    32,
	}
	wire := tu.NoErr(interest.Encode(nil))

	pkt := tu.NoErr(ndn.ParsePacket(wire))
	require.NotNil(t, pkt.Interest)
	require.Nil(t, pkt.Data)
	require.Nil(t, pkt.PitToken)
	got := pkt.Interest
	require.Equal(t, "/svc/echo/1", got.Name.String())
	require.True(t, got.CanBePrefix)
	require.True(t, got.MustBeFresh)
	require.Equal(t, uint32(0x01020304), got.Nonce)
	require.Equal(t, 2500*time.Millisecond, got.Life())
	require.Equal(t, uint8(32), got.HopLimit)
	require.Nil(t, got.AppParams)
}

func TestInterestDefaultLifetime(t *testing.T) {
	tu.SetT(t)
	wire := tu.NoErr((&ndn.Interest{Name: enc.MustNameFromStr("/a")}).Encode(nil))
	pkt := tu.NoErr(ndn.ParsePacket(wire))
	require.Equal(t, ndn.DefaultInterestLife, pkt.Interest.Life())
}

func TestInterestAppParams(t *testing.T) {
	tu.SetT(t)

	interest := &ndn.Interest{
		Name:      enc.MustNameFromStr("/svc/calc/add"),
		Nonce:     7,
		AppParams: []byte{0x0a, 0x02, 0x08, 0x01},
	}
	wire := tu.NoErr(interest.Encode(nil))
	require.Equal(t, enc.TypeParametersSha256DigestComponent, interest.Name.At(-1).Typ)

	pkt := tu.NoErr(ndn.ParsePacket(wire))
	require.True(t, interest.Name.Equal(pkt.Interest.Name))
	require.Equal(t, []byte{0x0a, 0x02, 0x08, 0x01}, []byte(pkt.Interest.AppParams))

	// corrupt the parameters, the digest must no longer match
	bad := append([]byte{}, wire...)
	bad[len(bad)-1] ^= 0xff
	_, err := ndn.ParsePacket(bad)
	require.ErrorIs(t, err, ndn.ErrMalformedPacket)
}

func TestSignedInterest(t *testing.T) {
	tu.SetT(t)

	signer, _ := tu.NoErr2(sig.KeygenEd25519(enc.MustNameFromStr("/ndnrpc")))
	interest := &ndn.Interest{Name: enc.MustNameFromStr("/localhost/nfd/rib/register"), Nonce: 9}
	wire := tu.NoErr(interest.Encode(signer))

	pkt := tu.NoErr(ndn.ParsePacket(wire))
	require.NotNil(t, pkt.Interest.Sig)
	require.Equal(t, ndn.SignatureEd25519, pkt.Interest.Sig.Type)
	require.Equal(t, "/ndnrpc", pkt.Interest.Sig.KeyName.String())
	require.Len(t, pkt.Interest.Sig.Value, 64)
	require.NotZero(t, pkt.Interest.Sig.Time)
}

func TestDataCodec(t *testing.T) {
	tu.SetT(t)

	final := enc.NewSegmentComponent(2)
	data := &ndn.Data{
		Name:         enc.MustNameFromStr("/svc/echo/1/seg=0"),
		Freshness:    10 * time.Second,
		FinalBlockID: &final,
		Content:      []byte("hello"),
	}
	wire := tu.NoErr(data.Encode(sig.NewSha256Signer()))

	pkt := tu.NoErr(ndn.ParsePacket(wire))
	require.NotNil(t, pkt.Data)
	got := pkt.Data
	require.Equal(t, "/svc/echo/1/seg=0", got.Name.String())
	require.Equal(t, ndn.ContentTypeBlob, got.ContentType)
	require.Equal(t, 10*time.Second, got.Freshness)
	fin, ok := got.FinalSegment()
	require.True(t, ok)
	require.Equal(t, uint64(2), fin)
	require.Equal(t, []byte("hello"), []byte(got.Content))
	require.Equal(t, ndn.SignatureDigestSha256, got.Sig.Type)
	require.True(t, sig.ValidateDigest(got.SigCovered(), got.Sig.Value))
}

func TestDataMalformed(t *testing.T) {
	tu.SetT(t)

	// Data without signature
	inner := enc.AppendTLV(nil, enc.TypeName, enc.MustNameFromStr("/a").BytesInner())
	_, err := ndn.ParsePacket(enc.AppendTLV(nil, ndn.TypeData, inner))
	require.ErrorIs(t, err, ndn.ErrMalformedPacket)

	// truncated
	_, err = ndn.ParsePacket([]byte{0x06, 0x10, 0x07})
	require.ErrorIs(t, err, ndn.ErrMalformedPacket)

	// unknown top-level type
	_, err = ndn.ParsePacket([]byte{0x09, 0x00})
	require.ErrorIs(t, err, ndn.ErrMalformedPacket)
}

func TestLpPitToken(t *testing.T) {
	tu.SetT(t)

	interestWire := tu.NoErr((&ndn.Interest{Name: enc.MustNameFromStr("/svc/echo"), Nonce: 1}).Encode(nil))
	frame := ndn.WrapLp(interestWire, []byte{0xaa, 0xbb})

	pkt := tu.NoErr(ndn.ParsePacket(frame))
	require.NotNil(t, pkt.Interest)
	require.Equal(t, []byte{0xaa, 0xbb}, pkt.PitToken)
	require.Equal(t, interestWire, pkt.Raw)

	require.Equal(t, interestWire, ndn.WrapLp(interestWire, nil))
}

func TestLpNack(t *testing.T) {
	tu.SetT(t)

	interestWire := tu.NoErr((&ndn.Interest{Name: enc.MustNameFromStr("/svc/none"), Nonce: 5}).Encode(nil))
	frame := ndn.EncodeNack(interestWire, ndn.NackReasonNoRoute, []byte{0x01})

	pkt := tu.NoErr(ndn.ParsePacket(frame))
	require.Nil(t, pkt.Interest)
	require.NotNil(t, pkt.Nack)
	require.Equal(t, ndn.NackReasonNoRoute, pkt.Nack.Reason)
	require.True(t, pkt.Nack.Reason.IsNoRoute())
	require.Equal(t, uint32(5), pkt.Nack.Interest.Nonce)
	require.Equal(t, []byte{0x01}, pkt.PitToken)

	require.True(t, ndn.NackReasonNoStrategy.IsNoRoute())
	require.False(t, ndn.NackReasonCongestion.IsNoRoute())
}

func TestMgmtCommand(t *testing.T) {
	tu.SetT(t)

	origin := mgmt.RouteOriginClient
	cost := uint64(10)
	args := &mgmt.ControlArgs{Name: enc.MustNameFromStr("/svc/echo"), Origin: &origin, Cost: &cost}
	interest, wire := tu.NoErr2(mgmt.MakeCmd("rib", "register", args, sig.NewSha256Signer(), 3))
	require.Equal(t, "/localhost/nfd/rib/register", interest.Name.Prefix(4).String())

	pkt := tu.NoErr(ndn.ParsePacket(wire))
	require.True(t, interest.Name.Equal(pkt.Interest.Name))
	require.Equal(t, args.Bytes(), pkt.Interest.Name[4].Val)

	res := tu.NoErr(mgmt.ParseControlResponse(mgmt.EncodeControlResponse(200, "OK")))
	require.True(t, res.Ok())
	require.NoError(t, res.Error())

	res = tu.NoErr(mgmt.ParseControlResponse(mgmt.EncodeControlResponse(403, "authorization rejected")))
	require.Error(t, res.Error())
}
