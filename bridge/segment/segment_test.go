package segment_test

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/named-data/ndnrpc/bridge/segment"
	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/ndn"
	tu "github.com/named-data/ndnrpc/std/utils/testutils"
	"github.com/stretchr/testify/require"
)

func TestSegmentEmpty(t *testing.T) {
	tu.SetT(t)
	name := enc.MustNameFromStr("/svc/echo/1")

	segs := tu.NoErr(segment.Segment(name, nil, 4000))
	require.Len(t, segs, 1)
	require.Equal(t, "/svc/echo/1/seg=0", segs[0].Name.String())
	require.Empty(t, segs[0].Content)
	fin, ok := segs[0].FinalSegment()
	require.True(t, ok)
	require.Equal(t, uint64(0), fin)

	payload := tu.NoErr(segment.Reassemble(segs))
	require.Empty(t, payload)
}

func TestSegmentSizes(t *testing.T) {
	tu.SetT(t)
	name := enc.MustNameFromStr("/svc/blob")
	payload := make([]byte, 10000)
	rand.New(rand.NewSource(1)).Read(payload)

	segs := tu.NoErr(segment.Segment(name, payload, 4000))
	require.Len(t, segs, 3)
	require.Len(t, segs[0].Content, 4000)
	require.Len(t, segs[1].Content, 4000)
	require.Len(t, segs[2].Content, 2000)
	for i, s := range segs {
		num, ok := s.Name.SegmentNum()
		require.True(t, ok)
		require.Equal(t, uint64(i), num)
		fin, _ := s.FinalSegment()
		require.Equal(t, uint64(2), fin)
	}

	// exact multiple does not produce an empty trailing segment
	segs = tu.NoErr(segment.Segment(name, payload[:8000], 4000))
	require.Len(t, segs, 2)

	_, err := segment.Segment(name, payload, 0)
	require.Error(t, err)
}

func TestSegmentRoundTrip(t *testing.T) {
	tu.SetT(t)
	rng := rand.New(rand.NewSource(42))
	name := enc.MustNameFromStr("/svc/rt")

	for _, size := range []int{0, 1, 99, 100, 101, 1000, 12345} {
		for _, maxSize := range []int{1, 7, 100, 4000} {
			if size/maxSize > 2000 {
				continue
			}
			payload := make([]byte, size)
			rng.Read(payload)

			segs := tu.NoErr(segment.Segment(name, payload, maxSize))
			for _, s := range segs {
				require.LessOrEqual(t, len(s.Content), maxSize)
			}
			rng.Shuffle(len(segs), func(i, j int) { segs[i], segs[j] = segs[j], segs[i] })

			out := tu.NoErr(segment.Reassemble(segs))
			require.True(t, bytes.Equal(payload, out), "size=%d max=%d", size, maxSize)
		}
	}
}

func TestReassemblerOutOfOrder(t *testing.T) {
	tu.SetT(t)
	name := enc.MustNameFromStr("/svc/blob/7")
	payload := bytes.Repeat([]byte("abcdefghij"), 1000)
	segs := tu.NoErr(segment.Segment(name, payload, 4000))

	r := segment.NewReassembler(name)
	require.False(t, tu.NoErr(r.Add(segs[2])))
	require.Equal(t, []uint64{0, 1}, r.Missing())
	require.False(t, tu.NoErr(r.Add(segs[0])))
	require.Equal(t, []uint64{1}, r.Missing())
	require.False(t, tu.NoErr(r.Add(segs[0])))

	_, err := r.Payload()
	require.ErrorIs(t, err, ndn.ErrIncompleteTransfer)

	require.True(t, tu.NoErr(r.Add(segs[1])))
	require.Equal(t, payload, tu.NoErr(r.Payload()))
	require.Empty(t, r.Missing())
}

func TestReassemblerGap(t *testing.T) {
	tu.SetT(t)
	name := enc.MustNameFromStr("/svc/blob")
	segs := tu.NoErr(segment.Segment(name, make([]byte, 9000), 4000))

	_, err := segment.Reassemble([]*ndn.Data{segs[0], segs[2]})
	require.ErrorIs(t, err, ndn.ErrIncompleteTransfer)

	_, err = segment.Reassemble(nil)
	require.ErrorIs(t, err, ndn.ErrIncompleteTransfer)
}

func TestReassemblerInvalid(t *testing.T) {
	tu.SetT(t)
	name := enc.MustNameFromStr("/svc/blob")
	r := segment.NewReassembler(name)

	// not a segment
	_, err := r.Add(&ndn.Data{Name: name.Append(enc.NewGenericComponent("x"))})
	require.ErrorIs(t, err, ndn.ErrMalformedPacket)

	// other object
	_, err = r.Add(&ndn.Data{Name: enc.MustNameFromStr("/other/seg=0")})
	require.ErrorIs(t, err, ndn.ErrMalformedPacket)

	// beyond final
	final := enc.NewSegmentComponent(1)
	tu.NoErr(r.Add(&ndn.Data{Name: name.Append(enc.NewSegmentComponent(0)), FinalBlockID: &final}))
	_, err = r.Add(&ndn.Data{Name: name.Append(enc.NewSegmentComponent(5))})
	require.ErrorIs(t, err, ndn.ErrMalformedPacket)

	// conflicting final
	other := enc.NewSegmentComponent(3)
	_, err = r.Add(&ndn.Data{Name: name.Append(enc.NewSegmentComponent(1)), FinalBlockID: &other})
	require.ErrorIs(t, err, ndn.ErrMalformedPacket)
}

func TestReassemblerLateFinal(t *testing.T) {
	tu.SetT(t)
	name := enc.MustNameFromStr("/svc/blob")
	payload := bytes.Repeat([]byte("0123456789"), 3)
	segs := tu.NoErr(segment.Segment(name, payload, 10))

	// only the last segment carries FinalBlockId
	for _, d := range segs[:2] {
		d.FinalBlockID = nil
	}
	r := segment.NewReassembler(name)

	// a segment past the end arrives before the final one is known
	extra := &ndn.Data{Name: name.Append(enc.NewSegmentComponent(3)), Content: []byte("junk")}
	require.False(t, tu.NoErr(r.Add(extra)))
	require.False(t, tu.NoErr(r.Add(segs[0])))
	require.False(t, tu.NoErr(r.Add(segs[1])))
	_, ok := r.Final()
	require.False(t, ok)
	require.Equal(t, []uint64{2}, r.Missing())

	require.True(t, tu.NoErr(r.Add(segs[2])))
	require.Equal(t, 3, r.Received())
	require.False(t, r.Has(3))
	require.Equal(t, payload, tu.NoErr(r.Payload()))
}
