package encoding_test

import (
	"testing"

	enc "github.com/named-data/ndnrpc/std/encoding"
	tu "github.com/named-data/ndnrpc/std/utils/testutils"
	"github.com/stretchr/testify/require"
)

func TestComponentFromStrBasic(t *testing.T) {
	tu.SetT(t)

	comp := tu.NoErr(enc.ComponentFromStr("aa"))
	require.Equal(t, enc.Component{Typ: enc.TypeGenericNameComponent, Val: []byte("aa")}, comp)

	comp = tu.NoErr(enc.ComponentFromStr("a%20a"))
	require.Equal(t, enc.Component{Typ: enc.TypeGenericNameComponent, Val: []byte("a a")}, comp)

	comp = tu.NoErr(enc.ComponentFromStr("v=10"))
	require.Equal(t, enc.Component{Typ: enc.TypeVersionNameComponent, Val: []byte{0x0a}}, comp)

	comp = tu.NoErr(enc.ComponentFromStr("seg=300"))
	require.Equal(t, enc.Component{Typ: enc.TypeSegmentNameComponent, Val: []byte{0x01, 0x2c}}, comp)
	require.Equal(t, uint64(300), comp.NumberVal())

	comp = tu.NoErr(enc.ComponentFromStr("params-sha256=3d319b4802e56af7"))
	require.Equal(t, enc.TypeParametersSha256DigestComponent, comp.Typ)
	require.Equal(t, []byte{0x3d, 0x31, 0x9b, 0x48, 0x02, 0xe5, 0x6a, 0xf7}, comp.Val)

	comp = tu.NoErr(enc.ComponentFromStr("9=abc"))
	require.Equal(t, enc.Component{Typ: 9, Val: []byte("abc")}, comp)

	comp = tu.NoErr(enc.ComponentFromStr("..."))
	require.Equal(t, enc.Component{Typ: enc.TypeGenericNameComponent, Val: []byte{}}, comp)
}

func TestComponentFromStrMalformed(t *testing.T) {
	tu.SetT(t)

	for _, s := range []string{"", "foo=bar", "seg=abc", "params-sha256=zz", "a%2", "a%zz", "..", "0=x"} {
		err := tu.Err(enc.ComponentFromStr(s))
		require.ErrorIs(t, err, enc.ErrMalformedName, s)
	}
}

func TestComponentString(t *testing.T) {
	c := enc.Component{Typ: enc.TypeGenericNameComponent, Val: []byte("foo%bar")}
	require.Equal(t, "foo%25bar", c.String())

	c = enc.Component{Typ: enc.TypeGenericNameComponent, Val: []byte(":/?#[]@")}
	require.Equal(t, "%3A%2F%3F%23%5B%5D%40", c.String())

	require.Equal(t, "seg=2", enc.NewSegmentComponent(2).String())
	require.Equal(t, "v=1", enc.NewVersionComponent(1).String())
	require.Equal(t, "......", enc.NewGenericComponent("...").String())
}

func TestNameFromStr(t *testing.T) {
	tu.SetT(t)

	name := tu.NoErr(enc.NameFromStr("/svc/echo/1"))
	require.Equal(t, 3, len(name))
	require.Equal(t, "/svc/echo/1", name.String())

	root := tu.NoErr(enc.NameFromStr("/"))
	require.Equal(t, 0, len(root))
	require.Equal(t, "/", root.String())

	name = tu.NoErr(enc.NameFromStr("a/b/"))
	require.Equal(t, "/a/b", name.String())

	err := tu.Err(enc.NameFromStr("/a//b"))
	require.ErrorIs(t, err, enc.ErrMalformedName)

	err = tu.Err(enc.NameFromStr("/a/unknown=1"))
	require.ErrorIs(t, err, enc.ErrMalformedName)
}

func TestNameRoundTrip(t *testing.T) {
	tu.SetT(t)

	names := []enc.Name{
		{},
		{enc.NewGenericComponent("svc"), enc.NewGenericComponent("echo")},
		{enc.NewGenericComponent("a b"), enc.NewSegmentComponent(0)},
		{enc.NewGenericComponent(""), enc.NewGenericComponent("..")},
		{enc.NewBytesComponent(enc.TypeParametersSha256DigestComponent, []byte{0xde, 0xad})},
		{enc.NewBytesComponent(200, []byte{0x00, 0xff, '='})},
		{enc.NewVersionComponent(1 << 40), enc.NewSegmentComponent(1 << 20)},
	}
	for _, n := range names {
		parsed := tu.NoErr(enc.NameFromStr(n.String()))
		require.True(t, n.Equal(parsed), "%s != %s", n, parsed)

		decoded := tu.NoErr(enc.NameFromBytes(n.Bytes()))
		require.True(t, n.Equal(decoded), "%s != %s", n, decoded)
	}
}

func TestNameFromBytes(t *testing.T) {
	tu.SetT(t)

	buf := []byte("\x07\x14\x08\x05local\x08\x03ndn\x08\x06prefix")
	name := tu.NoErr(enc.NameFromBytes(buf))
	require.Equal(t, "/local/ndn/prefix", name.String())
	require.Equal(t, buf, name.Bytes())

	_, err := enc.NameFromBytes([]byte("\x07\x05\x08\x05loc"))
	require.ErrorIs(t, err, enc.ErrMalformedName)

	_, err = enc.NameFromBytes([]byte("\x06\x00"))
	require.ErrorIs(t, err, enc.ErrMalformedName)
}

func TestNamePrefix(t *testing.T) {
	a := enc.MustNameFromStr("/svc")
	b := enc.MustNameFromStr("/svc/echo/1")
	c := enc.MustNameFromStr("/svc/calc")

	require.True(t, a.IsPrefix(b))
	require.True(t, a.IsPrefix(a))
	require.False(t, b.IsPrefix(a))
	require.True(t, enc.Name{}.IsPrefix(b))

	require.Equal(t, 1, b.CommonPrefixLen(c))
	require.Equal(t, 3, b.CommonPrefixLen(b))
	require.Equal(t, 0, b.CommonPrefixLen(enc.MustNameFromStr("/other")))

	require.Equal(t, -1, a.Compare(b))
	require.Equal(t, 1, b.Compare(a))
	require.Equal(t, 0, b.Compare(b.Clone()))
}

func TestNameAppend(t *testing.T) {
	base := enc.MustNameFromStr("/svc/echo/1")
	seg := base.Append(enc.NewSegmentComponent(0))
	seg2 := base.Append(enc.NewSegmentComponent(1))

	require.Equal(t, "/svc/echo/1", base.String())
	require.Equal(t, "/svc/echo/1/seg=0", seg.String())
	require.Equal(t, "/svc/echo/1/seg=1", seg2.String())

	num, ok := seg2.SegmentNum()
	require.True(t, ok)
	require.Equal(t, uint64(1), num)
	_, ok = base.SegmentNum()
	require.False(t, ok)

	require.True(t, base.Equal(seg.Prefix(-1)))
}

func TestNameHash(t *testing.T) {
	a := enc.MustNameFromStr("/svc/echo")
	b := enc.MustNameFromStr("/svc/echo")
	c := enc.MustNameFromStr("/svc/echp")
	require.Equal(t, a.Hash(), b.Hash())
	require.NotEqual(t, a.Hash(), c.Hash())
	require.Equal(t, a.Key(), b.Key())
}
