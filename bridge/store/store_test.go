package store_test

import (
	"testing"
	"time"

	"github.com/named-data/ndnrpc/bridge/store"
	enc "github.com/named-data/ndnrpc/std/encoding"
	tu "github.com/named-data/ndnrpc/std/utils/testutils"
	"github.com/stretchr/testify/require"
)

func testStoreBasic(t *testing.T, s store.Store) {
	name1 := enc.MustNameFromStr("/svc/echo/1/seg=0")
	name2 := enc.MustNameFromStr("/svc/echo/1/seg=1")
	name3 := enc.MustNameFromStr("/svc/echo/2/seg=0")

	// miss when empty
	data, err := s.Get(name1)
	require.NoError(t, err)
	require.Nil(t, data)

	require.NoError(t, s.Put(name1, []byte{0x01}, time.Minute))
	require.NoError(t, s.Put(name2, []byte{0x02}, time.Minute))
	require.NoError(t, s.Put(name3, []byte{0x03}, time.Minute))

	require.Equal(t, []byte{0x01}, tu.NoErr(s.Get(name1)))
	require.Equal(t, []byte{0x02}, tu.NoErr(s.Get(name2)))

	// no prefix match
	data, err = s.Get(name1.Prefix(-1))
	require.NoError(t, err)
	require.Nil(t, data)

	// overwrite
	require.NoError(t, s.Put(name1, []byte{0x11}, time.Minute))
	require.Equal(t, []byte{0x11}, tu.NoErr(s.Get(name1)))

	require.NoError(t, s.Remove(name3))
	require.Nil(t, tu.NoErr(s.Get(name3)))

	require.NoError(t, s.RemovePrefix(enc.MustNameFromStr("/svc/echo/1")))
	require.Nil(t, tu.NoErr(s.Get(name1)))
	require.Nil(t, tu.NoErr(s.Get(name2)))
}

func TestMemoryStore(t *testing.T) {
	tu.SetT(t)
	s := store.NewMemoryStore(time.Minute)
	testStoreBasic(t, s)
	require.NoError(t, s.Close())
}

func TestMemoryStoreExpiry(t *testing.T) {
	tu.SetT(t)
	s := store.NewMemoryStore(time.Minute)
	name := enc.MustNameFromStr("/svc/echo/1/seg=0")

	require.NoError(t, s.Put(name, []byte{0x01}, 20*time.Millisecond))
	require.Equal(t, 1, s.Len())
	time.Sleep(50 * time.Millisecond)
	require.Nil(t, tu.NoErr(s.Get(name)))
}

func TestBadgerStore(t *testing.T) {
	tu.SetT(t)
	s := tu.NoErr(store.NewBadgerStore(t.TempDir()))
	testStoreBasic(t, s)
	require.NoError(t, s.Close())
}

func TestOpen(t *testing.T) {
	tu.SetT(t)
	s := tu.NoErr(store.Open("", time.Second))
	require.IsType(t, &store.MemoryStore{}, s)
	require.NoError(t, s.Close())

	s = tu.NoErr(store.Open(t.TempDir(), time.Second))
	require.IsType(t, &store.BadgerStore{}, s)
	require.NoError(t, s.Close())
}

func TestMemoryStoreNoExpiration(t *testing.T) {
	tu.SetT(t)
	s := store.NewMemoryStore(20 * time.Millisecond)
	kept := enc.MustNameFromStr("/files/readme/seg=0")
	dropped := enc.MustNameFromStr("/files/tmp/seg=0")

	require.NoError(t, s.Put(kept, []byte{0x01}, store.NoExpiration))
	require.NoError(t, s.Put(dropped, []byte{0x02}, 0))
	time.Sleep(50 * time.Millisecond)

	require.Equal(t, []byte{0x01}, tu.NoErr(s.Get(kept)))
	require.Nil(t, tu.NoErr(s.Get(dropped)))
}
