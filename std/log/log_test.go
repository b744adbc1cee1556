package log_test

import (
	"bytes"
	"testing"

	"github.com/named-data/ndnrpc/std/log"
	"github.com/stretchr/testify/require"
)

type tag struct{}

func (tag) String() string { return "face" }

func TestLoggerLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	l := log.NewText(buf)

	l.Debug(tag{}, "hidden")
	require.Zero(t, buf.Len())

	l.Info(tag{}, "Face up", "uri", "unix:///run/nfd/nfd.sock")
	require.Contains(t, buf.String(), "level=INFO")
	require.Contains(t, buf.String(), "tag=face")
	require.Contains(t, buf.String(), `msg="Face up"`)

	prev := l.SetLevel(log.LevelTrace)
	require.Equal(t, log.LevelInfo, prev)
	buf.Reset()
	l.Trace(nil, "visible")
	require.Contains(t, buf.String(), "level=TRACE")
}

func TestLoggerFatal(t *testing.T) {
	buf := &bytes.Buffer{}
	l := log.NewJson(buf)
	code := -1
	l.SetExit(func(c int) { code = c })

	l.Fatal(nil, "Configuration error")
	require.Equal(t, 1, code)
	require.Contains(t, buf.String(), `"level":"FATAL"`)
}

func TestParseLevel(t *testing.T) {
	lvl, err := log.ParseLevel("debug")
	require.NoError(t, err)
	require.Equal(t, log.LevelDebug, lvl)

	_, err = log.ParseLevel("loud")
	require.Error(t, err)
}
