package mqttsub

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodePayloadLocation(t *testing.T) {
	fix, ok := DecodePayload([]byte(`{"_type":"location","tid":"al","lat":52.52,"lon":13.405,"tst":1700000000}`))
	require.True(t, ok)
	require.Equal(t, "al", fix.User)
	require.Equal(t, 52.52, fix.Latitude)
	require.Equal(t, 13.405, fix.Longitude)
	require.Equal(t, int64(1700000000), fix.Timestamp)
}

func TestDecodePayloadMalformedJSON(t *testing.T) {
	_, ok := DecodePayload([]byte(`{"_type":"location","tid":`))
	require.False(t, ok)
}

func TestDecodePayloadWrongType(t *testing.T) {
	_, ok := DecodePayload([]byte(`{"_type":"lwt","tid":"al"}`))
	require.False(t, ok)
}

func TestDecodePayloadMissingFields(t *testing.T) {
	_, ok := DecodePayload([]byte(`{"_type":"location","lat":52.52,"lon":13.405,"tst":1700000000}`))
	require.False(t, ok, "missing tid")

	_, ok = DecodePayload([]byte(`{"_type":"location","tid":"al","lat":52.52,"lon":13.405}`))
	require.False(t, ok, "missing tst")

	_, ok = DecodePayload([]byte(`{"_type":"location","tid":"al","lat":52.52,"tst":1700000000}`))
	require.False(t, ok, "missing lon")
}

func TestDecodePayloadZeroCoordinatesAreValid(t *testing.T) {
	fix, ok := DecodePayload([]byte(`{"_type":"location","tid":"al","lat":0,"lon":0,"tst":1700000000}`))
	require.True(t, ok)
	require.Zero(t, fix.Latitude)
	require.Zero(t, fix.Longitude)
}
