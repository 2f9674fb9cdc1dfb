package message

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTripsEveryKind(t *testing.T) {
	for _, p := range samplePayloads() {
		in := Of(p)
		buf, err := Encode(in)
		require.NoError(t, err, in.Kind.String())

		out, err := Decode(buf)
		require.NoError(t, err, in.Kind.String())
		assert.Equal(t, in, out, in.Kind.String())
	}
}

func TestCodec_ZeroPayloadRoundTrips(t *testing.T) {
	in := Of(HoldCall{})
	buf, err := Encode(in)
	require.NoError(t, err)
	assert.Len(t, buf, HeaderSize)

	out, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCodec_UnknownKindDecodesAsUnrecognized(t *testing.T) {
	fields := []Field{NewFieldString(1, "tok-x"), NewFieldUint32(2, 42)}
	buf, err := Encode(Envelope{Kind: 120, Payload: Unrecognized{Code: 120, Fields: fields}})
	require.NoError(t, err)

	out, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, Kind(120), out.Kind)
	u, ok := out.Payload.(Unrecognized)
	require.True(t, ok)
	assert.Equal(t, fields, u.Fields)

	again, err := Encode(out)
	require.NoError(t, err)
	assert.Equal(t, buf, again)
}

func TestCodec_SkipsUnknownFieldsOfKnownKind(t *testing.T) {
	buf, err := Encode(Of(ClearCall{CallToken: "tok-1"}))
	require.NoError(t, err)

	extra := appendFields(nil, []Field{NewFieldString(900, "future")})
	buf = append(buf, extra...)
	binary.BigEndian.PutUint32(buf[7:11], binary.BigEndian.Uint32(buf[7:11])+uint32(len(extra)))

	out, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, Of(ClearCall{CallToken: "tok-1"}), out)
}

func TestCodec_RejectsMalformedFrames(t *testing.T) {
	good, err := Encode(Of(CallCleared{CallToken: "tok-1", Reason: "x"}))
	require.NoError(t, err)

	_, err = Decode(good[:5])
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = Decode(good[:len(good)-1])
	assert.ErrorIs(t, err, ErrTruncated)

	bad := append([]byte(nil), good...)
	bad[0] = 0
	_, err = Decode(bad)
	assert.ErrorIs(t, err, ErrInvalidMagic)

	bad = append([]byte(nil), good...)
	bad[2] = 9
	_, err = Decode(bad)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = Decode(append(append([]byte(nil), good...), 0))
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestCodec_FieldTypeMismatch(t *testing.T) {
	body := appendFields(nil, []Field{NewFieldUint32(1, 5)})
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(buf[0:2], Magic)
	buf[2] = WireVersion
	binary.BigEndian.PutUint32(buf[3:7], uint32(KindClearCall))
	binary.BigEndian.PutUint32(buf[7:11], uint32(len(body)))
	buf = append(buf, body...)

	_, err := Decode(buf)
	assert.ErrorIs(t, err, ErrFieldTypeMismatch)
}

func TestCodec_EncodeRejectsMismatch(t *testing.T) {
	_, err := Encode(Envelope{Kind: KindClearCall, Payload: HoldCall{CallToken: "t"}})
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
