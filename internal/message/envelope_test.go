package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryKindHasSample(t *testing.T) {
	seen := map[Kind]bool{}
	for _, p := range samplePayloads() {
		seen[p.Kind()] = true
	}
	for _, k := range Kinds() {
		assert.True(t, seen[k], "no sample for %s", k)
	}
	assert.Len(t, Kinds(), 38)
}

func TestNew_AcceptsMatchingPayloads(t *testing.T) {
	for _, p := range samplePayloads() {
		_, err := New(p.Kind(), p)
		require.NoError(t, err, "kind %s", p.Kind())
	}
}

func TestNew_RejectsMismatchedKind(t *testing.T) {
	_, err := New(KindAnswerCall, ClearCall{CallToken: "t"})
	require.ErrorIs(t, err, ErrInvalidPayload)

	_, err = New(KindSetUpCall, nil)
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestNew_RejectsMissingRequiredFields(t *testing.T) {
	cases := []Payload{
		SetUpCall{PartyA: "pcss:alice"},
		SetUpCall{PartyB: "bogus"},
		AnswerCall{},
		ClearCall{},
		SendUserInput{CallToken: "t"},
		MediaStreamControl{CallToken: "t"},
		MediaStreamControl{CallToken: "t", Type: "audio", Volume: 101},
		Registration{Protocol: "*", Identifier: "x"},
		SetProtocolParameters{Prefix: "skype"},
		SetGeneralParameters{RTPPortBase: 6000, RTPPortMax: 5000},
		SetGeneralParameters{MinAudioJitter: 300, MaxAudioJitter: 100},
		SetGeneralParameters{SilenceDetectMode: 9},
		SubscribePresence{Entity: "sip:a@example.com", State: PresenceAvailable},
		StartRecording{CallToken: "t"},
		SendIM{To: "sip:b@example.com"},
	}
	for _, p := range cases {
		_, err := New(p.Kind(), p)
		assert.ErrorIs(t, err, ErrInvalidPayload, "%#v", p)
	}
}

func TestEnvelope_CallToken(t *testing.T) {
	assert.Equal(t, "tok-9", Of(MediaStream{CallToken: "tok-9", Identifier: "1"}).CallToken())
	assert.Equal(t, "", Of(MessageWaiting{Party: "x"}).CallToken())
	assert.Equal(t, "", Envelope{}.CallToken())
}

func TestUnrecognized_OnlyForUnknownKinds(t *testing.T) {
	_, err := New(Kind(99), Unrecognized{Code: 99})
	require.NoError(t, err)

	_, err = New(KindSetUpCall, Unrecognized{Code: KindSetUpCall})
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestErrorf(t *testing.T) {
	e := Errorf(CodeStaleToken, "unknown call %q", "tok")
	require.True(t, e.IsError())
	ce, ok := e.Payload.(CommandError)
	require.True(t, ok)
	assert.Equal(t, CodeStaleToken, ce.Code)
	assert.Equal(t, `StaleToken: unknown call "tok"`, ce.Error())
}

func TestKind_Classification(t *testing.T) {
	assert.True(t, KindSetUpCall.IsCommand())
	assert.False(t, KindSetUpCall.IsEvent())
	assert.True(t, KindMediaStream.IsEvent())
	assert.False(t, KindCommandError.IsEvent())
	assert.False(t, KindCommandError.IsCommand())
	assert.Equal(t, "Unrecognized(77)", Kind(77).String())

	k, err := ParseKind("ClearCall")
	require.NoError(t, err)
	assert.Equal(t, KindClearCall, k)

	k, err = ParseKind("12")
	require.NoError(t, err)
	assert.Equal(t, KindCallCleared, k)

	_, err = ParseKind("Nope")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestWireDiscriminantsAreFixed(t *testing.T) {
	fixed := map[Kind]int32{
		KindCommandError:       0,
		KindSetUpCall:          5,
		KindIncomingCall:       6,
		KindCallCleared:        12,
		KindMediaStream:        18,
		KindMediaStreamControl: 19,
		KindAlertingCall:       25,
		KindProtocolMessage:    37,
	}
	for k, v := range fixed {
		assert.Equal(t, v, int32(k), k.String())
	}
	assert.Equal(t, int32(-100), int32(PresenceAuthRequest))
	assert.Equal(t, int32(-94), int32(PresenceUnavailable))
}
