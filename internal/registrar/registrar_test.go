package registrar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joegen/opalvoip-opal/internal/message"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestRegistrar_RequestThenStatus(t *testing.T) {
	base := time.Unix(1700000000, 0).UTC()
	r := New()
	r.Now = fixedClock(base)

	st, err := r.Request(message.Registration{Protocol: "SIP", Identifier: "alice@example.com", HostName: "example.com", TimeToLive: 300})
	require.NoError(t, err)
	assert.True(t, st.Pending)
	assert.Equal(t, message.PrefixSIP, st.Protocol)
	assert.False(t, st.Active())

	st, known, err := r.Apply(message.RegistrationStatusReport{Protocol: "sip", ServerName: "example.com", Status: message.RegistrationSuccessful})
	require.NoError(t, err)
	assert.True(t, known)
	assert.True(t, st.Active())

	got, err := r.Lookup("sip")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Identifier)
}

func TestRegistrar_StatusWithoutRequest(t *testing.T) {
	r := New()
	_, known, err := r.Apply(message.RegistrationStatusReport{Protocol: "h323", Status: message.RegistrationSuccessful, ServerName: "gk.example.com"})
	require.NoError(t, err)
	assert.False(t, known)

	_, err = r.Lookup("iax2")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, r.List(), 1)
}

func TestRegistrar_NeedsRefresh(t *testing.T) {
	base := time.Unix(1700000000, 0).UTC()
	r := New()
	r.Now = fixedClock(base)

	_, err := r.Request(message.Registration{Protocol: "sip", Identifier: "alice", TimeToLive: 300})
	require.NoError(t, err)
	_, err = r.Request(message.Registration{Protocol: "h323", Identifier: "bob", TimeToLive: 300, RestoreTime: 30})
	require.NoError(t, err)

	assert.Empty(t, r.NeedsRefresh(base.Add(time.Hour)), "pending registrations are not refreshed")

	_, _, _ = r.Apply(message.RegistrationStatusReport{Protocol: "sip", Status: message.RegistrationSuccessful})
	_, _, _ = r.Apply(message.RegistrationStatusReport{Protocol: "h323", Status: message.RegistrationFailed})

	assert.Empty(t, r.NeedsRefresh(base.Add(10*time.Second)))

	due := r.NeedsRefresh(base.Add(45 * time.Second))
	require.Len(t, due, 1)
	assert.Equal(t, "h323", due[0].Protocol)

	due = r.NeedsRefresh(base.Add(150 * time.Second))
	require.Len(t, due, 2)
	assert.Equal(t, "h323", due[0].Protocol)
	assert.Equal(t, "sip", due[1].Protocol)
}

func TestRegistrar_DeregistrationDropsState(t *testing.T) {
	r := New()
	_, _ = r.Request(message.Registration{Protocol: "sip", Identifier: "alice", TimeToLive: 300})
	_, _, _ = r.Apply(message.RegistrationStatusReport{Protocol: "sip", Status: message.RegistrationSuccessful})
	_, _ = r.Request(message.Registration{Protocol: "sip", Identifier: "alice", TimeToLive: 0})

	st, known, err := r.Apply(message.RegistrationStatusReport{Protocol: "sip", Status: message.RegistrationRemoved})
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, message.RegistrationRemoved, st.Status)
	assert.False(t, st.Active())

	_, err = r.Lookup("sip")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, r.List())
	assert.Empty(t, r.NeedsRefresh(time.Now().Add(time.Hour)))
}

func TestRegistrar_FatalFailureDropsState(t *testing.T) {
	r := New()
	_, _ = r.Request(message.Registration{Protocol: "sip", Identifier: "alice", TimeToLive: 300})
	_, _ = r.Request(message.Registration{Protocol: "h323", Identifier: "bob", TimeToLive: 300, RestoreTime: 30})

	_, _, err := r.Apply(message.RegistrationStatusReport{Protocol: "sip", Status: message.RegistrationFailed, Error: "403 forbidden"})
	require.NoError(t, err)
	_, _, err = r.Apply(message.RegistrationStatusReport{Protocol: "h323", Status: message.RegistrationFailed, Error: "timeout"})
	require.NoError(t, err)

	_, err = r.Lookup("sip")
	assert.ErrorIs(t, err, ErrNotFound)
	st, err := r.Lookup("h323")
	require.NoError(t, err, "a failure with a restore time is retried")
	assert.Equal(t, message.RegistrationFailed, st.Status)
	assert.Equal(t, "timeout", st.Error)
}

func TestRegistrar_UnknownProtocol(t *testing.T) {
	r := New()
	_, err := r.Request(message.Registration{Protocol: "xmpp", Identifier: "a"})
	assert.ErrorIs(t, err, message.ErrUnknownPrefix)
}
