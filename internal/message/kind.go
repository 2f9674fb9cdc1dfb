package message

import (
	"fmt"
	"strconv"
)

// Kind is the wire discriminant of an envelope.
// Values are fixed by the wire contract and must never be renumbered.
type Kind int32

const (
	KindCommandError          Kind = 0
	KindSetGeneralParameters  Kind = 1
	KindSetProtocolParameters Kind = 2
	KindRegistration          Kind = 3
	KindRegistrationStatus    Kind = 4
	KindSetUpCall             Kind = 5
	KindIncomingCall          Kind = 6
	KindAnswerCall            Kind = 7
	KindClearCall             Kind = 8
	KindAlerting              Kind = 9
	KindEstablished           Kind = 10
	KindUserInput             Kind = 11
	KindCallCleared           Kind = 12
	KindHoldCall              Kind = 13
	KindRetrieveCall          Kind = 14
	KindTransferCall          Kind = 15
	KindSendUserInput         Kind = 16
	KindMessageWaiting        Kind = 17
	KindMediaStream           Kind = 18
	KindMediaStreamControl    Kind = 19
	KindSetUserData           Kind = 20
	KindLineAppearance        Kind = 21
	KindStartRecording        Kind = 22
	KindStopRecording         Kind = 23
	KindProceeding            Kind = 24
	KindAlertingCall          Kind = 25
	KindOnHold                Kind = 26
	KindOffHold               Kind = 27
	KindTransferStatus        Kind = 28
	KindCompletedIVR          Kind = 29
	KindAuthorisePresence     Kind = 30
	KindSubscribePresence     Kind = 31
	KindSetLocalPresence      Kind = 32
	KindPresenceChange        Kind = 33
	KindSendIM                Kind = 34
	KindReceiveIM             Kind = 35
	KindSentIM                Kind = 36
	KindProtocolMessage       Kind = 37
)

type kindInfo struct {
	name    string
	command bool
}

var kinds = map[Kind]kindInfo{
	KindCommandError:          {"CommandError", false},
	KindSetGeneralParameters:  {"SetGeneralParameters", true},
	KindSetProtocolParameters: {"SetProtocolParameters", true},
	KindRegistration:          {"Registration", true},
	KindRegistrationStatus:    {"RegistrationStatus", false},
	KindSetUpCall:             {"SetUpCall", true},
	KindIncomingCall:          {"IncomingCall", false},
	KindAnswerCall:            {"AnswerCall", true},
	KindClearCall:             {"ClearCall", true},
	KindAlerting:              {"Alerting", false},
	KindEstablished:           {"Established", false},
	KindUserInput:             {"UserInput", false},
	KindCallCleared:           {"CallCleared", false},
	KindHoldCall:              {"HoldCall", true},
	KindRetrieveCall:          {"RetrieveCall", true},
	KindTransferCall:          {"TransferCall", true},
	KindSendUserInput:         {"SendUserInput", true},
	KindMessageWaiting:        {"MessageWaiting", false},
	KindMediaStream:           {"MediaStream", false},
	KindMediaStreamControl:    {"MediaStreamControl", true},
	KindSetUserData:           {"SetUserData", true},
	KindLineAppearance:        {"LineAppearance", false},
	KindStartRecording:        {"StartRecording", true},
	KindStopRecording:         {"StopRecording", true},
	KindProceeding:            {"Proceeding", false},
	KindAlertingCall:          {"AlertingCall", true},
	KindOnHold:                {"OnHold", false},
	KindOffHold:               {"OffHold", false},
	KindTransferStatus:        {"TransferStatus", false},
	KindCompletedIVR:          {"CompletedIVR", false},
	KindAuthorisePresence:     {"AuthorisePresence", true},
	KindSubscribePresence:     {"SubscribePresence", true},
	KindSetLocalPresence:      {"SetLocalPresence", true},
	KindPresenceChange:        {"PresenceChange", false},
	KindSendIM:                {"SendIM", true},
	KindReceiveIM:             {"ReceiveIM", false},
	KindSentIM:                {"SentIM", false},
	KindProtocolMessage:       {"ProtocolMessage", false},
}

var kindsByName = func() map[string]Kind {
	out := make(map[string]Kind, len(kinds))
	for k, info := range kinds {
		out[info.name] = k
	}
	return out
}()

// Known reports whether k is part of the wire contract this build understands.
func (k Kind) Known() bool {
	_, ok := kinds[k]
	return ok
}

// IsCommand reports whether k flows from the application to the connection manager.
func (k Kind) IsCommand() bool {
	return kinds[k].command
}

// IsEvent reports whether k is an indication emitted by the connection manager.
func (k Kind) IsEvent() bool {
	info, ok := kinds[k]
	return ok && !info.command && k != KindCommandError
}

func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return fmt.Sprintf("Unrecognized(%d)", int32(k))
}

// ParseKind resolves a kind by name or by its decimal discriminant.
func ParseKind(s string) (Kind, error) {
	if k, ok := kindsByName[s]; ok {
		return k, nil
	}
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return Kind(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Kinds returns every known kind in discriminant order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := KindCommandError; k <= KindProtocolMessage; k++ {
		if k.Known() {
			out = append(out, k)
		}
	}
	return out
}
