package message

import (
	"fmt"
	"strconv"
)

// enumName and parseEnum back the String/MarshalText/UnmarshalText methods
// of every wire enum. Unknown values still print, so a newer engine never
// breaks logging.
func enumName[T ~int32](names map[T]string, v T) string {
	if s, ok := names[v]; ok {
		return s
	}
	return strconv.FormatInt(int64(v), 10)
}

func parseEnum[T ~int32](names map[T]string, s string) (T, error) {
	for v, name := range names {
		if name == s {
			return v, nil
		}
	}
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return T(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownValue, s)
}

// SilenceDetectMode selects the silence detector behaviour.
type SilenceDetectMode int32

const (
	SilenceDetectNoChange SilenceDetectMode = 0
	SilenceDetectDisabled SilenceDetectMode = 1
	SilenceDetectFixed    SilenceDetectMode = 2
	SilenceDetectAdaptive SilenceDetectMode = 3
)

var silenceDetectNames = map[SilenceDetectMode]string{
	SilenceDetectNoChange: "NoChange",
	SilenceDetectDisabled: "Disabled",
	SilenceDetectFixed:    "Enabled",
	SilenceDetectAdaptive: "Adaptive",
}

func (m SilenceDetectMode) String() string { return enumName(silenceDetectNames, m) }

func (m SilenceDetectMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *SilenceDetectMode) UnmarshalText(b []byte) error {
	v, err := parseEnum(silenceDetectNames, string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// EchoCancelMode switches the echo canceller.
type EchoCancelMode int32

const (
	EchoCancelNoChange EchoCancelMode = 0
	EchoCancelDisabled EchoCancelMode = 1
	EchoCancelEnabled  EchoCancelMode = 2
)

var echoCancelNames = map[EchoCancelMode]string{
	EchoCancelNoChange: "NoChange",
	EchoCancelDisabled: "Disabled",
	EchoCancelEnabled:  "Enabled",
}

func (m EchoCancelMode) String() string { return enumName(echoCancelNames, m) }

func (m EchoCancelMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *EchoCancelMode) UnmarshalText(b []byte) error {
	v, err := parseEnum(echoCancelNames, string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MediaDataType controls whether raw media callbacks see RTP headers.
type MediaDataType int32

const (
	MediaDataNoChange    MediaDataType = 0
	MediaDataPayloadOnly MediaDataType = 1
	MediaDataWithHeader  MediaDataType = 2
)

var mediaDataNames = map[MediaDataType]string{
	MediaDataNoChange:    "NoChange",
	MediaDataPayloadOnly: "PayloadOnly",
	MediaDataWithHeader:  "WithHeader",
}

func (m MediaDataType) String() string { return enumName(mediaDataNames, m) }

func (m MediaDataType) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *MediaDataType) UnmarshalText(b []byte) error {
	v, err := parseEnum(mediaDataNames, string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MediaState is the state carried by media stream events and commands.
type MediaState int32

const (
	MediaStateNoChange MediaState = 0
	MediaStateOpen     MediaState = 1
	MediaStateClose    MediaState = 2
	MediaStatePause    MediaState = 3
	MediaStateResume   MediaState = 4
)

var mediaStateNames = map[MediaState]string{
	MediaStateNoChange: "NoChange",
	MediaStateOpen:     "Open",
	MediaStateClose:    "Close",
	MediaStatePause:    "Pause",
	MediaStateResume:   "Resume",
}

func (s MediaState) String() string { return enumName(mediaStateNames, s) }

func (s MediaState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *MediaState) UnmarshalText(b []byte) error {
	v, err := parseEnum(mediaStateNames, string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// RegistrationStatus is reported by registration status events.
type RegistrationStatus int32

const (
	RegistrationSuccessful RegistrationStatus = 0
	RegistrationRemoved    RegistrationStatus = 1
	RegistrationFailed     RegistrationStatus = 2
	RegistrationRetrying   RegistrationStatus = 3
	RegistrationRestored   RegistrationStatus = 4
)

var registrationStatusNames = map[RegistrationStatus]string{
	RegistrationSuccessful: "Successful",
	RegistrationRemoved:    "Removed",
	RegistrationFailed:     "Failed",
	RegistrationRetrying:   "Retrying",
	RegistrationRestored:   "Restored",
}

func (s RegistrationStatus) String() string { return enumName(registrationStatusNames, s) }

func (s RegistrationStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *RegistrationStatus) UnmarshalText(b []byte) error {
	v, err := parseEnum(registrationStatusNames, string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// LineAppearanceState follows the shared line appearance dialog states.
type LineAppearanceState int32

const (
	LineTerminated   LineAppearanceState = 0
	LineTrying       LineAppearanceState = 1
	LineProceeding   LineAppearanceState = 2
	LineRinging      LineAppearanceState = 3
	LineConnected    LineAppearanceState = 4
	LineSubscribed   LineAppearanceState = 5
	LineUnsubscribed LineAppearanceState = 6

	LineIdle = LineTerminated
)

var lineStateNames = map[LineAppearanceState]string{
	LineTerminated:   "Terminated",
	LineTrying:       "Trying",
	LineProceeding:   "Proceeding",
	LineRinging:      "Ringing",
	LineConnected:    "Connected",
	LineSubscribed:   "Subscribed",
	LineUnsubscribed: "Unsubscribed",
}

func (s LineAppearanceState) String() string { return enumName(lineStateNames, s) }

func (s LineAppearanceState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *LineAppearanceState) UnmarshalText(b []byte) error {
	v, err := parseEnum(lineStateNames, string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// PresenceState values are contiguous from -100 so that the two states
// without an explicit native value keep a stable discriminant.
type PresenceState int32

const (
	PresenceAuthRequest PresenceState = -100
	PresenceError       PresenceState = -99
	PresenceForbidden   PresenceState = -98
	PresenceNone        PresenceState = -97
	PresenceUnchanged   PresenceState = -96
	PresenceAvailable   PresenceState = -95
	PresenceUnavailable PresenceState = -94
)

var presenceStateNames = map[PresenceState]string{
	PresenceAuthRequest: "AuthRequest",
	PresenceError:       "Error",
	PresenceForbidden:   "Forbidden",
	PresenceNone:        "None",
	PresenceUnchanged:   "Unchanged",
	PresenceAvailable:   "Available",
	PresenceUnavailable: "Unavailable",
}

func (s PresenceState) String() string { return enumName(presenceStateNames, s) }

func (s PresenceState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *PresenceState) UnmarshalText(b []byte) error {
	v, err := parseEnum(presenceStateNames, string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// VideoRecordMixMode is the layout used when recording both video legs.
type VideoRecordMixMode int32

const (
	VideoMixSideBySideLetterbox VideoRecordMixMode = 0
	VideoMixSideBySideScaled    VideoRecordMixMode = 1
	VideoMixStackedPillarbox    VideoRecordMixMode = 2
	VideoMixStackedScaled       VideoRecordMixMode = 3
)

var videoMixNames = map[VideoRecordMixMode]string{
	VideoMixSideBySideLetterbox: "SideBySideLetterbox",
	VideoMixSideBySideScaled:    "SideBySideScaled",
	VideoMixStackedPillarbox:    "StackedPillarbox",
	VideoMixStackedScaled:       "StackedScaled",
}

func (m VideoRecordMixMode) String() string { return enumName(videoMixNames, m) }

func (m VideoRecordMixMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *VideoRecordMixMode) UnmarshalText(b []byte) error {
	v, err := parseEnum(videoMixNames, string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// CallEndReason is the numeric clearance reason of a ClearCall command.
type CallEndReason int32

const (
	EndedByLocalUser            CallEndReason = 0
	EndedByNoAccept             CallEndReason = 1
	EndedByAnswerDenied         CallEndReason = 2
	EndedByRemoteUser           CallEndReason = 3
	EndedByRefusal              CallEndReason = 4
	EndedByNoAnswer             CallEndReason = 5
	EndedByCallerAbort          CallEndReason = 6
	EndedByTransportFail        CallEndReason = 7
	EndedByConnectFail          CallEndReason = 8
	EndedByGatekeeper           CallEndReason = 9
	EndedByNoUser               CallEndReason = 10
	EndedByNoBandwidth          CallEndReason = 11
	EndedByCapabilityExchange   CallEndReason = 12
	EndedByCallForwarded        CallEndReason = 13
	EndedBySecurityDenial       CallEndReason = 14
	EndedByLocalBusy            CallEndReason = 15
	EndedByLocalCongestion      CallEndReason = 16
	EndedByRemoteBusy           CallEndReason = 17
	EndedByRemoteCongestion     CallEndReason = 18
	EndedByUnreachable          CallEndReason = 19
	EndedByNoEndPoint           CallEndReason = 20
	EndedByHostOffline          CallEndReason = 21
	EndedByTemporaryFailure     CallEndReason = 22
	EndedByQ931Cause            CallEndReason = 23
	EndedByDurationLimit        CallEndReason = 24
	EndedByInvalidConferenceID  CallEndReason = 25
	EndedByNoDialTone           CallEndReason = 26
	EndedByNoRingBackTone       CallEndReason = 27
	EndedByOutOfService         CallEndReason = 28
	EndedByAcceptingCallWaiting CallEndReason = 29
)

var endReasonNames = map[CallEndReason]string{
	EndedByLocalUser:            "EndedByLocalUser",
	EndedByNoAccept:             "EndedByNoAccept",
	EndedByAnswerDenied:         "EndedByAnswerDenied",
	EndedByRemoteUser:           "EndedByRemoteUser",
	EndedByRefusal:              "EndedByRefusal",
	EndedByNoAnswer:             "EndedByNoAnswer",
	EndedByCallerAbort:          "EndedByCallerAbort",
	EndedByTransportFail:        "EndedByTransportFail",
	EndedByConnectFail:          "EndedByConnectFail",
	EndedByGatekeeper:           "EndedByGatekeeper",
	EndedByNoUser:               "EndedByNoUser",
	EndedByNoBandwidth:          "EndedByNoBandwidth",
	EndedByCapabilityExchange:   "EndedByCapabilityExchange",
	EndedByCallForwarded:        "EndedByCallForwarded",
	EndedBySecurityDenial:       "EndedBySecurityDenial",
	EndedByLocalBusy:            "EndedByLocalBusy",
	EndedByLocalCongestion:      "EndedByLocalCongestion",
	EndedByRemoteBusy:           "EndedByRemoteBusy",
	EndedByRemoteCongestion:     "EndedByRemoteCongestion",
	EndedByUnreachable:          "EndedByUnreachable",
	EndedByNoEndPoint:           "EndedByNoEndPoint",
	EndedByHostOffline:          "EndedByHostOffline",
	EndedByTemporaryFailure:     "EndedByTemporaryFailure",
	EndedByQ931Cause:            "EndedByQ931Cause",
	EndedByDurationLimit:        "EndedByDurationLimit",
	EndedByInvalidConferenceID:  "EndedByInvalidConferenceID",
	EndedByNoDialTone:           "EndedByNoDialTone",
	EndedByNoRingBackTone:       "EndedByNoRingBackTone",
	EndedByOutOfService:         "EndedByOutOfService",
	EndedByAcceptingCallWaiting: "EndedByAcceptingCallWaiting",
}

func (r CallEndReason) String() string { return enumName(endReasonNames, r) }

func (r CallEndReason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *CallEndReason) UnmarshalText(b []byte) error {
	v, err := parseEnum(endReasonNames, string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// ErrorCode classifies a CommandError so callers can branch without parsing text.
type ErrorCode int32

const (
	CodeUnspecified    ErrorCode = 0
	CodeInvalidPayload ErrorCode = 1
	CodeStaleToken     ErrorCode = 2
	CodeDuplicateToken ErrorCode = 3
	CodeRejected       ErrorCode = 4
	CodeShuttingDown   ErrorCode = 5
	CodeCapacity       ErrorCode = 6
)

var errorCodeNames = map[ErrorCode]string{
	CodeUnspecified:    "Unspecified",
	CodeInvalidPayload: "InvalidPayload",
	CodeStaleToken:     "StaleToken",
	CodeDuplicateToken: "DuplicateToken",
	CodeRejected:       "Rejected",
	CodeShuttingDown:   "ShuttingDown",
	CodeCapacity:       "Capacity",
}

func (c ErrorCode) String() string { return enumName(errorCodeNames, c) }

func (c ErrorCode) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *ErrorCode) UnmarshalText(b []byte) error {
	v, err := parseEnum(errorCodeNames, string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
