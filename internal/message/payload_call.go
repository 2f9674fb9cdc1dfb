package message

// CallInfo is the common shape of call set-up commands and progress events.
type CallInfo struct {
	PartyA         string         `json:"party_a,omitempty" wire:"1"`
	PartyB         string         `json:"party_b,omitempty" wire:"2"`
	CallToken      string         `json:"call_token,omitempty" wire:"3"`
	AlertingType   string         `json:"alerting_type,omitempty" wire:"4"`
	ProtocolCallID string         `json:"protocol_call_id,omitempty" wire:"5"`
	Overrides      ProtocolParams `json:"overrides,omitempty" wire:"6"`
}

// SetUpCall starts an outgoing call from PartyA (defaults to the local
// pcss endpoint) to PartyB. CallToken is filled by the response.
type SetUpCall CallInfo

func (SetUpCall) Kind() Kind { return KindSetUpCall }

func (p SetUpCall) validate() error {
	if p.PartyB == "" {
		return invalid("party_b required")
	}
	if _, _, err := ParseAddress(p.PartyB); err != nil {
		return invalid(err.Error())
	}
	if p.PartyA != "" {
		if _, _, err := ParseAddress(p.PartyA); err != nil {
			return invalid(err.Error())
		}
	}
	return nil
}

// Alerting reports that the remote party is ringing.
type Alerting CallInfo

func (Alerting) Kind() Kind { return KindAlerting }

func (p Alerting) validate() error { return requireToken(p.CallToken) }

// Established reports that the call was answered.
type Established CallInfo

func (Established) Kind() Kind { return KindEstablished }

func (p Established) validate() error { return requireToken(p.CallToken) }

// Proceeding reports that the remote side accepted the call for processing.
type Proceeding CallInfo

func (Proceeding) Kind() Kind { return KindProceeding }

func (p Proceeding) validate() error { return requireToken(p.CallToken) }

// TransferCall transfers CallToken to PartyB.
type TransferCall CallInfo

func (TransferCall) Kind() Kind { return KindTransferCall }

func (p TransferCall) validate() error {
	if err := requireToken(p.CallToken); err != nil {
		return err
	}
	if p.PartyB == "" {
		return invalid("party_b required")
	}
	return nil
}

// IncomingCall announces a new call from a remote party.
type IncomingCall struct {
	CallToken         string             `json:"call_token" wire:"1"`
	LocalAddress      string             `json:"local_address,omitempty" wire:"2"`
	RemoteAddress     string             `json:"remote_address,omitempty" wire:"3"`
	RemotePartyNumber string             `json:"remote_party_number,omitempty" wire:"4"`
	RemoteDisplayName string             `json:"remote_display_name,omitempty" wire:"5"`
	CalledAddress     string             `json:"called_address,omitempty" wire:"6"`
	CalledPartyNumber string             `json:"called_party_number,omitempty" wire:"7"`
	Product           ProductDescription `json:"product,omitempty" wire:"8"`
	AlertingType      string             `json:"alerting_type,omitempty" wire:"9"`
	ProtocolCallID    string             `json:"protocol_call_id,omitempty" wire:"10"`
	ReferredByAddress string             `json:"referred_by_address,omitempty" wire:"11"`
	RedirectingNumber string             `json:"redirecting_number,omitempty" wire:"12"`
}

func (IncomingCall) Kind() Kind { return KindIncomingCall }

func (p IncomingCall) validate() error { return requireToken(p.CallToken) }

// AnswerCall accepts an incoming call.
type AnswerCall struct {
	CallToken string         `json:"call_token" wire:"1"`
	Overrides ProtocolParams `json:"overrides,omitempty" wire:"2"`
	WithMedia bool           `json:"with_media,omitempty" wire:"3"`
}

func (AnswerCall) Kind() Kind { return KindAnswerCall }

func (p AnswerCall) validate() error { return requireToken(p.CallToken) }

// AlertingCall tells the remote side the local user is being alerted.
type AlertingCall struct {
	CallToken string         `json:"call_token" wire:"1"`
	Overrides ProtocolParams `json:"overrides,omitempty" wire:"2"`
	WithMedia bool           `json:"with_media,omitempty" wire:"3"`
}

func (AlertingCall) Kind() Kind { return KindAlertingCall }

func (p AlertingCall) validate() error { return requireToken(p.CallToken) }

// ClearCall releases a call.
type ClearCall struct {
	CallToken string        `json:"call_token" wire:"1"`
	Reason    CallEndReason `json:"reason,omitempty" wire:"2"`
}

func (ClearCall) Kind() Kind { return KindClearCall }

func (p ClearCall) validate() error { return requireToken(p.CallToken) }

// CallCleared reports that a call is gone; the token is invalid once released.
type CallCleared struct {
	CallToken string `json:"call_token" wire:"1"`
	Reason    string `json:"reason,omitempty" wire:"2"`
}

func (CallCleared) Kind() Kind { return KindCallCleared }

func (p CallCleared) validate() error { return requireToken(p.CallToken) }

// CallRef is the shape of commands and events that only name a call.
type CallRef struct {
	CallToken string `json:"call_token" wire:"1"`
}

type HoldCall CallRef

func (HoldCall) Kind() Kind { return KindHoldCall }

func (p HoldCall) validate() error { return requireToken(p.CallToken) }

type RetrieveCall CallRef

func (RetrieveCall) Kind() Kind { return KindRetrieveCall }

func (p RetrieveCall) validate() error { return requireToken(p.CallToken) }

type OnHold CallRef

func (OnHold) Kind() Kind { return KindOnHold }

func (p OnHold) validate() error { return requireToken(p.CallToken) }

type OffHold CallRef

func (OffHold) Kind() Kind { return KindOffHold }

func (p OffHold) validate() error { return requireToken(p.CallToken) }

type StopRecording CallRef

func (StopRecording) Kind() Kind { return KindStopRecording }

func (p StopRecording) validate() error { return requireToken(p.CallToken) }

// StartRecording records a call to File.
type StartRecording struct {
	CallToken   string             `json:"call_token" wire:"1"`
	File        string             `json:"file" wire:"2"`
	Channels    uint32             `json:"channels,omitempty" wire:"3"`
	AudioFormat string             `json:"audio_format,omitempty" wire:"4"`
	VideoFormat string             `json:"video_format,omitempty" wire:"5"`
	VideoWidth  uint32             `json:"video_width,omitempty" wire:"6"`
	VideoHeight uint32             `json:"video_height,omitempty" wire:"7"`
	VideoRate   uint32             `json:"video_rate,omitempty" wire:"8"`
	VideoMixing VideoRecordMixMode `json:"video_mixing,omitempty" wire:"9"`
}

func (StartRecording) Kind() Kind { return KindStartRecording }

func (p StartRecording) validate() error {
	if err := requireToken(p.CallToken); err != nil {
		return err
	}
	if p.File == "" {
		return invalid("file required")
	}
	if p.Channels > 2 {
		return invalid("channels must be 1 or 2")
	}
	return nil
}

// UserInputInfo carries DTMF or string user input.
type UserInputInfo struct {
	CallToken string `json:"call_token" wire:"1"`
	UserInput string `json:"user_input" wire:"2"`
	// Duration in milliseconds; zero means the default tone length.
	Duration uint32 `json:"duration,omitempty" wire:"3"`
}

// UserInput is user input received from the remote party.
type UserInput UserInputInfo

func (UserInput) Kind() Kind { return KindUserInput }

func (p UserInput) validate() error { return requireToken(p.CallToken) }

// SendUserInput sends user input to the remote party.
type SendUserInput UserInputInfo

func (SendUserInput) Kind() Kind { return KindSendUserInput }

func (p SendUserInput) validate() error {
	if err := requireToken(p.CallToken); err != nil {
		return err
	}
	if p.UserInput == "" {
		return invalid("user_input required")
	}
	return nil
}

// MediaStreamInfo describes one media stream of a call.
type MediaStreamInfo struct {
	CallToken  string     `json:"call_token" wire:"1"`
	Identifier string     `json:"identifier,omitempty" wire:"2"`
	Type       string     `json:"type,omitempty" wire:"3"`
	Format     string     `json:"format,omitempty" wire:"4"`
	State      MediaState `json:"state,omitempty" wire:"5"`
	Volume     int32      `json:"volume,omitempty" wire:"6"`
}

// MediaStream reports a media stream change.
type MediaStream MediaStreamInfo

func (MediaStream) Kind() Kind { return KindMediaStream }

func (p MediaStream) validate() error {
	if err := requireToken(p.CallToken); err != nil {
		return err
	}
	if p.Identifier == "" {
		return invalid("identifier required")
	}
	return nil
}

// MediaStreamControl opens, closes, pauses or resumes a stream. A stream is
// selected by Identifier, or by Type (for example "audio out") when opening.
type MediaStreamControl MediaStreamInfo

func (MediaStreamControl) Kind() Kind { return KindMediaStreamControl }

func (p MediaStreamControl) validate() error {
	if err := requireToken(p.CallToken); err != nil {
		return err
	}
	if p.Identifier == "" && p.Type == "" {
		return invalid("identifier or type required")
	}
	if _, ok := mediaStateNames[p.State]; !ok {
		return invalid("state out of range")
	}
	if p.Volume < -1 || p.Volume > 100 {
		return invalid("volume must be -1..100")
	}
	return nil
}

// SetUserData attaches opaque application data to a call.
type SetUserData struct {
	CallToken string `json:"call_token" wire:"1"`
	UserData  string `json:"user_data" wire:"2"`
}

func (SetUserData) Kind() Kind { return KindSetUserData }

func (p SetUserData) validate() error { return requireToken(p.CallToken) }

// TransferStatus reports progress of a transfer.
type TransferStatus struct {
	CallToken      string `json:"call_token" wire:"1"`
	ProtocolCallID string `json:"protocol_call_id,omitempty" wire:"2"`
	Result         string `json:"result,omitempty" wire:"3"`
	Info           string `json:"info,omitempty" wire:"4"`
}

func (TransferStatus) Kind() Kind { return KindTransferStatus }

func (p TransferStatus) validate() error { return requireToken(p.CallToken) }

// CompletedIVR reports the end of an IVR script with its variables.
type CompletedIVR struct {
	CallToken string `json:"call_token" wire:"1"`
	Variables string `json:"variables,omitempty" wire:"2"`
}

func (CompletedIVR) Kind() Kind { return KindCompletedIVR }

func (p CompletedIVR) validate() error { return requireToken(p.CallToken) }

// ProtocolMessage passes a protocol specific message through unchanged.
type ProtocolMessage struct {
	Protocol   string `json:"protocol" wire:"1"`
	CallToken  string `json:"call_token,omitempty" wire:"2"`
	Identifier string `json:"identifier,omitempty" wire:"3"`
	Payload    []byte `json:"payload,omitempty" wire:"4"`
}

func (ProtocolMessage) Kind() Kind { return KindProtocolMessage }

func (p ProtocolMessage) validate() error {
	if p.Protocol == "" {
		return invalid("protocol required")
	}
	return nil
}
