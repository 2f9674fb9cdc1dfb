package message

// PresenceStatus is the shape of every presence command and event.
type PresenceStatus struct {
	Entity       string        `json:"entity" wire:"1"`
	Target       string        `json:"target,omitempty" wire:"2"`
	Service      string        `json:"service,omitempty" wire:"3"`
	Contact      string        `json:"contact,omitempty" wire:"4"`
	Capabilities string        `json:"capabilities,omitempty" wire:"5"`
	State        PresenceState `json:"state" wire:"6"`
	Activities   string        `json:"activities,omitempty" wire:"7"`
	Note         string        `json:"note,omitempty" wire:"8"`
	InfoType     string        `json:"info_type,omitempty" wire:"9"`
	InfoData     string        `json:"info_data,omitempty" wire:"10"`
}

func (p PresenceStatus) validate() error {
	if p.Entity == "" {
		return invalid("entity required")
	}
	if _, ok := presenceStateNames[p.State]; !ok {
		return invalid("presence state out of range")
	}
	return nil
}

// AuthorisePresence allows (Available) or denies (Forbidden) Target watching Entity.
type AuthorisePresence PresenceStatus

func (AuthorisePresence) Kind() Kind { return KindAuthorisePresence }

func (p AuthorisePresence) validate() error {
	if err := PresenceStatus(p).validate(); err != nil {
		return err
	}
	if p.Target == "" {
		return invalid("target required")
	}
	return nil
}

// SubscribePresence subscribes Entity to Target; State None unsubscribes.
type SubscribePresence PresenceStatus

func (SubscribePresence) Kind() Kind { return KindSubscribePresence }

func (p SubscribePresence) validate() error {
	if err := PresenceStatus(p).validate(); err != nil {
		return err
	}
	if p.Target == "" {
		return invalid("target required")
	}
	return nil
}

// SetLocalPresence publishes the presence of Entity.
type SetLocalPresence PresenceStatus

func (SetLocalPresence) Kind() Kind { return KindSetLocalPresence }

func (p SetLocalPresence) validate() error { return PresenceStatus(p).validate() }

// PresenceChange reports a presence change of a watched Entity.
type PresenceChange PresenceStatus

func (PresenceChange) Kind() Kind { return KindPresenceChange }

func (p PresenceChange) validate() error { return PresenceStatus(p).validate() }

// InstantMessage is the shape of every IM command and event.
type InstantMessage struct {
	From           string `json:"from,omitempty" wire:"1"`
	To             string `json:"to" wire:"2"`
	Host           string `json:"host,omitempty" wire:"3"`
	ConversationID string `json:"conversation_id,omitempty" wire:"4"`
	TextBody       string `json:"text_body,omitempty" wire:"5"`
	MessageID      uint32 `json:"message_id,omitempty" wire:"6"`
	Disposition    string `json:"disposition,omitempty" wire:"7"`
	CallToken      string `json:"call_token,omitempty" wire:"8"`
}

// SendIM sends a text message, in or out of a call.
type SendIM InstantMessage

func (SendIM) Kind() Kind { return KindSendIM }

func (p SendIM) validate() error {
	if p.To == "" && p.CallToken == "" {
		return invalid("to or call_token required")
	}
	if p.TextBody == "" {
		return invalid("text_body required")
	}
	return nil
}

// ReceiveIM delivers a received text message.
type ReceiveIM InstantMessage

func (ReceiveIM) Kind() Kind { return KindReceiveIM }

// SentIM reports the disposition of a message sent with SendIM.
type SentIM InstantMessage

func (SentIM) Kind() Kind { return KindSentIM }

// MessageWaiting reports a voicemail indication.
type MessageWaiting struct {
	Party     string `json:"party" wire:"1"`
	Type      string `json:"type,omitempty" wire:"2"`
	ExtraInfo string `json:"extra_info,omitempty" wire:"3"`
}

func (MessageWaiting) Kind() Kind { return KindMessageWaiting }

// LineAppearance reports the state of a shared line.
type LineAppearance struct {
	Line       string              `json:"line" wire:"1"`
	State      LineAppearanceState `json:"state" wire:"2"`
	Appearance int32               `json:"appearance,omitempty" wire:"3"`
	CallID     string              `json:"call_id,omitempty" wire:"4"`
	PartyA     string              `json:"party_a,omitempty" wire:"5"`
	PartyB     string              `json:"party_b,omitempty" wire:"6"`
}

func (LineAppearance) Kind() Kind { return KindLineAppearance }
