package message

import (
	"fmt"
	"reflect"
)

// Payload is implemented by exactly one struct type per Kind.
type Payload interface {
	Kind() Kind
}

type validator interface {
	validate() error
}

// Envelope is one command, response or event crossing the engine boundary.
// Payload is always the variant that matches Kind.
type Envelope struct {
	Kind    Kind
	Payload Payload
}

// New builds an envelope, failing with ErrInvalidPayload when payload does
// not have the shape kind expects.
func New(kind Kind, payload Payload) (Envelope, error) {
	e := Envelope{Kind: kind, Payload: payload}
	if err := e.Validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

// Of wraps a payload using its own kind. It does not validate field contents.
func Of(payload Payload) Envelope {
	return Envelope{Kind: payload.Kind(), Payload: payload}
}

// Validate checks the variant and the required fields of the payload.
func (e Envelope) Validate() error {
	if e.Payload == nil {
		return invalid("missing payload for " + e.Kind.String())
	}
	if e.Payload.Kind() != e.Kind {
		return fmt.Errorf("%w: %s payload for kind %s", ErrInvalidPayload, e.Payload.Kind(), e.Kind)
	}
	if u, ok := e.Payload.(Unrecognized); ok {
		if u.Code.Known() {
			return invalid("unrecognized payload for known kind " + u.Code.String())
		}
		return nil
	}
	if want, ok := payloadTypes[e.Kind]; !ok || reflect.TypeOf(e.Payload) != want {
		return fmt.Errorf("%w: %T for kind %s", ErrInvalidPayload, e.Payload, e.Kind)
	}
	if v, ok := e.Payload.(validator); ok {
		return v.validate()
	}
	return nil
}

// CallToken returns the call token carried by the payload, if any.
func (e Envelope) CallToken() string {
	if e.Payload == nil {
		return ""
	}
	v := reflect.ValueOf(e.Payload)
	if v.Kind() != reflect.Struct {
		return ""
	}
	f := v.FieldByName("CallToken")
	if !f.IsValid() || f.Kind() != reflect.String {
		return ""
	}
	return f.String()
}

// IsError reports whether the envelope is a CommandError.
func (e Envelope) IsError() bool {
	return e.Kind == KindCommandError
}

func (e Envelope) String() string {
	if tok := e.CallToken(); tok != "" {
		return e.Kind.String() + "[" + tok + "]"
	}
	return e.Kind.String()
}

// CommandError is the response to a command that could not be accepted.
// A CommandError never travels with a result payload.
type CommandError struct {
	Code    ErrorCode `json:"code" wire:"1"`
	Message string    `json:"message" wire:"2"`
}

func (CommandError) Kind() Kind { return KindCommandError }

func (c CommandError) Error() string {
	return c.Code.String() + ": " + c.Message
}

func (c CommandError) validate() error {
	if c.Message == "" {
		return invalid("message required")
	}
	return nil
}

// Errorf builds a CommandError envelope.
func Errorf(code ErrorCode, format string, args ...any) Envelope {
	return Envelope{
		Kind:    KindCommandError,
		Payload: CommandError{Code: code, Message: fmt.Sprintf(format, args...)},
	}
}

// Unrecognized holds a message whose kind this build does not know. Its
// raw fields are kept so the message can be forwarded or logged unchanged.
type Unrecognized struct {
	Code   Kind    `json:"code"`
	Fields []Field `json:"fields,omitempty"`
}

func (u Unrecognized) Kind() Kind { return u.Code }

var payloadTypes = map[Kind]reflect.Type{}

func init() {
	for _, p := range []Payload{
		CommandError{},
		SetGeneralParameters{},
		SetProtocolParameters{},
		Registration{},
		RegistrationStatusReport{},
		SetUpCall{},
		IncomingCall{},
		AnswerCall{},
		ClearCall{},
		Alerting{},
		Established{},
		UserInput{},
		CallCleared{},
		HoldCall{},
		RetrieveCall{},
		TransferCall{},
		SendUserInput{},
		MessageWaiting{},
		MediaStream{},
		MediaStreamControl{},
		SetUserData{},
		LineAppearance{},
		StartRecording{},
		StopRecording{},
		Proceeding{},
		AlertingCall{},
		OnHold{},
		OffHold{},
		TransferStatus{},
		CompletedIVR{},
		AuthorisePresence{},
		SubscribePresence{},
		SetLocalPresence{},
		PresenceChange{},
		SendIM{},
		ReceiveIM{},
		SentIM{},
		ProtocolMessage{},
	} {
		payloadTypes[p.Kind()] = reflect.TypeOf(p)
	}
	for k := range kinds {
		if _, ok := payloadTypes[k]; !ok {
			panic("message: no payload type for " + k.String())
		}
	}
}

// zeroPayload returns an addressable zero value of the payload type for k.
func zeroPayload(k Kind) (reflect.Value, bool) {
	t, ok := payloadTypes[k]
	if !ok {
		return reflect.Value{}, false
	}
	return reflect.New(t).Elem(), true
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidPayload, msg)
}

func requireToken(token string) error {
	if token == "" {
		return invalid("call_token required")
	}
	return nil
}
