package telephony

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/joegen/opalvoip-opal/internal/message"
)

// IncomingCallForm is the simulator request for a remote party calling in.
// It is accepted as JSON or as application/x-www-form-urlencoded.
type IncomingCallForm struct {
	From string `json:"from"`
	To   string `json:"to,omitempty"`
}

var ErrInvalidForm = errors.New("telephony: invalid simulator request")

func ParseIncomingCall(r *http.Request) (IncomingCallForm, error) {
	var f IncomingCallForm
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			return IncomingCallForm{}, errors.Join(ErrInvalidForm, err)
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return IncomingCallForm{}, errors.Join(ErrInvalidForm, err)
		}
		f.From = r.PostFormValue("from")
		f.To = r.PostFormValue("to")
	}
	f.From = strings.TrimSpace(f.From)
	f.To = strings.TrimSpace(f.To)
	if f.From == "" {
		return IncomingCallForm{}, errors.Join(ErrInvalidForm, errors.New("from required"))
	}
	if _, _, err := message.ParseAddress(f.From); err != nil {
		return IncomingCallForm{}, errors.Join(ErrInvalidForm, err)
	}
	return f, nil
}
