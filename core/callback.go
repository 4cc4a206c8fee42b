package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// PaymentEvent is the canonical form of a payment confirmation, whichever
// shape the callback arrived in. It is consumed immediately and never stored.
type PaymentEvent struct {
	Phone  string
	Amount float64
	Email  string
}

// ErrNoPhone means neither callback shape carried a payer phone number.
var ErrNoPhone = errors.New("core: no phone in callback")

type metadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

// callbackPayload accepts both the provider-native callback and the flat
// simulation shape in one decode.
type callbackPayload struct {
	Body *struct {
		StkCallback *struct {
			CallbackMetadata *struct {
				Item []metadataItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`

	Phone  string      `json:"phone"`
	Amount json.Number `json:"amount"`
	Email  string      `json:"email"`
}

// ParsePaymentEvent resolves a callback body to a PaymentEvent. The
// provider-native metadata list wins when present; otherwise the flat
// fields are used. ErrNoPhone if no payer phone can be resolved either way.
func ParsePaymentEvent(body []byte) (PaymentEvent, error) {
	var p callbackPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return PaymentEvent{}, fmt.Errorf("decode callback: %w", err)
	}

	var event PaymentEvent
	if p.Body != nil && p.Body.StkCallback != nil && p.Body.StkCallback.CallbackMetadata != nil {
		for _, item := range p.Body.StkCallback.CallbackMetadata.Item {
			switch item.Name {
			case "Amount":
				event.Amount = numericValue(item.Value)
			case "PhoneNumber":
				event.Phone = stringValue(item.Value)
			}
		}
	} else {
		event.Phone = p.Phone
		event.Email = p.Email
		if p.Amount != "" {
			if v, err := p.Amount.Float64(); err == nil {
				event.Amount = v
			}
		}
	}

	if event.Phone == "" {
		return PaymentEvent{}, ErrNoPhone
	}
	return event, nil
}

// stringValue renders a metadata value that may arrive as a JSON string or
// number. Phone numbers in particular come back as numbers.
func stringValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func numericValue(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	case json.Number:
		f, _ := t.Float64()
		return f
	default:
		return 0
	}
}
