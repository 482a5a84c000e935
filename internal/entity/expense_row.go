package entity

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ExpenseRow is an expense as stored by a record backend, before any coercion.
type ExpenseRow struct {
	ID          FlexString `json:"id"`
	UserID      string     `json:"user_id"`
	Date        string     `json:"date"`
	Amount      FlexString `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	ReceiptURL  string     `json:"receipt_url"`
}

// FlexString decodes a JSON string, number or bool as text. null decodes to "".
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			var raw string
			if err := json.Unmarshal(b, &raw); err != nil {
				return err
			}
			s = raw
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(b)
	return nil
}

func (f FlexString) String() string { return string(f) }
