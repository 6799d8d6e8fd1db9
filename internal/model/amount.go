package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
)

// Amount is an exact unsigned integer carried as a decimal string in JSON.
type Amount struct {
	v big.Int
}

// NewAmount copies v into an Amount.
func NewAmount(v *big.Int) Amount {
	var a Amount
	if v != nil {
		a.v.Set(v)
	}
	return a
}

// AmountFromUint64 builds an Amount from a small value.
func AmountFromUint64(v uint64) Amount {
	var a Amount
	a.v.SetUint64(v)
	return a
}

// Big returns a fresh copy of the value.
func (a Amount) Big() *big.Int {
	return new(big.Int).Set(&a.v)
}

func (a Amount) String() string {
	return a.v.String()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.v.String())
}

// UnmarshalJSON accepts a quoted decimal string or a bare JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		a.v.SetInt64(0)
		return nil
	}
	text := string(data)
	if len(data) >= 2 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	}
	if _, ok := a.v.SetString(text, 10); !ok {
		return fmt.Errorf("invalid amount: %s", text)
	}
	return nil
}
