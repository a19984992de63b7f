// Package domain contains the order messages exchanged with the kiosk.
package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swapbox/internal/apperror"
	"github.com/fd1az/swapbox/internal/asset"
)

// Method is the order kind requested by the kiosk.
type Method string

const (
	MethodBuy  Method = "buy"
	MethodSell Method = "sell"
)

// OrderRequest is a validated inbound order.
type OrderRequest struct {
	Method      Method
	Amount      *big.Int // whole tokens
	MinOutput   *big.Int // wei
	Destination common.Address
}

// wireOrder mirrors the JSON message. Pointers tell missing from empty.
type wireOrder struct {
	Method  *string `json:"method"`
	Amount  *string `json:"amount"`
	MinEth  *string `json:"min_eth"`
	Address *string `json:"address"`
}

// ParseOrder decodes and validates an inbound order message. Only buy
// orders carry amounts and an address; a sell order is just its method.
// Errors carry
// CodeMalformedMessage, or CodeUnsupportedMethod for a well-formed message
// with an unknown method; the error context is the reason.
func ParseOrder(payload []byte) (OrderRequest, error) {
	var w wireOrder
	dec := json.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(&w); err != nil {
		return OrderRequest{}, malformed("invalid JSON", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return OrderRequest{}, malformed("trailing data after JSON object", err)
	}

	if w.Method == nil {
		return OrderRequest{}, malformed("missing field method", nil)
	}
	method := Method(*w.Method)
	if method != MethodBuy && method != MethodSell {
		return OrderRequest{Method: method}, apperror.New(apperror.CodeUnsupportedMethod,
			apperror.WithContext("method "+*w.Method))
	}
	// sell is answered the same way whatever else the message holds
	if method == MethodSell {
		return OrderRequest{Method: MethodSell}, nil
	}

	amount, err := parseAmount("amount", w.Amount)
	if err != nil {
		return OrderRequest{}, err
	}
	minEth, err := parseAmount("min_eth", w.MinEth)
	if err != nil {
		return OrderRequest{}, err
	}

	if w.Address == nil {
		return OrderRequest{}, malformed("missing field address", nil)
	}
	if !common.IsHexAddress(*w.Address) {
		return OrderRequest{}, malformed("address is not a hex address", nil)
	}

	return OrderRequest{
		Method:      method,
		Amount:      amount,
		MinOutput:   minEth,
		Destination: common.HexToAddress(*w.Address),
	}, nil
}

func parseAmount(field string, raw *string) (*big.Int, error) {
	if raw == nil {
		return nil, malformed("missing field "+field, nil)
	}
	v, ok := asset.ParseUint(*raw)
	if !ok {
		return nil, malformed(field+" is not a non-negative integer", nil)
	}
	return v, nil
}

func malformed(reason string, cause error) error {
	opts := []apperror.Option{apperror.WithContext(reason)}
	if cause != nil {
		opts = append(opts, apperror.WithCause(cause))
	}
	return apperror.New(apperror.CodeMalformedMessage, opts...)
}

// Reason returns the human readable reason of a ParseOrder error.
func Reason(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Context != "" {
		return appErr.Context
	}
	return err.Error()
}
