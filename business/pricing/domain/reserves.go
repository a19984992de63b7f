package domain

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/fd1az/swapbox/internal/apperror"
	"github.com/fd1az/swapbox/internal/asset"
)

// Reserves is a snapshot of the pool balances, both in wei.
type Reserves struct {
	TokenReserve *big.Int
	EthReserve   *big.Int
}

// NewReserves validates and copies a reserve pair.
func NewReserves(token, eth *big.Int) (Reserves, error) {
	r := Reserves{}
	if token != nil {
		r.TokenReserve = new(big.Int).Set(token)
	}
	if eth != nil {
		r.EthReserve = new(big.Int).Set(eth)
	}
	if err := r.Validate(); err != nil {
		return Reserves{}, err
	}
	return r, nil
}

// Validate requires both reserves to be positive.
func (r Reserves) Validate() error {
	return checkReserves(r.TokenReserve, r.EthReserve)
}

// EthForTokens returns the wei bought with tokens whole units of the pool token.
func (r Reserves) EthForTokens(tokens *big.Int) (*big.Int, error) {
	return InputPrice(tokens, r.TokenReserve, r.EthReserve)
}

// TokensForEth returns the token wei required to buy ethWei.
func (r Reserves) TokensForEth(ethWei *big.Int) (*big.Int, error) {
	return OutputPrice(r.EthReserve, ethWei, r.TokenReserve)
}

type reservesJSON struct {
	TokenReserve string `json:"token_reserve"`
	EthReserve   string `json:"eth_reserve"`
}

// MarshalJSON encodes both reserves as base-10 strings.
func (r Reserves) MarshalJSON() ([]byte, error) {
	return json.Marshal(reservesJSON{
		TokenReserve: bigString(r.TokenReserve),
		EthReserve:   bigString(r.EthReserve),
	})
}

// UnmarshalJSON decodes the ticker payload.
func (r *Reserves) UnmarshalJSON(data []byte) error {
	var raw reservesJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	token, ok := asset.ParseUint(raw.TokenReserve)
	if !ok {
		return apperror.New(apperror.CodeInvalidInput, apperror.WithContext(fmt.Sprintf("token_reserve %q", raw.TokenReserve)))
	}
	eth, ok := asset.ParseUint(raw.EthReserve)
	if !ok {
		return apperror.New(apperror.CodeInvalidInput, apperror.WithContext(fmt.Sprintf("eth_reserve %q", raw.EthReserve)))
	}
	r.TokenReserve, r.EthReserve = token, eth
	return nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
