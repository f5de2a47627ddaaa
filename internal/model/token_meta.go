package model

import "github.com/ethereum/go-ethereum/common"

// TokenMeta captures the ERC20 metadata shown for a scanned pair.
type TokenMeta struct {
	Address  common.Address
	Decimals uint8
	Symbol   string
}
