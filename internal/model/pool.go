package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// FeeTier identifies one pool of the pair by its factory fee (500 = 0.05%).
type FeeTier uint32

// RawPoolState is the slot0 price and token ordering of a V3 pool.
type RawPoolState struct {
	Pool         common.Address
	SqrtPriceX96 *uint256.Int
	Token0       common.Address
	Token1       common.Address
}
