package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"feeTierScope/internal/model"
)

// ContractCaller is the subset of chain.Client the reader needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Reader resolves V3 pools through a factory and reads their state at the latest block.
type Reader struct {
	caller  ContractCaller
	factory common.Address
}

// NewReader builds a Reader for the given factory.
func NewReader(caller ContractCaller, factory common.Address) *Reader {
	return &Reader{caller: caller, factory: factory}
}

// ResolvePool returns the factory's pool for the pair and fee. The zero
// address means no pool exists.
func (r *Reader) ResolvePool(ctx context.Context, tokenA, tokenB common.Address, fee model.FeeTier) (common.Address, error) {
	factoryABI, err := V3FactoryABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse factory abi: %w", err)
	}
	values, err := r.call(ctx, r.factory, factoryABI, "getPool", tokenA, tokenB, big.NewInt(int64(fee)))
	if err != nil {
		return common.Address{}, err
	}
	pool, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, fmt.Errorf("getPool: %w", err)
	}
	return pool, nil
}

// ReadPoolState loads slot0's sqrtPriceX96 and the pool's token ordering.
func (r *Reader) ReadPoolState(ctx context.Context, pool common.Address) (model.RawPoolState, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return model.RawPoolState{}, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := r.call(ctx, pool, poolABI, "slot0")
	if err != nil {
		return model.RawPoolState{}, err
	}
	sqrtBig, err := asBigInt(values[0])
	if err != nil {
		return model.RawPoolState{}, fmt.Errorf("slot0: %w", err)
	}
	sqrtPrice, overflow := uint256.FromBig(sqrtBig)
	if overflow || sqrtBig.Sign() < 0 {
		return model.RawPoolState{}, fmt.Errorf("slot0: sqrtPriceX96 out of range: %s", sqrtBig.String())
	}

	values, err = r.call(ctx, pool, poolABI, "token0")
	if err != nil {
		return model.RawPoolState{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return model.RawPoolState{}, fmt.Errorf("token0: %w", err)
	}

	values, err = r.call(ctx, pool, poolABI, "token1")
	if err != nil {
		return model.RawPoolState{}, err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return model.RawPoolState{}, fmt.Errorf("token1: %w", err)
	}

	return model.RawPoolState{
		Pool:         pool,
		SqrtPriceX96: sqrtPrice,
		Token0:       token0,
		Token1:       token1,
	}, nil
}

// ReadTokenDecimals loads an ERC20 token's decimals.
func (r *Reader) ReadTokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	erc20ABI, err := erc20ABIInstance()
	if err != nil {
		return 0, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := r.call(ctx, token, erc20ABI, "decimals")
	if err != nil {
		return 0, err
	}
	return asUint8(values[0])
}

// ReadTokenMeta loads decimals and symbol for an ERC20 token.
func (r *Reader) ReadTokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	decimals, err := r.ReadTokenDecimals(ctx, token)
	if err != nil {
		return model.TokenMeta{}, err
	}
	erc20, err := erc20ABIInstance()
	if err != nil {
		return model.TokenMeta{}, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := r.call(ctx, token, erc20, "symbol")
	if err != nil {
		return model.TokenMeta{}, err
	}
	symbol, ok := values[0].(string)
	if !ok {
		return model.TokenMeta{}, fmt.Errorf("unsupported symbol type %T", values[0])
	}
	return model.TokenMeta{Address: token, Decimals: decimals, Symbol: symbol}, nil
}

func (r *Reader) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	if r.caller == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := r.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("decimals out of range: %s", v.String())
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
