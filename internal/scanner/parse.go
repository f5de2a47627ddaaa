package scanner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"feeTierScope/internal/model"
)

// maxFeeTier is the largest fee a V3 factory accepts (100%).
const maxFeeTier = 1_000_000

// ParseAddress converts a hex string into common.Address.
func ParseAddress(name, input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return common.Address{}, fmt.Errorf("%s address is required", name)
	}
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid %s address: %s", name, input)
	}
	addr := common.HexToAddress(input)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%s address must not be zero", name)
	}
	return addr, nil
}

// ParseFeeTiers converts fee strings into tiers, keeping the first occurrence
// of duplicates.
func ParseFeeTiers(inputs []string) ([]model.FeeTier, error) {
	tiers := make([]model.FeeTier, 0, len(inputs))
	seen := make(map[model.FeeTier]struct{}, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		value, err := strconv.ParseUint(input, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid fee tier: %s", input)
		}
		if value == 0 || value >= maxFeeTier {
			return nil, fmt.Errorf("fee tier out of range: %s", input)
		}
		tier := model.FeeTier(value)
		if _, ok := seen[tier]; ok {
			continue
		}
		seen[tier] = struct{}{}
		tiers = append(tiers, tier)
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("at least one fee tier is required")
	}
	return tiers, nil
}
