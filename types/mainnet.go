package types

import (
	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
)

// MainnetConfig returns the chain config for Ethereum mainnet: the genesis
// validators root and the fork-version schedule through electra.
func MainnetConfig() ChainConfig {
	return ChainConfig{
		GenesisValidatorsRoot: mustRoot("0x4b363db94e286120d76eb905340fdd4e54bfe9f06bf33ff6cf5ad27f511bfe95"),
		GenesisTime:           1606824023,
		Forks: []ForkEntry{
			{Epoch: 0, Version: zrntcommon.Version{0x00, 0x00, 0x00, 0x00}},
			{Epoch: 74240, Version: zrntcommon.Version{0x01, 0x00, 0x00, 0x00}},  // altair
			{Epoch: 144896, Version: zrntcommon.Version{0x02, 0x00, 0x00, 0x00}}, // bellatrix
			{Epoch: 194048, Version: zrntcommon.Version{0x03, 0x00, 0x00, 0x00}}, // capella
			{Epoch: 269568, Version: zrntcommon.Version{0x04, 0x00, 0x00, 0x00}}, // deneb
			{Epoch: 364032, Version: zrntcommon.Version{0x05, 0x00, 0x00, 0x00}}, // electra
		},
	}
}

func mustRoot(s string) zrntcommon.Root {
	var root zrntcommon.Root
	bz, err := HexToBytes(s)
	if err != nil || len(bz) != 32 {
		panic("invalid root literal: " + s)
	}
	copy(root[:], bz)
	return root
}
