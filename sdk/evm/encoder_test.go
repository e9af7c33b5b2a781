package evm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obelisk-org/obelisk/types"
)

func Test_Encoder_EncodeApproval(t *testing.T) {
	t.Parallel()

	encoder := NewEncoder(types.ChainID(1))

	got, err := encoder.EncodeApproval(types.ApprovalPayload{
		Manager:              common.HexToAddress("0x1"),
		NumInitialActions:    3,
		NumSetStorageActions: 2,
		NumLeaves:            7,
		OverridePrevious:     true,
	})
	require.NoError(t, err)

	want := "0000000000000000000000000000000000000000000000000000000000000001" +
		"0000000000000000000000000000000000000000000000000000000000000003" +
		"0000000000000000000000000000000000000000000000000000000000000002" +
		"0000000000000000000000000000000000000000000000000000000000000007" +
		"0000000000000000000000000000000000000000000000000000000000000001"
	assert.Equal(t, want, common.Bytes2Hex(got))
}

func Test_Encoder_EncodeSetup(t *testing.T) {
	t.Parallel()

	encoder := NewEncoder(types.ChainID(1))

	got, err := encoder.EncodeSetup(types.SetupPayload{
		Manager: common.HexToAddress("0x1"),
		Config: types.OwnerConfig{
			Owners: []common.Address{
				common.HexToAddress("0x2"),
				common.HexToAddress("0x3"),
			},
			Threshold: 1,
		},
	})
	require.NoError(t, err)

	want := "0000000000000000000000000000000000000000000000000000000000000020" +
		"0000000000000000000000000000000000000000000000000000000000000001" +
		"0000000000000000000000000000000000000000000000000000000000000060" +
		"0000000000000000000000000000000000000000000000000000000000000001" +
		"0000000000000000000000000000000000000000000000000000000000000002" +
		"0000000000000000000000000000000000000000000000000000000000000002" +
		"0000000000000000000000000000000000000000000000000000000000000003"
	assert.Equal(t, want, common.Bytes2Hex(got))
}

func Test_Encoder_EncodeUpgrade(t *testing.T) {
	t.Parallel()

	encoder := NewEncoder(types.ChainID(1))

	got, err := encoder.EncodeUpgrade(types.UpgradePayload{
		Manager:              common.HexToAddress("0x1"),
		NumSetStorageActions: 2,
	})
	require.NoError(t, err)

	want := "0000000000000000000000000000000000000000000000000000000000000001" +
		"0000000000000000000000000000000000000000000000000000000000000002"
	assert.Equal(t, want, common.Bytes2Hex(got))
}

func Test_Encoder_EncodeCancel(t *testing.T) {
	t.Parallel()

	encoder := NewEncoder(types.ChainID(1))

	got, err := encoder.EncodeCancel(types.CancelPayload{
		Manager:      common.HexToAddress("0x1"),
		DeploymentID: common.HexToHash("0x2"),
	})
	require.NoError(t, err)

	want := "0000000000000000000000000000000000000000000000000000000000000001" +
		"0000000000000000000000000000000000000000000000000000000000000002"
	assert.Equal(t, want, common.Bytes2Hex(got))
}

func Test_Encoder_EncodePropose(t *testing.T) {
	t.Parallel()

	encoder := NewEncoder(types.ChainID(1))

	got, err := encoder.EncodePropose(types.ProposePayload{
		Proposer: common.HexToAddress("0x5"),
	})
	require.NoError(t, err)

	want := "0000000000000000000000000000000000000000000000000000000000000005"
	assert.Equal(t, want, common.Bytes2Hex(got))
}

func Test_Encoder_EncodeAction(t *testing.T) {
	t.Parallel()

	encoder := NewEncoder(types.ChainID(1))

	tests := []struct {
		name string
		give types.RawAction
		want string
	}{
		{
			name: "success: call action with calldata",
			give: types.RawAction{
				Index:          0,
				Type:           types.ActionTypeCall,
				To:             common.HexToAddress("0x4"),
				Value:          big.NewInt(5),
				Data:           common.Hex2Bytes("deadbeef"),
				Gas:            100000,
				Operation:      types.OperationCall,
				RequireSuccess: true,
			},
			want: "0000000000000000000000000000000000000000000000000000000000000020" +
				"0000000000000000000000000000000000000000000000000000000000000001" +
				"0000000000000000000000000000000000000000000000000000000000000004" +
				"0000000000000000000000000000000000000000000000000000000000000005" +
				"00000000000000000000000000000000000000000000000000000000000000e0" +
				"00000000000000000000000000000000000000000000000000000000000186a0" +
				"0000000000000000000000000000000000000000000000000000000000000000" +
				"0000000000000000000000000000000000000000000000000000000000000001" +
				"0000000000000000000000000000000000000000000000000000000000000004" +
				"deadbeef00000000000000000000000000000000000000000000000000000000",
		},
		{
			name: "success: nil value is encoded as zero",
			give: types.RawAction{
				Index:     1,
				Type:      types.ActionTypeSetStorage,
				To:        common.HexToAddress("0x4"),
				Gas:       50000,
				Operation: types.OperationDelegateCall,
			},
			want: "0000000000000000000000000000000000000000000000000000000000000020" +
				"0000000000000000000000000000000000000000000000000000000000000002" +
				"0000000000000000000000000000000000000000000000000000000000000004" +
				"0000000000000000000000000000000000000000000000000000000000000000" +
				"00000000000000000000000000000000000000000000000000000000000000e0" +
				"000000000000000000000000000000000000000000000000000000000000c350" +
				"0000000000000000000000000000000000000000000000000000000000000001" +
				"0000000000000000000000000000000000000000000000000000000000000000" +
				"0000000000000000000000000000000000000000000000000000000000000000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := encoder.EncodeAction(tt.give)
			require.NoError(t, err)
			assert.Equal(t, tt.want, common.Bytes2Hex(got))
		})
	}
}

func Test_Encoder_HashLeaf(t *testing.T) {
	t.Parallel()

	encoder := NewEncoder(types.ChainID(1))

	base := types.Leaf{
		Type:    types.LeafTypeAction,
		ChainID: types.ChainID(1),
		Index:   0,
		Data:    []byte("payload"),
	}

	baseHash, err := encoder.HashLeaf(base)
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, baseHash)

	again, err := encoder.HashLeaf(base)
	require.NoError(t, err)
	assert.Equal(t, baseHash, again, "hashing must be deterministic")

	tests := []struct {
		name string
		give types.Leaf
	}{
		{
			name: "different leaf type",
			give: types.Leaf{Type: types.LeafTypeApprove, ChainID: 1, Index: 0, Data: []byte("payload")},
		},
		{
			name: "different chain id",
			give: types.Leaf{Type: types.LeafTypeAction, ChainID: 2, Index: 0, Data: []byte("payload")},
		},
		{
			name: "different index",
			give: types.Leaf{Type: types.LeafTypeAction, ChainID: 1, Index: 1, Data: []byte("payload")},
		},
		{
			name: "different data",
			give: types.Leaf{Type: types.LeafTypeAction, ChainID: 1, Index: 0, Data: []byte("other")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := encoder.HashLeaf(tt.give)
			require.NoError(t, err)
			assert.NotEqual(t, baseHash, got)
		})
	}
}
