package relayer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	gethcommon "github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/kysee/zk-helios/types"
)

// Submitter hands (seal, journal) to the submission collaborator.
type Submitter interface {
	// Head returns the collaborator's last accepted finalized slot.
	Head(ctx context.Context) (uint64, error)
	// SubmitUpdate relays one receipt for the given previous head.
	SubmitUpdate(ctx context.Context, receipt *types.Receipt, head uint64) error
}

const verifierABI = `[
  {"type":"function","name":"head","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"update","stateMutability":"nonpayable","inputs":[{"name":"seal","type":"bytes"},{"name":"journalData","type":"bytes"},{"name":"head","type":"uint256"}],"outputs":[]}
]`

const (
	submitConfirmTimeout = 90 * time.Second
)

// ContractSubmitter relays receipts to the verifier contract over JSON-RPC.
// The contract itself enforces cross-call chaining: it rejects any journal
// whose previous header does not match its own head.
type ContractSubmitter struct {
	client   *ethclient.Client
	abi      abi.ABI
	contract gethcommon.Address
	key      *ecdsa.PrivateKey
	sender   gethcommon.Address
	chainID  *big.Int
	log      zerolog.Logger
}

func NewContractSubmitter(ctx context.Context, rpcURL, contractHex, privateKeyHex string, log zerolog.Logger) (*ContractSubmitter, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(verifierABI))
	if err != nil {
		return nil, err
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &ContractSubmitter{
		client:   client,
		abi:      parsed,
		contract: gethcommon.HexToAddress(contractHex),
		key:      key,
		sender:   crypto.PubkeyToAddress(key.PublicKey),
		chainID:  chainID,
		log:      log,
	}, nil
}

func (s *ContractSubmitter) Head(ctx context.Context) (uint64, error) {
	data, err := s.abi.Pack("head")
	if err != nil {
		return 0, err
	}
	out, err := s.client.CallContract(ctx, ethereum.CallMsg{To: &s.contract, Data: data}, nil)
	if err != nil {
		return 0, &SubmissionError{Err: fmt.Errorf("head() call failed: %w", err)}
	}
	vals, err := s.abi.Unpack("head", out)
	if err != nil {
		return 0, &SubmissionError{Err: fmt.Errorf("failed to unpack head(): %w", err)}
	}
	head, ok := vals[0].(*big.Int)
	if !ok {
		return 0, &SubmissionError{Err: fmt.Errorf("unexpected head() return %T", vals[0])}
	}
	return head.Uint64(), nil
}

func (s *ContractSubmitter) SubmitUpdate(ctx context.Context, receipt *types.Receipt, head uint64) error {
	calldataSeal, err := SealCalldata(receipt.Seal)
	if err != nil {
		return &SubmissionError{Err: err}
	}
	data, err := s.abi.Pack("update", calldataSeal, []byte(receipt.Journal), new(big.Int).SetUint64(head))
	if err != nil {
		return &SubmissionError{Err: err}
	}

	tx, err := s.buildTx(ctx, data)
	if err != nil {
		return &SubmissionError{Err: err}
	}
	if err := s.client.SendTransaction(ctx, tx); err != nil {
		return &SubmissionError{Err: fmt.Errorf("failed to send update tx: %w", err)}
	}
	s.log.Info().Str("tx", tx.Hash().Hex()).Uint64("head", head).Msg("update submitted")

	waitCtx, cancel := context.WithTimeout(ctx, submitConfirmTimeout)
	defer cancel()
	mined, err := bind.WaitMined(waitCtx, s.client, tx)
	if err != nil {
		return &SubmissionError{Err: fmt.Errorf("failed to wait for tx %s: %w", tx.Hash().Hex(), err)}
	}
	if mined.Status != gethtypes.ReceiptStatusSuccessful {
		return &SubmissionError{Err: fmt.Errorf("update tx %s reverted", tx.Hash().Hex())}
	}

	s.log.Info().Str("tx", tx.Hash().Hex()).Msg("update confirmed")
	return nil
}

func (s *ContractSubmitter) buildTx(ctx context.Context, data []byte) (*gethtypes.Transaction, error) {
	nonce, err := s.client.PendingNonceAt(ctx, s.sender)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	tip, err := s.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get tip cap: %w", err)
	}
	latest, err := s.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(latest.BaseFee, big.NewInt(2)))

	gas, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From: s.sender,
		To:   &s.contract,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := gethtypes.NewTx(&gethtypes.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &s.contract,
		Data:      data,
	})
	return gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(s.chainID), s.key)
}
