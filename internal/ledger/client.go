// Package ledger is the single point of contact with the value-transfer
// network. Every operation works identically whether or not the network
// is reachable: the live path talks JSON-RPC to an ERC-4626 vault and
// two ERC-20 tokens, the simulated path produces the same result shapes
// from a deterministic in-memory stand-in. Connectivity failures are
// absorbed here and never surfaced as errors; only caller input errors
// are returned as errors.
package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/athena-agent/internal/circuitbreaker"
	apperrors "github.com/athena-agent/internal/errors"
	"github.com/athena-agent/internal/logging"
	"github.com/athena-agent/internal/retry"
	"github.com/athena-agent/internal/types"
)

var addressPattern = regexp.MustCompile("^0x[a-fA-F0-9]{40}$")

// ValidAddress checks if an address has the expected EVM format
func ValidAddress(address string) bool {
	return addressPattern.MatchString(address)
}

// IntentRecorder persists SOS progress markers so an interrupted
// sequence is detectable after a crash. Recording must never block the
// protocol: implementations swallow their own failures.
type IntentRecorder interface {
	RecordPhase(ctx context.Context, phase types.SOSPhase, txIDs []string)
}

// Config holds everything needed to construct a Client
type Config struct {
	// RPCURL is the JSON-RPC endpoint. Empty forces simulated mode.
	RPCURL string
	// Mode is "auto", "live" or "simulated". In auto mode a failed dial
	// or probe degrades to simulated instead of failing construction.
	Mode    string
	Network string

	VaultContract          string
	BaseTokenContract      string
	SecondaryTokenContract string
	AgentAddress           string
	PrivateKey             string

	// APY is the advertised yield rate reported in VaultState.
	APY float64

	// Simulated path seed balances (human units).
	SimStaked    decimal.Decimal
	SimLiquid    decimal.Decimal
	SimSecondary decimal.Decimal
}

// Client is the ledger client. Construct with New; the connection mode
// is decided once at construction and visible via Mode.
type Client struct {
	mode    types.ConnectionMode
	network string
	apy     float64

	eth     *ethclient.Client
	chainID *big.Int
	key     *ecdsa.PrivateKey
	address common.Address

	vaultAddr     common.Address
	baseAddr      common.Address
	secondaryAddr common.Address

	breaker  *circuitbreaker.CircuitBreaker
	retryCfg *retry.Config
	sim      *simVault
	online   atomic.Bool
	recorder IntentRecorder
	logger   *logging.Logger
}

// New creates a ledger client. Mode selection: an explicit "simulated"
// mode or an empty RPC URL yields the simulated path; "live" requires a
// reachable endpoint; "auto" tries the endpoint and degrades to
// simulated when the dial or probe fails.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	c := &Client{
		network: cfg.Network,
		apy:     cfg.APY,
		breaker:  circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig("ledger-rpc")),
		retryCfg: retry.DefaultConfig(),
		sim:      newSimVault(cfg.SimStaked, cfg.SimLiquid, cfg.SimSecondary, cfg.APY),
		logger:  logging.WithField("component", "ledger"),
	}

	wantLive := cfg.Mode == "live" || (cfg.Mode != "simulated" && cfg.RPCURL != "")

	if !wantLive {
		c.mode = types.ModeSimulated
		c.logger.WithField("mode", c.mode).Info("Ledger client running on simulated path")
		return c, nil
	}

	if err := c.connect(cfg); err != nil {
		if cfg.Mode == "live" {
			return nil, err
		}
		c.logger.WithError(err).Warn("Live connection unavailable, degrading to simulated path")
		c.mode = types.ModeSimulated
		return c, nil
	}

	c.mode = types.ModeLive
	c.online.Store(true)
	c.logger.WithFields(map[string]interface{}{
		"mode":    c.mode,
		"network": c.network,
		"chainId": c.chainID.String(),
	}).Info("Ledger client connected")
	return c, nil
}

func (c *Client) connect(cfg *Config) error {
	if cfg.RPCURL == "" {
		return fmt.Errorf("live mode requires an RPC URL")
	}
	for _, contract := range []string{cfg.VaultContract, cfg.BaseTokenContract, cfg.SecondaryTokenContract} {
		if !ValidAddress(contract) {
			return apperrors.NewInvalidAddressError(contract)
		}
	}

	eth, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return apperrors.NewRPCError("Dial", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return apperrors.NewRPCError("ChainID", err)
	}

	c.eth = eth
	c.chainID = chainID
	c.vaultAddr = common.HexToAddress(cfg.VaultContract)
	c.baseAddr = common.HexToAddress(cfg.BaseTokenContract)
	c.secondaryAddr = common.HexToAddress(cfg.SecondaryTokenContract)

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			eth.Close()
			return apperrors.NewInvalidParameterError("privateKey", err.Error())
		}
		c.key = key
		c.address = crypto.PubkeyToAddress(key.PublicKey)
	} else if ValidAddress(cfg.AgentAddress) {
		c.address = common.HexToAddress(cfg.AgentAddress)
	} else {
		eth.Close()
		return apperrors.NewInvalidParameterError("agentAddress", "live mode requires an agent address or private key")
	}

	return nil
}

// Mode returns the connection mode decided at construction
func (c *Client) Mode() types.ConnectionMode {
	return c.mode
}

// IsOnline reflects whether the last connection attempt succeeded. It
// does not re-probe the endpoint.
func (c *Client) IsOnline() bool {
	return c.online.Load()
}

// Close releases the RPC connection
func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
}

// SetIntentRecorder installs the SOS progress recorder
func (c *Client) SetIntentRecorder(recorder IntentRecorder) {
	c.recorder = recorder
}

// GetVaultState reads current holdings. It never returns an error: any
// failure, and the simulated mode itself, resolve to the deterministic
// offline snapshot with IsOnline=false.
func (c *Client) GetVaultState(ctx context.Context) types.VaultState {
	if c.mode != types.ModeLive {
		return types.OfflineVaultState(c.network)
	}

	state, err := c.liveVaultState(ctx)
	if err != nil {
		c.online.Store(false)
		c.logger.WithError(err).Warn("Vault state read failed, returning offline snapshot")
		return types.OfflineVaultState(c.network)
	}

	c.online.Store(true)
	return state
}

// liveVaultState performs the parallel balance queries followed by the
// value-conversion call, all under circuit breaker protection.
func (c *Client) liveVaultState(ctx context.Context) (types.VaultState, error) {
	var shares, base, secondary *big.Int

	err := retry.WithBackoff(ctx, c.retryCfg, func(ctx context.Context, _ int) error {
		return c.breaker.Execute(func() error {
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() (err error) {
				shares, err = c.callUint256(gctx, parsedVaultABI, c.vaultAddr, "balanceOf", c.address)
				return err
			})
			g.Go(func() (err error) {
				base, err = c.callUint256(gctx, parsedERC20ABI, c.baseAddr, "balanceOf", c.address)
				return err
			})
			g.Go(func() (err error) {
				secondary, err = c.callUint256(gctx, parsedERC20ABI, c.secondaryAddr, "balanceOf", c.address)
				return err
			})
			return g.Wait()
		})
	})
	if err != nil {
		return types.VaultState{}, err
	}

	var stakedAssets *big.Int
	err = c.breaker.Execute(func() error {
		var cerr error
		stakedAssets, cerr = c.callUint256(ctx, parsedVaultABI, c.vaultAddr, "convertToAssets", shares)
		return cerr
	})
	if err != nil {
		return types.VaultState{}, err
	}

	stakedShares := FromBaseUnits(shares, VaultDecimals)
	stakedValue := FromBaseUnits(stakedAssets, BaseDecimals)
	liquid := FromBaseUnits(base, BaseDecimals)
	second := FromBaseUnits(secondary, SecondaryDecimals)

	return types.VaultState{
		StakedShares:     stakedShares,
		StakedValue:      stakedValue,
		LiquidBalance:    liquid,
		SecondaryBalance: second,
		TotalValue:       stakedValue.Add(liquid).Add(second),
		APY:              c.apy,
		IsOnline:         true,
		Network:          c.network,
		FetchedAt:        time.Now().UTC(),
	}, nil
}

// DepositToVault performs the approve-then-deposit two-step sequence.
// Both steps must succeed or the whole operation reports failure with
// the failing step's message; there is no partial-success reporting.
func (c *Client) DepositToVault(ctx context.Context, amount decimal.Decimal) (*types.TransactionResult, error) {
	if !amount.IsPositive() {
		return nil, apperrors.NewInvalidAmountError(amount.String(), "deposit amount must be positive")
	}

	if c.mode != types.ModeLive {
		txID, err := c.sim.deposit(amount)
		if err != nil {
			return &types.TransactionResult{Success: false, Message: err.Error()}, nil
		}
		return &types.TransactionResult{Success: true, TxID: txID, Message: "deposit simulated"}, nil
	}

	raw := ToBaseUnits(amount, BaseDecimals)

	approveData, err := parsedERC20ABI.Pack("approve", c.vaultAddr, raw)
	if err != nil {
		return nil, apperrors.NewInternalError("pack approve", err)
	}
	if _, err := c.sendAndWait(ctx, c.baseAddr, nil, approveData); err != nil {
		c.logger.WithError(err).Warn("Vault deposit approve step failed")
		return &types.TransactionResult{Success: false, Message: err.Error()}, nil
	}

	depositData, err := parsedVaultABI.Pack("deposit", raw, c.address)
	if err != nil {
		return nil, apperrors.NewInternalError("pack deposit", err)
	}
	txID, err := c.sendAndWait(ctx, c.vaultAddr, nil, depositData)
	if err != nil {
		c.logger.WithError(err).Warn("Vault deposit step failed")
		return &types.TransactionResult{Success: false, Message: err.Error()}, nil
	}

	return &types.TransactionResult{Success: true, TxID: txID, Message: "deposit confirmed"}, nil
}

// RedeemFromVault redeems staked shares back to the base currency
func (c *Client) RedeemFromVault(ctx context.Context, shares decimal.Decimal) (*types.TransactionResult, error) {
	if !shares.IsPositive() {
		return nil, apperrors.NewInvalidAmountError(shares.String(), "redeem shares must be positive")
	}

	if c.mode != types.ModeLive {
		txID, err := c.sim.redeem(shares)
		if err != nil {
			return &types.TransactionResult{Success: false, Message: err.Error()}, nil
		}
		return &types.TransactionResult{Success: true, TxID: txID, Message: "redeem simulated"}, nil
	}

	raw := ToBaseUnits(shares, VaultDecimals)
	data, err := parsedVaultABI.Pack("redeem", raw, c.address, c.address)
	if err != nil {
		return nil, apperrors.NewInternalError("pack redeem", err)
	}
	txID, err := c.sendAndWait(ctx, c.vaultAddr, nil, data)
	if err != nil {
		c.logger.WithError(err).Warn("Vault redeem failed")
		return &types.TransactionResult{Success: false, Message: err.Error()}, nil
	}

	return &types.TransactionResult{Success: true, TxID: txID, Message: "redeem confirmed"}, nil
}

// TransferBase performs a single-step base-currency transfer
func (c *Client) TransferBase(ctx context.Context, toAddress string, amount decimal.Decimal) (*types.TransactionResult, error) {
	if !ValidAddress(toAddress) {
		return nil, apperrors.NewInvalidAddressError(toAddress)
	}
	if !amount.IsPositive() {
		return nil, apperrors.NewInvalidAmountError(amount.String(), "transfer amount must be positive")
	}

	if c.mode != types.ModeLive {
		txID, err := c.sim.transfer(amount)
		if err != nil {
			return &types.TransactionResult{Success: false, Message: err.Error()}, nil
		}
		return &types.TransactionResult{Success: true, TxID: txID, Message: "transfer simulated"}, nil
	}

	raw := ToBaseUnits(amount, BaseDecimals)
	data, err := parsedERC20ABI.Pack("transfer", common.HexToAddress(toAddress), raw)
	if err != nil {
		return nil, apperrors.NewInternalError("pack transfer", err)
	}
	txID, err := c.sendAndWait(ctx, c.baseAddr, nil, data)
	if err != nil {
		c.logger.WithError(err).Warn("Base transfer failed")
		return &types.TransactionResult{Success: false, Message: err.Error()}, nil
	}

	return &types.TransactionResult{Success: true, TxID: txID, Message: "transfer confirmed"}, nil
}

// StoreEvidenceHash anchors an evidence hash as the payload of a
// zero-value self-transfer. The payload is the tagged UTF-8 string
// "EVIDENCE:" + hash, plus ":" + metadata when metadata is present.
// Nothing on-chain interprets it; indexing is off-chain by convention.
func (c *Client) StoreEvidenceHash(ctx context.Context, contentHash string, metadata string) (*types.TransactionResult, error) {
	if contentHash == "" {
		return nil, apperrors.NewInvalidParameterError("contentHash", "must not be empty")
	}

	payload := "EVIDENCE:" + contentHash
	if metadata != "" {
		payload += ":" + metadata
	}

	if c.mode != types.ModeLive {
		return &types.TransactionResult{Success: true, TxID: newDemoTxID(), Message: "evidence anchored (simulated)"}, nil
	}

	txID, err := c.sendAndWait(ctx, c.address, big.NewInt(0), []byte(payload))
	if err != nil {
		c.logger.WithError(err).Warn("Evidence anchoring failed")
		return &types.TransactionResult{Success: false, Message: err.Error()}, nil
	}

	return &types.TransactionResult{Success: true, TxID: txID, Message: "evidence anchored"}, nil
}

// TriggerSOS runs the emergency liquidate-and-transfer sequence. The
// liquidate and transfer steps are strictly sequential because the
// transfer amount depends on the liquidation result. The operation is
// not transactional: steps already committed before a failure stay
// committed and their transaction ids are returned with the failed
// result. The secondary token is excluded from auto-liquidation by
// policy (see SecondaryExcludedFromSOS).
func (c *Client) TriggerSOS(ctx context.Context, destinationAddress string) (*types.SOSResult, error) {
	if !ValidAddress(destinationAddress) {
		return nil, apperrors.NewInvalidAddressError(destinationAddress)
	}

	result := &types.SOSResult{
		LiquidatedAmount:  decimal.Zero,
		TransferredAmount: decimal.Zero,
		Destination:       destinationAddress,
		TxIDs:             []string{},
		Logs:              []string{},
	}

	c.appendLog(result, "SOS protocol initiating.")
	c.recordPhase(ctx, types.PhaseStarted, result.TxIDs)

	// Always a fresh read; the periodic snapshot cache is never trusted here.
	shares, stakedValue, liquid, err := c.sosRead(ctx)
	if err != nil {
		return c.failSOS(result, "balance read", err), nil
	}
	c.appendLog(result, fmt.Sprintf("Detected staked position: %s shares (%s base currency).",
		shares.String(), stakedValue.String()))

	if shares.IsPositive() {
		txID, err := c.sosRedeem(ctx, shares)
		if err != nil {
			return c.failSOS(result, "liquidation", err), nil
		}
		result.TxIDs = append(result.TxIDs, txID)
		c.recordPhase(ctx, types.PhaseLiquidated, result.TxIDs)
		c.appendLog(result, fmt.Sprintf("Liquidated staked position, tx %s.", shortTxID(txID)))
	} else {
		c.appendLog(result, "No staked position to liquidate.")
	}

	// Secondary-token balance is intentionally excluded from the total.
	totalToTransfer := stakedValue.Add(liquid)

	if totalToTransfer.IsPositive() {
		txID, err := c.sosTransfer(ctx, destinationAddress, totalToTransfer)
		if err != nil {
			return c.failSOS(result, "transfer", err), nil
		}
		result.TxIDs = append(result.TxIDs, txID)
		c.recordPhase(ctx, types.PhaseTransferred, result.TxIDs)
		c.appendLog(result, fmt.Sprintf("Transferred %s to emergency contact, tx %s.",
			totalToTransfer.String(), shortTxID(txID)))
	} else {
		c.appendLog(result, "No funds available to transfer.")
	}

	result.Success = true
	result.LiquidatedAmount = stakedValue
	result.TransferredAmount = totalToTransfer
	c.appendLog(result, "SOS protocol complete.")
	return result, nil
}

// sosRead returns the staked shares, their base-currency value and the
// liquid balance for the SOS sequence. The simulated path reads the
// seeded in-memory vault rather than the public offline snapshot.
func (c *Client) sosRead(ctx context.Context) (shares, stakedValue, liquid decimal.Decimal, err error) {
	if c.mode != types.ModeLive {
		shares, stakedValue, liquid, _, _ = c.sim.snapshot()
		return shares, stakedValue, liquid, nil
	}

	state, err := c.liveVaultState(ctx)
	if err != nil {
		c.online.Store(false)
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}
	c.online.Store(true)
	return state.StakedShares, state.StakedValue, state.LiquidBalance, nil
}

func (c *Client) sosRedeem(ctx context.Context, shares decimal.Decimal) (string, error) {
	if c.mode != types.ModeLive {
		return c.sim.redeem(shares)
	}

	raw := ToBaseUnits(shares, VaultDecimals)
	data, err := parsedVaultABI.Pack("redeem", raw, c.address, c.address)
	if err != nil {
		return "", err
	}
	return c.sendAndWait(ctx, c.vaultAddr, nil, data)
}

func (c *Client) sosTransfer(ctx context.Context, toAddress string, amount decimal.Decimal) (string, error) {
	if c.mode != types.ModeLive {
		return c.sim.transfer(amount)
	}

	raw := ToBaseUnits(amount, BaseDecimals)
	data, err := parsedERC20ABI.Pack("transfer", common.HexToAddress(toAddress), raw)
	if err != nil {
		return "", err
	}
	return c.sendAndWait(ctx, c.baseAddr, nil, data)
}

func (c *Client) failSOS(result *types.SOSResult, step string, err error) *types.SOSResult {
	c.appendLog(result, fmt.Sprintf("SOS protocol failed during %s: %v", step, err))
	result.Success = false
	result.LiquidatedAmount = decimal.Zero
	result.TransferredAmount = decimal.Zero
	return result
}

func (c *Client) appendLog(result *types.SOSResult, line string) {
	result.Logs = append(result.Logs, line)
	c.logger.Info(line)
}

func (c *Client) recordPhase(ctx context.Context, phase types.SOSPhase, txIDs []string) {
	if c.recorder != nil {
		c.recorder.RecordPhase(ctx, phase, txIDs)
	}
}

// sendAndWait signs and submits a transaction, waits for it to be
// mined and checks the receipt status. A reverted transaction is an
// execution error, not a connectivity error.
func (c *Client) sendAndWait(ctx context.Context, to common.Address, value *big.Int, data []byte) (string, error) {
	if c.key == nil {
		return "", fmt.Errorf("no signing key configured for live writes")
	}
	if value == nil {
		value = big.NewInt(0)
	}

	var signed *ethtypes.Transaction
	err := c.breaker.Execute(func() error {
		nonce, err := c.eth.PendingNonceAt(ctx, c.address)
		if err != nil {
			return fmt.Errorf("fetch nonce: %w", err)
		}
		gasPrice, err := c.eth.SuggestGasPrice(ctx)
		if err != nil {
			return fmt.Errorf("suggest gas price: %w", err)
		}

		tx := ethtypes.NewTransaction(nonce, to, value, 300000, gasPrice, data)
		signed, err = ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(c.chainID), c.key)
		if err != nil {
			return fmt.Errorf("sign transaction: %w", err)
		}
		return c.eth.SendTransaction(ctx, signed)
	})
	if err != nil {
		c.online.Store(false)
		return "", err
	}
	c.online.Store(true)

	receipt, err := c.waitMined(ctx, signed.Hash())
	if err != nil {
		return "", err
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return "", fmt.Errorf("transaction %s reverted", signed.Hash().Hex())
	}
	return signed.Hash().Hex(), nil
}

func (c *Client) waitMined(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func shortTxID(txID string) string {
	if len(txID) <= 12 {
		return txID
	}
	return txID[:12] + "..."
}

// SecondaryExcludedFromSOS names the liquidation policy: the secondary
// token is tracked in VaultState totals but never auto-liquidated or
// included in the SOS transfer amount. Recovering it requires an
// explicit manual transfer.
const SecondaryExcludedFromSOS = true
