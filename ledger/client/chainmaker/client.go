package chainmaker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"rstamp/config"
	"rstamp/ledger/types"

	"chainmaker.org/chainmaker/pb-go/v2/common"
	sdk "chainmaker.org/chainmaker/sdk-go/v2"
)

// Client is the wrapper around the ChainMaker SDK client
type Client struct {
	sdkClient sdk.ChainClient
	cfg       *config.LedgerConfig
	logger    *log.Logger
}

// NewChainMakerClient initializes the ChainMaker SDK client with the combined configuration
func NewChainMakerClient(cfg *config.LedgerConfig, logger *log.Logger) (*Client, error) {
	logger.Println("Initializing ChainMaker SDK client using builder pattern...")

	// Extract ChainMaker-specific configuration
	chainmakerCfg, ok := cfg.ChainSpecific.(*ChainMakerConfig)
	if !ok {
		return nil, fmt.Errorf("invalid ChainMaker configuration type")
	}

	var clientOptions []sdk.ChainClientOption
	clientOptions = append(clientOptions, sdk.WithChainClientOrgId(chainmakerCfg.OrgID))
	clientOptions = append(clientOptions, sdk.WithChainClientChainId(chainmakerCfg.ChainID))
	clientOptions = append(clientOptions, sdk.WithUserKeyFilePath(chainmakerCfg.UserKeyPath))
	clientOptions = append(clientOptions, sdk.WithUserCrtFilePath(chainmakerCfg.UserCertPath))
	clientOptions = append(clientOptions, sdk.WithUserSignKeyFilePath(chainmakerCfg.UserSignKeyPath))
	clientOptions = append(clientOptions, sdk.WithUserSignCrtFilePath(chainmakerCfg.UserSignCertPath))

	if len(chainmakerCfg.Nodes) == 0 {
		return nil, fmt.Errorf("no node configurations provided in config")
	}
	for _, nodeCfg := range chainmakerCfg.Nodes {
		if nodeCfg.UseTLS && len(nodeCfg.CaPaths) == 0 {
			return nil, fmt.Errorf("node %s has TLS enabled but no CaPaths provided", nodeCfg.Address)
		}
		sdkNodeConfig := sdk.NewNodeConfig(
			sdk.WithNodeAddr(nodeCfg.Address),
			sdk.WithNodeConnCnt(nodeCfg.ConnCount),
			sdk.WithNodeUseTLS(nodeCfg.UseTLS),
			sdk.WithNodeCAPaths(nodeCfg.CaPaths),
			sdk.WithNodeTLSHostName(nodeCfg.TLSHostName),
		)
		clientOptions = append(clientOptions, sdk.AddChainClientNodeConfig(sdkNodeConfig))
	}

	// Apply common configuration (connection retry, timeout)
	if cfg.RetryLimit > 0 {
		clientOptions = append(clientOptions, sdk.WithRetryLimit(cfg.RetryLimit))
	}
	if cfg.RetryInterval > 0 {
		clientOptions = append(clientOptions, sdk.WithRetryInterval(cfg.RetryInterval))
	}

	client, err := sdk.NewChainClient(clientOptions...)
	if err != nil {
		logger.Printf("Failed to build ChainMaker SDK client: %v\n", err)
		return nil, err
	}

	err = client.EnableCertHash()
	if err != nil {
		logger.Printf("Warning: Failed to enable cert hash: %v\n", err)
	}

	logger.Println("ChainMaker SDK client initialized successfully.")

	return &Client{
		sdkClient: *client,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Config returns the configuration associated with the client.
func (c *Client) Config() any {
	if c.cfg == nil || c.cfg.ChainSpecific == nil {
		log.Println("Warning: Accessing client config before initialization.")
		return &ChainMakerConfig{} // Return empty config to avoid nil pointer panic
	}
	return c.cfg.ChainSpecific
}

// Close stops the SDK client
func (c *Client) Close() error {
	c.logger.Println("Closing ChainMaker SDK client...")
	if err := c.sdkClient.Stop(); err != nil {
		c.logger.Printf("Error stopping ChainMaker SDK client: %v", err)
		return fmt.Errorf("failed to stop ChainMaker SDK client: %w", err)
	}
	return nil
}

func (c *Client) chainCfg() *ChainMakerConfig {
	return c.cfg.ChainSpecific.(*ChainMakerConfig)
}

// SubmitRecord invokes the registry contract once for the given identity.
// Contract-level rejections (duplicate identity, validation) come back in the
// receipt; an error return means the invoke itself failed.
func (c *Client) SubmitRecord(ctx context.Context, address, dataHash, description string) (*types.SubmissionReceipt, error) {
	chainCfg := c.chainCfg()
	if chainCfg.SubmitRecordMethodName == "" || chainCfg.ParamKeyAddress == "" {
		return nil, fmt.Errorf("submit configuration fields not set in config")
	}

	kvs := []*common.KeyValuePair{
		{Key: chainCfg.ParamKeyAddress, Value: []byte(address)},
		{Key: chainCfg.ParamKeyDataHash, Value: []byte(dataHash)},
		{Key: chainCfg.ParamKeyDescription, Value: []byte(description)},
	}

	_, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	resp, err := c.sdkClient.InvokeContract(
		chainCfg.ContractName,
		chainCfg.SubmitRecordMethodName,
		"",
		kvs,
		-1,
		true,
	)
	if err != nil {
		return nil, fmt.Errorf("SDK invoke failed: %w", err)
	}
	if resp.Code != common.TxStatusCode_SUCCESS {
		return nil, fmt.Errorf("contract execution failed: %s (code: %d)", resp.Message, resp.Code)
	}
	if resp.ContractResult == nil || len(resp.ContractResult.Result) == 0 {
		return nil, fmt.Errorf("contract execution returned empty result (tx: %s)", resp.TxId)
	}

	var result types.SubmissionResult
	if err := json.Unmarshal(resp.ContractResult.Result, &result); err != nil {
		c.logger.Printf("Failed to unmarshal submission result JSON (TxID: %s). Raw result: %s", resp.TxId, string(resp.ContractResult.Result))
		return nil, fmt.Errorf("failed to unmarshal contract submission result: %w", err)
	}

	receipt := &types.SubmissionReceipt{TransactionID: resp.TxId, Message: result.Message}
	switch result.Status {
	case types.StatusSuccess:
		receipt.Success = true
		receipt.ConfirmedTimestamp = result.SubmissionTime
	case types.StatusAlreadySubmitted:
		receipt.ErrorKind = types.ErrorAlreadySubmitted
	default:
		receipt.ErrorKind = types.ErrorRejected
	}
	return receipt, nil
}

// GetRecord queries the contract for the confirmed record of an address.
// Returns (nil, nil) when the address has no record.
func (c *Client) GetRecord(ctx context.Context, address string) (*types.LedgerRecord, error) {
	chainCfg := c.chainCfg()
	_, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	kvs := []*common.KeyValuePair{{Key: chainCfg.ParamKeyAddress, Value: []byte(address)}}
	resp, err := c.sdkClient.QueryContract(chainCfg.ContractName, chainCfg.GetRecordMethodName, kvs, -1)
	if err != nil {
		return nil, fmt.Errorf("SDK query failed: %w", err)
	}
	if resp.Code != common.TxStatusCode_SUCCESS {
		return nil, fmt.Errorf("contract query failed: %s (code: %d)", resp.Message, resp.Code)
	}
	if resp.ContractResult == nil || len(resp.ContractResult.Result) == 0 {
		return nil, nil // distinguishable "not found", not a failure
	}

	var record types.LedgerRecord
	if err := json.Unmarshal(resp.ContractResult.Result, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contract record: %w", err)
	}
	return &record, nil
}

// GetTotalCount queries the contract for the total number of confirmed submissions
func (c *Client) GetTotalCount(ctx context.Context) (uint64, error) {
	chainCfg := c.chainCfg()
	_, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	resp, err := c.sdkClient.QueryContract(chainCfg.ContractName, chainCfg.GetTotalMethodName, nil, -1)
	if err != nil {
		return 0, fmt.Errorf("SDK query failed: %w", err)
	}
	if resp.Code != common.TxStatusCode_SUCCESS {
		return 0, fmt.Errorf("contract query failed: %s (code: %d)", resp.Message, resp.Code)
	}
	if resp.ContractResult == nil || len(resp.ContractResult.Result) == 0 {
		return 0, nil
	}

	count, err := strconv.ParseUint(string(resp.ContractResult.Result), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("contract returned malformed total count '%s': %w", string(resp.ContractResult.Result), err)
	}
	return count, nil
}

// FundIdentity invokes the faucet method where the network provides one.
func (c *Client) FundIdentity(ctx context.Context, address string) (bool, error) {
	chainCfg := c.chainCfg()
	if chainCfg.FundIdentityMethodName == "" {
		return false, fmt.Errorf("funding is not supported on this network")
	}

	kvs := []*common.KeyValuePair{{Key: chainCfg.ParamKeyAddress, Value: []byte(address)}}
	_, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	resp, err := c.sdkClient.InvokeContract(chainCfg.ContractName, chainCfg.FundIdentityMethodName, "", kvs, -1, true)
	if err != nil {
		return false, fmt.Errorf("SDK invoke failed: %w", err)
	}
	if resp.Code != common.TxStatusCode_SUCCESS {
		return false, fmt.Errorf("faucet invocation failed: %s (code: %d)", resp.Message, resp.Code)
	}
	return true, nil
}
