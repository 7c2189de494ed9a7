package chainmaker

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// NodeConfig stores detailed configuration for a single ChainMaker node
type NodeConfig struct {
	Address     string   `yaml:"address"`
	ConnCount   int      `yaml:"conn_count"`
	UseTLS      bool     `yaml:"use_tls"`
	TLSHostName string   `yaml:"tls_host_name"`
	CaPaths     []string `yaml:"ca_paths"`
}

// ChainMakerConfig stores ChainMaker-specific configuration
type ChainMakerConfig struct {
	// --- SDK Connection Required ---
	ChainID string `yaml:"chain_id"`
	OrgID   string `yaml:"org_id"`

	// TLS Connection Credentials
	UserKeyPath  string `yaml:"user_key_path"`
	UserCertPath string `yaml:"user_cert_path"`

	// Transaction Signing Credentials
	UserSignKeyPath  string `yaml:"user_sign_key_path"`
	UserSignCertPath string `yaml:"user_sign_cert_path"`

	Nodes []NodeConfig `yaml:"nodes"`

	// --- Registry Contract Binding ---
	ContractName           string `yaml:"contract_name"`
	SubmitRecordMethodName string `yaml:"submit_record_method_name"`
	GetRecordMethodName    string `yaml:"get_record_method_name"`
	GetTotalMethodName     string `yaml:"get_total_method_name"`
	FundIdentityMethodName string `yaml:"fund_identity_method_name"` // empty on networks without a faucet
	ParamKeyAddress        string `yaml:"param_key_address"`
	ParamKeyDataHash       string `yaml:"param_key_data_hash"`
	ParamKeyDescription    string `yaml:"param_key_description"`
}

// LoadChainMakerConfig loads ChainMaker configuration from the specified YAML file path
func LoadChainMakerConfig(path string) (*ChainMakerConfig, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path of ChainMaker config file: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ChainMaker config file '%s': %w", absPath, err)
	}

	var cfg ChainMakerConfig
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ChainMaker YAML config file: %w", err)
	}

	return &cfg, nil
}
