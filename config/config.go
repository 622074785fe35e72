package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ganjes_dao/contract"
	"ganjes_dao/contract/dao"
	"ganjes_dao/sdk"
)

// EnvPrefix is prepended to every environment override, GANJES_DATA_DIR and so on.
const EnvPrefix = "GANJES"

// Config is everything the ganjes binary reads at startup.
type Config struct {
	DataDir       string        `mapstructure:"data_dir"`
	EngineAddress string        `mapstructure:"engine_address"`
	Caller        string        `mapstructure:"caller"`
	LogLevel      string        `mapstructure:"log_level"`
	LogFormat     string        `mapstructure:"log_format"`
	SyncWrites    bool          `mapstructure:"sync_writes"`
	Timeout       time.Duration `mapstructure:"timeout"`
	NATS          NATSConfig    `mapstructure:"nats"`
	Metrics       MetricsConfig `mapstructure:"metrics"`
	Keeper        KeeperConfig  `mapstructure:"keeper"`
	Genesis       GenesisConfig `mapstructure:"genesis"`
}

// NATSConfig enables event publishing when URL is set.
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
	Listen    string `mapstructure:"listen"`
}

// KeeperConfig drives the execute-due loop.
type KeeperConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Batch    int           `mapstructure:"batch"`
}

// GenesisConfig seeds an empty data dir. It is ignored once the store holds genesis.
type GenesisConfig struct {
	Admins            []string      `mapstructure:"admins"`
	RequiredApprovals uint64        `mapstructure:"required_approvals"`
	QuorumRule        string        `mapstructure:"quorum_rule"`
	MinVoters         uint64        `mapstructure:"min_voters"`
	MinFundingGoal    int64         `mapstructure:"min_funding_goal"`
	MaxFundingGoal    int64         `mapstructure:"max_funding_goal"`
	SafetyFloor       time.Duration `mapstructure:"safety_floor"`
	MinVotingDuration time.Duration `mapstructure:"min_voting_duration"`
	MaxVotingDuration time.Duration `mapstructure:"max_voting_duration"`
	MultiSigWindow    time.Duration `mapstructure:"multisig_window"`
	ParameterWindow   time.Duration `mapstructure:"parameter_window"`
	FeeRefundable     bool          `mapstructure:"fee_refundable"`

	MinInvestmentAmount  int64         `mapstructure:"min_investment_amount"`
	MinTokensForProposal int64         `mapstructure:"min_tokens_for_proposal"`
	ProposalCreationFee  int64         `mapstructure:"proposal_creation_fee"`
	VotingDuration       time.Duration `mapstructure:"voting_duration"`
	MinQuorumPercent     uint64        `mapstructure:"min_quorum_percent"`
	MaxProposalsPerUser  uint64        `mapstructure:"max_proposals_per_user"`
	ProposalCooldown     time.Duration `mapstructure:"proposal_cooldown"`
}

// SetDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", ".ganjes")
	v.SetDefault("engine_address", "0x0000000000000000000000000000000000000d40")
	v.SetDefault("caller", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("sync_writes", false)
	v.SetDefault("timeout", "1m")

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", dao.DefaultSubjectPrefix)

	v.SetDefault("metrics.namespace", "ganjes")
	v.SetDefault("metrics.listen", ":9464")

	v.SetDefault("keeper.interval", "30s")
	v.SetDefault("keeper.batch", 50)

	v.SetDefault("genesis.admins", []string{})
	v.SetDefault("genesis.required_approvals", 1)
	v.SetDefault("genesis.quorum_rule", contract.QuorumFundingRatio.String())
	v.SetDefault("genesis.min_voters", contract.FallbackMinVoters)
	v.SetDefault("genesis.min_funding_goal", contract.FallbackMinFundingGoal)
	v.SetDefault("genesis.max_funding_goal", contract.FallbackMaxFundingGoal)
	v.SetDefault("genesis.safety_floor", contract.FallbackSafetyFloor.String())
	v.SetDefault("genesis.min_voting_duration", contract.FallbackMinVotingDuration.String())
	v.SetDefault("genesis.max_voting_duration", contract.FallbackMaxVotingDuration.String())
	v.SetDefault("genesis.multisig_window", contract.FallbackApprovalWindow.String())
	v.SetDefault("genesis.parameter_window", contract.FallbackApprovalWindow.String())
	v.SetDefault("genesis.fee_refundable", false)
	v.SetDefault("genesis.min_investment_amount", contract.FallbackMinInvestmentAmount)
	v.SetDefault("genesis.min_tokens_for_proposal", contract.FallbackMinTokensForProposal)
	v.SetDefault("genesis.proposal_creation_fee", contract.FallbackProposalCreationFee)
	v.SetDefault("genesis.voting_duration", contract.FallbackVotingDuration.String())
	v.SetDefault("genesis.min_quorum_percent", contract.FallbackMinQuorumPercent)
	v.SetDefault("genesis.max_proposals_per_user", contract.FallbackMaxProposalsPerUser)
	v.SetDefault("genesis.proposal_cooldown", contract.FallbackProposalCooldown.String())
}

// SetupViper layers defaults, an optional ganjes.yaml, GANJES_* env and flags.
// A config file named explicitly must exist; the implicit lookup in the working
// directory and dir may come up empty.
func SetupViper(configFile, dir string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("ganjes")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir != "" {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" {
				return
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			bindErr = multierr.Append(bindErr, v.BindPFlag(key, f))
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}
	return v, nil
}

// Load decodes and validates the layered settings.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs error
	if strings.TrimSpace(c.DataDir) == "" {
		errs = multierr.Append(errs, errors.New("data_dir is required"))
	}
	if _, err := sdk.ParseAddress(c.EngineAddress); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("engine_address: %w", err))
	}
	if c.Caller != "" {
		if _, err := sdk.ParseAddress(c.Caller); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("caller: %w", err))
		}
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		errs = multierr.Append(errs, fmt.Errorf("log_format must be console or json, got %q", c.LogFormat))
	}
	if c.Keeper.Interval <= 0 {
		errs = multierr.Append(errs, errors.New("keeper.interval must be positive"))
	}
	if c.Keeper.Batch < 0 {
		errs = multierr.Append(errs, errors.New("keeper.batch must not be negative"))
	}
	if _, ok := contract.ParseQuorumRule(c.Genesis.QuorumRule); !ok {
		errs = multierr.Append(errs, fmt.Errorf("genesis.quorum_rule %q is unknown", c.Genesis.QuorumRule))
	}
	return errs
}

// CallerAddress is the default signer for state-changing commands.
func (c *Config) CallerAddress() (common.Address, error) {
	if c.Caller == "" {
		return sdk.ZeroAddress, errors.New("no caller set, pass --caller or GANJES_CALLER")
	}
	return sdk.ParseAddress(c.Caller)
}

// Engine is the custody address of the engine on the ledger.
func (c *Config) Engine() (common.Address, error) {
	return sdk.ParseAddress(c.EngineAddress)
}

// BuildGenesis turns the genesis section into the engine's seed. Durations are
// truncated to whole seconds.
func (c *Config) BuildGenesis() (*contract.Genesis, error) {
	g := c.Genesis
	rule, ok := contract.ParseQuorumRule(g.QuorumRule)
	if !ok {
		return nil, fmt.Errorf("unknown quorum rule %q", g.QuorumRule)
	}
	admins := make([]common.Address, 0, len(g.Admins))
	for _, raw := range g.Admins {
		a, err := sdk.ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("genesis admin: %w", err)
		}
		admins = append(admins, a)
	}
	return &contract.Genesis{
		Settings: contract.Settings{
			MinFundingGoal:    sdk.Amount(g.MinFundingGoal),
			MaxFundingGoal:    sdk.Amount(g.MaxFundingGoal),
			QuorumRule:        rule,
			MinVoters:         g.MinVoters,
			SafetyFloor:       seconds(g.SafetyFloor),
			MinVotingDuration: seconds(g.MinVotingDuration),
			MaxVotingDuration: seconds(g.MaxVotingDuration),
			MultiSigWindow:    seconds(g.MultiSigWindow),
			ParameterWindow:   seconds(g.ParameterWindow),
			RequiredApprovals: g.RequiredApprovals,
		},
		Params: contract.Params{
			MinInvestmentAmount:  sdk.Amount(g.MinInvestmentAmount),
			MinTokensForProposal: sdk.Amount(g.MinTokensForProposal),
			ProposalCreationFee:  sdk.Amount(g.ProposalCreationFee),
			VotingDuration:       seconds(g.VotingDuration),
			MinQuorumPercent:     g.MinQuorumPercent,
			MaxProposalsPerUser:  g.MaxProposalsPerUser,
			ProposalCooldown:     seconds(g.ProposalCooldown),
		},
		Admins:        admins,
		FeeRefundable: g.FeeRefundable,
	}, nil
}

func seconds(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d / time.Second)
}

// Logger builds the process logger. Console output is the development encoder,
// json the production one.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	var zc zap.Config
	if c.LogFormat == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
