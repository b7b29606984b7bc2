package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// DatadirKey is the local data directory to store the internal state of daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// LogFileKey enables logging to a rotated file in the datadir
	LogFileKey = "LOG_FILE"
	// EnvFileKey is the path of the environment file written by the
	// environment starter. Missing file is not an error.
	EnvFileKey = "ENV_FILE"
	// NegotiationPortKey is the port where the maker negotiation server listens on
	NegotiationPortKey = "NEGOTIATION_PORT"
	// PollIntervalKey is the interval between two polls of the swap registry
	PollIntervalKey = "POLL_INTERVAL"
	// ActionTimeoutKey is how long a failing ledger action is retried before
	// giving up on it
	ActionTimeoutKey = "ACTION_TIMEOUT"
	// CndURLKey is the url of the cnd REST API
	CndURLKey = "CND_URL"
	// CndIndexKey selects the HTTP_URL_CND_<i> entry of the env file when
	// CND_URL is not set
	CndIndexKey = "CND_INDEX"
	// RegistryRateLimitKey is the max number of requests per second to cnd
	RegistryRateLimitKey = "REGISTRY_RATE_LIMIT"
	// BitcoinRPCHostKey is the <host:port> of the bitcoind json-rpc interface
	BitcoinRPCHostKey = "BITCOIN_RPC_HOST"
	// BitcoinRPCUserKey ...
	BitcoinRPCUserKey = "BITCOIN_RPC_USER"
	// BitcoinRPCPassKey ...
	BitcoinRPCPassKey = "BITCOIN_RPC_PASS"
	// BitcoinNetworkKey is one of mainnet, testnet, regtest
	BitcoinNetworkKey = "BITCOIN_NETWORK"
	// BitcoinFeePerWUKey is the fee rate for the bitcoin transactions built
	// by cnd
	BitcoinFeePerWUKey = "BITCOIN_FEE_PER_WU"
	// EthereumNodeURLKey is the url of the ethereum node json-rpc interface
	EthereumNodeURLKey = "ETHEREUM_NODE_HTTP_URL"
	// EthereumAccountKey is the account unlocked on the ethereum node
	EthereumAccountKey = "ETHEREUM_ACCOUNT"
	// EthereumNetworkKey ...
	EthereumNetworkKey = "ETHEREUM_NETWORK"
	// DBTypeKey is used to switch database type between those supported
	DBTypeKey = "DB_TYPE"
	// WebhookURLKey is the comma separated list of endpoints notified when a
	// swap finishes
	WebhookURLKey = "WEBHOOK_URL"
	// WebhookSecretKey is used to sign the bearer token of webhook requests
	WebhookSecretKey = "WEBHOOK_SECRET"
	// AlphaExpiryKey is the expiry of the alpha ledger htlc, relative to the
	// time the order is taken
	AlphaExpiryKey = "ALPHA_EXPIRY"
	// BetaExpiryKey ...
	BetaExpiryKey = "BETA_EXPIRY"
	// EnableProfilerKey enables dumping memory statistics
	EnableProfilerKey = "ENABLE_PROFILER"
	// StatsIntervalKey defines interval in seconds for dumping statistics
	StatsIntervalKey = "STATS_INTERVAL"
	// OrderPairKey is the trading pair of the order published by the maker
	// or looked up by the taker
	OrderPairKey = "ORDER_PAIR"
	// OrderAskAmountKey is the nominal amount the maker asks for
	OrderAskAmountKey = "ORDER_ASK_AMOUNT"
	// OrderBidAmountKey is the nominal amount the maker gives
	OrderBidAmountKey = "ORDER_BID_AMOUNT"
	// OrderValidityKey is how long a published order stays valid. The maker
	// publishes a fresh one when it expires.
	OrderValidityKey = "ORDER_VALIDITY"
	// MakerURLKey is the url of the negotiation server the taker connects to
	MakerURLKey = "MAKER_URL"
	// TakerMinRateKey is the min amount of bid asset per unit of ask asset
	// the taker accepts
	TakerMinRateKey = "TAKER_MIN_RATE"

	DBBadger   = "badger"
	DBInMemory = "inmemory"

	DbLocation       = "db"
	LogLocation      = "logs"
	ProfilerLocation = "stats"

	// values written by the environment starter.
	envFileCndURL         = "HTTP_URL_CND"
	envFileBitcoinRPCURL  = "BITCOIN_NODE_RPC_URL"
	envFileEthereumURL    = "ETHEREUM_NODE_HTTP_URL"
	defaultBitcoinRPCUser = "bitcoin"
	defaultBitcoinRPCPass = "t68ej4UX2pB0cLlGwSwHFBLKxXYgomkXyFyxuBmm2U8="
)

var (
	vip *viper.Viper

	defaultDatadir = btcutil.AppDataDir("swapd", false)
	defaultEnvFile = filepath.Join(userHomeDir(), ".create-comit-app", "env")
)

// InitConfig loads the env file, if any, and the SWAPD_ prefixed environment
// variables.
func InitConfig() error {
	envFile := os.Getenv("SWAPD_" + EnvFileKey)
	if envFile == "" {
		envFile = defaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error while loading env file %s: %s", envFile, err)
	}

	vip = viper.New()
	vip.SetEnvPrefix("SWAPD")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(LogFileKey, false)
	vip.SetDefault(EnvFileKey, envFile)
	vip.SetDefault(NegotiationPortKey, 2318)
	vip.SetDefault(PollIntervalKey, 2*time.Second)
	vip.SetDefault(ActionTimeoutKey, 10*time.Minute)
	vip.SetDefault(CndIndexKey, 0)
	vip.SetDefault(RegistryRateLimitKey, 20)
	vip.SetDefault(BitcoinRPCUserKey, defaultBitcoinRPCUser)
	vip.SetDefault(BitcoinRPCPassKey, defaultBitcoinRPCPass)
	vip.SetDefault(BitcoinNetworkKey, domain.NetworkRegtest)
	vip.SetDefault(BitcoinFeePerWUKey, "150")
	vip.SetDefault(EthereumNetworkKey, domain.NetworkRegtest)
	vip.SetDefault(DBTypeKey, DBBadger)
	vip.SetDefault(AlphaExpiryKey, 7200)
	vip.SetDefault(BetaExpiryKey, 3600)
	vip.SetDefault(EnableProfilerKey, false)
	vip.SetDefault(StatsIntervalKey, 600)
	vip.SetDefault(OrderPairKey, "ETH-BTC")
	vip.SetDefault(OrderAskAmountKey, "10")
	vip.SetDefault(OrderBidAmountKey, "1")
	vip.SetDefault(OrderValidityKey, 5*time.Minute)
	vip.SetDefault(MakerURLKey, "http://localhost:2318")
	vip.SetDefault(TakerMinRateKey, "0")

	setDefaultsFromEnvFile()

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetStringSlice(key string) []string {
	return vip.GetStringSlice(key)
}

func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

// GetDbDatadir returns the directory of the action journal. It's empty for
// the in-memory db type.
func GetDbDatadir() string {
	if GetString(DBTypeKey) == DBInMemory {
		return ""
	}
	return filepath.Join(GetDatadir(), DbLocation)
}

// GetLogFile returns the path of the log file.
func GetLogFile(name string) string {
	return filepath.Join(GetDatadir(), LogLocation, fmt.Sprintf("%s.log", name))
}

// GetWebhookURLs returns the list of webhook endpoints.
func GetWebhookURLs() []string {
	urls := make([]string, 0)
	for _, u := range strings.Split(GetString(WebhookURLKey), ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// GetSeconds returns the value of key, expressed in seconds, as a duration.
func GetSeconds(key string) time.Duration {
	return time.Duration(GetInt(key)) * time.Second
}

// setDefaultsFromEnvFile makes the endpoints written by the environment
// starter the defaults for the ones not explicitly set.
func setDefaultsFromEnvFile() {
	cndKey := fmt.Sprintf("%s_%d", envFileCndURL, vip.GetInt(CndIndexKey))
	if v := os.Getenv(cndKey); v != "" {
		vip.SetDefault(CndURLKey, v)
	}
	if v := os.Getenv(envFileBitcoinRPCURL); v != "" {
		vip.SetDefault(BitcoinRPCHostKey, hostFromURL(v))
	}
	if v := os.Getenv(envFileEthereumURL); v != "" {
		vip.SetDefault(EthereumNodeURLKey, v)
	}
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	dbType := GetString(DBTypeKey)
	if dbType != DBBadger && dbType != DBInMemory {
		return fmt.Errorf("unsupported db type %s", dbType)
	}

	if GetDuration(PollIntervalKey) <= 0 {
		return fmt.Errorf("%s must be a positive duration", PollIntervalKey)
	}
	if GetDuration(ActionTimeoutKey) <= 0 {
		return fmt.Errorf("%s must be a positive duration", ActionTimeoutKey)
	}

	if GetInt(AlphaExpiryKey) <= GetInt(BetaExpiryKey) || GetInt(BetaExpiryKey) <= 0 {
		return fmt.Errorf(
			"%s must be greater than %s and both must be positive",
			AlphaExpiryKey, BetaExpiryKey,
		)
	}

	for _, key := range []string{BitcoinNetworkKey, EthereumNetworkKey} {
		switch GetString(key) {
		case domain.NetworkMainnet, domain.NetworkTestnet, domain.NetworkRegtest:
		default:
			return fmt.Errorf("%s must be one of mainnet, testnet, regtest", key)
		}
	}

	for _, u := range GetWebhookURLs() {
		if parsed, err := url.Parse(u); err != nil || parsed.Host == "" {
			return fmt.Errorf("invalid webhook url %s", u)
		}
	}

	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if dbDir := GetDbDatadir(); dbDir != "" {
		if err := makeDirectoryIfNotExists(dbDir); err != nil {
			return err
		}
	}

	if GetBool(LogFileKey) {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, LogLocation)); err != nil {
			return err
		}
	}

	if GetBool(EnableProfilerKey) {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, ProfilerLocation)); err != nil {
			return err
		}
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

func hostFromURL(s string) string {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return s
	}
	return u.Host
}

func userHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
