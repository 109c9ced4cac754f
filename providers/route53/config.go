// Package route53 implements the DNSync provider interface for AWS Route 53.
package route53

import (
	"fmt"
	"strconv"
	"strings"

	"os"
)

// DefaultTTL is used when a desired record carries no TTL of its own.
const DefaultTTL = 300

// DefaultBatchSize caps the number of changes submitted in a single
// ChangeResourceRecordSets call. Route 53 rejects batches over 1000 changes
// or 32000 bytes of request body; 50 keeps individual batches well clear of
// either limit while still amortizing the request count.
const DefaultBatchSize = 50

// Config holds Route53-specific configuration.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	UseCredentialsChain bool

	HostedZoneID string // preferred: skips the by-name zone lookup
	Zone         string // zone name for lookup, used if HostedZoneID is empty

	TTL       int
	BatchSize int
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	var errs []string

	if c.HostedZoneID == "" && c.Zone == "" {
		errs = append(errs, "HOSTED_ZONE_ID or ZONE is required")
	}
	if c.TTL < 0 {
		errs = append(errs, "TTL must be non-negative")
	}
	if c.BatchSize <= 0 {
		errs = append(errs, "BATCH_SIZE must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("route53 config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// LoadConfig loads Route53 configuration from environment variables.
// Environment variable pattern: DNSYNC_{INSTANCE_NAME}_{SETTING}
//
// Supported settings:
//   - REGION: AWS region (optional, falls back to AWS_REGION then us-east-1)
//   - ACCESS_KEY_ID / SECRET_ACCESS_KEY / SESSION_TOKEN: explicit static credentials
//     (ACCESS_KEY_ID and SECRET_ACCESS_KEY support _FILE suffix for Docker secrets)
//   - USE_CREDENTIALS_CHAIN: use the default AWS credential chain instead of
//     explicit keys (optional, defaults to false)
//   - HOSTED_ZONE_ID: hosted zone ID (optional if ZONE is set)
//   - ZONE: zone name for lookup (optional if HOSTED_ZONE_ID is set)
//   - TTL: record TTL (optional, defaults to 300)
//   - BATCH_SIZE: ChangeResourceRecordSets batch size (optional, defaults to 50)
func LoadConfig(instanceName string) (*Config, error) {
	prefix := envPrefix(instanceName)

	cfg := &Config{
		Region:              getEnv(prefix + "REGION"),
		AccessKeyID:         getEnvOrFile(prefix+"ACCESS_KEY_ID", prefix+"ACCESS_KEY_ID_FILE"),
		SecretAccessKey:     getEnvOrFile(prefix+"SECRET_ACCESS_KEY", prefix+"SECRET_ACCESS_KEY_FILE"),
		SessionToken:        getEnv(prefix + "SESSION_TOKEN"),
		UseCredentialsChain: parseBool(getEnv(prefix + "USE_CREDENTIALS_CHAIN")),
		HostedZoneID:        getEnv(prefix + "HOSTED_ZONE_ID"),
		Zone:                getEnv(prefix + "ZONE"),
		TTL:                 DefaultTTL,
		BatchSize:           DefaultBatchSize,
	}

	if ttlStr := getEnv(prefix + "TTL"); ttlStr != "" {
		ttl, err := strconv.Atoi(ttlStr)
		if err != nil {
			return nil, fmt.Errorf("invalid TTL value %q: %w", ttlStr, err)
		}
		cfg.TTL = ttl
	}

	if batchStr := getEnv(prefix + "BATCH_SIZE"); batchStr != "" {
		batch, err := strconv.Atoi(batchStr)
		if err != nil {
			return nil, fmt.Errorf("invalid BATCH_SIZE value %q: %w", batchStr, err)
		}
		cfg.BatchSize = batch
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration for %s: %w", instanceName, err)
	}

	return cfg, nil
}

// envPrefix converts an instance name to an environment variable prefix.
func envPrefix(instanceName string) string {
	normalized := strings.ToUpper(instanceName)
	normalized = strings.ReplaceAll(normalized, "-", "_")
	return "DNSYNC_" + normalized + "_"
}

func getEnv(key string) string {
	return os.Getenv(key)
}

func getEnvOrFile(directKey, fileKey string) string {
	if filePath := os.Getenv(fileKey); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return os.Getenv(directKey)
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}
