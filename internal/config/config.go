package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageAzure = "azure"
	StorageS3    = "s3"

	AuthLocal  = "local"
	AuthHeader = "header"

	maxLinkTTL  = 60 * time.Minute
	writeMargin = 30 * time.Second
)

type Config struct {
	ServiceName       string
	HTTPListenAddr    string
	MetricsListenAddr string
	LogLevel          string
	CORSOrigins       []string

	// BackupsMock selects the synthetic backup provider.
	BackupsMock bool

	StorageBackend        string
	AzureStorageAccount   string
	AzureConnectionString string
	AzureStorageContainer string
	StoragePrefix         string
	S3Endpoint            string
	S3Region              string
	S3Bucket              string
	S3AccessKey           string
	S3SecretKey           string
	BackupRetention       time.Duration
	DownloadLinkTTL       time.Duration
	AzureDevOpsURL        string
	AzureDevOpsPAT        string
	RetryAttempts         int
	RetryBaseDelay        time.Duration
	ExternalCallTimeout   time.Duration
	ImportPollInterval    time.Duration
	ImportTimeout         time.Duration

	AuthMode            string
	AuthPrincipalHeader string
	AuthAllowedDomains  []string

	MenuConfig string
}

func Load() (*Config, error) {
	retentionDays, err := getEnvInt("BACKUP_RETENTION_DAYS", 90)
	if err != nil {
		return nil, err
	}
	attempts, err := getEnvInt("RETRY_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		ServiceName:           getEnv("SERVICE_NAME", "portal-api"),
		HTTPListenAddr:        getEnv("HTTP_LISTEN_ADDR", ":8080"),
		MetricsListenAddr:     getEnv("METRICS_LISTEN_ADDR", ""),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		CORSOrigins:           splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		BackupsMock:           strings.EqualFold(getEnv("BACKUPS_MOCK", ""), "true"),
		StorageBackend:        strings.ToLower(getEnv("STORAGE_BACKEND", StorageAzure)),
		AzureStorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT_NAME", ""),
		AzureConnectionString: getEnv("AZURE_STORAGE_CONNECTION_STRING", ""),
		AzureStorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "git-backups"),
		StoragePrefix:         strings.Trim(getEnv("AZURE_STORAGE_PREFIX", ""), "/"),
		S3Endpoint:            getEnv("S3_ENDPOINT", ""),
		S3Region:              getEnv("S3_REGION", "us-east-1"),
		S3Bucket:              getEnv("S3_BUCKET", ""),
		S3AccessKey:           getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:           getEnv("S3_SECRET_KEY", ""),
		BackupRetention:       time.Duration(retentionDays) * 24 * time.Hour,
		AzureDevOpsURL:        strings.TrimRight(getEnv("AZURE_DEVOPS_URL", "https://dev.azure.com"), "/"),
		AzureDevOpsPAT:        getEnv("AZURE_DEVOPS_PAT", ""),
		RetryAttempts:         attempts,
		AuthMode:              strings.ToLower(getEnv("AUTH_MODE", AuthLocal)),
		AuthPrincipalHeader:   getEnv("AUTH_PRINCIPAL_HEADER", "X-MS-CLIENT-PRINCIPAL-NAME"),
		AuthAllowedDomains:    splitList(strings.ToLower(getEnv("AUTH_ALLOWED_DOMAINS", ""))),
		MenuConfig:            getEnv("MENU_CONFIG", ""),
	}

	for key, opt := range map[string]struct {
		dst      *time.Duration
		fallback string
	}{
		"DOWNLOAD_LINK_TTL":     {&cfg.DownloadLinkTTL, "15m"},
		"RETRY_BASE_DELAY":      {&cfg.RetryBaseDelay, "500ms"},
		"EXTERNAL_CALL_TIMEOUT": {&cfg.ExternalCallTimeout, "30s"},
		"IMPORT_POLL_INTERVAL":  {&cfg.ImportPollInterval, "5s"},
		"IMPORT_TIMEOUT":        {&cfg.ImportTimeout, "10m"},
	} {
		d, err := time.ParseDuration(getEnv(key, opt.fallback))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		*opt.dst = d
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var missing []string

	switch c.StorageBackend {
	case StorageAzure:
		if !c.BackupsMock && c.AzureStorageAccount == "" && c.AzureConnectionString == "" {
			missing = append(missing, "AZURE_STORAGE_ACCOUNT_NAME or AZURE_STORAGE_CONNECTION_STRING")
		}
	case StorageS3:
		if !c.BackupsMock && c.S3Bucket == "" {
			missing = append(missing, "S3_BUCKET")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StorageAzure, StorageS3, c.StorageBackend)
	}

	switch c.AuthMode {
	case AuthLocal:
	case AuthHeader:
		if c.AuthPrincipalHeader == "" {
			missing = append(missing, "AUTH_PRINCIPAL_HEADER")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthLocal, AuthHeader, c.AuthMode)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	if c.DownloadLinkTTL <= 0 || c.DownloadLinkTTL > maxLinkTTL {
		return fmt.Errorf("DOWNLOAD_LINK_TTL must be within (0, %s], got %s", maxLinkTTL, c.DownloadLinkTTL)
	}
	if c.BackupRetention <= 0 {
		return fmt.Errorf("BACKUP_RETENTION_DAYS must be positive")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be at least 1, got %d", c.RetryAttempts)
	}
	if c.ImportPollInterval <= 0 {
		return fmt.Errorf("IMPORT_POLL_INTERVAL must be positive")
	}
	if c.ImportTimeout < c.ImportPollInterval {
		return fmt.Errorf("IMPORT_TIMEOUT (%s) must not be shorter than IMPORT_POLL_INTERVAL (%s)", c.ImportTimeout, c.ImportPollInterval)
	}
	return nil
}

// RestoreTimeout bounds a whole restore: the import budget plus every
// retried call before it (resolve, sign, create) and the import submission.
func (c *Config) RestoreTimeout() time.Duration {
	return c.ImportTimeout + time.Duration(3*c.RetryAttempts+1)*c.ExternalCallTimeout
}

// WriteTimeout is the HTTP write deadline for restore requests. It outlasts
// RestoreTimeout so a failed restore can still report its outcome.
func (c *Config) WriteTimeout() time.Duration {
	return c.RestoreTimeout() + writeMargin
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
