package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/clouddrive/internal/flagx"
	"github.com/dmitrijs2005/clouddrive/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
//
// Only fields present in the file override the current Config.
type JsonConfig struct {
	EndpointAddrGRPC string          `json:"endpoint_addr_grpc"`
	DatabaseDSN      string          `json:"database_dsn"`
	SecretKey        string          `json:"secret_key"`
	S3RootUser       string          `json:"s3_root_user"`
	S3RootPassword   string          `json:"s3_root_password"`
	S3Bucket         string          `json:"s3_bucket"`
	S3Region         string          `json:"s3_region"`
	S3BaseEndpoint   string          `json:"s3_base_endpoint"`
	S3ForcePathStyle *bool           `json:"s3_force_path_style"`
	S3Timeout        *timex.Duration `json:"s3_timeout"`
	PresignExpires   *timex.Duration `json:"presign_expires"`
	DefaultPartSize  int64           `json:"default_part_size_bytes"`
	UploadSessionTTL *timex.Duration `json:"upload_session_ttl"`
	LogLevel         string          `json:"log_level"`
	LogFormat        string          `json:"log_format"`
}

// parseJson loads configuration values from the JSON file named by the -c
// or -config flag. If no file is given nothing happens; an unreadable or
// malformed file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	overlay(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	overlay(&config.SecretKey, c.SecretKey)
	overlay(&config.S3RootUser, c.S3RootUser)
	overlay(&config.S3RootPassword, c.S3RootPassword)
	overlay(&config.S3Bucket, c.S3Bucket)
	overlay(&config.S3Region, c.S3Region)
	overlay(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	overlay(&config.DefaultPartSize, c.DefaultPartSize)
	overlay(&config.LogLevel, c.LogLevel)
	overlay(&config.LogFormat, c.LogFormat)

	if c.S3ForcePathStyle != nil {
		config.S3ForcePathStyle = *c.S3ForcePathStyle
	}
	if c.S3Timeout != nil {
		config.S3Timeout = c.S3Timeout.Duration
	}
	if c.PresignExpires != nil {
		config.PresignExpires = c.PresignExpires.Duration
	}
	if c.UploadSessionTTL != nil {
		config.UploadSessionTTL = c.UploadSessionTTL.Duration
	}
}

func overlay[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
