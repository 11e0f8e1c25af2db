package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "CLOUDDRIVE_"

// parseEnv overlays Config with CLOUDDRIVE_* environment variables. A .env
// file in the working directory is loaded first when present; variables
// already set in the process environment win over it.
//
// Malformed numeric, boolean or duration values cause a panic, the same way
// an unreadable JSON config does.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	setString(&config.EndpointAddrGRPC, "GRPC_ADDR")
	setString(&config.DatabaseDSN, "DATABASE_DSN")
	setString(&config.SecretKey, "SECRET_KEY")
	setString(&config.S3RootUser, "S3_ACCESS_KEY")
	setString(&config.S3RootPassword, "S3_SECRET_KEY")
	setString(&config.S3Bucket, "S3_BUCKET")
	setString(&config.S3Region, "S3_REGION")
	setString(&config.S3BaseEndpoint, "S3_ENDPOINT")
	setString(&config.LogLevel, "LOG_LEVEL")
	setString(&config.LogFormat, "LOG_FORMAT")

	if v, ok := lookup("S3_FORCE_PATH_STYLE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		config.S3ForcePathStyle = b
	}
	if v, ok := lookup("DEFAULT_PART_SIZE_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			panic(err)
		}
		config.DefaultPartSize = n
	}

	setDuration(&config.S3Timeout, "S3_TIMEOUT")
	setDuration(&config.PresignExpires, "PRESIGN_EXPIRES")
	setDuration(&config.UploadSessionTTL, "UPLOAD_SESSION_TTL")
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func setString(dst *string, name string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func setDuration(dst *time.Duration, name string) {
	if v, ok := lookup(name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		*dst = d
	}
}
