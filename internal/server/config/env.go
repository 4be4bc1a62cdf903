package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/coursecloud/internal/flagx"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

// loadDotEnv loads variables from the file given by -f/-env-file, or from
// ./.env when present. Variables already set in the process environment win.
func loadDotEnv() error {
	path := flagx.EnvFileFlags()
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}

// parseEnv overlays configuration from environment variables.
//
// Every setting has a COURSECLOUD_* name. A few legacy names are accepted
// as fallbacks: PORT, SECRET_KEY, MAIL_USER and MAIL_PASSWORD.
func parseEnv(config *Config) error {
	if err := loadDotEnv(); err != nil {
		return err
	}

	if port, ok := os.LookupEnv("PORT"); ok && port != "" {
		config.EndpointAddrHTTP = ":" + port
	}
	envString("COURSECLOUD_HTTP_ADDR", &config.EndpointAddrHTTP)
	envString("COURSECLOUD_DATABASE_DSN", &config.DatabaseDSN)
	envString("SECRET_KEY", &config.SecretKey)
	envString("COURSECLOUD_SECRET_KEY", &config.SecretKey)
	envString("COURSECLOUD_REDIS_ADDR", &config.RedisAddr)
	envString("COURSECLOUD_REDIS_PASSWORD", &config.RedisPassword)
	envString("COURSECLOUD_SMTP_HOST", &config.SMTPHost)
	envString("MAIL_USER", &config.SMTPUser)
	envString("COURSECLOUD_SMTP_USER", &config.SMTPUser)
	envString("MAIL_PASSWORD", &config.SMTPPassword)
	envString("COURSECLOUD_SMTP_PASSWORD", &config.SMTPPassword)
	envString("COURSECLOUD_MAIL_FROM", &config.MailFrom)
	envString("COURSECLOUD_CLIENT_URL", &config.ClientURL)
	envString("COURSECLOUD_ALLOWED_ORIGIN", &config.AllowedOrigin)
	envString("COURSECLOUD_S3_ROOT_USER", &config.S3RootUser)
	envString("COURSECLOUD_S3_ROOT_PASSWORD", &config.S3RootPassword)
	envString("COURSECLOUD_S3_BUCKET", &config.S3Bucket)
	envString("COURSECLOUD_S3_REGION", &config.S3Region)
	envString("COURSECLOUD_S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	envString("COURSECLOUD_LOG_FORMAT", &config.LogFormat)
	envString("COURSECLOUD_LOG_LEVEL", &config.LogLevel)

	var errs []error
	errs = append(errs,
		envInt("COURSECLOUD_REDIS_DB", &config.RedisDB),
		envInt("COURSECLOUD_SMTP_PORT", &config.SMTPPort),
		envInt64("COURSECLOUD_MAX_UPLOAD_SIZE", &config.MaxUploadSize),
		envBool("COURSECLOUD_STRICT_SESSIONS", &config.StrictSessions),
		envBool("COURSECLOUD_REQUIRE_RESET_GRANT", &config.RequireResetGrant),
		envBool("COURSECLOUD_COOKIE_SECURE", &config.CookieSecure),
		envDuration("COURSECLOUD_ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration),
		envDuration("COURSECLOUD_REFRESH_TOKEN_TTL", &config.RefreshTokenValidityDuration),
		envDuration("COURSECLOUD_VERIFICATION_TOKEN_TTL", &config.VerificationTokenValidityDuration),
		envDuration("COURSECLOUD_OTP_TTL", &config.OTPValidityDuration),
		envDuration("COURSECLOUD_SHUTDOWN_TIMEOUT", &config.ShutdownTimeout),
	)

	return errors.Join(errs...)
}

func envString(name string, dst *string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = n
	return nil
}

func envInt64(name string, dst *int64) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = n
	return nil
}

func envBool(name string, dst *bool) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = b
	return nil
}

func envDuration(name string, dst *time.Duration) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}
