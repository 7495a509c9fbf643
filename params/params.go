package params

import "time"

const (
	ServerBodyLimit         = 10 * 1024 * 1024    // 10 MiB, image uploads included
	ServerIdleTimeout       = 30 * time.Second
	ServerReadTimeout       = 10 * time.Second
	ServerWriteTimeout      = 30 * time.Second
	RevokedTokenKeyPrefix   = "rt:"
	AccessTokenExpiration   = 24 * time.Hour      // bearer token lifetime
	OTPLength               = 6                   // number of digits in a recovery code
	OTPExpiration           = 15 * time.Minute    // recovery code validity
	OTPMaxVerifyAttempts    = 5                   // wrong codes allowed per issued challenge
	RecoveryRateLimitMax    = 10                  // forgot/reset requests per window per ip
	RecoveryRateLimitSpan   = 15 * time.Minute    // rate limit window for forgot/reset
	CaptureMaxBodySize      = 64 * 1024           // bytes of request/response body kept per audit record
	AuditQueueSize          = 1024                // pending audit records before dropping
	AuditMaxPendingBytes    = 256 * 1024 * 1024   // upper bound of body bytes held by queued audit records
	AuditCloseTimeout       = 10 * time.Second    // time given to drain the audit queue on shutdown
	AuditDefaultRetention   = 30 * 24 * time.Hour
	AuditDefaultCleanupCron = "0 3 * * *"
	DefaultPageSize         = 10
	MaxPageSize             = 100
	HealthCheckServerAddr   = ":3001"             // health check server address
)

var (
	Version = "0.1.0"
)

func VersionWithCommit(gitCommit, gitDate string) string {
	version := Version
	if len(gitCommit) >= 8 {
		version += "-" + gitCommit[:8]
	}
	if gitDate != "" {
		version += "-" + gitDate
	}
	return version
}
