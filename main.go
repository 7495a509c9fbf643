package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/storage/memory/v2"
	"github.com/gofiber/storage/redis/v3"
	"github.com/joho/godotenv"
	"github.com/khanghh/quill/internal/audit"
	"github.com/khanghh/quill/internal/auth"
	"github.com/khanghh/quill/internal/blogs"
	"github.com/khanghh/quill/internal/clock"
	"github.com/khanghh/quill/internal/common"
	"github.com/khanghh/quill/internal/config"
	"github.com/khanghh/quill/internal/handlers/api"
	"github.com/khanghh/quill/internal/jobs"
	"github.com/khanghh/quill/internal/mail"
	"github.com/khanghh/quill/internal/middlewares"
	"github.com/khanghh/quill/internal/middlewares/authn"
	"github.com/khanghh/quill/internal/middlewares/captcha"
	"github.com/khanghh/quill/internal/middlewares/reqlog"
	"github.com/khanghh/quill/internal/recovery"
	"github.com/khanghh/quill/internal/render"
	"github.com/khanghh/quill/internal/store"
	"github.com/khanghh/quill/internal/uploads"
	"github.com/khanghh/quill/internal/users"
	"github.com/khanghh/quill/model"
	"github.com/khanghh/quill/params"
	"github.com/rs/xid"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"
)

var (
	app       *cli.App
	gitCommit string
	gitDate   string
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML config file",
		Value: "config.yaml",
	}
	envFileFlag = &cli.StringFlag{
		Name:  "env-file",
		Usage: "Optional .env file loaded before the config",
		Value: ".env",
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Enable debug logging",
	}
)

func init() {
	app = cli.NewApp()
	app.EnableBashCompletion = true
	app.Usage = "quill - blog and account service"
	app.Flags = []cli.Flag{
		configFileFlag,
		envFileFlag,
		debugFlag,
	}
	app.Commands = []*cli.Command{
		{
			Name: "version",
			Action: func(ctx *cli.Context) error {
				fmt.Println(params.VersionWithCommit(gitCommit, gitDate))
				return nil
			},
		},
	}
	app.Action = run
}

func mustInitLogger(debug bool) {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}

func mustInitDatabase(dbConfig config.MySQLConfig) *gorm.DB {
	db, err := gorm.Open(mysql.Open(dbConfig.Dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   dbConfig.TablePrefix,
			SingularTable: true,
		},
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if len(dbConfig.Replicas) > 0 {
		replicas := make([]gorm.Dialector, 0, len(dbConfig.Replicas))
		for _, dsn := range dbConfig.Replicas {
			replicas = append(replicas, mysql.Open(dsn))
		}
		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		})
		if dbConfig.MaxIdleConns > 0 {
			resolver.SetMaxIdleConns(dbConfig.MaxIdleConns)
		}
		if dbConfig.MaxOpenConns > 0 {
			resolver.SetMaxOpenConns(dbConfig.MaxOpenConns)
		}
		if err := db.Use(resolver); err != nil {
			slog.Error("Failed to register read replicas", "error", err)
			os.Exit(1)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Failed to access database pool", "error", err)
		os.Exit(1)
	}
	if dbConfig.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	}
	if dbConfig.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	}
	if dbConfig.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(dbConfig.ConnMaxIdleTime)
	}
	if dbConfig.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)
	}

	if err := model.AutoMigrate(db); err != nil {
		slog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}

	return db
}

func mustInitRedisStorage(redisCfg config.RedisConfig) *redis.Storage {
	if redisCfg.URL == "" {
		return nil
	}
	return redis.New(redis.Config{
		URL:           redisCfg.URL,
		PoolSize:      redisCfg.PoolSize,
		IsClusterMode: redisCfg.ClusterMode,
	})
}

func mustLoadAWSConfig(ctx context.Context, region, accessKeyID, secretAccessKey string) aws.Config {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if accessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		slog.Error("Failed to load AWS config", "error", err)
		os.Exit(1)
	}
	return awsCfg
}

func mustInitMailSender(ctx context.Context, mailCfg config.MailConfig) mail.MailSender {
	switch mailCfg.Backend {
	case "smtp":
		smtpCfg := mailCfg.SMTP
		sender, err := mail.NewSMTPMailSender(mail.SMTPConfig{
			Host:     smtpCfg.Host,
			Port:     smtpCfg.Port,
			Username: smtpCfg.Username,
			Password: smtpCfg.Password,
			TLS:      smtpCfg.TLS,
			CertFile: smtpCfg.CertFile,
			KeyFile:  smtpCfg.KeyFile,
			CAFile:   smtpCfg.CAFile,
		}, mailCfg.From)
		if err != nil {
			slog.Error("Failed to initialize SMTP mail sender", "error", err)
			os.Exit(1)
		}
		return sender
	case "ses":
		awsCfg := mustLoadAWSConfig(ctx, mailCfg.SES.Region, "", "")
		return mail.NewSESMailSender(ses.NewFromConfig(awsCfg), mailCfg.From)
	case "":
		slog.Error("Missing mail sender backend")
	default:
		slog.Error("Unsupported mail sender backend", "backend", mailCfg.Backend)
	}
	os.Exit(1)
	return nil
}

func mustInitImageUploader(ctx context.Context, s3Cfg config.S3Config) *uploads.ImageUploader {
	if s3Cfg.Bucket == "" {
		return nil
	}
	awsCfg := mustLoadAWSConfig(ctx, s3Cfg.Region, s3Cfg.AccessKeyID, s3Cfg.SecretAccessKey)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s3Cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s3Cfg.Endpoint)
		}
		o.UsePathStyle = s3Cfg.UsePathStyle
	})
	return uploads.NewImageUploader(client, s3Cfg.Bucket, s3Cfg.Region, s3Cfg.PublicBaseURL, clock.Real)
}

func mustInitCaptchaVerifier(captchaCfg config.CaptchaConfig) captcha.CaptchaVerifier {
	if captchaCfg.Provider == "turnstile" {
		return captcha.NewTurnstileVerifier(captchaCfg.Turnstile.SecretKey)
	}
	return captcha.NewNullVerifier()
}

func mustInitAuditSink(auditCfg config.AuditConfig, requestLogRepo audit.RequestLogRepository) *audit.AsyncSink {
	var appenders audit.MultiAppender
	for _, backend := range auditCfg.Backends {
		switch backend {
		case "file":
			fileAppender, err := audit.NewFileAppender(auditCfg.FilePath)
			if err != nil {
				slog.Error("Failed to open audit log file", "path", auditCfg.FilePath, "error", err)
				os.Exit(1)
			}
			appenders = append(appenders, fileAppender)
		case "db":
			appenders = append(appenders, audit.NewDBAppender(requestLogRepo))
		default:
			slog.Error("Unsupported audit backend", "backend", backend)
			os.Exit(1)
		}
	}
	var target audit.Appender = appenders
	if len(appenders) == 1 {
		target = appenders[0]
	}
	return audit.NewAsyncSink(target, auditCfg.QueueSize, slog.Default())
}

func mustStartScheduler(cfg *config.Config, requestLogRepo audit.RequestLogRepository) *jobs.Scheduler {
	if !cfg.HasAuditBackend("db") {
		return nil
	}
	scheduler, err := jobs.NewScheduler(slog.Default())
	if err != nil {
		slog.Error("Failed to create scheduler", "error", err)
		os.Exit(1)
	}
	retentionJob := jobs.RequestLogRetentionJob(requestLogRepo, cfg.Audit.Retention, clock.Real, slog.Default())
	if err := scheduler.RegisterCronJob(cfg.Audit.CleanupCron, retentionJob); err != nil {
		slog.Error("Failed to schedule request log retention", "cron", cfg.Audit.CleanupCron, "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	return scheduler
}

func setupAPIRoutes(
	router fiber.Router,
	userService *users.UserService,
	tokenService *auth.TokenService,
	blogService *blogs.BlogService,
	recoveryService *recovery.Service,
	imageUploader *uploads.ImageUploader,
	eventRecorder *audit.EventRecorder,
	captchaVerifier captcha.CaptchaVerifier,
	rateLimiter fiber.Handler) {

	// handlers
	var (
		userHandler     = api.NewUserHandler(userService, tokenService, eventRecorder)
		recoveryHandler = api.NewRecoveryHandler(recoveryService, eventRecorder)
		blogHandler     = api.NewBlogHandler(blogService, userService, slog.Default())
	)

	requireAuth := authn.Bearer(tokenService)
	requireAdmin := authn.AdminOnly(userService)

	// routes
	router.Post("/users/signup", userHandler.PostSignup)
	router.Post("/users/login", userHandler.PostLogin)
	router.Post("/users/logout", requireAuth, userHandler.PostLogout)
	router.Post("/users/forgot-password", rateLimiter, captcha.Middleware(captchaVerifier), recoveryHandler.PostForgotPassword)
	router.Post("/users/reset-password", rateLimiter, recoveryHandler.PostResetPassword)
	router.Post("/users/profile", requireAuth, userHandler.PostUpdateProfile)
	router.Get("/users", requireAuth, requireAdmin, userHandler.GetUsers)

	router.Get("/blogs", requireAuth, blogHandler.GetBlogs)
	router.Get("/blogs/export", requireAuth, blogHandler.GetExportBlogs)
	router.Get("/blogs/:id", requireAuth, blogHandler.GetBlog)
	router.Post("/blogs", requireAuth, blogHandler.PostCreateBlog)
	router.Post("/blogs/:id", requireAuth, blogHandler.PutUpdateBlog)
	router.Put("/blogs/:id", requireAuth, blogHandler.PutUpdateBlog)
	router.Delete("/blogs/:id", requireAuth, blogHandler.DeleteBlog)
	router.Post("/blogs/:id/like", requireAuth, blogHandler.PostToggleLike)

	if imageUploader != nil {
		uploadHandler := api.NewUploadHandler(imageUploader)
		router.Post("/image/upload", requireAuth, uploadHandler.PostUploadImage)
	} else {
		slog.Warn("S3 bucket not configured, image upload disabled")
	}
}

func run(ctx *cli.Context) error {
	if err := godotenv.Load(ctx.String(envFileFlag.Name)); err != nil && ctx.IsSet(envFileFlag.Name) {
		slog.Error("Could not load env file.", "error", err)
		return err
	}

	config, err := config.LoadConfig(ctx.String(configFileFlag.Name))
	if err != nil {
		slog.Error("Could not load config file.", "error", err)
		return err
	}

	mustInitLogger(config.Debug || ctx.IsSet(debugFlag.Name))
	if err := model.InitIDGenerator(config.NodeID); err != nil {
		slog.Error("Invalid node id", "nodeID", config.NodeID, "error", err)
		return err
	}

	renderer, err := render.NewRenderer(config.TemplateDir, map[string]interface{}{
		"siteName": config.SiteName,
		"baseURL":  config.BaseURL,
	})
	if err != nil {
		slog.Error("Failed to load templates", "error", err)
		return err
	}
	mailSender := mustInitMailSender(ctx.Context, config.Mail)
	db := mustInitDatabase(config.MySQL)
	redisStorage := mustInitRedisStorage(config.Redis)

	var (
		cacheStorage    store.Storage
		limiterStorage  fiber.Storage
		readinessChecks = []common.ReadinessCheck{common.PingDatabase(db)}
	)
	if redisStorage != nil {
		cacheStorage = store.NewRedisStorage(redisStorage.Conn())
		readinessChecks = append(readinessChecks, common.PingRedis(redisStorage.Conn()))
	} else {
		slog.Warn("Redis not configured, revoked tokens are kept in memory")
		cacheStorage = store.NewMemoryStorage(memory.New())
	}
	if config.RateLimit.Storage == "redis" && redisStorage != nil {
		limiterStorage = redisStorage
	} else {
		limiterStorage = memory.New()
	}

	// repositories
	var (
		userRepo       = users.NewUserRepository(db)
		blogRepo       = blogs.NewBlogRepository(db)
		accountStore   = recovery.NewAccountStore(db)
		requestLogRepo = audit.NewRequestLogRepository(db)
		auditEventRepo = audit.NewAuditEventRepository(db)
	)

	// services
	var (
		userService     = users.NewUserService(userRepo, config.Admins)
		blogService     = blogs.NewBlogService(blogRepo)
		tokenService    = auth.NewTokenService(config.JWTSecret, params.AccessTokenExpiration, cacheStorage, params.RevokedTokenKeyPrefix, clock.Real)
		recoveryService = recovery.NewService(config.MasterKey, accountStore, mail.NewOTPMailer(mailSender, renderer), recovery.WithLogger(slog.Default()))
		eventRecorder   = audit.NewEventRecorder(auditEventRepo, slog.Default())
		imageUploader   = mustInitImageUploader(ctx.Context, config.S3)
	)

	// middlewares and dependencies
	var (
		auditSink       = mustInitAuditSink(config.Audit, requestLogRepo)
		scheduler       = mustStartScheduler(config, requestLogRepo)
		captchaVerifier = mustInitCaptchaVerifier(config.Captcha)
		rateLimiter     = limiter.New(limiter.Config{
			Max:        config.RateLimit.Max,
			Expiration: config.RateLimit.Expiration,
			Storage:    limiterStorage,
			LimitReached: func(c *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests, try again later")
			},
		})
	)

	router := fiber.New(fiber.Config{
		Prefork:       false,
		CaseSensitive: true,
		BodyLimit:     params.ServerBodyLimit,
		IdleTimeout:   params.ServerIdleTimeout,
		ReadTimeout:   params.ServerReadTimeout,
		WriteTimeout:  params.ServerWriteTimeout,
		ErrorHandler:  middlewares.ErrorHandler,
	})

	router.Use(recover.New())
	router.Use(requestid.New(requestid.Config{
		Generator: func() string { return xid.New().String() },
	}))
	router.Use(logger.New())
	router.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(config.AllowOrigins, ", "),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + captcha.HeaderCaptchaToken,
	}))
	router.Use(reqlog.New(reqlog.Config{
		Sink:          auditSink,
		MaxBodySize:   config.Audit.MaxBodySize,
		RedactHeaders: config.Audit.RedactHeaders,
		AccountID:     authn.AccountID,
		Logger:        slog.Default(),
	}))

	setupAPIRoutes(
		router.Group("/api"),
		userService,
		tokenService,
		blogService,
		recoveryService,
		imageUploader,
		eventRecorder,
		captchaVerifier,
		rateLimiter,
	)

	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthCheckCtx, term := context.WithCancel(sigCtx)
	healthCheckDone := make(chan struct{})
	go common.StartHealthCheckServer(healthCheckCtx, healthCheckDone, params.HealthCheckServerAddr, readinessChecks...)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- router.Listen(config.ListenAddr)
	}()

	select {
	case <-sigCtx.Done():
		slog.Info("Shutting down")
		err = router.Shutdown()
	case err = <-serverErr:
	}

	term()
	<-healthCheckDone
	if scheduler != nil {
		if shutdownErr := scheduler.Shutdown(); shutdownErr != nil {
			slog.Error("Scheduler shutdown failed", "error", shutdownErr)
		}
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), params.AuditCloseTimeout)
	defer cancel()
	if closeErr := auditSink.Close(closeCtx); closeErr != nil {
		slog.Error("Audit sink did not drain", "dropped", auditSink.Dropped(), "error", closeErr)
	}
	if redisStorage != nil {
		_ = redisStorage.Close()
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
