package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env                       string
	Build                     string
	AppName                   string
	Debug                     bool
	TestMode                  bool
	SecretKey                 string
	RollbarToken              string
	SendgridApiKey            string
	PasswordResetTimeoutDelta time.Duration
	defaultFromEmail          string

	Server struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		DisableReqLogs            bool
	}

	Database struct {
		Engine        string
		User          string
		Password      string
		Host          string
		Port          string
		Name          string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	Uploads struct {
		Root              string
		MaxSize           string
		AllowedExtensions []string
	}

	AI struct {
		GoogleAPIKey string
		Model        string
		Timeout      time.Duration
	}
}

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	return *addr
}

func (c *Config) DBAddress() string {
	return net.JoinHostPort(c.Database.Host, c.Database.Port)
}

// UsesMemoryDB reports whether the in-memory repositories should back the app.
func (c *Config) UsesMemoryDB() bool {
	return c.Database.Engine == "memory"
}

// NewConfig loads the configuration for the environment named by $ENV (DEV by default).
// Values come from defaults, then config/.env.<env> if present, then $<ENV>_* variables.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", true)
	v.SetDefault("test_mode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("app_name", "Masomo")
	v.SetDefault("secret_key", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("default_from_email", "Masomo <noreply@localhost>")
	v.SetDefault("rollbar_token", "")
	v.SetDefault("sendgrid_api_key", "")
	v.SetDefault("password_reset_timeout_delta", 3*24*time.Hour)

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debug_host", ":4000")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.jwt_expiration_delta", 7*24*time.Hour)
	v.SetDefault("server.jwt_refresh_expiration_delta", 4*time.Hour)
	v.SetDefault("server.disable_req_logs", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.user", "masomo")
	v.SetDefault("database.password", "masomo")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "masomo")
	v.SetDefault("database.admin_user", "postgres")
	v.SetDefault("database.admin_password", "postgres")
	v.SetDefault("database.disable_tls", true)

	v.SetDefault("uploads.root", "uploads")
	v.SetDefault("uploads.max_size", "25M")
	v.SetDefault("uploads.allowed_extensions", "txt,pdf,mp3,mp4")

	v.SetDefault("ai.google_api_key", "")
	v.SetDefault("ai.model", "gemma-3-27b-it")
	v.SetDefault("ai.timeout", 60*time.Second)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("test_mode", true)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := &Config{
		Env:                       env,
		Build:                     v.GetString("build"),
		AppName:                   v.GetString("app_name"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("test_mode"),
		SecretKey:                 v.GetString("secret_key"),
		RollbarToken:              v.GetString("rollbar_token"),
		SendgridApiKey:            v.GetString("sendgrid_api_key"),
		PasswordResetTimeoutDelta: v.GetDuration("password_reset_timeout_delta"),
		defaultFromEmail:          v.GetString("default_from_email"),
	}

	conf.Server.Host = v.GetString("server.host")
	conf.Server.DebugHost = v.GetString("server.debug_host")
	conf.Server.ShutdownTimeout = v.GetDuration("server.shutdown_timeout")
	conf.Server.JWTExpirationDelta = v.GetDuration("server.jwt_expiration_delta")
	conf.Server.JWTRefreshExpirationDelta = v.GetDuration("server.jwt_refresh_expiration_delta")
	conf.Server.DisableReqLogs = v.GetBool("server.disable_req_logs")

	conf.Database.Engine = v.GetString("database.engine")
	conf.Database.User = v.GetString("database.user")
	conf.Database.Password = v.GetString("database.password")
	conf.Database.Host = v.GetString("database.host")
	conf.Database.Port = v.GetString("database.port")
	conf.Database.Name = v.GetString("database.name")
	conf.Database.AdminUser = v.GetString("database.admin_user")
	conf.Database.AdminPassword = v.GetString("database.admin_password")
	conf.Database.DisableTLS = v.GetBool("database.disable_tls")

	conf.Uploads.Root = v.GetString("uploads.root")
	conf.Uploads.MaxSize = v.GetString("uploads.max_size")
	conf.Uploads.AllowedExtensions = splitList(v.GetString("uploads.allowed_extensions"))

	conf.AI.GoogleAPIKey = v.GetString("ai.google_api_key")
	if conf.AI.GoogleAPIKey == "" {
		conf.AI.GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")
	}
	conf.AI.Model = v.GetString("ai.model")
	conf.AI.Timeout = v.GetDuration("ai.timeout")

	return conf
}

// NewTestConfig returns a DEV configuration suitable for tests, without reading the environment.
func NewTestConfig() *Config {
	conf := &Config{
		Env:                       "TEST",
		Build:                     "test",
		AppName:                   "Masomo",
		Debug:                     true,
		TestMode:                  true,
		SecretKey:                 "test-secret",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		defaultFromEmail:          "Masomo <noreply@localhost>",
	}
	conf.Server.ShutdownTimeout = time.Second
	conf.Server.JWTExpirationDelta = time.Hour
	conf.Server.JWTRefreshExpirationDelta = 4 * time.Hour
	conf.Server.DisableReqLogs = true
	conf.Database.Engine = "memory"
	conf.Uploads.Root = "uploads"
	conf.Uploads.MaxSize = "25M"
	conf.Uploads.AllowedExtensions = []string{"txt", "pdf", "mp3", "mp4"}
	conf.AI.Model = "gemma-3-27b-it"
	conf.AI.Timeout = 5 * time.Second
	return conf
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = CleanString(item, true /* lower */); item != "" {
			out = append(out, item)
		}
	}
	return out
}
