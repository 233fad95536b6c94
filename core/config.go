package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	Config struct {
		Env             string // DEV (local; default), TEST, QA, PROD
		Build           string
		Debug           bool
		TestMode        bool
		AppName         string
		FrontendBaseURL string
		RollbarToken    string
		SendgridApiKey  string
		ImportMaxRows   int

		// JWTSecret is the HS256 secret shared with the identity provider.
		JWTSecret          string
		JWTExpirationDelta time.Duration

		defaultFromEmail string

		Server struct {
			Host            string
			Address         string
			DebugHost       string
			ShutdownTimeout time.Duration
			ReadTimeout     time.Duration
			WriteTimeout    time.Duration
			AllowedOrigins  []string
		}

		Database DatabaseConfig

		Log struct {
			Level      string
			Format     string
			FilePath   string
			MaxSize    int // megabytes
			MaxBackups int
			MaxAge     int // days
			Compress   bool
		}
	}
)

func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
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

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v, env)
	v.AutomaticEnv()

	conf := &Config{
		Env:                env,
		Build:              v.GetString("build"),
		Debug:              v.GetBool("debug"),
		TestMode:           v.GetBool("testMode"),
		AppName:            v.GetString("appName"),
		FrontendBaseURL:    v.GetString("frontendBaseURL"),
		RollbarToken:       v.GetString("rollbarToken"),
		SendgridApiKey:     v.GetString("sendgridApiKey"),
		ImportMaxRows:      v.GetInt("importMaxRows"),
		JWTSecret:          v.GetString("jwtSecret"),
		JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
		defaultFromEmail:   v.GetString("defaultFromEmail"),
	}

	conf.Server.Host = v.GetString("server.host")
	conf.Server.Address = v.GetString("server.address")
	conf.Server.DebugHost = v.GetString("server.debugHost")
	conf.Server.ShutdownTimeout = v.GetDuration("server.shutdownTimeout")
	conf.Server.ReadTimeout = v.GetDuration("server.readTimeout")
	conf.Server.WriteTimeout = v.GetDuration("server.writeTimeout")
	conf.Server.AllowedOrigins = v.GetStringSlice("server.allowedOrigins")

	conf.Database.Engine = v.GetString("database.engine")
	conf.Database.Host = v.GetString("database.host")
	conf.Database.Port = v.GetString("database.port")
	conf.Database.Name = v.GetString("database.name")
	conf.Database.User = v.GetString("database.user")
	conf.Database.Password = v.GetString("database.password")
	conf.Database.AdminUser = v.GetString("database.adminUser")
	conf.Database.AdminPassword = v.GetString("database.adminPassword")
	conf.Database.DisableTLS = v.GetBool("database.disableTLS")

	conf.Log.Level = v.GetString("log.level")
	conf.Log.Format = v.GetString("log.format")
	conf.Log.FilePath = v.GetString("log.filePath")
	conf.Log.MaxSize = v.GetInt("log.maxSize")
	conf.Log.MaxBackups = v.GetInt("log.maxBackups")
	conf.Log.MaxAge = v.GetInt("log.maxAge")
	conf.Log.Compress = v.GetBool("log.compress")

	return conf
}

func setDefaults(v *viper.Viper, env string) {
	v.SetDefault("build", "develop")
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "Sekolah")
	v.SetDefault("frontendBaseURL", "http://localhost:5173")
	v.SetDefault("defaultFromEmail", "Sekolah <noreply@localhost>")
	v.SetDefault("importMaxRows", 500)
	v.SetDefault("jwtSecret", "")
	v.SetDefault("jwtExpirationDelta", 24*time.Hour)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 5*time.Second)
	v.SetDefault("server.allowedOrigins", []string{"*"})

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "sekolah")
	v.SetDefault("database.user", "sekolah")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.filePath", "")
	v.SetDefault("log.maxSize", 100)
	v.SetDefault("log.maxBackups", 3)
	v.SetDefault("log.maxAge", 28)
	v.SetDefault("log.compress", false)
}

func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
	}
	return *addr
}

// SetDefaultFromEmail is used by tests which build a Config by hand.
func (conf *Config) SetDefaultFromEmail(email string) {
	conf.defaultFromEmail = email
}

func (dbc DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%s", dbc.Host, dbc.Port)
}
