package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/nickyhof/StrictDB"
	"github.com/nickyhof/StrictDB/core"
	"github.com/nickyhof/StrictDB/db"
	"github.com/nickyhof/StrictDB/internal/logging"
	"github.com/nickyhof/StrictDB/ps"
)

// Version is set at build time via -ldflags
var Version = "dev"

// CLI holds the server flags. Every flag can also be set from the environment.
var CLI struct {
	Port    int    `help:"TCP port to listen on." default:"3306" env:"STRICTDB_PORT"`
	BaseDir string `help:"Base directory for persistence (memory if empty)." type:"path" env:"STRICTDB_BASE_DIR"`
	GitURL  string `name:"git-url" help:"Git URL to clone on first start." env:"STRICTDB_GIT_URL"`

	HighPrecision bool `help:"Keep extended precision for overflowing integer arithmetic." default:"true" negatable:"" env:"STRICTDB_HIGH_PRECISION"`

	JWTSecret string `name:"jwt-secret" help:"HMAC secret; enables AUTH when set." env:"STRICTDB_JWT_SECRET"`
	Issuer    string `help:"Required JWT issuer." env:"STRICTDB_JWT_ISSUER"`
	Audience  string `help:"Required JWT audience." env:"STRICTDB_JWT_AUDIENCE"`

	TLSCert string `name:"tls-cert" help:"TLS certificate file." type:"path" env:"STRICTDB_TLS_CERT"`
	TLSKey  string `name:"tls-key" help:"TLS private key file." type:"path" env:"STRICTDB_TLS_KEY"`

	S3AccessKey string `name:"s3-access-key" help:"Access key for COPY to and from s3:// URLs." env:"STRICTDB_S3_ACCESS_KEY"`
	S3SecretKey string `name:"s3-secret-key" help:"Secret key for COPY to and from s3:// URLs." env:"STRICTDB_S3_SECRET_KEY"`
	S3Region    string `name:"s3-region" help:"S3 region." env:"STRICTDB_S3_REGION"`
	S3Endpoint  string `name:"s3-endpoint" help:"Custom S3-compatible endpoint." env:"STRICTDB_S3_ENDPOINT"`

	LogLevel  string `help:"Log level." default:"info" enum:"debug,info,warn,error" env:"STRICTDB_LOG_LEVEL"`
	LogFormat string `help:"Log format." default:"text" enum:"text,json" env:"STRICTDB_LOG_FORMAT"`

	Version kong.VersionFlag `help:"Show version and exit."`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("strictdb-server"),
		kong.Description("StrictDB SQL server: a git-backed SQL engine with STRICT tables"),
		kong.UsageOnError(),
		kong.Vars{"version": "StrictDB SQL Server v" + Version},
	)

	if (CLI.TLSCert == "") != (CLI.TLSKey == "") {
		log.Fatal("--tls-cert and --tls-key must be given together")
	}

	logger, err := logging.New(CLI.LogLevel, CLI.LogFormat, os.Stderr)
	if err != nil {
		log.Fatalf("Invalid logging configuration: %v", err)
	}

	persistence, err := openPersistence(CLI.BaseDir, CLI.GitURL)
	if err != nil {
		log.Fatalf("Failed to initialize persistence: %v", err)
	}

	opts := []db.Option{
		db.WithLogger(logger),
		db.WithHighPrecision(CLI.HighPrecision),
	}
	if CLI.S3AccessKey != "" || CLI.S3Region != "" || CLI.S3Endpoint != "" {
		opts = append(opts, db.WithS3(db.S3Config{
			AccessKey: CLI.S3AccessKey,
			SecretKey: CLI.S3SecretKey,
			Region:    CLI.S3Region,
			Endpoint:  CLI.S3Endpoint,
		}))
	}
	instance := StrictDB.Open(persistence, opts...)

	var server *Server
	if CLI.JWTSecret != "" {
		server = NewServerWithAuth(instance, &AuthConfig{
			Enabled:   true,
			JWTSecret: CLI.JWTSecret,
			Issuer:    CLI.Issuer,
			Audience:  CLI.Audience,
		})
	} else {
		server = NewServer(instance, core.Identity{
			Name:  "StrictDB Server",
			Email: "server@strictdb.local",
		})
	}
	server.SetLogger(logger)

	addr := fmt.Sprintf(":%d", CLI.Port)
	if CLI.TLSCert != "" {
		err = server.StartTLS(addr, CLI.TLSCert, CLI.TLSKey)
	} else {
		err = server.Start(addr)
	}
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Printf("║   StrictDB SQL Server v%-14s  ║\n", Version)
	fmt.Println("║   Git-backed SQL, STRICT tables       ║")
	fmt.Println("╚═══════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Listening on port %d", CLI.Port)
	if server.TLSEnabled() {
		fmt.Print(" (TLS)")
	}
	fmt.Println()
	if CLI.JWTSecret != "" {
		fmt.Println("Authentication required: send AUTH <jwt> first")
	}
	fmt.Println("Send SQL queries (one per line), 'quit' to disconnect")
	fmt.Println()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	server.Stop()
}

func openPersistence(baseDir, gitURL string) (*ps.Persistence, error) {
	if baseDir == "" {
		log.Println("Using memory persistence")
		return ps.NewMemoryPersistence()
	}

	log.Printf("Using file persistence: %s", baseDir)
	var gitURLPtr *string
	if gitURL != "" {
		gitURLPtr = &gitURL
	}
	return ps.NewFilePersistence(baseDir, gitURLPtr)
}
