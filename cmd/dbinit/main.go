package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/term"

	"github.com/tenantbackend/dbinit/internal/bootconfig"
	"github.com/tenantbackend/dbinit/internal/bootstrap"
	"github.com/tenantbackend/dbinit/internal/logger"
	"github.com/tenantbackend/dbinit/internal/verify"
	"github.com/tenantbackend/dbinit/pkg/database"
)

var (
	Version   = "dev"     // Default version for development
	GitCommit = "unknown" // Git commit hash
	BuildTime = "unknown" // Build timestamp
)

var (
	configFile  = flag.String("config", "config.yaml", "Configuration file path")
	headless    = flag.Bool("headless", false, "Never prompt for credentials (for Docker/CI environments)")
	verifyFlag  = flag.Bool("verify", false, "Check the catalog state without applying anything")
	timeout     = flag.Duration("timeout", 5*time.Minute, "Overall run timeout")
	versionFlag = flag.Bool("version", false, "Show version information and exit")
)

func printVersionInfo() {
	fmt.Printf("dbinit %s - tenant database bootstrap\n", Version)
	fmt.Printf("Built: %s, from commit: %s\n", BuildTime, GitCommit)
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func main() {
	flag.Parse()

	if *versionFlag {
		printVersionInfo()
		os.Exit(0)
	}

	log := logger.New("dbinit", Version, "info")

	cfg, err := bootconfig.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Recreate the logger with the configured level
	log = logger.New("dbinit", Version, cfg.Logging.Level)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	dbCfg, err := adminConfig(cfg)
	if err != nil {
		log.Errorf("Failed to resolve administrative credentials: %v", err)
		os.Exit(1)
	}

	if *verifyFlag {
		pool, err := database.NewPool(ctx, dbCfg)
		if err != nil {
			log.Errorf("Failed to establish database connectivity: %v", err)
			os.Exit(1)
		}
		code := runVerify(ctx, log, pool.Pool(), cfg.Database.Name)
		pool.Close()
		os.Exit(code)
	}

	conn, err := connect(ctx, log, dbCfg)
	if err != nil {
		log.Errorf("Failed to establish database connectivity: %v", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	executor := bootstrap.New(conn, log, cfg.Database.Name, cfg.Database.AdminRole)
	if err := executor.Run(ctx); err != nil {
		log.Errorf("Bootstrap failed: %v", err)
		os.Exit(1)
	}

	// Post-run sanity check; the run already succeeded, so a verification
	// problem here only warns.
	if report, err := verify.Run(ctx, conn, cfg.Database.Name); err != nil {
		log.Warnf("Post-run verification could not complete: %v", err)
	} else if !report.OK() {
		for _, check := range report.Failures() {
			log.Warnf("Post-run verification: %s: %s", check.Name, check.Detail)
		}
	} else {
		log.Info("Catalog state verified")
	}
}

func runVerify(ctx context.Context, log logger.LoggerInterface, conn bootstrap.Querier, databaseName string) int {
	report, err := verify.Run(ctx, conn, databaseName)
	if err != nil {
		log.Errorf("Verification failed: %v", err)
		return 1
	}

	for _, check := range report.Checks {
		if check.OK {
			log.Infof("%s: %s", check.Name, check.Detail)
		} else {
			log.Errorf("%s: %s", check.Name, check.Detail)
		}
	}

	if !report.OK() {
		log.Error("Catalog state does not match the desired bootstrap state")
		return 1
	}

	log.Info("Catalog state matches the desired bootstrap state")
	return 0
}

// adminConfig maps the loaded configuration onto connection settings and
// resolves the administrative password. A missing password is fatal only in
// headless mode; interactive runs can still prompt for one.
func adminConfig(cfg *bootconfig.Config) (database.Config, error) {
	dbCfg := database.Config{
		User:           cfg.Database.User,
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		Database:       cfg.Database.Name,
		SSLMode:        cfg.Database.SSLMode,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	}

	if password, err := database.AdminPassword(); err == nil {
		dbCfg.Password = password
	} else if *headless {
		return database.Config{}, err
	}

	return dbCfg, nil
}

// connect establishes the administrative connection. Configured credentials
// are tried first; when they fail and we are attached to a terminal, the
// operator is prompted once for replacements. Headless mode fails fast with
// a hint at the environment variables instead.
func connect(ctx context.Context, log logger.LoggerInterface, dbCfg database.Config) (*pgx.Conn, error) {
	conn, err := database.Connect(ctx, dbCfg)
	if err == nil {
		log.Info("Connected to database with configured credentials")
		return conn, nil
	}

	if *headless {
		return nil, fmt.Errorf("cannot connect in headless mode: %w (configure the connection via %s, %s, %s, %s and %s)",
			err, bootconfig.EnvPostgresHost, bootconfig.EnvPostgresPort,
			bootconfig.EnvPostgresUser, database.EnvAdminPassword, bootconfig.EnvPostgresDatabase)
	}

	if !term.IsTerminal(int(syscall.Stdin)) {
		return nil, err
	}

	log.Warnf("Could not connect with configured credentials (%v), prompting for custom credentials...", err)

	promptCredentials(&dbCfg)

	conn, err = database.Connect(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect with provided credentials: %w", err)
	}

	log.Info("Connected to database with provided credentials")

	if err := database.StoreAdminPassword(dbCfg.Password); err != nil {
		log.Warnf("Could not store administrative password in keyring: %v", err)
	} else {
		log.Info("Stored administrative password in keyring for later runs")
	}

	return conn, nil
}

func promptCredentials(dbCfg *database.Config) {
	fmt.Printf("Enter PostgreSQL username [%s]: ", dbCfg.User)
	if username := readInput(); username != "" {
		dbCfg.User = username
	}

	fmt.Print("Enter PostgreSQL password: ")
	if password, err := readPassword(); err == nil {
		dbCfg.Password = password
	}

	fmt.Printf("Enter PostgreSQL host [%s]: ", dbCfg.Host)
	if host := readInput(); host != "" {
		dbCfg.Host = host
	}

	fmt.Printf("Enter PostgreSQL port [%d]: ", dbCfg.Port)
	if portStr := readInput(); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			dbCfg.Port = port
		}
	}
}

func readInput() string {
	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}

// readPassword reads a password from stdin with masking
func readPassword() (string, error) {
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // Print newline after password input
	return string(bytePassword), nil
}
