package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"media-inspector/internal/cache"
	"media-inspector/internal/logging"
	"media-inspector/internal/workers"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// DatabaseFile is the SQLite file created inside DATABASE_DIR.
const DatabaseFile = "media-inspector.db"

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	MediaDir       string
	CacheDir       string
	DatabaseDir    string
	StaticDir      string
	Port           string
	MetricsPort    string
	MetricsEnabled bool

	FFprobePath  string
	ProbeTimeout time.Duration
	ProbeWorkers int
	ScanMaxDepth int

	CacheBackend        string
	ValidateFingerprint bool
	RedisAddr           string
	RedisPassword       string
	RedisDB             int

	NATSURL     string
	NATSSubject string

	CodecConfigFile string

	LogStaticFiles  bool
	LogHealthChecks bool

	// Derived paths
	DatabasePath string
}

// Load reads configuration from environment variables without logging it.
// Invalid values fall back to defaults with a warning.
func Load() (*Config, error) {
	cfg := &Config{
		MediaDir:            getEnv("MEDIA_DIR", "/media"),
		CacheDir:            getEnv("CACHE_DIR", "/cache"),
		DatabaseDir:         getEnv("DATABASE_DIR", "/database"),
		StaticDir:           getEnv("STATIC_DIR", "./static"),
		Port:                getEnv("PORT", "8080"),
		MetricsPort:         getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:      getEnvBool("METRICS_ENABLED", true),
		FFprobePath:         getEnv("FFPROBE_PATH", "ffprobe"),
		ProbeTimeout:        getEnvDuration("PROBE_TIMEOUT", 30*time.Second),
		ProbeWorkers:        workers.ForProbes(),
		ScanMaxDepth:        getEnvInt("SCAN_MAX_DEPTH", 10),
		CacheBackend:        strings.ToLower(getEnv("CACHE_BACKEND", cache.BackendFile)),
		ValidateFingerprint: getEnvBool("CACHE_VALIDATE_FINGERPRINT", false),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		NATSURL:             getEnv("NATS_URL", ""),
		NATSSubject:         getEnv("NATS_SUBJECT", "media-inspector.analysis.completed"),
		CodecConfigFile:     getEnv("CODEC_CONFIG_FILE", ""),
		LogStaticFiles:      getEnvBool("LOG_STATIC_FILES", false),
		LogHealthChecks:     getEnvBool("LOG_HEALTH_CHECKS", true),
	}

	switch cfg.CacheBackend {
	case cache.BackendFile, cache.BackendSQLite, cache.BackendRedis:
	default:
		return nil, fmt.Errorf("unknown CACHE_BACKEND %q (want file, sqlite or redis)", cfg.CacheBackend)
	}

	var err error
	if cfg.MediaDir, err = filepath.Abs(cfg.MediaDir); err != nil {
		return nil, fmt.Errorf("failed to resolve media directory path: %w", err)
	}
	if cfg.CacheDir, err = filepath.Abs(cfg.CacheDir); err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory path: %w", err)
	}
	if cfg.DatabaseDir, err = filepath.Abs(cfg.DatabaseDir); err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	cfg.DatabasePath = filepath.Join(cfg.DatabaseDir, DatabaseFile)

	return cfg, nil
}

// LoadConfig loads configuration, logs it and prepares the directories the
// server writes to.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	config, err := Load()
	if err != nil {
		return nil, err
	}

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  MEDIA_DIR:                   %s", config.MediaDir)
	logging.Info("  CACHE_DIR:                   %s", config.CacheDir)
	logging.Info("  DATABASE_DIR:                %s", config.DatabaseDir)
	logging.Info("  STATIC_DIR:                  %s", config.StaticDir)
	logging.Info("  PORT:                        %s", config.Port)
	logging.Info("  METRICS_PORT:                %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:             %v", config.MetricsEnabled)
	logging.Info("  FFPROBE_PATH:                %s", config.FFprobePath)
	logging.Info("  PROBE_TIMEOUT:               %s", config.ProbeTimeout)
	logging.Info("  PROBE_WORKERS:               %d", config.ProbeWorkers)
	logging.Info("  SCAN_MAX_DEPTH:              %d", config.ScanMaxDepth)
	logging.Info("  CACHE_BACKEND:               %s", config.CacheBackend)
	logging.Info("  CACHE_VALIDATE_FINGERPRINT:  %v", config.ValidateFingerprint)
	if config.CacheBackend == cache.BackendRedis {
		logging.Info("  REDIS_ADDR:                  %s", config.RedisAddr)
		logging.Info("  REDIS_DB:                    %d", config.RedisDB)
	}
	if config.NATSURL != "" {
		logging.Info("  NATS_URL:                    %s", config.NATSURL)
		logging.Info("  NATS_SUBJECT:                %s", config.NATSSubject)
	}
	if config.CodecConfigFile != "" {
		logging.Info("  CODEC_CONFIG_FILE:           %s", config.CodecConfigFile)
	}
	logging.Info("  LOG_STATIC_FILES:            %v", config.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:           %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:                   %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	// Media is mounted read-only in most deployments, so only check it.
	if err := checkMediaDirectory(config.MediaDir); err != nil {
		logging.Warn("  Media directory issue: %v", err)
	}

	if err := ensureDirectory(config.DatabaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}
	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(config.DatabaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	if config.CacheBackend == cache.BackendFile {
		if err := ensureDirectory(config.CacheDir, "cache"); err != nil {
			return nil, fmt.Errorf("cache directory error: %w", err)
		}
		if err := testWriteAccess(config.CacheDir); err != nil {
			return nil, fmt.Errorf("cache directory is not writable (required for the file cache backend): %w", err)
		}
		logging.Info("  [OK] Cache directory is writable")
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:       ENABLED (required)")
	logging.Info("    Metrics:        %s", enabledString(config.MetricsEnabled))
	logging.Info("    Notifications:  %s", enabledString(config.NATSURL != ""))

	return config, nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogProbeInit checks the ffprobe binary and logs the probe settings. A
// missing binary is not fatal: every file will be reported as skipped.
func LogProbeInit(config *Config) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("PROBE INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	if err := CheckFFprobe(config.FFprobePath); err != nil {
		logging.Warn("  ffprobe check failed: %v", err)
		logging.Warn("  Analysis will skip every file until ffprobe is installed")
	} else {
		logging.Info("  [OK] ffprobe is available")
	}
	logging.Info("  Timeout per file: %v", config.ProbeTimeout)
	logging.Info("  Workers:          %d", config.ProbeWorkers)
}

// LogCacheInit logs the selected analysis cache backend.
func LogCacheInit(backend, location string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("ANALYSIS CACHE")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Backend:  %s", backend)
	logging.Info("  Location: %s", location)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			// Prefix-only routes such as the static file server
			pathTemplate, err = route.GetPathRegexp()
			if err != nil {
				return nil
			}
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logStaticFiles {
		logging.Info("    Static file logging: ON")
	} else {
		logging.Info("    Static file logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// CheckFFprobe verifies that binary resolves and runs.
func CheckFFprobe(binary string) error {
	path, err := exec.LookPath(binary)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", binary)
	}
	logging.Debug("  ffprobe path: %s", path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get ffprobe version: %w", err)
	}

	if first, _, _ := strings.Cut(string(output), "\n"); first != "" {
		logging.Debug("  ffprobe version: %s", strings.TrimSpace(first))
	}

	return nil
}

func printBanner() {
	banner := `
------------------------------------------------------------
    __  ___         ___         ____                           __
   /  |/  /__  ____/ (_)___ _  /  _/___  _________  ___  _____/ /_
  / /|_/ / _ \/ __  / / __ '/  / // __ \/ ___/ __ \/ _ \/ ___/ __/
 / /  / /  __/ /_/ / / /_/ / _/ // / / (__  ) /_/ /  __/ /__/ /_
/_/  /_/\___/\__,_/_/\__,_/ /___/_/ /_/____/ .___/\___/\___/\__/
                                          /_/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func checkMediaDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}

	if logging.IsDebugEnabled() {
		if entries, err := os.ReadDir(path); err == nil {
			logging.Debug("  Media directory has %d top-level entries", len(entries))
		}
	}
	logging.Info("  [OK] Media directory exists")
	return nil
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %s", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
