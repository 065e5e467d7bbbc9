package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	bundledJDK = "temurin-17.0.7"
)

type AppConfig struct {
	ProjectRoot string
	BackendDir  string // working directory of the external tool
	JavaBin     string
	JDKPath     string // passed to the tool as --jdk
	MutantsDir  string // scratch directory the tool writes into
	OutputRoot  string // parent of every generated_tests_* folder
	JarPath     string // default for --jar_path
	SeedsDir    string // default for --seeds_dir

	Seeds  SeedConfig
	Runner RunnerConfig

	LogLevel    string
	ServiceName string
	APIAddr     string

	DatabaseURL        string
	RedisUrl           string
	RedisSentinelHosts string
	RedisMasterName    string
	RabbitMQURL        string
	OTLPEndpoint       string
}

type SeedConfig struct {
	Prefix string `yaml:"prefix"`
	Suffix string `yaml:"suffix"`
}

type RunnerConfig struct {
	RetryDelay        time.Duration
	InvocationTimeout time.Duration
	DefaultMaxRetries int
	DefaultAPIIters   int
	DefaultAPICount   int
}

// Profile is the optional YAML file named by BATCHGEN_PROFILE. Every field
// is optional; environment variables still win.
type Profile struct {
	ProjectRoot       string     `yaml:"project_root"`
	BackendDir        string     `yaml:"backend_dir"`
	JavaBin           string     `yaml:"java_bin"`
	JDKPath           string     `yaml:"jdk_path"`
	MutantsDir        string     `yaml:"mutants_dir"`
	OutputRoot        string     `yaml:"output_root"`
	JarPath           string     `yaml:"jar_path"`
	SeedsDir          string     `yaml:"seeds_dir"`
	Seeds             SeedConfig `yaml:"seeds"`
	RetryDelay        string     `yaml:"retry_delay"`
	InvocationTimeout string     `yaml:"invocation_timeout"`
	MaxRetries        int        `yaml:"max_retries"`
	LogLevel          string     `yaml:"log_level"`
	APIAddr           string     `yaml:"api_addr"`
}

func LoadConfig() (*AppConfig, error) {
	// use a temporary logger for now
	logger := zap.NewExample().Named("config")

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found")
	}

	profile := &Profile{}
	if path := os.Getenv("BATCHGEN_PROFILE"); path != "" {
		p, err := LoadProfile(path)
		if err != nil {
			return nil, err
		}
		profile = p
	}

	root := firstNonEmpty(os.Getenv("PROJECT_ROOT"), profile.ProjectRoot, ".")
	backend := firstNonEmpty(os.Getenv("BACKEND_DIR"), profile.BackendDir, filepath.Join(root, "backend"))
	outputRoot := firstNonEmpty(os.Getenv("OUTPUT_ROOT"), profile.OutputRoot, filepath.Join(backend, "batch_gen_seed"))

	config := &AppConfig{
		ProjectRoot: root,
		BackendDir:  backend,
		JavaBin:     firstNonEmpty(os.Getenv("JAVA_BIN"), profile.JavaBin, defaultJavaBin(backend)),
		JDKPath:     firstNonEmpty(os.Getenv("JDK_PATH"), profile.JDKPath, filepath.Join(backend, bundledJDK, "bin")),
		MutantsDir:  firstNonEmpty(os.Getenv("MUTANTS_DIR"), profile.MutantsDir, filepath.Join(backend, "mutants")),
		OutputRoot:  outputRoot,
		JarPath:     firstNonEmpty(os.Getenv("DEFAULT_JAR_PATH"), profile.JarPath, filepath.Join(outputRoot, "InterFuzz.jar")),
		SeedsDir:    firstNonEmpty(os.Getenv("SEEDS_DIR"), profile.SeedsDir, filepath.Join(backend, "jf-seeds", "tests")),
		Seeds: SeedConfig{
			Prefix: firstNonEmpty(os.Getenv("SEED_PREFIX"), profile.Seeds.Prefix, "Test"),
			Suffix: firstNonEmpty(os.Getenv("SEED_SUFFIX"), profile.Seeds.Suffix, ".java"),
		},
		Runner: RunnerConfig{
			RetryDelay:        parseDuration(firstNonEmpty(os.Getenv("RETRY_DELAY"), profile.RetryDelay), 2*time.Second),
			InvocationTimeout: parseDuration(firstNonEmpty(os.Getenv("INVOCATION_TIMEOUT"), profile.InvocationTimeout), 0),
			DefaultMaxRetries: parseInt(os.Getenv("MAX_RETRIES"), orInt(profile.MaxRetries, 3)),
			DefaultAPIIters:   parseInt(os.Getenv("API_DEFAULT_ITERATIONS"), 100),
			DefaultAPICount:   parseInt(os.Getenv("API_DEFAULT_COUNT"), 3),
		},
		LogLevel:           firstNonEmpty(os.Getenv("LOG_LEVEL"), profile.LogLevel, "info"),
		ServiceName:        firstNonEmpty(os.Getenv("SERVICE_NAME"), "batchgen"),
		APIAddr:            firstNonEmpty(os.Getenv("API_ADDR"), profile.APIAddr, ":8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisUrl:           os.Getenv("OVERRIDE_REDIS_URL"),
		RedisSentinelHosts: os.Getenv("REDIS_SENTINEL_HOSTS"),
		RedisMasterName:    os.Getenv("REDIS_MASTER"),
		RabbitMQURL:        os.Getenv("RABBITMQ_URL"),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if config.RedisSentinelHosts != "" && config.RedisMasterName == "" {
		return nil, errors.New("REDIS_MASTER is required when REDIS_SENTINEL_HOSTS is set")
	}

	return config, nil
}

// LoadProfile parses a YAML profile from path.
func LoadProfile(path string) (*Profile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	var profile Profile
	if err := yaml.Unmarshal(content, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return &profile, nil
}

// RedisEnabled reports whether either a direct URL or a sentinel setup is configured.
func (c *AppConfig) RedisEnabled() bool {
	return c.RedisUrl != "" || c.RedisSentinelHosts != ""
}

// defaultJavaBin prefers the JDK bundled under the backend folder and falls
// back to whatever java is on PATH.
func defaultJavaBin(backend string) string {
	bundled := filepath.Join(backend, bundledJDK, "bin", "java")
	if _, err := os.Stat(bundled); err == nil {
		return bundled
	}
	if path, err := exec.LookPath("java"); err == nil {
		return path
	}
	return "java"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func orInt(val, defaultVal int) int {
	if val <= 0 {
		return defaultVal
	}
	return val
}

func parseDuration(val string, defaultVal time.Duration) time.Duration {
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func parseInt(val string, defaultVal int) int {
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}
