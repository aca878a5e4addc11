package configuration

import (
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jeremywohl/flatten"
	"github.com/mitchellh/mapstructure"
	"github.com/nexdatas/nxstools/internal/model"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	// DefaultConfigFile is read when present and no --config was given.
	DefaultConfigFile = "nxstools.yml"

	defaultOnlineFile    = "/online_dir/online.xml"
	defaultTangoPort     = 10000
	defaultTimeout       = 30 * time.Second
	defaultRetries       = 3
	defaultReadyInterval = 10 * time.Millisecond
	defaultReadyAttempts = 1000
	defaultConfigServer  = "NXSConfigServer"
	defaultDataWriter    = "NXSDataWriter"
	tangoHostEnv         = "TANGO_HOST"
)

// TangoOptions defines how the Tango REST gateway is reached.
type TangoOptions struct {
	// Endpoint is the REST gateway base URL, e.g. http://localhost:8080
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`
	// Host and Port of the Tango database, TANGO_HOST is used when unset.
	Host                 string        `mapstructure:"host"`
	Port                 int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	Username             string        `mapstructure:"username"`
	Password             string        `mapstructure:"password"`
	Timeout              time.Duration `mapstructure:"timeout"`
	Retries              int           `mapstructure:"retries" validate:"gte=0"`
	OidcIssuerEndpoint   string        `mapstructure:"oidc_issuer_endpoint"`
	OidcAudienceEndpoint string        `mapstructure:"oidc_audience_endpoint"`
	OidcClientSecret     string        `mapstructure:"oidc_client_secret"`
	OidcClientID         string        `mapstructure:"oidc_client_id"`
	OidcClientScopes     []string      `mapstructure:"oidc_client_scopes"`
	DisableOAuth         bool          `mapstructure:"disable_oauth"`
}

// HostPort returns the Tango database address as host:port.
func (o *TangoOptions) HostPort() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// ReadinessOptions bounds the wait for a device to leave the RUNNING state.
type ReadinessOptions struct {
	Interval    time.Duration `mapstructure:"interval" validate:"gt=0"`
	MaxAttempts uint64        `mapstructure:"max_attempts" validate:"gt=0"`
	// Timeout is an overall limit, zero means Interval * MaxAttempts.
	Timeout time.Duration `mapstructure:"timeout"`
}

// ClassOptions names the device classes looked up in the Tango database.
type ClassOptions struct {
	ConfigServer string `mapstructure:"config_server" validate:"required"`
	DataWriter   string `mapstructure:"data_writer" validate:"required"`
}

// Configuration holds application configuration read from a YAML or set by env variables.
// nolint:govet // prefer readability over field alignment optimization for this case.
type Configuration struct {
	// LogLevel is the app verbose logging level.
	// one of - warn, info, debug, trace
	LogLevel string `mapstructure:"log_level"`

	// DryRun replaces the remote devices with in-memory simulations.
	DryRun bool `mapstructure:"dry_run"`

	// DryRunStateFile persists the simulated devices between invocations.
	DryRunStateFile string `mapstructure:"dry_run_state_file"`

	// MetricsTextfile is written with the process metrics on exit when set.
	MetricsTextfile string `mapstructure:"metrics_textfile"`

	// OnlineFile is the default device inventory.
	OnlineFile string `mapstructure:"online_file" validate:"required"`

	// ConfigServer and DataWriter pin device names, otherwise they are looked up.
	ConfigServer string `mapstructure:"config_server"`
	DataWriter   string `mapstructure:"data_writer"`

	Tango     *TangoOptions     `mapstructure:"tango" validate:"required"`
	Readiness *ReadinessOptions `mapstructure:"readiness" validate:"required"`
	Classes   *ClassOptions     `mapstructure:"classes" validate:"required"`
}

// New creates a configuration struct with defaults.
func New() *Configuration {
	config := &Configuration{
		OnlineFile: defaultOnlineFile,
	}

	// these are initialized here so viper can read in configuration from env vars
	// once https://github.com/spf13/viper/pull/1429 is merged, this can go.
	config.Tango = &TangoOptions{
		Port:         defaultTangoPort,
		Timeout:      defaultTimeout,
		Retries:      defaultRetries,
		DisableOAuth: true,
	}
	config.Readiness = &ReadinessOptions{
		Interval:    defaultReadyInterval,
		MaxAttempts: defaultReadyAttempts,
	}
	config.Classes = &ClassOptions{
		ConfigServer: defaultConfigServer,
		DataWriter:   defaultDataWriter,
	}

	return config
}

func (c *Configuration) AsLogFields() []any {
	return []any{
		"logLevel", c.LogLevel,
		"dryRun", c.DryRun,
		"onlineFile", c.OnlineFile,
		"tangoHost", c.Tango.HostPort(),
		"tangoEndpoint", c.Tango.Endpoint,
		"disableOAuth", c.Tango.DisableOAuth,
		"configServerClass", c.Classes.ConfigServer,
		"dataWriterClass", c.Classes.DataWriter,
	}
}

func (c *Configuration) LoadArgs(args *model.Args) {
	if args.LogLevel != "" {
		c.LogLevel = args.LogLevel
	}

	if args.DryRun {
		c.DryRun = true
	}
}

// Load the application configuration
// Reads in the configFile when available and overrides from environment variables.
func Load(args *model.Args) (*Configuration, error) {
	return LoadFs(afero.NewOsFs(), args)
}

// LoadFs is Load reading the configuration file from the given filesystem.
func LoadFs(fs afero.Fs, args *model.Args) (*Configuration, error) {
	viperConfig := viper.New()
	viperConfig.SetConfigType("yaml")
	viperConfig.SetEnvPrefix(model.AppName)
	viperConfig.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperConfig.AutomaticEnv()

	configFile := args.ConfigFile
	if configFile == "" {
		if ok, _ := afero.Exists(fs, DefaultConfigFile); ok {
			configFile = DefaultConfigFile
		}
	}

	if configFile != "" {
		fh, err := fs.Open(configFile)
		if err != nil {
			return nil, errors.Wrap(model.ErrConfig, err.Error())
		}
		defer fh.Close()

		if err = viperConfig.ReadConfig(fh); err != nil {
			return nil, errors.Wrap(model.ErrConfig, "ReadConfig error: "+err.Error())
		}
	}

	config := New()

	if err := config.envBindVars(viperConfig); err != nil {
		return nil, errors.Wrap(model.ErrConfig, "env var bind error: "+err.Error())
	}

	if err := viperConfig.Unmarshal(config); err != nil {
		return nil, errors.Wrap(model.ErrConfig, "Unmarshal error: "+err.Error())
	}

	config.envVarAppOverrides(viperConfig)
	config.LoadArgs(args)

	if err := config.envVarTangoOverrides(viperConfig); err != nil {
		return nil, errors.Wrap(model.ErrConfig, "tango env overrides error: "+err.Error())
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(model.ErrConfig, "validation error: "+err.Error())
	}

	return config, nil
}

func (c *Configuration) envVarAppOverrides(viperConfig *viper.Viper) {
	logLevel := viperConfig.GetString("log.level")
	if logLevel != "" {
		c.LogLevel = logLevel
	}

	if file := viperConfig.GetString("online.file"); file != "" {
		c.OnlineFile = file
	}
}

// envBindVars binds environment variables to the struct
// without a configuration file being unmarshalled,
// this is a workaround for a viper bug,
//
// This can be replaced by the solution in https://github.com/spf13/viper/pull/1429
// once that PR is merged.
func (c *Configuration) envBindVars(viperConfig *viper.Viper) error {
	envKeysMap := map[string]interface{}{}
	if err := mapstructure.Decode(c, &envKeysMap); err != nil {
		return err
	}

	// Flatten nested conf map
	flat, err := flatten.Flatten(envKeysMap, "", flatten.DotStyle)
	if err != nil {
		return errors.Wrap(err, "Unable to flatten configuration")
	}

	for k := range flat {
		if err := viperConfig.BindEnv(k); err != nil {
			return errors.Wrap(model.ErrConfig, "env var bind error: "+err.Error())
		}
	}

	return nil
}

// nolint:gocyclo // parameter validation is cyclomatic
func (c *Configuration) envVarTangoOverrides(viperConfig *viper.Viper) error {
	if c.Tango == nil {
		c.Tango = New().Tango
	}

	if c.Tango.Host == "" {
		if err := c.Tango.setTangoHost(os.Getenv(tangoHostEnv)); err != nil {
			return err
		}
	}

	if c.Tango.Endpoint != "" {
		if _, err := url.Parse(c.Tango.Endpoint); err != nil {
			return errors.New("tango endpoint URL error: " + err.Error())
		}
	}

	if viperConfig.GetString("tango.disable.oauth") != "" {
		c.Tango.DisableOAuth = viperConfig.GetBool("tango.disable.oauth")
	}

	if c.DryRun || c.Tango.DisableOAuth {
		return nil
	}

	if c.Tango.OidcIssuerEndpoint == "" {
		return errors.New("tango oidc_issuer_endpoint not defined")
	}

	if c.Tango.OidcAudienceEndpoint == "" {
		return errors.New("tango oidc_audience_endpoint not defined")
	}

	if c.Tango.OidcClientSecret == "" {
		return errors.New("tango oidc_client_secret not defined")
	}

	if c.Tango.OidcClientID == "" {
		return errors.New("tango oidc_client_id not defined")
	}

	if len(c.Tango.OidcClientScopes) == 0 {
		return errors.New("tango oidc_client_scopes not defined")
	}

	return nil
}

// setTangoHost parses a TANGO_HOST value, host or host:port.
func (o *TangoOptions) setTangoHost(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	// TANGO_HOST may list several databases, the first one is used.
	value = strings.Split(value, ",")[0]

	host, port, err := net.SplitHostPort(value)
	if err != nil {
		o.Host = value
		return nil
	}

	p, err := strconv.Atoi(port)
	if err != nil {
		return errors.New("invalid TANGO_HOST port: " + port)
	}

	o.Host = host
	o.Port = p

	return nil
}
