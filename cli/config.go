package cli

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/opendap/olfs/core/bes"
	"github.com/opendap/olfs/core/config"
	"github.com/opendap/olfs/core/dispatch"
	"github.com/opendap/olfs/lib/zaputil"
)

const defaultConfigFile = "olfs"

var configSearchDirs = []string{"./", "./config", "/etc/olfs"}

type cliConfig struct {
	Log      LogConfig       `config:"log"`
	Server   ServerConfig    `config:"server"`
	Dispatch dispatch.Config `config:"dispatch"`
	BES      BESConfig       `config:"bes"`
	// Catalog and Cache are plugin configs, picked by their "type" key.
	Catalog map[string]interface{} `config:"catalog" validate:"required"`
	Cache   map[string]interface{} `config:"cache"`
	// Handlers serve GET and HEAD, in declared order.
	Handlers     []map[string]interface{} `config:"handlers" validate:"required,min=1"`
	PostHandlers []map[string]interface{} `config:"post-handlers"`
}

type LogConfig struct {
	Level       string `config:"level"`
	Development bool   `config:"development"`
}

type ServerConfig struct {
	Listen string `config:"listen" validate:"listen"`
	// MaxConnections limits simultaneously accepted connections. Zero means
	// no limit.
	MaxConnections    int           `config:"max-connections" validate:"min=0"`
	ReadHeaderTimeout time.Duration `config:"read-header-timeout" validate:"min-time=1ms"`
	// ShutdownTimeout bounds graceful shutdown on SIGINT.
	ShutdownTimeout time.Duration `config:"shutdown-timeout" validate:"min-time=1ms"`
	// Monitoring exposes /metrics and /debug/vars.
	Monitoring bool `config:"monitoring"`
	// ReportInterval is the period of the request rate log. Zero disables it.
	ReportInterval time.Duration `config:"report-interval"`
}

type BESConfig struct {
	Host   string           `config:"host" validate:"required"`
	Port   int              `config:"port" validate:"min=1,max=65535"`
	Client bes.ClientConfig `config:"client"`
}

func defaultConfig() cliConfig {
	return cliConfig{
		Log: LogConfig{Level: "info"},
		Server: ServerConfig{
			Listen:            ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   5 * time.Second,
			Monitoring:        true,
			ReportInterval:    time.Minute,
		},
		Dispatch: dispatch.DefaultConfig(),
		BES: BESConfig{
			Host:   "localhost",
			Port:   10022,
			Client: bes.DefaultClientConfig(),
		},
		Catalog: map[string]interface{}{"type": "bes"},
		Cache:   map[string]interface{}{"type": "memory"},
	}
}

// readConfig reads the config file, or the first of the default files found
// in configSearchDirs when file is empty.
func readConfig(file string) (cliConfig, string, error) {
	v := newViper()
	if file != "" {
		v.SetConfigFile(file)
	}
	err := v.ReadInConfig()
	if err != nil {
		return cliConfig{}, v.ConfigFileUsed(), errors.Wrap(err, "config read failed")
	}
	conf, err := decodeConfig(v.AllSettings())
	return conf, v.ConfigFileUsed(), err
}

func decodeConfig(settings map[string]interface{}) (cliConfig, error) {
	conf := defaultConfig()
	err := config.DecodeAndValidate(settings, &conf)
	if err != nil {
		return cliConfig{}, errors.WithMessage(err, "config decode failed")
	}
	return conf, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(defaultConfigFile)
	for _, dir := range configSearchDirs {
		v.AddConfigPath(dir)
	}
	return v
}

func newLogger(conf LogConfig) (*zap.Logger, error) {
	var level zapcore.Level
	err := level.UnmarshalText([]byte(strings.ToLower(conf.Level)))
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	zc := zap.NewProductionConfig()
	opts := []zap.Option{zap.AddCaller()}
	if conf.Development {
		zc = zap.NewDevelopmentConfig()
		opts = append(opts, zap.WrapCore(zaputil.NewStackExtractCore))
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build(opts...)
}
