package internal

import (
	"fmt"

	"github.com/spf13/viper"
)

type CellstoreConfig struct {
	AppName string `mapstructure:"app_name"`

	Storage struct {
		Workdir          string `mapstructure:"workdir"`
		SegmentThreshold int64  `mapstructure:"segment_threshold"`
		SparseInterval   int    `mapstructure:"sparse_interval"`
	} `mapstructure:"storage"`

	Server struct {
		Addr           string `mapstructure:"addr"`
		MaxConnections int    `mapstructure:"max_connections"`
		Websocket      bool   `mapstructure:"websocket"`
		Debug          bool   `mapstructure:"debug"`
	} `mapstructure:"server"`
}

func LoadConfig(path string) (*CellstoreConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("app_name", "cellstore")
	v.SetDefault("storage.workdir", "./data")
	v.SetDefault("server.addr", "127.0.0.1:5462")
	v.SetDefault("server.max_connections", 64)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg CellstoreConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
