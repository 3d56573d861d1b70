// Package config loads the deskhop configuration: fixed channel ports,
// stream tuning and timeouts, overridable through a config file.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config carries every tunable of the protocol engine.
type Config struct {
	ScreenPort  int
	ControlPort int
	FilePort    int

	FPS      int
	Quality  int
	MaxWidth int
	Display  int

	SaveDir string

	DialTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Load reads the config file (deskhop.yaml in the working directory or
// the home directory) on top of the defaults. A missing file is not an
// error.
func Load(cfgFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("deskhop")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return Config{}, err
		}
	}

	return Config{
		ScreenPort:   v.GetInt("screen_port"),
		ControlPort:  v.GetInt("control_port"),
		FilePort:     v.GetInt("file_port"),
		FPS:          v.GetInt("fps"),
		Quality:      v.GetInt("quality"),
		MaxWidth:     v.GetInt("max_width"),
		Display:      v.GetInt("display"),
		SaveDir:      v.GetString("save_dir"),
		DialTimeout:  v.GetDuration("dial_timeout"),
		WriteTimeout: v.GetDuration("write_timeout"),
		IdleTimeout:  v.GetDuration("idle_timeout"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("screen_port", 5900)
	v.SetDefault("control_port", 5901)
	v.SetDefault("file_port", 5902)
	v.SetDefault("fps", 30)
	v.SetDefault("quality", 50)
	v.SetDefault("max_width", 1920)
	v.SetDefault("display", 0)
	v.SetDefault("save_dir", defaultSaveDir())
	v.SetDefault("dial_timeout", 5*time.Second)
	v.SetDefault("write_timeout", 5*time.Second)
	v.SetDefault("idle_timeout", 5*time.Minute)
}

func defaultSaveDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "deskhop_files"
	}
	return filepath.Join(home, "deskhop_files")
}
