// Package config reads the settings of the PDF correction service from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bmharper/pdfdeskew/orient"
	"github.com/bmharper/pdfdeskew/skew"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Address    string   `yaml:"address"`
	ServiceURL string   `yaml:"service_url"`
	EngineURLs []string `yaml:"engine_urls"`

	EngineAnnounceRetries    int           `yaml:"engine_announce_retries"`
	EngineAnnounceRetryDelay time.Duration `yaml:"engine_announce_retry_delay"`

	MaxTasks      int           `yaml:"max_tasks"`
	Workers       int           `yaml:"workers"`
	ImageWorkers  int           `yaml:"image_workers"`
	TaskRetention time.Duration `yaml:"task_retention"`

	LogLevel string `yaml:"log_level"`

	Orientation Orientation `yaml:"orientation"`
	Skew        Skew        `yaml:"skew"`
}

type Orientation struct {
	Engine   string `yaml:"engine"`
	Language string `yaml:"language"`
}

type Skew struct {
	AxisThreshold  float64 `yaml:"axis_threshold"`
	CannyLow       float64 `yaml:"canny_low"`
	CannyHigh      float64 `yaml:"canny_high"`
	HoughThreshold int     `yaml:"hough_threshold"`
	MinLineLength  float64 `yaml:"min_line_length"`
	MaxLineGap     float64 `yaml:"max_line_gap"`
}

// Default returns the settings that apply to keys missing from the file
func Default() *Config {
	p := skew.NewParams()
	return &Config{
		Address:                  ":8080",
		ServiceURL:               "http://localhost:8080",
		EngineAnnounceRetries:    5,
		EngineAnnounceRetryDelay: 3 * time.Second,
		MaxTasks:                 50,
		Workers:                  1,
		TaskRetention:            time.Hour,
		LogLevel:                 "info",
		Orientation: Orientation{
			Engine:   orient.EngineTextorient,
			Language: "eng",
		},
		Skew: Skew{
			AxisThreshold:  p.AxisThreshold,
			CannyLow:       p.CannyLow,
			CannyHigh:      p.CannyHigh,
			HoughThreshold: p.HoughThreshold,
			MinLineLength:  p.MinLineLength,
			MaxLineGap:     p.MaxLineGap,
		},
	}
}

// Parse reads the YAML file at path on top of Default().
// Environment variables in the file are expanded. An empty path returns the defaults.
func Parse(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data)
}

func ParseBytes(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	c := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Address == "" {
		return errors.New("address must not be empty")
	}
	if c.MaxTasks < 1 {
		return fmt.Errorf("max_tasks must be at least 1 (got %v)", c.MaxTasks)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1 (got %v)", c.Workers)
	}
	if c.ImageWorkers < 0 {
		return fmt.Errorf("image_workers must not be negative (got %v)", c.ImageWorkers)
	}
	if c.EngineAnnounceRetries < 0 {
		return fmt.Errorf("engine_announce_retries must not be negative (got %v)", c.EngineAnnounceRetries)
	}
	if c.EngineAnnounceRetryDelay < 0 || c.TaskRetention < 0 {
		return errors.New("durations must not be negative")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Orientation.Engine {
	case orient.EngineTextorient, orient.EngineTesseract, orient.EngineNone:
	default:
		return fmt.Errorf("unknown orientation engine %q", c.Orientation.Engine)
	}
	s := c.Skew
	if s.AxisThreshold <= 0 || s.AxisThreshold > 90 {
		return fmt.Errorf("skew.axis_threshold must be in (0, 90] (got %v)", s.AxisThreshold)
	}
	if s.CannyLow < 0 || s.CannyHigh < s.CannyLow {
		return fmt.Errorf("skew.canny_low (%v) and skew.canny_high (%v) must satisfy 0 <= low <= high", s.CannyLow, s.CannyHigh)
	}
	if s.HoughThreshold < 1 || s.MinLineLength < 0 || s.MaxLineGap < 0 {
		return errors.New("skew.hough_threshold must be positive, and line lengths must not be negative")
	}
	return nil
}

// SkewParams converts the skew section into estimator parameters
func (c *Config) SkewParams() *skew.Params {
	p := skew.NewParams()
	p.AxisThreshold = c.Skew.AxisThreshold
	p.CannyLow = c.Skew.CannyLow
	p.CannyHigh = c.Skew.CannyHigh
	p.HoughThreshold = c.Skew.HoughThreshold
	p.MinLineLength = c.Skew.MinLineLength
	p.MaxLineGap = c.Skew.MaxLineGap
	return p
}

// Level returns the slog level named by log_level
func (c *Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q", s)
	}
	return level, nil
}
