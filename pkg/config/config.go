// Package config loads the sheetbatch configuration file.
//
// The file is TOML and lives at $XDG_CONFIG_HOME/sheetbatch/config.toml
// (~/.config/sheetbatch/config.toml when XDG_CONFIG_HOME is unset). A missing
// file is not an error; every key has a default.
//
//	[print]
//	driver = "PDF-XChange 5.0 for ABBYY FineReader 14"
//	range = "select"
//
//	[export]
//	output_dir = "/home/me/Desktop"
//	view_type = "FloorPlan"
//	image_format = "png"
//
//	[store]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
//	[[policy]]
//	label = "А4К"
//	paper = "A4"
//	orientation = "portrait"
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/sheetbatch/pkg/core/export"
	"github.com/matzehuels/sheetbatch/pkg/core/policy"
	"github.com/matzehuels/sheetbatch/pkg/core/printing"
	"github.com/matzehuels/sheetbatch/pkg/errors"
	"github.com/matzehuels/sheetbatch/pkg/host"
	"github.com/matzehuels/sheetbatch/pkg/infra/viewstore"
	"github.com/matzehuels/sheetbatch/pkg/infra/viewstore/mongo"
	"github.com/matzehuels/sheetbatch/pkg/infra/viewstore/postgres"
	"github.com/matzehuels/sheetbatch/pkg/infra/viewstore/redis"
)

// AppName names the XDG subdirectories.
const AppName = "sheetbatch"

// FileName is the base name of the configuration file.
const FileName = "config.toml"

// Config is the decoded configuration file.
type Config struct {
	Print    Print         `toml:"print"`
	Export   Export        `toml:"export"`
	Store    Store         `toml:"store"`
	Policies []PolicyEntry `toml:"policy"`
}

// Print is the [print] section.
type Print struct {
	Driver   string `toml:"driver"`
	Range    string `toml:"range"`
	SpoolDir string `toml:"spool_dir"`
}

// Export is the [export] section.
type Export struct {
	OutputDir   string `toml:"output_dir"`
	ViewType    string `toml:"view_type"`
	ViewName    string `toml:"view_name"`
	ImageFormat string `toml:"image_format"`
	PixelSize   int    `toml:"pixel_size"`
	DPI         int    `toml:"dpi"`
	IFCVersion  string `toml:"ifc_version"`
	IFCFilename string `toml:"ifc_filename"`
}

// Store is the [store] section.
type Store struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`

	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`

	PostgresDSN string `toml:"postgres_dsn"`
}

// PolicyEntry is one [[policy]] row.
type PolicyEntry struct {
	Label       string `toml:"label"`
	Paper       string `toml:"paper"`
	Orientation string `toml:"orientation"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	if c.Print.Driver == "" {
		c.Print.Driver = printing.DefaultDriver
	}
	if c.Print.Range == "" {
		c.Print.Range = host.RangeSelect.String()
	}
	if c.Print.SpoolDir == "" {
		c.Print.SpoolDir = filepath.Join(dataDir(), "spool")
	}

	if c.Export.OutputDir == "" {
		c.Export.OutputDir = DesktopDir()
	}
	if c.Export.ViewType == "" {
		c.Export.ViewType = string(host.ViewFloorPlan)
	}
	if c.Export.ImageFormat == "" {
		c.Export.ImageFormat = string(host.ImagePNG)
	}
	if c.Export.PixelSize == 0 {
		c.Export.PixelSize = export.DefaultPixelSize
	}
	if c.Export.DPI == 0 {
		c.Export.DPI = export.DefaultDPI
	}
	if c.Export.IFCVersion == "" {
		c.Export.IFCVersion = string(host.IFC2x3)
	}

	if c.Store.Backend == "" {
		c.Store.Backend = viewstore.BackendFile
	}
	if c.Store.Backend == viewstore.BackendFile && c.Store.Path == "" {
		c.Store.Path = filepath.Join(dataDir(), "viewsets")
	}
}

// Load reads path. A missing file yields Default.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "open config")
	}
	defer f.Close()

	c, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Read decodes a configuration from r, applies defaults and validates it.
func Read(r io.Reader) (*Config, error) {
	var c Config
	md, err := toml.NewDecoder(r).Decode(&c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown key %q", undecoded[0].String())
	}
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks every value that is parsed later, so that a bad file fails
// at load time instead of halfway through a run.
func (c *Config) Validate() error {
	r, err := host.ParsePrintRange(c.Print.Range)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "print.range")
	}
	if r != host.RangeSelect {
		return errors.New(errors.ErrCodeInvalidConfig, "print.range: %s is not supported, batches print their view set", r)
	}
	if _, err := host.ParseViewType(c.Export.ViewType); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "export.view_type")
	}
	if _, err := host.ParseImageFileType(c.Export.ImageFormat); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "export.image_format")
	}
	if _, err := host.ParseIFCVersion(c.Export.IFCVersion); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "export.ifc_version")
	}
	if c.Export.PixelSize < 0 || c.Export.DPI < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "export.pixel_size and export.dpi must be positive")
	}
	if _, err := c.PolicyTable(); err != nil {
		return err
	}
	return c.StoreOptions().Validate()
}

// PolicyTable builds the format policy table. Without [[policy]] entries the
// built-in table is returned.
func (c *Config) PolicyTable() (*policy.Table, error) {
	if len(c.Policies) == 0 {
		return policy.Default(), nil
	}
	entries := make([]policy.Entry, len(c.Policies))
	for i, p := range c.Policies {
		o, err := host.ParseOrientation(p.Orientation)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "policy %q", p.Label)
		}
		entries[i] = policy.Entry{
			Label:  p.Label,
			Policy: policy.Policy{PaperSize: strings.TrimSpace(p.Paper), Orientation: o},
		}
	}
	return policy.New(entries)
}

// PrintConfig returns the dispatcher configuration.
func (c *Config) PrintConfig() printing.Config {
	r, _ := host.ParsePrintRange(c.Print.Range)
	return printing.Config{Driver: c.Print.Driver, Range: r}
}

// ImageConfig returns the image exporter configuration.
func (c *Config) ImageConfig() export.ImageConfig {
	ft, _ := host.ParseImageFileType(c.Export.ImageFormat)
	return export.ImageConfig{
		OutputDir: c.Export.OutputDir,
		ViewType:  host.ViewType(c.Export.ViewType),
		ViewName:  c.Export.ViewName,
		FileType:  ft,
		PixelSize: c.Export.PixelSize,
		DPI:       c.Export.DPI,
	}
}

// ModelConfig returns the IFC exporter configuration.
func (c *Config) ModelConfig() export.ModelConfig {
	v, _ := host.ParseIFCVersion(c.Export.IFCVersion)
	return export.ModelConfig{
		OutputDir: c.Export.OutputDir,
		Filename:  c.Export.IFCFilename,
		Version:   v,
	}
}

// StoreOptions returns the view-set store options.
func (c *Config) StoreOptions() viewstore.Options {
	return viewstore.Options{
		Backend: c.Store.Backend,
		Path:    c.Store.Path,
		Redis: redis.Options{
			Addr:     c.Store.RedisAddr,
			Password: c.Store.RedisPassword,
			DB:       c.Store.RedisDB,
		},
		Mongo: mongo.Options{
			URI:        c.Store.MongoURI,
			Database:   c.Store.MongoDatabase,
			Collection: c.Store.MongoCollection,
		},
		Postgres: postgres.Options{DSN: c.Store.PostgresDSN},
	}
}

// =============================================================================
// Paths
// =============================================================================

// DefaultPath returns the configuration file location.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName, FileName)
	}
	return filepath.Join(homeDir(), ".config", AppName, FileName)
}

// DesktopDir returns ~/Desktop when it exists, else the home directory.
func DesktopDir() string {
	home := homeDir()
	desktop := filepath.Join(home, "Desktop")
	if fi, err := os.Stat(desktop); err == nil && fi.IsDir() {
		return desktop
	}
	return home
}

func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	return filepath.Join(homeDir(), ".local", "share", AppName)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return home
}
