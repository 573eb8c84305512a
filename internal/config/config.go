// Package config loads the blockloader command configuration.
//
// Values are read from an optional YAML file, then overridden by environment
// variables, then by command line flags that were set explicitly.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// Config holds a single pipeline run.
type Config struct {
	Pipeline string `yaml:"pipeline"`

	// DatasetID and File select the dataset file to load. For Cloud Storage
	// sources DatasetID is the bucket.
	DatasetID  string `yaml:"dataset_id"`
	File       string `yaml:"file"`
	SourceRoot string `yaml:"source_root"`
	Format     string `yaml:"format"`
	Encoding   string `yaml:"encoding"`

	Project string `yaml:"project"`
	Dataset string `yaml:"dataset"`
	Table   string `yaml:"table"`

	StagingBucket string `yaml:"staging_bucket"`
	StagingObject string `yaml:"staging_object"`

	CredentialsFile string `yaml:"credentials_file"`

	LogLevel      string `yaml:"log_level"`
	PrettyLogging bool   `yaml:"pretty_logging"`

	Slack Slack `yaml:"slack"`
}

// Slack configures result notifications. Disabled when Token is empty.
type Slack struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// Default returns the configuration used when nothing else is given.
func Default() *Config {
	return &Config{
		Pipeline:      "ethereum-blocks",
		File:          "block_data.csv",
		Format:        "csv",
		LogLevel:      "info",
		PrettyLogging: true,
	}
}

// Load reads path on top of Default and applies the environment.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, xerrors.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(body, c); err != nil {
			return nil, xerrors.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"DATASET_ID":                     &c.DatasetID,
		"DATASET_FILE":                   &c.File,
		"DATASET_ROOT":                   &c.SourceRoot,
		"BIGQUERY_PROJECT_ID":            &c.Project,
		"BIGQUERY_DATASET_ID":            &c.Dataset,
		"BIGQUERY_TABLE_ID":              &c.Table,
		"STAGING_BUCKET":                 &c.StagingBucket,
		"STAGING_OBJECT":                 &c.StagingObject,
		"GOOGLE_APPLICATION_CREDENTIALS": &c.CredentialsFile,
		"LOG_LEVEL":                      &c.LogLevel,
		"SLACK_TOKEN":                    &c.Slack.Token,
		"SLACK_CHANNEL":                  &c.Slack.Channel,
	}
	for k, p := range strs {
		if v, ok := lookup(k); ok && v != "" {
			*p = v
		}
	}

	if v, ok := lookup("PRETTY_LOGGING"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return xerrors.Errorf("invalid PRETTY_LOGGING %q: %w", v, err)
		}
		c.PrettyLogging = b
	}

	return nil
}

// BindFlags defines flags for every setting on fs.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("pipeline", d.Pipeline, "pipeline name")
	fs.String("dataset-id", "", "dataset ID, the bucket for Cloud Storage sources")
	fs.String("file", d.File, "file in the dataset to load")
	fs.String("source-root", "", "read datasets from this local directory")
	fs.String("format", d.Format, "source file format: csv or xls")
	fs.String("encoding", "", "source file encoding, e.g. shift_jis")
	fs.String("project", "", "BigQuery project")
	fs.String("dataset", "", "BigQuery dataset")
	fs.String("table", "", "BigQuery table")
	fs.String("staging-bucket", "", "Cloud Storage bucket for staged files")
	fs.String("staging-object", "", "object name of the staged file")
	fs.String("credentials", "", "service account key file")
	fs.String("log-level", d.LogLevel, "log level")
	fs.Bool("pretty", d.PrettyLogging, "print human friendly logs, --pretty=false prints JSON")
}

// ApplyFlags overrides c with flags that were set on fs.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	strs := map[string]*string{
		"pipeline":       &c.Pipeline,
		"dataset-id":     &c.DatasetID,
		"file":           &c.File,
		"source-root":    &c.SourceRoot,
		"format":         &c.Format,
		"encoding":       &c.Encoding,
		"project":        &c.Project,
		"dataset":        &c.Dataset,
		"table":          &c.Table,
		"staging-bucket": &c.StagingBucket,
		"staging-object": &c.StagingObject,
		"credentials":    &c.CredentialsFile,
		"log-level":      &c.LogLevel,
	}
	for name, p := range strs {
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*p = v
	}

	if fs.Changed("pretty") {
		b, err := fs.GetBool("pretty")
		if err != nil {
			return err
		}
		c.PrettyLogging = b
	}

	return nil
}

// QualifiedTable returns "project.dataset.table".
func (c *Config) QualifiedTable() string {
	return fmt.Sprintf("%s.%s.%s", c.Project, c.Dataset, c.Table)
}

// Validate reports the first missing setting.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"dataset_id", c.DatasetID},
		{"file", c.File},
		{"project", c.Project},
		{"dataset", c.Dataset},
		{"table", c.Table},
		{"staging_bucket", c.StagingBucket},
	}
	for _, r := range required {
		if r.value == "" {
			return xerrors.Errorf("%s is required", r.name)
		}
	}

	if c.Slack.Token != "" && c.Slack.Channel == "" {
		return xerrors.New("slack.channel is required when slack.token is set")
	}

	return nil
}
