package configfile

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ConfigFile is the persisted ~/.winforge/config.json host preferences
// document: CLI-level defaults that outlive a single invocation. It does
// not hold any of the application management core's own data — that
// lives in the state file appcore/state owns.
type ConfigFile struct {
	Filename string `json:"-"` // internal use only

	LogLevel string `json:"logLevel,omitempty"`

	// RequireAuthenticode and DefaultDryRun, when non-nil, override the
	// appcore/config defaults for every invocation until set again.
	RequireAuthenticode *bool `json:"requireAuthenticode,omitempty"`
	DefaultDryRun        *bool `json:"defaultDryRun,omitempty"`
}

// New initializes an empty configuration file for the given filename.
func New(fn string) *ConfigFile {
	return &ConfigFile{Filename: fn}
}

// LoadFromReader decodes configData into the receiver.
func (configFile *ConfigFile) LoadFromReader(configData io.Reader) error {
	if err := json.NewDecoder(configData).Decode(configFile); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// SaveToWriter encodes the config file to writer.
func (configFile *ConfigFile) SaveToWriter(writer io.Writer) error {
	data, err := json.MarshalIndent(configFile, "", "\t")
	if err != nil {
		return err
	}
	_, err = writer.Write(data)
	return err
}

// Save writes the config file to its Filename via write-temp-then-rename.
func (configFile *ConfigFile) Save() (retErr error) {
	if configFile.Filename == "" {
		return errors.Errorf("can't save config with empty filename")
	}

	dir := filepath.Dir(configFile.Filename)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	temp, err := os.CreateTemp(dir, filepath.Base(configFile.Filename))
	if err != nil {
		return err
	}
	defer func() {
		temp.Close()
		if retErr != nil {
			if err := os.Remove(temp.Name()); err != nil {
				logrus.WithError(err).WithField("file", temp.Name()).Debug("error cleaning up temp file")
			}
		}
	}()

	if err := configFile.SaveToWriter(temp); err != nil {
		return err
	}
	if err := temp.Close(); err != nil {
		return errors.Wrap(err, "error closing temp file")
	}

	cfgFile := configFile.Filename
	if f, err := os.Readlink(cfgFile); err == nil {
		cfgFile = f
	}
	return os.Rename(temp.Name(), cfgFile)
}

// GetFilename returns the file name that this config file is based on.
func (configFile *ConfigFile) GetFilename() string {
	return configFile.Filename
}
