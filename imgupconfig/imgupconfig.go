package imgupconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/viper"
)

// ImgurConfig defines the credentials for the Imgur API.
type ImgurConfig struct {
	ClientId     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// ImgupConfig defines the configuration for imgup.
type ImgupConfig struct {
	TmpDir     string `mapstructure:"tmp_dir"`
	OutputHTML string `mapstructure:"output_html"`

	ImageMaxWidth  int `mapstructure:"image_max_width"`
	ImageMaxHeight int `mapstructure:"image_max_height"`
	ThumbMaxWidth  int `mapstructure:"thumb_max_width"`
	ThumbMaxHeight int `mapstructure:"thumb_max_height"`

	HTMLHeaderPath string `mapstructure:"html_header_path"`
	HTMLFooterPath string `mapstructure:"html_footer_path"`

	Imgur ImgurConfig `mapstructure:"imgur"`

	path string `mapstructure:"-"`
}

const (
	defaultOutputHTML = "listing.html"

	defaultImageMaxWidth  = 1280
	defaultImageMaxHeight = 1280
	defaultThumbMaxWidth  = 320
	defaultThumbMaxHeight = 320
)

// outputFileNameRe restricts the gallery file name to a plain basename.
var outputFileNameRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ConfigPath returns the path of the file the config was loaded from.
func (c *ImgupConfig) ConfigPath() string {
	return c.path
}

func (c *ImgurConfig) Validate() error {
	if c.ClientId == "" {
		return fmt.Errorf("missing imgur client_id")
	}
	// ClientSecret may be empty: anonymous uploads only need the client id.
	return nil
}

func (c *ImgupConfig) Validate() error {
	if c.TmpDir == "" {
		return fmt.Errorf("missing tmp_dir (%s)", c.path)
	}
	info, err := os.Stat(c.TmpDir)
	if err != nil {
		return fmt.Errorf("tmp_dir %q is not accessible (%s): %w", c.TmpDir, c.path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("tmp_dir %q is not a directory (%s)", c.TmpDir, c.path)
	}
	if !outputFileNameRe.MatchString(c.OutputHTML) {
		return fmt.Errorf("invalid output_html %q, only alphanumerics, '.', '_' and '-' are allowed (%s)", c.OutputHTML, c.path)
	}
	for name, v := range map[string]int{
		"image_max_width":  c.ImageMaxWidth,
		"image_max_height": c.ImageMaxHeight,
		"thumb_max_width":  c.ThumbMaxWidth,
		"thumb_max_height": c.ThumbMaxHeight,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be a positive integer, got %d (%s)", name, v, c.path)
		}
	}
	if err := c.Imgur.Validate(); err != nil {
		return fmt.Errorf("invalid imgur config (%s): %w", c.path, err)
	}
	return nil
}

// DefaultConfigPath returns the default path for the imgup config file.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("unable to determine user config dir: %w", err)
	}
	return filepath.Join(dir, "imgup", "config.toml"), nil
}

// getConfigPath determines where to read the config file from.
func getConfigPath(configPathFlag string) (string, error) {
	// Prefer user-specified config file path.
	if configPathFlag != "" {
		return configPathFlag, nil
	}
	return DefaultConfigPath()
}

// LoadConfig reads the config file.
func LoadConfig(configPathFlag string) (ImgupConfig, error) {
	path, err := getConfigPath(configPathFlag)
	if err != nil {
		return ImgupConfig{}, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetDefault("output_html", defaultOutputHTML)
	v.SetDefault("image_max_width", defaultImageMaxWidth)
	v.SetDefault("image_max_height", defaultImageMaxHeight)
	v.SetDefault("thumb_max_width", defaultThumbMaxWidth)
	v.SetDefault("thumb_max_height", defaultThumbMaxHeight)

	if err := v.ReadInConfig(); err != nil {
		return ImgupConfig{}, fmt.Errorf("error reading (%s): %w", path, err)
	}
	config := ImgupConfig{path: path}
	if err := v.Unmarshal(&config); err != nil {
		return ImgupConfig{}, fmt.Errorf("error unmarshaling (%s): %w", path, err)
	}
	return config, nil
}
