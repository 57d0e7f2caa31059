package opcua

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Config is the connection section of the bridge configuration.
type Config struct {
	Name            string        `yaml:"name"`
	URL             string        `yaml:"url"`
	Namespace       int           `yaml:"namespace"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	SecurityMode    string        `yaml:"security_mode"`
	SecurityPolicy  string        `yaml:"security_policy"`
	ApplicationName string        `yaml:"application_name"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "opcbridge"
	}
	if c.Name == "" {
		c.Name = c.URL
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	if !strings.HasPrefix(c.URL, "opc.tcp://") {
		return fmt.Errorf("url %q must use the opc.tcp scheme", c.URL)
	}
	if c.Namespace < 0 || c.Namespace > math.MaxUint16 {
		return fmt.Errorf("namespace %d out of range", c.Namespace)
	}
	if c.Password != "" && c.Username == "" {
		return errors.New("password set without username")
	}
	return nil
}
