package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vdvorak/way-secshell/pkg/wayssh"

	"gopkg.in/yaml.v2"
)

// Connection описывает подключение к хосту в файле конфигурации.
type Connection struct {
	Host          string `json:"host" yaml:"host"`
	Port          int    `json:"port,omitempty" yaml:"port,omitempty"`
	User          string `json:"user" yaml:"user"`
	Password      string `json:"password,omitempty" yaml:"password,omitempty"`
	Key           string `json:"key,omitempty" yaml:"key,omitempty"`
	KeyPassphrase string `json:"key_passphrase,omitempty" yaml:"key_passphrase,omitempty"`
	KnownHosts    string `json:"known_hosts,omitempty" yaml:"known_hosts,omitempty"`
	Timeout       string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	ServerVersion string `json:"server_version,omitempty" yaml:"server_version,omitempty"`
}

func LoadConnectionConfig(path string) (*Connection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var conn Connection
	ext := filepath.Ext(path)
	if ext == ".yaml" || ext == ".yml" {
		err = yaml.Unmarshal(data, &conn)
	} else {
		err = json.Unmarshal(data, &conn)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &conn, nil
}

// Merge заполняет пустые поля c значениями из other.
func (c *Connection) Merge(other Connection) {
	if c.Host == "" {
		c.Host = other.Host
	}
	if c.Port == 0 {
		c.Port = other.Port
	}
	if c.User == "" {
		c.User = other.User
	}
	if c.Password == "" {
		c.Password = other.Password
	}
	if c.Key == "" {
		c.Key = other.Key
	}
	if c.KeyPassphrase == "" {
		c.KeyPassphrase = other.KeyPassphrase
	}
	if c.KnownHosts == "" {
		c.KnownHosts = other.KnownHosts
	}
	if c.Timeout == "" {
		c.Timeout = other.Timeout
	}
	if c.ServerVersion == "" {
		c.ServerVersion = other.ServerVersion
	}
}

func (c Connection) SSHConfig() (wayssh.Config, error) {
	var timeout time.Duration
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return wayssh.Config{}, fmt.Errorf("%w: таймаут %q: %v", wayssh.ErrInvalidConfig, c.Timeout, err)
		}
		timeout = d
	}

	return wayssh.Config{
		Host:           c.Host,
		Port:           c.Port,
		User:           c.User,
		Password:       c.Password,
		KeyPath:        c.Key,
		KeyPassphrase:  c.KeyPassphrase,
		KnownHostsPath: c.KnownHosts,
		Timeout:        timeout,
		ServerVersion:  c.ServerVersion,
	}, nil
}
